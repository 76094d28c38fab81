package httpapi

import (
	"testing"
	"time"

	"atlaspos/backend/internal/domain"
	"atlaspos/backend/internal/store/memory"
)

func TestLoginAndParseTokenCarriesTenant(t *testing.T) {
	repo := memory.NewSeeded()
	auth := NewAuthManager("test-secret-long-enough-for-hs256!!", time.Hour, repo)

	resp, err := auth.Login(domain.LoginRequest{Username: "admin", Password: "admin123"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	actor, err := auth.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token failed: %v", err)
	}
	if actor.Username != "admin" || actor.Role != "admin" {
		t.Fatalf("unexpected actor %+v", actor)
	}
	if actor.TenantID != memory.DemoTenantID {
		t.Fatalf("expected tenant %s, got %s", memory.DemoTenantID, actor.TenantID)
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	repo := memory.NewSeeded()
	auth := NewAuthManager("test-secret-long-enough-for-hs256!!", time.Hour, repo)

	if _, err := auth.Login(domain.LoginRequest{Username: "admin", Password: "wrong"}); err == nil {
		t.Fatalf("expected login to fail")
	}
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	auth := NewAuthManager("test-secret-long-enough-for-hs256!!", time.Hour, nil)

	if _, err := auth.ParseToken("not-a-token"); err == nil {
		t.Fatalf("expected parse to fail")
	}
}
