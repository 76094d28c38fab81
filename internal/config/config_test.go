package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("SUMMARY_TTL_SECONDS", "")
	t.Setenv("VISIT_REWARD_POINTS", "")
	t.Setenv("ACCESS_TOKEN_TTL_MINUTES", "")

	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.SummaryTTLSeconds != 30 {
		t.Fatalf("expected default summary TTL 30, got %d", cfg.SummaryTTLSeconds)
	}
	if cfg.VisitRewardPoints != 10 {
		t.Fatalf("expected default visit points 10, got %d", cfg.VisitRewardPoints)
	}
	if cfg.AccessTokenTTLMinutes != 480 {
		t.Fatalf("expected default token TTL 480, got %d", cfg.AccessTokenTTLMinutes)
	}
	if cfg.Address() != ":8080" {
		t.Fatalf("unexpected address %s", cfg.Address())
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SUMMARY_TTL_SECONDS", "120")
	t.Setenv("VISIT_REWARD_POINTS", "5")

	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected port 9090, got %s", cfg.Port)
	}
	if cfg.SummaryTTLSeconds != 120 {
		t.Fatalf("expected summary TTL 120, got %d", cfg.SummaryTTLSeconds)
	}
	if cfg.VisitRewardPoints != 5 {
		t.Fatalf("expected visit points 5, got %d", cfg.VisitRewardPoints)
	}
}

func TestLoadRejectsBadNumbers(t *testing.T) {
	t.Setenv("SUMMARY_TTL_SECONDS", "not-a-number")
	t.Setenv("VISIT_REWARD_POINTS", "-3")

	cfg := Load()
	if cfg.SummaryTTLSeconds != 30 {
		t.Fatalf("expected fallback TTL 30, got %d", cfg.SummaryTTLSeconds)
	}
	if cfg.VisitRewardPoints != 10 {
		t.Fatalf("expected fallback visit points 10, got %d", cfg.VisitRewardPoints)
	}
}
