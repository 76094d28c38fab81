package memory

import (
	"context"
	"errors"
	"testing"

	"atlaspos/backend/internal/domain"
	"atlaspos/backend/internal/store"
)

func TestCreateSettlementRejectsReplayedID(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	settlement := domain.Settlement{
		ID:          "stl-once",
		TenantID:    DemoTenantID,
		EntityID:    "cust-fatima",
		Type:        domain.SettlementCustomerIn,
		AmountCents: 1000,
	}
	if _, err := s.CreateSettlement(ctx, settlement); err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	if _, err := s.CreateSettlement(ctx, settlement); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	c, err := s.GetCustomer(ctx, DemoTenantID, "cust-fatima")
	if err != nil {
		t.Fatalf("get customer failed: %v", err)
	}
	if c.BalanceCents != 11500 {
		t.Fatalf("replay moved money: expected 11500, got %d", c.BalanceCents)
	}
}

func TestCreateSettlementUnknownEntityAppliesNothing(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	_, err := s.CreateSettlement(ctx, domain.Settlement{
		ID:          "stl-ghost",
		TenantID:    DemoTenantID,
		EntityID:    "sup-missing",
		Type:        domain.SettlementSupplierOut,
		AmountCents: 500,
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.GetSettlement(ctx, DemoTenantID, "stl-ghost"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("failed settlement left a row: %v", err)
	}
}

func TestSettleSaleUsesSettlementInsertPath(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	sale := domain.Sale{
		ID:            "sale-settle",
		TenantID:      DemoTenantID,
		Items:         []domain.SaleItem{{Name: "Divers", Qty: 1, UnitPriceCents: 3000}},
		TotalCents:    3000,
		AdvanceCents:  1000,
		PaymentMethod: domain.PaymentMethodKarne,
		CustomerID:    "cust-hassan",
	}
	if _, err := s.CreateSale(ctx, sale, 10); err != nil {
		t.Fatalf("create sale failed: %v", err)
	}

	created, err := s.SettleSale(ctx, DemoTenantID, "sale-settle", domain.Settlement{ID: "stl-from-sale"})
	if err != nil {
		t.Fatalf("settle failed: %v", err)
	}
	if created.AmountCents != 2000 || created.Type != domain.SettlementCustomerIn {
		t.Fatalf("unexpected settlement %+v", created)
	}

	// The posted remainder and its settlement cancel out.
	c, err := s.GetCustomer(ctx, DemoTenantID, "cust-hassan")
	if err != nil {
		t.Fatalf("get customer failed: %v", err)
	}
	if c.BalanceCents != 0 {
		t.Fatalf("expected balance 0, got %d", c.BalanceCents)
	}

	if _, err := s.GetSettlement(ctx, DemoTenantID, "stl-from-sale"); err != nil {
		t.Fatalf("sale settlement not recorded: %v", err)
	}
	if _, err := s.SettleSale(ctx, DemoTenantID, "sale-settle", domain.Settlement{ID: "stl-again"}); !errors.Is(err, store.ErrAlreadyPaid) {
		t.Fatalf("expected ErrAlreadyPaid, got %v", err)
	}
}

func TestNewStartsEmptyWithLoginAccounts(t *testing.T) {
	s := New()
	ctx := context.Background()

	customers, err := s.ListCustomers(ctx, DemoTenantID)
	if err != nil {
		t.Fatalf("list customers failed: %v", err)
	}
	if len(customers) != 0 {
		t.Fatalf("empty store has %d customers", len(customers))
	}
	products, err := s.ListProducts(ctx, DemoTenantID)
	if err != nil {
		t.Fatalf("list products failed: %v", err)
	}
	if len(products) != 0 {
		t.Fatalf("empty store has %d products", len(products))
	}

	users, err := s.ListUsers(ctx)
	if err != nil {
		t.Fatalf("list users failed: %v", err)
	}
	if len(users) == 0 {
		t.Fatalf("expected login accounts in empty store")
	}
}

func TestUpdateCustomerPreservesLedgerFields(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	updated, err := s.UpdateCustomer(ctx, domain.Customer{
		ID:           "cust-fatima",
		TenantID:     DemoTenantID,
		Name:         "Fatima Z.",
		BalanceCents: 999999,
		Points:       999,
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.BalanceCents != 12500 {
		t.Fatalf("update overwrote balance: got %d", updated.BalanceCents)
	}
	if updated.Points != 30 {
		t.Fatalf("update overwrote points: got %d", updated.Points)
	}
	if updated.Name != "Fatima Z." {
		t.Fatalf("name not updated")
	}
}
