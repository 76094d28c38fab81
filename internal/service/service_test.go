package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"atlaspos/backend/internal/cache"
	"atlaspos/backend/internal/domain"
	"atlaspos/backend/internal/store"
	"atlaspos/backend/internal/store/memory"
)

func newTestService() *Service {
	repo := memory.NewSeeded()
	return New(repo, cache.NoopSummaryCache{}, zerolog.Nop(), 10, 5*time.Second)
}

func testActor() domain.Actor {
	return domain.Actor{Username: "admin", Role: "admin", TenantID: memory.DemoTenantID}
}

func customerBalance(t *testing.T, svc *Service, id string) int64 {
	t.Helper()
	c, err := svc.GetCustomer(context.Background(), testActor(), id)
	if err != nil {
		t.Fatalf("get customer %s: %v", id, err)
	}
	return c.BalanceCents
}

func supplierDebt(t *testing.T, svc *Service, id string) int64 {
	t.Helper()
	sup, err := svc.GetSupplier(context.Background(), testActor(), id)
	if err != nil {
		t.Fatalf("get supplier %s: %v", id, err)
	}
	return sup.DebtCents
}

func TestRecordSettlementLowersCustomerBalance(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	before := customerBalance(t, svc, "cust-fatima")

	resp, err := svc.RecordSettlement(ctx, testActor(), domain.SettlementCreateRequest{
		EntityID:    "cust-fatima",
		Type:        domain.SettlementCustomerIn,
		AmountCents: 5000,
		Method:      domain.SettlementMethodCash,
	})
	if err != nil {
		t.Fatalf("record settlement failed: %v", err)
	}
	if resp.Duplicate {
		t.Fatalf("fresh settlement flagged as duplicate")
	}
	if resp.Settlement.EntityName != "Fatima Zahra" {
		t.Fatalf("expected entity name snapshot, got %q", resp.Settlement.EntityName)
	}

	if got := customerBalance(t, svc, "cust-fatima"); got != before-5000 {
		t.Fatalf("expected balance %d, got %d", before-5000, got)
	}
}

func TestRecordSettlementLowersSupplierDebt(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	before := supplierDebt(t, svc, "sup-atlas")

	_, err := svc.RecordSettlement(ctx, testActor(), domain.SettlementCreateRequest{
		EntityID:    "sup-atlas",
		Type:        domain.SettlementSupplierOut,
		AmountCents: 15000,
		Method:      domain.SettlementMethodTransfer,
	})
	if err != nil {
		t.Fatalf("record settlement failed: %v", err)
	}

	if got := supplierDebt(t, svc, "sup-atlas"); got != before-15000 {
		t.Fatalf("expected debt %d, got %d", before-15000, got)
	}
}

func TestRecordSettlementRejectsNonPositiveAmount(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	for _, amount := range []int64{0, -100} {
		_, err := svc.RecordSettlement(ctx, testActor(), domain.SettlementCreateRequest{
			EntityID:    "cust-fatima",
			Type:        domain.SettlementCustomerIn,
			AmountCents: amount,
		})
		if !errors.Is(err, store.ErrInvalidAmount) {
			t.Fatalf("amount %d: expected ErrInvalidAmount, got %v", amount, err)
		}
	}
}

func TestRecordSettlementUnknownEntityLeavesNoRow(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.RecordSettlement(ctx, testActor(), domain.SettlementCreateRequest{
		ID:          "stl-ghost",
		EntityID:    "cust-missing",
		Type:        domain.SettlementCustomerIn,
		AmountCents: 1000,
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	settlements, err := svc.ListSettlements(ctx, testActor(), "")
	if err != nil {
		t.Fatalf("list settlements failed: %v", err)
	}
	for _, st := range settlements {
		if st.ID == "stl-ghost" {
			t.Fatalf("failed settlement left a row behind")
		}
	}
}

func TestRecordSettlementDuplicateIDDoesNotReapply(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	before := customerBalance(t, svc, "cust-fatima")

	req := domain.SettlementCreateRequest{
		ID:          "stl-replay",
		EntityID:    "cust-fatima",
		Type:        domain.SettlementCustomerIn,
		AmountCents: 2000,
	}
	first, err := svc.RecordSettlement(ctx, testActor(), req)
	if err != nil {
		t.Fatalf("first record failed: %v", err)
	}

	second, err := svc.RecordSettlement(ctx, testActor(), req)
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if !second.Duplicate {
		t.Fatalf("replay not flagged as duplicate")
	}
	if second.Settlement.ID != first.Settlement.ID {
		t.Fatalf("replay returned a different settlement")
	}

	if got := customerBalance(t, svc, "cust-fatima"); got != before-2000 {
		t.Fatalf("duplicate moved money twice: expected %d, got %d", before-2000, got)
	}
}

func TestEditSettlementAppliesAmountDiff(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	before := customerBalance(t, svc, "cust-fatima")

	resp, err := svc.RecordSettlement(ctx, testActor(), domain.SettlementCreateRequest{
		EntityID:    "cust-fatima",
		Type:        domain.SettlementCustomerIn,
		AmountCents: 3000,
	})
	if err != nil {
		t.Fatalf("record failed: %v", err)
	}

	newAmount := int64(4500)
	updated, err := svc.EditSettlement(ctx, testActor(), resp.Settlement.ID, domain.SettlementUpdateRequest{
		AmountCents: &newAmount,
	})
	if err != nil {
		t.Fatalf("edit failed: %v", err)
	}
	if updated.AmountCents != 4500 {
		t.Fatalf("expected amount 4500, got %d", updated.AmountCents)
	}

	if got := customerBalance(t, svc, "cust-fatima"); got != before-4500 {
		t.Fatalf("expected balance %d after edit, got %d", before-4500, got)
	}
}

func TestDeleteSettlementRestoresBalance(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	before := supplierDebt(t, svc, "sup-atlas")

	resp, err := svc.RecordSettlement(ctx, testActor(), domain.SettlementCreateRequest{
		EntityID:    "sup-atlas",
		Type:        domain.SettlementSupplierOut,
		AmountCents: 9000,
	})
	if err != nil {
		t.Fatalf("record failed: %v", err)
	}

	deleted, err := svc.RemoveSettlement(ctx, testActor(), resp.Settlement.ID)
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if deleted.AmountCents != 9000 {
		t.Fatalf("expected deleted amount 9000, got %d", deleted.AmountCents)
	}

	if got := supplierDebt(t, svc, "sup-atlas"); got != before {
		t.Fatalf("delete did not round-trip: expected %d, got %d", before, got)
	}
}

func TestKarneSalePostsRemainderAndVisit(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	beforeCustomer, err := svc.GetCustomer(ctx, testActor(), "cust-hassan")
	if err != nil {
		t.Fatalf("get customer failed: %v", err)
	}

	sale, err := svc.PostSale(ctx, testActor(), domain.SaleCreateRequest{
		Items: []domain.SaleItem{
			{ProductID: "prod-sucre-01", Name: "Sucre 2kg", Qty: 2, UnitPriceCents: 2200},
			{ProductID: "prod-the-01", Name: "The Vert 200g", Qty: 1, UnitPriceCents: 3400},
		},
		PaymentMethod: domain.PaymentMethodKarne,
		CustomerID:    "cust-hassan",
		AdvanceCents:  1800,
	})
	if err != nil {
		t.Fatalf("post sale failed: %v", err)
	}
	if sale.TotalCents != 7800 {
		t.Fatalf("expected server-computed total 7800, got %d", sale.TotalCents)
	}
	if sale.IsPaid {
		t.Fatalf("credit sale marked paid at creation")
	}

	after, err := svc.GetCustomer(ctx, testActor(), "cust-hassan")
	if err != nil {
		t.Fatalf("get customer failed: %v", err)
	}
	if after.BalanceCents != beforeCustomer.BalanceCents+6000 {
		t.Fatalf("expected balance +6000, got delta %d", after.BalanceCents-beforeCustomer.BalanceCents)
	}
	if after.Points != beforeCustomer.Points+10 {
		t.Fatalf("expected +10 points, got delta %d", after.Points-beforeCustomer.Points)
	}
	if !after.LastVisit.After(beforeCustomer.LastVisit) && !after.LastVisit.Equal(sale.Date) {
		t.Fatalf("last visit not advanced")
	}
}

func TestKarneSaleWithoutAdvancePostsFullTotal(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	before := customerBalance(t, svc, "cust-hassan")

	sale, err := svc.PostSale(ctx, testActor(), domain.SaleCreateRequest{
		Items:         []domain.SaleItem{{Name: "Farine 10kg", Qty: 1, UnitPriceCents: 8900}},
		PaymentMethod: domain.PaymentMethodKarne,
		CustomerID:    "cust-hassan",
	})
	if err != nil {
		t.Fatalf("post sale failed: %v", err)
	}
	if sale.RemainderCents() != 8900 {
		t.Fatalf("expected remainder 8900, got %d", sale.RemainderCents())
	}
	if got := customerBalance(t, svc, "cust-hassan"); got != before+8900 {
		t.Fatalf("expected balance %d, got %d", before+8900, got)
	}
}

func TestCashSaleDoesNotTouchBalance(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	before := customerBalance(t, svc, "cust-hassan")

	_, err := svc.PostSale(ctx, testActor(), domain.SaleCreateRequest{
		Items:         []domain.SaleItem{{Name: "Lait UHT 1L", Qty: 3, UnitPriceCents: 780}},
		PaymentMethod: domain.PaymentMethodCash,
		CustomerID:    "cust-hassan",
	})
	if err != nil {
		t.Fatalf("post sale failed: %v", err)
	}
	if got := customerBalance(t, svc, "cust-hassan"); got != before {
		t.Fatalf("cash sale moved the carnet balance: %d -> %d", before, got)
	}
}

func TestFullyAdvancedKarneSaleIsPaid(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	before := customerBalance(t, svc, "cust-hassan")

	sale, err := svc.PostSale(ctx, testActor(), domain.SaleCreateRequest{
		Items:         []domain.SaleItem{{Name: "Sucre 2kg", Qty: 1, UnitPriceCents: 2200}},
		PaymentMethod: domain.PaymentMethodKarne,
		CustomerID:    "cust-hassan",
		AdvanceCents:  2200,
	})
	if err != nil {
		t.Fatalf("post sale failed: %v", err)
	}
	if !sale.IsPaid {
		t.Fatalf("fully-advanced credit sale left unpaid")
	}
	if got := customerBalance(t, svc, "cust-hassan"); got != before {
		t.Fatalf("zero remainder moved the balance: %d -> %d", before, got)
	}

	if _, err := svc.MarkSaleSettled(ctx, testActor(), sale.ID); !errors.Is(err, store.ErrAlreadyPaid) {
		t.Fatalf("expected ErrAlreadyPaid, got %v", err)
	}

	summary, err := svc.LedgerSummary(ctx, testActor())
	if err != nil {
		t.Fatalf("summary failed: %v", err)
	}
	if summary.UnpaidSales != 0 {
		t.Fatalf("fully-advanced sale counted as unpaid: %d", summary.UnpaidSales)
	}
}

func TestEditSaleToFullAdvanceMarksPaid(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	before := customerBalance(t, svc, "cust-hassan")

	sale, err := svc.PostSale(ctx, testActor(), domain.SaleCreateRequest{
		Items:         []domain.SaleItem{{Name: "Sucre 2kg", Qty: 1, UnitPriceCents: 2200}},
		PaymentMethod: domain.PaymentMethodKarne,
		CustomerID:    "cust-hassan",
		AdvanceCents:  500,
	})
	if err != nil {
		t.Fatalf("post sale failed: %v", err)
	}

	fullAdvance := int64(2200)
	updated, err := svc.EditSale(ctx, testActor(), sale.ID, domain.SaleUpdateRequest{AdvanceCents: &fullAdvance})
	if err != nil {
		t.Fatalf("edit sale failed: %v", err)
	}
	if !updated.IsPaid {
		t.Fatalf("sale with zero remainder left unpaid after edit")
	}
	if got := customerBalance(t, svc, "cust-hassan"); got != before {
		t.Fatalf("expected balance back at %d, got %d", before, got)
	}

	if _, err := svc.EditSale(ctx, testActor(), sale.ID, domain.SaleUpdateRequest{AdvanceCents: &sale.AdvanceCents}); !errors.Is(err, store.ErrAlreadyPaid) {
		t.Fatalf("expected ErrAlreadyPaid on edit after full advance, got %v", err)
	}
}

func TestDeleteSaleToleratesRemovedCustomer(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	customer, err := svc.CreateCustomer(ctx, testActor(), domain.CustomerCreateRequest{Name: "Client Ephemere"})
	if err != nil {
		t.Fatalf("create customer failed: %v", err)
	}
	sale, err := svc.PostSale(ctx, testActor(), domain.SaleCreateRequest{
		Items:         []domain.SaleItem{{Name: "Divers", Qty: 1, UnitPriceCents: 700}},
		PaymentMethod: domain.PaymentMethodKarne,
		CustomerID:    customer.ID,
	})
	if err != nil {
		t.Fatalf("post sale failed: %v", err)
	}

	if err := svc.DeleteCustomer(ctx, testActor(), customer.ID); err != nil {
		t.Fatalf("delete customer failed: %v", err)
	}
	if err := svc.RemoveSale(ctx, testActor(), sale.ID); err != nil {
		t.Fatalf("delete sale after customer removal failed: %v", err)
	}
}

func TestPostSaleRejectsAdvanceAboveTotal(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.PostSale(ctx, testActor(), domain.SaleCreateRequest{
		Items:         []domain.SaleItem{{Name: "Sucre 2kg", Qty: 1, UnitPriceCents: 2200}},
		PaymentMethod: domain.PaymentMethodKarne,
		CustomerID:    "cust-hassan",
		AdvanceCents:  5000,
	})
	if !errors.Is(err, store.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestEditSaleReconcilesRemainderDelta(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	sale, err := svc.PostSale(ctx, testActor(), domain.SaleCreateRequest{
		Items:         []domain.SaleItem{{Name: "Sucre 2kg", Qty: 2, UnitPriceCents: 2200}},
		PaymentMethod: domain.PaymentMethodKarne,
		CustomerID:    "cust-hassan",
	})
	if err != nil {
		t.Fatalf("post sale failed: %v", err)
	}
	afterPost := customerBalance(t, svc, "cust-hassan")

	updated, err := svc.EditSale(ctx, testActor(), sale.ID, domain.SaleUpdateRequest{
		Items: []domain.SaleItem{{Name: "Sucre 2kg", Qty: 3, UnitPriceCents: 2200}},
	})
	if err != nil {
		t.Fatalf("edit sale failed: %v", err)
	}
	if updated.TotalCents != 6600 {
		t.Fatalf("expected total 6600, got %d", updated.TotalCents)
	}

	if got := customerBalance(t, svc, "cust-hassan"); got != afterPost+2200 {
		t.Fatalf("expected balance %d after edit, got %d", afterPost+2200, got)
	}
}

func TestDeleteSaleReversesOutstandingRemainder(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	before := customerBalance(t, svc, "cust-hassan")

	sale, err := svc.PostSale(ctx, testActor(), domain.SaleCreateRequest{
		Items:         []domain.SaleItem{{Name: "Farine 10kg", Qty: 1, UnitPriceCents: 8900}},
		PaymentMethod: domain.PaymentMethodKarne,
		CustomerID:    "cust-hassan",
		AdvanceCents:  900,
	})
	if err != nil {
		t.Fatalf("post sale failed: %v", err)
	}
	if err := svc.RemoveSale(ctx, testActor(), sale.ID); err != nil {
		t.Fatalf("delete sale failed: %v", err)
	}

	if got := customerBalance(t, svc, "cust-hassan"); got != before {
		t.Fatalf("delete did not reverse remainder: expected %d, got %d", before, got)
	}
}

func TestMarkSaleSettledClearsRemainderOnce(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	before := customerBalance(t, svc, "cust-hassan")

	sale, err := svc.PostSale(ctx, testActor(), domain.SaleCreateRequest{
		Items:         []domain.SaleItem{{Name: "Sucre 2kg", Qty: 2, UnitPriceCents: 2200}},
		PaymentMethod: domain.PaymentMethodKarne,
		CustomerID:    "cust-hassan",
		AdvanceCents:  400,
	})
	if err != nil {
		t.Fatalf("post sale failed: %v", err)
	}

	settlement, err := svc.MarkSaleSettled(ctx, testActor(), sale.ID)
	if err != nil {
		t.Fatalf("settle failed: %v", err)
	}
	if settlement.AmountCents != 4000 {
		t.Fatalf("expected settlement of the 4000 remainder, got %d", settlement.AmountCents)
	}

	// Remainder posted by the sale, then removed by the settlement.
	if got := customerBalance(t, svc, "cust-hassan"); got != before {
		t.Fatalf("expected balance back at %d, got %d", before, got)
	}

	settled, err := svc.GetSale(ctx, testActor(), sale.ID)
	if err != nil {
		t.Fatalf("get sale failed: %v", err)
	}
	if !settled.IsPaid {
		t.Fatalf("sale not marked paid")
	}

	if _, err := svc.MarkSaleSettled(ctx, testActor(), sale.ID); !errors.Is(err, store.ErrAlreadyPaid) {
		t.Fatalf("expected ErrAlreadyPaid on second settle, got %v", err)
	}
}

func TestPurchasePostsSupplierDebt(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	before := supplierDebt(t, svc, "sup-alamal")

	purchase, err := svc.PostPurchase(ctx, testActor(), domain.PurchaseCreateRequest{
		SupplierID: "sup-alamal",
		Items: []domain.PurchaseItem{
			{Name: "Savon Noir", Qty: 10, UnitCostCents: 1200},
		},
	})
	if err != nil {
		t.Fatalf("post purchase failed: %v", err)
	}
	if purchase.TotalCents != 12000 {
		t.Fatalf("expected total 12000, got %d", purchase.TotalCents)
	}

	if got := supplierDebt(t, svc, "sup-alamal"); got != before+12000 {
		t.Fatalf("expected debt %d, got %d", before+12000, got)
	}
}

func TestPurchaseWithUnknownSupplierPostsNoDebt(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	debts := func() int64 {
		suppliers, err := svc.ListSuppliers(ctx, testActor())
		if err != nil {
			t.Fatalf("list suppliers failed: %v", err)
		}
		var total int64
		for _, sup := range suppliers {
			total += sup.DebtCents
		}
		return total
	}
	before := debts()

	_, err := svc.PostPurchase(ctx, testActor(), domain.PurchaseCreateRequest{
		SupplierID: domain.SupplierUnknown,
		Items:      []domain.PurchaseItem{{Name: "Bougies", Qty: 50, UnitCostCents: 300}},
	})
	if err != nil {
		t.Fatalf("post purchase failed: %v", err)
	}

	if got := debts(); got != before {
		t.Fatalf("unknown-supplier purchase moved debt: %d -> %d", before, got)
	}
}

func TestPurchaseReceivesStockAndCreatesProducts(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.PostPurchase(ctx, testActor(), domain.PurchaseCreateRequest{
		SupplierID: "sup-alamal",
		Items: []domain.PurchaseItem{
			{Name: "Sucre 2kg", Qty: 20, UnitCostCents: 1900},
			{Name: "Nouveau Produit", Qty: 5, UnitCostCents: 1000},
		},
	})
	if err != nil {
		t.Fatalf("post purchase failed: %v", err)
	}

	products, err := svc.ListProducts(ctx, testActor())
	if err != nil {
		t.Fatalf("list products failed: %v", err)
	}
	var sucreStock int
	var created *domain.Product
	for i, p := range products {
		if p.ID == "prod-sucre-01" {
			sucreStock = p.Stock
		}
		if p.Name == "Nouveau Produit" {
			created = &products[i]
		}
	}
	if sucreStock != 100 {
		t.Fatalf("expected sucre stock 100, got %d", sucreStock)
	}
	if created == nil {
		t.Fatalf("new product not created from purchase line")
	}
	if created.PriceCents != 1300 {
		t.Fatalf("expected default margin price 1300, got %d", created.PriceCents)
	}
}

func TestEditPurchaseReconcilesDebtDelta(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	purchase, err := svc.PostPurchase(ctx, testActor(), domain.PurchaseCreateRequest{
		SupplierID: "sup-alamal",
		Items:      []domain.PurchaseItem{{Name: "Savon Noir", Qty: 10, UnitCostCents: 1200}},
	})
	if err != nil {
		t.Fatalf("post purchase failed: %v", err)
	}
	afterPost := supplierDebt(t, svc, "sup-alamal")

	_, err = svc.EditPurchase(ctx, testActor(), purchase.ID, domain.PurchaseUpdateRequest{
		Items: []domain.PurchaseItem{{Name: "Savon Noir", Qty: 8, UnitCostCents: 1200}},
	})
	if err != nil {
		t.Fatalf("edit purchase failed: %v", err)
	}

	if got := supplierDebt(t, svc, "sup-alamal"); got != afterPost-2400 {
		t.Fatalf("expected debt %d after edit, got %d", afterPost-2400, got)
	}
}

func TestDeletePurchaseReversesDebt(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	before := supplierDebt(t, svc, "sup-alamal")

	purchase, err := svc.PostPurchase(ctx, testActor(), domain.PurchaseCreateRequest{
		SupplierID: "sup-alamal",
		Items:      []domain.PurchaseItem{{Name: "Savon Noir", Qty: 10, UnitCostCents: 1200}},
	})
	if err != nil {
		t.Fatalf("post purchase failed: %v", err)
	}
	if err := svc.RemovePurchase(ctx, testActor(), purchase.ID); err != nil {
		t.Fatalf("delete purchase failed: %v", err)
	}

	if got := supplierDebt(t, svc, "sup-alamal"); got != before {
		t.Fatalf("delete did not reverse debt: expected %d, got %d", before, got)
	}
}

func TestCustomerUpdateCannotTouchBalance(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	before := customerBalance(t, svc, "cust-fatima")

	name := "Fatima Z."
	updated, err := svc.UpdateCustomer(ctx, testActor(), "cust-fatima", domain.CustomerUpdateRequest{Name: &name})
	if err != nil {
		t.Fatalf("update customer failed: %v", err)
	}
	if updated.Name != "Fatima Z." {
		t.Fatalf("name not updated")
	}
	if updated.BalanceCents != before {
		t.Fatalf("descriptive update moved the balance: %d -> %d", before, updated.BalanceCents)
	}
}

// Full customer lifecycle: carnet sale, partial payment, corrected payment,
// cancelled payment.
func TestCustomerLedgerScenario(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	customer, err := svc.CreateCustomer(ctx, testActor(), domain.CustomerCreateRequest{Name: "Karim Alaoui"})
	if err != nil {
		t.Fatalf("create customer failed: %v", err)
	}
	if customer.BalanceCents != 0 {
		t.Fatalf("expected opening balance 0, got %d", customer.BalanceCents)
	}

	_, err = svc.PostSale(ctx, testActor(), domain.SaleCreateRequest{
		Items:         []domain.SaleItem{{Name: "Divers", Qty: 1, UnitPriceCents: 400}},
		PaymentMethod: domain.PaymentMethodKarne,
		CustomerID:    customer.ID,
	})
	if err != nil {
		t.Fatalf("post sale failed: %v", err)
	}
	if got := customerBalance(t, svc, customer.ID); got != 400 {
		t.Fatalf("after sale: expected 400, got %d", got)
	}

	resp, err := svc.RecordSettlement(ctx, testActor(), domain.SettlementCreateRequest{
		EntityID:    customer.ID,
		Type:        domain.SettlementCustomerIn,
		AmountCents: 250,
	})
	if err != nil {
		t.Fatalf("record settlement failed: %v", err)
	}
	if got := customerBalance(t, svc, customer.ID); got != 150 {
		t.Fatalf("after payment: expected 150, got %d", got)
	}

	newAmount := int64(200)
	if _, err := svc.EditSettlement(ctx, testActor(), resp.Settlement.ID, domain.SettlementUpdateRequest{AmountCents: &newAmount}); err != nil {
		t.Fatalf("edit settlement failed: %v", err)
	}
	if got := customerBalance(t, svc, customer.ID); got != 200 {
		t.Fatalf("after correction: expected 200, got %d", got)
	}

	if _, err := svc.RemoveSettlement(ctx, testActor(), resp.Settlement.ID); err != nil {
		t.Fatalf("delete settlement failed: %v", err)
	}
	if got := customerBalance(t, svc, customer.ID); got != 400 {
		t.Fatalf("after cancellation: expected 400, got %d", got)
	}
}

// Supplier lifecycle: goods received on credit, partial payment, corrected
// payment, cancelled payment.
func TestSupplierLedgerScenario(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	supplier, err := svc.CreateSupplier(ctx, testActor(), domain.SupplierCreateRequest{Name: "Grossiste Sud"})
	if err != nil {
		t.Fatalf("create supplier failed: %v", err)
	}

	_, err = svc.PostPurchase(ctx, testActor(), domain.PurchaseCreateRequest{
		SupplierID: supplier.ID,
		Items:      []domain.PurchaseItem{{Name: "Riz 5kg", Qty: 12, UnitCostCents: 100}},
	})
	if err != nil {
		t.Fatalf("post purchase failed: %v", err)
	}
	if got := supplierDebt(t, svc, supplier.ID); got != 1200 {
		t.Fatalf("after purchase: expected 1200, got %d", got)
	}

	resp, err := svc.RecordSettlement(ctx, testActor(), domain.SettlementCreateRequest{
		EntityID:    supplier.ID,
		Type:        domain.SettlementSupplierOut,
		AmountCents: 500,
	})
	if err != nil {
		t.Fatalf("record settlement failed: %v", err)
	}
	if got := supplierDebt(t, svc, supplier.ID); got != 700 {
		t.Fatalf("after payment: expected 700, got %d", got)
	}

	newAmount := int64(300)
	if _, err := svc.EditSettlement(ctx, testActor(), resp.Settlement.ID, domain.SettlementUpdateRequest{AmountCents: &newAmount}); err != nil {
		t.Fatalf("edit settlement failed: %v", err)
	}
	if got := supplierDebt(t, svc, supplier.ID); got != 900 {
		t.Fatalf("after correction: expected 900, got %d", got)
	}

	if _, err := svc.RemoveSettlement(ctx, testActor(), resp.Settlement.ID); err != nil {
		t.Fatalf("delete settlement failed: %v", err)
	}
	if got := supplierDebt(t, svc, supplier.ID); got != 1200 {
		t.Fatalf("after cancellation: expected 1200, got %d", got)
	}
}

// Two settlements recorded at the same time must both land: the delta is
// applied inside the store, not read-modify-written by the caller.
func TestConcurrentSettlementsDoNotLoseUpdates(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	customer, err := svc.CreateCustomer(ctx, testActor(), domain.CustomerCreateRequest{
		Name:                "Concurrent Client",
		InitialBalanceCents: 300,
	})
	if err != nil {
		t.Fatalf("create customer failed: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RecordSettlement(ctx, testActor(), domain.SettlementCreateRequest{
				EntityID:    customer.ID,
				Type:        domain.SettlementCustomerIn,
				AmountCents: 100,
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent settlement failed: %v", err)
		}
	}

	if got := customerBalance(t, svc, customer.ID); got != 100 {
		t.Fatalf("lost update: expected 100, got %d", got)
	}
}

func TestLedgerSummaryAggregates(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.PostSale(ctx, testActor(), domain.SaleCreateRequest{
		Items:         []domain.SaleItem{{Name: "Divers", Qty: 1, UnitPriceCents: 5000}},
		PaymentMethod: domain.PaymentMethodKarne,
		CustomerID:    "cust-hassan",
	})
	if err != nil {
		t.Fatalf("post sale failed: %v", err)
	}

	summary, err := svc.LedgerSummary(ctx, testActor())
	if err != nil {
		t.Fatalf("summary failed: %v", err)
	}
	// Seeded receivables (12500) plus the fresh credit sale.
	if summary.ReceivablesCents != 17500 {
		t.Fatalf("expected receivables 17500, got %d", summary.ReceivablesCents)
	}
	if summary.UnpaidSales != 1 {
		t.Fatalf("expected 1 unpaid sale, got %d", summary.UnpaidSales)
	}
	if summary.Customers != 2 || summary.Suppliers != 2 {
		t.Fatalf("unexpected entity counts: %d customers, %d suppliers", summary.Customers, summary.Suppliers)
	}
}

func TestTenantIsolation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	otherTenant := domain.Actor{Username: "admin", Role: "admin", TenantID: "tenant-other"}
	if _, err := svc.GetCustomer(ctx, otherTenant, "cust-fatima"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected cross-tenant lookup to miss, got %v", err)
	}

	customers, err := svc.ListCustomers(ctx, otherTenant)
	if err != nil {
		t.Fatalf("list customers failed: %v", err)
	}
	if len(customers) != 0 {
		t.Fatalf("foreign tenant sees %d customers", len(customers))
	}
}
