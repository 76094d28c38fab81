package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"atlaspos/backend/internal/cache"
	"atlaspos/backend/internal/domain"
	"atlaspos/backend/internal/store"
	"atlaspos/backend/internal/xid"
)

// Service owns the carnet ledger rules: what a valid settlement, sale or
// purchase looks like, and which entity each one moves money against. The
// atomicity of record+delta writes is the repository's job; the tenant a call
// operates on always comes from the actor argument, never from package state.
type Service struct {
	repo         store.Repository
	summaryCache cache.SummaryCache
	logger       zerolog.Logger
	visitPoints  int
	summaryTTL   time.Duration
}

func New(repo store.Repository, summaryCache cache.SummaryCache, logger zerolog.Logger, visitPoints int, summaryTTL time.Duration) *Service {
	if summaryCache == nil {
		summaryCache = cache.NoopSummaryCache{}
	}
	if visitPoints < 0 {
		visitPoints = 0
	}
	if summaryTTL <= 0 {
		summaryTTL = 30 * time.Second
	}
	return &Service{
		repo:         repo,
		summaryCache: summaryCache,
		logger:       logger,
		visitPoints:  visitPoints,
		summaryTTL:   summaryTTL,
	}
}

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// parseDate accepts RFC3339 or a bare day; an empty value means now.
func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Now().UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, store.ErrInvalid
	}
	return t.UTC(), nil
}

func (s *Service) logAudit(ctx context.Context, actor domain.Actor, action, entityType, entityID, detail string) {
	entry := domain.AuditLog{
		ID:            xid.New("audit"),
		TenantID:      actor.TenantID,
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.repo.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn().Err(err).Str("action", action).Msg("audit log write failed")
	}
}

func (s *Service) invalidateSummary(ctx context.Context, tenantID string) {
	if err := s.summaryCache.Invalidate(ctx, tenantID); err != nil {
		s.logger.Warn().Err(err).Str("tenant", tenantID).Msg("summary cache invalidation failed")
	}
}

// --- Settlements ---

// RecordSettlement registers a payment against a customer balance or supplier
// debt. A replayed client-supplied id returns the original row flagged as a
// duplicate instead of moving money twice.
func (s *Service) RecordSettlement(ctx context.Context, actor domain.Actor, req domain.SettlementCreateRequest) (*domain.SettlementResponse, error) {
	if req.AmountCents <= 0 {
		return nil, store.ErrInvalidAmount
	}
	if req.Type != domain.SettlementCustomerIn && req.Type != domain.SettlementSupplierOut {
		return nil, store.ErrInvalid
	}
	if strings.TrimSpace(req.EntityID) == "" {
		return nil, store.ErrInvalid
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return nil, err
	}

	settlement := domain.Settlement{
		ID:          strings.TrimSpace(req.ID),
		TenantID:    actor.TenantID,
		EntityID:    strings.TrimSpace(req.EntityID),
		Type:        req.Type,
		AmountCents: req.AmountCents,
		Date:        date,
		Method:      req.Method,
		Note:        req.Note,
	}
	if settlement.ID == "" {
		settlement.ID = xid.New("stl")
	}
	if settlement.Method == "" {
		settlement.Method = domain.SettlementMethodCash
	}

	created, err := s.repo.CreateSettlement(ctx, settlement)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			existing, getErr := s.repo.GetSettlement(ctx, actor.TenantID, settlement.ID)
			if getErr != nil {
				return nil, getErr
			}
			return &domain.SettlementResponse{Settlement: *existing, Duplicate: true}, nil
		}
		return nil, err
	}

	s.invalidateSummary(ctx, actor.TenantID)
	s.logAudit(ctx, actor, "settlement.record", "settlement", created.ID,
		fmt.Sprintf("%s %d cents entity=%s", created.Type, created.AmountCents, created.EntityID))
	return &domain.SettlementResponse{Settlement: *created}, nil
}

// EditSettlement merges the provided fields onto the stored row. The balance
// correction itself is derived from the stored amount inside the repository
// transaction, so two concurrent edits cannot both apply against a stale base.
func (s *Service) EditSettlement(ctx context.Context, actor domain.Actor, id string, req domain.SettlementUpdateRequest) (*domain.Settlement, error) {
	existing, err := s.repo.GetSettlement(ctx, actor.TenantID, id)
	if err != nil {
		return nil, err
	}

	updated := *existing
	if req.AmountCents != nil {
		if *req.AmountCents <= 0 {
			return nil, store.ErrInvalidAmount
		}
		updated.AmountCents = *req.AmountCents
	}
	if req.Method != nil {
		updated.Method = *req.Method
	}
	if req.Note != nil {
		updated.Note = *req.Note
	}
	if req.Date != nil {
		date, err := parseDate(*req.Date)
		if err != nil {
			return nil, err
		}
		updated.Date = date
	}

	result, err := s.repo.UpdateSettlement(ctx, updated)
	if err != nil {
		return nil, err
	}

	s.invalidateSummary(ctx, actor.TenantID)
	s.logAudit(ctx, actor, "settlement.edit", "settlement", result.ID,
		fmt.Sprintf("amount %d -> %d cents", existing.AmountCents, result.AmountCents))
	return result, nil
}

// RemoveSettlement cancels a payment: the amount goes back on the entity's
// balance and the row disappears.
func (s *Service) RemoveSettlement(ctx context.Context, actor domain.Actor, id string) (*domain.Settlement, error) {
	deleted, err := s.repo.DeleteSettlement(ctx, actor.TenantID, id)
	if err != nil {
		return nil, err
	}

	s.invalidateSummary(ctx, actor.TenantID)
	s.logAudit(ctx, actor, "settlement.delete", "settlement", deleted.ID,
		fmt.Sprintf("%s %d cents reversed entity=%s", deleted.Type, deleted.AmountCents, deleted.EntityID))
	return deleted, nil
}

func (s *Service) ListSettlements(ctx context.Context, actor domain.Actor, entityID string) ([]domain.Settlement, error) {
	return s.repo.ListSettlements(ctx, actor.TenantID, entityID)
}

// --- Sales ---

// PostSale records a checkout. Totals are recomputed from the line items on
// the server; the client's total is never trusted. A KARNE sale posts
// total-advance to the customer's carnet and any sale with a customer counts
// as a visit.
func (s *Service) PostSale(ctx context.Context, actor domain.Actor, req domain.SaleCreateRequest) (*domain.Sale, error) {
	if len(req.Items) == 0 {
		return nil, store.ErrInvalid
	}

	var total int64
	for _, item := range req.Items {
		if item.Qty < 1 || item.UnitPriceCents < 0 {
			return nil, store.ErrInvalid
		}
		total += int64(item.Qty) * item.UnitPriceCents
	}

	method := req.PaymentMethod
	if method == "" {
		method = domain.PaymentMethodCash
	}
	switch method {
	case domain.PaymentMethodKarne, domain.PaymentMethodCash, domain.PaymentMethodCard:
	default:
		return nil, store.ErrInvalid
	}
	if method == domain.PaymentMethodKarne && strings.TrimSpace(req.CustomerID) == "" {
		return nil, store.ErrInvalid
	}
	if req.AdvanceCents < 0 || req.AdvanceCents > total {
		return nil, store.ErrInvalidAmount
	}

	date, err := parseDate(req.Date)
	if err != nil {
		return nil, err
	}

	sale := domain.Sale{
		ID:            strings.TrimSpace(req.ID),
		TenantID:      actor.TenantID,
		Date:          date,
		Items:         req.Items,
		TotalCents:    total,
		AdvanceCents:  req.AdvanceCents,
		PaymentMethod: method,
		CustomerID:    strings.TrimSpace(req.CustomerID),
		// A fully-advanced carnet sale has nothing outstanding.
		IsPaid:    method != domain.PaymentMethodKarne || req.AdvanceCents == total,
		CreatedAt: time.Now().UTC(),
	}
	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}

	created, err := s.repo.CreateSale(ctx, sale, s.visitPoints)
	if err != nil {
		return nil, err
	}

	s.invalidateSummary(ctx, actor.TenantID)
	s.logAudit(ctx, actor, "sale.post", "sale", created.ID,
		fmt.Sprintf("%s total=%d advance=%d customer=%s", created.PaymentMethod, created.TotalCents, created.AdvanceCents, created.CustomerID))
	return created, nil
}

// EditSale replaces the line items and advance of an unpaid sale. For a KARNE
// sale the carnet is reconciled by the remainder delta in the repository.
func (s *Service) EditSale(ctx context.Context, actor domain.Actor, id string, req domain.SaleUpdateRequest) (*domain.Sale, error) {
	existing, err := s.repo.GetSale(ctx, actor.TenantID, id)
	if err != nil {
		return nil, err
	}

	items := existing.Items
	if req.Items != nil {
		items = req.Items
	}
	if len(items) == 0 {
		return nil, store.ErrInvalid
	}

	var total int64
	for _, item := range items {
		if item.Qty < 1 || item.UnitPriceCents < 0 {
			return nil, store.ErrInvalid
		}
		total += int64(item.Qty) * item.UnitPriceCents
	}

	advance := existing.AdvanceCents
	if req.AdvanceCents != nil {
		advance = *req.AdvanceCents
	}
	if advance < 0 || advance > total {
		return nil, store.ErrInvalidAmount
	}

	updated := *existing
	updated.Items = items
	updated.TotalCents = total
	updated.AdvanceCents = advance

	result, err := s.repo.UpdateSale(ctx, updated)
	if err != nil {
		return nil, err
	}

	s.invalidateSummary(ctx, actor.TenantID)
	s.logAudit(ctx, actor, "sale.edit", "sale", result.ID,
		fmt.Sprintf("total %d -> %d cents", existing.TotalCents, result.TotalCents))
	return result, nil
}

func (s *Service) RemoveSale(ctx context.Context, actor domain.Actor, id string) error {
	if err := s.repo.DeleteSale(ctx, actor.TenantID, id); err != nil {
		return err
	}
	s.invalidateSummary(ctx, actor.TenantID)
	s.logAudit(ctx, actor, "sale.delete", "sale", id, "sale removed, outstanding remainder reversed")
	return nil
}

// MarkSaleSettled closes out an unpaid credit sale: the customer pays the
// remainder in one go and a cash settlement documents the payment.
func (s *Service) MarkSaleSettled(ctx context.Context, actor domain.Actor, saleID string) (*domain.Settlement, error) {
	settlement := domain.Settlement{
		ID:     xid.New("stl"),
		Date:   time.Now().UTC(),
		Method: domain.SettlementMethodCash,
		Note:   "Reglement Bon #" + shortID(saleID),
	}

	created, err := s.repo.SettleSale(ctx, actor.TenantID, saleID, settlement)
	if err != nil {
		return nil, err
	}

	s.invalidateSummary(ctx, actor.TenantID)
	s.logAudit(ctx, actor, "sale.settle", "sale", saleID,
		fmt.Sprintf("remainder %d cents settled", created.AmountCents))
	return created, nil
}

func (s *Service) GetSale(ctx context.Context, actor domain.Actor, id string) (*domain.Sale, error) {
	return s.repo.GetSale(ctx, actor.TenantID, id)
}

func (s *Service) ListSales(ctx context.Context, actor domain.Actor) ([]domain.Sale, error) {
	return s.repo.ListSales(ctx, actor.TenantID)
}

func shortID(id string) string {
	if len(id) <= 6 {
		return id
	}
	return id[len(id)-6:]
}

// --- Purchases ---

// PostPurchase records goods received. Debt only posts when the supplier id
// resolves to a registered supplier; the "unknown" placeholder keeps the
// purchase in stock history without a creditor.
func (s *Service) PostPurchase(ctx context.Context, actor domain.Actor, req domain.PurchaseCreateRequest) (*domain.Purchase, error) {
	if len(req.Items) == 0 {
		return nil, store.ErrInvalid
	}

	var total int64
	for _, item := range req.Items {
		if item.Qty < 1 || item.UnitCostCents < 0 || strings.TrimSpace(item.Name) == "" {
			return nil, store.ErrInvalid
		}
		total += int64(item.Qty) * item.UnitCostCents
	}

	date, err := parseDate(req.Date)
	if err != nil {
		return nil, err
	}

	supplierID := strings.TrimSpace(req.SupplierID)
	if supplierID == "" {
		supplierID = domain.SupplierUnknown
	}

	purchase := domain.Purchase{
		ID:         strings.TrimSpace(req.ID),
		TenantID:   actor.TenantID,
		SupplierID: supplierID,
		Date:       date,
		Items:      req.Items,
		TotalCents: total,
		CreatedAt:  time.Now().UTC(),
	}
	if purchase.ID == "" {
		purchase.ID = xid.New("pur")
	}

	created, err := s.repo.CreatePurchase(ctx, purchase)
	if err != nil {
		return nil, err
	}

	s.invalidateSummary(ctx, actor.TenantID)
	s.logAudit(ctx, actor, "purchase.post", "purchase", created.ID,
		fmt.Sprintf("total=%d supplier=%s", created.TotalCents, created.SupplierID))
	return created, nil
}

func (s *Service) EditPurchase(ctx context.Context, actor domain.Actor, id string, req domain.PurchaseUpdateRequest) (*domain.Purchase, error) {
	if len(req.Items) == 0 {
		return nil, store.ErrInvalid
	}

	var total int64
	for _, item := range req.Items {
		if item.Qty < 1 || item.UnitCostCents < 0 || strings.TrimSpace(item.Name) == "" {
			return nil, store.ErrInvalid
		}
		total += int64(item.Qty) * item.UnitCostCents
	}

	existing, err := s.repo.GetPurchase(ctx, actor.TenantID, id)
	if err != nil {
		return nil, err
	}

	updated := *existing
	updated.Items = req.Items
	updated.TotalCents = total

	result, err := s.repo.UpdatePurchase(ctx, updated)
	if err != nil {
		return nil, err
	}

	s.invalidateSummary(ctx, actor.TenantID)
	s.logAudit(ctx, actor, "purchase.edit", "purchase", result.ID,
		fmt.Sprintf("total %d -> %d cents", existing.TotalCents, result.TotalCents))
	return result, nil
}

func (s *Service) RemovePurchase(ctx context.Context, actor domain.Actor, id string) error {
	if err := s.repo.DeletePurchase(ctx, actor.TenantID, id); err != nil {
		return err
	}
	s.invalidateSummary(ctx, actor.TenantID)
	s.logAudit(ctx, actor, "purchase.delete", "purchase", id, "purchase removed, posted debt reversed")
	return nil
}

func (s *Service) ListPurchases(ctx context.Context, actor domain.Actor) ([]domain.Purchase, error) {
	return s.repo.ListPurchases(ctx, actor.TenantID)
}

// --- Customers ---

// CreateCustomer accepts a signed opening balance: positive cents is carnet
// debt carried over from a paper book, negative cents is a prepaid advance.
func (s *Service) CreateCustomer(ctx context.Context, actor domain.Actor, req domain.CustomerCreateRequest) (*domain.Customer, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, store.ErrInvalid
	}

	now := time.Now().UTC()
	customer := domain.Customer{
		ID:           xid.New("cust"),
		TenantID:     actor.TenantID,
		Name:         name,
		Phone:        strings.TrimSpace(req.Phone),
		BalanceCents: req.InitialBalanceCents,
		LastVisit:    now,
		Points:       0,
		ICE:          req.ICE,
		Address:      req.Address,
		Notes:        req.Notes,
		CreatedAt:    now,
	}

	created, err := s.repo.CreateCustomer(ctx, customer)
	if err != nil {
		return nil, err
	}

	if created.BalanceCents != 0 {
		s.invalidateSummary(ctx, actor.TenantID)
	}
	s.logAudit(ctx, actor, "customer.create", "customer", created.ID, created.Name)
	return created, nil
}

func (s *Service) GetCustomer(ctx context.Context, actor domain.Actor, id string) (*domain.Customer, error) {
	return s.repo.GetCustomer(ctx, actor.TenantID, id)
}

// UpdateCustomer merges the provided descriptive fields. There is no way to
// set the balance here; only sales and settlements move it.
func (s *Service) UpdateCustomer(ctx context.Context, actor domain.Actor, id string, req domain.CustomerUpdateRequest) (*domain.Customer, error) {
	existing, err := s.repo.GetCustomer(ctx, actor.TenantID, id)
	if err != nil {
		return nil, err
	}

	updated := *existing
	if req.Name != nil {
		updated.Name = strings.TrimSpace(*req.Name)
	}
	if req.Phone != nil {
		updated.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.ICE != nil {
		updated.ICE = *req.ICE
	}
	if req.Address != nil {
		updated.Address = *req.Address
	}
	if req.Notes != nil {
		updated.Notes = *req.Notes
	}

	result, err := s.repo.UpdateCustomer(ctx, updated)
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, actor, "customer.update", "customer", result.ID, result.Name)
	return result, nil
}

func (s *Service) DeleteCustomer(ctx context.Context, actor domain.Actor, id string) error {
	if err := s.repo.DeleteCustomer(ctx, actor.TenantID, id); err != nil {
		return err
	}
	s.invalidateSummary(ctx, actor.TenantID)
	s.logAudit(ctx, actor, "customer.delete", "customer", id, "")
	return nil
}

func (s *Service) ListCustomers(ctx context.Context, actor domain.Actor) ([]domain.Customer, error) {
	return s.repo.ListCustomers(ctx, actor.TenantID)
}

// --- Suppliers ---

func (s *Service) CreateSupplier(ctx context.Context, actor domain.Actor, req domain.SupplierCreateRequest) (*domain.Supplier, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, store.ErrInvalid
	}
	if req.InitialDebtCents < 0 {
		return nil, store.ErrInvalidAmount
	}

	supplier := domain.Supplier{
		ID:        xid.New("sup"),
		TenantID:  actor.TenantID,
		Name:      name,
		Phone:     strings.TrimSpace(req.Phone),
		Category:  req.Category,
		DebtCents: req.InitialDebtCents,
		ICE:       req.ICE,
		Address:   req.Address,
		Notes:     req.Notes,
		CreatedAt: time.Now().UTC(),
	}

	created, err := s.repo.CreateSupplier(ctx, supplier)
	if err != nil {
		return nil, err
	}

	if created.DebtCents != 0 {
		s.invalidateSummary(ctx, actor.TenantID)
	}
	s.logAudit(ctx, actor, "supplier.create", "supplier", created.ID, created.Name)
	return created, nil
}

func (s *Service) GetSupplier(ctx context.Context, actor domain.Actor, id string) (*domain.Supplier, error) {
	return s.repo.GetSupplier(ctx, actor.TenantID, id)
}

func (s *Service) UpdateSupplier(ctx context.Context, actor domain.Actor, id string, req domain.SupplierUpdateRequest) (*domain.Supplier, error) {
	existing, err := s.repo.GetSupplier(ctx, actor.TenantID, id)
	if err != nil {
		return nil, err
	}

	updated := *existing
	if req.Name != nil {
		updated.Name = strings.TrimSpace(*req.Name)
	}
	if req.Phone != nil {
		updated.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Category != nil {
		updated.Category = *req.Category
	}
	if req.ICE != nil {
		updated.ICE = *req.ICE
	}
	if req.Address != nil {
		updated.Address = *req.Address
	}
	if req.Notes != nil {
		updated.Notes = *req.Notes
	}

	result, err := s.repo.UpdateSupplier(ctx, updated)
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, actor, "supplier.update", "supplier", result.ID, result.Name)
	return result, nil
}

func (s *Service) DeleteSupplier(ctx context.Context, actor domain.Actor, id string) error {
	if err := s.repo.DeleteSupplier(ctx, actor.TenantID, id); err != nil {
		return err
	}
	s.invalidateSummary(ctx, actor.TenantID)
	s.logAudit(ctx, actor, "supplier.delete", "supplier", id, "")
	return nil
}

func (s *Service) ListSuppliers(ctx context.Context, actor domain.Actor) ([]domain.Supplier, error) {
	return s.repo.ListSuppliers(ctx, actor.TenantID)
}

// --- Catalog ---

func (s *Service) CreateProduct(ctx context.Context, actor domain.Actor, p domain.Product) (*domain.Product, error) {
	p.TenantID = actor.TenantID
	if p.ID == "" {
		p.ID = xid.New("prod")
	}
	if strings.TrimSpace(p.Name) == "" || p.PriceCents < 0 || p.Stock < 0 {
		return nil, store.ErrInvalid
	}

	created, err := s.repo.CreateProduct(ctx, p)
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, actor, "product.create", "product", created.ID, created.Name)
	return created, nil
}

func (s *Service) ListProducts(ctx context.Context, actor domain.Actor) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx, actor.TenantID)
}

func (s *Service) ListStockMovements(ctx context.Context, actor domain.Actor, limit int) ([]domain.StockMovement, error) {
	return s.repo.ListStockMovements(ctx, actor.TenantID, limit)
}

// --- Expenses ---

func (s *Service) AddExpense(ctx context.Context, actor domain.Actor, req domain.ExpenseCreateRequest) (*domain.Expense, error) {
	if strings.TrimSpace(req.Description) == "" {
		return nil, store.ErrInvalid
	}
	if req.AmountCents <= 0 {
		return nil, store.ErrInvalidAmount
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return nil, err
	}

	expense := domain.Expense{
		ID:          xid.New("exp"),
		TenantID:    actor.TenantID,
		Description: strings.TrimSpace(req.Description),
		AmountCents: req.AmountCents,
		Category:    req.Category,
		Date:        date,
	}

	created, err := s.repo.CreateExpense(ctx, expense)
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, actor, "expense.create", "expense", created.ID, created.Description)
	return created, nil
}

func (s *Service) RemoveExpense(ctx context.Context, actor domain.Actor, id string) error {
	if err := s.repo.DeleteExpense(ctx, actor.TenantID, id); err != nil {
		return err
	}
	s.logAudit(ctx, actor, "expense.delete", "expense", id, "")
	return nil
}

func (s *Service) ListExpenses(ctx context.Context, actor domain.Actor) ([]domain.Expense, error) {
	return s.repo.ListExpenses(ctx, actor.TenantID)
}

// --- Reporting ---

// LedgerSummary serves the tenant's receivables/payables totals, cached for a
// short TTL. Balance-moving mutations invalidate the key, so a hit is never
// staler than the last write.
func (s *Service) LedgerSummary(ctx context.Context, actor domain.Actor) (domain.LedgerSummary, error) {
	if cached, hit, err := s.summaryCache.Get(ctx, actor.TenantID); err == nil && hit {
		return *cached, nil
	} else if err != nil {
		s.logger.Warn().Err(err).Str("tenant", actor.TenantID).Msg("summary cache read failed")
	}

	summary, err := s.repo.GetLedgerSummary(ctx, actor.TenantID)
	if err != nil {
		return domain.LedgerSummary{}, err
	}

	if err := s.summaryCache.Set(ctx, actor.TenantID, &summary, s.summaryTTL); err != nil {
		s.logger.Warn().Err(err).Str("tenant", actor.TenantID).Msg("summary cache write failed")
	}
	return summary, nil
}

func (s *Service) ListAuditLogs(ctx context.Context, actor domain.Actor, from, to time.Time, limit int) ([]domain.AuditLog, error) {
	if from.IsZero() {
		from = time.Now().UTC().AddDate(0, -1, 0)
	}
	if to.IsZero() {
		to = time.Now().UTC()
	}
	return s.repo.ListAuditLogs(ctx, actor.TenantID, from, to, limit)
}
