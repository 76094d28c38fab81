package memory

import (
	"context"
	"errors"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"atlaspos/backend/internal/domain"
	"atlaspos/backend/internal/store"
	"atlaspos/backend/internal/xid"
)

// Store is the in-memory repository used for dev mode and tests. All
// record+delta operations run under a single mutex hold, which gives the same
// atomicity guarantee the postgres store gets from SQL transactions.
type Store struct {
	mu              sync.RWMutex
	customersByID   map[string]map[string]domain.Customer
	suppliersByID   map[string]map[string]domain.Supplier
	settlementsByID map[string]map[string]domain.Settlement
	salesByID       map[string]map[string]domain.Sale
	purchasesByID   map[string]map[string]domain.Purchase
	productsByID    map[string]map[string]domain.Product
	expensesByID    map[string]map[string]domain.Expense
	movements       []domain.StockMovement
	auditLogs       []domain.AuditLog
	usersByUsername map[string]domain.UserAccount
}

// DemoTenantID is the tenant the seeded demo data belongs to.
const DemoTenantID = "tenant-demo"

// seedUsers builds the initial in-memory accounts for dev/demo mode.
// Credentials come from SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD; unset
// variables fall back to dev defaults with a logged warning. Production runs
// use PostgreSQL accounts instead.
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "caissier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Warn().Msg("memory store: using default dev credentials; set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, "admin"},
		{"caissier", cashierPwd, "cashier"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatal().Err(err).Str("username", u.username).Msg("memory store: failed to hash seed password")
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			TenantID:  DemoTenantID,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// New returns an empty store with no seed data beyond the login accounts
// (used by tests that want a clean ledger).
func New() *Store {
	return &Store{
		customersByID:   map[string]map[string]domain.Customer{},
		suppliersByID:   map[string]map[string]domain.Supplier{},
		settlementsByID: map[string]map[string]domain.Settlement{},
		salesByID:       map[string]map[string]domain.Sale{},
		purchasesByID:   map[string]map[string]domain.Purchase{},
		productsByID:    map[string]map[string]domain.Product{},
		expensesByID:    map[string]map[string]domain.Expense{},
		movements:       make([]domain.StockMovement, 0, 128),
		auditLogs:       make([]domain.AuditLog, 0, 128),
		usersByUsername: seedUsers(),
	}
}

func NewSeeded() *Store {
	now := time.Now().UTC()

	products := []domain.Product{
		{ID: "prod-huile-01", TenantID: DemoTenantID, Name: "Huile de Table 5L", Category: "epicerie", PriceCents: 9500, CostCents: 8200, Stock: 40, MinStock: 10},
		{ID: "prod-sucre-01", TenantID: DemoTenantID, Name: "Sucre 2kg", Category: "epicerie", PriceCents: 2200, CostCents: 1900, Stock: 80, MinStock: 20},
		{ID: "prod-the-01", TenantID: DemoTenantID, Name: "The Vert 200g", Category: "epicerie", PriceCents: 3400, CostCents: 2700, Stock: 55, MinStock: 15},
		{ID: "prod-farine-01", TenantID: DemoTenantID, Name: "Farine 10kg", Category: "epicerie", PriceCents: 8900, CostCents: 7600, Stock: 25, MinStock: 8},
		{ID: "prod-lait-01", TenantID: DemoTenantID, Name: "Lait UHT 1L", Category: "frais", PriceCents: 780, CostCents: 640, Stock: 120, MinStock: 30},
	}

	customers := []domain.Customer{
		{ID: "cust-hassan", TenantID: DemoTenantID, Name: "Hassan Benali", Phone: "0661000001", BalanceCents: 0, LastVisit: now, Points: 0, CreatedAt: now},
		{ID: "cust-fatima", TenantID: DemoTenantID, Name: "Fatima Zahra", Phone: "0661000002", BalanceCents: 12500, LastVisit: now, Points: 30, CreatedAt: now},
	}

	suppliers := []domain.Supplier{
		{ID: "sup-alamal", TenantID: DemoTenantID, Name: "Droguerie Al Amal", Phone: "0522000001", Category: "epicerie", DebtCents: 0, CreatedAt: now},
		{ID: "sup-atlas", TenantID: DemoTenantID, Name: "Distribution Atlas", Phone: "0522000002", Category: "frais", DebtCents: 45000, CreatedAt: now},
	}

	s := New()
	for _, p := range products {
		s.tenantProducts(DemoTenantID)[p.ID] = p
	}
	for _, c := range customers {
		s.tenantCustomers(DemoTenantID)[c.ID] = c
	}
	for _, sup := range suppliers {
		s.tenantSuppliers(DemoTenantID)[sup.ID] = sup
	}
	return s
}

func (s *Store) tenantCustomers(tenantID string) map[string]domain.Customer {
	m, ok := s.customersByID[tenantID]
	if !ok {
		m = map[string]domain.Customer{}
		s.customersByID[tenantID] = m
	}
	return m
}

func (s *Store) tenantSuppliers(tenantID string) map[string]domain.Supplier {
	m, ok := s.suppliersByID[tenantID]
	if !ok {
		m = map[string]domain.Supplier{}
		s.suppliersByID[tenantID] = m
	}
	return m
}

func (s *Store) tenantSettlements(tenantID string) map[string]domain.Settlement {
	m, ok := s.settlementsByID[tenantID]
	if !ok {
		m = map[string]domain.Settlement{}
		s.settlementsByID[tenantID] = m
	}
	return m
}

func (s *Store) tenantSales(tenantID string) map[string]domain.Sale {
	m, ok := s.salesByID[tenantID]
	if !ok {
		m = map[string]domain.Sale{}
		s.salesByID[tenantID] = m
	}
	return m
}

func (s *Store) tenantPurchases(tenantID string) map[string]domain.Purchase {
	m, ok := s.purchasesByID[tenantID]
	if !ok {
		m = map[string]domain.Purchase{}
		s.purchasesByID[tenantID] = m
	}
	return m
}

func (s *Store) tenantProducts(tenantID string) map[string]domain.Product {
	m, ok := s.productsByID[tenantID]
	if !ok {
		m = map[string]domain.Product{}
		s.productsByID[tenantID] = m
	}
	return m
}

func (s *Store) tenantExpenses(tenantID string) map[string]domain.Expense {
	m, ok := s.expensesByID[tenantID]
	if !ok {
		m = map[string]domain.Expense{}
		s.expensesByID[tenantID] = m
	}
	return m
}

// --- Customers ---

func (s *Store) CreateCustomer(_ context.Context, c domain.Customer) (*domain.Customer, error) {
	if c.TenantID == "" || c.ID == "" || c.Name == "" {
		return nil, store.ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	customers := s.tenantCustomers(c.TenantID)
	if _, exists := customers[c.ID]; exists {
		return nil, store.ErrInvalid
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	customers[c.ID] = c
	created := c
	return &created, nil
}

func (s *Store) GetCustomer(_ context.Context, tenantID, id string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, exists := s.customersByID[tenantID][id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copied := c
	return &copied, nil
}

// UpdateCustomer overwrites descriptive fields only; the stored balance,
// points and lastVisit always win over whatever the caller passed.
func (s *Store) UpdateCustomer(_ context.Context, c domain.Customer) (*domain.Customer, error) {
	if c.TenantID == "" || c.ID == "" || c.Name == "" {
		return nil, store.ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	customers := s.tenantCustomers(c.TenantID)
	existing, exists := customers[c.ID]
	if !exists {
		return nil, store.ErrNotFound
	}

	existing.Name = c.Name
	existing.Phone = c.Phone
	existing.ICE = c.ICE
	existing.Address = c.Address
	existing.Notes = c.Notes
	customers[c.ID] = existing
	updated := existing
	return &updated, nil
}

func (s *Store) DeleteCustomer(_ context.Context, tenantID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	customers := s.tenantCustomers(tenantID)
	if _, exists := customers[id]; !exists {
		return store.ErrNotFound
	}
	delete(customers, id)
	return nil
}

func (s *Store) ListCustomers(_ context.Context, tenantID string) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customers := make([]domain.Customer, 0, len(s.customersByID[tenantID]))
	for _, c := range s.customersByID[tenantID] {
		customers = append(customers, c)
	}
	slices.SortFunc(customers, func(a, b domain.Customer) int {
		return strings.Compare(a.Name, b.Name)
	})
	return customers, nil
}

// --- Suppliers ---

func (s *Store) CreateSupplier(_ context.Context, sup domain.Supplier) (*domain.Supplier, error) {
	if sup.TenantID == "" || sup.ID == "" || sup.Name == "" {
		return nil, store.ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	suppliers := s.tenantSuppliers(sup.TenantID)
	if _, exists := suppliers[sup.ID]; exists {
		return nil, store.ErrInvalid
	}
	if sup.CreatedAt.IsZero() {
		sup.CreatedAt = time.Now().UTC()
	}
	suppliers[sup.ID] = sup
	created := sup
	return &created, nil
}

func (s *Store) GetSupplier(_ context.Context, tenantID, id string) (*domain.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sup, exists := s.suppliersByID[tenantID][id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copied := sup
	return &copied, nil
}

// UpdateSupplier never touches the stored debt; only the purchase poster and
// the settlement engine move it.
func (s *Store) UpdateSupplier(_ context.Context, sup domain.Supplier) (*domain.Supplier, error) {
	if sup.TenantID == "" || sup.ID == "" || sup.Name == "" {
		return nil, store.ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	suppliers := s.tenantSuppliers(sup.TenantID)
	existing, exists := suppliers[sup.ID]
	if !exists {
		return nil, store.ErrNotFound
	}

	existing.Name = sup.Name
	existing.Phone = sup.Phone
	existing.Category = sup.Category
	existing.ICE = sup.ICE
	existing.Address = sup.Address
	existing.Notes = sup.Notes
	suppliers[sup.ID] = existing
	updated := existing
	return &updated, nil
}

func (s *Store) DeleteSupplier(_ context.Context, tenantID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	suppliers := s.tenantSuppliers(tenantID)
	if _, exists := suppliers[id]; !exists {
		return store.ErrNotFound
	}
	delete(suppliers, id)
	return nil
}

func (s *Store) ListSuppliers(_ context.Context, tenantID string) ([]domain.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	suppliers := make([]domain.Supplier, 0, len(s.suppliersByID[tenantID]))
	for _, sup := range s.suppliersByID[tenantID] {
		suppliers = append(suppliers, sup)
	}
	slices.SortFunc(suppliers, func(a, b domain.Supplier) int {
		return strings.Compare(a.Name, b.Name)
	})
	return suppliers, nil
}

// --- Settlement engine primitives ---

// applyEntityDeltaLocked is the single place a settlement moves money: it adds
// deltaCents to the customer balance (CUSTOMER_IN) or the supplier debt
// (SUPPLIER_OUT). Caller must hold the write lock.
func (s *Store) applyEntityDeltaLocked(tenantID, settlementType, entityID string, deltaCents int64) (string, error) {
	switch settlementType {
	case domain.SettlementCustomerIn:
		customers := s.tenantCustomers(tenantID)
		c, exists := customers[entityID]
		if !exists {
			return "", store.ErrNotFound
		}
		c.BalanceCents += deltaCents
		customers[entityID] = c
		return c.Name, nil
	case domain.SettlementSupplierOut:
		suppliers := s.tenantSuppliers(tenantID)
		sup, exists := suppliers[entityID]
		if !exists {
			return "", store.ErrNotFound
		}
		sup.DebtCents += deltaCents
		suppliers[entityID] = sup
		return sup.Name, nil
	default:
		return "", store.ErrInvalid
	}
}

// insertSettlementLocked validates, applies -amount to the entity and stores
// the row. Used by CreateSettlement and SettleSale so there is exactly one
// posting path. Caller must hold the write lock.
func (s *Store) insertSettlementLocked(st domain.Settlement) (*domain.Settlement, error) {
	if st.TenantID == "" || st.ID == "" || st.EntityID == "" {
		return nil, store.ErrInvalid
	}
	if st.AmountCents <= 0 {
		return nil, store.ErrInvalidAmount
	}

	settlements := s.tenantSettlements(st.TenantID)
	if _, exists := settlements[st.ID]; exists {
		return nil, store.ErrDuplicate
	}

	name, err := s.applyEntityDeltaLocked(st.TenantID, st.Type, st.EntityID, -st.AmountCents)
	if err != nil {
		return nil, err
	}
	if st.EntityName == "" {
		st.EntityName = name
	}
	if st.Date.IsZero() {
		st.Date = time.Now().UTC()
	}
	settlements[st.ID] = st
	created := st
	return &created, nil
}

func (s *Store) CreateSettlement(_ context.Context, st domain.Settlement) (*domain.Settlement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertSettlementLocked(st)
}

func (s *Store) GetSettlement(_ context.Context, tenantID, id string) (*domain.Settlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, exists := s.settlementsByID[tenantID][id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copied := st
	return &copied, nil
}

func (s *Store) UpdateSettlement(_ context.Context, st domain.Settlement) (*domain.Settlement, error) {
	if st.AmountCents <= 0 {
		return nil, store.ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	settlements := s.tenantSettlements(st.TenantID)
	existing, exists := settlements[st.ID]
	if !exists {
		return nil, store.ErrNotFound
	}

	// Raising the recorded payment lowers the debt further; lowering it
	// restores part of the debt.
	diff := st.AmountCents - existing.AmountCents
	if _, err := s.applyEntityDeltaLocked(existing.TenantID, existing.Type, existing.EntityID, -diff); err != nil {
		return nil, err
	}

	existing.AmountCents = st.AmountCents
	existing.Method = st.Method
	existing.Note = st.Note
	if !st.Date.IsZero() {
		existing.Date = st.Date
	}
	settlements[st.ID] = existing
	updated := existing
	return &updated, nil
}

func (s *Store) DeleteSettlement(_ context.Context, tenantID, id string) (*domain.Settlement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settlements := s.tenantSettlements(tenantID)
	existing, exists := settlements[id]
	if !exists {
		return nil, store.ErrNotFound
	}

	// Cancelling the payment puts the amount back on the debt.
	if _, err := s.applyEntityDeltaLocked(existing.TenantID, existing.Type, existing.EntityID, existing.AmountCents); err != nil {
		return nil, err
	}
	delete(settlements, id)
	deleted := existing
	return &deleted, nil
}

func (s *Store) ListSettlements(_ context.Context, tenantID, entityID string) ([]domain.Settlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Settlement, 0, 16)
	for _, st := range s.settlementsByID[tenantID] {
		if entityID != "" && st.EntityID != entityID {
			continue
		}
		result = append(result, st)
	}
	slices.SortFunc(result, func(a, b domain.Settlement) int {
		if a.Date.Equal(b.Date) {
			return strings.Compare(b.ID, a.ID)
		}
		if a.Date.After(b.Date) {
			return -1
		}
		return 1
	})
	return result, nil
}

// --- Sales ---

func (s *Store) CreateSale(_ context.Context, sale domain.Sale, visitPoints int) (*domain.Sale, error) {
	if sale.TenantID == "" || sale.ID == "" || len(sale.Items) == 0 {
		return nil, store.ErrInvalid
	}
	if sale.AdvanceCents < 0 || sale.AdvanceCents > sale.TotalCents {
		return nil, store.ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sales := s.tenantSales(sale.TenantID)
	if _, exists := sales[sale.ID]; exists {
		return nil, store.ErrInvalid
	}

	if sale.CustomerID != "" {
		customers := s.tenantCustomers(sale.TenantID)
		c, exists := customers[sale.CustomerID]
		if !exists {
			return nil, store.ErrNotFound
		}
		c.LastVisit = sale.Date
		c.Points += visitPoints
		if sale.PaymentMethod == domain.PaymentMethodKarne {
			c.BalanceCents += sale.RemainderCents()
		}
		customers[sale.CustomerID] = c
	}

	products := s.tenantProducts(sale.TenantID)
	for _, item := range sale.Items {
		p, exists := products[item.ProductID]
		if !exists {
			continue
		}
		p.Stock -= item.Qty
		products[item.ProductID] = p
		s.movements = append(s.movements, domain.StockMovement{
			ID:          xid.New("mv"),
			TenantID:    sale.TenantID,
			ProductID:   p.ID,
			ProductName: p.Name,
			Type:        domain.MovementOut,
			Qty:         item.Qty,
			Date:        sale.Date,
			Reason:      "Vente " + sale.ID,
		})
	}

	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}
	sale.Items = slices.Clone(sale.Items)
	sales[sale.ID] = sale
	created := sale
	created.Items = slices.Clone(sale.Items)
	return &created, nil
}

func (s *Store) GetSale(_ context.Context, tenantID, id string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, exists := s.salesByID[tenantID][id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copied := sale
	copied.Items = slices.Clone(sale.Items)
	return &copied, nil
}

// UpdateSale replaces items/total/advance and reconciles any posted carnet
// debt by the remainder delta. Paid sales are frozen.
func (s *Store) UpdateSale(_ context.Context, sale domain.Sale) (*domain.Sale, error) {
	if len(sale.Items) == 0 {
		return nil, store.ErrInvalid
	}
	if sale.AdvanceCents < 0 || sale.AdvanceCents > sale.TotalCents {
		return nil, store.ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sales := s.tenantSales(sale.TenantID)
	existing, exists := sales[sale.ID]
	if !exists {
		return nil, store.ErrNotFound
	}
	if existing.IsPaid {
		return nil, store.ErrAlreadyPaid
	}

	if existing.PaymentMethod == domain.PaymentMethodKarne && existing.CustomerID != "" {
		delta := sale.RemainderCents() - existing.RemainderCents()
		if _, err := s.applyEntityDeltaLocked(existing.TenantID, domain.SettlementCustomerIn, existing.CustomerID, delta); err != nil {
			return nil, err
		}
	}

	existing.Items = slices.Clone(sale.Items)
	existing.TotalCents = sale.TotalCents
	existing.AdvanceCents = sale.AdvanceCents
	if existing.PaymentMethod == domain.PaymentMethodKarne && existing.RemainderCents() == 0 {
		existing.IsPaid = true
	}
	sales[sale.ID] = existing
	updated := existing
	updated.Items = slices.Clone(existing.Items)
	return &updated, nil
}

// DeleteSale removes the sale and reverses the outstanding remainder of an
// unpaid credit sale so no phantom debt survives the row.
func (s *Store) DeleteSale(_ context.Context, tenantID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sales := s.tenantSales(tenantID)
	existing, exists := sales[id]
	if !exists {
		return store.ErrNotFound
	}

	if existing.PaymentMethod == domain.PaymentMethodKarne && !existing.IsPaid && existing.CustomerID != "" {
		// The customer may have been deleted since; nothing left to reverse then.
		if _, err := s.applyEntityDeltaLocked(tenantID, domain.SettlementCustomerIn, existing.CustomerID, -existing.RemainderCents()); err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
	}
	delete(sales, id)
	return nil
}

// SettleSale marks an unpaid credit sale paid, deducts exactly its remainder
// from the customer balance and records the audit settlement through the same
// path as CreateSettlement, all under one lock hold.
func (s *Store) SettleSale(_ context.Context, tenantID, saleID string, settlement domain.Settlement) (*domain.Settlement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sales := s.tenantSales(tenantID)
	existing, exists := sales[saleID]
	if !exists {
		return nil, store.ErrNotFound
	}
	if existing.IsPaid {
		return nil, store.ErrAlreadyPaid
	}
	if existing.CustomerID == "" {
		return nil, store.ErrInvalid
	}

	settlement.TenantID = tenantID
	settlement.EntityID = existing.CustomerID
	settlement.Type = domain.SettlementCustomerIn
	settlement.AmountCents = existing.RemainderCents()

	created, err := s.insertSettlementLocked(settlement)
	if err != nil {
		return nil, err
	}

	existing.IsPaid = true
	sales[saleID] = existing
	return created, nil
}

func (s *Store) ListSales(_ context.Context, tenantID string) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sales := make([]domain.Sale, 0, len(s.salesByID[tenantID]))
	for _, sale := range s.salesByID[tenantID] {
		copied := sale
		copied.Items = slices.Clone(sale.Items)
		sales = append(sales, copied)
	}
	slices.SortFunc(sales, func(a, b domain.Sale) int {
		if a.Date.Equal(b.Date) {
			return strings.Compare(b.ID, a.ID)
		}
		if a.Date.After(b.Date) {
			return -1
		}
		return 1
	})
	return sales, nil
}

// --- Purchases ---

func supplierResolved(supplierID string) bool {
	return supplierID != "" && supplierID != domain.SupplierUnknown
}

func (s *Store) CreatePurchase(_ context.Context, p domain.Purchase) (*domain.Purchase, error) {
	if p.TenantID == "" || p.ID == "" || len(p.Items) == 0 {
		return nil, store.ErrInvalid
	}
	if p.TotalCents < 0 {
		return nil, store.ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	purchases := s.tenantPurchases(p.TenantID)
	if _, exists := purchases[p.ID]; exists {
		return nil, store.ErrInvalid
	}

	if supplierResolved(p.SupplierID) {
		suppliers := s.tenantSuppliers(p.TenantID)
		sup, exists := suppliers[p.SupplierID]
		if !exists {
			return nil, store.ErrNotFound
		}
		sup.DebtCents += p.TotalCents
		suppliers[p.SupplierID] = sup
	}

	s.receiveStockLocked(p)

	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	p.Items = slices.Clone(p.Items)
	purchases[p.ID] = p
	created := p
	created.Items = slices.Clone(p.Items)
	return &created, nil
}

// receiveStockLocked books purchased quantities into the catalog: an existing
// product (matched by name, case-insensitive) gets its stock raised and its
// cost re-averaged; an unknown item becomes a new product priced at cost plus
// the default 30% margin, matching how purchase imports behaved at the till.
func (s *Store) receiveStockLocked(p domain.Purchase) {
	products := s.tenantProducts(p.TenantID)
	for _, item := range p.Items {
		if item.Qty < 1 {
			continue
		}

		var match *domain.Product
		for id, prod := range products {
			if strings.EqualFold(prod.Name, item.Name) {
				found := products[id]
				match = &found
				break
			}
		}

		var productID, productName string
		if match != nil {
			oldStock := int64(match.Stock)
			newQty := int64(item.Qty)
			if oldStock+newQty > 0 {
				match.CostCents = (oldStock*match.CostCents + newQty*item.UnitCostCents) / (oldStock + newQty)
			}
			match.Stock += item.Qty
			if match.PriceCents == 0 {
				match.PriceCents = item.UnitCostCents * 13 / 10
			}
			products[match.ID] = *match
			productID, productName = match.ID, match.Name
		} else {
			created := domain.Product{
				ID:         xid.New("prod"),
				TenantID:   p.TenantID,
				Name:       item.Name,
				Category:   "Importe",
				PriceCents: item.UnitCostCents * 13 / 10,
				CostCents:  item.UnitCostCents,
				Stock:      item.Qty,
				MinStock:   5,
			}
			products[created.ID] = created
			productID, productName = created.ID, created.Name
		}

		s.movements = append(s.movements, domain.StockMovement{
			ID:          xid.New("mv"),
			TenantID:    p.TenantID,
			ProductID:   productID,
			ProductName: productName,
			Type:        domain.MovementIn,
			Qty:         item.Qty,
			Date:        p.Date,
			Reason:      "Achat " + p.ID,
		})
	}
}

func (s *Store) GetPurchase(_ context.Context, tenantID, id string) (*domain.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.purchasesByID[tenantID][id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copied := p
	copied.Items = slices.Clone(p.Items)
	return &copied, nil
}

// UpdatePurchase replaces items/total and reconciles supplier debt by the
// total delta. Stock received at creation time is not re-adjusted.
func (s *Store) UpdatePurchase(_ context.Context, p domain.Purchase) (*domain.Purchase, error) {
	if len(p.Items) == 0 {
		return nil, store.ErrInvalid
	}
	if p.TotalCents < 0 {
		return nil, store.ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	purchases := s.tenantPurchases(p.TenantID)
	existing, exists := purchases[p.ID]
	if !exists {
		return nil, store.ErrNotFound
	}

	if supplierResolved(existing.SupplierID) {
		suppliers := s.tenantSuppliers(existing.TenantID)
		sup, ok := suppliers[existing.SupplierID]
		if !ok {
			return nil, store.ErrNotFound
		}
		sup.DebtCents += p.TotalCents - existing.TotalCents
		suppliers[existing.SupplierID] = sup
	}

	existing.Items = slices.Clone(p.Items)
	existing.TotalCents = p.TotalCents
	purchases[p.ID] = existing
	updated := existing
	updated.Items = slices.Clone(existing.Items)
	return &updated, nil
}

func (s *Store) DeletePurchase(_ context.Context, tenantID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	purchases := s.tenantPurchases(tenantID)
	existing, exists := purchases[id]
	if !exists {
		return store.ErrNotFound
	}

	if supplierResolved(existing.SupplierID) {
		suppliers := s.tenantSuppliers(tenantID)
		if sup, ok := suppliers[existing.SupplierID]; ok {
			sup.DebtCents -= existing.TotalCents
			suppliers[existing.SupplierID] = sup
		}
	}
	delete(purchases, id)
	return nil
}

func (s *Store) ListPurchases(_ context.Context, tenantID string) ([]domain.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	purchases := make([]domain.Purchase, 0, len(s.purchasesByID[tenantID]))
	for _, p := range s.purchasesByID[tenantID] {
		copied := p
		copied.Items = slices.Clone(p.Items)
		purchases = append(purchases, copied)
	}
	slices.SortFunc(purchases, func(a, b domain.Purchase) int {
		if a.Date.Equal(b.Date) {
			return strings.Compare(b.ID, a.ID)
		}
		if a.Date.After(b.Date) {
			return -1
		}
		return 1
	})
	return purchases, nil
}

// --- Catalog ---

func (s *Store) CreateProduct(_ context.Context, p domain.Product) (*domain.Product, error) {
	if p.TenantID == "" || p.ID == "" || p.Name == "" || p.PriceCents < 0 {
		return nil, store.ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	products := s.tenantProducts(p.TenantID)
	if _, exists := products[p.ID]; exists {
		return nil, store.ErrInvalid
	}
	products[p.ID] = p

	if p.Stock > 0 {
		s.movements = append(s.movements, domain.StockMovement{
			ID:          xid.New("mv"),
			TenantID:    p.TenantID,
			ProductID:   p.ID,
			ProductName: p.Name,
			Type:        domain.MovementIn,
			Qty:         p.Stock,
			Date:        time.Now().UTC(),
			Reason:      "Stock initial",
		})
	}

	created := p
	return &created, nil
}

func (s *Store) ListProducts(_ context.Context, tenantID string) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.productsByID[tenantID]))
	for _, p := range s.productsByID[tenantID] {
		products = append(products, p)
	}
	slices.SortFunc(products, func(a, b domain.Product) int {
		if a.Category == b.Category {
			return strings.Compare(a.Name, b.Name)
		}
		return strings.Compare(a.Category, b.Category)
	})
	return products, nil
}

func (s *Store) ListStockMovements(_ context.Context, tenantID string, limit int) ([]domain.StockMovement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.StockMovement, 0, limit)
	for i := len(s.movements) - 1; i >= 0; i-- {
		if s.movements[i].TenantID != tenantID {
			continue
		}
		result = append(result, s.movements[i])
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, nil
}

// --- Expenses ---

func (s *Store) CreateExpense(_ context.Context, e domain.Expense) (*domain.Expense, error) {
	if e.TenantID == "" || e.ID == "" || e.Description == "" {
		return nil, store.ErrInvalid
	}
	if e.AmountCents <= 0 {
		return nil, store.ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	expenses := s.tenantExpenses(e.TenantID)
	if _, exists := expenses[e.ID]; exists {
		return nil, store.ErrInvalid
	}
	expenses[e.ID] = e
	created := e
	return &created, nil
}

func (s *Store) DeleteExpense(_ context.Context, tenantID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	expenses := s.tenantExpenses(tenantID)
	if _, exists := expenses[id]; !exists {
		return store.ErrNotFound
	}
	delete(expenses, id)
	return nil
}

func (s *Store) ListExpenses(_ context.Context, tenantID string) ([]domain.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expenses := make([]domain.Expense, 0, len(s.expensesByID[tenantID]))
	for _, e := range s.expensesByID[tenantID] {
		expenses = append(expenses, e)
	}
	slices.SortFunc(expenses, func(a, b domain.Expense) int {
		if a.Date.Equal(b.Date) {
			return strings.Compare(b.ID, a.ID)
		}
		if a.Date.After(b.Date) {
			return -1
		}
		return 1
	})
	return expenses, nil
}

// --- Reporting / audit ---

func (s *Store) GetLedgerSummary(_ context.Context, tenantID string) (domain.LedgerSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := domain.LedgerSummary{TenantID: tenantID}
	for _, c := range s.customersByID[tenantID] {
		summary.ReceivablesCents += c.BalanceCents
		summary.Customers++
	}
	for _, sup := range s.suppliersByID[tenantID] {
		summary.PayablesCents += sup.DebtCents
		summary.Suppliers++
	}
	for _, sale := range s.salesByID[tenantID] {
		if !sale.IsPaid {
			summary.UnpaidSales++
		}
	}
	summary.GeneratedAt = time.Now().UTC().Format(time.RFC3339)
	return summary, nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, tenantID string, from, to time.Time, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.AuditLog, 0, limit)
	for i := len(s.auditLogs) - 1; i >= 0; i-- {
		entry := s.auditLogs[i]
		if entry.TenantID != tenantID {
			continue
		}
		if entry.CreatedAt.Before(from) || entry.CreatedAt.After(to) {
			continue
		}
		result = append(result, entry)
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, nil
}

// --- Auth accounts ---

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	if user.Username == "" || user.Password == "" {
		return store.ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usersByUsername[user.Username]; exists {
		return store.ErrInvalid
	}
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, u := range s.usersByUsername {
		users = append(users, u)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return strings.Compare(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}
