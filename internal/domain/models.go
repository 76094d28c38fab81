package domain

import "time"

const (
	// PaymentMethodKarne marks a deferred/credit sale: the unpaid remainder is
	// posted to the customer's carnet balance instead of the till.
	PaymentMethodKarne = "KARNE"
	PaymentMethodCash  = "CASH"
	PaymentMethodCard  = "CARD"
)

const (
	// SettlementCustomerIn records a customer paying down carnet debt.
	SettlementCustomerIn = "CUSTOMER_IN"
	// SettlementSupplierOut records the shop paying down supplier debt.
	SettlementSupplierOut = "SUPPLIER_OUT"
)

const (
	SettlementMethodCash     = "CASH"
	SettlementMethodCheck    = "CHECK"
	SettlementMethodTransfer = "TRANSFER"
)

const (
	MovementIn         = "ENTREE"
	MovementOut        = "SORTIE"
	MovementAdjustment = "AJUSTEMENT"
)

// SupplierUnknown is the sentinel supplier id used when a purchase is entered
// before the supplier is registered; such purchases post no debt.
const SupplierUnknown = "unknown"

// Customer carries the carnet balance: positive cents mean the customer owes
// the shop, negative cents mean the shop holds a prepaid advance.
type Customer struct {
	ID           string    `json:"id"`
	TenantID     string    `json:"tenant_id"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone"`
	BalanceCents int64     `json:"balance_cents"`
	LastVisit    time.Time `json:"last_visit"`
	Points       int       `json:"points"`
	ICE          string    `json:"ice,omitempty"`
	Address      string    `json:"address,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Supplier.DebtCents is what the shop owes the supplier; purchases increase it,
// SUPPLIER_OUT settlements decrease it.
type Supplier struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Category  string    `json:"category"`
	DebtCents int64     `json:"debt_cents"`
	ICE       string    `json:"ice,omitempty"`
	Address   string    `json:"address,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// SaleItem snapshots the unit price at checkout time; later product price
// changes never reflow into recorded sales.
type SaleItem struct {
	ProductID      string `json:"product_id,omitempty"`
	Name           string `json:"name"`
	Qty            int    `json:"qty"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

type Sale struct {
	ID            string     `json:"id"`
	TenantID      string     `json:"tenant_id"`
	Date          time.Time  `json:"date"`
	Items         []SaleItem `json:"items"`
	TotalCents    int64      `json:"total_cents"`
	AdvanceCents  int64      `json:"advance_cents"`
	PaymentMethod string     `json:"payment_method"`
	CustomerID    string     `json:"customer_id,omitempty"`
	IsPaid        bool       `json:"is_paid"`
	CreatedAt     time.Time  `json:"created_at"`
}

// RemainderCents is the portion of a credit sale still outstanding.
func (s Sale) RemainderCents() int64 {
	return s.TotalCents - s.AdvanceCents
}

type PurchaseItem struct {
	Name          string `json:"name"`
	Qty           int    `json:"qty"`
	UnitCostCents int64  `json:"unit_cost_cents"`
}

type Purchase struct {
	ID         string         `json:"id"`
	TenantID   string         `json:"tenant_id"`
	SupplierID string         `json:"supplier_id"`
	Date       time.Time      `json:"date"`
	Items      []PurchaseItem `json:"items"`
	TotalCents int64          `json:"total_cents"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Settlement is one discrete payment event against a customer balance or a
// supplier debt. EntityName is a display snapshot, never the source of truth
// for the entity's current name.
type Settlement struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	EntityID    string    `json:"entity_id"`
	EntityName  string    `json:"entity_name"`
	Type        string    `json:"type"`
	AmountCents int64     `json:"amount_cents"`
	Date        time.Time `json:"date"`
	Method      string    `json:"method"`
	Note        string    `json:"note,omitempty"`
}

type Expense struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	Description string    `json:"description"`
	AmountCents int64     `json:"amount_cents"`
	Category    string    `json:"category"`
	Date        time.Time `json:"date"`
}

type Product struct {
	ID         string `json:"id"`
	TenantID   string `json:"tenant_id"`
	Name       string `json:"name"`
	Category   string `json:"category"`
	PriceCents int64  `json:"price_cents"`
	CostCents  int64  `json:"cost_cents"`
	Stock      int    `json:"stock"`
	MinStock   int    `json:"min_stock"`
	SKU        string `json:"sku,omitempty"`
	Barcode    string `json:"barcode,omitempty"`
}

type StockMovement struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	ProductID   string    `json:"product_id"`
	ProductName string    `json:"product_name"`
	Type        string    `json:"type"`
	Qty         int       `json:"qty"`
	Date        time.Time `json:"date"`
	Reason      string    `json:"reason,omitempty"`
	Actor       string    `json:"actor,omitempty"`
}

type AuditLog struct {
	ID            string    `json:"id"`
	TenantID      string    `json:"tenant_id"`
	ActorUsername string    `json:"actor_username"`
	ActorRole     string    `json:"actor_role"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}

// LedgerSummary aggregates the carnet position of a tenant.
type LedgerSummary struct {
	TenantID         string `json:"tenant_id"`
	ReceivablesCents int64  `json:"receivables_cents"`
	PayablesCents    int64  `json:"payables_cents"`
	UnpaidSales      int    `json:"unpaid_sales"`
	Customers        int    `json:"customers"`
	Suppliers        int    `json:"suppliers"`
	GeneratedAt      string `json:"generated_at"`
}

// Actor identifies the authenticated user behind a request. TenantID is
// resolved from the access token and passed explicitly through every service
// call; nothing in the core reads ambient tenant state.
type Actor struct {
	Username string
	Role     string
	TenantID string
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	TenantID  string
	Active    bool
	CreatedAt time.Time
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	TenantID    string `json:"tenant_id"`
	ExpiresAt   string `json:"expires_at"`
}

type SettlementCreateRequest struct {
	ID          string `json:"id,omitempty"`
	EntityID    string `json:"entity_id"`
	Type        string `json:"type"`
	AmountCents int64  `json:"amount_cents"`
	Method      string `json:"method"`
	Note        string `json:"note,omitempty"`
	Date        string `json:"date,omitempty"`
}

type SettlementUpdateRequest struct {
	AmountCents *int64  `json:"amount_cents,omitempty"`
	Method      *string `json:"method,omitempty"`
	Note        *string `json:"note,omitempty"`
	Date        *string `json:"date,omitempty"`
}

type SettlementResponse struct {
	Settlement Settlement `json:"settlement"`
	Duplicate  bool       `json:"duplicate,omitempty"`
}

type SettlementListResponse struct {
	Settlements []Settlement `json:"settlements"`
}

type CustomerCreateRequest struct {
	Name                string `json:"name"`
	Phone               string `json:"phone"`
	InitialBalanceCents int64  `json:"initial_balance_cents"`
	ICE                 string `json:"ice,omitempty"`
	Address             string `json:"address,omitempty"`
	Notes               string `json:"notes,omitempty"`
}

// CustomerUpdateRequest deliberately has no balance field: the balance is
// mutated only by the sale poster and the settlement engine.
type CustomerUpdateRequest struct {
	Name    *string `json:"name,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	ICE     *string `json:"ice,omitempty"`
	Address *string `json:"address,omitempty"`
	Notes   *string `json:"notes,omitempty"`
}

type SupplierCreateRequest struct {
	Name             string `json:"name"`
	Phone            string `json:"phone"`
	Category         string `json:"category"`
	InitialDebtCents int64  `json:"initial_debt_cents"`
	ICE              string `json:"ice,omitempty"`
	Address          string `json:"address,omitempty"`
	Notes            string `json:"notes,omitempty"`
}

type SupplierUpdateRequest struct {
	Name     *string `json:"name,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	Category *string `json:"category,omitempty"`
	ICE      *string `json:"ice,omitempty"`
	Address  *string `json:"address,omitempty"`
	Notes    *string `json:"notes,omitempty"`
}

type SaleCreateRequest struct {
	ID            string     `json:"id,omitempty"`
	Date          string     `json:"date,omitempty"`
	Items         []SaleItem `json:"items"`
	PaymentMethod string     `json:"payment_method"`
	CustomerID    string     `json:"customer_id,omitempty"`
	AdvanceCents  int64      `json:"advance_cents"`
}

type SaleUpdateRequest struct {
	Items        []SaleItem `json:"items"`
	AdvanceCents *int64     `json:"advance_cents,omitempty"`
}

type SaleResponse struct {
	Sale Sale `json:"sale"`
}

type SaleListResponse struct {
	Sales []Sale `json:"sales"`
}

type PurchaseCreateRequest struct {
	ID         string         `json:"id,omitempty"`
	SupplierID string         `json:"supplier_id"`
	Date       string         `json:"date,omitempty"`
	Items      []PurchaseItem `json:"items"`
}

type PurchaseUpdateRequest struct {
	Items []PurchaseItem `json:"items"`
}

type PurchaseResponse struct {
	Purchase Purchase `json:"purchase"`
}

type PurchaseListResponse struct {
	Purchases []Purchase `json:"purchases"`
}

type ExpenseCreateRequest struct {
	Description string `json:"description"`
	AmountCents int64  `json:"amount_cents"`
	Category    string `json:"category"`
	Date        string `json:"date,omitempty"`
}
