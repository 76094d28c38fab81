package store

import (
	"context"
	"errors"
	"time"

	"atlaspos/backend/internal/domain"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalid       = errors.New("invalid input")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrAlreadyPaid   = errors.New("sale already paid")
	// ErrDuplicate signals that a client-supplied settlement id was replayed;
	// the original row stands and no balance delta was re-applied.
	ErrDuplicate = errors.New("duplicate settlement")
)

// Repository is the tenant-scoped persistence contract for the carnet ledger.
//
// Every operation that both writes a record and moves a balance (settlements,
// sale/purchase posting and their edits/deletions) performs the record write
// and the balance delta atomically: in one SQL transaction for postgres, under
// one mutex hold for the in-memory store. The delta itself is applied
// server-side (balance = balance + delta), never read-modify-write in the
// caller, so concurrent settlements against the same entity cannot lose
// updates.
type Repository interface {
	// Customers
	CreateCustomer(ctx context.Context, c domain.Customer) (*domain.Customer, error)
	GetCustomer(ctx context.Context, tenantID, id string) (*domain.Customer, error)
	UpdateCustomer(ctx context.Context, c domain.Customer) (*domain.Customer, error)
	DeleteCustomer(ctx context.Context, tenantID, id string) error
	ListCustomers(ctx context.Context, tenantID string) ([]domain.Customer, error)

	// Suppliers
	CreateSupplier(ctx context.Context, s domain.Supplier) (*domain.Supplier, error)
	GetSupplier(ctx context.Context, tenantID, id string) (*domain.Supplier, error)
	UpdateSupplier(ctx context.Context, s domain.Supplier) (*domain.Supplier, error)
	DeleteSupplier(ctx context.Context, tenantID, id string) error
	ListSuppliers(ctx context.Context, tenantID string) ([]domain.Supplier, error)

	// Settlements. Create inserts the row and applies -amount to the entity's
	// balance/debt. Update re-derives the old amount from the stored row and
	// applies -(new-old). Delete applies +amount and removes the row,
	// returning it.
	CreateSettlement(ctx context.Context, s domain.Settlement) (*domain.Settlement, error)
	GetSettlement(ctx context.Context, tenantID, id string) (*domain.Settlement, error)
	UpdateSettlement(ctx context.Context, s domain.Settlement) (*domain.Settlement, error)
	DeleteSettlement(ctx context.Context, tenantID, id string) (*domain.Settlement, error)
	ListSettlements(ctx context.Context, tenantID, entityID string) ([]domain.Settlement, error)

	// Sales. Create posts total-advance to the customer balance for KARNE
	// sales and records the visit (lastVisit + visitPoints) for any sale with
	// a customer. Update reconciles the posted remainder by delta while the
	// sale is unpaid. Delete reverses the outstanding remainder. SettleSale
	// marks the sale paid, applies -remainder and records the audit
	// settlement through the same insert path as CreateSettlement.
	CreateSale(ctx context.Context, sale domain.Sale, visitPoints int) (*domain.Sale, error)
	GetSale(ctx context.Context, tenantID, id string) (*domain.Sale, error)
	UpdateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error)
	DeleteSale(ctx context.Context, tenantID, id string) error
	SettleSale(ctx context.Context, tenantID, saleID string, settlement domain.Settlement) (*domain.Settlement, error)
	ListSales(ctx context.Context, tenantID string) ([]domain.Sale, error)

	// Purchases. Create posts total to supplier debt when the supplier id
	// resolves; Update reconciles debt by total delta; Delete reverses it.
	CreatePurchase(ctx context.Context, p domain.Purchase) (*domain.Purchase, error)
	GetPurchase(ctx context.Context, tenantID, id string) (*domain.Purchase, error)
	UpdatePurchase(ctx context.Context, p domain.Purchase) (*domain.Purchase, error)
	DeletePurchase(ctx context.Context, tenantID, id string) error
	ListPurchases(ctx context.Context, tenantID string) ([]domain.Purchase, error)

	// Catalog
	CreateProduct(ctx context.Context, p domain.Product) (*domain.Product, error)
	ListProducts(ctx context.Context, tenantID string) ([]domain.Product, error)
	ListStockMovements(ctx context.Context, tenantID string, limit int) ([]domain.StockMovement, error)

	// Expenses
	CreateExpense(ctx context.Context, e domain.Expense) (*domain.Expense, error)
	DeleteExpense(ctx context.Context, tenantID, id string) error
	ListExpenses(ctx context.Context, tenantID string) ([]domain.Expense, error)

	// Reporting / audit
	GetLedgerSummary(ctx context.Context, tenantID string) (domain.LedgerSummary, error)
	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, tenantID string, from, to time.Time, limit int) ([]domain.AuditLog, error)

	// Auth accounts
	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
