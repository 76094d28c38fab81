package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"atlaspos/backend/internal/domain"
	"atlaspos/backend/internal/store"
	"atlaspos/backend/internal/xid"
)

// Store is the PostgreSQL repository. Every operation that pairs a record
// write with a balance delta runs inside one transaction, and the delta is an
// in-database increment (balance_cents = balance_cents + $n), so concurrent
// writers against the same entity serialize on the row instead of losing
// updates.
type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// --- Customers ---

func (s *Store) CreateCustomer(ctx context.Context, c domain.Customer) (*domain.Customer, error) {
	if c.TenantID == "" || c.ID == "" || c.Name == "" {
		return nil, store.ErrInvalid
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customers (id, tenant_id, name, phone, balance_cents, last_visit, points, ice, address, notes, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, c.ID, c.TenantID, c.Name, c.Phone, c.BalanceCents, c.LastVisit, c.Points, c.ICE, c.Address, c.Notes, c.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalid
		}
		return nil, err
	}

	created := c
	return &created, nil
}

func (s *Store) GetCustomer(ctx context.Context, tenantID, id string) (*domain.Customer, error) {
	var c domain.Customer
	err := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, name, phone, balance_cents, last_visit, points, ice, address, notes, created_at
		FROM customers
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, id).Scan(&c.ID, &c.TenantID, &c.Name, &c.Phone, &c.BalanceCents, &c.LastVisit, &c.Points, &c.ICE, &c.Address, &c.Notes, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// UpdateCustomer writes descriptive fields only; balance, points and
// last_visit are moved solely by the settlement engine and the sale poster.
func (s *Store) UpdateCustomer(ctx context.Context, c domain.Customer) (*domain.Customer, error) {
	if c.TenantID == "" || c.ID == "" || c.Name == "" {
		return nil, store.ErrInvalid
	}

	var updated domain.Customer
	err := s.db.QueryRowContext(ctx, `
		UPDATE customers
		SET name = $3, phone = $4, ice = $5, address = $6, notes = $7
		WHERE tenant_id = $1 AND id = $2
		RETURNING id, tenant_id, name, phone, balance_cents, last_visit, points, ice, address, notes, created_at
	`, c.TenantID, c.ID, c.Name, c.Phone, c.ICE, c.Address, c.Notes).Scan(
		&updated.ID, &updated.TenantID, &updated.Name, &updated.Phone, &updated.BalanceCents,
		&updated.LastVisit, &updated.Points, &updated.ICE, &updated.Address, &updated.Notes, &updated.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &updated, nil
}

func (s *Store) DeleteCustomer(ctx context.Context, tenantID, id string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM customers WHERE tenant_id = $1 AND id = $2
	`, tenantID, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListCustomers(ctx context.Context, tenantID string) ([]domain.Customer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, name, phone, balance_cents, last_visit, points, ice, address, notes, created_at
		FROM customers
		WHERE tenant_id = $1
		ORDER BY name
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0, 64)
	for rows.Next() {
		var c domain.Customer
		if err := rows.Scan(&c.ID, &c.TenantID, &c.Name, &c.Phone, &c.BalanceCents, &c.LastVisit, &c.Points, &c.ICE, &c.Address, &c.Notes, &c.CreatedAt); err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return customers, nil
}

// --- Suppliers ---

func (s *Store) CreateSupplier(ctx context.Context, sup domain.Supplier) (*domain.Supplier, error) {
	if sup.TenantID == "" || sup.ID == "" || sup.Name == "" {
		return nil, store.ErrInvalid
	}
	if sup.CreatedAt.IsZero() {
		sup.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO suppliers (id, tenant_id, name, phone, category, debt_cents, ice, address, notes, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, sup.ID, sup.TenantID, sup.Name, sup.Phone, sup.Category, sup.DebtCents, sup.ICE, sup.Address, sup.Notes, sup.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalid
		}
		return nil, err
	}

	created := sup
	return &created, nil
}

func (s *Store) GetSupplier(ctx context.Context, tenantID, id string) (*domain.Supplier, error) {
	var sup domain.Supplier
	err := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, name, phone, category, debt_cents, ice, address, notes, created_at
		FROM suppliers
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, id).Scan(&sup.ID, &sup.TenantID, &sup.Name, &sup.Phone, &sup.Category, &sup.DebtCents, &sup.ICE, &sup.Address, &sup.Notes, &sup.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &sup, nil
}

func (s *Store) UpdateSupplier(ctx context.Context, sup domain.Supplier) (*domain.Supplier, error) {
	if sup.TenantID == "" || sup.ID == "" || sup.Name == "" {
		return nil, store.ErrInvalid
	}

	var updated domain.Supplier
	err := s.db.QueryRowContext(ctx, `
		UPDATE suppliers
		SET name = $3, phone = $4, category = $5, ice = $6, address = $7, notes = $8
		WHERE tenant_id = $1 AND id = $2
		RETURNING id, tenant_id, name, phone, category, debt_cents, ice, address, notes, created_at
	`, sup.TenantID, sup.ID, sup.Name, sup.Phone, sup.Category, sup.ICE, sup.Address, sup.Notes).Scan(
		&updated.ID, &updated.TenantID, &updated.Name, &updated.Phone, &updated.Category,
		&updated.DebtCents, &updated.ICE, &updated.Address, &updated.Notes, &updated.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &updated, nil
}

func (s *Store) DeleteSupplier(ctx context.Context, tenantID, id string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM suppliers WHERE tenant_id = $1 AND id = $2
	`, tenantID, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListSuppliers(ctx context.Context, tenantID string) ([]domain.Supplier, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, name, phone, category, debt_cents, ice, address, notes, created_at
		FROM suppliers
		WHERE tenant_id = $1
		ORDER BY name
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	suppliers := make([]domain.Supplier, 0, 32)
	for rows.Next() {
		var sup domain.Supplier
		if err := rows.Scan(&sup.ID, &sup.TenantID, &sup.Name, &sup.Phone, &sup.Category, &sup.DebtCents, &sup.ICE, &sup.Address, &sup.Notes, &sup.CreatedAt); err != nil {
			return nil, err
		}
		suppliers = append(suppliers, sup)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return suppliers, nil
}

// --- Settlement engine primitives ---

// applyEntityDeltaTx adds deltaCents to the customer balance (CUSTOMER_IN) or
// supplier debt (SUPPLIER_OUT) as a single in-database increment, returning
// the entity's current name for denormalized settlement rows.
func applyEntityDeltaTx(ctx context.Context, tx *sql.Tx, tenantID, settlementType, entityID string, deltaCents int64) (string, error) {
	var query string
	switch settlementType {
	case domain.SettlementCustomerIn:
		query = `
			UPDATE customers
			SET balance_cents = balance_cents + $3
			WHERE tenant_id = $1 AND id = $2
			RETURNING name
		`
	case domain.SettlementSupplierOut:
		query = `
			UPDATE suppliers
			SET debt_cents = debt_cents + $3
			WHERE tenant_id = $1 AND id = $2
			RETURNING name
		`
	default:
		return "", store.ErrInvalid
	}

	var name string
	if err := tx.QueryRowContext(ctx, query, tenantID, entityID, deltaCents).Scan(&name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", store.ErrNotFound
		}
		return "", err
	}
	return name, nil
}

// insertSettlementTx applies -amount to the entity and inserts the row in the
// caller's transaction. A replayed settlement id surfaces as ErrDuplicate and
// rolls the delta back with the transaction.
func insertSettlementTx(ctx context.Context, tx *sql.Tx, st domain.Settlement) (*domain.Settlement, error) {
	if st.TenantID == "" || st.ID == "" || st.EntityID == "" {
		return nil, store.ErrInvalid
	}
	if st.AmountCents <= 0 {
		return nil, store.ErrInvalidAmount
	}
	if st.Date.IsZero() {
		st.Date = time.Now().UTC()
	}

	name, err := applyEntityDeltaTx(ctx, tx, st.TenantID, st.Type, st.EntityID, -st.AmountCents)
	if err != nil {
		return nil, err
	}
	if st.EntityName == "" {
		st.EntityName = name
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO settlements (id, tenant_id, entity_id, entity_name, type, amount_cents, date, method, note)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, st.ID, st.TenantID, st.EntityID, st.EntityName, st.Type, st.AmountCents, st.Date, st.Method, st.Note)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicate
		}
		return nil, err
	}

	created := st
	return &created, nil
}

func (s *Store) CreateSettlement(ctx context.Context, st domain.Settlement) (*domain.Settlement, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	created, err := insertSettlementTx(ctx, tx, st)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return created, nil
}

func (s *Store) GetSettlement(ctx context.Context, tenantID, id string) (*domain.Settlement, error) {
	var st domain.Settlement
	err := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, entity_id, entity_name, type, amount_cents, date, method, note
		FROM settlements
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, id).Scan(&st.ID, &st.TenantID, &st.EntityID, &st.EntityName, &st.Type, &st.AmountCents, &st.Date, &st.Method, &st.Note)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &st, nil
}

// UpdateSettlement re-reads the stored amount inside the transaction and
// applies -(new-old) to the entity, so the correction is exact even if the
// caller raced another edit.
func (s *Store) UpdateSettlement(ctx context.Context, st domain.Settlement) (*domain.Settlement, error) {
	if st.AmountCents <= 0 {
		return nil, store.ErrInvalidAmount
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var existing domain.Settlement
	err = tx.QueryRowContext(ctx, `
		SELECT id, tenant_id, entity_id, entity_name, type, amount_cents, date, method, note
		FROM settlements
		WHERE tenant_id = $1 AND id = $2
		FOR UPDATE
	`, st.TenantID, st.ID).Scan(&existing.ID, &existing.TenantID, &existing.EntityID, &existing.EntityName,
		&existing.Type, &existing.AmountCents, &existing.Date, &existing.Method, &existing.Note)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	diff := st.AmountCents - existing.AmountCents
	if _, err := applyEntityDeltaTx(ctx, tx, existing.TenantID, existing.Type, existing.EntityID, -diff); err != nil {
		return nil, err
	}

	existing.AmountCents = st.AmountCents
	existing.Method = st.Method
	existing.Note = st.Note
	if !st.Date.IsZero() {
		existing.Date = st.Date
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE settlements
		SET amount_cents = $3, method = $4, note = $5, date = $6
		WHERE tenant_id = $1 AND id = $2
	`, existing.TenantID, existing.ID, existing.AmountCents, existing.Method, existing.Note, existing.Date)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &existing, nil
}

func (s *Store) DeleteSettlement(ctx context.Context, tenantID, id string) (*domain.Settlement, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var existing domain.Settlement
	err = tx.QueryRowContext(ctx, `
		DELETE FROM settlements
		WHERE tenant_id = $1 AND id = $2
		RETURNING id, tenant_id, entity_id, entity_name, type, amount_cents, date, method, note
	`, tenantID, id).Scan(&existing.ID, &existing.TenantID, &existing.EntityID, &existing.EntityName,
		&existing.Type, &existing.AmountCents, &existing.Date, &existing.Method, &existing.Note)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	// Cancelling the payment puts the amount back on the debt.
	if _, err := applyEntityDeltaTx(ctx, tx, existing.TenantID, existing.Type, existing.EntityID, existing.AmountCents); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &existing, nil
}

func (s *Store) ListSettlements(ctx context.Context, tenantID, entityID string) ([]domain.Settlement, error) {
	query := `
		SELECT id, tenant_id, entity_id, entity_name, type, amount_cents, date, method, note
		FROM settlements
		WHERE tenant_id = $1
		ORDER BY date DESC, id DESC
	`
	args := []any{tenantID}
	if entityID != "" {
		query = `
			SELECT id, tenant_id, entity_id, entity_name, type, amount_cents, date, method, note
			FROM settlements
			WHERE tenant_id = $1 AND entity_id = $2
			ORDER BY date DESC, id DESC
		`
		args = append(args, entityID)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	settlements := make([]domain.Settlement, 0, 32)
	for rows.Next() {
		var st domain.Settlement
		if err := rows.Scan(&st.ID, &st.TenantID, &st.EntityID, &st.EntityName, &st.Type, &st.AmountCents, &st.Date, &st.Method, &st.Note); err != nil {
			return nil, err
		}
		settlements = append(settlements, st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return settlements, nil
}

// --- Sales ---

func (s *Store) CreateSale(ctx context.Context, sale domain.Sale, visitPoints int) (*domain.Sale, error) {
	if sale.TenantID == "" || sale.ID == "" || len(sale.Items) == 0 {
		return nil, store.ErrInvalid
	}
	if sale.AdvanceCents < 0 || sale.AdvanceCents > sale.TotalCents {
		return nil, store.ErrInvalidAmount
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}

	itemsJSON, err := json.Marshal(sale.Items)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if sale.CustomerID != "" {
		balanceDelta := int64(0)
		if sale.PaymentMethod == domain.PaymentMethodKarne {
			balanceDelta = sale.RemainderCents()
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE customers
			SET balance_cents = balance_cents + $3, last_visit = $4, points = points + $5
			WHERE tenant_id = $1 AND id = $2
		`, sale.TenantID, sale.CustomerID, balanceDelta, sale.Date, visitPoints)
		if err != nil {
			return nil, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			return nil, store.ErrNotFound
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sales (id, tenant_id, date, items, total_cents, advance_cents, payment_method, customer_id, is_paid, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, sale.ID, sale.TenantID, sale.Date, itemsJSON, sale.TotalCents, sale.AdvanceCents, sale.PaymentMethod, sale.CustomerID, sale.IsPaid, sale.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalid
		}
		return nil, err
	}

	for _, item := range sale.Items {
		if item.ProductID == "" {
			continue
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE products
			SET stock = stock - $3
			WHERE tenant_id = $1 AND id = $2
		`, sale.TenantID, item.ProductID, item.Qty)
		if err != nil {
			return nil, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			continue
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO stock_movements (id, tenant_id, product_id, product_name, type, qty, date, reason)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		`, xid.New("mv"), sale.TenantID, item.ProductID, item.Name, domain.MovementOut, item.Qty, sale.Date, "Vente "+sale.ID)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	created := sale
	return &created, nil
}

func scanSale(scanner interface{ Scan(...any) error }) (domain.Sale, error) {
	var sale domain.Sale
	var itemsRaw []byte
	err := scanner.Scan(&sale.ID, &sale.TenantID, &sale.Date, &itemsRaw, &sale.TotalCents,
		&sale.AdvanceCents, &sale.PaymentMethod, &sale.CustomerID, &sale.IsPaid, &sale.CreatedAt)
	if err != nil {
		return domain.Sale{}, err
	}
	if len(itemsRaw) > 0 {
		if err := json.Unmarshal(itemsRaw, &sale.Items); err != nil {
			return domain.Sale{}, err
		}
	}
	return sale, nil
}

func (s *Store) GetSale(ctx context.Context, tenantID, id string) (*domain.Sale, error) {
	sale, err := scanSale(s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, date, items, total_cents, advance_cents, payment_method, customer_id, is_paid, created_at
		FROM sales
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &sale, nil
}

func (s *Store) UpdateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	if len(sale.Items) == 0 {
		return nil, store.ErrInvalid
	}
	if sale.AdvanceCents < 0 || sale.AdvanceCents > sale.TotalCents {
		return nil, store.ErrInvalidAmount
	}

	itemsJSON, err := json.Marshal(sale.Items)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	existing, err := scanSale(tx.QueryRowContext(ctx, `
		SELECT id, tenant_id, date, items, total_cents, advance_cents, payment_method, customer_id, is_paid, created_at
		FROM sales
		WHERE tenant_id = $1 AND id = $2
		FOR UPDATE
	`, sale.TenantID, sale.ID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if existing.IsPaid {
		return nil, store.ErrAlreadyPaid
	}

	if existing.PaymentMethod == domain.PaymentMethodKarne && existing.CustomerID != "" {
		delta := sale.RemainderCents() - existing.RemainderCents()
		if _, err := applyEntityDeltaTx(ctx, tx, existing.TenantID, domain.SettlementCustomerIn, existing.CustomerID, delta); err != nil {
			return nil, err
		}
	}

	paid := existing.PaymentMethod == domain.PaymentMethodKarne && sale.TotalCents == sale.AdvanceCents
	_, err = tx.ExecContext(ctx, `
		UPDATE sales
		SET items = $3, total_cents = $4, advance_cents = $5, is_paid = $6
		WHERE tenant_id = $1 AND id = $2
	`, existing.TenantID, existing.ID, itemsJSON, sale.TotalCents, sale.AdvanceCents, paid)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	existing.Items = sale.Items
	existing.TotalCents = sale.TotalCents
	existing.AdvanceCents = sale.AdvanceCents
	existing.IsPaid = paid
	return &existing, nil
}

func (s *Store) DeleteSale(ctx context.Context, tenantID, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	existing, err := scanSale(tx.QueryRowContext(ctx, `
		DELETE FROM sales
		WHERE tenant_id = $1 AND id = $2
		RETURNING id, tenant_id, date, items, total_cents, advance_cents, payment_method, customer_id, is_paid, created_at
	`, tenantID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		return err
	}

	// An unpaid credit sale leaves its remainder on the carnet; removing the
	// sale takes it back off. The customer may have been deleted since, in
	// which case there is nothing left to reverse.
	if existing.PaymentMethod == domain.PaymentMethodKarne && !existing.IsPaid && existing.CustomerID != "" {
		if _, err := applyEntityDeltaTx(ctx, tx, tenantID, domain.SettlementCustomerIn, existing.CustomerID, -existing.RemainderCents()); err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) SettleSale(ctx context.Context, tenantID, saleID string, settlement domain.Settlement) (*domain.Settlement, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	existing, err := scanSale(tx.QueryRowContext(ctx, `
		SELECT id, tenant_id, date, items, total_cents, advance_cents, payment_method, customer_id, is_paid, created_at
		FROM sales
		WHERE tenant_id = $1 AND id = $2
		FOR UPDATE
	`, tenantID, saleID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
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

	created, err := insertSettlementTx(ctx, tx, settlement)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE sales SET is_paid = true WHERE tenant_id = $1 AND id = $2
	`, tenantID, saleID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return created, nil
}

func (s *Store) ListSales(ctx context.Context, tenantID string) ([]domain.Sale, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, date, items, total_cents, advance_cents, payment_method, customer_id, is_paid, created_at
		FROM sales
		WHERE tenant_id = $1
		ORDER BY date DESC, id DESC
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0, 64)
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sales, nil
}

// --- Purchases ---

func supplierResolved(supplierID string) bool {
	return supplierID != "" && supplierID != domain.SupplierUnknown
}

func (s *Store) CreatePurchase(ctx context.Context, p domain.Purchase) (*domain.Purchase, error) {
	if p.TenantID == "" || p.ID == "" || len(p.Items) == 0 {
		return nil, store.ErrInvalid
	}
	if p.TotalCents < 0 {
		return nil, store.ErrInvalidAmount
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	itemsJSON, err := json.Marshal(p.Items)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if supplierResolved(p.SupplierID) {
		if _, err := applyEntityDeltaTx(ctx, tx, p.TenantID, domain.SettlementSupplierOut, p.SupplierID, p.TotalCents); err != nil {
			return nil, err
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO purchases (id, tenant_id, supplier_id, date, items, total_cents, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, p.ID, p.TenantID, p.SupplierID, p.Date, itemsJSON, p.TotalCents, p.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalid
		}
		return nil, err
	}

	if err := receiveStockTx(ctx, tx, p); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	created := p
	return &created, nil
}

// receiveStockTx books purchased quantities into the catalog. An existing
// product (matched by name, case-insensitive) gets its stock raised and its
// cost re-averaged; an unknown item becomes a new product priced at cost plus
// the default 30% margin.
func receiveStockTx(ctx context.Context, tx *sql.Tx, p domain.Purchase) error {
	for _, item := range p.Items {
		if item.Qty < 1 {
			continue
		}

		var productID, productName string
		var stock int
		var costCents, priceCents int64
		err := tx.QueryRowContext(ctx, `
			SELECT id, name, stock, cost_cents, price_cents
			FROM products
			WHERE tenant_id = $1 AND lower(name) = lower($2)
			FOR UPDATE
		`, p.TenantID, item.Name).Scan(&productID, &productName, &stock, &costCents, &priceCents)

		switch {
		case err == nil:
			oldStock := int64(stock)
			newQty := int64(item.Qty)
			newCost := costCents
			if oldStock+newQty > 0 {
				newCost = (oldStock*costCents + newQty*item.UnitCostCents) / (oldStock + newQty)
			}
			newPrice := priceCents
			if newPrice == 0 {
				newPrice = item.UnitCostCents * 13 / 10
			}
			_, err = tx.ExecContext(ctx, `
				UPDATE products
				SET stock = stock + $3, cost_cents = $4, price_cents = $5
				WHERE tenant_id = $1 AND id = $2
			`, p.TenantID, productID, item.Qty, newCost, newPrice)
			if err != nil {
				return err
			}
		case errors.Is(err, sql.ErrNoRows):
			productID = xid.New("prod")
			productName = item.Name
			_, err = tx.ExecContext(ctx, `
				INSERT INTO products (id, tenant_id, name, category, price_cents, cost_cents, stock, min_stock)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
			`, productID, p.TenantID, item.Name, "Importe", item.UnitCostCents*13/10, item.UnitCostCents, item.Qty, 5)
			if err != nil {
				return err
			}
		default:
			return err
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO stock_movements (id, tenant_id, product_id, product_name, type, qty, date, reason)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		`, xid.New("mv"), p.TenantID, productID, productName, domain.MovementIn, item.Qty, p.Date, "Achat "+p.ID)
		if err != nil {
			return err
		}
	}
	return nil
}

func scanPurchase(scanner interface{ Scan(...any) error }) (domain.Purchase, error) {
	var p domain.Purchase
	var itemsRaw []byte
	err := scanner.Scan(&p.ID, &p.TenantID, &p.SupplierID, &p.Date, &itemsRaw, &p.TotalCents, &p.CreatedAt)
	if err != nil {
		return domain.Purchase{}, err
	}
	if len(itemsRaw) > 0 {
		if err := json.Unmarshal(itemsRaw, &p.Items); err != nil {
			return domain.Purchase{}, err
		}
	}
	return p, nil
}

func (s *Store) GetPurchase(ctx context.Context, tenantID, id string) (*domain.Purchase, error) {
	p, err := scanPurchase(s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, supplier_id, date, items, total_cents, created_at
		FROM purchases
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// UpdatePurchase reconciles supplier debt by the total delta. Stock received
// at creation time is not re-adjusted.
func (s *Store) UpdatePurchase(ctx context.Context, p domain.Purchase) (*domain.Purchase, error) {
	if len(p.Items) == 0 {
		return nil, store.ErrInvalid
	}
	if p.TotalCents < 0 {
		return nil, store.ErrInvalidAmount
	}

	itemsJSON, err := json.Marshal(p.Items)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	existing, err := scanPurchase(tx.QueryRowContext(ctx, `
		SELECT id, tenant_id, supplier_id, date, items, total_cents, created_at
		FROM purchases
		WHERE tenant_id = $1 AND id = $2
		FOR UPDATE
	`, p.TenantID, p.ID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	if supplierResolved(existing.SupplierID) {
		if _, err := applyEntityDeltaTx(ctx, tx, existing.TenantID, domain.SettlementSupplierOut, existing.SupplierID, p.TotalCents-existing.TotalCents); err != nil {
			return nil, err
		}
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE purchases
		SET items = $3, total_cents = $4
		WHERE tenant_id = $1 AND id = $2
	`, existing.TenantID, existing.ID, itemsJSON, p.TotalCents)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	existing.Items = p.Items
	existing.TotalCents = p.TotalCents
	return &existing, nil
}

func (s *Store) DeletePurchase(ctx context.Context, tenantID, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	existing, err := scanPurchase(tx.QueryRowContext(ctx, `
		DELETE FROM purchases
		WHERE tenant_id = $1 AND id = $2
		RETURNING id, tenant_id, supplier_id, date, items, total_cents, created_at
	`, tenantID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		return err
	}

	if supplierResolved(existing.SupplierID) {
		// The supplier may have been deleted since; a missing row is fine here.
		if _, err := applyEntityDeltaTx(ctx, tx, tenantID, domain.SettlementSupplierOut, existing.SupplierID, -existing.TotalCents); err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) ListPurchases(ctx context.Context, tenantID string) ([]domain.Purchase, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, supplier_id, date, items, total_cents, created_at
		FROM purchases
		WHERE tenant_id = $1
		ORDER BY date DESC, id DESC
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	purchases := make([]domain.Purchase, 0, 32)
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, err
		}
		purchases = append(purchases, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return purchases, nil
}

// --- Catalog ---

func (s *Store) CreateProduct(ctx context.Context, p domain.Product) (*domain.Product, error) {
	if p.TenantID == "" || p.ID == "" || p.Name == "" || p.PriceCents < 0 {
		return nil, store.ErrInvalid
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO products (id, tenant_id, name, category, price_cents, cost_cents, stock, min_stock, sku, barcode)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, p.ID, p.TenantID, p.Name, p.Category, p.PriceCents, p.CostCents, p.Stock, p.MinStock, p.SKU, p.Barcode)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalid
		}
		return nil, err
	}

	if p.Stock > 0 {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO stock_movements (id, tenant_id, product_id, product_name, type, qty, date, reason)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		`, xid.New("mv"), p.TenantID, p.ID, p.Name, domain.MovementIn, p.Stock, time.Now().UTC(), "Stock initial")
		if err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	created := p
	return &created, nil
}

func (s *Store) ListProducts(ctx context.Context, tenantID string) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, name, category, price_cents, cost_cents, stock, min_stock, sku, barcode
		FROM products
		WHERE tenant_id = $1
		ORDER BY category, name
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 128)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.TenantID, &p.Name, &p.Category, &p.PriceCents, &p.CostCents, &p.Stock, &p.MinStock, &p.SKU, &p.Barcode); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) ListStockMovements(ctx context.Context, tenantID string, limit int) ([]domain.StockMovement, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, product_id, product_name, type, qty, date, reason
		FROM stock_movements
		WHERE tenant_id = $1
		ORDER BY date DESC, id DESC
		LIMIT $2
	`, tenantID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	movements := make([]domain.StockMovement, 0, limit)
	for rows.Next() {
		var mv domain.StockMovement
		if err := rows.Scan(&mv.ID, &mv.TenantID, &mv.ProductID, &mv.ProductName, &mv.Type, &mv.Qty, &mv.Date, &mv.Reason); err != nil {
			return nil, err
		}
		movements = append(movements, mv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return movements, nil
}

// --- Expenses ---

func (s *Store) CreateExpense(ctx context.Context, e domain.Expense) (*domain.Expense, error) {
	if e.TenantID == "" || e.ID == "" || e.Description == "" {
		return nil, store.ErrInvalid
	}
	if e.AmountCents <= 0 {
		return nil, store.ErrInvalidAmount
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO expenses (id, tenant_id, description, amount_cents, category, date)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, e.ID, e.TenantID, e.Description, e.AmountCents, e.Category, e.Date)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalid
		}
		return nil, err
	}

	created := e
	return &created, nil
}

func (s *Store) DeleteExpense(ctx context.Context, tenantID, id string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM expenses WHERE tenant_id = $1 AND id = $2
	`, tenantID, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListExpenses(ctx context.Context, tenantID string) ([]domain.Expense, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, description, amount_cents, category, date
		FROM expenses
		WHERE tenant_id = $1
		ORDER BY date DESC, id DESC
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	expenses := make([]domain.Expense, 0, 32)
	for rows.Next() {
		var e domain.Expense
		if err := rows.Scan(&e.ID, &e.TenantID, &e.Description, &e.AmountCents, &e.Category, &e.Date); err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return expenses, nil
}

// --- Reporting / audit ---

func (s *Store) GetLedgerSummary(ctx context.Context, tenantID string) (domain.LedgerSummary, error) {
	summary := domain.LedgerSummary{TenantID: tenantID}

	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(balance_cents), 0), COUNT(*)
		FROM customers
		WHERE tenant_id = $1
	`, tenantID).Scan(&summary.ReceivablesCents, &summary.Customers)
	if err != nil {
		return domain.LedgerSummary{}, err
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(debt_cents), 0), COUNT(*)
		FROM suppliers
		WHERE tenant_id = $1
	`, tenantID).Scan(&summary.PayablesCents, &summary.Suppliers)
	if err != nil {
		return domain.LedgerSummary{}, err
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM sales
		WHERE tenant_id = $1 AND is_paid = false
	`, tenantID).Scan(&summary.UnpaidSales)
	if err != nil {
		return domain.LedgerSummary{}, err
	}

	summary.GeneratedAt = time.Now().UTC().Format(time.RFC3339)
	return summary, nil
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, tenant_id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, entry.ID, entry.TenantID, entry.ActorUsername, entry.ActorRole, entry.Action, entry.EntityType, entry.EntityID, entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, tenantID string, from, to time.Time, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		WHERE tenant_id = $1 AND created_at BETWEEN $2 AND $3
		ORDER BY created_at DESC
		LIMIT $4
	`, tenantID, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.TenantID, &entry.ActorUsername, &entry.ActorRole, &entry.Action, &entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

// --- Auth accounts ---

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	if user.Username == "" || user.Password == "" {
		return store.ErrInvalid
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password, role, tenant_id, active, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, user.Username, user.Password, user.Role, user.TenantID, user.Active, user.CreatedAt)
	if err != nil && isUniqueViolation(err) {
		return store.ErrInvalid
	}
	return err
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, tenant_id, active, created_at
		FROM users
		ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 8)
	for rows.Next() {
		var u domain.UserAccount
		if err := rows.Scan(&u.Username, &u.Password, &u.Role, &u.TenantID, &u.Active, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET password = $2 WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
