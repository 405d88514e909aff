// Package sqlite provides the SQLite-backed order store.
//
// WAL mode is enabled on Open so that readers never block writers and vice
// versa — the query side may be listing a user's orders while the
// orchestrator is persisting a new one.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/merchkit/order-service/internal/order/domain"

	// Register the pure-Go SQLite driver. modernc.org/sqlite avoids CGO,
	// which keeps Docker (Alpine) builds trivial.
	_ "modernc.org/sqlite"
)

// schema is the DDL executed once on startup. Two tables: the order header
// and its lines. Items are owned exclusively by their order — they have no
// lifecycle of their own and are only ever written together with the header.
const schema = `
CREATE TABLE IF NOT EXISTS orders (
    -- UUID assigned by the store on insert.
    id                      TEXT PRIMARY KEY,

    user_id                 TEXT NOT NULL,

    -- Moment the order was placed (RFC3339 TEXT, SQLite idiom).
    order_date              TEXT NOT NULL,

    status                  TEXT NOT NULL,

    -- Integer cents.
    total_amount            INTEGER NOT NULL,

    shipping_line1          TEXT NOT NULL,
    shipping_line2          TEXT NOT NULL DEFAULT '',
    shipping_city           TEXT NOT NULL,
    shipping_postal_code    TEXT NOT NULL,
    shipping_country        TEXT NOT NULL,

    billing_line1           TEXT NOT NULL,
    billing_line2           TEXT NOT NULL DEFAULT '',
    billing_city            TEXT NOT NULL,
    billing_postal_code     TEXT NOT NULL,
    billing_country         TEXT NOT NULL,

    payment_method          TEXT NOT NULL,

    -- Written by the payment layer, never by this service.
    payment_transaction_id  TEXT,

    created_at              TEXT NOT NULL,
    updated_at              TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS order_items (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    order_id        TEXT NOT NULL REFERENCES orders(id),
    product_id      TEXT NOT NULL,

    -- Snapshots taken at order-creation time; never refreshed.
    product_name    TEXT NOT NULL,
    quantity        INTEGER NOT NULL,
    price           INTEGER NOT NULL,
    subtotal        INTEGER NOT NULL,

    store_id        TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_orders_user_id       ON orders(user_id, order_date);
CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items(order_id);
CREATE INDEX IF NOT EXISTS idx_order_items_product  ON order_items(product_id);
`

// Store persists the Order aggregate. It is the only component in the
// service with local transactional guarantees.
type Store struct {
	db      *sql.DB
	nowFunc func() time.Time
}

// Open opens (or creates) the SQLite database at the given path and applies
// the schema.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)", path)

	// "sqlite", not "sqlite3", for the modernc driver.
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}

	// SQLite performs best with a single writer connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}

	return &Store{db: db, nowFunc: time.Now}, nil
}

// Close releases the database connection. Call it with defer in main().
func (s *Store) Close() error {
	return s.db.Close()
}

// Create persists the order and its items in one local transaction, assigns
// the surrogate id, and stamps the timestamps. On return the passed order
// reflects the persisted state.
func (s *Store) Create(ctx context.Context, o *domain.Order) error {
	now := s.nowFunc().UTC()
	o.ID = uuid.NewString()
	if o.OrderDate.IsZero() {
		o.OrderDate = now
	}
	o.CreatedAt = now
	o.UpdatedAt = now

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin create order: %w", err)
	}
	defer tx.Rollback()

	const insertOrder = `
		INSERT INTO orders
			(id, user_id, order_date, status, total_amount,
			 shipping_line1, shipping_line2, shipping_city, shipping_postal_code, shipping_country,
			 billing_line1, billing_line2, billing_city, billing_postal_code, billing_country,
			 payment_method, payment_transaction_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = tx.ExecContext(ctx, insertOrder,
		o.ID, o.UserID, formatTime(o.OrderDate), string(o.Status), o.TotalCents,
		o.ShippingAddress.Line1, o.ShippingAddress.Line2, o.ShippingAddress.City,
		o.ShippingAddress.PostalCode, o.ShippingAddress.Country,
		o.BillingAddress.Line1, o.BillingAddress.Line2, o.BillingAddress.City,
		o.BillingAddress.PostalCode, o.BillingAddress.Country,
		o.PaymentMethod, o.PaymentTransactionID,
		formatTime(o.CreatedAt), formatTime(o.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("sqlite: insert order: %w", err)
	}

	const insertItem = `
		INSERT INTO order_items
			(order_id, product_id, product_name, quantity, price, subtotal, store_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	for i := range o.Items {
		it := &o.Items[i]
		res, err := tx.ExecContext(ctx, insertItem,
			o.ID, it.ProductID, it.ProductName, it.Quantity, it.PriceCents, it.Subtotal, it.StoreID)
		if err != nil {
			return fmt.Errorf("sqlite: insert order item %s: %w", it.ProductID, err)
		}
		if it.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("sqlite: order item id: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit create order: %w", err)
	}
	return nil
}

const orderColumns = `
	id, user_id, order_date, status, total_amount,
	shipping_line1, shipping_line2, shipping_city, shipping_postal_code, shipping_country,
	billing_line1, billing_line2, billing_city, billing_postal_code, billing_country,
	payment_method, payment_transaction_id, created_at, updated_at`

// GetByID loads one order with its items, in line order.
// Returns domain.ErrOrderNotFound when the id is unknown.
func (s *Store) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get order %q: %w", id, err)
	}
	if err := s.loadItems(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// ListByUser returns the user's orders, newest first, items included.
func (s *Store) ListByUser(ctx context.Context, userID string) ([]*domain.Order, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = ? ORDER BY order_date DESC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list orders of %q: %w", userID, err)
	}
	defer rows.Close()

	var out []*domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan order: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: list orders of %q: %w", userID, err)
	}

	for _, o := range out {
		if err := s.loadItems(ctx, o); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// UpdateStatus overwrites the status and bumps updated_at.
// Returns domain.ErrOrderNotFound when the id is unknown.
func (s *Store) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE orders SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), formatTime(s.nowFunc().UTC()), id)
	if err != nil {
		return fmt.Errorf("sqlite: update status of %q: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: update status of %q: %w", id, err)
	}
	if n == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

// ExistsByUserAndProduct is the purchase-history predicate: true when the
// user has any order containing the product whose status has progressed
// beyond PENDING and was not cancelled.
func (s *Store) ExistsByUserAndProduct(ctx context.Context, userID, productID string) (bool, error) {
	const q = `
		SELECT EXISTS (
			SELECT 1
			FROM   orders o
			JOIN   order_items i ON i.order_id = o.id
			WHERE  o.user_id = ?
			AND    i.product_id = ?
			AND    o.status NOT IN (?, ?)
		)`

	var exists bool
	err := s.db.QueryRowContext(ctx, q, userID, productID,
		string(domain.StatusPending), string(domain.StatusCancelled)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("sqlite: purchase check %q/%q: %w", userID, productID, err)
	}
	return exists, nil
}

func (s *Store) loadItems(ctx context.Context, o *domain.Order) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_id, product_name, quantity, price, subtotal, store_id
		FROM   order_items
		WHERE  order_id = ?
		ORDER  BY id`, o.ID)
	if err != nil {
		return fmt.Errorf("sqlite: load items of %q: %w", o.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(&it.ID, &it.ProductID, &it.ProductName,
			&it.Quantity, &it.PriceCents, &it.Subtotal, &it.StoreID); err != nil {
			return fmt.Errorf("sqlite: scan item of %q: %w", o.ID, err)
		}
		o.Items = append(o.Items, it)
	}
	return rows.Err()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(row scanner) (*domain.Order, error) {
	var (
		o                               domain.Order
		status                          string
		orderDate, createdAt, updatedAt string
		txnID                           sql.NullString
	)
	err := row.Scan(
		&o.ID, &o.UserID, &orderDate, &status, &o.TotalCents,
		&o.ShippingAddress.Line1, &o.ShippingAddress.Line2, &o.ShippingAddress.City,
		&o.ShippingAddress.PostalCode, &o.ShippingAddress.Country,
		&o.BillingAddress.Line1, &o.BillingAddress.Line2, &o.BillingAddress.City,
		&o.BillingAddress.PostalCode, &o.BillingAddress.Country,
		&o.PaymentMethod, &txnID, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	o.Status = domain.OrderStatus(status)
	if txnID.Valid {
		o.PaymentTransactionID = &txnID.String
	}
	if o.OrderDate, err = parseTime(orderDate); err != nil {
		return nil, err
	}
	if o.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if o.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &o, nil
}
