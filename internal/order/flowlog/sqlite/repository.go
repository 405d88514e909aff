// Package sqlite provides a SQLite-backed implementation of
// flowlog.Repository, sharing the WAL/pragma conventions of the order store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/merchkit/order-service/internal/order/flowlog"

	_ "modernc.org/sqlite"
)

// schema is the DDL executed once on startup. The table is append-only:
// each row is an immutable event in a workflow run. Querying MAX(updated_at)
// per order_id gives the run's current state.
const schema = `
CREATE TABLE IF NOT EXISTS order_flow_logs (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,

    -- Business identifier. Not UNIQUE: multiple rows per run, and empty
    -- when the run failed before an order row existed.
    order_id        TEXT NOT NULL DEFAULT '',

    user_id         TEXT NOT NULL DEFAULT '',

    status          TEXT NOT NULL,

    -- Workflow step that just executed (e.g. "adjust_stock").
    step            TEXT NOT NULL DEFAULT '',

    -- JSON array of error strings.
    error_messages  TEXT NOT NULL DEFAULT '[]',

    -- W3C trace correlation ids from the active OTel span.
    trace_id        TEXT NOT NULL DEFAULT '',
    span_id         TEXT NOT NULL DEFAULT '',

    -- RFC3339 TEXT timestamp.
    updated_at      TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_flow_logs_order_id ON order_flow_logs(order_id, updated_at);
CREATE INDEX IF NOT EXISTS idx_flow_logs_trace_id ON order_flow_logs(trace_id);
`

// Repository is the SQLite implementation of flowlog.Repository.
type Repository struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at the given path and applies
// the schema.
func Open(path string) (*Repository, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: apply flow log schema: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

// Append inserts a new flow log entry. Safe to call concurrently.
func (r *Repository) Append(ctx context.Context, entry *flowlog.Entry) error {
	const q = `
		INSERT INTO order_flow_logs
			(order_id, user_id, status, step, error_messages, trace_id, span_id, updated_at)
		VALUES
			(?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, q,
		entry.OrderID,
		entry.UserID,
		string(entry.Status),
		entry.Step,
		entry.ErrorMessages,
		entry.TraceID,
		entry.SpanID,
		entry.UpdatedAt.UTC().Format("2006-01-02T15:04:05.999999999Z"),
	)
	if err != nil {
		return fmt.Errorf("sqlite: append flow log for %q: %w", entry.OrderID, err)
	}
	return nil
}

// Latest returns the most recent entry for an order id — handy for a status
// endpoint or for inspecting a stranded run.
func (r *Repository) Latest(ctx context.Context, orderID string) (*flowlog.Entry, error) {
	const q = `
		SELECT order_id, user_id, status, step, error_messages, trace_id, span_id, updated_at
		FROM   order_flow_logs
		WHERE  order_id = ?
		ORDER  BY updated_at DESC, id DESC
		LIMIT  1`

	row := r.db.QueryRowContext(ctx, q, orderID)

	var entry flowlog.Entry
	var status, updatedAt string
	err := row.Scan(&entry.OrderID, &entry.UserID, &status, &entry.Step,
		&entry.ErrorMessages, &entry.TraceID, &entry.SpanID, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sqlite: no flow log for %q", orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: latest flow log for %q: %w", orderID, err)
	}

	entry.Status = flowlog.Status(status)
	entry.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("sqlite: parse time %q: %w", updatedAt, err)
	}
	return &entry, nil
}
