// Package sqlite provides a SQLite-backed implementation of
// eventlog.Repository.
//
// WAL mode is enabled on Open so that readers never block writers and vice
// versa — the webhook goroutine appends while a support query may be reading.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jcmexdev/pix-checkout/internal/checkout/eventlog"

	// Register the pure-Go SQLite driver. modernc.org/sqlite avoids CGO,
	// which keeps the Docker build on Alpine simple.
	_ "modernc.org/sqlite"
)

// schema is the DDL executed once on startup. The table is append-only:
// each row is an immutable observation about a payment.
const schema = `
CREATE TABLE IF NOT EXISTS payment_events (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,

    -- Processor-side payment identifier. Not UNIQUE: one row per observation.
    payment_id  TEXT    NOT NULL,

    -- What was observed (WEBHOOK_RECEIVED, STATUS_FETCHED, DELIVERED, ...).
    kind        TEXT    NOT NULL,

    -- Processor status at the time, when known.
    status      TEXT    NOT NULL DEFAULT '',

    -- Free-form context: error message, resolved link count, etc.
    detail      TEXT    NOT NULL DEFAULT '',

    -- W3C trace_id / span_id from the active OTel span, for joining with traces.
    trace_id    TEXT    NOT NULL DEFAULT '',
    span_id     TEXT    NOT NULL DEFAULT '',

    -- RFC3339 timestamp stored as TEXT, SQLite idiom.
    created_at  TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_payment_events_payment_id ON payment_events(payment_id, created_at);
CREATE INDEX IF NOT EXISTS idx_payment_events_trace_id ON payment_events(trace_id);
`

const timeLayout = "2006-01-02T15:04:05.999999999Z"

// Repository is the SQLite implementation of eventlog.Repository.
type Repository struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at the given path and applies
// the schema.
func Open(path string) (*Repository, error) {
	// The pure-Go driver takes pragmas as query parameters. WAL enables
	// concurrent readers; busy_timeout waits for locks instead of failing.
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)

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

	return &Repository{db: db}, nil
}

// Close releases the database connection. Call it with defer in main().
func (r *Repository) Close() error {
	return r.db.Close()
}

// Append inserts a new payment event. Safe to call concurrently.
func (r *Repository) Append(ctx context.Context, ev *eventlog.Event) error {
	const q = `
		INSERT INTO payment_events
			(payment_id, kind, status, detail, trace_id, span_id, created_at)
		VALUES
			(?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, q,
		ev.PaymentID,
		string(ev.Kind),
		ev.Status,
		ev.Detail,
		ev.TraceID,
		ev.SpanID,
		ev.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("sqlite: append event for %q: %w", ev.PaymentID, err)
	}
	return nil
}

// ListByPayment returns every event recorded for a payment, oldest first.
// This is the support-staff query behind manual recovery.
func (r *Repository) ListByPayment(ctx context.Context, paymentID string) ([]eventlog.Event, error) {
	const q = `
		SELECT payment_id, kind, status, detail, trace_id, span_id, created_at
		FROM   payment_events
		WHERE  payment_id = ?
		ORDER  BY created_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, q, paymentID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list events for %q: %w", paymentID, err)
	}
	defer rows.Close()

	var events []eventlog.Event
	for rows.Next() {
		var ev eventlog.Event
		var createdAt string
		if err := rows.Scan(&ev.PaymentID, &ev.Kind, &ev.Status, &ev.Detail, &ev.TraceID, &ev.SpanID, &createdAt); err != nil {
			return nil, fmt.Errorf("sqlite: scan event for %q: %w", paymentID, err)
		}
		ev.CreatedAt, err = time.Parse(timeLayout, createdAt)
		if err != nil {
			return nil, fmt.Errorf("sqlite: parse created_at %q: %w", createdAt, err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
