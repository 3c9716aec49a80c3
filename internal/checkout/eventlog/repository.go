package eventlog

import "context"

// Repository is the port for persisting payment events. The workflow depends
// on this abstraction, not on SQLite directly, so the implementation can be
// swapped for Postgres or an in-memory fake in tests.
type Repository interface {
	// Append persists a new event. The table is append-only; every call adds
	// a row, nothing is upserted.
	Append(ctx context.Context, ev *Event) error
}
