// Package storage defines the Store interface for optional command history
// persistence. Two backends are provided: SQLite (default, zero-config) and
// PostgreSQL (shared/multi-host deployments).
package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// HistoryEvent is one executed command, as recorded by the history store.
// Events are append-only: they are never updated or deleted.
type HistoryEvent struct {
	ID        uuid.UUID `json:"id"`
	SessionID string    `json:"session_id"`
	Seq       int       `json:"sequence_number"`
	Timestamp time.Time `json:"timestamp"`
	Command   string    `json:"command"`
	Args      []string  `json:"args,omitempty"`
	Success   bool      `json:"success"`
}

// HistoryStore persists executed commands.
type HistoryStore interface {
	// Append records a single event. The only write method —
	// immutability is enforced at the interface level.
	Append(ctx context.Context, event HistoryEvent) error

	// BySession returns events for a session, oldest first.
	// Limit defaults to 100 when <= 0.
	BySession(ctx context.Context, sessionID string, limit int) ([]HistoryEvent, error)
}

// Store is the persistence interface for Ganda.
// Both SQLite and PostgreSQL backends implement it.
type Store interface {
	History() HistoryStore

	// Lifecycle.
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error

	// Driver returns the storage driver name ("sqlite" or "postgres").
	Driver() string
}

// Config holds storage configuration for driver selection.
type Config struct {
	Driver string `json:"driver"`         // "sqlite" (default) or "postgres"
	Path   string `json:"path,omitempty"` // SQLite database file path.
	DSN    string `json:"dsn,omitempty"`  // PostgreSQL connection string.
}

// DefaultDriver is the default storage driver.
const DefaultDriver = "sqlite"

// DriverSQLite is the SQLite driver name.
const DriverSQLite = "sqlite"

// DriverPostgres is the PostgreSQL driver name.
const DriverPostgres = "postgres"
