// Package storage defines the persistence interface for the event pipeline
// and constructs the SQLite backend that implements it.
package storage

import (
	"context"

	"github.com/MattB543/asheville-event-feed-sub002/internal/storage/sqlite"
	"github.com/MattB543/asheville-event-feed-sub002/internal/types"
)

// Storage defines the interface the pipeline requires from its store:
// point lookups, predicate-filtered bounded scans, single-row conditional
// updates, and batch delete.
type Storage interface {
	// Events
	CreateEvent(ctx context.Context, event *types.Event) error
	GetEvent(ctx context.Context, id string) (*types.Event, error)
	ListEvents(ctx context.Context, filter types.EventFilter) ([]*types.Event, error)
	DeleteEvents(ctx context.Context, ids []string) (int, error)
	CountEvents(ctx context.Context) (int, error)

	// Conditional single-row updates. Each sets its field only when the row
	// is still missing it, making concurrent passes safe without locking.
	SetEnrichment(ctx context.Context, id string, tags []string, summary string) error
	SetEmbedding(ctx context.Context, id string, embedding []float32) error
	SetScore(ctx context.Context, id string, score *types.ScoreRecord) error

	// UpdateDescription overwrites the description unconditionally. Used by
	// fingerprint dedup to merge the longest description into the survivor.
	UpdateDescription(ctx context.Context, id string, description string) error

	// Signals
	CreateSignal(ctx context.Context, signal *types.Signal) error
	DeactivateSignal(ctx context.Context, id string) error
	GetSignalsByUser(ctx context.Context, userID string) ([]*types.Signal, error)

	// Lifecycle
	Close() error
}

// Config holds database configuration.
type Config struct {
	// Path is the SQLite database file path.
	// Special value ":memory:" creates an in-memory database (useful for tests).
	Path string
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Path: ".feedpipe/events.db",
	}
}

// NewStorage creates a new SQLite storage backend.
func NewStorage(ctx context.Context, cfg *Config) (Storage, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Path == "" {
		cfg.Path = DefaultConfig().Path
	}
	return sqlite.New(cfg.Path)
}

// Compile-time check that the SQLite backend satisfies the interface.
var _ Storage = (*sqlite.Store)(nil)
