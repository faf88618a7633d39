// Package backup snapshots the ranking store to durable storage and reloads
// it on startup. Snapshots are best effort: whatever changed since the last
// save is lost on a crash.
package backup

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/rebar/internal/adapters/repository"
)

// Supported drivers.
const (
	DriverNone   = "none"
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// Store persists and restores store state.
type Store interface {
	// Load returns the most recent snapshot, or ErrNoSnapshot.
	Load(ctx context.Context) (*repository.State, error)
	// Save writes st as the most recent snapshot.
	Save(ctx context.Context, st *repository.State) error
	// Close releases backend resources.
	Close() error
}

// Open builds the backend named by driver. DriverNone is not a backend;
// callers skip backup entirely for it.
func Open(ctx context.Context, driver, path string, opts ...Option) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case DriverFile:
		return NewFileStore(path, opts...), nil
	case DriverSQLite:
		return NewSQLiteStore(ctx, path, opts...)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}
