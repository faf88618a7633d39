// Package repository holds the ranking store: submitted items, the ranked
// view and the gates that guard mutation.
package repository

import (
	"context"

	"github.com/okian/rebar/internal/domain/identity"
	"github.com/okian/rebar/internal/domain/model"
	"github.com/okian/rebar/internal/domain/ratelimit"
)

// Store provides read/write access to the ranking state.
type Store interface {
	// Submit appends item and returns its permanent index.
	// Returns ErrDuplicate or ErrRateLimited without modifying the store.
	Submit(ctx context.Context, item model.Item) (int, error)

	// Vote upvotes the item at index on behalf of caller. Unknown indices and
	// repeat voters are ignored. Reports whether the vote was applied.
	Vote(ctx context.Context, index int, caller identity.CallerID) bool

	// Recompute rebuilds the ranked view from current scores.
	Recompute(ctx context.Context)

	// ListRanked returns a copy of the ranked view, best first.
	ListRanked(ctx context.Context) []int

	// GetItem returns a copy of the item at index.
	GetItem(ctx context.Context, index int) (model.Item, bool)

	// Export clones the full state for backup.
	Export(ctx context.Context) *State

	// Import validates and installs a previously exported state.
	// Returns ErrCorruptState if it violates store invariants.
	Import(ctx context.Context, st *State) error

	// Stats returns current sizes.
	Stats(ctx context.Context) Stats
}

// State is the full, self-contained store state used for backup and restore.
type State struct {
	Items   []model.Item
	Ranked  []int
	Pending int
	Ledger  map[identity.CallerID]ratelimit.Entry
	Seen    []string
}

// Stats summarises store sizes.
type Stats struct {
	Items      int
	Ranked     int
	Pending    int
	Submitters int
	SeenKeys   int
}
