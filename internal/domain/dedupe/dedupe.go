// Package dedupe tracks canonical content keys that were already submitted.
package dedupe

import (
	"context"
	"sort"
	"sync"
)

// Deduper records seen content keys.
type Deduper interface {
	// SeenAndRecord atomically checks if key was seen and records it if not.
	// Returns true if key was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, key string) bool

	// Seen reports whether key was recorded, without recording it.
	Seen(ctx context.Context, key string) bool

	// Unrecord removes a key, used to roll back a submission that failed a
	// later gate.
	Unrecord(ctx context.Context, key string)

	// Keys returns every recorded key in sorted order.
	Keys(ctx context.Context) []string

	// Reset replaces the recorded set with keys.
	Reset(ctx context.Context, keys []string)

	Size() int64
}

// inMemoryDeduper implements Deduper with a set. Keys are never evicted:
// a submission stays a duplicate for the lifetime of the store.
type inMemoryDeduper struct {
	mu   sync.RWMutex
	seen map[string]struct{}
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{}
	cfg := options{}
	for _, opt := range opts {
		opt(&cfg)
	}
	d.seen = make(map[string]struct{}, cfg.sizeHint)
	return d
}

// SeenAndRecord implements Deduper.
func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[key]; ok {
		return true
	}
	d.seen[key] = struct{}{}
	return false
}

// Seen implements Deduper.
func (d *inMemoryDeduper) Seen(_ context.Context, key string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.seen[key]
	return ok
}

// Unrecord implements Deduper.
func (d *inMemoryDeduper) Unrecord(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, key)
}

// Keys implements Deduper.
func (d *inMemoryDeduper) Keys(_ context.Context) []string {
	d.mu.RLock()
	out := make([]string, 0, len(d.seen))
	for k := range d.seen {
		out = append(out, k)
	}
	d.mu.RUnlock()

	sort.Strings(out)
	return out
}

// Reset implements Deduper.
func (d *inMemoryDeduper) Reset(_ context.Context, keys []string) {
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		seen[k] = struct{}{}
	}

	d.mu.Lock()
	d.seen = seen
	d.mu.Unlock()
}

// Size returns the current number of recorded keys.
func (d *inMemoryDeduper) Size() int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return int64(len(d.seen))
}
