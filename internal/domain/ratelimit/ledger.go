// Package ratelimit implements the per-submitter hourly submission gate.
package ratelimit

import (
	"time"

	"github.com/okian/rebar/internal/domain/identity"
)

// Default gate configuration.
const (
	DefaultLimit  = 10
	DefaultWindow = time.Hour
	DefaultReseed = 3
)

// Entry is one submitter's ledger row.
type Entry struct {
	LastTime float64 `json:"last_time"` // seconds since epoch of the latest accepted submission
	Count    int     `json:"count"`
}

// Option applies a configuration option to the Ledger.
type Option func(*Ledger)

// WithLimit sets how many submissions a submitter gets inside one window.
func WithLimit(limit int) Option {
	return func(l *Ledger) {
		if limit > 0 {
			l.limit = limit
		}
	}
}

// WithWindow sets the window after which the count no longer blocks.
func WithWindow(window time.Duration) Option {
	return func(l *Ledger) {
		if window > 0 {
			l.window = window.Seconds()
		}
	}
}

// WithReseed sets the count a returning submitter restarts at once their
// window has lapsed.
func WithReseed(reseed int) Option {
	return func(l *Ledger) {
		if reseed >= 0 {
			l.reseed = reseed
		}
	}
}

// Ledger maps submitters to their latest submission time and count.
//
// A submission is allowed when the window since the submitter's last accepted
// submission has lapsed, or when the count is still below the limit.
// Ledger is not safe for concurrent use; the owning store serialises access.
type Ledger struct {
	entries map[identity.CallerID]Entry
	limit   int
	window  float64
	reseed  int
}

// NewLedger creates an empty ledger with configuration options.
func NewLedger(opts ...Option) *Ledger {
	l := &Ledger{
		entries: make(map[identity.CallerID]Entry),
		limit:   DefaultLimit,
		window:  DefaultWindow.Seconds(),
		reseed:  DefaultReseed,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow reports whether caller may submit at now (epoch seconds).
func (l *Ledger) Allow(caller identity.CallerID, now float64) bool {
	e, ok := l.entries[caller]
	if !ok {
		return true
	}
	return now-e.LastTime > l.window || e.Count < l.limit
}

// Record books an accepted submission at now. A first-time submitter starts
// at 1; a submitter whose window lapsed restarts at the reseed value.
func (l *Ledger) Record(caller identity.CallerID, now float64) {
	e, ok := l.entries[caller]
	switch {
	case !ok:
		e.Count = 1
	case now-e.LastTime > l.window:
		e.Count = l.reseed
	default:
		e.Count++
	}
	e.LastTime = now
	l.entries[caller] = e
}

// Get returns caller's entry.
func (l *Ledger) Get(caller identity.CallerID) (Entry, bool) {
	e, ok := l.entries[caller]
	return e, ok
}

// Len returns the number of tracked submitters.
func (l *Ledger) Len() int {
	return len(l.entries)
}

// Entries returns a copy of every row.
func (l *Ledger) Entries() map[identity.CallerID]Entry {
	out := make(map[identity.CallerID]Entry, len(l.entries))
	for k, v := range l.entries {
		out[k] = v
	}
	return out
}

// Restore replaces all rows with a copy of entries.
func (l *Ledger) Restore(entries map[identity.CallerID]Entry) {
	l.entries = make(map[identity.CallerID]Entry, len(entries))
	for k, v := range entries {
		l.entries[k] = v
	}
}
