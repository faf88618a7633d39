package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/okian/rebar/pkg/metrics"
	"golang.org/x/time/rate"
)

const (
	throttleCleanupEvery = 5 * time.Minute
	throttleIdleAfter    = 10 * time.Minute
)

// Throttle limits the request rate per remote address with a token bucket.
type Throttle struct {
	mu        sync.Mutex
	limiters  map[string]*limiterEntry
	rate      rate.Limit
	burst     int
	cleanupAt time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewThrottle creates a throttle allowing rps sustained requests per address
// with bursts of up to burst.
func NewThrottle(rps float64, burst int) *Throttle {
	return &Throttle{
		limiters:  make(map[string]*limiterEntry),
		rate:      rate.Limit(rps),
		burst:     burst,
		cleanupAt: time.Now().Add(throttleCleanupEvery),
	}
}

// Allow reports whether a request from addr may proceed.
func (t *Throttle) Allow(addr string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	if now.After(t.cleanupAt) {
		t.cleanup(now)
		t.cleanupAt = now.Add(throttleCleanupEvery)
	}

	entry, ok := t.limiters[addr]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(t.rate, t.burst)}
		t.limiters[addr] = entry
	}
	entry.lastSeen = now
	return entry.limiter.Allow()
}

// cleanup drops idle limiters. Must be called with mu held.
func (t *Throttle) cleanup(now time.Time) {
	cutoff := now.Add(-throttleIdleAfter)
	for addr, entry := range t.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(t.limiters, addr)
		}
	}
}

// Active returns the number of tracked addresses.
func (t *Throttle) Active() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.limiters)
}

// Wrap rejects requests over the per-address rate with 429.
func (t *Throttle) Wrap(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !t.Allow(remoteHost(r)) {
			metrics.RecordThrottled(endpoint)
			writeError(w, http.StatusTooManyRequests, "throttled", wrapKind("api."+endpoint, ErrThrottled, nil))
			return
		}
		next(w, r)
	}
}
