package repository

import (
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/okian/rebar/internal/domain/ratelimit"
	"github.com/okian/rebar/internal/domain/scoring"
)

// Default store configuration.
const (
	DefaultRetention          = 500
	DefaultSubmitWeight       = 5
	DefaultVoteWeight         = 1
	DefaultRecomputeThreshold = 2
)

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithClock sets the clock used for submission times and the rate gate.
func WithClock(clock clockwork.Clock) Option {
	return func(s *MemoryStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithRetention sets how many of the most recent items are eligible for the
// ranked view.
func WithRetention(n int) Option {
	return func(s *MemoryStore) {
		if n > 0 {
			s.retention = n
		}
	}
}

// WithScoreWeight sets the vote weight of the scoring function.
func WithScoreWeight(weight float64) Option {
	return func(s *MemoryStore) {
		s.scorer = scoring.NewScorer(scoring.WithWeight(weight))
	}
}

// WithRateLimit configures the per-submitter gate: limit submissions per
// window, restarting at reseed once the window lapses.
func WithRateLimit(limit int, window time.Duration, reseed int) Option {
	return func(s *MemoryStore) {
		s.ledgerOpts = append(s.ledgerOpts,
			ratelimit.WithLimit(limit),
			ratelimit.WithWindow(window),
			ratelimit.WithReseed(reseed),
		)
	}
}

// WithRecomputeTrigger sets the pending-change weights and the threshold at
// which a mutation triggers a recompute.
func WithRecomputeTrigger(submitWeight, voteWeight, threshold int) Option {
	return func(s *MemoryStore) {
		if submitWeight >= 0 {
			s.submitWeight = submitWeight
		}
		if voteWeight >= 0 {
			s.voteWeight = voteWeight
		}
		if threshold > 0 {
			s.threshold = threshold
		}
	}
}
