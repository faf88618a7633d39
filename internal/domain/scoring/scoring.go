// Package scoring turns an item's vote count and age into a sortable score.
package scoring

import "math"

// DefaultWeight is one hour of recency per natural-log unit of votes.
const DefaultWeight = 3600.0

// Option applies a configuration option to the Scorer.
type Option func(*Scorer)

// WithWeight sets the vote weight. Non-positive weights are ignored.
func WithWeight(weight float64) Option {
	return func(s *Scorer) {
		if weight > 0 {
			s.weight = weight
		}
	}
}

// Input abstracts the item fields needed for scoring.
type Input struct {
	Votes       int
	SubmittedAt float64
}

// Score computes submittedAt + weight*ln(votes+1).
//
// Votes are log-weighted so a heavily voted item cannot stay on top forever;
// newer items overtake it as time passes. Zero votes rank by pure recency.
// Negative vote counts are clamped to zero.
func Score(votes int, submittedAt, weight float64) float64 {
	if votes < 0 {
		votes = 0
	}
	return submittedAt + weight*math.Log1p(float64(votes))
}

// Scorer is Score bound to a configured weight.
type Scorer struct {
	weight float64
}

// NewScorer creates a scorer with configuration options.
func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{weight: DefaultWeight}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score computes the score for in.
func (s *Scorer) Score(in Input) float64 {
	return Score(in.Votes, in.SubmittedAt, s.weight)
}

// Weight returns the configured vote weight.
func (s *Scorer) Weight() float64 {
	return s.weight
}
