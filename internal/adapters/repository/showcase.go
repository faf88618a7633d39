package repository

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/okian/rebar/internal/domain/dedupe"
	"github.com/okian/rebar/internal/domain/identity"
	"github.com/okian/rebar/internal/domain/model"
	"github.com/okian/rebar/internal/domain/ratelimit"
	"github.com/okian/rebar/internal/domain/scoring"
	"github.com/okian/rebar/pkg/metrics"
)

// MemoryStore is the in-memory ranking store.
//
// One mutex guards items, the ranked view, the ledger and the seen set as a
// unit: Submit and Vote read and write several of them and must not
// interleave. Nothing under the lock does I/O; metrics are published after
// it is released.
//
// Ranking: score DESC, then item index ASC for equal scores.
type MemoryStore struct {
	mu      sync.Mutex
	items   []model.Item
	ranked  []int
	pending int
	ledger  *ratelimit.Ledger
	seen    dedupe.Deduper

	scorer       *scoring.Scorer
	clock        clockwork.Clock
	retention    int
	submitWeight int
	voteWeight   int
	threshold    int
	ledgerOpts   []ratelimit.Option
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore constructs an empty store with configuration options.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		scorer:       scoring.NewScorer(),
		clock:        clockwork.NewRealClock(),
		retention:    DefaultRetention,
		submitWeight: DefaultSubmitWeight,
		voteWeight:   DefaultVoteWeight,
		threshold:    DefaultRecomputeThreshold,
		seen:         dedupe.NewInMemoryDeduper(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.ledger = ratelimit.NewLedger(s.ledgerOpts...)
	return s
}

// now returns the clock time in epoch seconds.
func (s *MemoryStore) now() float64 {
	return float64(s.clock.Now().UnixNano()) / float64(time.Second)
}

// Submit implements Store.Submit.
func (s *MemoryStore) Submit(ctx context.Context, item model.Item) (int, error) {
	if item.Source == nil {
		return -1, fmt.Errorf("%w: missing source", ErrInvalidItem)
	}
	key := model.CanonicalKey(item)
	now := s.now()

	s.mu.Lock()
	if s.seen.SeenAndRecord(ctx, key) {
		s.mu.Unlock()
		metrics.RecordSubmission(metrics.SubmissionDuplicate)
		return -1, ErrDuplicate
	}
	if !s.ledger.Allow(item.Submitter, now) {
		s.seen.Unrecord(ctx, key)
		s.mu.Unlock()
		metrics.RecordSubmission(metrics.SubmissionRateLimited)
		return -1, ErrRateLimited
	}

	if item.SubmittedAt == 0 {
		item.SubmittedAt = now
	}
	item.Votes = 0
	item.Voters = make(map[identity.CallerID]struct{})

	index := len(s.items)
	s.items = append(s.items, item)
	s.ledger.Record(item.Submitter, now)
	s.pending += s.submitWeight
	took, recomputed := s.checkRecomputeLocked()
	stats := s.statsLocked()
	s.mu.Unlock()

	metrics.RecordSubmission(metrics.SubmissionAccepted)
	s.publish(stats, took, recomputed, metrics.TriggerAuto)
	return index, nil
}

// Vote implements Store.Vote. The pending counter advances even when the
// vote is ignored.
func (s *MemoryStore) Vote(_ context.Context, index int, caller identity.CallerID) bool {
	s.mu.Lock()
	applied := false
	if index >= 0 && index < len(s.items) {
		applied = s.items[index].Upvote(caller)
	}
	s.pending += s.voteWeight
	took, recomputed := s.checkRecomputeLocked()
	stats := s.statsLocked()
	s.mu.Unlock()

	metrics.RecordVote(applied)
	s.publish(stats, took, recomputed, metrics.TriggerAuto)
	return applied
}

// Recompute implements Store.Recompute.
func (s *MemoryStore) Recompute(_ context.Context) {
	s.mu.Lock()
	took := s.recomputeLocked()
	stats := s.statsLocked()
	s.mu.Unlock()

	s.publish(stats, took, true, metrics.TriggerAdmin)
}

// ListRanked implements Store.ListRanked.
func (s *MemoryStore) ListRanked(_ context.Context) []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.ranked)
}

// GetItem implements Store.GetItem.
func (s *MemoryStore) GetItem(_ context.Context, index int) (model.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.items) {
		return model.Item{}, false
	}
	return s.items[index].Clone(), true
}

// Score returns the current score of the item at index.
func (s *MemoryStore) Score(_ context.Context, index int) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.items) {
		return 0, false
	}
	return s.scoreLocked(index), true
}

// Export implements Store.Export.
func (s *MemoryStore) Export(ctx context.Context) *State {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]model.Item, len(s.items))
	for i := range s.items {
		items[i] = s.items[i].Clone()
	}
	return &State{
		Items:   items,
		Ranked:  slices.Clone(s.ranked),
		Pending: s.pending,
		Ledger:  s.ledger.Entries(),
		Seen:    s.seen.Keys(ctx),
	}
}

// Import implements Store.Import. The ranked view is taken as persisted, not
// recomputed.
func (s *MemoryStore) Import(ctx context.Context, st *State) error {
	if st == nil {
		return fmt.Errorf("%w: nil state", ErrCorruptState)
	}
	if err := s.validate(st); err != nil {
		return err
	}

	items := make([]model.Item, len(st.Items))
	seen := slices.Clone(st.Seen)
	for i := range st.Items {
		items[i] = st.Items[i].Clone()
		seen = append(seen, model.CanonicalKey(items[i]))
	}

	s.mu.Lock()
	s.items = items
	s.ranked = slices.Clone(st.Ranked)
	s.pending = st.Pending
	s.ledger.Restore(st.Ledger)
	s.seen.Reset(ctx, seen)
	stats := s.statsLocked()
	s.mu.Unlock()

	s.publish(stats, 0, false, metrics.TriggerRestore)
	return nil
}

// Stats implements Store.Stats.
func (s *MemoryStore) Stats(_ context.Context) Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statsLocked()
}

// validate checks st against the store invariants.
func (s *MemoryStore) validate(st *State) error {
	if st.Pending < 0 {
		return fmt.Errorf("%w: negative pending changes %d", ErrCorruptState, st.Pending)
	}
	if len(st.Ranked) > s.retention {
		return fmt.Errorf("%w: ranked view has %d entries, retention is %d", ErrCorruptState, len(st.Ranked), s.retention)
	}
	for i, it := range st.Items {
		if it.Source == nil {
			return fmt.Errorf("%w: item %d has no source", ErrCorruptState, i)
		}
		if it.Votes < 0 || it.Votes != len(it.Voters) {
			return fmt.Errorf("%w: item %d has %d votes and %d voters", ErrCorruptState, i, it.Votes, len(it.Voters))
		}
	}
	inView := make(map[int]struct{}, len(st.Ranked))
	for _, idx := range st.Ranked {
		if idx < 0 || idx >= len(st.Items) {
			return fmt.Errorf("%w: ranked index %d out of range", ErrCorruptState, idx)
		}
		if _, dup := inView[idx]; dup {
			return fmt.Errorf("%w: ranked index %d repeated", ErrCorruptState, idx)
		}
		inView[idx] = struct{}{}
	}
	return nil
}

// checkRecomputeLocked recomputes once pending changes reach the threshold.
func (s *MemoryStore) checkRecomputeLocked() (time.Duration, bool) {
	if s.pending < s.threshold {
		return 0, false
	}
	return s.recomputeLocked(), true
}

// recomputeLocked rebuilds the ranked view over the retention window.
func (s *MemoryStore) recomputeLocked() time.Duration {
	start := time.Now()

	n := len(s.items)
	first := max(0, n-s.retention)
	scores := make([]float64, n-first)
	ranked := make([]int, 0, n-first)
	for i := first; i < n; i++ {
		scores[i-first] = s.scoreLocked(i)
		ranked = append(ranked, i)
	}
	slices.SortStableFunc(ranked, func(a, b int) int {
		return cmp.Compare(scores[b-first], scores[a-first])
	})

	s.ranked = ranked
	s.pending = 0
	return time.Since(start)
}

func (s *MemoryStore) scoreLocked(index int) float64 {
	it := &s.items[index]
	return s.scorer.Score(scoring.Input{Votes: it.Votes, SubmittedAt: it.SubmittedAt})
}

func (s *MemoryStore) statsLocked() Stats {
	return Stats{
		Items:      len(s.items),
		Ranked:     len(s.ranked),
		Pending:    s.pending,
		Submitters: s.ledger.Len(),
		SeenKeys:   int(s.seen.Size()),
	}
}

// publish updates gauges outside the lock.
func (s *MemoryStore) publish(st Stats, took time.Duration, recomputed bool, trigger string) {
	if recomputed {
		metrics.RecordRecompute(trigger, float64(took.Microseconds())/1000)
	}
	metrics.UpdateStoreSizes(st.Items, st.Ranked, st.Pending, st.Submitters, st.SeenKeys)
}
