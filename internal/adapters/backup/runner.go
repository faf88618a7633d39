package backup

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/okian/rebar/internal/adapters/repository"
	"github.com/okian/rebar/pkg/logger"
	"github.com/okian/rebar/pkg/metrics"
)

// Exporter produces the state to back up.
type Exporter interface {
	Export(ctx context.Context) *repository.State
}

// Runner saves the exporter's state on a fixed interval and once more on Stop.
type Runner struct {
	store    Store
	source   Exporter
	clock    clockwork.Clock
	interval time.Duration
	logger   logger.Logger

	saveMu   sync.Mutex
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewRunner creates a runner. Call Start to begin periodic saves.
func NewRunner(store Store, source Exporter, opts ...Option) *Runner {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Runner{
		store:    store,
		source:   source,
		clock:    o.clock,
		interval: o.interval,
		logger:   o.logger,
		stopChan: make(chan struct{}),
	}
}

// Start launches the periodic save goroutine.
func (r *Runner) Start(ctx context.Context) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := r.clock.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-r.stopChan:
				return
			case <-ticker.Chan():
				if err := r.SaveNow(ctx); err != nil {
					r.logger.Error(ctx, "periodic backup failed", logger.Error(err))
				}
			}
		}
	}()
}

// SaveNow exports and saves immediately. The store lock is held only for the
// export; encoding and I/O run outside it.
func (r *Runner) SaveNow(ctx context.Context) error {
	r.saveMu.Lock()
	defer r.saveMu.Unlock()

	start := time.Now()
	st := r.source.Export(ctx)
	if err := r.store.Save(ctx, st); err != nil {
		metrics.RecordErrorByComponent("backup", "save")
		return fmt.Errorf("save backup: %w", err)
	}

	took := time.Since(start)
	metrics.RecordBackupSave(float64(took.Microseconds())/1000, len(st.Items), float64(r.clock.Now().Unix()))
	r.logger.Debug(ctx, "backup saved",
		logger.Int("items", len(st.Items)),
		logger.Duration("took", took),
	)
	return nil
}

// Stop halts periodic saves, waits for an in-flight save and writes a final
// snapshot. Safe to call more than once; only the first call saves.
func (r *Runner) Stop(ctx context.Context) error {
	first := false
	r.stopOnce.Do(func() {
		close(r.stopChan)
		first = true
	})
	r.wg.Wait()

	if !first {
		return nil
	}
	return r.SaveNow(ctx)
}
