// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/okian/rebar/internal/adapters/backup"
	"github.com/okian/rebar/internal/adapters/http/api"
	repository "github.com/okian/rebar/internal/adapters/repository"
	"github.com/okian/rebar/internal/domain/identity"
	"github.com/okian/rebar/internal/domain/model"
	"github.com/okian/rebar/pkg/logger"
)

var (
	_ api.Dependencies  = (*Service)(nil)
	_ api.StatsProvider = (*Service)(nil)
)

// Service owns the ranking store and its backup lifecycle.
type Service struct {
	mu sync.RWMutex

	// Core components
	store  *repository.MemoryStore
	backup backup.Store
	runner *backup.Runner

	// Configuration
	clock          clockwork.Clock
	storeOpts      []repository.Option
	backupDriver   string
	backupPath     string
	backupKeep     int
	backupInterval time.Duration

	// State
	started   bool
	startedAt time.Time

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock sets the clock shared by the store and the backup runner.
func WithClock(clock clockwork.Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithStoreOptions passes options through to the ranking store.
func WithStoreOptions(opts ...repository.Option) Option {
	return func(s *Service) {
		s.storeOpts = append(s.storeOpts, opts...)
	}
}

// WithBackup selects the backup backend. Driver "none" disables backup.
func WithBackup(driver, path string, keep int, interval time.Duration) Option {
	return func(s *Service) {
		s.backupDriver = driver
		s.backupPath = path
		s.backupKeep = keep
		s.backupInterval = interval
	}
}

// New constructs a new Service with default configuration. The store is
// usable immediately; Start restores the backup and begins periodic saves.
func New(opts ...Option) *Service {
	s := &Service{
		clock:          clockwork.NewRealClock(),
		backupDriver:   backup.DriverNone,
		backupKeep:     backup.DefaultKeep,
		backupInterval: backup.DefaultInterval,
	}

	for _, opt := range opts {
		opt(s)
	}

	storeOpts := append([]repository.Option{repository.WithClock(s.clock)}, s.storeOpts...)
	s.store = repository.NewMemoryStore(storeOpts...)
	return s
}

// Start restores the latest backup, if any, and starts the backup runner.
// A missing backup starts an empty store; an unreadable or invalid one is an
// error.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting ranking service...")

	if s.backupDriver != backup.DriverNone && s.backupDriver != "" {
		if err := s.startBackup(ctx); err != nil {
			return err
		}
	}

	s.started = true
	s.startedAt = s.clock.Now()
	stats := s.store.Stats(ctx)
	s.logger.Info(ctx, "ranking service started",
		logger.String("backup", s.backupDriver),
		logger.Int("items", stats.Items),
		logger.Int("ranked", stats.Ranked),
	)
	return nil
}

func (s *Service) startBackup(ctx context.Context) error {
	store, err := backup.Open(ctx, s.backupDriver, s.backupPath,
		backup.WithClock(s.clock),
		backup.WithKeep(s.backupKeep),
	)
	if err != nil {
		return fmt.Errorf("open backup: %w", err)
	}

	st, err := store.Load(ctx)
	switch {
	case errors.Is(err, backup.ErrNoSnapshot):
		s.logger.Info(ctx, "no backup found, starting empty", logger.String("path", s.backupPath))
	case err != nil:
		_ = store.Close()
		return fmt.Errorf("load backup: %w", err)
	default:
		if err := s.store.Import(ctx, st); err != nil {
			_ = store.Close()
			return fmt.Errorf("restore backup: %w", err)
		}
		s.logger.Info(ctx, "backup restored",
			logger.String("path", s.backupPath),
			logger.Int("items", len(st.Items)),
		)
	}

	s.backup = store
	s.runner = backup.NewRunner(store, s.store,
		backup.WithClock(s.clock),
		backup.WithInterval(s.backupInterval),
		backup.WithLogger(s.logger.Named("backup")),
	)
	s.runner.Start(ctx)
	return nil
}

// Stop writes a final backup and releases resources.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	s.logger.Info(ctx, "stopping ranking service...")

	var errs []error
	if s.runner != nil {
		if err := s.runner.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
		s.runner = nil
	}
	if s.backup != nil {
		if err := s.backup.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close backup: %w", err))
		}
		s.backup = nil
	}

	s.started = false
	if err := errors.Join(errs...); err != nil {
		s.logger.Error(ctx, "ranking service stopped with errors", logger.Error(err))
		return err
	}
	s.logger.Info(ctx, "ranking service stopped")
	return nil
}

// Submit adds an item to the store.
func (s *Service) Submit(ctx context.Context, item model.Item) (int, error) {
	id, err := s.store.Submit(ctx, item)
	if err != nil {
		s.log().Debug(ctx, "submission rejected",
			logger.String("key", model.CanonicalKey(item)),
			logger.String("submitter", item.Submitter.String()),
			logger.Error(err),
		)
		return id, err
	}
	s.log().Info(ctx, "item submitted",
		logger.Int("id", id),
		logger.String("key", model.CanonicalKey(item)),
		logger.String("submitter", item.Submitter.String()),
	)
	return id, nil
}

// Vote records an upvote.
func (s *Service) Vote(ctx context.Context, index int, caller identity.CallerID) bool {
	applied := s.store.Vote(ctx, index, caller)
	s.log().Debug(ctx, "vote",
		logger.Int("id", index),
		logger.String("caller", caller.String()),
		logger.Bool("applied", applied),
	)
	return applied
}

// Recompute forces a rebuild of the ranked view.
func (s *Service) Recompute(ctx context.Context) {
	s.store.Recompute(ctx)
	s.log().Info(ctx, "ranked view recomputed")
}

// ListRanked returns the ranked ids.
func (s *Service) ListRanked(ctx context.Context) []int {
	return s.store.ListRanked(ctx)
}

// GetItem returns the item with the given id.
func (s *Service) GetItem(ctx context.Context, index int) (model.Item, bool) {
	return s.store.GetItem(ctx, index)
}

// Score returns the current score of an item.
func (s *Service) Score(ctx context.Context, index int) (float64, bool) {
	return s.store.Score(ctx, index)
}

// Export clones the store state.
func (s *Service) Export(ctx context.Context) *repository.State {
	return s.store.Export(ctx)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]any {
	s.mu.RLock()
	started, startedAt := s.started, s.startedAt
	s.mu.RUnlock()

	st := s.store.Stats(ctx)
	stats := map[string]any{
		"started":     started,
		"backup":      s.backupDriver,
		"items":       st.Items,
		"ranked":      st.Ranked,
		"pending":     st.Pending,
		"submitters":  st.Submitters,
		"seenContent": st.SeenKeys,
	}
	if started {
		stats["uptimeSeconds"] = s.clock.Since(startedAt).Seconds()
	}
	return stats
}

func (s *Service) log() logger.Logger {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.logger == nil {
		return logger.Nop()
	}
	return s.logger
}
