package backup

import (
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/okian/rebar/pkg/logger"
)

// Defaults.
const (
	DefaultKeep     = 5
	DefaultInterval = 5 * time.Minute
)

type options struct {
	clock    clockwork.Clock
	keep     int
	interval time.Duration
	logger   logger.Logger
}

func defaultOptions() options {
	return options{
		clock:    clockwork.NewRealClock(),
		keep:     DefaultKeep,
		interval: DefaultInterval,
		logger:   logger.Nop(),
	}
}

// Option configures stores and the Runner.
type Option func(*options)

// WithClock sets the clock used for snapshot timestamps and the save ticker.
func WithClock(clock clockwork.Clock) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithKeep sets how many snapshots the SQLite backend retains.
func WithKeep(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.keep = n
		}
	}
}

// WithInterval sets the Runner save interval.
func WithInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.interval = d
		}
	}
}

// WithLogger sets the Runner logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
