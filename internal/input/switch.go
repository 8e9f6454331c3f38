package input

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ColonelBlimp/cwtutor/internal/keyer"
	"github.com/ColonelBlimp/cwtutor/internal/recovery"
)

// DefaultPollInterval is how often the poller samples the switch
const DefaultPollInterval = 10 * time.Millisecond

var (
	// ErrSwitchRequired indicates the poller needs a switch
	ErrSwitchRequired = errors.New("switch is required")
	// ErrQueueRequired indicates a queue is required
	ErrQueueRequired = errors.New("input queue is required")
	// ErrInvalidPollInterval indicates the poll interval must be positive
	ErrInvalidPollInterval = errors.New("poll interval must be positive")
)

// Switch reports the key position and when it last changed.
type Switch interface {
	Read() (down bool, changedAt time.Time)
}

// Latch is a Switch set by an edge source (tone detector, hardware edge
// callback). It keeps the time of the transition itself, so the poller's
// sampling latency does not leak into element durations.
type Latch struct {
	mu        sync.Mutex
	down      bool
	changedAt time.Time
}

// Set records a transition at the given time. Repeated levels are ignored.
func (l *Latch) Set(down bool, at time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.down == down {
		return
	}
	l.down = down
	l.changedAt = at
}

// Read implements Switch.
func (l *Latch) Read() (bool, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.down, l.changedAt
}

// PollerConfig holds poller configuration.
type PollerConfig struct {
	// Interval is the sampling period (from config: poll_interval_ms), 0 = DefaultPollInterval
	Interval time.Duration
	// OnDown and OnUp run on each observed edge, typically to drive the sidetone
	OnDown func(at time.Time)
	OnUp   func(at time.Time)
}

// Poller samples a Switch and turns press/release pairs into queued events.
// A press and release that both fall between two samples are not seen.
type Poller struct {
	sw     Switch
	queue  *Queue
	config PollerConfig
	logger *zap.Logger

	down    bool
	pressAt time.Time
}

// NewPoller creates a poller feeding queue.
func NewPoller(sw Switch, queue *Queue, cfg PollerConfig, logger *zap.Logger) (*Poller, error) {
	if sw == nil {
		return nil, ErrSwitchRequired
	}
	if queue == nil {
		return nil, ErrQueueRequired
	}
	if cfg.Interval < 0 {
		return nil, ErrInvalidPollInterval
	}
	if cfg.Interval == 0 {
		cfg.Interval = DefaultPollInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{sw: sw, queue: queue, config: cfg, logger: logger}, nil
}

// Run samples until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	defer recovery.HandlePanic(p.logger)

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.Poll()
		}
	}
}

// Poll takes one sample and emits on a release edge.
func (p *Poller) Poll() {
	down, at := p.sw.Read()
	if down == p.down {
		return
	}
	p.down = down

	if down {
		p.pressAt = at
		if p.config.OnDown != nil {
			p.config.OnDown(at)
		}
		return
	}

	if p.config.OnUp != nil {
		p.config.OnUp(at)
	}
	if p.pressAt.IsZero() {
		return
	}
	ev := Event{Kind: Keyed, Key: keyer.KeyEvent{Press: p.pressAt, Release: at}}
	if !p.queue.Push(ev) {
		p.logger.Warn("input queue full, key event dropped",
			zap.Duration("duration", ev.Key.Duration()),
			zap.Uint64("dropped", p.queue.Dropped()))
	}
}
