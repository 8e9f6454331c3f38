package input

import (
	"sync"
	"time"

	"github.com/ColonelBlimp/cwtutor/internal/keyer"
)

// Tone sounds the sidetone for one element.
type Tone interface {
	Pulse(d time.Duration)
}

// PaddleConfig holds paddle configuration.
type PaddleConfig struct {
	// WPM sets the element length (from settings: wpm)
	WPM int
	// Tone is pulsed for each element, nil for silence
	Tone Tone
	// Now is the clock, nil = time.Now
	Now func() time.Time
}

// Paddle synthesizes perfectly timed elements for key sources that only
// report presses, such as a terminal. Elements queued faster than they can
// be sent are spaced one unit apart.
type Paddle struct {
	queue *Queue
	unit  time.Duration
	tone  Tone
	now   func() time.Time

	mu     sync.Mutex
	next   time.Time
	timers []*time.Timer
}

// NewPaddle creates a paddle feeding queue.
func NewPaddle(queue *Queue, cfg PaddleConfig) (*Paddle, error) {
	if queue == nil {
		return nil, ErrQueueRequired
	}
	timing, err := keyer.NewTiming(cfg.WPM, 0)
	if err != nil {
		return nil, err
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Paddle{queue: queue, unit: timing.Unit, tone: cfg.Tone, now: now}, nil
}

// Dit queues a dot.
func (p *Paddle) Dit() bool {
	return p.element(p.unit)
}

// Dah queues a dash.
func (p *Paddle) Dah() bool {
	return p.element(3 * p.unit)
}

// Cancel forgets pending spacing and stops scheduled tones.
func (p *Paddle) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, t := range p.timers {
		t.Stop()
	}
	p.timers = nil
	p.next = time.Time{}
}

func (p *Paddle) element(length time.Duration) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	start := now
	if p.next.After(now) {
		start = p.next
	}
	release := start.Add(length)

	if !p.queue.Push(Event{Kind: Keyed, Key: keyer.KeyEvent{Press: start, Release: release}}) {
		return false
	}
	p.next = release.Add(p.unit)

	if p.tone == nil {
		return true
	}
	if delay := start.Sub(now); delay > 0 {
		p.timers = append(p.timers, time.AfterFunc(delay, func() { p.tone.Pulse(length) }))
	} else {
		// No backlog, so every earlier timer has fired
		p.timers = p.timers[:0]
		p.tone.Pulse(length)
	}
	return true
}
