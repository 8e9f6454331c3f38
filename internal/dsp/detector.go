// internal/dsp/detector.go
package dsp

import (
	"errors"
	"math"
	"sync/atomic"
	"time"
)

var (
	// ErrInvalidThreshold indicates threshold must be between 0 and 1
	ErrInvalidThreshold = errors.New("threshold must be between 0.0 and 1.0")
	// ErrInvalidHysteresis indicates hysteresis must be non-negative
	ErrInvalidHysteresis = errors.New("hysteresis must be non-negative")
	// ErrGoertzelRequired indicates Goertzel instance is required
	ErrGoertzelRequired = errors.New("goertzel instance is required")
)

// EdgeCallback receives key transitions recovered from audio.
// Called on the audio path; must be non-blocking and fast.
type EdgeCallback func(down bool, at time.Time)

// DetectorConfig holds configuration for the keying detector.
type DetectorConfig struct {
	// Threshold is the magnitude (0.0-1.0) above which the key is down (from config: threshold)
	Threshold float64
	// Hysteresis is consecutive blocks required to confirm a change (from config: hysteresis)
	Hysteresis int
	// SampleRate is used to timestamp edges from sample positions (from config: sample_rate)
	SampleRate float64
}

// Detector turns a tone on captured audio into key down/up edges.
// Edge times are derived from the sample position, not the wall clock at
// processing time, so buffering latency does not distort element lengths.
type Detector struct {
	config   DetectorConfig
	goertzel *Goertzel

	pending []float32
	samples int64 // samples consumed since Start
	start   time.Time

	down    bool
	streak  int
	candAt  int64 // sample index where the pending change began
	lastMag float64

	callbackPtr atomic.Pointer[EdgeCallback]
}

// NewDetector creates a keying detector.
func NewDetector(cfg DetectorConfig, goertzel *Goertzel) (*Detector, error) {
	if goertzel == nil {
		return nil, ErrGoertzelRequired
	}
	if cfg.Threshold < 0 || cfg.Threshold > 1 {
		return nil, ErrInvalidThreshold
	}
	if cfg.Hysteresis < 0 {
		return nil, ErrInvalidHysteresis
	}
	if cfg.SampleRate <= 0 {
		return nil, ErrInvalidSampleRate
	}
	if cfg.Hysteresis == 0 {
		cfg.Hysteresis = 1
	}
	return &Detector{
		config:   cfg,
		goertzel: goertzel,
		pending:  make([]float32, 0, goertzel.BlockSize()),
	}, nil
}

// SetCallback sets the callback for key edges.
func (d *Detector) SetCallback(cb EdgeCallback) {
	if cb == nil {
		d.callbackPtr.Store(nil)
	} else {
		d.callbackPtr.Store(&cb)
	}
}

// Start anchors sample zero to t and clears all state.
func (d *Detector) Start(t time.Time) {
	d.pending = d.pending[:0]
	d.samples = 0
	d.start = t
	d.down = false
	d.streak = 0
	d.lastMag = 0
}

// Process consumes samples normalized to -1.0..1.0.
func (d *Detector) Process(samples []float32) {
	if d.start.IsZero() {
		d.start = time.Now()
	}
	bs := d.goertzel.BlockSize()
	for len(samples) > 0 {
		n := bs - len(d.pending)
		if n > len(samples) {
			n = len(samples)
		}
		d.pending = append(d.pending, samples[:n]...)
		samples = samples[n:]
		if len(d.pending) == bs {
			d.block(d.pending)
			d.samples += int64(bs)
			d.pending = d.pending[:0]
		}
	}
}

func (d *Detector) block(b []float32) {
	mag := d.goertzel.Magnitude(b)
	d.lastMag = mag
	present := mag > d.config.Threshold

	if present == d.down {
		d.streak = 0
		return
	}
	if d.streak == 0 {
		d.candAt = d.samples
	}
	d.streak++
	if d.streak < d.config.Hysteresis {
		return
	}

	d.down = present
	d.streak = 0
	if cb := d.callbackPtr.Load(); cb != nil {
		(*cb)(present, d.timeAt(d.candAt))
	}
}

func (d *Detector) timeAt(sample int64) time.Time {
	return d.start.Add(time.Duration(math.Round(float64(sample) / d.config.SampleRate * float64(time.Second))))
}

// Down returns the confirmed key state
func (d *Detector) Down() bool {
	return d.down
}

// Level returns the magnitude of the last processed block
func (d *Detector) Level() float64 {
	return d.lastMag
}
