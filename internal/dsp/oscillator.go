package dsp

import (
	"errors"
	"math"
	"sync/atomic"
)

// ErrInvalidVolume indicates volume must be between 0 and 1
var ErrInvalidVolume = errors.New("volume must be between 0.0 and 1.0")

// DefaultRamp is the attack/release time in seconds; a hard edge clicks
const DefaultRamp = 0.005

// Oscillator is a gated sine generator. Gate may be called from any
// goroutine; Fill runs on the audio thread.
type Oscillator struct {
	step   float64
	volume float64
	ramp   float64 // envelope change per sample

	gate  atomic.Bool
	phase float64
	env   float64
}

// NewOscillator creates an oscillator at cfg.Frequency. volume is 0..1.
func NewOscillator(cfg ToneConfig, volume float64) (*Oscillator, error) {
	if err := cfg.Validate(false); err != nil {
		return nil, err
	}
	if volume < 0 || volume > 1 {
		return nil, ErrInvalidVolume
	}
	return &Oscillator{
		step:   2 * math.Pi * cfg.Frequency / cfg.SampleRate,
		volume: volume,
		ramp:   1 / (DefaultRamp * cfg.SampleRate),
	}, nil
}

// Gate opens or closes the tone.
func (o *Oscillator) Gate(on bool) {
	o.gate.Store(on)
}

// ToneOn opens the gate.
func (o *Oscillator) ToneOn() { o.Gate(true) }

// ToneOff closes the gate.
func (o *Oscillator) ToneOff() { o.Gate(false) }

// Fill writes the next len(out) samples.
func (o *Oscillator) Fill(out []float32) {
	target := 0.0
	if o.gate.Load() {
		target = 1
	}
	for i := range out {
		switch {
		case o.env < target:
			o.env = math.Min(target, o.env+o.ramp)
		case o.env > target:
			o.env = math.Max(target, o.env-o.ramp)
		}
		if o.env == 0 {
			out[i] = 0
			continue
		}
		out[i] = float32(math.Sin(o.phase) * o.volume * o.env)
		o.phase += o.step
		if o.phase >= 2*math.Pi {
			o.phase -= 2 * math.Pi
		}
	}
}
