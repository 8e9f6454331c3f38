// internal/dsp/goertzel.go
// Package dsp generates and detects the sidetone frequency.
package dsp

import (
	"errors"
	"math"
)

var (
	// ErrInvalidBlockSize indicates block size must be positive
	ErrInvalidBlockSize = errors.New("block size must be positive")
	// ErrInvalidSampleRate indicates sample rate must be positive
	ErrInvalidSampleRate = errors.New("sample rate must be positive")
	// ErrInvalidFrequency indicates frequency must be positive and below Nyquist
	ErrInvalidFrequency = errors.New("tone frequency must be positive and below half the sample rate")
)

// ToneConfig describes the tone being generated or listened for.
type ToneConfig struct {
	// Frequency in Hz (from config: tone_frequency)
	Frequency float64
	// SampleRate in Hz (from config: sample_rate)
	SampleRate float64
	// BlockSize is samples per detection window (from config: block_size)
	BlockSize int
}

// Validate checks the tone parameters. BlockSize is only checked when
// requireBlock is set since the oscillator does not use it.
func (c ToneConfig) Validate(requireBlock bool) error {
	if c.SampleRate <= 0 {
		return ErrInvalidSampleRate
	}
	if c.Frequency <= 0 || c.Frequency >= c.SampleRate/2 {
		return ErrInvalidFrequency
	}
	if requireBlock && c.BlockSize <= 0 {
		return ErrInvalidBlockSize
	}
	return nil
}

// BlockDuration returns the time covered by one detection block in seconds.
func (c ToneConfig) BlockDuration() float64 {
	return float64(c.BlockSize) / c.SampleRate
}

// Goertzel measures the level of a single frequency over fixed-size blocks.
type Goertzel struct {
	config ToneConfig
	coeff  float64
}

// NewGoertzel precomputes the filter for cfg.
func NewGoertzel(cfg ToneConfig) (*Goertzel, error) {
	if err := cfg.Validate(true); err != nil {
		return nil, err
	}
	omega := 2 * math.Pi * cfg.Frequency / cfg.SampleRate
	return &Goertzel{
		config: cfg,
		coeff:  2 * math.Cos(omega),
	}, nil
}

// Magnitude returns the amplitude of the target frequency in the first
// BlockSize samples of block; a full-scale sine at the frequency gives about 1.
// Shorter blocks are measured as they are.
func (g *Goertzel) Magnitude(block []float32) float64 {
	n := g.config.BlockSize
	if len(block) < n {
		n = len(block)
	}
	if n == 0 {
		return 0
	}

	var q1, q2 float64
	for _, s := range block[:n] {
		q0 := g.coeff*q1 - q2 + float64(s)
		q2, q1 = q1, q0
	}
	power := q1*q1 + q2*q2 - g.coeff*q1*q2
	if power < 0 {
		power = 0
	}
	return math.Sqrt(power) * 2 / float64(n)
}

// BlockSize returns the configured block size
func (g *Goertzel) BlockSize() int {
	return g.config.BlockSize
}
