// internal/sidetone/buzzer.go
// Package sidetone owns the tone that accompanies keying and playback.
package sidetone

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultSafetyTimeout silences a tone left on by a lost key release
const DefaultSafetyTimeout = 5 * time.Second

// ErrInvalidOutputMode indicates an unknown output_mode setting
var ErrInvalidOutputMode = errors.New("output mode must be one of: buzzer, hdmi, both, none")

// Sink produces the actual sound.
type Sink interface {
	ToneOn()
	ToneOff()
}

// OutputMode selects which sinks sound the sidetone.
type OutputMode string

const (
	// OutputBuzzer rings the terminal bell
	OutputBuzzer OutputMode = "buzzer"
	// OutputHDMI plays a sine tone on the audio output device
	OutputHDMI OutputMode = "hdmi"
	// OutputBoth uses both
	OutputBoth OutputMode = "both"
	// OutputNone is silent
	OutputNone OutputMode = "none"
)

// ParseOutputMode parses an output_mode setting, case-insensitively.
func ParseOutputMode(s string) (OutputMode, error) {
	switch m := OutputMode(strings.ToLower(strings.TrimSpace(s))); m {
	case OutputBuzzer, OutputHDMI, OutputBoth, OutputNone:
		return m, nil
	default:
		return "", fmt.Errorf("%q: %w", s, ErrInvalidOutputMode)
	}
}

// UsesAudio reports whether the mode needs an audio output device.
func (m OutputMode) UsesAudio() bool {
	return m == OutputHDMI || m == OutputBoth
}

// Nop is a silent sink.
type Nop struct{}

func (Nop) ToneOn()  {}
func (Nop) ToneOff() {}

// Bell writes the terminal bell at the start of each tone.
type Bell struct {
	W io.Writer
}

func (b Bell) ToneOn() {
	_, _ = b.W.Write([]byte{'\a'})
}

func (b Bell) ToneOff() {}

// Multi fans out to several sinks.
type Multi []Sink

func (m Multi) ToneOn() {
	for _, s := range m {
		s.ToneOn()
	}
}

func (m Multi) ToneOff() {
	for _, s := range m {
		s.ToneOff()
	}
}

// Buzzer switches a sink on and off. Every On arms a safety timer that
// forces the tone off after the timeout.
type Buzzer struct {
	sink    Sink
	timeout time.Duration
	logger  *zap.Logger

	mu     sync.Mutex
	on     bool
	closed bool
	safety *time.Timer
	pulse  *time.Timer
	gen    uint64
}

// NewBuzzer creates a buzzer driving sink. timeout 0 = DefaultSafetyTimeout.
func NewBuzzer(sink Sink, timeout time.Duration, logger *zap.Logger) *Buzzer {
	if sink == nil {
		sink = Nop{}
	}
	if timeout <= 0 {
		timeout = DefaultSafetyTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Buzzer{sink: sink, timeout: timeout, logger: logger}
}

// On starts the tone and (re)arms the safety timer.
func (b *Buzzer) On() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.start()
}

// Off stops the tone and cancels all timers.
func (b *Buzzer) Off() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stop()
}

// Pulse sounds the tone for d.
func (b *Buzzer) Pulse(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.start() {
		return
	}
	gen := b.gen
	b.pulse = time.AfterFunc(d, func() { b.expire(gen, false) })
}

// IsOn reports whether the tone is sounding.
func (b *Buzzer) IsOn() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.on
}

// Close silences the buzzer; later calls to On and Pulse do nothing.
func (b *Buzzer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stop()
	b.closed = true
	return nil
}

// start turns the sink on. Caller holds mu.
func (b *Buzzer) start() bool {
	if b.closed {
		return false
	}
	b.cancelTimers()
	b.gen++
	if !b.on {
		b.on = true
		b.sink.ToneOn()
	}
	gen := b.gen
	b.safety = time.AfterFunc(b.timeout, func() { b.expire(gen, true) })
	return true
}

// stop turns the sink off. Caller holds mu.
func (b *Buzzer) stop() {
	b.cancelTimers()
	b.gen++
	if b.on {
		b.on = false
		b.sink.ToneOff()
	}
}

func (b *Buzzer) cancelTimers() {
	if b.safety != nil {
		b.safety.Stop()
		b.safety = nil
	}
	if b.pulse != nil {
		b.pulse.Stop()
		b.pulse = nil
	}
}

// expire fires from a timer. A stale generation means the timer lost a race
// with a newer On or Off and must do nothing.
func (b *Buzzer) expire(gen uint64, safety bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if gen != b.gen {
		return
	}
	if safety {
		b.logger.Warn("sidetone safety timeout, forcing tone off", zap.Duration("timeout", b.timeout))
	}
	b.stop()
}
