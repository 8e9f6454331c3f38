package audio

import (
	"context"
	"errors"

	"github.com/gen2brain/malgo"
	"go.uber.org/zap"
)

// ErrOscillatorRequired indicates playback needs a tone source
var ErrOscillatorRequired = errors.New("oscillator is required")

// Source fills playback buffers and is gated by the sidetone.
type Source interface {
	Fill(out []float32)
	ToneOn()
	ToneOff()
}

// Playback streams a gated tone to the output device. It implements
// sidetone.Sink, so the buzzer can drive it directly.
type Playback struct {
	device
	src Source
	buf []float32
}

// NewPlayback creates a playback instance for src.
func NewPlayback(cfg Config, src Source, logger *zap.Logger) (*Playback, error) {
	if src == nil {
		return nil, ErrOscillatorRequired
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Playback{
		device: device{config: cfg, kind: malgo.Playback, logger: logger},
		src:    src,
	}, nil
}

// Start opens the output device; the tone stays silent until ToneOn.
func (p *Playback) Start(ctx context.Context) error {
	return p.start(ctx, func(output, _ []byte, frames uint32) {
		n := int(frames)
		if cap(p.buf) < n {
			p.buf = make([]float32, n)
		}
		buf := p.buf[:n]
		p.src.Fill(buf)
		putFloat32(output, buf)
	})
}

// ToneOn implements sidetone.Sink.
func (p *Playback) ToneOn() { p.src.ToneOn() }

// ToneOff implements sidetone.Sink.
func (p *Playback) ToneOff() { p.src.ToneOff() }
