// internal/audio/capture.go
package audio

import (
	"context"
	"sync/atomic"

	"github.com/gen2brain/malgo"
	"go.uber.org/zap"
)

// SampleCallback is called directly from the audio thread with new samples.
// Must be non-blocking and fast.
type SampleCallback func(samples []float32)

// Capture reads mono float32 audio, used to recover keying from a received tone.
type Capture struct {
	device
	callbackPtr atomic.Pointer[SampleCallback]
}

// NewCapture creates a capture instance
func NewCapture(cfg Config, logger *zap.Logger) *Capture {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Capture{device: device{config: cfg, kind: malgo.Capture, logger: logger}}
}

// SetCallback sets the sample callback. Set before calling Start().
func (c *Capture) SetCallback(cb SampleCallback) {
	if cb == nil {
		c.callbackPtr.Store(nil)
	} else {
		c.callbackPtr.Store(&cb)
	}
}

// Start begins capture; it stops when ctx is cancelled.
func (c *Capture) Start(ctx context.Context) error {
	return c.start(ctx, func(_, input []byte, _ uint32) {
		if len(input) == 0 {
			return
		}
		if cb := c.callbackPtr.Load(); cb != nil {
			(*cb)(bytesToFloat32(input))
		}
	})
}
