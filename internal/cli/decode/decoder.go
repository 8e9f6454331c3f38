// Package decode recovers keying from a received tone so it can be scored
// like a local key.
package decode

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ColonelBlimp/cwtutor/internal/audio"
	"github.com/ColonelBlimp/cwtutor/internal/config"
	"github.com/ColonelBlimp/cwtutor/internal/dsp"
	"github.com/ColonelBlimp/cwtutor/internal/input"
)

// Decoder feeds edges detected on captured audio into an input queue.
type Decoder struct {
	capture  *audio.Capture
	detector *dsp.Detector
	latch    input.Latch
	poller   *input.Poller
	logger   *zap.Logger
}

// NewDecoder wires capture, detector and poller from the app settings.
// onEdge, if set, runs on every key transition seen by the poller.
func NewDecoder(cfg config.Settings, queue *input.Queue, onEdge func(down bool), logger *zap.Logger) (*Decoder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	goertzel, err := dsp.NewGoertzel(dsp.ToneConfig{
		Frequency:  cfg.ToneFrequency,
		SampleRate: cfg.SampleRate,
		BlockSize:  cfg.BlockSize,
	})
	if err != nil {
		return nil, fmt.Errorf("tone detector: %w", err)
	}
	detector, err := dsp.NewDetector(dsp.DetectorConfig{
		Threshold:  cfg.Threshold,
		Hysteresis: cfg.Hysteresis,
		SampleRate: cfg.SampleRate,
	}, goertzel)
	if err != nil {
		return nil, fmt.Errorf("tone detector: %w", err)
	}

	d := &Decoder{detector: detector, logger: logger}
	detector.SetCallback(d.latch.Set)

	pcfg := input.PollerConfig{Interval: cfg.PollInterval()}
	if onEdge != nil {
		pcfg.OnDown = func(time.Time) { onEdge(true) }
		pcfg.OnUp = func(time.Time) { onEdge(false) }
	}
	d.poller, err = input.NewPoller(&d.latch, queue, pcfg, logger)
	if err != nil {
		return nil, err
	}

	d.capture = audio.NewCapture(audio.Config{
		DeviceIndex: cfg.DeviceIndex,
		SampleRate:  uint32(cfg.SampleRate),
		BufferSize:  uint32(cfg.BufferSize),
	}, logger)
	d.capture.SetCallback(detector.Process)
	return d, nil
}

// Run captures until ctx is cancelled.
func (d *Decoder) Run(ctx context.Context) error {
	if err := d.capture.Init(); err != nil {
		return fmt.Errorf("audio: %w", err)
	}
	defer func() {
		if err := d.capture.Close(); err != nil {
			d.logger.Warn("close audio capture", zap.Error(err))
		}
	}()

	d.detector.Start(time.Now())
	if err := d.capture.Start(ctx); err != nil {
		return fmt.Errorf("audio capture: %w", err)
	}
	d.logger.Info("listening for keyed tone")
	return d.poller.Run(ctx)
}

// Level returns the tone magnitude of the last detection block.
func (d *Decoder) Level() float64 {
	return d.detector.Level()
}

// ListAudioDevices returns the names of the capture devices, in device_index order.
func ListAudioDevices(logger *zap.Logger) ([]string, error) {
	capture := audio.NewCapture(audio.DefaultConfig(), logger)
	if err := capture.Init(); err != nil {
		return nil, fmt.Errorf("audio: %w", err)
	}
	defer capture.Close()

	infos, err := capture.ListDevices()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(infos))
	for i := range infos {
		names[i] = infos[i].Name()
	}
	return names, nil
}
