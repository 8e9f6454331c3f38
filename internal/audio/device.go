// internal/audio/device.go
// Package audio runs the sound card: sidetone playback and capture for the
// listen key source.
package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
	"go.uber.org/zap"
)

var (
	ErrNotInitialized = errors.New("audio device not initialized")
	ErrAlreadyRunning = errors.New("audio device already running")
	ErrNotRunning     = errors.New("audio device not running")
)

// Config holds audio device configuration
type Config struct {
	DeviceIndex int    // -1 for the default device (from config: device_index)
	SampleRate  uint32 // from config: sample_rate
	BufferSize  uint32 // frames per callback (from config: buffer_size)
}

// DefaultConfig returns defaults suitable for a low-latency sidetone
func DefaultConfig() Config {
	return Config{
		DeviceIndex: -1,
		SampleRate:  48000,
		BufferSize:  256,
	}
}

// device is the malgo plumbing shared by capture and playback.
type device struct {
	config Config
	kind   malgo.DeviceType
	logger *zap.Logger

	mu      sync.Mutex
	ctx     *malgo.AllocatedContext
	dev     *malgo.Device
	running atomic.Bool
}

// Init initializes the audio backend
func (d *device) Init() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ctx != nil {
		return nil
	}
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(msg string) {
		d.logger.Debug("malgo", zap.String("msg", msg))
	})
	if err != nil {
		return fmt.Errorf("init audio context: %w", err)
	}
	d.ctx = ctx
	return nil
}

// ListDevices returns the devices of this direction
func (d *device) ListDevices() ([]malgo.DeviceInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.listLocked()
}

func (d *device) listLocked() ([]malgo.DeviceInfo, error) {
	if d.ctx == nil {
		return nil, ErrNotInitialized
	}
	infos, err := d.ctx.Devices(d.kind)
	if err != nil {
		return nil, fmt.Errorf("enumerate devices: %w", err)
	}
	return infos, nil
}

// start opens and starts the device with the given data callback.
func (d *device) start(ctx context.Context, onData malgo.DataProc) error {
	if d.running.Load() {
		return ErrAlreadyRunning
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ctx == nil {
		return ErrNotInitialized
	}

	cfg := malgo.DefaultDeviceConfig(d.kind)
	cfg.SampleRate = d.config.SampleRate
	cfg.PeriodSizeInFrames = d.config.BufferSize
	sub := malgo.SubConfig{Format: malgo.FormatF32, Channels: 1}

	if d.config.DeviceIndex >= 0 {
		infos, err := d.listLocked()
		if err != nil {
			return err
		}
		if d.config.DeviceIndex >= len(infos) {
			return fmt.Errorf("device index %d out of range (have %d devices)",
				d.config.DeviceIndex, len(infos))
		}
		sub.DeviceID = infos[d.config.DeviceIndex].ID.Pointer()
	}
	if d.kind == malgo.Capture {
		cfg.Capture = sub
	} else {
		cfg.Playback = sub
	}

	dev, err := malgo.InitDevice(d.ctx.Context, cfg, malgo.DeviceCallbacks{Data: onData})
	if err != nil {
		return fmt.Errorf("init device: %w", err)
	}
	if err := dev.Start(); err != nil {
		dev.Uninit()
		return fmt.Errorf("start device: %w", err)
	}
	d.dev = dev
	d.running.Store(true)

	go func() {
		<-ctx.Done()
		_ = d.Stop()
	}()
	return nil
}

// Stop stops the device
func (d *device) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running.Load() {
		return ErrNotRunning
	}
	d.stopLocked()
	return nil
}

func (d *device) stopLocked() {
	if d.dev != nil {
		_ = d.dev.Stop()
		d.dev.Uninit()
		d.dev = nil
	}
	d.running.Store(false)
}

// Close releases all audio resources
func (d *device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopLocked()
	if d.ctx != nil {
		if err := d.ctx.Uninit(); err != nil {
			return fmt.Errorf("uninit context: %w", err)
		}
		d.ctx.Free()
		d.ctx = nil
	}
	return nil
}

// IsRunning returns true if the device is active
func (d *device) IsRunning() bool {
	return d.running.Load()
}

// bytesToFloat32 decodes little-endian float32 samples.
func bytesToFloat32(data []byte) []float32 {
	samples := make([]float32, len(data)/4)
	for i := range samples {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return samples
}

// putFloat32 encodes samples into out as little-endian float32.
func putFloat32(out []byte, samples []float32) {
	for i, s := range samples {
		if (i+1)*4 > len(out) {
			return
		}
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(s))
	}
}
