package audio

import (
	"context"
	"errors"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.DeviceIndex != -1 {
		t.Errorf("DefaultConfig().DeviceIndex = %d, want -1", cfg.DeviceIndex)
	}
	if cfg.SampleRate != 48000 {
		t.Errorf("DefaultConfig().SampleRate = %d, want 48000", cfg.SampleRate)
	}
	if cfg.BufferSize != 256 {
		t.Errorf("DefaultConfig().BufferSize = %d, want 256", cfg.BufferSize)
	}
}

func TestCapture_SetCallback(t *testing.T) {
	capture := NewCapture(DefaultConfig(), nil)

	capture.SetCallback(func(samples []float32) {})
	if capture.callbackPtr.Load() == nil {
		t.Error("SetCallback() did not set callback")
	}

	capture.SetCallback(nil)
	if capture.callbackPtr.Load() != nil {
		t.Error("SetCallback(nil) should clear callback")
	}
}

func TestCapture_NotInitialized(t *testing.T) {
	capture := NewCapture(DefaultConfig(), nil)

	if capture.IsRunning() {
		t.Error("IsRunning() = true for new capture, want false")
	}
	if _, err := capture.ListDevices(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("ListDevices() error = %v, want ErrNotInitialized", err)
	}
	if err := capture.Start(context.Background()); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Start() error = %v, want ErrNotInitialized", err)
	}
	if err := capture.Stop(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Stop() error = %v, want ErrNotRunning", err)
	}
}

func TestCapture_Start_AlreadyRunning(t *testing.T) {
	capture := NewCapture(DefaultConfig(), nil)
	capture.running.Store(true)

	if err := capture.Start(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("Start() when running error = %v, want ErrAlreadyRunning", err)
	}
}

type fakeSource struct {
	on    bool
	level float32
}

func (f *fakeSource) Fill(out []float32) {
	for i := range out {
		if f.on {
			out[i] = f.level
		} else {
			out[i] = 0
		}
	}
}

func (f *fakeSource) ToneOn()  { f.on = true }
func (f *fakeSource) ToneOff() { f.on = false }

func TestPlayback_GatesSource(t *testing.T) {
	if _, err := NewPlayback(DefaultConfig(), nil, nil); !errors.Is(err, ErrOscillatorRequired) {
		t.Fatalf("NewPlayback(nil) error = %v, want ErrOscillatorRequired", err)
	}

	src := &fakeSource{level: 0.5}
	p, err := NewPlayback(DefaultConfig(), src, nil)
	if err != nil {
		t.Fatalf("NewPlayback() error = %v", err)
	}
	p.ToneOn()
	if !src.on {
		t.Error("ToneOn() did not open the source")
	}
	p.ToneOff()
	if src.on {
		t.Error("ToneOff() did not close the source")
	}
	if err := p.Start(context.Background()); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Start() error = %v, want ErrNotInitialized", err)
	}
}

func TestSampleCodec(t *testing.T) {
	tests := []struct {
		name  string
		bytes []byte
		want  []float32
	}{
		{"empty", []byte{}, []float32{}},
		{"one", []byte{0x00, 0x00, 0x80, 0x3F}, []float32{1}},
		{
			"several",
			[]byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x80, 0x3F, 0x00, 0x00, 0x80, 0xBF},
			[]float32{0, 1, -1},
		},
		{"partial", []byte{0x00, 0x00, 0x80}, []float32{}},
		{"extra", []byte{0x00, 0x00, 0x80, 0x3F, 0xFF}, []float32{1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := bytesToFloat32(tt.bytes)
			if len(got) != len(tt.want) {
				t.Fatalf("bytesToFloat32() length = %d, want %d", len(got), len(tt.want))
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("bytesToFloat32()[%d] = %f, want %f", i, got[i], tt.want[i])
				}
			}
		})
	}

	out := make([]byte, 8)
	putFloat32(out, []float32{1, -1, 0.5})
	if got := bytesToFloat32(out); got[0] != 1 || got[1] != -1 {
		t.Errorf("putFloat32 round trip = %v, want [1 -1]", got)
	}
}
