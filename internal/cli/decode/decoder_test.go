package decode

import (
	"math"
	"testing"
	"time"

	"github.com/ColonelBlimp/cwtutor/internal/config"
	"github.com/ColonelBlimp/cwtutor/internal/input"
)

func testSettings() config.Settings {
	return config.Settings{
		PollIntervalMS: 10,
		DeviceIndex:    -1,
		SampleRate:     48000,
		BufferSize:     256,
		ToneFrequency:  600,
		BlockSize:      256,
		Threshold:      0.2,
		Hysteresis:     2,
	}
}

func tone(n int, on bool) []float32 {
	out := make([]float32, n)
	if !on {
		return out
	}
	for i := range out {
		out[i] = float32(0.5 * math.Sin(2*math.Pi*600*float64(i)/48000))
	}
	return out
}

func TestNewDecoder_InvalidSettings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Settings)
	}{
		{"zero settings", func(s *config.Settings) { *s = config.Settings{} }},
		{"tone above nyquist", func(s *config.Settings) { s.ToneFrequency = 30000 }},
		{"threshold out of range", func(s *config.Settings) { s.Threshold = 1.5 }},
	}

	q, _ := input.NewQueue(16)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testSettings()
			tt.mutate(&s)
			if _, err := NewDecoder(s, q, nil, nil); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestNewDecoder_QueueRequired(t *testing.T) {
	if _, err := NewDecoder(testSettings(), nil, nil, nil); err == nil {
		t.Error("expected error for nil queue")
	}
}

func TestDecoder_ToneBecomesKeyEvent(t *testing.T) {
	q, _ := input.NewQueue(16)
	var edges []bool
	d, err := NewDecoder(testSettings(), q, func(down bool) { edges = append(edges, down) }, nil)
	if err != nil {
		t.Fatalf("NewDecoder() error = %v", err)
	}

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	d.detector.Start(start)

	// 4 silent blocks then 20 blocks of tone
	d.detector.Process(tone(4*256, false))
	d.detector.Process(tone(20*256, true))
	d.poller.Poll()
	if d.Level() <= 0.2 {
		t.Fatalf("Level() = %v, want above threshold", d.Level())
	}

	d.detector.Process(tone(4*256, false))
	d.poller.Poll()

	if q.Len() != 1 {
		t.Fatalf("queued %d events, want 1", q.Len())
	}
	ev := <-q.Events()
	if ev.Kind != input.Keyed {
		t.Fatalf("kind = %v, want Keyed", ev.Kind)
	}

	wantSec := float64(20*256) / 48000
	want := time.Duration(wantSec * float64(time.Second))
	if diff := ev.Key.Duration() - want; diff < -time.Millisecond || diff > time.Millisecond {
		t.Errorf("duration = %v, want about %v", ev.Key.Duration(), want)
	}
	if len(edges) != 2 || !edges[0] || edges[1] {
		t.Errorf("edges = %v, want [true false]", edges)
	}
}
