package dsp

import (
	"errors"
	"math"
	"testing"
	"time"
)

// 600 Hz at 8 kHz lands exactly on bin 6 of an 80-sample (10 ms) block
const (
	testSampleRate = 8000.0
	testFrequency  = 600.0
	testBlockSize  = 80
)

func testTone() ToneConfig {
	return ToneConfig{Frequency: testFrequency, SampleRate: testSampleRate, BlockSize: testBlockSize}
}

func sine(freq float64, n int, amplitude float32) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = amplitude * float32(math.Sin(2*math.Pi*freq*float64(i)/testSampleRate))
	}
	return out
}

func samplesFor(d time.Duration) int {
	return int(d.Seconds() * testSampleRate)
}

func TestToneConfig_Validate(t *testing.T) {
	tests := []struct {
		name  string
		cfg   ToneConfig
		block bool
		want  error
	}{
		{"valid", testTone(), true, nil},
		{"zero rate", ToneConfig{Frequency: 600, BlockSize: 80}, true, ErrInvalidSampleRate},
		{"zero frequency", ToneConfig{SampleRate: 8000, BlockSize: 80}, true, ErrInvalidFrequency},
		{"at nyquist", ToneConfig{Frequency: 4000, SampleRate: 8000, BlockSize: 80}, true, ErrInvalidFrequency},
		{"no block needed", ToneConfig{Frequency: 600, SampleRate: 8000}, false, nil},
		{"block required", ToneConfig{Frequency: 600, SampleRate: 8000}, true, ErrInvalidBlockSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(tt.block); !errors.Is(err, tt.want) {
				t.Errorf("Validate() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestGoertzel_Magnitude(t *testing.T) {
	g, err := NewGoertzel(testTone())
	if err != nil {
		t.Fatalf("NewGoertzel() error = %v", err)
	}

	tests := []struct {
		name    string
		samples []float32
		min     float64
		max     float64
	}{
		{"full scale on frequency", sine(testFrequency, testBlockSize, 1), 0.95, 1.05},
		{"half scale on frequency", sine(testFrequency, testBlockSize, 0.5), 0.45, 0.55},
		{"silence", make([]float32, testBlockSize), 0, 0.001},
		{"off frequency", sine(2000, testBlockSize, 1), 0, 0.1},
		{"empty", nil, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := g.Magnitude(tt.samples)
			if got < tt.min || got > tt.max {
				t.Errorf("Magnitude() = %.4f, want %.2f..%.2f", got, tt.min, tt.max)
			}
		})
	}
}

func TestOscillator_Gate(t *testing.T) {
	cfg := testTone()
	o, err := NewOscillator(cfg, 0.8)
	if err != nil {
		t.Fatalf("NewOscillator() error = %v", err)
	}
	buf := make([]float32, testBlockSize)

	o.Fill(buf)
	for i, s := range buf {
		if s != 0 {
			t.Fatalf("sample %d = %v with gate closed", i, s)
		}
	}

	o.ToneOn()
	// Skip the attack ramp, then measure a steady block
	o.Fill(make([]float32, samplesFor(10*time.Millisecond)))
	o.Fill(buf)
	g, _ := NewGoertzel(cfg)
	if mag := g.Magnitude(buf); mag < 0.75 || mag > 0.85 {
		t.Errorf("Magnitude of open gate = %.3f, want about 0.8", mag)
	}

	o.ToneOff()
	o.Fill(make([]float32, samplesFor(10*time.Millisecond)))
	o.Fill(buf)
	for i, s := range buf {
		if s != 0 {
			t.Fatalf("sample %d = %v after release", i, s)
		}
	}
}

func TestOscillator_Invalid(t *testing.T) {
	if _, err := NewOscillator(testTone(), 1.5); !errors.Is(err, ErrInvalidVolume) {
		t.Errorf("NewOscillator(volume 1.5) error = %v, want ErrInvalidVolume", err)
	}
	if _, err := NewOscillator(ToneConfig{SampleRate: 8000}, 0.5); !errors.Is(err, ErrInvalidFrequency) {
		t.Errorf("NewOscillator(no frequency) error = %v, want ErrInvalidFrequency", err)
	}
}

func TestNewDetector_Validation(t *testing.T) {
	g, _ := NewGoertzel(testTone())
	tests := []struct {
		name string
		cfg  DetectorConfig
		g    *Goertzel
		want error
	}{
		{"nil goertzel", DetectorConfig{Threshold: 0.3, SampleRate: 8000}, nil, ErrGoertzelRequired},
		{"threshold high", DetectorConfig{Threshold: 1.1, SampleRate: 8000}, g, ErrInvalidThreshold},
		{"threshold negative", DetectorConfig{Threshold: -0.1, SampleRate: 8000}, g, ErrInvalidThreshold},
		{"hysteresis negative", DetectorConfig{Threshold: 0.3, Hysteresis: -1, SampleRate: 8000}, g, ErrInvalidHysteresis},
		{"no sample rate", DetectorConfig{Threshold: 0.3}, g, ErrInvalidSampleRate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewDetector(tt.cfg, tt.g); !errors.Is(err, tt.want) {
				t.Errorf("NewDetector() error = %v, want %v", err, tt.want)
			}
		})
	}
}

type edge struct {
	down bool
	at   time.Duration
}

func TestDetector_EdgesFromSamplePosition(t *testing.T) {
	g, _ := NewGoertzel(testTone())
	d, err := NewDetector(DetectorConfig{Threshold: 0.3, Hysteresis: 2, SampleRate: testSampleRate}, g)
	if err != nil {
		t.Fatalf("NewDetector() error = %v", err)
	}

	t0 := time.Unix(500, 0)
	var edges []edge
	d.SetCallback(func(down bool, at time.Time) {
		edges = append(edges, edge{down, at.Sub(t0)})
	})
	d.Start(t0)

	ms := time.Millisecond
	// Odd chunk sizes exercise the block reassembly
	feed := func(s []float32) {
		for len(s) > 0 {
			n := 37
			if n > len(s) {
				n = len(s)
			}
			d.Process(s[:n])
			s = s[n:]
		}
	}
	feed(make([]float32, samplesFor(100*ms)))
	feed(sine(testFrequency, samplesFor(60*ms), 0.8))
	feed(make([]float32, samplesFor(60*ms)))
	feed(sine(testFrequency, samplesFor(180*ms), 0.8))
	feed(make([]float32, samplesFor(100*ms)))

	want := []edge{
		{true, 100 * ms},
		{false, 160 * ms},
		{true, 220 * ms},
		{false, 400 * ms},
	}
	if len(edges) != len(want) {
		t.Fatalf("edges = %+v, want %+v", edges, want)
	}
	for i := range want {
		if edges[i] != want[i] {
			t.Errorf("edge %d = %+v, want %+v", i, edges[i], want[i])
		}
	}
	if d.Down() {
		t.Error("Down() = true after trailing silence")
	}
}

func TestDetector_HysteresisIgnoresBlips(t *testing.T) {
	g, _ := NewGoertzel(testTone())
	d, _ := NewDetector(DetectorConfig{Threshold: 0.3, Hysteresis: 3, SampleRate: testSampleRate}, g)

	count := 0
	d.SetCallback(func(bool, time.Time) { count++ })
	d.Start(time.Unix(0, 0))

	d.Process(sine(testFrequency, 2*testBlockSize, 0.8))
	d.Process(make([]float32, 5*testBlockSize))

	if count != 0 {
		t.Errorf("two-block blip produced %d edges with hysteresis 3", count)
	}
	if d.Level() != 0 {
		t.Errorf("Level() = %v after silence, want 0", d.Level())
	}
}
