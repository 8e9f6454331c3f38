package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ColonelBlimp/cwtutor/internal/practice"
	"github.com/ColonelBlimp/cwtutor/internal/profile"
)

func sampleScores() profile.Scores {
	at := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	return profile.Scores{
		Accuracy: map[string]profile.CharScore{
			"E":  {Correct: 10, Incorrect: 0},
			"Q":  {Correct: 1, Incorrect: 3},
			"AR": {Correct: 4, Incorrect: 1},
		},
		HighScores: profile.HighScores{BestWPM: 14.5, BestAccuracy: 96, TotalSessions: 2},
		Sessions: []profile.SessionRecord{
			{At: at, Origin: "groups:a", Characters: 5, Accuracy: 80, WPM: 12},
			{At: at.Add(time.Hour), Origin: "groups:a", Characters: 5, Accuracy: 96, WPM: 14.5},
		},
	}
}

func TestSummaryLines(t *testing.T) {
	start := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	stats := practice.AccuracyStats{
		"S":  {Correct: 2},
		"O":  {Correct: 1, Incorrect: 1},
		"SK": {Incorrect: 1},
	}

	tests := []struct {
		name    string
		sum     practice.Summary
		want    []string
		notWant []string
	}{
		{
			name: "completed with timing",
			sum: practice.Summary{
				StartedAt: start, EndedAt: start.Add(30 * time.Second),
				Correct: 3, Incorrect: 2, Accuracy: 60, WPM: 12.3,
				Stats:     stats,
				Timing:    practice.TimingFeedback{Elements: 12, DitRatio: 1.1, DahRatio: 0.95, Spread: 0.2},
				Completed: true,
			},
			want: []string{"Run complete: 3/5 correct", "Accuracy 60.0%", "12.3 WPM", "30s", "dit 1.10", "Practise: <SK> O"},
		},
		{
			name: "finished early without keying",
			sum: practice.Summary{
				StartedAt: start, EndedAt: start.Add(5 * time.Second),
				Correct: 1, Accuracy: 100,
				Stats: practice.AccuracyStats{"E": {Correct: 1}},
			},
			want:    []string{"Run finished early: 1/1 correct"},
			notWant: []string{"Timing", "Practise"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := strings.Join(SummaryLines(tt.sum), "\n")
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("summary missing %q:\n%s", w, out)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(out, w) {
					t.Errorf("summary should not contain %q:\n%s", w, out)
				}
			}
		})
	}
}

func TestToken(t *testing.T) {
	if got := Token("A"); got != "A" {
		t.Errorf("Token(A) = %q", got)
	}
	if got := Token("SK"); got != "<SK>" {
		t.Errorf("Token(SK) = %q", got)
	}
}

func TestWriteStats(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteStats(&buf, "alice", sampleScores(), false); err != nil {
		t.Fatalf("WriteStats() error = %v", err)
	}
	out := buf.String()

	for _, w := range []string{"Profile alice", "Sessions 2", "Best WPM 14.5", "Char", "<AR>", "25.0%", "100.0%"} {
		if !strings.Contains(out, w) {
			t.Errorf("output missing %q:\n%s", w, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Error("plain output should not contain escape sequences")
	}

	// weakest first
	q := strings.Index(out, "Q ")
	e := strings.Index(out, "E ")
	if q < 0 || e < 0 || q > e {
		t.Errorf("expected Q before E:\n%s", out)
	}
}

func TestWriteStats_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteStats(&buf, "new", profile.Scores{}, false); err != nil {
		t.Fatalf("WriteStats() error = %v", err)
	}
	if !strings.Contains(buf.String(), "No characters scored yet") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}
}

func TestWriteChart(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteChart(&buf, "alice", sampleScores()); err != nil {
		t.Fatalf("WriteChart() error = %v", err)
	}
	out := buf.String()
	for _, w := range []string{"<html", "Session history", "Accuracy by character", "echarts"} {
		if !strings.Contains(out, w) {
			t.Errorf("chart missing %q", w)
		}
	}
}

func TestWriteChart_NoSessions(t *testing.T) {
	var buf bytes.Buffer
	err := WriteChart(&buf, "new", profile.Scores{})
	if !errors.Is(err, ErrNoSessions) {
		t.Errorf("WriteChart() error = %v, want ErrNoSessions", err)
	}
}
