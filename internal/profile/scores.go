package profile

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/ColonelBlimp/cwtutor/internal/practice"
)

// MaxRecentSessions is how many session records are kept
const MaxRecentSessions = 50

// CharScore is the lifetime count for one character.
type CharScore struct {
	Correct   int `toml:"correct"`
	Incorrect int `toml:"incorrect"`
}

// HighScores are the best results of a profile.
type HighScores struct {
	BestWPM       float64   `toml:"best_wpm"`
	BestAccuracy  float64   `toml:"best_accuracy"`
	TotalSessions int       `toml:"total_sessions"`
	UpdatedAt     time.Time `toml:"updated_at,omitempty"`
}

// SessionRecord is one finished run.
type SessionRecord struct {
	At             time.Time `toml:"at"`
	Origin         string    `toml:"origin"`
	Characters     int       `toml:"characters"`
	Accuracy       float64   `toml:"accuracy"`
	WPM            float64   `toml:"wpm"`
	ElapsedSeconds float64   `toml:"elapsed_seconds"`
	DitRatio       float64   `toml:"dit_ratio,omitempty"`
	DahRatio       float64   `toml:"dah_ratio,omitempty"`
}

// Scores is the accuracy and high-score document.
type Scores struct {
	Accuracy   map[string]CharScore `toml:"accuracy"`
	HighScores HighScores           `toml:"high_scores"`
	Sessions   []SessionRecord      `toml:"sessions"`
}

// Stats converts the lifetime counts for display and analysis.
func (s Scores) Stats() practice.AccuracyStats {
	out := make(practice.AccuracyStats, len(s.Accuracy))
	for tok, cs := range s.Accuracy {
		out[tok] = practice.CharStats{Correct: cs.Correct, Incorrect: cs.Incorrect}
	}
	return out
}

// Merge folds a finished run into the scores. It reports whether a high
// score was beaten.
func (s *Scores) Merge(sum practice.Summary) bool {
	if s.Accuracy == nil {
		s.Accuracy = map[string]CharScore{}
	}
	for tok, cs := range sum.Stats {
		cur := s.Accuracy[tok]
		cur.Correct += cs.Correct
		cur.Incorrect += cs.Incorrect
		s.Accuracy[tok] = cur
	}

	s.Sessions = append(s.Sessions, SessionRecord{
		At:             sum.EndedAt,
		Origin:         sum.Origin,
		Characters:     sum.Correct + sum.Incorrect,
		Accuracy:       sum.Accuracy,
		WPM:            sum.WPM,
		ElapsedSeconds: sum.Elapsed().Seconds(),
		DitRatio:       sum.Timing.DitRatio,
		DahRatio:       sum.Timing.DahRatio,
	})
	if n := len(s.Sessions); n > MaxRecentSessions {
		s.Sessions = append([]SessionRecord(nil), s.Sessions[n-MaxRecentSessions:]...)
	}

	hs := &s.HighScores
	hs.TotalSessions++
	improved := false
	// A partial run does not set records
	if sum.Completed {
		if sum.WPM > hs.BestWPM {
			hs.BestWPM = sum.WPM
			improved = true
		}
		if sum.Accuracy > hs.BestAccuracy {
			hs.BestAccuracy = sum.Accuracy
			improved = true
		}
	}
	if improved {
		hs.UpdatedAt = sum.EndedAt
	}
	return improved
}

// LoadScores reads a scores document. A missing file yields empty scores.
func LoadScores(path string) (Scores, error) {
	var s Scores
	if _, err := toml.DecodeFile(path, &s); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Scores{Accuracy: map[string]CharScore{}}, nil
		}
		return Scores{Accuracy: map[string]CharScore{}}, fmt.Errorf("read scores: %w", err)
	}
	if s.Accuracy == nil {
		s.Accuracy = map[string]CharScore{}
	}
	return s, nil
}

// SaveScores writes s atomically.
func SaveScores(path string, s Scores) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(s); err != nil {
		return fmt.Errorf("encode scores: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".scores-*.toml")
	if err != nil {
		return fmt.Errorf("write scores: %w", err)
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write scores: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write scores: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write scores: %w", err)
	}
	return nil
}
