// internal/keyer/timing.go
// Package keyer classifies key press/release timestamps into Morse elements,
// characters and words.
package keyer

import (
	"errors"
	"time"
)

// Morse timing ratios (ITU standard), in dit units
const (
	// DahDitRatio is the ratio of dah duration to dit duration (ITU: 3:1)
	DahDitRatio = 3.0
	// IntraCharSpaceRatio is the space between elements within a character (ITU: 1)
	IntraCharSpaceRatio = 1.0
	// InterCharSpaceRatio is the space between characters (ITU: 3)
	InterCharSpaceRatio = 3.0
	// WordSpaceRatio is the space between words (ITU: 7)
	WordSpaceRatio = 7.0

	// MillisecondsPerUnitAt1WPM gives the dit length: unit (ms) = 1200 / WPM ("PARIS" = 50 units)
	MillisecondsPerUnitAt1WPM = 1200.0

	// DefaultIdleTimeout flushes a trailing character when no further press arrives
	DefaultIdleTimeout = 2 * time.Second
)

var (
	// ErrInvalidWPM indicates WPM must be positive
	ErrInvalidWPM = errors.New("WPM must be positive")
	// ErrInvalidFarnsworthWPM indicates Farnsworth WPM must not exceed character WPM
	ErrInvalidFarnsworthWPM = errors.New("farnsworth WPM must be between 1 and the character WPM")
	// ErrInvalidIdleTimeout indicates the idle timeout must not be negative
	ErrInvalidIdleTimeout = errors.New("idle timeout must not be negative")
)

// Timing holds the element and gap durations derived from a speed setting.
type Timing struct {
	// Unit is one dit: 1200 / WPM milliseconds
	Unit time.Duration
	// Dah is 3 units
	Dah time.Duration
	// IntraGap is the space between elements of a character (1 unit)
	IntraGap time.Duration
	// CharGap is the space between characters (3 units, or Farnsworth-stretched)
	CharGap time.Duration
	// WordGap is the space between words (7 units, or Farnsworth-stretched)
	WordGap time.Duration

	// DitDahThreshold splits dits from dahs (midpoint of 1 and 3 units)
	DitDahThreshold time.Duration
	// CharThreshold is the shortest gap that ends a character (midpoint of IntraGap and CharGap)
	CharThreshold time.Duration
	// WordThreshold is the shortest gap that ends a word (midpoint of CharGap and WordGap)
	WordThreshold time.Duration
}

// NewTiming derives timing for a character speed. farnsworthWPM stretches the
// character and word gaps to an overall speed below wpm; 0 disables it.
func NewTiming(wpm, farnsworthWPM int) (Timing, error) {
	if wpm <= 0 {
		return Timing{}, ErrInvalidWPM
	}
	if farnsworthWPM < 0 || farnsworthWPM > wpm {
		return Timing{}, ErrInvalidFarnsworthWPM
	}

	unit := UnitFor(wpm)
	t := Timing{
		Unit:     unit,
		Dah:      scale(unit, DahDitRatio),
		IntraGap: scale(unit, IntraCharSpaceRatio),
		CharGap:  scale(unit, InterCharSpaceRatio),
		WordGap:  scale(unit, WordSpaceRatio),
	}

	if farnsworthWPM > 0 && farnsworthWPM < wpm {
		// ARRL Farnsworth: total added delay per word ta = (60c - 37.2s) / (s*c) seconds,
		// spread over 19 units of gap (3 after each of 4 chars + 7 for the word).
		c := float64(wpm)
		s := float64(farnsworthWPM)
		ta := (60*c - 37.2*s) / (s * c)
		t.CharGap = time.Duration(3 * ta / 19 * float64(time.Second))
		t.WordGap = time.Duration(7 * ta / 19 * float64(time.Second))
	}

	t.DitDahThreshold = (unit + t.Dah) / 2
	t.CharThreshold = (t.IntraGap + t.CharGap) / 2
	t.WordThreshold = (t.CharGap + t.WordGap) / 2
	return t, nil
}

// UnitFor returns the dit duration for a speed in WPM.
func UnitFor(wpm int) time.Duration {
	return time.Duration(MillisecondsPerUnitAt1WPM / float64(wpm) * float64(time.Millisecond))
}

// WPMFor returns the speed whose dit is unit long, rounded to the nearest WPM.
func WPMFor(unit time.Duration) int {
	if unit <= 0 {
		return 0
	}
	ms := float64(unit) / float64(time.Millisecond)
	return int(MillisecondsPerUnitAt1WPM/ms + 0.5)
}

func scale(d time.Duration, ratio float64) time.Duration {
	return time.Duration(float64(d) * ratio)
}

// MinIdleTimeout is the shortest idle flush that cannot split a character
// whose next element is still being held.
func MinIdleTimeout(t Timing) time.Duration {
	return t.WordThreshold + t.Dah
}
