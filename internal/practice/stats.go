package practice

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// CharsPerWord is the standard word length used for speed ("PARIS")
const CharsPerWord = 5.0

// CharStats counts results for one expected character.
type CharStats struct {
	Correct   int
	Incorrect int
}

// Total returns the number of attempts.
func (c CharStats) Total() int {
	return c.Correct + c.Incorrect
}

// AccuracyStats maps an expected character to its counts.
type AccuracyStats map[string]CharStats

// Record counts one attempt for token.
func (a AccuracyStats) Record(token string, correct bool) {
	cs := a[token]
	if correct {
		cs.Correct++
	} else {
		cs.Incorrect++
	}
	a[token] = cs
}

// Merge adds other into a.
func (a AccuracyStats) Merge(other AccuracyStats) {
	for tok, cs := range other {
		cur := a[tok]
		cur.Correct += cs.Correct
		cur.Incorrect += cs.Incorrect
		a[tok] = cur
	}
}

// Totals sums all characters.
func (a AccuracyStats) Totals() (correct, incorrect int) {
	for _, cs := range a {
		correct += cs.Correct
		incorrect += cs.Incorrect
	}
	return correct, incorrect
}

// Clone returns an independent copy.
func (a AccuracyStats) Clone() AccuracyStats {
	out := make(AccuracyStats, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Weakest returns characters ordered by ascending accuracy, ties by name.
func (a AccuracyStats) Weakest() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ai, aj := Accuracy(a[keys[i]].Correct, a[keys[i]].Incorrect), Accuracy(a[keys[j]].Correct, a[keys[j]].Incorrect)
		if ai == aj {
			return keys[i] < keys[j]
		}
		return ai < aj
	})
	return keys
}

// Accuracy returns correct / total as a percentage, 0 when nothing was scored.
func Accuracy(correct, incorrect int) float64 {
	total := correct + incorrect
	if total == 0 {
		return 0
	}
	return float64(correct) / float64(total) * 100
}

// rollingRate measures characters per minute over a sliding window.
type rollingRate struct {
	window time.Duration
	stamps []time.Time
}

func (r *rollingRate) add(at time.Time) {
	r.stamps = append(r.stamps, at)
}

// wpm returns the speed over the last window (or since start, if shorter).
func (r *rollingRate) wpm(start, now time.Time) float64 {
	cutoff := now.Add(-r.window)
	i := 0
	for i < len(r.stamps) && r.stamps[i].Before(cutoff) {
		i++
	}
	r.stamps = r.stamps[i:]

	span := now.Sub(start)
	if span > r.window {
		span = r.window
	}
	if span <= 0 || len(r.stamps) == 0 {
		return 0
	}
	return float64(len(r.stamps)) / CharsPerWord / span.Minutes()
}

// TimingFeedback summarizes keyed element lengths relative to the ideal.
// A ratio of 1.0 is perfect; above 1 means elements were held too long.
type TimingFeedback struct {
	Elements int
	// DitRatio and DahRatio are mean keyed/ideal ratios per element type
	DitRatio float64
	DahRatio float64
	// Spread is the standard deviation of all ratios
	Spread float64
}

type timingSamples struct {
	dits []float64
	dahs []float64
}

func (ts *timingSamples) add(dah bool, duration, ideal time.Duration) {
	if ideal <= 0 {
		return
	}
	ratio := float64(duration) / float64(ideal)
	if dah {
		ts.dahs = append(ts.dahs, ratio)
	} else {
		ts.dits = append(ts.dits, ratio)
	}
}

func (ts *timingSamples) feedback() TimingFeedback {
	all := append(append([]float64(nil), ts.dits...), ts.dahs...)
	fb := TimingFeedback{Elements: len(all)}
	if len(ts.dits) > 0 {
		fb.DitRatio = stat.Mean(ts.dits, nil)
	}
	if len(ts.dahs) > 0 {
		fb.DahRatio = stat.Mean(ts.dahs, nil)
	}
	if len(all) > 1 {
		_, fb.Spread = stat.MeanStdDev(all, nil)
	}
	return fb
}
