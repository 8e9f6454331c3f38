// internal/practice/session.go
package practice

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultRollingWindow is the span used for realized speed
const DefaultRollingWindow = 30 * time.Second

var (
	// ErrNotRunning indicates the operation needs a running session
	ErrNotRunning = errors.New("practice session is not running")
	// ErrSourceRequired indicates Start was called without a source
	ErrSourceRequired = errors.New("practice source is required")
	// ErrEmptyTarget indicates the source produced nothing to score
	ErrEmptyTarget = errors.New("practice target is empty")
)

// State is the session lifecycle.
type State int

const (
	// Ready means no run is in progress
	Ready State = iota
	// Running means input is being scored
	Running
	// Finished means the run completed and its summary is frozen
	Finished
	// Aborted means the run was cancelled and discarded
	Aborted
)

// String returns the human-readable name of the state.
func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Finished:
		return "finished"
	case Aborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Recorder persists the summary of a finished run.
type Recorder interface {
	Record(Summary) error
}

// Config holds session configuration.
type Config struct {
	// RollingWindow is the speed window (from config: rolling_window_s), 0 = DefaultRollingWindow
	RollingWindow time.Duration
	// Now is the clock, nil = time.Now
	Now func() time.Time
	// Rand drives target generation, nil = time-seeded
	Rand *rand.Rand
	// Recorder receives finished runs, nil to skip persistence
	Recorder Recorder
	Logger   *zap.Logger
}

// Progress is the state after one scored input.
type Progress struct {
	// Index is the position of the next expected token
	Index    int
	Expected string
	Got      string
	Correct  bool
	Accuracy float64
	WPM      float64
	// Done is set when the input completed the run
	Done    bool
	Summary *Summary
}

// Summary is the frozen result of a run.
type Summary struct {
	Origin    string
	Target    []string
	StartedAt time.Time
	EndedAt   time.Time
	Correct   int
	Incorrect int
	// Accuracy is a percentage
	Accuracy float64
	// WPM is the realized speed over the whole run
	WPM    float64
	Stats  AccuracyStats
	Timing TimingFeedback
	// Completed is false when the run was finished early
	Completed bool
}

// Elapsed returns the run duration.
func (s Summary) Elapsed() time.Duration {
	return s.EndedAt.Sub(s.StartedAt)
}

// Session scores decoded characters against a target.
type Session struct {
	config Config
	logger *zap.Logger

	mu        sync.Mutex
	state     State
	target    Target
	index     int
	startedAt time.Time
	correct   int
	incorrect int
	observed  int
	stats     AccuracyStats
	rate      rollingRate
	timing    timingSamples
	summary   *Summary
}

// New creates a session in the Ready state.
func New(cfg Config) *Session {
	if cfg.RollingWindow <= 0 {
		cfg.RollingWindow = DefaultRollingWindow
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		config: cfg,
		logger: logger,
		rate:   rollingRate{window: cfg.RollingWindow},
	}
}

// Start generates a fresh target and resets all counters. Any run in progress
// is discarded without being persisted. On error the session is left as it was.
func (s *Session) Start(src Source) (Target, error) {
	if src == nil {
		return Target{}, ErrSourceRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	target, err := src.Target(s.config.Rand)
	if err != nil {
		return Target{}, err
	}
	if target.Scored() == 0 {
		return Target{}, ErrEmptyTarget
	}
	if len(target.Skipped) > 0 {
		s.logger.Warn("skipped characters with no Morse code",
			zap.String("origin", target.Origin),
			zap.String("chars", string(target.Skipped)))
	}

	s.target = target
	s.index = 0
	s.skipSeparators()
	s.startedAt = s.config.Now()
	s.correct, s.incorrect, s.observed = 0, 0, 0
	s.stats = AccuracyStats{}
	s.rate = rollingRate{window: s.config.RollingWindow}
	s.timing = timingSamples{}
	s.summary = nil
	s.state = Running

	s.logger.Debug("practice started",
		zap.String("origin", target.Origin),
		zap.Int("characters", target.Scored()))
	return target, nil
}

// OnDecoded scores one decoded character against the expected token and
// advances. Word separators carry no score and are ignored.
func (s *Session) OnDecoded(token string) (Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Running {
		return Progress{}, ErrNotRunning
	}
	if token == " " {
		return s.progress(), nil
	}
	return s.score(token)
}

// OnDecodeFailure scores an unrecognised symbol buffer as a miss.
func (s *Session) OnDecodeFailure(symbols string) (Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Running {
		return Progress{}, ErrNotRunning
	}
	s.logger.Debug("decode failure", zap.String("symbols", symbols))
	return s.score("")
}

// RecordElement adds one keyed element to the timing feedback.
func (s *Session) RecordElement(dah bool, duration, ideal time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Running {
		s.timing.add(dah, duration, ideal)
	}
}

// Finish freezes the run and persists it. After auto-completion it returns
// the already frozen summary.
func (s *Session) Finish() (Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case Finished:
		return *s.summary, nil
	case Running:
		return s.finish(false)
	default:
		return Summary{}, ErrNotRunning
	}
}

// Abort discards the run without persisting anything.
func (s *Session) Abort() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Running {
		s.logger.Debug("practice aborted", zap.Int("index", s.index))
	}
	s.state = Aborted
	s.summary = nil
}

// State returns the lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Target returns the current target.
func (s *Session) Target() Target {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target
}

// Expected returns the next expected token, "" when none remains.
func (s *Session) Expected() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Running || s.index >= len(s.target.Tokens) {
		return ""
	}
	return s.target.Tokens[s.index]
}

// Progress returns the current standing without scoring anything.
func (s *Session) Progress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress()
}

// score compares got with the expected token. Caller holds mu.
func (s *Session) score(got string) (Progress, error) {
	now := s.config.Now()
	expected := s.target.Tokens[s.index]
	ok := got == expected

	if ok {
		s.correct++
	} else {
		s.incorrect++
	}
	s.observed++
	s.stats.Record(expected, ok)
	s.rate.add(now)

	s.index++
	s.skipSeparators()

	p := s.progress()
	p.Expected = expected
	p.Got = got
	p.Correct = ok

	if s.index >= len(s.target.Tokens) {
		summary, err := s.finish(true)
		p.Done = true
		p.Summary = &summary
		return p, err
	}
	return p, nil
}

func (s *Session) progress() Progress {
	return Progress{
		Index:    s.index,
		Accuracy: Accuracy(s.correct, s.incorrect),
		WPM:      s.rate.wpm(s.startedAt, s.config.Now()),
	}
}

func (s *Session) skipSeparators() {
	for s.index < len(s.target.Tokens) && s.target.Tokens[s.index] == " " {
		s.index++
	}
}

// finish freezes the summary and hands it to the recorder. Caller holds mu.
func (s *Session) finish(completed bool) (Summary, error) {
	end := s.config.Now()
	summary := Summary{
		Origin:    s.target.Origin,
		Target:    append([]string(nil), s.target.Tokens...),
		StartedAt: s.startedAt,
		EndedAt:   end,
		Correct:   s.correct,
		Incorrect: s.incorrect,
		Accuracy:  Accuracy(s.correct, s.incorrect),
		Stats:     s.stats.Clone(),
		Timing:    s.timing.feedback(),
		Completed: completed,
	}
	if minutes := end.Sub(s.startedAt).Minutes(); minutes > 0 {
		summary.WPM = float64(s.observed) / CharsPerWord / minutes
	}
	s.summary = &summary
	s.state = Finished

	s.logger.Info("practice finished",
		zap.String("origin", summary.Origin),
		zap.Int("correct", summary.Correct),
		zap.Int("incorrect", summary.Incorrect),
		zap.Float64("accuracy", summary.Accuracy),
		zap.Float64("wpm", summary.WPM))

	if s.config.Recorder == nil || summary.Correct+summary.Incorrect == 0 {
		return summary, nil
	}
	if err := s.config.Recorder.Record(summary); err != nil {
		s.logger.Error("failed to record practice results", zap.Error(err))
		return summary, fmt.Errorf("record results: %w", err)
	}
	return summary, nil
}
