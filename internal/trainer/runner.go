// internal/trainer/runner.go
// Package trainer runs a practice session: one goroutine owns the timing
// classifier and the session and is the only path that mutates them.
package trainer

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ColonelBlimp/cwtutor/internal/input"
	"github.com/ColonelBlimp/cwtutor/internal/keyer"
	"github.com/ColonelBlimp/cwtutor/internal/morse"
	"github.com/ColonelBlimp/cwtutor/internal/practice"
	"github.com/ColonelBlimp/cwtutor/internal/recovery"
)

// DefaultTickInterval is how often the idle timeout is checked
const DefaultTickInterval = 10 * time.Millisecond

var (
	// ErrClassifierRequired indicates the runner needs a classifier
	ErrClassifierRequired = errors.New("classifier is required")
	// ErrSessionRequired indicates the runner needs a session
	ErrSessionRequired = errors.New("practice session is required")
	// ErrQueueRequired indicates the runner needs an input queue
	ErrQueueRequired = errors.New("input queue is required")
	// ErrInvalidTickInterval indicates the tick interval must be positive
	ErrInvalidTickInterval = errors.New("tick interval must be positive")
)

// EventKind identifies what a runner Event carries.
type EventKind int

const (
	// ElementKeyed carries one classified dit or dah
	ElementKeyed EventKind = iota
	// CharacterDecoded carries a decoded or typed character
	CharacterDecoded
	// WordSeparator marks a word boundary
	WordSeparator
	// DecodeFailed carries symbols with no table entry
	DecodeFailed
	// KeyerStateChanged reports a classifier state transition
	KeyerStateChanged
	// ProgressUpdated follows every scored input
	ProgressUpdated
	// SessionStarted carries the new target
	SessionStarted
	// SessionFinished carries the frozen summary
	SessionFinished
	// SessionAborted reports a discarded run
	SessionAborted
	// Failed carries a non-fatal error, such as a failed score save
	Failed
)

// String returns the human-readable name of the kind.
func (k EventKind) String() string {
	switch k {
	case ElementKeyed:
		return "element-keyed"
	case CharacterDecoded:
		return "character-decoded"
	case WordSeparator:
		return "word-separator"
	case DecodeFailed:
		return "decode-failed"
	case KeyerStateChanged:
		return "keyer-state-changed"
	case ProgressUpdated:
		return "progress-updated"
	case SessionStarted:
		return "session-started"
	case SessionFinished:
		return "session-finished"
	case SessionAborted:
		return "session-aborted"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event is delivered to the presentation layer.
type Event struct {
	Kind       EventKind
	Char       string
	Symbols    string
	KeyerState keyer.State
	Target     practice.Target
	Progress   practice.Progress
	Summary    *practice.Summary
	Err        error
	At         time.Time
}

// Callback receives runner events on the runner goroutine. It must not call
// back into the Runner.
type Callback func(Event)

// Silencer stops anything sounding. Called on abort and on panic.
type Silencer interface {
	Off()
}

// SilencerFunc adapts a function to Silencer.
type SilencerFunc func()

// Off implements Silencer.
func (f SilencerFunc) Off() { f() }

// Config holds runner configuration.
type Config struct {
	// TickInterval is the idle-timeout check period (from config: poll_interval_ms), 0 = DefaultTickInterval
	TickInterval time.Duration
	// Now is the clock, nil = time.Now
	Now func() time.Time
}

type commandKind int

const (
	cmdStart commandKind = iota
	cmdFinish
	cmdAbort
)

type command struct {
	kind   commandKind
	source practice.Source
	reply  chan result
}

type result struct {
	target  practice.Target
	summary practice.Summary
	err     error
}

// Runner feeds queued input through the classifier into the session.
type Runner struct {
	config     Config
	classifier *keyer.Classifier
	session    *practice.Session
	queue      *input.Queue
	silencer   Silencer
	logger     *zap.Logger

	cmds        chan command
	pending     []keyer.Event
	callbackPtr atomic.Pointer[Callback]
}

// New creates a runner. silencer may be nil.
func New(cfg Config, classifier *keyer.Classifier, session *practice.Session, queue *input.Queue, silencer Silencer, logger *zap.Logger) (*Runner, error) {
	if classifier == nil {
		return nil, ErrClassifierRequired
	}
	if session == nil {
		return nil, ErrSessionRequired
	}
	if queue == nil {
		return nil, ErrQueueRequired
	}
	if cfg.TickInterval < 0 {
		return nil, ErrInvalidTickInterval
	}
	if cfg.TickInterval == 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Runner{
		config:     cfg,
		classifier: classifier,
		session:    session,
		queue:      queue,
		silencer:   silencer,
		logger:     logger,
		cmds:       make(chan command),
	}
	// The classifier calls back with its lock held, so events are only
	// collected here and dispatched once the classifier call returns.
	classifier.SetCallback(func(ev keyer.Event) {
		r.pending = append(r.pending, ev)
	})
	return r, nil
}

// SetCallback sets the event callback.
func (r *Runner) SetCallback(cb Callback) {
	if cb == nil {
		r.callbackPtr.Store(nil)
		return
	}
	r.callbackPtr.Store(&cb)
}

// Run processes input and commands until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	defer recovery.HandlePanicFunc(r.logger, r.silence)

	ticker := time.NewTicker(r.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.silence()
			return ctx.Err()
		case ev := <-r.queue.Events():
			r.handle(ev)
		case cmd := <-r.cmds:
			cmd.reply <- r.execute(cmd)
		case <-ticker.C:
			r.tick(r.config.Now())
		}
	}
}

// Start begins a new run from src. Any run in progress is discarded.
func (r *Runner) Start(ctx context.Context, src practice.Source) (practice.Target, error) {
	res, err := r.do(ctx, command{kind: cmdStart, source: src})
	if err != nil {
		return practice.Target{}, err
	}
	return res.target, res.err
}

// Finish ends the current run early, scoring any character still being keyed.
func (r *Runner) Finish(ctx context.Context) (practice.Summary, error) {
	res, err := r.do(ctx, command{kind: cmdFinish})
	if err != nil {
		return practice.Summary{}, err
	}
	return res.summary, res.err
}

// Abort silences the sidetone and discards the run and any pending symbols.
func (r *Runner) Abort(ctx context.Context) error {
	_, err := r.do(ctx, command{kind: cmdAbort})
	return err
}

func (r *Runner) do(ctx context.Context, cmd command) (result, error) {
	cmd.reply = make(chan result, 1)
	select {
	case r.cmds <- cmd:
	case <-ctx.Done():
		return result{}, ctx.Err()
	}
	select {
	case res := <-cmd.reply:
		return res, nil
	case <-ctx.Done():
		return result{}, ctx.Err()
	}
}

func (r *Runner) execute(cmd command) result {
	now := r.config.Now()
	switch cmd.kind {
	case cmdStart:
		target, err := r.session.Start(cmd.source)
		if err != nil {
			return result{err: err}
		}
		r.classifier.Reset()
		r.pending = r.pending[:0]
		r.emit(Event{Kind: SessionStarted, Target: target, At: now})
		return result{target: target}

	case cmdFinish:
		r.classifier.Flush(now)
		r.dispatch()
		if r.session.State() != practice.Running {
			// Completed by the flushed character, or nothing to finish
			sum, err := r.session.Finish()
			return result{summary: sum, err: err}
		}
		sum, err := r.session.Finish()
		r.emit(Event{Kind: SessionFinished, Summary: &sum, Err: err, At: now})
		if err != nil {
			r.emit(Event{Kind: Failed, Err: err, At: now})
		}
		return result{summary: sum, err: err}

	case cmdAbort:
		r.silence()
		dropped := r.queue.Drain()
		r.classifier.Discard()
		r.pending = r.pending[:0]
		r.session.Abort()
		r.logger.Debug("practice aborted", zap.Int("dropped_events", dropped))
		r.emit(Event{Kind: SessionAborted, At: now})
		return result{}
	}
	return result{}
}

// handle processes one queued input event.
func (r *Runner) handle(ev input.Event) {
	switch ev.Kind {
	case input.Keyed:
		r.classifier.Key(ev.Key)
		r.dispatch()
	case input.Typed:
		r.typed(ev.Char)
	}
}

// typed scores a character entered directly, bypassing the classifier.
func (r *Runner) typed(char string) {
	now := r.config.Now()
	if char == " " {
		r.emit(Event{Kind: WordSeparator, Char: " ", At: now})
		return
	}
	token := strings.ToUpper(char)
	r.emit(Event{Kind: CharacterDecoded, Char: token, At: now})
	r.score(r.session.OnDecoded(token))
}

// tick flushes a trailing character once the key has been idle long enough.
func (r *Runner) tick(now time.Time) {
	if r.classifier.Tick(now) {
		r.dispatch()
	}
}

// dispatch forwards collected classifier events and scores them.
func (r *Runner) dispatch() {
	events := r.pending
	r.pending = nil
	for _, ev := range events {
		switch ev.Kind {
		case keyer.ElementKeyed:
			r.session.RecordElement(ev.Symbols == string(morse.Dah), ev.Duration, ev.Ideal)
			r.emit(Event{Kind: ElementKeyed, Symbols: ev.Symbols, At: ev.At})
		case keyer.CharacterDecoded:
			r.emit(Event{Kind: CharacterDecoded, Char: ev.Char, Symbols: ev.Symbols, At: ev.At})
			r.score(r.session.OnDecoded(ev.Char))
		case keyer.WordSeparator:
			r.emit(Event{Kind: WordSeparator, Char: " ", At: ev.At})
		case keyer.DecodeFailed:
			r.emit(Event{Kind: DecodeFailed, Symbols: ev.Symbols, At: ev.At})
			r.score(r.session.OnDecodeFailure(ev.Symbols))
		case keyer.StateChanged:
			r.emit(Event{Kind: KeyerStateChanged, KeyerState: ev.State, At: ev.At})
		}
	}
}

// score reports the outcome of one scored input. Input outside a run is
// decoded and shown but not scored.
func (r *Runner) score(p practice.Progress, err error) {
	if errors.Is(err, practice.ErrNotRunning) {
		return
	}
	now := r.config.Now()
	r.emit(Event{Kind: ProgressUpdated, Progress: p, At: now})
	if p.Done {
		r.emit(Event{Kind: SessionFinished, Summary: p.Summary, Err: err, At: now})
	}
	if err != nil {
		r.emit(Event{Kind: Failed, Err: err, At: now})
	}
}

func (r *Runner) silence() {
	if r.silencer != nil {
		r.silencer.Off()
	}
}

func (r *Runner) emit(ev Event) {
	if cb := r.callbackPtr.Load(); cb != nil {
		(*cb)(ev)
	}
}
