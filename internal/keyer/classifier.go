// internal/keyer/classifier.go
package keyer

import (
	"errors"
	"sync"
	"time"

	"github.com/ColonelBlimp/cwtutor/internal/morse"
)

// ErrTableRequired indicates a Morse table is required
var ErrTableRequired = errors.New("morse table is required")

// State is the classifier position within the current character.
type State int

const (
	// Idle means nothing has been keyed since start or reset
	Idle State = iota
	// Keying means the key is down
	Keying
	// InterElementGap means the key is up and the gap is not yet classified
	InterElementGap
	// CharacterComplete means the last character was decoded and emitted
	CharacterComplete
	// WordComplete means a word separator was emitted after the last character
	WordComplete
)

// String returns the human-readable name of the state.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Keying:
		return "keying"
	case InterElementGap:
		return "inter-element-gap"
	case CharacterComplete:
		return "character-complete"
	case WordComplete:
		return "word-complete"
	default:
		return "unknown"
	}
}

// EventKind identifies what a classifier Event carries.
type EventKind int

const (
	// ElementKeyed is emitted on every release with the classified symbol
	ElementKeyed EventKind = iota
	// CharacterDecoded carries a decoded character or prosign
	CharacterDecoded
	// WordSeparator marks a word boundary
	WordSeparator
	// DecodeFailed carries a symbol buffer with no table entry
	DecodeFailed
	// StateChanged reports a state transition
	StateChanged
)

// Event is emitted by the classifier through its callback.
type Event struct {
	Kind EventKind
	// Char is the decoded token (CharacterDecoded) or " " (WordSeparator)
	Char string
	// Symbols is the element symbol (ElementKeyed) or the flushed buffer
	Symbols string
	// Duration is the keyed element length (ElementKeyed)
	Duration time.Duration
	// Ideal is the nominal length of the classified element (ElementKeyed)
	Ideal time.Duration
	// State is the new state (StateChanged)
	State State
	// At is the key timestamp that produced the event
	At time.Time
}

// Callback receives classifier events. Must be non-blocking and fast.
type Callback func(Event)

// KeyEvent is one press/release pair on a single monotonic clock.
type KeyEvent struct {
	Press   time.Time
	Release time.Time
}

// Duration returns how long the key was down.
func (k KeyEvent) Duration() time.Duration {
	return k.Release.Sub(k.Press)
}

// Config holds classifier configuration.
type Config struct {
	// WPM is the character speed (from settings: wpm)
	WPM int
	// FarnsworthWPM is the overall speed for spacing, 0 to disable (from settings: farnsworth_wpm)
	FarnsworthWPM int
	// IdleTimeout flushes a trailing character (from config: idle_timeout_ms), 0 = DefaultIdleTimeout
	IdleTimeout time.Duration
}

// Classifier turns key events into Morse symbols and decoded characters.
// It is deterministic for a given Config and sequence of timestamps.
type Classifier struct {
	config Config
	timing Timing
	table  *morse.Table

	mu          sync.Mutex
	state       State
	buffer      []byte
	pressAt     time.Time
	lastRelease time.Time

	callbackPtr *Callback
}

// New creates a classifier for the given configuration.
func New(cfg Config, table *morse.Table) (*Classifier, error) {
	if table == nil {
		return nil, ErrTableRequired
	}
	if cfg.IdleTimeout < 0 {
		return nil, ErrInvalidIdleTimeout
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	timing, err := NewTiming(cfg.WPM, cfg.FarnsworthWPM)
	if err != nil {
		return nil, err
	}
	// Key events arrive on release, so the gap clock keeps running while the
	// next element is held down. Never flush before a word gap plus a dah.
	if floor := MinIdleTimeout(timing); cfg.IdleTimeout < floor {
		cfg.IdleTimeout = floor
	}
	return &Classifier{
		config: cfg,
		timing: timing,
		table:  table,
		buffer: make([]byte, 0, morse.MaxSymbols+1),
	}, nil
}

// SetCallback sets the callback for classifier events.
func (c *Classifier) SetCallback(cb Callback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cb == nil {
		c.callbackPtr = nil
	} else {
		c.callbackPtr = &cb
	}
}

// Timing returns the derived timing.
func (c *Classifier) Timing() Timing {
	return c.timing
}

// State returns the current state.
func (c *Classifier) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Buffer returns the symbols keyed so far for the current character.
func (c *Classifier) Buffer() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return string(c.buffer)
}

// Key processes a full press/release pair.
func (c *Classifier) Key(ev KeyEvent) {
	c.Press(ev.Press)
	c.Release(ev.Release)
}

// Press handles the key going down. The gap since the previous release decides
// whether the pending character (and word) is complete.
func (c *Classifier) Press(at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case Keying:
		// Already down; a lost release is not recoverable here
		return
	case InterElementGap:
		gap := at.Sub(c.lastRelease)
		if gap >= c.timing.CharThreshold {
			c.completeCharacter(at)
			if gap >= c.timing.WordThreshold {
				c.completeWord(at)
			}
		}
	case CharacterComplete:
		if at.Sub(c.lastRelease) >= c.timing.WordThreshold {
			c.completeWord(at)
		}
	}

	c.pressAt = at
	c.setState(Keying, at)
}

// Release handles the key going up and classifies the element.
func (c *Classifier) Release(at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Keying {
		return
	}

	duration := at.Sub(c.pressAt)
	symbol, ideal := byte(morse.Dit), c.timing.Unit
	if duration >= c.timing.DitDahThreshold {
		symbol, ideal = morse.Dah, c.timing.Dah
	}
	// Longer than any table entry can only fail to decode; stop growing
	if len(c.buffer) <= morse.MaxSymbols {
		c.buffer = append(c.buffer, symbol)
	}
	c.lastRelease = at

	c.emit(Event{
		Kind:     ElementKeyed,
		Symbols:  string(symbol),
		Duration: duration,
		Ideal:    ideal,
		At:       at,
	})
	c.setState(InterElementGap, at)
}

// Tick checks for an idle timeout and flushes a trailing character when the
// key has been up for at least IdleTimeout. Returns true if anything was emitted.
func (c *Classifier) Tick(now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	idle := now.Sub(c.lastRelease)
	switch c.state {
	case InterElementGap:
		if idle < c.config.IdleTimeout {
			return false
		}
		c.completeCharacter(now)
		if idle >= c.timing.WordThreshold {
			c.completeWord(now)
		}
		return true
	case CharacterComplete:
		if idle >= c.timing.WordThreshold {
			c.completeWord(now)
			return true
		}
	}
	return false
}

// Flush forces a character boundary for whatever has been keyed.
func (c *Classifier) Flush(at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == InterElementGap {
		c.completeCharacter(at)
	}
}

// Discard drops the pending symbols without decoding them.
func (c *Classifier) Discard() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buffer = c.buffer[:0]
	c.state = Idle
}

// Reset clears all state.
func (c *Classifier) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buffer = c.buffer[:0]
	c.state = Idle
	c.pressAt = time.Time{}
	c.lastRelease = time.Time{}
}

// completeCharacter decodes and clears the buffer. Caller holds mu.
func (c *Classifier) completeCharacter(at time.Time) {
	c.setState(CharacterComplete, at)
	if len(c.buffer) == 0 {
		return
	}
	symbols := string(c.buffer)
	c.buffer = c.buffer[:0]

	token, err := c.table.Decode(symbols)
	if err != nil {
		c.emit(Event{Kind: DecodeFailed, Symbols: symbols, At: at})
		return
	}
	c.emit(Event{Kind: CharacterDecoded, Char: token, Symbols: symbols, At: at})
}

// completeWord emits a word separator. Caller holds mu.
func (c *Classifier) completeWord(at time.Time) {
	c.emit(Event{Kind: WordSeparator, Char: " ", At: at})
	c.setState(WordComplete, at)
}

func (c *Classifier) setState(s State, at time.Time) {
	if c.state == s {
		return
	}
	c.state = s
	c.emit(Event{Kind: StateChanged, State: s, At: at})
}

func (c *Classifier) emit(ev Event) {
	if c.callbackPtr != nil {
		(*c.callbackPtr)(ev)
	}
}
