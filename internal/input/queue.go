// internal/input/queue.go
// Package input collects key events from every key source into one queue.
package input

import (
	"errors"
	"sync/atomic"

	"github.com/ColonelBlimp/cwtutor/internal/keyer"
)

// DefaultQueueSize is the queue capacity when none is configured
const DefaultQueueSize = 256

// ErrInvalidQueueSize indicates the queue capacity must be positive
var ErrInvalidQueueSize = errors.New("queue size must be positive")

// Kind identifies the input carried by an Event.
type Kind int

const (
	// Keyed is a completed press/release pair
	Keyed Kind = iota
	// Typed is a character entered directly, bypassing the classifier
	Typed
)

// Event is one unit of learner input.
type Event struct {
	Kind Kind
	Key  keyer.KeyEvent
	Char string
}

// Queue is a bounded multi-producer queue with a single consumer.
// Push never blocks; events that do not fit are counted and dropped.
type Queue struct {
	ch      chan Event
	dropped atomic.Uint64
}

// NewQueue creates a queue with the given capacity.
func NewQueue(size int) (*Queue, error) {
	if size <= 0 {
		return nil, ErrInvalidQueueSize
	}
	return &Queue{ch: make(chan Event, size)}, nil
}

// Push enqueues ev, returning false if the queue was full.
func (q *Queue) Push(ev Event) bool {
	select {
	case q.ch <- ev:
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

// Events returns the receive side for the consumer.
func (q *Queue) Events() <-chan Event {
	return q.ch
}

// Len returns the number of queued events.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Dropped returns how many events were discarded because the queue was full.
func (q *Queue) Dropped() uint64 {
	return q.dropped.Load()
}

// Drain discards everything currently queued and returns the count.
func (q *Queue) Drain() int {
	n := 0
	for {
		select {
		case <-q.ch:
			n++
		default:
			return n
		}
	}
}
