// Package event provides the typed event queue the core drains once per tick.
package event

import "fmt"

// Kind identifies an event.
type Kind uint8

const (
	KindCollect Kind = iota
	KindBounce
	KindLevelStart
	KindLevelComplete
	KindGameWon
	KindLoading
	KindWarning
)

func (k Kind) String() string {
	switch k {
	case KindCollect:
		return "collect"
	case KindBounce:
		return "bounce"
	case KindLevelStart:
		return "level_start"
	case KindLevelComplete:
		return "level_complete"
	case KindGameWon:
		return "game_won"
	case KindLoading:
		return "loading"
	case KindWarning:
		return "warning"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Event is a flat record; which fields are set depends on Kind.
type Event struct {
	Kind Kind

	// Collect / bounce
	ItemID   uint64
	Size     float64
	Speed    float64
	Dangling bool

	// Level events
	Level  int
	Theme  string
	Target float64
	Items  int

	// Loading / warning
	Show bool
	Text string
}

// Queue is a FIFO of events. Producers Push during a tick, the core
// drains it at fixed points of the pipeline. Not safe for concurrent use.
type Queue struct {
	pending []Event
	spare   []Event
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{
		pending: make([]Event, 0, 32),
		spare:   make([]Event, 0, 32),
	}
}

// Push appends an event.
func (q *Queue) Push(e Event) {
	q.pending = append(q.pending, e)
}

// Warn pushes a formatted warning.
func (q *Queue) Warn(format string, args ...any) {
	q.Push(Event{Kind: KindWarning, Show: true, Text: fmt.Sprintf(format, args...)})
}

// Drain returns all pending events in FIFO order. The returned slice is
// only valid until the next Drain.
func (q *Queue) Drain() []Event {
	out := q.pending
	q.pending = q.spare[:0]
	q.spare = out
	return out
}

// Len returns the number of pending events.
func (q *Queue) Len() int {
	return len(q.pending)
}
