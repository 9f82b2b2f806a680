package testing

import "sync"

// Event is one recorded interaction with a simulated collaborator.
type Event struct {
	Seq       int
	Stream    string
	Kind      string
	Timestamp float64
}

// EventLog is an ordered, shared record of simulated events. Several
// simulations may write to one log so tests can assert cross-stream ordering.
type EventLog struct {
	mu     sync.Mutex
	events []Event
}

// NewEventLog creates an empty log.
func NewEventLog() *EventLog {
	return &EventLog{events: make([]Event, 0)}
}

// Record appends an event. A nil log discards it.
func (l *EventLog) Record(stream, kind string, ts float64) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, Event{Seq: len(l.events), Stream: stream, Kind: kind, Timestamp: ts})
}

// Events returns a copy of every recorded event in order.
func (l *EventLog) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// First returns the earliest event matching stream and kind.
func (l *EventLog) First(stream, kind string) (Event, bool) {
	for _, e := range l.Events() {
		if e.Stream == stream && e.Kind == kind {
			return e, true
		}
	}
	return Event{}, false
}

// Count returns the number of events matching stream and kind.
func (l *EventLog) Count(stream, kind string) int {
	n := 0
	for _, e := range l.Events() {
		if e.Stream == stream && e.Kind == kind {
			n++
		}
	}
	return n
}
