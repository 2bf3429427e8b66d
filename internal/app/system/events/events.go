// Package events publishes domain events (project and membership changes,
// ticket lifecycle) for other services to consume.
package events

import (
	"context"
	"time"
)

// Event types.
const (
	ProjectCreated = "project.created"
	ProjectRenamed = "project.renamed"
	ProjectDeleted = "project.deleted"
	MemberAdded    = "member.added"
	MemberUpdated  = "member.updated"
	MemberRemoved  = "member.removed"
	EmailBlocked   = "email.blocked"
	EmailUnblocked = "email.unblocked"
	TicketCreated  = "ticket.created"
	TicketUpdated  = "ticket.updated"
)

// Event is one domain change.
type Event struct {
	Type    string            `json:"type"`
	Subject string            `json:"subject"` // id of the changed entity
	Actor   string            `json:"actor,omitempty"`
	At      time.Time         `json:"at"`
	Data    map[string]string `json:"data,omitempty"`
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop discards events.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, Event) error { return nil }

// Recorder keeps published events in memory. Tests use it to assert on
// what was emitted.
type Recorder struct {
	ch chan Event
}

// NewRecorder returns a Recorder buffering up to n events.
func NewRecorder(n int) *Recorder {
	return &Recorder{ch: make(chan Event, n)}
}

// Publish implements Publisher. Events beyond the buffer are dropped.
func (r *Recorder) Publish(_ context.Context, e Event) error {
	select {
	case r.ch <- e:
	default:
	}
	return nil
}

// Drain returns everything recorded so far.
func (r *Recorder) Drain() []Event {
	var out []Event
	for {
		select {
		case e := <-r.ch:
			out = append(out, e)
		default:
			return out
		}
	}
}
