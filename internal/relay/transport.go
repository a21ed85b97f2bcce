package relay

import (
	"context"

	"github.com/alfredjeanlab/relaynotes/internal/model"
)

// Notification is one inbound message from a subscription. Exactly one of
// Event and Other is set: Event for a relay EVENT, Other for anything else
// (end of stored events, CLOSED, NOTICE) described as text.
type Notification struct {
	Event *model.Event
	Other string
}

// EventNotification wraps an inbound event.
func EventNotification(ev *model.Event) Notification {
	return Notification{Event: ev}
}

// OtherNotification wraps a non-event message.
func OtherNotification(desc string) Notification {
	return Notification{Other: desc}
}

// IsEvent reports whether the notification carries an event.
func (n Notification) IsEvent() bool { return n.Event != nil }

func (n Notification) String() string {
	if n.Event != nil {
		return "event " + n.Event.ID
	}
	return n.Other
}

// Dialer opens transport connections to relays.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// Conn is an open relay connection.
type Conn interface {
	// Subscribe sends a REQ for filter under label. The returned channel
	// carries notifications in arrival order and is closed when ctx ends or
	// the connection drops.
	Subscribe(ctx context.Context, label string, filter model.Filter) (<-chan Notification, error)
	// Publish sends ev. When waitForAck is false it returns once the frame
	// is written; otherwise it waits for the relay's OK.
	Publish(ctx context.Context, ev *model.Event, waitForAck bool) error
	// Done is closed when the connection has ended.
	Done() <-chan struct{}
	Close() error
}
