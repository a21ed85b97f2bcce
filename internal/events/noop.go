package events

import "context"

// NoopPublisher discards every event. serve uses it when RN_NATS_URL is
// unset so callers never nil-check the bus.
type NoopPublisher struct{}

var _ Publisher = (*NoopPublisher)(nil)

func (*NoopPublisher) Publish(context.Context, string, any) error { return nil }

func (*NoopPublisher) Close() error { return nil }
