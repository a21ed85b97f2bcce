package relay

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nbd-wtf/go-nostr"

	"github.com/alfredjeanlab/relaynotes/internal/model"
)

// NostrDialer connects with github.com/nbd-wtf/go-nostr.
type NostrDialer struct{}

// Dial opens a websocket connection to the relay at url.
func (NostrDialer) Dial(ctx context.Context, url string) (Conn, error) {
	c := &nostrConn{notices: make(chan string, 16)}
	r, err := nostr.RelayConnect(ctx, url, nostr.WithNoticeHandler(c.onNotice))
	if err != nil {
		return nil, err
	}
	c.relay = r
	return c, nil
}

type nostrConn struct {
	relay   *nostr.Relay
	notices chan string
}

// onNotice runs on the relay's read loop and must not block.
func (c *nostrConn) onNotice(notice string) {
	select {
	case c.notices <- notice:
	default:
	}
}

// NostrFilter converts a model filter into its wire form.
func NostrFilter(f model.Filter) nostr.Filter {
	nf := nostr.Filter{
		Authors: f.Authors,
		Limit:   f.Limit,
	}
	for _, k := range f.Kinds {
		nf.Kinds = append(nf.Kinds, int(k))
	}
	if f.Since != nil {
		ts := nostr.Timestamp(f.Since.Unix())
		nf.Since = &ts
	}
	return nf
}

func (c *nostrConn) Subscribe(ctx context.Context, label string, filter model.Filter) (<-chan Notification, error) {
	sub, err := c.relay.Subscribe(ctx, nostr.Filters{NostrFilter(filter)}, nostr.WithLabel(label))
	if err != nil {
		return nil, err
	}

	out := make(chan Notification)
	go func() {
		defer close(out)
		defer sub.Unsub()

		eose := sub.EndOfStoredEvents
		closed := sub.ClosedReason
		send := func(n Notification) bool {
			select {
			case out <- n:
				return true
			case <-ctx.Done():
				return false
			}
		}
		for {
			var ok bool
			select {
			case ev, open := <-sub.Events:
				if !open {
					return
				}
				ok = send(EventNotification(model.EventFromNostr(ev)))
			case <-eose:
				eose = nil
				ok = send(OtherNotification("eose"))
			case reason := <-closed:
				closed = nil
				ok = send(OtherNotification("closed: " + reason))
			case notice := <-c.notices:
				ok = send(OtherNotification("notice: " + notice))
			case <-ctx.Done():
				return
			case <-c.relay.Context().Done():
				return
			}
			if !ok {
				return
			}
		}
	}()
	return out, nil
}

func (c *nostrConn) Publish(ctx context.Context, ev *model.Event, waitForAck bool) error {
	wire := ev.Nostr()
	if waitForAck {
		return c.relay.Publish(ctx, wire)
	}

	frame, err := json.Marshal(&nostr.EventEnvelope{Event: wire})
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}
	select {
	case err := <-c.relay.Write(frame):
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *nostrConn) Done() <-chan struct{} { return c.relay.Context().Done() }

func (c *nostrConn) Close() error { return c.relay.Close() }
