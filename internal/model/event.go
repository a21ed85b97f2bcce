package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nbd-wtf/go-nostr"
)

// Event is a signed, content-addressed relay event. Events are never
// mutated after they are built; stores and handlers pass pointers for
// convenience only.
type Event struct {
	ID        string     `json:"id"`
	PubKey    string     `json:"pubkey"`
	Kind      Kind       `json:"kind"`
	CreatedAt int64      `json:"created_at"`
	Tags      [][]string `json:"tags"`
	Content   string     `json:"content"`
	Sig       string     `json:"sig"`
}

// EventFromNostr copies a wire event into the local model.
func EventFromNostr(ev *nostr.Event) *Event {
	tags := make([][]string, 0, len(ev.Tags))
	for _, tag := range ev.Tags {
		tags = append(tags, append([]string(nil), tag...))
	}
	return &Event{
		ID:        ev.ID,
		PubKey:    ev.PubKey,
		Kind:      Kind(ev.Kind),
		CreatedAt: int64(ev.CreatedAt),
		Tags:      tags,
		Content:   ev.Content,
		Sig:       ev.Sig,
	}
}

// Nostr converts the event back to its wire form.
func (e *Event) Nostr() nostr.Event {
	tags := make(nostr.Tags, 0, len(e.Tags))
	for _, tag := range e.Tags {
		tags = append(tags, nostr.Tag(append([]string(nil), tag...)))
	}
	return nostr.Event{
		ID:        e.ID,
		PubKey:    e.PubKey,
		CreatedAt: nostr.Timestamp(e.CreatedAt),
		Kind:      int(e.Kind),
		Tags:      tags,
		Content:   e.Content,
		Sig:       e.Sig,
	}
}

// Time returns the creation timestamp as a time.Time in UTC.
func (e *Event) Time() time.Time {
	return time.Unix(e.CreatedAt, 0).UTC()
}

// Verify checks that the ID is the hash of the other fields and that the
// signature was made by PubKey over that ID.
func (e *Event) Verify() error {
	ev := e.Nostr()
	if ev.GetID() != e.ID {
		return fmt.Errorf("event %s: id does not match content", e.ID)
	}
	ok, err := ev.CheckSignature()
	if err != nil {
		return fmt.Errorf("event %s: check signature: %w", e.ID, err)
	}
	if !ok {
		return fmt.Errorf("event %s: invalid signature", e.ID)
	}
	return nil
}

// TagsJSON encodes the tag list for storage. A nil tag list encodes as "[]".
func (e *Event) TagsJSON() ([]byte, error) {
	if e.Tags == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(e.Tags)
}
