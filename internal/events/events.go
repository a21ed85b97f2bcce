package events

import (
	"context"

	"github.com/alfredjeanlab/relaynotes/internal/model"
)

// Topic constants. All topics share the "relaynotes." prefix so watchers can
// subscribe to "relaynotes.>".
const (
	TopicPrefix = "relaynotes."

	TopicNoteStored    = "relaynotes.note.stored"
	TopicNotePublished = "relaynotes.note.published"
	TopicRelayState    = "relaynotes.relay.state"
)

// NoteStored is emitted after the ingestion loop persists a new event.
type NoteStored struct {
	Event *model.Event `json:"event"`
	Note  model.Note   `json:"note"`
}

// NotePublished is emitted after a note is handed to the relay.
type NotePublished struct {
	Event *model.Event `json:"event"`
	Acked bool         `json:"acked"`
}

// RelayState is emitted when the relay session changes state.
type RelayState struct {
	URL   string `json:"url"`
	State string `json:"state"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
