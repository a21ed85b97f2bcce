package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/alfredjeanlab/relaynotes/internal/model"
	"github.com/alfredjeanlab/relaynotes/internal/store"
)

// header is the first JSONL record written by ExportJSONL.
type header struct {
	Version       string    `json:"version"`
	Type          string    `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	EventCount    int       `json:"event_count"`
	TextNoteCount int       `json:"text_note_count"`
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// ExportJSONL writes every stored event as JSONL to w, oldest first. Events
// are written in their signed wire form so the file can be replayed into a
// relay.
func ExportJSONL(ctx context.Context, s store.Store, w io.Writer) error {
	evs, err := s.Query(ctx, model.Filter{}, model.OrderAsc)
	if err != nil {
		return fmt.Errorf("query events: %w", err)
	}

	notes := 0
	for _, ev := range evs {
		if ev.Kind.Class() == model.KindClassTextNote {
			notes++
		}
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(header{
		Version:       "1",
		Type:          "header",
		Timestamp:     time.Now().UTC(),
		EventCount:    len(evs),
		TextNoteCount: notes,
	}); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}

	for _, ev := range evs {
		if err := enc.Encode(record{Type: "event", Data: ev}); err != nil {
			return fmt.Errorf("encode event %s: %w", ev.ID, err)
		}
	}

	return nil
}
