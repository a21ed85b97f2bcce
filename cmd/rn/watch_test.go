package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/alfredjeanlab/relaynotes/internal/events"
	"github.com/alfredjeanlab/relaynotes/internal/model"
	"github.com/alfredjeanlab/relaynotes/internal/ui"
)

func TestDiffNotes_InitialPoll(t *testing.T) {
	seen := make(map[string]bool)
	notes := []model.Note{
		{AuthorBech32: "npub1a", Content: "one", CreatedAt: 1},
		{AuthorBech32: "npub1a", Content: "two", CreatedAt: 2},
	}

	if got := diffNotes(notes, seen); len(got) != 2 {
		t.Fatalf("got %d fresh, want 2", len(got))
	}
	if len(seen) != 2 {
		t.Fatalf("got %d seen, want 2", len(seen))
	}
	if got := diffNotes(notes, seen); len(got) != 0 {
		t.Fatalf("second poll returned %d fresh, want 0", len(got))
	}
}

func TestDiffNotes_SameSecondDifferentContent(t *testing.T) {
	seen := make(map[string]bool)
	diffNotes([]model.Note{{AuthorBech32: "npub1a", Content: "one", CreatedAt: 5}}, seen)

	got := diffNotes([]model.Note{
		{AuthorBech32: "npub1a", Content: "one", CreatedAt: 5},
		{AuthorBech32: "npub1a", Content: "two", CreatedAt: 5},
	}, seen)
	if len(got) != 1 || got[0].Content != "two" {
		t.Fatalf("fresh = %+v, want only %q", got, "two")
	}
}

func TestPrintMessage(t *testing.T) {
	ui.ForceNoColor()

	note := model.Note{AuthorBech32: "npub1a", Content: "hello", CreatedAt: 10}
	stored, _ := json.Marshal(events.NoteStored{Note: note})
	state, _ := json.Marshal(events.RelayState{URL: "wss://relay.example", State: "disconnected"})

	seen := make(map[string]bool)
	var buf bytes.Buffer

	if err := printMessage(&buf, events.Message{Topic: events.TopicNoteStored, Data: stored}, seen); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "hello") {
		t.Errorf("note not printed: %q", buf.String())
	}

	// Redelivery of the same note prints nothing.
	buf.Reset()
	if err := printMessage(&buf, events.Message{Topic: events.TopicNoteStored, Data: stored}, seen); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 0 {
		t.Errorf("duplicate printed: %q", buf.String())
	}

	buf.Reset()
	if err := printMessage(&buf, events.Message{Topic: events.TopicRelayState, Data: state}, seen); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "relay wss://relay.example is disconnected\n" {
		t.Errorf("state line = %q", buf.String())
	}

	buf.Reset()
	if err := printMessage(&buf, events.Message{Topic: events.TopicNotePublished, Data: []byte(`{}`)}, seen); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 0 {
		t.Errorf("published event printed: %q", buf.String())
	}

	if err := printMessage(&buf, events.Message{Topic: events.TopicNoteStored, Data: []byte(`{`)}, seen); err == nil {
		t.Error("expected decode error")
	}
}
