package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alfredjeanlab/relaynotes/internal/model"
	"github.com/alfredjeanlab/relaynotes/internal/store"
	"github.com/alfredjeanlab/relaynotes/internal/store/sqlite"
)

func openStore(t *testing.T) *sqlite.SQLiteStore {
	t.Helper()
	s, err := sqlite.Open(filepath.Join(t.TempDir(), "events.db"))
	if err != nil {
		t.Fatalf("sqlite.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func put(t *testing.T, s store.Store, evs ...*model.Event) {
	t.Helper()
	for _, ev := range evs {
		if _, err := s.PutIfAbsent(context.Background(), ev); err != nil {
			t.Fatal(err)
		}
	}
}

func TestExportJSONL_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportJSONL(context.Background(), openStore(t), &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := nonEmptyLines(buf.String())
	if len(lines) != 1 {
		t.Fatalf("expected 1 line (header only), got %d", len(lines))
	}

	var h header
	if err := json.Unmarshal([]byte(lines[0]), &h); err != nil {
		t.Fatalf("unmarshal header: %v", err)
	}
	if h.Version != "1" || h.Type != "header" || h.EventCount != 0 || h.TextNoteCount != 0 {
		t.Fatalf("unexpected header: %+v", h)
	}
}

func TestExportJSONL_OldestFirst(t *testing.T) {
	s := openStore(t)
	put(t, s,
		&model.Event{ID: "late", PubKey: "pk", Kind: model.KindTextNote, CreatedAt: 300, Content: "<b>late</b>", Tags: [][]string{{"t", "go"}}},
		&model.Event{ID: "early", PubKey: "pk", Kind: model.KindTextNote, CreatedAt: 100, Content: "early"},
		&model.Event{ID: "profile", PubKey: "pk", Kind: model.KindMetadata, CreatedAt: 200, Content: "{}"},
	)

	var buf bytes.Buffer
	if err := ExportJSONL(context.Background(), s, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := nonEmptyLines(buf.String())
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d:\n%s", len(lines), buf.String())
	}

	var h header
	if err := json.Unmarshal([]byte(lines[0]), &h); err != nil {
		t.Fatalf("unmarshal header: %v", err)
	}
	if h.EventCount != 3 || h.TextNoteCount != 2 {
		t.Fatalf("header counts: events=%d notes=%d", h.EventCount, h.TextNoteCount)
	}

	var ids []string
	for _, line := range lines[1:] {
		var rec struct {
			Type string      `json:"type"`
			Data model.Event `json:"data"`
		}
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("unmarshal %q: %v", line, err)
		}
		if rec.Type != "event" {
			t.Fatalf("record type = %q", rec.Type)
		}
		ids = append(ids, rec.Data.ID)
		if rec.Data.ID == "late" && (len(rec.Data.Tags) != 1 || rec.Data.Tags[0][1] != "go") {
			t.Errorf("tags not exported: %v", rec.Data.Tags)
		}
	}
	if strings.Join(ids, ",") != "early,profile,late" {
		t.Errorf("export order = %v", ids)
	}
	if !strings.Contains(buf.String(), "<b>late</b>") {
		t.Error("content was HTML-escaped")
	}
}

func TestExportJSONL_StoreError(t *testing.T) {
	s := openStore(t)
	s.Close()

	var buf bytes.Buffer
	if err := ExportJSONL(context.Background(), s, &buf); err == nil {
		t.Fatal("expected error from closed store")
	}
}

func nonEmptyLines(s string) []string {
	var result []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			result = append(result, line)
		}
	}
	return result
}
