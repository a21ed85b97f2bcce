package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/nbd-wtf/go-nostr"

	"github.com/alfredjeanlab/relaynotes/internal/identity"
	"github.com/alfredjeanlab/relaynotes/internal/ingest"
	"github.com/alfredjeanlab/relaynotes/internal/model"
	"github.com/alfredjeanlab/relaynotes/internal/relay"
	"github.com/alfredjeanlab/relaynotes/internal/relay/relaytest"
	"github.com/alfredjeanlab/relaynotes/internal/store/sqlite"
)

// TestPublishedNoteIsRedeliveredAndListed runs the whole pipeline against an
// in-process relay that echoes published events back to the subscription.
func TestPublishedNoteIsRedeliveredAndListed(t *testing.T) {
	relaySrv := relaytest.NewServer()
	defer relaySrv.Close()

	dir := t.TempDir()
	id, err := identity.LoadOrCreate(filepath.Join(dir, ".nsec"))
	if err != nil {
		t.Fatal(err)
	}
	st, err := sqlite.Open(filepath.Join(dir, "events.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	session := relay.NewSession(relaySrv.URL(), id, relay.WithLogger(discardLogger))
	if err := session.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	start := time.Now()
	sub, err := session.Subscribe(ctx, model.Filter{
		Authors: []string{id.PublicKey()},
		Kinds:   []model.Kind{model.KindTextNote},
		Since:   &start,
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	loop := ingest.New(st, nil, discardLogger)
	ingestDone := make(chan error, 1)
	go func() { ingestDone <- loop.Run(ctx, sub.Notifications()) }()

	h := newTestServer(st, session, nil).NewHTTPHandler("")

	rec := doRequest(t, h, http.MethodPost, "/publish-text-note", `{"msg": "hello"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("publish status = %d, body: %s", rec.Code, rec.Body.String())
	}

	var notes []model.Note
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		rec = doRequest(t, h, http.MethodGet, "/latest-text-notes?limit=1", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("list status = %d", rec.Code)
		}
		notes = nil
		if err := json.NewDecoder(rec.Body).Decode(&notes); err != nil {
			t.Fatal(err)
		}
		if len(notes) > 0 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	if len(notes) != 1 {
		t.Fatalf("notes = %v, want exactly one", notes)
	}
	got := notes[0]
	if got.AuthorBech32 != id.NPub() || got.Content != "hello" {
		t.Errorf("note = %+v, want author %s content hello", got, id.NPub())
	}
	if got.CreatedAt < start.Unix() || got.CreatedAt > time.Now().Unix() {
		t.Errorf("created_at %d outside test window", got.CreatedAt)
	}

	if err := session.Close(); err != nil {
		t.Errorf("session Close: %v", err)
	}
	select {
	case err := <-ingestDone:
		if err != nil {
			t.Errorf("ingest Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("ingestion did not stop after session close")
	}
	if s := loop.Stats(); s.Stored != 1 {
		t.Errorf("ingest stats = %+v", s)
	}
}

// The relay session itself publishes empty content; only the service
// rejects it.
func TestPublishNote_EmptyRejectedAboveSession(t *testing.T) {
	signer, err := identity.Parse(nostr.GeneratePrivateKey())
	if err != nil {
		t.Fatal(err)
	}
	relaySrv := relaytest.NewServer()
	defer relaySrv.Close()
	sess := relay.NewSession(relaySrv.URL(), signer, relay.WithWaitForAck(true))
	defer sess.Close()
	if err := sess.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}

	if _, err := sess.Publish(context.Background(), ""); err != nil {
		t.Fatalf("Session.Publish(\"\"): %v", err)
	}

	srv := newTestServer(newMockStore(), sess, nil)
	var ie inputError
	if err := srv.PublishNote(context.Background(), ""); !errors.As(err, &ie) {
		t.Fatalf("PublishNote(\"\") err = %v, want inputError", err)
	}
	if n := len(relaySrv.Events()); n != 1 {
		t.Errorf("relay holds %d events, want only the session's 1", n)
	}
}
