// Package server implements the note query and command service and its
// HTTP JSON surface.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alfredjeanlab/relaynotes/internal/events"
	"github.com/alfredjeanlab/relaynotes/internal/identity"
	"github.com/alfredjeanlab/relaynotes/internal/metrics"
	"github.com/alfredjeanlab/relaynotes/internal/model"
	"github.com/alfredjeanlab/relaynotes/internal/relay"
	"github.com/alfredjeanlab/relaynotes/internal/store"
)

// Listing limits for ListRecentNotes.
const (
	DefaultNoteLimit = 10
	MaxNoteLimit     = 10
)

// Relay is the part of the relay session the service needs.
// *relay.Session satisfies it.
type Relay interface {
	Publish(ctx context.Context, content string) (*model.Event, error)
	State() relay.State
	WaitsForAck() bool
}

// NotesServer serves the three note operations over a shared store and
// relay session. It holds no state of its own beyond those handles.
type NotesServer struct {
	store  store.Store
	relay  Relay
	bus    events.Publisher
	logger *slog.Logger
	mint   func() (identity.Keys, error)
}

// Option configures a NotesServer.
type Option func(*NotesServer)

// WithLogger sets the logger used for per-request diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *NotesServer) { s.logger = l }
}

// NewNotesServer returns a NotesServer reading from s and publishing
// through r. bus may be nil.
func NewNotesServer(s store.Store, r Relay, bus events.Publisher, opts ...Option) *NotesServer {
	if bus == nil {
		bus = &events.NoopPublisher{}
	}
	srv := &NotesServer{
		store:  s,
		relay:  r,
		bus:    bus,
		logger: slog.Default(),
		mint:   identity.Mint,
	}
	for _, opt := range opts {
		opt(srv)
	}
	return srv
}

// inputError indicates invalid user input.
// Transport layers map this to 400.
type inputError string

func (e inputError) Error() string { return string(e) }

// MintIdentity returns a fresh keypair unrelated to the session identity.
func (s *NotesServer) MintIdentity(ctx context.Context) (identity.Keys, error) {
	keys, err := s.mint()
	if err != nil {
		s.logger.Error("minting identity", "err", err)
		return identity.Keys{}, fmt.Errorf("mint identity: %w", err)
	}
	return keys, nil
}

// PublishNote signs content as a text note and sends it to the relay.
// Empty or whitespace-only content is rejected.
func (s *NotesServer) PublishNote(ctx context.Context, content string) error {
	if strings.TrimSpace(content) == "" {
		return inputError("msg is required")
	}

	ev, err := s.relay.Publish(ctx, content)
	if err != nil {
		metrics.Publishes.WithLabelValues(metrics.PublishError).Inc()
		s.logger.Error("publishing note", "err", err)
		return fmt.Errorf("publish note: %w", err)
	}
	metrics.Publishes.WithLabelValues(metrics.PublishOK).Inc()
	s.logger.Info("published note", "id", ev.ID)

	if err := s.bus.Publish(ctx, events.TopicNotePublished, events.NotePublished{Event: ev, Acked: s.relay.WaitsForAck()}); err != nil {
		s.logger.Warn("failed to publish event", "topic", events.TopicNotePublished, "err", err)
	}
	return nil
}

// ListRecentNotes returns the newest stored text notes. A nil limit means
// DefaultNoteLimit; any limit is capped at MaxNoteLimit. The result is
// never nil.
func (s *NotesServer) ListRecentNotes(ctx context.Context, limit *int) ([]model.Note, error) {
	n := DefaultNoteLimit
	if limit != nil {
		if *limit < 0 {
			return nil, inputError("limit must not be negative")
		}
		n = min(*limit, MaxNoteLimit)
	}
	if n == 0 {
		return []model.Note{}, nil
	}

	evs, err := s.store.Query(ctx, model.Filter{
		Kinds: []model.Kind{model.KindTextNote},
		Limit: n,
	}, model.OrderDesc)
	if err != nil {
		return nil, fmt.Errorf("query notes: %w", err)
	}

	notes := make([]model.Note, 0, len(evs))
	for _, ev := range evs {
		note, err := model.NoteFromEvent(ev)
		if err != nil {
			s.logger.Warn("skipping stored event", "id", ev.ID, "err", err)
			continue
		}
		notes = append(notes, note)
	}
	return notes, nil
}

// RelayState reports the relay session state.
func (s *NotesServer) RelayState() relay.State {
	return s.relay.State()
}
