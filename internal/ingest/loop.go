// Package ingest drains a relay subscription into the event store.
package ingest

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/alfredjeanlab/relaynotes/internal/events"
	"github.com/alfredjeanlab/relaynotes/internal/metrics"
	"github.com/alfredjeanlab/relaynotes/internal/model"
	"github.com/alfredjeanlab/relaynotes/internal/relay"
	"github.com/alfredjeanlab/relaynotes/internal/store"
)

// Stats counts what the loop has done with the notifications it received.
type Stats struct {
	Received   int64 `json:"received"`
	Stored     int64 `json:"stored"`
	Duplicates int64 `json:"duplicates"`
	Ignored    int64 `json:"ignored"`
	Failed     int64 `json:"failed"`
}

// Loop commits text notes from a notification sequence into a store.
type Loop struct {
	store     store.Store
	publisher events.Publisher
	logger    *slog.Logger

	received   atomic.Int64
	stored     atomic.Int64
	duplicates atomic.Int64
	ignored    atomic.Int64
	failed     atomic.Int64
}

// New creates a Loop. A nil publisher disables note.stored events; a nil
// logger uses slog.Default.
func New(s store.Store, publisher events.Publisher, logger *slog.Logger) *Loop {
	if publisher == nil {
		publisher = &events.NoopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{store: s, publisher: publisher, logger: logger}
}

// Run processes notifications in arrival order until the channel is closed
// or ctx is cancelled. Store failures are logged and skipped; Run only
// returns when its input ends.
func (l *Loop) Run(ctx context.Context, notifications <-chan relay.Notification) error {
	l.logger.Info("ingestion started")
	defer func() {
		st := l.Stats()
		l.logger.Info("ingestion stopped",
			"received", st.Received, "stored", st.Stored, "duplicates", st.Duplicates,
			"ignored", st.Ignored, "failed", st.Failed)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case n, ok := <-notifications:
			if !ok {
				return nil
			}
			l.handle(ctx, n)
		}
	}
}

func (l *Loop) handle(ctx context.Context, n relay.Notification) {
	l.received.Add(1)

	if !n.IsEvent() {
		metrics.Notifications.WithLabelValues("non_event").Inc()
		l.ignored.Add(1)
		l.logger.Debug("relay notification", "detail", n.Other)
		return
	}

	ev := n.Event
	class := ev.Kind.Class()
	metrics.Notifications.WithLabelValues(class.String()).Inc()
	if class != model.KindClassTextNote {
		l.ignored.Add(1)
		l.logger.Debug("ignoring event", "id", ev.ID, "kind", ev.Kind)
		return
	}

	inserted, err := l.store.PutIfAbsent(ctx, ev)
	if err != nil {
		l.failed.Add(1)
		metrics.Writes.WithLabelValues(metrics.WriteError).Inc()
		l.logger.Error("storing event", "id", ev.ID, "err", err)
		return
	}
	if !inserted {
		l.duplicates.Add(1)
		metrics.Writes.WithLabelValues(metrics.WriteDuplicate).Inc()
		l.logger.Debug("duplicate event", "id", ev.ID)
		return
	}

	l.stored.Add(1)
	metrics.Writes.WithLabelValues(metrics.WriteStored).Inc()
	l.logger.Debug("stored event", "id", ev.ID, "created_at", ev.CreatedAt)

	note, err := model.NoteFromEvent(ev)
	if err != nil {
		l.logger.Warn("projecting stored event", "id", ev.ID, "err", err)
		return
	}
	if err := l.publisher.Publish(ctx, events.TopicNoteStored, events.NoteStored{Event: ev, Note: note}); err != nil {
		l.logger.Warn("failed to publish event", "topic", events.TopicNoteStored, "err", err)
	}
}

// Stats returns a snapshot of the counters. It is safe to call while Run
// is active.
func (l *Loop) Stats() Stats {
	return Stats{
		Received:   l.received.Load(),
		Stored:     l.stored.Load(),
		Duplicates: l.duplicates.Load(),
		Ignored:    l.ignored.Load(),
		Failed:     l.failed.Load(),
	}
}
