package store

import (
	"context"
	"errors"

	"github.com/alfredjeanlab/relaynotes/internal/model"
)

var (
	// ErrUnavailable means the storage medium could not be opened or
	// migrated. It is fatal at startup.
	ErrUnavailable = errors.New("storage unavailable")

	// ErrWrite means a single event failed to persist.
	ErrWrite = errors.New("storage write failed")
)

// Store defines the persistence interface for relay events. Implementations
// must be safe for one writer and many readers running concurrently.
type Store interface {
	// PutIfAbsent inserts ev keyed by its id and reports whether a new row
	// was written. It must rely on the engine's atomic insert-or-ignore.
	PutIfAbsent(ctx context.Context, ev *model.Event) (bool, error)

	// Query returns matching events ordered by created_at, truncated to
	// filter.Limit when it is positive.
	Query(ctx context.Context, filter model.Filter, order model.Order) ([]*model.Event, error)

	// Count returns the number of matching events. Limit is ignored.
	Count(ctx context.Context, filter model.Filter) (int, error)

	Close() error
}
