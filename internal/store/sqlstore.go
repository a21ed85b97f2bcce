package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alfredjeanlab/relaynotes/internal/model"
)

// SQLStore implements Store over database/sql. The backend packages open
// and migrate the database, then hand the handle to NewSQLStore with their
// placeholder style.
type SQLStore struct {
	db  *sql.DB
	ph  Placeholder
	now func() time.Time
}

// Compile-time check that SQLStore implements Store.
var _ Store = (*SQLStore)(nil)

// NewSQLStore wraps an open, migrated database.
func NewSQLStore(db *sql.DB, ph Placeholder) *SQLStore {
	return &SQLStore{db: db, ph: ph, now: time.Now}
}

// DB returns the underlying handle.
func (s *SQLStore) DB() *sql.DB { return s.db }

// PutIfAbsent inserts ev with ON CONFLICT (id) DO NOTHING and reports
// whether the row was new.
func (s *SQLStore) PutIfAbsent(ctx context.Context, ev *model.Event) (bool, error) {
	args, err := InsertEventArgs(ev, s.now())
	if err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrWrite, ev.ID, err)
	}
	res, err := s.db.ExecContext(ctx, InsertEventSQL(s.ph), args...)
	if err != nil {
		return false, fmt.Errorf("%w: insert %s: %v", ErrWrite, ev.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: rows affected for %s: %v", ErrWrite, ev.ID, err)
	}
	return n == 1, nil
}

// Query returns events matching filter in the requested order.
func (s *SQLStore) Query(ctx context.Context, filter model.Filter, order model.Order) ([]*model.Event, error) {
	q, args := SelectEventsSQL(filter, order, s.ph)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	return ScanEvents(rows)
}

// Count returns the number of events matching filter.
func (s *SQLStore) Count(ctx context.Context, filter model.Filter) (int, error) {
	q, args := CountEventsSQL(filter, s.ph)
	var n int
	if err := s.db.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

// Close closes the underlying database connection.
func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
