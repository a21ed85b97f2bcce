package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/alfredjeanlab/relaynotes/internal/model"
)

// Placeholder renders the n-th (1-based) bind parameter of a SQL dialect.
type Placeholder func(n int) string

// QuestionPlaceholder is the SQLite style.
func QuestionPlaceholder(int) string { return "?" }

// DollarPlaceholder is the PostgreSQL style.
func DollarPlaceholder(n int) string { return "$" + strconv.Itoa(n) }

// EventColumns is the column list read by ScanEvent.
const EventColumns = "id, pubkey, kind, created_at, tags, content, sig"

// InsertEventSQL returns an insert that silently ignores an existing id.
// Both SQLite and PostgreSQL support ON CONFLICT ... DO NOTHING.
func InsertEventSQL(ph Placeholder) string {
	params := make([]string, 8)
	for i := range params {
		params[i] = ph(i + 1)
	}
	return `INSERT INTO events (id, pubkey, kind, created_at, tags, content, sig, received_at)
		VALUES (` + strings.Join(params, ", ") + `)
		ON CONFLICT (id) DO NOTHING`
}

// InsertEventArgs returns the bind arguments for InsertEventSQL.
func InsertEventArgs(ev *model.Event, receivedAt time.Time) ([]any, error) {
	tags, err := ev.TagsJSON()
	if err != nil {
		return nil, fmt.Errorf("encode tags: %w", err)
	}
	return []any{
		ev.ID,
		ev.PubKey,
		int(ev.Kind),
		ev.CreatedAt,
		string(tags),
		ev.Content,
		ev.Sig,
		receivedAt.UTC().Unix(),
	}, nil
}

// BuildWhere renders the WHERE clause for filter (including the leading
// " WHERE ", or "" when unconstrained) and its bind arguments.
func BuildWhere(filter model.Filter, ph Placeholder) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	next := func(v any) string {
		args = append(args, v)
		return ph(len(args))
	}

	if len(filter.Authors) > 0 {
		params := make([]string, 0, len(filter.Authors))
		for _, a := range filter.Authors {
			params = append(params, next(a))
		}
		clauses = append(clauses, "pubkey IN ("+strings.Join(params, ", ")+")")
	}
	if len(filter.Kinds) > 0 {
		params := make([]string, 0, len(filter.Kinds))
		for _, k := range filter.Kinds {
			params = append(params, next(int(k)))
		}
		clauses = append(clauses, "kind IN ("+strings.Join(params, ", ")+")")
	}
	if filter.Since != nil {
		clauses = append(clauses, "created_at >= "+next(filter.Since.Unix()))
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// SelectEventsSQL builds the full query used by Store.Query.
func SelectEventsSQL(filter model.Filter, order model.Order, ph Placeholder) (string, []any) {
	where, args := BuildWhere(filter, ph)
	dir := "DESC"
	if order == model.OrderAsc {
		dir = "ASC"
	}
	q := "SELECT " + EventColumns + " FROM events" + where +
		" ORDER BY created_at " + dir + ", id " + dir
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		q += " LIMIT " + ph(len(args))
	}
	return q, args
}

// CountEventsSQL builds the query used by Store.Count.
func CountEventsSQL(filter model.Filter, ph Placeholder) (string, []any) {
	where, args := BuildWhere(filter, ph)
	return "SELECT COUNT(*) FROM events" + where, args
}

// ScanEvents reads every row produced by a SelectEventsSQL query and
// closes rows.
func ScanEvents(rows *sql.Rows) ([]*model.Event, error) {
	defer rows.Close()

	var out []*model.Event
	for rows.Next() {
		var (
			ev   model.Event
			kind int
			tags string
		)
		if err := rows.Scan(&ev.ID, &ev.PubKey, &kind, &ev.CreatedAt, &tags, &ev.Content, &ev.Sig); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Kind = model.Kind(kind)
		if tags != "" {
			if err := json.Unmarshal([]byte(tags), &ev.Tags); err != nil {
				return nil, fmt.Errorf("decode tags of %s: %w", ev.ID, err)
			}
		}
		out = append(out, &ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}
