package model

import "time"

// Order selects the created_at ordering of query results.
type Order int

const (
	OrderDesc Order = iota
	OrderAsc
)

func (o Order) String() string {
	if o == OrderAsc {
		return "asc"
	}
	return "desc"
}

// Filter holds criteria for querying events, both live on a relay and
// locally in the store. Zero values mean "no constraint".
type Filter struct {
	Authors []string   `json:"authors,omitempty"` // hex public keys
	Kinds   []Kind     `json:"kinds,omitempty"`
	Since   *time.Time `json:"since,omitempty"` // inclusive lower bound on created_at
	Limit   int        `json:"limit,omitempty"` // 0 = unbounded
}

// Matches reports whether ev satisfies the author, kind and since
// constraints. Limit is not considered.
func (f Filter) Matches(ev *Event) bool {
	if len(f.Authors) > 0 && !contains(f.Authors, ev.PubKey) {
		return false
	}
	if len(f.Kinds) > 0 && !contains(f.Kinds, ev.Kind) {
		return false
	}
	if f.Since != nil && ev.CreatedAt < f.Since.Unix() {
		return false
	}
	return true
}

func contains[T comparable](list []T, v T) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
