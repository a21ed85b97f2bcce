package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alfredjeanlab/relaynotes/internal/model"
)

// testHandler captures the incoming request details and returns a canned response.
type testHandler struct {
	// captured from the request
	method      string
	path        string
	query       string
	body        string
	contentType string
	auth        string

	// canned response
	statusCode   int
	responseBody string
}

func (h *testHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.method = r.Method
	h.path = r.URL.Path
	h.query = r.URL.RawQuery
	h.contentType = r.Header.Get("Content-Type")
	h.auth = r.Header.Get("Authorization")
	if r.Body != nil {
		data, _ := io.ReadAll(r.Body)
		h.body = string(data)
	}

	w.Header().Set("Content-Type", "application/json")
	if h.statusCode != 0 {
		w.WriteHeader(h.statusCode)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	if h.responseBody != "" {
		_, _ = w.Write([]byte(h.responseBody))
	}
}

// newTestClient creates an HTTPClient pointed at a test server with the given handler.
func newTestClient(t *testing.T, h http.Handler, token string) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewHTTPClient(srv.URL+"/", token)
}

func TestHTTPClient_NewKeys(t *testing.T) {
	h := &testHandler{responseBody: `{"pubkey":"npub1abc","secret":"nsec1xyz"}`}
	c := newTestClient(t, h, "")

	keys, err := c.NewKeys(context.Background())
	if err != nil {
		t.Fatalf("NewKeys: %v", err)
	}
	if h.method != http.MethodGet || h.path != "/new-keys" {
		t.Errorf("request = %s %s", h.method, h.path)
	}
	if keys.PubKey != "npub1abc" || keys.Secret != "nsec1xyz" {
		t.Errorf("keys = %+v", keys)
	}
	if h.auth != "" {
		t.Errorf("unexpected Authorization header %q", h.auth)
	}
}

func TestHTTPClient_PublishTextNote(t *testing.T) {
	h := &testHandler{}
	c := newTestClient(t, h, "secret")

	if err := c.PublishTextNote(context.Background(), "hello <world>"); err != nil {
		t.Fatalf("PublishTextNote: %v", err)
	}
	if h.method != http.MethodPost || h.path != "/publish-text-note" {
		t.Errorf("request = %s %s", h.method, h.path)
	}
	if h.contentType != "application/json" {
		t.Errorf("Content-Type = %q", h.contentType)
	}
	if h.body != `{"msg":"hello <world>"}` {
		t.Errorf("body = %s", h.body)
	}
	if h.auth != "Bearer secret" {
		t.Errorf("Authorization = %q", h.auth)
	}
}

func TestHTTPClient_LatestTextNotes(t *testing.T) {
	h := &testHandler{responseBody: `[
		{"author_bech32":"npub1a","content":"second","created_at":200},
		{"author_bech32":"npub1a","content":"first","created_at":100}
	]`}
	c := newTestClient(t, h, "")

	limit := 2
	notes, err := c.LatestTextNotes(context.Background(), &limit)
	if err != nil {
		t.Fatalf("LatestTextNotes: %v", err)
	}
	if h.path != "/latest-text-notes" || h.query != "limit=2" {
		t.Errorf("request = %s?%s", h.path, h.query)
	}
	want := []model.Note{
		{AuthorBech32: "npub1a", Content: "second", CreatedAt: 200},
		{AuthorBech32: "npub1a", Content: "first", CreatedAt: 100},
	}
	if len(notes) != len(want) {
		t.Fatalf("got %d notes", len(notes))
	}
	for i := range want {
		if notes[i] != want[i] {
			t.Errorf("notes[%d] = %+v, want %+v", i, notes[i], want[i])
		}
	}
}

func TestHTTPClient_LatestTextNotes_DefaultLimit(t *testing.T) {
	h := &testHandler{responseBody: `[]`}
	c := newTestClient(t, h, "")

	notes, err := c.LatestTextNotes(context.Background(), nil)
	if err != nil {
		t.Fatalf("LatestTextNotes: %v", err)
	}
	if h.query != "" {
		t.Errorf("query = %q, want none", h.query)
	}
	if notes == nil || len(notes) != 0 {
		t.Errorf("notes = %#v, want empty slice", notes)
	}
}

func TestHTTPClient_Health(t *testing.T) {
	h := &testHandler{responseBody: `{"status":"ok","relay":"subscribed"}`}
	c := newTestClient(t, h, "")

	resp, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if resp.Status != "ok" || resp.Relay != "subscribed" {
		t.Errorf("health = %+v", resp)
	}
}

func TestHTTPClient_APIError(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"json error", http.StatusBadRequest, `{"error":"msg must not be empty"}`, "msg must not be empty"},
		{"plain text", http.StatusBadGateway, "bad gateway\n", "bad gateway"},
		{"unauthorized", http.StatusUnauthorized, `{"error":"unauthorized"}`, "unauthorized"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, &testHandler{statusCode: tt.status, responseBody: tt.body}, "")

			err := c.PublishTextNote(context.Background(), "x")
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *APIError, got %v", err)
			}
			if apiErr.StatusCode != tt.status || apiErr.Message != tt.wantMsg {
				t.Errorf("got %d %q, want %d %q", apiErr.StatusCode, apiErr.Message, tt.status, tt.wantMsg)
			}
		})
	}
}

func TestHTTPClient_DecodeError(t *testing.T) {
	c := newTestClient(t, &testHandler{responseBody: `{not json`}, "")
	if _, err := c.NewKeys(context.Background()); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestHTTPClient_ConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c := NewHTTPClient(srv.URL, "")
	if _, err := c.Health(context.Background()); err == nil {
		t.Fatal("expected connection error")
	}
}
