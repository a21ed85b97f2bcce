package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/alfredjeanlab/relaynotes/internal/metrics"
	"github.com/alfredjeanlab/relaynotes/internal/relay"
)

// NewHTTPHandler returns an http.Handler with all routes registered.
// When authToken is non-empty, requests (except GET /health) must include
// a valid Authorization: Bearer <token> header.
func (s *NotesServer) NewHTTPHandler(authToken string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /new-keys", s.handleNewKeys)
	mux.HandleFunc("POST /publish-text-note", s.handlePublishTextNote)
	mux.HandleFunc("GET /latest-text-notes", s.handleLatestTextNotes)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", metrics.Handler())

	var h http.Handler = AuthMiddleware(authToken, mux)
	h = RecoveryMiddleware(s.logger, h)
	h = LoggingMiddleware(s.logger, h)
	return h
}

// handleNewKeys handles GET /new-keys.
func (s *NotesServer) handleNewKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := s.MintIdentity(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to generate keys")
		return
	}
	writeJSON(w, http.StatusOK, keys)
}

type publishInput struct {
	Msg string `json:"msg"`
}

// handlePublishTextNote handles POST /publish-text-note.
func (s *NotesServer) handlePublishTextNote(w http.ResponseWriter, r *http.Request) {
	var in publishInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := s.PublishNote(r.Context(), in.Msg); err != nil {
		var ie inputError
		switch {
		case errors.As(err, &ie):
			writeError(w, http.StatusBadRequest, ie.Error())
		case errors.Is(err, relay.ErrPublish):
			writeError(w, http.StatusBadGateway, "failed to publish note")
		default:
			writeError(w, http.StatusInternalServerError, "failed to publish note")
		}
		return
	}

	w.WriteHeader(http.StatusOK)
}

// handleLatestTextNotes handles GET /latest-text-notes.
func (s *NotesServer) handleLatestTextNotes(w http.ResponseWriter, r *http.Request) {
	var limit *int
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = &n
	}

	notes, err := s.ListRecentNotes(r.Context(), limit)
	if err != nil {
		var ie inputError
		if errors.As(err, &ie) {
			writeError(w, http.StatusBadRequest, ie.Error())
			return
		}
		s.logger.Error("listing notes", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to list notes")
		return
	}

	writeJSON(w, http.StatusOK, notes)
}

// handleHealth handles GET /health.
func (s *NotesServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"relay":  s.RelayState().String(),
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
