// Package client provides a transport-agnostic interface for the relaynotes
// service and an HTTP/JSON implementation that talks to its REST API.
package client

import (
	"context"

	"github.com/alfredjeanlab/relaynotes/internal/identity"
	"github.com/alfredjeanlab/relaynotes/internal/model"
)

// NotesClient is the interface the rn CLI commands use to talk to a running
// bridge.
type NotesClient interface {
	// NewKeys asks the server to mint a fresh keypair. Nothing is stored.
	NewKeys(ctx context.Context) (identity.Keys, error)

	// PublishTextNote publishes msg as a text note signed by the server's
	// identity.
	PublishTextNote(ctx context.Context, msg string) error

	// LatestTextNotes returns the server's most recent notes, newest first.
	// A nil limit lets the server pick its default.
	LatestTextNotes(ctx context.Context, limit *int) ([]model.Note, error)

	// Health returns the server status and the relay session state.
	Health(ctx context.Context) (*HealthResponse, error)

	Close() error
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
	Relay  string `json:"relay"`
}
