package model

import (
	"fmt"

	"github.com/nbd-wtf/go-nostr/nip19"
)

// Note is the caller-facing projection of a stored text note. The event
// id and signature are not part of it.
type Note struct {
	AuthorBech32 string `json:"author_bech32"`
	Content      string `json:"content"`
	CreatedAt    int64  `json:"created_at"`
}

// NoteFromEvent projects ev, encoding the author as an npub.
func NoteFromEvent(ev *Event) (Note, error) {
	npub, err := nip19.EncodePublicKey(ev.PubKey)
	if err != nil {
		return Note{}, fmt.Errorf("encode author of %s: %w", ev.ID, err)
	}
	return Note{
		AuthorBech32: npub,
		Content:      ev.Content,
		CreatedAt:    ev.CreatedAt,
	}, nil
}
