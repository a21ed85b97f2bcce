// Package idgen generates short random identifiers for relay subscriptions
// and HTTP requests.
package idgen

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// Prefixes for the identifiers this process hands out.
const (
	SubscriptionPrefix = "sub-"
	RequestPrefix      = "req-"
)

// Alphabet is the character set of the random part. Relays echo subscription
// labels back verbatim so it is kept to plain alphanumerics.
const Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Length is the number of random characters (excluding the prefix).
const Length = 10

// SubscriptionLabel returns a label for a relay REQ.
func SubscriptionLabel() (string, error) {
	return WithPrefix(SubscriptionPrefix)
}

// RequestID returns an identifier for an inbound HTTP request.
func RequestID() (string, error) {
	return WithPrefix(RequestPrefix)
}

// WithPrefix returns prefix followed by Length random characters.
func WithPrefix(prefix string) (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return prefix + id, nil
}
