// Package identity loads, generates and encodes the signing keypair the
// service publishes under.
package identity

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip19"
)

// ErrConfiguration marks a key file that exists but cannot be used.
// It is fatal at startup and never triggers key generation.
var ErrConfiguration = errors.New("identity configuration error")

// Keys is the text-encoded form of a keypair.
type Keys struct {
	PubKey string `json:"pubkey"` // npub1...
	Secret string `json:"secret"` // nsec1...
}

// Identity is a secp256k1 keypair. The public key is always derived from
// the secret key.
type Identity struct {
	secret    string // hex
	public    string // hex
	keys      Keys
	generated bool
}

// Option configures LoadOrCreate.
type Option func(*options)

type options struct {
	persist bool
}

// WithPersist writes a freshly generated key back to the key file so the
// next run signs as the same identity.
func WithPersist(persist bool) Option {
	return func(o *options) { o.persist = persist }
}

// LoadOrCreate reads the secret key stored at path. When the file does not
// exist a new random key is generated. Any other failure, including
// unparsable content, returns an error wrapping ErrConfiguration.
func LoadOrCreate(path string, opts ...Option) (*Identity, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	data, err := os.ReadFile(path)
	if err == nil {
		id, err := Parse(string(data))
		if err != nil {
			return nil, fmt.Errorf("%w: key file %s: %v", ErrConfiguration, path, err)
		}
		return id, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: read key file %s: %v", ErrConfiguration, path, err)
	}

	id, err := fromSecret(nostr.GeneratePrivateKey())
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	id.generated = true

	if o.persist {
		if err := writeKeyFile(path, id.keys.Secret); err != nil {
			return nil, fmt.Errorf("%w: persist key file %s: %v", ErrConfiguration, path, err)
		}
	}
	return id, nil
}

// Parse accepts an nsec bech32 string or a 64 character hex secret key.
// Surrounding whitespace is ignored.
func Parse(text string) (*Identity, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("empty secret key")
	}

	if strings.HasPrefix(text, "nsec1") {
		prefix, value, err := nip19.Decode(text)
		if err != nil {
			return nil, fmt.Errorf("decode nsec: %w", err)
		}
		sk, ok := value.(string)
		if prefix != "nsec" || !ok {
			return nil, fmt.Errorf("unexpected bech32 prefix %q", prefix)
		}
		return fromSecret(sk)
	}

	if len(text) != 64 {
		return nil, fmt.Errorf("secret key must be nsec or 64 hex characters, got %d characters", len(text))
	}
	if _, err := hex.DecodeString(text); err != nil {
		return nil, fmt.Errorf("decode hex secret key: %w", err)
	}
	return fromSecret(strings.ToLower(text))
}

// Mint generates a new identity unrelated to any loaded one and returns
// only its encodings.
func Mint() (Keys, error) {
	id, err := fromSecret(nostr.GeneratePrivateKey())
	if err != nil {
		return Keys{}, err
	}
	return id.keys, nil
}

// fromSecret derives the identity for the hex secret sk. The secret must
// be a scalar in [1, N-1].
func fromSecret(sk string) (*Identity, error) {
	if n := len(sk); n < 64 {
		sk = strings.Repeat("0", 64-n) + sk
	}
	b, err := hex.DecodeString(sk)
	if err != nil || len(b) != 32 {
		return nil, errors.New("secret key must be 32 bytes of hex")
	}
	var scalar secp256k1.ModNScalar
	if overflow := scalar.SetByteSlice(b); overflow || scalar.IsZero() {
		return nil, errors.New("secret key is outside the curve order")
	}

	pk, err := nostr.GetPublicKey(sk)
	if err != nil {
		return nil, fmt.Errorf("derive public key: %w", err)
	}
	npub, err := nip19.EncodePublicKey(pk)
	if err != nil {
		return nil, fmt.Errorf("encode public key: %w", err)
	}
	nsec, err := nip19.EncodePrivateKey(sk)
	if err != nil {
		return nil, fmt.Errorf("encode secret key: %w", err)
	}
	return &Identity{
		secret: sk,
		public: pk,
		keys:   Keys{PubKey: npub, Secret: nsec},
	}, nil
}

func writeKeyFile(path, nsec string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(nsec + "\n"); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// PublicKey returns the hex public key.
func (id *Identity) PublicKey() string { return id.public }

// NPub returns the bech32 public identifier.
func (id *Identity) NPub() string { return id.keys.PubKey }

// Keys returns both text encodings.
func (id *Identity) Keys() Keys { return id.keys }

// Generated reports whether the key was freshly generated by LoadOrCreate
// rather than read from disk.
func (id *Identity) Generated() bool { return id.generated }

// Sign stamps ev with this identity's public key, computes its id and signs it.
func (id *Identity) Sign(ev *nostr.Event) error {
	ev.PubKey = id.public
	if err := ev.Sign(id.secret); err != nil {
		return fmt.Errorf("sign event: %w", err)
	}
	return nil
}
