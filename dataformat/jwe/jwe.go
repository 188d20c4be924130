// Package jwe provides an encrypted, opaque data format: the ticket is
// serialized to JSON and sealed in a compact JWE using direct symmetric
// encryption (dir + A256GCM). Clients cannot read the contents.
package jwe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-jose/go-jose/v4"

	"github.com/auth0/go-oidc-server/dataformat"
	"github.com/auth0/go-oidc-server/ticket"
)

// KeySize is the required length of the content encryption key.
const KeySize = 32

// Format seals tickets in JWE compact serialization. It is safe for
// concurrent use.
type Format struct {
	encrypter jose.Encrypter
	key       []byte
	now       func() time.Time
}

var _ dataformat.DataFormat = (*Format)(nil)

// Option configures the Format.
type Option func(*Format) error

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(f *Format) error {
		if now == nil {
			return errors.New("clock cannot be nil")
		}
		f.now = now
		return nil
	}
}

// New creates a Format using a 32-byte key.
func New(key []byte, opts ...Option) (*Format, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("encryption key must be %d bytes, got %d", KeySize, len(key))
	}

	enc, err := jose.NewEncrypter(
		jose.A256GCM,
		jose.Recipient{Algorithm: jose.DIRECT, Key: key},
		(&jose.EncrypterOptions{}).WithContentType("oidc-ticket+json"),
	)
	if err != nil {
		return nil, fmt.Errorf("could not create encrypter: %w", err)
	}

	f := &Format{
		encrypter: enc,
		key:       append([]byte(nil), key...),
		now:       time.Now,
	}
	for _, opt := range opts {
		if err := opt(f); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}
	return f, nil
}

// Protect encrypts t.
func (f *Format) Protect(_ context.Context, t *ticket.Ticket) (string, error) {
	if t == nil {
		return "", errors.New("ticket is nil")
	}

	plaintext, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("could not encode ticket: %w", err)
	}

	obj, err := f.encrypter.Encrypt(plaintext)
	if err != nil {
		return "", fmt.Errorf("could not encrypt ticket: %w", err)
	}

	return obj.CompactSerialize()
}

// Unprotect decrypts token and checks the ticket expiry.
func (f *Format) Unprotect(_ context.Context, token string) (*ticket.Ticket, error) {
	obj, err := jose.ParseEncrypted(
		token,
		[]jose.KeyAlgorithm{jose.DIRECT},
		[]jose.ContentEncryption{jose.A256GCM},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", dataformat.ErrMalformed, err)
	}

	plaintext, err := obj.Decrypt(f.key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", dataformat.ErrInvalid, err)
	}

	var t ticket.Ticket
	if err := json.Unmarshal(plaintext, &t); err != nil {
		return nil, fmt.Errorf("%w: %w", dataformat.ErrMalformed, err)
	}
	if t.IsExpired(f.now()) {
		return nil, dataformat.ErrExpired
	}
	if t.Claims == nil {
		t.Claims = make(map[string]any)
	}
	if t.Properties == nil {
		t.Properties = make(map[string]string)
	}

	return &t, nil
}
