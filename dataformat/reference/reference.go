// Package reference provides a reference-token data format: the client only
// ever sees a random handle, and the ticket itself stays in a Store.
//
// Reference tokens can be revoked by deleting the handle, and can be made
// single-use, which is how rolling refresh tokens are implemented.
package reference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/auth0/go-oidc-server/dataformat"
	"github.com/auth0/go-oidc-server/ticket"
)

// Store keeps serialized tickets keyed by handle. Implementations must be
// safe for concurrent use and must return dataformat.ErrNotFound for
// unknown or expired handles.
type Store interface {
	// Put stores payload under handle. A zero ttl means no expiry.
	Put(ctx context.Context, handle string, payload []byte, ttl time.Duration) error

	// Get returns the payload stored under handle.
	Get(ctx context.Context, handle string) ([]byte, error)

	// Take returns and removes the payload stored under handle atomically.
	Take(ctx context.Context, handle string) ([]byte, error)

	// Delete removes handle. Deleting an unknown handle is not an error.
	Delete(ctx context.Context, handle string) error
}

// Format stores tickets in a Store and hands out random handles.
type Format struct {
	store     Store
	singleUse bool
	now       func() time.Time
	newHandle func() string
}

var (
	_ dataformat.DataFormat = (*Format)(nil)
	_ dataformat.Revoker    = (*Format)(nil)
	_ dataformat.Inspector  = (*Format)(nil)
	_ dataformat.Redeemer   = (*Format)(nil)
)

// Option configures the Format.
type Option func(*Format) error

// WithSingleUse makes every handle redeemable once: Unprotect removes it.
func WithSingleUse(singleUse bool) Option {
	return func(f *Format) error {
		f.singleUse = singleUse
		return nil
	}
}

// WithClock overrides the time source used for TTLs and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(f *Format) error {
		if now == nil {
			return errors.New("clock cannot be nil")
		}
		f.now = now
		return nil
	}
}

// WithHandleGenerator overrides how handles are generated.
//
// Default: random UUIDv4
func WithHandleGenerator(gen func() string) Option {
	return func(f *Format) error {
		if gen == nil {
			return errors.New("handle generator cannot be nil")
		}
		f.newHandle = gen
		return nil
	}
}

// New creates a reference format over store.
func New(store Store, opts ...Option) (*Format, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}

	f := &Format{
		store:     store,
		now:       time.Now,
		newHandle: uuid.NewString,
	}
	for _, opt := range opts {
		if err := opt(f); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}
	return f, nil
}

// Protect stores t and returns its handle.
func (f *Format) Protect(ctx context.Context, t *ticket.Ticket) (string, error) {
	if t == nil {
		return "", errors.New("ticket is nil")
	}

	var ttl time.Duration
	if !t.ExpiresAt.IsZero() {
		ttl = t.ExpiresAt.Sub(f.now())
		if ttl <= 0 {
			return "", dataformat.ErrExpired
		}
	}

	payload, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("could not encode ticket: %w", err)
	}

	handle := f.newHandle()
	if err := f.store.Put(ctx, handle, payload, ttl); err != nil {
		return "", fmt.Errorf("could not store ticket: %w", err)
	}
	return handle, nil
}

// Unprotect resolves handle. With WithSingleUse the handle is consumed.
func (f *Format) Unprotect(ctx context.Context, handle string) (*ticket.Ticket, error) {
	return f.resolve(ctx, handle, f.singleUse)
}

// Inspect resolves handle without consuming it, even with WithSingleUse.
func (f *Format) Inspect(ctx context.Context, handle string) (*ticket.Ticket, error) {
	return f.resolve(ctx, handle, false)
}

func (f *Format) resolve(ctx context.Context, handle string, consume bool) (*ticket.Ticket, error) {
	if handle == "" {
		return nil, dataformat.ErrMalformed
	}

	var (
		payload []byte
		err     error
	)
	if consume {
		payload, err = f.store.Take(ctx, handle)
	} else {
		payload, err = f.store.Get(ctx, handle)
	}
	if err != nil {
		return nil, err
	}

	var t ticket.Ticket
	if err := json.Unmarshal(payload, &t); err != nil {
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

// Revoke deletes handle so it can no longer be redeemed.
func (f *Format) Revoke(ctx context.Context, handle string) error {
	return f.store.Delete(ctx, handle)
}

// Redeem consumes handle atomically. It returns dataformat.ErrNotFound when
// the handle was already redeemed or never existed.
func (f *Format) Redeem(ctx context.Context, handle string) error {
	if handle == "" {
		return dataformat.ErrMalformed
	}
	_, err := f.store.Take(ctx, handle)
	return err
}
