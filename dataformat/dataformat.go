// Package dataformat defines the pluggable capability that turns an
// authentication ticket into an opaque token string and back.
//
// Implementations live in the sub-packages:
//
//   - jwt: signed JSON Web Tokens (lestrrat-go/jwx)
//   - jwe: encrypted opaque tokens (go-jose)
//   - reference: random handles backed by a Store (memory or Redis)
//
// A DataFormat is configured once per server and shared by every request, so
// implementations must be safe for concurrent use and must not keep
// request-scoped state.
package dataformat

import (
	"context"
	"errors"

	"github.com/auth0/go-oidc-server/ticket"
)

// DataFormat protects tickets into token strings and unprotects them again.
type DataFormat interface {
	// Protect serializes t into an opaque token.
	Protect(ctx context.Context, t *ticket.Ticket) (string, error)

	// Unprotect turns token back into a ticket. Tampered, malformed or
	// expired material must produce an error, never a partial ticket.
	Unprotect(ctx context.Context, token string) (*ticket.Ticket, error)
}

// Sentinel errors returned by the bundled formats.
var (
	// ErrMalformed is returned when the token cannot be decoded.
	ErrMalformed = errors.New("token malformed")

	// ErrInvalid is returned when the token fails verification.
	ErrInvalid = errors.New("token invalid")

	// ErrExpired is returned when the protected ticket has expired.
	ErrExpired = errors.New("token expired")

	// ErrNotFound is returned by reference formats for unknown handles.
	ErrNotFound = errors.New("token not found")
)

// Func adapts a pair of functions to the DataFormat interface.
type Func struct {
	ProtectFunc   func(ctx context.Context, t *ticket.Ticket) (string, error)
	UnprotectFunc func(ctx context.Context, token string) (*ticket.Ticket, error)
}

// Protect calls ProtectFunc.
func (f Func) Protect(ctx context.Context, t *ticket.Ticket) (string, error) {
	if f.ProtectFunc == nil {
		return "", errors.New("dataformat: protect not supported")
	}
	return f.ProtectFunc(ctx, t)
}

// Unprotect calls UnprotectFunc.
func (f Func) Unprotect(ctx context.Context, token string) (*ticket.Ticket, error) {
	if f.UnprotectFunc == nil {
		return nil, errors.New("dataformat: unprotect not supported")
	}
	return f.UnprotectFunc(ctx, token)
}

// Revoker is implemented by formats whose tokens can be invalidated before
// they expire.
type Revoker interface {
	Revoke(ctx context.Context, token string) error
}

// Redeemer is implemented by formats that can consume a token exactly once.
// Redeem must fail with ErrNotFound when the token was already consumed, so
// concurrent redemptions of the same token see a single winner.
type Redeemer interface {
	Redeem(ctx context.Context, token string) error
}

// Inspector is implemented by formats whose Unprotect has side effects, such
// as single-use reference tokens. Inspect resolves the token without them.
type Inspector interface {
	Inspect(ctx context.Context, token string) (*ticket.Ticket, error)
}

// ReadOnly returns a DataFormat that unprotects through Inspect when f
// implements Inspector, and f itself otherwise.
func ReadOnly(f DataFormat) DataFormat {
	inspector, ok := f.(Inspector)
	if !ok {
		return f
	}
	return Func{
		ProtectFunc:   f.Protect,
		UnprotectFunc: inspector.Inspect,
	}
}
