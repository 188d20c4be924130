package core

import (
	"context"

	"github.com/auth0/go-oidc-server/ticket"
)

// Notification carries the ambient request context and the server options
// into every checkpoint. Both are supplied at construction and read-only
// afterwards.
type Notification[O any] struct {
	ctx     context.Context
	options O
}

// NewNotification builds a Notification. A nil ctx is replaced by
// context.Background().
func NewNotification[O any](ctx context.Context, options O) Notification[O] {
	if ctx == nil {
		ctx = context.Background()
	}
	return Notification[O]{ctx: ctx, options: options}
}

// Context returns the request context.
func (n Notification[O]) Context() context.Context { return n.ctx }

// Options returns the server options.
func (n Notification[O]) Options() O { return n.options }

// ValidatingContext is the base of every checkpoint: a notification plus a
// fresh Decision. Checkpoints embed it and add their own request fields.
type ValidatingContext[O any] struct {
	Notification[O]
	Decision
}

// NewValidatingContext returns an undecided validating context.
func NewValidatingContext[O any](ctx context.Context, options O) ValidatingContext[O] {
	return ValidatingContext[O]{Notification: NewNotification(ctx, options)}
}

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey int

const (
	ticketKey contextKey = iota
)

// SetTicket stores an authenticated ticket in ctx. Transport adapters call it
// after an access token has been validated.
func SetTicket(ctx context.Context, t *ticket.Ticket) context.Context {
	return context.WithValue(ctx, ticketKey, t)
}

// GetTicket retrieves the ticket stored by SetTicket.
func GetTicket(ctx context.Context) (*ticket.Ticket, error) {
	t, ok := ctx.Value(ticketKey).(*ticket.Ticket)
	if !ok || t == nil {
		return nil, ErrTicketNotFound
	}
	return t, nil
}

// HasTicket checks if a ticket exists in the context without retrieving it.
func HasTicket(ctx context.Context) bool {
	t, ok := ctx.Value(ticketKey).(*ticket.Ticket)
	return ok && t != nil
}
