package core

import (
	"context"

	"github.com/auth0/go-oidc-server/dataformat"
	"github.com/auth0/go-oidc-server/protocol"
	"github.com/auth0/go-oidc-server/ticket"
)

// TokenType selects which token a (de)serialization context handles.
type TokenType string

const (
	AccessToken       TokenType = ticket.UsageAccessToken
	RefreshToken      TokenType = ticket.UsageRefreshToken
	AuthorizationCode TokenType = ticket.UsageAuthorizationCode
	IdentityToken     TokenType = ticket.UsageIDToken
)

// SerializationContext is handed to embedder code when a ticket is about to
// become a token string.
//
// Embedders may replace DataFormat, edit the ticket through its accessors,
// or write Token directly to bypass DataFormat entirely. The context never
// decides whether issuance succeeded; the pipeline does that by checking
// whether a non-empty token came out.
type SerializationContext[O any] struct {
	Notification[O]

	// Kind is the token being produced.
	Kind TokenType

	// DataFormat protects the ticket unless Token is set first.
	DataFormat dataformat.DataFormat

	// Token is the output slot.
	Token string

	request  *protocol.Message
	response *protocol.Message
	ticket   *ticket.Ticket
}

// NewSerializationContext builds a context around t. The ticket is held by
// reference; edits made through the context are visible to the pipeline.
func NewSerializationContext[O any](
	ctx context.Context,
	options O,
	kind TokenType,
	request, response *protocol.Message,
	t *ticket.Ticket,
	format dataformat.DataFormat,
) *SerializationContext[O] {
	return &SerializationContext[O]{
		Notification: NewNotification(ctx, options),
		Kind:         kind,
		DataFormat:   format,
		request:      request,
		response:     response,
		ticket:       t,
	}
}

// Request returns the protocol request being processed.
func (c *SerializationContext[O]) Request() *protocol.Message { return c.request }

// Response returns the protocol response being built.
func (c *SerializationContext[O]) Response() *protocol.Message { return c.response }

// Ticket returns the ticket being serialized.
func (c *SerializationContext[O]) Ticket() *ticket.Ticket { return c.ticket }

// Presenters reads the presenters property of the ticket.
func (c *SerializationContext[O]) Presenters() []string {
	return c.ticket.Presenters()
}

// SetPresenters replaces the presenters property of the ticket.
func (c *SerializationContext[O]) SetPresenters(presenters []string) {
	if c.ticket == nil {
		return
	}
	c.ticket.SetPresenters(presenters)
}

// Serialize fills Token from DataFormat unless embedder code already set it.
// It returns the final token.
func (c *SerializationContext[O]) Serialize() (string, error) {
	if c.Token != "" {
		return c.Token, nil
	}
	if c.ticket == nil {
		return "", ErrNoTicket
	}
	if c.DataFormat == nil {
		return "", ErrNoDataFormat
	}
	token, err := c.DataFormat.Protect(c.Context(), c.ticket)
	if err != nil {
		return "", err
	}
	c.Token = token
	return token, nil
}

// DeserializationContext is handed to embedder code when a token string
// received from a client must become a ticket again.
//
// Embedders may replace DataFormat, or resolve the token themselves (for
// example from a reference-token store) and write Ticket directly.
type DeserializationContext[O any] struct {
	Notification[O]

	// Kind is the token being consumed.
	Kind TokenType

	// DataFormat unprotects the token unless Ticket is set first.
	DataFormat dataformat.DataFormat

	// Ticket is the output slot.
	Ticket *ticket.Ticket

	request  *protocol.Message
	response *protocol.Message
	token    string
}

// NewDeserializationContext builds a context for token.
func NewDeserializationContext[O any](
	ctx context.Context,
	options O,
	kind TokenType,
	request, response *protocol.Message,
	token string,
	format dataformat.DataFormat,
) *DeserializationContext[O] {
	return &DeserializationContext[O]{
		Notification: NewNotification(ctx, options),
		Kind:         kind,
		DataFormat:   format,
		request:      request,
		response:     response,
		token:        token,
	}
}

// Request returns the protocol request being processed.
func (c *DeserializationContext[O]) Request() *protocol.Message { return c.request }

// Response returns the protocol response being built.
func (c *DeserializationContext[O]) Response() *protocol.Message { return c.response }

// Token returns the token received from the client.
func (c *DeserializationContext[O]) Token() string { return c.token }

// Presenters reads the presenters property of the resolved ticket.
func (c *DeserializationContext[O]) Presenters() []string {
	return c.Ticket.Presenters()
}

// SetPresenters replaces the presenters property of the resolved ticket.
func (c *DeserializationContext[O]) SetPresenters(presenters []string) {
	if c.Ticket == nil {
		return
	}
	c.Ticket.SetPresenters(presenters)
}

// Deserialize fills Ticket from DataFormat unless embedder code already set
// it. A nil ticket always means "invalid token"; the returned error only
// explains why and is meant for logging.
func (c *DeserializationContext[O]) Deserialize() (*ticket.Ticket, error) {
	if c.Ticket != nil {
		return c.Ticket, nil
	}
	if c.token == "" {
		return nil, nil
	}
	if c.DataFormat == nil {
		return nil, ErrNoDataFormat
	}
	t, err := c.DataFormat.Unprotect(c.Context(), c.token)
	if err != nil {
		return nil, err
	}
	c.Ticket = t
	return t, nil
}
