package oidcserver

import (
	"context"

	"github.com/auth0/go-oidc-server/core"
	"github.com/auth0/go-oidc-server/protocol"
	"github.com/auth0/go-oidc-server/ticket"
)

// SerializeTokenContext is the serialization event raised for every token
// the server issues.
type SerializeTokenContext = core.SerializationContext[*Options]

// DeserializeTokenContext is the deserialization event raised for every
// token the server receives.
type DeserializeTokenContext = core.DeserializationContext[*Options]

// ValidateClientAuthenticationContext is raised when a client calls the
// token or introspection endpoint.
type ValidateClientAuthenticationContext struct {
	core.ValidatingContext[*Options]

	Request *protocol.Message

	// ClientID is the identifier the client presented, possibly empty.
	// AcceptClient fills it in when the hook resolves the client itself.
	ClientID     string
	ClientSecret string

	// Method is how the credentials were presented.
	Method string
}

func newValidateClientAuthenticationContext(ctx context.Context, opts *Options, req *protocol.Message, creds ClientCredentials) *ValidateClientAuthenticationContext {
	c := &ValidateClientAuthenticationContext{
		ValidatingContext: core.NewValidatingContext(ctx, opts),
		Request:           req,
		ClientID:          creds.ClientID,
		ClientSecret:      creds.ClientSecret,
		Method:            creds.Method,
	}
	c.SetAcceptGuard(func() bool { return c.ClientID != "" })
	return c
}

// AcceptClient accepts the request as coming from clientID. It refuses, and
// leaves the decision unchanged, when the request named a different client.
func (c *ValidateClientAuthenticationContext) AcceptClient(clientID string) bool {
	if clientID == "" {
		return false
	}
	if c.ClientID != "" && c.ClientID != clientID {
		return false
	}
	c.ClientID = clientID
	return c.Accept()
}

// ValidateRedirectURIContext is raised by ValidateAuthorizationRequest.
type ValidateRedirectURIContext struct {
	core.ValidatingContext[*Options]

	Request     *protocol.Message
	ClientID    string
	RedirectURI string
}

func newValidateRedirectURIContext(ctx context.Context, opts *Options, req *protocol.Message) *ValidateRedirectURIContext {
	c := &ValidateRedirectURIContext{
		ValidatingContext: core.NewValidatingContext(ctx, opts),
		Request:           req,
		ClientID:          req.ClientID(),
		RedirectURI:       req.RedirectURI(),
	}
	c.SetAcceptGuard(func() bool { return c.RedirectURI != "" })
	return c
}

// AcceptRedirectURI accepts the request with uri as its redirect URI. Hooks
// use it when the client omitted redirect_uri and a registered one applies.
func (c *ValidateRedirectURIContext) AcceptRedirectURI(uri string) bool {
	if uri == "" {
		return false
	}
	if c.RedirectURI != "" && c.RedirectURI != uri {
		return false
	}
	c.RedirectURI = uri
	return c.Accept()
}

// ValidateScopesContext is raised for the scopes of authorization and
// client_credentials requests.
type ValidateScopesContext struct {
	core.ValidatingContext[*Options]

	Request  *protocol.Message
	ClientID string
	Scopes   []string
}

// ValidateTokenRequestContext is raised once the grant of a token request
// has been verified. Ticket is the ticket tokens will be issued from.
type ValidateTokenRequestContext struct {
	core.ValidatingContext[*Options]

	Request   *protocol.Message
	ClientID  string
	GrantType string
	Ticket    *ticket.Ticket
}

// ValidateIntrospectionRequestContext is raised when an authenticated
// client calls the introspection endpoint.
type ValidateIntrospectionRequestContext struct {
	core.ValidatingContext[*Options]

	Request       *protocol.Message
	ClientID      string
	Token         string
	TokenTypeHint string
}

// ValidateAccessTokenContext is raised for each resolved access token
// presented to a protected resource.
type ValidateAccessTokenContext struct {
	core.ValidatingContext[*Options]

	Request *protocol.Message
	Ticket  *ticket.Ticket
}

// GrantClientCredentialsContext is raised for client_credentials grants.
// Ticket is prefilled with the default ticket; hooks may edit or replace it.
type GrantClientCredentialsContext struct {
	core.ValidatingContext[*Options]

	Request  *protocol.Message
	ClientID string
	Scopes   []string
	Ticket   *ticket.Ticket
}
