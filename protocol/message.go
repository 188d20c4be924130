// Package protocol holds the OAuth2 / OpenID Connect message types exchanged
// between the server pipeline and embedder code.
//
// A Message is a flat parameter bag. It does not validate parameters on its
// own; validation is the job of the checkpoints in the root package.
package protocol

import (
	"net/url"
	"sort"
	"strings"
)

// Parameter names used by the server.
const (
	ParamClientID         = "client_id"
	ParamClientSecret     = "client_secret"
	ParamGrantType        = "grant_type"
	ParamRefreshToken     = "refresh_token"
	ParamAccessToken      = "access_token"
	ParamScope            = "scope"
	ParamRedirectURI      = "redirect_uri"
	ParamResponseType     = "response_type"
	ParamState            = "state"
	ParamToken            = "token"
	ParamTokenTypeHint    = "token_type_hint"
	ParamTokenType        = "token_type"
	ParamExpiresIn        = "expires_in"
	ParamResource         = "resource"
	ParamAudience         = "audience"
	ParamError            = "error"
	ParamErrorDescription = "error_description"
	ParamErrorURI         = "error_uri"
)

// Grant types understood by the token endpoint.
const (
	GrantTypeRefreshToken      = "refresh_token"
	GrantTypeClientCredentials = "client_credentials"
	GrantTypeAuthorizationCode = "authorization_code"
)

// ScopeOfflineAccess asks for a refresh token.
const ScopeOfflineAccess = "offline_access"

// ScopeOpenID marks an OpenID Connect request.
const ScopeOpenID = "openid"

// Message is an OAuth2 / OpenID Connect request or response.
type Message struct {
	params map[string]string
}

// NewMessage returns an empty message.
func NewMessage() *Message {
	return &Message{params: make(map[string]string)}
}

// ParseForm builds a message from decoded form or query values. Only the
// first value of each parameter is kept.
func ParseForm(values url.Values) *Message {
	m := NewMessage()
	for key, vals := range values {
		if len(vals) == 0 {
			continue
		}
		m.params[key] = vals[0]
	}
	return m
}

// Get returns the named parameter or the empty string.
func (m *Message) Get(name string) string {
	if m == nil {
		return ""
	}
	return m.params[name]
}

// Set stores a parameter. Setting the empty string removes it.
func (m *Message) Set(name, value string) *Message {
	if value == "" {
		delete(m.params, name)
		return m
	}
	m.params[name] = value
	return m
}

// Has reports whether the parameter is present.
func (m *Message) Has(name string) bool {
	if m == nil {
		return false
	}
	_, ok := m.params[name]
	return ok
}

// Parameters returns a copy of all parameters.
func (m *Message) Parameters() map[string]string {
	out := make(map[string]string, len(m.params))
	for k, v := range m.params {
		out[k] = v
	}
	return out
}

// Names returns the parameter names in sorted order.
func (m *Message) Names() []string {
	names := make([]string, 0, len(m.params))
	for k := range m.params {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (m *Message) ClientID() string      { return m.Get(ParamClientID) }
func (m *Message) ClientSecret() string  { return m.Get(ParamClientSecret) }
func (m *Message) GrantType() string     { return m.Get(ParamGrantType) }
func (m *Message) RefreshToken() string  { return m.Get(ParamRefreshToken) }
func (m *Message) RedirectURI() string   { return m.Get(ParamRedirectURI) }
func (m *Message) ResponseType() string  { return m.Get(ParamResponseType) }
func (m *Message) State() string         { return m.Get(ParamState) }
func (m *Message) Token() string         { return m.Get(ParamToken) }
func (m *Message) TokenTypeHint() string { return m.Get(ParamTokenTypeHint) }
func (m *Message) Resource() string      { return m.Get(ParamResource) }
func (m *Message) Audience() string      { return m.Get(ParamAudience) }
func (m *Message) Scope() string         { return m.Get(ParamScope) }

// Scopes splits the space-delimited scope parameter.
func (m *Message) Scopes() []string {
	return strings.Fields(m.Scope())
}

// HasScope reports whether the scope parameter contains scope.
func (m *Message) HasScope(scope string) bool {
	for _, s := range m.Scopes() {
		if s == scope {
			return true
		}
	}
	return false
}

// IsRefreshTokenGrant reports whether this is a refresh_token grant.
func (m *Message) IsRefreshTokenGrant() bool {
	return m.GrantType() == GrantTypeRefreshToken
}

// IsClientCredentialsGrant reports whether this is a client_credentials grant.
func (m *Message) IsClientCredentialsGrant() bool {
	return m.GrantType() == GrantTypeClientCredentials
}
