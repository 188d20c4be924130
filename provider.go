package oidcserver

// Provider holds the hooks through which the embedder takes the decisions
// the server cannot take on its own. Every hook is optional.
//
// A validating hook decides by calling Accept or one of the Reject methods
// on the context it receives. Returning a non-nil error means the hook could
// not decide at all (a database outage, for instance) and aborts the request
// with server_error, unless the error is a *protocol.Error, which is sent
// to the client as is.
//
// Hooks run concurrently for concurrent requests but each context value is
// only ever seen by one goroutine.
type Provider struct {
	// ValidateClientAuthentication authenticates the client of token and
	// introspection requests. Without it every client is rejected.
	ValidateClientAuthentication func(*ValidateClientAuthenticationContext) error

	// ValidateRedirectURI checks the redirect URI of an authorization
	// request. Without it every authorization request is rejected.
	ValidateRedirectURI func(*ValidateRedirectURIContext) error

	// ValidateScopes checks requested scopes. Accepted when unset.
	ValidateScopes func(*ValidateScopesContext) error

	// ValidateTokenRequest applies grant-level business rules once the
	// grant itself has been verified. Accepted when unset.
	ValidateTokenRequest func(*ValidateTokenRequestContext) error

	// ValidateIntrospectionRequest decides whether an authenticated client
	// may introspect. Accepted when unset.
	ValidateIntrospectionRequest func(*ValidateIntrospectionRequestContext) error

	// ValidateAccessToken runs on every request guarded by CheckAccessToken
	// or the gRPC interceptors after the token was resolved. Accepted when
	// unset.
	ValidateAccessToken func(*ValidateAccessTokenContext) error

	// GrantClientCredentials builds the ticket of a client_credentials
	// grant. When unset the ticket names the client as subject and carries
	// the requested scopes.
	GrantClientCredentials func(*GrantClientCredentialsContext) error

	// SerializeToken runs before a ticket is protected. It may edit the
	// ticket, swap the data format or write the token itself.
	SerializeToken func(*SerializeTokenContext) error

	// DeserializeToken runs before a token is unprotected. It may swap the
	// data format or resolve the ticket itself.
	DeserializeToken func(*DeserializeTokenContext) error
}
