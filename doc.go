/*
Package oidcserver is an embeddable OAuth2 / OpenID Connect authorization
server.

The server owns the protocol: it parses requests, runs them through a fixed
sequence of checkpoints, issues and resolves tokens, and writes RFC-shaped
responses. Every decision it cannot take on its own is delegated to the
embedder through the hooks of a Provider. Tokens are produced and consumed
by pluggable data formats (see the dataformat packages).

# Quick Start

	import (
	    "github.com/auth0/go-oidc-server"
	    "github.com/auth0/go-oidc-server/dataformat/jwt"
	)

	func main() {
	    format, err := jwt.New(
	        jwt.WithSigningKey(privateKey, jwt.RS256, "key-1"),
	        jwt.WithIssuer("https://auth.example.com"),
	    )
	    if err != nil {
	        log.Fatal(err)
	    }

	    server, err := oidcserver.New(
	        oidcserver.WithIssuer("https://auth.example.com"),
	        oidcserver.WithAccessTokenFormat(format),
	        oidcserver.WithProvider(oidcserver.Provider{
	            ValidateClientAuthentication: func(c *oidcserver.ValidateClientAuthenticationContext) error {
	                if c.ClientID == "api" && c.ClientSecret == secret {
	                    c.AcceptClient(c.ClientID)
	                    return nil
	                }
	                c.RejectWithDescription("invalid_client", "Unknown client.")
	                return nil
	            },
	        }),
	    )
	    if err != nil {
	        log.Fatal(err)
	    }

	    http.Handle("/", server.Handler())
	    http.Handle("/api/", server.CheckAccessToken(apiHandler))
	    log.Fatal(http.ListenAndServe(":8080", nil))
	}

# Checkpoints

Each checkpoint hands a validating context to its hook. The hook calls
Accept or one of the Reject methods; the last call wins. A context that
was never decided is rejected, so forgetting to decide fails closed.

  - ValidateClientAuthentication: token and introspection requests. Without a
    hook every client is rejected with invalid_client.
  - ValidateRedirectURI: ValidateAuthorizationRequest. Without a hook every
    request is rejected with invalid_request.
  - ValidateScopes, ValidateTokenRequest, ValidateIntrospectionRequest and
    ValidateAccessToken are accepted when no hook is installed, unless
    WithExplicitTokenRequestValidation is used.

Rejections without an error code get the checkpoint's default code:
invalid_client, invalid_request, invalid_scope, invalid_grant,
invalid_request and invalid_token respectively.

Some checkpoints refuse Accept until their own fields make sense: client
authentication needs a client identifier and redirect URI validation needs
a redirect URI. Use AcceptClient and AcceptRedirectURI to supply them.

# Tokens

The SerializeToken and DeserializeToken hooks see every token issued or
received. They may swap the data format, edit the ticket, or bypass the
format entirely by writing the token (or the resolved ticket) themselves.
Issued tokens always name the requesting client as their only presenter,
and a refresh token can only be redeemed by one of its presenters.

# Errors

Rejected requests reach the ErrorHandler as *protocol.Error values. The
DefaultErrorHandler writes them as RFC 6749 §5.2 JSON with the matching
status code and WWW-Authenticate challenge.

# Logging, Metrics and Tracing

WithLogger accepts any slog-compatible logger; adapters exist for zap,
zerolog and logrus. WithMetrics and WithTracer plug in Prometheus and
OpenTelemetry.
*/
package oidcserver
