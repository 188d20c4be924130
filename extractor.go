package oidcserver

import (
	"encoding/base64"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/auth0/go-oidc-server/protocol"
)

// TokenExtractor is a function that takes a request as input and returns
// either a token or an error. An error should only be returned if an attempt
// to specify a token was found, but the information was somehow incorrectly
// formed. In the case where a token is simply not present, this should not
// be treated as an error. An empty string should be returned in that case.
type TokenExtractor func(r *http.Request) (string, error)

// AuthHeaderTokenExtractor is a TokenExtractor that takes a request
// and extracts the bearer token from the Authorization header.
func AuthHeaderTokenExtractor(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", nil
	}

	authHeaderParts := strings.Fields(authHeader)
	if len(authHeaderParts) != 2 || !strings.EqualFold(authHeaderParts[0], "bearer") {
		return "", errors.New("authorization header format must be Bearer {token}")
	}

	return authHeaderParts[1], nil
}

// CookieTokenExtractor builds a TokenExtractor that takes a request and
// extracts the token from the cookie using the passed in cookieName.
func CookieTokenExtractor(cookieName string) TokenExtractor {
	return func(r *http.Request) (string, error) {
		cookie, err := r.Cookie(cookieName)
		if errors.Is(err, http.ErrNoCookie) {
			return "", nil
		}
		if err != nil {
			return "", err
		}
		return cookie.Value, nil
	}
}

// ParameterTokenExtractor returns a TokenExtractor that extracts
// the token from the specified query string parameter.
func ParameterTokenExtractor(param string) TokenExtractor {
	return func(r *http.Request) (string, error) {
		return r.URL.Query().Get(param), nil
	}
}

// MultiTokenExtractor returns a TokenExtractor that runs multiple TokenExtractors
// and takes the one that does not return an empty token. If a TokenExtractor
// returns an error that error is immediately returned.
func MultiTokenExtractor(extractors ...TokenExtractor) TokenExtractor {
	return func(r *http.Request) (string, error) {
		for _, ex := range extractors {
			token, err := ex(r)
			if err != nil {
				return "", err
			}
			if token != "" {
				return token, nil
			}
		}
		return "", nil
	}
}

// Client authentication methods, as advertised in the discovery document.
const (
	AuthMethodClientSecretBasic = "client_secret_basic"
	AuthMethodClientSecretPost  = "client_secret_post"
	AuthMethodNone              = "none"
)

// ClientCredentials are the client identifier and secret presented with a
// token or introspection request.
type ClientCredentials struct {
	ClientID     string
	ClientSecret string

	// Method is one of the AuthMethod constants.
	Method string
}

// CredentialsExtractor reads the client credentials of a request. form is
// the already parsed request body.
type CredentialsExtractor func(r *http.Request, form *protocol.Message) (ClientCredentials, error)

// DefaultCredentialsExtractor accepts HTTP Basic credentials (RFC 6749
// §2.3.1, form-urlencoded inside the header) or client_id/client_secret
// body parameters. Using both at once is rejected.
func DefaultCredentialsExtractor(r *http.Request, form *protocol.Message) (ClientCredentials, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		creds := ClientCredentials{
			ClientID:     form.ClientID(),
			ClientSecret: form.ClientSecret(),
			Method:       AuthMethodNone,
		}
		if creds.ClientSecret != "" {
			creds.Method = AuthMethodClientSecretPost
		}
		return creds, nil
	}

	scheme, value, ok := strings.Cut(authHeader, " ")
	if !ok || !strings.EqualFold(scheme, "basic") {
		return ClientCredentials{}, protocol.NewError(protocol.ErrorInvalidRequest,
			"The authorization header must use the Basic scheme.")
	}
	if form.ClientSecret() != "" {
		return ClientCredentials{}, protocol.NewError(protocol.ErrorInvalidRequest,
			"Multiple client authentication methods were used.")
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(value))
	if err != nil {
		return ClientCredentials{}, protocol.NewError(protocol.ErrorInvalidRequest,
			"The authorization header is malformed.").WithCause(err)
	}
	id, secret, ok := strings.Cut(string(raw), ":")
	if !ok {
		return ClientCredentials{}, protocol.NewError(protocol.ErrorInvalidRequest,
			"The authorization header is malformed.")
	}
	if id, err = url.QueryUnescape(id); err != nil {
		return ClientCredentials{}, protocol.NewError(protocol.ErrorInvalidRequest,
			"The client identifier is malformed.").WithCause(err)
	}
	if secret, err = url.QueryUnescape(secret); err != nil {
		return ClientCredentials{}, protocol.NewError(protocol.ErrorInvalidRequest,
			"The client secret is malformed.").WithCause(err)
	}

	if formID := form.ClientID(); formID != "" && formID != id {
		return ClientCredentials{}, protocol.NewError(protocol.ErrorInvalidRequest,
			"The client_id parameter does not match the authorization header.")
	}

	return ClientCredentials{ClientID: id, ClientSecret: secret, Method: AuthMethodClientSecretBasic}, nil
}
