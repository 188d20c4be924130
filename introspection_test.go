package oidcserver

import (
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auth0/go-oidc-server/dataformat/reference"
	"github.com/auth0/go-oidc-server/dataformat/reference/memory"
	"github.com/auth0/go-oidc-server/protocol"
)

func introspect(t *testing.T, s *Server, token, hint string, creds ...string) IntrospectionResponse {
	t.Helper()

	form := url.Values{"token": {token}}
	if hint != "" {
		form.Set("token_type_hint", hint)
	}
	rec := post(t, s.IntrospectionHandler(), form, creds...)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body IntrospectionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestIntrospectionHandler(t *testing.T) {
	s := newTestServer(t)
	form := clientCredentials("offline_access api:read")
	form.Set("audience", "client-3")
	issued := decodeTokens(t, post(t, s.TokenHandler(), form, "client-1", "secret-1"))

	t.Run("active access token", func(t *testing.T) {
		got := introspect(t, s, issued.AccessToken, "", "client-1", "secret-1")

		assert.True(t, got.Active)
		assert.Equal(t, "client-1", got.Subject)
		assert.Equal(t, "client-1", got.ClientID)
		assert.Equal(t, "offline_access api:read", got.Scope)
		assert.Equal(t, "Bearer", got.TokenType)
		assert.Equal(t, testIssuer, got.Issuer)
		assert.Equal(t, []string{"client-3"}, got.Audience)
		assert.NotZero(t, got.ExpiresAt)
		assert.NotZero(t, got.IssuedAt)
		assert.NotEmpty(t, got.TokenID)
	})

	t.Run("active refresh token with hint", func(t *testing.T) {
		got := introspect(t, s, issued.RefreshToken, "refresh_token", "client-1", "secret-1")

		assert.True(t, got.Active)
		assert.Empty(t, got.TokenType)
	})

	t.Run("garbage token is inactive", func(t *testing.T) {
		got := introspect(t, s, "garbage", "", "client-1", "secret-1")

		assert.Equal(t, IntrospectionResponse{Active: false}, got)
	})

	t.Run("caller that is neither presenter nor audience", func(t *testing.T) {
		got := introspect(t, s, issued.AccessToken, "", "client-2", "secret-2")

		assert.False(t, got.Active)
		assert.Empty(t, got.Subject)
	})
}

func TestIntrospectionHandler_Errors(t *testing.T) {
	t.Run("missing token", func(t *testing.T) {
		s := newTestServer(t)

		rec := post(t, s.IntrospectionHandler(), url.Values{}, "client-1", "secret-1")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, protocol.ErrorInvalidRequest, decodeError(t, rec).Error)
	})

	t.Run("unauthenticated caller", func(t *testing.T) {
		s := newTestServer(t)

		rec := post(t, s.IntrospectionHandler(), url.Values{"token": {"x"}}, "client-1", "wrong")

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, protocol.ErrorInvalidClient, decodeError(t, rec).Error)
	})

	t.Run("introspection refused", func(t *testing.T) {
		p := testProvider()
		p.ValidateIntrospectionRequest = func(c *ValidateIntrospectionRequestContext) error {
			if c.ClientID != "resource-server" {
				c.RejectWithError(protocol.ErrorUnauthorizedClient)
			}
			return nil
		}
		s := newTestServer(t, WithProvider(p))

		rec := post(t, s.IntrospectionHandler(), url.Values{"token": {"x"}}, "client-1", "secret-1")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, protocol.ErrorUnauthorizedClient, decodeError(t, rec).Error)
	})
}

func TestIntrospectionHandler_DoesNotConsumeSingleUseTokens(t *testing.T) {
	refreshFormat, err := reference.New(memory.New(), reference.WithSingleUse(true))
	require.NoError(t, err)
	s := newTestServer(t, WithRefreshTokenFormat(refreshFormat), WithRollingRefreshTokens(true))

	issued := decodeTokens(t, post(t, s.TokenHandler(), clientCredentials("offline_access"), "client-1", "secret-1"))

	assert.True(t, introspect(t, s, issued.RefreshToken, "refresh_token", "client-1", "secret-1").Active)
	assert.True(t, introspect(t, s, issued.RefreshToken, "", "client-1", "secret-1").Active)

	decodeTokens(t, post(t, s.TokenHandler(), refreshGrant(issued.RefreshToken), "client-1", "secret-1"))

	assert.False(t, introspect(t, s, issued.RefreshToken, "refresh_token", "client-1", "secret-1").Active)
}
