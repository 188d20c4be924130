package oidcserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auth0/go-oidc-server/dataformat"
	"github.com/auth0/go-oidc-server/dataformat/reference"
	"github.com/auth0/go-oidc-server/dataformat/reference/memory"
	"github.com/auth0/go-oidc-server/protocol"
	"github.com/auth0/go-oidc-server/ticket"
)

func clientCredentials(scope string) url.Values {
	form := url.Values{"grant_type": {"client_credentials"}}
	if scope != "" {
		form.Set("scope", scope)
	}
	return form
}

func refreshGrant(token string) url.Values {
	return url.Values{"grant_type": {"refresh_token"}, "refresh_token": {token}}
}

func TestTokenHandler_ClientCredentials(t *testing.T) {
	s := newTestServer(t)
	h := s.TokenHandler()

	rec := post(t, h, clientCredentials("api:read"), "client-1", "secret-1")
	tokens := decodeTokens(t, rec)

	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "no-cache", rec.Header().Get("Pragma"))
	assert.Equal(t, "Bearer", tokens.TokenType)
	assert.Equal(t, int64(3600), tokens.ExpiresIn)
	assert.Equal(t, "api:read", tokens.Scope)
	assert.Empty(t, tokens.RefreshToken, "no refresh token without offline_access")

	tk, err := s.options.AccessTokenFormat.Unprotect(context.Background(), tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "client-1", tk.Subject)
	assert.Equal(t, []string{"client-1"}, tk.Presenters())
	assert.Equal(t, ticket.UsageAccessToken, tk.TokenUsage())
	assert.NotEmpty(t, tk.TicketID())
}

func TestTokenHandler_ClientCredentialsWithPostCredentials(t *testing.T) {
	s := newTestServer(t)

	form := clientCredentials("")
	form.Set("client_id", "client-2")
	form.Set("client_secret", "secret-2")
	tokens := decodeTokens(t, post(t, s.TokenHandler(), form))

	tk, err := s.options.AccessTokenFormat.Unprotect(context.Background(), tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, []string{"client-2"}, tk.Presenters())
}

func TestTokenHandler_Errors(t *testing.T) {
	testCases := []struct {
		name       string
		provider   *Provider
		opts       []Option
		form       url.Values
		creds      []string
		wantStatus int
		wantError  string
		wantHeader string
	}{
		{
			name:       "missing grant type",
			form:       url.Values{},
			creds:      []string{"client-1", "secret-1"},
			wantStatus: http.StatusBadRequest,
			wantError:  protocol.ErrorInvalidRequest,
		},
		{
			name:       "unsupported grant type",
			form:       url.Values{"grant_type": {"password"}},
			creds:      []string{"client-1", "secret-1"},
			wantStatus: http.StatusBadRequest,
			wantError:  protocol.ErrorUnsupportedGrantType,
		},
		{
			name:       "missing refresh token",
			form:       url.Values{"grant_type": {"refresh_token"}},
			creds:      []string{"client-1", "secret-1"},
			wantStatus: http.StatusBadRequest,
			wantError:  protocol.ErrorInvalidRequest,
		},
		{
			name:       "wrong client secret",
			form:       clientCredentials(""),
			creds:      []string{"client-1", "nope"},
			wantStatus: http.StatusUnauthorized,
			wantError:  protocol.ErrorInvalidClient,
			wantHeader: `Basic realm="oidc"`,
		},
		{
			name:       "no client authentication hook",
			provider:   &Provider{},
			form:       clientCredentials(""),
			creds:      []string{"client-1", "secret-1"},
			wantStatus: http.StatusUnauthorized,
			wantError:  protocol.ErrorInvalidClient,
		},
		{
			name:       "garbage refresh token",
			form:       refreshGrant("garbage"),
			creds:      []string{"client-1", "secret-1"},
			wantStatus: http.StatusBadRequest,
			wantError:  protocol.ErrorInvalidGrant,
		},
		{
			name: "scopes rejected without a code",
			provider: func() *Provider {
				p := testProvider()
				p.ValidateScopes = func(c *ValidateScopesContext) error {
					c.Reject()
					return nil
				}
				return &p
			}(),
			form:       clientCredentials("admin"),
			creds:      []string{"client-1", "secret-1"},
			wantStatus: http.StatusBadRequest,
			wantError:  protocol.ErrorInvalidScope,
		},
		{
			name: "token request left undecided",
			provider: func() *Provider {
				p := testProvider()
				p.ValidateTokenRequest = func(*ValidateTokenRequestContext) error { return nil }
				return &p
			}(),
			form:       clientCredentials(""),
			creds:      []string{"client-1", "secret-1"},
			wantStatus: http.StatusBadRequest,
			wantError:  protocol.ErrorInvalidGrant,
		},
		{
			name:       "explicit validation required",
			opts:       []Option{WithExplicitTokenRequestValidation(true)},
			form:       clientCredentials(""),
			creds:      []string{"client-1", "secret-1"},
			wantStatus: http.StatusBadRequest,
			wantError:  protocol.ErrorInvalidScope,
		},
		{
			name: "client credentials grant refused",
			provider: func() *Provider {
				p := testProvider()
				p.GrantClientCredentials = func(c *GrantClientCredentialsContext) error {
					c.RejectWithDescription(protocol.ErrorUnauthorizedClient, "Machine clients only.")
					return nil
				}
				return &p
			}(),
			form:       clientCredentials(""),
			creds:      []string{"client-1", "secret-1"},
			wantStatus: http.StatusBadRequest,
			wantError:  protocol.ErrorUnauthorizedClient,
		},
		{
			name: "hook infrastructure failure",
			provider: func() *Provider {
				p := testProvider()
				p.ValidateTokenRequest = func(*ValidateTokenRequestContext) error {
					return errors.New("database unavailable")
				}
				return &p
			}(),
			form:       clientCredentials(""),
			creds:      []string{"client-1", "secret-1"},
			wantStatus: http.StatusInternalServerError,
			wantError:  protocol.ErrorServerError,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			opts := tc.opts
			if tc.provider != nil {
				opts = append(opts, WithProvider(*tc.provider))
			}
			s := newTestServer(t, opts...)

			rec := post(t, s.TokenHandler(), tc.form, tc.creds...)

			assert.Equal(t, tc.wantStatus, rec.Code, rec.Body.String())
			assert.Equal(t, tc.wantError, decodeError(t, rec).Error)
			if tc.wantHeader != "" {
				assert.Equal(t, tc.wantHeader, rec.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestTokenHandler_MethodNotAllowed(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.TokenHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, protocol.ErrorInvalidRequest, decodeError(t, rec).Error)
}

func TestTokenHandler_RefreshToken(t *testing.T) {
	s := newTestServer(t)
	h := s.TokenHandler()

	issued := decodeTokens(t, post(t, h, clientCredentials("offline_access api:read api:write"), "client-1", "secret-1"))
	require.NotEmpty(t, issued.RefreshToken)

	t.Run("redeemed by its presenter", func(t *testing.T) {
		tokens := decodeTokens(t, post(t, h, refreshGrant(issued.RefreshToken), "client-1", "secret-1"))

		assert.NotEmpty(t, tokens.AccessToken)
		assert.Empty(t, tokens.RefreshToken, "refresh tokens are not rolled by default")
		assert.Equal(t, "offline_access api:read api:write", tokens.Scope)
	})

	t.Run("scopes can be narrowed", func(t *testing.T) {
		form := refreshGrant(issued.RefreshToken)
		form.Set("scope", "api:read")

		tokens := decodeTokens(t, post(t, h, form, "client-1", "secret-1"))
		assert.Equal(t, "api:read", tokens.Scope)
	})

	t.Run("scopes cannot be widened", func(t *testing.T) {
		form := refreshGrant(issued.RefreshToken)
		form.Set("scope", "api:admin")

		rec := post(t, h, form, "client-1", "secret-1")
		assert.Equal(t, protocol.ErrorInvalidScope, decodeError(t, rec).Error)
	})

	t.Run("redeemed by another client", func(t *testing.T) {
		rec := post(t, h, refreshGrant(issued.RefreshToken), "client-2", "secret-2")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, protocol.ErrorInvalidGrant, decodeError(t, rec).Error)
	})

	t.Run("access token used as refresh token", func(t *testing.T) {
		rec := post(t, h, refreshGrant(issued.AccessToken), "client-1", "secret-1")

		assert.Equal(t, protocol.ErrorInvalidGrant, decodeError(t, rec).Error)
	})

	t.Run("token request hook sees the refresh ticket", func(t *testing.T) {
		p := testProvider()
		var seen *ticket.Ticket
		p.ValidateTokenRequest = func(c *ValidateTokenRequestContext) error {
			seen = c.Ticket
			assert.Equal(t, protocol.GrantTypeRefreshToken, c.GrantType)
			c.RejectWithDescription(protocol.ErrorInvalidGrant, "The user was deactivated.")
			return nil
		}
		s2 := newTestServer(t, WithProvider(p), WithAccessTokenFormat(s.options.AccessTokenFormat))

		rec := post(t, s2.TokenHandler(), refreshGrant(issued.RefreshToken), "client-1", "secret-1")

		body := decodeError(t, rec)
		assert.Equal(t, protocol.ErrorInvalidGrant, body.Error)
		assert.Equal(t, "The user was deactivated.", body.ErrorDescription)
		require.NotNil(t, seen)
		assert.Equal(t, ticket.UsageRefreshToken, seen.TokenUsage())
	})
}

func TestTokenHandler_RollingRefreshTokens(t *testing.T) {
	refreshFormat, err := reference.New(memory.New(), reference.WithSingleUse(true))
	require.NoError(t, err)
	s := newTestServer(t, WithRefreshTokenFormat(refreshFormat), WithRollingRefreshTokens(true))
	h := s.TokenHandler()

	issued := decodeTokens(t, post(t, h, clientCredentials("offline_access"), "client-1", "secret-1"))
	require.NotEmpty(t, issued.RefreshToken)

	rolled := decodeTokens(t, post(t, h, refreshGrant(issued.RefreshToken), "client-1", "secret-1"))
	require.NotEmpty(t, rolled.RefreshToken)
	assert.NotEqual(t, issued.RefreshToken, rolled.RefreshToken)

	rec := post(t, h, refreshGrant(issued.RefreshToken), "client-1", "secret-1")
	assert.Equal(t, protocol.ErrorInvalidGrant, decodeError(t, rec).Error, "the redeemed token is gone")

	decodeTokens(t, post(t, h, refreshGrant(rolled.RefreshToken), "client-1", "secret-1"))
}

func TestTokenHandler_RollingRefreshTokensSurviveRejections(t *testing.T) {
	refreshFormat, err := reference.New(memory.New(), reference.WithSingleUse(true))
	require.NoError(t, err)

	p := testProvider()
	failures := 1
	p.ValidateTokenRequest = func(c *ValidateTokenRequestContext) error {
		if c.GrantType == protocol.GrantTypeRefreshToken && failures > 0 {
			failures--
			return errors.New("db outage")
		}
		c.Accept()
		return nil
	}
	s := newTestServer(t, WithProvider(p), WithRefreshTokenFormat(refreshFormat), WithRollingRefreshTokens(true))
	h := s.TokenHandler()

	issued := decodeTokens(t, post(t, h, clientCredentials("offline_access"), "client-1", "secret-1"))
	require.NotEmpty(t, issued.RefreshToken)

	rec := post(t, h, refreshGrant(issued.RefreshToken), "client-1", "secret-1")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, protocol.ErrorServerError, decodeError(t, rec).Error)

	rec = post(t, h, refreshGrant(issued.RefreshToken), "client-2", "secret-2")
	assert.Equal(t, protocol.ErrorInvalidGrant, decodeError(t, rec).Error)

	form := refreshGrant(issued.RefreshToken)
	form.Set("scope", "api:admin")
	rec = post(t, h, form, "client-1", "secret-1")
	assert.Equal(t, protocol.ErrorInvalidScope, decodeError(t, rec).Error)

	rolled := decodeTokens(t, post(t, h, refreshGrant(issued.RefreshToken), "client-1", "secret-1"))
	assert.NotEmpty(t, rolled.AccessToken)
	assert.NotEmpty(t, rolled.RefreshToken)

	rec = post(t, h, refreshGrant(issued.RefreshToken), "client-1", "secret-1")
	assert.Equal(t, protocol.ErrorInvalidGrant, decodeError(t, rec).Error)
}

type redeemingFormat struct {
	*reference.Format
	redeemErr error
}

func (f redeemingFormat) Redeem(ctx context.Context, token string) error {
	if f.redeemErr != nil {
		return f.redeemErr
	}
	return f.Format.Redeem(ctx, token)
}

func TestTokenHandler_RollingRefreshRedeemFailures(t *testing.T) {
	tests := []struct {
		name       string
		redeemErr  error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "already redeemed",
			redeemErr:  dataformat.ErrNotFound,
			wantStatus: http.StatusBadRequest,
			wantCode:   protocol.ErrorInvalidGrant,
		},
		{
			name:       "store unavailable",
			redeemErr:  errors.New("connection refused"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   protocol.ErrorServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inner, err := reference.New(memory.New())
			require.NoError(t, err)
			format := redeemingFormat{Format: inner}
			s := newTestServer(t, WithRefreshTokenFormat(&format), WithRollingRefreshTokens(true))
			h := s.TokenHandler()

			issued := decodeTokens(t, post(t, h, clientCredentials("offline_access"), "client-1", "secret-1"))
			format.redeemErr = tt.redeemErr

			rec := post(t, h, refreshGrant(issued.RefreshToken), "client-1", "secret-1")

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCode, decodeError(t, rec).Error)
		})
	}
}

func TestTokenHandler_RefreshTokenExpired(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	refreshFormat, err := reference.New(memory.New())
	require.NoError(t, err)
	s := newTestServer(t, WithRefreshTokenFormat(refreshFormat), WithClock(clock), WithRefreshTokenLifetime(time.Minute))
	h := s.TokenHandler()

	issued := decodeTokens(t, post(t, h, clientCredentials("offline_access"), "client-1", "secret-1"))

	now = now.Add(2 * time.Minute)
	rec := post(t, h, refreshGrant(issued.RefreshToken), "client-1", "secret-1")
	assert.Equal(t, protocol.ErrorInvalidGrant, decodeError(t, rec).Error)
}

func TestTokenHandler_SerializeHook(t *testing.T) {
	t.Run("hook writes the token itself", func(t *testing.T) {
		p := testProvider()
		p.SerializeToken = func(c *SerializeTokenContext) error {
			assert.Equal(t, []string{"client-1"}, c.Presenters())
			c.Token = "custom-" + string(c.Kind)
			return nil
		}
		s := newTestServer(t, WithProvider(p))

		tokens := decodeTokens(t, post(t, s.TokenHandler(), clientCredentials("offline_access"), "client-1", "secret-1"))

		assert.Equal(t, "custom-access_token", tokens.AccessToken)
		assert.Equal(t, "custom-refresh_token", tokens.RefreshToken)
	})

	t.Run("hook adds presenters", func(t *testing.T) {
		p := testProvider()
		p.SerializeToken = func(c *SerializeTokenContext) error {
			c.SetPresenters(append(c.Presenters(), "client-2"))
			return nil
		}
		s := newTestServer(t, WithProvider(p))

		issued := decodeTokens(t, post(t, s.TokenHandler(), clientCredentials("offline_access"), "client-1", "secret-1"))

		decodeTokens(t, post(t, s.TokenHandler(), refreshGrant(issued.RefreshToken), "client-2", "secret-2"))
	})

	t.Run("format failure is a server error", func(t *testing.T) {
		failing := dataformat.Func{
			ProtectFunc: func(context.Context, *ticket.Ticket) (string, error) {
				return "", errors.New("hsm unavailable")
			},
		}
		s := newTestServer(t, WithAccessTokenFormat(failing))

		rec := post(t, s.TokenHandler(), clientCredentials(""), "client-1", "secret-1")

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		body := decodeError(t, rec)
		assert.Equal(t, protocol.ErrorServerError, body.Error)
		assert.NotContains(t, body.ErrorDescription, "hsm")
	})
}

func TestTokenHandler_ClientCredentialsHookTicket(t *testing.T) {
	p := testProvider()
	p.GrantClientCredentials = func(c *GrantClientCredentialsContext) error {
		c.Ticket.Claims["tenant"] = "acme"
		c.Ticket.SetAudiences([]string{"orders-api"})
		c.Accept()
		return nil
	}
	s := newTestServer(t, WithProvider(p))

	tokens := decodeTokens(t, post(t, s.TokenHandler(), clientCredentials(""), "client-1", "secret-1"))

	tk, err := s.options.AccessTokenFormat.Unprotect(context.Background(), tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "acme", tk.Claims["tenant"])
	assert.Equal(t, []string{"orders-api"}, tk.Audiences())
}
