package protocol

import (
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseForm(t *testing.T) {
	form := url.Values{
		"grant_type":    {"refresh_token", "ignored"},
		"refresh_token": {"abc"},
		"scope":         {"openid  offline_access"},
		"empty":         {},
	}

	m := ParseForm(form)

	assert.Equal(t, "refresh_token", m.GrantType())
	assert.Equal(t, "abc", m.RefreshToken())
	assert.Equal(t, []string{"openid", "offline_access"}, m.Scopes())
	assert.True(t, m.HasScope(ScopeOfflineAccess))
	assert.False(t, m.HasScope("profile"))
	assert.True(t, m.IsRefreshTokenGrant())
	assert.False(t, m.IsClientCredentialsGrant())
	assert.False(t, m.Has("empty"))
	assert.Equal(t, []string{"grant_type", "refresh_token", "scope"}, m.Names())
}

func TestMessageSet(t *testing.T) {
	m := NewMessage().Set(ParamClientID, "client-1")
	assert.Equal(t, "client-1", m.ClientID())

	m.Set(ParamClientID, "")
	assert.False(t, m.Has(ParamClientID))

	var nilMessage *Message
	assert.Equal(t, "", nilMessage.Get(ParamClientID))
	assert.False(t, nilMessage.Has(ParamClientID))
}

func TestErrorHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want int
	}{
		{name: "invalid_client", err: NewError(ErrorInvalidClient, ""), want: http.StatusUnauthorized},
		{name: "invalid_token", err: NewError(ErrorInvalidToken, ""), want: http.StatusUnauthorized},
		{name: "insufficient_scope", err: NewError(ErrorInsufficientScope, ""), want: http.StatusForbidden},
		{name: "server_error", err: NewError(ErrorServerError, ""), want: http.StatusInternalServerError},
		{name: "invalid_grant", err: NewError(ErrorInvalidGrant, ""), want: http.StatusBadRequest},
		{name: "explicit status", err: &Error{Code: ErrorInvalidGrant, Status: http.StatusTeapot}, want: http.StatusTeapot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.HTTPStatus())
		})
	}
}

func TestAsError(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		assert.Nil(t, AsError(nil))
	})

	t.Run("protocol error is returned as is", func(t *testing.T) {
		pe := NewError(ErrorInvalidGrant, "refresh token expired")
		wrapped := errors.Join(errors.New("context"), pe)

		got := AsError(wrapped)
		assert.Same(t, pe, got)
		assert.ErrorIs(t, got, ErrProtocol)
	})

	t.Run("other errors become server_error", func(t *testing.T) {
		cause := errors.New("store unavailable")

		got := AsError(cause)
		assert.Equal(t, ErrorServerError, got.Code)
		assert.ErrorIs(t, got, cause)
		assert.Contains(t, got.Error(), "store unavailable")
	})
}
