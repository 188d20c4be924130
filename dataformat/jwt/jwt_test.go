package jwt

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auth0/go-oidc-server/dataformat"
	"github.com/auth0/go-oidc-server/ticket"
)

const issuer = "https://issuer.example.com/"

func newRSAFormat(t *testing.T, now time.Time) *Format {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	return newRSAFormatWithKey(t, key, now)
}

func newRSAFormatWithKey(t *testing.T, key *rsa.PrivateKey, now time.Time) *Format {
	t.Helper()

	f, err := New(
		WithSigningKey(key, RS256, "key-1"),
		WithIssuer(issuer),
		WithClock(func() time.Time { return now }),
	)
	require.NoError(t, err)
	return f
}

func sampleTicket(now time.Time) *ticket.Ticket {
	tk := ticket.New("alice")
	tk.IssuedAt = now
	tk.ExpiresAt = now.Add(time.Hour)
	tk.Claims["email"] = "alice@example.com"
	tk.SetTicketID("ticket-1")
	tk.SetPresenters([]string{"client-1", "client-2"})
	tk.SetAudiences([]string{"api"})
	tk.SetScopes([]string{"openid", "offline_access"})
	tk.SetTokenUsage(ticket.UsageRefreshToken)
	return tk
}

func TestNew(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	tests := []struct {
		name    string
		opts    []Option
		wantErr string
	}{
		{name: "missing signing key", opts: []Option{WithIssuer(issuer)}, wantErr: "signing key is required"},
		{name: "missing issuer", opts: []Option{WithSigningKey(key, RS256, "")}, wantErr: "issuer is required"},
		{name: "nil key", opts: []Option{WithSigningKey(nil, RS256, "")}, wantErr: "signing key cannot be nil"},
		{name: "unsupported algorithm", opts: []Option{WithSigningKey(key, "none", "")}, wantErr: "unsupported signature algorithm"},
		{name: "negative skew", opts: []Option{WithAllowedClockSkew(-time.Second)}, wantErr: "clock skew cannot be negative"},
		{name: "nil clock", opts: []Option{WithClock(nil)}, wantErr: "clock cannot be nil"},
		{name: "valid", opts: []Option{WithSigningKey(key, RS256, "k"), WithIssuer(issuer)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := New(tt.opts...)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				assert.Nil(t, f)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, f)
		})
	}
}

func TestFormat_RoundTrip(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	f := newRSAFormat(t, now)
	in := sampleTicket(now)

	token, err := f.Protect(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(token, "."))

	out, err := f.Unprotect(context.Background(), token)
	require.NoError(t, err)

	assert.Equal(t, "alice", out.Subject)
	assert.True(t, in.IssuedAt.Equal(out.IssuedAt))
	assert.True(t, in.ExpiresAt.Equal(out.ExpiresAt))
	assert.Equal(t, "alice@example.com", out.Claims["email"])
	if diff := cmp.Diff(in.Properties, out.Properties); diff != "" {
		t.Errorf("properties mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"client-1", "client-2"}, out.Presenters())
}

func TestFormat_HMAC(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	f, err := New(
		WithSigningKey([]byte("0123456789abcdef0123456789abcdef"), HS256, "shared"),
		WithIssuer(issuer),
		WithClock(func() time.Time { return now }),
	)
	require.NoError(t, err)

	token, err := f.Protect(context.Background(), sampleTicket(now))
	require.NoError(t, err)

	out, err := f.Unprotect(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "alice", out.Subject)

	set, err := f.PublicKeys()
	require.NoError(t, err)
	assert.Zero(t, set.Len(), "symmetric keys are never published")
}

func TestFormat_UnprotectFailures(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	f := newRSAFormatWithKey(t, key, now)

	valid, err := f.Protect(context.Background(), sampleTicket(now))
	require.NoError(t, err)

	t.Run("malformed", func(t *testing.T) {
		_, err := f.Unprotect(context.Background(), "not-a-jwt")
		assert.ErrorIs(t, err, dataformat.ErrMalformed)
	})

	t.Run("tampered", func(t *testing.T) {
		parts := strings.Split(valid, ".")
		parts[2] = strings.Repeat("A", len(parts[2]))
		_, err := f.Unprotect(context.Background(), strings.Join(parts, "."))
		assert.ErrorIs(t, err, dataformat.ErrInvalid)
	})

	t.Run("signed by another key", func(t *testing.T) {
		other := newRSAFormat(t, now)
		_, err := other.Unprotect(context.Background(), valid)
		assert.ErrorIs(t, err, dataformat.ErrInvalid)
	})

	t.Run("expired", func(t *testing.T) {
		later := newRSAFormatWithKey(t, key, now.Add(2*time.Hour))

		token, err := later.Protect(context.Background(), sampleTicket(now))
		require.NoError(t, err)

		_, err = later.Unprotect(context.Background(), token)
		assert.ErrorIs(t, err, dataformat.ErrExpired)
	})
}

func TestFormat_PublicKeys(t *testing.T) {
	f := newRSAFormat(t, time.Now())

	set, err := f.PublicKeys()
	require.NoError(t, err)
	require.Equal(t, 1, set.Len())

	raw, err := json.Marshal(set)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"kid":"key-1"`)
	assert.NotContains(t, string(raw), `"d":`, "private exponent must not be published")
}
