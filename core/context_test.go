package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auth0/go-oidc-server/ticket"
)

type testOptions struct {
	Issuer string
}

type ctxKey struct{}

func TestNewValidatingContext(t *testing.T) {
	ctx := context.WithValue(context.Background(), ctxKey{}, "request-1")
	opts := &testOptions{Issuer: "https://issuer.example.com"}

	vc := NewValidatingContext(ctx, opts)

	assert.Equal(t, "request-1", vc.Context().Value(ctxKey{}))
	assert.Same(t, opts, vc.Options())
	assert.False(t, vc.IsValidated())
}

func TestNewNotification_NilContext(t *testing.T) {
	//nolint:staticcheck // exercising the nil fallback
	n := NewNotification[*testOptions](nil, nil)
	assert.NotNil(t, n.Context())
}

// checkpointContext mirrors how the root package composes a checkpoint.
type checkpointContext struct {
	ValidatingContext[*testOptions]
	RedirectURI string
}

func TestValidatingContext_Composition(t *testing.T) {
	c := &checkpointContext{ValidatingContext: NewValidatingContext(context.Background(), &testOptions{})}
	c.SetAcceptGuard(func() bool { return c.RedirectURI != "" })

	assert.False(t, c.Accept())

	c.RedirectURI = "https://client.example.com/cb"
	assert.True(t, c.Accept())
	assert.True(t, c.IsValidated())
}

func TestSetAndGetTicket(t *testing.T) {
	t.Run("set and get ticket successfully", func(t *testing.T) {
		tk := ticket.New("alice")
		ctx := SetTicket(context.Background(), tk)

		got, err := GetTicket(ctx)
		require.NoError(t, err)
		assert.Same(t, tk, got)
		assert.True(t, HasTicket(ctx))
	})

	t.Run("get ticket from empty context returns error", func(t *testing.T) {
		_, err := GetTicket(context.Background())

		assert.ErrorIs(t, err, ErrTicketNotFound)
		assert.False(t, HasTicket(context.Background()))
	})

	t.Run("nil ticket is treated as missing", func(t *testing.T) {
		ctx := SetTicket(context.Background(), nil)

		_, err := GetTicket(ctx)
		assert.ErrorIs(t, err, ErrTicketNotFound)
		assert.False(t, HasTicket(ctx))
	})
}
