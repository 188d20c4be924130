package main

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/subtle"
	"fmt"
	"os"

	"github.com/lestrrat-go/jwx/v2/jwk"

	oidcserver "github.com/auth0/go-oidc-server"
	"github.com/auth0/go-oidc-server/protocol"
)

// staticClients authenticates confidential clients against a fixed set of
// secrets.
type staticClients map[string]string

func (c staticClients) provider() oidcserver.Provider {
	return oidcserver.Provider{
		ValidateClientAuthentication: c.validateClientAuthentication,
	}
}

func (c staticClients) validateClientAuthentication(ctx *oidcserver.ValidateClientAuthenticationContext) error {
	secret, ok := c[ctx.ClientID]
	if !ok || subtle.ConstantTimeCompare([]byte(secret), []byte(ctx.ClientSecret)) != 1 {
		ctx.RejectWithDescription(protocol.ErrorInvalidClient, "The client credentials are invalid.")
		return nil
	}
	ctx.AcceptClient(ctx.ClientID)
	return nil
}

// loadSigningKey reads a PEM encoded RSA private key in PKCS#1 or PKCS#8
// form. An empty path generates a 2048 bit key.
func loadSigningKey(path string) (*rsa.PrivateKey, error) {
	if path == "" {
		return rsa.GenerateKey(rand.Reader, 2048)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading signing key: %w", err)
	}

	key, err := jwk.ParseKey(raw, jwk.WithPEM(true))
	if err != nil {
		return nil, fmt.Errorf("parsing signing key: %w", err)
	}

	var rsaKey rsa.PrivateKey
	if err := key.Raw(&rsaKey); err != nil {
		return nil, fmt.Errorf("signing key is a %s key, want an RSA private key: %w", key.KeyType(), err)
	}
	return &rsaKey, nil
}
