package jwt

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

// Option is how options for the Format are set up.
// Options return errors to enable validation during construction.
type Option func(*Format) error

// WithSigningKey sets the key and algorithm used to sign tokens.
// This is a required option.
//
// rawKey is a crypto private key (*rsa.PrivateKey, *ecdsa.PrivateKey,
// ed25519.PrivateKey) or a []byte secret for the HS* algorithms. The key ID
// is published in the "kid" header and in the JWKS.
func WithSigningKey(rawKey any, algorithm jwa.SignatureAlgorithm, keyID string) Option {
	return func(f *Format) error {
		if rawKey == nil {
			return errors.New("signing key cannot be nil")
		}
		if !allowedSigningAlgorithms[algorithm] {
			return fmt.Errorf("unsupported signature algorithm: %s", algorithm)
		}

		key, err := jwk.FromRaw(rawKey)
		if err != nil {
			return fmt.Errorf("could not import signing key: %w", err)
		}
		if keyID != "" {
			if err := key.Set(jwk.KeyIDKey, keyID); err != nil {
				return fmt.Errorf("could not set key ID: %w", err)
			}
		}
		if err := key.Set(jwk.AlgorithmKey, algorithm); err != nil {
			return fmt.Errorf("could not set key algorithm: %w", err)
		}

		public, err := jwk.PublicKeyOf(key)
		if err != nil {
			return fmt.Errorf("could not derive verification key: %w", err)
		}

		f.signingKey = key
		f.verificationKey = public
		f.algorithm = algorithm
		return nil
	}
}

// WithIssuer sets the "iss" claim written to and required from tokens.
// This is a required option.
func WithIssuer(issuerURL string) Option {
	return func(f *Format) error {
		if issuerURL == "" {
			return errors.New("issuer cannot be empty")
		}
		if _, err := url.Parse(issuerURL); err != nil {
			return fmt.Errorf("invalid issuer URL: %w", err)
		}
		f.issuer = issuerURL
		return nil
	}
}

// WithAllowedClockSkew sets the tolerance applied to exp, nbf and iat.
//
// Default: 0 (no clock skew allowed)
func WithAllowedClockSkew(skew time.Duration) Option {
	return func(f *Format) error {
		if skew < 0 {
			return errors.New("clock skew cannot be negative")
		}
		f.allowedClockSkew = skew
		return nil
	}
}

// WithClock overrides the time source used during validation.
func WithClock(now func() time.Time) Option {
	return func(f *Format) error {
		if now == nil {
			return errors.New("clock cannot be nil")
		}
		f.now = now
		return nil
	}
}
