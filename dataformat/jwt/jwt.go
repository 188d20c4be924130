// Package jwt provides a signed JSON Web Token data format.
//
// The ticket subject, issue and expiry times map to the registered claims,
// audiences to "aud", the ticket ID to "jti", and the server properties are
// carried verbatim in a private "props" claim. Ticket claims become
// top-level private claims.
package jwt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/auth0/go-oidc-server/dataformat"
	"github.com/auth0/go-oidc-server/ticket"
)

const (
	claimProperties = "props"
	claimScope      = "scope"
	claimClientID   = "client_id"
)

// Signature algorithms accepted by WithSigningKey.
const (
	HS256 = jwa.HS256
	HS384 = jwa.HS384
	HS512 = jwa.HS512
	RS256 = jwa.RS256
	RS384 = jwa.RS384
	RS512 = jwa.RS512
	ES256 = jwa.ES256
	ES384 = jwa.ES384
	ES512 = jwa.ES512
	PS256 = jwa.PS256
	PS384 = jwa.PS384
	PS512 = jwa.PS512
	EdDSA = jwa.EdDSA
)

var allowedSigningAlgorithms = map[jwa.SignatureAlgorithm]bool{
	HS256: true, HS384: true, HS512: true,
	RS256: true, RS384: true, RS512: true,
	ES256: true, ES384: true, ES512: true,
	PS256: true, PS384: true, PS512: true,
	EdDSA: true,
}

var reservedClaims = map[string]bool{
	jwt.SubjectKey:    true,
	jwt.IssuerKey:     true,
	jwt.AudienceKey:   true,
	jwt.IssuedAtKey:   true,
	jwt.ExpirationKey: true,
	jwt.NotBeforeKey:  true,
	jwt.JwtIDKey:      true,
	claimProperties:   true,
	claimScope:        true,
	claimClientID:     true,
}

// Format signs tickets as JWTs. It is safe for concurrent use.
type Format struct {
	issuer           string
	algorithm        jwa.SignatureAlgorithm
	signingKey       jwk.Key
	verificationKey  jwk.Key
	allowedClockSkew time.Duration
	now              func() time.Time
}

var _ dataformat.DataFormat = (*Format)(nil)

// New creates a JWT format. WithSigningKey and WithIssuer are required.
func New(opts ...Option) (*Format, error) {
	f := &Format{now: time.Now}

	for _, opt := range opts {
		if err := opt(f); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	if f.signingKey == nil {
		return nil, errors.New("signing key is required (use WithSigningKey)")
	}
	if f.issuer == "" {
		return nil, errors.New("issuer is required (use WithIssuer)")
	}

	return f, nil
}

// Protect signs t.
func (f *Format) Protect(_ context.Context, t *ticket.Ticket) (string, error) {
	if t == nil {
		return "", errors.New("ticket is nil")
	}

	builder := jwt.NewBuilder().
		Issuer(f.issuer).
		Subject(t.Subject)

	if !t.IssuedAt.IsZero() {
		builder = builder.IssuedAt(t.IssuedAt)
	}
	if !t.ExpiresAt.IsZero() {
		builder = builder.Expiration(t.ExpiresAt)
	}
	if id := t.TicketID(); id != "" {
		builder = builder.JwtID(id)
	}
	if aud := t.Audiences(); len(aud) > 0 {
		builder = builder.Audience(aud)
	}
	if scopes := t.Scopes(); len(scopes) > 0 {
		builder = builder.Claim(claimScope, strings.Join(scopes, " "))
	}
	if presenters := t.Presenters(); len(presenters) > 0 {
		builder = builder.Claim(claimClientID, presenters[0])
	}
	if len(t.Properties) > 0 {
		builder = builder.Claim(claimProperties, t.Properties)
	}
	for name, value := range t.Claims {
		if reservedClaims[name] {
			continue
		}
		builder = builder.Claim(name, value)
	}

	tok, err := builder.Build()
	if err != nil {
		return "", fmt.Errorf("could not build token: %w", err)
	}

	signed, err := jwt.Sign(tok, jwt.WithKey(f.algorithm, f.signingKey))
	if err != nil {
		return "", fmt.Errorf("could not sign token: %w", err)
	}

	return string(signed), nil
}

// Unprotect verifies token and rebuilds the ticket.
func (f *Format) Unprotect(_ context.Context, token string) (*ticket.Ticket, error) {
	if strings.Count(token, ".") != 2 {
		return nil, dataformat.ErrMalformed
	}

	tok, err := jwt.Parse(
		[]byte(token),
		jwt.WithKey(f.algorithm, f.verificationKey),
		jwt.WithValidate(true),
		jwt.WithIssuer(f.issuer),
		jwt.WithAcceptableSkew(f.allowedClockSkew),
		jwt.WithClock(jwt.ClockFunc(f.now)),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired()) {
			return nil, fmt.Errorf("%w: %w", dataformat.ErrExpired, err)
		}
		return nil, fmt.Errorf("%w: %w", dataformat.ErrInvalid, err)
	}

	t := ticket.New(tok.Subject())
	t.IssuedAt = tok.IssuedAt()
	t.ExpiresAt = tok.Expiration()

	for name, value := range tok.PrivateClaims() {
		if name == claimProperties {
			props, ok := value.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: properties claim has type %T", dataformat.ErrMalformed, value)
			}
			for k, v := range props {
				s, ok := v.(string)
				if !ok {
					continue
				}
				t.Properties[k] = s
			}
			continue
		}
		if reservedClaims[name] {
			continue
		}
		t.Claims[name] = value
	}

	if t.TicketID() == "" && tok.JwtID() != "" {
		t.SetTicketID(tok.JwtID())
	}

	return t, nil
}

// PublicKeys returns the JSON Web Key Set that verifies tokens signed by f.
// Symmetric keys are never published.
func (f *Format) PublicKeys() (jwk.Set, error) {
	set := jwk.NewSet()
	if f.verificationKey.KeyType() == jwa.OctetSeq {
		return set, nil
	}
	if err := set.AddKey(f.verificationKey); err != nil {
		return nil, fmt.Errorf("could not add key to set: %w", err)
	}
	return set, nil
}
