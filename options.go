package oidcserver

import (
	"time"

	"github.com/auth0/go-oidc-server/dataformat"
)

// Default endpoint paths mounted by Server.Handler.
const (
	DefaultTokenPath         = "/oauth/token"
	DefaultIntrospectionPath = "/oauth/introspect"
	DefaultJWKSPath          = "/.well-known/jwks.json"
	DefaultDiscoveryPath     = "/.well-known/openid-configuration"
)

// Default token lifetimes.
const (
	DefaultAccessTokenLifetime  = time.Hour
	DefaultRefreshTokenLifetime = 14 * 24 * time.Hour
)

// Options is the server configuration every checkpoint can read through
// Options(). It is fixed once New returns; hooks must not modify it.
type Options struct {
	// Issuer is the absolute URL identifying this server.
	Issuer string

	// AccessTokenFormat protects access tokens. Required.
	AccessTokenFormat dataformat.DataFormat

	// RefreshTokenFormat protects refresh tokens. Defaults to AccessTokenFormat.
	RefreshTokenFormat dataformat.DataFormat

	AccessTokenLifetime  time.Duration
	RefreshTokenLifetime time.Duration

	// RollingRefreshTokens issues a new refresh token on every refresh_token
	// grant and consumes the one that was redeemed.
	RollingRefreshTokens bool

	// RequireExplicitTokenRequestValidation rejects token, scope, introspection
	// and access token checkpoints that have no Provider hook instead of
	// accepting them.
	RequireExplicitTokenRequestValidation bool

	TokenPath         string
	IntrospectionPath string
	JWKSPath          string
	DiscoveryPath     string

	// Now is the server clock.
	Now func() time.Time
}

func defaultOptions() *Options {
	return &Options{
		AccessTokenLifetime:  DefaultAccessTokenLifetime,
		RefreshTokenLifetime: DefaultRefreshTokenLifetime,
		TokenPath:            DefaultTokenPath,
		IntrospectionPath:    DefaultIntrospectionPath,
		JWKSPath:             DefaultJWKSPath,
		DiscoveryPath:        DefaultDiscoveryPath,
		Now:                  time.Now,
	}
}
