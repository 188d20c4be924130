package oidcserver

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"

	"github.com/auth0/go-oidc-server/dataformat"
)

// Option configures the Server.
// Returns error for validation failures.
type Option func(*Server) error

// WithIssuer sets the issuer URL published in discovery and stamped on
// tickets (REQUIRED). It must be an absolute URL.
func WithIssuer(issuer string) Option {
	return func(s *Server) error {
		if issuer == "" {
			return ErrIssuerEmpty
		}
		u, err := url.Parse(issuer)
		if err != nil {
			return fmt.Errorf("invalid issuer URL: %w", err)
		}
		if !u.IsAbs() || u.Host == "" {
			return fmt.Errorf("issuer must be an absolute URL: %q", issuer)
		}
		s.options.Issuer = issuer
		return nil
	}
}

// WithProvider sets the hooks through which the embedder takes decisions.
// Without a provider every client authentication fails.
func WithProvider(p Provider) Option {
	return func(s *Server) error {
		s.provider = p
		return nil
	}
}

// WithAccessTokenFormat sets the format protecting access tokens (REQUIRED).
func WithAccessTokenFormat(f dataformat.DataFormat) Option {
	return func(s *Server) error {
		if f == nil {
			return ErrDataFormatNil
		}
		s.options.AccessTokenFormat = f
		return nil
	}
}

// WithRefreshTokenFormat sets the format protecting refresh tokens.
//
// Default: the access token format
func WithRefreshTokenFormat(f dataformat.DataFormat) Option {
	return func(s *Server) error {
		if f == nil {
			return ErrDataFormatNil
		}
		s.options.RefreshTokenFormat = f
		return nil
	}
}

// WithAccessTokenLifetime sets how long issued access tokens are valid.
//
// Default: 1 hour
func WithAccessTokenLifetime(d time.Duration) Option {
	return func(s *Server) error {
		if d <= 0 {
			return ErrLifetimeNotPositive
		}
		s.options.AccessTokenLifetime = d
		return nil
	}
}

// WithRefreshTokenLifetime sets how long issued refresh tokens are valid.
//
// Default: 14 days
func WithRefreshTokenLifetime(d time.Duration) Option {
	return func(s *Server) error {
		if d <= 0 {
			return ErrLifetimeNotPositive
		}
		s.options.RefreshTokenLifetime = d
		return nil
	}
}

// WithRollingRefreshTokens makes the refresh_token grant return a new
// refresh token. The redeemed one is consumed through dataformat.Redeemer,
// or revoked when the format only implements dataformat.Revoker.
//
// Default: false
func WithRollingRefreshTokens(value bool) Option {
	return func(s *Server) error {
		s.options.RollingRefreshTokens = value
		return nil
	}
}

// WithExplicitTokenRequestValidation rejects the token request, scopes,
// introspection and access token checkpoints when no hook handles them.
//
// Default: false (accepted when no hook is installed)
func WithExplicitTokenRequestValidation(value bool) Option {
	return func(s *Server) error {
		s.options.RequireExplicitTokenRequestValidation = value
		return nil
	}
}

// WithLogger sets an optional logger for the server.
//
// The logger interface is compatible with log/slog.Logger and similar loggers.
//
// Example:
//
//	server, err := oidcserver.New(
//	    oidcserver.WithIssuer("https://auth.example.com"),
//	    oidcserver.WithAccessTokenFormat(format),
//	    oidcserver.WithLogger(slog.Default()),
//	)
func WithLogger(logger Logger) Option {
	return func(s *Server) error {
		if logger == nil {
			return ErrLoggerNil
		}
		s.logger = logger
		return nil
	}
}

// WithMetrics sets the metrics sink.
//
// Default: NoopMetrics
func WithMetrics(m Metrics) Option {
	return func(s *Server) error {
		if m == nil {
			return ErrMetricsNil
		}
		s.metrics = m
		return nil
	}
}

// WithTracer sets the tracer used for endpoint and checkpoint spans.
//
// Default: NoopTracer
func WithTracer(t Tracer) Option {
	return func(s *Server) error {
		if t == nil {
			return ErrTracerNil
		}
		s.tracer = t
		return nil
	}
}

// WithErrorHandler sets the handler called when a request is rejected.
// See the ErrorHandler type for more information.
//
// Default: DefaultErrorHandler
func WithErrorHandler(h ErrorHandler) Option {
	return func(s *Server) error {
		if h == nil {
			return ErrErrorHandlerNil
		}
		s.errorHandler = h
		return nil
	}
}

// WithCredentialsExtractor sets how client credentials are read from token
// and introspection requests.
//
// Default: DefaultCredentialsExtractor
func WithCredentialsExtractor(e CredentialsExtractor) Option {
	return func(s *Server) error {
		if e == nil {
			return ErrCredentialsExtractorNil
		}
		s.credentialsExtractor = e
		return nil
	}
}

// WithTokenExtractor sets how CheckAccessToken finds the access token.
//
// Default: AuthHeaderTokenExtractor
func WithTokenExtractor(e TokenExtractor) Option {
	return func(s *Server) error {
		if e == nil {
			return ErrTokenExtractorNil
		}
		s.tokenExtractor = e
		return nil
	}
}

// WithClock overrides the server clock.
//
// Default: time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Server) error {
		if now == nil {
			return ErrClockNil
		}
		s.options.Now = now
		return nil
	}
}

// WithPublicKeys sets the key set served by the JWKS endpoint.
//
// Default: the keys published by the token formats, if any
func WithPublicKeys(set jwk.Set) Option {
	return func(s *Server) error {
		if set == nil {
			return ErrPublicKeysNil
		}
		s.publicKeys = set
		return nil
	}
}

// WithPaths overrides the endpoint paths mounted by Handler and published in
// the discovery document. Empty arguments keep the default.
func WithPaths(token, introspection, jwks, discovery string) Option {
	return func(s *Server) error {
		for _, p := range []string{token, introspection, jwks, discovery} {
			if p != "" && !strings.HasPrefix(p, "/") {
				return fmt.Errorf("endpoint path must start with '/': %q", p)
			}
		}
		if token != "" {
			s.options.TokenPath = token
		}
		if introspection != "" {
			s.options.IntrospectionPath = introspection
		}
		if jwks != "" {
			s.options.JWKSPath = jwks
		}
		if discovery != "" {
			s.options.DiscoveryPath = discovery
		}
		return nil
	}
}

// Sentinel errors for configuration validation
var (
	ErrIssuerEmpty             = errors.New("issuer cannot be empty (use WithIssuer)")
	ErrAccessTokenFormatNil    = errors.New("access token format is required (use WithAccessTokenFormat)")
	ErrDataFormatNil           = errors.New("data format cannot be nil")
	ErrLifetimeNotPositive     = errors.New("token lifetime must be positive")
	ErrLoggerNil               = errors.New("logger cannot be nil")
	ErrMetricsNil              = errors.New("metrics cannot be nil")
	ErrTracerNil               = errors.New("tracer cannot be nil")
	ErrErrorHandlerNil         = errors.New("errorHandler cannot be nil")
	ErrCredentialsExtractorNil = errors.New("credentialsExtractor cannot be nil")
	ErrTokenExtractorNil       = errors.New("tokenExtractor cannot be nil")
	ErrClockNil                = errors.New("clock cannot be nil")
	ErrPublicKeysNil           = errors.New("public key set cannot be nil")
)
