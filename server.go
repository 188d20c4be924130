package oidcserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/lestrrat-go/jwx/v2/jwk"

	"github.com/auth0/go-oidc-server/core"
	"github.com/auth0/go-oidc-server/dataformat"
	"github.com/auth0/go-oidc-server/protocol"
	"github.com/auth0/go-oidc-server/ticket"
)

// Checkpoint names used in logs, spans and metrics.
const (
	CheckpointClientAuthentication   = "client_authentication"
	CheckpointRedirectURI            = "redirect_uri"
	CheckpointScopes                 = "scopes"
	CheckpointTokenRequest           = "token_request"
	CheckpointIntrospectionRequest   = "introspection_request"
	CheckpointAccessToken            = "access_token"
	CheckpointClientCredentialsGrant = "client_credentials_grant"
)

// Server is an OAuth2 / OpenID Connect authorization server. It owns the
// protocol flow and asks the Provider hooks for every decision.
type Server struct {
	options              *Options
	provider             Provider
	logger               Logger
	metrics              Metrics
	tracer               Tracer
	errorHandler         ErrorHandler
	credentialsExtractor CredentialsExtractor
	tokenExtractor       TokenExtractor
	publicKeys           jwk.Set
}

// KeySetPublisher is implemented by data formats that can publish the keys
// verifying their tokens, such as the jwt format.
type KeySetPublisher interface {
	PublicKeys() (jwk.Set, error)
}

// New constructs a new Server instance with the supplied options.
// All parameters are passed via options (pure options pattern).
//
// Example:
//
//	format, err := jwt.New(
//	    jwt.WithSigningKey(privateKey, jwt.RS256, "key-1"),
//	    jwt.WithIssuer("https://auth.example.com"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	server, err := oidcserver.New(
//	    oidcserver.WithIssuer("https://auth.example.com"),
//	    oidcserver.WithAccessTokenFormat(format),
//	    oidcserver.WithProvider(provider),
//	)
func New(opts ...Option) (*Server, error) {
	s := &Server{options: defaultOptions()}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("invalid server configuration: %w", err)
	}

	if err := s.applyDefaults(); err != nil {
		return nil, err
	}

	return s, nil
}

// validate ensures all required fields are set
func (s *Server) validate() error {
	if s.options.Issuer == "" {
		return ErrIssuerEmpty
	}
	if s.options.AccessTokenFormat == nil {
		return ErrAccessTokenFormatNil
	}
	return nil
}

// applyDefaults sets default values for optional fields not set by options
func (s *Server) applyDefaults() error {
	if s.options.RefreshTokenFormat == nil {
		s.options.RefreshTokenFormat = s.options.AccessTokenFormat
	}
	if s.metrics == nil {
		s.metrics = &NoopMetrics{}
	}
	if s.tracer == nil {
		s.tracer = &NoopTracer{}
	}
	if s.errorHandler == nil {
		s.errorHandler = DefaultErrorHandler
	}
	if s.credentialsExtractor == nil {
		s.credentialsExtractor = DefaultCredentialsExtractor
	}
	if s.tokenExtractor == nil {
		s.tokenExtractor = AuthHeaderTokenExtractor
	}
	if s.publicKeys == nil {
		set, err := publishedKeys(s.options.AccessTokenFormat, s.options.RefreshTokenFormat)
		if err != nil {
			return fmt.Errorf("failed to collect public keys: %w", err)
		}
		s.publicKeys = set
	}
	return nil
}

func publishedKeys(formats ...dataformat.DataFormat) (jwk.Set, error) {
	set := jwk.NewSet()
	seen := make(map[dataformat.DataFormat]bool)
	for _, f := range formats {
		publisher, ok := f.(KeySetPublisher)
		if !ok || seen[f] {
			continue
		}
		seen[f] = true

		keys, err := publisher.PublicKeys()
		if err != nil {
			return nil, err
		}
		for i := 0; i < keys.Len(); i++ {
			key, ok := keys.Key(i)
			if !ok {
				continue
			}
			if err := set.AddKey(key); err != nil {
				return nil, err
			}
		}
	}
	return set, nil
}

// Options returns the configuration the server runs with.
func (s *Server) Options() *Options {
	return s.options
}

// Handler returns an http.Handler serving the token, introspection, JWKS
// and discovery endpoints on their configured paths.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(s.options.TokenPath, s.TokenHandler())
	mux.Handle(s.options.IntrospectionPath, s.IntrospectionHandler())
	mux.Handle(s.options.JWKSPath, s.JWKSHandler())
	mux.Handle(s.options.DiscoveryPath, s.DiscoveryHandler())
	return mux
}

// GetTicket retrieves the ticket stored by CheckAccessToken or the gRPC
// interceptors.
func GetTicket(ctx context.Context) (*ticket.Ticket, error) {
	return core.GetTicket(ctx)
}

// HasTicket checks if a ticket exists in the context.
func HasTicket(ctx context.Context) bool {
	return core.HasTicket(ctx)
}

// decide invokes hook, when present, and turns the resulting decision into
// a rejection. Hook errors are reported as they are when they already are
// protocol errors and as server_error otherwise.
func (s *Server) decide(ctx context.Context, checkpoint string, d *core.Decision, defaultCode string, hook func() error) error {
	_, span := s.tracer.StartSpan(ctx, "oidc.checkpoint."+checkpoint)
	defer span.End()

	if hook != nil {
		if err := hook(); err != nil {
			span.RecordError(err)
			s.metrics.IncCounter(MetricCheckpointDecisions, map[string]string{
				"checkpoint": checkpoint,
				"outcome":    "error",
			})
			if s.logger != nil {
				s.logger.Error("checkpoint hook failed",
					"checkpoint", checkpoint,
					"error", err)
			}
			return protocol.AsError(err)
		}
	}

	if rejection := d.Rejection(defaultCode); rejection != nil {
		span.SetTag("outcome", "rejected")
		span.SetTag("error", rejection.Code)
		s.metrics.IncCounter(MetricCheckpointDecisions, map[string]string{
			"checkpoint": checkpoint,
			"outcome":    "rejected",
		})
		if s.logger != nil {
			s.logger.Debug("checkpoint rejected the request",
				"checkpoint", checkpoint,
				"error", rejection.Code,
				"error_description", rejection.Description)
		}
		return rejection
	}

	span.SetTag("outcome", "accepted")
	s.metrics.IncCounter(MetricCheckpointDecisions, map[string]string{
		"checkpoint": checkpoint,
		"outcome":    "accepted",
	})
	return nil
}

// acceptByDefault reports whether a checkpoint without a hook is accepted.
func (s *Server) acceptByDefault() bool {
	return !s.options.RequireExplicitTokenRequestValidation
}

// authenticateClient runs the client authentication checkpoint and returns
// the authenticated client identifier.
func (s *Server) authenticateClient(ctx context.Context, r *http.Request, req *protocol.Message) (string, error) {
	creds, err := s.credentialsExtractor(r, req)
	if err != nil {
		var pe *protocol.Error
		if errors.As(err, &pe) {
			return "", pe
		}
		return "", protocol.NewError(protocol.ErrorInvalidRequest, "The client credentials are malformed.").WithCause(err)
	}

	c := newValidateClientAuthenticationContext(ctx, s.options, req, creds)
	var hook func() error
	if s.provider.ValidateClientAuthentication != nil {
		hook = func() error { return s.provider.ValidateClientAuthentication(c) }
	}
	if err := s.decide(ctx, CheckpointClientAuthentication, &c.Decision, protocol.ErrorInvalidClient, hook); err != nil {
		return "", err
	}
	return c.ClientID, nil
}

// issue protects t through the serialization event and returns the token.
// Presenters are set to the client the token is issued to.
func (s *Server) issue(ctx context.Context, kind core.TokenType, req, resp *protocol.Message, t *ticket.Ticket, clientID string, format dataformat.DataFormat) (string, error) {
	ctx, span := s.tracer.StartSpan(ctx, "oidc.serialize."+string(kind))
	defer span.End()

	t.SetTokenUsage(string(kind))
	sc := core.NewSerializationContext(ctx, s.options, kind, req, resp, t, format)
	if clientID != "" {
		sc.SetPresenters([]string{clientID})
	}

	if s.provider.SerializeToken != nil {
		if err := s.provider.SerializeToken(sc); err != nil {
			span.RecordError(err)
			return "", protocol.AsError(err)
		}
	}

	token, err := sc.Serialize()
	if err != nil || token == "" {
		span.RecordError(err)
		if s.logger != nil {
			s.logger.Error("failed to serialize token",
				"kind", string(kind),
				"error", err)
		}
		return "", &protocol.Error{
			Code:        protocol.ErrorServerError,
			Description: fmt.Sprintf("The %s could not be issued.", strings.ReplaceAll(string(kind), "_", " ")),
			Cause:       err,
		}
	}

	s.metrics.IncCounter(MetricTokensIssued, map[string]string{"kind": string(kind)})
	return token, nil
}

// resolve turns token back into a ticket through the deserialization event.
// A nil ticket with a nil error means the token is not valid; an error is
// only returned when the deserialization hook failed.
func (s *Server) resolve(ctx context.Context, kind core.TokenType, req, resp *protocol.Message, token string, format dataformat.DataFormat) (*ticket.Ticket, error) {
	ctx, span := s.tracer.StartSpan(ctx, "oidc.deserialize."+string(kind))
	defer span.End()

	dc := core.NewDeserializationContext(ctx, s.options, kind, req, resp, token, format)
	if s.provider.DeserializeToken != nil {
		if err := s.provider.DeserializeToken(dc); err != nil {
			span.RecordError(err)
			return nil, protocol.AsError(err)
		}
	}

	t, err := dc.Deserialize()
	if err != nil {
		if s.logger != nil {
			s.logger.Debug("token could not be deserialized",
				"kind", string(kind),
				"error", err)
		}
		return nil, nil
	}
	if t == nil {
		return nil, nil
	}
	if usage := t.TokenUsage(); usage != "" && usage != string(kind) {
		if s.logger != nil {
			s.logger.Warn("token presented with the wrong usage",
				"expected", string(kind),
				"actual", usage)
		}
		return nil, nil
	}
	return t, nil
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	s.errorHandler(w, r, err)
}
