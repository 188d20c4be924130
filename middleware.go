package oidcserver

import (
	"context"
	"fmt"
	"net/http"

	"github.com/auth0/go-oidc-server/core"
	"github.com/auth0/go-oidc-server/protocol"
	"github.com/auth0/go-oidc-server/ticket"
)

// CheckAccessToken is the resource server middleware. It is passed a
// http.Handler which will be called if the request carries a valid access
// token; the resolved ticket is then available through GetTicket.
func (s *Server) CheckAccessToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.logger != nil {
			s.logger.Debug("extracting access token from request",
				"method", r.Method,
				"path", r.URL.Path)
		}

		token, err := s.tokenExtractor(r)
		if err != nil {
			if s.logger != nil {
				s.logger.Error("failed to extract token from request",
					"error", err,
					"method", r.Method,
					"path", r.URL.Path)
			}
			s.fail(w, r, MalformedAccessTokenError(fmt.Errorf("error extracting token: %w", err)))
			return
		}

		req := protocol.NewMessage().Set(protocol.ParamAccessToken, token)
		t, err := s.AuthenticateAccessToken(r.Context(), req)
		if err != nil {
			if s.logger != nil {
				s.logger.Warn("access token validation failed",
					"error", err,
					"method", r.Method,
					"path", r.URL.Path)
			}
			s.fail(w, r, err)
			return
		}

		if s.logger != nil {
			s.logger.Debug("access token validation successful, setting ticket in context")
		}
		r = r.Clone(core.SetTicket(r.Context(), t))
		next.ServeHTTP(w, r)
	})
}

// MalformedAccessTokenError is the invalid_request error returned when the
// access token cannot be extracted from a request. It carries a Bearer
// challenge so DefaultErrorHandler sets WWW-Authenticate.
func MalformedAccessTokenError(cause error) *protocol.Error {
	return &protocol.Error{
		Code:        protocol.ErrorInvalidRequest,
		Description: "The access token is malformed.",
		Status:      http.StatusBadRequest,
		Challenge:   protocol.SchemeBearer,
		Cause:       cause,
	}
}

// AuthenticateAccessToken resolves the access_token parameter of req and
// runs the access token checkpoint. Transport adapters that are not plain
// net/http, such as the gRPC interceptors, call it directly.
func (s *Server) AuthenticateAccessToken(ctx context.Context, req *protocol.Message) (*ticket.Ticket, error) {
	ctx, span := s.tracer.StartSpan(ctx, "oidc.access_token")
	defer span.End()

	token := req.Get(protocol.ParamAccessToken)
	if token == "" {
		return nil, protocol.NewError(protocol.ErrorInvalidToken, "The access token is missing.")
	}

	t, err := s.resolve(ctx, core.AccessToken, req, protocol.NewMessage(), token, s.options.AccessTokenFormat)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if t == nil {
		return nil, protocol.NewError(protocol.ErrorInvalidToken, "The access token is invalid.")
	}
	if t.IsExpired(s.options.Now()) {
		return nil, protocol.NewError(protocol.ErrorInvalidToken, "The access token has expired.")
	}

	c := &ValidateAccessTokenContext{
		ValidatingContext: core.NewValidatingContext(ctx, s.options),
		Request:           req,
		Ticket:            t,
	}
	var hook func() error
	if s.provider.ValidateAccessToken != nil {
		hook = func() error { return s.provider.ValidateAccessToken(c) }
	} else if s.acceptByDefault() {
		c.Accept()
	}
	if err := s.decide(ctx, CheckpointAccessToken, &c.Decision, protocol.ErrorInvalidToken, hook); err != nil {
		return nil, err
	}
	if c.Ticket == nil {
		return nil, protocol.NewError(protocol.ErrorInvalidToken, "The access token is invalid.")
	}
	return c.Ticket, nil
}
