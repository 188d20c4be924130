package oidcserver

import (
	"context"
	"net/http"
	"strings"

	"github.com/auth0/go-oidc-server/core"
	"github.com/auth0/go-oidc-server/dataformat"
	"github.com/auth0/go-oidc-server/protocol"
	"github.com/auth0/go-oidc-server/ticket"
)

// IntrospectionResponse is the RFC 7662 §2.2 response. Only Active is set
// for tokens that are invalid, expired, or not visible to the caller.
type IntrospectionResponse struct {
	Active    bool     `json:"active"`
	Scope     string   `json:"scope,omitempty"`
	ClientID  string   `json:"client_id,omitempty"`
	TokenType string   `json:"token_type,omitempty"`
	ExpiresAt int64    `json:"exp,omitempty"`
	IssuedAt  int64    `json:"iat,omitempty"`
	Subject   string   `json:"sub,omitempty"`
	Audience  []string `json:"aud,omitempty"`
	Issuer    string   `json:"iss,omitempty"`
	TokenID   string   `json:"jti,omitempty"`
}

// IntrospectionHandler serves the token introspection endpoint (RFC 7662).
func (s *Server) IntrospectionHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := s.tracer.StartSpan(r.Context(), "oidc.introspection")
		defer span.End()

		req, err := parsePostForm(r)
		if err != nil {
			span.RecordError(err)
			s.fail(w, r, err)
			return
		}

		resp, err := s.handleIntrospectionRequest(ctx, r, req)
		if err != nil {
			span.RecordError(err)
			if s.logger != nil {
				s.logger.Warn("introspection request rejected", "error", err)
			}
			s.fail(w, r, err)
			return
		}

		span.SetTag("active", resp.Active)
		writeJSON(w, http.StatusOK, resp)
	})
}

func (s *Server) handleIntrospectionRequest(ctx context.Context, r *http.Request, req *protocol.Message) (*IntrospectionResponse, error) {
	if req.Token() == "" {
		return nil, protocol.NewError(protocol.ErrorInvalidRequest, "The mandatory 'token' parameter is missing.")
	}

	clientID, err := s.authenticateClient(ctx, r, req)
	if err != nil {
		return nil, err
	}

	c := &ValidateIntrospectionRequestContext{
		ValidatingContext: core.NewValidatingContext(ctx, s.options),
		Request:           req,
		ClientID:          clientID,
		Token:             req.Token(),
		TokenTypeHint:     req.TokenTypeHint(),
	}
	var hook func() error
	if s.provider.ValidateIntrospectionRequest != nil {
		hook = func() error { return s.provider.ValidateIntrospectionRequest(c) }
	} else if s.acceptByDefault() {
		c.Accept()
	}
	if err := s.decide(ctx, CheckpointIntrospectionRequest, &c.Decision, protocol.ErrorInvalidRequest, hook); err != nil {
		return nil, err
	}

	resp := protocol.NewMessage()
	t, kind, err := s.resolveAny(ctx, req, resp, c.Token, c.TokenTypeHint)
	if err != nil {
		return nil, err
	}

	inactive := &IntrospectionResponse{Active: false}
	switch {
	case t == nil:
		return inactive, nil
	case t.IsExpired(s.options.Now()):
		return inactive, nil
	case !visibleTo(t, clientID):
		if s.logger != nil {
			s.logger.Debug("introspected token is not visible to the caller",
				"client_id", clientID)
		}
		return inactive, nil
	}

	out := &IntrospectionResponse{
		Active:   true,
		Scope:    strings.Join(t.Scopes(), " "),
		Subject:  t.Subject,
		Audience: t.Audiences(),
		Issuer:   s.options.Issuer,
		TokenID:  t.TicketID(),
	}
	if presenters := t.Presenters(); len(presenters) > 0 {
		out.ClientID = presenters[0]
	}
	if kind == core.AccessToken {
		out.TokenType = "Bearer"
	}
	if !t.ExpiresAt.IsZero() {
		out.ExpiresAt = t.ExpiresAt.Unix()
	}
	if !t.IssuedAt.IsZero() {
		out.IssuedAt = t.IssuedAt.Unix()
	}
	return out, nil
}

// resolveAny tries the access and refresh token formats in the order
// suggested by hint. Introspection never consumes single-use tokens.
func (s *Server) resolveAny(ctx context.Context, req, resp *protocol.Message, token, hint string) (*ticket.Ticket, core.TokenType, error) {
	order := []core.TokenType{core.AccessToken, core.RefreshToken}
	if hint == protocol.ParamRefreshToken {
		order = []core.TokenType{core.RefreshToken, core.AccessToken}
	}

	for _, kind := range order {
		format := s.options.AccessTokenFormat
		if kind == core.RefreshToken {
			format = s.options.RefreshTokenFormat
		}
		t, err := s.resolve(ctx, kind, req, resp, token, dataformat.ReadOnly(format))
		if err != nil {
			return nil, "", err
		}
		if t != nil {
			return t, kind, nil
		}
	}
	return nil, "", nil
}

// visibleTo reports whether clientID may learn about t: it must be one of
// its presenters or audiences when the ticket names any.
func visibleTo(t *ticket.Ticket, clientID string) bool {
	if len(t.Presenters()) == 0 && len(t.Audiences()) == 0 {
		return true
	}
	return t.HasPresenter(clientID) || t.HasAudience(clientID)
}
