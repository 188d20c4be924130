package oidcserver

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/auth0/go-oidc-server/core"
	"github.com/auth0/go-oidc-server/dataformat"
	"github.com/auth0/go-oidc-server/protocol"
	"github.com/auth0/go-oidc-server/ticket"
)

// TokenResponse is the successful token endpoint response (RFC 6749 §5.1).
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// TokenHandler serves the token endpoint. It supports the refresh_token and
// client_credentials grants.
func (s *Server) TokenHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx, span := s.tracer.StartSpan(r.Context(), "oidc.token")
		defer span.End()

		req, err := parsePostForm(r)
		if err != nil {
			span.RecordError(err)
			s.fail(w, r, err)
			return
		}
		span.SetTag("grant_type", req.GrantType())

		resp, err := s.handleTokenRequest(ctx, r, req)
		s.metrics.ObserveHistogram(MetricTokenEndpointDuration, time.Since(start).Seconds(), map[string]string{
			"grant_type": grantTypeLabel(req.GrantType()),
			"outcome":    outcomeLabel(err),
		})
		if err != nil {
			span.RecordError(err)
			if s.logger != nil {
				s.logger.Warn("token request rejected",
					"grant_type", req.GrantType(),
					"error", err)
			}
			s.fail(w, r, err)
			return
		}

		if s.logger != nil {
			s.logger.Debug("token request succeeded",
				"grant_type", req.GrantType())
		}
		writeJSON(w, http.StatusOK, resp)
	})
}

func (s *Server) handleTokenRequest(ctx context.Context, r *http.Request, req *protocol.Message) (*TokenResponse, error) {
	switch grantType := req.GrantType(); {
	case grantType == "":
		return nil, protocol.NewError(protocol.ErrorInvalidRequest, "The mandatory 'grant_type' parameter is missing.")
	case !req.IsRefreshTokenGrant() && !req.IsClientCredentialsGrant():
		return nil, protocol.NewError(protocol.ErrorUnsupportedGrantType, "The specified 'grant_type' parameter is not supported.")
	}

	if req.IsRefreshTokenGrant() && req.RefreshToken() == "" {
		return nil, protocol.NewError(protocol.ErrorInvalidRequest, "The mandatory 'refresh_token' parameter is missing.")
	}

	clientID, err := s.authenticateClient(ctx, r, req)
	if err != nil {
		return nil, err
	}

	resp := protocol.NewMessage()
	if req.IsRefreshTokenGrant() {
		return s.grantRefreshToken(ctx, req, resp, clientID)
	}
	return s.grantClientCredentials(ctx, req, resp, clientID)
}

func (s *Server) grantRefreshToken(ctx context.Context, req, resp *protocol.Message, clientID string) (*TokenResponse, error) {
	// the token is only consumed once every check has passed
	refreshFormat := dataformat.ReadOnly(s.options.RefreshTokenFormat)

	t, err := s.resolve(ctx, core.RefreshToken, req, resp, req.RefreshToken(), refreshFormat)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, protocol.NewError(protocol.ErrorInvalidGrant, "The specified refresh token is invalid.")
	}
	if t.IsExpired(s.options.Now()) {
		return nil, protocol.NewError(protocol.ErrorInvalidGrant, "The specified refresh token is no longer valid.")
	}
	if len(t.Presenters()) > 0 && !t.HasPresenter(clientID) {
		return nil, protocol.NewError(protocol.ErrorInvalidGrant, "The specified refresh token cannot be used by this client application.")
	}

	scopes := t.Scopes()
	if requested := req.Scopes(); len(requested) > 0 {
		for _, scope := range requested {
			if !t.HasScope(scope) {
				return nil, protocol.NewError(protocol.ErrorInvalidScope, "The specified 'scope' parameter is invalid.")
			}
		}
		scopes = requested
	}

	c := &ValidateTokenRequestContext{
		ValidatingContext: core.NewValidatingContext(ctx, s.options),
		Request:           req,
		ClientID:          clientID,
		GrantType:         req.GrantType(),
		Ticket:            t,
	}
	if err := s.validateTokenRequest(ctx, c); err != nil {
		return nil, err
	}

	access := s.newTicket(t, s.options.AccessTokenLifetime)
	access.SetScopes(scopes)
	out, err := s.issueAccessToken(ctx, req, resp, access, clientID)
	if err != nil {
		return nil, err
	}

	if s.options.RollingRefreshTokens {
		if err := s.redeem(ctx, req.RefreshToken()); err != nil {
			return nil, err
		}
		refresh := s.newTicket(t, s.options.RefreshTokenLifetime)
		if out.RefreshToken, err = s.issue(ctx, core.RefreshToken, req, resp, refresh, clientID, s.options.RefreshTokenFormat); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Server) grantClientCredentials(ctx context.Context, req, resp *protocol.Message, clientID string) (*TokenResponse, error) {
	scopes := &ValidateScopesContext{
		ValidatingContext: core.NewValidatingContext(ctx, s.options),
		Request:           req,
		ClientID:          clientID,
		Scopes:            req.Scopes(),
	}
	if err := s.validateScopes(ctx, scopes); err != nil {
		return nil, err
	}

	now := s.options.Now()
	t := ticket.New(clientID)
	t.IssuedAt = now
	t.SetScopes(scopes.Scopes)
	t.SetConfidential(true)
	if aud := req.Audience(); aud != "" {
		t.SetAudiences(strings.Fields(aud))
	}
	if res := req.Resource(); res != "" {
		t.SetResources([]string{res})
	}

	c := &GrantClientCredentialsContext{
		ValidatingContext: core.NewValidatingContext(ctx, s.options),
		Request:           req,
		ClientID:          clientID,
		Scopes:            scopes.Scopes,
		Ticket:            t,
	}
	var hook func() error
	if s.provider.GrantClientCredentials != nil {
		hook = func() error { return s.provider.GrantClientCredentials(c) }
	} else {
		c.Accept()
	}
	if err := s.decide(ctx, CheckpointClientCredentialsGrant, &c.Decision, protocol.ErrorUnauthorizedClient, hook); err != nil {
		return nil, err
	}
	if c.Ticket == nil {
		return nil, protocol.NewError(protocol.ErrorServerError, "No ticket was produced for the client credentials grant.")
	}

	tr := &ValidateTokenRequestContext{
		ValidatingContext: core.NewValidatingContext(ctx, s.options),
		Request:           req,
		ClientID:          clientID,
		GrantType:         req.GrantType(),
		Ticket:            c.Ticket,
	}
	if err := s.validateTokenRequest(ctx, tr); err != nil {
		return nil, err
	}

	access := s.newTicket(c.Ticket, s.options.AccessTokenLifetime)
	out, err := s.issueAccessToken(ctx, req, resp, access, clientID)
	if err != nil {
		return nil, err
	}

	if c.Ticket.HasScope(protocol.ScopeOfflineAccess) {
		refresh := s.newTicket(c.Ticket, s.options.RefreshTokenLifetime)
		if out.RefreshToken, err = s.issue(ctx, core.RefreshToken, req, resp, refresh, clientID, s.options.RefreshTokenFormat); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Server) validateScopes(ctx context.Context, c *ValidateScopesContext) error {
	var hook func() error
	if s.provider.ValidateScopes != nil {
		hook = func() error { return s.provider.ValidateScopes(c) }
	} else if s.acceptByDefault() {
		c.Accept()
	}
	return s.decide(ctx, CheckpointScopes, &c.Decision, protocol.ErrorInvalidScope, hook)
}

func (s *Server) validateTokenRequest(ctx context.Context, c *ValidateTokenRequestContext) error {
	var hook func() error
	if s.provider.ValidateTokenRequest != nil {
		hook = func() error { return s.provider.ValidateTokenRequest(c) }
	} else if s.acceptByDefault() {
		c.Accept()
	}
	return s.decide(ctx, CheckpointTokenRequest, &c.Decision, protocol.ErrorInvalidGrant, hook)
}

func (s *Server) issueAccessToken(ctx context.Context, req, resp *protocol.Message, t *ticket.Ticket, clientID string) (*TokenResponse, error) {
	token, err := s.issue(ctx, core.AccessToken, req, resp, t, clientID, s.options.AccessTokenFormat)
	if err != nil {
		return nil, err
	}
	return &TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(t.ExpiresAt.Sub(s.options.Now()).Round(time.Second) / time.Second),
		Scope:       strings.Join(t.Scopes(), " "),
	}, nil
}

// newTicket derives a ticket with a fresh identifier and lifetime from base.
func (s *Server) newTicket(base *ticket.Ticket, lifetime time.Duration) *ticket.Ticket {
	now := s.options.Now()
	t := base.Clone()
	t.IssuedAt = now
	t.ExpiresAt = now.Add(lifetime)
	t.SetTicketID(uuid.NewString())
	return t
}

// redeem consumes a rolled refresh token. Formats that can redeem atomically
// make a second, concurrent redemption fail with invalid_grant; otherwise the
// token is revoked on a best-effort basis.
func (s *Server) redeem(ctx context.Context, token string) error {
	redeemer, ok := s.options.RefreshTokenFormat.(dataformat.Redeemer)
	if !ok {
		s.revoke(ctx, token)
		return nil
	}

	err := redeemer.Redeem(ctx, token)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, dataformat.ErrNotFound):
		return protocol.NewError(protocol.ErrorInvalidGrant, "The specified refresh token is invalid.")
	default:
		if s.logger != nil {
			s.logger.Error("failed to redeem refresh token", "error", err)
		}
		return protocol.NewError(protocol.ErrorServerError, "The refresh token could not be redeemed.").WithCause(err)
	}
}

// revoke invalidates a redeemed refresh token when its format supports it.
func (s *Server) revoke(ctx context.Context, token string) {
	revoker, ok := s.options.RefreshTokenFormat.(dataformat.Revoker)
	if !ok {
		return
	}
	if err := revoker.Revoke(ctx, token); err != nil && s.logger != nil {
		s.logger.Warn("failed to revoke redeemed refresh token", "error", err)
	}
}

// parsePostForm reads the form-encoded body of a POST request.
func parsePostForm(r *http.Request) (*protocol.Message, error) {
	if r.Method != http.MethodPost {
		return protocol.NewMessage(), &protocol.Error{
			Code:        protocol.ErrorInvalidRequest,
			Description: "The request must use the POST method.",
			Status:      http.StatusMethodNotAllowed,
		}
	}
	if err := r.ParseForm(); err != nil {
		return protocol.NewMessage(), protocol.NewError(protocol.ErrorInvalidRequest, "The request body is malformed.").WithCause(err)
	}
	return protocol.ParseForm(r.PostForm), nil
}

func grantTypeLabel(grantType string) string {
	switch grantType {
	case protocol.GrantTypeRefreshToken, protocol.GrantTypeClientCredentials:
		return grantType
	case "":
		return "none"
	default:
		return "unsupported"
	}
}

func outcomeLabel(err error) string {
	if err == nil {
		return "success"
	}
	return protocol.AsError(err).Code
}
