package oidcserver

import (
	"context"

	"github.com/auth0/go-oidc-server/core"
	"github.com/auth0/go-oidc-server/protocol"
)

// ValidateAuthorizationRequest runs the redirect URI and scopes checkpoints
// for an authorization request handled by the embedder. On success the
// redirect URI accepted by the hook is written back to req.
//
// The returned error is a *protocol.Error. Per RFC 6749 §4.1.2.1 errors
// about the redirect URI must be shown to the user rather than redirected.
func (s *Server) ValidateAuthorizationRequest(ctx context.Context, req *protocol.Message) error {
	ctx, span := s.tracer.StartSpan(ctx, "oidc.authorization")
	defer span.End()

	if req.ClientID() == "" {
		return protocol.NewError(protocol.ErrorInvalidRequest, "The mandatory 'client_id' parameter is missing.")
	}

	redirect := newValidateRedirectURIContext(ctx, s.options, req)
	var hook func() error
	if s.provider.ValidateRedirectURI != nil {
		hook = func() error { return s.provider.ValidateRedirectURI(redirect) }
	}
	if err := s.decide(ctx, CheckpointRedirectURI, &redirect.Decision, protocol.ErrorInvalidRequest, hook); err != nil {
		span.RecordError(err)
		return err
	}
	req.Set(protocol.ParamRedirectURI, redirect.RedirectURI)

	scopes := &ValidateScopesContext{
		ValidatingContext: core.NewValidatingContext(ctx, s.options),
		Request:           req,
		ClientID:          req.ClientID(),
		Scopes:            req.Scopes(),
	}
	if err := s.validateScopes(ctx, scopes); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}
