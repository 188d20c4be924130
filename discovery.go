package oidcserver

import (
	"encoding/json"
	"net/http"

	"github.com/auth0/go-oidc-server/internal/oidc"
	"github.com/auth0/go-oidc-server/protocol"
)

// DiscoveryHandler serves the OpenID Connect discovery document.
func (s *Server) DiscoveryHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			s.fail(w, r, &protocol.Error{
				Code:        protocol.ErrorInvalidRequest,
				Description: "The request must use the GET method.",
				Status:      http.StatusMethodNotAllowed,
			})
			return
		}

		w.Header().Set("Content-Type", "application/json;charset=UTF-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		_ = json.NewEncoder(w).Encode(s.Metadata())
	})
}

// Metadata returns the discovery document describing this server.
func (s *Server) Metadata() *oidc.Metadata {
	meta := oidc.NewMetadata(s.options.Issuer, oidc.Endpoints{
		Token:         s.options.TokenPath,
		Introspection: s.options.IntrospectionPath,
		JWKS:          s.options.JWKSPath,
	})
	meta.GrantTypesSupported = []string{protocol.GrantTypeClientCredentials, protocol.GrantTypeRefreshToken}
	meta.ScopesSupported = []string{protocol.ScopeOpenID, protocol.ScopeOfflineAccess}
	meta.TokenEndpointAuthMethodsSupported = []string{AuthMethodClientSecretBasic, AuthMethodClientSecretPost}
	meta.IntrospectionEndpointAuthMethodsSupported = meta.TokenEndpointAuthMethodsSupported

	var algs []string
	for i := 0; i < s.publicKeys.Len(); i++ {
		key, _ := s.publicKeys.Key(i)
		if alg := key.Algorithm().String(); alg != "" {
			algs = append(algs, alg)
		}
	}
	if len(algs) > 0 {
		meta.IDTokenSigningAlgValuesSupported = algs
	}
	return meta
}

// JWKSHandler serves the public keys verifying issued tokens.
func (s *Server) JWKSHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := json.Marshal(s.publicKeys)
		if err != nil {
			if s.logger != nil {
				s.logger.Error("failed to encode public keys", "error", err)
			}
			s.fail(w, r, err)
			return
		}

		w.Header().Set("Content-Type", "application/jwk-set+json")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		_, _ = w.Write(raw)
	})
}
