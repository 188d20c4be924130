package oidc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
)

// WellKnownPath is where the discovery document is served, relative to the
// issuer.
const WellKnownPath = ".well-known/openid-configuration"

// Metadata is the subset of the OpenID Provider Metadata the server
// publishes.
type Metadata struct {
	Issuer                                     string   `json:"issuer"`
	TokenEndpoint                              string   `json:"token_endpoint,omitempty"`
	IntrospectionEndpoint                      string   `json:"introspection_endpoint,omitempty"`
	JWKSURI                                    string   `json:"jwks_uri,omitempty"`
	GrantTypesSupported                        []string `json:"grant_types_supported,omitempty"`
	ResponseTypesSupported                     []string `json:"response_types_supported"`
	SubjectTypesSupported                      []string `json:"subject_types_supported"`
	ScopesSupported                            []string `json:"scopes_supported,omitempty"`
	TokenEndpointAuthMethodsSupported          []string `json:"token_endpoint_auth_methods_supported,omitempty"`
	IntrospectionEndpointAuthMethodsSupported  []string `json:"introspection_endpoint_auth_methods_supported,omitempty"`
	IDTokenSigningAlgValuesSupported           []string `json:"id_token_signing_alg_values_supported"`
	TokenEndpointAuthSigningAlgValuesSupported []string `json:"token_endpoint_auth_signing_alg_values_supported,omitempty"`
}

// Endpoints are endpoint paths relative to the issuer. Empty paths are left
// out of the document.
type Endpoints struct {
	Token         string
	Introspection string
	JWKS          string
}

// NewMetadata builds the document for issuer.
func NewMetadata(issuer string, endpoints Endpoints) *Metadata {
	return &Metadata{
		Issuer:                 issuer,
		TokenEndpoint:          resolve(issuer, endpoints.Token),
		IntrospectionEndpoint:  resolve(issuer, endpoints.Introspection),
		JWKSURI:                resolve(issuer, endpoints.JWKS),
		ResponseTypesSupported: []string{"code"},
		SubjectTypesSupported:  []string{"public"},
		// Required by the discovery specification even without ID tokens.
		IDTokenSigningAlgValuesSupported: []string{"RS256"},
	}
}

func resolve(issuer, endpoint string) string {
	if endpoint == "" {
		return ""
	}
	return strings.TrimSuffix(issuer, "/") + "/" + strings.TrimPrefix(endpoint, "/")
}

// FetchMetadata gets the discovery document of the server at issuerURL and
// checks that it names the same issuer.
func FetchMetadata(ctx context.Context, client *http.Client, issuerURL url.URL) (*Metadata, error) {
	if client == nil {
		client = http.DefaultClient
	}
	expectedIssuer := issuerURL.String()
	issuerURL.Path = path.Join(issuerURL.Path, WellKnownPath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, issuerURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("could not build request to get discovery document: %w", err)
	}

	r, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not get discovery document from url %s: %w", issuerURL.String(), err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, r.Body)
		_ = r.Body.Close()
	}()

	if r.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d from %s", r.StatusCode, issuerURL.String())
	}

	var meta Metadata
	if err := json.NewDecoder(r.Body).Decode(&meta); err != nil {
		return nil, fmt.Errorf("could not decode json body when getting discovery document: %w", err)
	}
	if meta.Issuer == "" {
		return nil, fmt.Errorf("discovery document from %s has no issuer", issuerURL.String())
	}
	if strings.TrimSuffix(meta.Issuer, "/") != strings.TrimSuffix(expectedIssuer, "/") {
		return nil, fmt.Errorf("discovery document issuer %q does not match %q", meta.Issuer, expectedIssuer)
	}

	return &meta, nil
}
