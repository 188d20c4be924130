/*
Package oidc holds the OpenID Connect discovery document published by the
server and the client side used to fetch the document of a running server.

# Publishing

	meta := oidc.NewMetadata("https://auth.example.com", oidc.Endpoints{
	    Token:         "/oauth/token",
	    Introspection: "/oauth/introspect",
	    JWKS:          "/.well-known/jwks.json",
	})

Endpoint paths are joined onto the issuer URL.

# Fetching

	issuerURL, _ := url.Parse("https://auth.example.com/")
	client := &http.Client{Timeout: 10 * time.Second}

	meta, err := oidc.FetchMetadata(ctx, client, *issuerURL)
	if err != nil {
	    // network failure, non-200 status, invalid JSON, or issuer mismatch
	}

# Specification

OpenID Connect Discovery 1.0
https://openid.net/specs/openid-connect-discovery-1_0.html
*/
package oidc
