// Package oidcgin adapts the authorization server to the Gin framework.
//
// Mount registers the token, introspection, discovery and JWKS endpoints on
// a router; NewMiddleware protects resource routes with access tokens.
//
//	r := gin.New()
//	oidcgin.Mount(r, server)
//
//	api := r.Group("/api", oidcgin.NewMiddleware(server))
//	api.GET("/me", func(c *gin.Context) {
//	    t, _ := oidcgin.GetTicket(c, "")
//	    c.JSON(http.StatusOK, gin.H{"sub": t.Subject})
//	})
package oidcgin

import (
	"errors"

	"github.com/gin-gonic/gin"

	oidcserver "github.com/auth0/go-oidc-server"
	"github.com/auth0/go-oidc-server/core"
	"github.com/auth0/go-oidc-server/protocol"
	"github.com/auth0/go-oidc-server/ticket"
)

// DefaultTicketKey is the gin.Context key the resolved ticket is stored under.
const DefaultTicketKey = "oidc_ticket"

var (
	ErrMissingTicket = errors.New("no ticket found in context")
	ErrInvalidTicket = errors.New("invalid ticket type")
)

type middlewareConfig struct {
	errorHandler   func(*gin.Context, error)
	contextKey     string
	tokenExtractor oidcserver.TokenExtractor
}

// Mount registers the server endpoints on r at the paths configured on s.
// Empty paths are skipped.
func Mount(r gin.IRoutes, s *oidcserver.Server) {
	opts := s.Options()
	if opts.TokenPath != "" {
		r.POST(opts.TokenPath, gin.WrapH(s.TokenHandler()))
	}
	if opts.IntrospectionPath != "" {
		r.POST(opts.IntrospectionPath, gin.WrapH(s.IntrospectionHandler()))
	}
	if opts.DiscoveryPath != "" {
		r.GET(opts.DiscoveryPath, gin.WrapH(s.DiscoveryHandler()))
	}
	if opts.JWKSPath != "" {
		r.GET(opts.JWKSPath, gin.WrapH(s.JWKSHandler()))
	}
}

// NewMiddleware creates a Gin middleware that admits requests carrying an
// access token accepted by s. The resolved ticket is stored both in the
// gin.Context and in the request context.
func NewMiddleware(s *oidcserver.Server, opts ...Option) gin.HandlerFunc {
	config := &middlewareConfig{
		errorHandler:   defaultErrorHandler,
		contextKey:     DefaultTicketKey,
		tokenExtractor: oidcserver.AuthHeaderTokenExtractor,
	}

	for _, opt := range opts {
		opt(config)
	}

	return func(c *gin.Context) {
		token, err := config.tokenExtractor(c.Request)
		if err != nil {
			config.errorHandler(c, oidcserver.MalformedAccessTokenError(err))
			c.Abort()
			return
		}

		req := protocol.NewMessage().Set(protocol.ParamAccessToken, token)
		t, err := s.AuthenticateAccessToken(c.Request.Context(), req)
		if err != nil {
			config.errorHandler(c, err)
			c.Abort()
			return
		}

		c.Request = c.Request.Clone(core.SetTicket(c.Request.Context(), t))
		c.Set(config.contextKey, t)
		c.Next()
	}
}

func defaultErrorHandler(c *gin.Context, err error) {
	oidcserver.DefaultErrorHandler(c.Writer, c.Request, err)
}

// GetTicket returns the ticket stored by NewMiddleware under contextKey, or
// DefaultTicketKey when contextKey is empty.
func GetTicket(c *gin.Context, contextKey string) (*ticket.Ticket, error) {
	if contextKey == "" {
		contextKey = DefaultTicketKey
	}
	value, exists := c.Get(contextKey)
	if !exists {
		return nil, ErrMissingTicket
	}

	t, ok := value.(*ticket.Ticket)
	if !ok {
		return nil, ErrInvalidTicket
	}

	return t, nil
}
