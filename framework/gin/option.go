package oidcgin

import (
	"github.com/gin-gonic/gin"

	oidcserver "github.com/auth0/go-oidc-server"
)

// Option defines a functional option for configuring the middleware.
type Option func(*middlewareConfig)

// WithErrorHandler sets a custom error handler for the middleware. The
// middleware aborts the chain after it returns.
func WithErrorHandler(handler func(*gin.Context, error)) Option {
	return func(config *middlewareConfig) {
		config.errorHandler = handler
	}
}

// WithContextKey sets the gin.Context key the ticket is stored under.
func WithContextKey(key string) Option {
	return func(config *middlewareConfig) {
		config.contextKey = key
	}
}

// WithTokenExtractor sets a custom token extractor.
func WithTokenExtractor(extractor oidcserver.TokenExtractor) Option {
	return func(config *middlewareConfig) {
		config.tokenExtractor = extractor
	}
}
