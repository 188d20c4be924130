package oidcecho

import (
	"github.com/labstack/echo/v4"

	oidcserver "github.com/auth0/go-oidc-server"
)

// Option is a function that configures the middleware
type Option func(*middlewareConfig)

// WithErrorHandler sets a custom error handler. Its return value is returned
// from the middleware, so returning an echo.HTTPError hands the failure to
// the Echo error handler.
func WithErrorHandler(handler func(echo.Context, error) error) Option {
	return func(config *middlewareConfig) {
		config.errorHandler = handler
	}
}

// WithContextKey sets a custom context key to store the ticket
func WithContextKey(key string) Option {
	return func(config *middlewareConfig) {
		config.contextKey = key
	}
}

// WithTokenExtractor sets a custom token extractor
func WithTokenExtractor(extractor oidcserver.TokenExtractor) Option {
	return func(config *middlewareConfig) {
		config.tokenExtractor = extractor
	}
}
