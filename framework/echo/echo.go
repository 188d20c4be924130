// Package oidcecho adapts the authorization server to the Echo framework.
package oidcecho

import (
	"github.com/labstack/echo/v4"

	oidcserver "github.com/auth0/go-oidc-server"
	"github.com/auth0/go-oidc-server/core"
	"github.com/auth0/go-oidc-server/protocol"
	"github.com/auth0/go-oidc-server/ticket"
)

// DefaultTicketKey is the echo.Context key the resolved ticket is stored under.
var DefaultTicketKey = "oidc_ticket"

// middlewareConfig holds all configuration for the middleware
type middlewareConfig struct {
	errorHandler   func(echo.Context, error) error
	contextKey     string
	tokenExtractor oidcserver.TokenExtractor
}

// Mount registers the server endpoints on e at the paths configured on s.
func Mount(e *echo.Echo, s *oidcserver.Server) {
	opts := s.Options()
	if opts.TokenPath != "" {
		e.POST(opts.TokenPath, echo.WrapHandler(s.TokenHandler()))
	}
	if opts.IntrospectionPath != "" {
		e.POST(opts.IntrospectionPath, echo.WrapHandler(s.IntrospectionHandler()))
	}
	if opts.DiscoveryPath != "" {
		e.GET(opts.DiscoveryPath, echo.WrapHandler(s.DiscoveryHandler()))
	}
	if opts.JWKSPath != "" {
		e.GET(opts.JWKSPath, echo.WrapHandler(s.JWKSHandler()))
	}
}

// NewMiddleware returns an Echo middleware that admits requests carrying an
// access token accepted by s.
func NewMiddleware(s *oidcserver.Server, opts ...Option) echo.MiddlewareFunc {
	config := &middlewareConfig{
		errorHandler:   defaultErrorHandler,
		contextKey:     DefaultTicketKey,
		tokenExtractor: oidcserver.AuthHeaderTokenExtractor,
	}

	for _, opt := range opts {
		opt(config)
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, err := config.tokenExtractor(c.Request())
			if err != nil {
				return config.errorHandler(c, oidcserver.MalformedAccessTokenError(err))
			}

			req := protocol.NewMessage().Set(protocol.ParamAccessToken, token)
			t, err := s.AuthenticateAccessToken(c.Request().Context(), req)
			if err != nil {
				return config.errorHandler(c, err)
			}

			c.SetRequest(c.Request().Clone(core.SetTicket(c.Request().Context(), t)))
			c.Set(config.contextKey, t)
			return next(c)
		}
	}
}

func defaultErrorHandler(c echo.Context, err error) error {
	oidcserver.DefaultErrorHandler(c.Response(), c.Request(), err)
	return nil
}

// GetTicket extracts the ticket from the Echo context.
func GetTicket(c echo.Context, contextKey string) (*ticket.Ticket, bool) {
	if contextKey == "" {
		contextKey = DefaultTicketKey
	}
	t, ok := c.Get(contextKey).(*ticket.Ticket)
	return t, ok
}
