package protocol

import (
	"errors"
	"net/http"
)

// OAuth2 and OpenID Connect error codes (RFC 6749 §5.2, RFC 6750 §3.1).
const (
	ErrorInvalidRequest       = "invalid_request"
	ErrorInvalidClient        = "invalid_client"
	ErrorInvalidGrant         = "invalid_grant"
	ErrorUnauthorizedClient   = "unauthorized_client"
	ErrorUnsupportedGrantType = "unsupported_grant_type"
	ErrorInvalidScope         = "invalid_scope"
	ErrorInvalidToken         = "invalid_token"
	ErrorInsufficientScope    = "insufficient_scope"
	ErrorAccessDenied         = "access_denied"
	ErrorServerError          = "server_error"
)

// SchemeBearer is the RFC 6750 authentication scheme used in
// WWW-Authenticate challenges for protected resource errors.
const SchemeBearer = "Bearer"

// ErrProtocol is matched by every *Error through errors.Is.
var ErrProtocol = errors.New("oauth2 protocol error")

// Error is an OAuth2 error response. It is data, not a fault: the error
// handler writes it verbatim into the error, error_description and error_uri
// parameters.
type Error struct {
	Code        string
	Description string
	URI         string

	// Status overrides the HTTP status chosen from Code when non-zero.
	Status int

	// Challenge is the authentication scheme the error handler answers with
	// in WWW-Authenticate. invalid_token and insufficient_scope always get a
	// Bearer challenge.
	Challenge string

	// Cause is the underlying failure, never sent to the client.
	Cause error
}

// NewError creates an Error with the given code and description.
func NewError(code, description string) *Error {
	return &Error{Code: code, Description: description}
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Code
	if e.Description != "" {
		msg += ": " + e.Description
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is allows the error to be compared with ErrProtocol.
func (e *Error) Is(target error) bool {
	return target == ErrProtocol
}

// WithCause attaches an underlying error and returns e.
func (e *Error) WithCause(err error) *Error {
	e.Cause = err
	return e
}

// HTTPStatus returns the status code to answer with.
func (e *Error) HTTPStatus() int {
	if e.Status != 0 {
		return e.Status
	}
	switch e.Code {
	case ErrorInvalidClient, ErrorInvalidToken:
		return http.StatusUnauthorized
	case ErrorInsufficientScope, ErrorAccessDenied:
		return http.StatusForbidden
	case ErrorServerError:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// AsError extracts an *Error from err. Non-protocol errors become a
// server_error that keeps err as its cause.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}
	return &Error{
		Code:        ErrorServerError,
		Description: "An internal error occurred while processing the request",
		Cause:       err,
	}
}
