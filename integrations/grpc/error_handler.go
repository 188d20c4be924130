package grpc

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/auth0/go-oidc-server/protocol"
)

// ErrorHandler converts authentication errors to gRPC status errors.
type ErrorHandler func(error) error

// DefaultErrorHandler maps OAuth2 errors to gRPC status codes. The status
// message is the error description; causes are never exposed.
func DefaultErrorHandler(err error) error {
	if err == nil {
		return nil
	}

	pe := protocol.AsError(err)
	message := pe.Description
	if message == "" {
		message = pe.Code
	}

	switch pe.Code {
	case protocol.ErrorInvalidToken:
		return status.Error(codes.Unauthenticated, message)
	case protocol.ErrorInsufficientScope, protocol.ErrorAccessDenied:
		return status.Error(codes.PermissionDenied, message)
	case protocol.ErrorServerError:
		return status.Error(codes.Internal, message)
	default:
		return status.Error(codes.InvalidArgument, message)
	}
}
