package grpc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/auth0/go-oidc-server/protocol"
)

func TestDefaultErrorHandler(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    codes.Code
		wantMessage string
	}{
		{
			name:        "invalid token",
			err:         protocol.NewError(protocol.ErrorInvalidToken, "The access token has expired."),
			wantCode:    codes.Unauthenticated,
			wantMessage: "The access token has expired.",
		},
		{
			name:        "insufficient scope",
			err:         protocol.NewError(protocol.ErrorInsufficientScope, ""),
			wantCode:    codes.PermissionDenied,
			wantMessage: protocol.ErrorInsufficientScope,
		},
		{
			name:     "access denied",
			err:      protocol.NewError(protocol.ErrorAccessDenied, "nope"),
			wantCode: codes.PermissionDenied,
		},
		{
			name:     "invalid request",
			err:      protocol.NewError(protocol.ErrorInvalidRequest, "bad metadata"),
			wantCode: codes.InvalidArgument,
		},
		{
			name:        "unknown errors are internal and hide their cause",
			err:         errors.New("redis: connection refused"),
			wantCode:    codes.Internal,
			wantMessage: "An internal error occurred while processing the request",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, ok := status.FromError(DefaultErrorHandler(tt.err))
			assert.True(t, ok)
			assert.Equal(t, tt.wantCode, st.Code())
			if tt.wantMessage != "" {
				assert.Equal(t, tt.wantMessage, st.Message())
			}
		})
	}

	assert.NoError(t, DefaultErrorHandler(nil))
}
