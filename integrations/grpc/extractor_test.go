package grpc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetadataTokenExtractor(t *testing.T) {
	tests := []struct {
		name      string
		ctx       context.Context
		wantToken string
		wantErr   error
	}{
		{name: "no metadata", ctx: context.Background()},
		{name: "no authorization", ctx: incoming()},
		{name: "bearer token", ctx: incoming("Bearer abc"), wantToken: "abc"},
		{name: "case-insensitive scheme", ctx: incoming("bEaReR abc"), wantToken: "abc"},
		{name: "multiple entries", ctx: incoming("Bearer a", "Bearer b"), wantErr: ErrMultipleAuthHeaders},
		{name: "missing token", ctx: incoming("Bearer"), wantErr: ErrInvalidAuthFormat},
		{name: "other scheme", ctx: incoming("Basic abc"), wantErr: ErrUnsupportedScheme},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := MetadataTokenExtractor(tt.ctx)

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantToken, token)
		})
	}
}
