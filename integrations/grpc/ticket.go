package grpc

import (
	"context"

	"github.com/auth0/go-oidc-server/core"
	"github.com/auth0/go-oidc-server/ticket"
)

// GetTicket retrieves the ticket stored by the interceptors.
//
// Example:
//
//	t, err := oidcgrpc.GetTicket(ctx)
//	if err != nil {
//	    return nil, status.Error(codes.Internal, "failed to get ticket")
//	}
//	fmt.Println(t.Subject)
func GetTicket(ctx context.Context) (*ticket.Ticket, error) {
	return core.GetTicket(ctx)
}

// MustGetTicket retrieves the ticket from the context or panics.
// Use only when you are certain the interceptor has run.
func MustGetTicket(ctx context.Context) *ticket.Ticket {
	t, err := core.GetTicket(ctx)
	if err != nil {
		panic(err)
	}
	return t
}

// HasTicket checks if a ticket exists in the context.
func HasTicket(ctx context.Context) bool {
	return core.HasTicket(ctx)
}
