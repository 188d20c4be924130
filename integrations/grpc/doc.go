// Package grpc provides gRPC server interceptors that authenticate calls
// with access tokens issued by an oidcserver.Server.
//
// Both interceptors read a Bearer token from the "authorization" metadata,
// resolve it through Server.AuthenticateAccessToken and store the resulting
// ticket in the call context.
//
// # Basic Usage
//
//	interceptor, err := oidcgrpc.New(server,
//	    oidcgrpc.WithExcludedMethods("/grpc.health.v1.Health/Check"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	srv := grpc.NewServer(
//	    grpc.UnaryInterceptor(interceptor.UnaryServerInterceptor()),
//	    grpc.StreamInterceptor(interceptor.StreamServerInterceptor()),
//	)
//
// Handlers read the ticket with GetTicket:
//
//	func (s *service) Get(ctx context.Context, req *pb.GetRequest) (*pb.GetResponse, error) {
//	    t, err := oidcgrpc.GetTicket(ctx)
//	    if err != nil {
//	        return nil, status.Error(codes.Internal, "failed to get ticket")
//	    }
//	    ...
//	}
//
// # Error Mapping
//
// DefaultErrorHandler turns OAuth2 errors into gRPC status codes:
//
//   - invalid_token: Unauthenticated
//   - insufficient_scope, access_denied: PermissionDenied
//   - server_error: Internal
//   - anything else, such as malformed metadata: InvalidArgument
package grpc
