package transport

import (
	"context"
	"net"

	"google.golang.org/grpc"

	"github.com/chronodb/nodecore/pkg/dispatch"
	"github.com/chronodb/nodecore/pkg/log"
	"github.com/chronodb/nodecore/pkg/types"
)

// Server listens for envelopes from peer nodes and routes each through a
// dispatch.Dispatcher, the network-facing counterpart to the in-process
// shm forwarder used between a parent and its child role processes.
type Server struct {
	grpcServer *grpc.Server
	dispatcher *dispatch.Dispatcher
}

// NewServer wraps dispatcher behind a gRPC listener. Credentials are left
// to the caller via opts (insecure.NewCredentials() for loopback/testing,
// credentials.NewTLS(...) for a real deployment); nodecore does not bundle
// its own PKI the way the teacher's pkg/security does, since that is
// cluster-membership machinery out of scope here.
func NewServer(dispatcher *dispatch.Dispatcher, opts ...grpc.ServerOption) *Server {
	s := &Server{dispatcher: dispatcher}
	s.grpcServer = grpc.NewServer(opts...)

	route := RouteFunc(func(ctx context.Context, msgType types.MsgType, shard types.ShardID, payload []byte) ([]byte, error) {
		return dispatcher.Route(msgType, shard, payload)
	})
	s.grpcServer.RegisterService(&serviceDesc, route)

	return s
}

// Serve blocks accepting connections on lis until the server is stopped.
func (s *Server) Serve(lis net.Listener) error {
	logger := log.WithComponent("transport")
	logger.Info().Str("addr", lis.Addr().String()).Msg("transport server listening")
	return s.grpcServer.Serve(lis)
}

// Stop gracefully shuts down the gRPC server.
func (s *Server) Stop() {
	s.grpcServer.GracefulStop()
}
