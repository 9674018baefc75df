// Package transport carries routed messages between nodes over gRPC. It
// does not use protoc-generated stubs: the wire message is the envelope
// framing pkg/wire already defines, carried inside a single
// wrapperspb.BytesValue so the gRPC layer only ever marshals one message
// type, and the service method is wired up by hand with a grpc.ServiceDesc
// instead of a .proto-generated one. This is the same approach the teacher
// takes to keep its own manager<->worker RPCs (pkg/api, pkg/client) free of
// a build-time protoc step, generalized from one fixed RPC surface to a
// single generic Route call.
package transport

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/chronodb/nodecore/pkg/types"
	"github.com/chronodb/nodecore/pkg/wire"
)

// RouteFunc handles one decoded envelope and returns the response payload.
type RouteFunc func(ctx context.Context, msgType types.MsgType, shard types.ShardID, payload []byte) ([]byte, error)

func routeHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}

	handle := func(ctx context.Context, req interface{}) (interface{}, error) {
		env := req.(*wrapperspb.BytesValue)
		envelope, err := wire.DecodeBytes(env.Value)
		if err != nil {
			return nil, err
		}

		fn := srv.(RouteFunc)
		rsp, err := fn(ctx, envelope.MsgType, types.ShardID(envelope.Shard), envelope.Payload)
		if err != nil {
			return nil, err
		}

		out, err := wire.EncodeBytes(envelope.MsgType, envelope.Shard, rsp)
		if err != nil {
			return nil, err
		}
		return &wrapperspb.BytesValue{Value: out}, nil
	}

	if interceptor == nil {
		return handle(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/nodecore.transport.Envelope/Route"}
	return interceptor(ctx, in, info, handle)
}

// serviceDesc is the hand-authored equivalent of what protoc would emit
// for a one-RPC "Envelope" service; RouteFunc itself is registered as the
// server implementation, since there is no generated interface to satisfy.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: "nodecore.transport.Envelope",
	HandlerType: (*RouteFunc)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Route", Handler: routeHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "pkg/transport/service.go",
}
