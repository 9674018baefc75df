package transport

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/chronodb/nodecore/pkg/types"
	"github.com/chronodb/nodecore/pkg/wire"
)

// Client sends routed messages to one peer node over gRPC.
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to a peer's transport.Server at addr.
func Dial(addr string, opts ...grpc.DialOption) (*Client, error) {
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn}, nil
}

// Close tears down the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Route sends one message to the peer and returns its response payload,
// using grpc.Invoke directly against the hand-authored service method
// rather than a protoc-generated client stub.
func (c *Client) Route(ctx context.Context, msgType types.MsgType, shard types.ShardID, payload []byte) ([]byte, error) {
	in, err := wire.EncodeBytes(msgType, shard, payload)
	if err != nil {
		return nil, err
	}

	out := new(wrapperspb.BytesValue)
	if err := c.conn.Invoke(ctx, "/nodecore.transport.Envelope/Route", &wrapperspb.BytesValue{Value: in}, out); err != nil {
		return nil, err
	}

	envelope, err := wire.DecodeBytes(out.Value)
	if err != nil {
		return nil, err
	}
	return envelope.Payload, nil
}
