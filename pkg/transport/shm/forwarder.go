// Package shm provides the in-process forwarder used when a node runs in
// ProcessMode Parent/Child/Test: instead of a real fork plus a shared
// memory segment, each child role's dispatcher is reached through an
// unbuffered request channel plus a per-call response channel, giving the same
// one-call-in-flight-at-a-time handoff shape a real shm ring buffer would
// without needing an actual second process for tests or for ProcessSingle
// deployments that still want to exercise the Parent/Child code paths.
package shm

import (
	"context"

	"github.com/chronodb/nodecore/pkg/dispatch"
	"github.com/chronodb/nodecore/pkg/types"
)

type call struct {
	msgType types.MsgType
	shard   types.ShardID
	payload []byte
	resp    chan result
}

type result struct {
	payload []byte
	err     error
}

// Channel is one child role's request queue, serviced by a goroutine that
// drives the child's own Dispatcher.
type Channel struct {
	calls chan call
	done  chan struct{}
}

// NewChannel starts servicing calls against dispatcher until Close.
func NewChannel(dispatcher *dispatch.Dispatcher) *Channel {
	c := &Channel{
		calls: make(chan call),
		done:  make(chan struct{}),
	}
	go c.serve(dispatcher)
	return c
}

func (c *Channel) serve(dispatcher *dispatch.Dispatcher) {
	for {
		select {
		case call := <-c.calls:
			payload, err := dispatcher.Route(call.msgType, call.shard, call.payload)
			call.resp <- result{payload: payload, err: err}
		case <-c.done:
			return
		}
	}
}

// Close stops the channel's servicing goroutine.
func (c *Channel) Close() {
	close(c.done)
}

// Forwarder routes a parent's ChildForwarder calls to the right child
// Channel by RoleKind.
type Forwarder struct {
	channels map[types.RoleKind]*Channel
}

// NewForwarder builds an empty Forwarder; channels are attached with
// Register before any Forward call targets them.
func NewForwarder() *Forwarder {
	return &Forwarder{channels: make(map[types.RoleKind]*Channel)}
}

// Register attaches a child role's Channel under kind.
func (f *Forwarder) Register(kind types.RoleKind, ch *Channel) {
	f.channels[kind] = ch
}

var _ dispatch.ChildForwarder = (*Forwarder)(nil)

// Forward implements dispatch.ChildForwarder.
func (f *Forwarder) Forward(kind types.RoleKind, msgType types.MsgType, shard types.ShardID, payload []byte) ([]byte, error) {
	ch, ok := f.channels[kind]
	if !ok {
		return nil, types.NewError(types.ErrInvalidMsgType, "no child channel registered for "+string(kind))
	}

	resp := make(chan result, 1)
	ch.calls <- call{msgType: msgType, shard: shard, payload: payload, resp: resp}

	r := <-resp
	return r.payload, r.err
}

// ForwardContext is the context-aware form used when the caller wants to
// bound how long it waits for the child to answer.
func (f *Forwarder) ForwardContext(ctx context.Context, kind types.RoleKind, msgType types.MsgType, shard types.ShardID, payload []byte) ([]byte, error) {
	ch, ok := f.channels[kind]
	if !ok {
		return nil, types.NewError(types.ErrInvalidMsgType, "no child channel registered for "+string(kind))
	}

	resp := make(chan result, 1)
	select {
	case ch.calls <- call{msgType: msgType, shard: shard, payload: payload, resp: resp}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case r := <-resp:
		return r.payload, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
