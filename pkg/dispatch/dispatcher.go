package dispatch

import (
	"time"

	"github.com/chronodb/nodecore/pkg/events"
	"github.com/chronodb/nodecore/pkg/metrics"
	"github.com/chronodb/nodecore/pkg/types"
)

// Dispatcher routes one incoming message to the role wrapper registered
// for its MsgType, mirroring dndProcessNodeMsg's lookup-acquire-invoke-
// release sequence.
type Dispatcher struct {
	node *Node
}

func NewDispatcher(n *Node) *Dispatcher {
	return &Dispatcher{node: n}
}

// Route dispatches one message, returning the handler's response payload.
func (d *Dispatcher) Route(msgType types.MsgType, shard types.ShardID, payload []byte) (rsp []byte, err error) {
	start := time.Now()
	defer func() {
		metrics.DispatchDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.DispatchErrorsTotal.WithLabelValues(string(types.CodeOf(err))).Inc()
		}
	}()

	if d.node.stopping() {
		d.node.publishEvent(events.EventDispatchRejected, "", "node is stopping")
		return nil, types.NewError(types.ErrNodeStopping, "node is stopping")
	}

	kind, ok := d.node.routes[msgType]
	if !ok {
		return nil, types.NewError(types.ErrInvalidMsgType, "no route for "+string(msgType))
	}

	w, ok := d.node.wrappers[kind]
	if !ok {
		return nil, types.NewError(types.ErrInvalidMsgType, "no wrapper deployed for "+string(kind))
	}
	shard = w.ShardFor(msgType, shard)

	// In parent mode, non-dnode roles run in a child process reached over
	// the shared-memory channel; the dnode role itself is always handled
	// in-process since it owns the dispatcher.
	if d.node.ProcMode == types.ProcessParent && kind != types.RoleDnode {
		if d.node.forwarder == nil {
			return nil, types.NewError(types.ErrInvalidMsgType, "no child forwarder configured for "+string(kind))
		}
		if err := w.Mark(); err != nil {
			return nil, err
		}
		defer w.Release()
		return d.node.forwarder.Forward(kind, msgType, shard, payload)
	}

	if err := w.Mark(); err != nil {
		return nil, err
	}
	defer w.Release()

	handler, ok := w.Handler(msgType)
	if !ok {
		return nil, types.NewError(types.ErrInvalidMsgType, "no handler for "+string(msgType))
	}

	return handler(w, shard, payload)
}
