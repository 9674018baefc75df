// Package dispatch implements the Node and its message Dispatcher: the
// top-level container that owns one RoleWrapper per deployed RoleKind,
// routes incoming messages to the right one, and serializes role
// create/drop against a single node-wide lifecycle mutex — exactly the
// scope dmMgmt.c's SDnode/dmProcessNetTestReq/dmProcessCreateNodeReq cover,
// rebuilt around Go's concurrency primitives.
package dispatch

import (
	"fmt"
	"sync"

	"github.com/chronodb/nodecore/pkg/events"
	"github.com/chronodb/nodecore/pkg/log"
	"github.com/chronodb/nodecore/pkg/logstore"
	"github.com/chronodb/nodecore/pkg/metrics"
	"github.com/chronodb/nodecore/pkg/role"
	"github.com/chronodb/nodecore/pkg/show"
	"github.com/chronodb/nodecore/pkg/types"
)

// ChildForwarder sends a routed message to the child process hosting kind
// and waits for its response, used only when the node is running in
// ProcessMode Parent. The shared-memory transport implements this.
type ChildForwarder interface {
	Forward(kind types.RoleKind, msgType types.MsgType, shard types.ShardID, payload []byte) ([]byte, error)
}

// Node owns every role wrapper deployed on this dnode and the routing
// table telling the dispatcher which role handles which message type.
type Node struct {
	ClusterID string
	NodeID    string
	DataDir   string
	ProcMode  types.ProcessMode

	wrappers map[types.RoleKind]*role.Wrapper
	routes   map[types.MsgType]types.RoleKind

	lifecycleMu sync.Mutex
	status      types.NodeStatus
	event       types.NodeEvent
	eventMu     sync.RWMutex

	startupMu sync.Mutex
	startup   []types.StartupStep

	forwarder ChildForwarder

	// logStores and showCache are registered by role implementations
	// during Open, before Start runs; Collector reads them afterward, so
	// no lock guards the registration itself.
	logStores map[types.RoleKind]*logstore.Store
	showCache *show.Cache

	broker *events.Broker
}

var _ metrics.Source = (*Node)(nil)

// NewNode builds an empty Node; roles are attached with AddRole before
// Start.
func NewNode(clusterID, nodeID, dataDir string, procMode types.ProcessMode) *Node {
	return &Node{
		ClusterID: clusterID,
		NodeID:    nodeID,
		DataDir:   dataDir,
		ProcMode:  procMode,
		wrappers:  make(map[types.RoleKind]*role.Wrapper),
		routes:    make(map[types.MsgType]types.RoleKind),
		status:    types.NodeStatusInit,
		logStores: make(map[types.RoleKind]*logstore.Store),
	}
}

// RegisterLogStore associates kind's replicated log with the node so the
// metrics collector can report its last/commit index.
func (n *Node) RegisterLogStore(kind types.RoleKind, s *logstore.Store) {
	n.logStores[kind] = s
}

// RegisterShowCache associates the mnode's show-session cache with the
// node so the metrics collector can report its open-session count.
func (n *Node) RegisterShowCache(c *show.Cache) {
	n.showCache = c
}

// Deployed reports whether kind is currently deployed, or false if no
// wrapper is registered for it at all.
func (n *Node) Deployed(kind types.RoleKind) bool {
	w, ok := n.wrappers[kind]
	return ok && w.Deployed()
}

// Roles implements metrics.Source.
func (n *Node) Roles() []metrics.RoleSnapshot {
	var out []metrics.RoleSnapshot
	for _, kind := range types.Roles {
		w, ok := n.wrappers[kind]
		if !ok {
			continue
		}
		out = append(out, metrics.RoleSnapshot{Kind: kind, Deployed: w.Deployed(), RefCount: w.RefCount()})
	}
	return out
}

// LogStores implements metrics.Source.
func (n *Node) LogStores() map[types.RoleKind]metrics.LogSnapshot {
	out := make(map[types.RoleKind]metrics.LogSnapshot, len(n.logStores))
	for kind, s := range n.logStores {
		snap := s.Describe()
		out[kind] = metrics.LogSnapshot{LastIndex: snap.LastIndex, CommitIndex: snap.CommitIdx}
	}
	return out
}

// OpenShowSessions implements metrics.Source.
func (n *Node) OpenShowSessions() int {
	if n.showCache == nil {
		return 0
	}
	return n.showCache.Len()
}

// SetForwarder installs the shared-memory forwarder used when ProcMode is
// ProcessParent.
func (n *Node) SetForwarder(f ChildForwarder) {
	n.forwarder = f
}

// SetEventBroker installs the broker role lifecycle events publish to; a
// nil broker (the default) makes publishEvent a no-op, so wiring one in is
// opt-in for callers that want to watch a node.
func (n *Node) SetEventBroker(b *events.Broker) {
	n.broker = b
}

func (n *Node) publishEvent(typ events.EventType, kind types.RoleKind, msg string) {
	if n.broker == nil {
		return
	}
	n.broker.Publish(&events.Event{Type: typ, Role: kind, Message: msg})
}

// PublishEvent lets role implementations outside this package (pkg/roles)
// publish through the node's broker without each holding one themselves.
func (n *Node) PublishEvent(typ events.EventType, kind types.RoleKind, msg string) {
	n.publishEvent(typ, kind, msg)
}

// AddRole registers the wrapper for kind and records which message types
// route to it.
func (n *Node) AddRole(w *role.Wrapper, handles ...types.MsgType) {
	n.wrappers[w.Kind] = w
	for _, mt := range handles {
		n.routes[mt] = w.Kind
	}
}

// Wrapper returns the wrapper for kind, if any is registered.
func (n *Node) Wrapper(kind types.RoleKind) (*role.Wrapper, bool) {
	w, ok := n.wrappers[kind]
	return w, ok
}

// Status reports the node's current lifecycle status.
func (n *Node) Status() types.NodeStatus {
	n.eventMu.RLock()
	defer n.eventMu.RUnlock()
	return n.status
}

// Stop requests that the node stop accepting new work; in-flight
// dispatches still drain normally.
func (n *Node) Stop() {
	n.eventMu.Lock()
	n.event = types.NodeEventStop
	n.status = types.NodeStatusStopped
	n.eventMu.Unlock()
}

func (n *Node) stopping() bool {
	n.eventMu.RLock()
	defer n.eventMu.RUnlock()
	return n.event == types.NodeEventStop
}

// reportStartup appends a step to the startup log, the Go analogue of
// dndReportStartup.
func (n *Node) reportStartup(name, desc string, finished bool) {
	n.startupMu.Lock()
	n.startup = append(n.startup, types.StartupStep{Name: name, Description: desc, Finished: finished})
	n.startupMu.Unlock()
	logger := log.WithComponent("dispatch")
	logger.Debug().Str("node_id", n.NodeID).Str("step", name).Bool("finished", finished).Msg(desc)
}

// ServerStatus reports the most recent startup step and overall status,
// the Go analogue of dmGetServerStartupStatus.
func (n *Node) ServerStatus() types.ServerStatusRsp {
	n.startupMu.Lock()
	defer n.startupMu.Unlock()

	rsp := types.ServerStatusRsp{Status: n.Status()}
	if len(n.startup) > 0 {
		rsp.Step = n.startup[len(n.startup)-1]
	}
	return rsp
}

// Start opens and starts every role marked required, in the fixed
// dependency order Dnode -> Mnode -> Vnodes -> Qnode -> Snode -> Bnode.
func (n *Node) Start() error {
	for _, kind := range types.Roles {
		w, ok := n.wrappers[kind]
		if !ok {
			continue
		}
		if !w.Required() {
			continue
		}

		n.reportStartup(string(kind), fmt.Sprintf("opening %s", kind), false)
		if !w.Deployed() {
			if err := w.Open(); err != nil {
				return fmt.Errorf("dispatch: open %s: %w", kind, err)
			}
		}
		if err := w.Start(); err != nil {
			return fmt.Errorf("dispatch: start %s: %w", kind, err)
		}
		n.reportStartup(string(kind), fmt.Sprintf("%s running", kind), true)
		n.publishEvent(events.EventRoleOpened, kind, "role opened")
	}

	n.eventMu.Lock()
	n.status = types.NodeStatusRunning
	n.eventMu.Unlock()
	return nil
}
