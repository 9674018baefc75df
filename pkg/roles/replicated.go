package roles

import (
	"os"
	"sync"
	"sync/atomic"

	"github.com/chronodb/nodecore/pkg/dispatch"
	"github.com/chronodb/nodecore/pkg/log"
	"github.com/chronodb/nodecore/pkg/logstore"
	"github.com/chronodb/nodecore/pkg/role"
	"github.com/chronodb/nodecore/pkg/types"
)

// replicatedRole backs the vnodes/qnode/snode/bnode roles, each of which
// owns nothing more than a replicated log and a requested flag: there is
// no system-table content for these roles yet, only the log store they'd
// replay into one once a real state machine lands on top of raft.LogStore.
//
// replicatedRole implements logstore.CommitIndexProvider itself, reporting
// whatever commitIndex was last set by SetCommitIndex; a real consensus
// node wires that call to its own apply loop, keeping the store's durable
// WAL index and the node's applied commit index split exactly the way
// logStoreGetCommitIndex keeps them split from logStoreUpdateCommitIndex
// in the original core.
type replicatedRole struct {
	kind types.RoleKind
	node *dispatch.Node

	mu        sync.Mutex
	requested bool
	store     *logstore.Store

	commitIndex uint64
}

func newReplicatedRole(kind types.RoleKind, node *dispatch.Node) *replicatedRole {
	return &replicatedRole{kind: kind, node: node}
}

// CommitIndex implements logstore.CommitIndexProvider.
func (r *replicatedRole) CommitIndex() uint64 {
	return atomic.LoadUint64(&r.commitIndex)
}

// SetCommitIndex lets a consensus node record the highest index it has
// applied to its state machine; it never touches the WAL's own durable
// index.
func (r *replicatedRole) SetCommitIndex(index uint64) {
	atomic.StoreUint64(&r.commitIndex, index)
}

func (r *replicatedRole) Open(w *role.Wrapper) error {
	if err := os.MkdirAll(w.Path, 0o755); err != nil {
		return types.WrapError(types.ErrIO, "create role directory", err)
	}
	store, err := logstore.Open(w.Path, r)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.store = store
	r.mu.Unlock()

	r.node.RegisterLogStore(r.kind, store)
	logger := log.WithComponent("roles").With().Str("role", string(r.kind)).Logger()
	logger.Debug().Msg("log store opened")
	return nil
}

func (r *replicatedRole) Close(w *role.Wrapper) {
	r.mu.Lock()
	store := r.store
	r.store = nil
	r.mu.Unlock()

	if store != nil {
		if err := store.Close(); err != nil {
			logger := log.WithComponent("roles").With().Str("role", string(r.kind)).Logger()
			logger.Error().Err(err).Msg("log store close failed")
		}
	}
}

func (r *replicatedRole) Start(w *role.Wrapper) error {
	return nil
}

func (r *replicatedRole) Create(w *role.Wrapper, req []byte) error {
	r.mu.Lock()
	r.requested = true
	r.mu.Unlock()
	logger := log.WithComponent("roles").With().Str("role", string(r.kind)).Logger()
	logger.Info().Msg("role requested")
	return nil
}

func (r *replicatedRole) Drop(w *role.Wrapper, req []byte) error {
	r.mu.Lock()
	r.requested = false
	r.mu.Unlock()
	return nil
}

func (r *replicatedRole) Required(w *role.Wrapper) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.requested
}

// Store returns the role's log store, or nil if not yet opened.
func (r *replicatedRole) Store() *logstore.Store {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store
}
