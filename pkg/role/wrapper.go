// Package role implements the RoleWrapper: the per-RoleKind handle that
// guards a role's deployed/required state with a latch and ref count, the
// way the original core's SMgmtWrapper does with an SRWLatch and an
// int32_t refCount. Go gives us sync.RWMutex and sync/atomic in place of
// the hand-rolled spinlock, but the acquire/mark/release protocol is the
// same: fast-path readers never block each other, and closing drains
// in-flight callers instead of yanking state out from under them.
package role

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chronodb/nodecore/pkg/types"
)

// Funcs is the vtable a concrete role implementation supplies, the Go
// analogue of SMgmtFp. Open/Close/Start manage the role's own resources;
// Create/Drop handle the on-wire request to stand up or tear down the
// role; Required reports whether this role must be deployed given the
// others already deployed on this node (e.g. a deployed vnode makes the
// mnode required even if it was not explicitly requested).
type Funcs interface {
	Open(w *Wrapper) error
	Close(w *Wrapper)
	Start(w *Wrapper) error
	Create(w *Wrapper, req []byte) error
	Drop(w *Wrapper, req []byte) error
	Required(w *Wrapper) bool
}

// HandlerFunc processes one routed message for a role once it has been
// marked/acquired by the dispatcher.
type HandlerFunc func(w *Wrapper, shard types.ShardID, payload []byte) ([]byte, error)

// Wrapper holds the deployed/required bit, the ref count, and the handler
// table for one RoleKind.
type Wrapper struct {
	Kind RoleKind
	Path string // <data_dir>/<role name>

	latch    sync.RWMutex
	refCount int32
	deployed bool
	required bool

	procMode types.ProcessMode

	fp       Funcs
	handlers map[types.MsgType]HandlerFunc
	shardFor map[types.MsgType]types.ShardID
}

// RoleKind re-exports types.RoleKind so callers that only import pkg/role
// don't also need pkg/types for this one type; kept as an alias, not a
// redefinition, so the two are always interchangeable.
type RoleKind = types.RoleKind

// New builds a Wrapper for kind at path, not yet deployed.
func New(kind RoleKind, path string, procMode types.ProcessMode, fp Funcs) *Wrapper {
	return &Wrapper{
		Kind:     kind,
		Path:     path,
		procMode: procMode,
		fp:       fp,
		handlers: make(map[types.MsgType]HandlerFunc),
	}
}

// SetHandler registers the handler invoked when msgType is routed to this
// role. Must be called before the role is opened; not safe for concurrent
// use with dispatch.
func (w *Wrapper) SetHandler(msgType types.MsgType, h HandlerFunc) {
	w.handlers[msgType] = h
}

// Handler looks up the handler for msgType, reporting ok=false if none is
// registered (the caller should treat this as ErrInvalidMsgType).
func (w *Wrapper) Handler(msgType types.MsgType) (HandlerFunc, bool) {
	h, ok := w.handlers[msgType]
	return h, ok
}

// SetShardOverride pins msgType to shard regardless of what the caller
// passes to Route, for messages that must always land on a specific
// storage shard (e.g. a shard's own management traffic). Must be called
// before the role is opened, same as SetHandler.
func (w *Wrapper) SetShardOverride(msgType types.MsgType, shard types.ShardID) {
	if w.shardFor == nil {
		w.shardFor = make(map[types.MsgType]types.ShardID)
	}
	w.shardFor[msgType] = shard
}

// ShardFor returns the shard Route should use for msgType: the override
// set by SetShardOverride if one exists, otherwise requested unchanged.
func (w *Wrapper) ShardFor(msgType types.MsgType, requested types.ShardID) types.ShardID {
	if shard, ok := w.shardFor[msgType]; ok {
		return shard
	}
	return requested
}

// Deployed reports whether the role is currently deployed. Callers holding
// no lock of their own should prefer Acquire, which also bumps the ref
// count atomically with the deployed check.
func (w *Wrapper) Deployed() bool {
	w.latch.RLock()
	defer w.latch.RUnlock()
	return w.deployed
}

// Required reports whether this role must stay open given current cluster
// state, per fp.Required.
func (w *Wrapper) Required() bool {
	return w.fp.Required(w)
}

// Acquire takes a read reference on the role: it succeeds only if the role
// is deployed, incrementing the ref count under the latch's read lock so
// it can never race with a concurrent Close's write lock. Every successful
// Acquire must be matched with Release.
func (w *Wrapper) Acquire() error {
	w.latch.RLock()
	defer w.latch.RUnlock()

	if !w.deployed {
		return types.NewError(types.ErrNodeNotDeployed, string(w.Kind)+" is not deployed")
	}
	atomic.AddInt32(&w.refCount, 1)
	return nil
}

// Mark is like Acquire but also succeeds when the role is not deployed but
// is running in-process as a required child of the parent (ProcessMode
// Parent/Child forwarding), mirroring dmMarkWrapper's extra allowance for
// InParentProc+required wrappers that haven't completed their own Create
// handshake yet.
func (w *Wrapper) Mark() error {
	w.latch.RLock()
	defer w.latch.RUnlock()

	if w.deployed {
		atomic.AddInt32(&w.refCount, 1)
		return nil
	}
	if (w.procMode == types.ProcessParent || w.procMode == types.ProcessChild) && w.required {
		atomic.AddInt32(&w.refCount, 1)
		return nil
	}
	return types.NewError(types.ErrNodeNotDeployed, string(w.Kind)+" is not deployed")
}

// Release gives back a reference taken by Acquire or Mark.
func (w *Wrapper) Release() {
	w.latch.RLock()
	defer w.latch.RUnlock()
	atomic.AddInt32(&w.refCount, -1)
}

// RefCount returns the current outstanding reference count, for tests and
// diagnostics.
func (w *Wrapper) RefCount() int32 {
	return atomic.LoadInt32(&w.refCount)
}

// drainTimeout bounds how long Close waits for in-flight callers to
// release their references before giving up on a clean drain.
const drainTimeout = 30 * time.Second
const drainPoll = time.Millisecond

// deployedStatePath is the on-disk location of the role's deployed bit.
func (w *Wrapper) deployedStatePath() string {
	return filepath.Join(w.Path, "deployed.json")
}

// persistDeployedState writes the deployed bit to <Path>/deployed.json via
// a tmp file plus rename, so a crash mid-write never leaves a torn file
// behind for the next Open to read.
func (w *Wrapper) persistDeployedState(deployed bool) error {
	if err := os.MkdirAll(w.Path, 0o755); err != nil {
		return types.WrapError(types.ErrIO, "create role directory", err)
	}

	data, err := json.Marshal(types.DeployedState{Deployed: deployed, UpdatedAt: time.Now()})
	if err != nil {
		return types.WrapError(types.ErrIO, "marshal deployed state", err)
	}

	path := w.deployedStatePath()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return types.WrapError(types.ErrIO, "write deployed state", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return types.WrapError(types.ErrIO, "rename deployed state", err)
	}
	return nil
}

// Open takes the write latch, calls fp.Open, persists the deployed bit,
// and marks the role deployed on success.
func (w *Wrapper) Open() error {
	w.latch.Lock()
	defer w.latch.Unlock()

	if w.deployed {
		return types.NewError(types.ErrNodeAlreadyDeployed, string(w.Kind)+" already deployed")
	}
	if err := w.fp.Open(w); err != nil {
		return err
	}
	if err := w.persistDeployedState(true); err != nil {
		w.fp.Close(w)
		return err
	}
	w.deployed = true
	w.required = true
	return nil
}

// Close drains outstanding references, then takes the write latch and
// calls fp.Close. It returns once the role is fully quiesced; callers that
// need a directory removed or a file closed should wait for Close to
// return before doing so, matching dmProcessDropNodeReq's ordering of
// dropFp then dmCloseNode then rmdir.
func (w *Wrapper) Close() {
	deadline := time.Now().Add(drainTimeout)
	for atomic.LoadInt32(&w.refCount) > 0 && time.Now().Before(deadline) {
		time.Sleep(drainPoll)
	}

	w.latch.Lock()
	defer w.latch.Unlock()
	if !w.deployed {
		return
	}
	w.fp.Close(w)
	// Best effort: the in-memory deployed bit below is authoritative for
	// this process regardless, and the next Open overwrites the file.
	_ = w.persistDeployedState(false)
	w.deployed = false
	w.required = false
}

// Start calls fp.Start without touching the deployed bit; it is invoked
// once per process after every required role has been opened.
func (w *Wrapper) Start() error {
	return w.fp.Start(w)
}

// Create handles a CreateNode request: acquire fails loudly if already
// deployed, otherwise fp.Create runs first to perform any role-specific
// provisioning and, only on its success, Open is called to mark the role
// deployed, mirroring dmProcessCreateNodeReq's createFp-then-dmOpenNode
// order in the original core.
func (w *Wrapper) Create(req []byte) error {
	if w.Deployed() {
		return types.NewError(types.ErrNodeAlreadyDeployed, string(w.Kind)+" already deployed")
	}
	if err := w.fp.Create(w, req); err != nil {
		return err
	}
	if err := w.Open(); err != nil {
		w.fp.Drop(w, req)
		return err
	}
	return nil
}

// Drop handles a DropNode request: acquiring fails loudly if not deployed,
// otherwise fp.Drop runs before the role is closed.
func (w *Wrapper) Drop(req []byte) error {
	if !w.Deployed() {
		return types.NewError(types.ErrNodeNotDeployed, string(w.Kind)+" is not deployed")
	}
	if err := w.fp.Drop(w, req); err != nil {
		return err
	}
	w.Close()
	return nil
}
