package dispatch

import (
	"os"
	"path/filepath"

	"github.com/chronodb/nodecore/pkg/events"
	"github.com/chronodb/nodecore/pkg/log"
	"github.com/chronodb/nodecore/pkg/types"
)

// CreateRole handles a CreateNode request for kind, serialized against
// every other create/drop on this node by lifecycleMu — mirroring
// pDnode->mutex in dmProcessCreateNodeReq/dmProcessDropNodeReq. Routine
// message dispatch never takes this lock.
func (n *Node) CreateRole(kind types.RoleKind, req []byte) error {
	n.lifecycleMu.Lock()
	defer n.lifecycleMu.Unlock()

	w, ok := n.wrappers[kind]
	if !ok {
		return types.NewError(types.ErrInvalidMsgType, "unknown role "+string(kind))
	}

	path := filepath.Join(n.DataDir, string(kind))
	if err := os.MkdirAll(path, 0o755); err != nil {
		return types.WrapError(types.ErrIO, "create role directory", err)
	}

	if err := w.Create(req); err != nil {
		return err
	}

	logger := log.WithComponent("dispatch")
	logger.Info().Str("role", string(kind)).Msg("role created")
	n.publishEvent(events.EventRoleCreated, kind, "role created")
	return nil
}

// DropRole handles a DropNode request for kind.
func (n *Node) DropRole(kind types.RoleKind, req []byte) error {
	n.lifecycleMu.Lock()
	defer n.lifecycleMu.Unlock()

	w, ok := n.wrappers[kind]
	if !ok {
		return types.NewError(types.ErrInvalidMsgType, "unknown role "+string(kind))
	}

	if err := w.Drop(req); err != nil {
		return err
	}

	path := filepath.Join(n.DataDir, string(kind))
	if err := os.RemoveAll(path); err != nil {
		return types.WrapError(types.ErrIO, "remove role directory", err)
	}

	logger := log.WithComponent("dispatch")
	logger.Info().Str("role", string(kind)).Msg("role dropped")
	n.publishEvent(events.EventRoleDropped, kind, "role dropped")
	return nil
}
