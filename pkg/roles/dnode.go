package roles

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/chronodb/nodecore/pkg/dispatch"
	"github.com/chronodb/nodecore/pkg/log"
	"github.com/chronodb/nodecore/pkg/role"
	"github.com/chronodb/nodecore/pkg/types"
)

// Dnode is the always-required identity role: every node hosts exactly
// one, it answers net-test and server-status requests directly, and it is
// the role the dispatcher routes create/drop-node requests to, mirroring
// dmProcessNetTestReq/dmProcessCreateNodeReq/dmProcessDropNodeReq all
// living on SDnode in the original core.
type Dnode struct {
	node *dispatch.Node
}

func NewDnode(node *dispatch.Node) *Dnode {
	return &Dnode{node: node}
}

var _ role.Funcs = (*Dnode)(nil)

func (d *Dnode) identityPath(w *role.Wrapper) string {
	return filepath.Join(w.Path, "dnode.json")
}

func (d *Dnode) Open(w *role.Wrapper) error {
	if err := os.MkdirAll(w.Path, 0o755); err != nil {
		return types.WrapError(types.ErrIO, "create dnode directory", err)
	}

	identity := types.DnodeIdentity{
		ClusterID:  d.node.ClusterID,
		NodeID:     d.node.NodeID,
		RebootTime: time.Now(),
	}
	data, err := json.Marshal(identity)
	if err != nil {
		return types.WrapError(types.ErrIO, "marshal dnode identity", err)
	}
	if err := os.WriteFile(d.identityPath(w), data, 0o644); err != nil {
		return types.WrapError(types.ErrIO, "write dnode identity", err)
	}

	w.SetHandler(types.MsgNetTest, d.handleNetTest)
	w.SetHandler(types.MsgServerStatus, d.handleServerStatus)
	w.SetHandler(types.MsgCreateNode, d.handleCreateNode)
	w.SetHandler(types.MsgDropNode, d.handleDropNode)

	logger := log.WithComponent("roles").With().Str("role", "dnode").Logger()
	logger.Info().Str("node_id", d.node.NodeID).Msg("dnode opened")
	return nil
}

func (d *Dnode) Close(w *role.Wrapper) {}

func (d *Dnode) Start(w *role.Wrapper) error { return nil }

func (d *Dnode) Create(w *role.Wrapper, req []byte) error { return nil }

func (d *Dnode) Drop(w *role.Wrapper, req []byte) error { return nil }

// Required always returns true: a dnode backs every node regardless of
// which other roles are requested on it.
func (d *Dnode) Required(w *role.Wrapper) bool { return true }

func (d *Dnode) handleNetTest(w *role.Wrapper, shard types.ShardID, payload []byte) ([]byte, error) {
	var req types.NetTestReq
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, types.WrapError(types.ErrInvalidMsgType, "decode net-test request", err)
	}
	return json.Marshal(types.NetTestRsp{Content: req.Content})
}

func (d *Dnode) handleServerStatus(w *role.Wrapper, shard types.ShardID, payload []byte) ([]byte, error) {
	return json.Marshal(d.node.ServerStatus())
}

func (d *Dnode) handleCreateNode(w *role.Wrapper, shard types.ShardID, payload []byte) ([]byte, error) {
	var req types.CreateNodeReq
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, types.WrapError(types.ErrInvalidMsgType, "decode create-node request", err)
	}
	if err := d.node.CreateRole(req.Role, payload); err != nil {
		return nil, err
	}
	return nil, nil
}

func (d *Dnode) handleDropNode(w *role.Wrapper, shard types.ShardID, payload []byte) ([]byte, error) {
	var req types.DropNodeReq
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, types.WrapError(types.ErrInvalidMsgType, "decode drop-node request", err)
	}
	if err := d.node.DropRole(req.Role, payload); err != nil {
		return nil, err
	}
	return nil, nil
}
