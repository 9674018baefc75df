package roles

import (
	"github.com/chronodb/nodecore/pkg/dispatch"
	"github.com/chronodb/nodecore/pkg/role"
	"github.com/chronodb/nodecore/pkg/types"
)

// Qnode hosts the query-execution role's replicated log.
type Qnode struct{ *replicatedRole }

func NewQnode(node *dispatch.Node) *Qnode {
	return &Qnode{replicatedRole: newReplicatedRole(types.RoleQnode, node)}
}

var _ role.Funcs = (*Qnode)(nil)
