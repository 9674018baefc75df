package roles

import (
	"github.com/chronodb/nodecore/pkg/dispatch"
	"github.com/chronodb/nodecore/pkg/role"
	"github.com/chronodb/nodecore/pkg/types"
)

// Bnode hosts the backup/archival role's replicated log.
type Bnode struct{ *replicatedRole }

func NewBnode(node *dispatch.Node) *Bnode {
	return &Bnode{replicatedRole: newReplicatedRole(types.RoleBnode, node)}
}

var _ role.Funcs = (*Bnode)(nil)
