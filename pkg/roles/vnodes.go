package roles

import (
	"github.com/chronodb/nodecore/pkg/dispatch"
	"github.com/chronodb/nodecore/pkg/role"
	"github.com/chronodb/nodecore/pkg/types"
)

// Vnodes hosts the shard-owning data roles' replicated logs.
type Vnodes struct{ *replicatedRole }

func NewVnodes(node *dispatch.Node) *Vnodes {
	return &Vnodes{replicatedRole: newReplicatedRole(types.RoleVnodes, node)}
}

var _ role.Funcs = (*Vnodes)(nil)
