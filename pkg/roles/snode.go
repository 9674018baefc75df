package roles

import (
	"github.com/chronodb/nodecore/pkg/dispatch"
	"github.com/chronodb/nodecore/pkg/role"
	"github.com/chronodb/nodecore/pkg/types"
)

// Snode hosts the stream-processing role's replicated log.
type Snode struct{ *replicatedRole }

func NewSnode(node *dispatch.Node) *Snode {
	return &Snode{replicatedRole: newReplicatedRole(types.RoleSnode, node)}
}

var _ role.Funcs = (*Snode)(nil)
