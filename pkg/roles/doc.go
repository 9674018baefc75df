// Package roles supplies the concrete role.Funcs implementation for each
// types.RoleKind: dnode (identity, net-test, server-status, create/drop
// routing), mnode (the show-session cache), and the replicated-log roles
// vnodes/qnode/snode/bnode.
package roles
