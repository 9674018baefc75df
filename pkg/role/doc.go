// Package role provides the RoleWrapper, the latch-and-refcount guarded
// handle around one deployed management role (dnode, mnode, vnodes, qnode,
// snode, bnode) on a node.
package role
