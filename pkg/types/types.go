package types

import "time"

// RoleKind identifies one of the management roles a node can host.
type RoleKind string

const (
	RoleDnode  RoleKind = "dnode"
	RoleVnodes RoleKind = "vnodes"
	RoleQnode  RoleKind = "qnode"
	RoleSnode  RoleKind = "snode"
	RoleMnode  RoleKind = "mnode"
	RoleBnode  RoleKind = "bnode"
)

// Roles lists every RoleKind in startup dependency order: Dnode must be
// open before anything else, Mnode before the roles that depend on cluster
// metadata, Vnodes before Qnode/Snode, Bnode last.
var Roles = []RoleKind{RoleDnode, RoleMnode, RoleVnodes, RoleQnode, RoleSnode, RoleBnode}

// ProcessMode describes how a role's process relates to the node's main
// process.
type ProcessMode string

const (
	ProcessSingle ProcessMode = "single" // everything in one process
	ProcessParent ProcessMode = "parent" // this process hosts the dnode and forwards to children
	ProcessChild  ProcessMode = "child"  // this process hosts one non-dnode role, forwarded to by a parent
	ProcessTest   ProcessMode = "test"   // in-memory harness, no real fork/shm
)

// NodeStatus is the lifecycle state of the node as a whole.
type NodeStatus string

const (
	NodeStatusInit    NodeStatus = "init"
	NodeStatusRunning NodeStatus = "running"
	NodeStatusStopped NodeStatus = "stopped"
)

// NodeEvent is the cooperative cancellation signal checked by
// Dispatcher.Route before it marks a role.
type NodeEvent string

const (
	NodeEventNone NodeEvent = ""
	NodeEventStop NodeEvent = "stop"
)

// MsgType identifies the kind of request routed through the dispatcher.
// It is a flat string space rather than the dense TDMT_MAX array the
// original C core uses, since Go has no equivalent of a compile-time-sized
// C enum array indexed by message id.
type MsgType string

const (
	MsgNetTest           MsgType = "net-test"
	MsgServerStatus      MsgType = "server-status"
	MsgCreateNode        MsgType = "create-node"
	MsgDropNode          MsgType = "drop-node"
	MsgShow              MsgType = "show"
	MsgShowRetrieve      MsgType = "show-retrieve"
	MsgShowFree          MsgType = "show-free"
)

// ShardID scopes a message to a vnode/shard the way the original core's
// msgVgIds table does. ShardNone means the role itself (not a shard) should
// handle the message.
type ShardID int32

const ShardNone ShardID = 0

// StartupStep records progress during node bring-up, mirroring the
// name/description pair the original core reports during a long role open.
type StartupStep struct {
	Name        string
	Description string
	Finished    bool
}

// ShowType identifies the kind of system-table the show-session cache is
// paginating.
type ShowType string

const (
	ShowDnodes    ShowType = "dnodes"
	ShowMnodes    ShowType = "mnodes"
	ShowVgroups   ShowType = "vgroups"
	ShowDatabases ShowType = "databases"
	ShowStables   ShowType = "stables"
	ShowTables    ShowType = "tables"
)

// Column describes one column of a show-session result set; Bytes is the
// fixed per-row width used by the column-packing compaction pass.
type Column struct {
	Name  string
	Bytes int
}

// ShowReq opens a new paginated show session.
type ShowReq struct {
	Type    ShowType
	Payload []byte // type-specific filter, opaque to the cache
}

// ShowRsp is returned from opening a show session: the session handle and
// the schema the client should expect from subsequent retrieves.
type ShowRsp struct {
	ShowID  uint64
	Columns []Column
}

// RetrieveReq asks for the next page of rows from an open show session.
type RetrieveReq struct {
	ShowID      uint64
	FreeOnly    bool // mirrors TSDB_QUERY_TYPE_FREE_RESOURCE: release without reading
}

// RetrieveRsp is one page of a show session's result set.
type RetrieveRsp struct {
	NumOfRows int
	Precision int
	Data      []byte
	Completed bool
}

// Entry is one record in the replicated log store.
type Entry struct {
	Index uint64
	Term  uint64
	Type  EntryType
	Bytes []byte
}

// EntryType distinguishes log entries the way raft.LogType does; values
// line up with hashicorp/raft's own constants so conversion is a straight
// cast.
type EntryType uint8

const (
	EntryCommand    EntryType = 0
	EntryNoop       EntryType = 1
	EntryConfig     EntryType = 5
)

// CreateNodeReq / DropNodeReq are the payloads carried by MsgCreateNode and
// MsgDropNode.
type CreateNodeReq struct {
	Role RoleKind
}

type DropNodeReq struct {
	Role  RoleKind
	Force bool
}

// NetTestReq / NetTestRsp implement the network connectivity echo test.
type NetTestReq struct {
	Content []byte
}

type NetTestRsp struct {
	Content []byte
}

// ServerStatusReq / ServerStatusRsp report node bring-up progress.
type ServerStatusReq struct{}

type ServerStatusRsp struct {
	Status NodeStatus
	Step   StartupStep
}

// DeployedState is the on-disk record at <role>/deployed.json.
type DeployedState struct {
	Deployed  bool
	UpdatedAt time.Time
}

// DnodeIdentity is the on-disk record at dnode.json.
type DnodeIdentity struct {
	ClusterID  string
	NodeID     string
	RebootTime time.Time
}
