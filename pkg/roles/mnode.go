package roles

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/chronodb/nodecore/pkg/dispatch"
	"github.com/chronodb/nodecore/pkg/events"
	"github.com/chronodb/nodecore/pkg/log"
	"github.com/chronodb/nodecore/pkg/role"
	"github.com/chronodb/nodecore/pkg/show"
	"github.com/chronodb/nodecore/pkg/types"
)

// showKeepTime is how long an idle show session survives before the
// sweeper evicts it, matching the 6-minute window SHOW_TTL_MS gives
// mndShow.c's sessions.
const showKeepTime = 6 * time.Minute

// Mnode owns the show-session cache and is the only role that answers
// MsgShow/MsgShowRetrieve/MsgShowFree. It is required either because it
// was explicitly requested or because any of the shard-owning roles are
// deployed and need cluster metadata to come from somewhere.
type Mnode struct {
	node *dispatch.Node

	mu        sync.Mutex
	requested bool
	cache     *show.Cache
}

func NewMnode(node *dispatch.Node) *Mnode {
	return &Mnode{node: node}
}

var _ role.Funcs = (*Mnode)(nil)

func (m *Mnode) Open(w *role.Wrapper) error {
	cache := show.New(showKeepTime)
	cache.Register(types.ShowDnodes, &show.Handlers{Meta: m.showDnodesMeta, Retrieve: m.showDnodesRetrieve})
	cache.OnEvict(func(id uint64) {
		m.node.PublishEvent(events.EventShowEvicted, types.RoleMnode, "show session expired")
	})
	cache.Start()

	m.mu.Lock()
	m.cache = cache
	m.mu.Unlock()

	m.node.RegisterShowCache(cache)

	w.SetHandler(types.MsgShow, m.handleShow)
	w.SetHandler(types.MsgShowRetrieve, m.handleRetrieve)
	w.SetHandler(types.MsgShowFree, m.handleFree)

	logger := log.WithComponent("roles").With().Str("role", "mnode").Logger()
	logger.Info().Msg("mnode opened")
	return nil
}

func (m *Mnode) Close(w *role.Wrapper) {
	m.mu.Lock()
	cache := m.cache
	m.cache = nil
	m.mu.Unlock()
	if cache != nil {
		cache.Stop()
	}
}

func (m *Mnode) Start(w *role.Wrapper) error { return nil }

func (m *Mnode) Create(w *role.Wrapper, req []byte) error {
	m.mu.Lock()
	m.requested = true
	m.mu.Unlock()
	return nil
}

func (m *Mnode) Drop(w *role.Wrapper, req []byte) error {
	m.mu.Lock()
	m.requested = false
	m.mu.Unlock()
	return nil
}

// Required implements dmRequireNode's rule that a shard-owning role
// deployed on this dnode pulls mnode along with it even if mnode itself
// was never explicitly requested.
func (m *Mnode) Required(w *role.Wrapper) bool {
	m.mu.Lock()
	requested := m.requested
	m.mu.Unlock()

	return requested ||
		m.node.Deployed(types.RoleVnodes) ||
		m.node.Deployed(types.RoleQnode) ||
		m.node.Deployed(types.RoleSnode)
}

func (m *Mnode) handleShow(w *role.Wrapper, shard types.ShardID, payload []byte) ([]byte, error) {
	var req types.ShowReq
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, types.WrapError(types.ErrInvalidMsgType, "decode show request", err)
	}

	m.mu.Lock()
	cache := m.cache
	m.mu.Unlock()

	rsp, err := cache.ProcessShow(req)
	if err != nil {
		return nil, err
	}
	return json.Marshal(rsp)
}

func (m *Mnode) handleRetrieve(w *role.Wrapper, shard types.ShardID, payload []byte) ([]byte, error) {
	var req types.RetrieveReq
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, types.WrapError(types.ErrInvalidMsgType, "decode retrieve request", err)
	}

	m.mu.Lock()
	cache := m.cache
	m.mu.Unlock()

	rsp, err := cache.ProcessRetrieve(req)
	if err != nil {
		return nil, err
	}
	return json.Marshal(rsp)
}

func (m *Mnode) handleFree(w *role.Wrapper, shard types.ShardID, payload []byte) ([]byte, error) {
	var req types.RetrieveReq
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, types.WrapError(types.ErrInvalidMsgType, "decode free request", err)
	}
	req.FreeOnly = true

	m.mu.Lock()
	cache := m.cache
	m.mu.Unlock()

	_, err := cache.ProcessRetrieve(req)
	return nil, err
}

// dnodeRow is the opaque iterator state for a ShowDnodes session: a
// pre-computed snapshot of every registered role, since the underlying
// data (wrapper deployed/ref-count state) can change between pages.
type dnodeRow struct {
	rows []metricsRoleRow
	next int
}

// NumOfRows implements show.RowCounter.
func (it *dnodeRow) NumOfRows() int { return len(it.rows) }

type metricsRoleRow struct {
	Kind     types.RoleKind
	Deployed bool
}

func (m *Mnode) showDnodesMeta(req types.ShowReq) ([]types.Column, interface{}, error) {
	columns := []types.Column{
		{Name: "role", Bytes: 16},
		{Name: "deployed", Bytes: 1},
	}

	var rows []metricsRoleRow
	for _, snap := range m.node.Roles() {
		rows = append(rows, metricsRoleRow{Kind: snap.Kind, Deployed: snap.Deployed})
	}

	return columns, &dnodeRow{rows: rows}, nil
}

func (m *Mnode) showDnodesRetrieve(iter interface{}, rowsToRead int) ([]byte, int, error) {
	it := iter.(*dnodeRow)
	if it.next >= len(it.rows) {
		return nil, 0, nil
	}

	end := it.next + rowsToRead
	if end > len(it.rows) {
		end = len(it.rows)
	}
	page := it.rows[it.next:end]

	data, err := json.Marshal(page)
	if err != nil {
		return nil, 0, types.WrapError(types.ErrIO, "marshal show-dnodes page", err)
	}

	it.next = end
	return data, len(page), nil
}
