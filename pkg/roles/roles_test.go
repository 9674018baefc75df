package roles

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronodb/nodecore/pkg/dispatch"
	"github.com/chronodb/nodecore/pkg/role"
	"github.com/chronodb/nodecore/pkg/types"
)

func newTestNode(t *testing.T) *dispatch.Node {
	t.Helper()
	return dispatch.NewNode("test-cluster", "node-1", t.TempDir(), types.ProcessSingle)
}

func TestDnodeAlwaysRequired(t *testing.T) {
	node := newTestNode(t)
	d := NewDnode(node)
	w := role.New(types.RoleDnode, node.DataDir+"/dnode", types.ProcessSingle, d)
	assert.True(t, d.Required(w))
}

func TestDnodeNetTestEchoesContent(t *testing.T) {
	node := newTestNode(t)
	node.AddRole(role.New(types.RoleDnode, node.DataDir+"/dnode", types.ProcessSingle, NewDnode(node)), types.MsgNetTest)
	require.NoError(t, node.Start())

	disp := dispatch.NewDispatcher(node)
	reqBytes, err := json.Marshal(types.NetTestReq{Content: []byte("ping")})
	require.NoError(t, err)

	rspBytes, err := disp.Route(types.MsgNetTest, types.ShardNone, reqBytes)
	require.NoError(t, err)

	var rsp types.NetTestRsp
	require.NoError(t, json.Unmarshal(rspBytes, &rsp))
	assert.Equal(t, []byte("ping"), rsp.Content)
}

func TestMnodeRequiredWhenVnodesDeployed(t *testing.T) {
	node := newTestNode(t)
	m := NewMnode(node)
	mw := role.New(types.RoleMnode, node.DataDir+"/mnode", types.ProcessSingle, m)
	node.AddRole(mw, types.MsgShow)
	assert.False(t, m.Required(mw))

	vw := role.New(types.RoleVnodes, node.DataDir+"/vnodes", types.ProcessSingle, NewVnodes(node))
	node.AddRole(vw)
	require.NoError(t, vw.Open())

	assert.True(t, m.Required(mw))
}

func TestMnodeShowDnodesRoundTrip(t *testing.T) {
	node := newTestNode(t)
	dw := role.New(types.RoleDnode, node.DataDir+"/dnode", types.ProcessSingle, NewDnode(node))
	node.AddRole(dw, types.MsgNetTest, types.MsgServerStatus, types.MsgCreateNode, types.MsgDropNode)

	mw := role.New(types.RoleMnode, node.DataDir+"/mnode", types.ProcessSingle, NewMnode(node))
	node.AddRole(mw, types.MsgShow, types.MsgShowRetrieve, types.MsgShowFree)

	require.NoError(t, node.Start())
	require.NoError(t, node.CreateRole(types.RoleMnode, nil))

	disp := dispatch.NewDispatcher(node)

	showReqBytes, err := json.Marshal(types.ShowReq{Type: types.ShowDnodes})
	require.NoError(t, err)
	showRspBytes, err := disp.Route(types.MsgShow, types.ShardNone, showReqBytes)
	require.NoError(t, err)

	var showRsp types.ShowRsp
	require.NoError(t, json.Unmarshal(showRspBytes, &showRsp))
	require.NotZero(t, showRsp.ShowID)

	retrieveReqBytes, err := json.Marshal(types.RetrieveReq{ShowID: showRsp.ShowID})
	require.NoError(t, err)
	retrieveRspBytes, err := disp.Route(types.MsgShowRetrieve, types.ShardNone, retrieveReqBytes)
	require.NoError(t, err)

	var retrieveRsp types.RetrieveRsp
	require.NoError(t, json.Unmarshal(retrieveRspBytes, &retrieveRsp))
	assert.True(t, retrieveRsp.Completed)
	assert.Equal(t, 2, retrieveRsp.NumOfRows) // dnode + mnode are both deployed
}

func TestReplicatedRoleCreateOpensLogStore(t *testing.T) {
	node := newTestNode(t)
	v := NewVnodes(node)
	w := role.New(types.RoleVnodes, node.DataDir+"/vnodes", types.ProcessSingle, v)
	node.AddRole(w)

	require.NoError(t, w.Create(nil))
	assert.True(t, w.Deployed())
	assert.NotNil(t, v.Store())

	require.NoError(t, w.Drop(nil))
	assert.False(t, w.Deployed())
}
