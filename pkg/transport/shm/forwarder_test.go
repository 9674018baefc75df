package shm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronodb/nodecore/pkg/dispatch"
	"github.com/chronodb/nodecore/pkg/role"
	"github.com/chronodb/nodecore/pkg/types"
)

type echoFuncs struct{}

func (echoFuncs) Open(w *role.Wrapper) error {
	w.SetHandler(types.MsgNetTest, func(w *role.Wrapper, shard types.ShardID, payload []byte) ([]byte, error) {
		var req types.NetTestReq
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, err
		}
		return json.Marshal(types.NetTestRsp{Content: req.Content})
	})
	return nil
}
func (echoFuncs) Close(w *role.Wrapper)              {}
func (echoFuncs) Start(w *role.Wrapper) error         { return nil }
func (echoFuncs) Create(w *role.Wrapper, b []byte) error { return nil }
func (echoFuncs) Drop(w *role.Wrapper, b []byte) error   { return nil }
func (echoFuncs) Required(w *role.Wrapper) bool       { return true }

func TestForwarderRoutesToChildChannel(t *testing.T) {
	childNode := dispatch.NewNode("c", "child-1", t.TempDir(), types.ProcessChild)
	w := role.New(types.RoleVnodes, childNode.DataDir+"/vnodes", types.ProcessChild, echoFuncs{})
	childNode.AddRole(w, types.MsgNetTest)
	require.NoError(t, w.Open())

	childDispatcher := dispatch.NewDispatcher(childNode)
	ch := NewChannel(childDispatcher)
	defer ch.Close()

	fwd := NewForwarder()
	fwd.Register(types.RoleVnodes, ch)

	reqBytes, err := json.Marshal(types.NetTestReq{Content: []byte("hello")})
	require.NoError(t, err)

	rspBytes, err := fwd.Forward(types.RoleVnodes, types.MsgNetTest, types.ShardNone, reqBytes)
	require.NoError(t, err)

	var rsp types.NetTestRsp
	require.NoError(t, json.Unmarshal(rspBytes, &rsp))
	assert.Equal(t, []byte("hello"), rsp.Content)
}

func TestForwarderUnknownRoleFails(t *testing.T) {
	fwd := NewForwarder()
	_, err := fwd.Forward(types.RoleQnode, types.MsgNetTest, types.ShardNone, nil)
	assert.Error(t, err)
	assert.Equal(t, types.ErrInvalidMsgType, types.CodeOf(err))
}
