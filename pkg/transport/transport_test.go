package transport

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

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
func (echoFuncs) Close(w *role.Wrapper)                  {}
func (echoFuncs) Start(w *role.Wrapper) error            { return nil }
func (echoFuncs) Create(w *role.Wrapper, b []byte) error { return nil }
func (echoFuncs) Drop(w *role.Wrapper, b []byte) error   { return nil }
func (echoFuncs) Required(w *role.Wrapper) bool          { return true }

func TestServerClientRoundTrip(t *testing.T) {
	node := dispatch.NewNode("c", "node-1", t.TempDir(), types.ProcessSingle)
	w := role.New(types.RoleDnode, node.DataDir+"/dnode", types.ProcessSingle, echoFuncs{})
	node.AddRole(w, types.MsgNetTest)
	require.NoError(t, w.Open())

	srv := NewServer(dispatch.NewDispatcher(node))
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() { _ = srv.Serve(lis) }()
	defer srv.Stop()

	client, err := Dial(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer client.Close()

	reqBytes, err := json.Marshal(types.NetTestReq{Content: []byte("ping")})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rspBytes, err := client.Route(ctx, types.MsgNetTest, types.ShardNone, reqBytes)
	require.NoError(t, err)

	var rsp types.NetTestRsp
	require.NoError(t, json.Unmarshal(rspBytes, &rsp))
	assert.Equal(t, []byte("ping"), rsp.Content)
}
