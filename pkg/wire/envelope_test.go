package wire

import (
	"bytes"
	"testing"

	"github.com/chronodb/nodecore/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	req := types.NetTestReq{Content: []byte("ping")}
	env, err := Encode(types.MsgNetTest, types.ShardID(7), req)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, env.Write(&buf))

	got, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, types.MsgNetTest, got.MsgType)
	assert.Equal(t, types.ShardID(7), got.Shard)

	var decoded types.NetTestReq
	require.NoError(t, got.Decode(&decoded))
	assert.Equal(t, req.Content, decoded.Content)
}

func TestEnvelopeMultipleFrames(t *testing.T) {
	var buf bytes.Buffer

	e1, err := Encode(types.MsgShow, types.ShardNone, types.ShowReq{Type: types.ShowDnodes})
	require.NoError(t, err)
	require.NoError(t, e1.Write(&buf))

	e2, err := Encode(types.MsgShowRetrieve, types.ShardNone, types.RetrieveReq{ShowID: 1})
	require.NoError(t, err)
	require.NoError(t, e2.Write(&buf))

	got1, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, types.MsgShow, got1.MsgType)

	got2, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, types.MsgShowRetrieve, got2.MsgType)
}
