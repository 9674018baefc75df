package logstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronodb/nodecore/pkg/types"
)

type fakeParent struct{ idx uint64 }

func (f *fakeParent) CommitIndex() uint64 { return f.idx }

func TestAppendAndGet(t *testing.T) {
	s, err := Open(t.TempDir(), &fakeParent{idx: 0})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Append(types.Entry{Index: 1, Term: 1, Bytes: []byte("a")}))
	require.NoError(t, s.Append(types.Entry{Index: 2, Term: 1, Bytes: []byte("b")}))

	e, err := s.Get(2)
	require.NoError(t, err)
	assert.Equal(t, []byte("b"), e.Bytes)
	assert.EqualValues(t, 2, s.LastIndex())
}

func TestAppendOutOfOrderRejected(t *testing.T) {
	s, err := Open(t.TempDir(), nil)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Append(types.Entry{Index: 1, Term: 1}))
	err = s.Append(types.Entry{Index: 3, Term: 1})
	require.Error(t, err)
	assert.Equal(t, types.ErrWal, types.CodeOf(err))
}

func TestTruncateDropsTail(t *testing.T) {
	s, err := Open(t.TempDir(), nil)
	require.NoError(t, err)
	defer s.Close()

	for i := uint64(1); i <= 5; i++ {
		require.NoError(t, s.Append(types.Entry{Index: i, Term: 1}))
	}
	require.NoError(t, s.Truncate(3))
	assert.EqualValues(t, 2, s.LastIndex())

	_, err = s.Get(3)
	require.Error(t, err)
}

func TestCommitIndexComesFromParent(t *testing.T) {
	s, err := Open(t.TempDir(), &fakeParent{idx: 42})
	require.NoError(t, err)
	defer s.Close()

	assert.EqualValues(t, 42, s.CommitIndex())
}

func TestDescribe(t *testing.T) {
	s, err := Open(t.TempDir(), &fakeParent{idx: 7})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Append(types.Entry{Index: 1, Term: 2}))
	snap := s.Describe()
	assert.EqualValues(t, 1, snap.LastIndex)
	assert.EqualValues(t, 2, snap.LastTerm)
	assert.EqualValues(t, 7, snap.CommitIdx)
}
