package role

import (
	"sync"
	"testing"

	"github.com/chronodb/nodecore/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFuncs struct {
	openErr  error
	required bool
}

func (f *fakeFuncs) Open(w *Wrapper) error  { return f.openErr }
func (f *fakeFuncs) Close(w *Wrapper)       {}
func (f *fakeFuncs) Start(w *Wrapper) error { return nil }
func (f *fakeFuncs) Create(w *Wrapper, req []byte) error {
	return nil
}
func (f *fakeFuncs) Drop(w *Wrapper, req []byte) error {
	return nil
}
func (f *fakeFuncs) Required(w *Wrapper) bool { return f.required }

func TestAcquireBeforeOpenFails(t *testing.T) {
	w := New(types.RoleVnodes, "/tmp/vnodes", types.ProcessSingle, &fakeFuncs{})
	err := w.Acquire()
	require.Error(t, err)
	assert.Equal(t, types.ErrNodeNotDeployed, types.CodeOf(err))
}

func TestOpenThenAcquireRelease(t *testing.T) {
	w := New(types.RoleVnodes, "/tmp/vnodes", types.ProcessSingle, &fakeFuncs{})
	require.NoError(t, w.Open())
	assert.True(t, w.Deployed())

	require.NoError(t, w.Acquire())
	assert.EqualValues(t, 1, w.RefCount())
	w.Release()
	assert.EqualValues(t, 0, w.RefCount())
}

func TestDoubleOpenFails(t *testing.T) {
	w := New(types.RoleVnodes, "/tmp/vnodes", types.ProcessSingle, &fakeFuncs{})
	require.NoError(t, w.Open())
	err := w.Open()
	require.Error(t, err)
	assert.Equal(t, types.ErrNodeAlreadyDeployed, types.CodeOf(err))
}

func TestCloseDrainsOutstandingReferences(t *testing.T) {
	w := New(types.RoleVnodes, "/tmp/vnodes", types.ProcessSingle, &fakeFuncs{})
	require.NoError(t, w.Open())
	require.NoError(t, w.Acquire())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.Release()
	}()

	w.Close()
	wg.Wait()
	assert.EqualValues(t, 0, w.RefCount())
	assert.False(t, w.Deployed())
}

func TestMarkAllowsRequiredChildBeforeDeploy(t *testing.T) {
	w := New(types.RoleMnode, "/tmp/mnode", types.ProcessChild, &fakeFuncs{})
	w.required = true // set directly: simulates a child proc that inherited required=true from its parent

	require.NoError(t, w.Mark())
	assert.EqualValues(t, 1, w.RefCount())
}

func TestCreateThenDrop(t *testing.T) {
	w := New(types.RoleVnodes, "/tmp/vnodes", types.ProcessSingle, &fakeFuncs{})
	require.NoError(t, w.Create(nil))
	assert.True(t, w.Deployed())

	require.NoError(t, w.Drop(nil))
	assert.False(t, w.Deployed())
}

func TestCreateTwiceFails(t *testing.T) {
	w := New(types.RoleVnodes, "/tmp/vnodes", types.ProcessSingle, &fakeFuncs{})
	require.NoError(t, w.Create(nil))
	err := w.Create(nil)
	require.Error(t, err)
	assert.Equal(t, types.ErrNodeAlreadyDeployed, types.CodeOf(err))
}

func TestDropWhenNotDeployedFails(t *testing.T) {
	w := New(types.RoleVnodes, "/tmp/vnodes", types.ProcessSingle, &fakeFuncs{})
	err := w.Drop(nil)
	require.Error(t, err)
	assert.Equal(t, types.ErrNodeNotDeployed, types.CodeOf(err))
}
