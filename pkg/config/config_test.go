package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronodb/nodecore/pkg/types"
)

const sampleConfig = `
apiVersion: nodecore/v1
kind: NodeConfig
metadata:
  name: node-1
spec:
  clusterId: prod-cluster
  nodeId: node-1
  dataDir: /var/lib/nodecore
  processMode: single
  roles:
    dnode:
      required: true
    mnode:
      required: true
    vnodes:
      required: false
  transport:
    listenAddr: 0.0.0.0:6030
`

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "node.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o644))
	return path
}

func TestLoadParsesRolesAndTransport(t *testing.T) {
	cfg, err := Load(writeSample(t))
	require.NoError(t, err)

	assert.Equal(t, "prod-cluster", cfg.Spec.ClusterID)
	assert.Equal(t, types.ProcessSingle, cfg.Spec.ProcessMode)
	assert.Equal(t, "0.0.0.0:6030", cfg.Spec.Transport.ListenAddr)
	assert.True(t, cfg.RoleRequired(types.RoleDnode))
	assert.True(t, cfg.RoleRequired(types.RoleMnode))
	assert.False(t, cfg.RoleRequired(types.RoleVnodes))
	assert.False(t, cfg.RoleRequired(types.RoleQnode))
}

func TestLoadRejectsMissingClusterID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("spec:\n  nodeId: x\n  dataDir: /tmp\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsUnknownKind(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("kind: Service\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
