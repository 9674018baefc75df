// Package config parses the YAML node descriptor nodectl reads at
// startup, following the same apiVersion/kind/metadata/spec resource
// shape the teacher's apply.go uses for its own YAML resources.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/chronodb/nodecore/pkg/types"
)

// RoleSpec configures one role this node may host.
type RoleSpec struct {
	Required bool `yaml:"required"`
}

// Spec is the body of a NodeConfig resource.
type Spec struct {
	ClusterID   string                        `yaml:"clusterId"`
	NodeID      string                        `yaml:"nodeId"`
	DataDir     string                        `yaml:"dataDir"`
	ProcessMode types.ProcessMode             `yaml:"processMode"`
	Endpoints   []string                      `yaml:"endpoints,omitempty"`
	Roles       map[types.RoleKind]*RoleSpec  `yaml:"roles"`
	Transport   TransportSpec                 `yaml:"transport,omitempty"`
}

// TransportSpec configures the gRPC listener nodectl serves on.
type TransportSpec struct {
	ListenAddr string `yaml:"listenAddr"`
}

// NodeConfig is the root resource document.
type NodeConfig struct {
	APIVersion string           `yaml:"apiVersion"`
	Kind       string           `yaml:"kind"`
	Metadata   ResourceMetadata `yaml:"metadata"`
	Spec       Spec             `yaml:"spec"`
}

// ResourceMetadata names the resource; Labels are carried through but
// unused by nodectl itself.
type ResourceMetadata struct {
	Name   string            `yaml:"name"`
	Labels map[string]string `yaml:"labels,omitempty"`
}

// Load reads and parses a NodeConfig from path.
func Load(path string) (*NodeConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg NodeConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if cfg.Kind != "" && cfg.Kind != "NodeConfig" {
		return nil, fmt.Errorf("config: unsupported resource kind %q", cfg.Kind)
	}
	return &cfg, cfg.validate()
}

func (c *NodeConfig) validate() error {
	if c.Spec.ClusterID == "" {
		return fmt.Errorf("config: spec.clusterId is required")
	}
	if c.Spec.NodeID == "" {
		return fmt.Errorf("config: spec.nodeId is required")
	}
	if c.Spec.DataDir == "" {
		return fmt.Errorf("config: spec.dataDir is required")
	}
	switch c.Spec.ProcessMode {
	case "", types.ProcessSingle, types.ProcessParent, types.ProcessChild, types.ProcessTest:
	default:
		return fmt.Errorf("config: unknown spec.processMode %q", c.Spec.ProcessMode)
	}
	return nil
}

// RoleRequired reports whether kind is marked required in the descriptor.
func (c *NodeConfig) RoleRequired(kind types.RoleKind) bool {
	spec, ok := c.Spec.Roles[kind]
	return ok && spec.Required
}
