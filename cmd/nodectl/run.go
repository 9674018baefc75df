package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/chronodb/nodecore/pkg/config"
	"github.com/chronodb/nodecore/pkg/dispatch"
	"github.com/chronodb/nodecore/pkg/log"
	"github.com/chronodb/nodecore/pkg/metrics"
	"github.com/chronodb/nodecore/pkg/role"
	"github.com/chronodb/nodecore/pkg/roles"
	"github.com/chronodb/nodecore/pkg/transport"
	"github.com/chronodb/nodecore/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a node from a NodeConfig file",
	RunE:  runNode,
}

func init() {
	runCmd.Flags().StringP("file", "f", "", "NodeConfig YAML file (required)")
	runCmd.Flags().String("metrics-addr", "", "If set, serve Prometheus metrics and health checks on this address")
	_ = runCmd.MarkFlagRequired("file")
}

func runNode(cmd *cobra.Command, args []string) error {
	file, _ := cmd.Flags().GetString("file")
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

	cfg, err := config.Load(file)
	if err != nil {
		return err
	}

	node := dispatch.NewNode(cfg.Spec.ClusterID, cfg.Spec.NodeID, cfg.Spec.DataDir, cfg.Spec.ProcessMode)

	roleFuncs := map[types.RoleKind]role.Funcs{
		types.RoleDnode:  roles.NewDnode(node),
		types.RoleMnode:  roles.NewMnode(node),
		types.RoleVnodes: roles.NewVnodes(node),
		types.RoleQnode:  roles.NewQnode(node),
		types.RoleSnode:  roles.NewSnode(node),
		types.RoleBnode:  roles.NewBnode(node),
	}
	roleHandles := map[types.RoleKind][]types.MsgType{
		types.RoleDnode: {types.MsgNetTest, types.MsgServerStatus, types.MsgCreateNode, types.MsgDropNode},
		types.RoleMnode: {types.MsgShow, types.MsgShowRetrieve, types.MsgShowFree},
	}
	for kind, fp := range roleFuncs {
		path := cfg.Spec.DataDir + "/" + string(kind)
		node.AddRole(role.New(kind, path, cfg.Spec.ProcessMode, fp), roleHandles[kind]...)
	}

	// Explicitly requested roles are opened up front, beyond whatever
	// Start's dependency walk would pull in on its own.
	for kind := range cfg.Spec.Roles {
		if cfg.RoleRequired(kind) {
			if w, ok := node.Wrapper(kind); ok && !w.Deployed() {
				if err := w.Open(); err != nil {
					return fmt.Errorf("nodectl: open %s: %w", kind, err)
				}
			}
		}
	}

	if err := node.Start(); err != nil {
		return fmt.Errorf("nodectl: start node: %w", err)
	}

	dispatcher := dispatch.NewDispatcher(node)
	srv := transport.NewServer(dispatcher, grpc.Creds(insecure.NewCredentials()))

	listenAddr := cfg.Spec.Transport.ListenAddr
	if listenAddr == "" {
		listenAddr = "127.0.0.1:6030"
	}
	lis, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return fmt.Errorf("nodectl: listen on %s: %w", listenAddr, err)
	}

	collector := metrics.NewCollector(node, 15*time.Second)
	collector.Start()
	defer collector.Stop()
	metrics.RegisterComponent("dispatch", true, "")
	metrics.RegisterComponent("transport", true, "")

	go func() {
		if err := srv.Serve(lis); err != nil {
			log.Error("transport server stopped: " + err.Error())
		}
	}()

	if metricsAddr != "" {
		go serveMetrics(metricsAddr)
	}

	logger := log.WithComponent("nodectl")
	logger.Info().Str("node_id", cfg.Spec.NodeID).Str("addr", listenAddr).Msg("node running")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	node.Stop()
	srv.Stop()
	return nil
}
