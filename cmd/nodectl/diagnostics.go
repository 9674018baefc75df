package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/chronodb/nodecore/pkg/transport"
	"github.com/chronodb/nodecore/pkg/types"
)

func dialTarget(cmd *cobra.Command) (*transport.Client, error) {
	addr, _ := cmd.Flags().GetString("addr")
	return transport.Dial(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Query a running node's server status",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := dialTarget(cmd)
		if err != nil {
			return err
		}
		defer client.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		rspBytes, err := client.Route(ctx, types.MsgServerStatus, types.ShardNone, []byte("{}"))
		if err != nil {
			return err
		}

		var rsp types.ServerStatusRsp
		if err := json.Unmarshal(rspBytes, &rsp); err != nil {
			return err
		}
		fmt.Printf("status: %s\n", rsp.Status)
		if rsp.Step.Name != "" {
			fmt.Printf("last step: %s (%s) finished=%v\n", rsp.Step.Name, rsp.Step.Description, rsp.Step.Finished)
		}
		return nil
	},
}

var netTestCmd = &cobra.Command{
	Use:   "net-test",
	Short: "Send an echo request to a running node",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := dialTarget(cmd)
		if err != nil {
			return err
		}
		defer client.Close()

		req, _ := json.Marshal(types.NetTestReq{Content: []byte("nodectl")})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		rspBytes, err := client.Route(ctx, types.MsgNetTest, types.ShardNone, req)
		if err != nil {
			return err
		}

		var rsp types.NetTestRsp
		if err := json.Unmarshal(rspBytes, &rsp); err != nil {
			return err
		}
		fmt.Printf("echoed: %s\n", string(rsp.Content))
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show [type]",
	Short: "Page through a system-table show session (e.g. dnodes)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := dialTarget(cmd)
		if err != nil {
			return err
		}
		defer client.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		showReq, _ := json.Marshal(types.ShowReq{Type: types.ShowType(args[0])})
		showRspBytes, err := client.Route(ctx, types.MsgShow, types.ShardNone, showReq)
		if err != nil {
			return err
		}

		var showRsp types.ShowRsp
		if err := json.Unmarshal(showRspBytes, &showRsp); err != nil {
			return err
		}

		for {
			retrieveReq, _ := json.Marshal(types.RetrieveReq{ShowID: showRsp.ShowID})
			retrieveRspBytes, err := client.Route(ctx, types.MsgShowRetrieve, types.ShardNone, retrieveReq)
			if err != nil {
				return err
			}

			var retrieveRsp types.RetrieveRsp
			if err := json.Unmarshal(retrieveRspBytes, &retrieveRsp); err != nil {
				return err
			}

			if retrieveRsp.NumOfRows > 0 {
				fmt.Printf("%s\n", string(retrieveRsp.Data))
			}
			if retrieveRsp.Completed {
				break
			}
		}
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{statusCmd, netTestCmd, showCmd} {
		c.Flags().String("addr", "127.0.0.1:6030", "Target node's transport address")
	}
}
