package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/cuemby/raftcoord/pkg/api"
)

var membersCmd = &cobra.Command{
	Use:   "members",
	Short: "Inspect and change global cluster membership",
}

var membersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the members this node's local Raft state currently knows about",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, _, err := openLocalCoordinator(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		for _, m := range c.Members() {
			fmt.Printf("%s\t%s\t%s\n", m.URI, m.Type, m.Status)
		}
		return nil
	},
}

var membersStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Query a running node's admin API for cluster status",
	RunE: func(cmd *cobra.Command, args []string) error {
		leader, _ := cmd.Flags().GetString("leader")
		client, conn, err := dialAdmin(leader)
		if err != nil {
			return err
		}
		defer conn.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		status, err := client.ClusterStatus(ctx, &api.ClusterStatusRequest{})
		if err != nil {
			return fmt.Errorf("cluster status: %w", err)
		}
		fmt.Printf("local_member: %s\n", status.LocalMember)
		fmt.Printf("is_leader:    %v\n", status.IsLeader)
		fmt.Printf("leader_addr:  %s\n", status.LeaderAddr)
		for _, m := range status.Members {
			fmt.Printf("  %s\t%s\t%s\n", m.URI, m.Type, m.Status)
		}
		return nil
	},
}

var membersJoinCmd = &cobra.Command{
	Use:   "join",
	Short: "Ask a leader's admin API to admit this node's uri as a voting member",
	RunE: func(cmd *cobra.Command, args []string) error {
		leader, _ := cmd.Flags().GetString("leader")
		uri, _ := cmd.Flags().GetString("uri")
		token, _ := cmd.Flags().GetString("token")

		client, conn, err := dialAdmin(leader)
		if err != nil {
			return err
		}
		defer conn.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		resp, err := client.JoinCluster(ctx, &api.JoinClusterRequest{URI: uri, Token: token})
		if err != nil {
			return fmt.Errorf("join cluster: %w", err)
		}
		if !resp.Accepted {
			return fmt.Errorf("join rejected: %s", resp.Reason)
		}
		fmt.Printf("%s admitted\n", uri)
		return nil
	},
}

func init() {
	addConfigFlags(membersListCmd)

	membersStatusCmd.Flags().String("leader", "127.0.0.1:8080", "Admin API address of any cluster member")

	membersJoinCmd.Flags().String("leader", "127.0.0.1:8080", "Admin API address of the cluster leader")
	membersJoinCmd.Flags().String("uri", "", "URI of the node to admit")
	membersJoinCmd.Flags().String("token", "", "Join token issued by the leader's serve process")

	membersCmd.AddCommand(membersListCmd)
	membersCmd.AddCommand(membersStatusCmd)
	membersCmd.AddCommand(membersJoinCmd)
}

func dialAdmin(addr string) (api.AdminClient, *grpc.ClientConn, error) {
	cc, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return api.NewAdminClient(cc), cc, nil
}
