package main

import (
	"github.com/spf13/cobra"

	"github.com/cuemby/raftcoord/pkg/config"
)

func addConfigFlags(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "Path to a YAML config file (overrides the flags below)")
	cmd.Flags().String("local-member", "127.0.0.1:7946", "This node's own member URI")
	cmd.Flags().StringSlice("members", nil, "Comma-separated member URIs, local-member included")
	cmd.Flags().String("data-dir", "", "Data directory for Raft log/snapshot storage (empty runs in memory)")
}

// loadConfig builds a Config from --config if set, otherwise from the
// discrete flags addConfigFlags registered.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path != "" {
		return config.Load(path)
	}

	cfg := config.Default()
	cfg.LocalMember, _ = cmd.Flags().GetString("local-member")
	members, _ := cmd.Flags().GetStringSlice("members")
	cfg.Members = members
	cfg.DataDir, _ = cmd.Flags().GetString("data-dir")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
