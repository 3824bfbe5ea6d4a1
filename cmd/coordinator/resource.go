package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cuemby/raftcoord/pkg/config"
	"github.com/cuemby/raftcoord/pkg/coordinator"
	"github.com/cuemby/raftcoord/pkg/resource"
)

// The get/acquire/release subcommands each stand up a Coordinator bound
// to the same config and data directory a running "serve" process uses,
// perform one operation, and tear it back down. get_resource/
// acquire_resource/release_resource are Coordinator-local operations
// with no RPC surface of their own (see DESIGN.md); this is the CLI's
// only way to drive them outside of an already-running process.
var resourceCmd = &cobra.Command{
	Use:   "resource",
	Short: "Inspect and drive a resource's lifecycle against local Raft state",
}

var resourceGetCmd = &cobra.Command{
	Use:   "get NAME",
	Short: "Create (or report) the holder for a named resource",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, _, err := openLocalCoordinator(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		kind, _ := cmd.Flags().GetString("kind")
		replicas, _ := cmd.Flags().GetStringSlice("replicas")

		_, err = c.GetResource(args[0], config.ResourceConfig{
			Kind:     resource.Kind(kind),
			Replicas: replicas,
		})
		if err != nil {
			return fmt.Errorf("get_resource %q: %w", args[0], err)
		}
		fmt.Printf("resource %q registered (kind=%s, replicas=%v)\n", args[0], kind, replicas)
		return nil
	},
}

var resourceAcquireCmd = &cobra.Command{
	Use:   "acquire NAME",
	Short: "Open a registered resource's cluster and state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, _, err := openLocalCoordinator(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		if err := c.AcquireResource(args[0]); err != nil {
			return fmt.Errorf("acquire_resource %q: %w", args[0], err)
		}
		fmt.Printf("resource %q acquired\n", args[0])
		return nil
	},
}

var resourceReleaseCmd = &cobra.Command{
	Use:   "release NAME",
	Short: "Close a resource's cluster and state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, _, err := openLocalCoordinator(cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		if err := c.ReleaseResource(args[0]); err != nil {
			return fmt.Errorf("release_resource %q: %w", args[0], err)
		}
		fmt.Printf("resource %q released\n", args[0])
		return nil
	},
}

func init() {
	addConfigFlags(resourceGetCmd)
	resourceGetCmd.Flags().String("kind", string(resource.AtomicBoolean), "Resource kind (ATOMIC_BOOLEAN, ATOMIC_REFERENCE, STATE_LOG, MAP, SET)")
	resourceGetCmd.Flags().StringSlice("replicas", nil, "Subset of members replicating this resource (empty means local only)")

	addConfigFlags(resourceAcquireCmd)
	addConfigFlags(resourceReleaseCmd)

	resourceCmd.AddCommand(resourceGetCmd)
	resourceCmd.AddCommand(resourceAcquireCmd)
	resourceCmd.AddCommand(resourceReleaseCmd)
}

func openLocalCoordinator(cmd *cobra.Command) (*coordinator.Coordinator, *config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	c, err := coordinator.New(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("create coordinator: %w", err)
	}
	if err := c.Open(); err != nil {
		return nil, nil, fmt.Errorf("open coordinator: %w", err)
	}
	return c, cfg, nil
}
