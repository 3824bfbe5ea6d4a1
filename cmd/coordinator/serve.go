package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cuemby/raftcoord/pkg/api"
	"github.com/cuemby/raftcoord/pkg/coordinator"
	"github.com/cuemby/raftcoord/pkg/log"
	"github.com/cuemby/raftcoord/pkg/metrics"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run this node's coordinator: open the global cluster and serve the admin API",
	RunE:  runServe,
}

func init() {
	addConfigFlags(serveCmd)
	serveCmd.Flags().String("api-addr", "127.0.0.1:8080", "Admin gRPC API address")
	serveCmd.Flags().String("metrics-addr", "127.0.0.1:9090", "Metrics/health HTTP address")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	apiAddr, _ := cmd.Flags().GetString("api-addr")
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

	c, err := coordinator.New(cfg)
	if err != nil {
		return fmt.Errorf("create coordinator: %w", err)
	}
	if err := c.Open(); err != nil {
		return fmt.Errorf("open coordinator: %w", err)
	}
	fmt.Printf("coordinator open, local member %s\n", cfg.LocalMember)

	metrics.SetVersion(Version)
	metrics.RegisterComponent("raft", true, "bootstrapped")
	metrics.RegisterComponent("member", true, "listening")

	collector := metrics.NewCollector(c)
	collector.Start()

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		mux.Handle("/health", metrics.HealthHandler())
		mux.Handle("/ready", metrics.ReadyHandler())
		mux.Handle("/live", metrics.LivenessHandler())
		if err := http.ListenAndServe(metricsAddr, mux); err != nil {
			log.Logger.Error().Err(err).Msg("metrics server stopped")
		}
	}()
	fmt.Printf("metrics/health listening on http://%s\n", metricsAddr)

	apiServer := api.NewServer(c)
	apiErrCh := make(chan error, 1)
	go func() {
		if err := apiServer.Start(apiAddr); err != nil {
			apiErrCh <- err
		}
	}()
	time.Sleep(200 * time.Millisecond)
	metrics.RegisterComponent("api", true, "ready")
	fmt.Printf("admin api listening on %s\n", apiAddr)

	joinToken, err := apiServer.GenerateJoinToken("member", 24*time.Hour)
	if err == nil {
		fmt.Println()
		fmt.Println("Join token (valid 24h):")
		fmt.Printf("  %s\n", joinToken.Token)
		fmt.Printf("  coordinator members join --leader %s --uri <new-node-uri> --token %s\n", apiAddr, joinToken.Token)
		fmt.Println()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		fmt.Println("shutting down...")
	case err := <-apiErrCh:
		fmt.Fprintf(os.Stderr, "admin api error: %v\n", err)
	}

	collector.Stop()
	apiServer.Stop()
	if err := c.Close(); err != nil {
		return fmt.Errorf("close coordinator: %w", err)
	}
	fmt.Println("shutdown complete")
	return nil
}
