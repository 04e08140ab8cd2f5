package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"smartcache/internal/http"
	"smartcache/pkg/cluster"
	"smartcache/pkg/config"
	"smartcache/pkg/metrics"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "smartcache",
	Short: "Sharding and replica routing layer in front of Redis nodes",
	Long: `smartcache routes cache operations to a set of Redis-protocol nodes.
In shard mode keys are spread over the nodes with consistent hashing; in
replica mode writes go to the master and reads to a random replica.`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP gateway",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		cfg, err := initConfig(cfgFile)
		if err != nil {
			return err
		}
		initLogger(&cfg)
		return serve(ctx, &cfg)
	},
}

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Write the configured nodes to ZooKeeper",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := initConfig(cfgFile)
		if err != nil {
			return err
		}
		initLogger(&cfg)
		return publish(cmd.Context(), &cfg)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "smartcache.yaml", "config file")
	rootCmd.AddCommand(serveCmd, publishCmd)
}

func serve(ctx context.Context, cfg *config.Config) error {
	reg := metrics.NewRegistry()

	router, err := initRouter(ctx, cfg, reg)
	if err != nil {
		return err
	}
	defer func() {
		if err := router.Close(); err != nil {
			slog.Warn("closing node connections", "error", err)
		}
	}()

	c, err := initCache(ctx, cfg, router)
	if err != nil {
		return err
	}

	server := http.NewServer(c, reg, cfg.Server.Port, cfg.Server.ReadHeaderTimeout)
	if err := server.Start(); err != nil {
		return err
	}
	slog.Info("smartcache is running", "mode", cfg.Cache.Mode, "url", server.URL)

	<-ctx.Done()

	if err := server.Stop(); err != nil {
		return fmt.Errorf("stop server: %w", err)
	}
	slog.Info("smartcache stopped")
	return nil
}

func publish(ctx context.Context, cfg *config.Config) error {
	zkCfg := cfg.Topology.ZooKeeper
	if len(zkCfg.Servers) == 0 {
		return fmt.Errorf("topology.zookeeper.servers is empty")
	}
	zk, err := cluster.NewZKTopology(zkCfg.Servers, zkCfg.Root)
	if err != nil {
		return err
	}
	defer zk.Close()

	for _, d := range cfg.Topology.Nodes {
		if err := zk.Publish(ctx, d); err != nil {
			return err
		}
	}
	slog.Info("topology published", "root", zkCfg.Root, "nodes", len(cfg.Topology.Nodes))
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
