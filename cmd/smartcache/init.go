package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/goccy/go-yaml"

	"smartcache/pkg/cache"
	"smartcache/pkg/cluster"
	"smartcache/pkg/config"
	"smartcache/pkg/encoding"
	"smartcache/pkg/metrics"
	"smartcache/pkg/objcache"
)

// initConfig загружает конфиг из файла YAML. Если файл не найден, возвращается config.Default().
func initConfig(path string) (config.Config, error) {
	cfg := config.Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Info("config file not found, using default config", "path", path)
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// initLogger настраивает глобальный slog.Logger (JSON или текстовый).
func initLogger(cfg *config.Config) {
	opts := &slog.HandlerOptions{AddSource: true, Level: cfg.Logger.SlogLevel()}
	var handler slog.Handler
	if cfg.Logger.JSON {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	slog.Info("logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON)
}

// loadTopology returns the node list from the config file or ZooKeeper.
func loadTopology(ctx context.Context, cfg *config.Config) ([]cluster.Descriptor, error) {
	if cfg.Topology.Source != config.SourceZooKeeper {
		return cfg.Topology.Nodes, nil
	}

	zk, err := cluster.NewZKTopology(cfg.Topology.ZooKeeper.Servers, cfg.Topology.ZooKeeper.Root)
	if err != nil {
		return nil, err
	}
	defer zk.Close()
	return zk.Load(ctx)
}

type cacheRouter interface {
	cache.Router
	io.Closer
}

// initRouter builds the router the configured mode asks for.
func initRouter(ctx context.Context, cfg *config.Config, collector metrics.Collector) (cacheRouter, error) {
	descs, err := loadTopology(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("load topology: %w", err)
	}
	hash, err := cluster.HashByName(cfg.Cache.RingHash)
	if err != nil {
		return nil, err
	}

	opts := []cluster.RouterOption{
		cluster.WithDialer(cluster.DialerFor(cluster.NewMemoryNodes())),
		cluster.WithRingHash(hash),
		cluster.WithCollector(collector),
	}
	if cfg.Cache.Mode == config.ModeReplica {
		r, err := cluster.NewReplicaRouter(ctx, descs, opts...)
		if err != nil {
			return nil, err
		}
		return r, nil
	}
	r, err := cluster.NewShardRouter(ctx, descs, opts...)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// initCache wires the facade. The near cache sweeper stops with ctx.
func initCache(ctx context.Context, cfg *config.Config, router cache.Router) (*cache.Cache, error) {
	ser, err := encoding.ByName(cfg.Cache.Serializer)
	if err != nil {
		return nil, err
	}
	opts := []cache.Option{
		cache.WithSerializer(ser),
		cache.WithDefaultTTL(cfg.Cache.DefaultTTL),
	}

	if nc := cfg.Cache.NearCache; nc.Capacity > 0 {
		near := objcache.New(objcache.WithCapacity(nc.Capacity), objcache.WithTTL(nc.TTL))
		if nc.SweepInterval > 0 {
			go near.Run(ctx, nc.SweepInterval)
		}
		opts = append(opts, cache.WithNearCache(near))
		slog.Info("near cache enabled", "capacity", nc.Capacity, "ttl", nc.TTL)
	}

	return cache.New(router, opts...), nil
}
