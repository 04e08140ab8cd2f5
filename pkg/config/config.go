package config

import (
	"log/slog"
	"strings"
	"time"

	"smartcache/pkg/cacheerrors"
	"smartcache/pkg/cluster"
	"smartcache/pkg/encoding"
)

// Config - корневая структура конфигурации приложения
type Config struct {
	Logger   LoggerConfig   `yaml:"logger"`
	Server   ServerConfig   `yaml:"http-server"`
	Cache    CacheConfig    `yaml:"cache"`
	Topology TopologyConfig `yaml:"topology"`
}

type LoggerConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

type ServerConfig struct {
	Port              int           `yaml:"port"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
}

const (
	ModeShard   = "shard"
	ModeReplica = "replica"
)

type CacheConfig struct {
	Mode       string          `yaml:"mode"`
	DefaultTTL time.Duration   `yaml:"default_ttl"`
	Serializer string          `yaml:"serializer"`
	RingHash   string          `yaml:"ring_hash"`
	NearCache  NearCacheConfig `yaml:"near_cache"`
}

// NearCacheConfig: Capacity 0 disables the near cache.
type NearCacheConfig struct {
	Capacity      int           `yaml:"capacity"`
	TTL           time.Duration `yaml:"ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

const (
	SourceFile      = "file"
	SourceZooKeeper = "zookeeper"
)

type TopologyConfig struct {
	Source    string               `yaml:"source"`
	ZooKeeper ZooKeeperConfig      `yaml:"zookeeper"`
	Nodes     []cluster.Descriptor `yaml:"nodes"`
}

type ZooKeeperConfig struct {
	Servers []string `yaml:"servers"`
	Root    string   `yaml:"root"`
}

// Default returns a baseline development config: four in-process shards.
func Default() Config {
	nodes := make([]cluster.Descriptor, 0, 4)
	for _, name := range []string{"shard1", "shard2", "shard3", "shard4"} {
		nodes = append(nodes, cluster.Descriptor{
			Name:   name,
			Host:   cluster.MemoryHost,
			Port:   6379,
			Weight: 100,
			Role:   cluster.RoleShard,
		})
	}
	return Config{
		Logger: LoggerConfig{
			Level: "DEBUG",
			JSON:  false,
		},
		Server: ServerConfig{
			Port:              8080,
			ReadHeaderTimeout: 5 * time.Second,
		},
		Cache: CacheConfig{
			Mode:       ModeShard,
			DefaultTTL: 24 * time.Hour,
			Serializer: "binary",
			RingHash:   "crc32",
			NearCache: NearCacheConfig{
				TTL:           30 * time.Second,
				SweepInterval: time.Minute,
			},
		},
		Topology: TopologyConfig{
			Source: SourceFile,
			ZooKeeper: ZooKeeperConfig{
				Root: "/smartcache",
			},
			Nodes: nodes,
		},
	}
}

// Validate checks the fields the application cannot start without.
// Node descriptors are validated later, when the registry is built.
func (c Config) Validate() error {
	if _, ok := parseLevel(c.Logger.Level); !ok {
		return cacheerrors.Configf("logger.level: unknown level %q", c.Logger.Level)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return cacheerrors.Configf("http-server.port: %d out of range", c.Server.Port)
	}
	switch c.Cache.Mode {
	case ModeShard, ModeReplica:
	default:
		return cacheerrors.Configf("cache.mode: %q is neither %q nor %q", c.Cache.Mode, ModeShard, ModeReplica)
	}
	if _, err := encoding.ByName(c.Cache.Serializer); err != nil {
		return err
	}
	if _, err := cluster.HashByName(c.Cache.RingHash); err != nil {
		return err
	}
	if c.Cache.NearCache.Capacity < 0 {
		return cacheerrors.Configf("cache.near_cache.capacity: negative")
	}

	switch c.Topology.Source {
	case SourceFile:
		if len(c.Topology.Nodes) == 0 {
			return cacheerrors.Configf("topology.nodes: empty")
		}
	case SourceZooKeeper:
		if len(c.Topology.ZooKeeper.Servers) == 0 {
			return cacheerrors.Configf("topology.zookeeper.servers: empty")
		}
		if c.Topology.ZooKeeper.Root == "" {
			return cacheerrors.Configf("topology.zookeeper.root: empty")
		}
	default:
		return cacheerrors.Configf("topology.source: unknown source %q", c.Topology.Source)
	}
	return nil
}

// SlogLevel maps the configured level; unknown levels fall back to INFO.
func (l LoggerConfig) SlogLevel() slog.Level {
	lvl, _ := parseLevel(l.Level)
	return lvl
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug, true
	case "INFO":
		return slog.LevelInfo, true
	case "WARN":
		return slog.LevelWarn, true
	case "ERROR":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}
