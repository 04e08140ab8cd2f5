package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/stretchr/testify/require"

	"smartcache/pkg/cacheerrors"
	"smartcache/pkg/cluster"
)

func TestDefault_IsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestConfig_ParsesYAML(t *testing.T) {
	data := []byte(`
logger:
  level: warn
  json: true
http-server:
  port: 9090
cache:
  mode: replica
  default_ttl: 1h
  serializer: json
  ring_hash: murmur3
  near_cache:
    capacity: 1000
    ttl: 10s
topology:
  source: file
  nodes:
    - {name: master, host: 10.0.0.1, port: 6379, db: 0, weight: 1, role: master}
    - {name: replica1, host: 10.0.0.2, port: 6379, db: 0, weight: 1, role: replica}
`)
	cfg := Default()
	require.NoError(t, yaml.Unmarshal(data, &cfg))
	require.NoError(t, cfg.Validate())

	require.Equal(t, slog.LevelWarn, cfg.Logger.SlogLevel())
	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, ModeReplica, cfg.Cache.Mode)
	require.Equal(t, time.Hour, cfg.Cache.DefaultTTL)
	require.Equal(t, 1000, cfg.Cache.NearCache.Capacity)
	require.Equal(t, 10*time.Second, cfg.Cache.NearCache.TTL)
	require.Len(t, cfg.Topology.Nodes, 2)
	require.Equal(t, cluster.RoleReplica, cfg.Topology.Nodes[1].Role)
	require.Equal(t, cluster.Identity("master:10.0.0.1:6379:0"), cfg.Topology.Nodes[0].Identity())
}

func TestConfig_ValidateRejects(t *testing.T) {
	cases := map[string]func(c *Config){
		"level":      func(c *Config) { c.Logger.Level = "loud" },
		"port":       func(c *Config) { c.Server.Port = 0 },
		"mode":       func(c *Config) { c.Cache.Mode = "mirror" },
		"serializer": func(c *Config) { c.Cache.Serializer = "gob" },
		"ring hash":  func(c *Config) { c.Cache.RingHash = "sha1" },
		"near cache": func(c *Config) { c.Cache.NearCache.Capacity = -1 },
		"source":     func(c *Config) { c.Topology.Source = "consul" },
		"no nodes":   func(c *Config) { c.Topology.Nodes = nil },
		"no zk servers": func(c *Config) {
			c.Topology.Source = SourceZooKeeper
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			require.ErrorIs(t, cfg.Validate(), cacheerrors.ErrConfiguration)
		})
	}
}
