package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"smartcache/pkg/cacheerrors"
	"smartcache/pkg/cluster"
	"smartcache/pkg/config"
	"smartcache/pkg/metrics"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "smartcache.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestInitConfig_MissingFileUsesDefault(t *testing.T) {
	cfg, err := initConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Equal(t, config.Default(), cfg)
}

func TestInitConfig_InvalidIsRejected(t *testing.T) {
	_, err := initConfig(writeConfig(t, "cache:\n  mode: mirror\n"))
	require.ErrorIs(t, err, cacheerrors.ErrConfiguration)
}

func TestInitRouter_ReplicaModeEndToEnd(t *testing.T) {
	path := writeConfig(t, `
cache:
  mode: replica
  near_cache:
    capacity: 10
topology:
  source: file
  nodes:
    - {name: m, host: memory, port: 1, weight: 1, role: master}
    - {name: r, host: memory, port: 2, weight: 1, role: replica}
`)
	cfg, err := initConfig(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	router, err := initRouter(ctx, &cfg, metrics.NewRegistry())
	require.NoError(t, err)
	defer router.Close()

	r, ok := router.(*cluster.ReplicaRouter)
	require.True(t, ok)
	require.Equal(t, cluster.RoleMaster, r.Master().Desc.Role)

	c, err := initCache(ctx, &cfg, router)
	require.NoError(t, err)
	require.NoError(t, c.Set(ctx, "k", "v"))
	// near cache отдаёт значение, хотя реплика пуста
	v, found, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "v", v)
}

func TestInitRouter_DefaultShards(t *testing.T) {
	cfg := config.Default()
	router, err := initRouter(context.Background(), &cfg, metrics.Nop{})
	require.NoError(t, err)
	defer router.Close()

	r, ok := router.(*cluster.ShardRouter)
	require.True(t, ok)
	require.Len(t, r.Nodes(), 4)
}
