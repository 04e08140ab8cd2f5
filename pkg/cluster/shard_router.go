package cluster

import (
	"context"
	"log/slog"

	"smartcache/pkg/cacheerrors"
)

// ShardRouter places every key on exactly one shard node via the hash ring.
// Ring and registry never change after construction.
type ShardRouter struct {
	ring     *HashRing
	registry *Registry
	opts     routerOptions
}

// NewShardRouter registers every shard-role node and builds the ring over them
// using their declared weights. Other roles are skipped.
func NewShardRouter(ctx context.Context, descs []Descriptor, opts ...RouterOption) (*ShardRouter, error) {
	o := buildOptions(opts)

	shards := make([]Descriptor, 0, len(descs))
	for _, d := range descs {
		if d.Role != RoleShard {
			slog.Warn("shard router: skipping non-shard node", "node", d.Identity(), "role", d.Role)
			continue
		}
		shards = append(shards, d)
	}
	if len(shards) == 0 {
		return nil, cacheerrors.Configf("shard router: no nodes with role %q", RoleShard)
	}

	weighted := make([]WeightedNode, 0, len(shards))
	for _, d := range shards {
		weighted = append(weighted, WeightedNode{ID: d.Identity(), Weight: d.Weight})
	}
	ring, err := NewHashRing(weighted, WithHash(o.hash))
	if err != nil {
		return nil, err
	}

	registry, err := NewRegistry(ctx, shards, o.dial)
	if err != nil {
		return nil, err
	}

	slog.Info("shard router ready", "nodes", ring.ListNodes())
	return &ShardRouter{ring: ring, registry: registry, opts: o}, nil
}

// ServerFor returns the identity of the node owning key.
func (r *ShardRouter) ServerFor(key string) Identity {
	id, ok := r.ring.GetNode(key)
	if !ok {
		// кольцо строится только непустым и потом не меняется
		panic("cluster: shard ring is empty")
	}
	return id
}

// Route returns the node owning key.
func (r *ShardRouter) Route(key string) *Node {
	return r.registry.Get(r.ServerFor(key))
}

func (r *ShardRouter) ForRead(key string) *Node {
	n := r.Route(key)
	r.opts.collector.IncCounter("routes_total", map[string]string{"node": string(n.ID), "kind": "read"}, 1)
	return n
}

func (r *ShardRouter) ForWrite(key string) *Node {
	n := r.Route(key)
	r.opts.collector.IncCounter("routes_total", map[string]string{"node": string(n.ID), "kind": "write"}, 1)
	return n
}

func (r *ShardRouter) Nodes() []*Node { return r.registry.Nodes() }

func (r *ShardRouter) Close() error { return r.registry.Close() }
