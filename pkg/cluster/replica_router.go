package cluster

import (
	"context"
	"log/slog"
	"math/rand"

	"smartcache/pkg/cacheerrors"
)

// ReplicaRouter sends writes to the single master and spreads reads over the
// replicas. With no replicas configured reads go to the master too.
type ReplicaRouter struct {
	registry *Registry
	master   *Node
	replicas []*Node
	opts     routerOptions
}

// NewReplicaRouter needs exactly one master. Shard-role nodes are rejected.
func NewReplicaRouter(ctx context.Context, descs []Descriptor, opts ...RouterOption) (*ReplicaRouter, error) {
	o := buildOptions(opts)
	if o.pick == nil {
		o.pick = rand.Intn
	}

	masters := 0
	for _, d := range descs {
		switch d.Role {
		case RoleMaster:
			masters++
		case RoleShard:
			return nil, cacheerrors.Configf("replica router: node %q has role %q", d.Identity(), d.Role)
		}
	}
	if masters != 1 {
		return nil, cacheerrors.Configf("replica router: exactly one master required, got %d", masters)
	}

	registry, err := NewRegistry(ctx, descs, o.dial)
	if err != nil {
		return nil, err
	}

	r := &ReplicaRouter{registry: registry, opts: o}
	for _, n := range registry.Nodes() {
		if n.Desc.Role == RoleMaster {
			r.master = n
		} else {
			r.replicas = append(r.replicas, n)
		}
	}

	slog.Info("replica router ready", "master", r.master.ID, "replicas", len(r.replicas))
	return r, nil
}

// RouteWrite always returns the master.
func (r *ReplicaRouter) RouteWrite() *Node {
	return r.master
}

// RouteRead picks a replica uniformly at random. The key does not take part.
func (r *ReplicaRouter) RouteRead(_ string) *Node {
	if len(r.replicas) == 0 {
		return r.master
	}
	return r.replicas[r.opts.pick(len(r.replicas))]
}

func (r *ReplicaRouter) Master() *Node { return r.master }

func (r *ReplicaRouter) Replicas() []*Node { return r.replicas }

func (r *ReplicaRouter) ForRead(key string) *Node {
	n := r.RouteRead(key)
	r.opts.collector.IncCounter("routes_total", map[string]string{"node": string(n.ID), "kind": "read"}, 1)
	return n
}

func (r *ReplicaRouter) ForWrite(_ string) *Node {
	n := r.RouteWrite()
	r.opts.collector.IncCounter("routes_total", map[string]string{"node": string(n.ID), "kind": "write"}, 1)
	return n
}

func (r *ReplicaRouter) Nodes() []*Node { return r.registry.Nodes() }

func (r *ReplicaRouter) Close() error { return r.registry.Close() }
