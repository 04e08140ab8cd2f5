package cluster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"smartcache/pkg/cacheerrors"
	"smartcache/pkg/store"
)

// Dialer opens the connection for one node.
type Dialer func(ctx context.Context, d Descriptor) (store.Conn, error)

// Registry holds exactly one connection per node identity. It is immutable
// after construction and safe for concurrent Get.
type Registry struct {
	nodes map[Identity]*Node
	order []Identity
}

// NewRegistry dials every descriptor once and probes its server version.
// A failed probe leaves the node's capabilities unknown; it is not fatal.
func NewRegistry(ctx context.Context, descs []Descriptor, dial Dialer) (*Registry, error) {
	if dial == nil {
		dial = DefaultDialer
	}

	reg := &Registry{nodes: make(map[Identity]*Node, len(descs))}
	for _, d := range descs {
		if err := d.validate(); err != nil {
			_ = reg.Close()
			return nil, err
		}
		id := d.Identity()
		if _, dup := reg.nodes[id]; dup {
			_ = reg.Close()
			return nil, cacheerrors.Configf("duplicate node identity %q", id)
		}

		conn, err := dial(ctx, d)
		if err != nil {
			_ = reg.Close()
			return nil, fmt.Errorf("dial %s: %w", id, err)
		}

		node := &Node{ID: id, Desc: d, Conn: conn}
		if version, err := conn.ServerVersion(ctx); err != nil {
			slog.Warn("capability probe failed, batched writes will fall back on rejection",
				"node", id, "error", err)
		} else {
			node.Caps = capabilitiesFor(version)
		}

		reg.nodes[id] = node
		reg.order = append(reg.order, id)
		slog.Debug("node registered", "node", id, "role", d.Role, "version", node.Caps.Version)
	}
	return reg, nil
}

// Get returns the node registered under id. Asking for an unknown identity is
// a programming error and panics.
func (r *Registry) Get(id Identity) *Node {
	n, ok := r.nodes[id]
	if !ok {
		panic(fmt.Sprintf("cluster: node %q is not registered", id))
	}
	return n
}

// Nodes returns the registered nodes in configuration order.
func (r *Registry) Nodes() []*Node {
	out := make([]*Node, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.nodes[id])
	}
	return out
}

func (r *Registry) Len() int { return len(r.order) }

// Close closes every connection the registry owns.
func (r *Registry) Close() error {
	var errs []error
	for _, id := range r.order {
		if err := r.nodes[id].Conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}
