package cluster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/go-zookeeper/zk"
	"github.com/goccy/go-yaml"

	"smartcache/pkg/cacheerrors"
)

// ZKTopology keeps node descriptors under <root>/nodes, one znode per node,
// each holding a YAML descriptor. The topology is read once at startup.
type ZKTopology struct {
	conn     *zk.Conn
	rootPath string
}

// servers: ["zk1:2181", "zk2:2181"]
func NewZKTopology(servers []string, rootPath string) (*ZKTopology, error) {
	conn, _, err := zk.Connect(servers, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("zk connect: %w", err)
	}
	return &ZKTopology{
		conn:     conn,
		rootPath: path.Clean("/" + rootPath),
	}, nil
}

func (t *ZKTopology) Close() error {
	t.conn.Close()
	return nil
}

func (t *ZKTopology) nodesPath() string {
	return t.rootPath + "/nodes"
}

func (t *ZKTopology) ensurePath(p string) error {
	parts := strings.Split(p, "/")
	cur := ""
	for _, part := range parts {
		if part == "" {
			continue
		}
		cur = cur + "/" + part
		exists, _, err := t.conn.Exists(cur)
		if err != nil {
			return err
		}
		if !exists {
			_, err = t.conn.Create(cur, nil, 0, zk.WorldACL(zk.PermAll))
			if err != nil && !errors.Is(err, zk.ErrNodeExists) {
				return err
			}
		}
	}
	return nil
}

// Publish writes (or overwrites) the descriptor for d under its identity.
func (t *ZKTopology) Publish(ctx context.Context, d Descriptor) error {
	if err := d.validate(); err != nil {
		return err
	}
	if err := t.waitConnected(ctx, 10*time.Second); err != nil {
		return err
	}
	if err := t.ensurePath(t.nodesPath()); err != nil {
		return fmt.Errorf("ensure nodes path: %w", err)
	}

	data, err := yaml.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal descriptor: %w", err)
	}

	nodePath := t.nodesPath() + "/" + string(d.Identity())
	_, err = t.conn.Create(nodePath, data, 0, zk.WorldACL(zk.PermAll))
	if errors.Is(err, zk.ErrNodeExists) {
		_, err = t.conn.Set(nodePath, data, -1)
	}
	if err != nil {
		return fmt.Errorf("publish %s: %w", nodePath, err)
	}

	slog.Info("zk: node published", "path", nodePath)
	return nil
}

// Load reads every descriptor under <root>/nodes, ordered by znode name.
func (t *ZKTopology) Load(ctx context.Context) ([]Descriptor, error) {
	if err := t.waitConnected(ctx, 10*time.Second); err != nil {
		return nil, err
	}

	children, _, err := t.conn.Children(t.nodesPath())
	if err != nil {
		return nil, fmt.Errorf("zk children %s: %w", t.nodesPath(), err)
	}
	sort.Strings(children)

	descs := make([]Descriptor, 0, len(children))
	for _, child := range children {
		data, _, err := t.conn.Get(t.nodesPath() + "/" + child)
		if err != nil {
			return nil, fmt.Errorf("zk get %s: %w", child, err)
		}
		d, err := parseDescriptor(child, data)
		if err != nil {
			return nil, err
		}
		descs = append(descs, d)
	}

	slog.Info("zk: topology loaded", "root", t.rootPath, "nodes", len(descs))
	return descs, nil
}

// parseDescriptor decodes a znode payload. A descriptor without weight gets 1.
func parseDescriptor(child string, data []byte) (Descriptor, error) {
	var d Descriptor
	if len(data) == 0 {
		return d, cacheerrors.Configf("zk node %q: empty descriptor", child)
	}
	if err := yaml.Unmarshal(data, &d); err != nil {
		return d, cacheerrors.Configf("zk node %q: %v", child, err)
	}
	if d.Weight == 0 {
		d.Weight = 1
	}
	if err := d.validate(); err != nil {
		return d, err
	}
	return d, nil
}

func (t *ZKTopology) waitConnected(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		st := t.conn.State()
		if st == zk.StateConnected || st == zk.StateHasSession {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("zk: not connected after %s, state=%v", timeout, st)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}
}
