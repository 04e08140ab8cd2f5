package cluster

import (
	"context"
	"sync"

	"smartcache/pkg/store"
)

// MemoryHost is the host name that selects an in-process store node.
const MemoryHost = "memory"

// DefaultDialer connects to a Redis server.
func DefaultDialer(_ context.Context, d Descriptor) (store.Conn, error) {
	return store.NewRedis(string(d.Identity()), d.Addr(), d.DB), nil
}

// MemoryNodes hands out in-process store servers, one per name:host:port, so
// descriptors that differ only by db share a server like they would on Redis.
type MemoryNodes struct {
	mu      sync.Mutex
	servers map[string]*store.MemoryServer
	opts    []store.MemoryOption
}

func NewMemoryNodes(opts ...store.MemoryOption) *MemoryNodes {
	return &MemoryNodes{
		servers: make(map[string]*store.MemoryServer),
		opts:    opts,
	}
}

// Server returns the server behind d, creating it on first use.
func (m *MemoryNodes) Server(d Descriptor) *store.MemoryServer {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := d.Name + ":" + d.Addr()
	srv, ok := m.servers[key]
	if !ok {
		srv = store.NewMemoryServer(m.opts...)
		m.servers[key] = srv
	}
	return srv
}

func (m *MemoryNodes) Dial(_ context.Context, d Descriptor) (store.Conn, error) {
	return m.Server(d).Conn(d.DB), nil
}

// DialerFor sends MemoryHost descriptors to memory and everything else to Redis.
func DialerFor(memory *MemoryNodes) Dialer {
	return func(ctx context.Context, d Descriptor) (store.Conn, error) {
		if d.Host == MemoryHost {
			return memory.Dial(ctx, d)
		}
		return DefaultDialer(ctx, d)
	}
}
