// Package cache is the public entry point: it routes each operation to a node,
// serializes values on the way in and decodes them on the way out.
package cache

import (
	"log/slog"
	"time"

	"smartcache/pkg/cluster"
	"smartcache/pkg/commands"
	"smartcache/pkg/encoding"
	"smartcache/pkg/objcache"
)

// DefaultTTL is re-applied by Set, HSet and ZAdd unless overridden per call.
const DefaultTTL = 24 * time.Hour

// Router resolves the node that serves key. Both cluster routers satisfy it.
type Router interface {
	ForRead(key string) *cluster.Node
	ForWrite(key string) *cluster.Node
	Nodes() []*cluster.Node
}

type Cache struct {
	router Router
	ser    encoding.Serializer
	ttl    time.Duration
	near   *objcache.Cache
}

type Option func(*Cache)

func WithSerializer(s encoding.Serializer) Option {
	return func(c *Cache) { c.ser = s }
}

// WithDefaultTTL changes the expiry Set, HSet and ZAdd apply. Zero or less disables it.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.ttl = ttl }
}

// WithNearCache keeps decoded string values in process. Writes through this
// Cache update or drop the near entry; writes by other clients are not seen
// until the near entry expires.
func WithNearCache(near *objcache.Cache) Option {
	return func(c *Cache) { c.near = near }
}

func New(router Router, opts ...Option) *Cache {
	c := &Cache{
		router: router,
		ser:    encoding.Binary{},
		ttl:    DefaultTTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// node resolves the connection for verb on key.
func (c *Cache) node(verb, key string) *cluster.Node {
	if commands.IsRead(verb) {
		return c.router.ForRead(key)
	}
	return c.router.ForWrite(key)
}

func (c *Cache) encode(v any) ([]byte, error) {
	return c.ser.Marshal(v)
}

func (c *Cache) encodeAll(vs []any) ([][]byte, error) {
	out := make([][]byte, 0, len(vs))
	for _, v := range vs {
		b, err := c.encode(v)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// decode never fails: a payload the serializer rejects is returned as raw bytes.
func (c *Cache) decode(raw []byte) any {
	v, err := c.ser.Unmarshal(raw)
	if err != nil {
		slog.Warn("payload not decodable, returning raw bytes", "serializer", c.ser.Name(), "error", err)
		return raw
	}
	return v
}

func (c *Cache) decodeAll(raws [][]byte) []any {
	out := make([]any, len(raws))
	for i, raw := range raws {
		out[i] = c.decode(raw)
	}
	return out
}

// empty reports whether a write must be skipped: empty key, nil value or a
// zero-length string or byte slice.
func empty(key string, values ...any) bool {
	if key == "" {
		return true
	}
	for _, v := range values {
		switch v := v.(type) {
		case nil:
			return true
		case string:
			if v == "" {
				return true
			}
		case []byte:
			if len(v) == 0 {
				return true
			}
		}
	}
	return false
}

func (c *Cache) forget(keys ...string) {
	if c.near == nil {
		return
	}
	for _, k := range keys {
		c.near.Delete(k)
	}
}
