package cache

import (
	"context"
	"fmt"
	"time"

	"smartcache/pkg/cacheerrors"
	"smartcache/pkg/cluster"
	"smartcache/pkg/store"
)

type setOptions struct {
	ttl time.Duration
}

// SetOption adjusts the expiry of a single write.
type SetOption func(*setOptions)

// WithTTL overrides the default expiry for one write.
func WithTTL(ttl time.Duration) SetOption {
	return func(o *setOptions) { o.ttl = ttl }
}

// WithoutExpiry stores the value permanently.
func WithoutExpiry() SetOption {
	return func(o *setOptions) { o.ttl = 0 }
}

func (c *Cache) ttlFor(opts []SetOption) time.Duration {
	o := setOptions{ttl: c.ttl}
	for _, opt := range opts {
		opt(&o)
	}
	return o.ttl
}

// expire re-applies ttl after a write. Zero or less leaves the key as is.
func expire(ctx context.Context, n *cluster.Node, key string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	_, err := n.Conn.Expire(ctx, key, ttl)
	return err
}

// Set stores value under key and then applies the expiry.
func (c *Cache) Set(ctx context.Context, key string, value any, opts ...SetOption) error {
	if empty(key, value) {
		return nil
	}
	payload, err := c.encode(value)
	if err != nil {
		return err
	}
	n := c.node("set", key)
	if err := n.Conn.Set(ctx, key, payload); err != nil {
		c.forget(key)
		return err
	}
	if err := expire(ctx, n, key, c.ttlFor(opts)); err != nil {
		c.forget(key)
		return err
	}
	if c.near != nil {
		// декодированная копия: тот же тип и никакой общей памяти с вызывающим
		c.near.Set(key, c.decode(payload))
	}
	return nil
}

// Get returns the decoded value under key. ok is false when the key is missing.
func (c *Cache) Get(ctx context.Context, key string) (value any, ok bool, err error) {
	if key == "" {
		return nil, false, nil
	}
	if c.near != nil {
		if v, hit := c.near.Get(key); hit {
			return v, true, nil
		}
	}

	raw, ok, err := c.node("get", key).Conn.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	value = c.decode(raw)
	if c.near != nil {
		c.near.Set(key, value)
	}
	return value, true, nil
}

func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, nil
	}
	return c.node("exists", key).Conn.Exists(ctx, key)
}

// Delete removes key; deleted reports whether it existed.
func (c *Cache) Delete(ctx context.Context, key string) (deleted bool, err error) {
	if key == "" {
		return false, nil
	}
	c.forget(key)
	n, err := c.node("del", key).Conn.Del(ctx, key)
	return n > 0, err
}

func (c *Cache) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if key == "" {
		return false, nil
	}
	c.forget(key)
	return c.node("expire", key).Conn.Expire(ctx, key, ttl)
}

func (c *Cache) ExpireAt(ctx context.Context, key string, at time.Time) (bool, error) {
	if key == "" {
		return false, nil
	}
	c.forget(key)
	return c.node("expireat", key).Conn.ExpireAt(ctx, key, at)
}

// Persist drops the expiry of key.
func (c *Cache) Persist(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, nil
	}
	return c.node("persist", key).Conn.Persist(ctx, key)
}

// TTL returns the remaining time to live, store.TTLNoExpiry for a permanent
// key or store.TTLMissing when key does not exist.
func (c *Cache) TTL(ctx context.Context, key string) (time.Duration, error) {
	if key == "" {
		return store.TTLMissing, nil
	}
	return c.node("ttl", key).Conn.TTL(ctx, key)
}

func (c *Cache) Type(ctx context.Context, key string) (store.Type, error) {
	if key == "" {
		return store.TypeNone, nil
	}
	return c.node("type", key).Conn.Type(ctx, key)
}

// Rename runs on the node owning key. With sharding both names must map to
// the same node for the store to accept it.
func (c *Cache) Rename(ctx context.Context, key, newKey string) error {
	if key == "" || newKey == "" {
		return nil
	}
	c.forget(key, newKey)
	return c.node("rename", key).Conn.Rename(ctx, key, newKey)
}

func (c *Cache) RenameNX(ctx context.Context, key, newKey string) (bool, error) {
	if key == "" || newKey == "" {
		return false, nil
	}
	c.forget(key, newKey)
	return c.node("renamenx", key).Conn.RenameNX(ctx, key, newKey)
}

// Move transfers key to database db on the same node.
func (c *Cache) Move(ctx context.Context, key string, db int) (bool, error) {
	if key == "" {
		return false, nil
	}
	c.forget(key)
	return c.node("move", key).Conn.Move(ctx, key, db)
}

// IdleTime reports how long key has gone unaccessed.
func (c *Cache) IdleTime(ctx context.Context, key string) (time.Duration, bool, error) {
	if key == "" {
		return 0, false, nil
	}
	return c.node("object", key).Conn.ObjectIdleTime(ctx, key)
}

// Append adds raw bytes to a string value and returns its new length.
// Appended values no longer decode, so Get returns them as []byte.
func (c *Cache) Append(ctx context.Context, key string, suffix string) (int64, error) {
	if empty(key, suffix) {
		return 0, nil
	}
	c.forget(key)
	return c.node("append", key).Conn.Append(ctx, key, []byte(suffix))
}

// Incr adds by to the integer counter at key. Counters are stored as plain
// decimal strings and read back through Get as []byte.
func (c *Cache) Incr(ctx context.Context, key string, by int64) (int64, error) {
	if key == "" {
		return 0, nil
	}
	c.forget(key)
	return c.node("incrby", key).Conn.IncrBy(ctx, key, by)
}

// Size returns the element count of a collection. A missing key has size 0;
// a string value is ErrWrongType.
func (c *Cache) Size(ctx context.Context, key string) (int64, error) {
	if key == "" {
		return 0, nil
	}
	n := c.node("type", key)
	typ, err := n.Conn.Type(ctx, key)
	if err != nil {
		return 0, err
	}
	switch typ {
	case store.TypeNone:
		return 0, nil
	case store.TypeSet:
		return n.Conn.SCard(ctx, key)
	case store.TypeZSet:
		return n.Conn.ZCard(ctx, key)
	case store.TypeHash:
		return n.Conn.HLen(ctx, key)
	case store.TypeList:
		return n.Conn.LLen(ctx, key)
	}
	return 0, fmt.Errorf("%w: size of %s key %q", cacheerrors.ErrWrongType, typ, key)
}
