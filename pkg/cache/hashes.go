package cache

import "context"

// HSet sets field and reports whether it was created. The whole hash gets
// the default expiry unless opts override it.
func (c *Cache) HSet(ctx context.Context, key, field string, value any, opts ...SetOption) (bool, error) {
	if empty(key, field, value) {
		return false, nil
	}
	payload, err := c.encode(value)
	if err != nil {
		return false, err
	}
	n := c.node("hset", key)
	created, err := n.Conn.HSet(ctx, key, field, payload)
	if err != nil {
		return false, err
	}
	return created, expire(ctx, n, key, c.ttlFor(opts))
}

func (c *Cache) HGet(ctx context.Context, key, field string) (any, bool, error) {
	if key == "" || field == "" {
		return nil, false, nil
	}
	raw, ok, err := c.node("hget", key).Conn.HGet(ctx, key, field)
	if err != nil || !ok {
		return nil, false, err
	}
	return c.decode(raw), true, nil
}

func (c *Cache) HGetAll(ctx context.Context, key string) (map[string]any, error) {
	if key == "" {
		return nil, nil
	}
	raws, err := c.node("hgetall", key).Conn.HGetAll(ctx, key)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(raws))
	for field, raw := range raws {
		out[field] = c.decode(raw)
	}
	return out, nil
}

func (c *Cache) HKeys(ctx context.Context, key string) ([]string, error) {
	if key == "" {
		return nil, nil
	}
	return c.node("hkeys", key).Conn.HKeys(ctx, key)
}

func (c *Cache) HVals(ctx context.Context, key string) ([]any, error) {
	if key == "" {
		return nil, nil
	}
	raws, err := c.node("hvals", key).Conn.HVals(ctx, key)
	if err != nil {
		return nil, err
	}
	return c.decodeAll(raws), nil
}

// HIncr adds by to an integer field. Like Incr, the counter is stored raw.
func (c *Cache) HIncr(ctx context.Context, key, field string, by int64) (int64, error) {
	if key == "" || field == "" {
		return 0, nil
	}
	return c.node("hincrby", key).Conn.HIncrBy(ctx, key, field, by)
}
