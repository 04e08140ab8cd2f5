package cache

import "context"

// LPush prepends values and returns the list length. Like Set, the list then
// gets the default expiry.
func (c *Cache) LPush(ctx context.Context, key string, values ...any) (int64, error) {
	return c.push(ctx, "lpush", key, values)
}

// RPush appends values and returns the list length.
func (c *Cache) RPush(ctx context.Context, key string, values ...any) (int64, error) {
	return c.push(ctx, "rpush", key, values)
}

func (c *Cache) push(ctx context.Context, verb, key string, values []any) (int64, error) {
	if len(values) == 0 || empty(key, values...) {
		return 0, nil
	}
	payloads, err := c.encodeAll(values)
	if err != nil {
		return 0, err
	}

	n := c.node(verb, key)
	call := n.Conn.RPush
	if verb == "lpush" {
		call = n.Conn.LPush
	}

	// поэлементный путь возвращает длину после каждого push, берём последнюю
	var length int64
	_, err = bulk(ctx, n, verb, len(payloads),
		func(ctx context.Context) (int64, error) {
			l, err := call(ctx, key, payloads...)
			length = l
			return l, err
		},
		func(ctx context.Context, i int) (int64, error) {
			l, err := call(ctx, key, payloads[i])
			if err == nil {
				length = l
			}
			return 1, err
		},
	)
	if err != nil {
		return length, err
	}
	return length, expire(ctx, n, key, c.ttl)
}

// List returns up to limit elements starting at skip. limit <= 0 reads to the end.
func (c *Cache) List(ctx context.Context, key string, skip, limit int64) ([]any, error) {
	if key == "" {
		return nil, nil
	}
	if skip < 0 {
		skip = 0
	}
	stop := int64(-1)
	if limit > 0 {
		stop = skip + limit - 1
	}
	raws, err := c.node("lrange", key).Conn.LRange(ctx, key, skip, stop)
	if err != nil {
		return nil, err
	}
	return c.decodeAll(raws), nil
}

func (c *Cache) LPop(ctx context.Context, key string) (any, bool, error) {
	return c.pop(ctx, "lpop", key)
}

func (c *Cache) RPop(ctx context.Context, key string) (any, bool, error) {
	return c.pop(ctx, "rpop", key)
}

func (c *Cache) pop(ctx context.Context, verb, key string) (any, bool, error) {
	if key == "" {
		return nil, false, nil
	}
	n := c.node(verb, key)
	call := n.Conn.RPop
	if verb == "lpop" {
		call = n.Conn.LPop
	}
	raw, ok, err := call(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	return c.decode(raw), true, nil
}
