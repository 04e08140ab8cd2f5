package cache

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"smartcache/pkg/cacheerrors"
)

type handler struct {
	// minimum and maximum number of args after the key; max < 0 is unbounded
	min, max int
	run      func(ctx context.Context, c *Cache, key string, args []any) (any, error)
}

// verbs is the whole generic vocabulary of Do. Anything missing is unsupported.
var verbs = map[string]handler{
	"get": {0, 0, func(ctx context.Context, c *Cache, key string, _ []any) (any, error) {
		v, _, err := c.Get(ctx, key)
		return v, err
	}},
	"set": {1, 1, func(ctx context.Context, c *Cache, key string, args []any) (any, error) {
		return nil, c.Set(ctx, key, args[0])
	}},
	"setex": {2, 2, func(ctx context.Context, c *Cache, key string, args []any) (any, error) {
		ttl, err := argDuration(args, 0)
		if err != nil {
			return nil, err
		}
		return nil, c.Set(ctx, key, args[1], WithTTL(ttl))
	}},
	"exists": {0, 0, func(ctx context.Context, c *Cache, key string, _ []any) (any, error) {
		return c.Exists(ctx, key)
	}},
	"del": {0, 0, func(ctx context.Context, c *Cache, key string, _ []any) (any, error) {
		return c.Delete(ctx, key)
	}},
	"expire": {1, 1, func(ctx context.Context, c *Cache, key string, args []any) (any, error) {
		ttl, err := argDuration(args, 0)
		if err != nil {
			return nil, err
		}
		return c.Expire(ctx, key, ttl)
	}},
	"expireat": {1, 1, func(ctx context.Context, c *Cache, key string, args []any) (any, error) {
		ts, err := argInt(args, 0)
		if err != nil {
			return nil, err
		}
		return c.ExpireAt(ctx, key, time.Unix(ts, 0))
	}},
	"persist": {0, 0, func(ctx context.Context, c *Cache, key string, _ []any) (any, error) {
		return c.Persist(ctx, key)
	}},
	"ttl": {0, 0, func(ctx context.Context, c *Cache, key string, _ []any) (any, error) {
		return c.TTL(ctx, key)
	}},
	"type": {0, 0, func(ctx context.Context, c *Cache, key string, _ []any) (any, error) {
		return c.Type(ctx, key)
	}},
	"rename": {1, 1, func(ctx context.Context, c *Cache, key string, args []any) (any, error) {
		return nil, c.Rename(ctx, key, fmt.Sprint(args[0]))
	}},
	"renamenx": {1, 1, func(ctx context.Context, c *Cache, key string, args []any) (any, error) {
		return c.RenameNX(ctx, key, fmt.Sprint(args[0]))
	}},
	"move": {1, 1, func(ctx context.Context, c *Cache, key string, args []any) (any, error) {
		db, err := argInt(args, 0)
		if err != nil {
			return nil, err
		}
		return c.Move(ctx, key, int(db))
	}},
	"append": {1, 1, func(ctx context.Context, c *Cache, key string, args []any) (any, error) {
		return c.Append(ctx, key, fmt.Sprint(args[0]))
	}},
	"incr": {0, 0, func(ctx context.Context, c *Cache, key string, _ []any) (any, error) {
		return c.Incr(ctx, key, 1)
	}},
	"incrby": {1, 1, func(ctx context.Context, c *Cache, key string, args []any) (any, error) {
		by, err := argInt(args, 0)
		if err != nil {
			return nil, err
		}
		return c.Incr(ctx, key, by)
	}},

	// lists
	"lpush": {1, -1, func(ctx context.Context, c *Cache, key string, args []any) (any, error) {
		return c.LPush(ctx, key, args...)
	}},
	"rpush": {1, -1, func(ctx context.Context, c *Cache, key string, args []any) (any, error) {
		return c.RPush(ctx, key, args...)
	}},
	"lrange": {2, 2, func(ctx context.Context, c *Cache, key string, args []any) (any, error) {
		start, err := argInt(args, 0)
		if err != nil {
			return nil, err
		}
		stop, err := argInt(args, 1)
		if err != nil {
			return nil, err
		}
		if key == "" {
			return []any{}, nil
		}
		// индексы как у LRANGE, включая отрицательные
		raws, err := c.node("lrange", key).Conn.LRange(ctx, key, start, stop)
		if err != nil {
			return nil, err
		}
		return c.decodeAll(raws), nil
	}},
	"lpop": {0, 0, func(ctx context.Context, c *Cache, key string, _ []any) (any, error) {
		v, _, err := c.LPop(ctx, key)
		return v, err
	}},
	"rpop": {0, 0, func(ctx context.Context, c *Cache, key string, _ []any) (any, error) {
		v, _, err := c.RPop(ctx, key)
		return v, err
	}},
	"llen": {0, 0, sizeOf},

	// sets
	"sadd": {1, -1, func(ctx context.Context, c *Cache, key string, args []any) (any, error) {
		return c.SAdd(ctx, key, args...)
	}},
	"srem": {1, -1, func(ctx context.Context, c *Cache, key string, args []any) (any, error) {
		return c.PopMember(ctx, key, args...)
	}},
	"smembers": {0, 0, func(ctx context.Context, c *Cache, key string, _ []any) (any, error) {
		return c.All(ctx, key)
	}},
	"srandmember": {0, 1, func(ctx context.Context, c *Cache, key string, args []any) (any, error) {
		count := int64(1)
		if len(args) == 1 {
			n, err := argInt(args, 0)
			if err != nil {
				return nil, err
			}
			count = n
		}
		return c.Members(ctx, key, count)
	}},
	"sismember": {1, 1, func(ctx context.Context, c *Cache, key string, args []any) (any, error) {
		if empty(key, args[0]) {
			return false, nil
		}
		payload, err := c.encode(args[0])
		if err != nil {
			return nil, err
		}
		return c.node("sismember", key).Conn.SIsMember(ctx, key, payload)
	}},
	"smove": {2, 2, func(ctx context.Context, c *Cache, key string, args []any) (any, error) {
		return c.MoveMember(ctx, key, fmt.Sprint(args[0]), args[1])
	}},
	"scard": {0, 0, sizeOf},

	// sorted sets: zadd key score member [score member ...]
	"zadd": {2, -1, func(ctx context.Context, c *Cache, key string, args []any) (any, error) {
		if len(args)%2 != 0 {
			return nil, fmt.Errorf("%w: zadd needs score/member pairs", cacheerrors.ErrInvalidArgument)
		}
		members := make([]Scored, 0, len(args)/2)
		for i := 0; i < len(args); i += 2 {
			score, err := argFloat(args, i)
			if err != nil {
				return nil, err
			}
			members = append(members, Scored{Member: args[i+1], Score: score})
		}
		return c.ZAdd(ctx, key, members)
	}},
	"zrem": {1, -1, func(ctx context.Context, c *Cache, key string, args []any) (any, error) {
		return c.PopMember(ctx, key, args...)
	}},
	"zscore": {1, 1, func(ctx context.Context, c *Cache, key string, args []any) (any, error) {
		score, ok, err := c.Score(ctx, key, args[0])
		if err != nil || !ok {
			return nil, err
		}
		return score, nil
	}},
	"zincrby": {2, 2, func(ctx context.Context, c *Cache, key string, args []any) (any, error) {
		by, err := argFloat(args, 0)
		if err != nil {
			return nil, err
		}
		return c.IncScore(ctx, key, args[1], by)
	}},
	"zrangebyscore": {2, 4, func(ctx context.Context, c *Cache, key string, args []any) (any, error) {
		if len(args) == 3 {
			return nil, fmt.Errorf("%w: zrangebyscore needs both offset and count", cacheerrors.ErrInvalidArgument)
		}
		var q ScoreQuery
		var err error
		if q.Min, err = argFloat(args, 0); err != nil {
			return nil, err
		}
		if q.Max, err = argFloat(args, 1); err != nil {
			return nil, err
		}
		if len(args) == 4 {
			if q.Skip, err = argInt(args, 2); err != nil {
				return nil, err
			}
			if q.Limit, err = argInt(args, 3); err != nil {
				return nil, err
			}
		}
		return c.SortedSetMembers(ctx, key, q)
	}},
	"zremrangebyscore": {2, 2, func(ctx context.Context, c *Cache, key string, args []any) (any, error) {
		min, err := argFloat(args, 0)
		if err != nil {
			return nil, err
		}
		max, err := argFloat(args, 1)
		if err != nil {
			return nil, err
		}
		return c.RemoveByScore(ctx, key, min, max)
	}},
	"zcard": {0, 0, sizeOf},

	// hashes
	"hset": {2, 2, func(ctx context.Context, c *Cache, key string, args []any) (any, error) {
		return c.HSet(ctx, key, fmt.Sprint(args[0]), args[1])
	}},
	"hget": {1, 1, func(ctx context.Context, c *Cache, key string, args []any) (any, error) {
		v, _, err := c.HGet(ctx, key, fmt.Sprint(args[0]))
		return v, err
	}},
	"hgetall": {0, 0, func(ctx context.Context, c *Cache, key string, _ []any) (any, error) {
		return c.HGetAll(ctx, key)
	}},
	"hkeys": {0, 0, func(ctx context.Context, c *Cache, key string, _ []any) (any, error) {
		return c.HKeys(ctx, key)
	}},
	"hvals": {0, 0, func(ctx context.Context, c *Cache, key string, _ []any) (any, error) {
		return c.HVals(ctx, key)
	}},
	"hexists": {1, 1, func(ctx context.Context, c *Cache, key string, args []any) (any, error) {
		if key == "" {
			return false, nil
		}
		return c.node("hexists", key).Conn.HExists(ctx, key, fmt.Sprint(args[0]))
	}},
	"hincrby": {2, 2, func(ctx context.Context, c *Cache, key string, args []any) (any, error) {
		by, err := argInt(args, 1)
		if err != nil {
			return nil, err
		}
		return c.HIncr(ctx, key, fmt.Sprint(args[0]), by)
	}},
	"hlen": {0, 0, sizeOf},
}

func sizeOf(ctx context.Context, c *Cache, key string, _ []any) (any, error) {
	return c.Size(ctx, key)
}

// Do runs a command by name. Verb matching is case-insensitive; a verb outside
// the table is ErrUnsupportedCommand and a bad argument list ErrInvalidArgument.
func (c *Cache) Do(ctx context.Context, verb, key string, args ...any) (any, error) {
	h, ok := verbs[strings.ToLower(verb)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", cacheerrors.ErrUnsupportedCommand, verb)
	}
	if len(args) < h.min || (h.max >= 0 && len(args) > h.max) {
		return nil, fmt.Errorf("%w: %s takes %s arguments, got %d",
			cacheerrors.ErrInvalidArgument, verb, arity(h), len(args))
	}
	return h.run(ctx, c, key, args)
}

// Verbs lists the commands Do accepts.
func Verbs() []string {
	out := make([]string, 0, len(verbs))
	for v := range verbs {
		out = append(out, v)
	}
	return out
}

func arity(h handler) string {
	switch {
	case h.max < 0:
		return fmt.Sprintf("at least %d", h.min)
	case h.min == h.max:
		return strconv.Itoa(h.min)
	}
	return fmt.Sprintf("%d to %d", h.min, h.max)
}

func argInt(args []any, i int) (int64, error) {
	switch v := args[i].(type) {
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		// числа из JSON приходят как float64
		if v == math.Trunc(v) {
			return int64(v), nil
		}
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err == nil {
			return n, nil
		}
	}
	return 0, fmt.Errorf("%w: argument %d: %v is not an integer", cacheerrors.ErrInvalidArgument, i, args[i])
}

func argFloat(args []any, i int) (float64, error) {
	switch v := args[i].(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: argument %d: %v is not a number", cacheerrors.ErrInvalidArgument, i, args[i])
}

// argDuration accepts a time.Duration or whole seconds.
func argDuration(args []any, i int) (time.Duration, error) {
	if d, ok := args[i].(time.Duration); ok {
		return d, nil
	}
	secs, err := argInt(args, i)
	if err != nil {
		return 0, err
	}
	return time.Duration(secs) * time.Second, nil
}
