package cache

import (
	"context"
	"math"

	"smartcache/pkg/store"
)

// Scored is a sorted set member with its score.
type Scored struct {
	Member any
	Score  float64
}

// ScoreQuery selects members with Min <= score <= Max, skipping Skip and
// returning at most Limit. Limit <= 0 returns all.
type ScoreQuery struct {
	Min, Max    float64
	Skip, Limit int64
}

// AllScores matches every member.
func AllScores() ScoreQuery {
	return ScoreQuery{Min: math.Inf(-1), Max: math.Inf(1)}
}

// ZAdd adds or updates members and returns how many were new. The set gets
// the default expiry unless opts override it.
func (c *Cache) ZAdd(ctx context.Context, key string, members []Scored, opts ...SetOption) (int64, error) {
	if key == "" || len(members) == 0 {
		return 0, nil
	}
	zs := make([]store.Z, 0, len(members))
	for _, m := range members {
		if empty(key, m.Member) {
			return 0, nil
		}
		payload, err := c.encode(m.Member)
		if err != nil {
			return 0, err
		}
		zs = append(zs, store.Z{Member: payload, Score: m.Score})
	}

	n := c.node("zadd", key)
	added, err := bulk(ctx, n, "zadd", len(zs),
		func(ctx context.Context) (int64, error) { return n.Conn.ZAdd(ctx, key, zs...) },
		func(ctx context.Context, i int) (int64, error) { return n.Conn.ZAdd(ctx, key, zs[i]) },
	)
	if err != nil {
		return added, err
	}
	return added, expire(ctx, n, key, c.ttlFor(opts))
}

// SortedSetMembers returns members in score order.
func (c *Cache) SortedSetMembers(ctx context.Context, key string, q ScoreQuery) ([]Scored, error) {
	if key == "" {
		return nil, nil
	}
	r := store.ScoreRange{Min: q.Min, Max: q.Max, Offset: q.Skip, Count: -1}
	if q.Limit > 0 {
		r.Count = q.Limit
	}
	if r.Offset < 0 {
		r.Offset = 0
	}
	zs, err := c.node("zrangebyscore", key).Conn.ZRangeByScore(ctx, key, r)
	if err != nil {
		return nil, err
	}
	out := make([]Scored, len(zs))
	for i, z := range zs {
		out[i] = Scored{Member: c.decode(z.Member), Score: z.Score}
	}
	return out, nil
}

// RemoveByScore deletes members with min <= score <= max.
func (c *Cache) RemoveByScore(ctx context.Context, key string, min, max float64) (int64, error) {
	if key == "" {
		return 0, nil
	}
	return c.node("zremrangebyscore", key).Conn.ZRemRangeByScore(ctx, key, min, max)
}

func (c *Cache) Score(ctx context.Context, key string, member any) (float64, bool, error) {
	if empty(key, member) {
		return 0, false, nil
	}
	payload, err := c.encode(member)
	if err != nil {
		return 0, false, err
	}
	return c.node("zscore", key).Conn.ZScore(ctx, key, payload)
}

// IncScore adds by to member's score, creating it at by when absent.
func (c *Cache) IncScore(ctx context.Context, key string, member any, by float64) (float64, error) {
	if empty(key, member) {
		return 0, nil
	}
	payload, err := c.encode(member)
	if err != nil {
		return 0, err
	}
	return c.node("zincrby", key).Conn.ZIncrBy(ctx, key, payload, by)
}
