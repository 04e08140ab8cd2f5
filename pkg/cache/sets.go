package cache

import (
	"context"
	"fmt"

	"smartcache/pkg/cluster"
	"smartcache/pkg/store"
)

// SAdd adds members and returns how many were new.
func (c *Cache) SAdd(ctx context.Context, key string, members ...any) (int64, error) {
	if len(members) == 0 || empty(key, members...) {
		return 0, nil
	}
	payloads, err := c.encodeAll(members)
	if err != nil {
		return 0, err
	}
	n := c.node("sadd", key)
	return bulk(ctx, n, "sadd", len(payloads),
		func(ctx context.Context) (int64, error) { return n.Conn.SAdd(ctx, key, payloads...) },
		func(ctx context.Context, i int) (int64, error) { return n.Conn.SAdd(ctx, key, payloads[i]) },
	)
}

// Members returns up to count random distinct members. Nodes that predate
// SRANDMEMBER with a count return a single member.
func (c *Cache) Members(ctx context.Context, key string, count int64) ([]any, error) {
	if key == "" || count <= 0 {
		return nil, nil
	}
	n := c.node("srandmember", key)
	if count == 1 || (n.Caps.Known && !n.Caps.RandCount) {
		return c.oneMember(ctx, n, key)
	}
	raws, err := n.Conn.SRandMemberN(ctx, key, count)
	if err != nil {
		if n.Caps.Known {
			return nil, err
		}
		return c.oneMember(ctx, n, key)
	}
	return c.decodeAll(raws), nil
}

func (c *Cache) oneMember(ctx context.Context, n *cluster.Node, key string) ([]any, error) {
	raw, ok, err := n.Conn.SRandMember(ctx, key)
	if err != nil || !ok {
		return nil, err
	}
	return []any{c.decode(raw)}, nil
}

// All returns every member of the set.
func (c *Cache) All(ctx context.Context, key string) ([]any, error) {
	if key == "" {
		return nil, nil
	}
	raws, err := c.node("smembers", key).Conn.SMembers(ctx, key)
	if err != nil {
		return nil, err
	}
	return c.decodeAll(raws), nil
}

// Contains tests set membership, or field presence when key holds a hash.
// Any other type contains nothing.
func (c *Cache) Contains(ctx context.Context, key string, member any) (bool, error) {
	if empty(key, member) {
		return false, nil
	}
	n := c.node("type", key)
	typ, err := n.Conn.Type(ctx, key)
	if err != nil {
		return false, err
	}
	switch typ {
	case store.TypeSet:
		payload, err := c.encode(member)
		if err != nil {
			return false, err
		}
		return n.Conn.SIsMember(ctx, key, payload)
	case store.TypeHash:
		return n.Conn.HExists(ctx, key, fmt.Sprint(member))
	}
	return false, nil
}

// MoveMember moves member from src to dst. It runs on the node owning src.
func (c *Cache) MoveMember(ctx context.Context, src, dst string, member any) (bool, error) {
	if src == "" || empty(dst, member) {
		return false, nil
	}
	payload, err := c.encode(member)
	if err != nil {
		return false, err
	}
	return c.node("smove", src).Conn.SMove(ctx, src, dst, payload)
}

// PopMember removes members from a set or sorted set and returns how many
// were present. Other types are left alone.
func (c *Cache) PopMember(ctx context.Context, key string, members ...any) (int64, error) {
	if len(members) == 0 || empty(key, members...) {
		return 0, nil
	}
	payloads, err := c.encodeAll(members)
	if err != nil {
		return 0, err
	}
	// тип проверяем на той же ноде, где будет удаление
	n := c.router.ForWrite(key)
	typ, err := n.Conn.Type(ctx, key)
	if err != nil {
		return 0, err
	}

	var (
		verb string
		call func(ctx context.Context, key string, members ...[]byte) (int64, error)
	)
	switch typ {
	case store.TypeSet:
		verb, call = "srem", n.Conn.SRem
	case store.TypeZSet:
		verb, call = "zrem", n.Conn.ZRem
	default:
		return 0, nil
	}
	return bulk(ctx, n, verb, len(payloads),
		func(ctx context.Context) (int64, error) { return call(ctx, key, payloads...) },
		func(ctx context.Context, i int) (int64, error) { return call(ctx, key, payloads[i]) },
	)
}
