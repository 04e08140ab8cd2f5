package store

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"smartcache/pkg/cacheerrors"
)

// Redis is a Conn backed by a go-redis client pinned to one node and database.
type Redis struct {
	name   string
	client *redis.Client
}

var _ Conn = (*Redis)(nil)

// NewRedis opens a client for addr/db. The client dials lazily; no network
// round trip happens here.
func NewRedis(name, addr string, db int) *Redis {
	return &Redis{
		name: name,
		client: redis.NewClient(&redis.Options{
			Addr: addr,
			DB:   db,
			// без ретраев: ошибка транспорта сразу уходит вызывающему
			MaxRetries: -1,
		}),
	}
}

func (r *Redis) wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.HasPrefix(msg, "WRONGTYPE"):
		return fmt.Errorf("%w: %s", cacheerrors.ErrWrongType, msg)
	case strings.Contains(msg, "wrong number of arguments"):
		return fmt.Errorf("%w: %s", cacheerrors.ErrVariadicRejected, msg)
	}
	return &cacheerrors.TransportError{Op: op, Node: r.name, Err: err}
}

func toArgs(values [][]byte) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}

func toBytes(ss []string) [][]byte {
	out := make([][]byte, len(ss))
	for i, s := range ss {
		out[i] = []byte(s)
	}
	return out
}

func fmtScore(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "+inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, r.wrap("get", err)
	}
	return b, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	return r.wrap("set", r.client.Set(ctx, key, value, 0).Err())
}

func (r *Redis) Append(ctx context.Context, key string, value []byte) (int64, error) {
	n, err := r.client.Append(ctx, key, string(value)).Result()
	return n, r.wrap("append", err)
}

func (r *Redis) Del(ctx context.Context, keys ...string) (int64, error) {
	n, err := r.client.Del(ctx, keys...).Result()
	return n, r.wrap("del", err)
}

func (r *Redis) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, key).Result()
	return n > 0, r.wrap("exists", err)
}

func (r *Redis) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := r.client.Expire(ctx, key, ttl).Result()
	return ok, r.wrap("expire", err)
}

func (r *Redis) ExpireAt(ctx context.Context, key string, at time.Time) (bool, error) {
	ok, err := r.client.ExpireAt(ctx, key, at).Result()
	return ok, r.wrap("expireat", err)
}

func (r *Redis) TTL(ctx context.Context, key string) (time.Duration, error) {
	d, err := r.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, r.wrap("ttl", err)
	}
	// go-redis отдаёт -1/-2 как наносекунды
	switch d {
	case -1:
		return TTLNoExpiry, nil
	case -2:
		return TTLMissing, nil
	}
	return d, nil
}

func (r *Redis) Persist(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.Persist(ctx, key).Result()
	return ok, r.wrap("persist", err)
}

func (r *Redis) Rename(ctx context.Context, key, newKey string) error {
	return r.wrap("rename", r.client.Rename(ctx, key, newKey).Err())
}

func (r *Redis) RenameNX(ctx context.Context, key, newKey string) (bool, error) {
	ok, err := r.client.RenameNX(ctx, key, newKey).Result()
	return ok, r.wrap("renamenx", err)
}

func (r *Redis) Move(ctx context.Context, key string, db int) (bool, error) {
	ok, err := r.client.Move(ctx, key, db).Result()
	return ok, r.wrap("move", err)
}

func (r *Redis) Type(ctx context.Context, key string) (Type, error) {
	t, err := r.client.Type(ctx, key).Result()
	return Type(t), r.wrap("type", err)
}

func (r *Redis) ObjectIdleTime(ctx context.Context, key string) (time.Duration, bool, error) {
	d, err := r.client.ObjectIdleTime(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, r.wrap("object", err)
	}
	return d, true, nil
}

func (r *Redis) IncrBy(ctx context.Context, key string, n int64) (int64, error) {
	v, err := r.client.IncrBy(ctx, key, n).Result()
	return v, r.wrap("incrby", err)
}

func (r *Redis) Scan(ctx context.Context, cursor uint64, match string, count int64) ([]string, uint64, error) {
	keys, next, err := r.client.Scan(ctx, cursor, match, count).Result()
	return keys, next, r.wrap("scan", err)
}

func (r *Redis) LPush(ctx context.Context, key string, values ...[]byte) (int64, error) {
	n, err := r.client.LPush(ctx, key, toArgs(values)...).Result()
	return n, r.wrap("lpush", err)
}

func (r *Redis) RPush(ctx context.Context, key string, values ...[]byte) (int64, error) {
	n, err := r.client.RPush(ctx, key, toArgs(values)...).Result()
	return n, r.wrap("rpush", err)
}

func (r *Redis) LRange(ctx context.Context, key string, start, stop int64) ([][]byte, error) {
	ss, err := r.client.LRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, r.wrap("lrange", err)
	}
	return toBytes(ss), nil
}

func (r *Redis) popResult(op string, cmd *redis.StringCmd) ([]byte, bool, error) {
	b, err := cmd.Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, r.wrap(op, err)
	}
	return b, true, nil
}

func (r *Redis) LPop(ctx context.Context, key string) ([]byte, bool, error) {
	return r.popResult("lpop", r.client.LPop(ctx, key))
}

func (r *Redis) RPop(ctx context.Context, key string) ([]byte, bool, error) {
	return r.popResult("rpop", r.client.RPop(ctx, key))
}

func (r *Redis) LLen(ctx context.Context, key string) (int64, error) {
	n, err := r.client.LLen(ctx, key).Result()
	return n, r.wrap("llen", err)
}

func (r *Redis) SAdd(ctx context.Context, key string, members ...[]byte) (int64, error) {
	n, err := r.client.SAdd(ctx, key, toArgs(members)...).Result()
	return n, r.wrap("sadd", err)
}

func (r *Redis) SRem(ctx context.Context, key string, members ...[]byte) (int64, error) {
	n, err := r.client.SRem(ctx, key, toArgs(members)...).Result()
	return n, r.wrap("srem", err)
}

func (r *Redis) SRandMember(ctx context.Context, key string) ([]byte, bool, error) {
	return r.popResult("srandmember", r.client.SRandMember(ctx, key))
}

func (r *Redis) SRandMemberN(ctx context.Context, key string, count int64) ([][]byte, error) {
	ss, err := r.client.SRandMemberN(ctx, key, count).Result()
	if err != nil {
		return nil, r.wrap("srandmember", err)
	}
	return toBytes(ss), nil
}

func (r *Redis) SMembers(ctx context.Context, key string) ([][]byte, error) {
	ss, err := r.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, r.wrap("smembers", err)
	}
	return toBytes(ss), nil
}

func (r *Redis) SCard(ctx context.Context, key string) (int64, error) {
	n, err := r.client.SCard(ctx, key).Result()
	return n, r.wrap("scard", err)
}

func (r *Redis) SIsMember(ctx context.Context, key string, member []byte) (bool, error) {
	ok, err := r.client.SIsMember(ctx, key, member).Result()
	return ok, r.wrap("sismember", err)
}

func (r *Redis) SMove(ctx context.Context, src, dst string, member []byte) (bool, error) {
	ok, err := r.client.SMove(ctx, src, dst, member).Result()
	return ok, r.wrap("smove", err)
}

func (r *Redis) ZAdd(ctx context.Context, key string, members ...Z) (int64, error) {
	zs := make([]redis.Z, len(members))
	for i, m := range members {
		zs[i] = redis.Z{Score: m.Score, Member: m.Member}
	}
	n, err := r.client.ZAdd(ctx, key, zs...).Result()
	return n, r.wrap("zadd", err)
}

func (r *Redis) ZRem(ctx context.Context, key string, members ...[]byte) (int64, error) {
	n, err := r.client.ZRem(ctx, key, toArgs(members)...).Result()
	return n, r.wrap("zrem", err)
}

func (r *Redis) ZRangeByScore(ctx context.Context, key string, rng ScoreRange) ([]Z, error) {
	zs, err := r.client.ZRangeByScoreWithScores(ctx, key, &redis.ZRangeBy{
		Min:    fmtScore(rng.Min),
		Max:    fmtScore(rng.Max),
		Offset: rng.Offset,
		Count:  rng.Count,
	}).Result()
	if err != nil {
		return nil, r.wrap("zrangebyscore", err)
	}
	out := make([]Z, len(zs))
	for i, z := range zs {
		member, _ := z.Member.(string)
		out[i] = Z{Member: []byte(member), Score: z.Score}
	}
	return out, nil
}

func (r *Redis) ZRemRangeByScore(ctx context.Context, key string, min, max float64) (int64, error) {
	n, err := r.client.ZRemRangeByScore(ctx, key, fmtScore(min), fmtScore(max)).Result()
	return n, r.wrap("zremrangebyscore", err)
}

func (r *Redis) ZCard(ctx context.Context, key string) (int64, error) {
	n, err := r.client.ZCard(ctx, key).Result()
	return n, r.wrap("zcard", err)
}

func (r *Redis) ZScore(ctx context.Context, key string, member []byte) (float64, bool, error) {
	f, err := r.client.ZScore(ctx, key, string(member)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, r.wrap("zscore", err)
	}
	return f, true, nil
}

func (r *Redis) ZIncrBy(ctx context.Context, key string, member []byte, incr float64) (float64, error) {
	f, err := r.client.ZIncrBy(ctx, key, incr, string(member)).Result()
	return f, r.wrap("zincrby", err)
}

func (r *Redis) HSet(ctx context.Context, key, field string, value []byte) (bool, error) {
	n, err := r.client.HSet(ctx, key, field, value).Result()
	return n > 0, r.wrap("hset", err)
}

func (r *Redis) HGet(ctx context.Context, key, field string) ([]byte, bool, error) {
	return r.popResult("hget", r.client.HGet(ctx, key, field))
}

func (r *Redis) HGetAll(ctx context.Context, key string) (map[string][]byte, error) {
	m, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, r.wrap("hgetall", err)
	}
	out := make(map[string][]byte, len(m))
	for k, v := range m {
		out[k] = []byte(v)
	}
	return out, nil
}

func (r *Redis) HKeys(ctx context.Context, key string) ([]string, error) {
	ks, err := r.client.HKeys(ctx, key).Result()
	return ks, r.wrap("hkeys", err)
}

func (r *Redis) HVals(ctx context.Context, key string) ([][]byte, error) {
	vs, err := r.client.HVals(ctx, key).Result()
	if err != nil {
		return nil, r.wrap("hvals", err)
	}
	return toBytes(vs), nil
}

func (r *Redis) HExists(ctx context.Context, key, field string) (bool, error) {
	ok, err := r.client.HExists(ctx, key, field).Result()
	return ok, r.wrap("hexists", err)
}

func (r *Redis) HLen(ctx context.Context, key string) (int64, error) {
	n, err := r.client.HLen(ctx, key).Result()
	return n, r.wrap("hlen", err)
}

func (r *Redis) HIncrBy(ctx context.Context, key, field string, n int64) (int64, error) {
	v, err := r.client.HIncrBy(ctx, key, field, n).Result()
	return v, r.wrap("hincrby", err)
}

// ServerVersion parses redis_version out of INFO server.
func (r *Redis) ServerVersion(ctx context.Context) (string, error) {
	info, err := r.client.Info(ctx, "server").Result()
	if err != nil {
		return "", r.wrap("info", err)
	}
	sc := bufio.NewScanner(strings.NewReader(info))
	for sc.Scan() {
		if v, ok := strings.CutPrefix(strings.TrimSpace(sc.Text()), "redis_version:"); ok {
			return v, nil
		}
	}
	return "", fmt.Errorf("info server: redis_version not reported")
}

func (r *Redis) Close() error {
	return r.client.Close()
}
