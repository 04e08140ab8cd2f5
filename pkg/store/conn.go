// Package store defines the capability interface of a remote key-value node
// and its implementations.
package store

import (
	"context"
	"time"
)

// Type is the kind of value a key holds, as reported by TYPE.
type Type string

const (
	TypeNone   Type = "none"
	TypeString Type = "string"
	TypeList   Type = "list"
	TypeSet    Type = "set"
	TypeZSet   Type = "zset"
	TypeHash   Type = "hash"
)

// Special TTL replies.
const (
	TTLNoExpiry time.Duration = -1
	TTLMissing  time.Duration = -2
)

// Z is a sorted set member with its score.
type Z struct {
	Member []byte
	Score  float64
}

// ScoreRange selects sorted set members with Min <= score <= Max.
// Count < 0 means no limit.
type ScoreRange struct {
	Min, Max float64
	Offset   int64
	Count    int64
}

// Conn is one live connection to a store node.
type Conn interface {
	// keys and strings
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Append(ctx context.Context, key string, value []byte) (int64, error)
	Del(ctx context.Context, keys ...string) (int64, error)
	Exists(ctx context.Context, key string) (bool, error)
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ExpireAt(ctx context.Context, key string, at time.Time) (bool, error)
	TTL(ctx context.Context, key string) (time.Duration, error)
	Persist(ctx context.Context, key string) (bool, error)
	Rename(ctx context.Context, key, newKey string) error
	RenameNX(ctx context.Context, key, newKey string) (bool, error)
	Move(ctx context.Context, key string, db int) (bool, error)
	Type(ctx context.Context, key string) (Type, error)
	ObjectIdleTime(ctx context.Context, key string) (time.Duration, bool, error)
	IncrBy(ctx context.Context, key string, n int64) (int64, error)
	// Scan returns one page of keys matching the glob pattern match ("" is
	// every key) and the cursor of the next page; cursor 0 ends the walk.
	Scan(ctx context.Context, cursor uint64, match string, count int64) ([]string, uint64, error)

	// lists
	LPush(ctx context.Context, key string, values ...[]byte) (int64, error)
	RPush(ctx context.Context, key string, values ...[]byte) (int64, error)
	LRange(ctx context.Context, key string, start, stop int64) ([][]byte, error)
	LPop(ctx context.Context, key string) ([]byte, bool, error)
	RPop(ctx context.Context, key string) ([]byte, bool, error)
	LLen(ctx context.Context, key string) (int64, error)

	// sets
	SAdd(ctx context.Context, key string, members ...[]byte) (int64, error)
	SRem(ctx context.Context, key string, members ...[]byte) (int64, error)
	SRandMember(ctx context.Context, key string) ([]byte, bool, error)
	SRandMemberN(ctx context.Context, key string, count int64) ([][]byte, error)
	SMembers(ctx context.Context, key string) ([][]byte, error)
	SCard(ctx context.Context, key string) (int64, error)
	SIsMember(ctx context.Context, key string, member []byte) (bool, error)
	SMove(ctx context.Context, src, dst string, member []byte) (bool, error)

	// sorted sets
	ZAdd(ctx context.Context, key string, members ...Z) (int64, error)
	ZRem(ctx context.Context, key string, members ...[]byte) (int64, error)
	ZRangeByScore(ctx context.Context, key string, r ScoreRange) ([]Z, error)
	ZRemRangeByScore(ctx context.Context, key string, min, max float64) (int64, error)
	ZCard(ctx context.Context, key string) (int64, error)
	ZScore(ctx context.Context, key string, member []byte) (float64, bool, error)
	ZIncrBy(ctx context.Context, key string, member []byte, incr float64) (float64, error)

	// hashes
	HSet(ctx context.Context, key, field string, value []byte) (bool, error)
	HGet(ctx context.Context, key, field string) ([]byte, bool, error)
	HGetAll(ctx context.Context, key string) (map[string][]byte, error)
	HKeys(ctx context.Context, key string) ([]string, error)
	HVals(ctx context.Context, key string) ([][]byte, error)
	HExists(ctx context.Context, key, field string) (bool, error)
	HLen(ctx context.Context, key string) (int64, error)
	HIncrBy(ctx context.Context, key, field string, n int64) (int64, error)

	// ServerVersion reports the node's server version, e.g. "7.2.4".
	ServerVersion(ctx context.Context) (string, error)
	Close() error
}
