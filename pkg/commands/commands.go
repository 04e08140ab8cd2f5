// Package commands splits the store's command vocabulary into reads and writes.
package commands

import "strings"

type Kind uint8

const (
	Write Kind = iota
	Read
)

func (k Kind) String() string {
	if k == Read {
		return "read"
	}
	return "write"
}

// readCommands is closed-world: anything missing here, including verbs the store
// adds later, is treated as a write and goes to the master.
var readCommands = map[string]struct{}{
	// keys
	"exists": {}, "ttl": {}, "pttl": {}, "type": {}, "object": {}, "keys": {},
	"scan": {}, "randomkey": {}, "dump": {}, "dbsize": {}, "expiretime": {},
	// strings
	"get": {}, "mget": {}, "getrange": {}, "substr": {}, "strlen": {},
	"getbit": {}, "bitcount": {}, "bitpos": {},
	// lists
	"lrange": {}, "llen": {}, "lindex": {}, "lpos": {},
	// sets
	"smembers": {}, "scard": {}, "sismember": {}, "smismember": {}, "srandmember": {},
	"sdiff": {}, "sinter": {}, "sunion": {}, "sscan": {}, "sintercard": {},
	// sorted sets
	"zcard": {}, "zcount": {}, "zlexcount": {}, "zrange": {}, "zrangebyscore": {},
	"zrangebylex": {}, "zrevrange": {}, "zrevrangebyscore": {}, "zrevrangebylex": {},
	"zrank": {}, "zrevrank": {}, "zscore": {}, "zmscore": {}, "zscan": {},
	// hashes
	"hget": {}, "hmget": {}, "hgetall": {}, "hkeys": {}, "hvals": {}, "hlen": {},
	"hexists": {}, "hstrlen": {}, "hscan": {}, "hrandfield": {},
	// server
	"info": {}, "ping": {},
}

// Classify reports whether verb only reads data.
func Classify(verb string) Kind {
	if _, ok := readCommands[strings.ToLower(verb)]; ok {
		return Read
	}
	return Write
}

func IsRead(verb string) bool { return Classify(verb) == Read }
