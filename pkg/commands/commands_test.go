package commands

import "testing"

func TestClassify(t *testing.T) {
	reads := []string{"get", "GET", "exists", "lrange", "smembers", "sismember", "zscore", "zrangebyscore", "hgetall", "ttl", "type", "object"}
	for _, v := range reads {
		if Classify(v) != Read {
			t.Fatalf("Classify(%q) = write, want read", v)
		}
	}

	writes := []string{"set", "del", "expire", "lpush", "rpop", "sadd", "smove", "zadd", "zincrby", "hset", "hincrby", "rename", "incrby", "append"}
	for _, v := range writes {
		if Classify(v) != Write {
			t.Fatalf("Classify(%q) = read, want write", v)
		}
	}
}

// неизвестные команды уходят на master
func TestClassify_UnknownIsWrite(t *testing.T) {
	for _, v := range []string{"", "frobnicate", "xadd", "future.command"} {
		if IsRead(v) {
			t.Fatalf("unknown verb %q classified as read", v)
		}
	}
}

func TestKind_String(t *testing.T) {
	if Read.String() != "read" || Write.String() != "write" {
		t.Fatalf("unexpected names: %s %s", Read, Write)
	}
}
