package store

import (
	"context"
	"fmt"
	"math/rand"
	"path"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"smartcache/pkg/cacheerrors"
)

type iTimeProvider interface {
	Now() time.Time
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

type entry struct {
	typ      Type
	str      []byte
	list     [][]byte
	set      map[string]struct{}
	zset     map[string]float64
	hash     map[string][]byte
	expireAt time.Time
	accessed time.Time
}

// MemoryServer is an in-process store node. It backs the "memory" dial scheme
// and stands in for a real server in tests.
type MemoryServer struct {
	mu      sync.Mutex
	version string
	tp      iTimeProvider
	dbs     map[int]map[string]*entry
	rnd     *rand.Rand
	calls   atomic.Int64
}

type MemoryOption func(*MemoryServer)

// WithVersion sets the version the server reports. Versions below 2.4 reject
// variadic list/set/sorted set writes, below 2.6 SRANDMEMBER with a count.
func WithVersion(v string) MemoryOption {
	return func(s *MemoryServer) { s.version = v }
}

func WithTimeProvider(tp iTimeProvider) MemoryOption {
	return func(s *MemoryServer) { s.tp = tp }
}

func NewMemoryServer(opts ...MemoryOption) *MemoryServer {
	s := &MemoryServer{
		version: "7.2.0",
		tp:      wallClock{},
		dbs:     make(map[int]map[string]*entry),
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Conn returns a connection bound to database db.
func (s *MemoryServer) Conn(db int) *Memory {
	return &Memory{srv: s, db: db}
}

// Calls returns the number of commands the server has received.
func (s *MemoryServer) Calls() int64 {
	return s.calls.Load()
}

// Memory is a Conn to a MemoryServer database.
type Memory struct {
	srv *MemoryServer
	db  int
}

var _ Conn = (*Memory)(nil)

// begin counts the call, locks the server and returns the selected keyspace.
func (m *Memory) begin() map[string]*entry {
	m.srv.calls.Add(1)
	m.srv.mu.Lock()
	ks, ok := m.srv.dbs[m.db]
	if !ok {
		ks = make(map[string]*entry)
		m.srv.dbs[m.db] = ks
	}
	return ks
}

func (m *Memory) end() { m.srv.mu.Unlock() }

func (m *Memory) now() time.Time { return m.srv.tp.Now() }

// lookup returns the live entry for key, dropping it when expired.
func (m *Memory) lookup(ks map[string]*entry, key string) *entry {
	e, ok := ks[key]
	if !ok {
		return nil
	}
	if !e.expireAt.IsZero() && !m.now().Before(e.expireAt) {
		delete(ks, key)
		return nil
	}
	e.accessed = m.now()
	return e
}

func (m *Memory) typed(ks map[string]*entry, key string, typ Type) (*entry, error) {
	e := m.lookup(ks, key)
	if e == nil {
		return nil, nil
	}
	if e.typ != typ {
		return nil, wrongType(key, typ, e.typ)
	}
	return e, nil
}

func (m *Memory) create(ks map[string]*entry, key string, typ Type) (*entry, error) {
	e, err := m.typed(ks, key, typ)
	if err != nil || e != nil {
		return e, err
	}
	e = &entry{typ: typ, accessed: m.now()}
	switch typ {
	case TypeSet:
		e.set = make(map[string]struct{})
	case TypeZSet:
		e.zset = make(map[string]float64)
	case TypeHash:
		e.hash = make(map[string][]byte)
	}
	ks[key] = e
	return e, nil
}

// dropEmpty removes containers that became empty, like the real server does.
func dropEmpty(ks map[string]*entry, key string, e *entry) {
	if e.size() == 0 {
		delete(ks, key)
	}
}

func (e *entry) size() int {
	switch e.typ {
	case TypeList:
		return len(e.list)
	case TypeSet:
		return len(e.set)
	case TypeZSet:
		return len(e.zset)
	case TypeHash:
		return len(e.hash)
	}
	return 1
}

func wrongType(key string, want, got Type) error {
	return fmt.Errorf("%w: key %q holds %s, not %s", cacheerrors.ErrWrongType, key, got, want)
}

func (m *Memory) checkVariadic(verb string, n int) error {
	if n > 1 && !VersionAtLeast(m.srv.version, 2, 4) {
		return fmt.Errorf("%w: ERR wrong number of arguments for '%s' command", cacheerrors.ErrVariadicRejected, verb)
	}
	return nil
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	ks := m.begin()
	defer m.end()
	e, err := m.typed(ks, key, TypeString)
	if err != nil || e == nil {
		return nil, false, err
	}
	return clone(e.str), true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	ks := m.begin()
	defer m.end()
	ks[key] = &entry{typ: TypeString, str: clone(value), accessed: m.now()}
	return nil
}

func (m *Memory) Append(_ context.Context, key string, value []byte) (int64, error) {
	ks := m.begin()
	defer m.end()
	e, err := m.create(ks, key, TypeString)
	if err != nil {
		return 0, err
	}
	e.str = append(e.str, value...)
	return int64(len(e.str)), nil
}

func (m *Memory) Del(_ context.Context, keys ...string) (int64, error) {
	ks := m.begin()
	defer m.end()
	var n int64
	for _, k := range keys {
		if m.lookup(ks, k) != nil {
			delete(ks, k)
			n++
		}
	}
	return n, nil
}

func (m *Memory) Exists(_ context.Context, key string) (bool, error) {
	ks := m.begin()
	defer m.end()
	return m.lookup(ks, key) != nil, nil
}

func (m *Memory) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return m.ExpireAt(ctx, key, m.now().Add(ttl))
}

func (m *Memory) ExpireAt(_ context.Context, key string, at time.Time) (bool, error) {
	ks := m.begin()
	defer m.end()
	e := m.lookup(ks, key)
	if e == nil {
		return false, nil
	}
	if !at.After(m.now()) {
		delete(ks, key)
		return true, nil
	}
	e.expireAt = at
	return true, nil
}

func (m *Memory) TTL(_ context.Context, key string) (time.Duration, error) {
	ks := m.begin()
	defer m.end()
	e := m.lookup(ks, key)
	switch {
	case e == nil:
		return TTLMissing, nil
	case e.expireAt.IsZero():
		return TTLNoExpiry, nil
	}
	return e.expireAt.Sub(m.now()).Truncate(time.Second), nil
}

func (m *Memory) Persist(_ context.Context, key string) (bool, error) {
	ks := m.begin()
	defer m.end()
	e := m.lookup(ks, key)
	if e == nil || e.expireAt.IsZero() {
		return false, nil
	}
	e.expireAt = time.Time{}
	return true, nil
}

func (m *Memory) Rename(_ context.Context, key, newKey string) error {
	ks := m.begin()
	defer m.end()
	e := m.lookup(ks, key)
	if e == nil {
		return fmt.Errorf("ERR no such key")
	}
	delete(ks, key)
	ks[newKey] = e
	return nil
}

func (m *Memory) RenameNX(_ context.Context, key, newKey string) (bool, error) {
	ks := m.begin()
	defer m.end()
	e := m.lookup(ks, key)
	if e == nil {
		return false, fmt.Errorf("ERR no such key")
	}
	if m.lookup(ks, newKey) != nil {
		return false, nil
	}
	delete(ks, key)
	ks[newKey] = e
	return true, nil
}

func (m *Memory) Move(_ context.Context, key string, db int) (bool, error) {
	ks := m.begin()
	defer m.end()
	if db == m.db {
		return false, fmt.Errorf("ERR source and destination objects are the same")
	}
	e := m.lookup(ks, key)
	if e == nil {
		return false, nil
	}
	dst, ok := m.srv.dbs[db]
	if !ok {
		dst = make(map[string]*entry)
		m.srv.dbs[db] = dst
	}
	if m.lookup(dst, key) != nil {
		return false, nil
	}
	delete(ks, key)
	dst[key] = e
	return true, nil
}

func (m *Memory) Type(_ context.Context, key string) (Type, error) {
	ks := m.begin()
	defer m.end()
	e, ok := ks[key]
	if !ok || (!e.expireAt.IsZero() && !m.now().Before(e.expireAt)) {
		return TypeNone, nil
	}
	return e.typ, nil
}

func (m *Memory) ObjectIdleTime(_ context.Context, key string) (time.Duration, bool, error) {
	ks := m.begin()
	defer m.end()
	e, ok := ks[key]
	if !ok {
		return 0, false, nil
	}
	return m.now().Sub(e.accessed).Truncate(time.Second), true, nil
}

func (m *Memory) IncrBy(_ context.Context, key string, n int64) (int64, error) {
	ks := m.begin()
	defer m.end()
	e, err := m.create(ks, key, TypeString)
	if err != nil {
		return 0, err
	}
	var cur int64
	if len(e.str) > 0 {
		v, err := strconv.ParseInt(string(e.str), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("ERR value is not an integer or out of range")
		}
		cur = v
	}
	cur += n
	e.str = strconv.AppendInt(nil, cur, 10)
	return cur, nil
}

// Scan pages through the keyspace in key order. The cursor is the offset of
// the next page, so keys written during a walk may be missed or repeated.
func (m *Memory) Scan(_ context.Context, cursor uint64, match string, count int64) ([]string, uint64, error) {
	ks := m.begin()
	defer m.end()
	if count <= 0 {
		count = 10
	}
	all := make([]string, 0, len(ks))
	for k := range ks {
		if m.lookup(ks, k) == nil {
			continue
		}
		if match != "" {
			ok, err := path.Match(match, k)
			if err != nil {
				return nil, 0, fmt.Errorf("ERR invalid pattern %q: %w", match, err)
			}
			if !ok {
				continue
			}
		}
		all = append(all, k)
	}
	sort.Strings(all)
	if cursor >= uint64(len(all)) {
		return nil, 0, nil
	}
	end := cursor + uint64(count)
	if end >= uint64(len(all)) {
		return all[cursor:], 0, nil
	}
	return all[cursor:end], end, nil
}

func (m *Memory) LPush(_ context.Context, key string, values ...[]byte) (int64, error) {
	ks := m.begin()
	defer m.end()
	if err := m.checkVariadic("lpush", len(values)); err != nil {
		return 0, err
	}
	e, err := m.create(ks, key, TypeList)
	if err != nil {
		return 0, err
	}
	for _, v := range values {
		e.list = append([][]byte{clone(v)}, e.list...)
	}
	return int64(len(e.list)), nil
}

func (m *Memory) RPush(_ context.Context, key string, values ...[]byte) (int64, error) {
	ks := m.begin()
	defer m.end()
	if err := m.checkVariadic("rpush", len(values)); err != nil {
		return 0, err
	}
	e, err := m.create(ks, key, TypeList)
	if err != nil {
		return 0, err
	}
	for _, v := range values {
		e.list = append(e.list, clone(v))
	}
	return int64(len(e.list)), nil
}

// normRange converts inclusive, possibly negative, indexes into a [lo, hi) slice range.
func normRange(start, stop int64, n int) (int, int) {
	size := int64(n)
	if start < 0 {
		start += size
	}
	if stop < 0 {
		stop += size
	}
	if start < 0 {
		start = 0
	}
	if stop >= size {
		stop = size - 1
	}
	if start > stop || start >= size {
		return 0, 0
	}
	return int(start), int(stop) + 1
}

func (m *Memory) LRange(_ context.Context, key string, start, stop int64) ([][]byte, error) {
	ks := m.begin()
	defer m.end()
	e, err := m.typed(ks, key, TypeList)
	if err != nil || e == nil {
		return nil, err
	}
	lo, hi := normRange(start, stop, len(e.list))
	out := make([][]byte, 0, hi-lo)
	for _, v := range e.list[lo:hi] {
		out = append(out, clone(v))
	}
	return out, nil
}

func (m *Memory) pop(key string, left bool) ([]byte, bool, error) {
	ks := m.begin()
	defer m.end()
	e, err := m.typed(ks, key, TypeList)
	if err != nil || e == nil {
		return nil, false, err
	}
	var v []byte
	if left {
		v, e.list = e.list[0], e.list[1:]
	} else {
		v, e.list = e.list[len(e.list)-1], e.list[:len(e.list)-1]
	}
	dropEmpty(ks, key, e)
	return v, true, nil
}

func (m *Memory) LPop(_ context.Context, key string) ([]byte, bool, error) {
	return m.pop(key, true)
}

func (m *Memory) RPop(_ context.Context, key string) ([]byte, bool, error) {
	return m.pop(key, false)
}

func (m *Memory) LLen(_ context.Context, key string) (int64, error) {
	ks := m.begin()
	defer m.end()
	e, err := m.typed(ks, key, TypeList)
	if err != nil || e == nil {
		return 0, err
	}
	return int64(len(e.list)), nil
}

func (m *Memory) SAdd(_ context.Context, key string, members ...[]byte) (int64, error) {
	ks := m.begin()
	defer m.end()
	if err := m.checkVariadic("sadd", len(members)); err != nil {
		return 0, err
	}
	e, err := m.create(ks, key, TypeSet)
	if err != nil {
		return 0, err
	}
	var added int64
	for _, mb := range members {
		if _, ok := e.set[string(mb)]; !ok {
			e.set[string(mb)] = struct{}{}
			added++
		}
	}
	return added, nil
}

func (m *Memory) SRem(_ context.Context, key string, members ...[]byte) (int64, error) {
	ks := m.begin()
	defer m.end()
	if err := m.checkVariadic("srem", len(members)); err != nil {
		return 0, err
	}
	e, err := m.typed(ks, key, TypeSet)
	if err != nil || e == nil {
		return 0, err
	}
	var removed int64
	for _, mb := range members {
		if _, ok := e.set[string(mb)]; ok {
			delete(e.set, string(mb))
			removed++
		}
	}
	dropEmpty(ks, key, e)
	return removed, nil
}

func (e *entry) sortedMembers() []string {
	out := make([]string, 0, len(e.set))
	for mb := range e.set {
		out = append(out, mb)
	}
	sort.Strings(out)
	return out
}

func (m *Memory) SRandMember(_ context.Context, key string) ([]byte, bool, error) {
	ks := m.begin()
	defer m.end()
	e, err := m.typed(ks, key, TypeSet)
	if err != nil || e == nil {
		return nil, false, err
	}
	all := e.sortedMembers()
	return []byte(all[m.srv.rnd.Intn(len(all))]), true, nil
}

func (m *Memory) SRandMemberN(_ context.Context, key string, count int64) ([][]byte, error) {
	ks := m.begin()
	defer m.end()
	if !VersionAtLeast(m.srv.version, 2, 6) {
		return nil, fmt.Errorf("ERR wrong number of arguments for 'srandmember' command")
	}
	e, err := m.typed(ks, key, TypeSet)
	if err != nil || e == nil {
		return nil, err
	}
	all := e.sortedMembers()
	m.srv.rnd.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })
	if count < int64(len(all)) {
		all = all[:count]
	}
	out := make([][]byte, len(all))
	for i, mb := range all {
		out[i] = []byte(mb)
	}
	return out, nil
}

func (m *Memory) SMembers(_ context.Context, key string) ([][]byte, error) {
	ks := m.begin()
	defer m.end()
	e, err := m.typed(ks, key, TypeSet)
	if err != nil || e == nil {
		return nil, err
	}
	all := e.sortedMembers()
	out := make([][]byte, len(all))
	for i, mb := range all {
		out[i] = []byte(mb)
	}
	return out, nil
}

func (m *Memory) SCard(_ context.Context, key string) (int64, error) {
	ks := m.begin()
	defer m.end()
	e, err := m.typed(ks, key, TypeSet)
	if err != nil || e == nil {
		return 0, err
	}
	return int64(len(e.set)), nil
}

func (m *Memory) SIsMember(_ context.Context, key string, member []byte) (bool, error) {
	ks := m.begin()
	defer m.end()
	e, err := m.typed(ks, key, TypeSet)
	if err != nil || e == nil {
		return false, err
	}
	_, ok := e.set[string(member)]
	return ok, nil
}

func (m *Memory) SMove(_ context.Context, src, dst string, member []byte) (bool, error) {
	ks := m.begin()
	defer m.end()
	from, err := m.typed(ks, src, TypeSet)
	if err != nil || from == nil {
		return false, err
	}
	if _, ok := from.set[string(member)]; !ok {
		return false, nil
	}
	to, err := m.create(ks, dst, TypeSet)
	if err != nil {
		return false, err
	}
	delete(from.set, string(member))
	to.set[string(member)] = struct{}{}
	dropEmpty(ks, src, from)
	return true, nil
}

func (m *Memory) ZAdd(_ context.Context, key string, members ...Z) (int64, error) {
	ks := m.begin()
	defer m.end()
	if err := m.checkVariadic("zadd", len(members)); err != nil {
		return 0, err
	}
	e, err := m.create(ks, key, TypeZSet)
	if err != nil {
		return 0, err
	}
	var added int64
	for _, z := range members {
		if _, ok := e.zset[string(z.Member)]; !ok {
			added++
		}
		e.zset[string(z.Member)] = z.Score
	}
	return added, nil
}

func (m *Memory) ZRem(_ context.Context, key string, members ...[]byte) (int64, error) {
	ks := m.begin()
	defer m.end()
	if err := m.checkVariadic("zrem", len(members)); err != nil {
		return 0, err
	}
	e, err := m.typed(ks, key, TypeZSet)
	if err != nil || e == nil {
		return 0, err
	}
	var removed int64
	for _, mb := range members {
		if _, ok := e.zset[string(mb)]; ok {
			delete(e.zset, string(mb))
			removed++
		}
	}
	dropEmpty(ks, key, e)
	return removed, nil
}

func (e *entry) ordered() []Z {
	out := make([]Z, 0, len(e.zset))
	for mb, score := range e.zset {
		out = append(out, Z{Member: []byte(mb), Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score < out[j].Score
		}
		return string(out[i].Member) < string(out[j].Member)
	})
	return out
}

func (m *Memory) ZRangeByScore(_ context.Context, key string, r ScoreRange) ([]Z, error) {
	ks := m.begin()
	defer m.end()
	e, err := m.typed(ks, key, TypeZSet)
	if err != nil || e == nil {
		return nil, err
	}
	var (
		out     []Z
		skipped int64
	)
	for _, z := range e.ordered() {
		if z.Score < r.Min || z.Score > r.Max {
			continue
		}
		if skipped < r.Offset {
			skipped++
			continue
		}
		if r.Count >= 0 && int64(len(out)) >= r.Count {
			break
		}
		out = append(out, z)
	}
	return out, nil
}

func (m *Memory) ZRemRangeByScore(_ context.Context, key string, min, max float64) (int64, error) {
	ks := m.begin()
	defer m.end()
	e, err := m.typed(ks, key, TypeZSet)
	if err != nil || e == nil {
		return 0, err
	}
	var removed int64
	for mb, score := range e.zset {
		if score >= min && score <= max {
			delete(e.zset, mb)
			removed++
		}
	}
	dropEmpty(ks, key, e)
	return removed, nil
}

func (m *Memory) ZCard(_ context.Context, key string) (int64, error) {
	ks := m.begin()
	defer m.end()
	e, err := m.typed(ks, key, TypeZSet)
	if err != nil || e == nil {
		return 0, err
	}
	return int64(len(e.zset)), nil
}

func (m *Memory) ZScore(_ context.Context, key string, member []byte) (float64, bool, error) {
	ks := m.begin()
	defer m.end()
	e, err := m.typed(ks, key, TypeZSet)
	if err != nil || e == nil {
		return 0, false, err
	}
	score, ok := e.zset[string(member)]
	return score, ok, nil
}

func (m *Memory) ZIncrBy(_ context.Context, key string, member []byte, incr float64) (float64, error) {
	ks := m.begin()
	defer m.end()
	e, err := m.create(ks, key, TypeZSet)
	if err != nil {
		return 0, err
	}
	e.zset[string(member)] += incr
	return e.zset[string(member)], nil
}

func (m *Memory) HSet(_ context.Context, key, field string, value []byte) (bool, error) {
	ks := m.begin()
	defer m.end()
	e, err := m.create(ks, key, TypeHash)
	if err != nil {
		return false, err
	}
	_, existed := e.hash[field]
	e.hash[field] = clone(value)
	return !existed, nil
}

func (m *Memory) HGet(_ context.Context, key, field string) ([]byte, bool, error) {
	ks := m.begin()
	defer m.end()
	e, err := m.typed(ks, key, TypeHash)
	if err != nil || e == nil {
		return nil, false, err
	}
	v, ok := e.hash[field]
	if !ok {
		return nil, false, nil
	}
	return clone(v), true, nil
}

func (m *Memory) HGetAll(_ context.Context, key string) (map[string][]byte, error) {
	ks := m.begin()
	defer m.end()
	out := make(map[string][]byte)
	e, err := m.typed(ks, key, TypeHash)
	if err != nil || e == nil {
		return out, err
	}
	for f, v := range e.hash {
		out[f] = clone(v)
	}
	return out, nil
}

func (e *entry) fields() []string {
	out := make([]string, 0, len(e.hash))
	for f := range e.hash {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

func (m *Memory) HKeys(_ context.Context, key string) ([]string, error) {
	ks := m.begin()
	defer m.end()
	e, err := m.typed(ks, key, TypeHash)
	if err != nil || e == nil {
		return nil, err
	}
	return e.fields(), nil
}

func (m *Memory) HVals(_ context.Context, key string) ([][]byte, error) {
	ks := m.begin()
	defer m.end()
	e, err := m.typed(ks, key, TypeHash)
	if err != nil || e == nil {
		return nil, err
	}
	fields := e.fields()
	out := make([][]byte, len(fields))
	for i, f := range fields {
		out[i] = clone(e.hash[f])
	}
	return out, nil
}

func (m *Memory) HExists(_ context.Context, key, field string) (bool, error) {
	ks := m.begin()
	defer m.end()
	e, err := m.typed(ks, key, TypeHash)
	if err != nil || e == nil {
		return false, err
	}
	_, ok := e.hash[field]
	return ok, nil
}

func (m *Memory) HLen(_ context.Context, key string) (int64, error) {
	ks := m.begin()
	defer m.end()
	e, err := m.typed(ks, key, TypeHash)
	if err != nil || e == nil {
		return 0, err
	}
	return int64(len(e.hash)), nil
}

func (m *Memory) HIncrBy(_ context.Context, key, field string, n int64) (int64, error) {
	ks := m.begin()
	defer m.end()
	e, err := m.create(ks, key, TypeHash)
	if err != nil {
		return 0, err
	}
	var cur int64
	if v, ok := e.hash[field]; ok {
		parsed, err := strconv.ParseInt(string(v), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("ERR hash value is not an integer")
		}
		cur = parsed
	}
	cur += n
	e.hash[field] = strconv.AppendInt(nil, cur, 10)
	return cur, nil
}

func (m *Memory) ServerVersion(context.Context) (string, error) {
	m.srv.calls.Add(1)
	return m.srv.version, nil
}

func (m *Memory) Close() error { return nil }
