package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"smartcache/pkg/cacheerrors"
	"smartcache/pkg/cluster"
	"smartcache/pkg/store"
)

type stubRouter struct {
	node *cluster.Node
}

func (s stubRouter) ForRead(string) *cluster.Node  { return s.node }
func (s stubRouter) ForWrite(string) *cluster.Node { return s.node }
func (s stubRouter) Nodes() []*cluster.Node        { return []*cluster.Node{s.node} }

// failingConn падает на любом вызове, который переопределён
type failingConn struct {
	store.Conn
	err error
}

func (f failingConn) Get(context.Context, string) ([]byte, bool, error) { return nil, false, f.err }

// countingConn считает вызовы ZAdd и их размер
type countingConn struct {
	*store.Memory
	zaddCalls []int
	failOn    int // номер вызова (с 1), который вернёт ошибку
}

func (c *countingConn) ZAdd(ctx context.Context, key string, members ...store.Z) (int64, error) {
	c.zaddCalls = append(c.zaddCalls, len(members))
	if len(c.zaddCalls) == c.failOn {
		return 0, &cacheerrors.TransportError{Op: "zadd", Err: errors.New("broken pipe")}
	}
	return c.Memory.ZAdd(ctx, key, members...)
}

func nodeWith(conn store.Conn, caps cluster.Capabilities) *cluster.Node {
	return &cluster.Node{ID: "test:memory:6379:0", Conn: conn, Caps: caps}
}

func TestBulk_LegacyNodeDegradesPerElement(t *testing.T) {
	tc := newTestCluster(t, shards(1), store.WithVersion("2.2.0"))
	c := New(tc.router)
	ctx := context.Background()

	n, err := c.ZAdd(ctx, "z", []Scored{{"a", 1}, {"b", 2}, {"c", 3}})
	require.NoError(t, err)
	require.Equal(t, int64(3), n)

	for member, want := range map[string]float64{"a": 1, "b": 2, "c": 3} {
		score, ok, err := c.Score(ctx, "z", member)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, want, score)
	}

	added, err := c.SAdd(ctx, "s", "x", "y")
	require.NoError(t, err)
	require.Equal(t, int64(2), added)

	length, err := c.RPush(ctx, "l", "1", "2", "3")
	require.NoError(t, err)
	require.Equal(t, int64(3), length)

	removed, err := c.PopMember(ctx, "s", "x", "y")
	require.NoError(t, err)
	require.Equal(t, int64(2), removed)
}

func TestBulk_LegacyMembersReturnsOne(t *testing.T) {
	tc := newTestCluster(t, shards(1), store.WithVersion("2.4.0"))
	c := New(tc.router)
	ctx := context.Background()

	_, err := c.SAdd(ctx, "s", "a", "b", "c")
	require.NoError(t, err)
	got, err := c.Members(ctx, "s", 3)
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestBulk_ModernNodeBatches(t *testing.T) {
	conn := &countingConn{Memory: store.NewMemoryServer().Conn(0)}
	c := New(stubRouter{node: nodeWith(conn, cluster.Capabilities{Known: true, Variadic: true})})

	n, err := c.ZAdd(context.Background(), "z", []Scored{{"a", 1}, {"b", 2}, {"c", 3}})
	require.NoError(t, err)
	require.Equal(t, int64(3), n)
	require.Equal(t, []int{3}, conn.zaddCalls)
}

func TestBulk_UnknownCapsFallsBackOnRejection(t *testing.T) {
	legacy := store.NewMemoryServer(store.WithVersion("2.2.0")).Conn(0)
	conn := &countingConn{Memory: legacy}
	c := New(stubRouter{node: nodeWith(conn, cluster.Capabilities{})})

	n, err := c.ZAdd(context.Background(), "z", []Scored{{"a", 1}, {"b", 2}})
	require.NoError(t, err)
	require.Equal(t, int64(2), n)
	require.Equal(t, []int{2, 1, 1}, conn.zaddCalls)
}

func TestBulk_PerElementJoinsErrors(t *testing.T) {
	legacy := store.NewMemoryServer(store.WithVersion("2.2.0")).Conn(0)
	conn := &countingConn{Memory: legacy, failOn: 2}
	c := New(stubRouter{node: nodeWith(conn, cluster.Capabilities{Known: true})})

	n, err := c.ZAdd(context.Background(), "z", []Scored{{"a", 1}, {"b", 2}, {"c", 3}})
	require.ErrorIs(t, err, cacheerrors.ErrTransport)
	require.Equal(t, int64(2), n, "successful elements still count")
	require.Len(t, conn.zaddCalls, 3, "every element is attempted")
}

func TestBulk_OtherErrorsDoNotFallBack(t *testing.T) {
	srv := store.NewMemoryServer(store.WithVersion("2.2.0"))
	conn := &countingConn{Memory: srv.Conn(0), failOn: 1}
	c := New(stubRouter{node: nodeWith(conn, cluster.Capabilities{})})

	_, err := c.ZAdd(context.Background(), "z", []Scored{{"a", 1}, {"b", 2}})
	require.ErrorIs(t, err, cacheerrors.ErrTransport)
	require.Equal(t, []int{2}, conn.zaddCalls)
}
