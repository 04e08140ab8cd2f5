package cluster

import (
	"context"
	"errors"
	"testing"

	"smartcache/pkg/cacheerrors"
	"smartcache/pkg/store"
)

func memDesc(name string, role Role) Descriptor {
	return Descriptor{Name: name, Host: MemoryHost, Port: 6379, Weight: 100, Role: role}
}

// версия недоступна: проба падает
type noVersionConn struct {
	*store.Memory
}

func (noVersionConn) ServerVersion(context.Context) (string, error) {
	return "", errors.New("INFO disabled")
}

func TestRegistry_ProbesCapabilities(t *testing.T) {
	modern := memDesc("modern", RoleShard)
	legacy := memDesc("legacy", RoleShard)
	servers := map[string]*store.MemoryServer{
		"modern": store.NewMemoryServer(),
		"legacy": store.NewMemoryServer(store.WithVersion("2.2.0")),
	}
	dial := func(_ context.Context, d Descriptor) (store.Conn, error) {
		return servers[d.Name].Conn(d.DB), nil
	}

	reg, err := NewRegistry(context.Background(), []Descriptor{modern, legacy}, dial)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	defer reg.Close()

	m := reg.Get(modern.Identity())
	if !m.Caps.Known || !m.Caps.Variadic || !m.Caps.RandCount {
		t.Fatalf("modern caps = %+v", m.Caps)
	}
	l := reg.Get(legacy.Identity())
	if !l.Caps.Known || l.Caps.Variadic || l.Caps.RandCount {
		t.Fatalf("legacy caps = %+v", l.Caps)
	}
	if reg.Len() != 2 || reg.Nodes()[0].ID != modern.Identity() {
		t.Fatalf("unexpected order: %v", reg.Nodes())
	}
}

func TestRegistry_FailedProbeLeavesCapsUnknown(t *testing.T) {
	srv := store.NewMemoryServer()
	dial := func(_ context.Context, d Descriptor) (store.Conn, error) {
		return noVersionConn{srv.Conn(d.DB)}, nil
	}
	d := memDesc("a", RoleShard)
	reg, err := NewRegistry(context.Background(), []Descriptor{d}, dial)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if caps := reg.Get(d.Identity()).Caps; caps.Known {
		t.Fatalf("caps should be unknown, got %+v", caps)
	}
}

func TestRegistry_ConfigErrors(t *testing.T) {
	dial := DialerFor(NewMemoryNodes())
	cases := map[string][]Descriptor{
		"duplicate":   {memDesc("a", RoleShard), memDesc("a", RoleShard)},
		"bad role":    {memDesc("a", "leader")},
		"no host":     {{Name: "a", Port: 1, Weight: 1, Role: RoleShard}},
		"bad port":    {{Name: "a", Host: MemoryHost, Port: 70000, Weight: 1, Role: RoleShard}},
		"negative db": {{Name: "a", Host: MemoryHost, Port: 1, DB: -1, Weight: 1, Role: RoleShard}},
	}
	for name, descs := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewRegistry(context.Background(), descs, dial)
			if !errors.Is(err, cacheerrors.ErrConfiguration) {
				t.Fatalf("expected ErrConfiguration, got %v", err)
			}
		})
	}
}

func TestRegistry_DialError(t *testing.T) {
	boom := errors.New("connection refused")
	dial := func(context.Context, Descriptor) (store.Conn, error) { return nil, boom }
	_, err := NewRegistry(context.Background(), []Descriptor{memDesc("a", RoleShard)}, dial)
	if !errors.Is(err, boom) {
		t.Fatalf("expected dial error, got %v", err)
	}
}

func TestRegistry_UnknownIdentityPanics(t *testing.T) {
	reg, err := NewRegistry(context.Background(), []Descriptor{memDesc("a", RoleShard)}, DialerFor(NewMemoryNodes()))
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for unknown identity")
		}
	}()
	reg.Get("ghost:memory:1:0")
}

func TestMemoryNodes_SharedServerPerAddress(t *testing.T) {
	nodes := NewMemoryNodes()
	a := memDesc("a", RoleShard)
	b := a
	b.DB = 3
	if nodes.Server(a) != nodes.Server(b) {
		t.Fatal("descriptors differing only by db must share a server")
	}
	c := memDesc("c", RoleShard)
	if nodes.Server(a) == nodes.Server(c) {
		t.Fatal("different names must get different servers")
	}
}
