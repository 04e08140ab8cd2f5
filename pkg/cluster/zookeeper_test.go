package cluster

import (
	"errors"
	"testing"

	"github.com/goccy/go-yaml"

	"smartcache/pkg/cacheerrors"
)

func TestParseDescriptor(t *testing.T) {
	data := []byte("name: shard1\nhost: 10.0.0.1\nport: 6379\ndb: 2\nrole: shard\n")
	d, err := parseDescriptor("shard1", data)
	if err != nil {
		t.Fatalf("parseDescriptor: %v", err)
	}
	if d.Identity() != "shard1:10.0.0.1:6379:2" {
		t.Fatalf("identity = %q", d.Identity())
	}
	if d.Weight != 1 {
		t.Fatalf("default weight = %d, want 1", d.Weight)
	}
}

func TestParseDescriptor_RoundTripsMarshal(t *testing.T) {
	in := Descriptor{Name: "m", Host: "h", Port: 1, Weight: 7, Role: RoleMaster}
	data, err := yaml.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	out, err := parseDescriptor("m", data)
	if err != nil {
		t.Fatalf("parseDescriptor: %v", err)
	}
	if out != in {
		t.Fatalf("got %+v, want %+v", out, in)
	}
}

func TestParseDescriptor_Errors(t *testing.T) {
	for name, data := range map[string]string{
		"empty":    "",
		"garbage":  "name: [unterminated",
		"bad role": "name: a\nhost: h\nport: 1\nrole: boss\n",
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := parseDescriptor("x", []byte(data)); !errors.Is(err, cacheerrors.ErrConfiguration) {
				t.Fatalf("expected ErrConfiguration, got %v", err)
			}
		})
	}
}
