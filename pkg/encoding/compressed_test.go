package encoding

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"

	"smartcache/pkg/cacheerrors"
)

func TestCompressed_LargePayloadShrinks(t *testing.T) {
	c := Compressed{Inner: Binary{}, Threshold: 64}
	v := strings.Repeat("abcdefgh", 512)

	data, err := c.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !bytes.HasPrefix(data, zstdMagic) {
		t.Fatal("large payload was not compressed")
	}
	if len(data) >= len(v) {
		t.Fatalf("compressed size %d >= raw %d", len(data), len(v))
	}

	got, err := c.Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got != v {
		t.Fatal("round trip mismatch")
	}
}

func TestCompressed_SmallPayloadPassesThrough(t *testing.T) {
	c := Compressed{Inner: Binary{}, Threshold: 1024}
	data, err := c.Marshal("tiny")
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	plain, _ := Binary{}.Marshal("tiny")
	if !bytes.Equal(data, plain) {
		t.Fatal("small payload must be stored as the inner serializer wrote it")
	}
	got, err := c.Unmarshal(plain)
	if err != nil || !reflect.DeepEqual(got, "tiny") {
		t.Fatalf("got %#v, %v", got, err)
	}
}

func TestCompressed_CorruptFrame(t *testing.T) {
	c := Compressed{Inner: Binary{}}
	_, err := c.Unmarshal(append(append([]byte{}, zstdMagic...), 1, 2, 3))
	if !errors.Is(err, cacheerrors.ErrSerialization) {
		t.Fatalf("expected ErrSerialization, got %v", err)
	}
}

func TestByName_ZstdSuffix(t *testing.T) {
	s, err := ByName("json+zstd")
	if err != nil {
		t.Fatalf("ByName: %v", err)
	}
	if s.Name() != "json+zstd" {
		t.Fatalf("Name() = %q", s.Name())
	}
	if _, err := ByName("gob+zstd"); !errors.Is(err, cacheerrors.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}
