package encoding

import (
	"errors"
	"reflect"
	"testing"

	"smartcache/pkg/cacheerrors"
)

func TestBinary_RoundTrip(t *testing.T) {
	s := Binary{}
	values := []any{
		"v1",
		int64(12),
		2.5,
		true,
		nil,
		[]any{"a", int64(2), 3.0},
		map[string]any{"name": "x", "n": int64(1), "list": []any{true}},
	}
	for _, v := range values {
		data, err := s.Marshal(v)
		if err != nil {
			t.Fatalf("Marshal(%#v) error: %v", v, err)
		}
		got, err := s.Unmarshal(data)
		if err != nil {
			t.Fatalf("Unmarshal(%#v) error: %v", v, err)
		}
		if !reflect.DeepEqual(got, v) {
			t.Fatalf("round trip mismatch: got %#v want %#v", got, v)
		}
	}
}

func TestBinary_ForeignPayload(t *testing.T) {
	_, err := Binary{}.Unmarshal([]byte("plain legacy text"))
	if !errors.Is(err, cacheerrors.ErrSerialization) {
		t.Fatalf("expected ErrSerialization, got %v", err)
	}
}

func TestBinary_MarshalUnsupported(t *testing.T) {
	_, err := Binary{}.Marshal(func() {})
	if !errors.Is(err, cacheerrors.ErrSerialization) {
		t.Fatalf("expected ErrSerialization, got %v", err)
	}
}

func TestJSON_RoundTrip(t *testing.T) {
	s := JSON{}
	v := map[string]any{"a": "b", "n": 1.0, "l": []any{true, nil}}
	data, err := s.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	got, err := s.Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if !reflect.DeepEqual(got, v) {
		t.Fatalf("got %#v want %#v", got, v)
	}
}

func TestByName(t *testing.T) {
	if s, err := ByName(""); err != nil || s.Name() != "binary" {
		t.Fatalf("default serializer: %v %v", s, err)
	}
	if s, err := ByName("json"); err != nil || s.Name() != "json" {
		t.Fatalf("json serializer: %v %v", s, err)
	}
	if _, err := ByName("pickle"); !errors.Is(err, cacheerrors.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}
