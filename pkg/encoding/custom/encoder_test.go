package custom

import (
	"bytes"
	"reflect"
	"testing"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	cases := []any{
		nil,
		true,
		false,
		int64(-42),
		int32(7),
		uint64(1 << 63),
		float32(1.5),
		3.14159,
		"",
		"привет",
		[]byte{0, 1, 2},
		[]any{},
		[]any{"a", int64(1), []any{false, nil}},
		map[string]any{},
		map[string]any{"id": int64(10), "tags": []any{"x", "y"}, "nested": map[string]any{"ok": true}},
	}

	for _, in := range cases {
		data, err := Encode(in)
		if err != nil {
			t.Fatalf("Encode(%#v) error: %v", in, err)
		}
		out, n, err := Decode(data)
		if err != nil {
			t.Fatalf("Decode(%#v) error: %v", in, err)
		}
		if n != len(data) {
			t.Fatalf("Decode(%#v) consumed %d of %d bytes", in, n, len(data))
		}
		if !reflect.DeepEqual(in, out) {
			t.Fatalf("round trip mismatch: in=%#v out=%#v", in, out)
		}
	}
}

func TestEncode_TypedContainers(t *testing.T) {
	data, err := Encode(map[string][]int{"a": {1, 2}})
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	out, _, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	want := map[string]any{"a": []any{int64(1), int64(2)}}
	if !reflect.DeepEqual(out, want) {
		t.Fatalf("got %#v, want %#v", out, want)
	}
}

// одинаковые map должны давать одинаковые байты (важно для членства в set)
func TestEncode_MapIsDeterministic(t *testing.T) {
	v := map[string]any{"z": int64(1), "a": int64(2), "m": "x"}
	first, err := Encode(v)
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	for i := 0; i < 50; i++ {
		again, _ := Encode(v)
		if !bytes.Equal(first, again) {
			t.Fatalf("encoding is not deterministic")
		}
	}
}

func TestEncode_Unsupported(t *testing.T) {
	if _, err := Encode(make(chan int)); err == nil {
		t.Fatal("expected error for channel")
	}
	if _, err := Encode(map[int]string{1: "a"}); err == nil {
		t.Fatal("expected error for non-string map key")
	}
}

func TestDecode_Corrupt(t *testing.T) {
	for _, data := range [][]byte{
		nil,
		{byte(TypeInt64), 1, 2},
		{byte(TypeString), 10, 0, 0, 0, 'a'},
		{byte(TypeList), 0xff, 0xff, 0xff, 0x7f},
		{0xEE},
	} {
		if _, _, err := Decode(data); err == nil {
			t.Fatalf("Decode(%v) expected error", data)
		}
	}
}
