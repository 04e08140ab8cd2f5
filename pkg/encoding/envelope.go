package encoding

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"smartcache/pkg/cacheerrors"
	"smartcache/pkg/encoding/custom"
)

// Serializer converts application values to store payloads and back.
type Serializer interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte) (any, error)
	Name() string
}

// magic prefixes every Binary payload so foreign bytes are rejected up front.
var magic = []byte{0xC5, 0x01}

// Binary is the default envelope built on the custom tagged encoder.
type Binary struct{}

func (Binary) Name() string { return "binary" }

func (Binary) Marshal(v any) ([]byte, error) {
	body, err := custom.Encode(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cacheerrors.ErrSerialization, err)
	}
	out := make([]byte, 0, len(magic)+len(body))
	out = append(out, magic...)
	return append(out, body...), nil
}

func (Binary) Unmarshal(data []byte) (any, error) {
	if !bytes.HasPrefix(data, magic) {
		return nil, fmt.Errorf("%w: missing envelope header", cacheerrors.ErrSerialization)
	}
	v, n, err := custom.Decode(data[len(magic):])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cacheerrors.ErrSerialization, err)
	}
	if n != len(data)-len(magic) {
		return nil, fmt.Errorf("%w: %d trailing bytes", cacheerrors.ErrSerialization, len(data)-len(magic)-n)
	}
	return v, nil
}

// JSON stores values as JSON documents, readable by non-Go clients.
// Numbers come back as float64, so integer round trips are lossy above 2^53.
type JSON struct{}

func (JSON) Name() string { return "json" }

func (JSON) Marshal(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cacheerrors.ErrSerialization, err)
	}
	return b, nil
}

func (JSON) Unmarshal(data []byte) (any, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", cacheerrors.ErrSerialization, err)
	}
	return v, nil
}

// ByName returns the serializer registered under name. A "+zstd" suffix
// wraps it in Compressed with the default threshold.
func ByName(name string) (Serializer, error) {
	if base, ok := strings.CutSuffix(name, "+zstd"); ok {
		inner, err := ByName(base)
		if err != nil {
			return nil, err
		}
		return Compressed{Inner: inner, Threshold: DefaultCompressThreshold}, nil
	}
	switch name {
	case "", "binary":
		return Binary{}, nil
	case "json":
		return JSON{}, nil
	}
	return nil, fmt.Errorf("%w: unknown serializer %q", cacheerrors.ErrConfiguration, name)
}
