package encoding

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/zstd"

	"smartcache/pkg/cacheerrors"
)

// zstdMagic marks payloads compressed by Compressed.
var zstdMagic = []byte{0xC5, 0x5A}

// DefaultCompressThreshold is the payload size from which Compressed compresses.
const DefaultCompressThreshold = 1024

// энкодер и декодер zstd потокобезопасны для EncodeAll/DecodeAll
var (
	zstdEncoder, _ = zstd.NewWriter(nil)
	zstdDecoder, _ = zstd.NewReader(nil)
)

// Compressed wraps another serializer and zstd-compresses payloads of at
// least Threshold bytes. Smaller payloads are stored as Inner produced them,
// so Compressed reads everything Inner wrote.
type Compressed struct {
	Inner     Serializer
	Threshold int
}

func (c Compressed) Name() string { return c.Inner.Name() + "+zstd" }

func (c Compressed) Marshal(v any) ([]byte, error) {
	body, err := c.Inner.Marshal(v)
	if err != nil {
		return nil, err
	}
	if len(body) < c.Threshold {
		return body, nil
	}
	out := make([]byte, 0, len(zstdMagic)+len(body)/2)
	out = append(out, zstdMagic...)
	return zstdEncoder.EncodeAll(body, out), nil
}

func (c Compressed) Unmarshal(data []byte) (any, error) {
	if !bytes.HasPrefix(data, zstdMagic) {
		return c.Inner.Unmarshal(data)
	}
	body, err := zstdDecoder.DecodeAll(data[len(zstdMagic):], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: zstd: %v", cacheerrors.ErrSerialization, err)
	}
	return c.Inner.Unmarshal(body)
}
