package snapshot

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects how snapshot payloads are compressed on dump.
// Restore detects the format from the payload, so snapshots written with
// any setting can be read back regardless of the current one.
type Compression uint8

const (
	// CompressionNone writes plain JSON.
	CompressionNone Compression = iota
	// CompressionZstd writes a zstd frame (better ratio, good for cold data).
	CompressionZstd
	// CompressionLZ4 writes an LZ4 frame (fast).
	CompressionLZ4
)

// String returns the name of the compression.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

var (
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	lz4Magic  = []byte{0x04, 0x22, 0x4d, 0x18}
)

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

func compress(data []byte, c Compression) ([]byte, error) {
	switch c {
	case CompressionNone:
		return data, nil

	case CompressionZstd:
		enc := getZstdEncoder()
		defer zstdEncoderPool.Put(enc)
		return enc.EncodeAll(data, make([]byte, 0, len(data)/2)), nil

	case CompressionLZ4:
		var buf bytes.Buffer
		zw := lz4.NewWriter(&buf)
		if _, err := zw.Write(data); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil

	default:
		return nil, fmt.Errorf("unknown compression %s", c)
	}
}

// detectCompression inspects the frame magic of a payload.
func detectCompression(data []byte) Compression {
	switch {
	case bytes.HasPrefix(data, zstdMagic):
		return CompressionZstd
	case bytes.HasPrefix(data, lz4Magic):
		return CompressionLZ4
	default:
		return CompressionNone
	}
}

func decompress(data []byte) ([]byte, error) {
	switch detectCompression(data) {
	case CompressionZstd:
		dec := getZstdDecoder()
		defer zstdDecoderPool.Put(dec)
		return dec.DecodeAll(data, nil)

	case CompressionLZ4:
		return io.ReadAll(lz4.NewReader(bytes.NewReader(data)))

	default:
		return data, nil
	}
}
