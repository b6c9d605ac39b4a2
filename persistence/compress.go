package persistence

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec defines the compression applied to a snapshot body.
type Codec uint8

const (
	// CodecNone stores the body uncompressed.
	CodecNone Codec = 0
	// CodecZSTD compresses with ZSTD (better ratio, good for cold data).
	CodecZSTD Codec = 1
	// CodecLZ4 compresses with LZ4 block compression (fast, good for hot data).
	CodecLZ4 Codec = 2
)

// String returns the codec name as used in configuration.
func (c Codec) String() string {
	switch c {
	case CodecNone:
		return "none"
	case CodecZSTD:
		return "zstd"
	case CodecLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// ParseCodec resolves a configuration name to a Codec.
func ParseCodec(name string) (Codec, error) {
	switch name {
	case "", "none":
		return CodecNone, nil
	case "zstd":
		return CodecZSTD, nil
	case "lz4":
		return CodecLZ4, nil
	default:
		return 0, fmt.Errorf("unknown compression codec %q", name)
	}
}

// ZSTD encoder/decoder pools for efficiency
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

// Compressed bodies carry an 8-byte block header:
// [UncompressedSize uint32][CompressedSize uint32][Data...]
// If CompressedSize == 0, the block is stored uncompressed. CodecNone
// bodies are raw, with no block header.
const blockHeaderSize = 8

// compressBody compresses a snapshot body using the codec. If
// compression does not help (ratio > 0.9), the block is stored
// uncompressed under the same codec so readers stay uniform.
func compressBody(data []byte, codec Codec) ([]byte, error) {
	var compressed []byte

	switch codec {
	case CodecNone:
		return data, nil
	case CodecZSTD:
		enc := getZstdEncoder()
		compressed = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	case CodecLZ4:
		bound := lz4.CompressBlockBound(len(data))
		buf := make([]byte, bound)
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, err
		}
		compressed = buf[:n] // n == 0 means incompressible
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidCodec, codec)
	}

	if len(compressed) == 0 || float64(len(compressed)) > float64(len(data))*0.9 {
		result := make([]byte, blockHeaderSize+len(data))
		binary.LittleEndian.PutUint32(result[0:], uint32(len(data)))
		binary.LittleEndian.PutUint32(result[4:], 0) // 0 = uncompressed
		copy(result[blockHeaderSize:], data)
		return result, nil
	}

	result := make([]byte, blockHeaderSize+len(compressed))
	binary.LittleEndian.PutUint32(result[0:], uint32(len(data)))
	binary.LittleEndian.PutUint32(result[4:], uint32(len(compressed)))
	copy(result[blockHeaderSize:], compressed)
	return result, nil
}

// decompressBody reverses compressBody.
func decompressBody(data []byte, codec Codec) ([]byte, error) {
	if codec == CodecNone {
		return data, nil
	}
	if codec != CodecZSTD && codec != CodecLZ4 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCodec, codec)
	}

	if len(data) < blockHeaderSize {
		return nil, corruptf("block too small for header")
	}

	uncompressedSize := int64(binary.LittleEndian.Uint32(data[0:]))
	compressedSize := int64(binary.LittleEndian.Uint32(data[4:]))

	if compressedSize == 0 {
		if int64(len(data)) < blockHeaderSize+uncompressedSize {
			return nil, corruptf("block data too small")
		}
		return data[blockHeaderSize : blockHeaderSize+uncompressedSize], nil
	}

	if int64(len(data)) < blockHeaderSize+compressedSize {
		return nil, corruptf("compressed block data too small")
	}
	compressedData := data[blockHeaderSize : blockHeaderSize+compressedSize]

	switch codec {
	case CodecLZ4:
		result := make([]byte, uncompressedSize)
		n, err := lz4.UncompressBlock(compressedData, result)
		if err != nil {
			return nil, corruptf("lz4: %s", err)
		}
		if int64(n) != uncompressedSize {
			return nil, corruptf("decompressed size mismatch")
		}
		return result, nil
	default: // CodecZSTD
		dec := getZstdDecoder()
		result, err := dec.DecodeAll(compressedData, nil)
		zstdDecoderPool.Put(dec)
		if err != nil {
			return nil, corruptf("zstd: %s", err)
		}
		if int64(len(result)) != uncompressedSize {
			return nil, corruptf("decompressed size mismatch")
		}
		return result, nil
	}
}
