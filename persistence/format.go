package persistence

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"math"

	"github.com/hupe1980/vectra/collection"
	"github.com/hupe1980/vectra/metadata"
)

const (
	// MagicNumber identifies vectra snapshot files (ASCII: "VTRA").
	MagicNumber = 0x56545241
	// Version is the current snapshot format version.
	Version = 1

	// headerSize is the fixed byte length of the snapshot header:
	// magic u32 | version u16 | codec u8 | flags u8 | bodyLen u32 | crc u32.
	headerSize = 16
)

// ErrCorrupt is the root of all decode failures. Every error returned by
// Decode satisfies errors.Is(err, ErrCorrupt).
var ErrCorrupt = errors.New("corrupt snapshot")

var (
	ErrInvalidMagic   = fmt.Errorf("%w: invalid magic number", ErrCorrupt)
	ErrInvalidVersion = fmt.Errorf("%w: unsupported version", ErrCorrupt)
	ErrInvalidCodec   = fmt.Errorf("%w: unknown compression codec", ErrCorrupt)
)

// ChecksumMismatchError is returned when the stored CRC32 does not match
// the snapshot body.
type ChecksumMismatchError struct {
	Expected uint32
	Actual   uint32
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("checksum mismatch: expected 0x%08x, got 0x%08x", e.Expected, e.Actual)
}

func (e *ChecksumMismatchError) Unwrap() error { return ErrCorrupt }

func corruptf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCorrupt, fmt.Sprintf(format, args...))
}

// Encode serializes the collection's full current record set into a
// snapshot: header plus (optionally compressed) body.
func Encode(col *collection.Collection, codec Codec) ([]byte, error) {
	body, err := encodeBody(col)
	if err != nil {
		return nil, err
	}

	stored, err := compressBody(body, codec)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, 0, headerSize+len(stored))
	buf = binary.LittleEndian.AppendUint32(buf, MagicNumber)
	buf = binary.LittleEndian.AppendUint16(buf, Version)
	buf = append(buf, byte(codec), 0)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(stored)))
	buf = binary.LittleEndian.AppendUint32(buf, crc32.ChecksumIEEE(stored))
	return append(buf, stored...), nil
}

// Decode deserializes a snapshot produced by Encode. Any undecodable
// byte layout fails with an error satisfying errors.Is(err, ErrCorrupt).
func Decode(data []byte) (*collection.Collection, error) {
	if len(data) < headerSize {
		return nil, corruptf("short header: %d bytes", len(data))
	}

	if binary.LittleEndian.Uint32(data) != MagicNumber {
		return nil, ErrInvalidMagic
	}
	if v := binary.LittleEndian.Uint16(data[4:]); v != Version {
		return nil, fmt.Errorf("%w: %d", ErrInvalidVersion, v)
	}
	codec := Codec(data[6])

	bodyLen := binary.LittleEndian.Uint32(data[8:])
	sum := binary.LittleEndian.Uint32(data[12:])

	stored := data[headerSize:]
	if uint32(len(stored)) != bodyLen {
		return nil, corruptf("body length %d does not match header %d", len(stored), bodyLen)
	}
	if actual := crc32.ChecksumIEEE(stored); actual != sum {
		return nil, &ChecksumMismatchError{Expected: sum, Actual: actual}
	}

	body, err := decompressBody(stored, codec)
	if err != nil {
		return nil, err
	}
	return decodeBody(body)
}

func encodeBody(col *collection.Collection) ([]byte, error) {
	records := col.Records()

	// name + dimension + count + a rough per-record guess
	buf := make([]byte, 0, 16+len(col.Name())+len(records)*(col.Dimension()*8+16))

	name := col.Name()
	buf = binary.AppendUvarint(buf, uint64(len(name)))
	buf = append(buf, name...)
	buf = binary.AppendUvarint(buf, uint64(col.Dimension()))
	buf = binary.AppendUvarint(buf, uint64(len(records)))

	for i := range records {
		for _, v := range records[i].Values {
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
		}
		var err error
		buf, err = metadata.AppendEntries(buf, records[i].Meta)
		if err != nil {
			return nil, err
		}
	}
	return buf, nil
}

func decodeBody(data []byte) (*collection.Collection, error) {
	nameLen, n := binary.Uvarint(data)
	if n <= 0 {
		return nil, corruptf("invalid name length")
	}
	data = data[n:]
	if uint64(len(data)) < nameLen {
		return nil, corruptf("short buffer for name")
	}
	name := string(data[:nameLen])
	data = data[nameLen:]

	dim, n := binary.Uvarint(data)
	if n <= 0 {
		return nil, corruptf("invalid dimension")
	}
	data = data[n:]

	count, n := binary.Uvarint(data)
	if n <= 0 {
		return nil, corruptf("invalid record count")
	}
	data = data[n:]

	// Each record carries at least one entry-count byte, and a vector
	// cannot be wider than the remaining body. Checked up front so a
	// corrupt count or dimension cannot drive a huge allocation.
	if count > uint64(len(data)) {
		return nil, corruptf("record count %d exceeds buffer", count)
	}
	if count > 0 && dim > uint64(len(data))/8 {
		return nil, corruptf("dimension %d exceeds buffer", dim)
	}

	col := collection.New(name, int(dim))
	for i := uint64(0); i < count; i++ {
		values := make([]float64, dim)
		for j := range values {
			if len(data) < 8 {
				return nil, corruptf("short buffer for vector %d", i)
			}
			values[j] = math.Float64frombits(binary.LittleEndian.Uint64(data))
			data = data[8:]
		}

		meta, rest, err := metadata.ParseEntries(data)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %s", ErrCorrupt, i, err)
		}
		data = rest

		if err := col.Insert(collection.Record{Values: values, Meta: meta}); err != nil {
			return nil, err
		}
	}

	if len(data) != 0 {
		return nil, corruptf("%d trailing bytes after last record", len(data))
	}
	return col, nil
}
