package metadata

import (
	"encoding/binary"
	"errors"
	"math"
	"time"
)

// Binary layout: one kind byte, then a kind-specific payload.
//
//	KindInt    varint (zigzag)
//	KindFloat  4 bytes, IEEE-754 bits little-endian
//	KindString uvarint length + raw bytes
//	KindBool   1 byte
//	KindTime   8 bytes unix seconds (int64 LE) + 4 bytes nanos (uint32 LE)
//
// Entry lists are a uvarint count followed by (uvarint key length, key
// bytes, value) per entry, preserving order and duplicate keys.

// AppendValue appends the binary encoding of v to buf.
func AppendValue(buf []byte, v Value) ([]byte, error) {
	buf = append(buf, byte(v.Kind))

	switch v.Kind {
	case KindInt:
		buf = binary.AppendVarint(buf, int64(v.I))
	case KindFloat:
		bits := math.Float32bits(v.F)
		buf = binary.LittleEndian.AppendUint32(buf, bits)
	case KindString:
		buf = binary.AppendUvarint(buf, uint64(len(v.S)))
		buf = append(buf, v.S...)
	case KindBool:
		if v.B {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
	case KindTime:
		t := v.T.UTC()
		buf = binary.LittleEndian.AppendUint64(buf, uint64(t.Unix()))
		buf = binary.LittleEndian.AppendUint32(buf, uint32(t.Nanosecond()))
	default:
		return nil, errors.New("unknown metadata kind")
	}
	return buf, nil
}

// ParseValue decodes one Value from data and returns the remaining bytes.
func ParseValue(data []byte) (Value, []byte, error) {
	if len(data) == 0 {
		return Value{}, nil, errors.New("short buffer for value kind")
	}
	kind := Kind(data[0])
	data = data[1:]

	var v Value
	v.Kind = kind

	switch kind {
	case KindInt:
		i, n := binary.Varint(data)
		if n <= 0 {
			return v, nil, errors.New("invalid int value")
		}
		if i < math.MinInt32 || i > math.MaxInt32 {
			return v, nil, errors.New("int value out of range")
		}
		v.I = int32(i)
		data = data[n:]
	case KindFloat:
		if len(data) < 4 {
			return v, nil, errors.New("short buffer for float")
		}
		bits := binary.LittleEndian.Uint32(data)
		v.F = math.Float32frombits(bits)
		data = data[4:]
	case KindString:
		sLen, n := binary.Uvarint(data)
		if n <= 0 {
			return v, nil, errors.New("invalid string length")
		}
		data = data[n:]
		if uint64(len(data)) < sLen {
			return v, nil, errors.New("short buffer for string")
		}
		v.S = string(data[:sLen])
		data = data[sLen:]
	case KindBool:
		if len(data) == 0 {
			return v, nil, errors.New("short buffer for bool")
		}
		v.B = data[0] != 0
		data = data[1:]
	case KindTime:
		if len(data) < 12 {
			return v, nil, errors.New("short buffer for time")
		}
		sec := int64(binary.LittleEndian.Uint64(data))
		nanos := binary.LittleEndian.Uint32(data[8:])
		v.T = time.Unix(sec, int64(nanos)).UTC()
		data = data[12:]
	default:
		return v, nil, errors.New("unknown metadata kind")
	}
	return v, data, nil
}

// AppendEntries appends the binary encoding of the entry list to buf.
func AppendEntries(buf []byte, es Entries) ([]byte, error) {
	buf = binary.AppendUvarint(buf, uint64(len(es)))

	for _, e := range es {
		buf = binary.AppendUvarint(buf, uint64(len(e.Key)))
		buf = append(buf, e.Key...)

		var err error
		buf, err = AppendValue(buf, e.Value)
		if err != nil {
			return nil, err
		}
	}
	return buf, nil
}

// ParseEntries decodes an entry list from data and returns the remaining
// bytes. Order and duplicate keys are preserved exactly as written.
func ParseEntries(data []byte) (Entries, []byte, error) {
	count, n := binary.Uvarint(data)
	if n <= 0 {
		return nil, nil, errors.New("invalid entry count")
	}
	data = data[n:]

	if count > uint64(len(data)) {
		return nil, nil, errors.New("entry count exceeds buffer")
	}

	es := make(Entries, 0, count)
	for i := uint64(0); i < count; i++ {
		kLen, n := binary.Uvarint(data)
		if n <= 0 {
			return nil, nil, errors.New("invalid key length")
		}
		data = data[n:]
		if uint64(len(data)) < kLen {
			return nil, nil, errors.New("short buffer for key")
		}
		key := string(data[:kLen])
		data = data[kLen:]

		val, remaining, err := ParseValue(data)
		if err != nil {
			return nil, nil, err
		}
		es = append(es, Entry{Key: key, Value: val})
		data = remaining
	}
	return es, data, nil
}
