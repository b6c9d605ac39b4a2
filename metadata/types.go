package metadata

import (
	"strconv"
	"time"
)

// Kind identifies the concrete type stored in a Value.
type Kind uint8

const (
	// KindInvalid represents an invalid kind.
	KindInvalid Kind = iota
	// KindInt represents a 32-bit signed integer value.
	KindInt
	// KindFloat represents a 32-bit float value.
	KindFloat
	// KindString represents a string value.
	KindString
	// KindBool represents a boolean value.
	KindBool
	// KindTime represents a UTC timestamp value.
	KindTime
)

// String returns the stable type label for the kind, as reported by
// schema introspection.
func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindTime:
		return "datetime"
	default:
		return "invalid"
	}
}

// Value is a small typed value used for record metadata.
//
// The representation is designed to make size accounting and serialization
// fast and predictable: no reflection and no fmt-based stringification.
// Every consumer switches exhaustively on Kind.
//
// NOTE: This is also used for persistence; keep it stable.
type Value struct {
	Kind Kind
	I    int32
	F    float32
	S    string
	B    bool
	T    time.Time
}

// Int returns an int32 Value.
func Int(v int32) Value { return Value{Kind: KindInt, I: v} }

// Float returns a float32 Value.
func Float(v float32) Value { return Value{Kind: KindFloat, F: v} }

// String returns a string Value.
func String(v string) Value { return Value{Kind: KindString, S: v} }

// Bool returns a boolean Value.
func Bool(v bool) Value { return Value{Kind: KindBool, B: v} }

// Time returns a timestamp Value. The instant is normalized to UTC so the
// canonical text form and the binary form agree regardless of the zone the
// caller held it in.
func Time(t time.Time) Value { return Value{Kind: KindTime, T: t.UTC()} }

// Weight returns the byte weight of the value used for cache budget
// estimation: fixed sizes for scalars, the byte length for strings.
// It is an estimate, not the serialized size.
func (v Value) Weight() int {
	switch v.Kind {
	case KindInt:
		return 4
	case KindFloat:
		return 4
	case KindString:
		return len(v.S)
	case KindBool:
		return 1
	case KindTime:
		return 12
	default:
		return 0
	}
}

// AsInt returns the int32 value if Kind is KindInt.
func (v Value) AsInt() (int32, bool) {
	if v.Kind != KindInt {
		return 0, false
	}
	return v.I, true
}

// AsFloat returns the float32 value if Kind is KindFloat.
func (v Value) AsFloat() (float32, bool) {
	if v.Kind != KindFloat {
		return 0, false
	}
	return v.F, true
}

// AsString returns the string value if Kind is KindString.
func (v Value) AsString() (string, bool) {
	if v.Kind != KindString {
		return "", false
	}
	return v.S, true
}

// AsBool returns the boolean value if Kind is KindBool.
func (v Value) AsBool() (bool, bool) {
	if v.Kind != KindBool {
		return false, false
	}
	return v.B, true
}

// AsTime returns the timestamp value if Kind is KindTime.
func (v Value) AsTime() (time.Time, bool) {
	if v.Kind != KindTime {
		return time.Time{}, false
	}
	return v.T, true
}

// String returns the canonical text form of the value. Timestamps render
// as RFC 3339 with sub-second precision preserved.
func (v Value) String() string {
	switch v.Kind {
	case KindInt:
		return strconv.FormatInt(int64(v.I), 10)
	case KindFloat:
		return strconv.FormatFloat(float64(v.F), 'g', -1, 32)
	case KindString:
		return v.S
	case KindBool:
		return strconv.FormatBool(v.B)
	case KindTime:
		return v.T.UTC().Format(time.RFC3339Nano)
	default:
		return ""
	}
}

// Equal reports whether two values hold the same kind and payload.
// Timestamps compare by instant.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindInt:
		return v.I == o.I
	case KindFloat:
		return v.F == o.F
	case KindString:
		return v.S == o.S
	case KindBool:
		return v.B == o.B
	case KindTime:
		return v.T.Equal(o.T)
	default:
		return true
	}
}

// Entry is a single key/value metadata pair. Keys are not required to be
// unique within a record; duplicates are permitted and preserved in order.
type Entry struct {
	Key   string
	Value Value
}

// Weight returns the entry's byte weight for cache budget estimation:
// key length plus the value weight.
func (e Entry) Weight() int {
	return len(e.Key) + e.Value.Weight()
}

// Entries is an ordered metadata list.
type Entries []Entry

// Weight returns the summed weight of all entries.
func (es Entries) Weight() int {
	total := 0
	for _, e := range es {
		total += e.Weight()
	}
	return total
}

// Find returns the value of the first entry with the given key.
func (es Entries) Find(key string) (Value, bool) {
	for _, e := range es {
		if e.Key == key {
			return e.Value, true
		}
	}
	return Value{}, false
}

// Clone returns a copy of the list. Values are copied by value semantics,
// so the clone is independent of the original.
func (es Entries) Clone() Entries {
	if es == nil {
		return nil
	}
	out := make(Entries, len(es))
	copy(out, es)
	return out
}
