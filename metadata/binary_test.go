package metadata

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueBinaryRoundTrip(t *testing.T) {
	ts := time.Date(2024, 5, 1, 10, 30, 0, 123456789, time.UTC)

	tests := []struct {
		name string
		v    Value
	}{
		{"int", Int(-12345)},
		{"int max", Int(math.MaxInt32)},
		{"int min", Int(math.MinInt32)},
		{"float", Float(3.14159)},
		{"float smallest", Float(math.SmallestNonzeroFloat32)},
		{"string", String("hello world")},
		{"empty string", String("")},
		{"bool true", Bool(true)},
		{"bool false", Bool(false)},
		{"time with nanos", Time(ts)},
		{"time before epoch", Time(time.Date(1960, 1, 1, 0, 0, 0, 0, time.UTC))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf, err := AppendValue(nil, tt.v)
			require.NoError(t, err)

			got, rest, err := ParseValue(buf)
			require.NoError(t, err)
			assert.Empty(t, rest)
			assert.True(t, tt.v.Equal(got), "got %#v want %#v", got, tt.v)
		})
	}
}

func TestFloatBitsPreserved(t *testing.T) {
	v := Float(math.Float32frombits(0x7fc00001)) // a specific NaN payload

	buf, err := AppendValue(nil, v)
	require.NoError(t, err)

	got, _, err := ParseValue(buf)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x7fc00001), math.Float32bits(got.F))
}

func TestAppendValueUnknownKind(t *testing.T) {
	_, err := AppendValue(nil, Value{Kind: Kind(99)})
	assert.Error(t, err)
}

func TestParseValueErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"unknown kind", []byte{99}},
		{"short float", []byte{byte(KindFloat), 1, 2}},
		{"short bool", []byte{byte(KindBool)}},
		{"short time", []byte{byte(KindTime), 0, 0, 0}},
		{"string length past end", []byte{byte(KindString), 10, 'a'}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseValue(tt.data)
			assert.Error(t, err)
		})
	}
}

func TestEntriesBinaryRoundTrip(t *testing.T) {
	ts := time.Date(2024, 5, 1, 10, 30, 0, 999, time.UTC)

	es := Entries{
		{Key: "source", Value: String("import")},
		{Key: "year", Value: Int(2024)},
		{Key: "score", Value: Float(0.75)},
		{Key: "active", Value: Bool(true)},
		{Key: "created_at", Value: Time(ts)},
		{Key: "source", Value: String("duplicate key kept")},
	}

	buf, err := AppendEntries(nil, es)
	require.NoError(t, err)

	got, rest, err := ParseEntries(buf)
	require.NoError(t, err)
	assert.Empty(t, rest)
	require.Len(t, got, len(es))

	for i := range es {
		assert.Equal(t, es[i].Key, got[i].Key)
		assert.True(t, es[i].Value.Equal(got[i].Value), "entry %d", i)
	}
}

func TestEmptyEntriesRoundTrip(t *testing.T) {
	buf, err := AppendEntries(nil, nil)
	require.NoError(t, err)

	got, rest, err := ParseEntries(buf)
	require.NoError(t, err)
	assert.Empty(t, rest)
	assert.Empty(t, got)
}

func TestParseEntriesErrors(t *testing.T) {
	t.Run("empty buffer", func(t *testing.T) {
		_, _, err := ParseEntries(nil)
		assert.Error(t, err)
	})

	t.Run("count exceeds buffer", func(t *testing.T) {
		_, _, err := ParseEntries([]byte{200, 1})
		assert.Error(t, err)
	})

	t.Run("truncated entry", func(t *testing.T) {
		buf, err := AppendEntries(nil, Entries{{Key: "k", Value: Int(5)}})
		require.NoError(t, err)

		_, _, err = ParseEntries(buf[:len(buf)-1])
		assert.Error(t, err)
	})
}
