package metadata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueWeight(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want int
	}{
		{"int", Int(42), 4},
		{"float", Float(3.14), 4},
		{"bool", Bool(true), 1},
		{"time", Time(time.Now()), 12},
		{"string", String("hello"), 5},
		{"empty string", String(""), 0},
		{"invalid", Value{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.v.Weight())
		})
	}
}

func TestEntryWeight(t *testing.T) {
	e := Entry{Key: "year", Value: Int(2024)}
	assert.Equal(t, 8, e.Weight())

	es := Entries{
		{Key: "year", Value: Int(2024)},
		{Key: "tag", Value: String("abc")},
	}
	assert.Equal(t, 8+6, es.Weight())
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "int", KindInt.String())
	assert.Equal(t, "float", KindFloat.String())
	assert.Equal(t, "string", KindString.String())
	assert.Equal(t, "bool", KindBool.String())
	assert.Equal(t, "datetime", KindTime.String())
	assert.Equal(t, "invalid", KindInvalid.String())
}

func TestValueString(t *testing.T) {
	ts := time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		v    Value
		want string
	}{
		{"int", Int(-7), "-7"},
		{"float", Float(2.5), "2.5"},
		{"string", String("plain"), "plain"},
		{"bool true", Bool(true), "true"},
		{"bool false", Bool(false), "false"},
		{"time", Time(ts), "2024-05-01T10:30:00Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.v.String())
		})
	}
}

func TestTimeNormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*3600)
	v := Time(time.Date(2024, 5, 1, 12, 30, 0, 0, loc))

	got, ok := v.AsTime()
	require.True(t, ok)
	assert.Equal(t, time.UTC, got.Location())
	assert.Equal(t, "2024-05-01T10:30:00Z", v.String())
}

func TestValueEqual(t *testing.T) {
	ts := time.Date(2024, 5, 1, 10, 30, 0, 500, time.UTC)

	assert.True(t, Int(1).Equal(Int(1)))
	assert.False(t, Int(1).Equal(Int(2)))
	assert.False(t, Int(1).Equal(Float(1)))
	assert.True(t, Time(ts).Equal(Time(ts.In(time.FixedZone("X", 3600)))))
	assert.True(t, String("a").Equal(String("a")))
	assert.False(t, Bool(true).Equal(Bool(false)))
}

func TestEntriesFind(t *testing.T) {
	es := Entries{
		{Key: "source", Value: String("first")},
		{Key: "other", Value: Int(1)},
		{Key: "source", Value: String("second")},
	}

	v, ok := es.Find("source")
	require.True(t, ok)
	assert.Equal(t, "first", v.S)

	_, ok = es.Find("missing")
	assert.False(t, ok)
}

func TestEntriesClone(t *testing.T) {
	es := Entries{{Key: "a", Value: Int(1)}}
	clone := es.Clone()
	clone[0].Value = Int(2)

	assert.Equal(t, int32(1), es[0].Value.I)
	assert.Nil(t, Entries(nil).Clone())
}
