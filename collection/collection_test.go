package collection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vectra/metadata"
)

func TestInsert(t *testing.T) {
	t.Run("appends matching dimension", func(t *testing.T) {
		c := New("vectors", 3)

		err := c.Insert(Record{Values: []float64{1, 2, 3}})
		require.NoError(t, err)
		assert.Equal(t, 1, c.Len())
	})

	t.Run("rejects wrong dimension", func(t *testing.T) {
		c := New("vectors", 3)
		require.NoError(t, c.Insert(Record{Values: []float64{1, 2, 3}}))

		err := c.Insert(Record{Values: []float64{1, 2}})

		var dm *ErrDimensionMismatch
		require.ErrorAs(t, err, &dm)
		assert.Equal(t, 3, dm.Expected)
		assert.Equal(t, 2, dm.Actual)
		assert.Equal(t, 1, c.Len(), "failed insert must leave the collection unchanged")
	})

	t.Run("zero dimension accepts empty vectors", func(t *testing.T) {
		c := New("empty", 0)
		require.NoError(t, c.Insert(Record{}))
		assert.Equal(t, 1, c.Len())
	})
}

func TestMerge(t *testing.T) {
	t.Run("concatenates records in order", func(t *testing.T) {
		a := New("vectors", 2)
		require.NoError(t, a.Insert(Record{Values: []float64{1, 1}}))

		b := New("vectors_part_0", 2)
		require.NoError(t, b.Insert(Record{Values: []float64{2, 2}}))
		require.NoError(t, b.Insert(Record{Values: []float64{3, 3}}))

		require.NoError(t, a.Merge(b))
		require.Equal(t, 3, a.Len())
		assert.Equal(t, []float64{2, 2}, a.Record(1).Values)
		assert.Equal(t, []float64{3, 3}, a.Record(2).Values)
	})

	t.Run("dimension disagreement is fatal", func(t *testing.T) {
		a := New("vectors", 2)
		require.NoError(t, a.Insert(Record{Values: []float64{1, 1}}))

		b := New("vectors_part_0", 3)

		err := a.Merge(b)
		var dm *ErrDimensionMismatch
		require.ErrorAs(t, err, &dm)
		assert.Equal(t, 1, a.Len())
	})
}

func TestEstimateBytes(t *testing.T) {
	c := New("vectors", 2)
	require.NoError(t, c.Insert(Record{
		Values: []float64{1, 2},
		Meta: metadata.Entries{
			{Key: "year", Value: metadata.Int(2024)},       // 4 + 4
			{Key: "tag", Value: metadata.String("abcde")},  // 3 + 5
			{Key: "created_at", Value: metadata.Time(time.Now())}, // 10 + 12
		},
	}))

	// 2 floats * 8 bytes + (8 + 8 + 22) metadata weight
	assert.Equal(t, 16+38, c.EstimateBytes())
}

func TestSchema(t *testing.T) {
	c := New("vectors", 1)
	require.NoError(t, c.Insert(Record{
		Values: []float64{1},
		Meta: metadata.Entries{
			{Key: "tag", Value: metadata.String("a")},
			{Key: "year", Value: metadata.Int(2024)},
		},
	}))
	require.NoError(t, c.Insert(Record{
		Values: []float64{2},
		Meta: metadata.Entries{
			{Key: "year", Value: metadata.String("twenty")},
		},
	}))

	schema := c.Schema()
	require.Len(t, schema, 2)

	assert.Equal(t, "tag", schema[0].Key)
	assert.Equal(t, []string{"string"}, schema[0].Types)

	assert.Equal(t, "year", schema[1].Key)
	assert.Equal(t, []string{"int", "string"}, schema[1].Types)
}

func TestRecordWeight(t *testing.T) {
	r := Record{
		Values: []float64{1, 2, 3},
		Meta:   metadata.Entries{{Key: "k", Value: metadata.Bool(true)}},
	}
	assert.Equal(t, 24+2, r.Weight())
}
