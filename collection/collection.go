// Package collection holds the in-memory representation of a named,
// fixed-dimension set of vector records.
package collection

import (
	"fmt"
	"slices"

	"github.com/hupe1980/vectra/metadata"
)

// ErrDimensionMismatch is a named error type for dimension mismatch.
type ErrDimensionMismatch struct {
	Expected int // Expected dimensions
	Actual   int // Actual dimensions
}

// Error returns the error message for dimension mismatch.
func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// Record is one vector plus its ordered metadata. Records are immutable
// after insertion.
type Record struct {
	Values []float64
	Meta   metadata.Entries
}

// Weight returns the estimated byte weight of the record for cache
// budget accounting: 8 bytes per vector component plus the metadata
// entry weights.
func (r Record) Weight() int {
	return len(r.Values)*8 + r.Meta.Weight()
}

// Collection is a named sequence of records sharing one dimension.
// The dimension is fixed at creation. Records are only ever appended;
// the index position of a record is its externally visible index in
// query results.
//
// Collection is not safe for concurrent use; the cache layer serializes
// access to it.
type Collection struct {
	name      string
	dimension int
	records   []Record
}

// New creates an empty collection. A zero dimension is permitted; such a
// collection only ever holds empty vectors.
func New(name string, dimension int) *Collection {
	return &Collection{name: name, dimension: dimension}
}

// Name returns the collection name.
func (c *Collection) Name() string { return c.name }

// Dimension returns the fixed vector dimension.
func (c *Collection) Dimension() int { return c.dimension }

// Len returns the number of records.
func (c *Collection) Len() int { return len(c.records) }

// Record returns the record at index i.
func (c *Collection) Record(i int) Record { return c.records[i] }

// Records returns the backing record slice. The slice is borrowed:
// callers must not mutate it and must not retain it past the cache
// critical section they obtained the collection in.
func (c *Collection) Records() []Record { return c.records }

// Insert appends a record. If the vector length does not match the
// collection dimension the collection is left unchanged and an
// ErrDimensionMismatch is returned.
func (c *Collection) Insert(rec Record) error {
	if len(rec.Values) != c.dimension {
		return &ErrDimensionMismatch{Expected: c.dimension, Actual: len(rec.Values)}
	}
	c.records = append(c.records, rec)
	return nil
}

// Merge appends all records of other. It is used to concatenate shard
// files into one logical record set; a dimension disagreement between
// shards is fatal to the merge and leaves the receiver unchanged.
func (c *Collection) Merge(other *Collection) error {
	if other.dimension != c.dimension {
		return &ErrDimensionMismatch{Expected: c.dimension, Actual: other.dimension}
	}
	c.records = append(c.records, other.records...)
	return nil
}

// EstimateBytes returns the estimated resident size of the collection
// used by the cache eviction policy. It is a budget estimate, not an
// exact serialized or allocated size.
func (c *Collection) EstimateBytes() int {
	total := len(c.records) * c.dimension * 8
	for i := range c.records {
		total += c.records[i].Meta.Weight()
	}
	return total
}

// SchemaField reports the set of value types observed for one metadata
// key across all records.
type SchemaField struct {
	Key   string   `json:"key"`
	Types []string `json:"types"`
}

// Schema scans every record and returns the observed type set per
// metadata key. Keys appear in first-observation order; the type names
// within a key are sorted.
func (c *Collection) Schema() []SchemaField {
	var order []string
	seen := make(map[string]map[string]struct{})

	for i := range c.records {
		for _, e := range c.records[i].Meta {
			types, ok := seen[e.Key]
			if !ok {
				types = make(map[string]struct{})
				seen[e.Key] = types
				order = append(order, e.Key)
			}
			types[e.Value.Kind.String()] = struct{}{}
		}
	}

	fields := make([]SchemaField, 0, len(order))
	for _, key := range order {
		names := make([]string, 0, len(seen[key]))
		for name := range seen[key] {
			names = append(names, name)
		}
		slices.Sort(names)
		fields = append(fields, SchemaField{Key: key, Types: names})
	}
	return fields
}
