// Package metadata provides the typed key/value entries attached to vector
// records.
//
// A value is one of five kinds:
//
//   - Int: metadata.Int(2024)
//   - Float: metadata.Float(3.14)
//   - String: metadata.String("sensor-7")
//   - Bool: metadata.Bool(true)
//   - Time: metadata.Time(time.Now())
//
// Entries are ordered and keys need not be unique; a record keeps its
// metadata in insertion order and that order survives persistence.
//
// The binary encoding in this package is the one embedded in collection
// snapshots; it round-trips every kind losslessly, including full float
// precision and sub-second timestamps.
package metadata
