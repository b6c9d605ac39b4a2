// Package persistence implements the durable snapshot format for
// collections and the manager that reads and writes them through a
// blobstore.
//
// A snapshot is a full rewrite of a collection's current record set,
// never an append. The layout is self-describing: a fixed 16-byte header
// (magic, version, compression codec, body length, CRC32) followed by
// the encoded body. Bodies round-trip every record losslessly, including
// full IEEE-754 float precision and sub-second timestamps.
//
// Durable layout per collection:
//
//	<name>.vec              canonical snapshot (normal insert path)
//	<name>_part_<n>.vec     shard snapshots (bulk import batches)
//
// The canonical file serves single-record insert/find. Shards are only
// written by bulk import and only become visible through LoadAll, which
// concatenates the canonical file and every part in shard order.
package persistence
