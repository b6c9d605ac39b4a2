// Package vectra is a small embedded vector store for Go.
//
// A vectra engine manages named collections of fixed-dimension float64
// vectors with typed metadata. Collections are persisted as
// self-describing binary snapshots through a pluggable blob store
// (local filesystem, S3, MinIO or in-memory), fronted by a byte-bounded
// in-memory cache, and queried by exact brute-force nearest-neighbor
// scan under Euclidean ("eu"), Manhattan ("l1") or cosine ("cs")
// distance.
//
// # Quick Start
//
//	ctx := context.Background()
//
//	db, err := vectra.New(vectra.WithDataDir("./data"))
//	if err != nil {
//	    panic(err)
//	}
//	defer db.Close()
//
//	if err := db.Create(ctx, "vectors", 2); err != nil {
//	    panic(err)
//	}
//
//	_, err = db.Insert(ctx, "vectors", []float64{3, 4}, metadata.Entries{
//	    {Key: "source", Value: metadata.String("docs")},
//	})
//
//	results, err := db.Find(ctx, "vectors", []float64{0, 0}, 10, "eu")
//
// # Durability model
//
// Inserts mutate the cached collection and mark it dirty; a background
// scheduler persists dirty collections every flush interval and then
// enforces the cache policy: idle clean collections expire after the
// TTL, and the byte budget is a hard ceiling that can evict even
// unflushed collections after a best-effort persist. Close performs a
// final flush.
//
// The cache holds at most one resident copy of a collection, so all
// operations against a name observe one consistent, monotonically
// growing record sequence. Record indexes reported by Find are
// positions in that sequence and are not stable across reloads that
// merge bulk-import shard files.
package vectra
