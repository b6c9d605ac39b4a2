// Package blobstore abstracts the durable storage that collection
// snapshots are written to.
//
// A blob is written and read as a whole: snapshots are full rewrites,
// never appends, so the interface is deliberately ReadAll/Put rather
// than a streaming handle. Put must be atomic - a reader never observes
// a partially written blob.
//
// Implementations:
//
//   - LocalStore: files under one directory, atomic via temp file + rename
//   - MemoryStore: in-memory map, used in tests
//   - minio.Store: MinIO and S3-compatible object storage
//   - s3.Store: AWS S3
//
// Implement the Store interface to support custom storage backends.
package blobstore
