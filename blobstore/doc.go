// Package blobstore abstracts where persisted engram artifacts live.
//
// Three families of backends are provided:
//
//   - MemoryStore: an in-memory map, for tests and ephemeral sessions
//   - LocalStore: a local directory with atomic renames and mmap reads
//   - minio.Store / s3.Store: S3-compatible remote object storage
//
// The core never assumes a concrete backend; callers pick one and hand it
// to the store layer.
package blobstore
