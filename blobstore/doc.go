// Package blobstore provides the storage layer for table snapshots.
//
// BlobStore is the interface for reading and writing named blobs.
// Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: local filesystem, writes land via temp file and rename
//   - MemoryStore: in-process map, for tests
//   - s3.Store: Amazon S3 with range reads and multipart uploads
//   - s3.DDBCommitStore: S3 plus DynamoDB conditional writes for snapshot pointers
//   - minio.Store: MinIO and other S3-compatible servers
//
// # Custom Implementations
//
// Implement the BlobStore interface to support custom storage backends:
//
//	type BlobStore interface {
//	    Open(ctx, name) (Blob, error)
//	    Create(ctx, name) (WritableBlob, error)
//	    Put(ctx, name, data) error
//	    Delete(ctx, name) error
//	    List(ctx, prefix) ([]string, error)
//	}
//
// A missing blob must be reported with an error matching ErrNotFound.
package blobstore
