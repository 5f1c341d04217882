// Package s3 provides an S3 implementation of the blobstore.BlobStore interface.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("snapshots/"),
//	    s3.WithRegion("us-east-1"),
//	)
//
//	snaps := snapshot.New(store)
//	err = snaps.Dump(ctx, users, "users.json")
//
// # Features
//
//   - Range reads for partial fetches
//   - Multipart uploads for large snapshots
//   - CRC32C checksums on uploads
//   - Automatic pagination for listing
//   - Configurable prefix for multi-tenant isolation
//   - DDBCommitStore: DynamoDB conditional writes for snapshot pointers
package s3
