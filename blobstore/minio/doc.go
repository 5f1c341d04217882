// Package minio provides a BlobStore implementation using the MinIO client.
//
// It works with MinIO and other S3-compatible storage systems like Ceph,
// SeaweedFS and Garage, without pulling in the AWS SDK.
//
// # Basic Usage
//
//	store, err := minio.New(ctx, "localhost:9000", "snapshots",
//	    minio.WithCredentials("minioadmin", "minioadmin"),
//	    minio.WithPrefix("memdb/"),
//	    minio.WithCreateBucket(),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	snaps := snapshot.New(store)
//
// An existing client can be wrapped with NewStore.
package minio
