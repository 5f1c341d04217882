// Package snapshot dumps tables to a blob store and restores them.
//
// A snapshot is a JSON object mapping each row key to its row:
//
//	{"u1": {"name": "alice", "age": 30}, "u2": {"name": "bob", "age": 41}}
//
// optionally wrapped in a zstd or LZ4 frame. Restore detects the frame from
// its magic bytes.
//
// # Failure semantics
//
// Dump writes through blobstore.WritableBlob and aborts the write on error,
// so an existing snapshot is never replaced by a partial one. Restore decodes
// the whole snapshot before touching the table. A missing, empty or
// malformed snapshot restores zero rows without error; storage failures are
// returned as errors wrapping ErrIO.
//
// # Deferred execution
//
// DumpAsync and RestoreAsync run on the resource controller's background
// slots and return a Future. The work is detached from the caller's
// cancellation and always runs to completion.
//
// # Versioning
//
// With WithVersioning every dump writes a new blob "<name>.<unixnano>" and
// then commits the pointer blob "<name>.CURRENT". On S3 the pointer can be
// committed with a DynamoDB conditional write (s3.DDBCommitStore).
package snapshot
