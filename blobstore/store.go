package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies `errors.Is(err, ErrNotFound)`.
// The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// PointerSuffix marks blobs whose content is the name of another blob.
// Versioned snapshots commit through a pointer blob, and stores may keep
// pointer blobs outside the regular namespace.
const PointerSuffix = ".CURRENT"

// IsPointer reports whether name is a pointer blob.
func IsPointer(name string) bool {
	return strings.HasSuffix(name, PointerSuffix)
}

// BlobStore stores named snapshot blobs.
type BlobStore interface {
	// Open opens a blob for reading.
	Open(ctx context.Context, name string) (Blob, error)
	// Create creates a blob for streaming writes. The blob becomes visible
	// under name once Close returns without error.
	Create(ctx context.Context, name string) (WritableBlob, error)
	// Put writes a blob atomically.
	Put(ctx context.Context, name string, data []byte) error
	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error
	// List returns the names of all blobs starting with prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Blob is a read-only handle to a stored blob.
type Blob interface {
	io.Closer
	// ReadAt reads len(p) bytes starting at off.
	ReadAt(ctx context.Context, p []byte, off int64) (int, error)
	// Size returns the size of the blob in bytes.
	Size() int64
	// ReadRange returns a reader for length bytes starting at off.
	// The range is clamped to the blob size.
	ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error)
}

// WritableBlob is a blob being written.
type WritableBlob interface {
	io.WriteCloser
	// Sync flushes buffered data to the backing storage.
	Sync() error
	// Abort discards the write. An existing blob with the same name stays
	// untouched. Abort after Close is a no-op.
	Abort() error
}

// ReadAll opens name and returns its full content.
func ReadAll(ctx context.Context, store BlobStore, name string) ([]byte, error) {
	b, err := store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	rc, err := b.ReadRange(ctx, 0, b.Size())
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", name, err)
	}
	return data, nil
}

// IsNotFound reports whether err means the blob does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
