package snapshot

import "errors"

// ErrIO is wrapped by every error caused by the blob store.
var ErrIO = errors.New("snapshot io")
