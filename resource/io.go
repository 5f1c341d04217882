package resource

import (
	"context"
	"io"
)

// RateLimitedWriter throttles writes through a Controller's IO limiter.
type RateLimitedWriter struct {
	ctx context.Context
	w   io.Writer
	rc  *Controller
	n   int64
}

// NewRateLimitedWriter wraps w. A nil controller disables throttling.
func NewRateLimitedWriter(ctx context.Context, w io.Writer, rc *Controller) *RateLimitedWriter {
	return &RateLimitedWriter{ctx: ctx, w: w, rc: rc}
}

func (w *RateLimitedWriter) Write(p []byte) (int, error) {
	if err := w.rc.AcquireIO(w.ctx, len(p)); err != nil {
		return 0, err
	}
	n, err := w.w.Write(p)
	w.n += int64(n)
	return n, err
}

// Written returns the number of bytes written so far.
func (w *RateLimitedWriter) Written() int64 { return w.n }

// RateLimitedReader throttles reads through a Controller's IO limiter.
type RateLimitedReader struct {
	ctx context.Context
	r   io.Reader
	rc  *Controller
	n   int64
}

// NewRateLimitedReader wraps r. A nil controller disables throttling.
func NewRateLimitedReader(ctx context.Context, r io.Reader, rc *Controller) *RateLimitedReader {
	return &RateLimitedReader{ctx: ctx, r: r, rc: rc}
}

// Read charges the limiter for the bytes actually read.
func (r *RateLimitedReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	if n > 0 {
		r.n += int64(n)
		if werr := r.rc.AcquireIO(r.ctx, n); werr != nil {
			return n, werr
		}
	}
	return n, err
}

// BytesRead returns the number of bytes read so far.
func (r *RateLimitedReader) BytesRead() int64 { return r.n }
