package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// object is a read handle on one key. Every read is a ranged GET, so a
// handle holds no connection and Close has nothing to release.
type object struct {
	client Client
	bucket string
	key    string
	size   int64
}

func newObject(client Client, bucket, key string, size int64) *object {
	return &object{client: client, bucket: bucket, key: key, size: size}
}

// span is an inclusive byte range.
type span struct {
	first, last int64
}

func (s span) len() int64 { return s.last - s.first + 1 }

func (s span) header() *string {
	return aws.String("bytes=" + strconv.FormatInt(s.first, 10) + "-" + strconv.FormatInt(s.last, 10))
}

// clamp fits n bytes at off into the object. It reports false when
// nothing is left to read.
func (o *object) clamp(off, n int64) (span, bool) {
	off = max(off, 0)
	n = min(max(n, 0), o.size-off)
	if n <= 0 {
		return span{}, false
	}
	return span{first: off, last: off + n - 1}, true
}

func (o *object) Size() int64 { return o.size }

func (o *object) Close() error { return nil }

// ReadRange streams up to length bytes at off. A range past the end of
// the object yields an empty reader.
func (o *object) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	sp, ok := o.clamp(off, length)
	if !ok {
		return io.NopCloser(bytes.NewReader(nil)), nil
	}
	return o.fetch(ctx, sp)
}

// ReadAt fills p from off. Short reads at the end of the object return io.EOF.
func (o *object) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if len(p) == 0 && off < o.size {
		return 0, nil
	}

	sp, ok := o.clamp(off, int64(len(p)))
	if !ok {
		return 0, io.EOF
	}

	body, err := o.fetch(ctx, sp)
	if err != nil {
		return 0, err
	}
	defer func() { _ = body.Close() }()

	n, err := io.ReadFull(body, p[:sp.len()])
	switch {
	case errors.Is(err, io.ErrUnexpectedEOF):
		return n, io.EOF
	case err != nil:
		return n, err
	case n < len(p):
		return n, io.EOF
	}
	return n, nil
}

func (o *object) fetch(ctx context.Context, sp span) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out, err := o.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(o.key),
		Range:  sp.header(),
	})
	if err != nil {
		return nil, fmt.Errorf("s3: get %s %d-%d: %w", o.key, sp.first, sp.last, err)
	}
	return out.Body, nil
}
