package s3

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// UploadConfig configures the S3 uploader.
type UploadConfig struct {
	// PartSize is the minimum part size for multipart uploads.
	// Default: 8MB
	PartSize int64

	// Concurrency is the number of concurrent part uploads.
	// Default: 5
	Concurrency int

	// EnableChecksum enables CRC32C integrity validation.
	// Default: true
	EnableChecksum bool

	// LeavePartsOnError keeps the parts of a failed multipart upload
	// instead of aborting it.
	// Default: false
	LeavePartsOnError bool
}

// DefaultUploadConfig returns the default upload settings.
func DefaultUploadConfig() UploadConfig {
	return UploadConfig{
		PartSize:          8 * 1024 * 1024,
		Concurrency:       5,
		EnableChecksum:    true,
		LeavePartsOnError: false,
	}
}

func newUploader(client Client, cfg UploadConfig) *manager.Uploader {
	return manager.NewUploader(client, func(u *manager.Uploader) {
		if cfg.PartSize > 0 {
			u.PartSize = cfg.PartSize
		}
		if cfg.Concurrency > 0 {
			u.Concurrency = cfg.Concurrency
		}
		u.LeavePartsOnError = cfg.LeavePartsOnError
	})
}

var errAborted = errors.New("upload aborted")

var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

// computeCRC32C returns the CRC32C checksum of data in the base64 big-endian
// form S3 expects.
func computeCRC32C(data []byte) string {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], crc32.Checksum(data, crc32cTable))
	return base64.StdEncoding.EncodeToString(b[:])
}

// streamingWritableBlob pipes writes into a background upload.
type streamingWritableBlob struct {
	pw   *io.PipeWriter
	done chan error

	closeOnce sync.Once
	closeErr  error
}

func newStreamingWritableBlob(ctx context.Context, uploader *manager.Uploader, bucket, key string, checksum bool) *streamingWritableBlob {
	pr, pw := io.Pipe()

	blob := &streamingWritableBlob{
		pw:   pw,
		done: make(chan error, 1),
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   pr,
	}
	if checksum {
		input.ChecksumAlgorithm = types.ChecksumAlgorithmCrc32c
	}

	go func() {
		_, err := uploader.Upload(ctx, input)
		_ = pr.CloseWithError(err)
		blob.done <- err
	}()

	return blob
}

func (b *streamingWritableBlob) Write(p []byte) (int, error) {
	return b.pw.Write(p)
}

// Close finishes the upload and waits for it. A failed multipart upload is
// aborted by the uploader unless LeavePartsOnError is set.
func (b *streamingWritableBlob) Close() error {
	b.closeOnce.Do(func() {
		if err := b.pw.Close(); err != nil {
			b.closeErr = err
			return
		}
		b.closeErr = <-b.done
	})
	return b.closeErr
}

// Abort cancels the upload. The uploader aborts a started multipart upload
// unless LeavePartsOnError is set.
func (b *streamingWritableBlob) Abort() error {
	b.closeOnce.Do(func() {
		_ = b.pw.CloseWithError(errAborted)
		<-b.done
		b.closeErr = errAborted
	})
	return nil
}

// Sync is a no-op; data is committed on Close.
func (b *streamingWritableBlob) Sync() error {
	return nil
}

func putWithChecksum(ctx context.Context, client Client, bucket, key string, data []byte) error {
	_, err := client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:         aws.String(bucket),
		Key:            aws.String(key),
		Body:           bytes.NewReader(data),
		ContentLength:  aws.Int64(int64(len(data))),
		ChecksumCRC32C: aws.String(computeCRC32C(data)),
	})
	return err
}
