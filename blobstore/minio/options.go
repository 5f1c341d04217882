package minio

import (
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type options struct {
	accessKey    string
	secretKey    string
	secure       bool
	region       string
	prefix       string
	createBucket bool
}

// Option configures New.
type Option func(*options)

// WithCredentials sets static V4 credentials.
func WithCredentials(accessKey, secretKey string) Option {
	return func(o *options) {
		o.accessKey = accessKey
		o.secretKey = secretKey
	}
}

// WithSecure enables HTTPS.
func WithSecure() Option {
	return func(o *options) {
		o.secure = true
	}
}

// WithRegion sets the bucket region.
func WithRegion(region string) Option {
	return func(o *options) {
		o.region = region
	}
}

// WithPrefix sets the key prefix prepended to every blob name.
func WithPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

// WithCreateBucket creates the bucket if it does not exist.
func WithCreateBucket() Option {
	return func(o *options) {
		o.createBucket = true
	}
}

// New connects to endpoint and returns a Store for bucket.
// Without WithCreateBucket no request is sent until the store is used.
func New(ctx context.Context, endpoint, bucket string, optFns ...Option) (*Store, error) {
	var o options
	for _, fn := range optFns {
		fn(&o)
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(o.accessKey, o.secretKey, ""),
		Secure: o.secure,
		Region: o.region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio: %w", err)
	}

	if o.createBucket {
		exists, err := client.BucketExists(ctx, bucket)
		if err != nil {
			return nil, fmt.Errorf("minio: check bucket %q: %w", bucket, err)
		}
		if !exists {
			if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: o.region}); err != nil {
				return nil, fmt.Errorf("minio: create bucket %q: %w", bucket, err)
			}
		}
	}

	return NewStore(client, bucket, o.prefix), nil
}
