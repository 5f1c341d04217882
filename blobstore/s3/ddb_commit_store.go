package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/hupe1980/memdb/blobstore"
)

// DDBCommitStore implements blobstore.BlobStore backed by S3 with DynamoDB
// for atomic pointer commits. This enables safe concurrent snapshot writers.
//
// Regular blobs are stored in S3. Pointer blobs (names ending in
// blobstore.PointerSuffix) live in DynamoDB: every Put appends a new version
// with a conditional write, and Open returns the latest one. Pointer blobs are
// not returned by List.
//
// Table schema:
//   - Partition key: base_uri (string) - the S3 location plus pointer name
//   - Sort key: version (number) - monotonically increasing version
//
// Create table with:
//
//	aws dynamodb create-table \
//	  --table-name memdb-commits \
//	  --attribute-definitions AttributeName=base_uri,AttributeType=S AttributeName=version,AttributeType=N \
//	  --key-schema AttributeName=base_uri,KeyType=HASH AttributeName=version,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
type DDBCommitStore struct {
	s3Store   *Store
	ddbClient DDBClient
	tableName string
	baseURI   string
}

// DDBClient is the interface for DynamoDB operations.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

var _ DDBClient = (*dynamodb.Client)(nil)

// ErrConcurrentModification is returned when another writer committed the
// same pointer version first.
var ErrConcurrentModification = errors.New("concurrent modification detected")

// NewDDBCommitStore creates a new S3+DynamoDB commit store.
// baseURI (for example "s3://bucket/prefix") namespaces the pointers in the table.
func NewDDBCommitStore(s3Store *Store, ddbClient DDBClient, tableName, baseURI string) *DDBCommitStore {
	return &DDBCommitStore{
		s3Store:   s3Store,
		ddbClient: ddbClient,
		tableName: tableName,
		baseURI:   baseURI,
	}
}

func (s *DDBCommitStore) partition(name string) string {
	return s.baseURI + "#" + name
}

// Open opens a blob for reading. For a pointer it returns the latest
// committed target.
func (s *DDBCommitStore) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	if !blobstore.IsPointer(name) {
		return s.s3Store.Open(ctx, name)
	}

	version, target, err := s.latest(ctx, name)
	if err != nil {
		return nil, err
	}
	if version == 0 {
		return nil, blobstore.ErrNotFound
	}
	return &pointerBlob{content: []byte(target)}, nil
}

// Create creates a writable blob. A pointer is committed on Close.
func (s *DDBCommitStore) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	if blobstore.IsPointer(name) {
		return &pointerWriter{store: s, ctx: ctx, name: name}, nil
	}
	return s.s3Store.Create(ctx, name)
}

// Put writes a blob. For a pointer it commits a new version and returns
// ErrConcurrentModification if another writer won the race.
func (s *DDBCommitStore) Put(ctx context.Context, name string, data []byte) error {
	if blobstore.IsPointer(name) {
		return s.commit(ctx, name, string(data))
	}
	return s.s3Store.Put(ctx, name, data)
}

// Delete deletes a blob. For a pointer every committed version is removed.
func (s *DDBCommitStore) Delete(ctx context.Context, name string) error {
	if !blobstore.IsPointer(name) {
		return s.s3Store.Delete(ctx, name)
	}

	var start map[string]types.AttributeValue
	for {
		resp, err := s.ddbClient.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(s.tableName),
			KeyConditionExpression: aws.String("base_uri = :uri"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":uri": &types.AttributeValueMemberS{Value: s.partition(name)},
			},
			ExclusiveStartKey: start,
		})
		if err != nil {
			return fmt.Errorf("failed to query DynamoDB: %w", err)
		}

		for _, item := range resp.Items {
			_, err := s.ddbClient.DeleteItem(ctx, &dynamodb.DeleteItemInput{
				TableName: aws.String(s.tableName),
				Key: map[string]types.AttributeValue{
					"base_uri": item["base_uri"],
					"version":  item["version"],
				},
			})
			if err != nil {
				return fmt.Errorf("failed to delete version from DynamoDB: %w", err)
			}
		}

		if len(resp.LastEvaluatedKey) == 0 {
			return nil
		}
		start = resp.LastEvaluatedKey
	}
}

// List lists S3 blobs with prefix.
func (s *DDBCommitStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.s3Store.List(ctx, prefix)
}

func (s *DDBCommitStore) latest(ctx context.Context, name string) (uint64, string, error) {
	resp, err := s.ddbClient.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("base_uri = :uri"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uri": &types.AttributeValueMemberS{Value: s.partition(name)},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return 0, "", fmt.Errorf("failed to query DynamoDB: %w", err)
	}

	if len(resp.Items) == 0 {
		return 0, "", nil
	}

	item := resp.Items[0]
	versionAttr, ok := item["version"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, "", errors.New("invalid version attribute in DynamoDB")
	}
	targetAttr, ok := item["target"].(*types.AttributeValueMemberS)
	if !ok {
		return 0, "", errors.New("invalid target attribute in DynamoDB")
	}

	version, err := strconv.ParseUint(versionAttr.Value, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("failed to parse version: %w", err)
	}

	return version, targetAttr.Value, nil
}

func (s *DDBCommitStore) commit(ctx context.Context, name, target string) error {
	current, _, err := s.latest(ctx, name)
	if err != nil {
		return err
	}

	_, err = s.ddbClient.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item: map[string]types.AttributeValue{
			"base_uri": &types.AttributeValueMemberS{Value: s.partition(name)},
			"version":  &types.AttributeValueMemberN{Value: strconv.FormatUint(current+1, 10)},
			"target":   &types.AttributeValueMemberS{Value: target},
		},
		ConditionExpression: aws.String("attribute_not_exists(version)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return ErrConcurrentModification
		}
		return fmt.Errorf("failed to commit version to DynamoDB: %w", err)
	}

	return nil
}

// pointerBlob serves the target of a pointer from memory.
type pointerBlob struct {
	content []byte
}

func (b *pointerBlob) Close() error { return nil }

func (b *pointerBlob) Size() int64 { return int64(len(b.content)) }

func (b *pointerBlob) ReadAt(_ context.Context, p []byte, off int64) (int, error) {
	return bytes.NewReader(b.content).ReadAt(p, off)
}

func (b *pointerBlob) ReadRange(_ context.Context, off, length int64) (io.ReadCloser, error) {
	off = min(max(off, 0), b.Size())
	return io.NopCloser(io.NewSectionReader(bytes.NewReader(b.content), off, length)), nil
}

// pointerWriter buffers a pointer and commits it on Close.
type pointerWriter struct {
	store *DDBCommitStore
	ctx   context.Context
	name  string
	buf   bytes.Buffer
	done  bool
}

func (w *pointerWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *pointerWriter) Sync() error { return nil }

func (w *pointerWriter) Abort() error {
	w.done = true
	return nil
}

func (w *pointerWriter) Close() error {
	if w.done {
		return nil
	}
	w.done = true
	return w.store.commit(w.ctx, w.name, w.buf.String())
}

var _ blobstore.BlobStore = (*DDBCommitStore)(nil)
