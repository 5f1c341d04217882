package snapshot

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/memdb"
	"github.com/hupe1980/memdb/blobstore"
	"github.com/hupe1980/memdb/resource"
	"github.com/hupe1980/memdb/row"
	"github.com/hupe1980/memdb/schema"
)

func newDB(t *testing.T) (*memdb.DB, *memdb.Table, *memdb.Table) {
	t.Helper()

	users := newUsers(t, memdb.WithDumpFile("users.json"))

	posts := memdb.New("posts", 8, memdb.WithDumpFile("posts.json")).
		AddColumn(schema.String("title", 16))
	require.NoError(t, posts.Create())

	scratch := memdb.New("scratch", 8).AddColumn(schema.Int("n", 4))
	require.NoError(t, scratch.Create())

	db, err := memdb.NewDB(users, posts, scratch)
	require.NoError(t, err)

	return db, users, posts
}

func TestStore_DumpRestoreDB(t *testing.T) {
	ctx := context.Background()
	blobs := blobstore.NewMemoryStore()
	s := New(blobs, WithConcurrency(1), WithCompression(CompressionZstd))

	db, users, posts := newDB(t)
	seedUsers(t, users)
	require.NoError(t, posts.Save("p1", row.Row{"title": "hello"}))

	require.NoError(t, s.DumpDB(ctx, db))

	names, err := blobs.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"posts.json", "users.json"}, names)

	restored, _, _ := newDB(t)
	counts, err := s.RestoreDB(ctx, restored)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"users": 2, "posts": 1}, counts)

	got, ok := restored.Table("users")
	require.True(t, ok)
	assertUsers(t, got)
}

func TestStore_DumpDBJoinsErrors(t *testing.T) {
	ctx := context.Background()
	blobs := &failingStore{MemoryStore: blobstore.NewMemoryStore()}
	s := New(blobs)

	db, _, _ := newDB(t)

	err := s.DumpDB(ctx, db)
	require.ErrorIs(t, err, ErrIO)
	assert.Contains(t, err.Error(), `table "users"`)
	assert.Contains(t, err.Error(), `table "posts"`)
}

func TestStore_TableLimit(t *testing.T) {
	blobs := blobstore.NewMemoryStore()

	assert.Equal(t, DefaultConcurrency, New(blobs).tableLimit())
	assert.Equal(t, 8, New(blobs, WithConcurrency(8)).tableLimit())

	rc := resource.NewController(resource.Config{MaxBackgroundWorkers: 2})
	assert.Equal(t, 2, New(blobs, WithConcurrency(8), WithResourceController(rc)).tableLimit())
	assert.Equal(t, 1, New(blobs, WithConcurrency(1), WithResourceController(rc)).tableLimit())
}
