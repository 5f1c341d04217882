package memdb_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/memdb"
	"github.com/hupe1980/memdb/blobstore"
	"github.com/hupe1980/memdb/cache"
	"github.com/hupe1980/memdb/resource"
	"github.com/hupe1980/memdb/row"
	"github.com/hupe1980/memdb/schema"
	"github.com/hupe1980/memdb/search"
	"github.com/hupe1980/memdb/snapshot"
)

func newArticles(rc *resource.Controller) *memdb.Table {
	return memdb.New("articles", 64,
		memdb.WithDumpFile("articles.json"),
		memdb.WithResourceController(rc),
	).AddColumns(
		schema.String("title", 32),
		schema.String("body", 256),
		schema.Int("likes", 4),
	)
}

func TestEndToEnd_SnapshotLifecycle(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 1 << 20})

	articles := newArticles(rc)
	require.NoError(t, articles.Create())

	db, err := memdb.NewDB(articles)
	require.NoError(t, err)

	require.NoError(t, articles.Save("a1", row.Row{"title": "Go", "body": "Channels and goroutines in Go"}))
	require.NoError(t, articles.Save("a2", row.Row{"title": "Tables", "body": "Shared memory tables with Go"}))
	_, err = articles.Incr("a1", "likes", 3)
	require.NoError(t, err)

	store := snapshot.New(blobstore.NewLocalStore(dir),
		snapshot.WithCompression(snapshot.CompressionLZ4),
		snapshot.WithKeepVersions(2),
		snapshot.WithResourceController(rc),
	)
	require.NoError(t, store.DumpDB(ctx, db))

	// Release the table and restore it from the snapshot.
	require.NoError(t, articles.Clear(true))
	_, err = articles.Get("a1")
	require.ErrorIs(t, err, memdb.ErrReleased)

	require.NoError(t, articles.Create())
	counts, err := store.RestoreDB(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"articles": 2}, counts)

	likes, err := articles.GetField("a1", "likes")
	require.NoError(t, err)
	assert.Equal(t, int64(3), likes)

	res := articles.Search("go", 10, search.Field("body"))
	assert.Len(t, res.Hits, 2)
}

func TestEndToEnd_CacheSurvivesSnapshot(t *testing.T) {
	ctx := context.Background()

	type session struct {
		User string `json:"user"`
	}

	now := time.Unix(1_700_000_000, 0)
	clock := func() time.Time { return now }

	c, err := cache.New[session](cache.WithName("sessions"), cache.WithSize(8), cache.WithClock(clock))
	require.NoError(t, err)
	require.NoError(t, c.Set("s1", session{User: "alice"}, time.Hour))
	require.NoError(t, c.Set("s2", session{User: "bob"}, time.Second))

	store := snapshot.New(blobstore.NewMemoryStore())
	require.NoError(t, store.Dump(ctx, c.Table(), "sessions.json"))

	later := func() time.Time { return now.Add(time.Minute) }
	restored, err := cache.New[session](cache.WithName("sessions"), cache.WithSize(8), cache.WithClock(later))
	require.NoError(t, err)

	n, err := store.Restore(ctx, restored.Table(), "sessions.json")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	s, ok := restored.Get("s1")
	require.True(t, ok)
	assert.Equal(t, "alice", s.User)

	_, ok = restored.Get("s2")
	assert.False(t, ok, "expiry survives the snapshot")
}
