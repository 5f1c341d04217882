package snapshot

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/memdb"
	"github.com/hupe1980/memdb/blobstore"
	"github.com/hupe1980/memdb/codec"
	"github.com/hupe1980/memdb/resource"
	"github.com/hupe1980/memdb/row"
	"github.com/hupe1980/memdb/schema"
)

func newUsers(t *testing.T, optFns ...memdb.Option) *memdb.Table {
	t.Helper()

	tbl := memdb.New("users", 16, optFns...).
		AddColumns(
			schema.Int("id", 8),
			schema.Int("age", 1),
			schema.String("name", 8),
			schema.Float("score"),
		)
	require.NoError(t, tbl.Create())

	return tbl
}

var (
	alice = row.Row{"id": int64(1), "age": int64(30), "name": "alice", "score": 9.5}
	bob   = row.Row{"id": int64(2), "age": int64(41), "name": "bob", "score": 7.25}
)

func seedUsers(t *testing.T, tbl *memdb.Table) {
	t.Helper()
	require.NoError(t, tbl.Save("u1", alice))
	require.NoError(t, tbl.Save("u2", bob))
}

func assertUsers(t *testing.T, tbl *memdb.Table) {
	t.Helper()

	got, err := tbl.Get("u1")
	require.NoError(t, err)
	assert.Equal(t, alice, got)

	got, err = tbl.Get("u2")
	require.NoError(t, err)
	assert.Equal(t, bob, got)
}

func TestStore_DumpRestore(t *testing.T) {
	stores := map[string]blobstore.BlobStore{
		"local":  blobstore.NewLocalStore(t.TempDir()),
		"memory": blobstore.NewMemoryStore(),
	}

	for name, blobs := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := New(blobs)

			src := newUsers(t)
			seedUsers(t, src)
			require.NoError(t, s.Dump(ctx, src, "users.json"))

			dst := newUsers(t)
			n, err := s.Restore(ctx, dst, "users.json")
			require.NoError(t, err)
			assert.Equal(t, 2, n)
			assertUsers(t, dst)
		})
	}
}

func TestStore_DumpWritesJSONObject(t *testing.T) {
	ctx := context.Background()
	blobs := blobstore.NewMemoryStore()
	s := New(blobs, WithCodec(codec.JSON{}))

	tbl := newUsers(t)
	require.NoError(t, tbl.Save("u1", row.Row{"name": "alice"}))
	require.NoError(t, s.Dump(ctx, tbl, "users.json"))

	data, err := blobstore.ReadAll(ctx, blobs, "users.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"u1":{"id":0,"age":0,"name":"alice","score":0}}`, string(data))
}

func TestStore_EmptyNameIsNoop(t *testing.T) {
	ctx := context.Background()
	blobs := blobstore.NewMemoryStore()
	s := New(blobs)
	tbl := newUsers(t)
	seedUsers(t, tbl)

	require.NoError(t, s.Dump(ctx, tbl, ""))
	names, err := blobs.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, names)

	n, err := s.Restore(ctx, tbl, "")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStore_RestoreTolerated(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
	}{
		{"missing", nil},
		{"empty", []byte{}},
		{"not json", []byte("this is not json")},
		{"array", []byte(`[1,2,3]`)},
		{"truncated zstd", append([]byte{0x28, 0xb5, 0x2f, 0xfd}, 0x00)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			blobs := blobstore.NewMemoryStore()
			if tt.content != nil {
				require.NoError(t, blobs.Put(ctx, "users.json", tt.content))
			}

			tbl := newUsers(t)
			n, err := New(blobs).Restore(ctx, tbl, "users.json")
			require.NoError(t, err)
			assert.Zero(t, n)

			count, err := tbl.Count()
			require.NoError(t, err)
			assert.Zero(t, count)
		})
	}
}

func TestStore_RestoreSkipsBadRows(t *testing.T) {
	ctx := context.Background()
	blobs := blobstore.NewMemoryStore()
	require.NoError(t, blobs.Put(ctx, "users.json", []byte(`{
		"u1": {"name": "alice", "age": 30},
		"u2": {"name": "bob", "age": "old"},
		"u3": {"name": "a name that is too long"},
		"u4": {"name": "dave", "unknown": true}
	}`)))

	tbl := newUsers(t)
	n, err := New(blobs).Restore(ctx, tbl, "users.json")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	ok, err := tbl.Exists("u1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = tbl.Exists("u2")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = tbl.Exists("u4")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStore_RestoreIndexKey(t *testing.T) {
	ctx := context.Background()
	blobs := blobstore.NewMemoryStore()
	require.NoError(t, blobs.Put(ctx, "users.json", []byte(`{
		"a": {"id": 42, "name": "alice"},
		"b": {"name": "no id"}
	}`)))

	tbl := newUsers(t)
	n, err := New(blobs).Restore(ctx, tbl, "users.json", IndexKey("id"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	name, err := tbl.GetField("42", "name")
	require.NoError(t, err)
	assert.Equal(t, "alice", name)

	name, err = tbl.GetField("b", "name")
	require.NoError(t, err)
	assert.Equal(t, "no id", name)
}

func TestStore_NotCreated(t *testing.T) {
	ctx := context.Background()
	s := New(blobstore.NewMemoryStore())
	tbl := memdb.New("users", 16, memdb.WithColumns(schema.String("name", 8)))

	assert.ErrorIs(t, s.Dump(ctx, tbl, "users.json"), memdb.ErrNotCreated)

	_, err := s.Restore(ctx, tbl, "users.json")
	assert.ErrorIs(t, err, memdb.ErrNotCreated)
}

func TestStore_Compression(t *testing.T) {
	for _, c := range []Compression{CompressionZstd, CompressionLZ4} {
		t.Run(c.String(), func(t *testing.T) {
			ctx := context.Background()
			blobs := blobstore.NewMemoryStore()

			src := newUsers(t)
			seedUsers(t, src)
			require.NoError(t, New(blobs, WithCompression(c)).Dump(ctx, src, "users.json"))

			data, err := blobstore.ReadAll(ctx, blobs, "users.json")
			require.NoError(t, err)
			assert.Equal(t, c, detectCompression(data))

			dst := newUsers(t)
			n, err := New(blobs).Restore(ctx, dst, "users.json")
			require.NoError(t, err)
			assert.Equal(t, 2, n)
			assertUsers(t, dst)
		})
	}
}

func TestCompression_String(t *testing.T) {
	assert.Equal(t, "none", CompressionNone.String())
	assert.Equal(t, "zstd", CompressionZstd.String())
	assert.Equal(t, "lz4", CompressionLZ4.String())
	assert.Equal(t, "compression(9)", Compression(9).String())

	_, err := compress([]byte("x"), Compression(9))
	assert.Error(t, err)
}

func TestStore_Versioning(t *testing.T) {
	ctx := context.Background()
	blobs := blobstore.NewMemoryStore()
	s := New(blobs, WithKeepVersions(2))

	tbl := newUsers(t)
	for age := range 3 {
		require.NoError(t, tbl.Save("u1", row.Row{"name": "alice", "age": int64(20 + age)}))
		require.NoError(t, s.Dump(ctx, tbl, "users.json"))
	}

	versions, err := s.Versions(ctx, "users.json")
	require.NoError(t, err)
	require.Len(t, versions, 2)

	raw, err := blobstore.ReadAll(ctx, blobs, "users.json"+blobstore.PointerSuffix)
	require.NoError(t, err)
	p := parsePointer(raw)
	assert.Equal(t, versions[1], p.target)
	assert.Equal(t, codec.NameGoJSON, p.codec)

	_, err = blobs.Open(ctx, "users.json")
	assert.True(t, blobstore.IsNotFound(err), "versioned dumps never write the plain name")

	dst := newUsers(t)
	n, err := s.Restore(ctx, dst, "users.json")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	age, err := dst.GetField("u1", "age")
	require.NoError(t, err)
	assert.Equal(t, int64(22), age)
}

func TestStore_VersioningFallsBackToPlainBlob(t *testing.T) {
	ctx := context.Background()
	blobs := blobstore.NewMemoryStore()
	require.NoError(t, blobs.Put(ctx, "users.json", []byte(`{"u1":{"name":"alice"}}`)))

	tbl := newUsers(t)
	n, err := New(blobs, WithVersioning()).Restore(ctx, tbl, "users.json")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

// rejectingCodec encodes like JSON but refuses to decode anything.
type rejectingCodec struct {
	codec.JSON
}

func (rejectingCodec) Name() string { return "rejecting" }

func (rejectingCodec) Unmarshal([]byte, any) error { return errors.New("decode disabled") }

func TestStore_VersioningRestoresWithRecordedCodec(t *testing.T) {
	ctx := context.Background()
	blobs := blobstore.NewMemoryStore()

	src := newUsers(t)
	seedUsers(t, src)
	require.NoError(t, New(blobs, WithVersioning(), WithCodec(codec.JSON{})).Dump(ctx, src, "users.json"))

	dst := newUsers(t)
	n, err := New(blobs, WithVersioning(), WithCodec(rejectingCodec{})).Restore(ctx, dst, "users.json")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assertUsers(t, dst)
}

// customJSON is a codec that no built-in name resolves to.
type customJSON struct {
	codec.JSON
}

func (customJSON) Name() string { return "custom-json" }

func TestStore_VersioningCustomCodecRoundTrip(t *testing.T) {
	ctx := context.Background()
	blobs := blobstore.NewMemoryStore()
	s := New(blobs, WithVersioning(), WithCodec(customJSON{}))

	src := newUsers(t)
	seedUsers(t, src)
	require.NoError(t, s.Dump(ctx, src, "users.json"))

	raw, err := blobstore.ReadAll(ctx, blobs, "users.json"+blobstore.PointerSuffix)
	require.NoError(t, err)
	assert.Equal(t, "custom-json", parsePointer(raw).codec)

	dst := newUsers(t)
	n, err := s.Restore(ctx, dst, "users.json")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assertUsers(t, dst)
}

func TestStore_VersioningUnknownCodec(t *testing.T) {
	ctx := context.Background()
	blobs := blobstore.NewMemoryStore()
	target := versionName("users.json", 1)
	require.NoError(t, blobs.Put(ctx, target, []byte(`{"u1":{"name":"alice"}}`)))
	require.NoError(t, blobs.Put(ctx, "users.json"+blobstore.PointerSuffix, pointer{target: target, codec: "msgpack"}.encode()))

	_, err := New(blobs, WithVersioning()).Restore(ctx, newUsers(t), "users.json")
	require.ErrorIs(t, err, codec.ErrUnknownCodec)
}

func TestStore_VersioningLegacyPointer(t *testing.T) {
	ctx := context.Background()
	blobs := blobstore.NewMemoryStore()
	target := versionName("users.json", 1)
	require.NoError(t, blobs.Put(ctx, target, []byte(`{"u1":{"name":"alice"}}`)))
	require.NoError(t, blobs.Put(ctx, "users.json"+blobstore.PointerSuffix, []byte(target)))

	n, err := New(blobs, WithVersioning()).Restore(ctx, newUsers(t), "users.json")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestIsVersionOf(t *testing.T) {
	assert.True(t, isVersionOf("users.json", versionName("users.json", 1700000000000000000)))
	assert.Equal(t, "users.json.00000000000000000042", versionName("users.json", 42))
	assert.False(t, isVersionOf("users.json", "users.json"))
	assert.False(t, isVersionOf("users.json", "users.json.CURRENT"))
	assert.False(t, isVersionOf("users.json", "users.json.bak"))
	assert.False(t, isVersionOf("users", "users.json.00000000000000000042"))
}

func TestStore_NextVersionIsMonotonic(t *testing.T) {
	s := New(blobstore.NewMemoryStore())
	last := s.nextVersion()
	for range 1000 {
		v := s.nextVersion()
		require.Greater(t, v, last)
		last = v
	}
}

// failingStore fails every streamed write.
type failingStore struct {
	*blobstore.MemoryStore
	openErr error
}

func (f *failingStore) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	w, err := f.MemoryStore.Create(ctx, name)
	if err != nil {
		return nil, err
	}
	return &failingWriter{WritableBlob: w}, nil
}

func (f *failingStore) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	return f.MemoryStore.Open(ctx, name)
}

type failingWriter struct {
	blobstore.WritableBlob
}

func (w *failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestStore_FailedDumpKeepsPreviousSnapshot(t *testing.T) {
	ctx := context.Background()
	blobs := &failingStore{MemoryStore: blobstore.NewMemoryStore()}
	require.NoError(t, blobs.Put(ctx, "users.json", []byte(`{"u1":{"name":"old"}}`)))

	mc := &memdb.BasicMetricsCollector{}
	s := New(blobs, WithMetricsCollector(mc))

	tbl := newUsers(t)
	seedUsers(t, tbl)

	err := s.Dump(ctx, tbl, "users.json")
	require.ErrorIs(t, err, ErrIO)

	data, err := blobstore.ReadAll(ctx, blobs, "users.json")
	require.NoError(t, err)
	assert.Equal(t, `{"u1":{"name":"old"}}`, string(data))

	stats := mc.GetStats()
	assert.Equal(t, int64(1), stats.DumpCount)
	assert.Equal(t, int64(1), stats.DumpErrors)
}

func TestStore_RestoreIOError(t *testing.T) {
	ctx := context.Background()
	blobs := &failingStore{
		MemoryStore: blobstore.NewMemoryStore(),
		openErr:     errors.New("connection reset"),
	}

	_, err := New(blobs).Restore(ctx, newUsers(t), "users.json")
	assert.ErrorIs(t, err, ErrIO)
}

func TestStore_IOErrorsLoggedAtWarn(t *testing.T) {
	ctx := context.Background()

	var buf bytes.Buffer
	logger := memdb.NewLogger(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))

	blobs := &failingStore{
		MemoryStore: blobstore.NewMemoryStore(),
		openErr:     errors.New("connection reset"),
	}
	s := New(blobs, WithLogger(logger))

	tbl := newUsers(t)
	seedUsers(t, tbl)

	require.ErrorIs(t, s.Dump(ctx, tbl, "users.json"), ErrIO)
	assert.Contains(t, buf.String(), `msg="snapshot io error" table=users op=dump name=users.json`)

	buf.Reset()
	_, err := s.Restore(ctx, tbl, "users.json")
	require.ErrorIs(t, err, ErrIO)
	assert.Contains(t, buf.String(), `msg="snapshot io error" table=users op=restore name=users.json`)
	assert.Contains(t, buf.String(), "connection reset")
}

func TestStore_RateLimited(t *testing.T) {
	ctx := context.Background()
	rc := resource.NewController(resource.Config{IOLimitBytesPerSec: 64 * 1024})
	mc := &memdb.BasicMetricsCollector{}
	s := New(blobstore.NewMemoryStore(), WithResourceController(rc), WithMetricsCollector(mc))

	src := newUsers(t)
	seedUsers(t, src)
	require.NoError(t, s.Dump(ctx, src, "users.json"))

	dst := newUsers(t)
	n, err := s.Restore(ctx, dst, "users.json")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	stats := mc.GetStats()
	assert.Positive(t, stats.DumpBytes)
	assert.Equal(t, int64(2), stats.RestoreRows)
}

func TestStore_RateLimitedCanceled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// One byte per second cannot write a snapshot before the deadline.
	rc := resource.NewController(resource.Config{IOLimitBytesPerSec: 1})
	blobs := blobstore.NewMemoryStore()
	s := New(blobs, WithResourceController(rc))

	tbl := newUsers(t)
	seedUsers(t, tbl)

	err := s.Dump(ctx, tbl, "users.json")
	require.ErrorIs(t, err, ErrIO)

	names, err := blobs.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestStore_RoundTripAfterRejectedValues(t *testing.T) {
	ctx := context.Background()
	s := New(blobstore.NewMemoryStore())

	tbl := newUsers(t)
	seedUsers(t, tbl)

	require.ErrorIs(t, tbl.Save("u3", row.Row{"id": 9, "name": []byte{0xff, 0xfe, 0xfd}}), memdb.ErrTypeMismatch)
	require.ErrorIs(t, tbl.Save("u3", row.Row{"score": math.NaN()}), memdb.ErrTypeMismatch)
	require.ErrorIs(t, tbl.Save("u3", row.Row{"score": math.Inf(1)}), memdb.ErrOutOfRange)

	require.NoError(t, tbl.Save("u3", row.Row{"name": "carol", "score": math.MaxFloat64}))
	_, err := tbl.IncrFloat("u3", "score", math.MaxFloat64)
	require.ErrorIs(t, err, memdb.ErrOutOfRange)

	want := map[string]row.Row{}
	rows, err := tbl.Rows()
	require.NoError(t, err)
	for k, r := range rows {
		want[k] = r
	}

	require.NoError(t, s.Dump(ctx, tbl, "users.json"))
	require.NoError(t, tbl.Clear(false))

	n, err := s.Restore(ctx, tbl, "users.json")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	for k, r := range want {
		got, err := tbl.Get(k)
		require.NoError(t, err)
		assert.Equal(t, r, got)
	}
}
