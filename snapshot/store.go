package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hupe1980/memdb"
	"github.com/hupe1980/memdb/blobstore"
	"github.com/hupe1980/memdb/codec"
	"github.com/hupe1980/memdb/resource"
	"github.com/hupe1980/memdb/row"
)

// Table is the part of a table a snapshot needs. *memdb.Table implements it.
type Table interface {
	Name() string
	Layout() (*row.Layout, error)
	Rows() (iter.Seq2[string, row.Row], error)
	Load(data map[string]row.Row, indexKey string) (int, error)
}

var _ Table = (*memdb.Table)(nil)

// Outcome describes a finished dump or restore.
type Outcome struct {
	// Rows is the number of rows dumped or restored.
	Rows int
	// Bytes is the size of the stored snapshot.
	Bytes int64
	// Err is the error of the operation, if any.
	Err error
}

// Store dumps and restores tables through a blob store.
type Store struct {
	blobs blobstore.BlobStore
	opts  options

	lastVersion atomic.Int64
}

// New creates a snapshot store on top of blobs.
func New(blobs blobstore.BlobStore, optFns ...Option) *Store {
	return &Store{
		blobs: blobs,
		opts:  applyOptions(optFns),
	}
}

// BlobStore returns the underlying blob store.
func (s *Store) BlobStore() blobstore.BlobStore { return s.blobs }

// Dump writes every row of t to the blob name. An empty name is a no-op.
func (s *Store) Dump(ctx context.Context, t Table, name string) error {
	_, err := s.dump(ctx, t, name)
	return err
}

// Restore loads the snapshot name into t and returns the number of rows
// saved. A missing, empty or malformed snapshot restores nothing and is not
// an error. Rows that cannot be saved are skipped and logged.
func (s *Store) Restore(ctx context.Context, t Table, name string, optFns ...RestoreOption) (int, error) {
	out, err := s.restore(ctx, t, name, optFns)
	return out.Rows, err
}

func (s *Store) dump(ctx context.Context, t Table, name string) (Outcome, error) {
	if name == "" {
		return Outcome{}, nil
	}

	start := time.Now()
	out, err := s.writeSnapshot(ctx, t, name)
	s.opts.metrics.RecordDump(out.Rows, out.Bytes, time.Since(start), err)

	logger := s.opts.logger.WithTable(t.Name())
	warnIO(ctx, logger, "dump", name, err)
	logger.LogDump(ctx, name, out.Rows, err)

	return out, err
}

func (s *Store) writeSnapshot(ctx context.Context, t Table, name string) (Outcome, error) {
	rows, err := t.Rows()
	if err != nil {
		return Outcome{}, err
	}

	data := make(map[string]row.Row)
	for key, r := range rows {
		data[key] = r
	}
	out := Outcome{Rows: len(data)}

	payload, err := s.opts.codec.Marshal(data)
	if err != nil {
		return out, fmt.Errorf("snapshot: encode %q: %w", name, err)
	}

	payload, err = compress(payload, s.opts.compression)
	if err != nil {
		return out, fmt.Errorf("snapshot: compress %q: %w", name, err)
	}

	target := name
	if s.opts.versioning {
		target = versionName(name, s.nextVersion())
	}

	if err := s.write(ctx, target, payload); err != nil {
		return out, fmt.Errorf("%w: write %q: %w", ErrIO, target, err)
	}

	if s.opts.versioning {
		p := pointer{target: target, codec: s.opts.codec.Name()}
		if err := s.blobs.Put(ctx, name+blobstore.PointerSuffix, p.encode()); err != nil {
			return out, fmt.Errorf("%w: commit %q: %w", ErrIO, name, err)
		}
		s.prune(ctx, name, target)
	}

	out.Bytes = int64(len(payload))
	return out, nil
}

func (s *Store) write(ctx context.Context, name string, payload []byte) error {
	w, err := s.blobs.Create(ctx, name)
	if err != nil {
		return err
	}

	if _, err := resource.NewRateLimitedWriter(ctx, w, s.opts.resource).Write(payload); err != nil {
		_ = w.Abort()
		return err
	}

	return w.Close()
}

func (s *Store) restore(ctx context.Context, t Table, name string, optFns []RestoreOption) (Outcome, error) {
	if name == "" {
		return Outcome{}, nil
	}

	var ro restoreOptions
	for _, fn := range optFns {
		if fn != nil {
			fn(&ro)
		}
	}

	logger := s.opts.logger.WithTable(t.Name())

	start := time.Now()
	out, err := s.readSnapshot(ctx, t, name, ro, logger)
	s.opts.metrics.RecordRestore(out.Rows, time.Since(start), err)
	warnIO(ctx, logger, "restore", name, err)
	logger.LogRestore(ctx, name, out.Rows, err)

	return out, err
}

// warnIO leaves a trace of storage failures for callers that drop the error.
func warnIO(ctx context.Context, logger *memdb.Logger, op, name string, err error) {
	if errors.Is(err, ErrIO) {
		logger.WarnContext(ctx, "snapshot io error", "op", op, "name", name, "error", err)
	}
}

func (s *Store) readSnapshot(ctx context.Context, t Table, name string, ro restoreOptions, logger *memdb.Logger) (Outcome, error) {
	layout, err := t.Layout()
	if err != nil {
		return Outcome{}, err
	}

	p, err := s.resolve(ctx, name)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: resolve %q: %w", ErrIO, name, err)
	}
	target := p.target

	c := s.opts.codec
	if p.codec != c.Name() {
		if c, err = codec.Resolve(p.codec, c); err != nil {
			return Outcome{}, fmt.Errorf("snapshot: %q: %w", target, err)
		}
	}

	payload, err := s.read(ctx, target)
	if err != nil {
		if blobstore.IsNotFound(err) {
			return Outcome{}, nil
		}
		return Outcome{}, fmt.Errorf("%w: read %q: %w", ErrIO, target, err)
	}

	out := Outcome{Bytes: int64(len(payload))}
	if len(payload) == 0 {
		return out, nil
	}

	data, err := decompress(payload)
	if err != nil {
		logger.WarnContext(ctx, "snapshot malformed", "name", target, "error", err)
		return out, nil
	}

	var raw map[string]map[string]json.RawMessage
	if err := c.Unmarshal(data, &raw); err != nil {
		logger.WarnContext(ctx, "snapshot malformed", "name", target, "error", err)
		return out, nil
	}

	var errs []error

	rows := make(map[string]row.Row, len(raw))
	for key, fields := range raw {
		r, err := layout.FromJSON(fields)
		if err != nil {
			errs = append(errs, fmt.Errorf("row %q: %w", key, err))
			continue
		}
		rows[key] = r
	}

	n, err := t.Load(rows, ro.indexKey)
	if err != nil {
		errs = append(errs, err)
	}
	out.Rows = n

	if len(errs) > 0 {
		logger.WarnContext(ctx, "restore skipped rows",
			"name", target,
			"total", len(raw),
			"restored", n,
			"error", errors.Join(errs...),
		)
	}

	return out, nil
}

// pointer is the content of a "<name>.CURRENT" blob: the version blob on
// the first line and the name of the codec that wrote it on the second.
type pointer struct {
	target string
	codec  string
}

func (p pointer) encode() []byte {
	return []byte(p.target + "\n" + p.codec + "\n")
}

func parsePointer(b []byte) pointer {
	target, codecName, _ := strings.Cut(strings.TrimSpace(string(b)), "\n")
	return pointer{
		target: strings.TrimSpace(target),
		codec:  strings.TrimSpace(codecName),
	}
}

// resolve returns the blob holding the current snapshot of name. A missing
// or empty pointer falls back to the unversioned blob and the store's codec.
func (s *Store) resolve(ctx context.Context, name string) (pointer, error) {
	if !s.opts.versioning {
		return pointer{target: name}, nil
	}

	b, err := blobstore.ReadAll(ctx, s.blobs, name+blobstore.PointerSuffix)
	if err != nil {
		if blobstore.IsNotFound(err) {
			return pointer{target: name}, nil
		}
		return pointer{}, err
	}

	p := parsePointer(b)
	if p.target == "" {
		return pointer{target: name}, nil
	}
	return p, nil
}

func (s *Store) read(ctx context.Context, name string) ([]byte, error) {
	blob, err := s.blobs.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer blob.Close()

	rc, err := blob.ReadRange(ctx, 0, blob.Size())
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return io.ReadAll(resource.NewRateLimitedReader(ctx, rc, s.opts.resource))
}

// Versions returns the stored versions of name, oldest first.
func (s *Store) Versions(ctx context.Context, name string) ([]string, error) {
	names, err := s.blobs.List(ctx, name+".")
	if err != nil {
		return nil, fmt.Errorf("%w: list %q: %w", ErrIO, name, err)
	}

	versions := names[:0]
	for _, n := range names {
		if isVersionOf(name, n) {
			versions = append(versions, n)
		}
	}
	return versions, nil
}

func (s *Store) prune(ctx context.Context, name, current string) {
	if s.opts.keepVersions <= 0 {
		return
	}

	logger := s.opts.logger

	versions, err := s.Versions(ctx, name)
	if err != nil {
		logger.WarnContext(ctx, "prune versions failed", "name", name, "error", err)
		return
	}

	if len(versions) <= s.opts.keepVersions {
		return
	}

	for _, v := range versions[:len(versions)-s.opts.keepVersions] {
		if v == current {
			continue
		}
		if err := s.blobs.Delete(ctx, v); err != nil {
			logger.WarnContext(ctx, "delete version failed", "name", v, "error", err)
		}
	}
}

// nextVersion returns a strictly increasing timestamp.
func (s *Store) nextVersion() int64 {
	v := time.Now().UnixNano()
	for {
		last := s.lastVersion.Load()
		if v <= last {
			v = last + 1
		}
		if s.lastVersion.CompareAndSwap(last, v) {
			return v
		}
	}
}

const versionDigits = 20

func versionName(name string, version int64) string {
	return fmt.Sprintf("%s.%0*d", name, versionDigits, version)
}

func isVersionOf(name, blob string) bool {
	suffix, ok := strings.CutPrefix(blob, name+".")
	if !ok || len(suffix) != versionDigits {
		return false
	}
	_, err := strconv.ParseUint(suffix, 10, 64)
	return err == nil
}
