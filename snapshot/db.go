package snapshot

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/memdb"
)

// DumpDB dumps every created table of db that has a dump file configured.
// Tables are dumped concurrently; all failures are joined. With a resource
// controller, no more tables run at once than it has background workers.
func (s *Store) DumpDB(ctx context.Context, db *memdb.DB) error {
	tables := snapshotTables(db)
	errs := make([]error, len(tables))

	var g errgroup.Group
	g.SetLimit(s.tableLimit())

	for i, t := range tables {
		g.Go(func() error {
			if err := s.Dump(ctx, t, t.DumpFile()); err != nil {
				errs[i] = fmt.Errorf("table %q: %w", t.Name(), err)
			}
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}

// RestoreDB restores every created table of db that has a dump file
// configured and returns the number of rows restored per table.
func (s *Store) RestoreDB(ctx context.Context, db *memdb.DB) (map[string]int, error) {
	tables := snapshotTables(db)
	counts := make([]int, len(tables))
	errs := make([]error, len(tables))

	var g errgroup.Group
	g.SetLimit(s.tableLimit())

	for i, t := range tables {
		g.Go(func() error {
			n, err := s.Restore(ctx, t, t.DumpFile())
			if err != nil {
				errs[i] = fmt.Errorf("table %q: %w", t.Name(), err)
			}
			counts[i] = n
			return nil
		})
	}
	_ = g.Wait()

	result := make(map[string]int, len(tables))
	for i, t := range tables {
		result[t.Name()] = counts[i]
	}
	return result, errors.Join(errs...)
}

func (s *Store) tableLimit() int {
	limit := s.opts.concurrency
	if s.opts.resource != nil {
		limit = min(limit, int(s.opts.resource.Config().MaxBackgroundWorkers))
	}
	return limit
}

func snapshotTables(db *memdb.DB) []*memdb.Table {
	var tables []*memdb.Table
	for _, t := range db.Tables() {
		if t.DumpFile() != "" && t.IsCreated() {
			tables = append(tables, t)
		}
	}
	return tables
}
