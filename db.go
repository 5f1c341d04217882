package memdb

import (
	"fmt"
	"maps"
	"slices"
	"sync"
)

// DB is a directory of tables by name. It is safe for concurrent use.
type DB struct {
	mu     sync.RWMutex
	tables map[string]*Table
}

// NewDB creates a registry holding tables.
func NewDB(tables ...*Table) (*DB, error) {
	db := &DB{tables: make(map[string]*Table, len(tables))}
	for _, t := range tables {
		if err := db.AddTable(t); err != nil {
			return nil, err
		}
	}
	return db, nil
}

// AddTable registers t under its name, replacing any table with the same name.
func (db *DB) AddTable(t *Table) error {
	if t == nil || t.Name() == "" {
		return fmt.Errorf("%w: table must have a name", ErrConfiguration)
	}

	db.mu.Lock()
	db.tables[t.Name()] = t
	db.mu.Unlock()

	return nil
}

// Table returns the named table.
func (db *DB) Table(name string) (*Table, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	t, ok := db.tables[name]
	return t, ok
}

// DropTable unregisters the named table and reports whether it was registered.
// The table itself is left untouched.
func (db *DB) DropTable(name string) bool {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, ok := db.tables[name]
	delete(db.tables, name)
	return ok
}

// HasTable reports whether a table is registered under name.
func (db *DB) HasTable(name string) bool {
	_, ok := db.Table(name)
	return ok
}

// Count returns the number of registered tables.
func (db *DB) Count() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.tables)
}

// TableNames returns the registered names in sorted order.
func (db *DB) TableNames() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return slices.Sorted(maps.Keys(db.tables))
}

// Tables returns the registered tables ordered by name.
func (db *DB) Tables() []*Table {
	db.mu.RLock()
	defer db.mu.RUnlock()

	tables := make([]*Table, 0, len(db.tables))
	for _, name := range slices.Sorted(maps.Keys(db.tables)) {
		tables = append(tables, db.tables[name])
	}
	return tables
}
