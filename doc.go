// Package memdb provides fixed-capacity, concurrently accessible in-memory tables.
//
// A Table holds typed rows under string keys. Its schema and capacity are
// fixed when it is created, and storage for every row is allocated up front.
// Tables serve as structured record stores with substring search and as the
// backing store of the TTL cache in package cache.
//
// # Quick Start
//
//	users := memdb.New("users", 1024).
//	    AddColumn(schema.Int("age", 1)).
//	    AddColumn(schema.String("name", 64))
//	if err := users.Create(); err != nil {
//	    // ErrConfiguration or ErrCreationFailed
//	}
//
//	_ = users.Save("u1", row.Row{"name": "alice", "age": 30})
//	r, err := users.Get("u1") // ErrNotFound when absent
//
//	n, _ := users.Incr("u1", "age", 1)
//
// # Capacity
//
// Saving a new key into a full table fails with ErrCapacityExceeded. Rows
// are never evicted; overwriting an existing key always succeeds.
//
// # Validation
//
// Values are checked against the schema before anything is written: integers
// must fit the column width, strings must not exceed the column's maximum
// length in bytes, and unknown columns are rejected. A failing Save leaves
// the stored row unchanged.
//
// # Search
//
//	res := users.Search("ali", 10, search.Field("name"), search.Mark(true))
//
// # Snapshots
//
// Package snapshot dumps tables to a blobstore.BlobStore as JSON and restores
// them, either blocking or in the background.
//
// # Registry
//
// DB is a name-to-table directory. It holds no global state; pass it to the
// components that need table lookup.
package memdb
