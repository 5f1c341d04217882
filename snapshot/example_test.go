package snapshot_test

import (
	"context"
	"fmt"
	"log"

	"github.com/hupe1980/memdb"
	"github.com/hupe1980/memdb/blobstore"
	"github.com/hupe1980/memdb/row"
	"github.com/hupe1980/memdb/schema"
	"github.com/hupe1980/memdb/snapshot"
)

func Example() {
	ctx := context.Background()

	newTable := func() *memdb.Table {
		t := memdb.New("users", 64, memdb.WithColumns(schema.String("name", 16)))
		if err := t.Create(); err != nil {
			log.Fatal(err)
		}
		return t
	}

	store := snapshot.New(blobstore.NewMemoryStore(), snapshot.WithCompression(snapshot.CompressionZstd))

	src := newTable()
	_ = src.Save("u1", row.Row{"name": "alice"})
	if err := store.Dump(ctx, src, "users.json"); err != nil {
		log.Fatal(err)
	}

	dst := newTable()
	out, err := store.RestoreAsync(ctx, dst, "users.json").Wait(ctx)
	if err != nil {
		log.Fatal(err)
	}

	name, _ := dst.GetField("u1", "name")
	fmt.Println(out.Rows, name)
	// Output: 1 alice
}
