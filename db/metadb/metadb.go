// Package metadb instantiates db.Database backends by type identifier.
package metadb

import (
	"cmp"
	"fmt"
	"os"
	"testing"

	"github.com/yaksetig/votex-sub001/db"
	"github.com/yaksetig/votex-sub001/db/inmemory"
	"github.com/yaksetig/votex-sub001/db/mongodb"
	"github.com/yaksetig/votex-sub001/db/pebbledb"
)

// New returns a database of the given type. For the pebble backend dir is
// the storage directory, for mongodb it is the database name, and the
// in-memory backend ignores it.
func New(typ, dir string) (db.Database, error) {
	var database db.Database
	var err error
	opts := db.Options{Path: dir}
	switch typ {
	case db.TypePebble:
		database, err = pebbledb.New(opts)
	case db.TypeInMem:
		database, err = inmemory.New(opts)
	case db.TypeMongo:
		database, err = mongodb.New(opts)
	default:
		return nil, fmt.Errorf("invalid dbType: %q. Available types: %q %q %q",
			typ, db.TypePebble, db.TypeInMem, db.TypeMongo)
	}
	if err != nil {
		return nil, err
	}
	return database, nil
}

// ForTest returns the database type used by NewTest, taken from the DB_TYPE
// environment variable.
func ForTest() (typ string) {
	return cmp.Or(os.Getenv("DB_TYPE"), db.TypePebble)
}

// NewTest returns a database backed by a test temporary directory, closed
// automatically at the end of the test.
func NewTest(tb testing.TB) db.Database {
	database, err := New(ForTest(), tb.TempDir())
	if err != nil {
		tb.Fatal(err)
	}
	tb.Cleanup(func() {
		if err := database.Close(); err != nil {
			tb.Error(err)
		}
	})
	return database
}
