package inmemory

import (
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/yaksetig/votex-sub001/db"
	"github.com/yaksetig/votex-sub001/db/internal/dbtest"
	"github.com/yaksetig/votex-sub001/db/prefixeddb"
)

func TestWriteTx(t *testing.T) {
	database, err := New(db.Options{})
	qt.Assert(t, err, qt.IsNil)

	dbtest.TestWriteTx(t, database)
}

func TestIterate(t *testing.T) {
	database, err := New(db.Options{})
	qt.Assert(t, err, qt.IsNil)

	dbtest.TestIterate(t, database)
}

func TestWriteTxApply(t *testing.T) {
	database, err := New(db.Options{})
	qt.Assert(t, err, qt.IsNil)

	dbtest.TestWriteTxApply(t, database)
}

func TestWriteTxApplyPrefixed(t *testing.T) {
	database, err := New(db.Options{})
	qt.Assert(t, err, qt.IsNil)

	prefix := []byte("one")
	dbWithPrefix := prefixeddb.NewPrefixedDatabase(database, prefix)

	dbtest.TestWriteTxApplyPrefixed(t, database, dbWithPrefix)
}

func TestConcurrentWriteTx(t *testing.T) {
	database, err := New(db.Options{})
	qt.Assert(t, err, qt.IsNil)

	dbtest.TestConcurrentWriteTx(t, database)
}

func TestCommitAfterDiscard(t *testing.T) {
	c := qt.New(t)

	database, err := New(db.Options{})
	c.Assert(err, qt.IsNil)

	wTx := database.WriteTx()
	c.Assert(wTx.Set([]byte("a"), []byte("b")), qt.IsNil)
	wTx.Discard()
	c.Assert(wTx.Commit(), qt.ErrorMatches, "cannot commit inmemory tx: .*")

	wTx = database.WriteTx()
	c.Assert(wTx.Set([]byte("a"), []byte("b")), qt.IsNil)
	c.Assert(wTx.Commit(), qt.IsNil)
	c.Assert(wTx.Commit(), qt.ErrorMatches, "cannot commit inmemory tx: .*")
}
