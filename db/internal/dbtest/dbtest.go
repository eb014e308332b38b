// Package dbtest provides the generic test suite that every db.Database
// backend must pass.
package dbtest

import (
	"fmt"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/yaksetig/votex-sub001/db"
)

// TestWriteTx checks the basic write transaction lifecycle: reads of pending
// writes, commit visibility, deletes and discards.
func TestWriteTx(t *testing.T, database db.Database) {
	c := qt.New(t)

	wTx := database.WriteTx()
	defer wTx.Discard()

	_, err := wTx.Get([]byte("a"))
	c.Assert(err, qt.ErrorIs, db.ErrKeyNotFound)

	c.Assert(wTx.Set([]byte("a"), []byte("b")), qt.IsNil)

	// The pending write must be visible inside the transaction before
	// committing it.
	value, err := wTx.Get([]byte("a"))
	c.Assert(err, qt.IsNil)
	c.Assert(value, qt.DeepEquals, []byte("b"))

	c.Assert(wTx.Commit(), qt.IsNil)

	value, err = database.Get([]byte("a"))
	c.Assert(err, qt.IsNil)
	c.Assert(value, qt.DeepEquals, []byte("b"))

	wTx2 := database.WriteTx()
	defer wTx2.Discard()
	value, err = wTx2.Get([]byte("a"))
	c.Assert(err, qt.IsNil)
	c.Assert(value, qt.DeepEquals, []byte("b"))

	c.Assert(wTx2.Delete([]byte("a")), qt.IsNil)
	_, err = wTx2.Get([]byte("a"))
	c.Assert(err, qt.ErrorIs, db.ErrKeyNotFound)
	c.Assert(wTx2.Commit(), qt.IsNil)

	_, err = database.Get([]byte("a"))
	c.Assert(err, qt.ErrorIs, db.ErrKeyNotFound)

	// A discarded transaction must leave no trace in the database.
	wTx3 := database.WriteTx()
	c.Assert(wTx3.Set([]byte("x"), []byte("y")), qt.IsNil)
	wTx3.Discard()
	_, err = database.Get([]byte("x"))
	c.Assert(err, qt.ErrorIs, db.ErrKeyNotFound)
}

// TestIterate checks prefixed and unprefixed iteration order, completeness
// and early termination.
func TestIterate(t *testing.T, database db.Database) {
	c := qt.New(t)

	wTx := database.WriteTx()
	defer wTx.Discard()
	for _, kv := range [][2]string{
		{"p/aa", "1"},
		{"p/bb", "2"},
		{"p/cc", "3"},
		{"q/dd", "4"},
	} {
		c.Assert(wTx.Set([]byte(kv[0]), []byte(kv[1])), qt.IsNil)
	}
	c.Assert(wTx.Commit(), qt.IsNil)

	var got []string
	err := database.Iterate(nil, func(key, value []byte) bool {
		got = append(got, fmt.Sprintf("%s=%s", key, value))
		return true
	})
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.DeepEquals, []string{"p/aa=1", "p/bb=2", "p/cc=3", "q/dd=4"})

	// Keys are passed complete, prefix included.
	got = nil
	err = database.Iterate([]byte("p/"), func(key, _ []byte) bool {
		got = append(got, string(key))
		return true
	})
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.DeepEquals, []string{"p/aa", "p/bb", "p/cc"})

	count := 0
	err = database.Iterate(nil, func(_, _ []byte) bool {
		count++
		return false
	})
	c.Assert(err, qt.IsNil)
	c.Assert(count, qt.Equals, 1)

	// A transaction iteration must observe its own pending writes.
	wTx2 := database.WriteTx()
	defer wTx2.Discard()
	c.Assert(wTx2.Set([]byte("p/ab"), []byte("5")), qt.IsNil)
	c.Assert(wTx2.Delete([]byte("p/bb")), qt.IsNil)
	got = nil
	err = wTx2.Iterate([]byte("p/"), func(key, _ []byte) bool {
		got = append(got, string(key))
		return true
	})
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.DeepEquals, []string{"p/aa", "p/ab", "p/cc"})
}

// TestWriteTxApply checks that Apply merges the writes of one transaction
// into another.
func TestWriteTxApply(t *testing.T, database db.Database) {
	c := qt.New(t)

	wTx1 := database.WriteTx()
	defer wTx1.Discard()
	c.Assert(wTx1.Set([]byte("one"), []byte("1")), qt.IsNil)

	wTx2 := database.WriteTx()
	defer wTx2.Discard()
	c.Assert(wTx2.Set([]byte("two"), []byte("2")), qt.IsNil)

	c.Assert(wTx1.Apply(wTx2), qt.IsNil)
	c.Assert(wTx1.Commit(), qt.IsNil)

	for _, kv := range [][2]string{{"one", "1"}, {"two", "2"}} {
		value, err := database.Get([]byte(kv[0]))
		c.Assert(err, qt.IsNil)
		c.Assert(value, qt.DeepEquals, []byte(kv[1]))
	}
}

// TestWriteTxApplyPrefixed checks that a transaction from the plain database
// can be applied into a transaction of a prefixed view of the same database,
// relocating every key under the prefix.
func TestWriteTxApplyPrefixed(t *testing.T, database, databasePrefixed db.Database) {
	c := qt.New(t)

	keys := make([][]byte, 0, 20)
	for i := range 20 {
		keys = append(keys, fmt.Appendf(nil, "key-%02d", i))
	}

	wTx := database.WriteTx()
	defer wTx.Discard()
	for _, key := range keys {
		c.Assert(wTx.Set(key, key), qt.IsNil)
	}

	wTxPrefixed := databasePrefixed.WriteTx()
	defer wTxPrefixed.Discard()
	c.Assert(wTxPrefixed.Apply(wTx), qt.IsNil)
	c.Assert(wTxPrefixed.Commit(), qt.IsNil)

	for _, key := range keys {
		value, err := databasePrefixed.Get(key)
		c.Assert(err, qt.IsNil)
		c.Assert(value, qt.DeepEquals, key)

		// The unprefixed locations were never committed.
		_, err = database.Get(key)
		c.Assert(err, qt.ErrorIs, db.ErrKeyNotFound)
	}
}

// TestConcurrentWriteTx checks that two overlapping transactions writing the
// same key conflict, and that the loser can retry with a fresh transaction.
// Only backends with conflict detection can pass this test.
func TestConcurrentWriteTx(t *testing.T, database db.Database) {
	c := qt.New(t)

	key := []byte("key")

	wTxA := database.WriteTx()
	defer wTxA.Discard()
	wTxB := database.WriteTx()
	defer wTxB.Discard()

	_, err := wTxA.Get(key)
	c.Assert(err, qt.ErrorIs, db.ErrKeyNotFound)
	_, err = wTxB.Get(key)
	c.Assert(err, qt.ErrorIs, db.ErrKeyNotFound)

	c.Assert(wTxA.Set(key, []byte("a")), qt.IsNil)
	c.Assert(wTxB.Set(key, []byte("b")), qt.IsNil)

	c.Assert(wTxA.Commit(), qt.IsNil)
	c.Assert(wTxB.Commit(), qt.ErrorIs, db.ErrConflict)

	// The first committed write wins.
	value, err := database.Get(key)
	c.Assert(err, qt.IsNil)
	c.Assert(value, qt.DeepEquals, []byte("a"))

	wTxRetry := database.WriteTx()
	defer wTxRetry.Discard()
	c.Assert(wTxRetry.Set(key, []byte("b")), qt.IsNil)
	c.Assert(wTxRetry.Commit(), qt.IsNil)

	value, err = database.Get(key)
	c.Assert(err, qt.IsNil)
	c.Assert(value, qt.DeepEquals, []byte("b"))
}
