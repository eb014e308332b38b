package prefixeddb

import (
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/yaksetig/votex-sub001/db"
	"github.com/yaksetig/votex-sub001/db/inmemory"
)

func TestPrefixIsolation(t *testing.T) {
	c := qt.New(t)

	base, err := inmemory.New(db.Options{})
	c.Assert(err, qt.IsNil)

	one := NewPrefixedDatabase(base, []byte("one/"))
	two := NewPrefixedDatabase(base, []byte("two/"))

	wTx := one.WriteTx()
	c.Assert(wTx.Set([]byte("k"), []byte("from-one")), qt.IsNil)
	c.Assert(wTx.Commit(), qt.IsNil)

	wTx = two.WriteTx()
	c.Assert(wTx.Set([]byte("k"), []byte("from-two")), qt.IsNil)
	c.Assert(wTx.Commit(), qt.IsNil)

	value, err := one.Get([]byte("k"))
	c.Assert(err, qt.IsNil)
	c.Assert(value, qt.DeepEquals, []byte("from-one"))

	value, err = two.Get([]byte("k"))
	c.Assert(err, qt.IsNil)
	c.Assert(value, qt.DeepEquals, []byte("from-two"))

	// The physical keys carry the prefixes.
	value, err = base.Get([]byte("one/k"))
	c.Assert(err, qt.IsNil)
	c.Assert(value, qt.DeepEquals, []byte("from-one"))

	// Iterating one view never leaks keys of the other.
	var keys []string
	c.Assert(one.Iterate(nil, func(k, _ []byte) bool {
		keys = append(keys, string(k))
		return true
	}), qt.IsNil)
	c.Assert(keys, qt.DeepEquals, []string{"k"})
}

func TestNestedPrefixes(t *testing.T) {
	c := qt.New(t)

	base, err := inmemory.New(db.Options{})
	c.Assert(err, qt.IsNil)

	outer := NewPrefixedDatabase(base, []byte("a/"))
	inner := NewPrefixedDatabase(outer, []byte("b/"))

	wTx := inner.WriteTx()
	c.Assert(wTx.Set([]byte("key"), []byte("value")), qt.IsNil)
	c.Assert(wTx.Commit(), qt.IsNil)

	value, err := inner.Get([]byte("key"))
	c.Assert(err, qt.IsNil)
	c.Assert(value, qt.DeepEquals, []byte("value"))

	value, err = base.Get([]byte("a/b/key"))
	c.Assert(err, qt.IsNil)
	c.Assert(value, qt.DeepEquals, []byte("value"))

	var keys []string
	c.Assert(inner.Iterate(nil, func(k, _ []byte) bool {
		keys = append(keys, string(k))
		return true
	}), qt.IsNil)
	c.Assert(keys, qt.DeepEquals, []string{"key"})
}

func TestPrefixedReaderOverWriteTx(t *testing.T) {
	c := qt.New(t)

	base, err := inmemory.New(db.Options{})
	c.Assert(err, qt.IsNil)

	wTx := base.WriteTx()
	defer wTx.Discard()
	c.Assert(wTx.Set([]byte("p/hello"), []byte("world")), qt.IsNil)

	// The reader observes the pending writes of the transaction.
	reader := NewPrefixedReader(wTx, []byte("p/"))
	value, err := reader.Get([]byte("hello"))
	c.Assert(err, qt.IsNil)
	c.Assert(value, qt.DeepEquals, []byte("world"))

	_, err = reader.Get([]byte("missing"))
	c.Assert(err, qt.ErrorIs, db.ErrKeyNotFound)
}

func TestDeleteThroughView(t *testing.T) {
	c := qt.New(t)

	base, err := inmemory.New(db.Options{})
	c.Assert(err, qt.IsNil)

	view := NewPrefixedDatabase(base, []byte("v/"))
	wTx := view.WriteTx()
	c.Assert(wTx.Set([]byte("k"), []byte("x")), qt.IsNil)
	c.Assert(wTx.Commit(), qt.IsNil)

	wTx = view.WriteTx()
	c.Assert(wTx.Delete([]byte("k")), qt.IsNil)
	c.Assert(wTx.Commit(), qt.IsNil)

	_, err = view.Get([]byte("k"))
	c.Assert(err, qt.ErrorIs, db.ErrKeyNotFound)
	_, err = base.Get([]byte("v/k"))
	c.Assert(err, qt.ErrorIs, db.ErrKeyNotFound)
}

func TestUnwrap(t *testing.T) {
	c := qt.New(t)

	base, err := inmemory.New(db.Options{})
	c.Assert(err, qt.IsNil)

	inner := base.WriteTx()
	defer inner.Discard()
	wrapped := NewPrefixedWriteTx(NewPrefixedWriteTx(inner, []byte("a/")), []byte("b/"))

	c.Assert(db.UnwrapWriteTx(wrapped), qt.Equals, inner)
}
