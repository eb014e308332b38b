// Package prefixeddb exposes a view of a db.Database where every key is
// transparently stored under a fixed prefix. Multiple views with distinct
// prefixes can share the same underlying database without key collisions.
package prefixeddb

import (
	"bytes"

	"github.com/yaksetig/votex-sub001/db"
)

// PrefixedDatabase implements db.Database over a prefix of another database.
type PrefixedDatabase struct {
	db     db.Database
	prefix []byte
}

var _ db.Database = (*PrefixedDatabase)(nil)

// NewPrefixedDatabase returns a view of database where every key lives under
// prefix.
func NewPrefixedDatabase(database db.Database, prefix []byte) *PrefixedDatabase {
	return &PrefixedDatabase{
		db:     database,
		prefix: bytes.Clone(prefix),
	}
}

func (d *PrefixedDatabase) Get(key []byte) ([]byte, error) {
	return d.db.Get(prefixKey(d.prefix, key))
}

func (d *PrefixedDatabase) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	return iterate(d.db, d.prefix, prefix, callback)
}

func (d *PrefixedDatabase) WriteTx() db.WriteTx {
	return NewPrefixedWriteTx(d.db.WriteTx(), d.prefix)
}

// Close closes the underlying database.
func (d *PrefixedDatabase) Close() error {
	return d.db.Close()
}

// Compact compacts the underlying database, not only the prefixed range.
func (d *PrefixedDatabase) Compact() error {
	return d.db.Compact()
}

// PrefixedReader implements db.Reader over a prefix of another reader, which
// can be a database or a write transaction.
type PrefixedReader struct {
	reader db.Reader
	prefix []byte
}

var _ db.Reader = (*PrefixedReader)(nil)

// NewPrefixedReader returns a read-only view of reader where every key lives
// under prefix.
func NewPrefixedReader(reader db.Reader, prefix []byte) *PrefixedReader {
	return &PrefixedReader{
		reader: reader,
		prefix: bytes.Clone(prefix),
	}
}

func (r *PrefixedReader) Get(key []byte) ([]byte, error) {
	return r.reader.Get(prefixKey(r.prefix, key))
}

func (r *PrefixedReader) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	return iterate(r.reader, r.prefix, prefix, callback)
}

// PrefixedWriteTx implements db.WriteTx over a prefix of another write
// transaction. Committing or discarding it commits or discards the wrapped
// transaction.
type PrefixedWriteTx struct {
	tx     db.WriteTx
	prefix []byte
}

var _ db.WriteTx = (*PrefixedWriteTx)(nil)

// NewPrefixedWriteTx returns a view of tx where every key lives under prefix.
func NewPrefixedWriteTx(tx db.WriteTx, prefix []byte) *PrefixedWriteTx {
	return &PrefixedWriteTx{
		tx:     tx,
		prefix: bytes.Clone(prefix),
	}
}

func (t *PrefixedWriteTx) Get(key []byte) ([]byte, error) {
	return t.tx.Get(prefixKey(t.prefix, key))
}

func (t *PrefixedWriteTx) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	return iterate(t.tx, t.prefix, prefix, callback)
}

func (t *PrefixedWriteTx) Set(key, value []byte) error {
	return t.tx.Set(prefixKey(t.prefix, key), value)
}

func (t *PrefixedWriteTx) Delete(key []byte) error {
	return t.tx.Delete(prefixKey(t.prefix, key))
}

// Apply copies the writes of the other transaction into this one, relocating
// every key under the prefix.
func (t *PrefixedWriteTx) Apply(other db.WriteTx) error {
	return other.Iterate(nil, func(k, v []byte) bool {
		return t.Set(k, v) == nil
	})
}

func (t *PrefixedWriteTx) Commit() error {
	return t.tx.Commit()
}

func (t *PrefixedWriteTx) Discard() {
	t.tx.Discard()
}

// Unwrap returns the wrapped write transaction.
func (t *PrefixedWriteTx) Unwrap() db.WriteTx {
	return t.tx
}

func prefixKey(prefix, key []byte) []byte {
	return append(bytes.Clone(prefix), key...)
}

// iterate iterates reader over dbPrefix+prefix, stripping dbPrefix from the
// keys passed to the callback. The caller's prefix is kept, matching the
// db.Reader contract of passing keys complete.
func iterate(reader db.Reader, dbPrefix, prefix []byte, callback func(key, value []byte) bool) error {
	return reader.Iterate(prefixKey(dbPrefix, prefix), func(k, v []byte) bool {
		return callback(k[len(dbPrefix):], v)
	})
}
