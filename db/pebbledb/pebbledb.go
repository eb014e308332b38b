// Package pebbledb implements db.Database using cockroachdb/pebble. Write
// transactions are pebble indexed batches: reads observe the latest committed
// state of the database plus the batch's own pending writes, and commits
// never conflict.
package pebbledb

import (
	"bytes"
	"errors"
	"sync/atomic"

	"github.com/cockroachdb/pebble"

	"github.com/yaksetig/votex-sub001/db"
	"github.com/yaksetig/votex-sub001/log"
)

// PebbleDB implements the db.Database interface.
type PebbleDB struct {
	db *pebble.DB
	// closed makes every operation on the database and on its transactions
	// a no-op once Close has been called.
	closed *atomic.Bool
}

var _ db.Database = (*PebbleDB)(nil)

type pebbleLogger struct{}

func (pebbleLogger) Infof(format string, args ...any)  { log.Debugf(format, args...) }
func (pebbleLogger) Errorf(format string, args ...any) { log.Errorf(format, args...) }
func (pebbleLogger) Fatalf(format string, args ...any) { log.Fatalf(format, args...) }

// New opens or creates a pebble database at opts.Path.
func New(opts db.Options) (*PebbleDB, error) {
	pdb, err := pebble.Open(opts.Path, &pebble.Options{
		Logger: pebbleLogger{},
	})
	if err != nil {
		return nil, err
	}
	return &PebbleDB{
		db:     pdb,
		closed: new(atomic.Bool),
	}, nil
}

// Close closes the database. Closing twice is allowed, and any operation
// performed afterwards, on the database or on a transaction created from it,
// silently does nothing.
func (d *PebbleDB) Close() error {
	if d.closed.Swap(true) {
		return nil
	}
	return d.db.Close()
}

// Compact compacts the whole key range of the database.
func (d *PebbleDB) Compact() error {
	if d.closed.Load() {
		return nil
	}
	// pebble.DB.Compact requires an explicit range, so take the first and
	// last keys currently present.
	iter, err := d.db.NewIter(nil)
	if err != nil {
		return err
	}
	var first, last []byte
	if iter.First() {
		first = bytes.Clone(iter.Key())
	}
	if iter.Last() {
		last = bytes.Clone(iter.Key())
	}
	if err := iter.Close(); err != nil {
		return err
	}
	if bytes.Equal(first, last) {
		return nil
	}
	return d.db.Compact(first, last, true)
}

func (d *PebbleDB) Get(key []byte) ([]byte, error) {
	if d.closed.Load() {
		return nil, db.ErrKeyNotFound
	}
	value, closer, err := d.db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, db.ErrKeyNotFound
		}
		return nil, err
	}
	out := bytes.Clone(value)
	if err := closer.Close(); err != nil {
		return nil, err
	}
	return out, nil
}

func (d *PebbleDB) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	if d.closed.Load() {
		return nil
	}
	iter, err := d.db.NewIter(prefixIterOptions(prefix))
	if err != nil {
		return err
	}
	defer func() {
		if err := iter.Close(); err != nil {
			log.Errorw(err, "pebble iterator close failed")
		}
	}()
	for iter.First(); iter.Valid(); iter.Next() {
		if !callback(iter.Key(), iter.Value()) {
			break
		}
	}
	return nil
}

func (d *PebbleDB) WriteTx() db.WriteTx {
	if d.closed.Load() {
		return &WriteTx{closed: d.closed}
	}
	return &WriteTx{
		batch:  d.db.NewIndexedBatch(),
		closed: d.closed,
	}
}

// keyUpperBound returns the smallest key strictly greater than every key
// starting with b, or nil if b is a run of 0xff bytes.
func keyUpperBound(b []byte) []byte {
	end := bytes.Clone(b)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

func prefixIterOptions(prefix []byte) *pebble.IterOptions {
	if len(prefix) == 0 {
		return nil
	}
	return &pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	}
}

// WriteTx implements db.WriteTx on a pebble indexed batch. A pebble batch is
// a set of write operations, not a transaction: it reads the latest committed
// version of any key it didn't write itself, and Commit never returns
// db.ErrConflict.
type WriteTx struct {
	batch  *pebble.Batch
	closed *atomic.Bool
}

var _ db.WriteTx = (*WriteTx)(nil)

func (tx *WriteTx) Get(key []byte) ([]byte, error) {
	if tx.closed.Load() {
		return nil, nil
	}
	value, closer, err := tx.batch.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, db.ErrKeyNotFound
		}
		return nil, err
	}
	out := bytes.Clone(value)
	if err := closer.Close(); err != nil {
		return nil, err
	}
	return out, nil
}

func (tx *WriteTx) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	if tx.closed.Load() {
		return nil
	}
	iter, err := tx.batch.NewIter(prefixIterOptions(prefix))
	if err != nil {
		return err
	}
	defer func() {
		if err := iter.Close(); err != nil {
			log.Errorw(err, "pebble batch iterator close failed")
		}
	}()
	for iter.First(); iter.Valid(); iter.Next() {
		if !callback(iter.Key(), iter.Value()) {
			break
		}
	}
	return nil
}

func (tx *WriteTx) Set(key, value []byte) error {
	if tx.closed.Load() {
		return nil
	}
	return tx.batch.Set(key, value, nil)
}

func (tx *WriteTx) Delete(key []byte) error {
	if tx.closed.Load() {
		return nil
	}
	return tx.batch.Delete(key, nil)
}

func (tx *WriteTx) Apply(other db.WriteTx) error {
	if tx.closed.Load() {
		return nil
	}
	if o, ok := db.UnwrapWriteTx(other).(*WriteTx); ok {
		return tx.batch.Apply(o.batch, nil)
	}
	var applyErr error
	if err := other.Iterate(nil, func(k, v []byte) bool {
		if err := tx.batch.Set(k, v, nil); err != nil {
			applyErr = err
			return false
		}
		return true
	}); err != nil {
		return err
	}
	return applyErr
}

func (tx *WriteTx) Commit() error {
	if tx.closed.Load() {
		return nil
	}
	return tx.batch.Commit(pebble.Sync)
}

func (tx *WriteTx) Discard() {
	if tx.closed.Load() {
		return
	}
	// Close returns an error if the batch was already committed or closed,
	// which Discard tolerates.
	_ = tx.batch.Close()
}
