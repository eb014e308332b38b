// Package inmemory implements an ephemeral db.Database backed by a map, with
// optimistic concurrency control: every committed write bumps a global
// version counter, and Commit fails with db.ErrConflict if any key read or
// written by the transaction changed after the transaction was opened.
package inmemory

import (
	"bytes"
	"fmt"
	"slices"
	"sync"

	"github.com/yaksetig/votex-sub001/db"
)

type entry struct {
	value   []byte
	version uint64
	deleted bool
}

// InMemoryDB implements the db.Database interface. The zero value is not
// usable, use New.
type InMemoryDB struct {
	mu          sync.RWMutex
	data        map[string]entry
	nextVersion uint64
}

var _ db.Database = (*InMemoryDB)(nil)

// New returns an empty in-memory database. Options are ignored.
func New(_ db.Options) (*InMemoryDB, error) {
	return &InMemoryDB{data: make(map[string]entry)}, nil
}

func (d *InMemoryDB) Close() error   { return nil }
func (d *InMemoryDB) Compact() error { return nil }

func (d *InMemoryDB) Get(key []byte) ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ent, ok := d.data[string(key)]
	if !ok || ent.deleted {
		return nil, db.ErrKeyNotFound
	}
	return bytes.Clone(ent.value), nil
}

func (d *InMemoryDB) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	values, _ := d.snapshot(prefix)
	return sortedRange(values, callback)
}

func (d *InMemoryDB) WriteTx() db.WriteTx {
	d.mu.RLock()
	baseVer := d.nextVersion
	d.mu.RUnlock()
	return &WriteTx{
		db:      d,
		writes:  make(map[string]*[]byte),
		reads:   make(map[string]uint64),
		baseVer: baseVer,
	}
}

// snapshot copies the live entries whose key starts with prefix, along with
// their versions.
func (d *InMemoryDB) snapshot(prefix []byte) (map[string][]byte, map[string]uint64) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	values := make(map[string][]byte, len(d.data))
	versions := make(map[string]uint64, len(d.data))
	for k, ent := range d.data {
		if ent.deleted || !bytes.HasPrefix([]byte(k), prefix) {
			continue
		}
		values[k] = bytes.Clone(ent.value)
		versions[k] = ent.version
	}
	return values, versions
}

// version returns the current version of key, or zero if it was never
// written. Callers must hold the lock.
func (d *InMemoryDB) version(key string) uint64 {
	return d.data[key].version
}

// write records a set or delete of key, bumping the version counter. Callers
// must hold the lock.
func (d *InMemoryDB) write(key string, value []byte, deleted bool) {
	d.nextVersion++
	ent := entry{version: d.nextVersion, deleted: deleted}
	if !deleted {
		ent.value = bytes.Clone(value)
	}
	d.data[key] = ent
}

// WriteTx implements db.WriteTx with optimistic locking: it records the
// version of every key it reads or writes and refuses to commit if any of
// them changed in the meantime.
type WriteTx struct {
	db        *InMemoryDB
	writes    map[string]*[]byte // a nil pointer marks a delete
	reads     map[string]uint64
	baseVer   uint64
	committed bool
	discarded bool
}

var _ db.WriteTx = (*WriteTx)(nil)

func (tx *WriteTx) recordRead(key string, version uint64) {
	if _, ok := tx.reads[key]; !ok {
		tx.reads[key] = version
	}
}

// touch records the current version of key as read.
func (tx *WriteTx) touch(key string) {
	if _, ok := tx.reads[key]; ok {
		return
	}
	tx.db.mu.RLock()
	version := tx.db.version(key)
	tx.db.mu.RUnlock()
	tx.reads[key] = version
}

func (tx *WriteTx) Get(key []byte) ([]byte, error) {
	strKey := string(key)
	if pending, ok := tx.writes[strKey]; ok {
		if pending == nil {
			return nil, db.ErrKeyNotFound
		}
		return bytes.Clone(*pending), nil
	}
	tx.touch(strKey)
	return tx.db.Get(key)
}

func (tx *WriteTx) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	values, versions := tx.db.snapshot(prefix)
	for k, ver := range versions {
		tx.recordRead(k, ver)
	}
	for k, v := range tx.writes {
		if !bytes.HasPrefix([]byte(k), prefix) {
			continue
		}
		if v == nil {
			delete(values, k)
			continue
		}
		values[k] = bytes.Clone(*v)
	}
	return sortedRange(values, callback)
}

func (tx *WriteTx) Set(key, value []byte) error {
	strKey := string(key)
	tx.touch(strKey)
	valCopy := bytes.Clone(value)
	tx.writes[strKey] = &valCopy
	return nil
}

func (tx *WriteTx) Delete(key []byte) error {
	strKey := string(key)
	tx.touch(strKey)
	tx.writes[strKey] = nil
	return nil
}

func (tx *WriteTx) Apply(other db.WriteTx) error {
	return other.Iterate(nil, func(k, v []byte) bool {
		return tx.Set(k, v) == nil
	})
}

func (tx *WriteTx) Commit() error {
	if tx.committed || tx.discarded {
		return fmt.Errorf("cannot commit inmemory tx: already committed or discarded")
	}

	tx.db.mu.Lock()
	defer tx.db.mu.Unlock()

	for key, readVersion := range tx.reads {
		if readVersion > tx.baseVer || tx.db.version(key) != readVersion {
			return db.ErrConflict
		}
	}

	for key, value := range tx.writes {
		if value == nil {
			tx.db.write(key, nil, true)
			continue
		}
		tx.db.write(key, *value, false)
	}
	tx.committed = true
	return nil
}

func (tx *WriteTx) Discard() {
	tx.writes = map[string]*[]byte{}
	tx.reads = map[string]uint64{}
	tx.discarded = true
}

// sortedRange calls callback over the map entries in lexicographic key order
// until the callback returns false.
func sortedRange(entries map[string][]byte, callback func(key, value []byte) bool) error {
	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		if !callback([]byte(key), entries[key]) {
			break
		}
	}
	return nil
}
