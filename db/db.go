// Package db defines the key-value database interface shared by the storage
// backends. Values are opaque byte slices and keys are ordered
// lexicographically by their raw bytes.
package db

import "errors"

// Identifiers of the available database backends, accepted by metadb.New.
const (
	TypePebble = "pebble"
	TypeInMem  = "inmemory"
	TypeMongo  = "mongodb"
)

var (
	// ErrKeyNotFound is returned by Get when the key doesn't exist.
	ErrKeyNotFound = errors.New("key not found")
	// ErrConflict is returned by Commit when the transaction touched a key
	// that a concurrent transaction committed first. The operation can be
	// retried with a fresh transaction.
	ErrConflict = errors.New("conflict during transaction commit")
)

// Options contains the configuration accepted by the backend constructors.
// Path is a filesystem directory for disk-backed backends and a database
// name for server-backed ones.
type Options struct {
	Path string
}

// Reader is the read-only interface shared by Database and WriteTx.
type Reader interface {
	// Get retrieves the value of the given key. Returns ErrKeyNotFound if
	// the key doesn't exist.
	Get(key []byte) ([]byte, error)
	// Iterate calls callback with every key-value pair whose key starts
	// with prefix, in lexicographic key order, until the callback returns
	// false. Keys are passed complete, including the prefix. Key and value
	// slices are only valid for the duration of the callback.
	Iterate(prefix []byte, callback func(key, value []byte) bool) error
}

// Database is a complete key-value database backend.
type Database interface {
	Reader
	// WriteTx creates a new write transaction. Whether concurrent write
	// transactions are isolated from each other depends on the backend.
	WriteTx() WriteTx
	// Close closes the database and releases its resources.
	Close() error
	// Compact triggers storage compaction on backends that support it.
	Compact() error
}

// WriteTx is a set of writes applied atomically on Commit. Reads through the
// transaction observe its own pending writes.
type WriteTx interface {
	Reader
	// Set adds or replaces a key-value pair.
	Set(key, value []byte) error
	// Delete removes a key. Deleting a missing key is not an error.
	Delete(key []byte) error
	// Apply copies the writes of the other transaction into this one.
	Apply(other WriteTx) error
	// Commit applies the pending writes to the database. Backends with
	// conflict detection return ErrConflict if a concurrently committed
	// transaction wrote any key read or written by this one.
	Commit() error
	// Discard drops the pending writes. Calling Discard after Commit is
	// allowed and has no effect.
	Discard()
}

// UnwrapWriteTx returns the innermost transaction of a chain of wrappers,
// such as the one created by prefixeddb.
func UnwrapWriteTx(tx WriteTx) WriteTx {
	for {
		wrapper, ok := tx.(interface{ Unwrap() WriteTx })
		if !ok {
			return tx
		}
		tx = wrapper.Unwrap()
	}
}
