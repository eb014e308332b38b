// Package mongodb implements db.Database on a mongodb collection. Keys are
// stored hex encoded as document ids, so that prefix iteration preserves the
// byte-wise lexicographic order. Write transactions are buffered write
// batches without conflict detection, equivalent to the pebble backend. The
// driver is not complete: it is meant for inspection and replication
// scenarios, not as the primary storage backend.
package mongodb

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/yaksetig/votex-sub001/db"
)

const (
	collectionName = "keyvalues"
	defaultTimeout = 30 * time.Second
)

// keyValue is the document stored for every key.
type keyValue struct {
	Key   string `bson:"_id"`
	Value []byte `bson:"value"`
}

// MongoDB implements the db.Database interface.
type MongoDB struct {
	client *mongo.Client
	kv     *mongo.Collection
}

var _ db.Database = (*MongoDB)(nil)

// New connects to the mongodb server at MONGODB_URL and uses opts.Path as
// the database name.
func New(opts db.Options) (*MongoDB, error) {
	url := os.Getenv("MONGODB_URL")
	if url == "" {
		return nil, fmt.Errorf("MONGODB_URL environment variable is not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(url))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	// Database names can't contain path separators, but callers may pass a
	// filesystem path as the generic db.Options.Path.
	name := strings.NewReplacer("/", "_", "\\", "_").Replace(strings.Trim(opts.Path, "/"))
	return &MongoDB{
		client: client,
		kv:     client.Database(name).Collection(collectionName),
	}, nil
}

func (d *MongoDB) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	return d.client.Disconnect(ctx)
}

// Compact is a no-op, mongodb manages its own storage.
func (d *MongoDB) Compact() error {
	return nil
}

func (d *MongoDB) Get(key []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	var doc keyValue
	err := d.kv.FindOne(ctx, bson.M{"_id": hex.EncodeToString(key)}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, db.ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.Value, nil
}

func (d *MongoDB) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	filter := bson.M{}
	if len(prefix) > 0 {
		// Hex uses no regex metacharacters, an anchored prefix match is
		// safe and can use the _id index.
		filter = bson.M{"_id": bson.M{"$regex": "^" + hex.EncodeToString(prefix)}}
	}
	cursor, err := d.kv.Find(ctx, filter, options.Find().SetSort(bson.M{"_id": 1}))
	if err != nil {
		return err
	}
	defer func() { _ = cursor.Close(ctx) }()
	for cursor.Next(ctx) {
		var doc keyValue
		if err := cursor.Decode(&doc); err != nil {
			return err
		}
		key, err := hex.DecodeString(doc.Key)
		if err != nil {
			return fmt.Errorf("malformed key %q: %w", doc.Key, err)
		}
		if !callback(key, doc.Value) {
			break
		}
	}
	return cursor.Err()
}

func (d *MongoDB) WriteTx() db.WriteTx {
	return &WriteTx{
		db:     d,
		writes: make(map[string]*[]byte),
	}
}

// WriteTx buffers writes in memory and applies them with a single ordered
// bulk write on Commit. Reads not answered by the buffer observe the latest
// committed state, and Commit never returns db.ErrConflict.
type WriteTx struct {
	db     *MongoDB
	writes map[string]*[]byte // hex key, a nil pointer marks a delete
	done   bool
}

var _ db.WriteTx = (*WriteTx)(nil)

func (tx *WriteTx) Get(key []byte) ([]byte, error) {
	if pending, ok := tx.writes[hex.EncodeToString(key)]; ok {
		if pending == nil {
			return nil, db.ErrKeyNotFound
		}
		return bytes.Clone(*pending), nil
	}
	return tx.db.Get(key)
}

func (tx *WriteTx) Iterate(prefix []byte, callback func(key, value []byte) bool) error {
	entries := make(map[string][]byte)
	if err := tx.db.Iterate(prefix, func(k, v []byte) bool {
		entries[string(k)] = bytes.Clone(v)
		return true
	}); err != nil {
		return err
	}
	hexPrefix := hex.EncodeToString(prefix)
	for hexKey, v := range tx.writes {
		if !strings.HasPrefix(hexKey, hexPrefix) {
			continue
		}
		key, err := hex.DecodeString(hexKey)
		if err != nil {
			return fmt.Errorf("malformed key %q: %w", hexKey, err)
		}
		if v == nil {
			delete(entries, string(key))
			continue
		}
		entries[string(key)] = bytes.Clone(*v)
	}

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

func (tx *WriteTx) Set(key, value []byte) error {
	valCopy := bytes.Clone(value)
	tx.writes[hex.EncodeToString(key)] = &valCopy
	return nil
}

func (tx *WriteTx) Delete(key []byte) error {
	tx.writes[hex.EncodeToString(key)] = nil
	return nil
}

func (tx *WriteTx) Apply(other db.WriteTx) error {
	return other.Iterate(nil, func(k, v []byte) bool {
		return tx.Set(k, v) == nil
	})
}

func (tx *WriteTx) Commit() error {
	if tx.done {
		return fmt.Errorf("cannot commit mongodb tx: already committed or discarded")
	}
	tx.done = true
	if len(tx.writes) == 0 {
		return nil
	}
	models := make([]mongo.WriteModel, 0, len(tx.writes))
	for hexKey, value := range tx.writes {
		if value == nil {
			models = append(models, mongo.NewDeleteOneModel().
				SetFilter(bson.M{"_id": hexKey}))
			continue
		}
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": hexKey}).
			SetReplacement(keyValue{Key: hexKey, Value: *value}).
			SetUpsert(true))
	}
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	_, err := tx.db.kv.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(true))
	return err
}

func (tx *WriteTx) Discard() {
	tx.writes = map[string]*[]byte{}
	tx.done = true
}
