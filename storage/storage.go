/*
Package storage provides the persistent layer of the voting authority node.

# Storage Organization

The storage uses a key-value database with prefixed namespaces. Composite keys
start with a fixed-width election scope (a truncated hash of the election ID)
so that per-election iteration never crosses into another election.

## Elections
  - e/  : scope → Election (question, options, authority public key,
    k-anonymity parameters, voting period, status)

## Participants
  - p/  : scope + participantID → Participant (voter public key binding,
    immutable once created; the universe k-anonymity cohorts are drawn from)

## Votes
  - v/  : scope + participantID → Vote (choice, signature, nullifier)
  - vn/ : scope + nullifier → participantID (double-voting guard)

## Nullification batches
  - nb/ : scope + batchID → NullificationBatch (all slots with their proofs;
    no submitter identity and no real/dummy flags are ever stored)
  - nt/ : scope + targetParticipantID + batchID → serialized ciphertext
    (per-target index the tally aggregates over)
  - nr/ : scope + participantID → submission round counter (bounds how many
    batches one participant may submit)

## Tally
  - tr/ : scope + participantID → TallyResult (upsert, idempotent)
  - er/ : scope → ElectionResults (preliminary/final totals, JSON encoded)
  - es/ : scope → ElectionStats (activity counters)

## Submission locks
  - sl/ : scope + participantID → lock timestamp (one nullification
    submission in flight per participant; stale locks are cleared on start
    and by a background monitor)
*/
package storage

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/yaksetig/votex-sub001/crypto/ecc"
	"github.com/yaksetig/votex-sub001/db"
	"github.com/yaksetig/votex-sub001/db/prefixeddb"
	"github.com/yaksetig/votex-sub001/log"
)

var (
	ErrKeyAlreadyExists   = errors.New("key already exists")
	ErrNotFound           = errors.New("not found")
	ErrNoMoreElements     = errors.New("no more elements")
	ErrSubmissionInFlight = errors.New("submission already in flight")
	ErrMaxRoundsReached   = errors.New("max nullification rounds reached")
	ErrNullifierUsed      = errors.New("nullifier already used")

	// Prefixes
	electionPrefix        = []byte("e/")
	participantPrefix     = []byte("p/")
	votePrefix            = []byte("v/")
	voteNullifierPrefix   = []byte("vn/")
	nullifBatchPrefix     = []byte("nb/")
	nullifTargetPrefix    = []byte("nt/")
	nullifRoundsPrefix    = []byte("nr/")
	tallyResultPrefix     = []byte("tr/")
	electionResultsPrefix = []byte("er/")
	electionStatsPrefix   = []byte("es/")
	submissionLockPrefix  = []byte("sl/")

	maxKeySize = 12
)

// lockRecord stores metadata about a submission lock.
type lockRecord struct {
	Timestamp int64
}

// Storage manages the artifacts of the voting protocol. All curve points are
// created from the injected curve instance, so the backend stays a
// constructor decision.
type Storage struct {
	db         db.Database
	curve      ecc.Point
	globalLock sync.Mutex
	cache      *lru.Cache[string, any]
	ctx        context.Context
	cancel     context.CancelFunc
}

// New creates a new Storage instance on the given database. The curve
// instance is used to reconstruct the stored ciphertexts.
func New(database db.Database, curve ecc.Point) *Storage {
	cache, err := lru.New[string, any](1000)
	if err != nil {
		log.Fatalf("failed to create LRU cache: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Storage{
		db:     database,
		curve:  curve,
		cache:  cache,
		ctx:    ctx,
		cancel: cancel,
	}

	// clear submission locks left behind by a previous run
	if err := s.recover(); err != nil {
		log.Errorw(err, "failed to clear stale submission locks")
	}

	// start monitoring for stale submission locks
	s.monitorStaleLocks()

	return s
}

// Close stops the background monitors and closes the storage.
func (s *Storage) Close() {
	s.cancel()
	if err := s.db.Close(); err != nil {
		log.Errorw(err, "failed to close storage")
	}
}

// Curve returns the curve instance points are created from.
func (s *Storage) Curve() ecc.Point {
	return s.curve
}

// recover drops every submission lock. After a crash, locks left behind
// would block their participants from ever submitting again.
func (s *Storage) recover() error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}
	return s.cleanAllLocks()
}

func (s *Storage) cleanAllLocks() error {
	wTx := prefixeddb.NewPrefixedDatabase(s.db, submissionLockPrefix).WriteTx()
	defer wTx.Discard()
	var keys [][]byte
	if err := wTx.Iterate(nil, func(k, _ []byte) bool {
		keys = append(keys, append([]byte(nil), k...))
		return true
	}); err != nil {
		return fmt.Errorf("iterate submission locks: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	for _, k := range keys {
		if err := wTx.Delete(k); err != nil {
			return fmt.Errorf("delete submission lock: %w", err)
		}
	}
	if err := wTx.Commit(); err != nil {
		return fmt.Errorf("commit lock cleanup: %w", err)
	}
	log.Debugw("cleared submission locks", "count", len(keys))
	return nil
}

// releaseStaleLocks frees submission locks older than maxAge. A lock can go
// stale when a client vanishes between acquiring it and finishing the batch
// submission.
func (s *Storage) releaseStaleLocks(maxAge time.Duration) error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	now := time.Now().Unix()
	wTx := prefixeddb.NewPrefixedDatabase(s.db, submissionLockPrefix).WriteTx()
	defer wTx.Discard()
	var staleKeys [][]byte
	if err := wTx.Iterate(nil, func(k, v []byte) bool {
		r := &lockRecord{}
		if err := DecodeArtifact(v, r); err != nil {
			staleKeys = append(staleKeys, append([]byte(nil), k...))
			return true
		}
		if now-r.Timestamp >= int64(maxAge.Seconds()) {
			staleKeys = append(staleKeys, append([]byte(nil), k...))
		}
		return true
	}); err != nil {
		return fmt.Errorf("iterate stale locks: %w", err)
	}
	if len(staleKeys) == 0 {
		return nil
	}

	for _, sk := range staleKeys {
		if err := wTx.Delete(sk); err != nil {
			return fmt.Errorf("delete stale lock: %w", err)
		}
	}
	if err := wTx.Commit(); err != nil {
		return fmt.Errorf("commit stale lock deletion: %w", err)
	}

	log.Debugw("released stale submission locks", "count", len(staleKeys))
	return nil
}

// monitorStaleLocks starts a goroutine that periodically releases stale
// submission locks, so participants are never blocked indefinitely by a
// client that crashed mid-submission.
func (s *Storage) monitorStaleLocks() {
	ticker := time.NewTicker(60 * time.Second)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				if err := s.releaseStaleLocks(5 * time.Minute); err != nil {
					log.Warnw("failed to release stale submission locks", "error", err)
				}
			}
		}
	}()
}

// hashKey derives a fixed-width key from arbitrary data.
func hashKey(data []byte) []byte {
	hash := sha256.Sum256(data)
	return hash[:maxKeySize]
}

// electionScope returns the fixed-width key prefix of an election, used as
// the leading component of every composite key.
func electionScope(electionID []byte) []byte {
	return hashKey(electionID)
}

// scopedKey builds a composite key from the election scope and the given key
// components.
func scopedKey(electionID []byte, components ...[]byte) []byte {
	key := append([]byte(nil), electionScope(electionID)...)
	for _, c := range components {
		key = append(key, c...)
	}
	return key
}

// setArtifact stores an artifact under prefix/key. If the key is nil it is
// derived by hashing the encoded artifact. Existing values are overwritten.
func (s *Storage) setArtifact(prefix, key []byte, artifact any, encoding ...ArtifactEncoding) error {
	data, err := EncodeArtifact(artifact, encoding...)
	if err != nil {
		return err
	}
	if key == nil {
		key = hashKey(data)
	}

	wTx := prefixeddb.NewPrefixedDatabase(s.db, prefix).WriteTx()
	defer wTx.Discard()

	if err := wTx.Set(key, data); err != nil {
		return err
	}
	return wTx.Commit()
}

// getArtifact retrieves an artifact from prefix/key and decodes it into out.
// If the key is nil it retrieves the first artifact found for the prefix.
// Returns ErrNotFound if there is nothing to decode.
func (s *Storage) getArtifact(prefix, key []byte, out any, encoding ...ArtifactEncoding) error {
	var data []byte
	reader := prefixeddb.NewPrefixedReader(s.db, prefix)
	if key != nil {
		var err error
		data, err = reader.Get(key)
		if err != nil {
			return ErrNotFound
		}
	} else {
		if err := reader.Iterate(nil, func(_, value []byte) bool {
			data = value
			return false
		}); err != nil {
			return err
		}
		if data == nil {
			return ErrNotFound
		}
	}

	if err := DecodeArtifact(data, out, encoding...); err != nil {
		return fmt.Errorf("could not decode artifact: %w", err)
	}
	return nil
}

// deleteArtifact removes an artifact from prefix/key.
func (s *Storage) deleteArtifact(prefix, key []byte) error {
	wTx := prefixeddb.NewPrefixedDatabase(s.db, prefix).WriteTx()
	defer wTx.Discard()
	if err := wTx.Delete(key); err != nil {
		return err
	}
	return wTx.Commit()
}

// listArtifacts retrieves all the keys under a prefix.
func (s *Storage) listArtifacts(prefix []byte) ([][]byte, error) {
	var keys [][]byte
	if err := prefixeddb.NewPrefixedReader(s.db, prefix).Iterate(nil, func(k, _ []byte) bool {
		kcopy := make([]byte, len(k))
		copy(kcopy, k)
		keys = append(keys, kcopy)
		return true
	}); err != nil {
		return nil, err
	}
	return keys, nil
}

// iterateArtifactValues walks the raw values stored under prefix/subPrefix.
// Returning an error from the callback stops the iteration.
func (s *Storage) iterateArtifactValues(prefix []byte, fn func(data []byte) error) error {
	return s.iterateScopedValues(prefix, nil, fn)
}

// iterateScopedValues walks the raw values stored under prefix whose keys
// start with subPrefix.
func (s *Storage) iterateScopedValues(prefix, subPrefix []byte, fn func(data []byte) error) error {
	var cbErr error
	if err := prefixeddb.NewPrefixedReader(s.db, prefix).Iterate(subPrefix, func(_, v []byte) bool {
		if err := fn(v); err != nil {
			cbErr = err
			return false
		}
		return true
	}); err != nil {
		return err
	}
	return cbErr
}
