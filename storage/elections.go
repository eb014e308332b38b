package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/yaksetig/votex-sub001/crypto/ecc"
	"github.com/yaksetig/votex-sub001/db/prefixeddb"
	"github.com/yaksetig/votex-sub001/log"
	"github.com/yaksetig/votex-sub001/types"
)

// ElectionUpdateCallback is a function that modifies an election in place
// during an atomic update.
type ElectionUpdateCallback func(e *types.Election) error

// CreateElection stores a new election. The election must be valid and its
// identifier must not be in use.
func (s *Storage) CreateElection(e *types.Election) error {
	if e == nil || !e.Valid() {
		return fmt.Errorf("invalid election")
	}
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	key := electionScope(e.ID)
	if _, err := s.election(key); err == nil {
		return fmt.Errorf("%w: election %x", ErrKeyAlreadyExists, e.ID)
	}
	// not cached here: the caller's struct may carry the authority private
	// key, which must never be served back by Election
	if err := s.setArtifact(electionPrefix, key, e); err != nil {
		return fmt.Errorf("create election: %w", err)
	}
	return nil
}

// Election retrieves an election by its identifier. Returns ErrNotFound if
// no election exists with that identifier.
func (s *Storage) Election(electionID types.HexBytes) (*types.Election, error) {
	key := electionScope(electionID)
	if cached, ok := s.cache.Get(electionCacheKey(key)); ok {
		if e, ok := cached.(*types.Election); ok {
			return e, nil
		}
		log.Warnw("unexpected type in election cache", "electionId", electionID.String())
	}
	e, err := s.election(key)
	if err != nil {
		return nil, err
	}
	s.cache.Add(electionCacheKey(key), e)
	return e, nil
}

// election reads an election row without touching the cache.
func (s *Storage) election(key []byte) (*types.Election, error) {
	e := &types.Election{}
	if err := s.getArtifact(electionPrefix, key, e); err != nil {
		return nil, err
	}
	return e, nil
}

// ListElections returns the identifiers of all stored elections.
func (s *Storage) ListElections() ([]types.HexBytes, error) {
	var ids []types.HexBytes
	if err := s.iterateArtifactValues(electionPrefix, func(data []byte) error {
		e := &types.Election{}
		if err := DecodeArtifact(data, e); err != nil {
			return fmt.Errorf("could not decode election: %w", err)
		}
		ids = append(ids, e.ID)
		return nil
	}); err != nil {
		return nil, err
	}
	return ids, nil
}

// UpdateElection applies the given callbacks to an election atomically. The
// callbacks are applied in order over the stored value and the result is
// written back under the global lock, so concurrent updates cannot lose
// writes.
func (s *Storage) UpdateElection(electionID types.HexBytes, updates ...ElectionUpdateCallback) error {
	if len(updates) == 0 {
		return nil
	}
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	key := electionScope(electionID)
	e, err := s.election(key)
	if err != nil {
		return fmt.Errorf("update election: %w", err)
	}
	for _, update := range updates {
		if err := update(e); err != nil {
			return fmt.Errorf("update election: %w", err)
		}
	}
	if err := s.setArtifact(electionPrefix, key, e); err != nil {
		return fmt.Errorf("update election: %w", err)
	}
	s.cache.Add(electionCacheKey(key), e)
	return nil
}

// ElectionUpdateCallbackStatus returns a callback that moves an election to
// the given status. Status can only move forward.
func ElectionUpdateCallbackStatus(status types.ElectionStatus) ElectionUpdateCallback {
	return func(e *types.Election) error {
		if status < e.Status {
			return fmt.Errorf("cannot move election %x from %s back to %s", e.ID, e.Status, status)
		}
		e.Status = status
		return nil
	}
}

// DeleteElection removes an election and every row derived from it: the
// participants, the votes and their nullifier index, the nullification
// batches with their per-target index and round counters, the tally results
// and any submission locks. Each namespace is swept in its own transaction,
// with the election row removed last so a partial delete keeps the election
// visible.
func (s *Storage) DeleteElection(electionID types.HexBytes) error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	key := electionScope(electionID)
	if _, err := s.election(key); err != nil {
		return err
	}
	scoped := [][]byte{
		participantPrefix,
		votePrefix,
		voteNullifierPrefix,
		nullifBatchPrefix,
		nullifTargetPrefix,
		nullifRoundsPrefix,
		tallyResultPrefix,
		electionResultsPrefix,
		electionStatsPrefix,
		submissionLockPrefix,
	}
	for _, prefix := range scoped {
		if err := s.deleteScope(prefix, key); err != nil {
			return fmt.Errorf("delete election %x: %w", electionID, err)
		}
	}
	if err := s.deleteArtifact(electionPrefix, key); err != nil {
		return fmt.Errorf("delete election %x: %w", electionID, err)
	}
	s.cache.Remove(electionCacheKey(key))
	return nil
}

// deleteScope removes every key under prefix that starts with the given
// scope, in a single transaction.
func (s *Storage) deleteScope(prefix, scope []byte) error {
	wTx := prefixeddb.NewPrefixedDatabase(s.db, prefix).WriteTx()
	defer wTx.Discard()
	var keys [][]byte
	if err := wTx.Iterate(scope, func(k, _ []byte) bool {
		kCopy := make([]byte, len(k))
		copy(kCopy, k)
		keys = append(keys, kCopy)
		return true
	}); err != nil {
		return fmt.Errorf("iterate %s: %w", prefix, err)
	}
	if len(keys) == 0 {
		return nil
	}
	for _, k := range keys {
		if err := wTx.Delete(k); err != nil {
			return fmt.Errorf("delete key %x: %w", k, err)
		}
	}
	return wTx.Commit()
}

// ElectionIsOpen reports whether an election currently accepts votes and
// nullification batches. An election is open when its status is open and the
// current time is inside the voting period.
func (s *Storage) ElectionIsOpen(electionID types.HexBytes) (bool, error) {
	e, err := s.Election(electionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, err
		}
		return false, fmt.Errorf("could not get election: %w", err)
	}
	if e.Status != types.ElectionStatusOpen {
		return false, nil
	}
	now := time.Now()
	if now.Before(e.StartDate) || now.After(e.EndDate) {
		return false, nil
	}
	return true, nil
}

// AuthorityKey reconstructs the authority public key of an election as a
// point on the storage curve. Stored coordinates that do not describe a
// curve point are rejected.
func (s *Storage) AuthorityKey(electionID types.HexBytes) (ecc.Point, error) {
	e, err := s.Election(electionID)
	if err != nil {
		return nil, err
	}
	if !e.AuthorityKey.Valid() {
		return nil, fmt.Errorf("election %x has no authority key", electionID)
	}
	pk := s.curve.SetPoint(e.AuthorityKey.X.MathBigInt(), e.AuthorityKey.Y.MathBigInt())
	if !pk.IsOnCurve() {
		return nil, fmt.Errorf("authority key of election %x is not on the curve", electionID)
	}
	return pk, nil
}

func electionCacheKey(key []byte) string {
	return string(electionPrefix) + string(key)
}
