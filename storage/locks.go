package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/yaksetig/votex-sub001/db"
	"github.com/yaksetig/votex-sub001/db/prefixeddb"
	"github.com/yaksetig/votex-sub001/types"
)

// LockSubmission reserves the right of a participant to submit a
// nullification batch. While the lock is held, further submission attempts
// by the same participant fail with ErrSubmissionInFlight. Locks do not
// survive a restart and are released by the stale lock monitor if the client
// never finishes.
func (s *Storage) LockSubmission(electionID, participantID types.HexBytes) error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	key := scopedKey(electionID, participantID)
	locked, err := s.isSubmissionLocked(key)
	if err != nil {
		return err
	}
	if locked {
		return ErrSubmissionInFlight
	}

	record := &lockRecord{Timestamp: time.Now().Unix()}
	data, err := EncodeArtifact(record)
	if err != nil {
		return fmt.Errorf("encode submission lock: %w", err)
	}
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), submissionLockPrefix)
	defer wTx.Discard()
	if err := wTx.Set(key, data); err != nil {
		return fmt.Errorf("failed to set submission lock: %w", err)
	}
	if err := wTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit submission lock: %w", err)
	}
	return nil
}

// ReleaseSubmission frees the submission lock of a participant. Releasing a
// lock that is not held is not an error.
func (s *Storage) ReleaseSubmission(electionID, participantID types.HexBytes) error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), submissionLockPrefix)
	defer wTx.Discard()
	if err := wTx.Delete(scopedKey(electionID, participantID)); err != nil {
		return fmt.Errorf("failed to release submission lock: %w", err)
	}
	if err := wTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit submission lock release: %w", err)
	}
	return nil
}

// IsSubmissionInFlight reports whether a participant holds a submission
// lock.
func (s *Storage) IsSubmissionInFlight(electionID, participantID types.HexBytes) (bool, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()
	return s.isSubmissionLocked(scopedKey(electionID, participantID))
}

func (s *Storage) isSubmissionLocked(key []byte) (bool, error) {
	reader := prefixeddb.NewPrefixedReader(s.db, submissionLockPrefix)
	if _, err := reader.Get(key); err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check submission lock: %w", err)
	}
	return true, nil
}
