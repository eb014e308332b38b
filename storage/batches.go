package storage

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yaksetig/votex-sub001/crypto/elgamal"
	"github.com/yaksetig/votex-sub001/db"
	"github.com/yaksetig/votex-sub001/db/prefixeddb"
	"github.com/yaksetig/votex-sub001/log"
	"github.com/yaksetig/votex-sub001/types"
)

// PushNullificationBatch stores a nullification batch atomically. The batch
// row, the per-target ciphertext index entries and the submitter round
// counter are written in one transaction: either the whole batch lands or
// nothing does, so the per-target index can never disagree with the batch
// rows.
//
// The submitter identity only touches the round counter. It is not part of
// the batch row nor of the index, so reading the stored batch does not reveal
// who submitted it.
//
// Returns ErrMaxRoundsReached when the submitter already used all its
// nullification rounds. If the batch has no identifier a random one is
// assigned.
func (s *Storage) PushNullificationBatch(batch *NullificationBatch, submitterID types.HexBytes, maxRounds int) error {
	if !batch.Valid() {
		return fmt.Errorf("invalid nullification batch")
	}
	if len(submitterID) == 0 {
		return fmt.Errorf("missing submitter")
	}
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	if len(batch.BatchID) == 0 {
		id := uuid.New()
		batch.BatchID = id[:]
	}
	if batch.SubmittedAt.IsZero() {
		batch.SubmittedAt = time.Now()
	}

	wTx := s.db.WriteTx()
	defer wTx.Discard()
	batchTx := prefixeddb.NewPrefixedWriteTx(wTx, nullifBatchPrefix)
	targetTx := prefixeddb.NewPrefixedWriteTx(wTx, nullifTargetPrefix)
	roundsTx := prefixeddb.NewPrefixedWriteTx(wTx, nullifRoundsPrefix)

	// bound the number of batches one participant may submit
	roundsKey := scopedKey(batch.ElectionID, submitterID)
	rounds, err := decodeRounds(roundsTx, roundsKey)
	if err != nil {
		return fmt.Errorf("push batch: %w", err)
	}
	if maxRounds > 0 && rounds >= uint32(maxRounds) {
		return fmt.Errorf("%w: %d of %d used", ErrMaxRoundsReached, rounds, maxRounds)
	}

	batchKey := scopedKey(batch.ElectionID, batch.BatchID)
	if _, err := batchTx.Get(batchKey); err == nil {
		return fmt.Errorf("%w: batch %x", ErrKeyAlreadyExists, batch.BatchID)
	}
	data, err := EncodeArtifact(batch)
	if err != nil {
		return fmt.Errorf("push batch: %w", err)
	}
	if err := batchTx.Set(batchKey, data); err != nil {
		return fmt.Errorf("push batch: %w", err)
	}
	for _, item := range batch.Items {
		// reject bytes that do not decode to curve points, so the tally
		// can trust every entry of the index
		if _, err := item.DecodeCiphertext(s.curve); err != nil {
			return err
		}
		targetKey := scopedKey(batch.ElectionID, item.TargetParticipantID, batch.BatchID)
		if err := targetTx.Set(targetKey, item.Ciphertext); err != nil {
			return fmt.Errorf("push batch index: %w", err)
		}
	}
	if err := roundsTx.Set(roundsKey, encodeRounds(rounds+1)); err != nil {
		return fmt.Errorf("push batch rounds: %w", err)
	}
	if err := wTx.Commit(); err != nil {
		return err
	}

	if err := s.updateElectionStatsUnsafe(batch.ElectionID, func(stats *ElectionStats) {
		stats.BatchesSubmitted++
		stats.CiphertextsStored += int64(len(batch.Items))
		stats.LastBatchAt = batch.SubmittedAt
	}); err != nil {
		log.Warnw("failed to update election stats after batch", "error", err)
	}
	return nil
}

// NullificationBatch retrieves a stored batch by its identifier. Returns
// ErrNotFound if the batch does not exist.
func (s *Storage) NullificationBatch(electionID, batchID types.HexBytes) (*NullificationBatch, error) {
	b := &NullificationBatch{}
	if err := s.getArtifact(nullifBatchPrefix, scopedKey(electionID, batchID), b); err != nil {
		return nil, err
	}
	return b, nil
}

// ListNullificationBatches returns the identifiers of all batches stored for
// an election.
func (s *Storage) ListNullificationBatches(electionID types.HexBytes) ([]types.HexBytes, error) {
	scope := electionScope(electionID)
	var ids []types.HexBytes
	if err := prefixeddb.NewPrefixedReader(s.db, nullifBatchPrefix).
		Iterate(scope, func(k, _ []byte) bool {
			ids = append(ids, types.HexBytes(bytes.Clone(k[len(scope):])))
			return true
		}); err != nil {
		return nil, err
	}
	return ids, nil
}

// CountNullificationBatches returns the number of batches stored for an
// election.
func (s *Storage) CountNullificationBatches(electionID types.HexBytes) (int, error) {
	count := 0
	if err := s.iterateScopedValues(nullifBatchPrefix, electionScope(electionID), func(_ []byte) error {
		count++
		return nil
	}); err != nil {
		return 0, err
	}
	return count, nil
}

// CiphertextsForParticipant returns every nullification ciphertext addressed
// to a participant, across all stored batches. The tally aggregates over this
// set. Stored bytes that do not decode to points on the curve abort the read.
func (s *Storage) CiphertextsForParticipant(electionID, participantID types.HexBytes) ([]*elgamal.Ciphertext, error) {
	var cts []*elgamal.Ciphertext
	if err := s.iterateScopedValues(nullifTargetPrefix,
		scopedKey(electionID, participantID), func(data []byte) error {
			ct := elgamal.NewCiphertext(s.curve)
			if err := ct.Deserialize(data); err != nil {
				return fmt.Errorf("stored ciphertext for %x: %w", participantID, err)
			}
			cts = append(cts, ct)
			return nil
		}); err != nil {
		return nil, err
	}
	return cts, nil
}

// NullificationRounds returns how many batches a participant has submitted
// in an election.
func (s *Storage) NullificationRounds(electionID, participantID types.HexBytes) (uint32, error) {
	reader := prefixeddb.NewPrefixedReader(s.db, nullifRoundsPrefix)
	return decodeRounds(reader, scopedKey(electionID, participantID))
}

// decodeRounds reads a round counter, treating a missing key as zero.
func decodeRounds(reader db.Reader, key []byte) (uint32, error) {
	data, err := reader.Get(key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, err
	}
	if len(data) != 4 {
		return 0, fmt.Errorf("malformed round counter of %d bytes", len(data))
	}
	return binary.BigEndian.Uint32(data), nil
}

func encodeRounds(rounds uint32) []byte {
	return binary.BigEndian.AppendUint32(nil, rounds)
}
