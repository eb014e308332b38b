package storage

import (
	"fmt"

	"github.com/yaksetig/votex-sub001/db/prefixeddb"
	"github.com/yaksetig/votex-sub001/log"
	"github.com/yaksetig/votex-sub001/types"
)

// CastVote stores a vote. The vote row and the nullifier index entry are
// written in a single transaction, so a crash can never leave a spent
// nullifier without its vote or the other way around.
//
// Returns ErrKeyAlreadyExists if the participant already voted and
// ErrNullifierUsed if the nullifier was spent, possibly by another
// participant identifier derived from the same voter key.
func (s *Storage) CastVote(v *types.Vote) error {
	if v == nil || !v.Valid() {
		return fmt.Errorf("invalid vote")
	}
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	wTx := s.db.WriteTx()
	defer wTx.Discard()
	voteTx := prefixeddb.NewPrefixedWriteTx(wTx, votePrefix)
	nullifTx := prefixeddb.NewPrefixedWriteTx(wTx, voteNullifierPrefix)

	voteKey := scopedKey(v.ElectionID, v.ParticipantID)
	if _, err := voteTx.Get(voteKey); err == nil {
		return fmt.Errorf("%w: participant %x already voted", ErrKeyAlreadyExists, v.ParticipantID)
	}
	nullifKey := scopedKey(v.ElectionID, v.Nullifier)
	if _, err := nullifTx.Get(nullifKey); err == nil {
		return ErrNullifierUsed
	}

	data, err := EncodeArtifact(v)
	if err != nil {
		return fmt.Errorf("cast vote: %w", err)
	}
	if err := voteTx.Set(voteKey, data); err != nil {
		return fmt.Errorf("cast vote: %w", err)
	}
	if err := nullifTx.Set(nullifKey, v.ParticipantID); err != nil {
		return fmt.Errorf("cast vote: %w", err)
	}
	if err := wTx.Commit(); err != nil {
		return err
	}

	if err := s.updateElectionStatsUnsafe(v.ElectionID, func(stats *ElectionStats) {
		stats.VotesCast++
		stats.LastVoteAt = v.CreatedAt
	}); err != nil {
		log.Warnw("failed to update election stats after vote", "error", err)
	}
	return nil
}

// Vote retrieves the vote cast by a participant. Returns ErrNotFound if the
// participant has not voted.
func (s *Storage) Vote(electionID, participantID types.HexBytes) (*types.Vote, error) {
	v := &types.Vote{}
	if err := s.getArtifact(votePrefix, scopedKey(electionID, participantID), v); err != nil {
		return nil, err
	}
	return v, nil
}

// HasVoted reports whether a participant has cast a vote in an election.
func (s *Storage) HasVoted(electionID, participantID types.HexBytes) bool {
	_, err := s.Vote(electionID, participantID)
	return err == nil
}

// NullifierUsed reports whether a vote nullifier has been spent in an
// election.
func (s *Storage) NullifierUsed(electionID, nullifier types.HexBytes) bool {
	_, err := prefixeddb.NewPrefixedReader(s.db, voteNullifierPrefix).
		Get(scopedKey(electionID, nullifier))
	return err == nil
}

// Votes returns all the votes cast in an election.
func (s *Storage) Votes(electionID types.HexBytes) ([]*types.Vote, error) {
	var votes []*types.Vote
	if err := s.iterateScopedValues(votePrefix, electionScope(electionID), func(data []byte) error {
		v := &types.Vote{}
		if err := DecodeArtifact(data, v); err != nil {
			return fmt.Errorf("could not decode vote: %w", err)
		}
		votes = append(votes, v)
		return nil
	}); err != nil {
		return nil, err
	}
	return votes, nil
}

// CountVotes returns the number of votes cast in an election.
func (s *Storage) CountVotes(electionID types.HexBytes) (int, error) {
	count := 0
	if err := s.iterateScopedValues(votePrefix, electionScope(electionID), func(_ []byte) error {
		count++
		return nil
	}); err != nil {
		return 0, err
	}
	return count, nil
}
