package storage

import (
	"time"

	"github.com/yaksetig/votex-sub001/types"
)

// ElectionStats represents the activity counters of an election. The
// counters are updated after each successful write, so they may lag the
// authoritative rows for a moment but never disagree with them for long.
type ElectionStats struct {
	VotesCast         int64     `json:"votesCast"`
	BatchesSubmitted  int64     `json:"batchesSubmitted"`
	CiphertextsStored int64     `json:"ciphertextsStored"`
	LastVoteAt        time.Time `json:"lastVoteAt"`
	LastBatchAt       time.Time `json:"lastBatchAt"`
}

// ElectionStats retrieves the activity counters of an election. An election
// without activity returns zeroed stats.
func (s *Storage) ElectionStats(electionID types.HexBytes) *ElectionStats {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()
	return s.electionStatsUnsafe(electionID)
}

// electionStatsUnsafe retrieves stats without locking (internal use only).
func (s *Storage) electionStatsUnsafe(electionID types.HexBytes) *ElectionStats {
	stats := &ElectionStats{}
	if err := s.getArtifact(electionStatsPrefix, electionScope(electionID), stats); err != nil {
		return &ElectionStats{}
	}
	return stats
}

// updateElectionStatsUnsafe applies a delta to the stored stats. The caller
// must hold the globalLock.
func (s *Storage) updateElectionStatsUnsafe(electionID types.HexBytes, update func(*ElectionStats)) error {
	stats := s.electionStatsUnsafe(electionID)
	update(stats)
	return s.setArtifact(electionStatsPrefix, electionScope(electionID), stats)
}
