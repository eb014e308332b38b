package storage

import (
	"fmt"

	"github.com/yaksetig/votex-sub001/types"
)

// SetTallyResult stores the tally outcome for one participant. The row is
// keyed by election and participant, so rerunning the tally overwrites the
// previous outcome instead of accumulating rows.
func (s *Storage) SetTallyResult(r *types.TallyResult) error {
	if r == nil || len(r.ElectionID) == 0 || len(r.ParticipantID) == 0 {
		return fmt.Errorf("invalid tally result")
	}
	key := scopedKey(r.ElectionID, r.ParticipantID)
	if err := s.setArtifact(tallyResultPrefix, key, r); err != nil {
		return fmt.Errorf("set tally result: %w", err)
	}
	return nil
}

// TallyResult retrieves the tally outcome of one participant. Returns
// ErrNotFound if the tally has not processed the participant.
func (s *Storage) TallyResult(electionID, participantID types.HexBytes) (*types.TallyResult, error) {
	r := &types.TallyResult{}
	if err := s.getArtifact(tallyResultPrefix, scopedKey(electionID, participantID), r); err != nil {
		return nil, err
	}
	return r, nil
}

// TallyResults returns the tally outcomes of all processed participants of
// an election.
func (s *Storage) TallyResults(electionID types.HexBytes) ([]*types.TallyResult, error) {
	var results []*types.TallyResult
	if err := s.iterateScopedValues(tallyResultPrefix, electionScope(electionID), func(data []byte) error {
		r := &types.TallyResult{}
		if err := DecodeArtifact(data, r); err != nil {
			return fmt.Errorf("could not decode tally result: %w", err)
		}
		results = append(results, r)
		return nil
	}); err != nil {
		return nil, err
	}
	return results, nil
}

// SetElectionResults stores the vote totals of an election, overwriting any
// previous totals. Results are JSON encoded so they stay readable with
// external tools.
func (s *Storage) SetElectionResults(res *types.ElectionResults) error {
	if res == nil || len(res.ElectionID) == 0 {
		return fmt.Errorf("invalid election results")
	}
	key := electionScope(res.ElectionID)
	if err := s.setArtifact(electionResultsPrefix, key, res, ArtifactEncodingJSON); err != nil {
		return fmt.Errorf("set election results: %w", err)
	}
	return nil
}

// ElectionResults retrieves the stored vote totals of an election. Returns
// ErrNotFound if no results have been computed yet.
func (s *Storage) ElectionResults(electionID types.HexBytes) (*types.ElectionResults, error) {
	res := &types.ElectionResults{}
	if err := s.getArtifact(electionResultsPrefix, electionScope(electionID), res, ArtifactEncodingJSON); err != nil {
		return nil, err
	}
	return res, nil
}

// HasElectionResults reports whether results have been stored for an
// election.
func (s *Storage) HasElectionResults(electionID types.HexBytes) bool {
	_, err := s.ElectionResults(electionID)
	return err == nil
}
