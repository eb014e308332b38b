package storage

import (
	"fmt"

	"github.com/yaksetig/votex-sub001/types"
)

// AddParticipant stores a new participant of an election. Participants are
// immutable: registering an identifier that already exists is an error, so a
// voter key can never be rebound after registration.
func (s *Storage) AddParticipant(p *types.Participant) error {
	if p == nil || !p.Valid() {
		return fmt.Errorf("invalid participant")
	}
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	key := scopedKey(p.ElectionID, p.ID)
	if err := s.getArtifact(participantPrefix, key, &types.Participant{}); err == nil {
		return fmt.Errorf("%w: participant %x", ErrKeyAlreadyExists, p.ID)
	}
	if err := s.setArtifact(participantPrefix, key, p); err != nil {
		return fmt.Errorf("add participant: %w", err)
	}
	return nil
}

// Participant retrieves a participant of an election. Returns ErrNotFound if
// the participant is not registered.
func (s *Storage) Participant(electionID, participantID types.HexBytes) (*types.Participant, error) {
	p := &types.Participant{}
	if err := s.getArtifact(participantPrefix, scopedKey(electionID, participantID), p); err != nil {
		return nil, err
	}
	return p, nil
}

// HasParticipant reports whether a participant is registered in an election.
func (s *Storage) HasParticipant(electionID, participantID types.HexBytes) bool {
	_, err := s.Participant(electionID, participantID)
	return err == nil
}

// Participants returns all the participants registered in an election. This
// is the universe the k-anonymity cohorts are drawn from.
func (s *Storage) Participants(electionID types.HexBytes) ([]*types.Participant, error) {
	var participants []*types.Participant
	if err := s.iterateScopedValues(participantPrefix, electionScope(electionID), func(data []byte) error {
		p := &types.Participant{}
		if err := DecodeArtifact(data, p); err != nil {
			return fmt.Errorf("could not decode participant: %w", err)
		}
		participants = append(participants, p)
		return nil
	}); err != nil {
		return nil, err
	}
	return participants, nil
}

// CountParticipants returns the number of participants registered in an
// election.
func (s *Storage) CountParticipants(electionID types.HexBytes) (int, error) {
	count := 0
	if err := s.iterateScopedValues(participantPrefix, electionScope(electionID), func(_ []byte) error {
		count++
		return nil
	}); err != nil {
		return 0, err
	}
	return count, nil
}
