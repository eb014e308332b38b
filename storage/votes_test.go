package storage

import (
	"bytes"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/yaksetig/votex-sub001/types"
)

func newTestVote(electionID types.HexBytes, seed byte, choice int) *types.Vote {
	return &types.Vote{
		ElectionID:    electionID,
		ParticipantID: bytes.Repeat([]byte{seed}, 32),
		Nullifier:     bytes.Repeat([]byte{seed ^ 0xff}, 32),
		Choice:        choice,
		Signature:     bytes.Repeat([]byte{seed}, 64),
		CreatedAt:     time.Now(),
	}
}

func TestCastVote(t *testing.T) {
	c := qt.New(t)
	st := newTestStorage(t)

	election := newTestElection(c, st, 0x01)
	c.Assert(st.CreateElection(election), qt.IsNil)

	vote := newTestVote(election.ID, 0x10, 1)
	c.Assert(st.CastVote(vote), qt.IsNil)

	stored, err := st.Vote(election.ID, vote.ParticipantID)
	c.Assert(err, qt.IsNil)
	c.Assert(stored.Choice, qt.Equals, 1)
	c.Assert(st.HasVoted(election.ID, vote.ParticipantID), qt.IsTrue)
	c.Assert(st.NullifierUsed(election.ID, vote.Nullifier), qt.IsTrue)

	// The same participant cannot vote twice
	repeat := newTestVote(election.ID, 0x10, 0)
	repeat.Nullifier = bytes.Repeat([]byte{0xaa}, 32)
	err = st.CastVote(repeat)
	c.Assert(err, qt.ErrorIs, ErrKeyAlreadyExists)

	// A spent nullifier is rejected even under another participant
	replay := newTestVote(election.ID, 0x11, 0)
	replay.Nullifier = vote.Nullifier
	err = st.CastVote(replay)
	c.Assert(err, qt.ErrorIs, ErrNullifierUsed)

	// The rejected votes must have left no trace
	c.Assert(st.HasVoted(election.ID, replay.ParticipantID), qt.IsFalse)
	count, err := st.CountVotes(election.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(count, qt.Equals, 1)

	// A second participant with its own nullifier votes fine
	second := newTestVote(election.ID, 0x12, 0)
	c.Assert(st.CastVote(second), qt.IsNil)
	votes, err := st.Votes(election.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(votes, qt.HasLen, 2)
}

func TestVoteValidation(t *testing.T) {
	c := qt.New(t)
	st := newTestStorage(t)

	election := newTestElection(c, st, 0x01)
	c.Assert(st.CreateElection(election), qt.IsNil)

	// Choice outside the two-option range
	bad := newTestVote(election.ID, 0x20, 0)
	bad.Choice = 2
	c.Assert(st.CastVote(bad), qt.IsNotNil)

	// Missing signature
	bad = newTestVote(election.ID, 0x21, 1)
	bad.Signature = nil
	c.Assert(st.CastVote(bad), qt.IsNotNil)

	count, err := st.CountVotes(election.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(count, qt.Equals, 0)
}
