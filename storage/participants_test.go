package storage

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestParticipants(t *testing.T) {
	c := qt.New(t)
	st := newTestStorage(t)

	election := newTestElection(c, st, 0x01)
	c.Assert(st.CreateElection(election), qt.IsNil)

	// No participants initially
	count, err := st.CountParticipants(election.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(count, qt.Equals, 0)

	// Register three participants
	for seed := byte(0x10); seed < 0x13; seed++ {
		c.Assert(st.AddParticipant(newTestParticipant(election.ID, seed)), qt.IsNil)
	}
	count, err = st.CountParticipants(election.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(count, qt.Equals, 3)

	// Registration is immutable: the same identifier cannot be rebound
	again := newTestParticipant(election.ID, 0x10)
	again.PublicKeyX = again.PublicKeyX.SetUint64(999)
	err = st.AddParticipant(again)
	c.Assert(err, qt.ErrorIs, ErrKeyAlreadyExists)
	stored, err := st.Participant(election.ID, again.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(stored.PublicKeyX.MathBigInt().Uint64(), qt.Equals, uint64(0x10)+100)

	// The roster of another election stays separate
	other := newTestElection(c, st, 0x02)
	c.Assert(st.CreateElection(other), qt.IsNil)
	c.Assert(st.AddParticipant(newTestParticipant(other.ID, 0x10)), qt.IsNil)
	participants, err := st.Participants(election.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(participants, qt.HasLen, 3)
	for _, p := range participants {
		c.Assert(string(p.ElectionID), qt.Equals, string(election.ID))
	}

	// Membership check
	c.Assert(st.HasParticipant(election.ID, newTestParticipant(election.ID, 0x10).ID), qt.IsTrue)
	c.Assert(st.HasParticipant(election.ID, newTestParticipant(election.ID, 0x99).ID), qt.IsFalse)
}
