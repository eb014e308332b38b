package storage

import (
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
)

func TestSubmissionLocks(t *testing.T) {
	c := qt.New(t)
	st := newTestStorage(t)

	election := newTestElection(c, st, 0x01)
	c.Assert(st.CreateElection(election), qt.IsNil)
	participant := newTestParticipant(election.ID, 0x10)

	locked, err := st.IsSubmissionInFlight(election.ID, participant.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(locked, qt.IsFalse)

	// Acquire, then a second acquisition fails
	c.Assert(st.LockSubmission(election.ID, participant.ID), qt.IsNil)
	err = st.LockSubmission(election.ID, participant.ID)
	c.Assert(err, qt.Equals, ErrSubmissionInFlight)

	// Another participant is not affected
	other := newTestParticipant(election.ID, 0x11)
	c.Assert(st.LockSubmission(election.ID, other.ID), qt.IsNil)

	// Release frees the slot
	c.Assert(st.ReleaseSubmission(election.ID, participant.ID), qt.IsNil)
	c.Assert(st.LockSubmission(election.ID, participant.ID), qt.IsNil)

	// Releasing an unheld lock is not an error
	unheld := newTestParticipant(election.ID, 0x12)
	c.Assert(st.ReleaseSubmission(election.ID, unheld.ID), qt.IsNil)
}

func TestStaleSubmissionLockRelease(t *testing.T) {
	c := qt.New(t)
	st := newTestStorage(t)

	election := newTestElection(c, st, 0x01)
	c.Assert(st.CreateElection(election), qt.IsNil)
	participant := newTestParticipant(election.ID, 0x10)
	c.Assert(st.LockSubmission(election.ID, participant.ID), qt.IsNil)

	// A young lock survives the sweep
	c.Assert(st.releaseStaleLocks(time.Minute), qt.IsNil)
	locked, err := st.IsSubmissionInFlight(election.ID, participant.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(locked, qt.IsTrue)

	// After the age bound has passed the lock is swept
	time.Sleep(1100 * time.Millisecond)
	c.Assert(st.releaseStaleLocks(time.Second), qt.IsNil)
	locked, err = st.IsSubmissionInFlight(election.ID, participant.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(locked, qt.IsFalse)
}
