package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/yaksetig/votex-sub001/circuits/nullifierproof"
	"github.com/yaksetig/votex-sub001/crypto/elgamal"
	"github.com/yaksetig/votex-sub001/log"
	"github.com/yaksetig/votex-sub001/storage"
	"github.com/yaksetig/votex-sub001/types"
)

// submitNullification stores an assembled nullification batch. The batch was
// built and proved on the submitter side, so the server never learns which
// slot is real. It checks policy first (election open, submitter registered,
// no submission in flight, round budget), then the batch shape, then every
// proof and its public signal binding. Policy and shape failures are reported
// precisely because they are computable from public data; anything past that
// is a single detail-free rejection so the response never becomes an oracle.
// POST /elections/{electionId}/nullification
func (a *API) submitNullification(w http.ResponseWriter, r *http.Request) {
	electionID, err := electionIDFromRequest(r)
	if err != nil {
		ErrMalformedElectionID.Withf("could not decode election ID: %v", err).Write(w)
		return
	}
	req := &NullificationRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	if len(req.ParticipantID) == 0 || len(req.Items) == 0 {
		ErrMalformedBody.Withf("missing required fields").Write(w)
		return
	}

	election, err := a.storage.Election(electionID)
	if err != nil {
		ErrElectionNotFound.Withf("could not retrieve election: %v", err).Write(w)
		return
	}
	participant, err := a.storage.Participant(electionID, req.ParticipantID)
	if err != nil {
		ErrParticipantNotFound.Withf("could not retrieve participant: %v", err).Write(w)
		return
	}

	// one submission in flight per participant
	if err := a.storage.LockSubmission(electionID, req.ParticipantID); err != nil {
		if errors.Is(err, storage.ErrSubmissionInFlight) {
			ErrSubmissionInFlight.Write(w)
			return
		}
		ErrGenericInternalServerError.Withf("could not lock submission: %v", err).Write(w)
		return
	}
	defer func() {
		if err := a.storage.ReleaseSubmission(electionID, req.ParticipantID); err != nil {
			log.Warnw("failed to release submission lock",
				"electionId", electionID.String(),
				"participantId", req.ParticipantID.String(),
				"error", err)
		}
	}()

	open, err := a.storage.ElectionIsOpen(electionID)
	if err != nil {
		ErrGenericInternalServerError.Withf("could not check election: %v", err).Write(w)
		return
	}
	if !open {
		ErrElectionNotOpen.Write(w)
		return
	}
	rounds, err := a.storage.NullificationRounds(electionID, req.ParticipantID)
	if err != nil {
		ErrGenericInternalServerError.Withf("could not read nullification rounds: %v", err).Write(w)
		return
	}
	if int(rounds) >= election.MaxNullifRounds {
		ErrMaxRoundsReached.Withf("%d of %d used", rounds, election.MaxNullifRounds).Write(w)
		return
	}

	batch, apiErr := a.checkBatchShape(election, req)
	if apiErr != nil {
		apiErr.Write(w)
		return
	}
	if !a.verifyBatch(election, participant, batch) {
		// no detail: the rejection must not say which item or check failed
		ErrBatchRejected.Write(w)
		return
	}

	if err := a.storage.PushNullificationBatch(batch, req.ParticipantID, election.MaxNullifRounds); err != nil {
		if errors.Is(err, storage.ErrMaxRoundsReached) {
			ErrMaxRoundsReached.Write(w)
			return
		}
		ErrGenericInternalServerError.Withf("could not store batch: %v", err).Write(w)
		return
	}

	log.Infow("nullification batch stored",
		"electionId", electionID.String(),
		"batchId", batch.BatchID.String(),
		"items", len(batch.Items))
	httpWriteJSON(w, &NullificationResponse{
		BatchID:    batch.BatchID,
		Items:      len(batch.Items),
		RoundsUsed: int(rounds) + 1,
		MaxRounds:  election.MaxNullifRounds,
	})
}

// checkBatchShape validates everything about the batch that is computable
// from public data: the item count against the anonymity set, target
// uniqueness and registration, the submitter slot, and that every ciphertext
// and proof document parses. It returns the storage batch ready to push.
func (a *API) checkBatchShape(election *types.Election, req *NullificationRequest) (*storage.NullificationBatch, *Error) {
	count, err := a.storage.CountParticipants(election.ID)
	if err != nil {
		e := ErrGenericInternalServerError.Withf("could not count participants: %v", err)
		return nil, &e
	}
	expected := election.AnonymitySetSize
	if count < expected {
		expected = count
	}
	if len(req.Items) != expected {
		e := ErrMalformedBody.Withf("batch must have %d items, got %d", expected, len(req.Items))
		return nil, &e
	}

	batch := &storage.NullificationBatch{ElectionID: election.ID}
	seen := make(map[string]bool, len(req.Items))
	submitterTargeted := false
	for _, item := range req.Items {
		if item == nil || len(item.TargetID) == 0 {
			e := ErrMalformedBody.Withf("missing target in batch item")
			return nil, &e
		}
		if seen[string(item.TargetID)] {
			e := ErrMalformedBody.Withf("duplicate target %s", item.TargetID.String())
			return nil, &e
		}
		seen[string(item.TargetID)] = true
		if !a.storage.HasParticipant(election.ID, item.TargetID) {
			e := ErrMalformedBody.Withf("target %s is not registered", item.TargetID.String())
			return nil, &e
		}
		if bytes.Equal(item.TargetID, req.ParticipantID) {
			submitterTargeted = true
		}
		if err := elgamal.NewCiphertext(a.storage.Curve()).Deserialize(item.Ciphertext); err != nil {
			e := ErrMalformedBody.Withf("malformed ciphertext for target %s", item.TargetID.String())
			return nil, &e
		}
		if !item.Proof.Valid() {
			e := ErrMalformedBody.Withf("missing proof for target %s", item.TargetID.String())
			return nil, &e
		}
		batch.Items = append(batch.Items, &storage.NullificationBatchItem{
			TargetParticipantID: item.TargetID,
			Ciphertext:          item.Ciphertext,
			Proof:               item.Proof,
		})
	}
	if !submitterTargeted {
		e := ErrMalformedBody.Withf("batch must include a slot for the submitter")
		return nil, &e
	}
	return batch, nil
}

// verifyBatch checks every proof of the batch and its binding: the public
// signals must equal the item ciphertext, the registered key of the
// submitter and the election authority key, in the circuit signal order.
// It only reports success or failure; the caller responds with a generic
// rejection so a probing submitter learns nothing item by item.
func (a *API) verifyBatch(election *types.Election, participant *types.Participant,
	batch *storage.NullificationBatch,
) bool {
	authorityKey, err := a.storage.AuthorityKey(election.ID)
	if err != nil {
		log.Warnw("could not load authority key for batch verification",
			"electionId", election.ID.String(), "error", err)
		return false
	}
	voterKey := a.storage.Curve().SetPoint(participant.PublicKeyX.MathBigInt(), participant.PublicKeyY.MathBigInt())
	if !voterKey.IsOnCurve() {
		return false
	}

	for i, item := range batch.Items {
		ct := elgamal.NewCiphertext(a.storage.Curve())
		if err := ct.Deserialize(item.Ciphertext); err != nil {
			return false
		}
		expected, err := nullifierproof.PublicSignals(ct, voterKey, authorityKey)
		if err != nil {
			return false
		}
		var signals []string
		if err := json.Unmarshal([]byte(item.Proof.PublicSignals), &signals); err != nil {
			log.Debugw("batch item public signals do not parse",
				"electionId", election.ID.String(), "item", i)
			return false
		}
		if len(signals) != len(expected) {
			log.Debugw("batch item public signal count mismatch",
				"electionId", election.ID.String(), "item", i)
			return false
		}
		for j := range expected {
			if signals[j] != expected[j] {
				log.Debugw("batch item public signal binding mismatch",
					"electionId", election.ID.String(), "item", i)
				return false
			}
		}
		if err := a.verifier.Verify(item.Proof); err != nil {
			log.Debugw("batch item proof verification failed",
				"electionId", election.ID.String(), "item", i, "error", err)
			return false
		}
	}
	return true
}
