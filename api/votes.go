package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/yaksetig/votex-sub001/crypto/schnorr"
	"github.com/yaksetig/votex-sub001/log"
	"github.com/yaksetig/votex-sub001/storage"
	"github.com/yaksetig/votex-sub001/types"
)

// castVote stores a vote after verifying the Schnorr signature against the
// registered voter key. One vote per participant and one use per nullifier
// are enforced atomically by the storage layer.
// POST /elections/{electionId}/votes
func (a *API) castVote(w http.ResponseWriter, r *http.Request) {
	electionID, err := electionIDFromRequest(r)
	if err != nil {
		ErrMalformedElectionID.Withf("could not decode election ID: %v", err).Write(w)
		return
	}
	req := &VoteRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	if len(req.ParticipantID) == 0 || len(req.Nullifier) == 0 || len(req.Signature) == 0 {
		ErrMalformedBody.Withf("missing required fields").Write(w)
		return
	}
	if req.Choice < 0 || req.Choice >= types.NumOptions {
		ErrMalformedBody.Withf("choice out of range").Write(w)
		return
	}

	open, err := a.storage.ElectionIsOpen(electionID)
	if err != nil {
		ErrElectionNotFound.Withf("could not retrieve election: %v", err).Write(w)
		return
	}
	if !open {
		ErrElectionNotOpen.Write(w)
		return
	}
	participant, err := a.storage.Participant(electionID, req.ParticipantID)
	if err != nil {
		ErrParticipantNotFound.Withf("could not retrieve participant: %v", err).Write(w)
		return
	}

	vote := &types.Vote{
		ElectionID:    electionID,
		ParticipantID: req.ParticipantID,
		Nullifier:     req.Nullifier,
		Choice:        req.Choice,
		Signature:     req.Signature,
		CreatedAt:     time.Now(),
	}

	// verify the signature over the vote message with the registered key
	voterKey := a.storage.Curve().SetPoint(participant.PublicKeyX.MathBigInt(), participant.PublicKeyY.MathBigInt())
	sig, err := schnorr.BytesToSignature(a.storage.Curve(), req.Signature)
	if err != nil {
		ErrInvalidSignature.Withf("could not decode signature: %v", err).Write(w)
		return
	}
	if !schnorr.Verify(voterKey, vote.SignedMessage(), sig) {
		ErrInvalidSignature.Write(w)
		return
	}

	if err := a.storage.CastVote(vote); err != nil {
		switch {
		case errors.Is(err, storage.ErrKeyAlreadyExists):
			ErrAlreadyVoted.Withf("participant %s already voted", req.ParticipantID.String()).Write(w)
		case errors.Is(err, storage.ErrNullifierUsed):
			ErrNullifierUsed.Write(w)
		default:
			ErrGenericInternalServerError.Withf("could not store vote: %v", err).Write(w)
		}
		return
	}

	log.Infow("vote cast",
		"electionId", electionID.String(),
		"participantId", req.ParticipantID.String())
	httpWriteJSON(w, &VoteResponse{Nullifier: req.Nullifier})
}

// voteStatus reports whether a participant has voted and, if so, the choice.
// Votes are public in this protocol: what stays deniable is whether a vote
// was later nullified.
// GET /elections/{electionId}/votes/{participantId}
func (a *API) voteStatus(w http.ResponseWriter, r *http.Request) {
	electionID, err := electionIDFromRequest(r)
	if err != nil {
		ErrMalformedElectionID.Withf("could not decode election ID: %v", err).Write(w)
		return
	}
	participantID, err := types.HexStringToHexBytes(chi.URLParam(r, ParticipantURLParam))
	if err != nil {
		ErrMalformedParticipantID.Withf("could not decode participant ID: %v", err).Write(w)
		return
	}
	if _, err := a.storage.Election(electionID); err != nil {
		ErrElectionNotFound.Withf("could not retrieve election: %v", err).Write(w)
		return
	}
	vote, err := a.storage.Vote(electionID, participantID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			httpWriteJSON(w, &VoteStatusResponse{Voted: false})
			return
		}
		ErrGenericInternalServerError.Withf("could not retrieve vote: %v", err).Write(w)
		return
	}
	httpWriteJSON(w, &VoteStatusResponse{
		Voted:     true,
		Choice:    vote.Choice,
		CreatedAt: vote.CreatedAt,
	})
}
