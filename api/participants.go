package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yaksetig/votex-sub001/crypto/voterkey"
	"github.com/yaksetig/votex-sub001/log"
	"github.com/yaksetig/votex-sub001/storage"
	"github.com/yaksetig/votex-sub001/types"
)

// registerParticipant adds a voter public key to an election roster. The
// participant identifier is the signal hash of the key, derived server side,
// so the same key always registers under the same identifier.
// POST /elections/{electionId}/participants
func (a *API) registerParticipant(w http.ResponseWriter, r *http.Request) {
	electionID, err := electionIDFromRequest(r)
	if err != nil {
		ErrMalformedElectionID.Withf("could not decode election ID: %v", err).Write(w)
		return
	}
	req := &ParticipantRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	if req.PublicKeyX == nil || req.PublicKeyY == nil {
		ErrMalformedBody.Withf("missing public key coordinates").Write(w)
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

	// the key must be a point on the curve before it can identify anyone
	publicKey := a.storage.Curve().SetPoint(req.PublicKeyX.MathBigInt(), req.PublicKeyY.MathBigInt())
	if !publicKey.IsOnCurve() {
		ErrInvalidPublicKey.Withf("public key is not on the curve").Write(w)
		return
	}
	participantID := types.HexBytes(voterkey.HashSignal(publicKey))

	if err := a.storage.AddParticipant(&types.Participant{
		ElectionID: electionID,
		ID:         participantID,
		PublicKeyX: req.PublicKeyX,
		PublicKeyY: req.PublicKeyY,
	}); err != nil {
		if errors.Is(err, storage.ErrKeyAlreadyExists) {
			ErrParticipantExists.Withf("participant %s already registered", participantID.String()).Write(w)
			return
		}
		ErrGenericInternalServerError.Withf("could not store participant: %v", err).Write(w)
		return
	}

	log.Infow("participant registered",
		"electionId", electionID.String(),
		"participantId", participantID.String())
	httpWriteJSON(w, &ParticipantResponse{ParticipantID: participantID})
}

// roster returns the registered participants of an election.
// GET /elections/{electionId}/participants
func (a *API) roster(w http.ResponseWriter, r *http.Request) {
	electionID, err := electionIDFromRequest(r)
	if err != nil {
		ErrMalformedElectionID.Withf("could not decode election ID: %v", err).Write(w)
		return
	}
	if _, err := a.storage.Election(electionID); err != nil {
		ErrElectionNotFound.Withf("could not retrieve election: %v", err).Write(w)
		return
	}
	participants, err := a.storage.Participants(electionID)
	if err != nil {
		ErrGenericInternalServerError.Withf("could not retrieve participants: %v", err).Write(w)
		return
	}
	httpWriteJSON(w, &RosterResponse{Participants: participants})
}

// participant retrieves one registered participant.
// GET /elections/{electionId}/participants/{participantId}
func (a *API) participant(w http.ResponseWriter, r *http.Request) {
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
	p, err := a.storage.Participant(electionID, participantID)
	if err != nil {
		ErrParticipantNotFound.Withf("could not retrieve participant: %v", err).Write(w)
		return
	}
	httpWriteJSON(w, p)
}
