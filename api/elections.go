package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/yaksetig/votex-sub001/crypto/elgamal"
	"github.com/yaksetig/votex-sub001/log"
	"github.com/yaksetig/votex-sub001/storage"
	"github.com/yaksetig/votex-sub001/types"
)

// electionIDFromRequest decodes the election ID URL parameter.
func electionIDFromRequest(r *http.Request) (types.HexBytes, error) {
	return types.HexStringToHexBytes(chi.URLParam(r, ElectionURLParam))
}

// createElection sets up a new election. The authority encryption keypair is
// generated here: the public part is stored with the election, the private
// part is returned to the caller exactly once and never persisted. Losing it
// makes the election untalliable.
// POST /elections
func (a *API) createElection(w http.ResponseWriter, r *http.Request) {
	req := &ElectionRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	if req.AnonymitySetSize <= 0 || req.MaxNullifRounds <= 0 {
		ErrMalformedBody.Withf("anonymity set size and nullification rounds must be positive").Write(w)
		return
	}
	if !req.EndDate.After(req.StartDate) {
		ErrMalformedBody.Withf("end date must be after start date").Write(w)
		return
	}

	// derive the election identifier from the seed, or draw a random one
	var electionID types.HexBytes
	if req.Seed != "" {
		id, err := ElectionSeedToID(req.Seed)
		if err != nil {
			ErrGenericInternalServerError.WithErr(err).Write(w)
			return
		}
		electionID = id
	} else {
		u := uuid.New()
		electionID = types.HexBytes(u[:])
	}

	publicKey, privateKey, err := elgamal.GenerateKey(a.storage.Curve())
	if err != nil {
		ErrGenericInternalServerError.Withf("could not generate encryption key: %v", err).Write(w)
		return
	}
	x, y := publicKey.Point()

	election := &types.Election{
		ID:       electionID,
		Question: req.Question,
		Options:  req.Options,
		AuthorityKey: types.EncryptionKey{
			X: new(types.BigInt).SetBigInt(x),
			Y: new(types.BigInt).SetBigInt(y),
		},
		AnonymitySetSize: req.AnonymitySetSize,
		MaxNullifRounds:  req.MaxNullifRounds,
		Status:           types.ElectionStatusOpen,
		StartDate:        req.StartDate,
		EndDate:          req.EndDate,
	}
	if err := a.storage.CreateElection(election); err != nil {
		if errors.Is(err, storage.ErrKeyAlreadyExists) {
			ErrElectionExists.Withf("election %s already exists", electionID.String()).Write(w)
			return
		}
		ErrGenericInternalServerError.Withf("could not store election: %v", err).Write(w)
		return
	}

	log.Infow("election created",
		"electionId", electionID.String(),
		"anonymitySetSize", election.AnonymitySetSize,
		"maxNullificationRounds", election.MaxNullifRounds,
		"endDate", election.EndDate.String())
	httpWriteJSON(w, &ElectionResponse{
		Election:            election,
		AuthorityPrivateKey: new(types.BigInt).SetBigInt(privateKey),
	})
}

// listElections returns the identifiers of all stored elections.
// GET /elections
func (a *API) listElections(w http.ResponseWriter, _ *http.Request) {
	ids, err := a.storage.ListElections()
	if err != nil {
		ErrGenericInternalServerError.Withf("could not list elections: %v", err).Write(w)
		return
	}
	httpWriteJSON(w, &ElectionListResponse{Elections: ids})
}

// election retrieves an election by its identifier.
// GET /elections/{electionId}
func (a *API) election(w http.ResponseWriter, r *http.Request) {
	electionID, err := electionIDFromRequest(r)
	if err != nil {
		ErrMalformedElectionID.Withf("could not decode election ID: %v", err).Write(w)
		return
	}
	election, err := a.storage.Election(electionID)
	if err != nil {
		ErrElectionNotFound.Withf("could not retrieve election: %v", err).Write(w)
		return
	}
	httpWriteJSON(w, &ElectionResponse{Election: election})
}

// electionResults returns the computed results of an election. Results exist
// only after a tally run over an ended election.
// GET /elections/{electionId}/results
func (a *API) electionResults(w http.ResponseWriter, r *http.Request) {
	electionID, err := electionIDFromRequest(r)
	if err != nil {
		ErrMalformedElectionID.Withf("could not decode election ID: %v", err).Write(w)
		return
	}
	if _, err := a.storage.Election(electionID); err != nil {
		ErrElectionNotFound.Withf("could not retrieve election: %v", err).Write(w)
		return
	}
	results, err := a.storage.ElectionResults(electionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			ErrResultsNotAvailable.Withf("no tally has been run for election %s", electionID.String()).Write(w)
			return
		}
		ErrGenericInternalServerError.Withf("could not retrieve results: %v", err).Write(w)
		return
	}
	httpWriteJSON(w, results)
}
