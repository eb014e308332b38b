package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/yaksetig/votex-sub001/log"
	"github.com/yaksetig/votex-sub001/tally"
	"github.com/yaksetig/votex-sub001/types"
)

// runTally executes the decryption pass over an ended election with the
// authority private key from the request, computes the final results and
// returns them. The key lives only for the duration of the request; it is
// never persisted or logged.
// POST /elections/{electionId}/tally
func (a *API) runTally(w http.ResponseWriter, r *http.Request) {
	electionID, err := electionIDFromRequest(r)
	if err != nil {
		ErrMalformedElectionID.Withf("could not decode election ID: %v", err).Write(w)
		return
	}
	req := &TallyRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	if req.AuthorityPrivateKey == nil {
		ErrMalformedBody.Withf("missing authority private key").Write(w)
		return
	}

	election, err := a.storage.Election(electionID)
	if err != nil {
		ErrElectionNotFound.Withf("could not retrieve election: %v", err).Write(w)
		return
	}
	if election.Status == types.ElectionStatusOpen {
		// an overdue election can be ended on the spot through the finalizer
		if a.finalizer == nil || election.EndDate.After(time.Now()) {
			ErrElectionStillOpen.Write(w)
			return
		}
		a.finalizer.OndemandCh <- electionID
		if err := a.finalizer.WaitUntilEnded(r.Context(), electionID); err != nil {
			ErrElectionStillOpen.Withf("could not end election: %v", err).Write(w)
			return
		}
	}

	if _, err := a.tally.ProcessTally(r.Context(), electionID, req.AuthorityPrivateKey.MathBigInt()); err != nil {
		if errors.Is(err, tally.ErrWrongAuthorityKey) {
			ErrWrongAuthorityKey.Write(w)
			return
		}
		ErrGenericInternalServerError.Withf("could not process tally: %v", err).Write(w)
		return
	}
	results, err := a.tally.CalculateFinalResults(electionID)
	if err != nil {
		if errors.Is(err, tally.ErrElectionStillOpen) {
			ErrElectionStillOpen.Write(w)
			return
		}
		ErrGenericInternalServerError.Withf("could not compute results: %v", err).Write(w)
		return
	}

	log.Infow("tally completed",
		"electionId", electionID.String(),
		"nullified", results.NullifiedCount)
	httpWriteJSON(w, results)
}
