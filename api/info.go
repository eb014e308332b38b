package api

import (
	"net/http"

	"github.com/yaksetig/votex-sub001/config"
	"github.com/yaksetig/votex-sub001/crypto/ecc/curves"
)

// info returns the deployment parameters a client needs before it can
// participate: the curve identifier for key derivation and the circuit
// artifact locations for nullifier proof generation.
// GET /info
func (a *API) info(w http.ResponseWriter, _ *http.Request) {
	httpWriteJSON(w, &InfoResponse{
		Curve: curves.DefaultCurveType,
		Circuit: CircuitInfo{
			CircuitURL:          config.NullifierProofCircuitURL,
			CircuitHash:         config.NullifierProofCircuitHash,
			ProvingKeyURL:       config.NullifierProofProvingKeyURL,
			ProvingKeyHash:      config.NullifierProofProvingKeyHash,
			VerificationKeyURL:  config.NullifierProofVerificationKeyURL,
			VerificationKeyHash: config.NullifierProofVerificationKeyHash,
		},
	})
}
