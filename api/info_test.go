package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/yaksetig/votex-sub001/config"
	"github.com/yaksetig/votex-sub001/crypto/ecc/curves"
)

func TestInfo(t *testing.T) {
	c := qt.New(t)
	env := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, InfoEndpoint, nil)
	rr := httptest.NewRecorder()
	env.api.info(rr, req)
	c.Assert(rr.Code, qt.Equals, http.StatusOK)

	var resp InfoResponse
	c.Assert(json.Unmarshal(rr.Body.Bytes(), &resp), qt.IsNil)
	c.Assert(resp.Curve, qt.Equals, curves.DefaultCurveType)
	c.Assert(resp.Circuit.CircuitURL, qt.Equals, config.NullifierProofCircuitURL)
	c.Assert(resp.Circuit.CircuitHash, qt.Equals, config.NullifierProofCircuitHash)
	c.Assert(resp.Circuit.ProvingKeyURL, qt.Equals, config.NullifierProofProvingKeyURL)
	c.Assert(resp.Circuit.ProvingKeyHash, qt.Equals, config.NullifierProofProvingKeyHash)
	c.Assert(resp.Circuit.VerificationKeyURL, qt.Equals, config.NullifierProofVerificationKeyURL)
	c.Assert(resp.Circuit.VerificationKeyHash, qt.Equals, config.NullifierProofVerificationKeyHash)
}
