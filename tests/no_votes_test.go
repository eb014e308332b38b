package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/yaksetig/votex-sub001/api"
	"github.com/yaksetig/votex-sub001/types"
)

// TestNoVotes covers an election that closes without a single cast vote:
// results are refused before the tally and the tally itself publishes all
// zero totals instead of failing.
func TestNoVotes(t *testing.T) {
	c := qt.New(t)

	created := createElection(c, "silent election", 2, 1)
	electionID := created.Election.ID
	registerVoter(c, electionID, "silent voter a")
	registerVoter(c, electionID, "silent voter b")

	c.Run("results refused before the tally", func(c *qt.C) {
		path := api.EndpointWithParam(api.ResultsEndpoint, api.ElectionURLParam, electionID.String())
		status, body := doRequest(c, http.MethodGet, path, nil)
		c.Assert(status, qt.Equals, http.StatusNotFound)
		c.Assert(apiErrorCode(c, body), qt.Equals, api.ErrResultsNotAvailable.Code)
	})

	c.Run("tally with zero votes", func(c *qt.C) {
		endElectionNow(c, electionID)
		status, body := runTally(c, electionID, created.AuthorityPrivateKey)
		c.Assert(status, qt.Equals, http.StatusOK, qt.Commentf("body: %s", body))
		results := &types.ElectionResults{}
		c.Assert(json.Unmarshal(body, results), qt.IsNil)
		c.Assert(results.Preliminary, qt.Equals, [types.NumOptions]uint64{})
		c.Assert(results.Final, qt.Equals, [types.NumOptions]uint64{})
		c.Assert(results.NullifiedCount, qt.Equals, uint64(0))
		c.Assert(electionStatus(c, electionID), qt.Equals, types.ElectionStatusTallied)
	})
}
