package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/yaksetig/votex-sub001/types"
)

func TestCreateElection(t *testing.T) {
	c := qt.New(t)
	env := newTestAPI(t)

	resp := env.createElection(c, 5, 3)
	c.Assert(resp.Election, qt.IsNotNil)
	c.Assert(resp.Election.ID, qt.HasLen, 16)
	c.Assert(resp.Election.Status, qt.Equals, types.ElectionStatusOpen)
	c.Assert(resp.Election.AnonymitySetSize, qt.Equals, 5)
	c.Assert(resp.Election.MaxNullifRounds, qt.Equals, 3)

	// the private key is handed out once and never stored
	stored, err := env.store.Election(resp.Election.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(stored.AuthorityKey.PrivateKey, qt.IsNil)

	// the returned private key must match the stored public key
	derived := env.store.Curve().New()
	derived.ScalarBaseMult(resp.AuthorityPrivateKey.MathBigInt())
	x, y := derived.Point()
	c.Assert(x.String(), qt.Equals, stored.AuthorityKey.X.String())
	c.Assert(y.String(), qt.Equals, stored.AuthorityKey.Y.String())
}

func TestCreateElectionValidation(t *testing.T) {
	c := qt.New(t)
	env := newTestAPI(t)

	post := func(body []byte) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, ElectionsEndpoint, bytes.NewReader(body))
		rr := httptest.NewRecorder()
		env.api.createElection(rr, req)
		return rr
	}
	base := func() *ElectionRequest {
		return &ElectionRequest{
			Question:         "q",
			Options:          [types.NumOptions]string{"no", "yes"},
			AnonymitySetSize: 5,
			MaxNullifRounds:  3,
			StartDate:        time.Now().Add(-time.Hour),
			EndDate:          time.Now().Add(time.Hour),
		}
	}

	assertAPIError(c, post([]byte("{not json")), ErrMalformedBody)

	for _, tt := range []struct {
		name   string
		mutate func(*ElectionRequest)
	}{
		{"zero anonymity set", func(r *ElectionRequest) { r.AnonymitySetSize = 0 }},
		{"negative rounds", func(r *ElectionRequest) { r.MaxNullifRounds = -1 }},
		{"end before start", func(r *ElectionRequest) { r.StartDate, r.EndDate = r.EndDate, r.StartDate }},
	} {
		t.Run(tt.name, func(t *testing.T) {
			req := base()
			tt.mutate(req)
			body, err := json.Marshal(req)
			c.Assert(err, qt.IsNil)
			assertAPIError(c, post(body), ErrMalformedBody)
		})
	}
}

func TestCreateElectionSeed(t *testing.T) {
	c := qt.New(t)
	env := newTestAPI(t)

	post := func(seed string) *httptest.ResponseRecorder {
		body, err := json.Marshal(&ElectionRequest{
			Seed:             seed,
			Question:         "q",
			Options:          [types.NumOptions]string{"no", "yes"},
			AnonymitySetSize: 5,
			MaxNullifRounds:  3,
			StartDate:        time.Now().Add(-time.Hour),
			EndDate:          time.Now().Add(time.Hour),
		})
		c.Assert(err, qt.IsNil)
		req := httptest.NewRequest(http.MethodPost, ElectionsEndpoint, bytes.NewReader(body))
		rr := httptest.NewRecorder()
		env.api.createElection(rr, req)
		return rr
	}

	rr := post("annual board vote")
	c.Assert(rr.Code, qt.Equals, http.StatusOK)
	resp := &ElectionResponse{}
	c.Assert(json.Unmarshal(rr.Body.Bytes(), resp), qt.IsNil)

	expectedID, err := ElectionSeedToID("annual board vote")
	c.Assert(err, qt.IsNil)
	c.Assert(resp.Election.ID.String(), qt.Equals, expectedID.String())

	// the same seed maps to the same identifier, so a retry conflicts
	assertAPIError(c, post("annual board vote"), ErrElectionExists)

	// a different seed yields a different election
	rr = post("another vote")
	c.Assert(rr.Code, qt.Equals, http.StatusOK)
	other := &ElectionResponse{}
	c.Assert(json.Unmarshal(rr.Body.Bytes(), other), qt.IsNil)
	c.Assert(other.Election.ID.String(), qt.Not(qt.Equals), resp.Election.ID.String())
}

func TestGetElection(t *testing.T) {
	c := qt.New(t)
	env := newTestAPI(t)
	created := env.createElection(c, 5, 3)
	electionID := created.Election.ID

	get := func(id string) *httptest.ResponseRecorder {
		endpoint := EndpointWithParam(ElectionEndpoint, ElectionURLParam, id)
		req := httptest.NewRequest(http.MethodGet, endpoint, nil)
		req = setURLParam(req, ElectionURLParam, id)
		rr := httptest.NewRecorder()
		env.api.election(rr, req)
		return rr
	}

	rr := get(electionID.String())
	c.Assert(rr.Code, qt.Equals, http.StatusOK)
	resp := &ElectionResponse{}
	c.Assert(json.Unmarshal(rr.Body.Bytes(), resp), qt.IsNil)
	c.Assert(resp.Election.ID.String(), qt.Equals, electionID.String())
	c.Assert(resp.Election.Question, qt.Equals, "should the proposal pass")
	// retrieval never carries the private key
	c.Assert(resp.AuthorityPrivateKey, qt.IsNil)
	c.Assert(strings.Contains(rr.Body.String(), "authorityPrivateKey"), qt.IsFalse)

	assertAPIError(c, get("00112233445566778899aabbccddeeff"), ErrElectionNotFound)
	assertAPIError(c, get("not-hex"), ErrMalformedElectionID)
}

func TestListElections(t *testing.T) {
	c := qt.New(t)
	env := newTestAPI(t)

	want := make(map[string]bool)
	for i := 0; i < 3; i++ {
		resp := env.createElection(c, 5, 3)
		want[resp.Election.ID.String()] = true
	}

	req := httptest.NewRequest(http.MethodGet, ElectionsEndpoint, nil)
	rr := httptest.NewRecorder()
	env.api.listElections(rr, req)
	c.Assert(rr.Code, qt.Equals, http.StatusOK)

	resp := &ElectionListResponse{}
	c.Assert(json.Unmarshal(rr.Body.Bytes(), resp), qt.IsNil)
	c.Assert(resp.Elections, qt.HasLen, 3)
	for _, id := range resp.Elections {
		c.Assert(want[id.String()], qt.IsTrue)
	}
}

func TestElectionResultsEndpoint(t *testing.T) {
	c := qt.New(t)
	env := newTestAPI(t)
	created := env.createElection(c, 5, 3)
	electionID := created.Election.ID

	get := func(id string) *httptest.ResponseRecorder {
		endpoint := EndpointWithParam(ResultsEndpoint, ElectionURLParam, id)
		req := httptest.NewRequest(http.MethodGet, endpoint, nil)
		req = setURLParam(req, ElectionURLParam, id)
		rr := httptest.NewRecorder()
		env.api.electionResults(rr, req)
		return rr
	}

	// no tally has been run yet
	assertAPIError(c, get(electionID.String()), ErrResultsNotAvailable)
	assertAPIError(c, get("00112233445566778899aabbccddeeff"), ErrElectionNotFound)

	stored := &types.ElectionResults{
		ElectionID:     electionID,
		Preliminary:    [types.NumOptions]uint64{2, 3},
		Final:          [types.NumOptions]uint64{2, 2},
		NullifiedCount: 1,
		ComputedAt:     time.Now(),
	}
	c.Assert(env.store.SetElectionResults(stored), qt.IsNil)

	rr := get(electionID.String())
	c.Assert(rr.Code, qt.Equals, http.StatusOK)
	resp := &types.ElectionResults{}
	c.Assert(json.Unmarshal(rr.Body.Bytes(), resp), qt.IsNil)
	c.Assert(resp.Preliminary, qt.Equals, stored.Preliminary)
	c.Assert(resp.Final, qt.Equals, stored.Final)
	c.Assert(resp.NullifiedCount, qt.Equals, uint64(1))
}
