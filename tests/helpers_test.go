package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/yaksetig/votex-sub001/api"
	"github.com/yaksetig/votex-sub001/circuits/nullifierproof"
	"github.com/yaksetig/votex-sub001/crypto/ecc/curves"
	"github.com/yaksetig/votex-sub001/crypto/schnorr"
	"github.com/yaksetig/votex-sub001/crypto/voterkey"
	"github.com/yaksetig/votex-sub001/db"
	"github.com/yaksetig/votex-sub001/db/metadb"
	"github.com/yaksetig/votex-sub001/nullification"
	"github.com/yaksetig/votex-sub001/prover"
	"github.com/yaksetig/votex-sub001/storage"
	"github.com/yaksetig/votex-sub001/tally"
	"github.com/yaksetig/votex-sub001/types"
	"github.com/yaksetig/votex-sub001/util"
)

// Services holds the running test services shared by every scenario.
type Services struct {
	API       *api.API
	Finalizer *tally.Finalizer
	Storage   *storage.Storage
	BaseURL   string
}

// acceptAllVerifier replaces the Groth16 verifier so the integration flows
// run without real circuit artifacts. The binding and shape checks of the
// nullification endpoint stay active.
type acceptAllVerifier struct{}

func (acceptAllVerifier) Verify(*types.CircuitProof) error { return nil }

// NewTestService starts the full service stack on a random local port:
// pebble storage, the election finalizer with a one second sweep and the
// HTTP API. The returned cleanup stops the finalizer and closes storage.
func NewTestService(ctx context.Context, tempDir string) (*Services, func(), error) {
	database, err := metadb.New(db.TypePebble, filepath.Join(tempDir, "db"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create database: %w", err)
	}
	curve, err := curves.New(curves.DefaultCurveType)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create curve: %w", err)
	}
	store := storage.New(database, curve)

	finalizer := tally.NewFinalizer(store)
	finalizer.Start(ctx, time.Second)

	port := util.RandomInt(40000, 60000)
	apiServer, err := api.New(&api.APIConfig{
		Host:      "127.0.0.1",
		Port:      port,
		Storage:   store,
		Verifier:  &acceptAllVerifier{},
		Finalizer: finalizer,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create API: %w", err)
	}

	baseURL := fmt.Sprintf("http://127.0.0.1:%d", port)
	if err := waitUntilHealthy(ctx, baseURL); err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		finalizer.Close()
		store.Close()
	}
	return &Services{
		API:       apiServer,
		Finalizer: finalizer,
		Storage:   store,
		BaseURL:   baseURL,
	}, cleanup, nil
}

// waitUntilHealthy polls the ping endpoint until the HTTP server answers.
func waitUntilHealthy(ctx context.Context, baseURL string) error {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return err
		}
		resp, err := http.Get(baseURL + api.PingEndpoint)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(50 * time.Millisecond)
	}
	return fmt.Errorf("API server did not become healthy at %s", baseURL)
}

// doRequest performs an HTTP request against the test API server and returns
// the status code with the raw response body. Only transport failures abort
// the test, so scenarios can assert on error responses.
func doRequest(c *qt.C, method, path string, body any) (int, []byte) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		c.Assert(err, qt.IsNil)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, services.BaseURL+path, reader)
	c.Assert(err, qt.IsNil)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	c.Assert(err, qt.IsNil)
	defer func() {
		c.Assert(resp.Body.Close(), qt.IsNil)
	}()
	data, err := io.ReadAll(resp.Body)
	c.Assert(err, qt.IsNil)
	return resp.StatusCode, data
}

// apiErrorCode decodes the error code of an API error response body.
func apiErrorCode(c *qt.C, body []byte) int {
	apiErr := &struct {
		Error string `json:"error"`
		Code  int    `json:"code"`
	}{}
	c.Assert(json.Unmarshal(body, apiErr), qt.IsNil, qt.Commentf("body: %s", body))
	return apiErr.Code
}

// createElection creates an election through the API and returns the creation
// response, the only carrier of the authority private key.
func createElection(c *qt.C, seed string, anonymitySetSize, maxRounds int) *api.ElectionResponse {
	status, body := doRequest(c, http.MethodPost, api.ElectionsEndpoint, &api.ElectionRequest{
		Seed:             seed,
		Question:         "should the proposal pass",
		Options:          [types.NumOptions]string{"no", "yes"},
		AnonymitySetSize: anonymitySetSize,
		MaxNullifRounds:  maxRounds,
		StartDate:        time.Now().Add(-time.Hour),
		EndDate:          time.Now().Add(time.Hour),
	})
	c.Assert(status, qt.Equals, http.StatusOK, qt.Commentf("body: %s", body))
	created := &api.ElectionResponse{}
	c.Assert(json.Unmarshal(body, created), qt.IsNil)
	c.Assert(created.AuthorityPrivateKey, qt.IsNotNil)
	return created
}

// registerVoter derives a keypair from the secret and registers it in the
// election. It returns the keypair and the server assigned participant ID.
func registerVoter(c *qt.C, electionID types.HexBytes, secret string) (*voterkey.KeyPair, types.HexBytes) {
	kp, err := voterkey.FromSecret(services.Storage.Curve(), []byte(secret))
	c.Assert(err, qt.IsNil)
	x, y := kp.PublicKey().Point()
	path := api.EndpointWithParam(api.ParticipantsEndpoint, api.ElectionURLParam, electionID.String())
	status, body := doRequest(c, http.MethodPost, path, &api.ParticipantRequest{
		PublicKeyX: new(types.BigInt).SetBigInt(x),
		PublicKeyY: new(types.BigInt).SetBigInt(y),
	})
	c.Assert(status, qt.Equals, http.StatusOK, qt.Commentf("body: %s", body))
	reg := &api.ParticipantResponse{}
	c.Assert(json.Unmarshal(body, reg), qt.IsNil)
	return kp, reg.ParticipantID
}

// signWith signs the message with the voter key and returns the serialized
// signature.
func signWith(kp *voterkey.KeyPair, msg []byte) (types.HexBytes, error) {
	sig, err := schnorr.Sign(services.Storage.Curve(), kp.PrivateKey(), msg)
	if err != nil {
		return nil, err
	}
	return sig.Bytes(), nil
}

// castVote signs and casts a vote for the participant.
func castVote(c *qt.C, electionID types.HexBytes, kp *voterkey.KeyPair,
	participantID types.HexBytes, choice int,
) {
	msg := (&types.Vote{ElectionID: electionID, Choice: choice}).SignedMessage()
	sig, err := schnorr.Sign(services.Storage.Curve(), kp.PrivateKey(), msg)
	c.Assert(err, qt.IsNil)
	path := api.EndpointWithParam(api.VotesEndpoint, api.ElectionURLParam, electionID.String())
	status, body := doRequest(c, http.MethodPost, path, &api.VoteRequest{
		ParticipantID: participantID,
		Choice:        choice,
		Nullifier:     kp.VoteNullifier(electionID),
		Signature:     sig.Bytes(),
	})
	c.Assert(status, qt.Equals, http.StatusOK, qt.Commentf("body: %s", body))
}

// newFakeProver returns a prover whose backend echoes the circuit input
// signals instead of running the real circuit. Combined with the accepting
// verifier of the test API, the produced batches pass the server side
// binding checks.
func newFakeProver() (*prover.Prover, error) {
	p, err := prover.New([]byte("wasm"), []byte("zkey"), []byte("vkey"))
	if err != nil {
		return nil, err
	}
	p.SetProveFunc(func(inputs []byte) (string, string, error) {
		ci := &nullifierproof.CircomInputs{}
		if err := json.Unmarshal(inputs, ci); err != nil {
			return "", "", err
		}
		signals, err := json.Marshal(append(append(ci.Ciphertext, ci.PKVoter...), ci.PKAuthority...))
		if err != nil {
			return "", "", err
		}
		proof := `{"pi_a":["1","2"],"pi_b":[["3","4"],["5","6"]],"pi_c":["7","8"],"protocol":"groth16"}`
		return proof, string(signals), nil
	})
	return p, nil
}

// buildSignedBatch assembles and proves a nullification batch the way a
// voter client would, and returns it in the wire format of the nullification
// endpoint.
func buildSignedBatch(c *qt.C, electionID types.HexBytes, kp *voterkey.KeyPair,
	participantID types.HexBytes, real bool,
) *api.NullificationRequest {
	prv, err := newFakeProver()
	c.Assert(err, qt.IsNil)
	batcher := nullification.New(services.Storage, prv, 0)
	batch, err := batcher.GenerateBatch(&nullification.Request{
		ElectionID:    electionID,
		ParticipantID: participantID,
		KeyPair:       kp,
		Real:          real,
	})
	c.Assert(err, qt.IsNil)

	inputs := make([]*nullifierproof.ProofInputs, len(batch.Items))
	for i, item := range batch.Items {
		inputs[i] = item.ProofInputs(kp, batch.AuthorityKey)
	}
	results, err := prv.GenerateBatch(context.Background(), inputs, 0, nil)
	c.Assert(err, qt.IsNil)

	req := &api.NullificationRequest{ParticipantID: participantID}
	for i, item := range batch.Items {
		req.Items = append(req.Items, &api.NullificationItem{
			TargetID:   item.TargetID,
			Ciphertext: item.Ciphertext.Serialize(),
			Proof:      results[i].Proof,
		})
	}
	return req
}

// submitBatch posts an assembled batch to the nullification endpoint.
func submitBatch(c *qt.C, electionID types.HexBytes, req *api.NullificationRequest) (int, []byte) {
	path := api.EndpointWithParam(api.NullificationEndpoint, api.ElectionURLParam, electionID.String())
	return doRequest(c, http.MethodPost, path, req)
}

// endElectionNow moves the end date of the election into the past, so the
// next tally request finalizes it on demand.
func endElectionNow(c *qt.C, electionID types.HexBytes) {
	c.Assert(services.Storage.UpdateElection(electionID, func(e *types.Election) error {
		e.EndDate = time.Now().Add(-time.Second)
		return nil
	}), qt.IsNil)
}

// runTally posts the authority private key to the tally endpoint.
func runTally(c *qt.C, electionID types.HexBytes, key *types.BigInt) (int, []byte) {
	path := api.EndpointWithParam(api.TallyEndpoint, api.ElectionURLParam, electionID.String())
	return doRequest(c, http.MethodPost, path, &api.TallyRequest{AuthorityPrivateKey: key})
}

// electionStatus reads the current status of the election straight from
// storage.
func electionStatus(c *qt.C, electionID types.HexBytes) types.ElectionStatus {
	election, err := services.Storage.Election(electionID)
	c.Assert(err, qt.IsNil)
	return election.Status
}
