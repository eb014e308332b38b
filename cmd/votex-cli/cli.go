package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"time"

	"github.com/yaksetig/votex-sub001/api"
	"github.com/yaksetig/votex-sub001/circuits/nullifierproof"
	"github.com/yaksetig/votex-sub001/crypto/ecc"
	"github.com/yaksetig/votex-sub001/crypto/ecc/curves"
	"github.com/yaksetig/votex-sub001/crypto/elgamal"
	"github.com/yaksetig/votex-sub001/crypto/schnorr"
	"github.com/yaksetig/votex-sub001/crypto/voterkey"
	"github.com/yaksetig/votex-sub001/log"
	"github.com/yaksetig/votex-sub001/prover"
	"github.com/yaksetig/votex-sub001/types"
	"github.com/yaksetig/votex-sub001/util"
)

// CLIServices drives a voter side election flow against a running
// votex-authority instance. Everything goes over the HTTP API; proving for
// the nullification batch happens locally with the downloaded circuit
// artifacts.
type CLIServices struct {
	endpoint string
	client   *http.Client
	curve    ecc.Point
	prover   *prover.Prover

	ctx    context.Context
	cancel context.CancelFunc
}

// Voter is one simulated participant: the derived keypair, the identifier
// assigned by the authority and the choice it cast.
type Voter struct {
	KeyPair       *voterkey.KeyPair
	ParticipantID types.HexBytes
	Choice        int
}

func NewCLIServices(ctx context.Context, endpoint string) (*CLIServices, error) {
	curve, err := curves.New(curves.DefaultCurveType)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	return &CLIServices{
		endpoint: endpoint,
		client:   &http.Client{Timeout: time.Minute},
		curve:    curve,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// request performs one API call and decodes the response into out. Error
// responses are decoded into their code and message.
func (s *CLIServices) request(method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(s.ctx, method, s.endpoint+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Warnw("failed to close response body", "error", err.Error())
		}
	}()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		apiErr := &struct {
			Error string `json:"error"`
			Code  int    `json:"code"`
		}{}
		if err := json.Unmarshal(data, apiErr); err == nil && apiErr.Code != 0 {
			return fmt.Errorf("%s (code %d)", apiErr.Error, apiErr.Code)
		}
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, data)
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// Info fetches the deployment information of the authority.
func (s *CLIServices) Info() (*api.InfoResponse, error) {
	info := &api.InfoResponse{}
	if err := s.request(http.MethodGet, api.InfoEndpoint, nil, info); err != nil {
		return nil, err
	}
	return info, nil
}

// CreateElection creates the demo election and returns it together with the
// authority private key, which only exists in this response.
func (s *CLIServices) CreateElection(seed string, anonymitySetSize, maxRounds int,
	window time.Duration,
) (*types.Election, *types.BigInt, error) {
	created := &api.ElectionResponse{}
	err := s.request(http.MethodPost, api.ElectionsEndpoint, &api.ElectionRequest{
		Seed:             seed,
		Question:         "should the demo proposal pass",
		Options:          [types.NumOptions]string{"no", "yes"},
		AnonymitySetSize: anonymitySetSize,
		MaxNullifRounds:  maxRounds,
		StartDate:        time.Now().Add(-time.Minute),
		EndDate:          time.Now().Add(window),
	}, created)
	if err != nil {
		return nil, nil, err
	}
	if created.AuthorityPrivateKey == nil {
		return nil, nil, fmt.Errorf("creation response carries no authority private key")
	}
	return created.Election, created.AuthorityPrivateKey, nil
}

// RegisterVoters derives count keypairs from the base secret and registers
// them in the election.
func (s *CLIServices) RegisterVoters(electionID types.HexBytes, count int, baseSecret string) ([]*Voter, error) {
	voters := make([]*Voter, 0, count)
	for i := 0; i < count; i++ {
		kp, err := voterkey.FromSecret(s.curve, []byte(fmt.Sprintf("%s %d", baseSecret, i)))
		if err != nil {
			return nil, fmt.Errorf("derive voter key %d: %w", i, err)
		}
		x, y := kp.PublicKey().Point()
		reg := &api.ParticipantResponse{}
		path := api.EndpointWithParam(api.ParticipantsEndpoint, api.ElectionURLParam, electionID.String())
		err = s.request(http.MethodPost, path, &api.ParticipantRequest{
			PublicKeyX: new(types.BigInt).SetBigInt(x),
			PublicKeyY: new(types.BigInt).SetBigInt(y),
		}, reg)
		if err != nil {
			return nil, fmt.Errorf("register voter %d: %w", i, err)
		}
		voters = append(voters, &Voter{KeyPair: kp, ParticipantID: reg.ParticipantID})
	}
	return voters, nil
}

// CastVotes casts one random vote per voter, sleeping between votes.
func (s *CLIServices) CastVotes(electionID types.HexBytes, voters []*Voter, sleep time.Duration) error {
	path := api.EndpointWithParam(api.VotesEndpoint, api.ElectionURLParam, electionID.String())
	for i, voter := range voters {
		voter.Choice = util.RandomInt(0, types.NumOptions)
		msg := (&types.Vote{ElectionID: electionID, Choice: voter.Choice}).SignedMessage()
		sig, err := schnorr.Sign(s.curve, voter.KeyPair.PrivateKey(), msg)
		if err != nil {
			return fmt.Errorf("sign vote %d: %w", i, err)
		}
		err = s.request(http.MethodPost, path, &api.VoteRequest{
			ParticipantID: voter.ParticipantID,
			Choice:        voter.Choice,
			Nullifier:     voter.KeyPair.VoteNullifier(electionID),
			Signature:     sig.Bytes(),
		}, nil)
		if err != nil {
			return fmt.Errorf("cast vote %d: %w", i, err)
		}
		log.Infow("vote cast", "voter", i, "choice", voter.Choice)
		if sleep > 0 && i < len(voters)-1 {
			time.Sleep(sleep)
		}
	}
	return nil
}

// initProver downloads the circuit artifacts and builds the local prover.
func (s *CLIServices) initProver() error {
	if s.prover != nil {
		return nil
	}
	log.Info("downloading circuit artifacts")
	if err := nullifierproof.Artifacts.DownloadAll(s.ctx); err != nil {
		return fmt.Errorf("download circuit artifacts: %w", err)
	}
	p, err := prover.FromArtifacts(nullifierproof.Artifacts)
	if err != nil {
		return fmt.Errorf("load circuit artifacts: %w", err)
	}
	s.prover = p
	return nil
}

// SubmitNullification assembles a nullification batch for the voter, proves
// every slot locally and submits it. The cohort is drawn from the roster
// fetched over the API, so the flow matches what an external voter client
// does.
func (s *CLIServices) SubmitNullification(election *types.Election, voter *Voter,
	real bool, concurrency int,
) (*api.NullificationResponse, error) {
	if err := s.initProver(); err != nil {
		return nil, err
	}
	authorityKey := s.curve.SetPoint(
		election.AuthorityKey.X.MathBigInt(), election.AuthorityKey.Y.MathBigInt())
	if !authorityKey.IsOnCurve() {
		return nil, fmt.Errorf("authority key is not on the curve")
	}

	roster := &api.RosterResponse{}
	rosterPath := api.EndpointWithParam(api.ParticipantsEndpoint, api.ElectionURLParam, election.ID.String())
	if err := s.request(http.MethodGet, rosterPath, nil, roster); err != nil {
		return nil, fmt.Errorf("fetch roster: %w", err)
	}

	targets, err := drawCohort(roster.Participants, voter.ParticipantID, election.AnonymitySetSize)
	if err != nil {
		return nil, err
	}

	inputs := make([]*nullifierproof.ProofInputs, len(targets))
	items := make([]*api.NullificationItem, len(targets))
	for i, target := range targets {
		isReal := real && bytes.Equal(target.ID, voter.ParticipantID)
		message := big.NewInt(0)
		if isReal {
			message.SetInt64(1)
		}
		k, err := elgamal.DeterministicK(voter.KeyPair.PrivateKey(), voter.KeyPair.PublicKey(),
			election.ID, target.ID)
		if err != nil {
			return nil, fmt.Errorf("derive slot randomness: %w", err)
		}
		ct, err := elgamal.NewCiphertext(s.curve).Encrypt(message, authorityKey, k)
		if err != nil {
			return nil, fmt.Errorf("encrypt slot for %x: %w", target.ID, err)
		}
		inputs[i] = &nullifierproof.ProofInputs{
			Ciphertext:   ct,
			VoterKey:     voter.KeyPair.PublicKey(),
			AuthorityKey: authorityKey,
			K:            k,
			Message:      message,
			VoterSecret:  voter.KeyPair.PrivateKey(),
		}
		items[i] = &api.NullificationItem{
			TargetID:   target.ID,
			Ciphertext: ct.Serialize(),
		}
	}

	log.Infow("proving nullification batch", "slots", len(inputs), "concurrency", concurrency)
	results, err := s.prover.GenerateBatch(s.ctx, inputs, concurrency, func(completed, total int) {
		log.Infow("proving progress", "completed", completed, "total", total)
	})
	if err != nil {
		return nil, fmt.Errorf("prove batch: %w", err)
	}
	for i, res := range results {
		items[i].Proof = res.Proof
	}

	receipt := &api.NullificationResponse{}
	submitPath := api.EndpointWithParam(api.NullificationEndpoint, api.ElectionURLParam, election.ID.String())
	err = s.request(http.MethodPost, submitPath, &api.NullificationRequest{
		ParticipantID: voter.ParticipantID,
		Items:         items,
	}, receipt)
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// drawCohort picks anonymitySetSize roster entries around the submitter and
// shuffles them, shrinking to the roster when it is smaller.
func drawCohort(roster []*types.Participant, submitterID types.HexBytes,
	anonymitySetSize int,
) ([]*types.Participant, error) {
	var self *types.Participant
	others := make([]*types.Participant, 0, len(roster))
	for _, p := range roster {
		if bytes.Equal(p.ID, submitterID) {
			self = p
			continue
		}
		others = append(others, p)
	}
	if self == nil {
		return nil, fmt.Errorf("submitter %x not in the roster", submitterID)
	}
	cohortSize := anonymitySetSize
	if total := len(others) + 1; total < cohortSize {
		log.Warnw("roster smaller than the anonymity set, submitting with reduced privacy",
			"anonymitySetSize", anonymitySetSize, "participants", total)
		cohortSize = total
	}
	shuffle(others)
	targets := make([]*types.Participant, 0, cohortSize)
	targets = append(targets, others[:cohortSize-1]...)
	targets = append(targets, self)
	shuffle(targets)
	return targets, nil
}

// shuffle permutes the slice in place with crypto/rand driven indices.
func shuffle(list []*types.Participant) {
	for i := len(list) - 1; i > 0; i-- {
		j := util.RandomInt(0, i+1)
		list[i], list[j] = list[j], list[i]
	}
}

// WaitUntilEnded sleeps until the voting period of the election is over.
func (s *CLIServices) WaitUntilEnded(election *types.Election) error {
	remaining := time.Until(election.EndDate)
	if remaining <= 0 {
		return nil
	}
	log.Infow("waiting for the voting period to end", "remaining", remaining.String())
	select {
	case <-time.After(remaining + time.Second):
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	}
}

// RunTally submits the authority private key and returns the computed
// results.
func (s *CLIServices) RunTally(electionID types.HexBytes, key *types.BigInt) (*types.ElectionResults, error) {
	results := &types.ElectionResults{}
	path := api.EndpointWithParam(api.TallyEndpoint, api.ElectionURLParam, electionID.String())
	err := s.request(http.MethodPost, path, &api.TallyRequest{AuthorityPrivateKey: key}, results)
	if err != nil {
		return nil, err
	}
	return results, nil
}
