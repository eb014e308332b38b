/*
Package nullification builds and submits k-anonymity nullification batches.

A batch hides one participant's nullification among a cohort of cover slots.
Every slot carries a ciphertext encrypted to the election authority key: the
submitter's own slot encrypts the real nullification bit, every other slot
always encrypts zero. Without the authority private key all slots look alike,
and the stored batch never records which slot was the real one.

The encryption randomness of each slot is derived deterministically from the
submitter's keypair, the election and the slot target. The same voter can
therefore rebuild the exact ciphertexts later and prove what they sent
without keeping any local state, while nobody else can tell the slots apart.
*/
package nullification

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/yaksetig/votex-sub001/circuits/nullifierproof"
	"github.com/yaksetig/votex-sub001/crypto/ecc"
	"github.com/yaksetig/votex-sub001/crypto/elgamal"
	"github.com/yaksetig/votex-sub001/crypto/voterkey"
	"github.com/yaksetig/votex-sub001/log"
	"github.com/yaksetig/votex-sub001/prover"
	"github.com/yaksetig/votex-sub001/storage"
	"github.com/yaksetig/votex-sub001/types"
	"github.com/yaksetig/votex-sub001/util"
)

var (
	// ErrElectionClosed is returned when the election does not currently
	// accept nullification submissions.
	ErrElectionClosed = errors.New("election is not open")

	// ErrNotParticipant is returned when the submitter is not registered in
	// the election.
	ErrNotParticipant = errors.New("participant is not registered in the election")

	// ErrKeyMismatch is returned when the submitted keypair is not the one
	// registered for the participant.
	ErrKeyMismatch = errors.New("keypair does not match the registered participant key")
)

// Request describes one nullification submission: who submits, in which
// election, with which keypair, and whether the submitter's own slot carries
// a real nullification or a cover zero.
type Request struct {
	ElectionID    types.HexBytes
	ParticipantID types.HexBytes
	KeyPair       *voterkey.KeyPair
	Real          bool
}

// Valid checks that the request carries the identifiers and a keypair.
func (r *Request) Valid() bool {
	return r != nil && len(r.ElectionID) > 0 && len(r.ParticipantID) > 0 &&
		r.KeyPair != nil && r.KeyPair.PrivateKey() != nil && r.KeyPair.PublicKey() != nil
}

// Item is one slot of a batch under construction. The real flag and the
// encryption randomness are proof witness material: they never reach
// storage, which only receives the target, the serialized ciphertext and the
// finished proof.
type Item struct {
	TargetID   types.HexBytes
	IsReal     bool
	K          *big.Int
	Ciphertext *elgamal.Ciphertext
}

// ProofInputs assembles the circuit witness of the slot for the given
// submitter keypair and authority key.
func (i *Item) ProofInputs(keypair *voterkey.KeyPair, authorityKey ecc.Point) *nullifierproof.ProofInputs {
	message := big.NewInt(0)
	if i.IsReal {
		message.SetInt64(1)
	}
	return &nullifierproof.ProofInputs{
		Ciphertext:   i.Ciphertext,
		VoterKey:     keypair.PublicKey(),
		AuthorityKey: authorityKey,
		K:            i.K,
		Message:      message,
		VoterSecret:  keypair.PrivateKey(),
	}
}

// Batch is a generated anonymity set, ready to be proved and stored. When
// the election roster is smaller than the configured anonymity set size the
// batch shrinks to the roster and ReducedPrivacy is set.
type Batch struct {
	ElectionID     types.HexBytes
	AuthorityKey   ecc.Point
	Items          []*Item
	ReducedPrivacy bool
}

// Receipt summarizes a stored nullification submission.
type Receipt struct {
	BatchID        types.HexBytes `json:"batchId"`
	Items          int            `json:"items"`
	ReducedPrivacy bool           `json:"reducedPrivacy"`
}

// Batcher generates nullification batches and drives them through proving
// and storage.
type Batcher struct {
	store       *storage.Storage
	prover      *prover.Prover
	concurrency int
	progress    prover.ProgressFunc
}

// New creates a Batcher on the given storage and prover. Concurrency bounds
// the proving worker pool; zero or negative lets the prover decide.
func New(store *storage.Storage, prv *prover.Prover, concurrency int) *Batcher {
	return &Batcher{
		store:       store,
		prover:      prv,
		concurrency: concurrency,
	}
}

// OnProgress registers an observer for proving progress. The callback runs
// on prover worker goroutines. Must be set before calling Submit.
func (b *Batcher) OnProgress(fn prover.ProgressFunc) {
	b.progress = fn
}

// GenerateBatch builds the anonymity set for a request. It fetches the
// participant roster, draws a uniform cohort of other participants around
// the submitter and encrypts one nullification bit per slot, all against the
// authority key of the election.
//
// The batch has min(anonymitySetSize, len(roster)) slots. The submitter's
// own slot encrypts the requested bit, every other slot encrypts zero, and
// the position of the submitter's slot is uniformly distributed.
func (b *Batcher) GenerateBatch(req *Request) (*Batch, error) {
	if !req.Valid() {
		return nil, fmt.Errorf("invalid nullification request")
	}
	election, err := b.store.Election(req.ElectionID)
	if err != nil {
		return nil, fmt.Errorf("fetch election: %w", err)
	}
	authorityKey, err := b.store.AuthorityKey(req.ElectionID)
	if err != nil {
		return nil, fmt.Errorf("fetch authority key: %w", err)
	}
	participants, err := b.store.Participants(req.ElectionID)
	if err != nil {
		return nil, fmt.Errorf("fetch participants: %w", err)
	}

	var self *types.Participant
	others := make([]*types.Participant, 0, len(participants))
	for _, p := range participants {
		if bytes.Equal(p.ID, req.ParticipantID) {
			self = p
			continue
		}
		others = append(others, p)
	}
	if self == nil {
		return nil, fmt.Errorf("%w: %x", ErrNotParticipant, req.ParticipantID)
	}
	px, py := req.KeyPair.PublicKey().Point()
	if px.Cmp(self.PublicKeyX.MathBigInt()) != 0 || py.Cmp(self.PublicKeyY.MathBigInt()) != 0 {
		return nil, ErrKeyMismatch
	}

	cohortSize := election.AnonymitySetSize
	reduced := false
	if total := len(others) + 1; total < cohortSize {
		cohortSize = total
		reduced = true
		log.Warnw("participant roster smaller than the anonymity set",
			"electionId", req.ElectionID.String(),
			"anonymitySetSize", election.AnonymitySetSize,
			"participants", total)
	}

	// draw the cohort, then shuffle again so the position of the
	// submitter's slot carries no information
	shuffleParticipants(others)
	targets := make([]*types.Participant, 0, cohortSize)
	targets = append(targets, others[:cohortSize-1]...)
	targets = append(targets, self)
	shuffleParticipants(targets)

	curve := b.store.Curve()
	items := make([]*Item, 0, len(targets))
	for _, target := range targets {
		isReal := req.Real && bytes.Equal(target.ID, self.ID)
		message := big.NewInt(0)
		if isReal {
			message.SetInt64(1)
		}
		k, err := elgamal.DeterministicK(req.KeyPair.PrivateKey(), req.KeyPair.PublicKey(),
			req.ElectionID, target.ID)
		if err != nil {
			return nil, fmt.Errorf("derive slot randomness: %w", err)
		}
		ct, err := elgamal.NewCiphertext(curve).Encrypt(message, authorityKey, k)
		if err != nil {
			return nil, fmt.Errorf("encrypt slot for %x: %w", target.ID, err)
		}
		items = append(items, &Item{
			TargetID:   target.ID,
			IsReal:     isReal,
			K:          k,
			Ciphertext: ct,
		})
	}
	return &Batch{
		ElectionID:     req.ElectionID,
		AuthorityKey:   authorityKey,
		Items:          items,
		ReducedPrivacy: reduced,
	}, nil
}

// Submit runs a full nullification submission: it generates the batch,
// proves every slot and stores the result atomically. While the submission
// is in flight the participant holds a lock, so a second concurrent attempt
// fails with storage.ErrSubmissionInFlight.
//
// Every ciphertext exists before any proof starts, and nothing is persisted
// unless all slots prove: a failed submission leaves no trace and can be
// retried from scratch.
func (b *Batcher) Submit(ctx context.Context, req *Request) (*Receipt, error) {
	if !req.Valid() {
		return nil, fmt.Errorf("invalid nullification request")
	}
	if err := b.store.LockSubmission(req.ElectionID, req.ParticipantID); err != nil {
		return nil, err
	}
	defer func() {
		if err := b.store.ReleaseSubmission(req.ElectionID, req.ParticipantID); err != nil {
			log.Warnw("failed to release submission lock",
				"electionId", req.ElectionID.String(),
				"participantId", req.ParticipantID.String(),
				"error", err.Error())
		}
	}()

	open, err := b.store.ElectionIsOpen(req.ElectionID)
	if err != nil {
		return nil, err
	}
	if !open {
		return nil, ErrElectionClosed
	}
	election, err := b.store.Election(req.ElectionID)
	if err != nil {
		return nil, fmt.Errorf("fetch election: %w", err)
	}
	// fail before the proving work when the submitter is out of rounds; the
	// storage push enforces the same bound again atomically
	rounds, err := b.store.NullificationRounds(req.ElectionID, req.ParticipantID)
	if err != nil {
		return nil, fmt.Errorf("check nullification rounds: %w", err)
	}
	if election.MaxNullifRounds > 0 && rounds >= uint32(election.MaxNullifRounds) {
		return nil, fmt.Errorf("%w: %d of %d used", storage.ErrMaxRoundsReached,
			rounds, election.MaxNullifRounds)
	}

	batch, err := b.GenerateBatch(req)
	if err != nil {
		return nil, err
	}
	inputs := make([]*nullifierproof.ProofInputs, len(batch.Items))
	for i, item := range batch.Items {
		inputs[i] = item.ProofInputs(req.KeyPair, batch.AuthorityKey)
	}
	results, err := b.prover.GenerateBatch(ctx, inputs, b.concurrency, b.submitProgress())
	if err != nil {
		return nil, err
	}

	stored := &storage.NullificationBatch{
		ElectionID: req.ElectionID,
		Items:      make([]*storage.NullificationBatchItem, len(batch.Items)),
	}
	for i, item := range batch.Items {
		stored.Items[i] = &storage.NullificationBatchItem{
			TargetParticipantID: item.TargetID,
			Ciphertext:          item.Ciphertext.Serialize(),
			Proof:               results[i].Proof,
		}
	}
	if err := b.store.PushNullificationBatch(stored, req.ParticipantID, election.MaxNullifRounds); err != nil {
		return nil, fmt.Errorf("store nullification batch: %w", err)
	}
	log.Infow("nullification batch stored",
		"electionId", req.ElectionID.String(),
		"batchId", stored.BatchID.String(),
		"items", len(stored.Items),
		"reducedPrivacy", batch.ReducedPrivacy)
	return &Receipt{
		BatchID:        stored.BatchID,
		Items:          len(stored.Items),
		ReducedPrivacy: batch.ReducedPrivacy,
	}, nil
}

// submitProgress builds the proving progress callback: a debug log line
// plus the observer registered with OnProgress, if any.
func (b *Batcher) submitProgress() prover.ProgressFunc {
	return func(completed, total int) {
		log.Debugw("nullification proving progress",
			"completed", completed, "total", total)
		if b.progress != nil {
			b.progress(completed, total)
		}
	}
}

// shuffleParticipants permutes the slice in place with a Fisher-Yates walk
// driven by crypto/rand. Predictable cohort selection would break the
// anonymity guarantee, so a seeded PRNG is never acceptable here.
func shuffleParticipants(list []*types.Participant) {
	for i := len(list) - 1; i > 0; i-- {
		j := util.RandomInt(0, i+1)
		list[i], list[j] = list[j], list[i]
	}
}
