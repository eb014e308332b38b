// Package prover generates and verifies nullifier proofs with the external
// circom circuit. Witness calculation runs through the wasm calculator of the
// circuit and proving through the rapidsnark Groth16 prover, with a
// replaceable proving backend for tests. Batches are proved by a bounded
// worker pool with per item results: a failed item never aborts siblings
// already in flight, and a batch with any failed item is reported as
// incomplete so the caller retries the whole submission.
package prover

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	rapidsnarkprover "github.com/iden3/go-rapidsnark/prover"
	rapidsnarktypes "github.com/iden3/go-rapidsnark/types"
	"github.com/iden3/go-rapidsnark/verifier"
	"github.com/iden3/go-rapidsnark/witness"
	"golang.org/x/sync/errgroup"

	"github.com/yaksetig/votex-sub001/circuits"
	"github.com/yaksetig/votex-sub001/circuits/nullifierproof"
	"github.com/yaksetig/votex-sub001/log"
	"github.com/yaksetig/votex-sub001/types"
)

// ErrBatchIncomplete is returned by GenerateBatch when at least one item of
// the batch failed to prove. A partially proved batch is useless to the
// nullification protocol, so the caller must retry the whole submission.
var ErrBatchIncomplete = errors.New("proof batch incomplete")

// ProveFunc turns an encoded circuit input document into a Groth16 proof and
// its public signals, both as JSON documents. The default implementation
// calculates the witness with the circom wasm calculator and proves with
// rapidsnark; tests may inject their own.
type ProveFunc func(inputs []byte) (proof string, publicSignals string, err error)

// ProgressFunc is invoked after every batch item completes, successfully or
// not, with the number of completed items and the batch size.
type ProgressFunc func(completed, total int)

// Result is the outcome of a single batch item.
type Result struct {
	Index int
	Proof *types.CircuitProof
	Err   error
}

// Prover holds the circuit artifacts and the proving backend.
type Prover struct {
	circuitWasm  []byte
	provingKey   []byte
	verifyingKey []byte

	prove   ProveFunc
	proveMu sync.Mutex // serializes the raw prover calls
}

// New creates a Prover from the raw circuit artifacts: the circom wasm
// witness calculator, the Groth16 proving key and the verification key.
func New(circuitWasm, provingKey, verifyingKey []byte) (*Prover, error) {
	if len(circuitWasm) == 0 {
		return nil, fmt.Errorf("missing circuit wasm")
	}
	if len(provingKey) == 0 {
		return nil, fmt.Errorf("missing proving key")
	}
	p := &Prover{
		circuitWasm:  circuitWasm,
		provingKey:   provingKey,
		verifyingKey: verifyingKey,
	}
	p.prove = p.rapidsnarkProve
	return p, nil
}

// FromArtifacts loads the artifact bundle from the local cache and creates a
// Prover with its contents.
func FromArtifacts(ca *circuits.CircuitArtifacts) (*Prover, error) {
	if err := ca.LoadAll(); err != nil {
		return nil, fmt.Errorf("failed to load circuit artifacts: %w", err)
	}
	return New(ca.CircuitDefinition(), ca.ProvingKey(), ca.VerifyingKey())
}

// SetProveFunc replaces the proving backend.
func (p *Prover) SetProveFunc(fn ProveFunc) {
	p.prove = fn
}

// Prove computes the nullifier proof for a single input set.
func (p *Prover) Prove(inputs *nullifierproof.ProofInputs) (*types.CircuitProof, error) {
	ci, err := inputs.CircomInputs()
	if err != nil {
		return nil, err
	}
	encoded, err := ci.Encode()
	if err != nil {
		return nil, err
	}
	proof, publicSignals, err := p.prove(encoded)
	if err != nil {
		return nil, fmt.Errorf("error generating proof: %w", err)
	}
	return &types.CircuitProof{Proof: proof, PublicSignals: publicSignals}, nil
}

// GenerateBatch proves every input of the batch through a worker pool bounded
// by concurrency (default NumCPU). Each item reports its own Result at its
// input position and progress is delivered after every completed item. Item
// failures are recorded per item and never cancel siblings; if any item
// failed the returned error wraps ErrBatchIncomplete and the results must
// not be submitted.
func (p *Prover) GenerateBatch(ctx context.Context, inputs []*nullifierproof.ProofInputs,
	concurrency int, progress ProgressFunc,
) ([]*Result, error) {
	total := len(inputs)
	if total == 0 {
		return nil, fmt.Errorf("empty proof batch")
	}
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}
	log.Debugw("generating proof batch", "items", total, "concurrency", concurrency)

	results := make([]*Result, total)
	var completed atomic.Int64
	g := new(errgroup.Group)
	g.SetLimit(concurrency)
	for i := range inputs {
		g.Go(func() error {
			res := &Result{Index: i}
			// item errors are recorded in the result, never returned through
			// the group: a failed item must not cancel siblings in flight
			if err := ctx.Err(); err != nil {
				res.Err = err
			} else {
				res.Proof, res.Err = p.Prove(inputs[i])
			}
			results[i] = res
			if progress != nil {
				progress(int(completed.Add(1)), total)
			}
			return nil
		})
	}
	// join the pool; item errors live in the results
	_ = g.Wait()

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		return results, fmt.Errorf("%w: %d of %d proofs failed", ErrBatchIncomplete, failed, total)
	}
	return results, nil
}

// Verify checks a proof against the verification key of the circuit.
func (p *Prover) Verify(proof *types.CircuitProof) error {
	if !proof.Valid() {
		return fmt.Errorf("malformed proof")
	}
	if len(p.verifyingKey) == 0 {
		return fmt.Errorf("verification key not loaded")
	}
	proofData := rapidsnarktypes.ProofData{}
	if err := json.Unmarshal([]byte(proof.Proof), &proofData); err != nil {
		return fmt.Errorf("error decoding proof: %w", err)
	}
	var publicSignals []string
	if err := json.Unmarshal([]byte(proof.PublicSignals), &publicSignals); err != nil {
		return fmt.Errorf("error decoding public signals: %w", err)
	}
	return verifier.VerifyGroth16(rapidsnarktypes.ZKProof{
		Proof:      &proofData,
		PubSignals: publicSignals,
	}, p.verifyingKey)
}

// rapidsnarkProve is the default proving backend. It parses the encoded
// inputs, calculates the witness with a fresh calculator instance and runs
// the Groth16 prover under proveMu.
func (p *Prover) rapidsnarkProve(inputs []byte) (string, string, error) {
	parsedInputs, err := witness.ParseInputs(inputs)
	if err != nil {
		return "", "", fmt.Errorf("error parsing circuit inputs: %w", err)
	}
	// witness calculators are single wasm instances and cannot be shared
	// between goroutines
	calc, err := witness.NewCircom2WitnessCalculator(p.circuitWasm, true)
	if err != nil {
		return "", "", fmt.Errorf("error creating witness calculator: %w", err)
	}
	w, err := calc.CalculateWTNSBin(parsedInputs, true)
	if err != nil {
		return "", "", fmt.Errorf("error calculating witness: %w", err)
	}
	p.proveMu.Lock()
	defer p.proveMu.Unlock()
	return rapidsnarkprover.Groth16ProverRaw(p.provingKey, w)
}
