package prover

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/yaksetig/votex-sub001/circuits/nullifierproof"
	"github.com/yaksetig/votex-sub001/crypto/ecc/curves"
	"github.com/yaksetig/votex-sub001/crypto/elgamal"
	"github.com/yaksetig/votex-sub001/types"
)

func testInputs(c *qt.C, message int64) *nullifierproof.ProofInputs {
	curve, err := curves.New(curves.DefaultCurveType)
	c.Assert(err, qt.IsNil)

	authorityKey, _, err := elgamal.GenerateKey(curve)
	c.Assert(err, qt.IsNil)
	voterKey, voterSecret, err := elgamal.GenerateKey(curve)
	c.Assert(err, qt.IsNil)

	k, err := elgamal.DeterministicK(voterSecret, authorityKey)
	c.Assert(err, qt.IsNil)
	ciphertext, err := elgamal.NewCiphertext(curve).Encrypt(big.NewInt(message), authorityKey, k)
	c.Assert(err, qt.IsNil)

	return &nullifierproof.ProofInputs{
		Ciphertext:   ciphertext,
		VoterKey:     voterKey,
		AuthorityKey: authorityKey,
		K:            k,
		Message:      big.NewInt(message),
		VoterSecret:  voterSecret,
	}
}

// newTestProver returns a Prover with a fake backend that echoes the message
// signal into the public signals, so items stay distinguishable in batches.
func newTestProver(c *qt.C) *Prover {
	p, err := New([]byte("wasm"), []byte("zkey"), []byte("vkey"))
	c.Assert(err, qt.IsNil)
	p.SetProveFunc(func(inputs []byte) (string, string, error) {
		ci := nullifierproof.CircomInputs{}
		if err := json.Unmarshal(inputs, &ci); err != nil {
			return "", "", err
		}
		return `{"pi_a":[],"pi_b":[],"pi_c":[],"protocol":"groth16"}`, fmt.Sprintf(`["%s"]`, ci.M), nil
	})
	return p
}

func TestProve(t *testing.T) {
	c := qt.New(t)
	p := newTestProver(c)

	proof, err := p.Prove(testInputs(c, 1))
	c.Assert(err, qt.IsNil)
	c.Assert(proof.Valid(), qt.IsTrue)
	c.Assert(proof.PublicSignals, qt.Equals, `["1"]`)

	c.Run("invalid inputs never reach the backend", func(c *qt.C) {
		called := false
		p.SetProveFunc(func([]byte) (string, string, error) {
			called = true
			return "", "", nil
		})
		bad := testInputs(c, 1)
		bad.Message = big.NewInt(7)
		_, err := p.Prove(bad)
		c.Assert(err, qt.ErrorMatches, "message must be 0 or 1")
		c.Assert(called, qt.IsFalse)
	})
}

func TestNew(t *testing.T) {
	c := qt.New(t)

	_, err := New(nil, []byte("zkey"), nil)
	c.Assert(err, qt.ErrorMatches, "missing circuit wasm")
	_, err = New([]byte("wasm"), nil, nil)
	c.Assert(err, qt.ErrorMatches, "missing proving key")
}

func TestGenerateBatch(t *testing.T) {
	c := qt.New(t)
	p := newTestProver(c)

	const total = 5
	inputs := make([]*nullifierproof.ProofInputs, total)
	for i := range inputs {
		inputs[i] = testInputs(c, int64(i%2))
	}

	var mu sync.Mutex
	var completions []int
	results, err := p.GenerateBatch(context.Background(), inputs, 2, func(completed, batchTotal int) {
		mu.Lock()
		defer mu.Unlock()
		completions = append(completions, completed)
		c.Check(batchTotal, qt.Equals, total)
	})
	c.Assert(err, qt.IsNil)
	c.Assert(results, qt.HasLen, total)
	for i, res := range results {
		c.Assert(res.Index, qt.Equals, i)
		c.Assert(res.Err, qt.IsNil)
		c.Assert(res.Proof.PublicSignals, qt.Equals, fmt.Sprintf(`["%d"]`, i%2))
	}
	// every completion count reported exactly once
	sort.Ints(completions)
	c.Assert(completions, qt.DeepEquals, []int{1, 2, 3, 4, 5})
}

func TestGenerateBatchPartialFailure(t *testing.T) {
	c := qt.New(t)
	p := newTestProver(c)
	p.SetProveFunc(func(inputs []byte) (string, string, error) {
		ci := nullifierproof.CircomInputs{}
		if err := json.Unmarshal(inputs, &ci); err != nil {
			return "", "", err
		}
		if ci.M == "0" {
			return "", "", fmt.Errorf("witness does not satisfy the circuit")
		}
		return `{"pi_a":[],"pi_b":[],"pi_c":[],"protocol":"groth16"}`, `["1"]`, nil
	})

	inputs := []*nullifierproof.ProofInputs{
		testInputs(c, 1), testInputs(c, 0), testInputs(c, 1),
	}
	results, err := p.GenerateBatch(context.Background(), inputs, 0, nil)
	c.Assert(err, qt.ErrorIs, ErrBatchIncomplete)
	c.Assert(err, qt.ErrorMatches, ".*1 of 3 proofs failed")
	c.Assert(results, qt.HasLen, 3)

	// the failed item is isolated: its siblings still carry their proofs
	c.Assert(results[0].Err, qt.IsNil)
	c.Assert(results[0].Proof, qt.IsNotNil)
	c.Assert(results[1].Err, qt.ErrorMatches, ".*witness does not satisfy the circuit")
	c.Assert(results[1].Proof, qt.IsNil)
	c.Assert(results[2].Err, qt.IsNil)
	c.Assert(results[2].Proof, qt.IsNotNil)
}

func TestGenerateBatchEmpty(t *testing.T) {
	c := qt.New(t)
	p := newTestProver(c)

	_, err := p.GenerateBatch(context.Background(), nil, 0, nil)
	c.Assert(err, qt.ErrorMatches, "empty proof batch")
}

func TestGenerateBatchCancelled(t *testing.T) {
	c := qt.New(t)
	p := newTestProver(c)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	inputs := []*nullifierproof.ProofInputs{testInputs(c, 1), testInputs(c, 0)}
	results, err := p.GenerateBatch(ctx, inputs, 1, nil)
	c.Assert(err, qt.ErrorIs, ErrBatchIncomplete)
	for _, res := range results {
		c.Assert(res.Err, qt.ErrorIs, context.Canceled)
	}
}

func TestVerifyMalformed(t *testing.T) {
	c := qt.New(t)
	p := newTestProver(c)

	c.Assert(p.Verify(nil), qt.ErrorMatches, "malformed proof")
	c.Assert(p.Verify(&types.CircuitProof{Proof: "{}", PublicSignals: ""}), qt.ErrorMatches, "malformed proof")

	err := p.Verify(&types.CircuitProof{Proof: "not json", PublicSignals: `["1"]`})
	c.Assert(err, qt.ErrorMatches, "error decoding proof.*")

	err = p.Verify(&types.CircuitProof{Proof: "{}", PublicSignals: "not json"})
	c.Assert(err, qt.ErrorMatches, "error decoding public signals.*")

	// a structurally valid proof still fails against a bogus verification key
	err = p.Verify(&types.CircuitProof{
		Proof:         `{"pi_a":[],"pi_b":[],"pi_c":[],"protocol":"groth16"}`,
		PublicSignals: `["1"]`,
	})
	c.Assert(err, qt.IsNotNil)
}
