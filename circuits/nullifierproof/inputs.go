// Package nullifierproof manages the artifacts and the witness inputs of the
// nullifier proof circuit. The circuit proves that a ciphertext encrypts a
// bit under the election authority key with a known randomness, bound to the
// keypair of the submitter. The circuit interface is fixed: every signal is a
// base 10 string.
package nullifierproof

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/yaksetig/votex-sub001/crypto/ecc"
	"github.com/yaksetig/votex-sub001/crypto/elgamal"
)

// ProofInputs carries everything the nullifier circuit consumes for a single
// ciphertext: the ciphertext itself, the keypair of the submitter, the
// authority encryption key, the encryption randomness and the plaintext bit.
// VoterSecret, K and Message are witness-only signals. They are consumed
// inside the witness computation and must never be logged or transmitted.
type ProofInputs struct {
	Ciphertext   *elgamal.Ciphertext
	VoterKey     ecc.Point
	AuthorityKey ecc.Point
	K            *big.Int
	Message      *big.Int
	VoterSecret  *big.Int
}

// Valid checks that all inputs are present, that every public key is a point
// on the curve and that the message is a bit.
func (pi *ProofInputs) Valid() error {
	if pi == nil {
		return fmt.Errorf("nil proof inputs")
	}
	if pi.Ciphertext == nil || pi.Ciphertext.C1 == nil || pi.Ciphertext.C2 == nil {
		return fmt.Errorf("missing ciphertext")
	}
	if !pi.Ciphertext.C1.IsOnCurve() || !pi.Ciphertext.C2.IsOnCurve() {
		return fmt.Errorf("ciphertext point is not on the curve")
	}
	if pi.VoterKey == nil {
		return fmt.Errorf("missing voter public key")
	}
	if !pi.VoterKey.IsOnCurve() {
		return fmt.Errorf("voter public key is not on the curve")
	}
	if pi.AuthorityKey == nil {
		return fmt.Errorf("missing authority public key")
	}
	if !pi.AuthorityKey.IsOnCurve() {
		return fmt.Errorf("authority public key is not on the curve")
	}
	if pi.K == nil || pi.K.Sign() <= 0 {
		return fmt.Errorf("missing encryption randomness")
	}
	if pi.Message == nil || !pi.Message.IsUint64() || pi.Message.Uint64() > 1 {
		return fmt.Errorf("message must be 0 or 1")
	}
	if pi.VoterSecret == nil || pi.VoterSecret.Sign() <= 0 {
		return fmt.Errorf("missing voter secret scalar")
	}
	return nil
}

// String returns a loggable description of the inputs with every witness-only
// signal omitted, so the inputs can appear in logs and error messages without
// leaking them.
func (pi *ProofInputs) String() string {
	if pi == nil || pi.Ciphertext == nil {
		return "{}"
	}
	return fmt.Sprintf("{ciphertext: %s, pk_voter: %s, pk_authority: %s}",
		pi.Ciphertext.String(), pi.VoterKey.String(), pi.AuthorityKey.String())
}

// CircomInputs are the signals of the nullifier circuit in the encoding the
// circom witness calculator expects.
type CircomInputs struct {
	Ciphertext  []string `json:"ciphertext"`
	PKVoter     []string `json:"pk_voter"`
	PKAuthority []string `json:"pk_authority"`
	R           string   `json:"r"`
	M           string   `json:"m"`
	SKVoter     string   `json:"sk_voter"`
}

// CircomInputs converts the proof inputs into the circuit signal encoding:
// the ciphertext as [c1.x, c1.y, c2.x, c2.y] and both public keys as [x, y]
// coordinate pairs, every value in base 10. The encryption randomness maps to
// the circuit signal named r.
func (pi *ProofInputs) CircomInputs() (*CircomInputs, error) {
	if err := pi.Valid(); err != nil {
		return nil, err
	}
	c1x, c1y := pi.Ciphertext.C1.Point()
	c2x, c2y := pi.Ciphertext.C2.Point()
	voterX, voterY := pi.VoterKey.Point()
	authorityX, authorityY := pi.AuthorityKey.Point()
	return &CircomInputs{
		Ciphertext:  []string{c1x.String(), c1y.String(), c2x.String(), c2y.String()},
		PKVoter:     []string{voterX.String(), voterY.String()},
		PKAuthority: []string{authorityX.String(), authorityY.String()},
		R:           pi.K.String(),
		M:           pi.Message.String(),
		SKVoter:     pi.VoterSecret.String(),
	}, nil
}

// Encode marshals the circuit inputs into the JSON document consumed by the
// witness calculator.
func (ci *CircomInputs) Encode() ([]byte, error) {
	data, err := json.Marshal(ci)
	if err != nil {
		return nil, fmt.Errorf("error encoding circuit inputs: %w", err)
	}
	return data, nil
}

// PublicSignals returns the public signal values of the circuit for a given
// ciphertext, submitter key and authority key, in the order the circuit
// exports them: [c1.x, c1.y, c2.x, c2.y, pkv.x, pkv.y, pka.x, pka.y], every
// value in base 10. Verifiers compare this list against the public signals
// document of a proof to bind it to one ciphertext, one submitter and one
// election.
func PublicSignals(ct *elgamal.Ciphertext, voterKey, authorityKey ecc.Point) ([]string, error) {
	if ct == nil || ct.C1 == nil || ct.C2 == nil {
		return nil, fmt.Errorf("missing ciphertext")
	}
	if voterKey == nil || authorityKey == nil {
		return nil, fmt.Errorf("missing public key")
	}
	c1x, c1y := ct.C1.Point()
	c2x, c2y := ct.C2.Point()
	voterX, voterY := voterKey.Point()
	authorityX, authorityY := authorityKey.Point()
	return []string{
		c1x.String(), c1y.String(), c2x.String(), c2y.String(),
		voterX.String(), voterY.String(),
		authorityX.String(), authorityY.String(),
	}, nil
}
