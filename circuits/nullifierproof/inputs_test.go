package nullifierproof

import (
	"encoding/json"
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/yaksetig/votex-sub001/crypto/ecc/curves"
	"github.com/yaksetig/votex-sub001/crypto/elgamal"
)

func testProofInputs(c *qt.C) *ProofInputs {
	curve, err := curves.New(curves.DefaultCurveType)
	c.Assert(err, qt.IsNil)

	authorityKey, _, err := elgamal.GenerateKey(curve)
	c.Assert(err, qt.IsNil)
	voterKey, voterSecret, err := elgamal.GenerateKey(curve)
	c.Assert(err, qt.IsNil)

	k, err := elgamal.DeterministicK(voterSecret, authorityKey)
	c.Assert(err, qt.IsNil)
	ciphertext, err := elgamal.NewCiphertext(curve).Encrypt(big.NewInt(1), authorityKey, k)
	c.Assert(err, qt.IsNil)

	return &ProofInputs{
		Ciphertext:   ciphertext,
		VoterKey:     voterKey,
		AuthorityKey: authorityKey,
		K:            k,
		Message:      big.NewInt(1),
		VoterSecret:  voterSecret,
	}
}

func TestCircomInputs(t *testing.T) {
	c := qt.New(t)
	pi := testProofInputs(c)

	ci, err := pi.CircomInputs()
	c.Assert(err, qt.IsNil)

	// the ciphertext signal is the flat coordinate list [c1.x, c1.y, c2.x, c2.y]
	c1x, c1y := pi.Ciphertext.C1.Point()
	c2x, c2y := pi.Ciphertext.C2.Point()
	c.Assert(ci.Ciphertext, qt.DeepEquals, []string{
		c1x.String(), c1y.String(), c2x.String(), c2y.String(),
	})
	voterX, voterY := pi.VoterKey.Point()
	c.Assert(ci.PKVoter, qt.DeepEquals, []string{voterX.String(), voterY.String()})
	c.Assert(ci.R, qt.Equals, pi.K.String())
	c.Assert(ci.M, qt.Equals, "1")
	c.Assert(ci.SKVoter, qt.Equals, pi.VoterSecret.String())

	c.Run("signal names", func(c *qt.C) {
		data, err := ci.Encode()
		c.Assert(err, qt.IsNil)
		signals := map[string]json.RawMessage{}
		c.Assert(json.Unmarshal(data, &signals), qt.IsNil)
		c.Assert(signals, qt.HasLen, 6)
		for _, name := range []string{"ciphertext", "pk_voter", "pk_authority", "r", "m", "sk_voter"} {
			_, ok := signals[name]
			c.Assert(ok, qt.IsTrue, qt.Commentf("missing circuit signal %q", name))
		}
	})

	c.Run("base 10 values", func(c *qt.C) {
		for _, v := range append(append([]string{}, ci.Ciphertext...), ci.R, ci.M, ci.SKVoter) {
			_, ok := new(big.Int).SetString(v, 10)
			c.Assert(ok, qt.IsTrue, qt.Commentf("signal value %q is not a decimal string", v))
		}
	})
}

func TestProofInputsValid(t *testing.T) {
	c := qt.New(t)

	c.Run("missing ciphertext", func(c *qt.C) {
		pi := testProofInputs(c)
		pi.Ciphertext = nil
		_, err := pi.CircomInputs()
		c.Assert(err, qt.ErrorMatches, "missing ciphertext")
	})

	c.Run("off curve voter key", func(c *qt.C) {
		pi := testProofInputs(c)
		pi.VoterKey = pi.VoterKey.New().SetPoint(big.NewInt(1), big.NewInt(2))
		_, err := pi.CircomInputs()
		c.Assert(err, qt.ErrorMatches, "voter public key is not on the curve")
	})

	c.Run("message out of range", func(c *qt.C) {
		pi := testProofInputs(c)
		pi.Message = big.NewInt(2)
		_, err := pi.CircomInputs()
		c.Assert(err, qt.ErrorMatches, "message must be 0 or 1")
	})

	c.Run("missing randomness", func(c *qt.C) {
		pi := testProofInputs(c)
		pi.K = nil
		_, err := pi.CircomInputs()
		c.Assert(err, qt.ErrorMatches, "missing encryption randomness")
	})

	c.Run("missing secret", func(c *qt.C) {
		pi := testProofInputs(c)
		pi.VoterSecret = big.NewInt(0)
		_, err := pi.CircomInputs()
		c.Assert(err, qt.ErrorMatches, "missing voter secret scalar")
	})
}

func TestProofInputsStringRedacted(t *testing.T) {
	c := qt.New(t)
	pi := testProofInputs(c)

	s := pi.String()
	c.Assert(s, qt.Not(qt.Contains), pi.VoterSecret.String())
	c.Assert(s, qt.Not(qt.Contains), pi.K.String())
}
