package voterkey

import (
	"encoding/hex"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/yaksetig/votex-sub001/crypto/ecc"
	"github.com/yaksetig/votex-sub001/crypto/ecc/curves"
)

func newCurve(c *qt.C) ecc.Point {
	curve, err := curves.New(curves.DefaultCurveType)
	c.Assert(err, qt.IsNil)
	return curve
}

func TestDerivationIsDeterministic(t *testing.T) {
	c := qt.New(t)
	curve := newCurve(c)

	kp1, err := FromSecret(curve, []byte("correct horse battery staple"))
	c.Assert(err, qt.IsNil)
	kp2, err := FromSecret(curve, []byte("correct horse battery staple"))
	c.Assert(err, qt.IsNil)

	c.Assert(kp1.PrivateKey().Cmp(kp2.PrivateKey()), qt.Equals, 0)
	c.Assert(kp1.PublicKey().Equal(kp2.PublicKey()), qt.IsTrue)
	c.Assert(hex.EncodeToString(kp1.SignalHash()), qt.Equals, hex.EncodeToString(kp2.SignalHash()))
}

func TestDifferentSecretsDeriveDifferentKeys(t *testing.T) {
	c := qt.New(t)
	curve := newCurve(c)

	kp1, err := FromSecret(curve, []byte("alice"))
	c.Assert(err, qt.IsNil)
	kp2, err := FromSecret(curve, []byte("bob"))
	c.Assert(err, qt.IsNil)

	c.Assert(kp1.PrivateKey().Cmp(kp2.PrivateKey()), qt.Not(qt.Equals), 0)
	c.Assert(kp1.PublicKey().Equal(kp2.PublicKey()), qt.IsFalse)
	c.Assert(hex.EncodeToString(kp1.SignalHash()), qt.Not(qt.Equals), hex.EncodeToString(kp2.SignalHash()))
}

func TestDerivedKeyProperties(t *testing.T) {
	c := qt.New(t)
	curve := newCurve(c)

	kp, err := FromSecret(curve, []byte("some voter secret"))
	c.Assert(err, qt.IsNil)

	c.Assert(kp.PrivateKey().Sign(), qt.Equals, 1)
	c.Assert(kp.PrivateKey().Cmp(curve.Order()) < 0, qt.IsTrue)
	c.Assert(kp.PublicKey().IsOnCurve(), qt.IsTrue)
	c.Assert(kp.Verify(), qt.IsNil)
	c.Assert(kp.SignalHash(), qt.HasLen, 32)
}

func TestEmptySecretIsRejected(t *testing.T) {
	c := qt.New(t)
	curve := newCurve(c)

	_, err := FromSecret(curve, nil)
	c.Assert(err, qt.ErrorIs, ErrEmptySecret)
	_, err = FromSecret(curve, []byte{})
	c.Assert(err, qt.ErrorIs, ErrEmptySecret)
}

func TestDomainTagSeparatesDerivation(t *testing.T) {
	c := qt.New(t)
	curve := newCurve(c)

	// The derived scalar must depend on the domain tag, not just on the
	// secret: a secret that happens to contain the tag bytes yields a
	// different key than the tag-free secret.
	kp1, err := FromSecret(curve, []byte("secret"))
	c.Assert(err, qt.IsNil)
	kp2, err := FromSecret(curve, []byte("secret"+DomainTag))
	c.Assert(err, qt.IsNil)
	c.Assert(kp1.PrivateKey().Cmp(kp2.PrivateKey()), qt.Not(qt.Equals), 0)
}

func TestVerifyDetectsMismatch(t *testing.T) {
	c := qt.New(t)
	curve := newCurve(c)

	kp, err := FromSecret(curve, []byte("voter"))
	c.Assert(err, qt.IsNil)

	other, err := FromSecret(curve, []byte("impostor"))
	c.Assert(err, qt.IsNil)

	forged := &KeyPair{privateKey: kp.PrivateKey(), publicKey: other.PublicKey()}
	c.Assert(forged.Verify(), qt.ErrorIs, ErrKeypairMismatch)
}
