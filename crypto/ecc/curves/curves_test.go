package curves

import (
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestNewReturnsIdentity(t *testing.T) {
	c := qt.New(t)

	for _, curveType := range Curves() {
		point, err := New(curveType)
		c.Assert(err, qt.IsNil)
		c.Assert(point.Type(), qt.Equals, curveType)
		c.Assert(point.String(), qt.Equals, "0,1")
	}
}

func TestNewRejectsUnknownType(t *testing.T) {
	c := qt.New(t)

	point, err := New("p256")
	c.Assert(err, qt.ErrorMatches, `unsupported curve type "p256"`)
	c.Assert(point, qt.IsNil)
}

func TestIsValid(t *testing.T) {
	c := qt.New(t)

	for _, curveType := range Curves() {
		c.Assert(IsValid(curveType), qt.IsTrue)
	}
	c.Assert(IsValid("secp256k1"), qt.IsFalse)
	c.Assert(IsValid(""), qt.IsFalse)
}

func TestBackendsAgreeOnScalarBaseMult(t *testing.T) {
	c := qt.New(t)

	scalar := big.NewInt(31337)
	var strs []string
	for _, curveType := range Curves() {
		point, err := New(curveType)
		c.Assert(err, qt.IsNil)
		point.ScalarBaseMult(scalar)
		strs = append(strs, point.String())
	}
	for i := 1; i < len(strs); i++ {
		c.Assert(strs[i], qt.Equals, strs[0])
	}
}
