// Package ecc defines the elliptic curve point abstraction used by the
// cryptographic components. Implementations wrap a concrete curve backend and
// are selected at construction time, so callers never depend on a particular
// library or on package-level curve state.
package ecc

import (
	"math/big"
)

// Point defines the common operations that can be performed on elliptic curve
// group elements. It represents the affine coordinates of a point and provides
// methods for arithmetic, serialization and comparison.
type Point interface {
	// New returns a new point of the same implementation, set to the
	// identity element.
	New() Point

	// Order returns the order of the curve subgroup. Scalars used with
	// ScalarMult and ScalarBaseMult must already be reduced modulo this
	// value; implementations perform no reduction.
	Order() *big.Int

	// Add adds two group elements and stores the result in the receiver.
	Add(a, b Point)

	// SafeAdd is like Add but holds a lock on the receiver, so concurrent
	// accumulation into a shared point is safe.
	SafeAdd(a, b Point)

	// ScalarMult multiplies the group element a by scalar and stores the
	// result in the receiver.
	ScalarMult(a Point, scalar *big.Int)

	// ScalarBaseMult multiplies the generator point by scalar and stores
	// the result in the receiver.
	ScalarBaseMult(scalar *big.Int)

	// Marshal serializes the point into a compact byte slice. The encoding
	// is implementation specific.
	Marshal() []byte

	// Unmarshal deserializes a point from the output of Marshal. The buffer
	// must decode to a valid curve point or an error is returned.
	Unmarshal(buf []byte) error

	// MarshalJSON serializes the point as a JSON array of the two affine
	// coordinates in decimal form.
	MarshalJSON() ([]byte, error)

	// UnmarshalJSON deserializes the point from a JSON coordinate array,
	// rejecting coordinates that do not lie on the curve.
	UnmarshalJSON(buf []byte) error

	// MarshalCBOR serializes the point as a CBOR array of the two affine
	// coordinates.
	MarshalCBOR() ([]byte, error)

	// UnmarshalCBOR deserializes the point from a CBOR coordinate array,
	// rejecting coordinates that do not lie on the curve.
	UnmarshalCBOR(buf []byte) error

	// Equal reports whether two group elements are the same point.
	Equal(a Point) bool

	// IsOnCurve reports whether the point satisfies the curve equation.
	IsOnCurve() bool

	// Neg stores the additive inverse of a in the receiver.
	Neg(a Point)

	// SetZero sets the receiver to the identity element.
	SetZero()

	// Set copies the value of another group element into the receiver.
	Set(a Point)

	// SetGenerator sets the receiver to the generator point.
	SetGenerator()

	// String returns the affine coordinates as "x,y" in decimal form.
	String() string

	// Point returns the X and Y affine coordinates.
	Point() (*big.Int, *big.Int)

	// BigInts returns the X and Y affine coordinates as a slice.
	BigInts() []*big.Int

	// SetPoint returns a new point of the same implementation with the
	// given X and Y affine coordinates. The receiver is not modified.
	SetPoint(x, y *big.Int) Point

	// Type returns the curve implementation identifier.
	Type() string
}
