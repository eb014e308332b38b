// Package bjj implements the BabyJubJub elliptic curve operations using the
// iden3 library. It wraps the iden3 implementation to conform to the
// ecc.Point interface.
package bjj

import (
	"encoding/json"
	"fmt"
	"math/big"
	"sync"

	"github.com/fxamacker/cbor/v2"
	babyjubjub "github.com/iden3/go-iden3-crypto/babyjub"
	"github.com/iden3/go-iden3-crypto/constants"

	curve "github.com/yaksetig/votex-sub001/crypto/ecc"
	"github.com/yaksetig/votex-sub001/types"
)

// CurveType is the identifier for the BabyJubJub curve implementation using
// the iden3 library.
const CurveType = "bjj_iden3"

// PointSize is the length in bytes of a compressed serialized point.
const PointSize = 32

// BJJ is the affine representation of a BabyJubJub group element.
type BJJ struct {
	inner *babyjubjub.Point
	lock  sync.Mutex
}

// New creates a new BJJ point set to the identity element.
func New() curve.Point {
	return &BJJ{inner: babyjubjub.NewPoint()}
}

// New creates a new BJJ point set to the identity element.
func (g *BJJ) New() curve.Point {
	return &BJJ{inner: babyjubjub.NewPoint()}
}

// Order returns the order of the BabyJubJub curve subgroup.
func (g *BJJ) Order() *big.Int {
	return new(big.Int).Set(babyjubjub.SubOrder)
}

// Add computes the addition of two curve points and stores the result in the
// receiver.
func (g *BJJ) Add(a, b curve.Point) {
	g.inner = g.inner.Projective().Add(a.(*BJJ).inner.Projective(), b.(*BJJ).inner.Projective()).Affine()
}

// SafeAdd performs thread-safe addition of two curve points.
func (g *BJJ) SafeAdd(a, b curve.Point) {
	g.lock.Lock()
	defer g.lock.Unlock()
	g.Add(a, b)
}

// ScalarMult computes the scalar multiplication of a point and stores the
// result in the receiver. The scalar must already be reduced modulo Order.
func (g *BJJ) ScalarMult(a curve.Point, scalar *big.Int) {
	g.inner = g.inner.Mul(scalar, a.(*BJJ).inner)
}

// ScalarBaseMult computes the scalar multiplication of the base point and
// stores the result in the receiver.
func (g *BJJ) ScalarBaseMult(scalar *big.Int) {
	g.inner = g.inner.Mul(scalar, babyjubjub.B8)
}

// Marshal compresses and serializes the point to a byte slice.
func (g *BJJ) Marshal() []byte {
	b := g.inner.Compress()
	return b[:]
}

// Unmarshal deserializes and decompresses a point from a byte slice. Buffers
// of the wrong length or encoding an invalid point are rejected.
func (g *BJJ) Unmarshal(buf []byte) error {
	if len(buf) != PointSize {
		return fmt.Errorf("invalid point encoding length %d, expected %d", len(buf), PointSize)
	}
	b32 := [32]byte{}
	copy(b32[:], buf)
	_, err := g.inner.Decompress(b32)
	return err
}

// MarshalJSON serializes the elliptic curve element into a JSON byte slice.
func (g *BJJ) MarshalJSON() ([]byte, error) {
	return json.Marshal([]types.BigInt{types.BigInt(*g.inner.X), types.BigInt(*g.inner.Y)})
}

// UnmarshalJSON deserializes the elliptic curve element from a JSON byte
// slice, rejecting coordinates outside the field or off the curve.
func (g *BJJ) UnmarshalJSON(buf []byte) error {
	if g.inner == nil {
		g.inner = babyjubjub.NewPoint()
	}
	var coords []types.BigInt
	if err := json.Unmarshal(buf, &coords); err != nil {
		return err
	}
	if len(coords) != 2 {
		return fmt.Errorf("expected 2 coordinates, got %d", len(coords))
	}
	return g.setValidated(coords[0].MathBigInt(), coords[1].MathBigInt())
}

// MarshalCBOR serializes the elliptic curve element into a CBOR byte slice.
func (g *BJJ) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal([]*big.Int{g.inner.X, g.inner.Y})
}

// UnmarshalCBOR deserializes the elliptic curve element from a CBOR byte
// slice, rejecting coordinates outside the field or off the curve.
func (g *BJJ) UnmarshalCBOR(buf []byte) error {
	if g.inner == nil {
		g.inner = babyjubjub.NewPoint()
	}
	var coords []*big.Int
	if err := cbor.Unmarshal(buf, &coords); err != nil {
		return err
	}
	if len(coords) != 2 {
		return fmt.Errorf("expected 2 coordinates, got %d", len(coords))
	}
	return g.setValidated(coords[0], coords[1])
}

// setValidated sets the point coordinates after checking they are canonical
// field elements and satisfy the curve equation.
func (g *BJJ) setValidated(x, y *big.Int) error {
	if x == nil || y == nil {
		return fmt.Errorf("nil coordinate")
	}
	if x.Sign() < 0 || x.Cmp(constants.Q) >= 0 || y.Sign() < 0 || y.Cmp(constants.Q) >= 0 {
		return fmt.Errorf("coordinate out of field range")
	}
	p := &babyjubjub.Point{X: x, Y: y}
	if !p.InCurve() {
		return fmt.Errorf("point is not on the curve")
	}
	g.inner.X = new(big.Int).Set(x)
	g.inner.Y = new(big.Int).Set(y)
	return nil
}

// Equal checks if two curve points are equal.
func (g *BJJ) Equal(a curve.Point) bool {
	return g.inner.X.Cmp(a.(*BJJ).inner.X) == 0 && g.inner.Y.Cmp(a.(*BJJ).inner.Y) == 0
}

// IsOnCurve reports whether the point satisfies the curve equation.
func (g *BJJ) IsOnCurve() bool {
	return g.inner.InCurve()
}

// Neg computes the negation of a curve point and stores the result in the
// receiver. On a twisted Edwards curve only the x coordinate is negated.
func (g *BJJ) Neg(a curve.Point) {
	g.Set(a)
	proj := g.inner.Projective()
	proj.X = proj.X.Neg(proj.X)
	g.inner.X = g.inner.X.Set(proj.Affine().X)
}

// SetZero sets the point to the identity element.
func (g *BJJ) SetZero() {
	p := g.inner.Projective()
	p.X.SetZero()
	p.Y.SetOne()
	p.Z.SetOne()
	g.inner = p.Affine()
}

// Set copies the value from another curve point.
func (g *BJJ) Set(a curve.Point) {
	g.inner.X = g.inner.X.Set(a.(*BJJ).inner.X)
	g.inner.Y = g.inner.Y.Set(a.(*BJJ).inner.Y)
}

// SetGenerator sets the point to the base generator of the curve.
func (g *BJJ) SetGenerator() {
	gen := babyjubjub.B8
	g.inner.X = g.inner.X.Set(gen.X)
	g.inner.Y = g.inner.Y.Set(gen.Y)
}

// String returns a string representation of the point.
func (g *BJJ) String() string {
	return fmt.Sprintf("%s,%s", g.inner.X.String(), g.inner.Y.String())
}

// Point returns the x and y coordinates of the point.
func (g *BJJ) Point() (*big.Int, *big.Int) {
	return g.inner.X, g.inner.Y
}

// BigInts returns the x and y coordinates of the point as a slice of big.Int.
func (g *BJJ) BigInts() []*big.Int {
	x, y := g.Point()
	return []*big.Int{x, y}
}

// SetPoint returns a new point with the given x and y coordinates. The
// receiver is not modified.
func (g *BJJ) SetPoint(x, y *big.Int) curve.Point {
	g = &BJJ{inner: babyjubjub.NewPoint()}
	g.inner.X = g.inner.X.Set(x)
	g.inner.Y = g.inner.Y.Set(y)
	return g
}

// Type returns the curve type identifier.
func (g *BJJ) Type() string {
	return CurveType
}
