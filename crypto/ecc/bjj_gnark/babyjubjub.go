// Package bjj implements the BabyJubJub elliptic curve operations using the
// gnark-crypto library. Coordinates exposed through the ecc.Point interface
// are always in the standard TwistedEdwards form, so points are
// interchangeable with the iden3 backed implementation.
package bjj

import (
	"encoding/json"
	"fmt"
	"math/big"
	"sync"

	babyjubjub "github.com/consensys/gnark-crypto/ecc/bn254/twistededwards"
	"github.com/fxamacker/cbor/v2"

	curve "github.com/yaksetig/votex-sub001/crypto/ecc"
	"github.com/yaksetig/votex-sub001/crypto/ecc/format"
	"github.com/yaksetig/votex-sub001/types"
)

// CurveType is the identifier for the BabyJubJub curve implementation using
// the gnark-crypto library.
const CurveType = "bjj_gnark"

// Params holds the BabyJubJub curve parameters of the gnark backend.
var Params babyjubjub.CurveParams

func init() {
	Params = babyjubjub.GetEdwardsCurve()
}

// BJJ is the affine representation of a BabyJubJub group element in the
// reduced TwistedEdwards coordinates used by gnark.
type BJJ struct {
	inner *babyjubjub.PointAffine
	lock  sync.Mutex
}

// New creates a new BJJ point set to the identity element.
func New() curve.Point {
	p := &BJJ{inner: new(babyjubjub.PointAffine)}
	p.SetZero()
	return p
}

// New creates a new BJJ point set to the identity element.
func (g *BJJ) New() curve.Point {
	return New()
}

// Order returns the order of the BabyJubJub curve subgroup.
func (g *BJJ) Order() *big.Int {
	return new(big.Int).Set(&Params.Order)
}

// Add performs the addition of two points and stores the result in the
// receiver.
func (g *BJJ) Add(a, b curve.Point) {
	g.inner.Add(a.(*BJJ).inner, b.(*BJJ).inner)
}

// SafeAdd performs the addition of two points with a lock on the receiver.
func (g *BJJ) SafeAdd(a, b curve.Point) {
	g.lock.Lock()
	defer g.lock.Unlock()
	g.Add(a, b)
}

// ScalarMult performs scalar multiplication of a point by a scalar. The
// scalar must already be reduced modulo Order.
func (g *BJJ) ScalarMult(a curve.Point, scalar *big.Int) {
	g.inner.ScalarMultiplication(a.(*BJJ).inner, scalar)
}

// ScalarBaseMult performs scalar multiplication using the base point.
func (g *BJJ) ScalarBaseMult(scalar *big.Int) {
	g.SetGenerator()
	g.ScalarMult(g, scalar)
}

// Marshal serializes the elliptic curve element into a byte slice using the
// gnark compressed encoding.
func (g *BJJ) Marshal() []byte {
	return g.inner.Marshal()
}

// Unmarshal deserializes the elliptic curve element from a byte slice.
func (g *BJJ) Unmarshal(buf []byte) error {
	return g.inner.Unmarshal(buf)
}

// MarshalJSON serializes the elliptic curve element into a JSON byte slice.
func (g *BJJ) MarshalJSON() ([]byte, error) {
	x, y := g.Point()
	return json.Marshal([]types.BigInt{types.BigInt(*x), types.BigInt(*y)})
}

// UnmarshalJSON deserializes the elliptic curve element from a JSON byte
// slice, rejecting coordinates that do not lie on the curve.
func (g *BJJ) UnmarshalJSON(buf []byte) error {
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
	x, y := g.Point()
	return cbor.Marshal([]*big.Int{x, y})
}

// UnmarshalCBOR deserializes the elliptic curve element from a CBOR byte
// slice, rejecting coordinates that do not lie on the curve.
func (g *BJJ) UnmarshalCBOR(buf []byte) error {
	var coords []*big.Int
	if err := cbor.Unmarshal(buf, &coords); err != nil {
		return err
	}
	if len(coords) != 2 {
		return fmt.Errorf("expected 2 coordinates, got %d", len(coords))
	}
	return g.setValidated(coords[0], coords[1])
}

// setValidated sets the point from standard TwistedEdwards coordinates after
// checking they satisfy the curve equation.
func (g *BJJ) setValidated(x, y *big.Int) error {
	if x == nil || y == nil {
		return fmt.Errorf("nil coordinate")
	}
	xRTE, yRTE := format.FromTEtoRTE(x, y)
	p := new(babyjubjub.PointAffine)
	p.X.SetBigInt(xRTE)
	p.Y.SetBigInt(yRTE)
	if !p.IsOnCurve() {
		return fmt.Errorf("point is not on the curve")
	}
	if g.inner == nil {
		g.inner = new(babyjubjub.PointAffine)
	}
	g.inner.Set(p)
	return nil
}

// Equal checks if the given point is equal to the current point.
func (g *BJJ) Equal(a curve.Point) bool {
	return g.inner.Equal(a.(*BJJ).inner)
}

// IsOnCurve reports whether the point satisfies the curve equation.
func (g *BJJ) IsOnCurve() bool {
	return g.inner.IsOnCurve()
}

// Neg negates the given point and stores the result in the receiver.
func (g *BJJ) Neg(a curve.Point) {
	g.inner.Neg(a.(*BJJ).inner)
}

// SetZero sets the current point to the identity element (0, 1).
func (g *BJJ) SetZero() {
	g.inner.X.SetZero()
	g.inner.Y.SetOne()
}

// Set sets the receiver to the value of another point.
func (g *BJJ) Set(a curve.Point) {
	g.inner.Set(a.(*BJJ).inner)
}

// SetGenerator sets the point to the BabyJubJub generator.
func (g *BJJ) SetGenerator() {
	g.inner.Set(&Params.Base)
}

// String returns a string representation of the point in standard
// TwistedEdwards coordinates.
func (g *BJJ) String() string {
	x, y := g.Point()
	return fmt.Sprintf("%s,%s", x.String(), y.String())
}

// Point returns the X and Y coordinates of the elliptic curve element in
// standard TwistedEdwards coordinates.
func (g *BJJ) Point() (*big.Int, *big.Int) {
	x, y := new(big.Int), new(big.Int)
	g.inner.X.BigInt(x)
	g.inner.Y.BigInt(y)
	return format.FromRTEtoTE(x, y)
}

// BigInts returns the X and Y coordinates of the point as a slice of big.Int.
func (g *BJJ) BigInts() []*big.Int {
	x, y := g.Point()
	return []*big.Int{x, y}
}

// SetPoint returns a new point with the given X and Y coordinates in standard
// TwistedEdwards form. The receiver is not modified.
func (g *BJJ) SetPoint(x, y *big.Int) curve.Point {
	xRTE, yRTE := format.FromTEtoRTE(x, y)
	g = &BJJ{inner: new(babyjubjub.PointAffine)}
	g.inner.X.SetBigInt(xRTE)
	g.inner.Y.SetBigInt(yRTE)
	return g
}

// Type returns the curve type identifier.
func (g *BJJ) Type() string {
	return CurveType
}
