// Package curves provides the factory for the supported elliptic curve point
// implementations. Callers obtain a point from the factory and derive every
// other point from it, so the curve backend stays an injected dependency.
package curves

import (
	"fmt"
	"slices"

	"github.com/yaksetig/votex-sub001/crypto/ecc"
	bjjGnark "github.com/yaksetig/votex-sub001/crypto/ecc/bjj_gnark"
	bjjIden3 "github.com/yaksetig/votex-sub001/crypto/ecc/bjj_iden3"
)

// DefaultCurveType is the curve implementation used when none is configured.
const DefaultCurveType = bjjIden3.CurveType

// New creates a new point of the curve implementation identified by the
// provided type string, set to the identity element. The supported types are
// listed by Curves().
func New(curveType string) (ecc.Point, error) {
	switch curveType {
	case bjjIden3.CurveType:
		return bjjIden3.New(), nil
	case bjjGnark.CurveType:
		return bjjGnark.New(), nil
	default:
		return nil, fmt.Errorf("unsupported curve type %q", curveType)
	}
}

// Curves returns the list of supported curve types.
func Curves() []string {
	return []string{
		bjjIden3.CurveType,
		bjjGnark.CurveType,
	}
}

// IsValid reports whether the given curve type is supported.
func IsValid(curveType string) bool {
	return slices.Contains(Curves(), curveType)
}
