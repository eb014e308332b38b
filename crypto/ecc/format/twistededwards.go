// Package format provides helper functions to transform BabyJubJub points
// (x, y) from TwistedEdwards to Reduced TwistedEdwards and vice versa. These
// functions are required because gnark-crypto uses the Reduced TwistedEdwards
// formula while iden3 uses the standard TwistedEdwards formula.
// See https://github.com/bellesmarta/baby_jubjub for more information.
package format

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

var (
	scalingFactor, _ = new(big.Int).SetString("6360561867910373094066688120553762416144456282423235903351243436111059670888", 10)
	negScalingFactor fr.Element
	negScalingInv    fr.Element
	negScalingBig    = new(big.Int)
	negScalingInvBig = new(big.Int)
)

func init() {
	var f fr.Element
	f.SetBigInt(scalingFactor)
	negScalingFactor.Neg(&f)
	negScalingInv.Inverse(&negScalingFactor)
	negScalingFactor.BigInt(negScalingBig)
	negScalingInv.BigInt(negScalingInvBig)
}

// FromRTEtoTE converts a point from Reduced TwistedEdwards to TwistedEdwards
// coordinates (from gnark-crypto to iden3). It applies the transformation:
//
//	x = x'/(-f)
//	y = y'
func FromRTEtoTE(x, y *big.Int) (*big.Int, *big.Int) {
	xRTE := new(fr.Element)
	xRTE.SetBigInt(x)
	xTE := new(fr.Element)
	xTE.Mul(xRTE, &negScalingInv)

	xTEBigInt := new(big.Int)
	xTE.BigInt(xTEBigInt)
	return xTEBigInt, y
}

// FromTEtoRTE converts a point from TwistedEdwards to Reduced TwistedEdwards
// coordinates (from iden3 to gnark-crypto). It applies the transformation:
//
//	x' = x*(-f)
//	y' = y
func FromTEtoRTE(x, y *big.Int) (*big.Int, *big.Int) {
	xTE := new(fr.Element).SetBigInt(x)
	xRTE := new(fr.Element)
	xRTE.Mul(xTE, &negScalingFactor)

	xRTEBigInt := new(big.Int)
	xRTE.BigInt(xRTEBigInt)
	return xRTEBigInt, y
}
