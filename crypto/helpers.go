// Package crypto provides shared cryptographic helpers for the voting
// components. It includes functions for working with finite fields and for
// fixed width serialization of field elements.
package crypto

import "math/big"

// ScalarSize is the standard size in bytes for serialized field elements.
const ScalarSize = 32 // bytes

// BigIntToFFBytes reduces the input into the field provided and returns its
// fixed width big-endian representation. Hash transcripts and circuit inputs
// expect field elements in this form.
func BigIntToFFBytes(input, field *big.Int) []byte {
	return BigIntToBytes(BigToFF(field, input))
}

// BigIntToBytes converts a big.Int to a byte slice of exactly ScalarSize
// bytes in big-endian form. Shorter values are left padded with zeros, longer
// values are truncated to the last ScalarSize bytes.
func BigIntToBytes(input *big.Int) []byte {
	return PadScalar(input.Bytes())
}

// PadScalar pads the input byte slice to a length of ScalarSize bytes. If the
// input is shorter, it prepends zeros until the length is ScalarSize. If the
// input is longer, it truncates it to the last ScalarSize bytes.
func PadScalar(input []byte) []byte {
	if len(input) < ScalarSize {
		padded := make([]byte, ScalarSize)
		copy(padded[ScalarSize-len(input):], input)
		return padded
	}
	if len(input) > ScalarSize {
		return input[len(input)-ScalarSize:]
	}
	return input
}

// BigToFF function returns the finite field representation of the big.Int
// provided. It uses the field modulus to represent the provided number.
func BigToFF(field, iv *big.Int) *big.Int {
	z := big.NewInt(0)
	if c := iv.Cmp(field); c == 0 {
		return z
	} else if c != 1 && iv.Cmp(z) != -1 {
		return iv
	}
	return z.Mod(iv, field)
}
