package elgamal

import "fmt"

var (
	// ErrInvalidCurveType is returned when a ciphertext references an
	// unsupported curve type.
	ErrInvalidCurveType = fmt.Errorf("invalid curve type")

	// ErrInvalidPlaintext is returned when the plaintext to encrypt is not
	// a binary value. The scheme only encrypts single bits; larger values
	// appear only as homomorphic sums.
	ErrInvalidPlaintext = fmt.Errorf("plaintext must be 0 or 1")

	// ErrMalformedCiphertext is returned when a serialized ciphertext does
	// not decode to valid curve points.
	ErrMalformedCiphertext = fmt.Errorf("malformed ciphertext")
)
