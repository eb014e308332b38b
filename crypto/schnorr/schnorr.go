// Package schnorr implements Schnorr signatures over an injected elliptic
// curve. Nonces are derived deterministically from the private key and the
// message, so signing never consumes external randomness and the same message
// always produces the same signature.
package schnorr

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/yaksetig/votex-sub001/crypto"
	"github.com/yaksetig/votex-sub001/crypto/ecc"
)

const (
	// SignatureLength is the size of a serialized signature in bytes: the
	// compressed commitment point followed by the 32 byte response scalar.
	SignatureLength = 64

	nonceTag     = "votex/v1/schnorr-nonce"
	challengeTag = "votex/v1/schnorr-challenge"
)

// ErrMalformedSignature is returned when a serialized signature cannot be
// decoded into a valid signature.
var ErrMalformedSignature = fmt.Errorf("malformed signature")

// Signature represents a Schnorr signature with the commitment point R and
// the response scalar S.
type Signature struct {
	R ecc.Point `json:"r"`
	S *big.Int  `json:"s"`
}

// Valid method checks if the Signature is well formed: both components are
// present, R lies on the curve and S is a canonical scalar.
func (sig *Signature) Valid() bool {
	if sig == nil || sig.R == nil || sig.S == nil {
		return false
	}
	if !sig.R.IsOnCurve() {
		return false
	}
	return sig.S.Sign() >= 0 && sig.S.Cmp(sig.R.Order()) < 0
}

// Bytes returns the binary representation of the signature: the compressed R
// point followed by the S scalar as a 32 byte big-endian value.
func (sig *Signature) Bytes() []byte {
	return append(sig.R.Marshal(), crypto.BigIntToBytes(sig.S)...)
}

// String returns a string representation of the Signature.
func (sig *Signature) String() string {
	if sig == nil || sig.R == nil || sig.S == nil {
		return "{R: nil, S: nil}"
	}
	return fmt.Sprintf("R: %s, S: %s", sig.R.String(), sig.S.String())
}

// BytesToSignature creates a new Signature from a raw signature byte payload
// on the curve of the given point. Payloads of the wrong length or encoding
// an invalid commitment point are rejected.
func BytesToSignature(curve ecc.Point, signature []byte) (*Signature, error) {
	if len(signature) != SignatureLength {
		return nil, fmt.Errorf("%w: length is %d, expected %d", ErrMalformedSignature, len(signature), SignatureLength)
	}
	R := curve.New()
	if err := R.Unmarshal(signature[:32]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSignature, err)
	}
	s := new(big.Int).SetBytes(signature[32:])
	sig := &Signature{R: R, S: s}
	if !sig.Valid() {
		return nil, fmt.Errorf("%w: response scalar out of range", ErrMalformedSignature)
	}
	return sig, nil
}

// Sign signs a message with the private scalar on the curve of the given
// point. The nonce is derived as
//
//	r = H(nonceTag || sk || msg) mod order
//
// and the signature is (R, s) with R = r*G and s = r + sk*t mod order, where
// t is the challenge computed by hashing R, the public key and the message.
func Sign(curve ecc.Point, privateKey *big.Int, msg []byte) (*Signature, error) {
	if privateKey == nil || privateKey.Sign() <= 0 {
		return nil, fmt.Errorf("empty or negative private key")
	}
	order := curve.Order()

	r := hashToScalar(order, nonceTag, privateKey.Bytes(), msg)
	if r.Sign() == 0 {
		return nil, fmt.Errorf("degenerate nonce derived")
	}
	R := curve.New()
	R.ScalarBaseMult(r)

	publicKey := curve.New()
	publicKey.ScalarBaseMult(privateKey)
	t := challenge(order, R, publicKey, msg)

	// s = r + sk*t mod order
	s := new(big.Int).Mul(privateKey, t)
	s.Add(s, r)
	s.Mod(s, order)

	return &Signature{R: R, S: s}, nil
}

// Verify checks that sig is a valid signature of msg under publicKey by
// verifying the equation s*G == R + t*P. An invalid or off-curve input never
// produces an error, just a negative result.
func Verify(publicKey ecc.Point, msg []byte, sig *Signature) bool {
	if publicKey == nil || !publicKey.IsOnCurve() {
		return false
	}
	if !sig.Valid() {
		return false
	}
	order := publicKey.Order()
	t := challenge(order, sig.R, publicKey, msg)

	// left = s*G
	left := publicKey.New()
	left.ScalarBaseMult(sig.S)

	// right = R + t*P
	right := publicKey.New()
	right.ScalarMult(publicKey, t)
	right.Add(sig.R, right)

	return left.Equal(right)
}

// challenge computes the Fiat-Shamir challenge binding the commitment, the
// public key and the message:
//
//	t = H(challengeTag || R.X || P.X || msg) mod order
func challenge(order *big.Int, R, publicKey ecc.Point, msg []byte) *big.Int {
	rx, _ := R.Point()
	px, _ := publicKey.Point()
	return hashToScalar(order, challengeTag, crypto.BigIntToBytes(rx), crypto.BigIntToBytes(px), msg)
}

// hashToScalar hashes the domain tag and the length-prefixed inputs with
// SHA-256 and reduces the digest modulo order.
func hashToScalar(order *big.Int, tag string, inputs ...[]byte) *big.Int {
	h := sha256.New()
	h.Write([]byte(tag))
	for _, input := range inputs {
		var lenBuf [4]byte
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(input)))
		h.Write(lenBuf[:])
		h.Write(input)
	}
	digest := new(big.Int).SetBytes(h.Sum(nil))
	return digest.Mod(digest, order)
}
