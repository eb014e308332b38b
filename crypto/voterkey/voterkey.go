// Package voterkey derives voter keypairs on the BabyJubJub curve from user
// provided secrets. The same secret always derives the same keypair, so a
// voter can recover their key on any device without the platform storing any
// secret material.
package voterkey

import (
	"crypto/sha256"
	"fmt"
	"math/big"

	"github.com/yaksetig/votex-sub001/crypto"
	"github.com/yaksetig/votex-sub001/crypto/ecc"
)

// DomainTag separates voter key derivation from any other use of the same
// secret. Changing it invalidates every derived key.
const DomainTag = "votex/v1/voter-key"

// NullifierDomainTag separates vote nullifier derivation from key
// derivation, so a nullifier can never collide with a derived scalar.
const NullifierDomainTag = "votex/v1/vote-nullifier"

var (
	// ErrEmptySecret is returned when the provided secret is empty.
	ErrEmptySecret = fmt.Errorf("secret must not be empty")

	// ErrZeroScalar is returned when the derived private key is zero. The
	// secret cannot be used and the caller must pick a different one.
	ErrZeroScalar = fmt.Errorf("derived private key is zero")

	// ErrKeypairMismatch is returned when the derivation self check fails,
	// meaning the public key does not correspond to the private key.
	ErrKeypairMismatch = fmt.Errorf("public key does not match private key")
)

// KeyPair holds a voter private scalar and the matching public key point.
type KeyPair struct {
	privateKey *big.Int
	publicKey  ecc.Point
}

// FromSecret derives a keypair from the secret on the curve of the given
// point:
//
//	sk = H(secret || DomainTag) mod order
//	pk = sk * G
//
// The derivation is verified before the keypair is returned, so a non-nil
// result is always internally consistent.
func FromSecret(curve ecc.Point, secret []byte) (*KeyPair, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	h := sha256.New()
	h.Write(secret)
	h.Write([]byte(DomainTag))
	sk := new(big.Int).SetBytes(h.Sum(nil))
	sk.Mod(sk, curve.Order())
	if sk.Sign() == 0 {
		return nil, ErrZeroScalar
	}

	pk := curve.New()
	pk.ScalarBaseMult(sk)
	if !pk.IsOnCurve() {
		return nil, fmt.Errorf("derived public key is not on the curve")
	}

	kp := &KeyPair{privateKey: sk, publicKey: pk}
	if err := kp.Verify(); err != nil {
		return nil, err
	}
	return kp, nil
}

// PrivateKey returns the private scalar.
func (k *KeyPair) PrivateKey() *big.Int {
	return k.privateKey
}

// PublicKey returns the public key point.
func (k *KeyPair) PublicKey() ecc.Point {
	return k.publicKey
}

// Verify checks that the public key corresponds to the private scalar. It
// returns ErrKeypairMismatch when the keypair is inconsistent.
func (k *KeyPair) Verify() error {
	expected := k.publicKey.New()
	expected.ScalarBaseMult(k.privateKey)
	if !expected.Equal(k.publicKey) {
		return ErrKeypairMismatch
	}
	return nil
}

// SignalHash returns the signal hash of the public key of the keypair.
func (k *KeyPair) SignalHash() []byte {
	return HashSignal(k.publicKey)
}

// VoteNullifier derives the vote nullifier of the keypair for one election:
//
//	H(NullifierDomainTag || sk || electionID)
//
// with the private scalar serialized as a 32 byte big-endian value. The
// nullifier marks a vote as spent without linking it to the public key, and
// only the holder of the secret can reproduce it.
func (k *KeyPair) VoteNullifier(electionID []byte) []byte {
	h := sha256.New()
	h.Write([]byte(NullifierDomainTag))
	h.Write(crypto.BigIntToBytes(k.privateKey))
	h.Write(electionID)
	return h.Sum(nil)
}

// HashSignal computes the public identifier of a voter key:
//
//	H(pk.X || pk.Y)
//
// with both coordinates serialized as 32 byte big-endian values. The hash
// identifies a voter in rosters and tally results without exposing the raw
// curve coordinates.
func HashSignal(publicKey ecc.Point) []byte {
	x, y := publicKey.Point()
	h := sha256.New()
	h.Write(crypto.BigIntToBytes(x))
	h.Write(crypto.BigIntToBytes(y))
	return h.Sum(nil)
}
