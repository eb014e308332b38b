// Package elgamal implements ElGamal encryption in the exponent over an
// injected elliptic curve. Plaintexts are single bits, so homomorphic sums of
// many ciphertexts stay inside a small interval that can be recovered with a
// precomputed lookup table or with baby-step giant-step.
package elgamal

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"math/big"

	"github.com/yaksetig/votex-sub001/crypto"
	"github.com/yaksetig/votex-sub001/crypto/ecc"
)

// RandK generates a random scalar for encryption, inside the scalar subgroup
// of the provided curve and never zero.
func RandK(curve ecc.Point) (*big.Int, error) {
	order := curve.Order()
	for {
		kBytes := make([]byte, 32)
		if _, err := rand.Read(kBytes); err != nil {
			return nil, fmt.Errorf("failed to generate random k: %v", err)
		}
		k := crypto.BigToFF(order, new(big.Int).SetBytes(kBytes))
		if k.Sign() != 0 {
			return k, nil
		}
	}
}

// DeterministicK derives the encryption randomness from the caller's key
// material, binding the ciphertext to the keypair:
//
//	k = H(sk || pk.X || pk.Y || context...) mod order
//
// The same keypair and context always produce the same k, so a submitter can
// later reconstruct the exact ciphertexts they sent without storing any local
// state. Distinct context byte strings yield independent k values, one per
// use of the keypair.
func DeterministicK(privateKey *big.Int, publicKey ecc.Point, context ...[]byte) (*big.Int, error) {
	if privateKey == nil || privateKey.Sign() <= 0 {
		return nil, fmt.Errorf("empty or negative private key")
	}
	if publicKey == nil || !publicKey.IsOnCurve() {
		return nil, fmt.Errorf("public key is not on the curve")
	}
	x, y := publicKey.Point()
	h := sha256.New()
	h.Write(privateKey.Bytes())
	h.Write(x.Bytes())
	h.Write(y.Bytes())
	for _, ctx := range context {
		h.Write(ctx)
	}
	k := new(big.Int).SetBytes(h.Sum(nil))
	return k.Mod(k, publicKey.Order()), nil
}

// Encrypt encrypts a binary message using the public key provided as elliptic
// curve point. It generates a random k and returns the two points that
// represent the encrypted message and the random k used to encrypt it.
func Encrypt(publicKey ecc.Point, msg *big.Int) (ecc.Point, ecc.Point, *big.Int, error) {
	k, err := RandK(publicKey)
	if err != nil {
		return nil, nil, nil, err
	}
	c1, c2, err := EncryptWithK(publicKey, msg, k)
	if err != nil {
		return nil, nil, nil, err
	}
	return c1, c2, k, nil
}

// EncryptWithK encrypts a binary message using the public key and the
// randomness k provided. It returns the two points that represent the
// encrypted message. Messages other than 0 and 1 are rejected.
func EncryptWithK(pubKey ecc.Point, msg, k *big.Int) (ecc.Point, ecc.Point, error) {
	if msg == nil || msg.Sign() < 0 || msg.Cmp(big.NewInt(1)) > 0 {
		return nil, nil, ErrInvalidPlaintext
	}
	if k == nil || k.Sign() == 0 {
		return nil, nil, fmt.Errorf("empty encryption randomness")
	}
	// compute C1 = k * G
	c1 := pubKey.New()
	c1.ScalarBaseMult(k)
	// compute s = k * pubKey
	s := pubKey.New()
	s.ScalarMult(pubKey, k)
	// encode message as point M = message * G
	m := pubKey.New()
	m.ScalarBaseMult(msg)
	// compute C2 = M + s
	c2 := pubKey.New()
	c2.Add(m, s)
	return c1, c2, nil
}

// GenerateKey generates a new public/private ElGamal encryption key pair.
func GenerateKey(curve ecc.Point) (publicKey ecc.Point, privateKey *big.Int, err error) {
	order := curve.Order()
	d, err := rand.Int(rand.Reader, order)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate private key scalar: %v", err)
	}
	if d.Sign() == 0 {
		d = big.NewInt(1) // avoid zero private keys
	}
	publicKey = curve.New()
	publicKey.SetGenerator()
	publicKey.ScalarMult(publicKey, d)
	return publicKey, d, nil
}

// plaintextPoint recovers the plaintext point M = c2 - d*c1 from a ciphertext
// using the secret key d.
func plaintextPoint(privateKey *big.Int, c1, c2 ecc.Point) ecc.Point {
	M := c2.New()
	M.Set(c2)
	tmp := c1.New()
	tmp.ScalarMult(c1, privateKey) // tmp = d*c1
	tmp.Neg(tmp)                   //       -d*c1
	M.Add(M, tmp)                  // M = c2 - d*c1
	return M
}

// Decrypt decrypts (c1,c2) with the secret key d and searches the discrete
// log m in the interval [0,maxMessage].
//
// It always returns the plaintext point M = c2 - d*c1. If m is not contained
// in the requested interval an error is returned.
func Decrypt(
	publicKey ecc.Point, // the curve generator G is obtained from this value
	privateKey *big.Int, // secret scalar d
	c1, c2 ecc.Point, // ciphertext
	maxMessage uint64, // inclusive upper bound for m
) (M ecc.Point, message *big.Int, err error) {
	if privateKey == nil || privateKey.Sign() <= 0 {
		return nil, nil, fmt.Errorf("Decrypt: empty or negative private key")
	}
	if maxMessage == 0 {
		return nil, nil, fmt.Errorf("Decrypt: maxMessage == 0")
	}

	M = plaintextPoint(privateKey, c1, c2)

	// solve M == m*G on the small interval
	G := publicKey.New()
	G.SetGenerator()
	message, err = BabyStepGiantStepECC(M, G, maxMessage)
	if err != nil {
		return nil, nil, err
	}
	return M, message, nil
}

// BabyStepGiantStepECC implements the baby-step giant-step algorithm for a
// known bounded interval.
//
// It is deterministic (so it always finds m when it exists) and uses a
// compressed point encoding as hash-map key.
func BabyStepGiantStepECC(beta, alpha ecc.Point, max uint64) (*big.Int, error) {
	// compute m = ceil(sqrt(max)) using integer arithmetic only
	m := new(big.Int).Sqrt(new(big.Int).SetUint64(max))
	if new(big.Int).Mul(m, m).Cmp(new(big.Int).SetUint64(max)) < 0 {
		m.Add(m, big.NewInt(1))
	}
	mU64 := m.Uint64()

	// baby steps
	baby := alpha.New()
	baby.SetZero()
	table := make(map[string]uint64, mU64+1)

	for j := uint64(0); j < mU64; j++ { // j in [0,m-1]
		table[pointKey(baby)] = j
		baby.Add(baby, alpha) // (j+1)*G
	}

	// prepare the constant giant-step increment
	c := alpha.New()
	c.ScalarMult(alpha, m) //  m*G
	c.Neg(c)               // -m*G

	// giant steps
	giant := beta.New()
	giant.Set(beta)
	for i := uint64(0); i <= mU64; i++ { // i in [0,m]
		if j, ok := table[pointKey(giant)]; ok {
			x := new(big.Int).SetUint64(i*mU64 + j)
			if x.Cmp(new(big.Int).SetUint64(max)) <= 0 {
				return x, nil
			}
		}
		giant.Add(giant, c) // beta <- beta - m*G
	}
	return nil, fmt.Errorf("bsgs: discrete log not found in interval")
}

// pointKey returns a compact encoding to use as map key.
func pointKey(p ecc.Point) string {
	return string(p.Marshal())
}

// CheckK checks if a given k was used to produce the ciphertext component c1.
// It returns true if c1 == k * G, false otherwise. This does not require
// decrypting the message or computing the discrete log.
func CheckK(c1 ecc.Point, k *big.Int) bool {
	KCheck := c1.New()
	KCheck.ScalarBaseMult(k)
	return KCheck.Equal(c1)
}
