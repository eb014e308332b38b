package elgamal

import (
	"fmt"
	"math/big"

	"github.com/yaksetig/votex-sub001/crypto/ecc"
)

// DecryptionTable maps the points 0*G .. maxValue*G to their discrete logs,
// so homomorphic sums inside the interval decrypt with a single map lookup.
// The table depends only on the curve, never on any key, and can be shared by
// any number of concurrent readers once built.
type DecryptionTable struct {
	maxValue uint64
	entries  map[string]uint64
}

// NewDecryptionTable precomputes the lookup table for the interval
// [0, maxValue] on the curve of the given point.
func NewDecryptionTable(curve ecc.Point, maxValue uint64) *DecryptionTable {
	t := &DecryptionTable{
		maxValue: maxValue,
		entries:  make(map[string]uint64, maxValue+1),
	}
	gen := curve.New()
	gen.SetGenerator()
	acc := curve.New()
	acc.SetZero()
	for v := uint64(0); v <= maxValue; v++ {
		t.entries[pointKey(acc)] = v
		acc.Add(acc, gen)
	}
	return t
}

// MaxValue returns the inclusive upper bound of the table interval.
func (t *DecryptionTable) MaxValue() uint64 {
	return t.maxValue
}

// Lookup returns the discrete log of the given point if it lies inside the
// table interval.
func (t *DecryptionTable) Lookup(p ecc.Point) (uint64, bool) {
	v, ok := t.entries[pointKey(p)]
	return v, ok
}

// DecryptInExponent decrypts the ciphertext with the secret key and resolves
// the plaintext with the lookup table. A plaintext outside the table interval
// is not an error: the value is reported as not found, and the caller decides
// whether to retry with a wider search.
func DecryptInExponent(c *Ciphertext, privateKey *big.Int, table *DecryptionTable) (uint64, bool, error) {
	if c == nil || c.C1 == nil || c.C2 == nil {
		return 0, false, fmt.Errorf("nil ciphertext")
	}
	if privateKey == nil || privateKey.Sign() <= 0 {
		return 0, false, fmt.Errorf("empty or negative private key")
	}
	if table == nil {
		return 0, false, fmt.Errorf("nil decryption table")
	}
	M := plaintextPoint(privateKey, c.C1, c.C2)
	v, ok := table.Lookup(M)
	if !ok {
		return 0, false, nil
	}
	return v, true, nil
}
