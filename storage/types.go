package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/yaksetig/votex-sub001/crypto/ecc"
	"github.com/yaksetig/votex-sub001/crypto/elgamal"
	"github.com/yaksetig/votex-sub001/log"
	"github.com/yaksetig/votex-sub001/types"
)

// NullificationBatchItem is one slot of a nullification batch. It carries the
// encrypted nullification bit for one target participant, the ciphertext in
// its serialized form, and the zero-knowledge proof that the ciphertext
// encrypts a valid bit. Nothing in the item tells apart the submitter's own
// slot from a cover slot.
type NullificationBatchItem struct {
	TargetParticipantID types.HexBytes      `json:"targetParticipantId"`
	Ciphertext          types.HexBytes      `json:"ciphertext"`
	Proof               *types.CircuitProof `json:"proof"`
}

// Valid method checks if the item is well formed: a target identifier, a
// ciphertext of the exact serialized size and a complete proof.
func (i *NullificationBatchItem) Valid() bool {
	if i == nil || len(i.TargetParticipantID) == 0 {
		log.Debug("batch item is not valid, missing target")
		return false
	}
	if len(i.Ciphertext) != elgamal.SizeCiphertext {
		log.Debugf("batch item ciphertext has %d bytes, expected %d",
			len(i.Ciphertext), elgamal.SizeCiphertext)
		return false
	}
	if !i.Proof.Valid() {
		log.Debug("batch item proof is not valid")
		return false
	}
	return true
}

// DecodeCiphertext reconstructs the ciphertext of the item on the given
// curve. Serialized bytes that do not describe points on the curve are
// rejected.
func (i *NullificationBatchItem) DecodeCiphertext(curve ecc.Point) (*elgamal.Ciphertext, error) {
	ct := elgamal.NewCiphertext(curve)
	if err := ct.Deserialize(i.Ciphertext); err != nil {
		return nil, fmt.Errorf("decode batch item ciphertext: %w", err)
	}
	return ct, nil
}

// NullificationBatch is the struct that contains a stored nullification
// batch. It includes the batch identifier, the election it belongs to and the
// anonymity set of items. The submitter identity is deliberately absent: the
// stored record must not reveal which participant submitted the batch nor
// which of its slots is the real one.
type NullificationBatch struct {
	BatchID     types.HexBytes            `json:"batchId"`
	ElectionID  types.HexBytes            `json:"electionId"`
	Items       []*NullificationBatchItem `json:"items"`
	SubmittedAt time.Time                 `json:"submittedAt"`
}

// Valid method checks if the batch is well formed. A batch is valid if it
// belongs to an election, carries at least one item, every item is valid and
// no target participant appears twice.
func (b *NullificationBatch) Valid() bool {
	if b == nil || len(b.ElectionID) == 0 {
		log.Debug("batch is not valid, missing election")
		return false
	}
	if len(b.Items) == 0 {
		log.Debug("batch is not valid, no items")
		return false
	}
	seen := make(map[string]bool, len(b.Items))
	for _, item := range b.Items {
		if !item.Valid() {
			return false
		}
		target := item.TargetParticipantID.String()
		if seen[target] {
			log.Debugf("batch is not valid, duplicated target %s", target)
			return false
		}
		seen[target] = true
	}
	return true
}

// String builds a human readable representation of the batch. Item contents
// are omitted.
func (b *NullificationBatch) String() string {
	s := strings.Builder{}
	s.WriteString("NullificationBatch{")
	s.WriteString("BatchID: " + b.BatchID.String() + ", ")
	s.WriteString("ElectionID: " + b.ElectionID.String() + ", ")
	s.WriteString(fmt.Sprintf("Items: %d", len(b.Items)))
	s.WriteString("}")
	return s.String()
}
