package types

import (
	"fmt"
	"strings"
	"time"
)

// NumOptions is the number of choices an election offers. The tally protocol
// only supports two-option elections, so this is fixed.
const NumOptions = 2

// ElectionStatus represents the lifecycle stage of an election.
type ElectionStatus int

const (
	// ElectionStatusOpen means the election accepts votes and nullification
	// batches.
	ElectionStatusOpen ElectionStatus = iota
	// ElectionStatusEnded means the voting period is over and the election
	// is waiting for the authority to run the tally.
	ElectionStatusEnded
	// ElectionStatusTallied means final results have been computed and
	// stored.
	ElectionStatusTallied
)

// String returns a human readable representation of the election status.
func (s ElectionStatus) String() string {
	switch s {
	case ElectionStatusOpen:
		return "open"
	case ElectionStatusEnded:
		return "ended"
	case ElectionStatusTallied:
		return "tallied"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// EncryptionKey contains the public key used to encrypt the nullification
// ciphertexts of an election. The key is a point on the elliptic curve,
// decomposed in its coordinates. It also may contain the private key, but it
// is never exported in the JSON: the authority keeps it offline and only
// supplies it for the tally step.
type EncryptionKey struct {
	X          *BigInt `json:"publicKeyX"`
	Y          *BigInt `json:"publicKeyY"`
	PrivateKey *BigInt `json:"-"`
}

// Valid checks that both public coordinates are present.
func (k *EncryptionKey) Valid() bool {
	return k != nil && k.X != nil && k.Y != nil
}

// Election is the struct that contains the information of an election. It
// includes the two option labels, the authority encryption key, the
// k-anonymity parameters and the voting period.
type Election struct {
	ID               HexBytes           `json:"electionId"`
	Question         string             `json:"question"`
	Options          [NumOptions]string `json:"options"`
	AuthorityKey     EncryptionKey      `json:"authorityKey"`
	AnonymitySetSize int                `json:"anonymitySetSize"`
	MaxNullifRounds  int                `json:"maxNullificationRounds"`
	Status           ElectionStatus     `json:"status"`
	StartDate        time.Time          `json:"startDate"`
	EndDate          time.Time          `json:"endDate"`
}

// Valid method checks if the Election contains everything needed to operate
// on it. It does not check the status nor the dates.
func (e *Election) Valid() bool {
	if e == nil || len(e.ID) == 0 {
		return false
	}
	if !e.AuthorityKey.Valid() {
		return false
	}
	return e.AnonymitySetSize > 0 && e.MaxNullifRounds > 0
}

// String builds a human readable representation of the election.
func (e *Election) String() string {
	s := strings.Builder{}
	s.WriteString("Election{")
	s.WriteString("ID: " + e.ID.String() + ", ")
	s.WriteString("Question: " + e.Question + ", ")
	s.WriteString(fmt.Sprintf("Status: %s, ", e.Status))
	s.WriteString(fmt.Sprintf("AnonymitySetSize: %d, ", e.AnonymitySetSize))
	s.WriteString("EndDate: " + e.EndDate.String())
	s.WriteString("}")
	return s.String()
}

// Participant is the struct that binds a voter public key to an election.
// Created once per (voter, election) at first interaction and immutable
// thereafter. The participant set is the universe from which k-anonymity
// cohorts are drawn.
type Participant struct {
	ElectionID HexBytes  `json:"electionId"`
	ID         HexBytes  `json:"participantId"`
	PublicKeyX *BigInt   `json:"publicKeyX"`
	PublicKeyY *BigInt   `json:"publicKeyY"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Valid checks that the participant has an identifier and a complete public
// key.
func (p *Participant) Valid() bool {
	return p != nil && len(p.ElectionID) > 0 && len(p.ID) > 0 &&
		p.PublicKeyX != nil && p.PublicKeyY != nil
}

// Vote is the struct that contains a cast vote. The nullifier is derived from
// the voter key and the election identifier and prevents the same voter from
// voting twice without revealing which voter it is. The signature covers the
// election identifier and the chosen option.
type Vote struct {
	ElectionID    HexBytes  `json:"electionId"`
	ParticipantID HexBytes  `json:"participantId"`
	Nullifier     HexBytes  `json:"nullifier"`
	Choice        int       `json:"choice"`
	Signature     HexBytes  `json:"signature"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Valid method checks if the Vote is well formed: identifiers present, the
// choice inside the two-option range and a non-empty signature.
func (v *Vote) Valid() bool {
	if v == nil || len(v.ElectionID) == 0 || len(v.ParticipantID) == 0 {
		return false
	}
	if len(v.Nullifier) == 0 || len(v.Signature) == 0 {
		return false
	}
	return v.Choice >= 0 && v.Choice < NumOptions
}

// SignedMessage returns the byte message covered by the vote signature: the
// hex election identifier followed by the decimal choice. Client and server
// must build the exact same message for the signature to verify.
func (v *Vote) SignedMessage() []byte {
	return fmt.Appendf(nil, "%s%d", v.ElectionID.String(), v.Choice)
}

// String builds a human readable representation of the vote. The signature is
// omitted.
func (v *Vote) String() string {
	s := strings.Builder{}
	s.WriteString("Vote{")
	s.WriteString("ElectionID: " + v.ElectionID.String() + ", ")
	s.WriteString("ParticipantID: " + v.ParticipantID.String() + ", ")
	s.WriteString("Nullifier: " + v.Nullifier.String() + ", ")
	s.WriteString(fmt.Sprintf("Choice: %d", v.Choice))
	s.WriteString("}")
	return s.String()
}

// CircuitProof is the output of the external proving circuit: the Groth16
// proof and the public signals, both as the JSON documents produced by the
// prover.
type CircuitProof struct {
	Proof         string `json:"proof"`
	PublicSignals string `json:"publicSignals"`
}

// Valid checks that both proof documents are present.
func (p *CircuitProof) Valid() bool {
	return p != nil && len(p.Proof) > 0 && len(p.PublicSignals) > 0
}

// TallyResult is the per-participant outcome of the nullification tally. It
// is derived, never independently authored, and recomputable from the stored
// ciphertexts at any time. DecryptFailed marks participants whose aggregated
// ciphertext could not be recovered within the lookup bound; those are
// surfaced for manual review without aborting the rest of the tally.
type TallyResult struct {
	ElectionID         HexBytes  `json:"electionId"`
	ParticipantID      HexBytes  `json:"participantId"`
	NullificationCount uint64    `json:"nullificationCount"`
	VoteNullified      bool      `json:"voteNullified"`
	DecryptFailed      bool      `json:"decryptFailed"`
	ProcessedAt        time.Time `json:"processedAt"`
}

// String builds a human readable representation of the tally result.
func (r *TallyResult) String() string {
	s := strings.Builder{}
	s.WriteString("TallyResult{")
	s.WriteString("ParticipantID: " + r.ParticipantID.String() + ", ")
	s.WriteString(fmt.Sprintf("NullificationCount: %d, ", r.NullificationCount))
	s.WriteString(fmt.Sprintf("VoteNullified: %t, ", r.VoteNullified))
	s.WriteString(fmt.Sprintf("DecryptFailed: %t", r.DecryptFailed))
	s.WriteString("}")
	return s.String()
}

// ElectionResults contains the vote totals of an election. Preliminary counts
// every cast vote per option, Final counts only the votes of participants
// whose vote was not nullified. Recomputing over unchanged data reproduces
// the same numbers.
type ElectionResults struct {
	ElectionID     HexBytes           `json:"electionId"`
	Preliminary    [NumOptions]uint64 `json:"preliminary"`
	Final          [NumOptions]uint64 `json:"final"`
	NullifiedCount uint64             `json:"nullifiedCount"`
	ComputedAt     time.Time          `json:"computedAt"`
}
