package api

import (
	"time"

	"github.com/yaksetig/votex-sub001/types"
)

// ElectionRequest is the body of the election creation endpoint. When Seed is
// set the election identifier is derived from it deterministically, so an
// operator can precompute the identifier and retry creation idempotently.
type ElectionRequest struct {
	Seed             string                   `json:"seed,omitempty"`
	Question         string                   `json:"question"`
	Options          [types.NumOptions]string `json:"options"`
	AnonymitySetSize int                      `json:"anonymitySetSize"`
	MaxNullifRounds  int                      `json:"maxNullificationRounds"`
	StartDate        time.Time                `json:"startDate"`
	EndDate          time.Time                `json:"endDate"`
}

// ElectionResponse is returned by the election creation and retrieval
// endpoints. AuthorityPrivateKey is only present in the creation response:
// the key is generated server side, handed to the authority exactly once and
// never stored. Losing it makes the election untalliable.
type ElectionResponse struct {
	Election            *types.Election `json:"election"`
	AuthorityPrivateKey *types.BigInt   `json:"authorityPrivateKey,omitempty"`
}

// ElectionListResponse carries the identifiers of all stored elections.
type ElectionListResponse struct {
	Elections []types.HexBytes `json:"elections"`
}

// ParticipantRequest carries the public key of a voter registering for an
// election. The participant identifier is derived server side from the key
// coordinates, so the client does not choose it.
type ParticipantRequest struct {
	PublicKeyX *types.BigInt `json:"publicKeyX"`
	PublicKeyY *types.BigInt `json:"publicKeyY"`
}

// ParticipantResponse returns the derived participant identifier.
type ParticipantResponse struct {
	ParticipantID types.HexBytes `json:"participantId"`
}

// RosterResponse carries the registered participants of an election.
type RosterResponse struct {
	Participants []*types.Participant `json:"participants"`
}

// VoteRequest is the body of the vote casting endpoint. The signature covers
// the hex election identifier followed by the decimal choice, signed with the
// voter key registered for the participant.
type VoteRequest struct {
	ParticipantID types.HexBytes `json:"participantId"`
	Choice        int            `json:"choice"`
	Nullifier     types.HexBytes `json:"nullifier"`
	Signature     types.HexBytes `json:"signature"`
}

// VoteResponse confirms a stored vote.
type VoteResponse struct {
	Nullifier types.HexBytes `json:"nullifier"`
}

// VoteStatusResponse reports whether a participant has voted.
type VoteStatusResponse struct {
	Voted     bool      `json:"voted"`
	Choice    int       `json:"choice,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// NullificationItem is one slot of an assembled nullification batch: the
// target participant, the serialized ciphertext and the proof that the
// ciphertext encrypts a bit bound to the submitter key. Nothing in the item
// says whether the slot is real or a cover.
type NullificationItem struct {
	TargetID   types.HexBytes      `json:"targetId"`
	Ciphertext types.HexBytes      `json:"ciphertext"`
	Proof      *types.CircuitProof `json:"proof"`
}

// NullificationRequest is an assembled nullification batch built and proved
// on the submitter side.
type NullificationRequest struct {
	ParticipantID types.HexBytes       `json:"participantId"`
	Items         []*NullificationItem `json:"items"`
}

// NullificationResponse confirms a stored nullification batch and reports the
// round budget of the submitter.
type NullificationResponse struct {
	BatchID    types.HexBytes `json:"batchId"`
	Items      int            `json:"items"`
	RoundsUsed int            `json:"roundsUsed"`
	MaxRounds  int            `json:"maxRounds"`
}

// TallyRequest carries the authority private key for one tally run. The key
// is used for the decryption pass and discarded with the request.
type TallyRequest struct {
	AuthorityPrivateKey *types.BigInt `json:"authorityPrivateKey"`
}

// CircuitInfo points a prover at the circuit artifacts: download URLs plus
// the SHA-256 hashes the downloads are checked against.
type CircuitInfo struct {
	CircuitURL          string `json:"circuitUrl"`
	CircuitHash         string `json:"circuitHash"`
	ProvingKeyURL       string `json:"provingKeyUrl"`
	ProvingKeyHash      string `json:"provingKeyHash"`
	VerificationKeyURL  string `json:"verificationKeyUrl"`
	VerificationKeyHash string `json:"verificationKeyHash"`
}

// InfoResponse is the body of the info endpoint: everything a client needs to
// derive keys and generate nullifier proofs against this deployment.
type InfoResponse struct {
	Curve   string      `json:"curve"`
	Circuit CircuitInfo `json:"circuit"`
}
