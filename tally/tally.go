/*
Package tally computes the nullification outcome of an election.

The tally aggregates the stored nullification ciphertexts per participant,
decrypts each aggregate in the exponent with the authority private key and
applies the parity rule: an odd number of real nullifications nullifies the
vote, an even number restores it. Repeated coercion and recant cycles
therefore cancel out without revealing how often they happened.

The authority private key is supplied per run and never stored. Every result
is derived from the stored ciphertexts and can be recomputed at any time;
reprocessing unchanged data leaves the stored rows untouched.
*/
package tally

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/yaksetig/votex-sub001/crypto/elgamal"
	"github.com/yaksetig/votex-sub001/log"
	"github.com/yaksetig/votex-sub001/storage"
	"github.com/yaksetig/votex-sub001/types"
)

var (
	// ErrWrongAuthorityKey is returned when the supplied private key is not
	// the counterpart of the election authority key.
	ErrWrongAuthorityKey = errors.New("private key does not match the election authority key")

	// ErrElectionStillOpen is returned when final results are requested for
	// an election that still accepts votes and nullifications.
	ErrElectionStillOpen = errors.New("election is still open")
)

// Tally derives nullification outcomes and vote totals from storage.
type Tally struct {
	store *storage.Storage
}

// New creates a Tally on the given storage.
func New(store *storage.Storage) *Tally {
	return &Tally{store: store}
}

// AggregateForParticipant homomorphically sums every nullification
// ciphertext addressed to the participant, across all stored batches. The
// count reports how many ciphertexts entered the sum. A participant nobody
// targeted yields a nil sum and count zero, which is a valid outcome, not a
// failure.
func (t *Tally) AggregateForParticipant(electionID, participantID types.HexBytes) (*elgamal.Ciphertext, int, error) {
	cts, err := t.store.CiphertextsForParticipant(electionID, participantID)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch ciphertexts: %w", err)
	}
	if len(cts) == 0 {
		return nil, 0, nil
	}
	sum := elgamal.NewCiphertext(t.store.Curve())
	for _, ct := range cts {
		sum.Add(sum, ct)
	}
	return sum, len(cts), nil
}

// ProcessTally computes the nullification outcome of every registered
// participant: aggregate, decrypt in the exponent, then the parity rule
// voteNullified = count mod 2 == 1.
//
// A participant whose aggregate cannot be decrypted is marked DecryptFailed
// and surfaced for manual review; the rest of the run completes normally.
// Outcomes are upserted: a rerun over unchanged ciphertexts rewrites
// nothing, so stored rows stay identical byte for byte.
func (t *Tally) ProcessTally(ctx context.Context, electionID types.HexBytes, privateKey *big.Int) ([]*types.TallyResult, error) {
	election, err := t.store.Election(electionID)
	if err != nil {
		return nil, fmt.Errorf("fetch election: %w", err)
	}
	if err := t.checkAuthorityKey(electionID, privateKey); err != nil {
		return nil, err
	}
	participants, err := t.store.Participants(electionID)
	if err != nil {
		return nil, fmt.Errorf("fetch participants: %w", err)
	}

	// the table covers the honest worst case; anything beyond it falls back
	// to a bounded baby-step giant-step search
	maxValue := uint64(election.AnonymitySetSize) * uint64(election.MaxNullifRounds)
	table := elgamal.NewDecryptionTable(t.store.Curve(), maxValue)

	results := make([]*types.TallyResult, 0, len(participants))
	nullified, failures := 0, 0
	for _, p := range participants {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sum, count, err := t.AggregateForParticipant(electionID, p.ID)
		if err != nil {
			return nil, err
		}
		result := &types.TallyResult{
			ElectionID:    electionID,
			ParticipantID: p.ID,
		}
		if count > 0 {
			value, ok := t.decryptCount(sum, privateKey, table, uint64(count))
			if !ok {
				result.DecryptFailed = true
				failures++
				log.Warnw("could not decrypt aggregated ciphertext",
					"electionId", electionID.String(),
					"participantId", p.ID.String(),
					"ciphertexts", count)
			} else {
				result.NullificationCount = value
				result.VoteNullified = value%2 == 1
				if result.VoteNullified {
					nullified++
				}
			}
		}
		stored, err := t.upsertResult(result)
		if err != nil {
			return nil, err
		}
		results = append(results, stored)
	}
	log.Infow("tally processed",
		"electionId", electionID.String(),
		"participants", len(results),
		"nullified", nullified,
		"decryptFailures", failures)
	return results, nil
}

// CalculateFinalResults derives the vote totals of an election from the cast
// votes and the stored tally outcomes. Preliminary counts every vote, Final
// only the votes of participants whose vote was not nullified, and
// NullifiedCount the votes excluded in between, so the preliminary total
// always equals the final total plus the nullified count. Votes of
// participants with an unresolved aggregate count as excluded.
//
// Results are only computed once the voting period is over. The stored
// totals are overwritten on every call and the election moves to the
// tallied state.
func (t *Tally) CalculateFinalResults(electionID types.HexBytes) (*types.ElectionResults, error) {
	election, err := t.store.Election(electionID)
	if err != nil {
		return nil, fmt.Errorf("fetch election: %w", err)
	}
	if election.Status == types.ElectionStatusOpen {
		return nil, ErrElectionStillOpen
	}
	votes, err := t.store.Votes(electionID)
	if err != nil {
		return nil, fmt.Errorf("fetch votes: %w", err)
	}

	res := &types.ElectionResults{ElectionID: electionID}
	for _, v := range votes {
		res.Preliminary[v.Choice]++
		outcome, err := t.store.TallyResult(electionID, v.ParticipantID)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			// never processed by a tally run, so never targeted
			res.Final[v.Choice]++
		case err != nil:
			return nil, fmt.Errorf("fetch tally result: %w", err)
		case outcome.VoteNullified || outcome.DecryptFailed:
			res.NullifiedCount++
		default:
			res.Final[v.Choice]++
		}
	}
	res.ComputedAt = time.Now()
	if err := t.store.SetElectionResults(res); err != nil {
		return nil, fmt.Errorf("store election results: %w", err)
	}
	if election.Status == types.ElectionStatusEnded {
		if err := t.store.UpdateElection(electionID,
			storage.ElectionUpdateCallbackStatus(types.ElectionStatusTallied)); err != nil {
			log.Warnw("could not mark election as tallied",
				"electionId", electionID.String(), "error", err.Error())
		}
	}
	log.Infow("election results computed",
		"electionId", electionID.String(),
		"preliminary", res.Preliminary,
		"final", res.Final,
		"nullified", res.NullifiedCount)
	return res, nil
}

// checkAuthorityKey verifies that the supplied private key is the
// counterpart of the stored election authority key. Running the tally with
// the wrong key would store garbage counters for every participant.
func (t *Tally) checkAuthorityKey(electionID types.HexBytes, privateKey *big.Int) error {
	if privateKey == nil || privateKey.Sign() <= 0 {
		return fmt.Errorf("empty or negative private key")
	}
	authorityPub, err := t.store.AuthorityKey(electionID)
	if err != nil {
		return err
	}
	derived := t.store.Curve().New()
	derived.ScalarBaseMult(privateKey)
	if !derived.Equal(authorityPub) {
		return ErrWrongAuthorityKey
	}
	return nil
}

// decryptCount recovers the aggregated nullification counter from a sum of
// count bit ciphertexts. The plaintext can never exceed count, so when the
// table interval is too small the search widens to [0, count] with baby-step
// giant-step. A miss inside a covered interval means the aggregate does not
// encrypt a sum of bits at all.
func (t *Tally) decryptCount(sum *elgamal.Ciphertext, privateKey *big.Int, table *elgamal.DecryptionTable, count uint64) (uint64, bool) {
	value, found, err := elgamal.DecryptInExponent(sum, privateKey, table)
	if err != nil {
		return 0, false
	}
	if found {
		return value, true
	}
	if count <= table.MaxValue() {
		return 0, false
	}
	_, m, err := elgamal.Decrypt(t.store.Curve(), privateKey, sum.C1, sum.C2, count)
	if err != nil {
		return 0, false
	}
	return m.Uint64(), true
}

// upsertResult stores a tally outcome unless an identical one is already
// stored, in which case the stored row is returned untouched with its
// original timestamp.
func (t *Tally) upsertResult(result *types.TallyResult) (*types.TallyResult, error) {
	existing, err := t.store.TallyResult(result.ElectionID, result.ParticipantID)
	if err == nil {
		if existing.NullificationCount == result.NullificationCount &&
			existing.VoteNullified == result.VoteNullified &&
			existing.DecryptFailed == result.DecryptFailed {
			return existing, nil
		}
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("fetch tally result: %w", err)
	}
	result.ProcessedAt = time.Now()
	if err := t.store.SetTallyResult(result); err != nil {
		return nil, err
	}
	return result, nil
}
