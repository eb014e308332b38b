package nullifierproof

import (
	"github.com/yaksetig/votex-sub001/circuits"
	"github.com/yaksetig/votex-sub001/config"
	"github.com/yaksetig/votex-sub001/types"
)

// Artifacts contains the circuit artifacts for the nullifier proof circuit:
// the circom witness calculator wasm, the Groth16 proving key and the
// verification key. Proving happens on the submitter side, so all three
// artifacts are needed locally.
var Artifacts = circuits.NewCircuitArtifacts(
	&circuits.Artifact{
		Name:      "nullifier-proof wasm",
		RemoteURL: config.NullifierProofCircuitURL,
		Hash:      types.HexStringToHexBytesMustUnmarshal(config.NullifierProofCircuitHash),
	},
	&circuits.Artifact{
		Name:      "nullifier-proof proving key",
		RemoteURL: config.NullifierProofProvingKeyURL,
		Hash:      types.HexStringToHexBytesMustUnmarshal(config.NullifierProofProvingKeyHash),
	},
	&circuits.Artifact{
		Name:      "nullifier-proof verification key",
		RemoteURL: config.NullifierProofVerificationKeyURL,
		Hash:      types.HexStringToHexBytesMustUnmarshal(config.NullifierProofVerificationKeyHash),
	})
