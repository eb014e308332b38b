// Package config provides configuration for circuit artifacts including URLs
// and hashes for the circuit components used by the voting platform.
package config

import "fmt"

const (
	// DefaultArtifactsBaseURL is the base URL for circuit artifacts storage
	DefaultArtifactsBaseURL = "https://votex-circuits.ams3.cdn.digitaloceanspaces.com"
	// DefaultArtifactsRelease is the release version for circuit artifacts
	DefaultArtifactsRelease = "dev"
)

var (
	// NullifierProofCircuitURL is the URL for the nullifier proof circuit WASM file
	NullifierProofCircuitURL = fmt.Sprintf("%s/%s/%s.wasm", DefaultArtifactsBaseURL, DefaultArtifactsRelease, NullifierProofCircuitHash)
	// NullifierProofCircuitHash is the hash of the nullifier proof circuit
	NullifierProofCircuitHash = "d01b00b459e4b929fa567596018c1911a301bb1c90350639f50f31c55de80a44"
	// NullifierProofProvingKeyURL is the URL for the nullifier proof proving key
	NullifierProofProvingKeyURL = fmt.Sprintf("%s/%s/%s.zkey", DefaultArtifactsBaseURL, DefaultArtifactsRelease, NullifierProofProvingKeyHash)
	// NullifierProofProvingKeyHash is the hash of the nullifier proof proving key
	NullifierProofProvingKeyHash = "c3c332c205a88db1aaf9b6e5f4c6929b7c2a150f5ed720e7db598891b36a439c"
	// NullifierProofVerificationKeyURL is the URL for the nullifier proof verification key
	NullifierProofVerificationKeyURL = fmt.Sprintf("%s/%s/%s.json", DefaultArtifactsBaseURL, DefaultArtifactsRelease, NullifierProofVerificationKeyHash)
	// NullifierProofVerificationKeyHash is the hash of the nullifier proof verification key
	NullifierProofVerificationKeyHash = "fba1f75fd816062fd8934d013c581c13dc9a250f5ee0011d5cedf49e6305d161"
)
