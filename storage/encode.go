package storage

import (
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/yaksetig/votex-sub001/log"
)

// ArtifactEncoding selects the serialization format of a stored artifact.
type ArtifactEncoding int

const (
	// ArtifactEncodingCBOR is the default format, deterministic and compact.
	ArtifactEncodingCBOR ArtifactEncoding = iota
	// ArtifactEncodingJSON keeps the artifact readable with external tools.
	// Used for published election results.
	ArtifactEncodingJSON
)

// EncodeArtifact serializes an artifact. CBOR is used unless another format
// is requested. A failed JSON encoding falls back to CBOR.
func EncodeArtifact(a any, encoding ...ArtifactEncoding) ([]byte, error) {
	if len(encoding) > 0 {
		switch encoding[0] {
		case ArtifactEncodingCBOR:
			return encodeArtifactCBOR(a)
		case ArtifactEncodingJSON:
			res, err := json.Marshal(a)
			if err != nil {
				log.Warnw("falling back to CBOR encoding due to JSON encoding failure", "error", err)
				return encodeArtifactCBOR(a)
			}
			return res, nil
		default:
			return nil, fmt.Errorf("unknown artifact encoding: %d", encoding)
		}
	}
	return encodeArtifactCBOR(a)
}

// DecodeArtifact deserializes an artifact into out. The format must match
// the one used by EncodeArtifact.
func DecodeArtifact(data []byte, out any, encoding ...ArtifactEncoding) error {
	if len(encoding) > 0 {
		switch encoding[0] {
		case ArtifactEncodingCBOR:
			return cbor.Unmarshal(data, out)
		case ArtifactEncodingJSON:
			if err := json.Unmarshal(data, out); err != nil {
				log.Warnw("falling back to CBOR decoding due to JSON decoding failure", "error", err)
				return cbor.Unmarshal(data, out)
			}
			return nil
		default:
			return fmt.Errorf("unknown artifact encoding: %d", encoding)
		}
	}
	return cbor.Unmarshal(data, out)
}

// encodeArtifactCBOR encodes an artifact with deterministic CBOR options, so
// equal artifacts always produce equal bytes.
func encodeArtifactCBOR(a any) ([]byte, error) {
	encOpts := cbor.CoreDetEncOptions()
	em, err := encOpts.EncMode()
	if err != nil {
		return nil, fmt.Errorf("encode artifact: %w", err)
	}
	return em.Marshal(a)
}
