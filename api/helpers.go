package api

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/yaksetig/votex-sub001/log"
	"github.com/yaksetig/votex-sub001/types"
)

// httpWriteJSON helper function allows to write a JSON response.
func httpWriteJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	jdata, err := json.Marshal(data)
	if err != nil {
		ErrMarshalingServerJSONFailed.WithErr(err).Write(w)
		return
	}
	n, err := w.Write(jdata)
	if err != nil {
		log.Warnw("failed to write http response", "error", err)
		return
	}
	if _, err := w.Write([]byte("\n")); err != nil {
		log.Warnw("failed to write on response", "error", err)
		return
	}
	if !DisabledLogging && log.Level() == log.LogLevelDebug {
		log.Debugw("api response", "bytes", n, "data", strings.ReplaceAll(string(jdata), "\"", ""))
	}
}

// httpWriteOK helper function allows to write an OK response.
func httpWriteOK(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("\n")); err != nil {
		log.Warnw("failed to write on response", "error", err)
	}
}

// ElectionSeedToID derives a deterministic election identifier from a seed
// string. It uses the first 16 bytes of the SHA256 hash of the seed to build
// a UUID, so the same seed always yields the same election identifier.
func ElectionSeedToID(seed string) (types.HexBytes, error) {
	hash := sha256.Sum256([]byte(seed))
	u, err := uuid.FromBytes(hash[:16]) // Convert first 16 bytes to UUID
	if err != nil {
		return nil, fmt.Errorf("failed to create election ID: %w", err)
	}
	return types.HexBytes(u[:]), nil
}
