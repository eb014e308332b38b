//nolint:lll
package api

import (
	"fmt"
	"net/http"
)

// The custom Error type satisfies the error interface.
// Error() returns a human-readable description of the error.
//
// Error codes in the 40001-49999 range are the user's fault,
// and they return HTTP Status 400 or 404 (or even 204), whatever is most appropriate.
//
// Error codes 50001-59999 are the server's fault
// and they return HTTP Status 500 or 503, or something else if appropriate.
//
// NEVER change any of the current error codes, only append new errors after the current last 4XXX or 5XXX
// If you notice there's a gap (say, error code 40010, 40011 and 40013 exist, 40012 is missing) DON'T fill in the gap,
// that code was used in the past for some error (not anymore) and shouldn't be reused.
// There's no correlation between Code and HTTP Status.
//
// ErrBatchRejected is deliberately detail-free: a nullification batch that
// fails proof verification or signal binding is rejected without saying which
// item or which check failed.
var (
	ErrResourceNotFound       = Error{Code: 40001, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("resource not found")}
	ErrMalformedBody          = Error{Code: 40002, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed JSON body")}
	ErrMalformedElectionID    = Error{Code: 40003, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed election ID")}
	ErrElectionNotFound       = Error{Code: 40004, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("election not found")}
	ErrMalformedParticipantID = Error{Code: 40005, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed participant ID")}
	ErrParticipantNotFound    = Error{Code: 40006, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("participant not registered in election")}
	ErrInvalidPublicKey       = Error{Code: 40007, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid public key")}
	ErrParticipantExists      = Error{Code: 40008, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("participant already registered")}
	ErrInvalidSignature       = Error{Code: 40009, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid signature")}
	ErrElectionNotOpen        = Error{Code: 40010, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("election is not open")}
	ErrAlreadyVoted           = Error{Code: 40011, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("participant already voted")}
	ErrNullifierUsed          = Error{Code: 40012, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("nullifier already used")}
	ErrBatchRejected          = Error{Code: 40013, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("nullification batch rejected")}
	ErrSubmissionInFlight     = Error{Code: 40014, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("another submission is already in flight")}
	ErrMaxRoundsReached       = Error{Code: 40015, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("nullification round limit reached")}
	ErrElectionStillOpen      = Error{Code: 40016, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("election voting period is not over")}
	ErrWrongAuthorityKey      = Error{Code: 40017, HTTPstatus: http.StatusForbidden, Err: fmt.Errorf("authority key mismatch")}
	ErrResultsNotAvailable    = Error{Code: 40018, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("election results not available")}
	ErrElectionExists         = Error{Code: 40019, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("election already exists")}

	ErrMarshalingServerJSONFailed = Error{Code: 50001, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("marshaling (server-side) JSON failed")}
	ErrGenericInternalServerError = Error{Code: 50002, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("internal server error")}
)
