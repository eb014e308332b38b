package api

import (
	"fmt"
	"net/url"
	"strings"
)

// Route constants for the API endpoints

const (
	// Health endpoints
	PingEndpoint = "/ping" // Health check endpoint

	// Info endpoint
	InfoEndpoint = "/info" // GET: Circuit artifact information for provers

	// URL parameters
	ElectionURLParam    = "electionId"    // URL parameter for election ID
	ParticipantURLParam = "participantId" // URL parameter for participant ID

	// Election endpoints
	ElectionsEndpoint = "/elections"                                      // GET: List elections, POST: Create election
	ElectionEndpoint  = ElectionsEndpoint + "/{" + ElectionURLParam + "}" // GET: Get election info

	// Participant endpoints
	ParticipantsEndpoint = ElectionEndpoint + "/participants"                      // GET: Roster, POST: Register participant
	ParticipantEndpoint  = ParticipantsEndpoint + "/{" + ParticipantURLParam + "}" // GET: Get participant info

	// Vote endpoints
	VotesEndpoint      = ElectionEndpoint + "/votes"                      // POST: Cast a vote
	VoteStatusEndpoint = VotesEndpoint + "/{" + ParticipantURLParam + "}" // GET: Check whether a participant voted

	// Nullification endpoint
	NullificationEndpoint = ElectionEndpoint + "/nullification" // POST: Submit an assembled nullification batch

	// Tally and results endpoints
	TallyEndpoint   = ElectionEndpoint + "/tally"   // POST: Run the tally with the authority private key
	ResultsEndpoint = ElectionEndpoint + "/results" // GET: Get computed election results
)

// EndpointWithParam creates an endpoint URL by replacing the parameter
// placeholder with the actual value. Used to build fully qualified
// endpoint URLs.
func EndpointWithParam(path, key, param string) string {
	rawKey := fmt.Sprintf("{%s}", key)

	// Always try to replace the placeholder, even if it's after the '?'
	if strings.Contains(path, rawKey) {
		return strings.Replace(path, rawKey, url.PathEscape(param), 1)
	}

	// Fallback: add as query param
	escapedKey := url.QueryEscape(key)
	escapedVal := url.QueryEscape(param)

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}

	return fmt.Sprintf("%s%s%s=%s", path, sep, escapedKey, escapedVal)
}

// LogExcludedPrefixes defines URL prefixes to exclude from request logging
var LogExcludedPrefixes = []string{
	PingEndpoint,
	InfoEndpoint,
}
