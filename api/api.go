package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/yaksetig/votex-sub001/log"
	stg "github.com/yaksetig/votex-sub001/storage"
	"github.com/yaksetig/votex-sub001/tally"
	"github.com/yaksetig/votex-sub001/types"
)

const (
	maxRequestBodyLog = 512 // Maximum length of request body to log
)

// ProofVerifier checks a nullifier proof against the verification key of the
// circuit. *prover.Prover satisfies it.
type ProofVerifier interface {
	Verify(proof *types.CircuitProof) error
}

// APIConfig type represents the configuration for the API HTTP server.
// It includes the host, port, the storage instance and the collaborators of
// the nullification and tally endpoints.
type APIConfig struct {
	Host     string
	Port     int
	Storage  *stg.Storage
	Verifier ProofVerifier // Verifies submitted nullifier proofs
	// Optional: lets the tally endpoint end an election whose voting period
	// is over but whose status has not been swept yet.
	Finalizer *tally.Finalizer
}

// API type represents the API HTTP server.
type API struct {
	router    *chi.Mux
	storage   *stg.Storage
	verifier  ProofVerifier
	finalizer *tally.Finalizer
	tally     *tally.Tally
}

// New creates a new API instance with the given configuration.
// It also initializes the router and starts the HTTP server.
func New(conf *APIConfig) (*API, error) {
	if conf == nil {
		return nil, fmt.Errorf("missing API configuration")
	}
	if conf.Storage == nil {
		return nil, fmt.Errorf("missing storage instance")
	}
	if conf.Verifier == nil {
		return nil, fmt.Errorf("missing proof verifier")
	}
	a := &API{
		storage:   conf.Storage,
		verifier:  conf.Verifier,
		finalizer: conf.Finalizer,
		tally:     tally.New(conf.Storage),
	}

	// Initialize router
	a.initRouter()
	go func() {
		log.Infow("Starting API server", "host", conf.Host, "port", conf.Port)
		if err := http.ListenAndServe(fmt.Sprintf("%s:%d", conf.Host, conf.Port), a.router); err != nil {
			log.Fatalf("failed to start the API server: %v", err)
		}
	}()
	return a, nil
}

// Router returns the chi router for testing purposes
func (a *API) Router() *chi.Mux {
	return a.router
}

// registerHandlers registers all the HTTP handlers for the API endpoints.
func (a *API) registerHandlers() {
	log.Infow("register handler", "endpoint", PingEndpoint, "method", "GET")
	a.router.Get(PingEndpoint, func(w http.ResponseWriter, _ *http.Request) {
		httpWriteOK(w)
	})
	log.Infow("register handler", "endpoint", InfoEndpoint, "method", "GET")
	a.router.Get(InfoEndpoint, a.info)
	// election endpoints
	log.Infow("register handler", "endpoint", ElectionsEndpoint, "method", "POST")
	a.router.Post(ElectionsEndpoint, a.createElection)
	log.Infow("register handler", "endpoint", ElectionsEndpoint, "method", "GET")
	a.router.Get(ElectionsEndpoint, a.listElections)
	log.Infow("register handler", "endpoint", ElectionEndpoint, "method", "GET")
	a.router.Get(ElectionEndpoint, a.election)
	// participant endpoints
	log.Infow("register handler", "endpoint", ParticipantsEndpoint, "method", "POST")
	a.router.Post(ParticipantsEndpoint, a.registerParticipant)
	log.Infow("register handler", "endpoint", ParticipantsEndpoint, "method", "GET")
	a.router.Get(ParticipantsEndpoint, a.roster)
	log.Infow("register handler", "endpoint", ParticipantEndpoint, "method", "GET")
	a.router.Get(ParticipantEndpoint, a.participant)
	// vote endpoints
	log.Infow("register handler", "endpoint", VotesEndpoint, "method", "POST")
	a.router.Post(VotesEndpoint, a.castVote)
	log.Infow("register handler", "endpoint", VoteStatusEndpoint, "method", "GET")
	a.router.Get(VoteStatusEndpoint, a.voteStatus)
	// nullification endpoint
	log.Infow("register handler", "endpoint", NullificationEndpoint, "method", "POST")
	a.router.Post(NullificationEndpoint, a.submitNullification)
	// tally and results endpoints
	log.Infow("register handler", "endpoint", TallyEndpoint, "method", "POST")
	a.router.Post(TallyEndpoint, a.runTally)
	log.Infow("register handler", "endpoint", ResultsEndpoint, "method", "GET")
	a.router.Get(ResultsEndpoint, a.electionResults)
}

// initRouter creates the router with all the routes and middleware.
func (a *API) initRouter() {
	a.router = chi.NewRouter()
	a.router.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler)
	a.router.Use(loggingMiddleware(maxRequestBodyLog))
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Throttle(100))
	a.router.Use(middleware.ThrottleBacklog(5000, 40000, 60*time.Second))
	a.router.Use(middleware.Timeout(45 * time.Second))

	a.registerHandlers()
}
