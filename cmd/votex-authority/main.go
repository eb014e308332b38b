package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/yaksetig/votex-sub001/api"
	"github.com/yaksetig/votex-sub001/circuits/nullifierproof"
	"github.com/yaksetig/votex-sub001/crypto/ecc/curves"
	"github.com/yaksetig/votex-sub001/db"
	"github.com/yaksetig/votex-sub001/db/metadb"
	"github.com/yaksetig/votex-sub001/log"
	"github.com/yaksetig/votex-sub001/prover"
	"github.com/yaksetig/votex-sub001/storage"
	"github.com/yaksetig/votex-sub001/tally"
)

// Services holds all the running services
type Services struct {
	Storage   *storage.Storage
	Finalizer *tally.Finalizer
	API       *api.API
}

func main() {
	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logging
	log.Init(cfg.Log.Level, cfg.Log.Output, nil)
	log.Infow("starting votex-authority", "version", Version)

	// Validate configuration
	if err := validateConfig(cfg); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Create context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup services
	services, err := setupServices(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to setup services: %v", err)
	}
	defer shutdownServices(services)

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh
	log.Infow("received signal, shutting down", "signal", sig.String())
}

// setupServices initializes and starts all required services
func setupServices(ctx context.Context, cfg *Config) (*Services, error) {
	services := &Services{}

	// Download circuit artifacts; the verification key is needed to check
	// submitted nullifier proofs
	artifactsCtx, cancel := context.WithTimeout(ctx, artifactsTimeout)
	defer cancel()
	if err := nullifierproof.Artifacts.DownloadAll(artifactsCtx); err != nil {
		return nil, fmt.Errorf("failed to download circuit artifacts: %w", err)
	}
	verifier, err := prover.FromArtifacts(nullifierproof.Artifacts)
	if err != nil {
		return nil, fmt.Errorf("failed to load circuit artifacts: %w", err)
	}

	// Initialize storage database
	log.Infow("initializing storage", "datadir", cfg.Datadir, "type", db.TypePebble)
	database, err := metadb.New(db.TypePebble, cfg.Datadir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	curve, err := curves.New(curves.DefaultCurveType)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize curve: %w", err)
	}
	services.Storage = storage.New(database, curve)

	// Start election finalizer
	log.Infow("starting election finalizer", "sweepInterval", cfg.Finalizer.Interval.String())
	services.Finalizer = tally.NewFinalizer(services.Storage)
	services.Finalizer.Start(ctx, cfg.Finalizer.Interval)

	// Start API service
	log.Infow("starting API service", "host", cfg.API.Host, "port", cfg.API.Port)
	services.API, err = api.New(&api.APIConfig{
		Host:      cfg.API.Host,
		Port:      cfg.API.Port,
		Storage:   services.Storage,
		Verifier:  verifier,
		Finalizer: services.Finalizer,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start API service: %w", err)
	}

	log.Info("votex-authority is running, ready to process votes!")
	return services, nil
}

// shutdownServices gracefully shuts down all services
func shutdownServices(services *Services) {
	if services == nil {
		return
	}

	// Stop services in reverse order of startup
	if services.Finalizer != nil {
		services.Finalizer.Close()
	}
	if services.Storage != nil {
		services.Storage.Close()
	}
}
