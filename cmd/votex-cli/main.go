package main

import (
	"context"
	"fmt"
	"runtime"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/yaksetig/votex-sub001/log"
)

const (
	defaultAuthorityHost = "0.0.0.0"
	defaultAuthorityPort = 9090
)

var (
	endpoint = flag.StringP("endpoint", "e",
		fmt.Sprintf("http://%s:%d", defaultAuthorityHost, defaultAuthorityPort),
		"votex-authority API endpoint")
	votersCount      = flag.Int("votersCount", 5, "number of voters that will cast a vote")
	voteSleepTime    = flag.Duration("voteSleepTime", time.Second, "time to sleep between votes")
	electionWindow   = flag.Duration("electionWindow", 2*time.Minute, "voting period of the demo election")
	anonymitySetSize = flag.Int("anonymitySetSize", 3, "anonymity set size for nullification batches")
	maxRounds        = flag.Int("maxRounds", 2, "nullification rounds allowed per participant")
	concurrency      = flag.Int("concurrency", runtime.NumCPU(), "proof workers for the nullification batch")
	timeout          = flag.Duration("timeout", 20*time.Minute, "timeout for the whole run")
	voterSecret      = flag.String("voterSecret", "votex demo voter", "base secret voter keys are derived from")
	electionSeed     = flag.String("seed", "", "optional election seed for a deterministic identifier")
	skipNullify      = flag.Bool("skipNullification", false, "cast votes only, without the nullification batch")
)

func main() {
	flag.Parse()
	log.Init("debug", "stdout", nil)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	cliSrv, err := NewCLIServices(ctx, *endpoint)
	if err != nil {
		log.Fatalf("failed to initialize CLI services: %v", err)
	}

	info, err := cliSrv.Info()
	if err != nil {
		log.Fatalf("failed to reach the authority at %s: %v", *endpoint, err)
	}
	log.Infow("connected to authority", "endpoint", *endpoint, "curve", info.Curve)

	election, authorityKey, err := cliSrv.CreateElection(*electionSeed, *anonymitySetSize, *maxRounds, *electionWindow)
	if err != nil {
		log.Fatalf("failed to create election: %v", err)
	}
	log.Infow("election created",
		"id", election.ID.String(),
		"question", election.Question,
		"anonymitySetSize", election.AnonymitySetSize,
		"endDate", election.EndDate.String())

	voters, err := cliSrv.RegisterVoters(election.ID, *votersCount, *voterSecret)
	if err != nil {
		log.Fatalf("failed to register voters: %v", err)
	}
	log.Infow("voters registered", "count", len(voters))

	if err := cliSrv.CastVotes(election.ID, voters, *voteSleepTime); err != nil {
		log.Fatalf("failed to cast votes: %v", err)
	}

	if !*skipNullify {
		// the first voter cancels its own vote, hidden in a cover batch
		receipt, err := cliSrv.SubmitNullification(election, voters[0], true, *concurrency)
		if err != nil {
			log.Fatalf("failed to submit nullification batch: %v", err)
		}
		log.Infow("nullification batch accepted",
			"batchId", receipt.BatchID.String(),
			"items", receipt.Items,
			"roundsUsed", receipt.RoundsUsed,
			"maxRounds", receipt.MaxRounds)
	}

	if err := cliSrv.WaitUntilEnded(election); err != nil {
		log.Fatalf("interrupted while waiting for the election to end: %v", err)
	}

	results, err := cliSrv.RunTally(election.ID, authorityKey)
	if err != nil {
		log.Fatalf("failed to run the tally: %v", err)
	}
	log.Infow("election tallied",
		"id", election.ID.String(),
		"preliminary", fmt.Sprintf("%v", results.Preliminary),
		"final", fmt.Sprintf("%v", results.Final),
		"nullified", results.NullifiedCount)
}
