package scheduler

import (
	"context"
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tmlite/tmlite/lite/capabilities"
	"github.com/tmlite/tmlite/lite/events"
	"github.com/tmlite/tmlite/lite/lightclient"
	"github.com/tmlite/tmlite/lite/predicates"
	"github.com/tmlite/tmlite/lite/store"
	"github.com/tmlite/tmlite/lite/types"
	"github.com/tmlite/tmlite/lite/verifier"
)

const testChainID types.ChainID = "test-chain"

// fakeFetcher serves pre-signed headers out of a map, standing in for a
// real full node so the scheduler's routing can be exercised without any
// network I/O.
type fakeFetcher struct {
	states map[types.Height]types.SignedHeader
}

func (f *fakeFetcher) FetchState(ctx context.Context, height types.Height) events.FetchedState {
	sh, ok := f.states[height]
	if !ok {
		return events.FetchedState{Height: height, Err: errNotFound{height}}
	}
	return events.FetchedState{Height: height, SignedHeader: sh, NextValidatorsHash: sh.Header.NextValidatorsHash}
}

type errNotFound struct{ h types.Height }

func (e errNotFound) Error() string { return "no fixture at that height" }

func buildChain(t *testing.T, n int) (*fakeFetcher, *types.ValidatorSet, func(h types.Height, at time.Time, signed []bool) types.SignedHeader) {
	t.Helper()
	hasher := capabilities.DefaultHeaderHasher{}
	keys := make([]ed25519.PrivateKey, n)
	vs := make([]types.Validator, n)
	for i := range keys {
		pub, priv, err := ed25519.GenerateKey(nil)
		require.NoError(t, err)
		keys[i] = priv
		vs[i] = types.Validator{Address: types.ValidatorAddress(pub[:4]), PubKey: pub, VotingPower: 1}
	}
	vals := types.NewValidatorSet(vs, []byte("fixed-hash"))

	build := func(h types.Height, at time.Time, signed []bool) types.SignedHeader {
		header := types.Header{Height: h, Time: at, ValidatorsHash: vals.Hash(), NextValidatorsHash: vals.Hash()}
		headerHash := hasher.Hash(header)
		blockID := types.BlockID{Hash: headerHash}
		sigs := make([]types.CommitSig, n)
		for i, k := range keys {
			addr := vals.Validators[i].Address
			if !signed[i] {
				sigs[i] = types.CommitSig{Kind: types.AbsentSig, ValidatorAddress: addr}
				continue
			}
			msg := capabilities.CanonicalPrecommitBytes(testChainID, h, 0, types.CommitSig, blockID, at)
			sigs[i] = types.CommitSig{Kind: types.CommitSig, ValidatorAddress: addr, Signature: ed25519.Sign(k, msg), Timestamp: at}
		}
		return types.SignedHeader{
			Header:         header,
			Commit:         types.Commit{Height: h, BlockID: blockID, HeaderHash: headerHash, Signatures: sigs},
			Validators:     vals,
			ValidatorsHash: vals.Hash(),
		}
	}

	return &fakeFetcher{states: make(map[types.Height]types.SignedHeader)}, vals, build
}

func allTrue(n int) []bool {
	b := make([]bool, n)
	for i := range b {
		b[i] = true
	}
	return b
}

func TestScheduler_VerifiesDirectly(t *testing.T) {
	fetcher, vals, build := buildChain(t, 3)
	base := time.Unix(1_700_000_000, 0)

	s := store.NewMemStore()
	require.NoError(t, s.SaveTrustedState(types.TrustedState{Header: build(10, base, allTrue(3)).Header, Validators: vals}))

	fetcher.states[20] = build(20, base.Add(time.Hour), allTrue(3))

	lc := lightclient.New(s)
	v := verifier.New(testChainID, types.DefaultTrustThreshold, predicates.Capabilities{
		Hasher:  capabilities.DefaultHeaderHasher{},
		Commits: capabilities.DefaultCommitValidator{},
		Power:   capabilities.DefaultVotingPowerCalculator{},
	})
	sched := New(lc, v, fetcher, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sched.Run(ctx)

	require.NoError(t, sched.Submit(ctx, events.VerifyAtHeight{Height: 20}))

	select {
	case result := <-sched.Results():
		require.Equal(t, types.Height(20), result.TrustedHeight)
		require.Len(t, result.States, 1)
		require.Equal(t, types.Height(20), result.States[0].Header.Height)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for verification result")
	}

	latest, err := s.LatestTrustedState()
	require.NoError(t, err)
	require.Equal(t, types.Height(20), latest.Header.Height)

	sched.Terminate()
}
