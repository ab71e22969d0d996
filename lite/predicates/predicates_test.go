package predicates

import (
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tmlite/tmlite/lite/capabilities"
	lerr "github.com/tmlite/tmlite/lite/errors"
	"github.com/tmlite/tmlite/lite/types"
)

const testChainID types.ChainID = "test-chain"

func testCaps() Capabilities {
	return Capabilities{
		Hasher:  capabilities.DefaultHeaderHasher{},
		Commits: capabilities.DefaultCommitValidator{},
		Power:   capabilities.DefaultVotingPowerCalculator{},
	}
}

// buildSignedHeader signs a header at height with the given keys/powers,
// hashing it with the real DefaultHeaderHasher so header_matches_commit and
// validator_sets_match pass by construction; tests that want to exercise a
// specific failure mutate the result afterward.
func buildSignedHeader(t *testing.T, height types.Height, keys []ed25519.PrivateKey, powers []int64, signed []bool, at time.Time) (types.SignedHeader, *types.ValidatorSet) {
	t.Helper()
	hasher := capabilities.DefaultHeaderHasher{}

	vals := make([]types.Validator, len(keys))
	for i, k := range keys {
		pub := k.Public().(ed25519.PublicKey)
		vals[i] = types.Validator{Address: types.ValidatorAddress(pub[:4]), PubKey: pub, VotingPower: powers[i]}
	}
	valSet := types.NewValidatorSet(vals, []byte("valset-hash-at-"+string(rune(height))))

	header := types.Header{
		Height:             height,
		Time:               at,
		ValidatorsHash:     valSet.Hash(),
		NextValidatorsHash: valSet.Hash(),
	}
	headerHash := hasher.Hash(header)
	blockID := types.BlockID{Hash: headerHash}

	sigs := make([]types.CommitSig, len(keys))
	for i, k := range keys {
		if !signed[i] {
			sigs[i] = types.CommitSig{Kind: types.AbsentSig, ValidatorAddress: vals[i].Address}
			continue
		}
		msg := capabilities.CanonicalPrecommitBytes(testChainID, height, 0, types.CommitSig, blockID, at)
		sigs[i] = types.CommitSig{
			Kind:             types.CommitSig,
			ValidatorAddress: vals[i].Address,
			Signature:        ed25519.Sign(k, msg),
			Timestamp:        at,
		}
	}

	commit := types.Commit{Height: height, BlockID: blockID, HeaderHash: headerHash, Signatures: sigs}
	sh := types.SignedHeader{Header: header, Commit: commit, Validators: valSet, ValidatorsHash: valSet.Hash()}
	return sh, valSet
}

func genKeys(t *testing.T, n int) []ed25519.PrivateKey {
	t.Helper()
	keys := make([]ed25519.PrivateKey, n)
	for i := range keys {
		_, priv, err := ed25519.GenerateKey(nil)
		require.NoError(t, err)
		keys[i] = priv
	}
	return keys
}

func TestVerify_Success(t *testing.T) {
	keys := genKeys(t, 3)
	now := time.Unix(1_600_000_100, 0)
	trustedTime := time.Unix(1_600_000_000, 0)

	trustedSH, trustedVals := buildSignedHeader(t, 10, keys, []int64{1, 1, 1}, []bool{true, true, true}, trustedTime)
	trusted := types.TrustedState{Header: trustedSH.Header, Validators: trustedVals}

	untrustedSH, _ := buildSignedHeaderWithTrustedVals(t, 20, keys, []int64{1, 1, 1}, []bool{true, true, true}, now, trustedVals)

	err := Verify(testChainID, untrustedSH, untrustedSH.Header.NextValidatorsHash, trusted, types.DefaultTrustThreshold, testCaps())
	require.NoError(t, err)
}

// buildSignedHeaderWithTrustedVals is like buildSignedHeader but the commit
// is signed by (and the validator_sets_match hash is computed against) the
// *same* validator set as trustedVals, modeling the no-validator-change
// case so has_sufficient_validators_overlap has something to succeed
// against.
func buildSignedHeaderWithTrustedVals(t *testing.T, height types.Height, keys []ed25519.PrivateKey, powers []int64, signed []bool, at time.Time, trustedVals *types.ValidatorSet) (types.SignedHeader, *types.ValidatorSet) {
	t.Helper()
	hasher := capabilities.DefaultHeaderHasher{}

	header := types.Header{
		Height:             height,
		Time:               at,
		ValidatorsHash:     trustedVals.Hash(),
		NextValidatorsHash: trustedVals.Hash(),
	}
	headerHash := hasher.Hash(header)
	blockID := types.BlockID{Hash: headerHash}

	sigs := make([]types.CommitSig, len(keys))
	for i, k := range keys {
		addr := trustedVals.Validators[i].Address
		if !signed[i] {
			sigs[i] = types.CommitSig{Kind: types.AbsentSig, ValidatorAddress: addr}
			continue
		}
		msg := capabilities.CanonicalPrecommitBytes(testChainID, height, 0, types.CommitSig, blockID, at)
		sigs[i] = types.CommitSig{Kind: types.CommitSig, ValidatorAddress: addr, Signature: ed25519.Sign(k, msg), Timestamp: at}
	}

	commit := types.Commit{Height: height, BlockID: blockID, HeaderHash: headerHash, Signatures: sigs}
	sh := types.SignedHeader{Header: header, Commit: commit, Validators: trustedVals, ValidatorsHash: trustedVals.Hash()}
	return sh, trustedVals
}

func TestValidatorSetsMatch_Mismatch(t *testing.T) {
	keys := genKeys(t, 1)
	sh, _ := buildSignedHeader(t, 10, keys, []int64{1}, []bool{true}, time.Now())
	sh.Header.ValidatorsHash = []byte("wrong")
	err := ValidatorSetsMatch(sh)
	require.Error(t, err)
	require.True(t, lerr.IsErrInvalidValidatorSet(err))
}

func TestHeaderMatchesCommit_Mismatch(t *testing.T) {
	keys := genKeys(t, 1)
	sh, _ := buildSignedHeader(t, 10, keys, []int64{1}, []bool{true}, time.Now())
	sh.Commit.HeaderHash = []byte("wrong")
	err := HeaderMatchesCommit(sh, capabilities.DefaultHeaderHasher{})
	require.Error(t, err)
	require.True(t, lerr.IsErrInvalidCommitValue(err))
}

func TestIsMonotonicHeight(t *testing.T) {
	trusted := types.Header{Height: 10}
	require.NoError(t, IsMonotonicHeight(types.Header{Height: 11}, trusted))
	err := IsMonotonicHeight(types.Header{Height: 10}, trusted)
	require.Error(t, err)
	require.True(t, lerr.IsErrNonIncreasingHeight(err))
}

func TestIsMonotonicBftTime(t *testing.T) {
	trusted := types.Header{Time: time.Unix(100, 0)}
	require.NoError(t, IsMonotonicBftTime(types.Header{Time: time.Unix(101, 0)}, trusted))
	err := IsMonotonicBftTime(types.Header{Time: time.Unix(99, 0)}, trusted)
	require.Error(t, err)
	require.True(t, lerr.IsErrNonMonotonicBftTime(err))
}

func TestHasSufficientValidatorsOverlap_Insufficient(t *testing.T) {
	keys := genKeys(t, 3)
	now := time.Unix(1_600_000_100, 0)
	trustedTime := time.Unix(1_600_000_000, 0)

	trustedSH, trustedVals := buildSignedHeader(t, 10, keys, []int64{1, 1, 1}, []bool{true, true, true}, trustedTime)
	trusted := types.TrustedState{Header: trustedSH.Header, Validators: trustedVals}

	// Only one of three trusted validators signs the untrusted commit: 1/3
	// of trusted power, which does not exceed the default 1/3 threshold.
	untrustedSH, _ := buildSignedHeaderWithTrustedVals(t, 20, keys, []int64{1, 1, 1}, []bool{true, false, false}, now, trustedVals)

	err := Verify(testChainID, untrustedSH, untrustedSH.Header.NextValidatorsHash, trusted, types.DefaultTrustThreshold, testCaps())
	require.Error(t, err)
	require.True(t, lerr.IsErrInsufficientValidatorsOverlap(err))
}

func TestIsWithinTrustPeriod(t *testing.T) {
	headerTime := time.Unix(1000, 0)
	period := 10 * time.Hour

	require.NoError(t, IsWithinTrustPeriod(headerTime, period, headerTime.Add(time.Hour)))

	err := IsWithinTrustPeriod(headerTime, period, headerTime.Add(period).Add(time.Second))
	require.Error(t, err)
	require.True(t, lerr.IsErrNotWithinTrustPeriod(err))

	err = IsWithinTrustPeriod(headerTime, period, headerTime.Add(-time.Second))
	require.Error(t, err)
}

func TestIsWithinTrustPeriod_RejectsClosedIntervalBoundaries(t *testing.T) {
	headerTime := time.Unix(1000, 0)
	period := 10 * time.Hour

	// The interval is open on both ends: exactly at headerTime, or exactly
	// at headerTime+trustingPeriod, must fail, not pass.
	err := IsWithinTrustPeriod(headerTime, period, headerTime)
	require.Error(t, err)

	err = IsWithinTrustPeriod(headerTime, period, headerTime.Add(period))
	require.Error(t, err)
}
