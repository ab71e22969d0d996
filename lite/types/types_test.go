package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidatorSet_TotalVotingPower(t *testing.T) {
	vs := NewValidatorSet([]Validator{
		{Address: "a", VotingPower: 10},
		{Address: "b", VotingPower: 20},
	}, []byte("h"))
	require.Equal(t, int64(30), vs.TotalVotingPower())
}

func TestValidatorSet_TotalVotingPower_OverflowPanics(t *testing.T) {
	vs := NewValidatorSet([]Validator{
		{Address: "a", VotingPower: 1<<63 - 1},
		{Address: "b", VotingPower: 1},
	}, []byte("h"))
	require.Panics(t, func() { vs.TotalVotingPower() })
}

func TestValidatorSet_GetByAddress(t *testing.T) {
	vs := NewValidatorSet([]Validator{
		{Address: "a", VotingPower: 1},
		{Address: "b", VotingPower: 2},
	}, []byte("h"))

	idx, v := vs.GetByAddress("b")
	require.Equal(t, 1, idx)
	require.Equal(t, int64(2), v.VotingPower)

	idx, v = vs.GetByAddress("missing")
	require.Equal(t, -1, idx)
	require.Nil(t, v)
}

func TestValidatorSet_NewValidatorSetCopiesSlice(t *testing.T) {
	vals := []Validator{{Address: "a", VotingPower: 1}}
	vs := NewValidatorSet(vals, []byte("h"))
	vals[0].VotingPower = 99
	require.Equal(t, int64(1), vs.Validators[0].VotingPower, "NewValidatorSet must not alias the caller's slice")
}

func TestTrustThreshold_Validate(t *testing.T) {
	require.NoError(t, DefaultTrustThreshold.Validate())
	require.Error(t, TrustThreshold{Numerator: 0, Denominator: 3}.Validate())
	require.Error(t, TrustThreshold{Numerator: 4, Denominator: 3}.Validate())
	require.Error(t, TrustThreshold{Numerator: 1, Denominator: 0}.Validate())
}

func TestNilValidatorSet(t *testing.T) {
	var vs *ValidatorSet
	require.Nil(t, vs.Hash())
	require.Equal(t, 0, vs.Size())
}
