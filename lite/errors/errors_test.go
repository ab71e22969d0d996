package errors

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tmlite/tmlite/lite/types"
)

func TestErrNotWithinTrustPeriod(t *testing.T) {
	now := time.Now()
	err := ErrNotWithinTrustPeriod(now, time.Hour, now.Add(2*time.Hour))
	require.True(t, IsErrNotWithinTrustPeriod(err))
	require.False(t, IsErrInvalidCommit(err))
}

func TestErrInsufficientValidatorsOverlap_CarriesFields(t *testing.T) {
	err := ErrInsufficientValidatorsOverlap(1, 3, types.DefaultTrustThreshold)
	require.True(t, IsErrInsufficientValidatorsOverlap(err))
	require.Contains(t, err.Error(), "1/3")
}

func TestErrVerificationFailed_Kind(t *testing.T) {
	inner := ErrNonIncreasingHeight(5, 10)
	wrapped := ErrVerificationFailed(inner)
	require.True(t, IsErrVerificationFailed(wrapped))
	require.Equal(t, inner, Kind(wrapped))

	// Kind on a non-VerificationFailed error is a no-op passthrough.
	require.Equal(t, inner, Kind(inner))
}

func TestErrAlreadyVerified_IsDistinctFromProtocolErrors(t *testing.T) {
	err := ErrAlreadyVerified(42)
	require.True(t, IsErrAlreadyVerified(err))
	require.False(t, IsErrNextHeightMismatch(err))
}

func TestIsErrXxx_FalseForUnrelatedError(t *testing.T) {
	err := ErrRPC(errPlain{})
	require.True(t, IsErrRPC(err))
	require.False(t, IsErrBisectionExhausted(err))
}

type errPlain struct{}

func (errPlain) Error() string { return "boom" }
