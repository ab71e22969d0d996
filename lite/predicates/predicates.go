// Package predicates implements the pure boolean checks that decide
// whether trust can be transferred from a trusted state to an untrusted
// signed header. Each function mirrors one row of the verification table:
// it takes the data it needs and returns a single error taxonomy value
// from lite/errors, never a generic error. Verify composes them in the
// fixed order the table specifies, short-circuiting on the first failure.
//
// within_trust_period is deliberately not part of this composition: it is
// checked once, at the start of a verification attempt, not on every
// candidate header a bisection considers. Callers invoke IsWithinTrustPeriod
// themselves (see lite/verifier).
package predicates

import (
	"bytes"
	"time"

	lerr "github.com/tmlite/tmlite/lite/errors"
	"github.com/tmlite/tmlite/lite/capabilities"
	"github.com/tmlite/tmlite/lite/types"
)

// Capabilities bundles the external collaborators Verify needs. A single
// struct keeps the Verify signature stable as capabilities are added.
type Capabilities struct {
	Hasher    capabilities.HeaderHasher
	Commits   capabilities.CommitValidator
	Power     capabilities.VotingPowerCalculator
}

// ValidatorSetsMatch checks that the untrusted signed header's claimed
// validators hash equals the hash of the validator set fetched for it.
func ValidatorSetsMatch(sh types.SignedHeader) error {
	got := sh.Header.ValidatorsHash
	have := sh.Validators.Hash()
	if !bytes.Equal(got, have) {
		return lerr.ErrInvalidValidatorSet(got, have)
	}
	return nil
}

// NextValidatorsMatch checks that the untrusted header's claimed
// next_validators_hash equals the hash of the fetched next validator set.
// next is the fetched next-validator-set hash supplied by the caller (the
// fetcher reports it separately from the Validators used to check the
// commit, since the two sets can differ when validators rotate).
func NextValidatorsMatch(sh types.SignedHeader, nextValidatorsHash []byte) error {
	if !bytes.Equal(sh.Header.NextValidatorsHash, nextValidatorsHash) {
		return lerr.ErrInvalidNextValidatorSet(nextValidatorsHash, sh.Header.NextValidatorsHash)
	}
	return nil
}

// HeaderMatchesCommit checks that the commit's claimed header hash equals
// the hash of the header it is enclosed with.
func HeaderMatchesCommit(sh types.SignedHeader, hasher capabilities.HeaderHasher) error {
	want := hasher.Hash(sh.Header)
	if !bytes.Equal(sh.Commit.HeaderHash, want) {
		return lerr.ErrInvalidCommitValue(sh.Commit.HeaderHash, want)
	}
	return nil
}

// ValidCommit performs the CommitValidator's structural checks (for
// DefaultCommitValidator: slot count and unknown signers). A failure here maps to
// ImplementationSpecific, not InvalidCommit -- it is a malformed commit, not
// an insufficiently-signed one.
func ValidCommit(sh types.SignedHeader, validator capabilities.CommitValidator) error {
	if err := validator.Validate(sh.Commit, sh.Validators); err != nil {
		return lerr.ErrImplementationSpecific(err.Error())
	}
	return nil
}

// IsMonotonicBftTime checks that the untrusted header's time is not earlier
// than the trusted header's.
func IsMonotonicBftTime(untrusted, trusted types.Header) error {
	if untrusted.Time.Before(trusted.Time) {
		return lerr.ErrNonMonotonicBftTime(untrusted.Time, trusted.Time)
	}
	return nil
}

// IsMonotonicHeight checks that the untrusted header's height strictly
// exceeds the trusted header's.
func IsMonotonicHeight(untrusted, trusted types.Header) error {
	if untrusted.Height <= trusted.Height {
		return lerr.ErrNonIncreasingHeight(untrusted.Height, trusted.Height)
	}
	return nil
}

// ValidNextValidatorSet checks the edge case where the untrusted header is
// exactly at the trusted height (a re-verification of the same height with
// a newer next-validator-set claim): the trusted validators must still
// match what the header now reports as next_validators_hash. At any other
// height this predicate is vacuously satisfied.
func ValidNextValidatorSet(untrusted, trusted types.Header, trustedValidators *types.ValidatorSet) error {
	if untrusted.Height != trusted.Height {
		return nil
	}
	if !bytes.Equal(untrusted.NextValidatorsHash, trustedValidators.Hash()) {
		return lerr.ErrInvalidNextValidatorSet(trustedValidators.Hash(), untrusted.NextValidatorsHash)
	}
	return nil
}

// HasSufficientValidatorsOverlap checks that more than threshold of the
// *trusted* validator set's voting power also signed the untrusted commit.
// This is the one recoverable failure: the verifier bisects instead of
// aborting when this predicate fails.
func HasSufficientValidatorsOverlap(chainID types.ChainID, sh types.SignedHeader, trustedValidators *types.ValidatorSet, threshold types.TrustThreshold, power capabilities.VotingPowerCalculator) error {
	signed, err := power.VotingPowerIn(chainID, sh, trustedValidators)
	if err != nil {
		return lerr.ErrImplementationSpecific(err.Error())
	}
	total := power.TotalPowerOf(trustedValidators)
	if !meetsThreshold(signed, total, threshold) {
		return lerr.ErrInsufficientValidatorsOverlap(signed, total, threshold)
	}
	return nil
}

// HasSufficientSignersOverlap checks that the commit's own signers carry
// more than threshold of their own validator set's voting power: the commit
// must be internally self-consistent, independent of the trusted state.
func HasSufficientSignersOverlap(chainID types.ChainID, sh types.SignedHeader, threshold types.TrustThreshold, power capabilities.VotingPowerCalculator) error {
	signed, err := power.VotingPowerIn(chainID, sh, sh.Validators)
	if err != nil {
		return lerr.ErrImplementationSpecific(err.Error())
	}
	total := power.TotalPowerOf(sh.Validators)
	if !meetsThreshold(signed, total, threshold) {
		return lerr.ErrInvalidCommit(signed, total, threshold)
	}
	return nil
}

// IsWithinTrustPeriod checks that now falls strictly within the open
// interval (headerTime, headerTime+trustingPeriod). Verify does not call
// it.
func IsWithinTrustPeriod(headerTime time.Time, trustingPeriod time.Duration, now time.Time) error {
	expiresAt := headerTime.Add(trustingPeriod)
	if !now.After(headerTime) || !now.Before(expiresAt) {
		return lerr.ErrNotWithinTrustPeriod(headerTime, trustingPeriod, now)
	}
	return nil
}

// Verify composes the nine predicates above in their fixed order,
// returning the first failure. A nil return means trust can be
// transferred from trusted to sh outright, with no bisection needed.
func Verify(
	chainID types.ChainID,
	sh types.SignedHeader,
	nextValidatorsHash []byte,
	trusted types.TrustedState,
	threshold types.TrustThreshold,
	caps Capabilities,
) error {
	if err := ValidatorSetsMatch(sh); err != nil {
		return err
	}
	if err := NextValidatorsMatch(sh, nextValidatorsHash); err != nil {
		return err
	}
	if err := HeaderMatchesCommit(sh, caps.Hasher); err != nil {
		return err
	}
	if err := ValidCommit(sh, caps.Commits); err != nil {
		return err
	}
	if err := IsMonotonicBftTime(sh.Header, trusted.Header); err != nil {
		return err
	}
	if err := IsMonotonicHeight(sh.Header, trusted.Header); err != nil {
		return err
	}
	if err := ValidNextValidatorSet(sh.Header, trusted.Header, trusted.Validators); err != nil {
		return err
	}
	if err := HasSufficientValidatorsOverlap(chainID, sh, trusted.Validators, threshold, caps.Power); err != nil {
		return err
	}
	if err := HasSufficientSignersOverlap(chainID, sh, threshold, caps.Power); err != nil {
		return err
	}
	return nil
}

func meetsThreshold(signed, total int64, threshold types.TrustThreshold) bool {
	if total == 0 {
		return false
	}
	return uint64(signed)*threshold.Denominator > uint64(total)*threshold.Numerator
}
