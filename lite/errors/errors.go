// Package errors defines the light client core's error taxonomy: the
// predicate failure kinds of section 4.1, the protocol desyncs of the
// verifier and light client state machines, and the terminal conditions of
// bisection. It follows the same shape as the upstream tendermint/lite
// package: unexported struct types implementing error, paired ErrXxx
// constructors that wrap them with github.com/pkg/errors, and IsErrXxx
// predicates built on errors.Cause so callers can recover the concrete
// kind without type assertions leaking out of this package.
package errors

import (
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/tmlite/tmlite/lite/types"
)

// ---- predicate failures (section 4.1) ----

type errNotWithinTrustPeriod struct {
	headerTime     time.Time
	trustingPeriod time.Duration
	now            time.Time
}

func (e errNotWithinTrustPeriod) Error() string {
	return fmt.Sprintf("header time %v + trusting period %v is not within trust period of now %v",
		e.headerTime, e.trustingPeriod, e.now)
}

// ErrNotWithinTrustPeriod indicates the trusted header is either not yet in
// effect or has aged out of its trusting period.
func ErrNotWithinTrustPeriod(headerTime time.Time, trustingPeriod time.Duration, now time.Time) error {
	return errors.Wrap(errNotWithinTrustPeriod{headerTime, trustingPeriod, now}, "")
}

func IsErrNotWithinTrustPeriod(err error) bool {
	_, ok := errors.Cause(err).(errNotWithinTrustPeriod)
	return ok
}

type errInvalidValidatorSet struct {
	got, want []byte
}

func (e errInvalidValidatorSet) Error() string {
	return fmt.Sprintf("validator set hash mismatch: signed header claims %X, fetched set hashes to %X", e.got, e.want)
}

// ErrInvalidValidatorSet indicates the fetched validator set does not hash
// to the value the untrusted signed header claims.
func ErrInvalidValidatorSet(got, want []byte) error {
	return errors.Wrap(errInvalidValidatorSet{got, want}, "")
}

func IsErrInvalidValidatorSet(err error) bool {
	_, ok := errors.Cause(err).(errInvalidValidatorSet)
	return ok
}

type errInvalidNextValidatorSet struct {
	got, want []byte
}

func (e errInvalidNextValidatorSet) Error() string {
	return fmt.Sprintf("next validator set hash mismatch: got %X, want %X", e.got, e.want)
}

// ErrInvalidNextValidatorSet indicates either the header's
// next_validators_hash does not match the fetched next validator set, or
// (when the untrusted height equals the trusted height) the trusted
// validators no longer match the reported next validator set.
func ErrInvalidNextValidatorSet(got, want []byte) error {
	return errors.Wrap(errInvalidNextValidatorSet{got, want}, "")
}

func IsErrInvalidNextValidatorSet(err error) bool {
	_, ok := errors.Cause(err).(errInvalidNextValidatorSet)
	return ok
}

type errInvalidCommitValue struct {
	got, want []byte
}

func (e errInvalidCommitValue) Error() string {
	return fmt.Sprintf("commit references header hash %X, but header hashes to %X", e.got, e.want)
}

// ErrInvalidCommitValue indicates the commit's header hash does not match
// the hash of the header it is supposed to be attesting.
func ErrInvalidCommitValue(got, want []byte) error {
	return errors.Wrap(errInvalidCommitValue{got, want}, "")
}

func IsErrInvalidCommitValue(err error) bool {
	_, ok := errors.Cause(err).(errInvalidCommitValue)
	return ok
}

type errImplementationSpecific struct {
	reason string
}

func (e errImplementationSpecific) Error() string {
	return "commit validation failed: " + e.reason
}

// ErrImplementationSpecific wraps a failure reported by a capability: a
// CommitValidator structural failure (slot count mismatch, unknown signer
// address) or a VotingPowerCalculator signature-verification failure.
func ErrImplementationSpecific(reason string) error {
	return errors.Wrap(errImplementationSpecific{reason}, "")
}

func IsErrImplementationSpecific(err error) bool {
	_, ok := errors.Cause(err).(errImplementationSpecific)
	return ok
}

type errNonMonotonicBftTime struct {
	untrusted, trusted time.Time
}

func (e errNonMonotonicBftTime) Error() string {
	return fmt.Sprintf("untrusted header time %v is before trusted header time %v", e.untrusted, e.trusted)
}

// ErrNonMonotonicBftTime indicates the untrusted header's bft_time is
// earlier than the trusted header's.
func ErrNonMonotonicBftTime(untrusted, trusted time.Time) error {
	return errors.Wrap(errNonMonotonicBftTime{untrusted, trusted}, "")
}

func IsErrNonMonotonicBftTime(err error) bool {
	_, ok := errors.Cause(err).(errNonMonotonicBftTime)
	return ok
}

type errNonIncreasingHeight struct {
	untrusted, trusted types.Height
}

func (e errNonIncreasingHeight) Error() string {
	return fmt.Sprintf("untrusted height %d is not greater than trusted height %d", e.untrusted, e.trusted)
}

// ErrNonIncreasingHeight indicates the untrusted header's height does not
// exceed the trusted header's.
func ErrNonIncreasingHeight(untrusted, trusted types.Height) error {
	return errors.Wrap(errNonIncreasingHeight{untrusted, trusted}, "")
}

func IsErrNonIncreasingHeight(err error) bool {
	_, ok := errors.Cause(err).(errNonIncreasingHeight)
	return ok
}

type errInsufficientValidatorsOverlap struct {
	signedPower, totalPower int64
	threshold                types.TrustThreshold
}

func (e errInsufficientValidatorsOverlap) Error() string {
	return fmt.Sprintf("insufficient validators overlap: %d/%d signed power does not exceed threshold %d/%d",
		e.signedPower, e.totalPower, e.threshold.Numerator, e.threshold.Denominator)
}

// ErrInsufficientValidatorsOverlap indicates that less than the trust
// threshold of the *trusted* validator set's voting power signed the
// untrusted commit. This is the one predicate failure the verifier
// recovers from by bisecting, rather than failing outright.
func ErrInsufficientValidatorsOverlap(signedPower, totalPower int64, threshold types.TrustThreshold) error {
	return errors.Wrap(errInsufficientValidatorsOverlap{signedPower, totalPower, threshold}, "")
}

func IsErrInsufficientValidatorsOverlap(err error) bool {
	_, ok := errors.Cause(err).(errInsufficientValidatorsOverlap)
	return ok
}

type errInvalidCommit struct {
	signedPower, totalPower int64
	threshold                types.TrustThreshold
}

func (e errInvalidCommit) Error() string {
	return fmt.Sprintf("commit is not self-consistent: %d/%d signed power does not exceed threshold %d/%d",
		e.signedPower, e.totalPower, e.threshold.Numerator, e.threshold.Denominator)
}

// ErrInvalidCommit indicates the commit's own claimed signers do not carry
// enough of their own validator set's voting power -- the commit is
// internally inconsistent, independent of trust transfer.
func ErrInvalidCommit(signedPower, totalPower int64, threshold types.TrustThreshold) error {
	return errors.Wrap(errInvalidCommit{signedPower, totalPower, threshold}, "")
}

func IsErrInvalidCommit(err error) bool {
	_, ok := errors.Cause(err).(errInvalidCommit)
	return ok
}

// ---- verifier state machine (section 4.2, 7) ----

type errVerificationFailed struct {
	kind error
}

func (e errVerificationFailed) Error() string {
	return fmt.Sprintf("verification failed: %v", e.kind)
}

// ErrVerificationFailed wraps any predicate failure kind other than
// InsufficientValidatorsOverlap: these terminate the in-flight
// verification outright instead of triggering bisection.
func ErrVerificationFailed(kind error) error {
	return errors.Wrap(errVerificationFailed{kind}, "")
}

func IsErrVerificationFailed(err error) bool {
	_, ok := errors.Cause(err).(errVerificationFailed)
	return ok
}

// Kind unwraps the underlying predicate failure from a VerificationFailed
// error, or returns the original error unchanged if it isn't one.
func Kind(err error) error {
	if vf, ok := errors.Cause(err).(errVerificationFailed); ok {
		return vf.kind
	}
	return err
}

type errNoMatchingPendingState struct {
	height types.Height
}

func (e errNoMatchingPendingState) Error() string {
	return fmt.Sprintf("no pending verification state for height %d: fetcher returned an unsolicited response", e.height)
}

// ErrNoMatchingPendingState indicates a FetchedState event arrived for a
// height the verifier never issued a StateNeeded for. This is a fatal
// protocol error: it can only be caused by a misbehaving fetcher or a bug.
func ErrNoMatchingPendingState(height types.Height) error {
	return errors.Wrap(errNoMatchingPendingState{height}, "")
}

func IsErrNoMatchingPendingState(err error) bool {
	_, ok := errors.Cause(err).(errNoMatchingPendingState)
	return ok
}

type errHeightOverflow struct {
	trusted, untrusted types.Height
}

func (e errHeightOverflow) Error() string {
	return fmt.Sprintf("height overflow computing bisection pivot for trusted=%d untrusted=%d", e.trusted, e.untrusted)
}

// ErrHeightOverflow indicates trusted.Height + untrusted.Height overflowed
// uint64 while computing a bisection pivot.
func ErrHeightOverflow(trusted, untrusted types.Height) error {
	return errors.Wrap(errHeightOverflow{trusted, untrusted}, "")
}

func IsErrHeightOverflow(err error) bool {
	_, ok := errors.Cause(err).(errHeightOverflow)
	return ok
}

type errBisectionExhausted struct {
	trusted, untrusted types.Height
}

func (e errBisectionExhausted) Error() string {
	return fmt.Sprintf("bisection exhausted between trusted height %d and untrusted height %d: gap is 1 but overlap is still insufficient", e.trusted, e.untrusted)
}

// ErrBisectionExhausted indicates the bisection pivot collapsed onto the
// trusted height (gap of 1) and overlap is still insufficient: the full
// node's validator set changes cannot be trust-transferred no matter how
// finely we bisect.
func ErrBisectionExhausted(trusted, untrusted types.Height) error {
	return errors.Wrap(errBisectionExhausted{trusted, untrusted}, "")
}

func IsErrBisectionExhausted(err error) bool {
	_, ok := errors.Cause(err).(errBisectionExhausted)
	return ok
}

// ---- light client driver (section 4.3) ----

type errNextHeightMismatch struct {
	expected, got types.Height
}

func (e errNextHeightMismatch) Error() string {
	return fmt.Sprintf("protocol desync: expected next trusted height %d, got %d", e.expected, e.got)
}

// ErrNextHeightMismatch indicates the verifier reported a trusted state at
// a height other than the one the light client was expecting next -- a
// bug in the verifier or scheduler routing, never a legitimate outcome.
func ErrNextHeightMismatch(expected, got types.Height) error {
	return errors.Wrap(errNextHeightMismatch{expected, got}, "")
}

func IsErrNextHeightMismatch(err error) bool {
	_, ok := errors.Cause(err).(errNextHeightMismatch)
	return ok
}

type errAlreadyVerified struct {
	height types.Height
}

func (e errAlreadyVerified) Error() string {
	return fmt.Sprintf("height %d was already verified; ignoring unsolicited trusted state", e.height)
}

// ErrAlreadyVerified is a non-fatal notice: a StateVerified event arrived
// while the light client had no outstanding pending heights. Unlike the
// other errors in this package it does not abort an in-flight request --
// there is none -- and callers may choose to merely log it.
func ErrAlreadyVerified(height types.Height) error {
	return errors.Wrap(errAlreadyVerified{height}, "")
}

func IsErrAlreadyVerified(err error) bool {
	_, ok := errors.Cause(err).(errAlreadyVerified)
	return ok
}

// ---- fetcher / transport (section 7) ----

type errRPC struct {
	underlying error
}

func (e errRPC) Error() string {
	return fmt.Sprintf("rpc error: %v", e.underlying)
}

// ErrRPC wraps a transport-level failure from the fetcher. It is
// retryable at the caller's discretion; the core does not retry it.
func ErrRPC(underlying error) error {
	return errors.Wrap(errRPC{underlying}, "")
}

func IsErrRPC(err error) bool {
	_, ok := errors.Cause(err).(errRPC)
	return ok
}
