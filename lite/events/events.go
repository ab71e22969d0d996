// Package events defines the payload structs carried between the light
// client, verifier and fetcher state machines. They live in their own
// package, rather than alongside each state machine, so that lightclient,
// verifier and fetcher never need to import one another directly -- only
// the scheduler (lite/scheduler) knows the full routing topology, exactly
// as section 9's design note describes.
package events

import (
	"github.com/tmlite/tmlite/lite/types"
)

// VerifyAtHeight is the external request that starts a verification: bring
// the light client's trust to height, or as close to the chain head as
// possible if height is zero.
type VerifyAtHeight struct {
	Height types.Height
}

// VerificationNeeded is sent by the light client to the verifier: attempt
// to transfer trust from trustedState to targetHeight, bisecting as
// necessary.
type VerificationNeeded struct {
	TrustedState types.TrustedState
	TargetHeight types.Height
}

// StateNeeded is sent by the verifier to the fetcher: retrieve the signed
// header and validator sets for height.
type StateNeeded struct {
	Height types.Height
}

// FetchedState is the fetcher's response to a StateNeeded: either the
// requested material, or an error if it could not be retrieved.
type FetchedState struct {
	Height              types.Height
	SignedHeader        types.SignedHeader
	NextValidatorsHash  []byte
	Err                 error
}

// StateVerified is sent by the verifier back to the light client once a
// single (trusted, untrusted) pair has cleared Verify -- not necessarily
// the final target height, since bisection may still be in progress for a
// larger gap.
type StateVerified struct {
	TrustedState types.TrustedState
	Err          error
}

// NewTrustedStates is sent by the light client to the external out_channel
// once a VerifyAtHeight request is fully satisfied: TrustedHeight is the
// height trust ultimately reached, and States carries every intermediate
// trusted state the bisection advanced through to get there, in ascending
// order, including the final one. A direct verification with no bisection
// produces a single-element States.
type NewTrustedStates struct {
	TrustedHeight types.Height
	States        []types.TrustedState
}
