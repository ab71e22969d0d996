// Package verifier implements the bisecting verification state machine:
// given a trusted state and a target height, transfer trust to that
// height directly when possible, or narrow the gap by bisection when the
// trusted validator set's overlap with the target height's commit falls
// short. It holds no knowledge of the fetcher or light client beyond the
// event payloads it exchanges with them; the scheduler wires it to both.
package verifier

import (
	lerr "github.com/tmlite/tmlite/lite/errors"
	"github.com/tmlite/tmlite/lite/events"
	"github.com/tmlite/tmlite/lite/predicates"
	"github.com/tmlite/tmlite/lite/types"
)

// Verifier holds the trusted state each in-flight fetch was requested
// against, keyed by the height currently being fetched. It is not safe for
// concurrent use -- the scheduler drives it from a single goroutine, per
// section 9's single-threaded design.
//
// The verifier only ever resolves the one height it was just asked to
// examine: it reports StateVerified for that height alone, whether it was
// the light client's originally requested target or a bisection pivot, and
// never chases the original target on its own. Deciding whether a verified
// pivot needs the target retried is the light client's job (its
// pending-heights bookkeeping, section 4.3) -- the verifier has no notion
// of "the ultimate target" once a fetch is registered.
type Verifier struct {
	chainID   types.ChainID
	threshold types.TrustThreshold
	caps      predicates.Capabilities
	pending   map[types.Height]types.TrustedState
}

// New constructs a Verifier for chainID, transferring trust only when more
// than threshold of a trusted validator set's voting power overlaps an
// untrusted commit.
func New(chainID types.ChainID, threshold types.TrustThreshold, caps predicates.Capabilities) *Verifier {
	return &Verifier{
		chainID:   chainID,
		threshold: threshold,
		caps:      caps,
		pending:   make(map[types.Height]types.TrustedState),
	}
}

// HandleVerificationNeeded begins a verification attempt: it registers the
// trusted state the height is to be verified against and returns the
// StateNeeded event the scheduler should route to the fetcher.
func (v *Verifier) HandleVerificationNeeded(ev events.VerificationNeeded) events.StateNeeded {
	v.pending[ev.TargetHeight] = ev.TrustedState
	return events.StateNeeded{Height: ev.TargetHeight}
}

// HandleFetchedState consumes a fetcher response for a height this
// Verifier is waiting on. It returns either a StateNeeded (the fetched
// height had insufficient validator overlap, so a bisection pivot between
// the registered trusted height and the fetched height must be examined
// next) or a StateVerified (the fetched height verified, or failed for a
// reason other than insufficient overlap) for the scheduler to route
// onward.
func (v *Verifier) HandleFetchedState(fs events.FetchedState) (interface{}, error) {
	trusted, ok := v.pending[fs.Height]
	if !ok {
		return nil, lerr.ErrNoMatchingPendingState(fs.Height)
	}
	delete(v.pending, fs.Height)

	if fs.Err != nil {
		return events.StateVerified{Err: fs.Err}, nil
	}

	err := predicates.Verify(v.chainID, fs.SignedHeader, fs.NextValidatorsHash, trusted, v.threshold, v.caps)
	if err == nil {
		newTrusted := types.TrustedState{
			Header:     fs.SignedHeader.Header,
			Validators: fs.SignedHeader.Validators,
		}
		return events.StateVerified{TrustedState: newTrusted}, nil
	}

	if lerr.IsErrInsufficientValidatorsOverlap(err) {
		pivot, perr := bisectionPivot(trusted.Header.Height, fs.SignedHeader.Header.Height)
		if perr != nil {
			return events.StateVerified{Err: perr}, nil
		}
		v.pending[pivot] = trusted
		return events.StateNeeded{Height: pivot}, nil
	}

	return events.StateVerified{Err: lerr.ErrVerificationFailed(err)}, nil
}

// Pending reports how many bisections are currently in flight. Exposed for
// tests and diagnostics; the scheduler does not consult it.
func (v *Verifier) Pending() int {
	return len(v.pending)
}

// bisectionPivot picks the midpoint height between trusted and untrusted.
// It fails if the sum overflows, or if the midpoint collapses onto
// trusted -- the gap is down to 1 and overlap is still insufficient, so no
// further bisection can help.
func bisectionPivot(trusted, untrusted types.Height) (types.Height, error) {
	t, u := uint64(trusted), uint64(untrusted)
	sum := t + u
	if sum < t {
		return 0, lerr.ErrHeightOverflow(trusted, untrusted)
	}
	pivot := types.Height(sum / 2)
	if pivot <= trusted {
		return 0, lerr.ErrBisectionExhausted(trusted, untrusted)
	}
	return pivot, nil
}
