// Package lightclient is the top-level driver: it owns the queue of
// outstanding VerifyAtHeight requests, hands each one to the verifier as a
// VerificationNeeded event, and on each StateVerified reply persists the
// newly trusted state, then either retries the in-flight request's target
// directly against that newly advanced trust (when the verifier only
// resolved an intermediate bisection pivot), or -- once trust has actually
// reached the target -- announces every trusted state gathered along the
// way as a single NewTrustedStates event. It never talks to the fetcher or runs a predicate itself -- that
// is the verifier's and capabilities' job respectively.
package lightclient

import (
	lerr "github.com/tmlite/tmlite/lite/errors"
	"github.com/tmlite/tmlite/lite/events"
	"github.com/tmlite/tmlite/lite/store"
	"github.com/tmlite/tmlite/lite/types"
)

// inFlight tracks the external request currently being serviced: the
// height it ultimately wants trust extended to, and every trusted state
// the bisection has advanced through so far on the way there.
type inFlight struct {
	target types.Height
	trail  []types.TrustedState
}

// LightClient tracks outstanding verification requests against a trusted
// store. It is driven by a single goroutine (the scheduler); it holds no
// locks of its own.
type LightClient struct {
	store   store.Store
	pending []types.Height // FIFO queue of requested target heights
	current *inFlight
}

// New constructs a LightClient backed by s, which must already contain a
// bootstrap trusted state (see section 12's TrustOptions-style bootstrap).
func New(s store.Store) *LightClient {
	return &LightClient{store: s}
}

// HandleVerifyAtHeight enqueues a request to bring trust to height (or the
// full node's head, if height is zero). If no verification is currently in
// flight, it returns the VerificationNeeded event to send to the verifier;
// otherwise the request is merely queued and nil is returned.
func (lc *LightClient) HandleVerifyAtHeight(ev events.VerifyAtHeight) (*events.VerificationNeeded, error) {
	lc.pending = append(lc.pending, ev.Height)
	if lc.current != nil {
		return nil, nil
	}
	return lc.startNextLocked()
}

// HandleStateVerified consumes the verifier's reply for the height it is
// currently attempting on behalf of the in-flight request. The verifier
// only ever reports the single height it was asked to examine, so a
// verified height below the in-flight target is an intermediate bisection
// pivot: trust advances to it and the *same* target is retried directly
// against the newly advanced trusted state, rather than bisecting further
// here. Only once the verified height reaches the target does the request
// complete, reporting every trusted state gathered along the way. On
// failure the whole request is abandoned and the next queued request (if
// any) is started, since one failure should not stall unrelated requests.
func (lc *LightClient) HandleStateVerified(sv events.StateVerified) (*events.NewTrustedStates, *events.VerificationNeeded, error) {
	if lc.current == nil {
		// No outstanding request: this is an unsolicited notice, not a
		// protocol error. The verifier may legitimately finish a
		// bisection after the light client already gave up waiting on it
		// in some deployments; callers decide whether to log and move on.
		h := types.Height(0)
		if sv.Err == nil {
			h = sv.TrustedState.Header.Height
		}
		return nil, nil, lerr.ErrAlreadyVerified(h)
	}

	cur := lc.current

	if sv.Err != nil {
		lc.current = nil
		lc.pending = lc.pending[1:]
		next, nerr := lc.startNextLocked()
		if nerr != nil {
			return nil, nil, nerr
		}
		return nil, next, sv.Err
	}

	got := sv.TrustedState.Header.Height
	if cur.target != 0 && got > cur.target {
		// The verifier never examines a height past the requested target;
		// anything higher is a routing bug, not a legitimate pivot.
		lc.current = nil
		return nil, nil, lerr.ErrNextHeightMismatch(cur.target, got)
	}

	if err := lc.store.SaveTrustedState(sv.TrustedState); err != nil {
		return nil, nil, err
	}
	cur.trail = append(cur.trail, sv.TrustedState)

	if cur.target != 0 && got != cur.target {
		// Intermediate bisection pivot: retry the original target directly
		// against the newly advanced trusted state, still the same
		// in-flight request.
		return nil, &events.VerificationNeeded{TrustedState: sv.TrustedState, TargetHeight: cur.target}, nil
	}

	lc.current = nil
	lc.pending = lc.pending[1:]
	result := &events.NewTrustedStates{TrustedHeight: got, States: cur.trail}

	next, err := lc.startNextLocked()
	if err != nil {
		return result, nil, err
	}
	return result, next, nil
}

// startNextLocked pops the next queued height, if any, and builds the
// VerificationNeeded event for it against the store's current latest
// trusted state.
func (lc *LightClient) startNextLocked() (*events.VerificationNeeded, error) {
	if len(lc.pending) == 0 {
		return nil, nil
	}
	latest, err := lc.store.LatestTrustedState()
	if err != nil {
		return nil, err
	}
	target := lc.pending[0]
	lc.current = &inFlight{target: target}
	return &events.VerificationNeeded{TrustedState: latest, TargetHeight: target}, nil
}

// Pending reports the number of outstanding requests. Exposed for tests.
func (lc *LightClient) Pending() int {
	return len(lc.pending)
}
