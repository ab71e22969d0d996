// Package scheduler runs the single-threaded event loop that connects the
// light client, verifier and fetcher state machines. None of those three
// packages import one another; the scheduler is the only place that knows
// the full routing topology, translating one component's output event
// into the next component's input call. Fetches run on a helper goroutine
// so a slow full node never blocks verification bookkeeping, but every
// state mutation in lightclient.LightClient and verifier.Verifier happens
// on the loop goroutine alone.
package scheduler

import (
	"context"

	"github.com/tendermint/tendermint/libs/log"

	"github.com/tmlite/tmlite/lite/events"
	"github.com/tmlite/tmlite/lite/fetcher"
	"github.com/tmlite/tmlite/lite/lightclient"
	"github.com/tmlite/tmlite/lite/verifier"
)

// defaultQueueDepth bounds the scheduler's internal channels. A client
// issuing more concurrent VerifyAtHeight requests than this blocks on
// Submit until the loop drains some.
const defaultQueueDepth = 16

type terminateEvent struct{}

// Scheduler owns a LightClient, Verifier and Fetcher and drives them from
// a single goroutine started by Run.
type Scheduler struct {
	lc *lightclient.LightClient
	v  *verifier.Verifier
	f  fetcher.Fetcher

	// feedback carries events produced internally (FetchedState replies
	// from fetch goroutines, and the terminate marker) and is always
	// drained before external, so an
	// in-flight verification always makes progress ahead of new requests.
	feedback chan interface{}
	external chan events.VerifyAtHeight
	results  chan events.NewTrustedStates

	logger log.Logger
}

// New constructs a Scheduler. If logger is nil, log.NewNopLogger() is used.
func New(lc *lightclient.LightClient, v *verifier.Verifier, f fetcher.Fetcher, logger log.Logger) *Scheduler {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Scheduler{
		lc:       lc,
		v:        v,
		f:        f,
		feedback: make(chan interface{}, defaultQueueDepth),
		external: make(chan events.VerifyAtHeight, defaultQueueDepth),
		results:  make(chan events.NewTrustedStates, defaultQueueDepth),
		logger:   logger,
	}
}

// Submit enqueues a request to verify up to height (or the chain head, if
// height is zero). It blocks if the external queue is full.
func (s *Scheduler) Submit(ctx context.Context, height events.VerifyAtHeight) error {
	select {
	case s.external <- height:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Results returns the channel NewTrustedStates announcements are published
// on once a VerifyAtHeight request completes.
func (s *Scheduler) Results() <-chan events.NewTrustedStates {
	return s.results
}

// Terminate queues a stop marker on the feedback channel: Run handles the
// feedback events queued before it and then returns, leaving any queued
// external requests unhandled.
func (s *Scheduler) Terminate() {
	s.feedback <- terminateEvent{}
}

// Run drives the event loop until ctx is cancelled or Terminate is called.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		// Feedback always wins a simultaneous-ready race against external
		// input: an in-flight bisection should finish before a brand new
		// request starts competing for the same single verifier slot.
		select {
		case ev := <-s.feedback:
			if _, ok := ev.(terminateEvent); ok {
				return nil
			}
			s.dispatch(ctx, ev)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-s.feedback:
			if _, ok := ev.(terminateEvent); ok {
				return nil
			}
			s.dispatch(ctx, ev)
		case ev := <-s.external:
			s.dispatch(ctx, ev)
		}
	}
}

func (s *Scheduler) dispatch(ctx context.Context, ev interface{}) {
	switch e := ev.(type) {
	case events.VerifyAtHeight:
		needed, err := s.lc.HandleVerifyAtHeight(e)
		if err != nil {
			s.logf("light client: handling VerifyAtHeight", "height", e.Height, "err", err)
			return
		}
		s.startVerification(ctx, needed)

	case events.FetchedState:
		result, err := s.v.HandleFetchedState(e)
		if err != nil {
			s.logf("verifier: handling FetchedState", "height", e.Height, "err", err)
			return
		}
		s.routeVerifierResult(ctx, result)

	case events.StateVerified:
		newTrusted, next, err := s.lc.HandleStateVerified(e)
		if err != nil {
			s.logf("light client: handling StateVerified", "err", err)
		}
		if newTrusted != nil {
			select {
			case s.results <- *newTrusted:
			case <-ctx.Done():
			}
		}
		s.startVerification(ctx, next)

	default:
		s.logf("scheduler: unrecognized event", "type", ev)
	}
}

func (s *Scheduler) routeVerifierResult(ctx context.Context, result interface{}) {
	switch r := result.(type) {
	case events.StateNeeded:
		s.spawnFetch(ctx, r)
	case events.StateVerified:
		s.dispatch(ctx, r)
	default:
		s.logf("scheduler: unrecognized verifier result", "type", result)
	}
}

func (s *Scheduler) startVerification(ctx context.Context, needed *events.VerificationNeeded) {
	if needed == nil {
		return
	}
	stateNeeded := s.v.HandleVerificationNeeded(*needed)
	s.spawnFetch(ctx, stateNeeded)
}

// spawnFetch runs the fetcher on its own goroutine and posts the result
// back onto feedback once it completes, so the loop goroutine never blocks
// on network I/O.
func (s *Scheduler) spawnFetch(ctx context.Context, sn events.StateNeeded) {
	go func() {
		fs := s.f.FetchState(ctx, sn.Height)
		select {
		case s.feedback <- fs:
		case <-ctx.Done():
		}
	}()
}

func (s *Scheduler) logf(msg string, keyvals ...interface{}) {
	s.logger.Error(msg, keyvals...)
}
