// Package fetcher retrieves signed headers and validator sets from a full
// node. It is the only component in this module that talks to the network;
// everything else operates on the plain values in lite/types.
package fetcher

import (
	"context"

	"github.com/tmlite/tmlite/lite/events"
	"github.com/tmlite/tmlite/lite/types"
)

// Fetcher retrieves the state needed to verify a height. Height zero means
// "the full node's current head".
type Fetcher interface {
	FetchState(ctx context.Context, height types.Height) events.FetchedState
}
