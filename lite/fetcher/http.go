package fetcher

import (
	"context"
	"fmt"
	stded25519 "crypto/ed25519"

	tmed25519 "github.com/tendermint/tendermint/crypto/ed25519"
	rpchttp "github.com/tendermint/tendermint/rpc/client/http"
	tmtypes "github.com/tendermint/tendermint/types"

	"github.com/tmlite/tmlite/lite/capabilities"
	"github.com/tmlite/tmlite/lite/events"
	"github.com/tmlite/tmlite/lite/types"
)

// signStatusClient is the slice of the full node RPC surface this fetcher
// needs: the commit (signed header) at a height, and the validator set in
// effect there. It is satisfied by *rpchttp.HTTP, and narrowed to an
// interface so tests can fake a full node without standing up a server --
// the same shape the teacher's providers/http.go builds against.
type signStatusClient interface {
	Commit(ctx context.Context, height *int64) (*tmtypes.SignedHeader, error)
	Validators(ctx context.Context, height *int64, page, perPage *int) ([]*tmtypes.Validator, int, error)
}

// HTTP fetches state over a full node's RPC endpoint.
type HTTP struct {
	client signStatusClient
	hasher capabilities.HeaderHasher
}

// NewHTTP dials remote (e.g. "tcp://localhost:26657") and returns a
// Fetcher backed by it.
func NewHTTP(remote string, hasher capabilities.HeaderHasher) (*HTTP, error) {
	c, err := rpchttp.New(remote, "/websocket")
	if err != nil {
		return nil, fmt.Errorf("dialing full node %s: %w", remote, err)
	}
	return &HTTP{client: &rpcAdapter{c}, hasher: hasher}, nil
}

// NewHTTPWithClient wraps an already-constructed client, primarily for
// tests that supply a fake signStatusClient.
func NewHTTPWithClient(client signStatusClient, hasher capabilities.HeaderHasher) *HTTP {
	return &HTTP{client: client, hasher: hasher}
}

func (h *HTTP) FetchState(ctx context.Context, height types.Height) events.FetchedState {
	var hptr *int64
	if height != 0 {
		v := int64(height)
		hptr = &v
	}

	sh, err := h.client.Commit(ctx, hptr)
	if err != nil {
		return events.FetchedState{Height: height, Err: fmt.Errorf("fetching commit: %w", err)}
	}

	commitHeight := sh.Header.Height
	vals, total, err := h.client.Validators(ctx, &commitHeight, nil, nil)
	if err != nil {
		return events.FetchedState{Height: height, Err: fmt.Errorf("fetching validators at %d: %w", commitHeight, err)}
	}

	nextHeight := commitHeight + 1
	nextVals, _, err := h.client.Validators(ctx, &nextHeight, nil, nil)
	var nextValidatorsHash []byte
	if err == nil {
		nvs := convertValidatorSet(nextVals, total, h.hasher)
		nextValidatorsHash = nvs.Hash()
	}

	valSet := convertValidatorSet(vals, total, h.hasher)

	signed := types.SignedHeader{
		Header:         convertHeader(sh.Header),
		Commit:         convertCommit(sh.Commit),
		Validators:     valSet,
		ValidatorsHash: valSet.Hash(),
	}

	// Height echoes the requested height (zero for the head), the key the
	// verifier registered this fetch under.
	return events.FetchedState{
		Height:             height,
		SignedHeader:       signed,
		NextValidatorsHash: nextValidatorsHash,
	}
}

func convertHeader(h *tmtypes.Header) types.Header {
	return types.Header{
		Height:             types.Height(h.Height),
		Time:               h.Time,
		ValidatorsHash:     []byte(h.ValidatorsHash),
		NextValidatorsHash: []byte(h.NextValidatorsHash),
	}
}

func convertCommit(c *tmtypes.Commit) types.Commit {
	sigs := make([]types.CommitSig, len(c.Signatures))
	for i, s := range c.Signatures {
		sigs[i] = types.CommitSig{
			Kind:             convertSigKind(s.BlockIDFlag),
			ValidatorAddress: types.ValidatorAddress(s.ValidatorAddress.String()),
			Signature:        s.Signature,
			Timestamp:        s.Timestamp,
		}
	}
	return types.Commit{
		Height:  types.Height(c.Height),
		Round:   c.Round,
		BlockID: types.BlockID{Hash: []byte(c.BlockID.Hash)},
		// HeaderHash is the wire-claimed hash the full node's commit
		// actually attests to, not a hash recomputed locally off the
		// header this fetch also returned -- header_matches_commit needs
		// the two computed independently to be a meaningful check.
		HeaderHash: []byte(c.BlockID.Hash),
		Signatures: sigs,
	}
}

func convertSigKind(f tmtypes.BlockIDFlag) types.CommitSigKind {
	switch f {
	case tmtypes.BlockIDFlagCommit:
		return types.CommitSig
	case tmtypes.BlockIDFlagNil:
		return types.NilSig
	default:
		return types.AbsentSig
	}
}

func convertValidatorSet(vals []*tmtypes.Validator, total int, hasher capabilities.HeaderHasher) *types.ValidatorSet {
	out := make([]types.Validator, 0, len(vals))
	for _, v := range vals {
		out = append(out, types.Validator{
			Address:     types.ValidatorAddress(v.Address.String()),
			PubKey:      convertPubKey(v.PubKey),
			VotingPower: v.VotingPower,
		})
	}
	// The set's hash is computed from the fetched validators themselves, so
	// the validator_sets_match and next_validators_match predicates check
	// the header's claims against the set's true contents.
	return types.NewValidatorSet(out, (&tmtypes.ValidatorSet{Validators: vals}).Hash())
}

func convertPubKey(pk interface{ Bytes() []byte }) stded25519.PublicKey {
	if ed, ok := pk.(tmed25519.PubKey); ok {
		return stded25519.PublicKey([]byte(ed))
	}
	return stded25519.PublicKey(pk.Bytes())
}

// rpcAdapter narrows *rpchttp.HTTP down to signStatusClient.
type rpcAdapter struct {
	c *rpchttp.HTTP
}

func (a *rpcAdapter) Commit(ctx context.Context, height *int64) (*tmtypes.SignedHeader, error) {
	res, err := a.c.Commit(ctx, height)
	if err != nil {
		return nil, err
	}
	return &res.SignedHeader, nil
}

func (a *rpcAdapter) Validators(ctx context.Context, height *int64, page, perPage *int) ([]*tmtypes.Validator, int, error) {
	res, err := a.c.Validators(ctx, height, page, perPage)
	if err != nil {
		return nil, 0, err
	}
	return res.Validators, res.Total, nil
}
