package capabilities

import (
	"bytes"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/tmlite/tmlite/lite/types"
)

// DefaultHeaderHasher computes the canonical Tendermint-style block header
// hash: a SHA-256 digest over the length-delimited varint-framed
// concatenation of the header's fields, mirroring the encoding scheme
// go-amino's MarshalBinaryLengthPrefixed uses for the trusted store
// (lite/store). It is deterministic and allocation-light.
type DefaultHeaderHasher struct{}

func (DefaultHeaderHasher) Hash(h types.Header) []byte {
	var buf bytes.Buffer
	writeFramed(&buf, encodeUvarint(uint64(h.Height)))
	writeFramed(&buf, encodeVarint(h.Time.UnixNano()))
	writeFramed(&buf, h.ValidatorsHash)
	writeFramed(&buf, h.NextValidatorsHash)
	sum := sha256.Sum256(buf.Bytes())
	return sum[:]
}

func writeFramed(buf *bytes.Buffer, field []byte) {
	lenPrefix := encodeUvarint(uint64(len(field)))
	buf.Write(lenPrefix)
	buf.Write(field)
}

func encodeUvarint(v uint64) []byte {
	b := make([]byte, binary.MaxVarintLen64)
	n := binary.PutUvarint(b, v)
	return b[:n]
}

func encodeVarint(v int64) []byte {
	b := make([]byte, binary.MaxVarintLen64)
	n := binary.PutVarint(b, v)
	return b[:n]
}

// DefaultCommitValidator implements the structural checks of section 6:
// slot count matches validator count, and every non-Absent slot is signed by
// an address present in the validator set. A CommitSig carries no block
// reference of its own, so it does not check which block a slot was cast
// for. It does not verify signatures or tally power -- that is
// VotingPowerCalculator's job.
type DefaultCommitValidator struct{}

func (DefaultCommitValidator) Validate(commit types.Commit, vals *types.ValidatorSet) error {
	if len(commit.Signatures) != vals.Size() {
		return fmt.Errorf("commit has %d signature slots, validator set has %d members",
			len(commit.Signatures), vals.Size())
	}
	for i, sig := range commit.Signatures {
		if sig.Kind == types.AbsentSig {
			continue
		}
		idx, v := vals.GetByAddress(sig.ValidatorAddress)
		if idx < 0 || v == nil {
			return fmt.Errorf("slot %d signed by %s, which is not in the validator set", i, sig.ValidatorAddress)
		}
	}
	return nil
}

// DefaultVotingPowerCalculator verifies each non-Absent commit signature
// with ed25519 and tallies the voting power of slots flagged Commit. It
// follows the ed25519.Verify usage grounded in the tolelom-tolchain
// crypto/signature.go helper, reconstructing the canonical precommit
// message from the given chain id, the height, round and block id carried
// by the commit, and each slot's timestamp.
type DefaultVotingPowerCalculator struct{}

func (DefaultVotingPowerCalculator) VotingPowerIn(chainID types.ChainID, sh types.SignedHeader, vals *types.ValidatorSet) (int64, error) {
	total := vals.TotalVotingPower()
	var signed int64

	for i, sig := range sh.Commit.Signatures {
		if sig.Kind == types.AbsentSig {
			continue
		}
		if i >= len(vals.Validators) {
			return 0, fmt.Errorf("commit slot %d has no corresponding validator", i)
		}
		v := vals.Validators[i]
		if v.Address != sig.ValidatorAddress {
			return 0, fmt.Errorf("commit slot %d is for validator %s, but the set at that index is %s", i, sig.ValidatorAddress, v.Address)
		}

		msg := CanonicalPrecommitBytes(chainID, sh.Commit.Height, sh.Commit.Round, sig.Kind, sh.Commit.BlockID, sig.Timestamp)
		if !ed25519.Verify(v.PubKey, msg, sig.Signature) {
			return 0, fmt.Errorf("signature verification failed for validator %s at slot %d", v.Address, i)
		}

		if sig.Kind == types.CommitSig {
			signed += v.VotingPower
			if signed >= (2*total)/3 && 3*signed >= 2*total {
				// Early exit once the tally reaches two thirds of the
				// total (3*signed >= 2*total); the returned sum is then
				// a lower bound on the full tally, not the full tally.
				return signed, nil
			}
		}
	}

	return signed, nil
}

func (DefaultVotingPowerCalculator) TotalPowerOf(vals *types.ValidatorSet) int64 {
	return vals.TotalVotingPower()
}

// CanonicalPrecommitBytes reconstructs the message a validator signs for a
// precommit vote: chain id, height, round, the vote timestamp, and (for
// Commit slots only) the block id it precommitted for.
func CanonicalPrecommitBytes(chainID types.ChainID, height types.Height, round int32, kind types.CommitSigKind, blockID types.BlockID, ts time.Time) []byte {
	var buf bytes.Buffer
	buf.WriteString(chainID)
	buf.Write(encodeUvarint(uint64(height)))
	buf.Write(encodeVarint(int64(round)))
	buf.Write(encodeVarint(ts.UnixNano()))
	if kind == types.CommitSig {
		buf.Write(blockID.Hash)
	}
	return buf.Bytes()
}
