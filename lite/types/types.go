// Package types defines the canonical data model that the light client core
// operates on: headers, validator sets, commits, signed headers and trusted
// states. The types here carry no verification logic of their own -- they
// are plain value types consumed by lite/predicates and produced by
// lite/fetcher.
package types

import (
	"crypto/ed25519"
	"time"
)

// Height is a block index. It is strictly monotonic across a chain.
type Height uint64

// Header is the subset of a Tendermint block header the light client needs
// to establish trust: when it was produced, and the hashes committing it to
// the validator sets responsible for signing it and the next block.
type Header struct {
	Height             Height
	Time               time.Time
	ValidatorsHash     []byte
	NextValidatorsHash []byte
}

// ValidatorAddress identifies a validator within a ValidatorSet. It is
// supplied by whoever builds the set; lite/fetcher uses the full node's
// hex-encoded validator address.
type ValidatorAddress string

// Validator is a single member of a validator set.
type Validator struct {
	Address     ValidatorAddress
	PubKey      ed25519.PublicKey
	VotingPower int64
}

// ValidatorSet is an ordered collection of validators together with a
// Merkle hash of that ordering. The hash is supplied at construction time
// (typically by a HeaderHasher-adjacent capability) rather than recomputed
// on every access, mirroring how FullCommit.Validators is handled upstream.
type ValidatorSet struct {
	Validators []Validator
	hash       []byte
}

// NewValidatorSet builds a ValidatorSet from an ordered list of validators
// and its precomputed Merkle hash.
func NewValidatorSet(vals []Validator, hash []byte) *ValidatorSet {
	cp := make([]Validator, len(vals))
	copy(cp, vals)
	return &ValidatorSet{Validators: cp, hash: hash}
}

// Hash returns the Merkle hash of the validator set.
func (vs *ValidatorSet) Hash() []byte {
	if vs == nil {
		return nil
	}
	return vs.hash
}

// validatorSetAmino is the wire shape ValidatorSet marshals to: amino (like
// encoding/json) only walks exported fields via reflection, so the
// unexported hash needs an explicit MarshalAmino/UnmarshalAmino hook to
// survive a round trip through lite/store's durable tier.
type validatorSetAmino struct {
	Validators []Validator
	Hash       []byte
}

func (vs ValidatorSet) MarshalAmino() (validatorSetAmino, error) {
	return validatorSetAmino{Validators: vs.Validators, Hash: vs.hash}, nil
}

func (vs *ValidatorSet) UnmarshalAmino(x validatorSetAmino) error {
	vs.Validators = x.Validators
	vs.hash = x.Hash
	return nil
}

// Size returns the number of validators in the set.
func (vs *ValidatorSet) Size() int {
	if vs == nil {
		return 0
	}
	return len(vs.Validators)
}

// TotalVotingPower sums the voting power of every validator in the set.
// Per the VotingPowerCalculator.total_power_of contract, overflow is a
// programmer error (the total is bounded by consensus rules), so it panics
// rather than saturating.
func (vs *ValidatorSet) TotalVotingPower() int64 {
	var total int64
	for _, v := range vs.Validators {
		next := total + v.VotingPower
		if next < total {
			panic("types: validator set total voting power overflowed int64")
		}
		total = next
	}
	return total
}

// GetByAddress returns the index and Validator for addr, or (-1, nil) if
// addr is not a member of the set.
func (vs *ValidatorSet) GetByAddress(addr ValidatorAddress) (int, *Validator) {
	for i := range vs.Validators {
		if vs.Validators[i].Address == addr {
			return i, &vs.Validators[i]
		}
	}
	return -1, nil
}

// BlockID identifies a block by the hash of its header.
type BlockID struct {
	Hash []byte
}

// CommitSigKind distinguishes the three ways a validator's commit slot can
// be populated.
type CommitSigKind int

const (
	// AbsentSig means the validator did not precommit at all.
	AbsentSig CommitSigKind = iota
	// CommitSig means the validator precommitted for the BlockID in the
	// enclosing Commit.
	CommitSig
	// NilSig means the validator precommitted nil (it saw the round fail to
	// reach consensus on this specific block).
	NilSig
)

// CommitSig is one validator's precommit slot within a Commit.
type CommitSig struct {
	Kind             CommitSigKind
	ValidatorAddress ValidatorAddress
	Signature        []byte
	Timestamp        time.Time
}

// Commit is the set of precommit signatures gathered for a header at a
// given height and round.
type Commit struct {
	Height Height
	Round  int32
	// BlockID is the block this commit certifies.
	BlockID BlockID
	// HeaderHash is the hash of the header this commit was produced for, as
	// claimed by the full node. header_matches_commit checks this against
	// the header's own hash, computed via HeaderHasher.
	HeaderHash []byte
	Signatures []CommitSig
}

// SignedHeader pairs a header with the commit attesting it and the
// validator set that produced the commit.
type SignedHeader struct {
	Header         Header
	Commit         Commit
	Validators     *ValidatorSet
	ValidatorsHash []byte
}

// ChainID is carried separately from SignedHeader because it is supplied by
// the caller's trust context (the chain being synced), not decoded off the
// wire value-for-value; VotingPowerCalculator implementations that
// reconstruct canonical precommit messages need it.
type ChainID = string

// TrustThreshold is the fraction num/den of a trusted validator set's
// voting power that must also sign an untrusted commit before trust is
// transferred. 0 < num <= den.
type TrustThreshold struct {
	Numerator   uint64
	Denominator uint64
}

// DefaultTrustThreshold is the canonical 1/3 threshold.
var DefaultTrustThreshold = TrustThreshold{Numerator: 1, Denominator: 3}

// Validate reports whether t is a well-formed threshold.
func (t TrustThreshold) Validate() error {
	if t.Denominator == 0 {
		return errTrustThreshold{t}
	}
	if t.Numerator == 0 || t.Numerator > t.Denominator {
		return errTrustThreshold{t}
	}
	return nil
}

type errTrustThreshold struct{ t TrustThreshold }

func (e errTrustThreshold) Error() string {
	return "invalid trust threshold: numerator and denominator must satisfy 0 < num <= den"
}

// TrustedState is a (header, validator set) pair the light client has
// previously verified and is willing to use as the starting point of a
// further verification.
type TrustedState struct {
	Header     Header
	Validators *ValidatorSet
}
