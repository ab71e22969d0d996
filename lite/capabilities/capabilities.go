// Package capabilities defines the cryptographic primitives the predicates
// in lite/predicates consult: header hashing, commit structural validation,
// and voting power tallying. These are the "external collaborators" named
// in section 1 of the spec -- the core never hashes or verifies a
// signature itself, it only asks a capability to.
package capabilities

import (
	"github.com/tmlite/tmlite/lite/types"
)

// HeaderHasher computes the canonical hash of a header. It must be pure
// and deterministic: the same header always hashes to the same value.
type HeaderHasher interface {
	Hash(h types.Header) []byte
}

// CommitValidator performs the structural checks on a commit that do not
// require tallying voting power: every slot accounted for, and no slot
// signed by an address outside the validator set.
type CommitValidator interface {
	Validate(commit types.Commit, vals *types.ValidatorSet) error
}

// VotingPowerCalculator verifies precommit signatures and tallies voting
// power. VotingPowerIn is also where cryptographic signature verification
// happens -- a signature that fails to verify is reported as an error, not
// silently excluded from the tally.
type VotingPowerCalculator interface {
	// VotingPowerIn returns the sum of voting power of validators in vals
	// whose precommit in sh.Commit verifies. See section 4.1 for the exact
	// contract (index order, Absent/Nil handling, early exit).
	VotingPowerIn(chainID types.ChainID, sh types.SignedHeader, vals *types.ValidatorSet) (int64, error)
	// TotalPowerOf sums the voting power of every validator in vals.
	TotalPowerOf(vals *types.ValidatorSet) int64
}
