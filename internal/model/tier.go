package model

// Tier classifies how confidently a row matches the other side.
type Tier string

const (
	TierExact       Tier = "matched-exact"
	TierApproximate Tier = "matched-approximate"
	TierUnmatched   Tier = "unmatched"
)

// Matched reports whether t is one of the matched tiers.
func (t Tier) Matched() bool {
	return t == TierExact || t == TierApproximate
}

// Pair is one row of a commit payload: the candidate and the transaction it
// claims.
type Pair struct {
	CandidateID string
	ReconcileID string
}

// CommitAck is the Record Store's answer to a batch commit.
type CommitAck struct {
	Success      bool
	AppliedCount int
}
