package match

import "github.com/cleared-dev/bankrec/internal/model"

// FilterCandidates drops reconciled candidates.
func FilterCandidates(cands []model.Candidate) []model.Candidate {
	out := make([]model.Candidate, 0, len(cands))
	for _, c := range cands {
		if c.Reconciled {
			continue
		}
		out = append(out, c)
	}
	return out
}

// FilterTransactions drops transactions already claimed by a reconciled
// candidate.
func FilterTransactions(txns []model.Transaction, cands []model.Candidate) []model.Transaction {
	claimed := Claimed(cands)
	out := make([]model.Transaction, 0, len(txns))
	for _, t := range txns {
		if _, ok := claimed[t.ID]; ok {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Claimed maps each claimed transaction id to the candidate holding it.
func Claimed(cands []model.Candidate) map[string]string {
	claimed := make(map[string]string)
	for _, c := range cands {
		if txID, ok := c.Claims(); ok {
			claimed[txID] = c.ID
		}
	}
	return claimed
}
