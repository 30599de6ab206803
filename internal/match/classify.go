package match

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/bankrec/internal/model"
)

// Classification holds the tier of every row in a working set, keyed by id.
type Classification struct {
	Transactions map[string]model.Tier
	Candidates   map[string]model.Tier
}

// TierCounts tallies rows per tier.
type TierCounts struct {
	Exact       int
	Approximate int
	Unmatched   int
}

func (c *TierCounts) add(t model.Tier) {
	switch t {
	case model.TierExact:
		c.Exact++
	case model.TierApproximate:
		c.Approximate++
	default:
		c.Unmatched++
	}
}

// Counts tallies the tiers on each side.
func (c Classification) Counts() (txns, cands TierCounts) {
	for _, t := range c.Transactions {
		txns.add(t)
	}
	for _, t := range c.Candidates {
		cands.add(t)
	}
	return txns, cands
}

// Classify assigns a tier to every transaction (against the candidate index)
// and every candidate (against the transaction index). The two sides are
// computed independently and may disagree when amounts repeat.
func Classify(txns []model.Transaction, cands []model.Candidate, txIndex, candIndex *Index) Classification {
	out := Classification{
		Transactions: make(map[string]model.Tier, len(txns)),
		Candidates:   make(map[string]model.Tier, len(cands)),
	}
	for _, t := range txns {
		out.Transactions[t.ID] = TierOf(t.CheckNo, t.Amount, t.Date, candIndex)
	}
	for _, c := range cands {
		out.Candidates[c.ID] = TierOf(c.CheckNo, c.Amount, c.Date, txIndex)
	}
	return out
}

// TierOf classifies one row against the counterpart index. A shared
// non-empty check number wins regardless of amount or date.
func TierOf(checkNo string, amount decimal.Decimal, date civil.Date, counterpart *Index) model.Tier {
	if counterpart.HasCheckNo(checkNo) {
		return model.TierExact
	}
	if counterpart.HasAmountDate(amount, date) {
		return model.TierApproximate
	}
	return model.TierUnmatched
}
