package match

import "github.com/cleared-dev/bankrec/internal/model"

// Resolve returns the transaction a candidate pairs with, using the same
// priority as TierOf: check number first, then amount+date. Among several
// hits the smallest transaction id wins.
func Resolve(c model.Candidate, txIndex *Index) (string, bool) {
	if txID, ok := txIndex.FirstByCheckNo(c.CheckNo); ok {
		return txID, true
	}
	return txIndex.FirstByAmountDate(c.Amount, c.Date)
}
