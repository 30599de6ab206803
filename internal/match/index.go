package match

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/bankrec/internal/id"
	"github.com/cleared-dev/bankrec/internal/model"
)

// AmountDateKey identifies rows with the same amount on the same calendar day.
type AmountDateKey struct {
	Amount string // canonical decimal string, trailing zeros trimmed
	Date   civil.Date
}

// KeyOf builds the amount+date key. 500, 500.0 and 500.00 share a key.
func KeyOf(amount decimal.Decimal, date civil.Date) AmountDateKey {
	return AmountDateKey{Amount: amount.String(), Date: date}
}

// Index is a lookup structure over one side of the working set.
// Buckets keep insertion order; lookups pick the minimum id.
type Index struct {
	byCheckNo    map[string][]string
	byAmountDate map[AmountDateKey][]string
}

func newIndex(n int) *Index {
	return &Index{
		byCheckNo:    make(map[string][]string),
		byAmountDate: make(map[AmountDateKey][]string, n),
	}
}

func (ix *Index) add(rowID, checkNo string, amount decimal.Decimal, date civil.Date) {
	if cn := model.NormalizeCheckNo(checkNo); cn != "" {
		ix.byCheckNo[cn] = append(ix.byCheckNo[cn], rowID)
	}
	key := KeyOf(amount, date)
	ix.byAmountDate[key] = append(ix.byAmountDate[key], rowID)
}

// BuildTransactionIndex indexes bank transactions by check number and by
// amount+date.
func BuildTransactionIndex(txns []model.Transaction) *Index {
	ix := newIndex(len(txns))
	for _, t := range txns {
		ix.add(t.ID, t.CheckNo, t.Amount, t.Date)
	}
	return ix
}

// BuildCandidateIndex indexes ledger candidates by check number and by
// amount+date.
func BuildCandidateIndex(cands []model.Candidate) *Index {
	ix := newIndex(len(cands))
	for _, c := range cands {
		ix.add(c.ID, c.CheckNo, c.Amount, c.Date)
	}
	return ix
}

// HasCheckNo reports whether any row carries checkNo. Empty check numbers
// never match.
func (ix *Index) HasCheckNo(checkNo string) bool {
	cn := model.NormalizeCheckNo(checkNo)
	return cn != "" && len(ix.byCheckNo[cn]) > 0
}

// HasAmountDate reports whether any row has the given amount on the given day.
func (ix *Index) HasAmountDate(amount decimal.Decimal, date civil.Date) bool {
	return len(ix.byAmountDate[KeyOf(amount, date)]) > 0
}

// FirstByCheckNo returns the smallest id carrying checkNo.
func (ix *Index) FirstByCheckNo(checkNo string) (string, bool) {
	cn := model.NormalizeCheckNo(checkNo)
	if cn == "" {
		return "", false
	}
	return id.Min(ix.byCheckNo[cn])
}

// FirstByAmountDate returns the smallest id with the given amount and day.
func (ix *Index) FirstByAmountDate(amount decimal.Decimal, date civil.Date) (string, bool) {
	return id.Min(ix.byAmountDate[KeyOf(amount, date)])
}
