package model

import (
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Transaction is one imported bank-statement row. It is never mutated by
// reconciliation.
type Transaction struct {
	ID          string
	AccountID   int
	Date        civil.Date
	Amount      decimal.Decimal // negative = withdrawal, positive = deposit
	Currency    string
	CheckNo     string // empty when the bank did not report one
	Description string
	Status      string // bank posting status, e.g. "posted"
}

// NormalizeCheckNo trims surrounding whitespace. An empty result means the
// row carries no check number.
func NormalizeCheckNo(s string) string {
	return strings.TrimSpace(s)
}
