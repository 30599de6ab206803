package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/bankrec/internal/config"
	"github.com/cleared-dev/bankrec/internal/id"
	"github.com/cleared-dev/bankrec/internal/model"
)

// ChaseParser parses Chase checking CSV exports:
// Details,Posting Date,Description,Amount,Type,Balance,Check or Slip #
type ChaseParser struct{}

const (
	chaseDateFormat = "01/02/2006"
	chaseNumFields  = 7
	chaseColDetails = 0
	chaseColDate    = 1
	chaseColDesc    = 2
	chaseColAmount  = 3
	chaseColCheck   = 6
)

// Format returns the parser name.
func (p *ChaseParser) Format() string { return "chase" }

// Parse reads a Chase CSV. Identical rows in one file get distinct ids by
// their order of appearance.
func (p *ChaseParser) Parse(r io.Reader, account config.BankAccount) ([]model.Transaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = chaseNumFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading chase CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	seen := make(map[string]int)
	var txns []model.Transaction
	for i, rec := range records[1:] {
		txn, err := parseChaseRow(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		ref := chaseRef(txn)
		txn.ID = id.NewTransactionID(account.AccountID, ref, seen[ref])
		seen[ref]++
		txn.AccountID = account.AccountID
		txn.Currency = account.Currency
		txns = append(txns, txn)
	}
	return txns, nil
}

func parseChaseRow(rec []string) (model.Transaction, error) {
	date, err := time.Parse(chaseDateFormat, rec[chaseColDate])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing date %q: %w", rec[chaseColDate], err)
	}

	amount, err := decimal.NewFromString(rec[chaseColAmount])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing amount %q: %w", rec[chaseColAmount], err)
	}

	return model.Transaction{
		Date:        civil.DateOf(date),
		Description: strings.TrimSpace(rec[chaseColDesc]),
		Amount:      amount,
		CheckNo:     model.NormalizeCheckNo(rec[chaseColCheck]),
		Status:      strings.ToLower(rec[chaseColDetails]),
	}, nil
}

// chaseRef is the natural key of a row, e.g. chase_20250103_-4.00_GITHUBPROS_.
func chaseRef(t model.Transaction) string {
	prefix := strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, t.Description)
	if len(prefix) > 10 {
		prefix = prefix[:10]
	}
	return fmt.Sprintf("chase_%s_%s_%s_%s",
		strings.ReplaceAll(t.Date.String(), "-", ""), t.Amount.StringFixed(2), prefix, t.CheckNo)
}
