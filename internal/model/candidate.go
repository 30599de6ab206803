package model

import (
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Candidate is a ledger-side row awaiting reconciliation against a bank
// transaction.
type Candidate struct {
	ID          string
	VoucherID   string
	AccountID   int
	Date        civil.Date
	Amount      decimal.Decimal
	Type        string // voucher line type, e.g. "payment", "receipt"
	CheckNo     string
	Comments    string
	Reconciled  bool   // terminal once true
	ReconcileID string // transaction ID this candidate claimed
}

// Validate checks the candidate's own invariants.
func (c Candidate) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("candidate has no id")
	}
	if c.Reconciled && c.ReconcileID == "" {
		return fmt.Errorf("candidate %s is reconciled without a reconcile id", c.ID)
	}
	return nil
}

// Claims reports whether c is a reconciled candidate holding a transaction.
func (c Candidate) Claims() (string, bool) {
	if !c.Reconciled || c.ReconcileID == "" {
		return "", false
	}
	return c.ReconcileID, true
}
