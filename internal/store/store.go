// Package store holds what every Record Store implementation shares.
package store

import (
	"errors"
	"fmt"

	"github.com/cleared-dev/bankrec/internal/model"
)

var (
	// ErrConflict means the batch would claim an already-claimed transaction
	// or reconcile an already-reconciled candidate.
	ErrConflict = errors.New("reconciliation conflict")
	// ErrNotFound means a pair or comment names a row the store does not have.
	ErrNotFound = errors.New("record not found")
)

// CheckPairs validates a payload against itself: every pair must name both
// rows, and no candidate or transaction may appear twice.
func CheckPairs(pairs []model.Pair) error {
	cands := make(map[string]bool, len(pairs))
	txns := make(map[string]bool, len(pairs))
	for _, p := range pairs {
		if p.CandidateID == "" || p.ReconcileID == "" {
			return fmt.Errorf("incomplete pair %+v: %w", p, ErrNotFound)
		}
		if cands[p.CandidateID] {
			return fmt.Errorf("candidate %s appears twice: %w", p.CandidateID, ErrConflict)
		}
		if txns[p.ReconcileID] {
			return fmt.Errorf("transaction %s claimed twice: %w", p.ReconcileID, ErrConflict)
		}
		cands[p.CandidateID] = true
		txns[p.ReconcileID] = true
	}
	return nil
}
