package match

import (
	"sort"

	"cloud.google.com/go/civil"

	"github.com/cleared-dev/bankrec/internal/id"
	"github.com/cleared-dev/bankrec/internal/model"
)

// Scope is the account and inclusive date range a working set was read for.
type Scope struct {
	AccountID int
	From      civil.Date
	To        civil.Date
}

// Contains reports whether d falls inside the scope's range.
func (s Scope) Contains(d civil.Date) bool {
	return !d.Before(s.From) && !d.After(s.To)
}

// Snapshot is an immutable, classified working set. Indices and tiers are
// always built from the same read, so they never disagree.
type Snapshot struct {
	version uint64
	scope   Scope

	txns  []model.Transaction
	cands []model.Candidate

	// all holds every fetched candidate, reconciled ones included, so a
	// selection made before another session reconciled it can still be
	// recognised.
	all map[string]model.Candidate

	txIndex   *Index
	candIndex *Index
	tiers     Classification
}

// NewSnapshot filters the raw read, builds both indices and classifies the
// working set.
func NewSnapshot(version uint64, scope Scope, txns []model.Transaction, cands []model.Candidate) *Snapshot {
	all := make(map[string]model.Candidate, len(cands))
	for _, c := range cands {
		all[c.ID] = c
	}

	workTxns := FilterTransactions(txns, cands)
	workCands := FilterCandidates(cands)
	sort.Slice(workTxns, func(i, j int) bool { return id.Less(workTxns[i].ID, workTxns[j].ID) })
	sort.Slice(workCands, func(i, j int) bool { return id.Less(workCands[i].ID, workCands[j].ID) })

	txIndex := BuildTransactionIndex(workTxns)
	candIndex := BuildCandidateIndex(workCands)

	return &Snapshot{
		version:   version,
		scope:     scope,
		txns:      workTxns,
		cands:     workCands,
		all:       all,
		txIndex:   txIndex,
		candIndex: candIndex,
		tiers:     Classify(workTxns, workCands, txIndex, candIndex),
	}
}

// Version returns the snapshot counter assigned at construction.
func (s *Snapshot) Version() uint64 { return s.version }

// Scope returns the account and range the snapshot covers.
func (s *Snapshot) Scope() Scope { return s.scope }

// Transactions returns the unreconciled transactions in ascending id order.
func (s *Snapshot) Transactions() []model.Transaction { return s.txns }

// Candidates returns the unreconciled candidates in ascending id order.
func (s *Snapshot) Candidates() []model.Candidate { return s.cands }

// TransactionTier returns a working-set transaction's tier; ok is false for
// ids outside the working set.
func (s *Snapshot) TransactionTier(txID string) (model.Tier, bool) {
	t, ok := s.tiers.Transactions[txID]
	return t, ok
}

// CandidateTier returns a working-set candidate's tier; ok is false for ids
// outside the working set, including reconciled candidates.
func (s *Snapshot) CandidateTier(candID string) (model.Tier, bool) {
	t, ok := s.tiers.Candidates[candID]
	return t, ok
}

// Lookup returns any fetched candidate, reconciled or not.
func (s *Snapshot) Lookup(candID string) (model.Candidate, bool) {
	c, ok := s.all[candID]
	return c, ok
}

// ResolveMatch pairs a working-set candidate with its transaction.
func (s *Snapshot) ResolveMatch(candID string) (string, bool) {
	if _, ok := s.tiers.Candidates[candID]; !ok {
		return "", false
	}
	return Resolve(s.all[candID], s.txIndex)
}

// Counts tallies tiers on each side of the working set.
func (s *Snapshot) Counts() (txns, cands TierCounts) {
	return s.tiers.Counts()
}
