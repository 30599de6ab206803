// Package memory is an in-process Record Store.
package memory

import (
	"context"
	"fmt"
	"sync"

	"cloud.google.com/go/civil"

	"github.com/cleared-dev/bankrec/internal/match"
	"github.com/cleared-dev/bankrec/internal/model"
	"github.com/cleared-dev/bankrec/internal/store"
)

// Store keeps transactions and candidates in maps guarded by one mutex.
type Store struct {
	mu        sync.RWMutex
	txns      map[string]model.Transaction
	cands     map[string]model.Candidate
	txOrder   []string // insertion order
	candOrder []string
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		txns:  make(map[string]model.Transaction),
		cands: make(map[string]model.Candidate),
	}
}

// AppendTransactions adds transactions whose ids are not yet known and
// returns how many were added.
func (s *Store) AppendTransactions(_ context.Context, txns []model.Transaction) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	added := 0
	for _, t := range txns {
		if _, ok := s.txns[t.ID]; ok {
			continue
		}
		s.txns[t.ID] = t
		s.txOrder = append(s.txOrder, t.ID)
		added++
	}
	return added, nil
}

// PutCandidates inserts or replaces candidates.
func (s *Store) PutCandidates(cands ...model.Candidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range cands {
		if err := c.Validate(); err != nil {
			return err
		}
		if _, ok := s.cands[c.ID]; !ok {
			s.candOrder = append(s.candOrder, c.ID)
		}
		s.cands[c.ID] = c
	}
	return nil
}

// Candidate returns a stored candidate.
func (s *Store) Candidate(id string) (model.Candidate, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cands[id]
	return c, ok
}

func (s *Store) ListTransactions(_ context.Context, accountID int, from, to civil.Date) ([]model.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	scope := match.Scope{AccountID: accountID, From: from, To: to}
	var out []model.Transaction
	for _, id := range s.txOrder {
		t := s.txns[id]
		if t.AccountID == scope.AccountID && scope.Contains(t.Date) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Store) ListCandidates(_ context.Context, accountID int, from, to civil.Date) ([]model.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	scope := match.Scope{AccountID: accountID, From: from, To: to}
	var out []model.Candidate
	for _, id := range s.candOrder {
		c := s.cands[id]
		if c.AccountID == scope.AccountID && scope.Contains(c.Date) {
			out = append(out, c)
		}
	}
	return out, nil
}

// CommitReconciliations validates every pair before applying any.
func (s *Store) CommitReconciliations(_ context.Context, pairs []model.Pair) (model.CommitAck, error) {
	if err := store.CheckPairs(pairs); err != nil {
		return model.CommitAck{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	claimed := make(map[string]string)
	for _, c := range s.cands {
		if txID, ok := c.Claims(); ok {
			claimed[txID] = c.ID
		}
	}
	for _, p := range pairs {
		c, ok := s.cands[p.CandidateID]
		if !ok {
			return model.CommitAck{}, fmt.Errorf("candidate %s: %w", p.CandidateID, store.ErrNotFound)
		}
		if _, ok := s.txns[p.ReconcileID]; !ok {
			return model.CommitAck{}, fmt.Errorf("transaction %s: %w", p.ReconcileID, store.ErrNotFound)
		}
		if c.Reconciled {
			return model.CommitAck{}, fmt.Errorf("candidate %s already reconciled: %w", c.ID, store.ErrConflict)
		}
		if holder, ok := claimed[p.ReconcileID]; ok {
			return model.CommitAck{}, fmt.Errorf("transaction %s already claimed by %s: %w", p.ReconcileID, holder, store.ErrConflict)
		}
	}

	for _, p := range pairs {
		c := s.cands[p.CandidateID]
		c.Reconciled = true
		c.ReconcileID = p.ReconcileID
		s.cands[p.CandidateID] = c
	}
	return model.CommitAck{Success: true, AppliedCount: len(pairs)}, nil
}

func (s *Store) UpdateComment(_ context.Context, candidateID, comment string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cands[candidateID]
	if !ok {
		return fmt.Errorf("candidate %s: %w", candidateID, store.ErrNotFound)
	}
	c.Comments = comment
	s.cands[candidateID] = c
	return nil
}
