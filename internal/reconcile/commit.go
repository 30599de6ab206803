package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cleared-dev/bankrec/internal/auditlog"
	"github.com/cleared-dev/bankrec/internal/id"
	"github.com/cleared-dev/bankrec/internal/match"
	"github.com/cleared-dev/bankrec/internal/metrics"
	"github.com/cleared-dev/bankrec/internal/model"
)

// CommitResult describes a successful commit.
type CommitResult struct {
	// Version is the snapshot version after the post-commit refresh.
	Version      uint64
	Submitted    int
	AppliedCount int
	Pairs        []model.Pair
	// Stale lists selected candidates skipped because they were already
	// reconciled.
	Stale []string
	// RefreshErr is set when the commit succeeded but re-reading the working
	// set did not. The snapshot is then stale until the next Refresh.
	RefreshErr error
}

type payload struct {
	pairs []model.Pair
	tiers map[string]model.Tier
	stale []string
}

// Commit submits the current selection. version must be the version of the
// snapshot the operator selected from.
func (s *Session) Commit(ctx context.Context, version uint64) (CommitResult, error) {
	return s.CommitCandidates(ctx, version, s.Selected())
}

// CommitCandidates pairs each candidate with its transaction and submits the
// batch as one Record Store call. Already-reconciled candidates are skipped
// and reported in CommitResult.Stale. Any other problem rejects the whole
// batch before the store is called, and leaves the selection as it was.
func (s *Session) CommitCandidates(ctx context.Context, version uint64, ids []string) (CommitResult, error) {
	start := s.now()
	ids = dedupe(ids)

	s.mu.Lock()
	snap, err := s.currentLocked()
	if err != nil {
		s.mu.Unlock()
		return CommitResult{}, err
	}
	if snap.Version() != version {
		s.mu.Unlock()
		return CommitResult{}, fmt.Errorf("%w: committing against version %d, current is %d", ErrStaleSnapshot, version, snap.Version())
	}
	var busy []string
	for _, cid := range ids {
		if _, ok := s.inflight[cid]; ok {
			busy = append(busy, cid)
		}
	}
	if len(busy) > 0 {
		s.mu.Unlock()
		return CommitResult{}, &BatchError{Err: ErrCommitInFlight, CandidateIDs: busy}
	}
	p, err := buildPayload(snap, ids)
	if err != nil {
		s.mu.Unlock()
		s.reject(ids, err)
		metrics.ObserveCommit(metrics.ResultRejected, s.now().Sub(start))
		return CommitResult{}, err
	}
	for _, cid := range ids {
		s.inflight[cid] = struct{}{}
	}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		for _, cid := range ids {
			delete(s.inflight, cid)
		}
		s.mu.Unlock()
	}()

	result := CommitResult{
		Version:   version,
		Submitted: len(p.pairs),
		Pairs:     p.pairs,
		Stale:     p.stale,
	}
	metrics.AddStaleSelections(len(p.stale))

	if len(p.pairs) == 0 {
		s.finish(ids, p, result)
		metrics.ObserveCommit(metrics.ResultSuccess, s.now().Sub(start))
		return result, nil
	}

	// The operator may still walk away here. Once the store call is issued
	// it runs to completion.
	if err := ctx.Err(); err != nil {
		return CommitResult{}, fmt.Errorf("commit abandoned: %w", err)
	}
	ack, err := s.store.CommitReconciliations(context.WithoutCancel(ctx), p.pairs)
	if err == nil && (!ack.Success || ack.AppliedCount != len(p.pairs)) {
		err = fmt.Errorf("%w: store applied %d of %d pairs (success=%t)", ErrPartialCommit, ack.AppliedCount, len(p.pairs), ack.Success)
	} else if err != nil {
		err = fmt.Errorf("%w: %w", ErrCommitFailure, err)
	}
	if err != nil {
		s.reject(ids, err)
		metrics.ObserveCommit(metrics.ResultError, s.now().Sub(start))
		return CommitResult{}, err
	}

	result.AppliedCount = ack.AppliedCount
	metrics.AddPairsApplied(ack.AppliedCount)
	s.finish(ids, p, result)

	scope := snap.Scope()
	fresh, err := s.Refresh(ctx, scope.AccountID, scope.From, scope.To)
	if err != nil {
		s.invalidate()
		result.RefreshErr = err
		s.log.Warn().Err(err).Msg("commit applied but refresh failed")
	} else {
		result.Version = fresh.Version()
	}
	metrics.ObserveCommit(metrics.ResultSuccess, s.now().Sub(start))
	return result, nil
}

// finish drops the committed ids from the selection and writes the audit
// trail of a successful commit.
func (s *Session) finish(ids []string, p payload, result CommitResult) {
	s.mu.Lock()
	for _, cid := range ids {
		delete(s.selected, cid)
	}
	s.mu.Unlock()

	entries := make([]auditlog.Entry, 0, len(p.pairs)+len(p.stale))
	for _, pr := range p.pairs {
		entries = append(entries, auditlog.Entry{
			Action:        auditlog.ActionCommit,
			CandidateID:   pr.CandidateID,
			TransactionID: pr.ReconcileID,
			Details:       string(p.tiers[pr.CandidateID]),
		})
	}
	for _, cid := range p.stale {
		entries = append(entries, auditlog.Entry{
			Action:      auditlog.ActionStaleSkip,
			CandidateID: cid,
			Details:     "already reconciled",
		})
	}
	s.record(entries)

	s.log.Info().
		Int("submitted", result.Submitted).
		Int("applied", result.AppliedCount).
		Strs("stale", result.Stale).
		Msg("reconciliation committed")
}

func (s *Session) reject(ids []string, err error) {
	s.log.Warn().Err(err).Strs("candidates", ids).Msg("commit rejected")
	s.record([]auditlog.Entry{{
		Action:      auditlog.ActionReject,
		CandidateID: strings.Join(ids, ";"),
		Details:     err.Error(),
	}})
}

// buildPayload turns candidate ids into (candidate, transaction) pairs. ids
// must be sorted; the first problem category found rejects the batch.
func buildPayload(snap *match.Snapshot, ids []string) (payload, error) {
	p := payload{tiers: make(map[string]model.Tier, len(ids))}

	var unknown, unresolved []string
	claims := make(map[string][]string)
	var claimOrder []string

	for _, cid := range ids {
		c, ok := snap.Lookup(cid)
		if !ok {
			unknown = append(unknown, cid)
			continue
		}
		if c.Reconciled {
			p.stale = append(p.stale, cid)
			continue
		}
		tier, ok := snap.CandidateTier(cid)
		if !ok || !IsSelectable(tier) {
			unresolved = append(unresolved, cid)
			continue
		}
		txID, ok := snap.ResolveMatch(cid)
		if !ok {
			// A matched tier always resolves; reaching here means the
			// snapshot's index and tiers disagree.
			unresolved = append(unresolved, cid)
			continue
		}
		if _, seen := claims[txID]; !seen {
			claimOrder = append(claimOrder, txID)
		}
		claims[txID] = append(claims[txID], cid)
		p.tiers[cid] = tier
		p.pairs = append(p.pairs, model.Pair{CandidateID: cid, ReconcileID: txID})
	}

	if len(unknown) > 0 {
		return payload{}, &BatchError{Err: ErrUnknownCandidate, CandidateIDs: unknown}
	}
	if len(unresolved) > 0 {
		return payload{}, &BatchError{Err: ErrUnresolvedMatch, CandidateIDs: unresolved}
	}
	for _, txID := range claimOrder {
		if claimants := claims[txID]; len(claimants) > 1 {
			return payload{}, &BatchError{Err: ErrDuplicateTransactionClaim, CandidateIDs: claimants, TransactionID: txID}
		}
	}
	return p, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, cid := range ids {
		if cid == "" || seen[cid] {
			continue
		}
		seen[cid] = true
		out = append(out, cid)
	}
	id.Sort(out)
	return out
}

// IsRetryable reports whether err leaves the selection intact for a retry
// without refreshing first.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrCommitFailure) || errors.Is(err, ErrCommitInFlight) || errors.Is(err, ErrFetchFailure)
}
