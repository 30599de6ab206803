package reconcile

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cleared-dev/bankrec/internal/auditlog"
	"github.com/cleared-dev/bankrec/internal/match"
	"github.com/cleared-dev/bankrec/internal/metrics"
	"github.com/cleared-dev/bankrec/internal/model"
)

// Store is the Record Store boundary. ListCandidates returns reconciled
// candidates as well; the session filters them.
type Store interface {
	ListTransactions(ctx context.Context, accountID int, from, to civil.Date) ([]model.Transaction, error)
	ListCandidates(ctx context.Context, accountID int, from, to civil.Date) ([]model.Candidate, error)
	// CommitReconciliations applies every pair or none of them.
	CommitReconciliations(ctx context.Context, pairs []model.Pair) (model.CommitAck, error)
	UpdateComment(ctx context.Context, candidateID, comment string) error
}

// AccountChecker tests whether an account ID may be reconciled.
type AccountChecker interface {
	Exists(id int) bool
}

// Recorder receives the audit trail of a session.
type Recorder interface {
	Record(entries []auditlog.Entry) error
}

// Option configures a Session.
type Option func(*Session)

// WithAccounts rejects refreshes for accounts the checker does not know.
func WithAccounts(a AccountChecker) Option {
	return func(s *Session) { s.accounts = a }
}

// WithLogger sets the session logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Session) { s.log = l }
}

// WithRecorder sets where audit entries go.
func WithRecorder(r Recorder) Option {
	return func(s *Session) { s.recorder = r }
}

// Session owns one operator's working set, selection and commits. It is not
// shared between operators; the Record Store arbitrates between sessions.
type Session struct {
	id       string
	store    Store
	accounts AccountChecker
	recorder Recorder
	log      zerolog.Logger
	now      func() time.Time

	mu       sync.Mutex
	snap     *match.Snapshot
	version  uint64
	stale    bool
	selected map[string]struct{}
	inflight map[string]struct{}
}

// NewSession creates a Session over store.
func NewSession(store Store, opts ...Option) *Session {
	s := &Session{
		id:       uuid.NewString(),
		store:    store,
		log:      zerolog.Nop(),
		now:      time.Now,
		selected: make(map[string]struct{}),
		inflight: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With().Str("session", s.id).Logger()
	return s
}

// ID returns the session's id as written to the audit log.
func (s *Session) ID() string { return s.id }

// Refresh reads the account's transactions and candidates for [from, to] and
// installs a newly classified snapshot. On failure the previous snapshot is
// left as it was.
func (s *Session) Refresh(ctx context.Context, accountID int, from, to civil.Date) (*match.Snapshot, error) {
	if !from.IsValid() || !to.IsValid() {
		return nil, fmt.Errorf("%w: %s..%s", ErrInvalidRange, from, to)
	}
	if to.Before(from) {
		return nil, fmt.Errorf("%w: %s is before %s", ErrInvalidRange, to, from)
	}
	if s.accounts != nil && !s.accounts.Exists(accountID) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownAccount, accountID)
	}

	start := s.now()
	txns, cands, err := s.fetch(ctx, accountID, from, to)
	if err != nil {
		metrics.ObserveRefresh(metrics.ResultError, s.now().Sub(start))
		s.log.Warn().Err(err).Int("account_id", accountID).Msg("refresh failed")
		return nil, err
	}

	s.mu.Lock()
	s.version++
	snap := match.NewSnapshot(s.version, match.Scope{AccountID: accountID, From: from, To: to}, txns, cands)
	s.snap = snap
	s.stale = false
	s.mu.Unlock()

	txCounts, candCounts := snap.Counts()
	metrics.SetWorkingSet("transactions", txCounts.Exact, txCounts.Approximate, txCounts.Unmatched)
	metrics.SetWorkingSet("candidates", candCounts.Exact, candCounts.Approximate, candCounts.Unmatched)
	metrics.ObserveRefresh(metrics.ResultSuccess, s.now().Sub(start))

	s.log.Debug().
		Uint64("version", snap.Version()).
		Int("account_id", accountID).
		Int("transactions", len(snap.Transactions())).
		Int("candidates", len(snap.Candidates())).
		Msg("working set refreshed")
	return snap, nil
}

func (s *Session) fetch(ctx context.Context, accountID int, from, to civil.Date) ([]model.Transaction, []model.Candidate, error) {
	txns, err := s.store.ListTransactions(ctx, accountID, from, to)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: listing transactions: %w", ErrFetchFailure, err)
	}
	cands, err := s.store.ListCandidates(ctx, accountID, from, to)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: listing candidates: %w", ErrFetchFailure, err)
	}
	for _, c := range cands {
		if err := c.Validate(); err != nil {
			return nil, nil, fmt.Errorf("%w: %w", ErrFetchFailure, err)
		}
	}
	return txns, cands, nil
}

// Snapshot returns the current working set.
func (s *Session) Snapshot() (*match.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentLocked()
}

func (s *Session) currentLocked() (*match.Snapshot, error) {
	if s.snap == nil {
		return nil, ErrNoSnapshot
	}
	if s.stale {
		return nil, fmt.Errorf("%w (version %d)", ErrStaleSnapshot, s.snap.Version())
	}
	return s.snap, nil
}

// invalidate marks the snapshot stale after a mutation the session did not
// classify.
func (s *Session) invalidate() {
	s.mu.Lock()
	s.stale = true
	s.mu.Unlock()
}

// UpdateComment annotates a candidate. It does not affect tier or pairing, but
// any write invalidates the snapshot until the next Refresh.
func (s *Session) UpdateComment(ctx context.Context, candidateID, comment string) error {
	if err := s.store.UpdateComment(ctx, candidateID, comment); err != nil {
		return fmt.Errorf("updating comment on %s: %w", candidateID, err)
	}
	s.invalidate()
	s.record([]auditlog.Entry{{
		Action:      auditlog.ActionComment,
		CandidateID: candidateID,
		Details:     comment,
	}})
	return nil
}

func (s *Session) record(entries []auditlog.Entry) {
	if s.recorder == nil || len(entries) == 0 {
		return
	}
	now := s.now()
	for i := range entries {
		entries[i].Timestamp = now
		entries[i].Session = s.id
	}
	if err := s.recorder.Record(entries); err != nil {
		s.log.Warn().Err(err).Msg("failed to write audit log")
	}
}
