// Package csvstore is a Record Store kept as two CSV files inside a bankrec
// repo, optionally committed to git after every write.
package csvstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"github.com/cleared-dev/bankrec/internal/gitops"
	"github.com/cleared-dev/bankrec/internal/match"
	"github.com/cleared-dev/bankrec/internal/model"
	"github.com/cleared-dev/bankrec/internal/store"
)

// Paths relative to the repo root.
const (
	TransactionsPath = "bank/transactions.csv"
	CandidatesPath   = "ledger/candidates.csv"
)

// Option configures a Store.
type Option func(*Store)

// WithAutoCommit commits each write to git as author, when the repo root is a
// git repository.
func WithAutoCommit(author gitops.Author) Option {
	return func(s *Store) { s.author = &author }
}

// WithLogger sets the logger used for auto-commit diagnostics.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// Store reads the files on every call, so writes by other processes are
// seen on the next read. Writes replace a file through a temp file and
// rename.
type Store struct {
	root   string
	author *gitops.Author
	log    zerolog.Logger

	mu sync.Mutex
}

// New creates a Store rooted at repoRoot.
func New(repoRoot string, opts ...Option) *Store {
	s := &Store{root: repoRoot, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init creates both files with just a header if they do not exist yet.
func (s *Store) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.createIfMissing(TransactionsPath, func(w io.Writer) error { return WriteTransactions(w, nil) }); err != nil {
		return err
	}
	return s.createIfMissing(CandidatesPath, func(w io.Writer) error { return WriteCandidates(w, nil) })
}

func (s *Store) ListTransactions(_ context.Context, accountID int, from, to civil.Date) ([]model.Transaction, error) {
	s.mu.Lock()
	all, err := s.readTransactions()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	scope := match.Scope{AccountID: accountID, From: from, To: to}
	var out []model.Transaction
	for _, t := range all {
		if t.AccountID == scope.AccountID && scope.Contains(t.Date) {
			out = append(out, t)
		}
	}
	return out, nil
}

// ListCandidates includes reconciled candidates.
func (s *Store) ListCandidates(_ context.Context, accountID int, from, to civil.Date) ([]model.Candidate, error) {
	s.mu.Lock()
	all, err := s.readCandidates()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	scope := match.Scope{AccountID: accountID, From: from, To: to}
	var out []model.Candidate
	for _, c := range all {
		if c.AccountID == scope.AccountID && scope.Contains(c.Date) {
			out = append(out, c)
		}
	}
	return out, nil
}

// AppendTransactions adds transactions whose ids are not yet on file and
// returns how many were added.
func (s *Store) AppendTransactions(ctx context.Context, txns []model.Transaction) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.readTransactions()
	if err != nil {
		return 0, err
	}
	seen := make(map[string]bool, len(existing)+len(txns))
	for _, t := range existing {
		seen[t.ID] = true
	}
	added := 0
	for _, t := range txns {
		if t.ID == "" {
			return 0, fmt.Errorf("transaction dated %s has no id", t.Date)
		}
		if seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		existing = append(existing, t)
		added++
	}
	if added == 0 {
		return 0, nil
	}
	if err := s.replace(TransactionsPath, func(w io.Writer) error { return WriteTransactions(w, existing) }); err != nil {
		return 0, err
	}
	s.autoCommit(ctx, fmt.Sprintf("import: %d bank transactions", added), TransactionsPath)
	return added, nil
}

// AppendCandidates adds candidates whose ids are not yet on file and
// returns how many were added.
func (s *Store) AppendCandidates(ctx context.Context, cands []model.Candidate) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.readCandidates()
	if err != nil {
		return 0, err
	}
	seen := make(map[string]bool, len(existing)+len(cands))
	for _, c := range existing {
		seen[c.ID] = true
	}
	added := 0
	for _, c := range cands {
		if err := c.Validate(); err != nil {
			return 0, err
		}
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		existing = append(existing, c)
		added++
	}
	if added == 0 {
		return 0, nil
	}
	if err := s.replace(CandidatesPath, func(w io.Writer) error { return WriteCandidates(w, existing) }); err != nil {
		return 0, err
	}
	s.autoCommit(ctx, fmt.Sprintf("ledger: %d candidates", added), CandidatesPath)
	return added, nil
}

// CommitReconciliations checks every pair against the files, then rewrites
// candidates.csv once. A failed check leaves the file untouched.
func (s *Store) CommitReconciliations(ctx context.Context, pairs []model.Pair) (model.CommitAck, error) {
	if err := store.CheckPairs(pairs); err != nil {
		return model.CommitAck{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	txns, err := s.readTransactions()
	if err != nil {
		return model.CommitAck{}, err
	}
	known := make(map[string]bool, len(txns))
	for _, t := range txns {
		known[t.ID] = true
	}
	cands, err := s.readCandidates()
	if err != nil {
		return model.CommitAck{}, err
	}
	pos := make(map[string]int, len(cands))
	claimed := make(map[string]string)
	for i, c := range cands {
		pos[c.ID] = i
		if txID, ok := c.Claims(); ok {
			claimed[txID] = c.ID
		}
	}

	for _, p := range pairs {
		i, ok := pos[p.CandidateID]
		if !ok {
			return model.CommitAck{}, fmt.Errorf("candidate %s: %w", p.CandidateID, store.ErrNotFound)
		}
		if !known[p.ReconcileID] {
			return model.CommitAck{}, fmt.Errorf("transaction %s: %w", p.ReconcileID, store.ErrNotFound)
		}
		if cands[i].Reconciled {
			return model.CommitAck{}, fmt.Errorf("candidate %s already reconciled: %w", p.CandidateID, store.ErrConflict)
		}
		if holder, ok := claimed[p.ReconcileID]; ok {
			return model.CommitAck{}, fmt.Errorf("transaction %s already claimed by %s: %w", p.ReconcileID, holder, store.ErrConflict)
		}
	}

	for _, p := range pairs {
		i := pos[p.CandidateID]
		cands[i].Reconciled = true
		cands[i].ReconcileID = p.ReconcileID
	}
	if err := s.replace(CandidatesPath, func(w io.Writer) error { return WriteCandidates(w, cands) }); err != nil {
		return model.CommitAck{}, err
	}
	s.autoCommit(ctx, fmt.Sprintf("reconcile: %d pairs", len(pairs)), CandidatesPath)
	return model.CommitAck{Success: true, AppliedCount: len(pairs)}, nil
}

func (s *Store) UpdateComment(ctx context.Context, candidateID, comment string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cands, err := s.readCandidates()
	if err != nil {
		return err
	}
	found := false
	for i := range cands {
		if cands[i].ID == candidateID {
			cands[i].Comments = comment
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("candidate %s: %w", candidateID, store.ErrNotFound)
	}
	if err := s.replace(CandidatesPath, func(w io.Writer) error { return WriteCandidates(w, cands) }); err != nil {
		return err
	}
	s.autoCommit(ctx, "comment: "+candidateID, CandidatesPath)
	return nil
}

func (s *Store) readTransactions() ([]model.Transaction, error) {
	f, err := s.open(TransactionsPath)
	if f == nil || err != nil {
		return nil, err
	}
	defer f.Close()
	txns, err := ReadTransactions(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", TransactionsPath, err)
	}
	return txns, nil
}

func (s *Store) readCandidates() ([]model.Candidate, error) {
	f, err := s.open(CandidatesPath)
	if f == nil || err != nil {
		return nil, err
	}
	defer f.Close()
	cands, err := ReadCandidates(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", CandidatesPath, err)
	}
	return cands, nil
}

// open returns a nil file and nil error when rel does not exist.
func (s *Store) open(rel string) (*os.File, error) {
	f, err := os.Open(filepath.Join(s.root, rel))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", rel, err)
	}
	return f, nil
}

func (s *Store) createIfMissing(rel string, write func(io.Writer) error) error {
	if _, err := os.Stat(filepath.Join(s.root, rel)); err == nil {
		return nil
	}
	return s.replace(rel, write)
}

// replace writes rel in full to a temp file beside it and renames it into
// place.
func (s *Store) replace(rel string, write func(io.Writer) error) error {
	path := filepath.Join(s.root, rel)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(rel), err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", rel, err)
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", rel, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing %s: %w", rel, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", rel, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", rel, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing %s: %w", rel, err)
	}
	return nil
}

// autoCommit is best effort: the write already happened, so a git failure
// is logged and not returned.
func (s *Store) autoCommit(ctx context.Context, message string, paths ...string) {
	if s.author == nil || !gitops.IsRepo(s.root) {
		return
	}
	hash, err := gitops.Commit(ctx, s.root, message, *s.author, paths...)
	if err != nil {
		s.log.Warn().Err(err).Str("message", message).Msg("git auto-commit failed")
		return
	}
	if hash != "" {
		s.log.Debug().Str("commit", hash).Str("message", message).Msg("git auto-commit")
	}
}
