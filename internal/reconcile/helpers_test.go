package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/bankrec/internal/auditlog"
	"github.com/cleared-dev/bankrec/internal/model"
	"github.com/cleared-dev/bankrec/internal/store/memory"
)

const acct = 1010

func day(y, m, d int) civil.Date {
	return civil.Date{Year: y, Month: time.Month(m), Day: d}
}

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

var (
	jan1  = day(2024, 1, 1)
	feb29 = day(2024, 2, 29)
)

func txn(id, checkNo, amount string, date civil.Date) model.Transaction {
	return model.Transaction{ID: id, AccountID: acct, CheckNo: checkNo, Amount: dec(amount), Date: date, Currency: "USD"}
}

func cand(id, checkNo, amount string, date civil.Date) model.Candidate {
	return model.Candidate{ID: id, VoucherID: "V-" + id, AccountID: acct, CheckNo: checkNo, Amount: dec(amount), Date: date}
}

// spyStore wraps the in-memory store to count calls and inject failures.
type spyStore struct {
	*memory.Store

	mu          sync.Mutex
	commitCalls int
	listErr     error
	commitErr   error
	ack         *model.CommitAck
	// breakReads makes every list call fail once a commit has been applied.
	breakReads bool

	// When set, CommitReconciliations signals entered and waits for release.
	entered chan struct{}
	release chan struct{}
	gotCtx  context.Context
}

func (s *spyStore) ListCandidates(ctx context.Context, accountID int, from, to civil.Date) ([]model.Candidate, error) {
	s.mu.Lock()
	err := s.listErr
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.Store.ListCandidates(ctx, accountID, from, to)
}

func (s *spyStore) CommitReconciliations(ctx context.Context, pairs []model.Pair) (model.CommitAck, error) {
	s.mu.Lock()
	s.commitCalls++
	s.gotCtx = ctx
	err, ack := s.commitErr, s.ack
	entered, release := s.entered, s.release
	s.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
		<-release
	}
	if err != nil {
		return model.CommitAck{}, err
	}
	if ack != nil {
		return *ack, nil
	}
	ack2, err := s.Store.CommitReconciliations(ctx, pairs)
	if err == nil && s.breakReads {
		s.setListErr(errBoom)
	}
	return ack2, err
}

func (s *spyStore) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commitCalls
}

func (s *spyStore) setListErr(err error) {
	s.mu.Lock()
	s.listErr = err
	s.mu.Unlock()
}

type memRecorder struct {
	mu      sync.Mutex
	entries []auditlog.Entry
	err     error
}

func (r *memRecorder) Record(entries []auditlog.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entries...)
	return r.err
}

func (r *memRecorder) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.entries {
		out = append(out, e.Action)
	}
	return out
}

type accountSet map[int]bool

func (a accountSet) Exists(id int) bool { return a[id] }

// scenarioStore seeds the working set used throughout these tests:
// T1/C1 share check 100 (dates differ), T2/C2 share amount+date,
// C3 has no counterpart.
func scenarioStore(t *testing.T) *spyStore {
	t.Helper()
	mem := memory.New()
	_, err := mem.AppendTransactions(context.Background(), []model.Transaction{
		txn("T1", "100", "500", day(2024, 1, 10)),
		txn("T2", "", "300", day(2024, 1, 12)),
	})
	require.NoError(t, err)
	require.NoError(t, mem.PutCandidates(
		cand("C1", "100", "500", day(2024, 1, 11)),
		cand("C2", "", "300", day(2024, 1, 12)),
		cand("C3", "", "900", day(2024, 2, 1)),
	))
	return &spyStore{Store: mem}
}

func newSession(t *testing.T, st Store, opts ...Option) *Session {
	t.Helper()
	s := NewSession(st, opts...)
	_, err := s.Refresh(context.Background(), acct, jan1, feb29)
	require.NoError(t, err)
	return s
}

func version(t *testing.T, s *Session) uint64 {
	t.Helper()
	snap, err := s.Snapshot()
	require.NoError(t, err)
	return snap.Version()
}

var errBoom = errors.New("boom")
