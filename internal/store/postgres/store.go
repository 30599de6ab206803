// Package postgres is a Record Store on PostgreSQL through database/sql and
// the pgx driver.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/cleared-dev/bankrec/internal/model"
	"github.com/cleared-dev/bankrec/internal/store"
)

const uniqueViolation = "23505"

var errNilDB = errors.New("postgres store: nil db")

const schema = `
CREATE TABLE IF NOT EXISTS bank_transactions (
	id          TEXT PRIMARY KEY,
	account_id  INTEGER NOT NULL,
	txn_date    DATE NOT NULL,
	amount      NUMERIC NOT NULL,
	currency    TEXT NOT NULL DEFAULT '',
	check_no    TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS bank_transactions_account_date
	ON bank_transactions (account_id, txn_date);

CREATE TABLE IF NOT EXISTS reconciliation_candidates (
	id           TEXT PRIMARY KEY,
	voucher_id   TEXT NOT NULL DEFAULT '',
	account_id   INTEGER NOT NULL,
	entry_date   DATE NOT NULL,
	amount       NUMERIC NOT NULL,
	line_type    TEXT NOT NULL DEFAULT '',
	check_no     TEXT NOT NULL DEFAULT '',
	comments     TEXT NOT NULL DEFAULT '',
	reconciled   SMALLINT NOT NULL DEFAULT 0 CHECK (reconciled IN (0, 1)),
	reconcile_id TEXT REFERENCES bank_transactions (id),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CHECK (reconciled = 0 OR reconcile_id IS NOT NULL)
);

CREATE INDEX IF NOT EXISTS reconciliation_candidates_account_date
	ON reconciliation_candidates (account_id, entry_date);

CREATE UNIQUE INDEX IF NOT EXISTS reconciliation_candidates_claim
	ON reconciliation_candidates (reconcile_id) WHERE reconciled = 1;

ALTER TABLE bank_transactions ALTER COLUMN amount TYPE NUMERIC;
ALTER TABLE reconciliation_candidates ALTER COLUMN amount TYPE NUMERIC;
`

// Open connects to dsn and checks the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	return db, nil
}

// Store implements the Record Store over two tables.
type Store struct {
	db *sql.DB
}

// New wraps an open database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the tables and indexes if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errNilDB
	}
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}
	return nil
}

func (s *Store) ListTransactions(ctx context.Context, accountID int, from, to civil.Date) ([]model.Transaction, error) {
	if s == nil || s.db == nil {
		return nil, errNilDB
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, account_id, txn_date, amount, currency, check_no, description, status
FROM bank_transactions
WHERE account_id = $1 AND txn_date BETWEEN $2 AND $3
ORDER BY txn_date, id`, accountID, dateArg(from), dateArg(to))
	if err != nil {
		return nil, fmt.Errorf("querying transactions: %w", err)
	}
	defer rows.Close()

	var out []model.Transaction
	for rows.Next() {
		var (
			t    model.Transaction
			date time.Time
		)
		if err := rows.Scan(&t.ID, &t.AccountID, &date, &t.Amount, &t.Currency, &t.CheckNo, &t.Description, &t.Status); err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		t.Date = civil.DateOf(date)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading transactions: %w", err)
	}
	return out, nil
}

// ListCandidates includes reconciled candidates.
func (s *Store) ListCandidates(ctx context.Context, accountID int, from, to civil.Date) ([]model.Candidate, error) {
	if s == nil || s.db == nil {
		return nil, errNilDB
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, voucher_id, account_id, entry_date, amount, line_type, check_no, comments, reconciled, reconcile_id
FROM reconciliation_candidates
WHERE account_id = $1 AND entry_date BETWEEN $2 AND $3
ORDER BY entry_date, id`, accountID, dateArg(from), dateArg(to))
	if err != nil {
		return nil, fmt.Errorf("querying candidates: %w", err)
	}
	defer rows.Close()

	var out []model.Candidate
	for rows.Next() {
		var (
			c           model.Candidate
			date        time.Time
			reconciled  int
			reconcileID sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.VoucherID, &c.AccountID, &date, &c.Amount, &c.Type, &c.CheckNo, &c.Comments, &reconciled, &reconcileID); err != nil {
			return nil, fmt.Errorf("scanning candidate: %w", err)
		}
		c.Date = civil.DateOf(date)
		c.Reconciled = reconciled == 1
		c.ReconcileID = reconcileID.String
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading candidates: %w", err)
	}
	return out, nil
}

// AppendTransactions inserts transactions whose ids are new and returns how
// many were inserted.
func (s *Store) AppendTransactions(ctx context.Context, txns []model.Transaction) (int, error) {
	if s == nil || s.db == nil {
		return 0, errNilDB
	}
	if len(txns) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO bank_transactions (id, account_id, txn_date, amount, currency, check_no, description, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO NOTHING`)
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	defer stmt.Close()

	added := 0
	for _, t := range txns {
		if t.ID == "" {
			_ = tx.Rollback()
			return 0, fmt.Errorf("transaction dated %s has no id", t.Date)
		}
		res, err := stmt.ExecContext(ctx, t.ID, t.AccountID, dateArg(t.Date), t.Amount, t.Currency, t.CheckNo, t.Description, t.Status)
		if err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("inserting transaction %s: %w", t.ID, err)
		}
		n, _ := res.RowsAffected()
		added += int(n)
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return added, nil
}

// AppendCandidates inserts candidates whose ids are new and returns how many
// were inserted.
func (s *Store) AppendCandidates(ctx context.Context, cands []model.Candidate) (int, error) {
	if s == nil || s.db == nil {
		return 0, errNilDB
	}
	if len(cands) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO reconciliation_candidates (id, voucher_id, account_id, entry_date, amount, line_type, check_no, comments, reconciled, reconcile_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (id) DO NOTHING`)
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	defer stmt.Close()

	added := 0
	for _, c := range cands {
		if err := c.Validate(); err != nil {
			_ = tx.Rollback()
			return 0, err
		}
		reconciled := 0
		if c.Reconciled {
			reconciled = 1
		}
		reconcileID := sql.NullString{String: c.ReconcileID, Valid: c.ReconcileID != ""}
		res, err := stmt.ExecContext(ctx, c.ID, c.VoucherID, c.AccountID, dateArg(c.Date), c.Amount, c.Type, c.CheckNo, c.Comments, reconciled, reconcileID)
		if err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("inserting candidate %s: %w", c.ID, mapError(err))
		}
		n, _ := res.RowsAffected()
		added += int(n)
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return added, nil
}

// CommitReconciliations applies every pair in one transaction. The claim
// index makes two sessions racing for one transaction fail with
// store.ErrConflict.
func (s *Store) CommitReconciliations(ctx context.Context, pairs []model.Pair) (model.CommitAck, error) {
	if s == nil || s.db == nil {
		return model.CommitAck{}, errNilDB
	}
	if err := store.CheckPairs(pairs); err != nil {
		return model.CommitAck{}, err
	}
	if len(pairs) == 0 {
		return model.CommitAck{Success: true}, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.CommitAck{}, err
	}
	stmt, err := tx.PrepareContext(ctx, `
UPDATE reconciliation_candidates
SET reconciled = 1, reconcile_id = $2, updated_at = NOW()
WHERE id = $1 AND reconciled = 0`)
	if err != nil {
		_ = tx.Rollback()
		return model.CommitAck{}, err
	}
	defer stmt.Close()

	for _, p := range pairs {
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM bank_transactions WHERE id = $1)`, p.ReconcileID).Scan(&exists); err != nil {
			_ = tx.Rollback()
			return model.CommitAck{}, err
		}
		if !exists {
			_ = tx.Rollback()
			return model.CommitAck{}, fmt.Errorf("transaction %s: %w", p.ReconcileID, store.ErrNotFound)
		}

		res, err := stmt.ExecContext(ctx, p.CandidateID, p.ReconcileID)
		if err != nil {
			_ = tx.Rollback()
			return model.CommitAck{}, fmt.Errorf("reconciling %s: %w", p.CandidateID, mapError(err))
		}
		if n, _ := res.RowsAffected(); n != 1 {
			err := s.missedUpdate(ctx, tx, p.CandidateID)
			_ = tx.Rollback()
			return model.CommitAck{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return model.CommitAck{}, fmt.Errorf("committing reconciliations: %w", mapError(err))
	}
	return model.CommitAck{Success: true, AppliedCount: len(pairs)}, nil
}

// missedUpdate explains why an update touched no row.
func (s *Store) missedUpdate(ctx context.Context, tx *sql.Tx, candidateID string) error {
	var reconciled int
	err := tx.QueryRowContext(ctx, `SELECT reconciled FROM reconciliation_candidates WHERE id = $1`, candidateID).Scan(&reconciled)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("candidate %s: %w", candidateID, store.ErrNotFound)
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("candidate %s already reconciled: %w", candidateID, store.ErrConflict)
}

func (s *Store) UpdateComment(ctx context.Context, candidateID, comment string) error {
	if s == nil || s.db == nil {
		return errNilDB
	}
	res, err := s.db.ExecContext(ctx, `
UPDATE reconciliation_candidates SET comments = $2, updated_at = NOW() WHERE id = $1`, candidateID, comment)
	if err != nil {
		return fmt.Errorf("updating comment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("candidate %s: %w", candidateID, store.ErrNotFound)
	}
	return nil
}

// mapError turns a unique violation on the claim index into store.ErrConflict.
func mapError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w", pgErr.Message, store.ErrConflict)
	}
	return err
}

func dateArg(d civil.Date) time.Time {
	return d.In(time.UTC)
}
