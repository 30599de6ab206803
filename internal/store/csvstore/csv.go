package csvstore

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/bankrec/internal/model"
)

// TransactionHeader is the CSV header for bank/transactions.csv.
const TransactionHeader = "id,account_id,date,amount,currency,check_no,description,status"

// CandidateHeader is the CSV header for ledger/candidates.csv.
const CandidateHeader = "id,voucher_id,account_id,date,amount,type,check_no,comments,reconciled,reconcile_id"

const (
	numTxFields = 8
	colTxID     = 0
	colTxAcct   = 1
	colTxDate   = 2
	colTxAmount = 3
	colTxCcy    = 4
	colTxCheck  = 5
	colTxDesc   = 6
	colTxStatus = 7
)

const (
	numCandFields  = 10
	colCandID      = 0
	colCandVoucher = 1
	colCandAcct    = 2
	colCandDate    = 3
	colCandAmount  = 4
	colCandType    = 5
	colCandCheck   = 6
	colCandComment = 7
	colCandRecon   = 8
	colCandReconID = 9
)

// MarshalTransaction converts a Transaction to a CSV row.
func MarshalTransaction(t model.Transaction) []string {
	row := make([]string, numTxFields)
	row[colTxID] = t.ID
	row[colTxAcct] = strconv.Itoa(t.AccountID)
	row[colTxDate] = t.Date.String()
	row[colTxAmount] = t.Amount.String()
	row[colTxCcy] = t.Currency
	row[colTxCheck] = t.CheckNo
	row[colTxDesc] = t.Description
	row[colTxStatus] = t.Status
	return row
}

// UnmarshalTransaction converts a CSV row to a Transaction.
func UnmarshalTransaction(record []string) (model.Transaction, error) {
	if len(record) != numTxFields {
		return model.Transaction{}, fmt.Errorf("expected %d fields, got %d", numTxFields, len(record))
	}
	accountID, err := strconv.Atoi(record[colTxAcct])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing account_id %q: %w", record[colTxAcct], err)
	}
	date, err := civil.ParseDate(record[colTxDate])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing date %q: %w", record[colTxDate], err)
	}
	amount, err := decimal.NewFromString(record[colTxAmount])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing amount %q: %w", record[colTxAmount], err)
	}
	return model.Transaction{
		ID:          record[colTxID],
		AccountID:   accountID,
		Date:        date,
		Amount:      amount,
		Currency:    record[colTxCcy],
		CheckNo:     model.NormalizeCheckNo(record[colTxCheck]),
		Description: record[colTxDesc],
		Status:      record[colTxStatus],
	}, nil
}

// MarshalCandidate converts a Candidate to a CSV row. Reconciled is written
// as 1 or 0.
func MarshalCandidate(c model.Candidate) []string {
	row := make([]string, numCandFields)
	row[colCandID] = c.ID
	row[colCandVoucher] = c.VoucherID
	row[colCandAcct] = strconv.Itoa(c.AccountID)
	row[colCandDate] = c.Date.String()
	row[colCandAmount] = c.Amount.String()
	row[colCandType] = c.Type
	row[colCandCheck] = c.CheckNo
	row[colCandComment] = c.Comments
	row[colCandRecon] = "0"
	if c.Reconciled {
		row[colCandRecon] = "1"
	}
	row[colCandReconID] = c.ReconcileID
	return row
}

// UnmarshalCandidate converts a CSV row to a Candidate.
func UnmarshalCandidate(record []string) (model.Candidate, error) {
	if len(record) != numCandFields {
		return model.Candidate{}, fmt.Errorf("expected %d fields, got %d", numCandFields, len(record))
	}
	accountID, err := strconv.Atoi(record[colCandAcct])
	if err != nil {
		return model.Candidate{}, fmt.Errorf("parsing account_id %q: %w", record[colCandAcct], err)
	}
	date, err := civil.ParseDate(record[colCandDate])
	if err != nil {
		return model.Candidate{}, fmt.Errorf("parsing date %q: %w", record[colCandDate], err)
	}
	amount, err := decimal.NewFromString(record[colCandAmount])
	if err != nil {
		return model.Candidate{}, fmt.Errorf("parsing amount %q: %w", record[colCandAmount], err)
	}
	var reconciled bool
	switch record[colCandRecon] {
	case "1":
		reconciled = true
	case "0", "":
	default:
		return model.Candidate{}, fmt.Errorf("parsing reconciled %q: want 0 or 1", record[colCandRecon])
	}
	c := model.Candidate{
		ID:          record[colCandID],
		VoucherID:   record[colCandVoucher],
		AccountID:   accountID,
		Date:        date,
		Amount:      amount,
		Type:        record[colCandType],
		CheckNo:     model.NormalizeCheckNo(record[colCandCheck]),
		Comments:    record[colCandComment],
		Reconciled:  reconciled,
		ReconcileID: record[colCandReconID],
	}
	if err := c.Validate(); err != nil {
		return model.Candidate{}, err
	}
	return c, nil
}

// ReadTransactions reads all rows from a transactions.csv reader.
func ReadTransactions(r io.Reader) ([]model.Transaction, error) {
	records, err := readAll(r, numTxFields)
	if err != nil {
		return nil, fmt.Errorf("reading transactions CSV: %w", err)
	}
	var out []model.Transaction
	for i, rec := range records {
		t, err := UnmarshalTransaction(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		out = append(out, t)
	}
	return out, nil
}

// ReadCandidates reads all rows from a candidates.csv reader.
func ReadCandidates(r io.Reader) ([]model.Candidate, error) {
	records, err := readAll(r, numCandFields)
	if err != nil {
		return nil, fmt.Errorf("reading candidates CSV: %w", err)
	}
	var out []model.Candidate
	for i, rec := range records {
		c, err := UnmarshalCandidate(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		out = append(out, c)
	}
	return out, nil
}

// WriteTransactions writes the header and every transaction.
func WriteTransactions(w io.Writer, txns []model.Transaction) error {
	rows := make([][]string, len(txns))
	for i, t := range txns {
		rows[i] = MarshalTransaction(t)
	}
	return writeAll(w, TransactionHeader, rows)
}

// WriteCandidates writes the header and every candidate.
func WriteCandidates(w io.Writer, cands []model.Candidate) error {
	rows := make([][]string, len(cands))
	for i, c := range cands {
		rows[i] = MarshalCandidate(c)
	}
	return writeAll(w, CandidateHeader, rows)
}

// readAll returns the data rows, header skipped.
func readAll(r io.Reader, fields int) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = fields
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[1:], nil
}

func writeAll(w io.Writer, header string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(strings.Split(header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, row := range rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
