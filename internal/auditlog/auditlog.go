package auditlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Action names written to the log.
const (
	ActionCommit    = "commit"
	ActionStaleSkip = "stale-skip"
	ActionReject    = "reject"
	ActionComment   = "comment"
)

// Entry is one row in the reconciliation log.
type Entry struct {
	Timestamp     time.Time
	Session       string
	Action        string
	CandidateID   string
	TransactionID string
	Details       string
}

// Header is the CSV header for reconcile-log.csv.
const Header = "timestamp,session,action,candidate_id,transaction_id,details"

const (
	numFields        = 6
	logDir           = "logs"
	logFile          = "logs/reconcile-log.csv"
	colTimestamp     = 0
	colSession       = 1
	colAction        = 2
	colCandidateID   = 3
	colTransactionID = 4
	colDetails       = 5
)

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.UTC().Format(time.RFC3339)
	row[colSession] = e.Session
	row[colAction] = e.Action
	row[colCandidateID] = e.CandidateID
	row[colTransactionID] = e.TransactionID
	row[colDetails] = e.Details
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}

	return Entry{
		Timestamp:     ts,
		Session:       record[colSession],
		Action:        record[colAction],
		CandidateID:   record[colCandidateID],
		TransactionID: record[colTransactionID],
		Details:       record[colDetails],
	}, nil
}

// Writer appends entries to <repoRoot>/logs/reconcile-log.csv.
type Writer struct {
	repoRoot string
	mu       sync.Mutex
}

// NewWriter returns a Writer rooted at repoRoot.
func NewWriter(repoRoot string) *Writer {
	return &Writer{repoRoot: repoRoot}
}

// Record appends entries, creating the file and header if needed.
func (w *Writer) Record(entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	dir := filepath.Join(w.repoRoot, logDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}

	path := filepath.Join(w.repoRoot, logFile)
	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening reconcile log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Read returns all entries from <repoRoot>/logs/reconcile-log.csv.
// Returns nil if the file does not exist.
func Read(repoRoot string) ([]Entry, error) {
	path := filepath.Join(repoRoot, logFile)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening reconcile log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading reconcile log CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
