package reconcile

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrFetchFailure wraps a failed Record Store read. Nothing local changed.
	ErrFetchFailure = errors.New("fetch failure")
	// ErrUnresolvedMatch means a selected candidate no longer pairs with any
	// transaction. The whole batch is rejected.
	ErrUnresolvedMatch = errors.New("unresolved match")
	// ErrDuplicateTransactionClaim means two selected candidates resolve to
	// the same transaction. The whole batch is rejected.
	ErrDuplicateTransactionClaim = errors.New("duplicate transaction claim")
	// ErrCommitFailure wraps a rejected or failed Record Store write.
	ErrCommitFailure = errors.New("commit failure")
	// ErrPartialCommit is a Record Store acknowledgement that does not cover
	// the whole payload. It also matches ErrCommitFailure.
	ErrPartialCommit = fmt.Errorf("%w: partial acknowledgement", ErrCommitFailure)

	ErrNoSnapshot       = errors.New("no working set loaded")
	ErrStaleSnapshot    = errors.New("working set is stale, refresh first")
	ErrNotSelectable    = errors.New("candidate is not selectable")
	ErrUnknownCandidate = errors.New("unknown candidate")
	ErrCommitInFlight   = errors.New("overlapping commit in flight")
	ErrInvalidRange     = errors.New("invalid date range")
	ErrUnknownAccount   = errors.New("unknown account")
)

// BatchError reports which rows caused a selection or commit to be rejected.
type BatchError struct {
	Err           error
	CandidateIDs  []string
	TransactionID string
}

func (e *BatchError) Error() string {
	var b strings.Builder
	b.WriteString(e.Err.Error())
	if len(e.CandidateIDs) > 0 {
		fmt.Fprintf(&b, ": candidates %s", strings.Join(e.CandidateIDs, ", "))
	}
	if e.TransactionID != "" {
		fmt.Fprintf(&b, " -> transaction %s", e.TransactionID)
	}
	return b.String()
}

func (e *BatchError) Unwrap() error { return e.Err }
