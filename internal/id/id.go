package id

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// transactionNamespace scopes the UUIDv5 ids minted for imported bank rows.
var transactionNamespace = uuid.MustParse("6f1c6c1e-5a8e-4d3b-9c1f-2b7d1e0a9c44")

// Compare orders ids ascending. Two ids that are both base-10 integers
// compare numerically ("9" < "10"); anything else compares lexically.
func Compare(a, b string) int {
	ai, aErr := strconv.ParseInt(a, 10, 64)
	bi, bErr := strconv.ParseInt(b, 10, 64)
	if aErr == nil && bErr == nil {
		switch {
		case ai < bi:
			return -1
		case ai > bi:
			return 1
		}
		// "007" and "7" are numerically equal; fall back to text so the
		// order stays total.
	}
	return strings.Compare(a, b)
}

// Less reports whether a sorts before b.
func Less(a, b string) bool {
	return Compare(a, b) < 0
}

// Sort sorts ids in place in ascending order.
func Sort(ids []string) {
	sort.Slice(ids, func(i, j int) bool { return Less(ids[i], ids[j]) })
}

// Min returns the smallest id, or false when ids is empty.
func Min(ids []string) (string, bool) {
	if len(ids) == 0 {
		return "", false
	}
	m := ids[0]
	for _, s := range ids[1:] {
		if Less(s, m) {
			m = s
		}
	}
	return m, true
}

// NewTransactionID returns a deterministic id for an imported bank row.
// occurrence distinguishes identical rows within one statement
// (0 for the first, 1 for the second...).
func NewTransactionID(accountID int, reference string, occurrence int) string {
	name := fmt.Sprintf("%d|%s|%d", accountID, reference, occurrence)
	return uuid.NewSHA1(transactionNamespace, []byte(name)).String()
}
