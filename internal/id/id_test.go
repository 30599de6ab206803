package id

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1", "2", -1},
		{"9", "10", -1},
		{"10", "9", 1},
		{"42", "42", 0},
		{"T1", "T2", -1},
		{"T10", "T9", -1}, // not numeric, lexical
		{"7", "007", 1},   // numerically equal, text breaks the tie
		{"", "1", -1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Compare(tt.a, tt.b), "Compare(%q, %q)", tt.a, tt.b)
	}
}

func TestSort(t *testing.T) {
	ids := []string{"10", "2", "1", "33"}
	Sort(ids)
	assert.Equal(t, []string{"1", "2", "10", "33"}, ids)
}

func TestMin(t *testing.T) {
	m, ok := Min([]string{"12", "3", "40"})
	require.True(t, ok)
	assert.Equal(t, "3", m)

	_, ok = Min(nil)
	assert.False(t, ok)
}

func TestNewTransactionID(t *testing.T) {
	a := NewTransactionID(1010, "chase_20250103_GITHUBPROS", 0)
	b := NewTransactionID(1010, "chase_20250103_GITHUBPROS", 0)
	assert.Equal(t, a, b, "ids must be stable across imports")

	_, err := uuid.Parse(a)
	require.NoError(t, err)

	assert.NotEqual(t, a, NewTransactionID(1010, "chase_20250103_GITHUBPROS", 1))
	assert.NotEqual(t, a, NewTransactionID(1020, "chase_20250103_GITHUBPROS", 0))
}
