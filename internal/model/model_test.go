package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandidateValidate(t *testing.T) {
	tests := []struct {
		name    string
		c       Candidate
		wantErr bool
	}{
		{"open", Candidate{ID: "1"}, false},
		{"reconciled with id", Candidate{ID: "1", Reconciled: true, ReconcileID: "T1"}, false},
		{"reconciled without id", Candidate{ID: "1", Reconciled: true}, true},
		{"missing id", Candidate{}, true},
	}
	for _, tt := range tests {
		err := tt.c.Validate()
		if tt.wantErr {
			assert.Error(t, err, tt.name)
		} else {
			assert.NoError(t, err, tt.name)
		}
	}
}

func TestCandidateClaims(t *testing.T) {
	txID, ok := Candidate{ID: "1", Reconciled: true, ReconcileID: "T1"}.Claims()
	require.True(t, ok)
	assert.Equal(t, "T1", txID)

	_, ok = Candidate{ID: "2", ReconcileID: "T1"}.Claims()
	assert.False(t, ok, "unreconciled candidate claims nothing")
}

func TestTierMatched(t *testing.T) {
	assert.True(t, TierExact.Matched())
	assert.True(t, TierApproximate.Matched())
	assert.False(t, TierUnmatched.Matched())
	assert.False(t, Tier("").Matched())
}

func TestNormalizeCheckNo(t *testing.T) {
	assert.Equal(t, "100", NormalizeCheckNo(" 100 "))
	assert.Equal(t, "", NormalizeCheckNo("   "))
}
