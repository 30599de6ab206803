package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/bankrec/internal/model"
)

func TestIsSelectable_Tier(t *testing.T) {
	assert.True(t, IsSelectable(model.TierExact))
	assert.True(t, IsSelectable(model.TierApproximate))
	assert.False(t, IsSelectable(model.TierUnmatched))
	assert.False(t, IsSelectable(""))
}

func TestSelect_UnmatchedNeverSelectable(t *testing.T) {
	s := newSession(t, scenarioStore(t))

	assert.True(t, s.IsSelectable("C1"))
	assert.True(t, s.IsSelectable("C2"))
	assert.False(t, s.IsSelectable("C3"))
	assert.False(t, s.IsSelectable("C404"))

	err := s.Select("C1", "C3")
	var be *BatchError
	require.True(t, errors.As(err, &be))
	assert.ErrorIs(t, err, ErrNotSelectable)
	assert.Equal(t, []string{"C3"}, be.CandidateIDs)
	assert.Empty(t, s.Selected(), "a rejected select adds nothing")
}

func TestSelect_NoSnapshot(t *testing.T) {
	s := NewSession(scenarioStore(t))
	assert.ErrorIs(t, s.Select("C1"), ErrNoSnapshot)
	assert.False(t, s.IsSelectable("C1"))
}

func TestSelect_SortedAndIdempotent(t *testing.T) {
	s := newSession(t, scenarioStore(t))
	require.NoError(t, s.Select("C2", "C1"))
	require.NoError(t, s.Select("C1"))
	assert.Equal(t, []string{"C1", "C2"}, s.Selected())

	s.Deselect("C2", "C404")
	assert.Equal(t, []string{"C1"}, s.Selected())

	s.ClearSelection()
	assert.Empty(t, s.Selected())
}

func TestSelect_SurvivesRefresh(t *testing.T) {
	s := newSession(t, scenarioStore(t))
	require.NoError(t, s.Select("C1"))

	_, err := s.Refresh(context.Background(), acct, jan1, feb29)
	require.NoError(t, err)
	assert.Equal(t, []string{"C1"}, s.Selected())
}

// Selectability must track the working set after the store changes under it.
func TestSelect_TierChangesAfterRefresh(t *testing.T) {
	st := scenarioStore(t)
	s := newSession(t, st)
	require.True(t, s.IsSelectable("C2"))

	// Another session takes T2 with a different candidate.
	require.NoError(t, st.PutCandidates(cand("C7", "", "300", day(2024, 1, 12))))
	_, err := st.CommitReconciliations(context.Background(), []model.Pair{{CandidateID: "C7", ReconcileID: "T2"}})
	require.NoError(t, err)

	_, err = s.Refresh(context.Background(), acct, jan1, feb29)
	require.NoError(t, err)
	assert.False(t, s.IsSelectable("C2"))
	assert.False(t, s.IsSelectable("C7"))
	assert.True(t, s.IsSelectable("C1"))
}
