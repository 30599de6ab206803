package reconcile

import (
	"github.com/cleared-dev/bankrec/internal/id"
	"github.com/cleared-dev/bankrec/internal/model"
)

// IsSelectable reports whether a candidate with tier t may be selected.
// Unmatched candidates never are.
func IsSelectable(t model.Tier) bool {
	return t.Matched()
}

// IsSelectable reports whether candidateID is in the current working set with
// a matched tier. It is false when there is no usable snapshot.
func (s *Session) IsSelectable(candidateID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, err := s.currentLocked()
	if err != nil {
		return false
	}
	tier, ok := snap.CandidateTier(candidateID)
	return ok && IsSelectable(tier)
}

// Select adds candidates to the selection. If any id is not selectable none
// are added and the error lists the offenders.
func (s *Session) Select(ids ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.currentLocked()
	if err != nil {
		return err
	}

	var rejected []string
	for _, cid := range ids {
		tier, ok := snap.CandidateTier(cid)
		if !ok || !IsSelectable(tier) {
			rejected = append(rejected, cid)
		}
	}
	if len(rejected) > 0 {
		id.Sort(rejected)
		return &BatchError{Err: ErrNotSelectable, CandidateIDs: rejected}
	}

	for _, cid := range ids {
		s.selected[cid] = struct{}{}
	}
	return nil
}

// Deselect removes candidates from the selection. Unknown ids are ignored.
func (s *Session) Deselect(ids ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cid := range ids {
		delete(s.selected, cid)
	}
}

// Selected returns the selected ids in ascending order.
func (s *Session) Selected() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedLocked()
}

func (s *Session) selectedLocked() []string {
	out := make([]string, 0, len(s.selected))
	for cid := range s.selected {
		out = append(out, cid)
	}
	id.Sort(out)
	return out
}

// ClearSelection empties the selection.
func (s *Session) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.selected)
}
