package progression

import (
	"time"

	"github.com/google/uuid"

	"github.com/speakpath/speakpath-backend/internal/types"
)

type Status string

const (
	StatusLocked    Status = "locked"
	StatusUnlocked  Status = "unlocked"
	StatusCompleted Status = "completed"
)

// CompletionSet is the set of activities one user has finished, keyed by
// activity id with the completion timestamp as value.
type CompletionSet map[uuid.UUID]time.Time

func (s CompletionSet) Contains(id uuid.UUID) bool {
	_, ok := s[id]
	return ok
}

func BuildCompletionSet(rows []types.UserActivityCompletion) CompletionSet {
	set := make(CompletionSet, len(rows))
	for _, row := range rows {
		set[row.ActivityID] = row.CompletedAt
	}
	return set
}

// ResolveStatus computes an activity's state from its prerequisites and the
// user's completion set. A completed activity stays completed no matter what
// its prerequisites look like; otherwise the activity unlocks only when every
// prerequisite is completed (conjunctive gate).
func ResolveStatus(activityID uuid.UUID, requiresActivityIDs []uuid.UUID, completed CompletionSet) Status {
	if completed.Contains(activityID) {
		return StatusCompleted
	}
	if len(requiresActivityIDs) == 0 {
		return StatusUnlocked
	}
	for _, reqID := range requiresActivityIDs {
		if !completed.Contains(reqID) {
			return StatusLocked
		}
	}
	return StatusUnlocked
}
