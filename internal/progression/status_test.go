package progression

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/speakpath/speakpath-backend/internal/types"
)

func completionSetOf(ids ...uuid.UUID) CompletionSet {
	set := make(CompletionSet, len(ids))
	for _, id := range ids {
		set[id] = time.Now().UTC()
	}
	return set
}

func TestResolveStatusCompletedShortCircuitsPrerequisites(t *testing.T) {
	activityID := uuid.New()
	incompletePrereq := uuid.New()

	got := ResolveStatus(activityID, []uuid.UUID{incompletePrereq}, completionSetOf(activityID))
	if got != StatusCompleted {
		t.Fatalf("status: want=%q got=%q", StatusCompleted, got)
	}
}

func TestResolveStatusNoPrerequisitesUnlocked(t *testing.T) {
	got := ResolveStatus(uuid.New(), nil, completionSetOf())
	if got != StatusUnlocked {
		t.Fatalf("status: want=%q got=%q", StatusUnlocked, got)
	}
}

func TestResolveStatusConjunctiveGate(t *testing.T) {
	activityID := uuid.New()
	reqA := uuid.New()
	reqB := uuid.New()

	if got := ResolveStatus(activityID, []uuid.UUID{reqA, reqB}, completionSetOf(reqA)); got != StatusLocked {
		t.Fatalf("one of two prerequisites met: want=%q got=%q", StatusLocked, got)
	}
	if got := ResolveStatus(activityID, []uuid.UUID{reqA, reqB}, completionSetOf(reqA, reqB)); got != StatusUnlocked {
		t.Fatalf("all prerequisites met: want=%q got=%q", StatusUnlocked, got)
	}
	if got := ResolveStatus(activityID, []uuid.UUID{reqA, reqB}, completionSetOf()); got != StatusLocked {
		t.Fatalf("no prerequisites met: want=%q got=%q", StatusLocked, got)
	}
}

func TestBuildCompletionSet(t *testing.T) {
	userID := uuid.New()
	a := uuid.New()
	b := uuid.New()
	now := time.Now().UTC()

	set := BuildCompletionSet([]types.UserActivityCompletion{
		{UserID: userID, ActivityID: a, CompletedAt: now},
		{UserID: userID, ActivityID: b, CompletedAt: now.Add(time.Minute)},
	})

	if len(set) != 2 {
		t.Fatalf("set size: want=2 got=%d", len(set))
	}
	if !set.Contains(a) || !set.Contains(b) {
		t.Fatalf("set missing ids: %v", set)
	}
	if set.Contains(uuid.New()) {
		t.Fatalf("set contains unknown id")
	}
}
