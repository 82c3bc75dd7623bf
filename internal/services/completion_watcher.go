package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/speakpath/speakpath-backend/internal/logger"
	"github.com/speakpath/speakpath-backend/internal/progression"
	"github.com/speakpath/speakpath-backend/internal/repos"
)

type WatchOutcome string

const (
	WatchSuccess WatchOutcome = "success"
	WatchTimeout WatchOutcome = "timeout"
)

// WatchResult is the single terminal outcome of one watch. Next is populated
// on success when another activity is available; a nil Next on success means
// everything is complete.
type WatchResult struct {
	Outcome WatchOutcome              `json:"outcome"`
	Next    *progression.NextActivity `json:"next,omitempty"`
}

// CompletionWatcher bridges a fire-and-forget form-submission event to the
// durable completion row. The completion write lands through an external
// path with replication lag, so the watcher captures a baseline timestamp
// and polls until the timestamp changes or the poll budget runs out.
//
// Watch returns a channel that delivers at most one WatchResult. Cancelling
// ctx stops the poll loop; nothing is delivered after cancellation.
type CompletionWatcher interface {
	Watch(ctx context.Context, userID, activityID uuid.UUID) (<-chan WatchResult, error)
}

type completionWatcher struct {
	log         *logger.Logger
	completions repos.CompletionRepo
	progression ProgressionService

	pollInterval time.Duration
	maxPolls     int
}

const (
	watcherPollInterval = 500 * time.Millisecond
	watcherMaxPolls     = 20
)

func NewCompletionWatcher(baseLog *logger.Logger, completions repos.CompletionRepo, progression ProgressionService) CompletionWatcher {
	return &completionWatcher{
		log:          baseLog.With("service", "CompletionWatcher"),
		completions:  completions,
		progression:  progression,
		pollInterval: watcherPollInterval,
		maxPolls:     watcherMaxPolls,
	}
}

func (w *completionWatcher) Watch(ctx context.Context, userID, activityID uuid.UUID) (<-chan WatchResult, error) {
	if userID == uuid.Nil || activityID == uuid.Nil {
		return nil, fmt.Errorf("watch requires user_id and activity_id")
	}

	// Baseline may be absent when the activity was never completed before;
	// any later timestamp counts as a change either way.
	baseline, err := w.completions.GetCompletedAt(ctx, nil, userID, activityID)
	if err != nil {
		return nil, fmt.Errorf("baseline completion read: %w", err)
	}

	results := make(chan WatchResult, 1)
	go w.poll(ctx, userID, activityID, baseline, results)
	return results, nil
}

func (w *completionWatcher) poll(ctx context.Context, userID, activityID uuid.UUID, baseline *time.Time, results chan<- WatchResult) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	polls := 0
	for {
		select {
		case <-ctx.Done():
			// Host view went away; discard everything silently.
			return
		case <-ticker.C:
			polls++
			current, err := w.completions.GetCompletedAt(ctx, nil, userID, activityID)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				w.log.Warn("Completion poll read failed", "activity_id", activityID, "user_id", userID, "poll", polls, "error", err)
			} else if timestampChanged(baseline, current) {
				next, nextErr := w.progression.NextActivity(ctx, activityID, userID)
				if nextErr != nil {
					if ctx.Err() != nil {
						return
					}
					// Completion is confirmed; a failed next lookup just means
					// there is no recommendation to show.
					w.log.Warn("Next-activity resolution failed after completion", "activity_id", activityID, "user_id", userID, "error", nextErr)
					next = nil
				}
				w.deliver(ctx, results, WatchResult{Outcome: WatchSuccess, Next: next})
				return
			}
			if polls >= w.maxPolls {
				w.deliver(ctx, results, WatchResult{Outcome: WatchTimeout})
				return
			}
		}
	}
}

func (w *completionWatcher) deliver(ctx context.Context, results chan<- WatchResult, res WatchResult) {
	select {
	case <-ctx.Done():
	case results <- res:
	}
}

func timestampChanged(baseline, current *time.Time) bool {
	if current == nil {
		return false
	}
	if baseline == nil {
		return true
	}
	return !current.Equal(*baseline)
}
