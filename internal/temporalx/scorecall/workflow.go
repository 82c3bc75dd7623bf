package scorecall

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// Workflow scores one practice call: mark processing, fetch call and rubric,
// generate feedback, persist the scorecard. Any step failure is recorded on
// the call row before the workflow itself fails, so the UI always has a
// terminal status to show.
func Workflow(ctx workflow.Context, practiceCallID string) (Result, error) {
	id := strings.TrimSpace(practiceCallID)
	res := Result{PracticeCallID: id}
	if id == "" {
		return res, fmt.Errorf("scorecall: missing practice_call_id")
	}

	retry := &temporal.RetryPolicy{
		InitialInterval:    time.Second,
		BackoffCoefficient: 2,
		MaximumInterval:    30 * time.Second,
		MaximumAttempts:    5,
	}
	dbCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy:         retry,
	})
	// The model call is the slow step; give it room before Temporal retries.
	aiCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy:         retry,
	})

	runErr := func() error {
		if err := workflow.ExecuteActivity(dbCtx, ActivityMarkProcessing, id).Get(dbCtx, nil); err != nil {
			return err
		}

		var call CallInput
		if err := workflow.ExecuteActivity(dbCtx, ActivityFetchCall, id).Get(dbCtx, &call); err != nil {
			return err
		}

		var rubric Rubric
		if err := workflow.ExecuteActivity(dbCtx, ActivityFetchRubric).Get(dbCtx, &rubric); err != nil {
			return err
		}

		var feedback string
		scoreReq := ScoreRequest{TranscriptText: call.TranscriptText, RubricTemplate: rubric.Template}
		if err := workflow.ExecuteActivity(aiCtx, ActivityScore, scoreReq).Get(aiCtx, &feedback); err != nil {
			return err
		}

		persist := PersistInput{PracticeCallID: call.PracticeCallID, UserID: call.UserID, Feedback: feedback}
		return workflow.ExecuteActivity(dbCtx, ActivityPersist, persist).Get(dbCtx, nil)
	}()

	if runErr != nil {
		if recErr := workflow.ExecuteActivity(dbCtx, ActivityRecordFailure, id, failureMessage(runErr)).Get(dbCtx, nil); recErr != nil {
			workflow.GetLogger(ctx).Error("Failure-status write failed", "practice_call_id", id, "error", recErr)
		}
		return res, runErr
	}

	res.Status = "complete"
	return res, nil
}

// failureMessage unwraps Temporal's error envelopes down to the message the
// activity actually raised; that text ends up in status_reason.
func failureMessage(err error) string {
	if err == nil {
		return ""
	}
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		return appErr.Message()
	}
	var timeoutErr *temporal.TimeoutError
	if errors.As(err, &timeoutErr) {
		return timeoutErr.Error()
	}
	return err.Error()
}
