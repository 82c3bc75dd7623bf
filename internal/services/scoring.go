package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	enums "go.temporal.io/api/enums/v1"
	temporalsdkclient "go.temporal.io/sdk/client"
	"gorm.io/gorm"

	redisclient "github.com/speakpath/speakpath-backend/internal/clients/redis"
	"github.com/speakpath/speakpath-backend/internal/logger"
	"github.com/speakpath/speakpath-backend/internal/repos"
	"github.com/speakpath/speakpath-backend/internal/types"
)

// MinimumCallDurationSecs is the admission threshold: shorter calls are not
// worth a scoring-model invocation and are marked skipped instead.
const MinimumCallDurationSecs = 60

// ShouldScore is the admission gate for the scoring pipeline.
func ShouldScore(durationSecs int) bool {
	return durationSecs >= MinimumCallDurationSecs
}

var ErrPracticeCallNotFound = errors.New("practice call not found")

const (
	DispatchOutcomeSkipped    = "skipped"
	DispatchOutcomeDispatched = "dispatched"
	DispatchOutcomeDuplicate  = "duplicate"
)

type ScoreDispatch struct {
	PracticeCallID uuid.UUID `json:"practice_call_id"`
	DurationSecs   int       `json:"duration_secs"`
	Outcome        string    `json:"outcome"`
	WorkflowID     string    `json:"workflow_id,omitempty"`
}

// workflowStarter is the slice of the Temporal client the dispatcher needs.
type workflowStarter interface {
	ExecuteWorkflow(ctx context.Context, options temporalsdkclient.StartWorkflowOptions, workflow interface{}, args ...interface{}) (temporalsdkclient.WorkflowRun, error)
}

// ScoringService admits call-ended events into the scoring pipeline. The
// webhook that invokes it is delivered at-least-once, so dispatch is
// deduplicated twice: a short-TTL redis lock in front, and the workflow id
// at the Temporal boundary.
type ScoringService interface {
	ScorePracticeCall(ctx context.Context, practiceCallID uuid.UUID) (*ScoreDispatch, error)
}

type scoringService struct {
	db        *gorm.DB
	log       *logger.Logger
	calls     repos.PracticeCallRepo
	temporal  workflowStarter
	lock      redisclient.DispatchLock
	taskQueue string
}

func NewScoringService(
	db *gorm.DB,
	baseLog *logger.Logger,
	calls repos.PracticeCallRepo,
	temporal temporalsdkclient.Client,
	lock redisclient.DispatchLock,
	taskQueue string,
) ScoringService {
	var starter workflowStarter
	if temporal != nil {
		starter = temporal
	}
	return &scoringService{
		db:        db,
		log:       baseLog.With("service", "ScoringService"),
		calls:     calls,
		temporal:  starter,
		lock:      lock,
		taskQueue: taskQueue,
	}
}

func (s *scoringService) ScorePracticeCall(ctx context.Context, practiceCallID uuid.UUID) (*ScoreDispatch, error) {
	if practiceCallID == uuid.Nil {
		return nil, fmt.Errorf("missing practice_call_id")
	}

	call, err := s.calls.GetByID(ctx, nil, practiceCallID)
	if err != nil {
		return nil, err
	}
	if call == nil {
		return nil, fmt.Errorf("%w: %s", ErrPracticeCallNotFound, practiceCallID)
	}

	dispatch := &ScoreDispatch{PracticeCallID: practiceCallID, DurationSecs: call.CallDurationSecs}

	if !ShouldScore(call.CallDurationSecs) {
		reason := fmt.Sprintf("Call too short: %d seconds (minimum %ds required)", call.CallDurationSecs, MinimumCallDurationSecs)
		if err := s.calls.SetScoringStatus(ctx, nil, practiceCallID, types.ScoringStatusSkipped, &reason); err != nil {
			return nil, err
		}
		s.log.Info("Practice call skipped by admission gate", "practice_call_id", practiceCallID, "duration_secs", call.CallDurationSecs)
		dispatch.Outcome = DispatchOutcomeSkipped
		return dispatch, nil
	}

	lockKey := ""
	if s.lock != nil {
		key := "score-dispatch:" + practiceCallID.String()
		acquired, lockErr := s.lock.Acquire(ctx, key, 2*time.Minute)
		if lockErr != nil {
			// Redis being down must not block scoring; the workflow id still
			// dedupes at the Temporal boundary.
			s.log.Warn("Dispatch lock unavailable, continuing", "practice_call_id", practiceCallID, "error", lockErr)
		} else if !acquired {
			s.log.Info("Duplicate score dispatch dropped", "practice_call_id", practiceCallID)
			dispatch.Outcome = DispatchOutcomeDuplicate
			return dispatch, nil
		} else {
			lockKey = key
		}
	}

	if s.temporal == nil {
		s.releaseLock(ctx, lockKey, practiceCallID)
		return nil, fmt.Errorf("scoring workflow runtime not configured")
	}

	workflowID := "score-call-" + practiceCallID.String()
	opts := temporalsdkclient.StartWorkflowOptions{
		ID:                    workflowID,
		TaskQueue:             s.taskQueue,
		WorkflowIDReusePolicy: enums.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE_FAILED_ONLY,
	}
	// Name literal avoids importing the workflow package from here.
	if _, err := s.temporal.ExecuteWorkflow(ctx, opts, "score_practice_call", practiceCallID.String()); err != nil {
		// Holding the lock after a failed start would turn the sender's
		// retries into bogus duplicate drops until the TTL expires, leaving
		// the call in waiting with no workflow behind it.
		s.releaseLock(ctx, lockKey, practiceCallID)
		return nil, fmt.Errorf("start scoring workflow: %w", err)
	}

	s.log.Info("Scoring workflow started", "practice_call_id", practiceCallID, "workflow_id", workflowID)
	dispatch.Outcome = DispatchOutcomeDispatched
	dispatch.WorkflowID = workflowID
	return dispatch, nil
}

func (s *scoringService) releaseLock(ctx context.Context, lockKey string, practiceCallID uuid.UUID) {
	if s.lock == nil || lockKey == "" {
		return
	}
	if err := s.lock.Release(ctx, lockKey); err != nil {
		s.log.Warn("Dispatch lock release failed; redelivery blocked until TTL", "practice_call_id", practiceCallID, "error", err)
	}
}
