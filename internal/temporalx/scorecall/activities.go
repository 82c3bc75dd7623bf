package scorecall

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/temporal"
	"gorm.io/gorm"

	"github.com/speakpath/speakpath-backend/internal/logger"
	"github.com/speakpath/speakpath-backend/internal/repos"
	"github.com/speakpath/speakpath-backend/internal/services"
	"github.com/speakpath/speakpath-backend/internal/types"
)

const scoringSystemPrompt = `You are an expert conversation evaluator.
Score the following conversation transcript according to the provided rubric.
Be fair, constructive, and specific in your feedback.
Provide detailed feedback that helps the user improve their conversation skills.`

// Reasons persisted to status_reason are capped; longer error text is cut to
// this length with a "..." suffix before the "Workflow error: " prefix.
const maxReasonErrLen = 500

type Activities struct {
	Log        *logger.Logger
	DB         *gorm.DB
	Calls      repos.PracticeCallRepo
	Prompts    repos.PromptRepo
	Scorecards repos.ScorecardRepo
	AI         services.OpenAIClient
}

// MarkProcessing flips the call to processing as the pipeline's first step.
// The status write is a no-op when the row already reached a terminal state.
func (a *Activities) MarkProcessing(ctx context.Context, practiceCallID string) error {
	if a == nil || a.Calls == nil {
		return fmt.Errorf("scorecall: activity not configured")
	}
	id, err := parseCallID(practiceCallID)
	if err != nil {
		return err
	}
	return a.Calls.SetScoringStatus(ctx, nil, id, types.ScoringStatusProcessing, nil)
}

// FetchCall loads the call and validates its transcript. Both failure modes
// are permanent, so they are marked non-retryable for the workflow.
func (a *Activities) FetchCall(ctx context.Context, practiceCallID string) (CallInput, error) {
	var out CallInput
	if a == nil || a.Calls == nil {
		return out, fmt.Errorf("scorecall: activity not configured")
	}
	id, err := parseCallID(practiceCallID)
	if err != nil {
		return out, err
	}

	call, err := a.Calls.GetByID(ctx, nil, id)
	if err != nil {
		return out, err
	}
	if call == nil {
		return out, temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("Practice call not found: %s", practiceCallID), ErrTypeNotFound, nil)
	}
	if strings.TrimSpace(call.TranscriptText) == "" {
		return out, temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("No valid transcript found for practice call: %s. Transcript text is empty or invalid.", practiceCallID),
			ErrTypeInvalidInput, nil)
	}

	out.PracticeCallID = call.ID.String()
	out.UserID = call.UserID.String()
	out.TranscriptText = call.TranscriptText
	return out, nil
}

// FetchRubric picks the oldest prompt row as the scoring rubric.
func (a *Activities) FetchRubric(ctx context.Context) (Rubric, error) {
	var out Rubric
	if a == nil || a.Prompts == nil {
		return out, fmt.Errorf("scorecall: activity not configured")
	}

	prompt, err := a.Prompts.GetFirst(ctx, nil)
	if err != nil {
		return out, err
	}
	if prompt == nil {
		return out, temporal.NewNonRetryableApplicationError(
			"No prompts found in the prompts table. Please add at least one prompt to use as a rubric.",
			ErrTypeNotFound, nil)
	}
	if strings.TrimSpace(prompt.Template) == "" {
		return out, temporal.NewNonRetryableApplicationError("Prompt template is empty", ErrTypeInvalidInput, nil)
	}

	out.PromptID = prompt.ID.String()
	out.Template = prompt.Template
	return out, nil
}

// Score asks the model for feedback on the transcript against the rubric.
func (a *Activities) Score(ctx context.Context, req ScoreRequest) (string, error) {
	if a == nil || a.AI == nil {
		return "", fmt.Errorf("scorecall: activity not configured")
	}

	user := fmt.Sprintf(`## Rubric
%s

## Transcript
%s

Evaluate this conversation according to the rubric criteria above. Provide comprehensive feedback.`,
		req.RubricTemplate, req.TranscriptText)

	return a.AI.GenerateText(ctx, scoringSystemPrompt, user)
}

// Persist writes the scorecard and flips the call to complete. Re-delivery is
// tolerated: an existing scorecard for the call is kept as-is and the status
// write is repeated, so the activity can run more than once safely.
func (a *Activities) Persist(ctx context.Context, in PersistInput) error {
	if a == nil || a.Calls == nil || a.Scorecards == nil {
		return fmt.Errorf("scorecall: activity not configured")
	}
	callID, err := parseCallID(in.PracticeCallID)
	if err != nil {
		return err
	}
	userID, err := uuid.Parse(strings.TrimSpace(in.UserID))
	if err != nil || userID == uuid.Nil {
		return temporal.NewNonRetryableApplicationError("scorecall: invalid user_id", ErrTypeInvalidInput, err)
	}

	existing, err := a.Scorecards.GetByPracticeCallID(ctx, nil, callID)
	if err != nil {
		return err
	}
	if existing == nil {
		now := time.Now().UTC()
		row := &types.Scorecard{
			ID:             uuid.New(),
			PracticeCallID: callID,
			UserID:         userID,
			Feedback:       in.Feedback,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if createErr := a.Scorecards.Create(ctx, nil, row); createErr != nil {
			// The workflow's failure handler records the failed status with
			// the reason; writing failed here would make that a no-op under
			// the terminal-status guard.
			return fmt.Errorf("Failed to save scorecard: %w", createErr)
		}
	}

	return a.Calls.SetScoringStatus(ctx, nil, callID, types.ScoringStatusComplete, nil)
}

// RecordFailure stores the terminal failed status with a bounded reason.
func (a *Activities) RecordFailure(ctx context.Context, practiceCallID string, message string) error {
	if a == nil || a.Calls == nil {
		return fmt.Errorf("scorecall: activity not configured")
	}
	id, err := parseCallID(practiceCallID)
	if err != nil {
		return err
	}

	if len(message) > maxReasonErrLen {
		message = message[:maxReasonErrLen-3] + "..."
	}
	reason := "Workflow error: " + message
	return a.Calls.SetScoringStatus(ctx, nil, id, types.ScoringStatusFailed, &reason)
}

func parseCallID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, temporal.NewNonRetryableApplicationError("scorecall: invalid practice_call_id", ErrTypeInvalidInput, err)
	}
	return id, nil
}
