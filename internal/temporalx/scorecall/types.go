package scorecall

const (
	WorkflowName = "score_practice_call"

	ActivityMarkProcessing = "score_call_mark_processing"
	ActivityFetchCall      = "score_call_fetch_call"
	ActivityFetchRubric    = "score_call_fetch_rubric"
	ActivityScore          = "score_call_score_transcript"
	ActivityPersist        = "score_call_persist_scorecard"
	ActivityRecordFailure  = "score_call_record_failure"
)

// Error types attached to non-retryable activity failures.
const (
	ErrTypeNotFound     = "NotFound"
	ErrTypeInvalidInput = "InvalidInput"
)

type CallInput struct {
	PracticeCallID string `json:"practice_call_id"`
	UserID         string `json:"user_id"`
	TranscriptText string `json:"transcript_text"`
}

type Rubric struct {
	PromptID string `json:"prompt_id"`
	Template string `json:"template"`
}

type ScoreRequest struct {
	TranscriptText string `json:"transcript_text"`
	RubricTemplate string `json:"rubric_template"`
}

type PersistInput struct {
	PracticeCallID string `json:"practice_call_id"`
	UserID         string `json:"user_id"`
	Feedback       string `json:"feedback"`
}

type Result struct {
	PracticeCallID string `json:"practice_call_id"`
	Status         string `json:"status"`
}
