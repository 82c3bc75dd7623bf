package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/speakpath/speakpath-backend/internal/logger"
	"github.com/speakpath/speakpath-backend/internal/repos"
	"github.com/speakpath/speakpath-backend/internal/types"
)

// PracticeCallService owns the practice-call session lifecycle around the
// scoring pipeline: a minimal row at session start, webhook enrichment when
// the call ends, and the status lookup the UI polls. The UI is shown
// status_reason, never a raw error.
type PracticeCallService interface {
	CreateSession(ctx context.Context, userID uuid.UUID) (*types.PracticeCall, error)
	EnrichCall(ctx context.Context, id uuid.UUID, durationSecs int, transcriptText string, callData datatypes.JSON) (*types.PracticeCall, error)
	GetStatus(ctx context.Context, id uuid.UUID) (*types.PracticeCall, error)
	GetScorecard(ctx context.Context, id uuid.UUID) (*types.Scorecard, error)
}

type practiceCallService struct {
	db         *gorm.DB
	log        *logger.Logger
	calls      repos.PracticeCallRepo
	scorecards repos.ScorecardRepo
}

func NewPracticeCallService(db *gorm.DB, baseLog *logger.Logger, calls repos.PracticeCallRepo, scorecards repos.ScorecardRepo) PracticeCallService {
	return &practiceCallService{
		db:         db,
		log:        baseLog.With("service", "PracticeCallService"),
		calls:      calls,
		scorecards: scorecards,
	}
}

func (s *practiceCallService) CreateSession(ctx context.Context, userID uuid.UUID) (*types.PracticeCall, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("missing user_id")
	}
	now := time.Now().UTC()
	row := &types.PracticeCall{
		ID:            uuid.New(),
		UserID:        userID,
		ScoringStatus: types.ScoringStatusWaiting,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.calls.Create(ctx, nil, row); err != nil {
		return nil, err
	}
	s.log.Info("Practice call session created", "practice_call_id", row.ID, "user_id", userID)
	return row, nil
}

func (s *practiceCallService) EnrichCall(ctx context.Context, id uuid.UUID, durationSecs int, transcriptText string, callData datatypes.JSON) (*types.PracticeCall, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing practice_call_id")
	}
	if durationSecs < 0 {
		durationSecs = 0
	}
	existing, err := s.calls.GetByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("practice call not found: %s", id)
	}
	if err := s.calls.UpdateCallData(ctx, nil, id, durationSecs, transcriptText, callData); err != nil {
		return nil, err
	}
	return s.calls.GetByID(ctx, nil, id)
}

func (s *practiceCallService) GetStatus(ctx context.Context, id uuid.UUID) (*types.PracticeCall, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing practice_call_id")
	}
	return s.calls.GetByID(ctx, nil, id)
}

// GetScorecard returns nil without error while the call is still unscored.
func (s *practiceCallService) GetScorecard(ctx context.Context, id uuid.UUID) (*types.Scorecard, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing practice_call_id")
	}
	return s.scorecards.GetByPracticeCallID(ctx, nil, id)
}
