package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/speakpath/speakpath-backend/internal/logger"
	"github.com/speakpath/speakpath-backend/internal/progression"
	"github.com/speakpath/speakpath-backend/internal/repos"
)

// ProgressionService materializes the activity hierarchy for a user and
// resolves the next eligible activity. All state flows in as parameters;
// nothing is read from ambient session context.
type ProgressionService interface {
	GetHierarchy(ctx context.Context, userID uuid.UUID) ([]progression.LevelView, error)
	NextActivity(ctx context.Context, currentActivityID, userID uuid.UUID) (*progression.NextActivity, error)
}

type progressionService struct {
	db          *gorm.DB
	log         *logger.Logger
	hierarchy   repos.HierarchyRepo
	completions repos.CompletionRepo
}

func NewProgressionService(db *gorm.DB, baseLog *logger.Logger, hierarchy repos.HierarchyRepo, completions repos.CompletionRepo) ProgressionService {
	return &progressionService{
		db:          db,
		log:         baseLog.With("service", "ProgressionService"),
		hierarchy:   hierarchy,
		completions: completions,
	}
}

// GetHierarchy returns an error when the hierarchy source is unreachable, so
// callers can distinguish "source unavailable" from "no data yet" (an empty
// slice).
func (s *progressionService) GetHierarchy(ctx context.Context, userID uuid.UUID) ([]progression.LevelView, error) {
	rows, err := s.hierarchy.GetAll(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("hierarchy source unavailable: %w", err)
	}
	completions, err := s.completions.GetByUserID(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("completion source unavailable: %w", err)
	}
	return progression.MaterializeHierarchy(rows, completions), nil
}

// NextActivity re-reads the completion set on every call; the caller is
// responsible for invoking it only after the completion write has become
// visible (the completion watcher guarantees this on its success path).
// currentActivityID is carried for logging; ordering alone decides the next
// step.
func (s *progressionService) NextActivity(ctx context.Context, currentActivityID, userID uuid.UUID) (*progression.NextActivity, error) {
	levels, err := s.GetHierarchy(ctx, userID)
	if err != nil {
		return nil, err
	}
	next := progression.FirstUnlocked(levels)
	if next == nil {
		s.log.Debug("No next activity available", "current_activity_id", currentActivityID, "user_id", userID)
		return nil, nil
	}
	return next, nil
}
