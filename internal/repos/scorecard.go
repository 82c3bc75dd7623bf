package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/speakpath/speakpath-backend/internal/logger"
	"github.com/speakpath/speakpath-backend/internal/types"
)

type ScorecardRepo interface {
	Create(ctx context.Context, tx *gorm.DB, row *types.Scorecard) error
	GetByPracticeCallID(ctx context.Context, tx *gorm.DB, practiceCallID uuid.UUID) (*types.Scorecard, error)
}

type scorecardRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewScorecardRepo(db *gorm.DB, baseLog *logger.Logger) ScorecardRepo {
	return &scorecardRepo{db: db, log: baseLog.With("repo", "ScorecardRepo")}
}

func (r *scorecardRepo) Create(ctx context.Context, tx *gorm.DB, row *types.Scorecard) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if row == nil {
		return nil
	}
	return transaction.WithContext(ctx).Create(row).Error
}

// GetByPracticeCallID returns nil without error when no scorecard exists yet.
func (r *scorecardRepo) GetByPracticeCallID(ctx context.Context, tx *gorm.DB, practiceCallID uuid.UUID) (*types.Scorecard, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var row types.Scorecard
	err := transaction.WithContext(ctx).
		Where("practice_call_id = ?", practiceCallID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}
