package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/speakpath/speakpath-backend/internal/logger"
	"github.com/speakpath/speakpath-backend/internal/types"
)

// CompletionRepo reads user_activity_completion rows. Writes happen in the
// form-submission path outside this service; the progression engine only
// ever reads them.
type CompletionRepo interface {
	GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]types.UserActivityCompletion, error)
	GetCompletedAt(ctx context.Context, tx *gorm.DB, userID, activityID uuid.UUID) (*time.Time, error)
}

type completionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCompletionRepo(db *gorm.DB, baseLog *logger.Logger) CompletionRepo {
	return &completionRepo{db: db, log: baseLog.With("repo", "CompletionRepo")}
}

func (r *completionRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]types.UserActivityCompletion, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []types.UserActivityCompletion
	if userID == uuid.Nil {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// GetCompletedAt returns nil without error when no completion row exists.
func (r *completionRepo) GetCompletedAt(ctx context.Context, tx *gorm.DB, userID, activityID uuid.UUID) (*time.Time, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var row types.UserActivityCompletion
	err := transaction.WithContext(ctx).
		Where("user_id = ? AND activity_id = ?", userID, activityID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	ts := row.CompletedAt
	return &ts, nil
}
