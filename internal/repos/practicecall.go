package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/speakpath/speakpath-backend/internal/logger"
	"github.com/speakpath/speakpath-backend/internal/types"
)

type PracticeCallRepo interface {
	Create(ctx context.Context, tx *gorm.DB, row *types.PracticeCall) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.PracticeCall, error)
	UpdateCallData(ctx context.Context, tx *gorm.DB, id uuid.UUID, durationSecs int, transcriptText string, callData datatypes.JSON) error
	SetScoringStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status string, reason *string) error
}

type practiceCallRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPracticeCallRepo(db *gorm.DB, baseLog *logger.Logger) PracticeCallRepo {
	return &practiceCallRepo{db: db, log: baseLog.With("repo", "PracticeCallRepo")}
}

func (r *practiceCallRepo) Create(ctx context.Context, tx *gorm.DB, row *types.PracticeCall) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if row == nil {
		return nil
	}
	if err := transaction.WithContext(ctx).Create(row).Error; err != nil {
		return err
	}
	return nil
}

// GetByID returns nil without error when the call does not exist.
func (r *practiceCallRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.PracticeCall, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var row types.PracticeCall
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *practiceCallRepo) UpdateCallData(ctx context.Context, tx *gorm.DB, id uuid.UUID, durationSecs int, transcriptText string, callData datatypes.JSON) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	updates := map[string]any{
		"call_duration_secs": durationSecs,
		"transcript_text":    transcriptText,
		"updated_at":         time.Now().UTC(),
	}
	if len(callData) > 0 {
		updates["call_data"] = callData
	}
	return transaction.WithContext(ctx).
		Model(&types.PracticeCall{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// SetScoringStatus is a no-op when the row already holds a terminal status,
// so a late or retried write can never undo complete/failed/skipped.
func (r *practiceCallRepo) SetScoringStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status string, reason *string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	updates := map[string]any{
		"scoring_status": status,
		"updated_at":     time.Now().UTC(),
	}
	if reason != nil {
		updates["status_reason"] = *reason
	}
	return transaction.WithContext(ctx).
		Model(&types.PracticeCall{}).
		Where("id = ? AND scoring_status NOT IN ?", id, []string{
			types.ScoringStatusSkipped,
			types.ScoringStatusComplete,
			types.ScoringStatusFailed,
		}).
		Updates(updates).Error
}
