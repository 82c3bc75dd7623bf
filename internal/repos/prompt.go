package repos

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/speakpath/speakpath-backend/internal/logger"
	"github.com/speakpath/speakpath-backend/internal/types"
)

type PromptRepo interface {
	GetFirst(ctx context.Context, tx *gorm.DB) (*types.Prompt, error)
}

type promptRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPromptRepo(db *gorm.DB, baseLog *logger.Logger) PromptRepo {
	return &promptRepo{db: db, log: baseLog.With("repo", "PromptRepo")}
}

// GetFirst returns the oldest prompt (created_at, id tiebreak) so the rubric
// choice is stable across reads. Returns nil without error when the table is
// empty.
func (r *promptRepo) GetFirst(ctx context.Context, tx *gorm.DB) (*types.Prompt, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var row types.Prompt
	err := transaction.WithContext(ctx).
		Order("created_at ASC, id ASC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}
