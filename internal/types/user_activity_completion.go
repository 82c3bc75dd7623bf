package types

import (
	"time"

	"github.com/google/uuid"
)

// UserActivityCompletion records that a user finished an activity. Rows are
// written by the form-submission path (external to this service) and are
// append-only from the progression engine's perspective.
type UserActivityCompletion struct {
	UserID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	ActivityID  uuid.UUID `gorm:"type:uuid;primaryKey" json:"activity_id"`
	CompletedAt time.Time `gorm:"column:completed_at;not null" json:"completed_at"`
}

func (UserActivityCompletion) TableName() string { return "user_activity_completion" }
