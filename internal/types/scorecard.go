package types

import (
	"time"

	"github.com/google/uuid"
)

// Scorecard holds the AI feedback for one scored PracticeCall. The unique
// index on practice_call_id enforces the one-to-one invariant.
type Scorecard struct {
	ID             uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	PracticeCallID uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex" json:"practice_call_id"`
	PracticeCall   *PracticeCall `gorm:"constraint:OnDelete:CASCADE;foreignKey:PracticeCallID;references:ID" json:"practice_call,omitempty"`
	UserID         uuid.UUID     `gorm:"type:uuid;not null;index" json:"user_id"`
	Feedback       string        `gorm:"type:text;not null" json:"feedback"`
	CreatedAt      time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time     `gorm:"not null" json:"updated_at"`
}

func (Scorecard) TableName() string { return "scorecard" }
