package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	ScoringStatusWaiting    = "waiting"
	ScoringStatusProcessing = "processing"
	ScoringStatusSkipped    = "skipped"
	ScoringStatusComplete   = "complete"
	ScoringStatusFailed     = "failed"
)

// ScoringStatusTerminal reports whether a status may never be overwritten.
func ScoringStatusTerminal(status string) bool {
	switch status {
	case ScoringStatusSkipped, ScoringStatusComplete, ScoringStatusFailed:
		return true
	default:
		return false
	}
}

// PracticeCall is one recorded voice-practice session. The row is created
// minimal at session start (status waiting); the call webhook enriches it
// with duration and transcript before scoring is dispatched.
type PracticeCall struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	User             *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	CallDurationSecs int            `gorm:"column:call_duration_secs;not null;default:0" json:"call_duration_secs"`
	ScoringStatus    string         `gorm:"column:scoring_status;not null;index" json:"scoring_status"`
	StatusReason     *string        `gorm:"column:status_reason" json:"status_reason,omitempty"`
	TranscriptText   string         `gorm:"column:transcript_text;type:text" json:"transcript_text"`
	CallData         datatypes.JSON `gorm:"type:jsonb;column:call_data" json:"call_data,omitempty"`
	CreatedAt        time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"not null" json:"updated_at"`
}

func (PracticeCall) TableName() string { return "practice_call" }
