package types

import (
	"time"

	"github.com/google/uuid"
)

// Prompt is a scoring rubric template. The pipeline uses the oldest row
// (created_at, then id) so selection stays deterministic when several exist.
type Prompt struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Template  string    `gorm:"type:text;not null" json:"template"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Prompt) TableName() string { return "prompt" }
