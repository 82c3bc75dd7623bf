package types

import (
	"time"

	"github.com/google/uuid"
)

type Level struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string    `gorm:"not null" json:"title"`
	Description *string   `gorm:"column:description" json:"description,omitempty"`
	OrderIndex  int       `gorm:"column:order_index;not null;default:0;index" json:"order_index"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

func (Level) TableName() string { return "level" }
