package types

import (
	"time"

	"github.com/google/uuid"
)

// Activity is one learning unit inside a Level. FormID points at the external
// form provider when the activity is completed through a form submission.
type Activity struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	LevelID     uuid.UUID `gorm:"type:uuid;not null;index" json:"level_id"`
	Level       *Level    `gorm:"constraint:OnDelete:CASCADE;foreignKey:LevelID;references:ID" json:"level,omitempty"`
	Title       string    `gorm:"not null" json:"title"`
	Slug        string    `gorm:"not null;index" json:"slug"`
	Description *string   `gorm:"column:description" json:"description,omitempty"`
	OrderIndex  int       `gorm:"column:order_index;not null;default:0;index" json:"order_index"`
	FormID      *string   `gorm:"column:form_id" json:"form_id,omitempty"`
	Hint        *string   `gorm:"column:hint" json:"hint,omitempty"`
	Published   bool      `gorm:"not null;default:true" json:"published"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

func (Activity) TableName() string { return "activity" }

// ActivityRequirement is one prerequisite edge: RequiresActivityID must be
// completed before ActivityID unlocks. All edges of an activity are required
// together (conjunctive gate).
type ActivityRequirement struct {
	ActivityID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"activity_id"`
	RequiresActivityID uuid.UUID `gorm:"type:uuid;primaryKey" json:"requires_activity_id"`
	CreatedAt          time.Time `gorm:"not null" json:"created_at"`
}

func (ActivityRequirement) TableName() string { return "activity_requirement" }
