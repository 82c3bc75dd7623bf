package types

import (
	"github.com/google/uuid"
)

// HierarchyRow is one flattened row of the activity hierarchy: an activity
// joined to its level, or a bare level when it has no published activities
// (activity columns are then null). Prerequisite ids arrive aggregated as a
// comma-separated string so the row scans from a single query.
type HierarchyRow struct {
	LevelID             uuid.UUID  `gorm:"column:level_id" json:"level_id"`
	LevelTitle          string     `gorm:"column:level_title" json:"level_title"`
	LevelDescription    *string    `gorm:"column:level_description" json:"level_description,omitempty"`
	LevelOrder          int        `gorm:"column:level_order" json:"level_order"`
	ActivityID          *uuid.UUID `gorm:"column:activity_id" json:"activity_id,omitempty"`
	ActivityTitle       *string    `gorm:"column:activity_title" json:"activity_title,omitempty"`
	ActivitySlug        *string    `gorm:"column:activity_slug" json:"activity_slug,omitempty"`
	ActivityDescription *string    `gorm:"column:activity_description" json:"activity_description,omitempty"`
	ActivityOrder       int        `gorm:"column:activity_order" json:"activity_order"`
	FormID              *string    `gorm:"column:form_id" json:"form_id,omitempty"`
	Hint                *string    `gorm:"column:hint" json:"hint,omitempty"`
	RequiresRaw         string     `gorm:"column:requires_activity_ids" json:"-"`
}

// RequiresActivityIDs parses the aggregated prerequisite column. An
// unparseable fragment becomes uuid.Nil, an id no completion row can ever
// carry, so a corrupted edge locks its activity instead of unlocking it.
func (r HierarchyRow) RequiresActivityIDs() []uuid.UUID {
	if r.RequiresRaw == "" {
		return nil
	}
	var out []uuid.UUID
	start := 0
	for i := 0; i <= len(r.RequiresRaw); i++ {
		if i == len(r.RequiresRaw) || r.RequiresRaw[i] == ',' {
			id, err := uuid.Parse(r.RequiresRaw[start:i])
			if err != nil {
				id = uuid.Nil
			}
			out = append(out, id)
			start = i + 1
		}
	}
	return out
}
