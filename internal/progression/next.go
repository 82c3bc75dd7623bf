package progression

import (
	"github.com/google/uuid"
)

// NextActivity summarizes the next step surfaced to the user after a
// completion.
type NextActivity struct {
	ActivityID          uuid.UUID `json:"activity_id"`
	ActivityTitle       string    `json:"activity_title"`
	ActivityDescription *string   `json:"activity_description,omitempty"`
	ActivitySlug        string    `json:"activity_slug"`
	FormID              *string   `json:"form_id,omitempty"`
	LevelTitle          string    `json:"level_title"`
}

// FirstUnlocked walks the materialized hierarchy in its fixed order and
// returns the first unlocked activity, or nil when none remains. Ties are
// broken purely by hierarchy order.
func FirstUnlocked(levels []LevelView) *NextActivity {
	for _, level := range levels {
		for _, activity := range level.Activities {
			if activity.Status != StatusUnlocked {
				continue
			}
			return &NextActivity{
				ActivityID:          activity.ID,
				ActivityTitle:       activity.Title,
				ActivityDescription: activity.Description,
				ActivitySlug:        activity.Slug,
				FormID:              activity.FormID,
				LevelTitle:          level.Title,
			}
		}
	}
	return nil
}
