package progression

import (
	"sort"

	"github.com/google/uuid"

	"github.com/speakpath/speakpath-backend/internal/types"
)

type ActivityView struct {
	ID                  uuid.UUID   `json:"id"`
	Title               string      `json:"title"`
	Slug                string      `json:"slug"`
	Description         *string     `json:"description,omitempty"`
	OrderIndex          int         `json:"order_index"`
	FormID              *string     `json:"form_id,omitempty"`
	Hint                *string     `json:"hint,omitempty"`
	RequiresActivityIDs []uuid.UUID `json:"requires_activity_ids,omitempty"`
	Status              Status      `json:"status"`
}

type LevelView struct {
	ID          uuid.UUID      `json:"id"`
	Title       string         `json:"title"`
	Description *string        `json:"description,omitempty"`
	OrderIndex  int            `json:"order_index"`
	Activities  []ActivityView `json:"activities"`
}

// MaterializeHierarchy folds flat hierarchy rows and raw completion rows into
// ordered levels with per-activity status. Rows with a null activity id still
// establish their level (a level with no published activities renders empty);
// they contribute no activity entry. Output order is (level order, activity
// order) with id tiebreaks, independent of input order.
func MaterializeHierarchy(rows []types.HierarchyRow, completions []types.UserActivityCompletion) []LevelView {
	completed := BuildCompletionSet(completions)

	byLevel := make(map[uuid.UUID]*LevelView)
	var levelIDs []uuid.UUID
	for _, row := range rows {
		lv, ok := byLevel[row.LevelID]
		if !ok {
			lv = &LevelView{
				ID:          row.LevelID,
				Title:       row.LevelTitle,
				Description: row.LevelDescription,
				OrderIndex:  row.LevelOrder,
				Activities:  []ActivityView{},
			}
			byLevel[row.LevelID] = lv
			levelIDs = append(levelIDs, row.LevelID)
		}
		if row.ActivityID == nil {
			continue
		}
		requires := row.RequiresActivityIDs()
		lv.Activities = append(lv.Activities, ActivityView{
			ID:                  *row.ActivityID,
			Title:               deref(row.ActivityTitle),
			Slug:                deref(row.ActivitySlug),
			Description:         row.ActivityDescription,
			OrderIndex:          row.ActivityOrder,
			FormID:              row.FormID,
			Hint:                row.Hint,
			RequiresActivityIDs: requires,
			Status:              ResolveStatus(*row.ActivityID, requires, completed),
		})
	}

	out := make([]LevelView, 0, len(levelIDs))
	for _, id := range levelIDs {
		lv := byLevel[id]
		sort.SliceStable(lv.Activities, func(i, j int) bool {
			if lv.Activities[i].OrderIndex != lv.Activities[j].OrderIndex {
				return lv.Activities[i].OrderIndex < lv.Activities[j].OrderIndex
			}
			return lv.Activities[i].ID.String() < lv.Activities[j].ID.String()
		})
		out = append(out, *lv)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].OrderIndex != out[j].OrderIndex {
			return out[i].OrderIndex < out[j].OrderIndex
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
