package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/speakpath/speakpath-backend/internal/logger"
	"github.com/speakpath/speakpath-backend/internal/types"
)

type HierarchyRepo interface {
	GetAll(ctx context.Context, tx *gorm.DB) ([]types.HierarchyRow, error)
}

type hierarchyRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewHierarchyRepo(db *gorm.DB, baseLog *logger.Logger) HierarchyRepo {
	return &hierarchyRepo{db: db, log: baseLog.With("repo", "HierarchyRepo")}
}

// One row per published activity joined to its level, plus one bare row per
// level without activities (activity columns null). Prerequisite ids are
// aggregated so the whole hierarchy materializes from a single read.
const hierarchyQuery = `
SELECT
  l.id          AS level_id,
  l.title       AS level_title,
  l.description AS level_description,
  l.order_index AS level_order,
  a.id          AS activity_id,
  a.title       AS activity_title,
  a.slug        AS activity_slug,
  a.description AS activity_description,
  COALESCE(a.order_index, 0) AS activity_order,
  a.form_id     AS form_id,
  a.hint        AS hint,
  COALESCE((
    SELECT string_agg(ar.requires_activity_id::text, ',' ORDER BY ar.requires_activity_id)
    FROM activity_requirement ar
    WHERE ar.activity_id = a.id
  ), '') AS requires_activity_ids
FROM level l
LEFT JOIN activity a ON a.level_id = l.id AND a.published
ORDER BY l.order_index, l.id, a.order_index, a.id`

func (r *hierarchyRepo) GetAll(ctx context.Context, tx *gorm.DB) ([]types.HierarchyRow, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var rows []types.HierarchyRow
	if err := transaction.WithContext(ctx).Raw(hierarchyQuery).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
