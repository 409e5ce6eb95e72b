package postgres

import (
	"gorm.io/gorm"

	"github.com/compedu/quiz-service/internal/models"
	"github.com/compedu/quiz-service/internal/repositories"
)

var attemptSortColumns = map[string]string{
	"created_at":   "created_at",
	"submitted_at": "submitted_at",
	"score":        "score",
	"attempt_no":   "attempt_no",
}

func applyAttemptFilters(db *gorm.DB, filters repositories.AttemptFilters) *gorm.DB {
	if filters.UserID != nil {
		db = db.Where("user_id = ?", *filters.UserID)
	}
	if filters.EducationID != nil {
		db = db.Where("education_id = ?", *filters.EducationID)
	}
	if filters.Department != nil {
		db = db.Where("department = ?", *filters.Department)
	}
	if filters.Status != nil {
		switch *filters.Status {
		case models.AttemptSubmitted:
			db = db.Where("submitted_at IS NOT NULL")
		case models.AttemptInProgress:
			db = db.Where("submitted_at IS NULL")
		}
	}
	if filters.DateFrom != nil {
		db = db.Where("created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		db = db.Where("created_at <= ?", *filters.DateTo)
	}
	return db
}

// applySortAndPage applies ordering and pagination. Sort columns pass
// through a whitelist so filter input never reaches raw SQL.
func applySortAndPage(db *gorm.DB, filters repositories.AttemptFilters, defaultOrder string) *gorm.DB {
	order := defaultOrder
	if col, ok := attemptSortColumns[filters.SortBy]; ok {
		direction := "DESC"
		if filters.SortOrder == "asc" {
			direction = "ASC"
		}
		order = col + " " + direction
	}
	db = db.Order(order)

	if filters.Limit > 0 {
		db = db.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		db = db.Offset(filters.Offset)
	}
	return db
}
