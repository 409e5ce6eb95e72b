package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// DepartmentStatsRow is one aggregate row grouped by the department
// snapshot stored on submitted attempts.
type DepartmentStatsRow struct {
	Department     string  `json:"department"`
	SubmittedCount int64   `json:"submitted_count"`
	DistinctUsers  int64   `json:"distinct_users"`
	AverageScore   float64 `json:"average_score"`
	PassedCount    int64   `json:"passed_count"`
}

// EducationStatsRow aggregates submitted attempts of one education.
type EducationStatsRow struct {
	EducationID    uint    `json:"education_id"`
	TotalAttempts  int64   `json:"total_attempts"`
	SubmittedCount int64   `json:"submitted_count"`
	DistinctUsers  int64   `json:"distinct_users"`
	AverageScore   float64 `json:"average_score"`
	PassedCount    int64   `json:"passed_count"`
	HighestScore   int     `json:"highest_score"`
	LowestScore    int     `json:"lowest_score"`
}

// OverviewStats summarizes the whole platform for the admin dashboard.
type OverviewStats struct {
	TotalAttempts   int64   `json:"total_attempts"`
	SubmittedCount  int64   `json:"submitted_count"`
	InProgressCount int64   `json:"in_progress_count"`
	DistinctUsers   int64   `json:"distinct_users"`
	AverageScore    float64 `json:"average_score"`
	PassedCount     int64   `json:"passed_count"`
}

// ScoreTrendPoint is one day of submission volume and average score.
type ScoreTrendPoint struct {
	Date           time.Time `json:"date"`
	SubmittedCount int64     `json:"submitted_count"`
	AverageScore   float64   `json:"average_score"`
}

// StatsRepository runs the aggregate queries behind reporting. Passed
// counts use the platform-wide pass threshold baked into the SQL.
type StatsRepository interface {
	GetDepartmentStats(ctx context.Context, tx *gorm.DB, filters StatsFilters) ([]DepartmentStatsRow, error)
	GetEducationStats(ctx context.Context, tx *gorm.DB, educationID uint, filters StatsFilters) (*EducationStatsRow, error)
	GetOverviewStats(ctx context.Context, tx *gorm.DB, filters StatsFilters) (*OverviewStats, error)
	GetScoreTrend(ctx context.Context, tx *gorm.DB, days int, filters StatsFilters) ([]ScoreTrendPoint, error)
}
