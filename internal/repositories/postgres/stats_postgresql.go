package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/compedu/quiz-service/internal/cache"
	"github.com/compedu/quiz-service/internal/models"
	"github.com/compedu/quiz-service/internal/repositories"
)

type statsRepository struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewStatsPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.StatsRepository {
	return &statsRepository{
		db:           db,
		cacheManager: cacheManager,
	}
}

func (r *statsRepository) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *statsRepository) submittedScope(ctx context.Context, tx *gorm.DB, filters repositories.StatsFilters) *gorm.DB {
	db := r.getDB(tx).WithContext(ctx).
		Model(&models.QuizAttempt{}).
		Where("submitted_at IS NOT NULL")

	if filters.Department != nil {
		db = db.Where("department = ?", *filters.Department)
	}
	if filters.EducationID != nil {
		db = db.Where("education_id = ?", *filters.EducationID)
	}
	if filters.Since != nil {
		db = db.Where("submitted_at >= ?", *filters.Since)
	}
	return db
}

func (r *statsRepository) GetDepartmentStats(ctx context.Context, tx *gorm.DB, filters repositories.StatsFilters) ([]repositories.DepartmentStatsRow, error) {
	var rows []repositories.DepartmentStatsRow

	fetch := func() (interface{}, error) {
		var result []repositories.DepartmentStatsRow
		err := r.submittedScope(ctx, tx, filters).
			Select(`department,
				COUNT(*) as submitted_count,
				COUNT(DISTINCT user_id) as distinct_users,
				COALESCE(AVG(score), 0) as average_score,
				SUM(CASE WHEN score >= ? THEN 1 ELSE 0 END) as passed_count`, models.PassThreshold).
			Group("department").
			Order("department").
			Scan(&result).Error
		if err != nil {
			return nil, fmt.Errorf("failed to aggregate department stats: %w", err)
		}
		return result, nil
	}

	// Transactional callers bypass the cache.
	if tx != nil {
		result, err := fetch()
		if err != nil {
			return nil, err
		}
		return result.([]repositories.DepartmentStatsRow), nil
	}

	cacheKey := fmt.Sprintf("department:%s", statsCacheKey(filters))
	if err := r.cacheManager.Stats.CacheOrExecute(ctx, cacheKey, &rows, cache.StatsCacheConfig.TTL, fetch); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *statsRepository) GetEducationStats(ctx context.Context, tx *gorm.DB, educationID uint, filters repositories.StatsFilters) (*repositories.EducationStatsRow, error) {
	filters.EducationID = &educationID

	var row repositories.EducationStatsRow
	err := r.submittedScope(ctx, tx, filters).
		Select(`education_id,
			COUNT(*) as submitted_count,
			COUNT(DISTINCT user_id) as distinct_users,
			COALESCE(AVG(score), 0) as average_score,
			SUM(CASE WHEN score >= ? THEN 1 ELSE 0 END) as passed_count,
			COALESCE(MAX(score), 0) as highest_score,
			COALESCE(MIN(score), 0) as lowest_score`, models.PassThreshold).
		Group("education_id").
		Scan(&row).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate education stats: %w", err)
	}
	row.EducationID = educationID

	// Total includes in-progress attempts, counted separately.
	totalScope := r.getDB(tx).WithContext(ctx).
		Model(&models.QuizAttempt{}).
		Where("education_id = ?", educationID)
	if filters.Since != nil {
		totalScope = totalScope.Where("created_at >= ?", *filters.Since)
	}
	if err := totalScope.Count(&row.TotalAttempts).Error; err != nil {
		return nil, fmt.Errorf("failed to count education attempts: %w", err)
	}

	return &row, nil
}

func (r *statsRepository) GetOverviewStats(ctx context.Context, tx *gorm.DB, filters repositories.StatsFilters) (*repositories.OverviewStats, error) {
	var stats repositories.OverviewStats

	fetch := func() (interface{}, error) {
		var result repositories.OverviewStats
		err := r.submittedScope(ctx, tx, filters).
			Select(`COUNT(*) as submitted_count,
				COUNT(DISTINCT user_id) as distinct_users,
				COALESCE(AVG(score), 0) as average_score,
				SUM(CASE WHEN score >= ? THEN 1 ELSE 0 END) as passed_count`, models.PassThreshold).
			Scan(&result).Error
		if err != nil {
			return nil, fmt.Errorf("failed to aggregate overview stats: %w", err)
		}

		allScope := r.getDB(tx).WithContext(ctx).Model(&models.QuizAttempt{})
		if filters.Since != nil {
			allScope = allScope.Where("created_at >= ?", *filters.Since)
		}
		if err := allScope.Count(&result.TotalAttempts).Error; err != nil {
			return nil, fmt.Errorf("failed to count attempts: %w", err)
		}
		result.InProgressCount = result.TotalAttempts - result.SubmittedCount
		return result, nil
	}

	// Transactional callers bypass the cache.
	if tx != nil {
		result, err := fetch()
		if err != nil {
			return nil, err
		}
		overview := result.(repositories.OverviewStats)
		return &overview, nil
	}

	cacheKey := fmt.Sprintf("overview:%s", statsCacheKey(filters))
	if err := r.cacheManager.Stats.CacheOrExecute(ctx, cacheKey, &stats, cache.StatsCacheConfig.TTL, fetch); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (r *statsRepository) GetScoreTrend(ctx context.Context, tx *gorm.DB, days int, filters repositories.StatsFilters) ([]repositories.ScoreTrendPoint, error) {
	if days <= 0 {
		days = 30
	}
	since := time.Now().AddDate(0, 0, -days)
	filters.Since = &since

	var points []repositories.ScoreTrendPoint
	err := r.submittedScope(ctx, tx, filters).
		Select(`DATE(submitted_at) as date,
			COUNT(*) as submitted_count,
			COALESCE(AVG(score), 0) as average_score`).
		Group("DATE(submitted_at)").
		Order("date ASC").
		Scan(&points).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate score trend: %w", err)
	}

	return points, nil
}

func statsCacheKey(filters repositories.StatsFilters) string {
	dept := "all"
	if filters.Department != nil {
		dept = *filters.Department
	}
	since := "all"
	if filters.Since != nil {
		since = filters.Since.Format("2006-01-02")
	}
	return fmt.Sprintf("%s:%s", dept, since)
}
