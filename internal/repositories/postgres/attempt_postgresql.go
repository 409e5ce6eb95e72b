package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/compedu/quiz-service/internal/cache"
	"github.com/compedu/quiz-service/internal/models"
	"github.com/compedu/quiz-service/internal/repositories"
)

type attemptRepository struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewAttemptPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.AttemptRepository {
	return &attemptRepository{
		db:           db,
		cacheManager: cacheManager,
	}
}

func (r *attemptRepository) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *attemptRepository) Create(ctx context.Context, tx *gorm.DB, attempt *models.QuizAttempt) error {
	db := r.getDB(tx)

	if err := db.WithContext(ctx).Create(attempt).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return repositories.ErrDuplicateActiveAttempt
		}
		return fmt.Errorf("failed to create attempt: %w", err)
	}

	cache.InvalidateAttemptCache(ctx, r.cacheManager, attempt.ID)
	return nil
}

func (r *attemptRepository) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.QuizAttempt, error) {
	// Transactional reads skip the cache, they need current row state.
	if tx != nil {
		return r.fetchByID(ctx, tx, id)
	}

	var attempt models.QuizAttempt
	cacheKey := fmt.Sprintf("id:%d", id)

	err := r.cacheManager.Attempt.CacheOrExecute(ctx, cacheKey, &attempt, cache.AttemptCacheConfig.TTL, func() (interface{}, error) {
		return r.fetchByID(ctx, r.db, id)
	})
	if err != nil {
		if repositories.IsNotFoundError(err) || errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, err
	}

	return &attempt, nil
}

func (r *attemptRepository) fetchByID(ctx context.Context, db *gorm.DB, id uint) (*models.QuizAttempt, error) {
	var attempt models.QuizAttempt
	if err := db.WithContext(ctx).First(&attempt, id).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *attemptRepository) GetOwned(ctx context.Context, tx *gorm.DB, id uint, userID string) (*models.QuizAttempt, error) {
	var attempt models.QuizAttempt
	err := r.getDB(tx).WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&attempt).Error
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *attemptRepository) GetUnsubmitted(ctx context.Context, tx *gorm.DB, userID string, educationID uint) (*models.QuizAttempt, error) {
	var attempt models.QuizAttempt
	err := r.getDB(tx).WithContext(ctx).
		Where("user_id = ? AND education_id = ? AND submitted_at IS NULL", userID, educationID).
		First(&attempt).Error
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *attemptRepository) NextAttemptNo(ctx context.Context, tx *gorm.DB, userID string, educationID uint) (int, error) {
	var next int
	err := r.getDB(tx).WithContext(ctx).
		Model(&models.QuizAttempt{}).
		Unscoped().
		Where("user_id = ? AND education_id = ?", userID, educationID).
		Select("COALESCE(MAX(attempt_no), 0) + 1").
		Scan(&next).Error
	if err != nil {
		return 0, fmt.Errorf("failed to compute next attempt number: %w", err)
	}
	return next, nil
}

func (r *attemptRepository) UpdateAnswers(ctx context.Context, tx *gorm.DB, id uint, answers datatypes.JSON) error {
	db := r.getDB(tx)

	result := db.WithContext(ctx).
		Model(&models.QuizAttempt{}).
		Where("id = ? AND submitted_at IS NULL", id).
		Update("answers", answers)
	if result.Error != nil {
		return fmt.Errorf("failed to update answers: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	cache.SafeDelete(ctx, r.cacheManager.Attempt, fmt.Sprintf("id:%d", id))
	return nil
}

func (r *attemptRepository) RecordLeave(ctx context.Context, tx *gorm.DB, id uint, lastLeaveAt time.Time) error {
	db := r.getDB(tx)

	result := db.WithContext(ctx).
		Model(&models.QuizAttempt{}).
		Where("id = ? AND submitted_at IS NULL", id).
		Updates(map[string]interface{}{
			"leave_count":   gorm.Expr("leave_count + 1"),
			"last_leave_at": lastLeaveAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to record leave: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	cache.SafeDelete(ctx, r.cacheManager.Attempt, fmt.Sprintf("id:%d", id))
	return nil
}

// FinalizeSubmission is the write-once submit. The submitted_at IS NULL
// guard makes concurrent submits race safely, exactly one wins.
func (r *attemptRepository) FinalizeSubmission(ctx context.Context, tx *gorm.DB, id uint, outcome repositories.SubmissionOutcome) (bool, error) {
	db := r.getDB(tx)

	result := db.WithContext(ctx).
		Model(&models.QuizAttempt{}).
		Where("id = ? AND submitted_at IS NULL", id).
		Updates(map[string]interface{}{
			"score":         outcome.Score,
			"correct_count": outcome.CorrectCount,
			"wrong_count":   outcome.WrongCount,
			"total_count":   outcome.TotalCount,
			"answers":       outcome.Answers,
			"department":    outcome.Department,
			"submitted_at":  outcome.SubmittedAt,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to finalize submission: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return false, nil
	}

	cache.SafeDelete(ctx, r.cacheManager.Attempt, fmt.Sprintf("id:%d", id))
	cache.InvalidateStatsCache(ctx, r.cacheManager, outcome.Department)
	return true, nil
}

func (r *attemptRepository) CountSubmitted(ctx context.Context, tx *gorm.DB, userID string, educationID uint) (int, error) {
	var count int64
	err := r.getDB(tx).WithContext(ctx).
		Model(&models.QuizAttempt{}).
		Where("user_id = ? AND education_id = ? AND submitted_at IS NOT NULL", userID, educationID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count submitted attempts: %w", err)
	}
	return int(count), nil
}

func (r *attemptRepository) GetSubmittedByUser(ctx context.Context, tx *gorm.DB, userID string, filters repositories.AttemptFilters) ([]*models.QuizAttempt, int64, error) {
	db := r.getDB(tx).WithContext(ctx).
		Model(&models.QuizAttempt{}).
		Where("user_id = ? AND submitted_at IS NOT NULL", userID)

	db = applyAttemptFilters(db, filters)

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count attempts: %w", err)
	}

	var attempts []*models.QuizAttempt
	err := applySortAndPage(db, filters, "submitted_at DESC").Find(&attempts).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list attempts: %w", err)
	}

	return attempts, total, nil
}

func (r *attemptRepository) GetSubmittedByUserAndEducation(ctx context.Context, tx *gorm.DB, userID string, educationID uint) ([]*models.QuizAttempt, error) {
	var attempts []*models.QuizAttempt
	err := r.getDB(tx).WithContext(ctx).
		Where("user_id = ? AND education_id = ? AND submitted_at IS NOT NULL", userID, educationID).
		Order("created_at DESC").
		Find(&attempts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	return attempts, nil
}

func (r *attemptRepository) BestAttemptIDs(ctx context.Context, tx *gorm.DB, userID string) (map[uint]uint, error) {
	type bestRow struct {
		EducationID uint
		ID          uint
	}

	var rows []bestRow
	err := r.getDB(tx).WithContext(ctx).
		Model(&models.QuizAttempt{}).
		Select("DISTINCT ON (education_id) education_id, id").
		Where("user_id = ? AND submitted_at IS NOT NULL", userID).
		Order("education_id, score DESC, created_at DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to resolve best attempts: %w", err)
	}

	best := make(map[uint]uint, len(rows))
	for _, row := range rows {
		best[row.EducationID] = row.ID
	}
	return best, nil
}

func (r *attemptRepository) List(ctx context.Context, tx *gorm.DB, filters repositories.AttemptFilters) ([]*models.QuizAttempt, int64, error) {
	db := r.getDB(tx).WithContext(ctx).Model(&models.QuizAttempt{})
	db = applyAttemptFilters(db, filters)

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count attempts: %w", err)
	}

	var attempts []*models.QuizAttempt
	err := applySortAndPage(db, filters, "created_at DESC").Find(&attempts).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list attempts: %w", err)
	}

	return attempts, total, nil
}

func (r *attemptRepository) SoftDelete(ctx context.Context, tx *gorm.DB, id uint) error {
	db := r.getDB(tx)

	result := db.WithContext(ctx).Delete(&models.QuizAttempt{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete attempt: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	cache.SafeDelete(ctx, r.cacheManager.Attempt, fmt.Sprintf("id:%d", id))
	cache.SafeInvalidatePattern(ctx, r.cacheManager.Stats, "*")
	return nil
}
