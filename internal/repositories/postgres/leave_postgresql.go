package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/compedu/quiz-service/internal/models"
	"github.com/compedu/quiz-service/internal/repositories"
)

type leaveRepository struct {
	db *gorm.DB
}

func NewLeavePostgreSQL(db *gorm.DB) repositories.LeaveRepository {
	return &leaveRepository{db: db}
}

func (r *leaveRepository) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *leaveRepository) Create(ctx context.Context, tx *gorm.DB, event *models.LeaveEvent) error {
	if err := r.getDB(tx).WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("failed to create leave event: %w", err)
	}
	return nil
}

func (r *leaveRepository) GetByAttempt(ctx context.Context, tx *gorm.DB, attemptID uint) ([]*models.LeaveEvent, error) {
	var events []*models.LeaveEvent
	err := r.getDB(tx).WithContext(ctx).
		Where("attempt_id = ?", attemptID).
		Order("occurred_at ASC").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list leave events: %w", err)
	}
	return events, nil
}

func (r *leaveRepository) CountByAttempt(ctx context.Context, tx *gorm.DB, attemptID uint) (int64, error) {
	var count int64
	err := r.getDB(tx).WithContext(ctx).
		Model(&models.LeaveEvent{}).
		Where("attempt_id = ?", attemptID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count leave events: %w", err)
	}
	return count, nil
}
