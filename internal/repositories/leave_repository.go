package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/compedu/quiz-service/internal/models"
)

// LeaveRepository stores the page-leave audit trail.
type LeaveRepository interface {
	Create(ctx context.Context, tx *gorm.DB, event *models.LeaveEvent) error
	GetByAttempt(ctx context.Context, tx *gorm.DB, attemptID uint) ([]*models.LeaveEvent, error)
	CountByAttempt(ctx context.Context, tx *gorm.DB, attemptID uint) (int64, error)
}
