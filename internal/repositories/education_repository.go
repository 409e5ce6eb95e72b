package repositories

import (
	"context"

	"github.com/compedu/quiz-service/internal/models"
)

// EducationRepository reads education configs from the content platform.
// The data is owned remotely, this service only consumes it.
type EducationRepository interface {
	GetConfig(ctx context.Context, educationID uint) (*models.EducationConfig, error)
	ListActive(ctx context.Context) ([]*models.EducationConfig, error)

	// EligibleCount returns how many employees of a department are
	// required to take trainings, used for participation rates. Zero
	// with nil error means the population is unknown.
	EligibleCount(ctx context.Context, department string) (int64, error)
}
