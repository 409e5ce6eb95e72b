package repositories

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/compedu/quiz-service/internal/models"
)

// SubmissionOutcome carries the grading result written on finalize.
type SubmissionOutcome struct {
	Score        int
	CorrectCount int
	WrongCount   int
	TotalCount   int
	Answers      datatypes.JSON
	Department   string
	SubmittedAt  time.Time
}

// AttemptRepository persists quiz attempts. Methods accept an optional
// transaction handle; nil falls back to the repository's own connection.
type AttemptRepository interface {
	// Create inserts a new attempt. Returns ErrDuplicateActiveAttempt
	// when the partial unique index rejects a second unsubmitted attempt
	// for the same user and education.
	Create(ctx context.Context, tx *gorm.DB, attempt *models.QuizAttempt) error

	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.QuizAttempt, error)

	// GetOwned fetches an attempt only if it belongs to userID. A foreign
	// attempt is indistinguishable from a missing one.
	GetOwned(ctx context.Context, tx *gorm.DB, id uint, userID string) (*models.QuizAttempt, error)

	GetUnsubmitted(ctx context.Context, tx *gorm.DB, userID string, educationID uint) (*models.QuizAttempt, error)

	// NextAttemptNo counts past attempts including soft-deleted ones so
	// attempt numbers are never reused.
	NextAttemptNo(ctx context.Context, tx *gorm.DB, userID string, educationID uint) (int, error)

	UpdateAnswers(ctx context.Context, tx *gorm.DB, id uint, answers datatypes.JSON) error

	RecordLeave(ctx context.Context, tx *gorm.DB, id uint, lastLeaveAt time.Time) error

	// FinalizeSubmission writes the outcome with a conditional update
	// guarded by submitted_at IS NULL. Returns false when the guard
	// rejected the write, meaning a concurrent submit already won.
	FinalizeSubmission(ctx context.Context, tx *gorm.DB, id uint, outcome SubmissionOutcome) (bool, error)

	CountSubmitted(ctx context.Context, tx *gorm.DB, userID string, educationID uint) (int, error)

	GetSubmittedByUser(ctx context.Context, tx *gorm.DB, userID string, filters AttemptFilters) ([]*models.QuizAttempt, int64, error)

	GetSubmittedByUserAndEducation(ctx context.Context, tx *gorm.DB, userID string, educationID uint) ([]*models.QuizAttempt, error)

	// BestAttemptIDs returns, per education, the attempt id with the
	// highest score. Ties resolve to the most recently created attempt.
	BestAttemptIDs(ctx context.Context, tx *gorm.DB, userID string) (map[uint]uint, error)

	List(ctx context.Context, tx *gorm.DB, filters AttemptFilters) ([]*models.QuizAttempt, int64, error)

	SoftDelete(ctx context.Context, tx *gorm.DB, id uint) error
}
