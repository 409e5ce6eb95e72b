package repositories

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/compedu/quiz-service/internal/models"
)

// AttemptFilters narrows attempt list queries.
type AttemptFilters struct {
	UserID      *string
	EducationID *uint
	Department  *string
	Status      *models.AttemptStatus
	DateFrom    *time.Time
	DateTo      *time.Time

	Limit  int
	Offset int

	SortBy    string // created_at, submitted_at, score
	SortOrder string // asc, desc
}

// StatsFilters narrows aggregate queries.
type StatsFilters struct {
	Department  *string
	EducationID *uint
	Since       *time.Time
}

// Repository errors shared across implementations.
var (
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateActiveAttempt reports that another unsubmitted attempt
	// already exists for the same user and education. Callers treat the
	// existing row as the winner.
	ErrDuplicateActiveAttempt = errors.New("active attempt already exists")
)

// IsNotFoundError reports whether err means the record does not exist.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, ErrNotFound)
}

// IsDuplicateError reports whether err is a unique constraint violation.
func IsDuplicateError(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, ErrDuplicateActiveAttempt)
}
