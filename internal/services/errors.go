package services

import (
	"errors"
	"fmt"

	"github.com/compedu/quiz-service/internal/validator"
)

// Sentinel errors mapped to HTTP status codes at the handler layer.
var (
	ErrAttemptNotFound         = errors.New("attempt not found")
	ErrAttemptNotSubmitted     = errors.New("attempt has not been submitted")
	ErrAttemptAlreadySubmitted = errors.New("attempt has already been submitted")
	ErrEducationNotFound       = errors.New("education not found")
	ErrRetryExhausted          = errors.New("maximum attempts reached")
	ErrInvalidAnswer           = errors.New("invalid answer payload")
	ErrGenerationFailed        = errors.New("question generation failed")
	ErrUnauthorized            = errors.New("unauthorized")
)

// ValidationErrors re-exports the validator error shape so handlers can
// match it with errors.As against service errors.
type ValidationErrors = validator.ValidationErrors

// PermissionError reports an operation rejected for the caller's role
// or ownership.
type PermissionError struct {
	UserID   string
	Action   string
	Resource string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %s is not allowed to %s %s", e.UserID, e.Action, e.Resource)
}

// BusinessRuleError reports a domain rule violation that is neither a
// permission nor a validation problem.
type BusinessRuleError struct {
	Rule    string
	Message string
}

func (e *BusinessRuleError) Error() string {
	return fmt.Sprintf("business rule violation (%s): %s", e.Rule, e.Message)
}
