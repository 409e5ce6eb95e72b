package validator

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/compedu/quiz-service/internal/models"
)

var leaveReasons = map[string]bool{
	"tab_switch":   true,
	"window_blur":  true,
	"idle_timeout": true,
	"navigation":   true,
	"other":        true,
}

// BusinessValidator handles request struct validation plus the quiz
// business rules that need more context than struct tags carry.
type BusinessValidator struct {
	validate *validator.Validate
}

func NewBusinessValidator() *BusinessValidator {
	validate := validator.New()

	bv := &BusinessValidator{validate: validate}
	bv.registerBusinessRules()

	return bv
}

// Validate runs struct tag validation for any request type.
func (bv *BusinessValidator) Validate(s interface{}) ValidationErrors {
	if err := bv.validate.Struct(s); err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// ValidateAttemptStart checks the education-side preconditions of
// opening a new attempt. Resume of an existing unsubmitted attempt
// bypasses these rules, and the retry limit is enforced separately.
func (bv *BusinessValidator) ValidateAttemptStart(edu *models.EducationConfig) ValidationErrors {
	var errors ValidationErrors

	if !edu.Active {
		errors = append(errors, ValidationError{
			Field:   "education",
			Message: "education is not active",
			Value:   edu.ID,
			Rule:    "business_logic",
		})
	}

	if edu.DueAt != nil && time.Now().After(*edu.DueAt) {
		errors = append(errors, ValidationError{
			Field:   "due_at",
			Message: "education deadline has passed",
			Value:   edu.DueAt,
			Rule:    "business_logic",
		})
	}

	if edu.QuestionCount <= 0 {
		errors = append(errors, ValidationError{
			Field:   "question_count",
			Message: "education has no questions configured",
			Value:   edu.QuestionCount,
			Rule:    "business_logic",
		})
	}

	return errors
}

// ValidateAnswerPayload checks that every answer references a snapshot
// question and selects an existing choice.
func (bv *BusinessValidator) ValidateAnswerPayload(snapshot []models.QuestionSnapshot, answers map[string]int) ValidationErrors {
	var errors ValidationErrors

	choices := make(map[string]int, len(snapshot))
	for _, q := range snapshot {
		choices[q.QuestionID] = len(q.Choices)
	}

	for qid, idx := range answers {
		n, ok := choices[qid]
		if !ok {
			errors = append(errors, ValidationError{
				Field:   "answers",
				Message: "question does not belong to this attempt",
				Value:   qid,
				Rule:    "business_logic",
			})
			continue
		}
		if idx < 0 || idx >= n {
			errors = append(errors, ValidationError{
				Field:   "answers",
				Message: "choice index out of range",
				Value:   idx,
				Rule:    "business_logic",
			})
		}
	}

	return errors
}

func (bv *BusinessValidator) registerBusinessRules() {
	_ = bv.validate.RegisterValidation("leave_reason", func(fl validator.FieldLevel) bool {
		return leaveReasons[fl.Field().String()]
	})
}
