package validator

import (
	"testing"
	"time"

	"github.com/compedu/quiz-service/internal/models"
)

func intPtr(v int) *int { return &v }

type leavePayload struct {
	Reason      string `validate:"required,leave_reason"`
	AwaySeconds int    `validate:"gte=0"`
}

func TestBusinessValidator_LeaveReason(t *testing.T) {
	bv := NewBusinessValidator()

	tests := []struct {
		name    string
		payload leavePayload
		wantErr bool
	}{
		{name: "tab switch", payload: leavePayload{Reason: "tab_switch"}},
		{name: "window blur", payload: leavePayload{Reason: "window_blur"}},
		{name: "idle timeout", payload: leavePayload{Reason: "idle_timeout"}},
		{name: "other", payload: leavePayload{Reason: "other", AwaySeconds: 10}},
		{name: "unknown reason", payload: leavePayload{Reason: "lunch"}, wantErr: true},
		{name: "missing reason", payload: leavePayload{}, wantErr: true},
		{name: "negative away seconds", payload: leavePayload{Reason: "other", AwaySeconds: -1}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := bv.Validate(tt.payload)
			if errs.HasErrors() != tt.wantErr {
				t.Errorf("HasErrors = %v, want %v (%v)", errs.HasErrors(), tt.wantErr, errs)
			}
		})
	}
}

func TestBusinessValidator_ValidateAttemptStart(t *testing.T) {
	bv := NewBusinessValidator()
	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	base := models.EducationConfig{
		ID:            1,
		QuestionCount: 5,
		Active:        true,
	}

	tests := []struct {
		name    string
		mutate  func(*models.EducationConfig)
		wantErr bool
	}{
		{name: "active education", mutate: func(e *models.EducationConfig) {}},
		{name: "inactive education", mutate: func(e *models.EducationConfig) { e.Active = false }, wantErr: true},
		{name: "past deadline", mutate: func(e *models.EducationConfig) { e.DueAt = &past }, wantErr: true},
		{name: "future deadline", mutate: func(e *models.EducationConfig) { e.DueAt = &future }},
		{name: "no questions", mutate: func(e *models.EducationConfig) { e.QuestionCount = 0 }, wantErr: true},
		{name: "exhausted retries are not an education rule", mutate: func(e *models.EducationConfig) { e.MaxAttempts = intPtr(1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			edu := base
			tt.mutate(&edu)

			errs := bv.ValidateAttemptStart(&edu)
			if errs.HasErrors() != tt.wantErr {
				t.Errorf("HasErrors = %v, want %v (%v)", errs.HasErrors(), tt.wantErr, errs)
			}
		})
	}
}

func TestBusinessValidator_ValidateAnswerPayload(t *testing.T) {
	bv := NewBusinessValidator()

	snapshot := []models.QuestionSnapshot{
		{QuestionID: "q1", Choices: []string{"A", "B", "C"}},
		{QuestionID: "q2", Choices: []string{"A", "B"}},
	}

	tests := []struct {
		name    string
		answers map[string]int
		wantErr bool
	}{
		{name: "valid", answers: map[string]int{"q1": 2, "q2": 0}},
		{name: "empty", answers: map[string]int{}},
		{name: "unknown question", answers: map[string]int{"q9": 0}, wantErr: true},
		{name: "index too large", answers: map[string]int{"q2": 2}, wantErr: true},
		{name: "negative index", answers: map[string]int{"q1": -1}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := bv.ValidateAnswerPayload(snapshot, tt.answers)
			if errs.HasErrors() != tt.wantErr {
				t.Errorf("HasErrors = %v, want %v (%v)", errs.HasErrors(), tt.wantErr, errs)
			}
		})
	}
}
