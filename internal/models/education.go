package models

import "time"

// EducationConfig mirrors the education record served by the content
// platform. Quiz attempts only read it; ownership of the data stays with
// the education service.
type EducationConfig struct {
	ID               uint       `json:"id"`
	Title            string     `json:"title"`
	Category         string     `json:"category,omitempty"`
	Description      string     `json:"description,omitempty"`
	QuestionCount    int        `json:"question_count"`
	TimeLimitSeconds *int       `json:"time_limit_seconds,omitempty"`
	MaxAttempts      *int       `json:"max_attempts,omitempty"`
	PassScore        *int       `json:"pass_score,omitempty"`
	Active           bool       `json:"active"`
	DueAt            *time.Time `json:"due_at,omitempty"`
}

// IsTimed reports whether attempts of this education carry a deadline.
func (e *EducationConfig) IsTimed() bool {
	return e.TimeLimitSeconds != nil && *e.TimeLimitSeconds > 0
}
