package events

import "time"

// Topics for quiz lifecycle events.
const (
	TopicAttemptStarted   = "quiz.attempt.started"
	TopicAttemptSubmitted = "quiz.attempt.submitted"
)

// AttemptStartedEvent is published when a new attempt row is created.
// Resuming an existing attempt does not re-publish.
type AttemptStartedEvent struct {
	AttemptID   uint      `json:"attempt_id"`
	EducationID uint      `json:"education_id"`
	UserID      string    `json:"user_id"`
	Department  string    `json:"department,omitempty"`
	AttemptNo   int       `json:"attempt_no"`
	StartedAt   time.Time `json:"started_at"`
}

// AttemptSubmittedEvent is published exactly once per attempt, after
// the write-once submission succeeds.
type AttemptSubmittedEvent struct {
	AttemptID   uint      `json:"attempt_id"`
	EducationID uint      `json:"education_id"`
	UserID      string    `json:"user_id"`
	Department  string    `json:"department,omitempty"`
	AttemptNo   int       `json:"attempt_no"`
	Score       int       `json:"score"`
	Passed      bool      `json:"passed"`
	SubmittedAt time.Time `json:"submitted_at"`
}
