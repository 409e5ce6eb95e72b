package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PassThreshold is the platform-wide score required to count as passed
// in compliance reporting. Individual educations may define their own
// pass score for the learner-facing result.
const PassThreshold = 80

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "InProgress"
	AttemptSubmitted  AttemptStatus = "Submitted"
)

// QuestionSnapshot is one question frozen into an attempt at start time.
// Grading always runs against the snapshot, never against the live
// question source, so an attempt stays consistent even if the education
// content changes mid-session.
type QuestionSnapshot struct {
	QuestionID   string   `json:"question_id"`
	Order        int      `json:"order"`
	Prompt       string   `json:"prompt"`
	Choices      []string `json:"choices"`
	CorrectIndex int      `json:"correct_index"`
	Explanation  string   `json:"explanation,omitempty"`
}

// QuizAttempt is a single quiz session for one user and one education.
// The partial unique index keeps at most one unsubmitted attempt per
// (user, education) pair; concurrent starts race on it and the loser
// resumes the winner's row.
type QuizAttempt struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	EducationID uint   `json:"education_id" gorm:"not null;index;uniqueIndex:idx_quiz_attempts_active,where:submitted_at IS NULL AND deleted_at IS NULL"`
	UserID      string `json:"user_id" gorm:"size:255;not null;index;uniqueIndex:idx_quiz_attempts_active,where:submitted_at IS NULL AND deleted_at IS NULL"`
	Department  string `json:"department" gorm:"size:100;index"`
	AttemptNo   int    `json:"attempt_no" gorm:"not null;default:1"`

	// Snapshot holds []QuestionSnapshot, Answers holds map[questionID]choiceIndex.
	Snapshot datatypes.JSON `json:"-" gorm:"type:jsonb;not null"`
	Answers  datatypes.JSON `json:"-" gorm:"type:jsonb"`

	LeaveCount  int        `json:"leave_count" gorm:"default:0"`
	LastLeaveAt *time.Time `json:"last_leave_at,omitempty"`

	Score        *int       `json:"score,omitempty"`
	CorrectCount int        `json:"correct_count" gorm:"default:0"`
	WrongCount   int        `json:"wrong_count" gorm:"default:0"`
	TotalCount   int        `json:"total_count" gorm:"default:0"`
	SubmittedAt  *time.Time `json:"submitted_at,omitempty" gorm:"index"`

	// TimeLimitSeconds is copied from the education config at start so the
	// deadline survives later config edits. NULL means untimed.
	TimeLimitSeconds *int `json:"time_limit_seconds,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	LeaveEvents []LeaveEvent `json:"-" gorm:"foreignKey:AttemptID;constraint:OnDelete:CASCADE"`
}

func (QuizAttempt) TableName() string { return "quiz_attempts" }

func (a *QuizAttempt) Status() AttemptStatus {
	if a.SubmittedAt != nil {
		return AttemptSubmitted
	}
	return AttemptInProgress
}

func (a *QuizAttempt) IsSubmitted() bool { return a.SubmittedAt != nil }

// ExpiresAt returns the hard deadline, or nil for untimed attempts.
func (a *QuizAttempt) ExpiresAt() *time.Time {
	if a.TimeLimitSeconds == nil {
		return nil
	}
	t := a.CreatedAt.Add(time.Duration(*a.TimeLimitSeconds) * time.Second)
	return &t
}

func (a *QuizAttempt) QuestionSnapshots() ([]QuestionSnapshot, error) {
	var qs []QuestionSnapshot
	if len(a.Snapshot) == 0 {
		return qs, nil
	}
	if err := json.Unmarshal(a.Snapshot, &qs); err != nil {
		return nil, err
	}
	return qs, nil
}

// AnswerMap decodes the saved draft answers. A missing or empty column
// decodes to an empty map, never nil.
func (a *QuizAttempt) AnswerMap() (map[string]int, error) {
	answers := make(map[string]int)
	if len(a.Answers) == 0 {
		return answers, nil
	}
	if err := json.Unmarshal(a.Answers, &answers); err != nil {
		return nil, err
	}
	return answers, nil
}

// LeaveEvent is one audit record of the user leaving the quiz page
// (tab switch, window blur, idle timeout) during an attempt.
type LeaveEvent struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	AttemptID  uint      `json:"attempt_id" gorm:"not null;index"`
	UserID     string    `json:"user_id" gorm:"size:255;not null"`
	Reason     string    `json:"reason" gorm:"size:100"`
	AwaySecond int       `json:"away_seconds" gorm:"column:away_seconds;default:0"`
	OccurredAt time.Time `json:"occurred_at" gorm:"not null"`
	CreatedAt  time.Time `json:"created_at"`
}

func (LeaveEvent) TableName() string { return "quiz_leave_events" }
