package services

import (
	"context"
	"time"

	"github.com/compedu/quiz-service/internal/models"
	"github.com/compedu/quiz-service/internal/repositories"
)

// ===== Attempt DTOs =====

// QuestionView is a snapshot question with the correct answer and
// explanation stripped, safe to return while the attempt is open.
type QuestionView struct {
	QuestionID string   `json:"question_id"`
	Order      int      `json:"order"`
	Prompt     string   `json:"prompt"`
	Choices    []string `json:"choices"`
}

type StartQuizResponse struct {
	AttemptID        uint           `json:"attempt_id"`
	EducationID      uint           `json:"education_id"`
	AttemptNo        int            `json:"attempt_no"`
	Questions        []QuestionView `json:"questions"`
	SavedAnswers     map[string]int `json:"saved_answers"`
	TimeLimitSeconds *int           `json:"time_limit_seconds,omitempty"`
	StartedAt        time.Time      `json:"started_at"`
	ExpiresAt        *time.Time     `json:"expires_at,omitempty"`
	Resumed          bool           `json:"resumed"`
}

type SaveAnswersRequest struct {
	Answers map[string]int `json:"answers" validate:"required"`
}

type SaveAnswersResponse struct {
	SavedCount int       `json:"saved_count"`
	SavedAt    time.Time `json:"saved_at"`
}

type LeaveRequest struct {
	Reason      string     `json:"reason" validate:"required,leave_reason"`
	AwaySeconds int        `json:"away_seconds" validate:"gte=0"`
	OccurredAt  *time.Time `json:"occurred_at"`
}

type LeaveResponse struct {
	LeaveCount  int       `json:"leave_count"`
	LastLeaveAt time.Time `json:"last_leave_at"`
}

type TimerResponse struct {
	AttemptID        uint       `json:"attempt_id"`
	TimeLimitSeconds *int       `json:"time_limit_seconds,omitempty"`
	StartedAt        time.Time  `json:"started_at"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
	RemainingSeconds *int       `json:"remaining_seconds,omitempty"`
	Expired          bool       `json:"expired"`
}

type SubmitRequest struct {
	// Answers replaces the saved draft. Nil keeps the autosaved answers.
	Answers map[string]int `json:"answers"`
}

type SubmitResponse struct {
	AttemptID    uint      `json:"attempt_id"`
	EducationID  uint      `json:"education_id"`
	AttemptNo    int       `json:"attempt_no"`
	Score        int       `json:"score"`
	CorrectCount int       `json:"correct_count"`
	WrongCount   int       `json:"wrong_count"`
	TotalCount   int       `json:"total_count"`
	Passed       bool      `json:"passed"`
	PassScore    *int      `json:"pass_score"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

type ResultResponse struct {
	AttemptID    uint      `json:"attempt_id"`
	EducationID  uint      `json:"education_id"`
	AttemptNo    int       `json:"attempt_no"`
	Score        int       `json:"score"`
	CorrectCount int       `json:"correct_count"`
	WrongCount   int       `json:"wrong_count"`
	TotalCount   int       `json:"total_count"`
	Passed       bool      `json:"passed"`
	PassScore    *int      `json:"pass_score"`
	LeaveCount   int       `json:"leave_count"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

// WrongAnswerView is a full review entry for one missed question,
// returned only after submission.
type WrongAnswerView struct {
	QuestionID    string   `json:"question_id"`
	Order         int      `json:"order"`
	Prompt        string   `json:"prompt"`
	Choices       []string `json:"choices"`
	SelectedIndex *int     `json:"selected_index"`
	CorrectIndex  int      `json:"correct_index"`
	Explanation   string   `json:"explanation,omitempty"`
}

type AttemptDetailResponse struct {
	AttemptID        uint                 `json:"attempt_id"`
	EducationID      uint                 `json:"education_id"`
	AttemptNo        int                  `json:"attempt_no"`
	Status           models.AttemptStatus `json:"status"`
	Questions        []QuestionView       `json:"questions"`
	SavedAnswers     map[string]int       `json:"saved_answers"`
	LeaveCount       int                  `json:"leave_count"`
	TimeLimitSeconds *int                 `json:"time_limit_seconds,omitempty"`
	StartedAt        time.Time            `json:"started_at"`
	SubmittedAt      *time.Time           `json:"submitted_at,omitempty"`
	Score            *int                 `json:"score,omitempty"`
}

type AvailableEducationItem struct {
	EducationID      uint       `json:"education_id"`
	Title            string     `json:"title"`
	Category         string     `json:"category,omitempty"`
	QuestionCount    int        `json:"question_count"`
	TimeLimitSeconds *int       `json:"time_limit_seconds,omitempty"`
	MaxAttempts      *int       `json:"max_attempts"`
	AttemptsUsed     int        `json:"attempts_used"`
	CanRetry         bool       `json:"can_retry"`
	HasActiveAttempt bool       `json:"has_active_attempt"`
	BestScore        *int       `json:"best_score"`
	Passed           bool       `json:"passed"`
	LastAttemptAt    *time.Time `json:"last_attempt_at"`
}

type MyAttemptItem struct {
	AttemptID   uint      `json:"attempt_id"`
	EducationID uint      `json:"education_id"`
	AttemptNo   int       `json:"attempt_no"`
	Score       int       `json:"score"`
	Passed      bool      `json:"passed"`
	BestScore   bool      `json:"is_best_score"`
	LeaveCount  int       `json:"leave_count"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type RetryInfoResponse struct {
	EducationID   uint       `json:"education_id"`
	AttemptsUsed  int        `json:"attempts_used"`
	MaxAttempts   *int       `json:"max_attempts"`
	CanRetry      bool       `json:"can_retry"`
	BestScore     *int       `json:"best_score"`
	Passed        bool       `json:"passed"`
	LastAttemptAt *time.Time `json:"last_attempt_at"`
}

// AdminAttemptItem is the moderator view including audit counters.
type AdminAttemptItem struct {
	AttemptID   uint                 `json:"attempt_id"`
	EducationID uint                 `json:"education_id"`
	UserID      string               `json:"user_id"`
	Department  string               `json:"department,omitempty"`
	AttemptNo   int                  `json:"attempt_no"`
	Status      models.AttemptStatus `json:"status"`
	Score       *int                 `json:"score,omitempty"`
	LeaveCount  int                  `json:"leave_count"`
	CreatedAt   time.Time            `json:"created_at"`
	SubmittedAt *time.Time           `json:"submitted_at,omitempty"`
}

// ===== Stats DTOs =====

type DepartmentStatsItem struct {
	Department        string  `json:"department"`
	SubmittedCount    int64   `json:"submitted_count"`
	DistinctUsers     int64   `json:"distinct_users"`
	AverageScore      float64 `json:"average_score"`
	PassRate          float64 `json:"pass_rate"`
	EligibleCount     int64   `json:"eligible_count"`
	ParticipationRate float64 `json:"participation_rate"`
}

type DepartmentStatsResponse struct {
	PeriodDays  int                   `json:"period_days"`
	Departments []DepartmentStatsItem `json:"departments"`
}

type QuizDashboardResponse struct {
	PeriodDays      int                            `json:"period_days"`
	TotalAttempts   int64                          `json:"total_attempts"`
	SubmittedCount  int64                          `json:"submitted_count"`
	InProgressCount int64                          `json:"in_progress_count"`
	DistinctUsers   int64                          `json:"distinct_users"`
	AverageScore    float64                        `json:"average_score"`
	PassRate        float64                        `json:"pass_rate"`
	Departments     []DepartmentStatsItem          `json:"departments"`
	ScoreTrend      []repositories.ScoreTrendPoint `json:"score_trend"`
}

type EducationStatsResponse struct {
	EducationID    uint    `json:"education_id"`
	Title          string  `json:"title"`
	TotalAttempts  int64   `json:"total_attempts"`
	SubmittedCount int64   `json:"submitted_count"`
	DistinctUsers  int64   `json:"distinct_users"`
	AverageScore   float64 `json:"average_score"`
	PassRate       float64 `json:"pass_rate"`
	HighestScore   int     `json:"highest_score"`
	LowestScore    int     `json:"lowest_score"`
}

// ===== Service interfaces =====

type AttemptService interface {
	Start(ctx context.Context, educationID uint, user models.AuthClaims) (*StartQuizResponse, error)
	Save(ctx context.Context, attemptID uint, userID string, req *SaveAnswersRequest) (*SaveAnswersResponse, error)
	Leave(ctx context.Context, attemptID uint, userID string, req *LeaveRequest) (*LeaveResponse, error)
	Timer(ctx context.Context, attemptID uint, userID string) (*TimerResponse, error)
	Submit(ctx context.Context, attemptID uint, user models.AuthClaims, req *SubmitRequest) (*SubmitResponse, error)
	Result(ctx context.Context, attemptID uint, userID string) (*ResultResponse, error)
	Wrongs(ctx context.Context, attemptID uint, userID string) ([]WrongAnswerView, error)
	GetDetail(ctx context.Context, attemptID uint, userID string) (*AttemptDetailResponse, error)

	AvailableEducations(ctx context.Context, user models.AuthClaims) ([]AvailableEducationItem, error)
	MyAttempts(ctx context.Context, userID string, filters repositories.AttemptFilters) ([]MyAttemptItem, int64, error)
	RetryInfo(ctx context.Context, educationID uint, userID string) (*RetryInfoResponse, error)

	ListAttempts(ctx context.Context, filters repositories.AttemptFilters, caller models.AuthClaims) ([]AdminAttemptItem, int64, error)
	DeleteAttempt(ctx context.Context, attemptID uint, caller models.AuthClaims) error
}

// GradeOutcome is the deterministic grading result for one answer set.
type GradeOutcome struct {
	Score        int
	CorrectCount int
	WrongCount   int
	TotalCount   int
}

type GradingService interface {
	Grade(snapshot []models.QuestionSnapshot, answers map[string]int) (*GradeOutcome, error)
	ValidateAnswers(snapshot []models.QuestionSnapshot, answers map[string]int) error
}

type StatsService interface {
	DepartmentStats(ctx context.Context, periodDays int, department *string, caller models.AuthClaims) (*DepartmentStatsResponse, error)
	QuizDashboard(ctx context.Context, periodDays int, caller models.AuthClaims) (*QuizDashboardResponse, error)
	EducationStats(ctx context.Context, educationID uint, periodDays int, caller models.AuthClaims) (*EducationStatsResponse, error)
	ExportDepartmentStats(ctx context.Context, periodDays int, caller models.AuthClaims) ([]byte, error)
}
