package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/compedu/quiz-service/internal/events"
	"github.com/compedu/quiz-service/internal/generation"
	"github.com/compedu/quiz-service/internal/models"
	"github.com/compedu/quiz-service/internal/repositories"
	"github.com/compedu/quiz-service/internal/utils"
	"github.com/compedu/quiz-service/internal/validator"
)

type attemptService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    utils.Logger
	validator *validator.BusinessValidator
	grading   GradingService
	generator generation.QuestionGenerator
	publisher events.Publisher
}

func NewAttemptService(
	repo repositories.Repository,
	db *gorm.DB,
	logger utils.Logger,
	v *validator.BusinessValidator,
	grading GradingService,
	generator generation.QuestionGenerator,
	publisher events.Publisher,
) AttemptService {
	return &attemptService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: v,
		grading:   grading,
		generator: generator,
		publisher: publisher,
	}
}

// Start opens a quiz session. Idempotent per user and education: an
// existing unsubmitted attempt is resumed instead of creating a second
// one, and concurrent starts collapse onto the winner's row through the
// partial unique index.
func (s *attemptService) Start(ctx context.Context, educationID uint, user models.AuthClaims) (*StartQuizResponse, error) {
	// Resume path first, it bypasses retry and deadline checks.
	if existing, err := s.repo.Attempt().GetUnsubmitted(ctx, nil, user.UserID, educationID); err == nil {
		return s.buildStartResponse(existing, true)
	} else if !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to check active attempt: %w", err)
	}

	edu, err := s.repo.Education().GetConfig(ctx, educationID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrEducationNotFound
		}
		return nil, fmt.Errorf("failed to load education config: %w", err)
	}

	submittedCount, err := s.repo.Attempt().CountSubmitted(ctx, nil, user.UserID, educationID)
	if err != nil {
		return nil, fmt.Errorf("failed to count attempts: %w", err)
	}

	if edu.MaxAttempts != nil && submittedCount >= *edu.MaxAttempts {
		return nil, ErrRetryExhausted
	}
	if verrs := s.validator.ValidateAttemptStart(edu); verrs.HasErrors() {
		return nil, verrs
	}

	// Generation runs before any insert so a generator failure never
	// leaves an attempt without questions.
	snapshot, err := s.generator.Generate(ctx, edu)
	if err != nil {
		s.logger.Error("Question generation failed", "education_id", educationID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	snapshotJSON, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}

	attempt := &models.QuizAttempt{
		EducationID: educationID,
		UserID:      user.UserID,
		Department:  user.Department,
		Snapshot:    datatypes.JSON(snapshotJSON),
		Answers:     datatypes.JSON([]byte("{}")),
		TotalCount:  len(snapshot),
	}
	if edu.IsTimed() {
		limit := *edu.TimeLimitSeconds
		attempt.TimeLimitSeconds = &limit
	}

	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		attemptNo, err := txRepo.Attempt().NextAttemptNo(ctx, nil, user.UserID, educationID)
		if err != nil {
			return err
		}
		attempt.AttemptNo = attemptNo
		return txRepo.Attempt().Create(ctx, nil, attempt)
	})
	if err != nil {
		// Lost the race against a concurrent start, return the winner.
		if repositories.IsDuplicateError(err) {
			winner, ferr := s.repo.Attempt().GetUnsubmitted(ctx, nil, user.UserID, educationID)
			if ferr != nil {
				return nil, fmt.Errorf("failed to load concurrent attempt: %w", ferr)
			}
			return s.buildStartResponse(winner, true)
		}
		return nil, fmt.Errorf("failed to create attempt: %w", err)
	}

	s.publishEvent(ctx, events.TopicAttemptStarted, events.AttemptStartedEvent{
		AttemptID:   attempt.ID,
		EducationID: attempt.EducationID,
		UserID:      attempt.UserID,
		Department:  attempt.Department,
		AttemptNo:   attempt.AttemptNo,
		StartedAt:   attempt.CreatedAt,
	})

	s.logger.Info("Attempt started",
		"attempt_id", attempt.ID,
		"education_id", educationID,
		"user_id", user.UserID,
		"attempt_no", attempt.AttemptNo)

	return s.buildStartResponse(attempt, false)
}

// Save overwrites the answer draft. Clients send the full answer set on
// every autosave, so the stored draft is replaced, not merged.
func (s *attemptService) Save(ctx context.Context, attemptID uint, userID string, req *SaveAnswersRequest) (*SaveAnswersResponse, error) {
	if verrs := s.validator.Validate(req); verrs.HasErrors() {
		return nil, verrs
	}

	attempt, err := s.getOwnedAttempt(ctx, attemptID, userID)
	if err != nil {
		return nil, err
	}
	if attempt.IsSubmitted() {
		return nil, ErrAttemptAlreadySubmitted
	}

	snapshot, err := attempt.QuestionSnapshots()
	if err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if verrs := s.validator.ValidateAnswerPayload(snapshot, req.Answers); verrs.HasErrors() {
		return nil, verrs
	}

	answersJSON, err := json.Marshal(req.Answers)
	if err != nil {
		return nil, fmt.Errorf("failed to encode answers: %w", err)
	}

	if err := s.repo.Attempt().UpdateAnswers(ctx, nil, attemptID, datatypes.JSON(answersJSON)); err != nil {
		if repositories.IsNotFoundError(err) {
			// Guard rejected the write, the attempt was submitted meanwhile.
			return nil, ErrAttemptAlreadySubmitted
		}
		return nil, fmt.Errorf("failed to save answers: %w", err)
	}

	return &SaveAnswersResponse{
		SavedCount: len(req.Answers),
		SavedAt:    time.Now(),
	}, nil
}

// Leave records one page-leave audit event and bumps the counter on the
// attempt row.
func (s *attemptService) Leave(ctx context.Context, attemptID uint, userID string, req *LeaveRequest) (*LeaveResponse, error) {
	if verrs := s.validator.Validate(req); verrs.HasErrors() {
		return nil, verrs
	}

	attempt, err := s.getOwnedAttempt(ctx, attemptID, userID)
	if err != nil {
		return nil, err
	}
	if attempt.IsSubmitted() {
		return nil, ErrAttemptAlreadySubmitted
	}

	occurredAt := time.Now()
	if req.OccurredAt != nil {
		occurredAt = *req.OccurredAt
	}

	var leaveCount int
	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		if err := txRepo.Attempt().RecordLeave(ctx, nil, attemptID, occurredAt); err != nil {
			return err
		}
		if err := txRepo.Leave().Create(ctx, nil, &models.LeaveEvent{
			AttemptID:  attemptID,
			UserID:     userID,
			Reason:     req.Reason,
			AwaySecond: req.AwaySeconds,
			OccurredAt: occurredAt,
		}); err != nil {
			return err
		}

		count, err := txRepo.Leave().CountByAttempt(ctx, nil, attemptID)
		if err != nil {
			return err
		}
		leaveCount = int(count)
		return nil
	})
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptAlreadySubmitted
		}
		return nil, fmt.Errorf("failed to record leave: %w", err)
	}

	s.logger.Info("Leave recorded",
		"attempt_id", attemptID,
		"user_id", userID,
		"reason", req.Reason,
		"leave_count", leaveCount)

	return &LeaveResponse{
		LeaveCount:  leaveCount,
		LastLeaveAt: occurredAt,
	}, nil
}

// Timer reports the server-side deadline. Expiry is computed from the
// stored start time on every call, no background timers exist.
func (s *attemptService) Timer(ctx context.Context, attemptID uint, userID string) (*TimerResponse, error) {
	attempt, err := s.getOwnedAttempt(ctx, attemptID, userID)
	if err != nil {
		return nil, err
	}

	timer := computeTimer(attempt, time.Now())
	return &timer, nil
}

// Submit grades the attempt and finalizes it exactly once. Late submits
// after the deadline are accepted and graded normally, the timer
// endpoint exists for client-side enforcement.
func (s *attemptService) Submit(ctx context.Context, attemptID uint, user models.AuthClaims, req *SubmitRequest) (*SubmitResponse, error) {
	attempt, err := s.getOwnedAttempt(ctx, attemptID, user.UserID)
	if err != nil {
		return nil, err
	}
	if attempt.IsSubmitted() {
		return nil, ErrAttemptAlreadySubmitted
	}

	snapshot, err := attempt.QuestionSnapshots()
	if err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}

	answers := req.Answers
	if answers == nil {
		// Fall back to the autosaved draft.
		answers, err = attempt.AnswerMap()
		if err != nil {
			return nil, fmt.Errorf("failed to decode saved answers: %w", err)
		}
	}

	outcome, err := s.grading.Grade(snapshot, answers)
	if err != nil {
		return nil, err
	}

	answersJSON, err := json.Marshal(answers)
	if err != nil {
		return nil, fmt.Errorf("failed to encode answers: %w", err)
	}

	department := user.Department
	if department == "" {
		department = attempt.Department
	}

	submittedAt := time.Now()
	won, err := s.repo.Attempt().FinalizeSubmission(ctx, nil, attemptID, repositories.SubmissionOutcome{
		Score:        outcome.Score,
		CorrectCount: outcome.CorrectCount,
		WrongCount:   outcome.WrongCount,
		TotalCount:   outcome.TotalCount,
		Answers:      datatypes.JSON(answersJSON),
		Department:   department,
		SubmittedAt:  submittedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to finalize submission: %w", err)
	}
	if !won {
		return nil, ErrAttemptAlreadySubmitted
	}

	passScore, passed := s.resolvePass(ctx, attempt.EducationID, outcome.Score)

	s.publishEvent(ctx, events.TopicAttemptSubmitted, events.AttemptSubmittedEvent{
		AttemptID:   attempt.ID,
		EducationID: attempt.EducationID,
		UserID:      attempt.UserID,
		Department:  department,
		AttemptNo:   attempt.AttemptNo,
		Score:       outcome.Score,
		Passed:      passed,
		SubmittedAt: submittedAt,
	})

	s.logger.Info("Attempt submitted",
		"attempt_id", attempt.ID,
		"user_id", user.UserID,
		"score", outcome.Score,
		"passed", passed)

	return &SubmitResponse{
		AttemptID:    attempt.ID,
		EducationID:  attempt.EducationID,
		AttemptNo:    attempt.AttemptNo,
		Score:        outcome.Score,
		CorrectCount: outcome.CorrectCount,
		WrongCount:   outcome.WrongCount,
		TotalCount:   outcome.TotalCount,
		Passed:       passed,
		PassScore:    passScore,
		SubmittedAt:  submittedAt,
	}, nil
}

// Result returns the graded outcome. Unsubmitted attempts have no
// result yet and report not found.
func (s *attemptService) Result(ctx context.Context, attemptID uint, userID string) (*ResultResponse, error) {
	attempt, err := s.getOwnedAttempt(ctx, attemptID, userID)
	if err != nil {
		return nil, err
	}
	if !attempt.IsSubmitted() {
		return nil, ErrAttemptNotSubmitted
	}

	score := 0
	if attempt.Score != nil {
		score = *attempt.Score
	}
	passScore, passed := s.resolvePass(ctx, attempt.EducationID, score)

	return &ResultResponse{
		AttemptID:    attempt.ID,
		EducationID:  attempt.EducationID,
		AttemptNo:    attempt.AttemptNo,
		Score:        score,
		CorrectCount: attempt.CorrectCount,
		WrongCount:   attempt.WrongCount,
		TotalCount:   attempt.TotalCount,
		Passed:       passed,
		PassScore:    passScore,
		LeaveCount:   attempt.LeaveCount,
		SubmittedAt:  *attempt.SubmittedAt,
	}, nil
}

// Wrongs returns the review list for missed questions, including the
// correct answers. Only available after submission.
func (s *attemptService) Wrongs(ctx context.Context, attemptID uint, userID string) ([]WrongAnswerView, error) {
	attempt, err := s.getOwnedAttempt(ctx, attemptID, userID)
	if err != nil {
		return nil, err
	}
	if !attempt.IsSubmitted() {
		return nil, ErrAttemptNotSubmitted
	}

	snapshot, err := attempt.QuestionSnapshots()
	if err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	answers, err := attempt.AnswerMap()
	if err != nil {
		return nil, fmt.Errorf("failed to decode answers: %w", err)
	}

	wrongs := make([]WrongAnswerView, 0)
	for _, q := range snapshot {
		idx, answered := answers[q.QuestionID]
		if answered && idx == q.CorrectIndex {
			continue
		}

		view := WrongAnswerView{
			QuestionID:   q.QuestionID,
			Order:        q.Order,
			Prompt:       q.Prompt,
			Choices:      q.Choices,
			CorrectIndex: q.CorrectIndex,
			Explanation:  q.Explanation,
		}
		if answered {
			selected := idx
			view.SelectedIndex = &selected
		}
		wrongs = append(wrongs, view)
	}

	return wrongs, nil
}

func (s *attemptService) GetDetail(ctx context.Context, attemptID uint, userID string) (*AttemptDetailResponse, error) {
	attempt, err := s.getOwnedAttempt(ctx, attemptID, userID)
	if err != nil {
		return nil, err
	}

	snapshot, err := attempt.QuestionSnapshots()
	if err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	answers, err := attempt.AnswerMap()
	if err != nil {
		return nil, fmt.Errorf("failed to decode answers: %w", err)
	}

	return &AttemptDetailResponse{
		AttemptID:        attempt.ID,
		EducationID:      attempt.EducationID,
		AttemptNo:        attempt.AttemptNo,
		Status:           attempt.Status(),
		Questions:        sanitizeQuestions(snapshot),
		SavedAnswers:     answers,
		LeaveCount:       attempt.LeaveCount,
		TimeLimitSeconds: attempt.TimeLimitSeconds,
		StartedAt:        attempt.CreatedAt,
		SubmittedAt:      attempt.SubmittedAt,
		Score:            attempt.Score,
	}, nil
}

// AvailableEducations lists active trainings with this user's attempt
// standing for each.
func (s *attemptService) AvailableEducations(ctx context.Context, user models.AuthClaims) ([]AvailableEducationItem, error) {
	educations, err := s.repo.Education().ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list educations: %w", err)
	}

	items := make([]AvailableEducationItem, 0, len(educations))
	for _, edu := range educations {
		item, err := s.buildEducationItem(ctx, edu, user.UserID)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}

	return items, nil
}

func (s *attemptService) MyAttempts(ctx context.Context, userID string, filters repositories.AttemptFilters) ([]MyAttemptItem, int64, error) {
	attempts, total, err := s.repo.Attempt().GetSubmittedByUser(ctx, nil, userID, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list attempts: %w", err)
	}

	bestIDs, err := s.repo.Attempt().BestAttemptIDs(ctx, nil, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to resolve best attempts: %w", err)
	}

	items := make([]MyAttemptItem, 0, len(attempts))
	for _, attempt := range attempts {
		score := 0
		if attempt.Score != nil {
			score = *attempt.Score
		}
		_, passed := s.resolvePass(ctx, attempt.EducationID, score)

		items = append(items, MyAttemptItem{
			AttemptID:   attempt.ID,
			EducationID: attempt.EducationID,
			AttemptNo:   attempt.AttemptNo,
			Score:       score,
			Passed:      passed,
			BestScore:   bestIDs[attempt.EducationID] == attempt.ID,
			LeaveCount:  attempt.LeaveCount,
			SubmittedAt: *attempt.SubmittedAt,
		})
	}

	return items, total, nil
}

func (s *attemptService) RetryInfo(ctx context.Context, educationID uint, userID string) (*RetryInfoResponse, error) {
	edu, err := s.repo.Education().GetConfig(ctx, educationID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrEducationNotFound
		}
		return nil, fmt.Errorf("failed to load education config: %w", err)
	}

	attempts, err := s.repo.Attempt().GetSubmittedByUserAndEducation(ctx, nil, userID, educationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}

	info := &RetryInfoResponse{
		EducationID:  educationID,
		AttemptsUsed: len(attempts),
		MaxAttempts:  edu.MaxAttempts,
		CanRetry:     canRetry(edu.MaxAttempts, len(attempts)),
	}

	if best := bestAttempt(attempts); best != nil {
		info.BestScore = best.Score
		if best.Score != nil {
			_, info.Passed = s.passAgainst(edu, *best.Score)
		}
	}
	if len(attempts) > 0 {
		last := attempts[0].SubmittedAt
		info.LastAttemptAt = last
	}

	return info, nil
}

// ListAttempts is the moderator listing across users.
func (s *attemptService) ListAttempts(ctx context.Context, filters repositories.AttemptFilters, caller models.AuthClaims) ([]AdminAttemptItem, int64, error) {
	if !caller.IsManager() {
		return nil, 0, &PermissionError{UserID: caller.UserID, Action: "list", Resource: "attempts"}
	}

	attempts, total, err := s.repo.Attempt().List(ctx, nil, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list attempts: %w", err)
	}

	items := make([]AdminAttemptItem, 0, len(attempts))
	for _, attempt := range attempts {
		items = append(items, AdminAttemptItem{
			AttemptID:   attempt.ID,
			EducationID: attempt.EducationID,
			UserID:      attempt.UserID,
			Department:  attempt.Department,
			AttemptNo:   attempt.AttemptNo,
			Status:      attempt.Status(),
			Score:       attempt.Score,
			LeaveCount:  attempt.LeaveCount,
			CreatedAt:   attempt.CreatedAt,
			SubmittedAt: attempt.SubmittedAt,
		})
	}

	return items, total, nil
}

// DeleteAttempt tombstones an attempt. The row stays for audit, but
// drops out of listings, best-score resolution and stats.
func (s *attemptService) DeleteAttempt(ctx context.Context, attemptID uint, caller models.AuthClaims) error {
	if !caller.IsAdmin() {
		return &PermissionError{UserID: caller.UserID, Action: "delete", Resource: "attempt"}
	}

	if err := s.repo.Attempt().SoftDelete(ctx, nil, attemptID); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrAttemptNotFound
		}
		return fmt.Errorf("failed to delete attempt: %w", err)
	}

	s.logger.Info("Attempt deleted", "attempt_id", attemptID, "deleted_by", caller.UserID)
	return nil
}

// getOwnedAttempt loads an attempt scoped to its owner. Foreign and
// missing attempts answer identically to avoid leaking existence.
func (s *attemptService) getOwnedAttempt(ctx context.Context, attemptID uint, userID string) (*models.QuizAttempt, error) {
	attempt, err := s.repo.Attempt().GetOwned(ctx, nil, attemptID, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) || errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to load attempt: %w", err)
	}
	return attempt, nil
}

func (s *attemptService) publishEvent(ctx context.Context, topic string, event interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, topic, event); err != nil {
		s.logger.Warn("Failed to publish event", "topic", topic, "error", err)
	}
}
