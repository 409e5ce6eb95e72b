package services

import (
	"context"
	"fmt"
	"time"

	"github.com/compedu/quiz-service/internal/models"
	"github.com/compedu/quiz-service/internal/repositories"
)

func (s *attemptService) buildStartResponse(attempt *models.QuizAttempt, resumed bool) (*StartQuizResponse, error) {
	snapshot, err := attempt.QuestionSnapshots()
	if err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	answers, err := attempt.AnswerMap()
	if err != nil {
		return nil, fmt.Errorf("failed to decode answers: %w", err)
	}

	return &StartQuizResponse{
		AttemptID:        attempt.ID,
		EducationID:      attempt.EducationID,
		AttemptNo:        attempt.AttemptNo,
		Questions:        sanitizeQuestions(snapshot),
		SavedAnswers:     answers,
		TimeLimitSeconds: attempt.TimeLimitSeconds,
		StartedAt:        attempt.CreatedAt,
		ExpiresAt:        attempt.ExpiresAt(),
		Resumed:          resumed,
	}, nil
}

// sanitizeQuestions strips correct indexes and explanations so open
// attempts never reveal answers.
func sanitizeQuestions(snapshot []models.QuestionSnapshot) []QuestionView {
	views := make([]QuestionView, 0, len(snapshot))
	for _, q := range snapshot {
		views = append(views, QuestionView{
			QuestionID: q.QuestionID,
			Order:      q.Order,
			Prompt:     q.Prompt,
			Choices:    q.Choices,
		})
	}
	return views
}

// computeTimer derives the deadline state from the stored start time.
// Pure calculation, safe to call as often as clients poll.
func computeTimer(attempt *models.QuizAttempt, now time.Time) TimerResponse {
	timer := TimerResponse{
		AttemptID:        attempt.ID,
		TimeLimitSeconds: attempt.TimeLimitSeconds,
		StartedAt:        attempt.CreatedAt,
	}

	expiresAt := attempt.ExpiresAt()
	if expiresAt == nil {
		return timer
	}

	timer.ExpiresAt = expiresAt
	timer.Expired = !now.Before(*expiresAt)
	remaining := int(expiresAt.Sub(now).Seconds())
	if timer.Expired || remaining < 0 {
		remaining = 0
	}
	timer.RemainingSeconds = &remaining

	return timer
}

// canRetry applies the retry limit. Nil means unlimited attempts.
func canRetry(maxAttempts *int, submittedCount int) bool {
	if maxAttempts == nil {
		return true
	}
	return submittedCount < *maxAttempts
}

// bestAttempt picks the best-scored attempt from a submitted set, ties
// resolved by most recent creation.
func bestAttempt(attempts []*models.QuizAttempt) *models.QuizAttempt {
	var best *models.QuizAttempt
	for _, attempt := range attempts {
		if attempt.Score == nil {
			continue
		}
		if best == nil {
			best = attempt
			continue
		}
		switch {
		case *attempt.Score > *best.Score:
			best = attempt
		case *attempt.Score == *best.Score && attempt.CreatedAt.After(best.CreatedAt):
			best = attempt
		}
	}
	return best
}

// resolvePass evaluates score against the education's pass score. An
// unreachable education config or a nil pass score counts as passed,
// completing the training is then enough.
func (s *attemptService) resolvePass(ctx context.Context, educationID uint, score int) (*int, bool) {
	edu, err := s.repo.Education().GetConfig(ctx, educationID)
	if err != nil {
		s.logger.Warn("Failed to load education config for pass check",
			"education_id", educationID, "error", err)
		return nil, true
	}
	return s.passAgainst(edu, score)
}

func (s *attemptService) passAgainst(edu *models.EducationConfig, score int) (*int, bool) {
	if edu.PassScore == nil {
		return nil, true
	}
	return edu.PassScore, score >= *edu.PassScore
}

func (s *attemptService) buildEducationItem(ctx context.Context, edu *models.EducationConfig, userID string) (*AvailableEducationItem, error) {
	item := &AvailableEducationItem{
		EducationID:      edu.ID,
		Title:            edu.Title,
		Category:         edu.Category,
		QuestionCount:    edu.QuestionCount,
		TimeLimitSeconds: edu.TimeLimitSeconds,
		MaxAttempts:      edu.MaxAttempts,
	}

	attempts, err := s.repo.Attempt().GetSubmittedByUserAndEducation(ctx, nil, userID, edu.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts for education %d: %w", edu.ID, err)
	}

	item.AttemptsUsed = len(attempts)
	item.CanRetry = canRetry(edu.MaxAttempts, len(attempts))

	if best := bestAttempt(attempts); best != nil && best.Score != nil {
		item.BestScore = best.Score
		_, item.Passed = s.passAgainst(edu, *best.Score)
	}
	if len(attempts) > 0 {
		item.LastAttemptAt = attempts[0].SubmittedAt
	}

	if _, err := s.repo.Attempt().GetUnsubmitted(ctx, nil, userID, edu.ID); err == nil {
		item.HasActiveAttempt = true
	} else if !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to check active attempt: %w", err)
	}

	return item, nil
}
