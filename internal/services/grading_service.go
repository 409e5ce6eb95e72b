package services

import (
	"fmt"
	"math"

	"github.com/compedu/quiz-service/internal/models"
	"github.com/compedu/quiz-service/internal/utils"
)

type gradingService struct {
	logger utils.Logger
}

func NewGradingService(logger utils.Logger) GradingService {
	return &gradingService{logger: logger}
}

// Grade scores an answer set against the attempt snapshot. Unanswered
// questions count as wrong, so score is always correct/total regardless
// of how many answers were actually given.
func (s *gradingService) Grade(snapshot []models.QuestionSnapshot, answers map[string]int) (*GradeOutcome, error) {
	if len(snapshot) == 0 {
		return nil, &BusinessRuleError{
			Rule:    "empty_snapshot",
			Message: "attempt has no questions to grade",
		}
	}

	if err := s.ValidateAnswers(snapshot, answers); err != nil {
		return nil, err
	}

	correct := 0
	for _, q := range snapshot {
		if idx, ok := answers[q.QuestionID]; ok && idx == q.CorrectIndex {
			correct++
		}
	}

	total := len(snapshot)
	outcome := &GradeOutcome{
		Score:        scoreOf(correct, total),
		CorrectCount: correct,
		WrongCount:   total - correct,
		TotalCount:   total,
	}

	return outcome, nil
}

// ValidateAnswers rejects answers that reference unknown questions or
// select a choice index that does not exist.
func (s *gradingService) ValidateAnswers(snapshot []models.QuestionSnapshot, answers map[string]int) error {
	choiceCounts := make(map[string]int, len(snapshot))
	for _, q := range snapshot {
		choiceCounts[q.QuestionID] = len(q.Choices)
	}

	for qid, idx := range answers {
		n, ok := choiceCounts[qid]
		if !ok {
			return fmt.Errorf("%w: question %s does not belong to this attempt", ErrInvalidAnswer, qid)
		}
		if idx < 0 || idx >= n {
			return fmt.Errorf("%w: choice index %d out of range for question %s", ErrInvalidAnswer, idx, qid)
		}
	}

	return nil
}

// scoreOf rounds correct/total to a 0..100 integer percentage.
func scoreOf(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(correct) / float64(total) * 100))
}
