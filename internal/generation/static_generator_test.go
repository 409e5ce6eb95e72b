package generation

import (
	"context"
	"testing"

	"github.com/compedu/quiz-service/internal/models"
)

func TestStaticGenerator_Generate(t *testing.T) {
	g := NewStaticGenerator()
	ctx := context.Background()

	t.Run("requested count", func(t *testing.T) {
		edu := &models.EducationConfig{ID: 1, QuestionCount: 3}
		snapshot, err := g.Generate(ctx, edu)
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		if len(snapshot) != 3 {
			t.Fatalf("questions = %d, want 3", len(snapshot))
		}
	})

	t.Run("cycles the pool past its size", func(t *testing.T) {
		edu := &models.EducationConfig{ID: 1, QuestionCount: 12}
		snapshot, err := g.Generate(ctx, edu)
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		if len(snapshot) != 12 {
			t.Fatalf("questions = %d, want 12", len(snapshot))
		}

		ids := make(map[string]bool)
		for i, q := range snapshot {
			if q.Order != i+1 {
				t.Errorf("question %d Order = %d, want %d", i, q.Order, i+1)
			}
			if q.Prompt == "" || len(q.Choices) < 2 {
				t.Errorf("question %d is incomplete: %+v", i, q)
			}
			if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Choices) {
				t.Errorf("question %d CorrectIndex %d out of range", i, q.CorrectIndex)
			}
			if ids[q.QuestionID] {
				t.Errorf("duplicate question id %s", q.QuestionID)
			}
			ids[q.QuestionID] = true
		}
	})

	t.Run("zero question count", func(t *testing.T) {
		edu := &models.EducationConfig{ID: 1, QuestionCount: 0}
		if _, err := g.Generate(ctx, edu); err == nil {
			t.Fatal("expected error for zero question count")
		}
	})
}
