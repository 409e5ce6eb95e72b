package services

import (
	"testing"
	"time"

	"github.com/compedu/quiz-service/internal/models"
)

func intPtr(v int) *int { return &v }

func TestComputeTimer(t *testing.T) {
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	t.Run("untimed attempt has no deadline", func(t *testing.T) {
		attempt := &models.QuizAttempt{ID: 1, CreatedAt: start}

		timer := computeTimer(attempt, start.Add(time.Hour))
		if timer.ExpiresAt != nil {
			t.Errorf("ExpiresAt = %v, want nil", timer.ExpiresAt)
		}
		if timer.RemainingSeconds != nil {
			t.Errorf("RemainingSeconds = %v, want nil", timer.RemainingSeconds)
		}
		if timer.Expired {
			t.Error("untimed attempt must never expire")
		}
	})

	t.Run("remaining counts down from start", func(t *testing.T) {
		attempt := &models.QuizAttempt{ID: 1, CreatedAt: start, TimeLimitSeconds: intPtr(600)}

		timer := computeTimer(attempt, start.Add(4*time.Minute))
		if timer.RemainingSeconds == nil || *timer.RemainingSeconds != 360 {
			t.Fatalf("RemainingSeconds = %v, want 360", timer.RemainingSeconds)
		}
		if timer.Expired {
			t.Error("attempt expired too early")
		}
		if timer.ExpiresAt == nil || !timer.ExpiresAt.Equal(start.Add(10*time.Minute)) {
			t.Errorf("ExpiresAt = %v, want %v", timer.ExpiresAt, start.Add(10*time.Minute))
		}
	})

	t.Run("expired clamps remaining to zero", func(t *testing.T) {
		attempt := &models.QuizAttempt{ID: 1, CreatedAt: start, TimeLimitSeconds: intPtr(600)}

		timer := computeTimer(attempt, start.Add(11*time.Minute))
		if timer.RemainingSeconds == nil || *timer.RemainingSeconds != 0 {
			t.Fatalf("RemainingSeconds = %v, want 0", timer.RemainingSeconds)
		}
		if !timer.Expired {
			t.Error("attempt past deadline must report expired")
		}
	})

	t.Run("under a second left is not expired", func(t *testing.T) {
		attempt := &models.QuizAttempt{ID: 1, CreatedAt: start, TimeLimitSeconds: intPtr(600)}

		timer := computeTimer(attempt, start.Add(10*time.Minute-500*time.Millisecond))
		if timer.Expired {
			t.Error("attempt before the deadline must not report expired")
		}
		if timer.RemainingSeconds == nil || *timer.RemainingSeconds != 0 {
			t.Errorf("RemainingSeconds = %v, want 0", timer.RemainingSeconds)
		}
	})

	t.Run("exactly at deadline is expired", func(t *testing.T) {
		attempt := &models.QuizAttempt{ID: 1, CreatedAt: start, TimeLimitSeconds: intPtr(600)}

		timer := computeTimer(attempt, start.Add(10*time.Minute))
		if !timer.Expired {
			t.Error("attempt at deadline boundary must report expired")
		}
	})
}

func TestCanRetry(t *testing.T) {
	tests := []struct {
		name           string
		maxAttempts    *int
		submittedCount int
		want           bool
	}{
		{name: "nil limit is unlimited", maxAttempts: nil, submittedCount: 100, want: true},
		{name: "under limit", maxAttempts: intPtr(3), submittedCount: 2, want: true},
		{name: "at limit", maxAttempts: intPtr(3), submittedCount: 3, want: false},
		{name: "over limit", maxAttempts: intPtr(3), submittedCount: 4, want: false},
		{name: "zero limit blocks everything", maxAttempts: intPtr(0), submittedCount: 0, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := canRetry(tt.maxAttempts, tt.submittedCount); got != tt.want {
				t.Errorf("canRetry(%v, %d) = %v, want %v", tt.maxAttempts, tt.submittedCount, got, tt.want)
			}
		})
	}
}

func TestBestAttempt(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("empty set", func(t *testing.T) {
		if got := bestAttempt(nil); got != nil {
			t.Errorf("bestAttempt(nil) = %v, want nil", got)
		}
	})

	t.Run("highest score wins", func(t *testing.T) {
		attempts := []*models.QuizAttempt{
			{ID: 1, Score: intPtr(60), CreatedAt: base},
			{ID: 2, Score: intPtr(90), CreatedAt: base.Add(time.Hour)},
			{ID: 3, Score: intPtr(75), CreatedAt: base.Add(2 * time.Hour)},
		}
		if got := bestAttempt(attempts); got == nil || got.ID != 2 {
			t.Errorf("bestAttempt = %v, want attempt 2", got)
		}
	})

	t.Run("tie resolves to most recent", func(t *testing.T) {
		attempts := []*models.QuizAttempt{
			{ID: 1, Score: intPtr(80), CreatedAt: base},
			{ID: 2, Score: intPtr(80), CreatedAt: base.Add(time.Hour)},
		}
		if got := bestAttempt(attempts); got == nil || got.ID != 2 {
			t.Errorf("bestAttempt = %v, want attempt 2", got)
		}
	})

	t.Run("unscored attempts are skipped", func(t *testing.T) {
		attempts := []*models.QuizAttempt{
			{ID: 1, CreatedAt: base},
			{ID: 2, Score: intPtr(40), CreatedAt: base.Add(time.Hour)},
		}
		if got := bestAttempt(attempts); got == nil || got.ID != 2 {
			t.Errorf("bestAttempt = %v, want attempt 2", got)
		}
	})
}

func TestNormalizePeriod(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{0, 30},
		{-5, 30},
		{7, 7},
		{365, 365},
		{1000, 365},
	}
	for _, tt := range tests {
		if got := normalizePeriod(tt.in); got != tt.want {
			t.Errorf("normalizePeriod(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestRateOf(t *testing.T) {
	tests := []struct {
		part  int64
		whole int64
		want  float64
	}{
		{0, 0, 0},
		{5, 0, 0},
		{1, 2, 50},
		{2, 3, 66.7},
		{3, 3, 100},
	}
	for _, tt := range tests {
		if got := rateOf(tt.part, tt.whole); got != tt.want {
			t.Errorf("rateOf(%d, %d) = %v, want %v", tt.part, tt.whole, got, tt.want)
		}
	}
}
