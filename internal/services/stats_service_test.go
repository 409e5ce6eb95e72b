package services

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/compedu/quiz-service/internal/models"
	"github.com/compedu/quiz-service/internal/repositories"
)

func newTestStatsService() (*memoryRepository, StatsService) {
	repo := newMemoryRepository()
	return repo, NewStatsService(repo, nil, testLogger())
}

var manager = models.AuthClaims{UserID: "m1", Role: models.RoleManager}

func TestStatsService_DepartmentStats(t *testing.T) {
	ctx := context.Background()
	repo, service := newTestStatsService()

	repo.stats.departmentRows = []repositories.DepartmentStatsRow{
		{Department: "Engineering", SubmittedCount: 10, DistinctUsers: 4, AverageScore: 81.25, PassedCount: 7},
		{Department: "Sales", SubmittedCount: 4, DistinctUsers: 2, AverageScore: 62.5, PassedCount: 1},
	}
	repo.educations.eligible["Engineering"] = 8

	resp, err := service.DepartmentStats(ctx, 0, nil, manager)
	if err != nil {
		t.Fatalf("DepartmentStats failed: %v", err)
	}

	if resp.PeriodDays != 30 {
		t.Errorf("PeriodDays = %d, want default 30", resp.PeriodDays)
	}
	if len(resp.Departments) != 2 {
		t.Fatalf("departments = %d, want 2", len(resp.Departments))
	}

	eng := resp.Departments[0]
	if eng.PassRate != 70 {
		t.Errorf("Engineering PassRate = %v, want 70", eng.PassRate)
	}
	if eng.AverageScore != 81.3 {
		t.Errorf("Engineering AverageScore = %v, want 81.3", eng.AverageScore)
	}
	if eng.EligibleCount != 8 {
		t.Errorf("Engineering EligibleCount = %d, want 8", eng.EligibleCount)
	}
	if eng.ParticipationRate != 50 {
		t.Errorf("Engineering ParticipationRate = %v, want 50", eng.ParticipationRate)
	}

	sales := resp.Departments[1]
	if sales.PassRate != 25 {
		t.Errorf("Sales PassRate = %v, want 25", sales.PassRate)
	}
	// Unknown eligible population leaves the participation rate at zero.
	if sales.EligibleCount != 0 || sales.ParticipationRate != 0 {
		t.Errorf("Sales participation = %d/%v, want 0/0", sales.EligibleCount, sales.ParticipationRate)
	}

	t.Run("employee denied", func(t *testing.T) {
		_, err := service.DepartmentStats(ctx, 30, nil, employee)
		var permErr *PermissionError
		if !errors.As(err, &permErr) {
			t.Errorf("expected PermissionError, got %v", err)
		}
	})
}

func TestStatsService_QuizDashboard(t *testing.T) {
	ctx := context.Background()
	repo, service := newTestStatsService()

	repo.stats.overview = &repositories.OverviewStats{
		TotalAttempts:   20,
		SubmittedCount:  16,
		InProgressCount: 4,
		DistinctUsers:   9,
		AverageScore:    74.38,
		PassedCount:     12,
	}

	resp, err := service.QuizDashboard(ctx, 7, manager)
	if err != nil {
		t.Fatalf("QuizDashboard failed: %v", err)
	}

	if resp.PeriodDays != 7 {
		t.Errorf("PeriodDays = %d, want 7", resp.PeriodDays)
	}
	if resp.TotalAttempts != 20 || resp.InProgressCount != 4 {
		t.Errorf("attempts = %d/%d, want 20/4", resp.TotalAttempts, resp.InProgressCount)
	}
	if resp.PassRate != 75 {
		t.Errorf("PassRate = %v, want 75", resp.PassRate)
	}
	if resp.AverageScore != 74.4 {
		t.Errorf("AverageScore = %v, want 74.4", resp.AverageScore)
	}
}

func TestStatsService_EducationStats(t *testing.T) {
	ctx := context.Background()
	repo, service := newTestStatsService()

	repo.educations.configs[3] = &models.EducationConfig{ID: 3, Title: "Data Privacy", Active: true}
	repo.stats.educationRow = &repositories.EducationStatsRow{
		EducationID:    3,
		TotalAttempts:  12,
		SubmittedCount: 10,
		DistinctUsers:  6,
		AverageScore:   85,
		PassedCount:    8,
		HighestScore:   100,
		LowestScore:    40,
	}

	resp, err := service.EducationStats(ctx, 3, 30, manager)
	if err != nil {
		t.Fatalf("EducationStats failed: %v", err)
	}

	if resp.Title != "Data Privacy" {
		t.Errorf("Title = %q, want Data Privacy", resp.Title)
	}
	if resp.PassRate != 80 {
		t.Errorf("PassRate = %v, want 80", resp.PassRate)
	}
	if resp.HighestScore != 100 || resp.LowestScore != 40 {
		t.Errorf("score range = %d..%d, want 40..100", resp.LowestScore, resp.HighestScore)
	}

	t.Run("unknown education", func(t *testing.T) {
		_, err := service.EducationStats(ctx, 99, 30, manager)
		if !errors.Is(err, ErrEducationNotFound) {
			t.Errorf("expected ErrEducationNotFound, got %v", err)
		}
	})
}

func TestStatsService_ExportDepartmentStats(t *testing.T) {
	ctx := context.Background()
	repo, service := newTestStatsService()

	repo.stats.departmentRows = []repositories.DepartmentStatsRow{
		{Department: "Engineering", SubmittedCount: 5, DistinctUsers: 3, AverageScore: 88, PassedCount: 4},
	}

	data, err := service.ExportDepartmentStats(ctx, 30, manager)
	if err != nil {
		t.Fatalf("ExportDepartmentStats failed: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("export returned no data")
	}
	// xlsx files are zip archives.
	if !bytes.HasPrefix(data, []byte("PK")) {
		t.Error("export is not a valid xlsx archive")
	}

	t.Run("employee denied", func(t *testing.T) {
		_, err := service.ExportDepartmentStats(ctx, 30, employee)
		var permErr *PermissionError
		if !errors.As(err, &permErr) {
			t.Errorf("expected PermissionError, got %v", err)
		}
	})
}
