package services

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/compedu/quiz-service/internal/models"
	"github.com/compedu/quiz-service/internal/repositories"
	"github.com/compedu/quiz-service/internal/utils"
)

type statsService struct {
	repo   repositories.Repository
	db     *gorm.DB
	logger utils.Logger
}

func NewStatsService(repo repositories.Repository, db *gorm.DB, logger utils.Logger) StatsService {
	return &statsService{
		repo:   repo,
		db:     db,
		logger: logger,
	}
}

// DepartmentStats aggregates submitted attempts per department over the
// period. Pass rate uses the platform-wide threshold, participation
// rate relates distinct quiz takers to the department's eligible
// population.
func (s *statsService) DepartmentStats(ctx context.Context, periodDays int, department *string, caller models.AuthClaims) (*DepartmentStatsResponse, error) {
	if !caller.IsManager() {
		return nil, &PermissionError{UserID: caller.UserID, Action: "read", Resource: "department stats"}
	}

	filters := repositories.StatsFilters{Department: department}
	periodDays = normalizePeriod(periodDays)
	since := time.Now().AddDate(0, 0, -periodDays)
	filters.Since = &since

	rows, err := s.repo.Stats().GetDepartmentStats(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to load department stats: %w", err)
	}

	items := make([]DepartmentStatsItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, s.buildDepartmentItem(ctx, row))
	}

	return &DepartmentStatsResponse{
		PeriodDays:  periodDays,
		Departments: items,
	}, nil
}

func (s *statsService) QuizDashboard(ctx context.Context, periodDays int, caller models.AuthClaims) (*QuizDashboardResponse, error) {
	if !caller.IsManager() {
		return nil, &PermissionError{UserID: caller.UserID, Action: "read", Resource: "quiz dashboard"}
	}

	periodDays = normalizePeriod(periodDays)
	since := time.Now().AddDate(0, 0, -periodDays)
	filters := repositories.StatsFilters{Since: &since}

	overview, err := s.repo.Stats().GetOverviewStats(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to load overview stats: %w", err)
	}

	departments, err := s.repo.Stats().GetDepartmentStats(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to load department stats: %w", err)
	}

	trend, err := s.repo.Stats().GetScoreTrend(ctx, nil, periodDays, repositories.StatsFilters{})
	if err != nil {
		return nil, fmt.Errorf("failed to load score trend: %w", err)
	}

	items := make([]DepartmentStatsItem, 0, len(departments))
	for _, row := range departments {
		items = append(items, s.buildDepartmentItem(ctx, row))
	}

	return &QuizDashboardResponse{
		PeriodDays:      periodDays,
		TotalAttempts:   overview.TotalAttempts,
		SubmittedCount:  overview.SubmittedCount,
		InProgressCount: overview.InProgressCount,
		DistinctUsers:   overview.DistinctUsers,
		AverageScore:    round1(overview.AverageScore),
		PassRate:        rateOf(overview.PassedCount, overview.SubmittedCount),
		Departments:     items,
		ScoreTrend:      trend,
	}, nil
}

func (s *statsService) EducationStats(ctx context.Context, educationID uint, periodDays int, caller models.AuthClaims) (*EducationStatsResponse, error) {
	if !caller.IsManager() {
		return nil, &PermissionError{UserID: caller.UserID, Action: "read", Resource: "education stats"}
	}

	edu, err := s.repo.Education().GetConfig(ctx, educationID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrEducationNotFound
		}
		return nil, fmt.Errorf("failed to load education config: %w", err)
	}

	periodDays = normalizePeriod(periodDays)
	since := time.Now().AddDate(0, 0, -periodDays)

	row, err := s.repo.Stats().GetEducationStats(ctx, nil, educationID, repositories.StatsFilters{Since: &since})
	if err != nil {
		return nil, fmt.Errorf("failed to load education stats: %w", err)
	}

	return &EducationStatsResponse{
		EducationID:    educationID,
		Title:          edu.Title,
		TotalAttempts:  row.TotalAttempts,
		SubmittedCount: row.SubmittedCount,
		DistinctUsers:  row.DistinctUsers,
		AverageScore:   round1(row.AverageScore),
		PassRate:       rateOf(row.PassedCount, row.SubmittedCount),
		HighestScore:   row.HighestScore,
		LowestScore:    row.LowestScore,
	}, nil
}

// ExportDepartmentStats renders the department report as an xlsx
// workbook for compliance officers.
func (s *statsService) ExportDepartmentStats(ctx context.Context, periodDays int, caller models.AuthClaims) ([]byte, error) {
	stats, err := s.DepartmentStats(ctx, periodDays, nil, caller)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Department Stats"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}

	headers := []string{"Department", "Submitted Attempts", "Distinct Users", "Average Score", "Pass Rate (%)", "Eligible Employees", "Participation Rate (%)"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}

	for rowIdx, item := range stats.Departments {
		values := []interface{}{
			item.Department,
			item.SubmittedCount,
			item.DistinctUsers,
			item.AverageScore,
			item.PassRate,
			item.EligibleCount,
			item.ParticipationRate,
		}
		for colIdx, value := range values {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return nil, fmt.Errorf("failed to write row: %w", err)
			}
		}
	}

	_ = f.SetColWidth(sheet, "A", "G", 22)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}

	s.logger.Info("Department stats exported",
		"period_days", stats.PeriodDays,
		"departments", len(stats.Departments),
		"requested_by", caller.UserID)

	return buf.Bytes(), nil
}

func (s *statsService) buildDepartmentItem(ctx context.Context, row repositories.DepartmentStatsRow) DepartmentStatsItem {
	item := DepartmentStatsItem{
		Department:     row.Department,
		SubmittedCount: row.SubmittedCount,
		DistinctUsers:  row.DistinctUsers,
		AverageScore:   round1(row.AverageScore),
		PassRate:       rateOf(row.PassedCount, row.SubmittedCount),
	}

	eligible, err := s.repo.Education().EligibleCount(ctx, row.Department)
	if err != nil {
		s.logger.Warn("Failed to load eligible count", "department", row.Department, "error", err)
	}
	item.EligibleCount = eligible
	if eligible > 0 {
		item.ParticipationRate = rateOf(row.DistinctUsers, eligible)
	}

	return item
}

func normalizePeriod(days int) int {
	if days <= 0 {
		return 30
	}
	if days > 365 {
		return 365
	}
	return days
}

func rateOf(part, whole int64) float64 {
	if whole <= 0 {
		return 0
	}
	return round1(float64(part) / float64(whole) * 100)
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
