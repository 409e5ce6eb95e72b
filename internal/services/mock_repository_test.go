package services

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/compedu/quiz-service/internal/models"
	"github.com/compedu/quiz-service/internal/repositories"
	"github.com/compedu/quiz-service/internal/utils"
)

// In-memory Repository implementation for service tests. Mirrors the
// postgres guards (active-attempt uniqueness, submitted_at IS NULL
// conditions) closely enough to exercise the service flows.
type memoryRepository struct {
	attempts   *memoryAttemptRepo
	leaves     *memoryLeaveRepo
	stats      *memoryStatsRepo
	educations *memoryEducationRepo
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		attempts: &memoryAttemptRepo{rows: make(map[uint]*models.QuizAttempt), deleted: make(map[uint]bool)},
		leaves:   &memoryLeaveRepo{},
		stats:    &memoryStatsRepo{},
		educations: &memoryEducationRepo{
			configs:  make(map[uint]*models.EducationConfig),
			eligible: make(map[string]int64),
		},
	}
}

func (m *memoryRepository) Attempt() repositories.AttemptRepository     { return m.attempts }
func (m *memoryRepository) Leave() repositories.LeaveRepository         { return m.leaves }
func (m *memoryRepository) Stats() repositories.StatsRepository         { return m.stats }
func (m *memoryRepository) Education() repositories.EducationRepository { return m.educations }
func (m *memoryRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(m)
}
func (m *memoryRepository) Ping(ctx context.Context) error { return nil }
func (m *memoryRepository) Close() error                   { return nil }

type memoryAttemptRepo struct {
	mu      sync.Mutex
	nextID  uint
	rows    map[uint]*models.QuizAttempt
	deleted map[uint]bool
}

func (r *memoryAttemptRepo) Create(ctx context.Context, tx *gorm.DB, attempt *models.QuizAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, row := range r.rows {
		if r.deleted[id] {
			continue
		}
		if row.UserID == attempt.UserID && row.EducationID == attempt.EducationID && row.SubmittedAt == nil {
			return repositories.ErrDuplicateActiveAttempt
		}
	}

	r.nextID++
	attempt.ID = r.nextID
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = time.Now()
	}
	r.rows[attempt.ID] = attempt
	return nil
}

func (r *memoryAttemptRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.QuizAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.get(id)
}

func (r *memoryAttemptRepo) get(id uint) (*models.QuizAttempt, error) {
	row, ok := r.rows[id]
	if !ok || r.deleted[id] {
		return nil, repositories.ErrNotFound
	}
	clone := *row
	return &clone, nil
}

func (r *memoryAttemptRepo) GetOwned(ctx context.Context, tx *gorm.DB, id uint, userID string) (*models.QuizAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, err := r.get(id)
	if err != nil {
		return nil, err
	}
	if row.UserID != userID {
		return nil, repositories.ErrNotFound
	}
	return row, nil
}

func (r *memoryAttemptRepo) GetUnsubmitted(ctx context.Context, tx *gorm.DB, userID string, educationID uint) (*models.QuizAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, row := range r.rows {
		if r.deleted[id] {
			continue
		}
		if row.UserID == userID && row.EducationID == educationID && row.SubmittedAt == nil {
			clone := *row
			return &clone, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *memoryAttemptRepo) NextAttemptNo(ctx context.Context, tx *gorm.DB, userID string, educationID uint) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	max := 0
	for _, row := range r.rows {
		// Soft-deleted rows still count, numbers are never reused.
		if row.UserID == userID && row.EducationID == educationID && row.AttemptNo > max {
			max = row.AttemptNo
		}
	}
	return max + 1, nil
}

func (r *memoryAttemptRepo) UpdateAnswers(ctx context.Context, tx *gorm.DB, id uint, answers datatypes.JSON) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[id]
	if !ok || r.deleted[id] || row.SubmittedAt != nil {
		return gorm.ErrRecordNotFound
	}
	row.Answers = answers
	return nil
}

func (r *memoryAttemptRepo) RecordLeave(ctx context.Context, tx *gorm.DB, id uint, lastLeaveAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[id]
	if !ok || r.deleted[id] || row.SubmittedAt != nil {
		return gorm.ErrRecordNotFound
	}
	row.LeaveCount++
	row.LastLeaveAt = &lastLeaveAt
	return nil
}

func (r *memoryAttemptRepo) FinalizeSubmission(ctx context.Context, tx *gorm.DB, id uint, outcome repositories.SubmissionOutcome) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[id]
	if !ok || r.deleted[id] || row.SubmittedAt != nil {
		return false, nil
	}

	score := outcome.Score
	submittedAt := outcome.SubmittedAt
	row.Score = &score
	row.CorrectCount = outcome.CorrectCount
	row.WrongCount = outcome.WrongCount
	row.TotalCount = outcome.TotalCount
	row.Answers = outcome.Answers
	row.Department = outcome.Department
	row.SubmittedAt = &submittedAt
	return true, nil
}

func (r *memoryAttemptRepo) CountSubmitted(ctx context.Context, tx *gorm.DB, userID string, educationID uint) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for id, row := range r.rows {
		if r.deleted[id] {
			continue
		}
		if row.UserID == userID && row.EducationID == educationID && row.SubmittedAt != nil {
			count++
		}
	}
	return count, nil
}

func (r *memoryAttemptRepo) GetSubmittedByUser(ctx context.Context, tx *gorm.DB, userID string, filters repositories.AttemptFilters) ([]*models.QuizAttempt, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*models.QuizAttempt
	for id, row := range r.rows {
		if r.deleted[id] || row.UserID != userID || row.SubmittedAt == nil {
			continue
		}
		clone := *row
		out = append(out, &clone)
	}
	sortBySubmittedDesc(out)
	return out, int64(len(out)), nil
}

func (r *memoryAttemptRepo) GetSubmittedByUserAndEducation(ctx context.Context, tx *gorm.DB, userID string, educationID uint) ([]*models.QuizAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*models.QuizAttempt
	for id, row := range r.rows {
		if r.deleted[id] || row.UserID != userID || row.EducationID != educationID || row.SubmittedAt == nil {
			continue
		}
		clone := *row
		out = append(out, &clone)
	}
	sortBySubmittedDesc(out)
	return out, nil
}

func (r *memoryAttemptRepo) BestAttemptIDs(ctx context.Context, tx *gorm.DB, userID string) (map[uint]uint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	best := make(map[uint]*models.QuizAttempt)
	for id, row := range r.rows {
		if r.deleted[id] || row.UserID != userID || row.SubmittedAt == nil || row.Score == nil {
			continue
		}
		current, ok := best[row.EducationID]
		if !ok || *row.Score > *current.Score ||
			(*row.Score == *current.Score && row.CreatedAt.After(current.CreatedAt)) {
			best[row.EducationID] = row
		}
	}

	out := make(map[uint]uint, len(best))
	for eduID, row := range best {
		out[eduID] = row.ID
	}
	return out, nil
}

func (r *memoryAttemptRepo) List(ctx context.Context, tx *gorm.DB, filters repositories.AttemptFilters) ([]*models.QuizAttempt, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*models.QuizAttempt
	for id, row := range r.rows {
		if r.deleted[id] {
			continue
		}
		if filters.UserID != nil && row.UserID != *filters.UserID {
			continue
		}
		if filters.EducationID != nil && row.EducationID != *filters.EducationID {
			continue
		}
		if filters.Department != nil && row.Department != *filters.Department {
			continue
		}
		if filters.Status != nil && row.Status() != *filters.Status {
			continue
		}
		clone := *row
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, int64(len(out)), nil
}

func (r *memoryAttemptRepo) SoftDelete(ctx context.Context, tx *gorm.DB, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rows[id]; !ok || r.deleted[id] {
		return repositories.ErrNotFound
	}
	r.deleted[id] = true
	return nil
}

func sortBySubmittedDesc(attempts []*models.QuizAttempt) {
	sort.Slice(attempts, func(i, j int) bool {
		return attempts[i].SubmittedAt.After(*attempts[j].SubmittedAt)
	})
}

type memoryLeaveRepo struct {
	mu     sync.Mutex
	nextID uint
	events []*models.LeaveEvent
}

func (r *memoryLeaveRepo) Create(ctx context.Context, tx *gorm.DB, event *models.LeaveEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	event.ID = r.nextID
	clone := *event
	r.events = append(r.events, &clone)
	return nil
}

func (r *memoryLeaveRepo) GetByAttempt(ctx context.Context, tx *gorm.DB, attemptID uint) ([]*models.LeaveEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*models.LeaveEvent
	for _, event := range r.events {
		if event.AttemptID == attemptID {
			clone := *event
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *memoryLeaveRepo) CountByAttempt(ctx context.Context, tx *gorm.DB, attemptID uint) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var count int64
	for _, event := range r.events {
		if event.AttemptID == attemptID {
			count++
		}
	}
	return count, nil
}

type memoryEducationRepo struct {
	configs  map[uint]*models.EducationConfig
	eligible map[string]int64
}

func (r *memoryEducationRepo) GetConfig(ctx context.Context, educationID uint) (*models.EducationConfig, error) {
	edu, ok := r.configs[educationID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	clone := *edu
	return &clone, nil
}

func (r *memoryEducationRepo) ListActive(ctx context.Context) ([]*models.EducationConfig, error) {
	var out []*models.EducationConfig
	for _, edu := range r.configs {
		if edu.Active {
			clone := *edu
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryEducationRepo) EligibleCount(ctx context.Context, department string) (int64, error) {
	return r.eligible[department], nil
}

type memoryStatsRepo struct {
	departmentRows []repositories.DepartmentStatsRow
	educationRow   *repositories.EducationStatsRow
	overview       *repositories.OverviewStats
	trend          []repositories.ScoreTrendPoint
}

func (r *memoryStatsRepo) GetDepartmentStats(ctx context.Context, tx *gorm.DB, filters repositories.StatsFilters) ([]repositories.DepartmentStatsRow, error) {
	return r.departmentRows, nil
}

func (r *memoryStatsRepo) GetEducationStats(ctx context.Context, tx *gorm.DB, educationID uint, filters repositories.StatsFilters) (*repositories.EducationStatsRow, error) {
	if r.educationRow == nil {
		return &repositories.EducationStatsRow{EducationID: educationID}, nil
	}
	return r.educationRow, nil
}

func (r *memoryStatsRepo) GetOverviewStats(ctx context.Context, tx *gorm.DB, filters repositories.StatsFilters) (*repositories.OverviewStats, error) {
	if r.overview == nil {
		return &repositories.OverviewStats{}, nil
	}
	return r.overview, nil
}

func (r *memoryStatsRepo) GetScoreTrend(ctx context.Context, tx *gorm.DB, days int, filters repositories.StatsFilters) ([]repositories.ScoreTrendPoint, error) {
	return r.trend, nil
}

func testLogger() utils.Logger {
	return utils.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func emptyFilters() repositories.AttemptFilters { return repositories.AttemptFilters{} }
