package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/compedu/quiz-service/internal/events"
	"github.com/compedu/quiz-service/internal/generation"
	"github.com/compedu/quiz-service/internal/repositories"
	"github.com/compedu/quiz-service/internal/utils"
	"github.com/compedu/quiz-service/internal/validator"
)

// ServiceManager wires and owns the service instances.
type ServiceManager interface {
	Attempt() AttemptService
	Grading() GradingService
	Stats() StatsService

	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// ServiceManagerConfig holds cross-service settings.
type ServiceManagerConfig struct {
	DefaultTimeout time.Duration
}

type serviceManager struct {
	db        *gorm.DB
	repo      repositories.Repository
	logger    utils.Logger
	validator *validator.BusinessValidator
	generator generation.QuestionGenerator
	publisher events.Publisher
	config    ServiceManagerConfig

	attemptService AttemptService
	gradingService GradingService
	statsService   StatsService

	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

func NewServiceManager(
	db *gorm.DB,
	repo repositories.Repository,
	logger utils.Logger,
	v *validator.BusinessValidator,
	generator generation.QuestionGenerator,
	publisher events.Publisher,
	config ServiceManagerConfig,
) ServiceManager {
	return &serviceManager{
		db:        db,
		repo:      repo,
		logger:    logger,
		validator: v,
		generator: generator,
		publisher: publisher,
		config:    config,
	}
}

func NewDefaultServiceManager(
	db *gorm.DB,
	repo repositories.Repository,
	logger utils.Logger,
	v *validator.BusinessValidator,
	generator generation.QuestionGenerator,
	publisher events.Publisher,
) ServiceManager {
	return NewServiceManager(db, repo, logger, v, generator, publisher, ServiceManagerConfig{
		DefaultTimeout: 30 * time.Second,
	})
}

func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.logger.Info("Initializing service manager")

	sm.gradingService = NewGradingService(sm.logger)
	sm.attemptService = NewAttemptService(sm.repo, sm.db, sm.logger, sm.validator, sm.gradingService, sm.generator, sm.publisher)
	sm.statsService = NewStatsService(sm.repo, sm.db, sm.logger)

	if err := sm.repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}

	sm.initialized = true
	sm.logger.Info("Service manager initialized")

	return nil
}

func (sm *serviceManager) Attempt() AttemptService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized || sm.attemptService == nil {
		panic("attempt service not initialized")
	}
	return sm.attemptService
}

func (sm *serviceManager) Grading() GradingService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized || sm.gradingService == nil {
		panic("grading service not initialized")
	}
	return sm.gradingService
}

func (sm *serviceManager) Stats() StatsService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized || sm.statsService == nil {
		panic("stats service not initialized")
	}
	return sm.statsService
}

func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}
	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	return sm.repo.Ping(ctx)
}

func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.logger.Info("Shutting down service manager")

	if sm.publisher != nil {
		if err := sm.publisher.Close(); err != nil {
			sm.logger.Warn("Failed to close event publisher", "error", err)
		}
	}

	sm.shutdown = true
	return nil
}
