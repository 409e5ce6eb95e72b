package repositories

import "context"

// Repository aggregates the per-domain repository interfaces.
type Repository interface {
	// Attempt domain
	Attempt() AttemptRepository
	Leave() LeaveRepository

	// Reporting domain
	Stats() StatsRepository

	// Education domain (read-only, owned by the content platform)
	Education() EducationRepository

	// Transaction support
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}

// RepositoryManager manages repository lifecycle.
type RepositoryManager interface {
	Initialize() error
	GetRepository() Repository
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
