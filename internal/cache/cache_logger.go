package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// SafeInvalidatePattern invalidates a cache pattern, logging instead of
// failing the caller on cache errors.
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// SafeDelete deletes cache keys, logging instead of failing the caller.
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// InvalidateAttemptCache drops the cached view of one attempt.
func InvalidateAttemptCache(ctx context.Context, cm *CacheManager, attemptID uint) {
	SafeDelete(ctx, cm.Attempt, fmt.Sprintf("id:%d", attemptID))
}

// InvalidateStatsCache drops aggregate caches after a submission lands.
func InvalidateStatsCache(ctx context.Context, cm *CacheManager, department string) {
	SafeInvalidatePattern(ctx, cm.Stats, "department:*")
	SafeInvalidatePattern(ctx, cm.Stats, "overview:*")
	if department != "" {
		SafeInvalidatePattern(ctx, cm.Stats, fmt.Sprintf("department:%s:*", department))
	}
}
