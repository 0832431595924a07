package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// QuizKey is the cache key of a quiz definition
func QuizKey(quizID uint) string {
	return fmt.Sprintf("id:%d", quizID)
}

// SafeDelete safely deletes cache keys with logging
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// SafeInvalidatePattern safely invalidates cache pattern with logging
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// InvalidateQuizCache drops a cached quiz definition
func InvalidateQuizCache(ctx context.Context, cm *CacheManager, quizID uint) {
	SafeDelete(ctx, cm.Quiz, QuizKey(quizID))
}

// InvalidateAllQuizzes drops every cached quiz definition
func InvalidateAllQuizzes(ctx context.Context, cm *CacheManager) {
	SafeInvalidatePattern(ctx, cm.Quiz, "*")
}

// UserKey is the cache key of a resolved identity
func UserKey(userID string) string {
	return fmt.Sprintf("id:%s", userID)
}
