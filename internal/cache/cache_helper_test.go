package cache

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type cachedAttempt struct {
	ID    uint `json:"id"`
	Score int  `json:"score"`
}

func newTestHelper(t *testing.T) (*miniredis.Miniredis, *CacheHelper) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return mr, NewCacheHelper(client, AttemptCacheConfig.Prefix)
}

func TestCacheHelper_SetAndGet(t *testing.T) {
	ctx := context.Background()
	_, helper := newTestHelper(t)

	want := cachedAttempt{ID: 7, Score: 90}
	if err := helper.Set(ctx, "id:7", want, time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	var got cachedAttempt
	if err := helper.Get(ctx, "id:7", &got); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != want {
		t.Errorf("Get = %+v, want %+v", got, want)
	}

	t.Run("missing key", func(t *testing.T) {
		var dest cachedAttempt
		err := helper.Get(ctx, "id:404", &dest)
		if !errors.Is(err, ErrCacheNotFound) {
			t.Errorf("expected ErrCacheNotFound, got %v", err)
		}
	})
}

func TestCacheHelper_Delete(t *testing.T) {
	ctx := context.Background()
	_, helper := newTestHelper(t)

	if err := helper.Set(ctx, "id:1", cachedAttempt{ID: 1}, time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := helper.Delete(ctx, "id:1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	exists, err := helper.Exists(ctx, "id:1")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if exists {
		t.Error("key still exists after delete")
	}
}

func TestCacheHelper_InvalidatePattern(t *testing.T) {
	ctx := context.Background()
	_, helper := newTestHelper(t)

	for i := 1; i <= 5; i++ {
		if err := helper.Set(ctx, fmt.Sprintf("user:u1:page:%d", i), cachedAttempt{ID: uint(i)}, time.Minute); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}
	if err := helper.Set(ctx, "user:u2:page:1", cachedAttempt{ID: 99}, time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if err := helper.InvalidatePattern(ctx, "user:u1:*"); err != nil {
		t.Fatalf("InvalidatePattern failed: %v", err)
	}

	for i := 1; i <= 5; i++ {
		exists, _ := helper.Exists(ctx, fmt.Sprintf("user:u1:page:%d", i))
		if exists {
			t.Errorf("user:u1:page:%d survived invalidation", i)
		}
	}

	exists, _ := helper.Exists(ctx, "user:u2:page:1")
	if !exists {
		t.Error("unrelated key was invalidated")
	}
}

func TestCacheHelper_CacheOrExecute(t *testing.T) {
	ctx := context.Background()
	_, helper := newTestHelper(t)

	calls := 0
	fetch := func() (interface{}, error) {
		calls++
		return cachedAttempt{ID: 3, Score: 75}, nil
	}

	var first cachedAttempt
	if err := helper.CacheOrExecute(ctx, "id:3", &first, time.Minute, fetch); err != nil {
		t.Fatalf("CacheOrExecute failed: %v", err)
	}
	if calls != 1 {
		t.Fatalf("fetch calls = %d, want 1", calls)
	}
	if first.Score != 75 {
		t.Errorf("Score = %d, want 75", first.Score)
	}

	// The write-back is async; wait for the key to land before the
	// second read.
	deadline := time.Now().Add(time.Second)
	for {
		if exists, _ := helper.Exists(ctx, "id:3"); exists || time.Now().After(deadline) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	var second cachedAttempt
	if err := helper.CacheOrExecute(ctx, "id:3", &second, time.Minute, fetch); err != nil {
		t.Fatalf("CacheOrExecute failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("fetch calls = %d, want 1 (second read served from cache)", calls)
	}
}

func TestCacheHelper_NilClient(t *testing.T) {
	ctx := context.Background()
	helper := NewCacheHelper(nil, "test:")

	var dest cachedAttempt
	if err := helper.Get(ctx, "id:1", &dest); !errors.Is(err, ErrCacheNotAvailable) {
		t.Errorf("Get = %v, want ErrCacheNotAvailable", err)
	}
	if err := helper.Set(ctx, "id:1", cachedAttempt{}, time.Minute); err != nil {
		t.Errorf("Set on nil client must be a no-op, got %v", err)
	}
	if err := helper.Delete(ctx, "id:1"); err != nil {
		t.Errorf("Delete on nil client must be a no-op, got %v", err)
	}

	t.Run("CacheOrExecute falls through to fetch", func(t *testing.T) {
		var got cachedAttempt
		err := helper.CacheOrExecute(ctx, "id:2", &got, time.Minute, func() (interface{}, error) {
			return cachedAttempt{ID: 2, Score: 55}, nil
		})
		if err != nil {
			t.Fatalf("CacheOrExecute failed: %v", err)
		}
		if got.Score != 55 {
			t.Errorf("Score = %d, want 55", got.Score)
		}
	})
}

func TestInvalidateAttemptCache(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	cm := NewCacheManager(client)

	if err := cm.Attempt.Set(ctx, "id:5", cachedAttempt{ID: 5}, time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := cm.Attempt.Set(ctx, "id:6", cachedAttempt{ID: 6}, time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	InvalidateAttemptCache(ctx, cm, 5)

	if exists, _ := cm.Attempt.Exists(ctx, "id:5"); exists {
		t.Error("attempt cache survived invalidation")
	}
	if exists, _ := cm.Attempt.Exists(ctx, "id:6"); !exists {
		t.Error("unrelated attempt cache was dropped")
	}
}

func TestInvalidateStatsCache(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	cm := NewCacheManager(client)

	if err := cm.Stats.Set(ctx, "department:Engineering:all", cachedAttempt{}, time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := cm.Stats.Set(ctx, "overview:all:all", cachedAttempt{}, time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	InvalidateStatsCache(ctx, cm, "Engineering")

	if exists, _ := cm.Stats.Exists(ctx, "department:Engineering:all"); exists {
		t.Error("department stats cache survived invalidation")
	}
	if exists, _ := cm.Stats.Exists(ctx, "overview:all:all"); exists {
		t.Error("overview stats cache survived invalidation")
	}
}
