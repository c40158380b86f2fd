package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLocalRateLimiter_Limit проверяет блокировку после исчерпания лимита
func TestLocalRateLimiter_Limit(t *testing.T) {
	limiter := NewLocalRateLimiter(time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		exceeded, err := limiter.CheckRateLimit(ctx, "ip:1", 3, time.Minute)
		require.NoError(t, err)
		assert.False(t, exceeded, "request %d", i)
	}

	exceeded, err := limiter.CheckRateLimit(ctx, "ip:1", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, exceeded)

	// Другой ключ имеет собственный лимит
	exceeded, err = limiter.CheckRateLimit(ctx, "ip:2", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, exceeded)
}

// TestLocalRateLimiter_Refill проверяет восполнение токенов со временем
func TestLocalRateLimiter_Refill(t *testing.T) {
	limiter := NewLocalRateLimiter(time.Hour)
	now := time.Unix(1_700_000_000, 0)
	limiter.now = func() time.Time { return now }
	ctx := context.Background()

	exceeded, _ := limiter.CheckRateLimit(ctx, "k", 1, time.Minute)
	assert.False(t, exceeded)
	exceeded, _ = limiter.CheckRateLimit(ctx, "k", 1, time.Minute)
	assert.True(t, exceeded)

	now = now.Add(time.Minute)
	exceeded, _ = limiter.CheckRateLimit(ctx, "k", 1, time.Minute)
	assert.False(t, exceeded)
}

// TestLocalRateLimiter_Evict проверяет удаление неактивных ключей
func TestLocalRateLimiter_Evict(t *testing.T) {
	limiter := NewLocalRateLimiter(time.Minute)
	now := time.Unix(1_700_000_000, 0)
	limiter.now = func() time.Time { return now }
	ctx := context.Background()

	limiter.CheckRateLimit(ctx, "a", 5, time.Minute)
	limiter.CheckRateLimit(ctx, "b", 5, time.Minute)
	assert.Equal(t, 2, limiter.Len())

	now = now.Add(2 * time.Minute)
	limiter.CheckRateLimit(ctx, "c", 5, time.Minute)
	assert.Equal(t, 1, limiter.Len())
}

// TestLocalRateLimiter_ZeroLimit проверяет, что нулевой лимит блокирует все запросы
func TestLocalRateLimiter_ZeroLimit(t *testing.T) {
	limiter := NewLocalRateLimiter(0)
	exceeded, err := limiter.CheckRateLimit(context.Background(), "k", 0, time.Minute)
	require.NoError(t, err)
	assert.True(t, exceeded)
}
