package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"golang.org/x/time/rate"
)

// RateLimiter интерфейс для ограничения частоты запросов
type RateLimiter interface {
	// CheckRateLimit проверяет лимит для заданного ключа
	// Возвращает true, если лимит превышен
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RedisRateLimiter реализация RateLimiter с использованием Redis.
// Фиксированное окно: счетчик INCR живет window с момента первого запроса.
type RedisRateLimiter struct {
	client *redis.Client
}

// NewRedisRateLimiter создает новый экземпляр RedisRateLimiter
func NewRedisRateLimiter(client *redis.Client) *RedisRateLimiter {
	return &RedisRateLimiter{client: client}
}

// CheckRateLimit увеличивает счетчик ключа и сравнивает его с лимитом
func (r *RedisRateLimiter) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	redisKey := fmt.Sprintf("rate_limit:%s", key)

	count, err := r.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return true, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}

	// TTL выставляется только первым запросом окна
	if count == 1 {
		if err := r.client.Expire(ctx, redisKey, window).Err(); err != nil {
			return true, fmt.Errorf("failed to set rate limit window: %w", err)
		}
	}

	return count > int64(limit), nil
}

// LocalRateLimiter хранит token bucket на каждый ключ в памяти процесса.
// Используется, когда Redis отключен.
type LocalRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*localEntry
	idleTTL  time.Duration
	now      func() time.Time
}

type localEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLocalRateLimiter создает LocalRateLimiter. Ключи без запросов дольше idleTTL удаляются.
func NewLocalRateLimiter(idleTTL time.Duration) *LocalRateLimiter {
	return &LocalRateLimiter{
		limiters: make(map[string]*localEntry),
		idleTTL:  idleTTL,
		now:      time.Now,
	}
}

// CheckRateLimit расходует один токен из bucket ключа.
// Bucket вмещает limit токенов и полностью восполняется за window.
func (l *LocalRateLimiter) CheckRateLimit(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	if limit <= 0 {
		return true, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.evict(now)

	entry, ok := l.limiters[key]
	if !ok {
		entry = &localEntry{
			limiter: rate.NewLimiter(rate.Limit(float64(limit)/window.Seconds()), limit),
		}
		l.limiters[key] = entry
	}
	entry.lastSeen = now

	return !entry.limiter.AllowN(now, 1), nil
}

func (l *LocalRateLimiter) evict(now time.Time) {
	if l.idleTTL <= 0 {
		return
	}
	for key, entry := range l.limiters {
		if now.Sub(entry.lastSeen) > l.idleTTL {
			delete(l.limiters, key)
		}
	}
}

// Len возвращает количество отслеживаемых ключей
func (l *LocalRateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}
