package resource

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"BileePlatform/pkg/logger"
	"BileePlatform/pkg/metrics"
)

// Имена ресурсов кабинета
const (
	Shops = "shops"
	Me    = "me"
)

// Methods имя списка способов оплаты проекта
func Methods(projectID int64) string {
	return "methods:" + strconv.FormatInt(projectID, 10)
}

// APIKey имя ключа API проекта
func APIKey(projectID int64) string {
	return "apikey:" + strconv.FormatInt(projectID, 10)
}

// Project имя публичной информации проекта по ссылке
func Project(link string) string {
	return "project:" + link
}

// Cache хранит последний полученный снимок каждого ресурса в пределах scope
// (сессии мерчанта). Параллельные загрузки одного ключа объединяются.
type Cache struct {
	ttl     time.Duration
	logger  logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
	group   singleflight.Group

	mu      sync.Mutex
	entries map[string]*entry
	// gens растет при каждой инвалидации ключа. Загрузка, начатая до
	// инвалидации, не сохраняет результат.
	gens map[string]uint64
}

type entry struct {
	value   interface{}
	expires time.Time
}

// NewCache создает кеш ресурсов. ttl <= 0 означает хранение до инвалидации.
func NewCache(ttl time.Duration, log logger.Logger, m *metrics.Metrics) *Cache {
	return &Cache{
		ttl:     ttl,
		logger:  log,
		metrics: m,
		now:     time.Now,
		entries: make(map[string]*entry),
		gens:    make(map[string]uint64),
	}
}

func cacheKey(scope, name string) string {
	return scope + "|" + name
}

// Load возвращает снимок ресурса name для scope, загружая его через fetch при промахе
func Load[T any](ctx context.Context, c *Cache, scope, name string, fetch func(ctx context.Context) (T, error)) (T, error) {
	key := cacheKey(scope, name)

	c.mu.Lock()
	if e, ok := c.entries[key]; ok && (e.expires.IsZero() || c.now().Before(e.expires)) {
		c.mu.Unlock()
		c.metrics.ObserveCache(resourceLabel(name), "hit")
		return e.value.(T), nil
	}
	gen := c.gens[key]
	c.mu.Unlock()

	ch := c.group.DoChan(key, func() (interface{}, error) {
		value, err := fetch(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		if c.gens[key] == gen {
			e := &entry{value: value}
			if c.ttl > 0 {
				e.expires = c.now().Add(c.ttl)
			}
			c.entries[key] = e
		}
		c.mu.Unlock()
		return value, nil
	})

	var zero T
	select {
	case res := <-ch:
		result := "miss"
		if res.Shared {
			result = "shared"
		}
		c.metrics.ObserveCache(resourceLabel(name), result)
		if res.Err != nil {
			c.logger.Debug("ошибка загрузки ресурса",
				logger.CtxField(ctx),
				logger.String("resource", name),
				logger.Error(res.Err))
			return zero, res.Err
		}
		return res.Val.(T), nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Invalidate сбрасывает снимки ресурсов. Следующий Load выполнит новую загрузку.
func (c *Cache) Invalidate(scope string, names ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, name := range names {
		key := cacheKey(scope, name)
		c.gens[key]++
		delete(c.entries, key)
		c.group.Forget(key)
	}
}

// DropScope удаляет все снимки сессии
func (c *Cache) DropScope(scope string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prefix := scope + "|"
	for key := range c.entries {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(c.entries, key)
		}
	}
	for key := range c.gens {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			c.gens[key]++
			c.group.Forget(key)
		}
	}
}

// resourceLabel убирает идентификатор из имени для метки метрики
func resourceLabel(name string) string {
	for i := 0; i < len(name); i++ {
		if name[i] == ':' {
			return name[:i]
		}
	}
	return name
}
