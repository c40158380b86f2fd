package resource

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"golang.org/x/sync/singleflight"

	"BileePlatform/pkg/logger"
	"BileePlatform/pkg/metrics"
	"BileePlatform/pkg/redis"
	"BileePlatform/services/dashboard/internal/api"
)

const catalogPrefix = "dashboard:catalog:"

// CatalogSource загружает статические каталоги
type CatalogSource interface {
	Icons(ctx context.Context, token string) ([]api.Icon, error)
	PaymentSystems(ctx context.Context, token string) ([]api.PaymentSystem, error)
}

// Catalog хранит каталоги иконок и платежных систем на весь процесс.
// Если задан Redis, каталоги разделяются между экземплярами через общий кеш.
type Catalog struct {
	source  CatalogSource
	redis   *redis.Client
	ttl     time.Duration
	logger  logger.Logger
	metrics *metrics.Metrics
	group   singleflight.Group

	mu      sync.Mutex
	icons   []api.Icon
	systems []api.PaymentSystem
}

// NewCatalog создает каталог. redisClient может быть nil.
func NewCatalog(source CatalogSource, redisClient *redis.Client, ttl time.Duration, log logger.Logger, m *metrics.Metrics) *Catalog {
	return &Catalog{
		source:  source,
		redis:   redisClient,
		ttl:     ttl,
		logger:  log,
		metrics: m,
	}
}

// Icons возвращает каталог иконок
func (c *Catalog) Icons(ctx context.Context, token string) ([]api.Icon, error) {
	return loadCatalog(ctx, c, "icons", &c.icons, func(ctx context.Context) ([]api.Icon, error) {
		return c.source.Icons(ctx, token)
	})
}

// PaymentSystems возвращает каталог платежных систем
func (c *Catalog) PaymentSystems(ctx context.Context, token string) ([]api.PaymentSystem, error) {
	return loadCatalog(ctx, c, "payment-systems", &c.systems, func(ctx context.Context) ([]api.PaymentSystem, error) {
		return c.source.PaymentSystems(ctx, token)
	})
}

// PaymentSystem ищет платежную систему по идентификатору
func (c *Catalog) PaymentSystem(ctx context.Context, token string, id int64) (*api.PaymentSystem, error) {
	systems, err := c.PaymentSystems(ctx, token)
	if err != nil {
		return nil, err
	}
	for i := range systems {
		if systems[i].ID == id {
			return &systems[i], nil
		}
	}
	return nil, nil
}

func loadCatalog[T any](ctx context.Context, c *Catalog, name string, slot *[]T, fetch func(ctx context.Context) ([]T, error)) ([]T, error) {
	c.mu.Lock()
	if *slot != nil {
		values := *slot
		c.mu.Unlock()
		c.metrics.ObserveCache(name, "hit")
		return values, nil
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do(name, func() (interface{}, error) {
		if values, ok := readShared[T](ctx, c, name); ok {
			c.metrics.ObserveCache(name, "shared")
			c.store(func() { *slot = values })
			return values, nil
		}

		values, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		if values == nil {
			values = []T{}
		}
		c.metrics.ObserveCache(name, "miss")
		c.store(func() { *slot = values })
		writeShared(ctx, c, name, values)
		return values, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]T), nil
}

func (c *Catalog) store(set func()) {
	c.mu.Lock()
	set()
	c.mu.Unlock()
}

func readShared[T any](ctx context.Context, c *Catalog, name string) ([]T, bool) {
	if c.redis == nil {
		return nil, false
	}

	data, err := c.redis.Client.Get(ctx, catalogPrefix+name).Bytes()
	if err != nil {
		if err != goredis.Nil {
			c.logger.Warn("ошибка чтения каталога из Redis", logger.String("catalog", name), logger.Error(err))
		}
		return nil, false
	}

	var values []T
	if err := json.Unmarshal(data, &values); err != nil {
		c.logger.Warn("поврежденный каталог в Redis", logger.String("catalog", name), logger.Error(err))
		return nil, false
	}
	return values, true
}

func writeShared[T any](ctx context.Context, c *Catalog, name string, values []T) {
	if c.redis == nil {
		return
	}

	data, err := json.Marshal(values)
	if err != nil {
		return
	}
	if err := c.redis.Client.Set(ctx, catalogPrefix+name, data, c.ttl).Err(); err != nil {
		c.logger.Warn("ошибка записи каталога в Redis", logger.String("catalog", name), logger.Error(err))
	}
}
