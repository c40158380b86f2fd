package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"BileePlatform/pkg/config"
	"BileePlatform/pkg/connection"
)

// Client представляет подключение к Redis
type Client struct {
	Client *redis.Client
}

// Config представляет конфигурацию Redis
type Config struct {
	Addr     string
	Password string
	DB       int
	// Connection pool settings
	PoolSize    int
	MinIdleConn int
	// Retry settings
	MaxRetries    int
	RetryInterval time.Duration
	// Health check
	HealthCheck time.Duration
}

// NewConfig создает конфигурацию по умолчанию
func NewConfig() *Config {
	return &Config{
		Addr:          "localhost:6379",
		PoolSize:      10,
		MinIdleConn:   2,
		MaxRetries:    3,
		RetryInterval: 1 * time.Second,
		HealthCheck:   30 * time.Second,
	}
}

// FromConfig строит конфигурацию клиента из секции redis общего конфига
func FromConfig(cfg config.RedisConfig) *Config {
	c := NewConfig()
	c.Addr = cfg.Addr
	c.Password = cfg.Password
	c.DB = cfg.DB
	if cfg.PoolSize > 0 {
		c.PoolSize = cfg.PoolSize
	}
	if cfg.MinIdleConn > 0 {
		c.MinIdleConn = cfg.MinIdleConn
	}
	c.MaxRetries = cfg.MaxRetries
	if d, err := time.ParseDuration(cfg.RetryInterval); err == nil {
		c.RetryInterval = d
	}
	return c
}

// Connect устанавливает подключение к Redis с retry логикой
func Connect(ctx context.Context, cfg *Config) (*Client, error) {
	retry := connection.RetryConfig{
		MaxAttempts:  cfg.MaxRetries + 1,
		InitialDelay: cfg.RetryInterval,
		MaxDelay:     cfg.RetryInterval * 8,
		Multiplier:   2.0,
	}

	var client *redis.Client
	err := connection.WithRetry(ctx, retry, func(ctx context.Context) error {
		c := redis.NewClient(&redis.Options{
			Addr:         cfg.Addr,
			Password:     cfg.Password,
			DB:           cfg.DB,
			PoolSize:     cfg.PoolSize,
			MinIdleConns: cfg.MinIdleConn,
			// Таймауты
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			// Таймаут для получения соединения из пула
			PoolTimeout:        4 * time.Second,
			IdleCheckFrequency: cfg.HealthCheck,
		})

		if err := c.Ping(ctx).Err(); err != nil {
			c.Close()
			return fmt.Errorf("failed to ping redis: %w", err)
		}
		client = c
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis %s: %w", cfg.Addr, err)
	}

	return &Client{Client: client}, nil
}

// Close закрывает подключение к Redis
func (r *Client) Close() error {
	if r.Client != nil {
		return r.Client.Close()
	}
	return nil
}

// HealthCheck проверяет состояние подключения к Redis
func (r *Client) HealthCheck(ctx context.Context) error {
	if r.Client == nil {
		return fmt.Errorf("redis client is not initialized")
	}
	return r.Client.Ping(ctx).Err()
}
