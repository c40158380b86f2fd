package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"BileePlatform/pkg/config"
	"BileePlatform/pkg/health"
	"BileePlatform/pkg/logger"
	"BileePlatform/pkg/metrics"
	"BileePlatform/pkg/rabbitmq"
	"BileePlatform/pkg/ratelimit"
	pkg_redis "BileePlatform/pkg/redis"
	"BileePlatform/services/dashboard/internal/amount"
	"BileePlatform/services/dashboard/internal/api"
	"BileePlatform/services/dashboard/internal/events"
	"BileePlatform/services/dashboard/internal/form"
	httphandler "BileePlatform/services/dashboard/internal/handler/http"
	"BileePlatform/services/dashboard/internal/middleware"
	"BileePlatform/services/dashboard/internal/resource"
	"BileePlatform/services/dashboard/internal/session"
)

const (
	serviceName    = "dashboard"
	serviceVersion = "1.0.0"
)

func main() {
	configFile := "config/config.yaml"
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		configFile = path
	}

	// Инициализация конфигурации
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Инициализация логгера
	appLogger, err := logger.NewLogger(cfg.Environment, cfg.Logger.Level, cfg.Logger.Format, serviceName)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() {
		if err := appLogger.Sync(); err != nil {
			log.Printf("Error syncing logger: %v", err)
		}
	}()

	// Метрики и трассировка
	metricCollector := metrics.NewMetrics("bilee_dashboard")
	tracerProvider := metrics.InitializeOpenTelemetry(serviceName, serviceVersion)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	healthChecker := health.NewChecker(serviceVersion, 3*time.Second)

	// Upstream API платежной платформы
	apiClient, err := api.NewClient(cfg.API.BaseURL, config.MustDuration(cfg.API.Timeout), appLogger, metricCollector)
	if err != nil {
		appLogger.Error("Failed to create api client", logger.Error(err))
		os.Exit(1)
	}

	// Redis необязателен: без него лимиты и каталоги хранятся в памяти процесса
	var sharedRedis *pkg_redis.Client
	var rateLimiter ratelimit.RateLimiter = ratelimit.NewLocalRateLimiter(10 * time.Minute)
	if cfg.Redis.Enabled {
		redisCtx, redisCancel := context.WithTimeout(ctx, 30*time.Second)
		redisClient, err := pkg_redis.Connect(redisCtx, pkg_redis.FromConfig(cfg.Redis))
		redisCancel()
		if err != nil {
			appLogger.Error("Failed to connect to redis after retries", logger.Error(err))
			os.Exit(1)
		}
		defer redisClient.Close()

		sharedRedis = redisClient
		rateLimiter = ratelimit.NewRedisRateLimiter(redisClient.Client)
		healthChecker.Register("redis", redisClient.HealthCheck)
		appLogger.Info("Redis connected", logger.String("addr", cfg.Redis.Addr))
	}

	// Аудит изменений уходит в RabbitMQ, если он включен
	var publisher events.Publisher = events.NopPublisher{}
	if cfg.RabbitMQ.Enabled {
		mqCtx, mqCancel := context.WithTimeout(ctx, 30*time.Second)
		mqConn, err := rabbitmq.Connect(mqCtx, rabbitmq.FromConfig(cfg.RabbitMQ))
		mqCancel()
		if err != nil {
			appLogger.Error("Failed to connect to rabbitmq after retries", logger.Error(err))
			os.Exit(1)
		}
		defer mqConn.Close()

		mqConfig := rabbitmq.FromConfig(cfg.RabbitMQ)
		publisher = events.NewRabbitPublisher(rabbitmq.NewProducer(mqConn, mqConfig), mqConfig.RoutingKey)
		healthChecker.Register("rabbitmq", func(context.Context) error {
			if mqConn.IsClosed() {
				return errors.New("connection closed")
			}
			return nil
		})
		appLogger.Info("RabbitMQ connected", logger.String("exchange", mqConfig.Exchange))
	}

	dispatcher := events.NewDispatcher(publisher, 256, 5*time.Second, appLogger)
	dispatched := make(chan struct{})
	go func() {
		dispatcher.Run(ctx)
		close(dispatched)
	}()

	// Сессии дашборда
	sessions := session.NewStore(apiClient, config.MustDuration(cfg.Session.IdleTimeout), appLogger, metricCollector)
	go sessions.Run(ctx, time.Minute)

	templates, err := httphandler.NewDefaultTemplateManager(amount.Russian, cfg.Session, appLogger)
	if err != nil {
		appLogger.Error("Failed to parse templates", logger.Error(err))
		os.Exit(1)
	}

	baseHandler := httphandler.NewHandler(httphandler.Deps{
		Backend:   apiClient,
		Session:   cfg.Session,
		Sessions:  sessions,
		Cache:     resource.NewCache(time.Minute, appLogger, metricCollector),
		Catalog:   resource.NewCatalog(apiClient, sharedRedis, config.MustDuration(cfg.Catalog.TTL), appLogger, metricCollector),
		Autosave:  form.SaverConfigFrom(cfg.Autosave),
		Events:    dispatcher,
		Templates: templates,
		Health:    healthChecker,
		Metrics:   metricCollector,
		Logger:    appLogger,
	})
	defer baseHandler.Close()

	rateRules := newRateRules(cfg)

	// Обертываем хендлер в middleware
	var httpHandler http.Handler = baseHandler
	httpHandler = middleware.SessionMiddleware(cfg.Session, apiClient, sessions, appLogger)(httpHandler)
	httpHandler = middleware.RateLimitMiddleware(rateLimiter, rateRules, appLogger)(httpHandler)
	httpHandler = middleware.CORSMiddleware([]string{cfg.Session.PublicURL}, appLogger)(httpHandler)
	httpHandler = middleware.RecoveryMiddleware(appLogger)(httpHandler)
	httpHandler = middleware.LoggingMiddleware(appLogger)(httpHandler)
	httpHandler = metricCollector.Middleware(httpHandler)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           httpHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Запуск сервера в отдельной горутине
	go func() {
		appLogger.Info("Starting dashboard server",
			logger.String("addr", server.Addr),
			logger.String("api", cfg.API.BaseURL))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed", logger.Error(err))
		}
	}()

	// Обработка сигналов для graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	<-c

	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server shutdown failed", logger.Error(err))
	}

	// Дожидаемся публикации событий из очереди и останавливаем фоновые задачи
	dispatcher.Close()
	select {
	case <-dispatched:
	case <-shutdownCtx.Done():
		appLogger.Warn("Audit queue was not drained before shutdown timeout")
	}
	stop()
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		appLogger.Warn("Tracer shutdown failed", logger.Error(err))
	}

	appLogger.Info("Server stopped")
}

// newRateRules задает лимиты для входа и регистрации и для оплаты
func newRateRules(cfg *config.Config) []middleware.RateRule {
	return []middleware.RateRule{
		{
			Name:   "auth",
			Match:  middleware.PostTo(cfg.Session.LoginPath, cfg.Session.RegisterPath),
			Limit:  cfg.RateLimiting.RequestsPerMinute,
			Window: time.Minute,
		},
		{
			Name:   "pay",
			Match:  middleware.PostWithSuffix("/pay"),
			Limit:  cfg.RateLimiting.CheckoutPerMinute,
			Window: time.Minute,
		},
	}
}
