package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Metrics представляет систему метрик дашборда
type Metrics struct {
	// HTTP метрики входящих запросов
	RequestCount    *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ErrorsCount     *prometheus.CounterVec

	// Метрики взаимодействия с upstream API и кешами
	UpstreamRequests *prometheus.CounterVec
	UpstreamDuration *prometheus.HistogramVec
	CacheLookups     *prometheus.CounterVec

	// Метрики автосохранения и сессий
	AutosaveSaves  *prometheus.CounterVec
	ActiveSessions prometheus.Gauge

	// OpenTelemetry Tracer
	Tracer trace.Tracer `json:"-"`
}

// NewMetrics создает новую систему метрик.
// Повторный вызов с тем же именем сервиса возвращает уже зарегистрированные коллекторы.
func NewMetrics(serviceName string) *Metrics {
	namespace := strings.ReplaceAll(serviceName, "-", "_")

	requestCount := register(prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	))

	requestDuration := register(prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	))

	errorsCount := register(prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "errors_total",
			Help:      "Total number of HTTP errors",
		},
		[]string{"method", "endpoint", "error_type"},
	))

	upstreamRequests := register(prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "requests_total",
			Help:      "Total number of upstream API requests by outcome",
		},
		[]string{"endpoint", "outcome"},
	))

	upstreamDuration := register(prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "request_duration_seconds",
			Help:      "Duration of upstream API requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	))

	cacheLookups := register(prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Resource cache lookups by result",
		},
		[]string{"resource", "result"},
	))

	autosaveSaves := register(prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "autosave",
			Name:      "saves_total",
			Help:      "Autosave attempts by field and outcome",
		},
		[]string{"field", "outcome"},
	))

	activeSessions := register(prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "active",
			Help:      "Number of live dashboard sessions",
		},
	))

	return &Metrics{
		RequestCount:     requestCount,
		RequestDuration:  requestDuration,
		ErrorsCount:      errorsCount,
		UpstreamRequests: upstreamRequests,
		UpstreamDuration: upstreamDuration,
		CacheLookups:     cacheLookups,
		AutosaveSaves:    autosaveSaves,
		ActiveSessions:   activeSessions,
		Tracer:           otel.Tracer(serviceName),
	}
}

// register регистрирует коллектор и возвращает уже существующий при повторной регистрации
func register[C prometheus.Collector](c C) C {
	if err := prometheus.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// GetHandler возвращает HTTP обработчик для эндпоинта /metrics
func (m *Metrics) GetHandler() http.Handler {
	return promhttp.Handler()
}

// ObserveUpstream учитывает запрос к upstream API
func (m *Metrics) ObserveUpstream(endpoint, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.UpstreamRequests.WithLabelValues(endpoint, outcome).Inc()
	m.UpstreamDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// ObserveCache учитывает обращение к кешу ресурсов (hit, miss, shared)
func (m *Metrics) ObserveCache(resource, result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(resource, result).Inc()
}

// ObserveAutosave учитывает попытку автосохранения поля
func (m *Metrics) ObserveAutosave(field, outcome string) {
	if m == nil {
		return
	}
	m.AutosaveSaves.WithLabelValues(field, outcome).Inc()
}

// Middleware создает middleware для сбора метрик
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := m.Tracer.Start(r.Context(), r.Method+" "+r.URL.Path)
		defer span.End()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		start := time.Now()

		req := r.WithContext(ctx)
		next.ServeHTTP(wrapped, req)

		duration := time.Since(start).Seconds()
		// ServeMux записывает шаблон маршрута в переданный ему запрос
		endpoint := req.Pattern
		if endpoint == "" {
			endpoint = "unmatched"
		}

		m.RequestCount.WithLabelValues(r.Method, endpoint, fmt.Sprintf("%d", wrapped.statusCode)).Inc()
		m.RequestDuration.WithLabelValues(r.Method, endpoint).Observe(duration)

		if wrapped.statusCode >= 400 {
			errorType := "client_error"
			if wrapped.statusCode >= 500 {
				errorType = "server_error"
			}
			m.ErrorsCount.WithLabelValues(r.Method, endpoint, errorType).Inc()
		}

		span.SetAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", endpoint),
			attribute.Int("http.status_code", wrapped.statusCode),
			attribute.Float64("http.duration", duration),
		)
	})
}

// responseWriter обертка для перехвата статуса ответа
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

// WriteHeader перехватывает установку статуса
func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// InitializeOpenTelemetry устанавливает глобальный провайдер трассировки
func InitializeOpenTelemetry(serviceName, version string) *tracesdk.TracerProvider {
	tp := tracesdk.NewTracerProvider(
		tracesdk.WithSampler(tracesdk.AlwaysSample()),
		tracesdk.WithResource(resource.NewSchemaless(
			attribute.String("service.name", serviceName),
			attribute.String("service.version", version),
		)),
	)

	otel.SetTracerProvider(tp)

	return tp
}
