package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestChecker_NoProbes проверяет статус без зарегистрированных зависимостей
func TestChecker_NoProbes(t *testing.T) {
	checker := NewChecker("v1.0.0", time.Second)
	status := checker.Check(context.Background())

	require.NotNil(t, status)
	assert.Equal(t, "healthy", status.Status)
	assert.False(t, status.Timestamp.IsZero())
	assert.Equal(t, "v1.0.0", status.Version)
	assert.Empty(t, status.Services)
}

// TestChecker_FailingProbe проверяет статус при недоступной зависимости
func TestChecker_FailingProbe(t *testing.T) {
	checker := NewChecker("v1.0.0", time.Second)
	checker.Register("redis", func(ctx context.Context) error { return errors.New("connection refused") })
	checker.Register("api", func(ctx context.Context) error { return nil })

	status := checker.Check(context.Background())
	assert.Equal(t, "unhealthy", status.Status)
	assert.Equal(t, "down", status.Services["redis"].Status)
	assert.Equal(t, "connection refused", status.Services["redis"].Details)
	assert.Equal(t, "up", status.Services["api"].Status)
}

// TestChecker_ProbeTimeout проверяет, что проверка получает контекст с таймаутом
func TestChecker_ProbeTimeout(t *testing.T) {
	checker := NewChecker("v1.0.0", 10*time.Millisecond)
	checker.Register("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	status := checker.Check(context.Background())
	assert.Equal(t, "unhealthy", status.Status)
}

// TestHandler проверяет HTTP обработчик
func TestHandler(t *testing.T) {
	handler := Handler(NewChecker("v1.0.0", time.Second))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var status HealthStatus
	require.NoError(t, json.NewDecoder(w.Body).Decode(&status))
	assert.Equal(t, "healthy", status.Status)
}

// TestReadyHandler проверяет готовность с учетом зависимостей
func TestReadyHandler(t *testing.T) {
	checker := NewChecker("v1.0.0", time.Second)
	handler := ReadyHandler(checker)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ready"`)

	checker.Register("redis", func(ctx context.Context) error { return errors.New("down") })
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"not_ready"`)
}

// TestLiveHandler проверяет live check
func TestLiveHandler(t *testing.T) {
	w := httptest.NewRecorder()
	LiveHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/live", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"alive"`)
}
