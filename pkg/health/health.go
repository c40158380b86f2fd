package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"
)

// HealthChecker интерфейс для проверки здоровья сервиса
type HealthChecker interface {
	Check(ctx context.Context) *HealthStatus
}

// HealthStatus представляет статус здоровья сервиса
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]Status `json:"services,omitempty"`
	Version   string            `json:"version,omitempty"`
}

// Status представляет статус зависимости
type Status struct {
	Status  string `json:"status"`
	Details string `json:"details,omitempty"`
}

// Probe проверяет одну зависимость (например, ping Redis)
type Probe func(ctx context.Context) error

// Checker проверяет зарегистрированные зависимости
type Checker struct {
	version string
	timeout time.Duration

	mu     sync.RWMutex
	probes map[string]Probe
}

// NewChecker создает Checker с таймаутом на каждую проверку
func NewChecker(version string, timeout time.Duration) *Checker {
	return &Checker{
		version: version,
		timeout: timeout,
		probes:  make(map[string]Probe),
	}
}

// Register добавляет проверку зависимости
func (c *Checker) Register(name string, probe Probe) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.probes[name] = probe
}

// Check выполняет все проверки. Статус "unhealthy", если хотя бы одна упала.
func (c *Checker) Check(ctx context.Context) *HealthStatus {
	c.mu.RLock()
	names := make([]string, 0, len(c.probes))
	for name := range c.probes {
		names = append(names, name)
	}
	c.mu.RUnlock()
	sort.Strings(names)

	status := &HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   c.version,
	}
	if len(names) == 0 {
		return status
	}

	status.Services = make(map[string]Status, len(names))
	for _, name := range names {
		c.mu.RLock()
		probe := c.probes[name]
		c.mu.RUnlock()

		probeCtx, cancel := context.WithTimeout(ctx, c.timeout)
		err := probe(probeCtx)
		cancel()

		if err != nil {
			status.Status = "unhealthy"
			status.Services[name] = Status{Status: "down", Details: err.Error()}
			continue
		}
		status.Services[name] = Status{Status: "up"}
	}

	return status
}

// Handler создает HTTP обработчик для health check эндпоинта
func Handler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, checker.Check(r.Context()))
	}
}

// ReadyHandler возвращает 200, если все зависимости доступны, иначе 503
func ReadyHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := checker.Check(r.Context())
		if status.Status != "healthy" {
			writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
				"status":   "not_ready",
				"services": status.Services,
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// LiveHandler создает HTTP обработчик для live check эндпоинта
// Возвращает 200 если сервис жив
func LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
