package middleware

import (
	"net"
	"net/http"
	"strings"
	"time"

	"BileePlatform/pkg/errors"
	"BileePlatform/pkg/logger"
	"BileePlatform/pkg/ratelimit"
)

// RateRule ограничение частоты для части маршрутов
type RateRule struct {
	Name   string
	Match  func(r *http.Request) bool
	Limit  int
	Window time.Duration
}

// PostTo возвращает предикат для POST запросов на один из путей
func PostTo(paths ...string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		if r.Method != http.MethodPost {
			return false
		}
		for _, p := range paths {
			if r.URL.Path == p {
				return true
			}
		}
		return false
	}
}

// PostWithSuffix возвращает предикат для POST запросов, путь которых оканчивается на suffix
func PostWithSuffix(suffix string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		return r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, suffix)
	}
}

// RateLimitMiddleware ограничивает частоту запросов по IP для каждого правила.
// Ошибка лимитера пропускает запрос.
func RateLimitMiddleware(limiter ratelimit.RateLimiter, rules []RateRule, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, rule := range rules {
				if !rule.Match(r) {
					continue
				}

				key := "rl:" + rule.Name + ":" + clientIP(r)
				exceeded, err := limiter.CheckRateLimit(r.Context(), key, rule.Limit, rule.Window)
				if err != nil {
					log.Error("ошибка rate limiter, запрос пропущен",
						logger.CtxField(r.Context()),
						logger.Error(err),
						logger.String("key", key))
					continue
				}

				if exceeded {
					log.Warn("превышен лимит запросов",
						logger.CtxField(r.Context()),
						logger.String("key", key),
						logger.Int("limit", rule.Limit),
						logger.Duration("window", rule.Window))
					errors.WriteJSON(w, errors.New(errors.ErrTooManyRequests, "rate limit exceeded"))
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP извлекает IP адрес клиента
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
