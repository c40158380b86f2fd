package middleware

import (
	"net/http"
	"slices"
	"strings"

	"BileePlatform/pkg/logger"
)

// CORSMiddleware настраивает CORS заголовки для JSON эндпоинтов
func CORSMiddleware(allowedOrigins []string, log logger.Logger) func(http.Handler) http.Handler {
	allowAll := slices.Contains(allowedOrigins, "*")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" {
				if allowAll || slices.Contains(allowedOrigins, origin) {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Allow-Credentials", "true")
					w.Header().Add("Vary", "Origin")
				} else {
					log.Warn("CORS источник не разрешен",
						logger.String("origin", origin),
						logger.String("allowed_origins", strings.Join(allowedOrigins, ",")))
				}
			}

			if r.Method == http.MethodOptions && origin != "" {
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Requested-With")
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
