package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"BileePlatform/pkg/logger"
)

// TraceHeader заголовок ответа с идентификатором запроса
const TraceHeader = "X-Trace-ID"

// LoggingMiddleware логирует все HTTP запросы и выдает каждому trace_id
func LoggingMiddleware(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			traceID := uuid.NewString()
			r = r.WithContext(logger.WithTraceID(r.Context(), traceID))
			w.Header().Set(TraceHeader, traceID)

			logFields := []logger.Field{
				logger.String("method", r.Method),
				logger.String("path", r.URL.Path),
				logger.String("remote_addr", r.RemoteAddr),
				logger.String("user_agent", r.UserAgent()),
				logger.String("trace_id", traceID),
			}

			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			logFields = append(logFields,
				logger.Int("status_code", wrapped.statusCode),
				logger.Duration("duration", time.Since(start)))

			if wrapped.statusCode >= http.StatusInternalServerError {
				log.Error("запрос завершился ошибкой", logFields...)
				return
			}
			log.Info("запрос обработан", logFields...)
		})
	}
}

// responseWriter обертка для перехвата статуса ответа
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

// WriteHeader перехватывает установку статуса
func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

// Unwrap открывает исходный ResponseWriter для http.ResponseController
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
