package middleware

import (
	"net/http"
	"runtime/debug"

	"BileePlatform/pkg/errors"
	"BileePlatform/pkg/logger"
)

// RecoveryMiddleware перехватывает панику обработчика и отвечает 500
func RecoveryMiddleware(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				log.Error("паника в HTTP обработчике",
					logger.CtxField(r.Context()),
					logger.Any("panic", rec),
					logger.String("stack_trace", string(debug.Stack())),
					logger.String("method", r.Method),
					logger.String("path", r.URL.Path))

				errors.WriteJSON(w, errors.New(errors.ErrInternal, "panic recovered"))
			}()

			next.ServeHTTP(w, r)
		})
	}
}
