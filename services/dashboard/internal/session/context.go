package session

import "context"

type ctxKey int

const (
	accessTokenKey ctxKey = iota
	sessionIDKey
)

// WithAccessToken сохраняет токен доступа в контексте запроса.
// Записывает его только SessionMiddleware.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, accessTokenKey, token)
}

// AccessToken возвращает токен доступа текущего запроса
func AccessToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(accessTokenKey).(string)
	return token, ok && token != ""
}

// WithID сохраняет идентификатор сессии дашборда в контексте
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey, id)
}

// ID возвращает идентификатор сессии дашборда
func ID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDKey).(string)
	return id, ok && id != ""
}
