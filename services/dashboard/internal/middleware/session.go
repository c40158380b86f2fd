package middleware

import (
	"net/http"
	"strings"
	"time"

	"BileePlatform/pkg/config"
	"BileePlatform/pkg/logger"
	"BileePlatform/services/dashboard/internal/session"
)

// SessionMiddleware достает токен доступа для путей личного кабинета.
//
// Порядок:
//  1. Одноразовая cookie передачи токена: токен кладется в контекст, cookie удаляется.
//  2. Иначе токен обновляется по cookie браузера.
//  3. Страницы входа и регистрации: без токена открываются анонимно,
//     с токеном перенаправляют в кабинет.
//  4. Остальные страницы кабинета: без токена перенаправляют на вход.
func SessionMiddleware(cfg config.SessionConfig, refresher session.Refresher, store *session.Store, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			if !matchPath(path, cfg.DashboardPrefix) {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			sid := sessionID(w, r, cfg)
			ctx = session.WithID(ctx, sid)
			cookieHeader := r.Header.Get("Cookie")

			if handoff, err := r.Cookie(cfg.HandoffCookie); err == nil && handoff.Value != "" {
				token := strings.Trim(handoff.Value, `"`)
				http.SetCookie(w, expiredCookie(cfg.HandoffCookie))
				store.Touch(sid, token, cookieHeader)

				next.ServeHTTP(w, r.WithContext(session.WithAccessToken(ctx, token)))
				return
			}

			res, err := refresher.RefreshTokens(ctx, cookieHeader)
			if err != nil {
				log.Warn("не удалось обновить токен доступа",
					logger.CtxField(ctx),
					logger.String("path", path),
					logger.Error(err))
			}
			authenticated := err == nil && res.OK()

			if IsAuthPage(path, cfg) {
				if !authenticated {
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
				RedirectWithToken(w, cfg, res.AccessToken, res.SetCookies)
				return
			}

			if !authenticated {
				http.Redirect(w, r, cfg.PublicURL+cfg.LoginPath, http.StatusFound)
				return
			}

			for _, c := range res.SetCookies {
				w.Header().Add("Set-Cookie", c)
			}
			store.Touch(sid, res.AccessToken, session.MergeCookies(cookieHeader, res.SetCookies))

			next.ServeHTTP(w, r.WithContext(session.WithAccessToken(ctx, res.AccessToken)))
		})
	}
}

// RedirectWithToken отвечает 302 в кабинет, передавая токен одноразовой cookie
// и пробрасывая Set-Cookie upstream
func RedirectWithToken(w http.ResponseWriter, cfg config.SessionConfig, token string, setCookies []string) {
	SetHandoff(w, cfg, token, setCookies)
	w.Header().Set("Location", cfg.PublicURL+cfg.DashboardPrefix)
	w.WriteHeader(http.StatusFound)
}

// SetHandoff выставляет одноразовую cookie с токеном и заголовки Set-Cookie upstream
func SetHandoff(w http.ResponseWriter, cfg config.SessionConfig, token string, setCookies []string) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.HandoffCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	for _, c := range setCookies {
		w.Header().Add("Set-Cookie", c)
	}
}

// IsAuthPage сообщает, относится ли путь к входу или регистрации
func IsAuthPage(path string, cfg config.SessionConfig) bool {
	return matchPath(path, cfg.LoginPath) || matchPath(path, cfg.RegisterPath)
}

// matchPath проверяет совпадение пути с префиксом по границе сегмента
func matchPath(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// sessionID читает идентификатор сессии дашборда или выдает новый
func sessionID(w http.ResponseWriter, r *http.Request, cfg config.SessionConfig) string {
	if c, err := r.Cookie(cfg.SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	return IssueSessionID(w, cfg)
}

// IssueSessionID выдает новый идентификатор сессии дашборда
func IssueSessionID(w http.ResponseWriter, cfg config.SessionConfig) string {
	id := session.NewID()
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func expiredCookie(name string) *http.Cookie {
	return &http.Cookie{
		Name:    name,
		Value:   "",
		Path:    "/",
		Expires: time.Unix(0, 0),
		MaxAge:  -1,
	}
}
