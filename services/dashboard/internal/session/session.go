package session

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"BileePlatform/pkg/errors"
	"BileePlatform/services/dashboard/internal/api"
)

// ErrUnauthenticated возвращается, когда обновить токен не удалось.
// Страницы превращают ее в перенаправление на вход.
var ErrUnauthenticated = errors.New(errors.ErrUnauthorized, "session: not authenticated")

// Refresher обменивает refresh cookie на новый токен доступа
type Refresher interface {
	RefreshTokens(ctx context.Context, cookie string) (*api.RefreshResult, error)
}

// Session хранит токен и cookie мерчанта для работы, которая переживает запрос
// (отложенное автосохранение). Безопасна для конкурентного использования.
type Session struct {
	refresher Refresher
	group     singleflight.Group

	mu     sync.Mutex
	token  string
	cookie string
}

// New создает сессию с начальным токеном и заголовком Cookie
func New(refresher Refresher, token, cookie string) *Session {
	return &Session{refresher: refresher, token: token, cookie: cookie}
}

// AccessToken возвращает закешированный токен. Пустой слот заполняется одним
// обновлением, параллельные вызовы ждут его результата.
func (s *Session) AccessToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	token := s.token
	s.mu.Unlock()
	if token != "" {
		return token, nil
	}

	ch := s.group.DoChan("refresh", func() (interface{}, error) {
		// Обновление не должно прерываться отменой первого вызвавшего
		return s.refresh(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (s *Session) refresh(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.token != "" {
		token := s.token
		s.mu.Unlock()
		return token, nil
	}
	cookie := s.cookie
	s.mu.Unlock()

	res, err := s.refresher.RefreshTokens(ctx, cookie)
	if err != nil {
		return "", err
	}
	if !res.OK() {
		return "", ErrUnauthenticated
	}

	s.mu.Lock()
	s.token = res.AccessToken
	s.cookie = MergeCookies(s.cookie, res.SetCookies)
	s.mu.Unlock()

	return res.AccessToken, nil
}

// Update заменяет токен и cookie данными свежего запроса
func (s *Session) Update(token, cookie string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token != "" {
		s.token = token
	}
	if cookie != "" {
		s.cookie = cookie
	}
}

// Expire сбрасывает только токен: следующий вызов AccessToken выполнит обновление
func (s *Session) Expire() {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
}

// Clear забывает токен и cookie (выход из кабинета)
func (s *Session) Clear() {
	s.mu.Lock()
	s.token = ""
	s.cookie = ""
	s.mu.Unlock()
}

// Cookie возвращает сохраненный заголовок Cookie
func (s *Session) Cookie() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cookie
}

// MergeCookies применяет заголовки Set-Cookie к заголовку Cookie.
// Истекшие cookie удаляются, порядок остальных сохраняется.
func MergeCookies(header string, setCookies []string) string {
	cookies, err := http.ParseCookie(header)
	if err != nil {
		cookies = nil
	}

	for _, line := range setCookies {
		sc, err := http.ParseSetCookie(line)
		if err != nil {
			continue
		}
		expired := sc.MaxAge < 0 || (!sc.Expires.IsZero() && sc.Expires.Unix() <= 0)

		idx := -1
		for i, c := range cookies {
			if c.Name == sc.Name {
				idx = i
				break
			}
		}

		switch {
		case expired && idx >= 0:
			cookies = append(cookies[:idx], cookies[idx+1:]...)
		case expired:
		case idx >= 0:
			cookies[idx].Value = sc.Value
		default:
			cookies = append(cookies, &http.Cookie{Name: sc.Name, Value: sc.Value})
		}
	}

	parts := make([]string, 0, len(cookies))
	for _, c := range cookies {
		parts = append(parts, c.Name+"="+c.Value)
	}
	return strings.Join(parts, "; ")
}
