package api

import (
	"context"
	"net/http"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshTokens обновляет токен доступа по refresh cookie.
// Успехом считается наличие access_token в ответе, независимо от success.
func (c *Client) RefreshTokens(ctx context.Context, cookie string) (*RefreshResult, error) {
	resp, err := c.Do(ctx, http.MethodPost, "auth/refresh-tokens", nil,
		WithCookie(cookie), WithEndpoint("auth.refresh_tokens"))
	if err != nil {
		return nil, err
	}

	return &RefreshResult{
		AccessToken: resp.Get("access_token").String(),
		SetCookies:  resp.SetCookies(),
	}, nil
}

// LoginEmail выполняет вход по почте и паролю
func (c *Client) LoginEmail(ctx context.Context, email, password, cookie string) (*AuthResult, error) {
	return c.authenticate(ctx, "auth/login/email", "auth.login_email", email, password, cookie)
}

// RegisterEmail регистрирует мерчанта по почте и паролю
func (c *Client) RegisterEmail(ctx context.Context, email, password, cookie string) (*AuthResult, error) {
	return c.authenticate(ctx, "auth/register/email", "auth.register_email", email, password, cookie)
}

func (c *Client) authenticate(ctx context.Context, path, endpoint, email, password, cookie string) (*AuthResult, error) {
	resp, err := c.Do(ctx, http.MethodPost, path, credentials{Email: email, Password: password},
		WithCookie(cookie), WithEndpoint(endpoint))
	if err != nil {
		return nil, err
	}

	token := resp.Get("access_token").String()
	if token == "" {
		return nil, resp.APIError()
	}

	return &AuthResult{AccessToken: token, SetCookies: resp.SetCookies()}, nil
}

// Logout завершает сессию upstream. Возвращает заголовки Set-Cookie ответа.
func (c *Client) Logout(ctx context.Context, token, cookie string) ([]string, error) {
	resp, err := c.Do(ctx, http.MethodPost, "auth/logout", nil,
		WithToken(token), WithCookie(cookie), WithEndpoint("auth.logout"))
	if err != nil {
		return nil, err
	}
	return resp.SetCookies(), nil
}

// Me возвращает текущего мерчанта
func (c *Client) Me(ctx context.Context, token string) (*User, error) {
	var user User
	if _, err := c.call(ctx, http.MethodGet, "user/me", nil, "result", &user,
		WithToken(token), WithEndpoint("user.me")); err != nil {
		return nil, err
	}
	return &user, nil
}
