package api

import (
	"context"
	"fmt"
	"net/http"
)

type apiKeyCreate struct {
	Name string `json:"name"`
}

// CreateAPIKey выпускает ключ API. Полный ключ возвращается только здесь.
func (c *Client) CreateAPIKey(ctx context.Context, token string, projectID int64, name string) (*IssuedKey, error) {
	resp, err := c.call(ctx, http.MethodPost, fmt.Sprintf("project/%d/token/create", projectID), apiKeyCreate{Name: name}, "", nil,
		WithToken(token), WithEndpoint("project.token_create"))
	if err != nil {
		return nil, err
	}
	return &IssuedKey{Name: name, Token: resp.Get("token").String()}, nil
}

// RefreshAPIKey перевыпускает ключ API
func (c *Client) RefreshAPIKey(ctx context.Context, token string, projectID int64) (string, error) {
	resp, err := c.call(ctx, http.MethodPost, fmt.Sprintf("project/%d/token/refresh", projectID), nil, "", nil,
		WithToken(token), WithEndpoint("project.token_refresh"))
	if err != nil {
		return "", err
	}
	return resp.Get("token").String(), nil
}

// GetAPIKey возвращает маскированный ключ проекта или nil, если ключ не выпущен.
// Пустой объект в ответе означает отсутствие ключа.
func (c *Client) GetAPIKey(ctx context.Context, token string, projectID int64) (*ApiKey, error) {
	resp, err := c.call(ctx, http.MethodGet, fmt.Sprintf("project/%d/token", projectID), nil, "", nil,
		WithToken(token), WithEndpoint("project.token_get"))
	if err != nil {
		return nil, err
	}

	obj := resp.Get("result")
	if !obj.Exists() {
		obj = resp.Get("@this")
	}
	name := obj.Get("name").String()
	if name == "" {
		return nil, nil
	}
	return &ApiKey{Name: name, ProtectedToken: obj.Get("protected_token").String()}, nil
}

// DeleteAPIKey отзывает ключ API
func (c *Client) DeleteAPIKey(ctx context.Context, token string, projectID int64) error {
	_, err := c.call(ctx, http.MethodDelete, fmt.Sprintf("project/%d/token", projectID), nil, "", nil,
		WithToken(token), WithEndpoint("project.token_delete"))
	return err
}
