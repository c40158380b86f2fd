package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// MyProjects возвращает проекты мерчанта
func (c *Client) MyProjects(ctx context.Context, token string) ([]Project, error) {
	var projects []Project
	if _, err := c.call(ctx, http.MethodGet, "project/my", nil, "result", &projects,
		WithToken(token), WithEndpoint("project.my")); err != nil {
		return nil, err
	}
	return projects, nil
}

// CreateProject создает проект
func (c *Client) CreateProject(ctx context.Context, token string, req ProjectCreate) (*Project, error) {
	var project Project
	if _, err := c.call(ctx, http.MethodPost, "project/create", req, "result", &project,
		WithToken(token), WithEndpoint("project.create")); err != nil {
		return nil, err
	}
	return &project, nil
}

// UpdateProject частично обновляет проект
func (c *Client) UpdateProject(ctx context.Context, token string, projectID int64, req ProjectUpdate) error {
	_, err := c.call(ctx, http.MethodPost, fmt.Sprintf("project/%d/update", projectID), req, "", nil,
		WithToken(token), WithEndpoint("project.update"))
	return err
}

// DeleteProject удаляет проект
func (c *Client) DeleteProject(ctx context.Context, token string, projectID int64) error {
	_, err := c.call(ctx, http.MethodDelete, fmt.Sprintf("project/%d", projectID), nil, "", nil,
		WithToken(token), WithEndpoint("project.delete"))
	return err
}

// ProjectInfoByLink возвращает публичную информацию проекта для страницы оплаты.
// Поля проекта приходят на верхнем уровне конверта.
func (c *Client) ProjectInfoByLink(ctx context.Context, link string) (*Project, error) {
	var project Project
	if _, err := c.call(ctx, http.MethodGet, "project/info/ulk/"+url.PathEscape(link), nil, "", &project,
		WithEndpoint("project.info")); err != nil {
		return nil, err
	}
	return &project, nil
}
