package api

import (
	"context"
	"fmt"
	"net/http"
)

// AvailableMethods возвращает включенные способы оплаты проекта (публичный эндпоинт)
func (c *Client) AvailableMethods(ctx context.Context, projectID int64) ([]PaymentMethod, error) {
	var methods []PaymentMethod
	if _, err := c.call(ctx, http.MethodGet, fmt.Sprintf("payment-method/%d/available", projectID), nil, "result", &methods,
		WithEndpoint("payment_method.available")); err != nil {
		return nil, err
	}
	return methods, nil
}

// Methods возвращает все способы оплаты проекта
func (c *Client) Methods(ctx context.Context, token string, projectID int64) ([]PaymentMethod, error) {
	var methods []PaymentMethod
	if _, err := c.call(ctx, http.MethodGet, fmt.Sprintf("payment-method/%d/methods", projectID), nil, "result", &methods,
		WithToken(token), WithEndpoint("payment_method.list")); err != nil {
		return nil, err
	}
	return methods, nil
}

// CreateMethod создает способ оплаты
func (c *Client) CreateMethod(ctx context.Context, token string, projectID int64, req PaymentMethodCreate) (*PaymentMethod, error) {
	var method PaymentMethod
	if _, err := c.call(ctx, http.MethodPost, fmt.Sprintf("payment-method/%d/create", projectID), req, "result", &method,
		WithToken(token), WithEndpoint("payment_method.create")); err != nil {
		return nil, err
	}
	return &method, nil
}

// UpdateMethod обновляет способ оплаты
func (c *Client) UpdateMethod(ctx context.Context, token string, projectID, methodID int64, req PaymentMethodCreate) error {
	_, err := c.call(ctx, http.MethodPost, fmt.Sprintf("payment-method/%d/%d/update", projectID, methodID), req, "", nil,
		WithToken(token), WithEndpoint("payment_method.update"))
	return err
}

// DeleteMethod удаляет способ оплаты
func (c *Client) DeleteMethod(ctx context.Context, token string, projectID, methodID int64) error {
	_, err := c.call(ctx, http.MethodDelete, fmt.Sprintf("payment-method/%d/%d", projectID, methodID), nil, "", nil,
		WithToken(token), WithEndpoint("payment_method.delete"))
	return err
}

// UpdatePositions сохраняет порядок всех способов оплаты одним запросом
func (c *Client) UpdatePositions(ctx context.Context, token string, projectID int64, positions []Position) error {
	_, err := c.call(ctx, http.MethodPost, fmt.Sprintf("payment-method/%d/update-position", projectID), positions, "", nil,
		WithToken(token), WithEndpoint("payment_method.update_position"))
	return err
}

// Icons возвращает каталог иконок
func (c *Client) Icons(ctx context.Context, token string) ([]Icon, error) {
	var icons []Icon
	if _, err := c.call(ctx, http.MethodGet, "payment-method/icons", nil, "result", &icons,
		WithToken(token), WithEndpoint("payment_method.icons")); err != nil {
		return nil, err
	}
	return icons, nil
}

// PaymentSystems возвращает каталог доступных платежных систем
func (c *Client) PaymentSystems(ctx context.Context, token string) ([]PaymentSystem, error) {
	var systems []PaymentSystem
	if _, err := c.call(ctx, http.MethodGet, "payment-system/available", nil, "result", &systems,
		WithToken(token), WithEndpoint("payment_system.available")); err != nil {
		return nil, err
	}
	return systems, nil
}
