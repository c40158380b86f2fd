package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// TelegramUser ищет покупателя проекта по Telegram ID
func (c *Client) TelegramUser(ctx context.Context, projectID int64, telegramID string) (*TelegramUser, error) {
	var user TelegramUser
	_, err := c.call(ctx, http.MethodGet, fmt.Sprintf("telegram/user/%d/%s", projectID, url.PathEscape(telegramID)), nil, "user", &user,
		WithEndpoint("telegram.user"))
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateTransaction создает транзакцию и возвращает ссылку на оплату у провайдера
func (c *Client) CreateTransaction(ctx context.Context, data TransactionData) (*TransactionResponse, error) {
	resp, err := c.call(ctx, http.MethodPost, "transaction/create", data, "", nil,
		WithEndpoint("transaction.create"))
	if err != nil {
		return nil, err
	}
	return &TransactionResponse{URL: resp.Get("url").String()}, nil
}
