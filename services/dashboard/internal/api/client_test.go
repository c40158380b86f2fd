package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BileePlatform/pkg/errors"
	"BileePlatform/pkg/logger"
)

// newTestClient поднимает httptest сервер вместо upstream API
func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL+"/api/v1", 2*time.Second, logger.NewNop(), nil)
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// TestDo_JoinsBaseURLAndHeaders проверяет сборку URL и заголовков запроса
func TestDo_JoinsBaseURLAndHeaders(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/user/me", r.URL.Path)
		assert.Equal(t, "tok", r.Header.Get("Authorization"))
		assert.Equal(t, "refresh=abc", r.Header.Get("Cookie"))
		writeJSON(w, map[string]interface{}{"success": true, "result": map[string]interface{}{"id": 7, "email": "a@b.co"}})
	})

	resp, err := c.Do(context.Background(), http.MethodGet, "/user/me", nil, WithToken("tok"), WithCookie("refresh=abc"))
	require.NoError(t, err)
	assert.True(t, resp.Success())
	assert.Equal(t, int64(7), resp.Get("result.id").Int())
}

// TestDo_NeverFailsOnStatus проверяет, что HTTP статус не превращается в ошибку
func TestDo_NeverFailsOnStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		writeJSON(w, map[string]interface{}{"success": false, "error": map[string]string{"code": "LINK_EXISTS", "user_message": "занято"}})
	})

	resp, err := c.Do(context.Background(), http.MethodPost, "project/create", ProjectCreate{Link: "shop"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.False(t, resp.Success())

	apiErr := resp.APIError()
	assert.Equal(t, errors.ErrLinkExists, apiErr.Code)
	assert.Equal(t, "занято", apiErr.GetUserMessage())
}

// TestDo_TransportError проверяет ошибку при отсутствии ответа
func TestDo_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := NewClient(url, time.Second, logger.NewNop(), nil)
	require.NoError(t, err)

	_, err = c.Do(context.Background(), http.MethodGet, "user/me", nil)
	require.Error(t, err)
	assert.Equal(t, errors.ErrTransport, errors.CodeOf(err))
}

// TestRefreshTokens проверяет обновление токена и проброс Set-Cookie
func TestRefreshTokens(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/auth/refresh-tokens", r.URL.Path)
		if r.Header.Get("Cookie") != "refresh=ok" {
			writeJSON(w, map[string]interface{}{"success": false})
			return
		}
		w.Header().Add("Set-Cookie", "refresh=rotated; Path=/; HttpOnly")
		writeJSON(w, map[string]interface{}{"success": true, "access_token": "new-token"})
	})

	res, err := c.RefreshTokens(context.Background(), "refresh=ok")
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Equal(t, "new-token", res.AccessToken)
	assert.Equal(t, []string{"refresh=rotated; Path=/; HttpOnly"}, res.SetCookies)

	res, err = c.RefreshTokens(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, res.OK())
}

// TestLoginEmail_InvalidCreds проверяет бизнес-ошибку входа
func TestLoginEmail_InvalidCreds(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body credentials
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body.Password == "right" {
			writeJSON(w, map[string]interface{}{"success": true, "access_token": "t"})
			return
		}
		writeJSON(w, map[string]interface{}{"success": false, "error": map[string]string{"code": "INVALID_LOGIN_CREDS"}})
	})

	_, err := c.LoginEmail(context.Background(), "a@b.co", "wrong", "")
	assert.Equal(t, errors.ErrInvalidLoginCreds, errors.CodeOf(err))

	res, err := c.LoginEmail(context.Background(), "a@b.co", "right", "")
	require.NoError(t, err)
	assert.Equal(t, "t", res.AccessToken)
}

// TestProjects проверяет разбор списка проектов и публичной информации
func TestProjects(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/project/my":
			writeJSON(w, map[string]interface{}{"success": true, "result": []map[string]interface{}{
				{"id": 1, "name": "Shop", "link": "shop", "url": "https://t.me/shop_bot"},
			}})
		case "/api/v1/project/info/ulk/shop":
			writeJSON(w, map[string]interface{}{"success": true, "id": 1, "name": "Shop", "link": "shop"})
		case "/api/v1/project/1/update":
			body, _ := io.ReadAll(r.Body)
			assert.JSONEq(t, `{"footer_text":"Спасибо!"}`, string(body))
			writeJSON(w, map[string]interface{}{"success": true})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})
	ctx := context.Background()

	projects, err := c.MyProjects(ctx, "tok")
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "shop_bot", projects[0].BotUsername())

	info, err := c.ProjectInfoByLink(ctx, "shop")
	require.NoError(t, err)
	assert.Equal(t, int64(1), info.ID)

	footer := "Спасибо!"
	require.NoError(t, c.UpdateProject(ctx, "tok", 1, ProjectUpdate{FooterText: &footer}))
}

// TestUpdatePositions проверяет, что порядок отправляется одним массивом
func TestUpdatePositions(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/payment-method/3/update-position", r.URL.Path)
		var positions []Position
		require.NoError(t, json.NewDecoder(r.Body).Decode(&positions))
		assert.Len(t, positions, 2)
		assert.True(t, positions[0].Primary)
		writeJSON(w, map[string]interface{}{"success": true})
	})

	err := c.UpdatePositions(context.Background(), "tok", 3, []Position{
		{ID: 10, PositionIndex: 1, Primary: true},
		{ID: 11, PositionIndex: 2},
	})
	require.NoError(t, err)
}

// TestAPIKeys проверяет выпуск и получение ключа API
func TestAPIKeys(t *testing.T) {
	issued := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/project/5/token/create":
			issued = true
			writeJSON(w, map[string]interface{}{"success": true, "token": "abcd1234efgh5678"})
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/project/5/token":
			if !issued {
				writeJSON(w, map[string]interface{}{"success": true, "result": map[string]interface{}{}})
				return
			}
			writeJSON(w, map[string]interface{}{"success": true, "result": map[string]interface{}{
				"name": "prod", "protected_token": "abcd***5678",
			}})
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
	})
	ctx := context.Background()

	key, err := c.GetAPIKey(ctx, "tok", 5)
	require.NoError(t, err)
	assert.Nil(t, key)

	created, err := c.CreateAPIKey(ctx, "tok", 5, "prod")
	require.NoError(t, err)
	assert.Equal(t, "abcd1234efgh5678", created.Token)
	assert.Equal(t, "abcd***5678", created.Masked().ProtectedToken)

	key, err = c.GetAPIKey(ctx, "tok", 5)
	require.NoError(t, err)
	require.NotNil(t, key)
	assert.Equal(t, "prod", key.Name)
}

// TestCheckout проверяет поиск покупателя и создание транзакции
func TestCheckout(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/telegram/user/1/42":
			writeJSON(w, map[string]interface{}{"success": true, "user": map[string]string{"full_name": "Иван", "username": "ivan"}})
		case "/api/v1/transaction/create":
			var data TransactionData
			require.NoError(t, json.NewDecoder(r.Body).Decode(&data))
			assert.Equal(t, "42", data.TelegramID)
			assert.Equal(t, 500.0, data.Amount)
			writeJSON(w, map[string]interface{}{"success": true, "url": "https://pay.example/tx/1"})
		}
	})
	ctx := context.Background()

	user, err := c.TelegramUser(ctx, 1, "42")
	require.NoError(t, err)
	assert.Equal(t, "ivan", user.Username)

	tx, err := c.CreateTransaction(ctx, TransactionData{TelegramID: "42", MethodID: 3, Amount: 500})
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/tx/1", tx.URL)
}

// TestMaskToken проверяет маскирование ключа
func TestMaskToken(t *testing.T) {
	assert.Equal(t, "abcd***wxyz", MaskToken("abcdefghijklmnopqrstuvwxyz"))
	assert.Equal(t, "ab***ab", MaskToken("ab"))
	assert.Equal(t, "***", MaskToken(""))
}
