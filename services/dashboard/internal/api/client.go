package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"BileePlatform/pkg/errors"
	"BileePlatform/pkg/logger"
	"BileePlatform/pkg/metrics"
)

// maxBodySize ограничивает размер ответа upstream
const maxBodySize = 4 << 20

// Client HTTP клиент upstream REST API платежной платформы.
// Никогда не возвращает ошибку по HTTP статусу: ошибка означает отсутствие ответа.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     logger.Logger
	metrics    *metrics.Metrics
}

// NewClient создает клиент с фиксированным базовым URL
func NewClient(baseURL string, timeout time.Duration, log logger.Logger, m *metrics.Metrics) (*Client, error) {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid api base url %q: %w", baseURL, err)
	}

	return &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: timeout},
		logger:     log,
		metrics:    m,
	}, nil
}

// RequestOption настраивает отдельный запрос
type RequestOption func(*requestOptions)

type requestOptions struct {
	token    string
	cookie   string
	endpoint string
	query    url.Values
}

// WithToken добавляет заголовок Authorization: <token>
func WithToken(token string) RequestOption {
	return func(o *requestOptions) { o.token = token }
}

// WithCookie передает upstream исходный заголовок Cookie запроса браузера
func WithCookie(cookie string) RequestOption {
	return func(o *requestOptions) { o.cookie = cookie }
}

// WithEndpoint задает имя эндпоинта для метрик и логов
func WithEndpoint(name string) RequestOption {
	return func(o *requestOptions) { o.endpoint = name }
}

// WithQuery добавляет параметры строки запроса
func WithQuery(q url.Values) RequestOption {
	return func(o *requestOptions) { o.query = q }
}

// Response ответ upstream в сыром виде
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Success проверяет дискриминант success конверта
func (r *Response) Success() bool {
	return gjson.GetBytes(r.Body, "success").Bool()
}

// Get извлекает значение из тела по пути gjson
func (r *Response) Get(path string) gjson.Result {
	return gjson.GetBytes(r.Body, path)
}

// APIError извлекает {code, user_message} из конверта неуспешного ответа
func (r *Response) APIError() *errors.Error {
	code := r.Get("error.code").String()
	if code == "" {
		code = string(errors.ErrInternal)
	}
	return errors.FromAPI(code, r.Get("error.user_message").String()).
		WithDetails(fmt.Sprintf("status %d", r.StatusCode))
}

// Decode декодирует значение по пути gjson (пустой путь означает все тело)
func (r *Response) Decode(path string, v interface{}) error {
	raw := r.Body
	if path != "" {
		res := r.Get(path)
		if !res.Exists() {
			return errors.New(errors.ErrInternal, "api: missing "+path+" in response")
		}
		raw = []byte(res.Raw)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errors.Wrap(err, errors.ErrInternal, "api: failed to decode response")
	}
	return nil
}

// SetCookies возвращает заголовки Set-Cookie ответа
func (r *Response) SetCookies() []string {
	return r.Header.Values("Set-Cookie")
}

// Do выполняет запрос к upstream. path задается относительно базового URL.
func (c *Client) Do(ctx context.Context, method, path string, body interface{}, opts ...RequestOption) (*Response, error) {
	o := &requestOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.endpoint == "" {
		o.endpoint = method + " " + path
	}

	ref, err := url.Parse(strings.TrimPrefix(path, "/"))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "api: invalid path")
	}
	target := c.baseURL.ResolveReference(ref)
	if o.query != nil {
		target.RawQuery = o.query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			c.logger.Error("ошибка кодирования тела запроса", logger.Error(err), logger.String("endpoint", o.endpoint))
			return nil, errors.Wrap(err, errors.ErrInternal, "api: failed to encode request")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "api: failed to build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if o.token != "" {
		req.Header.Set("Authorization", o.token)
	}
	if o.cookie != "" {
		req.Header.Set("Cookie", o.cookie)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveUpstream(o.endpoint, "transport_error", time.Since(start))
		c.logger.Warn("ошибка выполнения запроса к API",
			logger.CtxField(ctx),
			logger.String("endpoint", o.endpoint),
			logger.Error(err))
		return nil, errors.Wrap(err, errors.ErrTransport, "api: request failed")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		c.metrics.ObserveUpstream(o.endpoint, "transport_error", time.Since(start))
		return nil, errors.Wrap(err, errors.ErrTransport, "api: failed to read response")
	}

	result := &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}

	outcome := "success"
	if !result.Success() {
		outcome = "failure"
	}
	c.metrics.ObserveUpstream(o.endpoint, outcome, time.Since(start))
	c.logger.Debug("ответ API получен",
		logger.CtxField(ctx),
		logger.String("endpoint", o.endpoint),
		logger.Int("status", resp.StatusCode),
		logger.String("outcome", outcome),
		logger.Duration("duration", time.Since(start)))

	return result, nil
}

// call выполняет запрос и разбирает конверт: при success=false возвращает бизнес-ошибку,
// иначе декодирует значение по пути resultPath в out (если out задан)
func (c *Client) call(ctx context.Context, method, path string, body interface{}, resultPath string, out interface{}, opts ...RequestOption) (*Response, error) {
	resp, err := c.Do(ctx, method, path, body, opts...)
	if err != nil {
		return nil, err
	}
	if !resp.Success() {
		return resp, resp.APIError()
	}
	if out != nil {
		if err := resp.Decode(resultPath, out); err != nil {
			return resp, err
		}
	}
	return resp, nil
}
