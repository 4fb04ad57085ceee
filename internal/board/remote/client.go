package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"garden-board/internal/garden/models"

	"github.com/rs/zerolog"
)

// ============================================================
// Garden Service Client
// ============================================================

var ErrUnauthorized = errors.New("unauthorized")

// StatusError: ответ сервиса с кодом >= 300.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("garden service status %d: %s", e.Code, e.Message)
}

// Client реализует store.Backend поверх REST и SSE garden сервиса.
type Client struct {
	baseURL string
	http    *http.Client
	stream  *http.Client
	backoff BackoffConfig
	log     zerolog.Logger

	mu    sync.RWMutex
	token string

	// OnReconnect вызывается после восстановления realtime потока:
	// события за время обрыва потеряны, доске стоит перезагрузить состояние.
	OnReconnect func()
}

func New(baseURL string, logger zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/") + "/api/v1",
		http:    &http.Client{Timeout: 10 * time.Second},
		stream:  &http.Client{},
		backoff: DefaultBackoff(),
		log:     logger,
	}
}

// Login получает токен; после этого доступна очистка всей доски.
func (c *Client) Login(ctx context.Context, login, password string) error {
	var out struct {
		Token string `json:"token"`
	}
	body := map[string]string{"login": login, "password": password}
	if err := c.do(ctx, http.MethodPost, "/login", body, &out); err != nil {
		return err
	}
	c.mu.Lock()
	c.token = out.Token
	c.mu.Unlock()
	return nil
}

func (c *Client) List(ctx context.Context) ([]models.Item, error) {
	var items []models.Item
	if err := c.do(ctx, http.MethodGet, "/items", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) Insert(ctx context.Context, n models.NewItem) (models.Item, error) {
	var it models.Item
	if err := c.do(ctx, http.MethodPost, "/items", n, &it); err != nil {
		return models.Item{}, err
	}
	return it, nil
}

func (c *Client) Update(ctx context.Context, id string, patch models.ItemPatch) error {
	return c.do(ctx, http.MethodPatch, "/items/"+id, patch, nil)
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/items/"+id, nil, nil)
}

func (c *Client) DeleteAll(ctx context.Context) (int, error) {
	var out struct {
		Deleted int `json:"deleted"`
	}
	if err := c.do(ctx, http.MethodDelete, "/items", nil, &out); err != nil {
		return 0, err
	}
	return out.Deleted, nil
}

// ============================================================
// Helpers
// ============================================================

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.mu.RLock()
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	c.mu.RUnlock()
	return req, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		return statusError(resp.StatusCode, data)
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func statusError(code int, body []byte) error {
	var payload struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		msg = payload.Error
	}
	se := &StatusError{Code: code, Message: msg}
	if code == http.StatusUnauthorized || code == http.StatusForbidden {
		return fmt.Errorf("%w: %v", ErrUnauthorized, se)
	}
	return se
}
