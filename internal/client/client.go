package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"reqbridge/internal/core"
	"reqbridge/internal/service"
)

// Client talks to a reqbridge server. All calls are JSON over HTTP; an
// authenticated client carries the bearer token from Login or Register.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

// SetToken installs a previously obtained bearer token.
func (c *Client) SetToken(token string) {
	c.token = token
}

// Token returns the current bearer token, if any.
func (c *Client) Token() string {
	return c.token
}

type authResponse struct {
	Success bool      `json:"success"`
	Error   string    `json:"error"`
	User    core.User `json:"user"`
	Token   string    `json:"token"`
}

// Register creates an account and keeps the returned token on the client.
func (c *Client) Register(ctx context.Context, username, email, password, phone string) (*core.User, error) {
	body := map[string]string{
		"username": username,
		"email":    email,
		"password": password,
		"phone":    phone,
	}
	var resp authResponse
	if err := c.post(ctx, "/api/auth/register", body, &resp); err != nil {
		return nil, err
	}
	c.token = resp.Token
	return &resp.User, nil
}

// Login authenticates with username or email plus password and keeps the
// returned token on the client.
func (c *Client) Login(ctx context.Context, username, email, password string) (*core.User, error) {
	body := map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	}
	var resp authResponse
	if err := c.post(ctx, "/api/auth/login", body, &resp); err != nil {
		return nil, err
	}
	c.token = resp.Token
	return &resp.User, nil
}

// LoginWithPhone authenticates with a phone number and verification code.
func (c *Client) LoginWithPhone(ctx context.Context, phone, code string) (*core.User, error) {
	body := map[string]string{
		"phone":            phone,
		"verificationCode": code,
	}
	var resp authResponse
	if err := c.post(ctx, "/api/auth/login", body, &resp); err != nil {
		return nil, err
	}
	c.token = resp.Token
	return &resp.User, nil
}

// SendVerificationCode asks the server to issue a login code for the phone.
func (c *Client) SendVerificationCode(ctx context.Context, phone string) error {
	var resp struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	return c.post(ctx, "/api/auth/send-code", map[string]string{"phone": phone}, &resp)
}

// Profile returns the authenticated user.
func (c *Client) Profile(ctx context.Context) (*core.User, error) {
	var resp struct {
		Success bool      `json:"success"`
		Error   string    `json:"error"`
		User    core.User `json:"user"`
	}
	if err := c.get(ctx, "/api/auth/profile", &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// SaveRequest persists a request to the user's saved list.
func (c *Client) SaveRequest(ctx context.Context, req *core.SavedRequest) (*core.SavedRequest, error) {
	var resp struct {
		Success bool              `json:"success"`
		Error   string            `json:"error"`
		Request core.SavedRequest `json:"request"`
	}
	if err := c.post(ctx, "/api/requests/save", req, &resp); err != nil {
		return nil, err
	}
	return &resp.Request, nil
}

// Favorite marks a request as a favorite.
func (c *Client) Favorite(ctx context.Context, fav *core.FavoriteRequest) (*core.FavoriteRequest, error) {
	var resp struct {
		Success  bool                 `json:"success"`
		Error    string               `json:"error"`
		Favorite core.FavoriteRequest `json:"favorite"`
	}
	if err := c.post(ctx, "/api/requests/favorite", fav, &resp); err != nil {
		return nil, err
	}
	return &resp.Favorite, nil
}

// ListSaved returns the user's saved requests, newest first.
func (c *Client) ListSaved(ctx context.Context) ([]core.SavedRequest, error) {
	var resp struct {
		Success  bool                `json:"success"`
		Error    string              `json:"error"`
		Requests []core.SavedRequest `json:"requests"`
	}
	if err := c.get(ctx, "/api/requests/saved", &resp); err != nil {
		return nil, err
	}
	return resp.Requests, nil
}

// ListFavorites returns the user's favorites, newest first.
func (c *Client) ListFavorites(ctx context.Context) ([]core.FavoriteRequest, error) {
	var resp struct {
		Success   bool                   `json:"success"`
		Error     string                 `json:"error"`
		Favorites []core.FavoriteRequest `json:"favorites"`
	}
	if err := c.get(ctx, "/api/requests/favorites", &resp); err != nil {
		return nil, err
	}
	return resp.Favorites, nil
}

// CreateEnvironment persists an environment server-side.
func (c *Client) CreateEnvironment(ctx context.Context, name string, variables map[string]string) (*core.Environment, error) {
	body := map[string]any{"name": name, "variables": variables}
	var resp struct {
		Success     bool             `json:"success"`
		Error       string           `json:"error"`
		Environment core.Environment `json:"environment"`
	}
	if err := c.post(ctx, "/api/environments", body, &resp); err != nil {
		return nil, err
	}
	return &resp.Environment, nil
}

// ListEnvironments returns the user's environments.
func (c *Client) ListEnvironments(ctx context.Context) ([]core.Environment, error) {
	var resp struct {
		Success      bool               `json:"success"`
		Error        string             `json:"error"`
		Environments []core.Environment `json:"environments"`
	}
	if err := c.get(ctx, "/api/environments", &resp); err != nil {
		return nil, err
	}
	return resp.Environments, nil
}

type proxyResponse struct {
	Success    bool              `json:"success"`
	Error      string            `json:"error"`
	Status     int               `json:"status"`
	StatusText string            `json:"statusText"`
	Headers    map[string]string `json:"headers"`
	Data       json.RawMessage   `json:"data"`
	DurationMs int64             `json:"duration"`
}

// Forward relays the request through the server's proxy. Transport failures
// reported by the server come back as *service.ForwardError so callers can
// treat local and remote forwarding uniformly.
func (c *Client) Forward(ctx context.Context, req core.ProxyRequest) (*core.ProxyResult, error) {
	raw, status, err := c.do(ctx, http.MethodPost, "/api/proxy", req)
	if err != nil {
		return nil, err
	}

	var resp proxyResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode proxy response: %w", err)
	}

	if status != http.StatusOK {
		if resp.Error == "" {
			return nil, fmt.Errorf("proxy failed with status %d", status)
		}
		// 400 covers bad request bodies as well as missing fields; relay
		// whatever the server said rather than guessing the cause
		if status == http.StatusBadRequest {
			return nil, fmt.Errorf("%s", resp.Error)
		}
		return nil, &service.ForwardError{
			Kind:       kindForStatus(status),
			Status:     status,
			DurationMs: resp.DurationMs,
			Err:        fmt.Errorf("%s", resp.Error),
		}
	}

	data := string(resp.Data)
	var s string
	if json.Unmarshal(resp.Data, &s) == nil {
		data = s
	}

	return &core.ProxyResult{
		Status:     resp.Status,
		StatusText: resp.StatusText,
		Headers:    resp.Headers,
		Data:       data,
		DurationMs: resp.DurationMs,
	}, nil
}

// Health probes the server's health endpoint.
func (c *Client) Health(ctx context.Context) error {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.get(ctx, "/health", &resp); err != nil {
		return err
	}
	if resp.Status != "ok" {
		return fmt.Errorf("server unhealthy: %s", resp.Status)
	}
	return nil
}

func kindForStatus(status int) string {
	switch status {
	case http.StatusRequestTimeout:
		return service.ForwardTimeout
	case http.StatusBadGateway:
		return service.ForwardConnectionFailed
	default:
		return service.ForwardNetworkError
	}
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.call(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	return c.call(ctx, http.MethodPost, path, body, out)
}

// call runs a JSON request and surfaces the server's error field for non-200
// responses.
func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	raw, status, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}

	if status != http.StatusOK {
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &errResp) == nil && errResp.Error != "" {
			return fmt.Errorf("%s", errResp.Error)
		}
		return fmt.Errorf("request failed with status %d", status)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) ([]byte, int, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	return raw, resp.StatusCode, nil
}
