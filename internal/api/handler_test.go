package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"reqbridge/internal/core"
	"reqbridge/internal/data"
	"reqbridge/internal/service"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	db, err := data.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	key := strings.Repeat("k", 32)
	cryptoSvc, err := service.NewEncryptionService(key)
	if err != nil {
		t.Fatalf("crypto: %v", err)
	}

	authSvc := service.NewAuthService(data.NewUserRepo(db), key, time.Hour)
	handler := NewHandler(
		authSvc,
		service.NewForwarder(5*time.Second),
		data.NewRequestRepo(db, cryptoSvc),
		data.NewEnvironmentRepo(db),
	)

	srv := httptest.NewServer(handler.Routes())
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, srv *httptest.Server, path, token string, body any) (*http.Response, map[string]json.RawMessage) {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, srv.URL+path, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return doJSON(t, req)
}

func getJSON(t *testing.T, srv *httptest.Server, path, token string) (*http.Response, map[string]json.RawMessage) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, srv.URL+path, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return doJSON(t, req)
}

func doJSON(t *testing.T, req *http.Request) (*http.Response, map[string]json.RawMessage) {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer resp.Body.Close()

	var fields map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&fields); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return resp, fields
}

func registerUser(t *testing.T, srv *httptest.Server, username string) string {
	t.Helper()
	resp, fields := postJSON(t, srv, "/api/auth/register", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "hunter22",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("register status = %d: %s", resp.StatusCode, fields["error"])
	}
	var token string
	if err := json.Unmarshal(fields["token"], &token); err != nil || token == "" {
		t.Fatalf("token = %q (%v)", token, err)
	}
	return token
}

func TestRegisterLoginProfile(t *testing.T) {
	srv := newTestServer(t)
	registerUser(t, srv, "alice")

	resp, fields := postJSON(t, srv, "/api/auth/login", "", map[string]string{
		"username": "alice",
		"password": "hunter22",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d: %s", resp.StatusCode, fields["error"])
	}
	var token string
	if err := json.Unmarshal(fields["token"], &token); err != nil {
		t.Fatalf("token: %v", err)
	}

	resp, fields = getJSON(t, srv, "/api/auth/profile", token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("profile status = %d", resp.StatusCode)
	}
	var user core.User
	if err := json.Unmarshal(fields["user"], &user); err != nil {
		t.Fatalf("user: %v", err)
	}
	if user.Username != "alice" {
		t.Errorf("profile user = %+v", user)
	}
	// Password hash never leaves the server
	if strings.Contains(string(fields["user"]), "hash") {
		t.Errorf("profile leaks hash: %s", fields["user"])
	}
}

func TestAuthRequired(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := getJSON(t, srv, "/api/auth/profile", "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("no token status = %d, want 401", resp.StatusCode)
	}

	resp, _ = getJSON(t, srv, "/api/requests/saved", "not-a-token")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad token status = %d, want 401", resp.StatusCode)
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	srv := newTestServer(t)
	registerUser(t, srv, "bob")

	resp, fields := postJSON(t, srv, "/api/auth/login", "", map[string]string{
		"username": "bob",
		"password": "wrong",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	if string(fields["success"]) != "false" {
		t.Errorf("success = %s", fields["success"])
	}
}

func TestRegisterConflict(t *testing.T) {
	srv := newTestServer(t)
	registerUser(t, srv, "carol")

	resp, fields := postJSON(t, srv, "/api/auth/register", "", map[string]string{
		"username": "carol",
		"email":    "other@example.com",
		"password": "pw",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	if !strings.Contains(string(fields["error"]), "username") {
		t.Errorf("error = %s", fields["error"])
	}
}

func TestSaveAndListRequests(t *testing.T) {
	srv := newTestServer(t)
	token := registerUser(t, srv, "dave")

	resp, fields := postJSON(t, srv, "/api/requests/save", token, map[string]any{
		"name":   "list users",
		"url":    "https://x.test/users",
		"method": "POST",
		"headers": map[string]string{
			"X-Trace": "1",
		},
		"auth": map[string]string{"type": "bearer", "token": "upstream-tok"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("save status = %d: %s", resp.StatusCode, fields["error"])
	}

	resp, fields = getJSON(t, srv, "/api/requests/saved", token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d", resp.StatusCode)
	}
	var requests []core.SavedRequest
	if err := json.Unmarshal(fields["requests"], &requests); err != nil {
		t.Fatalf("requests: %v", err)
	}
	if len(requests) != 1 {
		t.Fatalf("len = %d, want 1", len(requests))
	}
	got := requests[0]
	if got.Name != "list users" || got.Method != "POST" {
		t.Errorf("saved = %+v", got)
	}
	// Auth config survives the encrypt/decrypt round trip
	if got.Auth.Type != core.AuthBearer || got.Auth.Token != "upstream-tok" {
		t.Errorf("auth = %+v", got.Auth)
	}

	// Missing url is rejected
	resp, fields = postJSON(t, srv, "/api/requests/save", token, map[string]string{"name": "no url"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing url status = %d", resp.StatusCode)
	}
	if !strings.Contains(string(fields["error"]), "url") {
		t.Errorf("error = %s", fields["error"])
	}
}

func TestFavoritesScopedByUser(t *testing.T) {
	srv := newTestServer(t)
	tokenA := registerUser(t, srv, "erin")
	tokenB := registerUser(t, srv, "frank")

	resp, fields := postJSON(t, srv, "/api/requests/favorite", tokenA, map[string]string{
		"name":   "ping",
		"url":    "https://x.test/ping",
		"folder": "ops",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("favorite status = %d: %s", resp.StatusCode, fields["error"])
	}

	_, fields = getJSON(t, srv, "/api/requests/favorites", tokenB)
	var favorites []core.FavoriteRequest
	if err := json.Unmarshal(fields["favorites"], &favorites); err != nil {
		t.Fatalf("favorites: %v", err)
	}
	if len(favorites) != 0 {
		t.Errorf("user B sees user A's favorites: %+v", favorites)
	}

	_, fields = getJSON(t, srv, "/api/requests/favorites", tokenA)
	if err := json.Unmarshal(fields["favorites"], &favorites); err != nil {
		t.Fatalf("favorites: %v", err)
	}
	if len(favorites) != 1 || favorites[0].Folder != "ops" {
		t.Errorf("favorites = %+v", favorites)
	}
}

func TestEnvironmentsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	token := registerUser(t, srv, "grace")

	resp, fields := postJSON(t, srv, "/api/environments", token, map[string]any{
		"name":      "staging",
		"variables": map[string]string{"host": "staging.test"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create status = %d: %s", resp.StatusCode, fields["error"])
	}

	resp, _ = postJSON(t, srv, "/api/environments", token, map[string]string{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing name status = %d", resp.StatusCode)
	}

	_, fields = getJSON(t, srv, "/api/environments", token)
	var envs []core.Environment
	if err := json.Unmarshal(fields["environments"], &envs); err != nil {
		t.Fatalf("environments: %v", err)
	}
	if len(envs) != 1 || envs[0].Variables["host"] != "staging.test" {
		t.Errorf("environments = %+v", envs)
	}
}

func TestProxyEndpoint(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"pong":true}`)
	}))
	defer upstream.Close()

	srv := newTestServer(t)
	token := registerUser(t, srv, "heidi")

	resp, fields := postJSON(t, srv, "/api/proxy", token, map[string]string{
		"url":    upstream.URL,
		"method": "GET",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("proxy status = %d: %s", resp.StatusCode, fields["error"])
	}
	if string(fields["success"]) != "true" {
		t.Errorf("success = %s", fields["success"])
	}
	if string(fields["status"]) != "200" {
		t.Errorf("status = %s", fields["status"])
	}
	// JSON bodies come back structured, not as an escaped string
	if string(fields["data"]) != `{"pong":true}` {
		t.Errorf("data = %s", fields["data"])
	}

	// Unauthenticated proxying is refused
	resp, _ = postJSON(t, srv, "/api/proxy", "", map[string]string{"url": upstream.URL})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("unauthenticated status = %d", resp.StatusCode)
	}
}

func TestProxyTransportFailure(t *testing.T) {
	// A server that is already closed gives a connection failure
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	deadURL := dead.URL
	dead.Close()

	srv := newTestServer(t)
	token := registerUser(t, srv, "ivan")

	resp, fields := postJSON(t, srv, "/api/proxy", token, map[string]string{"url": deadURL})
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", resp.StatusCode)
	}
	if string(fields["success"]) != "false" {
		t.Errorf("success = %s", fields["success"])
	}
	if !strings.Contains(string(fields["error"]), "connection_failed") {
		t.Errorf("error = %s", fields["error"])
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	resp, fields := getJSON(t, srv, "/health", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var status, version string
	if err := json.Unmarshal(fields["status"], &status); err != nil || status != "ok" {
		t.Errorf("status = %s (%v)", fields["status"], err)
	}
	if err := json.Unmarshal(fields["version"], &version); err != nil || version == "" {
		t.Errorf("version = %s (%v)", fields["version"], err)
	}
	if _, ok := fields["uptime"]; !ok {
		t.Error("no uptime field")
	}
}
