package core

import (
	"time"
)

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone,omitempty"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// AuthType tags an AuthConfig. Components switch on it exhaustively.
type AuthType string

const (
	AuthNone   AuthType = "none"
	AuthBasic  AuthType = "basic"
	AuthBearer AuthType = "bearer"
)

// AuthConfig describes how an outbound request authenticates against its
// target. Basic carries username/password, bearer carries a token.
type AuthConfig struct {
	Type     AuthType `json:"type"`
	Username string   `json:"username,omitempty"`
	Password string   `json:"password,omitempty"`
	Token    string   `json:"token,omitempty"`
}

// Normalize degrades incomplete configs to AuthNone: basic without both
// credentials and bearer without a token carry nothing injectable.
func (a AuthConfig) Normalize() AuthConfig {
	switch a.Type {
	case AuthBasic:
		if a.Username == "" || a.Password == "" {
			return AuthConfig{Type: AuthNone}
		}
		return a
	case AuthBearer:
		if a.Token == "" {
			return AuthConfig{Type: AuthNone}
		}
		return a
	default:
		return AuthConfig{Type: AuthNone}
	}
}

type SavedRequest struct {
	ID        string            `json:"id"`
	UserID    string            `json:"-"`
	Name      string            `json:"name"`
	Method    string            `json:"method"`
	URL       string            `json:"url"`
	Headers   map[string]string `json:"headers"`
	Params    map[string]string `json:"params"`
	Body      string            `json:"body,omitempty"`
	Auth      AuthConfig        `json:"auth"`
	CreatedAt time.Time         `json:"created_at"`
}

// FavoriteRequest is a denormalized snapshot taken at favoriting time. It
// shares no lifecycle with the request it was copied from.
type FavoriteRequest struct {
	ID        string            `json:"id"`
	UserID    string            `json:"-"`
	Name      string            `json:"name"`
	Method    string            `json:"method"`
	URL       string            `json:"url"`
	Headers   map[string]string `json:"headers"`
	Params    map[string]string `json:"params"`
	Body      string            `json:"body,omitempty"`
	Auth      AuthConfig        `json:"auth"`
	Folder    string            `json:"folder,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

type Environment struct {
	ID        string            `json:"id"`
	UserID    string            `json:"-"`
	Name      string            `json:"name"`
	Variables map[string]string `json:"variables"`
	IsActive  bool              `json:"is_active"`
}

// ProxyRequest is the wire shape forwarded on behalf of a client.
type ProxyRequest struct {
	URL     string            `json:"url"`
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    string            `json:"body,omitempty"`
	Auth    AuthConfig        `json:"auth,omitempty"`
}

// ProxyResult is the normalized outcome of a forwarded request. Upstream
// non-2xx statuses are results, not errors.
type ProxyResult struct {
	Status     int               `json:"status"`
	StatusText string            `json:"statusText"`
	Headers    map[string]string `json:"headers"`
	Data       string            `json:"data"`
	DurationMs int64             `json:"duration"`
}
