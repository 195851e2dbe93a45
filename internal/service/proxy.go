package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"reqbridge/internal/core"
)

const (
	maxRedirects = 5

	// maxResponseBytes caps forwarded response bodies at 10MB
	maxResponseBytes = 10 * 1024 * 1024
)

// Forward error kinds. These classify transport failures; upstream non-2xx
// responses are never errors.
const (
	ForwardTimeout          = "timeout"
	ForwardConnectionFailed = "connection_failed"
	ForwardNetworkError     = "network_error"
)

// ForwardError is a proxy-level transport failure with an equivalent HTTP
// status for the caller and the wall-clock duration spent before failing.
type ForwardError struct {
	Kind       string
	Status     int
	DurationMs int64
	Err        error
}

func (e *ForwardError) Error() string {
	return e.Kind + ": " + e.Err.Error()
}

func (e *ForwardError) Unwrap() error {
	return e.Err
}

// Forwarder performs outbound HTTP calls on behalf of authenticated clients.
// It keeps no per-call state; concurrent forwards are independent.
type Forwarder struct {
	client *http.Client
}

func NewForwarder(timeout time.Duration) *Forwarder {
	return &Forwarder{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
	}
}

// Forward sends the request upstream and normalizes the outcome. The final
// response after redirects is returned as-is, whatever its status.
func (f *Forwarder) Forward(ctx context.Context, preq core.ProxyRequest) (*core.ProxyResult, error) {
	if preq.URL == "" {
		return nil, &core.ValidationError{Field: "url"}
	}

	method := strings.ToUpper(preq.Method)
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if preq.Body != "" {
		body = strings.NewReader(preq.Body)
	}

	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, method, preq.URL, body)
	if err != nil {
		return nil, &ForwardError{
			Kind:   ForwardNetworkError,
			Status: http.StatusInternalServerError,
			Err:    err,
		}
	}

	for key, value := range preq.Headers {
		req.Header.Set(key, value)
	}
	if preq.Body != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	switch auth := preq.Auth.Normalize(); auth.Type {
	case core.AuthBasic:
		req.SetBasicAuth(auth.Username, auth.Password)
	case core.AuthBearer:
		req.Header.Set("Authorization", "Bearer "+auth.Token)
	case core.AuthNone:
		// headers pass through unchanged
	}

	resp, err := f.client.Do(req)
	durationMs := time.Since(start).Milliseconds()
	if err != nil {
		fe := classify(err)
		fe.DurationMs = durationMs
		return nil, fe
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	durationMs = time.Since(start).Milliseconds()
	if err != nil {
		fe := classify(err)
		fe.DurationMs = durationMs
		return nil, fe
	}

	headers := make(map[string]string, len(resp.Header))
	for key, values := range resp.Header {
		if len(values) > 0 {
			headers[key] = values[0]
		}
	}

	return &core.ProxyResult{
		Status:     resp.StatusCode,
		StatusText: http.StatusText(resp.StatusCode),
		Headers:    headers,
		Data:       string(data),
		DurationMs: durationMs,
	}, nil
}

// classify maps a transport error onto the forward failure taxonomy.
func classify(err error) *ForwardError {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() || errors.Is(err, context.DeadlineExceeded) {
		return &ForwardError{Kind: ForwardTimeout, Status: http.StatusRequestTimeout, Err: err}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &ForwardError{Kind: ForwardConnectionFailed, Status: http.StatusBadGateway, Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return &ForwardError{Kind: ForwardConnectionFailed, Status: http.StatusBadGateway, Err: err}
	}

	return &ForwardError{Kind: ForwardNetworkError, Status: http.StatusInternalServerError, Err: err}
}
