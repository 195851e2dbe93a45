package workspace

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"reqbridge/internal/core"
	"reqbridge/internal/service"
)

// ProxyInvoker forwards a resolved request. Implemented by the in-process
// forwarder and by the HTTP backend client.
type ProxyInvoker interface {
	Forward(ctx context.Context, req core.ProxyRequest) (*core.ProxyResult, error)
}

// Executor resolves a tab's draft into a wire request, forwards it, and
// records the outcome. It only ever touches the tab's response slot and the
// history log, so repeated executions are safe.
type Executor struct {
	tabs    *TabManager
	envs    *EnvironmentSet
	history *HistoryLog
	proxy   ProxyInvoker
}

func NewExecutor(tabs *TabManager, envs *EnvironmentSet, history *HistoryLog, proxy ProxyInvoker) *Executor {
	return &Executor{
		tabs:    tabs,
		envs:    envs,
		history: history,
		proxy:   proxy,
	}
}

// Execute runs the tab's draft through the proxy. Both outcomes append
// exactly one history item; only an empty resolved URL short-circuits
// before any network call and leaves history untouched.
func (e *Executor) Execute(ctx context.Context, tabID string) (*Response, error) {
	tab, ok := e.tabs.Get(tabID)
	if !ok {
		return nil, core.ErrNotFound
	}

	resolvedURL := e.envs.Substitute(buildURL(tab.URL, tab.Params))
	if resolvedURL == "" {
		return nil, &core.ValidationError{Field: "url"}
	}

	headers := make(map[string]string, len(tab.Headers))
	for k, v := range tab.Headers {
		headers[k] = e.envs.Substitute(v)
	}
	body := e.envs.Substitute(tab.Body)

	preq := core.ProxyRequest{
		URL:     resolvedURL,
		Method:  tab.Method,
		Headers: headers,
		Body:    body,
		Auth:    tab.Auth.Normalize(),
	}

	start := time.Now()
	result, err := e.proxy.Forward(ctx, preq)
	durationMs := time.Since(start).Milliseconds()

	var resp *Response
	if err != nil {
		resp = errorResponse(err, durationMs)
	} else {
		resp = &Response{
			Status:     result.Status,
			StatusText: result.StatusText,
			Headers:    result.Headers,
			Data:       result.Data,
			DurationMs: result.DurationMs,
		}
	}

	e.tabs.SetResponse(tabID, resp)

	histResp := resp.clone()
	if resp.Error {
		raw, _ := json.Marshal(map[string]string{"error": resp.Message})
		histResp.Data = string(raw)
	}
	e.history.Append(HistoryItem{
		ID:        uuid.NewString(),
		URL:       resolvedURL,
		Method:    preq.Method,
		Headers:   headers,
		Body:      body,
		Timestamp: time.Now(),
		Response:  histResp,
	})

	return resp, nil
}

// errorResponse turns a proxy failure into the tab's synthetic response.
// Failed executions are history-worthy, so they flow through the same path.
func errorResponse(err error, fallbackDurationMs int64) *Response {
	status := 0
	durationMs := fallbackDurationMs
	var fwdErr *service.ForwardError
	if errors.As(err, &fwdErr) {
		status = fwdErr.Status
		if fwdErr.DurationMs > 0 {
			durationMs = fwdErr.DurationMs
		}
	}
	return &Response{
		Status:     status,
		StatusText: "",
		DurationMs: durationMs,
		Error:      true,
		Message:    err.Error(),
	}
}

// buildURL appends non-empty params as a query string, respecting an
// existing "?" in the URL.
func buildURL(rawURL string, params map[string]string) string {
	values := url.Values{}
	for k, v := range params {
		if k != "" && v != "" {
			values.Set(k, v)
		}
	}
	if len(values) == 0 {
		return rawURL
	}

	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
	}
	return rawURL + sep + values.Encode()
}
