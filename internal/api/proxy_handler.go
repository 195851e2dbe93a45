package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"reqbridge/internal/core"
	"reqbridge/internal/logger"
	"reqbridge/internal/service"
)

// Proxy forwards a request on behalf of the authenticated user. Upstream
// non-2xx responses are reported with success:false but are not proxy
// failures; only transport errors map to 408/502/500.
func (h *Handler) Proxy(w http.ResponseWriter, r *http.Request) {
	var preq core.ProxyRequest
	if err := json.NewDecoder(r.Body).Decode(&preq); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	result, err := h.forwarder.Forward(r.Context(), preq)
	if err != nil {
		var validation *core.ValidationError
		if errors.As(err, &validation) {
			writeError(w, http.StatusBadRequest, validation.Error())
			return
		}

		var fwdErr *service.ForwardError
		if errors.As(err, &fwdErr) {
			logger.Error.Printf("proxy %s %s failed: %v", preq.Method, preq.URL, err)
			writeJSON(w, fwdErr.Status, map[string]any{
				"success":  false,
				"error":    fwdErr.Error(),
				"status":   fwdErr.Status,
				"duration": fwdErr.DurationMs,
			})
			return
		}

		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Embed upstream JSON bodies raw so clients see structured data
	var data any = result.Data
	if json.Valid([]byte(result.Data)) {
		data = json.RawMessage(result.Data)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    result.Status >= 200 && result.Status < 300,
		"status":     result.Status,
		"statusText": result.StatusText,
		"headers":    result.Headers,
		"data":       data,
		"duration":   result.DurationMs,
	})
}
