// Package integration provides the HTTP client used to call external
// integrations from integration nodes.
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dialora/dialora/pkg/log"
)

// InvokerFunc adapts a function to the invoker contract, useful in tests and
// for in-process integrations.
type InvokerFunc func(ctx context.Context, name string, inputs map[string]any, timeout time.Duration) (any, error)

// Invoke calls the function.
func (f InvokerFunc) Invoke(ctx context.Context, name string, inputs map[string]any, timeout time.Duration) (any, error) {
	return f(ctx, name, inputs, timeout)
}

// HTTPInvoker calls an integration gateway over HTTP. Each invocation POSTs
// the inputs as JSON to {baseURL}/integrations/{name} and reads the output
// from the response body.
type HTTPInvoker struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewHTTPInvoker creates an invoker for the given gateway base URL. A nil
// client selects http.DefaultClient; per-call timeouts come from the request
// context.
func NewHTTPInvoker(baseURL string, client *http.Client) *HTTPInvoker {
	if client == nil {
		client = http.DefaultClient
	}

	return &HTTPInvoker{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		logger:  log.WithModule("integration"),
	}
}

type invocationResponse struct {
	Output any    `json:"output"`
	Error  string `json:"error,omitempty"`
}

// Invoke POSTs the inputs to the gateway and returns the decoded output.
// The timeout bounds the whole round trip through the request context.
func (inv *HTTPInvoker) Invoke(ctx context.Context, name string, inputs map[string]any, timeout time.Duration) (any, error) {
	reqCtx := ctx

	if timeout > 0 {
		var cancel context.CancelFunc

		reqCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	payload, err := json.Marshal(inputs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode integration inputs: %w", err)
	}

	url := fmt.Sprintf("%s/integrations/%s", inv.baseURL, name)

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create integration request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()

	resp, err := inv.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("integration request failed: %w", err)
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			inv.logger.ErrorContext(ctx, "Failed to close integration response body", "error", err)
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read integration response: %w", err)
	}

	inv.logger.DebugContext(ctx, "Integration call finished",
		"integration", name,
		"status", resp.StatusCode,
		"duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("integration %q returned status %d: %s", name, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}

	var decoded invocationResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode integration response: %w", err)
	}

	if decoded.Error != "" {
		return nil, fmt.Errorf("integration %q failed: %s", name, decoded.Error)
	}

	return decoded.Output, nil
}
