package runners

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/sabihatasneem/st2/internal/models"
)

// maxResponseBytes caps how much of an action's HTTP response is captured
// into the execution result.
const maxResponseBytes = 64 * 1024

// HTTPRunner invokes an action's endpoint with the rendered parameters as
// the JSON request body.
type HTTPRunner struct {
	client *http.Client
}

// NewHTTPRunner creates an HTTP runner with a shared client. Per-request
// deadlines come from the caller's context, not a client timeout.
func NewHTTPRunner() *HTTPRunner {
	return &HTTPRunner{client: &http.Client{}}
}

// NewHTTPRunnerWithClient creates an HTTP runner around an existing client.
func NewHTTPRunnerWithClient(client *http.Client) *HTTPRunner {
	return &HTTPRunner{client: client}
}

// Run performs the HTTP call and returns a result document with the status
// code and captured body. Status codes of 500 and above are errors so the
// worker retries; 4xx responses fail without retry potential but are still
// recorded with the body for debugging.
func (r *HTTPRunner) Run(ctx context.Context, action *models.Action, params json.RawMessage) (json.RawMessage, error) {
	method := action.HTTPMethod
	if method == "" {
		method = http.MethodPost
	}

	var body io.Reader
	if len(params) > 0 {
		body = bytes.NewReader(params)
	}

	req, err := http.NewRequestWithContext(ctx, method, action.Endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for key, value := range action.Headers {
		req.Header.Set(key, value)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", action.Endpoint, err)
	}
	defer resp.Body.Close()

	captured, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	result, err := json.Marshal(map[string]interface{}{
		"status_code": resp.StatusCode,
		"body":        string(captured),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return result, fmt.Errorf("endpoint returned status %d", resp.StatusCode)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		// Client errors will not heal on retry.
		return result, NewPermanentError("endpoint rejected request with status %d", resp.StatusCode)
	}

	return result, nil
}
