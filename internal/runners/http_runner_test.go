package runners

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sabihatasneem/st2/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func httpAction(endpoint string) *models.Action {
	return &models.Action{
		Name:       "test.call",
		RunnerType: models.RunnerTypeHTTP,
		Endpoint:   endpoint,
		HTTPMethod: http.MethodPost,
		Headers:    map[string]string{"X-Token": "secret"},
	}
}

func TestHTTPRunner_Success(t *testing.T) {
	var gotBody []byte
	var gotHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-Token")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"received":true}`))
	}))
	defer server.Close()

	runner := NewHTTPRunner()
	result, err := runner.Run(context.Background(), httpAction(server.URL), json.RawMessage(`{"channel":"#ops"}`))
	require.NoError(t, err)

	assert.Equal(t, "secret", gotHeader)
	assert.JSONEq(t, `{"channel":"#ops"}`, string(gotBody))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(result, &decoded))
	assert.Equal(t, float64(200), decoded["status_code"])
	assert.Contains(t, decoded["body"], "received")
}

func TestHTTPRunner_ServerErrorIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	runner := NewHTTPRunner()
	result, err := runner.Run(context.Background(), httpAction(server.URL), nil)
	require.Error(t, err)
	assert.False(t, IsPermanent(err))
	assert.NotNil(t, result)
}

func TestHTTPRunner_ClientErrorIsPermanent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	runner := NewHTTPRunner()
	_, err := runner.Run(context.Background(), httpAction(server.URL), nil)
	require.Error(t, err)
	assert.True(t, IsPermanent(err))
}

func TestHTTPRunner_HonorsContextDeadline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	runner := NewHTTPRunner()
	_, err := runner.Run(ctx, httpAction(server.URL), nil)
	assert.Error(t, err)
}

func TestNoopRunner(t *testing.T) {
	result, err := NoopRunner{}.Run(context.Background(), nil, json.RawMessage(`{"a":1}`))
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(result, &decoded))
	assert.Equal(t, true, decoded["noop"])
	assert.Equal(t, float64(1), decoded["params"].(map[string]interface{})["a"])
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry()

	runner, err := registry.Get(models.RunnerTypeHTTP)
	require.NoError(t, err)
	assert.IsType(t, &HTTPRunner{}, runner)

	_, err = registry.Get(models.RunnerType("shell"))
	assert.Error(t, err)
}
