// internal/llmclient/deepseek_test.go
package llmclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/agentseek/api/schemas"
	"github.com/xkilldash9x/agentseek/internal/config"
)

// setupDeepSeekClient rigs up a DeepSeekClient pointed at a mock HTTP server.
func setupDeepSeekClient(t *testing.T, handler http.HandlerFunc) (*DeepSeekClient, *observer.ObservedLogs) {
	t.Helper()
	if handler == nil {
		handler = func(w http.ResponseWriter, r *http.Request) {
			t.Log("Warning: Unexpected HTTP request in test.")
			w.WriteHeader(http.StatusNotFound)
		}
	}
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	loggerCore, observedLogs := observer.New(zap.InfoLevel)
	logger := zap.New(loggerCore)

	cfg := getValidLLMConfig()
	cfg.Endpoint = server.URL

	client, err := NewDeepSeekClient(cfg, logger)
	require.NoError(t, err, "NewDeepSeekClient initialization failed")
	client.httpClient.Timeout = 5 * time.Second

	return client, observedLogs
}

func successResponse(content string) chatCompletionResponse {
	var resp chatCompletionResponse
	resp.Choices = []struct {
		Message      chatCompletionMessage `json:"message"`
		FinishReason string                `json:"finish_reason"`
	}{
		{Message: chatCompletionMessage{Role: "assistant", Content: content}, FinishReason: "stop"},
	}
	resp.Usage.PromptTokens = 10
	resp.Usage.CompletionTokens = 20
	resp.Usage.TotalTokens = 30
	return resp
}

func TestNewDeepSeekClient_Success(t *testing.T) {
	logger := setupTestLogger(t)
	cfg := getValidLLMConfig()
	cfg.Endpoint = ""

	client, err := NewDeepSeekClient(cfg, logger)
	require.NoError(t, err)
	require.NotNil(t, client)

	assert.Equal(t, cfg.APIKey, client.apiKey)
	assert.Equal(t, cfg.APITimeout, client.httpClient.Timeout)
	assert.Equal(t, "https://api.deepseek.com/v1/chat/completions", client.endpoint)
	assert.NotNil(t, client.limiter)
}

func TestNewDeepSeekClient_Failure_MissingAPIKey(t *testing.T) {
	logger := setupTestLogger(t)
	cfg := getValidLLMConfig()
	cfg.APIKey = ""

	client, err := NewDeepSeekClient(cfg, logger)
	assert.Error(t, err)
	assert.Nil(t, client)
	assert.Contains(t, err.Error(), "API Key is required")
}

func TestDeepSeekComplete_Success(t *testing.T) {
	var gotReq chatCompletionRequest
	client, logs := setupDeepSeekClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-api-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(successResponse("Hello there."))
	})

	out, err := client.Complete(context.Background(), "Say hi", "You are terse.")
	require.NoError(t, err)
	assert.Equal(t, "Hello there.", out)

	// The system instruction rides as the leading message.
	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
	assert.Equal(t, "You are terse.", gotReq.Messages[0].Content)
	assert.Equal(t, "user", gotReq.Messages[1].Role)
	assert.False(t, gotReq.Stream)

	// Usage is logged on success.
	require.Equal(t, 1, logs.FilterMessage("LLM generation complete (DeepSeek)").Len())
}

func TestDeepSeekCompleteMessages_History(t *testing.T) {
	var gotReq chatCompletionRequest
	client, _ := setupDeepSeekClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(successResponse("ok"))
	})

	history := []schemas.ChatMessage{
		{Role: "user", Content: "first"},
		{Role: "assistant", Content: "reply"},
		{Role: "user", Content: "second"},
	}
	_, err := client.CompleteMessages(context.Background(), history)
	require.NoError(t, err)
	require.Len(t, gotReq.Messages, 3)
	assert.Equal(t, "assistant", gotReq.Messages[1].Role)
}

func TestDeepSeekComplete_RetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	client, _ := setupDeepSeekClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(successResponse("recovered"))
	})

	out, err := client.Complete(context.Background(), "prompt", "")
	require.NoError(t, err)
	assert.Equal(t, "recovered", out)
	assert.GreaterOrEqual(t, calls.Load(), int32(2))
}

func TestDeepSeekComplete_PermanentErrorNoRetry(t *testing.T) {
	var calls atomic.Int32
	client, _ := setupDeepSeekClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.Complete(context.Background(), "prompt", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
	assert.Equal(t, int32(1), calls.Load(), "4xx responses must not be retried")
}

func TestDeepSeekComplete_NoChoices(t *testing.T) {
	client, _ := setupDeepSeekClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chatCompletionResponse{})
	})

	_, err := client.Complete(context.Background(), "prompt", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestDeepSeekComplete_ContextCancelled(t *testing.T) {
	client, _ := setupDeepSeekClient(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Complete(ctx, "prompt", "")
	require.Error(t, err)
}

func TestDisabledClient(t *testing.T) {
	client := NewDisabledClient(setupTestLogger(t))

	_, err := client.Complete(context.Background(), "p", "s")
	require.ErrorIs(t, err, ErrDisabled)

	_, err = client.CompleteMessages(context.Background(), nil)
	require.ErrorIs(t, err, ErrDisabled)
	assert.Contains(t, err.Error(), "no LLM provider configured")
}

func TestFactory(t *testing.T) {
	logger := setupTestLogger(t)

	t.Run("deepseek", func(t *testing.T) {
		cfg := getValidLLMConfig()
		client, err := NewClient(cfg, logger)
		require.NoError(t, err)
		assert.IsType(t, &DeepSeekClient{}, client)
	})

	t.Run("anthropic", func(t *testing.T) {
		cfg := getValidLLMConfig()
		cfg.Provider = config.ProviderAnthropic
		client, err := NewClient(cfg, logger)
		require.NoError(t, err)
		assert.IsType(t, &AnthropicClient{}, client)
	})

	t.Run("disabled", func(t *testing.T) {
		cfg := getValidLLMConfig()
		cfg.Provider = config.ProviderDisabled
		client, err := NewClient(cfg, logger)
		require.NoError(t, err)
		assert.IsType(t, &DisabledClient{}, client)
	})

	t.Run("unknown", func(t *testing.T) {
		cfg := getValidLLMConfig()
		cfg.Provider = "mystery"
		_, err := NewClient(cfg, logger)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown or unsupported LLM provider")
	})
}
