package llmclient

import (
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/agentseek/internal/config"
)

// setupTestLogger is a helper to create a zap logger for testing with an observer.
func setupTestLogger(t *testing.T) *zap.Logger {
	t.Helper()
	core, _ := observer.New(zap.DebugLevel)
	return zap.New(core)
}

// getValidLLMConfig returns a valid LLMConfig for testing purposes.
func getValidLLMConfig() config.LLMConfig {
	return config.LLMConfig{
		Provider:          config.ProviderDeepSeek,
		APIKey:            "test-api-key",
		AnthropicAPIKey:   "test-anthropic-key",
		Model:             "deepseek-chat",
		APITimeout:        5 * time.Second,
		Temperature:       0.7,
		MaxTokens:         1024,
		RequestsPerSecond: 100,
	}
}
