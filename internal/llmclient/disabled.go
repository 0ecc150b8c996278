// internal/llmclient/disabled.go
package llmclient

import (
	"context"

	"go.uber.org/zap"

	"github.com/xkilldash9x/agentseek/api/schemas"
)

// ErrDisabled is the sentinel returned by the disabled provider. Callers that
// can degrade gracefully (planners, summarizers) match on it.
var ErrDisabled = &DisabledError{}

// DisabledError indicates no completion backend is configured.
type DisabledError struct{}

func (e *DisabledError) Error() string {
	return "no LLM provider configured: set DEEPSEEK_API_KEY or ANTHROPIC_API_KEY"
}

// DisabledClient is a CompletionProvider used when no API key is present.
// Every call fails with ErrDisabled so the service stays up with reduced
// functionality instead of refusing to start.
type DisabledClient struct {
	logger *zap.Logger
}

// NewDisabledClient creates the degraded provider.
func NewDisabledClient(logger *zap.Logger) *DisabledClient {
	return &DisabledClient{logger: logger.Named("llm_client.disabled")}
}

func (c *DisabledClient) Complete(ctx context.Context, prompt, system string) (string, error) {
	c.logger.Debug("Completion requested while LLM provider is disabled")
	return "", ErrDisabled
}

func (c *DisabledClient) CompleteMessages(ctx context.Context, history []schemas.ChatMessage) (string, error) {
	c.logger.Debug("Completion requested while LLM provider is disabled")
	return "", ErrDisabled
}
