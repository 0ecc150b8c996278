// internal/llmclient/factory.go
package llmclient

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/agentseek/api/schemas"
	"github.com/xkilldash9x/agentseek/internal/config"
)

// NewClient is a factory function that creates a CompletionProvider based on
// the configuration. Config loading already downgrades the provider to
// "disabled" when no key is present, so the disabled branch here is reachable
// in normal operation, not just misconfiguration.
func NewClient(cfg config.LLMConfig, logger *zap.Logger) (schemas.CompletionProvider, error) {
	switch cfg.Provider {
	case config.ProviderDeepSeek:
		return NewDeepSeekClient(cfg, logger)
	case config.ProviderAnthropic:
		return NewAnthropicClient(cfg, logger)
	case config.ProviderDisabled:
		return NewDisabledClient(logger), nil
	default:
		return nil, fmt.Errorf("unknown or unsupported LLM provider configured: '%s'. Supported: [%s, %s]",
			cfg.Provider, config.ProviderDeepSeek, config.ProviderAnthropic)
	}
}
