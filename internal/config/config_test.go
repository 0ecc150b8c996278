// File: internal/config/config_test.go
package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -- Constructor and Defaults Tests --

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	// Verify a few key defaults to ensure the mechanism works.
	assert.Equal(t, "info", cfg.Logger().Level)
	assert.Equal(t, 7777, cfg.Server().Port)
	assert.True(t, cfg.Browser().Headless)
	assert.Equal(t, "https://www.google.com", cfg.Browser().DefaultURL)
	assert.Equal(t, "python3", cfg.Runner().PythonBin)
	assert.Equal(t, 30*time.Second, cfg.Runner().Timeout)
	assert.Equal(t, "/tmp/agentseek", cfg.Workspace().Root)
	assert.Equal(t, ProviderDeepSeek, cfg.LLM().Provider)
	assert.Equal(t, 10, cfg.Agent().MaxSteps)
}

// -- Validation Logic Tests --

func TestConfigValidation(t *testing.T) {
	cfg := NewDefaultConfig()

	err := cfg.Validate()
	assert.NoError(t, err, "A valid config should not produce a validation error")

	cfgBadPort := *cfg
	cfgBadPort.ServerCfg.Port = 0
	err = cfgBadPort.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")

	cfgBadSteps := *cfg
	cfgBadSteps.AgentCfg.MaxSteps = 0
	err = cfgBadSteps.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "agent.max_steps must be a positive integer")

	cfgNoRoot := *cfg
	cfgNoRoot.WorkspaceCfg.Root = ""
	err = cfgNoRoot.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "workspace.root")

	cfgBadProvider := *cfg
	cfgBadProvider.LLMCfg.Provider = "oracle"
	err = cfgBadProvider.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported llm.provider")
}

// -- Viper Loading Tests --

func TestNewConfigFromViper(t *testing.T) {
	t.Run("Overrides From YAML", func(t *testing.T) {
		yamlConfig := `
server:
  port: 9000
llm:
  provider: anthropic
  anthropic_api_key: "test-key"
browser:
  headless: false
  default_url: "https://duckduckgo.com"
agent:
  max_steps: 4
`
		v := viper.New()
		SetDefaults(v)
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(bytes.NewBufferString(yamlConfig)))

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)

		assert.Equal(t, 9000, cfg.Server().Port)
		assert.Equal(t, ProviderAnthropic, cfg.LLM().Provider)
		assert.False(t, cfg.Browser().Headless)
		assert.Equal(t, "https://duckduckgo.com", cfg.Browser().DefaultURL)
		assert.Equal(t, 4, cfg.Agent().MaxSteps)
		// Untouched sections keep their defaults.
		assert.Equal(t, "node", cfg.Runner().NodeBin)
	})

	t.Run("Degrades Provider Without Keys", func(t *testing.T) {
		t.Setenv("DEEPSEEK_API_KEY", "")
		t.Setenv("ANTHROPIC_API_KEY", "")

		v := viper.New()
		SetDefaults(v)

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, ProviderDisabled, cfg.LLM().Provider)
	})

	t.Run("Falls Back To Anthropic Key", func(t *testing.T) {
		t.Setenv("DEEPSEEK_API_KEY", "")
		t.Setenv("ANTHROPIC_API_KEY", "sk-ant-env")

		v := viper.New()
		SetDefaults(v)

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, ProviderAnthropic, cfg.LLM().Provider)
		assert.Equal(t, "sk-ant-env", cfg.LLM().AnthropicAPIKey)
	})

	t.Run("Loads Secrets From Environment", func(t *testing.T) {
		t.Setenv("DEEPSEEK_API_KEY", "sk-env-secret")
		t.Setenv("GITHUB_TOKEN", "ghp-env-token")

		v := viper.New()
		SetDefaults(v)

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, "sk-env-secret", cfg.LLM().APIKey)
		assert.Equal(t, "ghp-env-token", cfg.GitHub().Token)
		assert.Equal(t, ProviderDeepSeek, cfg.LLM().Provider)
	})

	t.Run("Invalid Config Is Rejected", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.Set("server.port", -1)

		_, err := NewConfigFromViper(v)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid configuration")
	})
}
