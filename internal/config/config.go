// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Server() ServerConfig
	LLM() LLMConfig
	Browser() BrowserConfig
	Runner() RunnerConfig
	Workspace() WorkspaceConfig
	GitHub() GitHubConfig
	Agent() AgentConfig
}

// Config holds the entire application configuration. Reads go through the
// Interface getters; the fields stay exported so viper can unmarshal into them.
type Config struct {
	LoggerCfg    LoggerConfig    `mapstructure:"logger" yaml:"logger"`
	ServerCfg    ServerConfig    `mapstructure:"server" yaml:"server"`
	LLMCfg       LLMConfig       `mapstructure:"llm" yaml:"llm"`
	BrowserCfg   BrowserConfig   `mapstructure:"browser" yaml:"browser"`
	RunnerCfg    RunnerConfig    `mapstructure:"runner" yaml:"runner"`
	WorkspaceCfg WorkspaceConfig `mapstructure:"workspace" yaml:"workspace"`
	GitHubCfg    GitHubConfig    `mapstructure:"github" yaml:"github"`
	AgentCfg     AgentConfig     `mapstructure:"agent" yaml:"agent"`
}

func (c *Config) Logger() LoggerConfig       { return c.LoggerCfg }
func (c *Config) Server() ServerConfig       { return c.ServerCfg }
func (c *Config) LLM() LLMConfig             { return c.LLMCfg }
func (c *Config) Browser() BrowserConfig     { return c.BrowserCfg }
func (c *Config) Runner() RunnerConfig       { return c.RunnerCfg }
func (c *Config) Workspace() WorkspaceConfig { return c.WorkspaceCfg }
func (c *Config) GitHub() GitHubConfig       { return c.GitHubCfg }
func (c *Config) Agent() AgentConfig         { return c.AgentCfg }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// ServerConfig holds the HTTP API settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port" yaml:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// LLMProvider identifies a supported completion backend.
type LLMProvider string

const (
	ProviderDeepSeek  LLMProvider = "deepseek"
	ProviderAnthropic LLMProvider = "anthropic"
	// ProviderDisabled is selected automatically when no API key is configured.
	ProviderDisabled LLMProvider = "disabled"
)

// LLMConfig configures the completion provider.
type LLMConfig struct {
	Provider          LLMProvider   `mapstructure:"provider" yaml:"provider"`
	Model             string        `mapstructure:"model" yaml:"model"`
	APIKey            string        `mapstructure:"api_key" yaml:"-"`
	AnthropicAPIKey   string        `mapstructure:"anthropic_api_key" yaml:"-"`
	AnthropicModel    string        `mapstructure:"anthropic_model" yaml:"anthropic_model"`
	Endpoint          string        `mapstructure:"endpoint" yaml:"endpoint"`
	APITimeout        time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	Temperature       float64       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens         int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" yaml:"requests_per_second"`
}

// BrowserConfig holds settings for the headless browser engine.
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	Args              []string      `mapstructure:"args" yaml:"args"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	ActionTimeout     time.Duration `mapstructure:"action_timeout" yaml:"action_timeout"`
	DefaultURL        string        `mapstructure:"default_url" yaml:"default_url"`
}

// RunnerConfig configures subprocess code execution.
type RunnerConfig struct {
	PythonBin   string        `mapstructure:"python_bin" yaml:"python_bin"`
	NodeBin     string        `mapstructure:"node_bin" yaml:"node_bin"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
	TaskTimeout time.Duration `mapstructure:"task_timeout" yaml:"task_timeout"`
}

// WorkspaceConfig holds the working-directory root for file operations.
type WorkspaceConfig struct {
	Root string `mapstructure:"root" yaml:"root"`
}

// GitHubConfig holds the token used for proxied GitHub operations.
type GitHubConfig struct {
	Token string `mapstructure:"token" yaml:"-"`
}

// AgentConfig tunes the planning/dispatch loop and background progressions.
type AgentConfig struct {
	MaxSteps  int           `mapstructure:"max_steps" yaml:"max_steps"`
	StepDelay time.Duration `mapstructure:"step_delay" yaml:"step_delay"`
}

// NewDefaultConfig creates a new configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Should not happen with defaults.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "agentseek")
	v.SetDefault("logger.log_file", "agentseek.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Server --
	v.SetDefault("server.port", 7777)
	v.SetDefault("server.read_timeout", "60s")
	v.SetDefault("server.write_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "15s")

	// -- LLM --
	v.SetDefault("llm.provider", "deepseek")
	v.SetDefault("llm.model", "deepseek-chat")
	v.SetDefault("llm.anthropic_model", "claude-3-5-sonnet-20241022")
	v.SetDefault("llm.endpoint", "https://api.deepseek.com/v1/chat/completions")
	v.SetDefault("llm.api_timeout", "30s")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.max_tokens", 2048)
	v.SetDefault("llm.requests_per_second", 2.0)

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.navigation_timeout", "30s")
	v.SetDefault("browser.action_timeout", "10s")
	v.SetDefault("browser.default_url", "https://www.google.com")

	// -- Runner --
	v.SetDefault("runner.python_bin", "python3")
	v.SetDefault("runner.node_bin", "node")
	v.SetDefault("runner.timeout", "30s")
	v.SetDefault("runner.task_timeout", "10s")

	// -- Workspace --
	v.SetDefault("workspace.root", "/tmp/agentseek")

	// -- Agent --
	v.SetDefault("agent.max_steps", 10)
	v.SetDefault("agent.step_delay", "800ms")
}

// NewConfigFromViper creates a configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	// Bind environment variables for sensitive data. The legacy variable names
	// from the original deployment are kept so existing environments keep working.
	v.BindEnv("llm.api_key", "AGENTSEEK_LLM_API_KEY", "DEEPSEEK_API_KEY")
	v.BindEnv("llm.anthropic_api_key", "ANTHROPIC_API_KEY")
	v.BindEnv("github.token", "AGENTSEEK_GITHUB_TOKEN", "GITHUB_TOKEN")
	v.BindEnv("server.port", "AGENTSEEK_SERVER_PORT", "PORT")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Manually load the secrets if Unmarshal didn't pick them up.
	if cfg.LLMCfg.APIKey == "" {
		cfg.LLMCfg.APIKey = os.Getenv("DEEPSEEK_API_KEY")
	}
	if cfg.LLMCfg.AnthropicAPIKey == "" {
		cfg.LLMCfg.AnthropicAPIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if cfg.GitHubCfg.Token == "" {
		cfg.GitHubCfg.Token = os.Getenv("GITHUB_TOKEN")
	}

	// A missing key degrades the completion provider instead of crashing at
	// startup: the default deepseek provider falls back to anthropic when only
	// that key is present, and to an explicit configured-absence response when
	// no key is present at all. An explicitly configured provider is respected.
	if cfg.LLMCfg.Provider == ProviderDeepSeek && cfg.LLMCfg.APIKey == "" && cfg.LLMCfg.AnthropicAPIKey != "" {
		cfg.LLMCfg.Provider = ProviderAnthropic
	}
	if cfg.LLMCfg.APIKey == "" && cfg.LLMCfg.AnthropicAPIKey == "" {
		cfg.LLMCfg.Provider = ProviderDisabled
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.ServerCfg.Port <= 0 || c.ServerCfg.Port > 65535 {
		return fmt.Errorf("server.port must be in (0, 65535], got %d", c.ServerCfg.Port)
	}
	if c.AgentCfg.MaxSteps <= 0 {
		return fmt.Errorf("agent.max_steps must be a positive integer")
	}
	if c.WorkspaceCfg.Root == "" {
		return fmt.Errorf("workspace.root is a required configuration field")
	}
	switch c.LLMCfg.Provider {
	case ProviderDeepSeek, ProviderAnthropic, ProviderDisabled:
	default:
		return fmt.Errorf("unsupported llm.provider: %q", c.LLMCfg.Provider)
	}
	return nil
}
