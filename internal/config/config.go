// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.clickchat/config.yaml)
//  3. Default values
//
// Error Handling:
//   - Sentinel errors for Go-idiomatic checking with errors.Is()
//   - Wrap with context using fmt.Errorf("%w: details", ErrXxx)
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidProvider indicates the AI provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidModelName indicates the model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidMaxTurns indicates the orchestration turn bound is out of range.
	ErrInvalidMaxTurns = errors.New("invalid max turns")

	// ErrInvalidDatabasePath indicates the sqlite database path is invalid.
	ErrInvalidDatabasePath = errors.New("invalid database path")

	// ErrInvalidMCPURL indicates the MCP server URL is invalid.
	ErrInvalidMCPURL = errors.New("invalid MCP server URL")

	// ErrInvalidRateLimit indicates the completion rate limit is out of range.
	ErrInvalidRateLimit = errors.New("invalid rate limit")
)

// AI provider identifiers used in Config.Provider.
const (
	ProviderGemini   = "gemini"
	ProviderOpenAI   = "openai"
	ProviderGoogleAI = "googleai"
)

// MaxAllowedTurns is the absolute ceiling for the orchestration turn bound.
const MaxAllowedTurns = 64

// Config stores application configuration.
type Config struct {
	// AI provider and model configuration
	Provider  string `mapstructure:"provider" json:"provider"`     // "gemini" (default), "openai"
	ModelName string `mapstructure:"model_name" json:"model_name"` // e.g. "gemini-2.5-flash", "gpt-4o"

	// SystemPrompt is prepended to every completion request.
	SystemPrompt string `mapstructure:"system_prompt" json:"system_prompt"`

	// MaxTurns bounds model round-trips within one orchestration run.
	MaxTurns int `mapstructure:"max_turns" json:"max_turns"`

	// DatabasePath is the sqlite file holding conversation threads.
	DatabasePath string `mapstructure:"database_path" json:"database_path"`

	// MCP server configuration (see mcp.go)
	MCPName    string `mapstructure:"mcp_name" json:"mcp_name"`
	MCPCommand string `mapstructure:"mcp_command" json:"mcp_command"`
	MCPURL     string `mapstructure:"mcp_url" json:"mcp_url"`

	// Proactive completion rate limiting. Zero RPS disables the limiter.
	RateRPS   float64 `mapstructure:"rate_rps" json:"rate_rps"`
	RateBurst int     `mapstructure:"rate_burst" json:"rate_burst"`
}

// Load loads configuration.
// Priority: Environment variables > Configuration file > Default values
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".clickchat")

	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	setDefaults(configDir)
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// Configuration file not found is not an error, use default values
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."},
			"config_name", "config.yaml")
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(configDir string) {
	viper.SetDefault("provider", ProviderGemini)
	viper.SetDefault("model_name", "gemini-2.5-flash")
	viper.SetDefault("system_prompt", DefaultSystemPrompt)
	viper.SetDefault("max_turns", 8)

	viper.SetDefault("database_path", filepath.Join(configDir, "chatbot.db"))

	// Remote MCP server reached through the mcp-remote stdio bridge
	viper.SetDefault("mcp_name", "clickup")
	viper.SetDefault("mcp_command", "npx")
	viper.SetDefault("mcp_url", "https://mcp.clickup.com/mcp")

	// Rate limiting disabled by default
	viper.SetDefault("rate_rps", 0.0)
	viper.SetDefault("rate_burst", 1)
}

// bindEnvVariables binds environment variable overrides explicitly.
func bindEnvVariables() {
	// Hardcoded keys cannot fail to bind; a panic here is a bug, not a
	// runtime error.
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("provider", "CLICKCHAT_PROVIDER")
	mustBind("model_name", "CLICKCHAT_MODEL_NAME")
	mustBind("system_prompt", "CLICKCHAT_SYSTEM_PROMPT")
	mustBind("max_turns", "CLICKCHAT_MAX_TURNS")
	mustBind("database_path", "CLICKCHAT_DATABASE_PATH")
	mustBind("mcp_name", "CLICKCHAT_MCP_NAME")
	mustBind("mcp_command", "CLICKCHAT_MCP_COMMAND")
	mustBind("mcp_url", "CLICKCHAT_MCP_URL")
	mustBind("rate_rps", "CLICKCHAT_RATE_RPS")
	mustBind("rate_burst", "CLICKCHAT_RATE_BURST")

	// NOTE: GEMINI_API_KEY is read directly by Genkit, not via Viper.
	// NOTE: OPENAI_API_KEY is read directly by the Genkit OpenAI plugin.
	// Validation checks their presence based on the selected provider.
}

// DefaultSystemPrompt steers the assistant toward task-management work.
const DefaultSystemPrompt = "You are a helpful assistant for managing tasks. " +
	"Use the available tools to read and update the user's workspace when asked. " +
	"Answer concisely and report which tools you used."

// FullModelName returns the provider-qualified model name for Genkit.
// Examples: "googleai/gemini-2.5-flash", "openai/gpt-4o".
// If ModelName already contains a "/", it is returned as-is.
func (c *Config) FullModelName() string {
	if strings.Contains(c.ModelName, "/") {
		return c.ModelName
	}
	switch c.Provider {
	case ProviderOpenAI:
		return ProviderOpenAI + "/" + c.ModelName
	default:
		return ProviderGoogleAI + "/" + c.ModelName
	}
}
