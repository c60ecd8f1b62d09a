package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
)

// Validate checks the configuration for internal consistency and for the
// presence of the API key the selected provider needs. Fail-fast: called by
// Load before the config reaches any component.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	switch c.Provider {
	case ProviderGemini:
		if os.Getenv("GEMINI_API_KEY") == "" && os.Getenv("GOOGLE_API_KEY") == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY not set (provider %q)", ErrMissingAPIKey, c.Provider)
		}
	case ProviderOpenAI:
		if os.Getenv("OPENAI_API_KEY") == "" {
			return fmt.Errorf("%w: OPENAI_API_KEY not set (provider %q)", ErrMissingAPIKey, c.Provider)
		}
	default:
		return fmt.Errorf("%w: %q (supported: %s, %s)", ErrInvalidProvider, c.Provider, ProviderGemini, ProviderOpenAI)
	}

	if strings.TrimSpace(c.ModelName) == "" {
		return fmt.Errorf("%w: model name is empty", ErrInvalidModelName)
	}

	if c.MaxTurns < 1 || c.MaxTurns > MaxAllowedTurns {
		return fmt.Errorf("%w: %d (must be 1..%d)", ErrInvalidMaxTurns, c.MaxTurns, MaxAllowedTurns)
	}

	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("%w: database path is empty", ErrInvalidDatabasePath)
	}

	if err := c.validateMCP(); err != nil {
		return err
	}

	if c.RateRPS < 0 {
		return fmt.Errorf("%w: rate_rps %v is negative", ErrInvalidRateLimit, c.RateRPS)
	}
	if c.RateRPS > 0 && c.RateBurst < 1 {
		return fmt.Errorf("%w: rate_burst %d (must be >= 1 when rate_rps is set)", ErrInvalidRateLimit, c.RateBurst)
	}

	return nil
}

// validateMCP checks the MCP bridge settings. An empty URL disables the MCP
// server entirely, which is a valid (tools-less) configuration.
func (c *Config) validateMCP() error {
	if c.MCPURL == "" {
		return nil
	}

	u, err := url.Parse(c.MCPURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMCPURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme %q (must be http or https)", ErrInvalidMCPURL, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host in %q", ErrInvalidMCPURL, c.MCPURL)
	}

	if strings.TrimSpace(c.MCPName) == "" {
		return fmt.Errorf("%w: mcp_name is empty", ErrInvalidMCPURL)
	}
	if strings.TrimSpace(c.MCPCommand) == "" {
		return fmt.Errorf("%w: mcp_command is empty", ErrInvalidMCPURL)
	}

	return nil
}
