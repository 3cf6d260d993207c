package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/blockcanvas/indy/internal/errors"
)

// ValidationContext specifies what configuration is required
type ValidationContext string

const (
	// ValidationContextServe - indy serve needs storage and an LLM provider
	ValidationContextServe ValidationContext = "serve"
	// ValidationContextChat - indy chat needs an OpenAI key and the CMS
	ValidationContextChat ValidationContext = "chat"
	// ValidationContextOffline - summarize, context and mcp need nothing external
	ValidationContextOffline ValidationContext = "offline"
	// ValidationContextAll - validate all configuration
	ValidationContextAll ValidationContext = "all"
)

// ValidationResult holds validation results
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// AddError adds an error to the validation result
func (vr *ValidationResult) AddError(format string, args ...interface{}) {
	vr.Valid = false
	vr.Errors = append(vr.Errors, fmt.Sprintf(format, args...))
}

// AddWarning adds a warning to the validation result
func (vr *ValidationResult) AddWarning(format string, args ...interface{}) {
	vr.Warnings = append(vr.Warnings, fmt.Sprintf(format, args...))
}

// HasErrors returns true if there are any errors
func (vr *ValidationResult) HasErrors() bool {
	return !vr.Valid || len(vr.Errors) > 0
}

// Error returns a formatted error message
func (vr *ValidationResult) Error() string {
	if !vr.HasErrors() {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Configuration validation failed:\n")
	for _, err := range vr.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err))
	}

	if len(vr.Warnings) > 0 {
		sb.WriteString("\nWarnings:\n")
		for _, warn := range vr.Warnings {
			sb.WriteString(fmt.Sprintf("  - %s\n", warn))
		}
	}

	return sb.String()
}

// Validate validates configuration for the given context with auto-detected mode
func (c *Config) Validate(ctx ValidationContext) *ValidationResult {
	return c.ValidateWithMode(ctx, DetectMode())
}

// ValidateWithMode validates configuration for the given context and deployment mode
func (c *Config) ValidateWithMode(ctx ValidationContext, mode DeploymentMode) *ValidationResult {
	result := &ValidationResult{Valid: true}

	switch ctx {
	case ValidationContextServe:
		c.validateStorage(result, mode)
		c.validateAPI(result, false)
		c.validateIndy(result)
		c.validateServer(result)
	case ValidationContextChat:
		c.validateAPI(result, true)
		c.validateCMS(result)
		c.validateIndy(result)
	case ValidationContextOffline:
		c.validateIndy(result)
	case ValidationContextAll:
		c.validateStorage(result, mode)
		c.validateAPI(result, false)
		c.validateCMS(result)
		c.validateIndy(result)
		c.validateServer(result)
		c.validateRedis(result)
	}

	return result
}

// RequireValid returns a ConfigError when validation for ctx fails.
func (c *Config) RequireValid(ctx ValidationContext) error {
	result := c.Validate(ctx)
	if result.HasErrors() {
		return errors.ConfigError(result.Error())
	}
	return nil
}

func (c *Config) validateStorage(result *ValidationResult, mode DeploymentMode) {
	switch c.Storage.Type {
	case "sqlite":
		if c.Storage.LocalPath == "" {
			result.AddError("LOCAL_DB_PATH is required for sqlite storage")
		}
	case "postgres":
		dsn := c.Storage.PostgresDSN
		if dsn == "" {
			result.AddError("POSTGRES_DSN is required for postgres storage")
			return
		}
		if !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") {
			result.AddError("POSTGRES_DSN must start with postgres:// or postgresql://")
		}
		if strings.Contains(dsn, "sslmode=disable") {
			if mode.RequiresSecureCredentials() {
				result.AddError("PostgreSQL DSN has sslmode=disable. This is not allowed in %s mode. Use sslmode=require or sslmode=verify-full.", mode)
			} else if mode.AllowsDevelopmentDefaults() {
				result.AddWarning("PostgreSQL DSN has sslmode=disable. Consider enabling SSL even for local development.")
			}
		}
	default:
		result.AddError("STORAGE_TYPE must be sqlite or postgres, got %q", c.Storage.Type)
	}
}

func (c *Config) validateAPI(result *ValidationResult, requireOpenAI bool) {
	switch c.API.Provider {
	case "openai", "":
	case "gemini":
		if c.API.GeminiKey == "" {
			result.AddError("GEMINI_API_KEY is required when LLM_PROVIDER=gemini")
		}
	default:
		result.AddError("LLM_PROVIDER must be openai or gemini, got %q", c.API.Provider)
	}

	if c.API.OpenAIKey == "" {
		if requireOpenAI {
			result.AddError("OPENAI_API_KEY is required but not set. Set it via environment variable or run: indy configure")
		} else {
			result.AddWarning("OPENAI_API_KEY is not set. The assistant chat endpoint will be unavailable.")
		}
	}

	if c.API.OpenAIModel == "" {
		result.AddWarning("OPENAI_MODEL is not set, will use default model")
	}
}

func (c *Config) validateCMS(result *ValidationResult) {
	if c.CMS.BaseURL == "" {
		result.AddError("INDY_CMS_URL is required to save pages")
		return
	}
	if u, err := url.Parse(c.CMS.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		result.AddError("INDY_CMS_URL is invalid: %q", c.CMS.BaseURL)
	}
	if c.CMS.RateLimit <= 0 {
		result.AddWarning("cms.rate_limit is invalid, will use default (5 req/s)")
	}
}

func (c *Config) validateIndy(result *ValidationResult) {
	if c.Indy.RequestTimeout <= 0 {
		result.AddError("indy.request_timeout must be positive")
	}
	if c.Indy.Temperature < 0 || c.Indy.Temperature > 2 {
		result.AddError("indy.temperature must be between 0 and 2, got %.2f", c.Indy.Temperature)
	}
	if c.Indy.MaxTokens <= 0 {
		result.AddWarning("indy.max_tokens is not set, the provider default applies")
	}
	if c.Indy.SummaryCacheSize <= 0 {
		result.AddWarning("indy.summary_cache_size is not positive, schema summaries will not be cached")
	}
}

func (c *Config) validateServer(result *ValidationResult) {
	if c.Server.Addr == "" {
		result.AddError("server.addr is required")
	}
}

func (c *Config) validateRedis(result *ValidationResult) {
	if c.Redis.Addr == "" {
		result.AddWarning("REDIS_ADDR is not set, LLM rate limiting is per process")
		return
	}
	if c.Redis.RPMLimit <= 0 || c.Redis.TPMLimit <= 0 || c.Redis.RPDLimit <= 0 {
		result.AddError("redis rate limits must be positive")
	}
}
