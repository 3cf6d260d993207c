package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration settings
type Config struct {
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	API     APIConfig     `mapstructure:"api" yaml:"api"`
	Indy    IndyConfig    `mapstructure:"indy" yaml:"indy"`
	CMS     CMSConfig     `mapstructure:"cms" yaml:"cms"`
	Redis   RedisConfig   `mapstructure:"redis" yaml:"redis"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr" yaml:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins" yaml:"allowed_origins"`

	// ChatRate and ChatBurst bound assistant requests per entry.
	ChatRate  float64 `mapstructure:"chat_rate" yaml:"chat_rate"`
	ChatBurst int     `mapstructure:"chat_burst" yaml:"chat_burst"`
}

type StorageConfig struct {
	Type        string `mapstructure:"type" yaml:"type"` // "postgres", "sqlite"
	PostgresDSN string `mapstructure:"postgres_dsn" yaml:"postgres_dsn"`
	LocalPath   string `mapstructure:"local_path" yaml:"local_path"`
}

type APIConfig struct {
	Provider    string `mapstructure:"provider" yaml:"provider"` // "openai", "gemini"
	OpenAIKey   string `mapstructure:"openai_key" yaml:"openai_key"`
	OpenAIModel string `mapstructure:"openai_model" yaml:"openai_model"`
	GeminiKey   string `mapstructure:"gemini_key" yaml:"gemini_key"`
	GeminiModel string `mapstructure:"gemini_model" yaml:"gemini_model"`
	UseKeychain bool   `mapstructure:"use_keychain" yaml:"use_keychain"` // Prefer keychain over config file
}

// IndyConfig tunes the assistant itself.
type IndyConfig struct {
	RequestTimeout   time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	Temperature      float64       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens        int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	SummaryCacheSize int           `mapstructure:"summary_cache_size" yaml:"summary_cache_size"`
	TokensFile       string        `mapstructure:"tokens_file" yaml:"tokens_file"`
	GenerateURL      string        `mapstructure:"generate_url" yaml:"generate_url"`
	SnapshotPath     string        `mapstructure:"snapshot_path" yaml:"snapshot_path"`
}

// CMSConfig points at the service that persists entries.
type CMSConfig struct {
	BaseURL   string        `mapstructure:"base_url" yaml:"base_url"`
	RateLimit float64       `mapstructure:"rate_limit" yaml:"rate_limit"` // Requests per second
	Burst     int           `mapstructure:"burst" yaml:"burst"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// RedisConfig enables the shared LLM rate limiter when Addr is set.
type RedisConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	RPMLimit int64  `mapstructure:"rpm_limit" yaml:"rpm_limit"`
	TPMLimit int64  `mapstructure:"tpm_limit" yaml:"tpm_limit"`
	RPDLimit int64  `mapstructure:"rpd_limit" yaml:"rpd_limit"`
}

type LoggingConfig struct {
	Level     string `mapstructure:"level" yaml:"level"`
	Format    string `mapstructure:"format" yaml:"format"` // "text", "json"
	Directory string `mapstructure:"directory" yaml:"directory"`
}

// Default returns default configuration
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    90 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			AllowedOrigins:  []string{"http://localhost:3000", "http://localhost:5173"},
			ChatRate:        1,
			ChatBurst:       5,
		},
		Storage: StorageConfig{
			Type:      "sqlite",
			LocalPath: filepath.Join(homeDir, ".indy", "local.db"),
		},
		API: APIConfig{
			Provider:    "openai",
			OpenAIModel: "gpt-4o-mini",
			GeminiModel: "gemini-2.0-flash",
		},
		Indy: IndyConfig{
			RequestTimeout:   60 * time.Second,
			Temperature:      0.7,
			MaxTokens:        2000,
			SummaryCacheSize: 128,
			GenerateURL:      "http://localhost:8080/api/indy/generate",
			SnapshotPath:     filepath.Join(homeDir, ".indy", "sessions.db"),
		},
		CMS: CMSConfig{
			BaseURL:   "http://localhost:8080",
			RateLimit: 5,
			Burst:     5,
			Timeout:   30 * time.Second,
		},
		Redis: RedisConfig{
			RPMLimit: DefaultRPM,
			TPMLimit: DefaultTPM,
			RPDLimit: DefaultRPD,
		},
		Logging: LoggingConfig{
			Level:     "info",
			Format:    "text",
			Directory: filepath.Join(homeDir, ".indy", "logs"),
		},
	}
}

// Default LLM quota, shared by every process using the same Redis.
const (
	DefaultRPM = 500
	DefaultTPM = 200_000
	DefaultRPD = 10_000
)

// Load loads configuration from file
func Load(path string) (*Config, error) {
	// Load .env files first (in order of precedence)
	loadEnvFiles()

	v := viper.New()
	v.SetConfigType("yaml")

	cfg := Default()
	v.SetDefault("server", cfg.Server)
	v.SetDefault("storage", cfg.Storage)
	v.SetDefault("api", cfg.API)
	v.SetDefault("indy", cfg.Indy)
	v.SetDefault("cms", cfg.CMS)
	v.SetDefault("redis", cfg.Redis)
	v.SetDefault("logging", cfg.Logging)

	v.SetEnvPrefix("INDY")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".indy")
		v.AddConfigPath(".")
		homeDir, _ := os.UserHomeDir()
		v.AddConfigPath(filepath.Join(homeDir, ".indy"))
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// loadEnvFiles loads .env files in order of precedence
func loadEnvFiles() {
	envFiles := []string{
		".env.local", // Local overrides (highest precedence)
		".env",
	}

	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			_ = godotenv.Load(file)
		}
	}

	homeDir, _ := os.UserHomeDir()
	homeEnvFile := filepath.Join(homeDir, ".indy", ".env")
	if _, err := os.Stat(homeEnvFile); err == nil {
		_ = godotenv.Load(homeEnvFile)
	}
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(cfg *Config) {
	// Precedence: 1. Env var (highest) 2. Keychain 3. Config file (lowest)
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.API.OpenAIKey = key
	} else if cfg.API.OpenAIKey == "" {
		km := NewKeyringManager()
		if km.IsAvailable() {
			if keychainKey, err := km.GetAPIKey(); err == nil && keychainKey != "" {
				cfg.API.OpenAIKey = keychainKey
				cfg.API.UseKeychain = true
			}
		}
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		cfg.API.GeminiKey = key
	} else if cfg.API.GeminiKey == "" {
		km := NewKeyringManager()
		if km.IsAvailable() {
			if keychainKey, err := km.GetGeminiKey(); err == nil && keychainKey != "" {
				cfg.API.GeminiKey = keychainKey
			}
		}
	}

	if provider := os.Getenv("LLM_PROVIDER"); provider != "" {
		cfg.API.Provider = provider
	}
	if model := os.Getenv("OPENAI_MODEL"); model != "" {
		cfg.API.OpenAIModel = model
	}
	if model := os.Getenv("GEMINI_MODEL"); model != "" {
		cfg.API.GeminiModel = model
	}

	if storageType := os.Getenv("STORAGE_TYPE"); storageType != "" {
		cfg.Storage.Type = storageType
	}
	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		cfg.Storage.PostgresDSN = dsn
	}
	if path := os.Getenv("LOCAL_DB_PATH"); path != "" {
		cfg.Storage.LocalPath = expandPath(path)
	}

	if addr := os.Getenv("INDY_ADDR"); addr != "" {
		cfg.Server.Addr = addr
	}
	if url := os.Getenv("INDY_CMS_URL"); url != "" {
		cfg.CMS.BaseURL = url
	}
	if url := os.Getenv("INDY_GENERATE_URL"); url != "" {
		cfg.Indy.GenerateURL = url
	}
	if file := os.Getenv("INDY_TOKENS_FILE"); file != "" {
		cfg.Indy.TokensFile = expandPath(file)
	}
	if timeout := os.Getenv("INDY_REQUEST_TIMEOUT_SECONDS"); timeout != "" {
		if secs, err := strconv.Atoi(timeout); err == nil {
			cfg.Indy.RequestTimeout = time.Duration(secs) * time.Second
		}
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[1:])
	}
	return path
}

// Save saves configuration to file. API keys are never written; they belong
// in the keychain or the environment.
func (c *Config) Save(path string) error {
	v := viper.New()
	v.SetConfigType("yaml")

	api := c.API
	api.OpenAIKey = ""
	api.GeminiKey = ""

	v.Set("server", c.Server)
	v.Set("storage", c.Storage)
	v.Set("api", api)
	v.Set("indy", c.Indy)
	v.Set("cms", c.CMS)
	v.Set("redis", c.Redis)
	v.Set("logging", c.Logging)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
