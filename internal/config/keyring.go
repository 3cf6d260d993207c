package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/zalando/go-keyring"
)

const (
	// KeyringService is the service name in the OS keychain
	KeyringService = "Indy"

	// KeyringAPIKeyItem is the key for the OpenAI API key
	KeyringAPIKeyItem = "openai-api-key"

	// KeyringGeminiKeyItem is the key for the Gemini API key
	KeyringGeminiKeyItem = "gemini-api-key"
)

// KeyringManager handles secure credential storage in OS keychain
type KeyringManager struct {
	logger *slog.Logger
}

// NewKeyringManager creates a new keyring manager
func NewKeyringManager() *KeyringManager {
	return &KeyringManager{
		logger: slog.Default().With("component", "keyring"),
	}
}

// SaveAPIKey stores the OpenAI API key in the OS keychain
// - macOS: Keychain Access.app → "Indy" → "openai-api-key"
// - Windows: Credential Manager → "Indy"
// - Linux: Secret Service (requires libsecret)
func (km *KeyringManager) SaveAPIKey(apiKey string) error {
	return km.save(KeyringAPIKeyItem, apiKey)
}

// GetAPIKey retrieves the OpenAI API key. A missing key is not an error.
func (km *KeyringManager) GetAPIKey() (string, error) {
	return km.get(KeyringAPIKeyItem)
}

// DeleteAPIKey removes the OpenAI API key
func (km *KeyringManager) DeleteAPIKey() error {
	return km.delete(KeyringAPIKeyItem)
}

// SaveGeminiKey stores the Gemini API key in the OS keychain
func (km *KeyringManager) SaveGeminiKey(apiKey string) error {
	return km.save(KeyringGeminiKeyItem, apiKey)
}

// GetGeminiKey retrieves the Gemini API key. A missing key is not an error.
func (km *KeyringManager) GetGeminiKey() (string, error) {
	return km.get(KeyringGeminiKeyItem)
}

// DeleteGeminiKey removes the Gemini API key
func (km *KeyringManager) DeleteGeminiKey() error {
	return km.delete(KeyringGeminiKeyItem)
}

func (km *KeyringManager) save(item, value string) error {
	if value == "" {
		return fmt.Errorf("api key cannot be empty")
	}

	if err := keyring.Set(KeyringService, item, value); err != nil {
		km.logger.Error("failed to save secret to keychain", "item", item, "error", err)
		return fmt.Errorf("failed to save to OS keychain: %w", err)
	}

	km.logger.Info("secret saved to keychain", "service", KeyringService, "item", item)
	return nil
}

func (km *KeyringManager) get(item string) (string, error) {
	value, err := keyring.Get(KeyringService, item)
	if err == keyring.ErrNotFound {
		// Not an error - just not set yet
		return "", nil
	}
	if err != nil {
		km.logger.Error("failed to get secret from keychain", "item", item, "error", err)
		return "", fmt.Errorf("failed to read from OS keychain: %w", err)
	}

	km.logger.Debug("secret retrieved from keychain", "item", item)
	return value, nil
}

func (km *KeyringManager) delete(item string) error {
	err := keyring.Delete(KeyringService, item)
	if err == keyring.ErrNotFound {
		return nil
	}
	if err != nil {
		km.logger.Error("failed to delete secret from keychain", "item", item, "error", err)
		return fmt.Errorf("failed to delete from OS keychain: %w", err)
	}

	km.logger.Info("secret deleted from keychain", "item", item)
	return nil
}

// IsAvailable checks if OS keychain is available
// Returns false on headless systems (CI/CD) where keychain isn't available
func (km *KeyringManager) IsAvailable() bool {
	_, err := keyring.Get(KeyringService, "test-availability")

	// "not found" means the keychain answered
	if err == keyring.ErrNotFound {
		return true
	}
	if err != nil {
		km.logger.Debug("keychain not available", "error", err)
		return false
	}

	return true
}

// KeySourceInfo returns information about where the API key is stored
type KeySourceInfo struct {
	Source      string // "keychain", "config", "env", "env_file", "none"
	Secure      bool   // true if stored securely (keychain or env var in CI/CD)
	Recommended string // recommendation if not optimal
}

// GetAPIKeySource determines where the OpenAI API key is coming from
func (km *KeyringManager) GetAPIKeySource(cfg *Config) KeySourceInfo {
	if os.Getenv("OPENAI_API_KEY") != "" {
		return KeySourceInfo{
			Source:      "env",
			Secure:      true,
			Recommended: "Using environment variable (good for CI/CD)",
		}
	}

	if keychainKey, _ := km.GetAPIKey(); keychainKey != "" {
		return KeySourceInfo{
			Source:      "keychain",
			Secure:      true,
			Recommended: "Stored securely in OS keychain",
		}
	}

	if cfg.API.OpenAIKey != "" {
		return KeySourceInfo{
			Source:      "config",
			Secure:      false,
			Recommended: "Plaintext storage detected. Run: indy configure",
		}
	}

	if _, err := os.Stat(".env"); err == nil {
		return KeySourceInfo{
			Source:      "env_file",
			Secure:      false,
			Recommended: "Using .env file (OK for CI/CD, consider keychain for local dev)",
		}
	}

	return KeySourceInfo{
		Source:      "none",
		Secure:      false,
		Recommended: "No API key configured. Run: indy configure",
	}
}

// MaskAPIKey masks an API key for display
// Shows first 7 chars and last 4 chars: "sk-proj...abc123"
func MaskAPIKey(apiKey string) string {
	if apiKey == "" {
		return "(not set)"
	}
	if len(apiKey) < 12 {
		return "***"
	}
	return fmt.Sprintf("%s...%s", apiKey[:7], apiKey[len(apiKey)-4:])
}
