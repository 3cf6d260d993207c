package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/blockcanvas/indy/internal/errors"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// CredentialManager handles credential retrieval with priority chain
// Priority: Environment Variables → Keychain → Credentials File → Interactive Prompt
type CredentialManager struct {
	mode       DeploymentMode
	keyring    *KeyringManager
	configPath string
	in         io.Reader
	out        io.Writer
}

// Credentials holds all user credentials
type Credentials struct {
	OpenAIAPIKey string `yaml:"openai_api_key"`
	GeminiAPIKey string `yaml:"gemini_api_key"`
}

// NewCredentialManager creates a new credential manager
func NewCredentialManager() *CredentialManager {
	homeDir, _ := os.UserHomeDir()
	return &CredentialManager{
		mode:       DetectMode(),
		keyring:    NewKeyringManager(),
		configPath: filepath.Join(homeDir, ".config", "indy", "credentials.yaml"),
		in:         os.Stdin,
		out:        os.Stdout,
	}
}

// GetOpenAIAPIKey retrieves the OpenAI API key using the priority chain
func (cm *CredentialManager) GetOpenAIAPIKey() (string, error) {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return key, nil
	}

	if cm.keyring.IsAvailable() {
		if key, err := cm.keyring.GetAPIKey(); err == nil && key != "" {
			return key, nil
		}
	}

	if creds, err := cm.loadConfigFile(); err == nil && creds.OpenAIAPIKey != "" {
		return creds.OpenAIAPIKey, nil
	}

	if cm.mode.AllowsInteractivePrompts() && isInteractive() {
		fmt.Fprintln(cm.out, "\nOpenAI API key not found.")
		fmt.Fprintln(cm.out, "   Create one at: https://platform.openai.com/api-keys")
		return cm.PromptForAPIKey()
	}

	return "", errors.ConfigErrorf(
		"OPENAI_API_KEY not found. Set it via:\n"+
			"  1. Environment variable: export OPENAI_API_KEY=sk-...\n"+
			"  2. Run: indy configure (to set up keychain)\n"+
			"  3. Credentials file: %s", cm.configPath)
}

// SaveCredentials saves credentials to keychain (preferred) or the
// credentials file (fallback)
func (cm *CredentialManager) SaveCredentials(creds Credentials) error {
	if cm.keyring.IsAvailable() {
		if creds.OpenAIAPIKey != "" {
			if err := cm.keyring.SaveAPIKey(creds.OpenAIAPIKey); err != nil {
				return errors.Wrap(err, errors.ErrorTypeConfig, errors.SeverityHigh,
					"failed to save OpenAI API key to keychain")
			}
		}
		if creds.GeminiAPIKey != "" {
			if err := cm.keyring.SaveGeminiKey(creds.GeminiAPIKey); err != nil {
				return errors.Wrap(err, errors.ErrorTypeConfig, errors.SeverityHigh,
					"failed to save Gemini API key to keychain")
			}
		}
		return nil
	}

	return cm.saveConfigFile(creds)
}

func (cm *CredentialManager) loadConfigFile() (*Credentials, error) {
	data, err := os.ReadFile(cm.configPath)
	if err != nil {
		return nil, err
	}

	var creds Credentials
	if err := yaml.Unmarshal(data, &creds); err != nil {
		return nil, err
	}
	return &creds, nil
}

func (cm *CredentialManager) saveConfigFile(creds Credentials) error {
	if err := os.MkdirAll(filepath.Dir(cm.configPath), 0700); err != nil {
		return err
	}

	data, err := yaml.Marshal(creds)
	if err != nil {
		return err
	}

	// user-only read/write
	return os.WriteFile(cm.configPath, data, 0600)
}

// PromptForAPIKey asks for an OpenAI API key and stores it.
func (cm *CredentialManager) PromptForAPIKey() (string, error) {
	fmt.Fprint(cm.out, "Enter OpenAI API Key: ")
	key, err := cm.readSecurely()
	if err != nil {
		return "", err
	}

	if key == "" {
		return "", errors.ConfigError("OpenAI API key is required")
	}
	if !strings.HasPrefix(key, "sk-") {
		return "", errors.ValidationError("OpenAI API key should start with 'sk-'")
	}

	if err := cm.SaveCredentials(Credentials{OpenAIAPIKey: key}); err != nil {
		return "", err
	}
	fmt.Fprintln(cm.out, "Saved.")
	return key, nil
}

// PromptForGeminiKey asks for an optional Gemini API key. An empty answer
// skips it.
func (cm *CredentialManager) PromptForGeminiKey() (string, error) {
	fmt.Fprint(cm.out, "Enter Gemini API Key (or press Enter to skip): ")
	key, err := cm.readSecurely()
	if err != nil || key == "" {
		return "", err
	}
	if err := cm.SaveCredentials(Credentials{GeminiAPIKey: key}); err != nil {
		return "", err
	}
	return key, nil
}

// readSecurely reads a secret from stdin without echoing
func (cm *CredentialManager) readSecurely() (string, error) {
	if f, ok := cm.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		bytes, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cm.out)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(bytes)), nil
	}

	// Piped input
	line, err := bufio.NewReader(cm.in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// isInteractive returns true if stdin is a terminal (not piped)
func isInteractive() bool {
	return term.IsTerminal(int(syscall.Stdin))
}

// GetConfigPath returns the path to the credentials file
func (cm *CredentialManager) GetConfigPath() string {
	return cm.configPath
}

// HasCredentials checks if an OpenAI key is configured anywhere
func (cm *CredentialManager) HasCredentials() bool {
	if os.Getenv("OPENAI_API_KEY") != "" {
		return true
	}
	if cm.keyring.IsAvailable() {
		if key, err := cm.keyring.GetAPIKey(); err == nil && key != "" {
			return true
		}
	}
	if creds, err := cm.loadConfigFile(); err == nil && creds.OpenAIAPIKey != "" {
		return true
	}
	return false
}
