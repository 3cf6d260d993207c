package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/blockcanvas/indy/internal/config"
	"github.com/pkg/browser"
	"github.com/spf13/cobra"
)

const apiKeysURL = "https://platform.openai.com/api-keys"

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Interactive setup wizard (with OS keychain support)",
	Long: `Walk through Indy configuration step-by-step with secure credential storage.

This will configure:
1. OpenAI API key (stored in OS keychain by default)
2. Model selection (gpt-4o-mini recommended)
3. Optional Gemini key for block generation
4. CMS address and local storage`,
	RunE: runConfigure,
}

func runConfigure(cmd *cobra.Command, args []string) error {
	fmt.Println("🔧 Indy Configuration Wizard")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println()

	reader := bufio.NewReader(os.Stdin)
	ask := func(prompt string) string {
		fmt.Print(prompt)
		response, _ := reader.ReadString('\n')
		return strings.TrimSpace(response)
	}

	homeDir, _ := os.UserHomeDir()
	configPath := cfgFile
	if configPath == "" {
		configPath = filepath.Join(homeDir, ".indy", "config.yaml")
	}
	loadedCfg, err := config.Load(configPath)
	if err != nil {
		loadedCfg = config.Default()
	}

	mode := config.DetectMode()
	fmt.Printf("Mode: %s\n", mode.Description())
	fmt.Printf("Credentials are read from: %s\n", mode.ConfigSource())
	fmt.Println()

	km := config.NewKeyringManager()
	cm := config.NewCredentialManager()
	keychainAvailable := km.IsAvailable()
	if !keychainAvailable {
		fmt.Println("⚠️  OS keychain not available (headless system or Linux without libsecret)")
		fmt.Println("   Will store API keys in the credentials file instead.")
		fmt.Println()
	}

	// Step 1: OpenAI API Key
	fmt.Println("Step 1/4: OpenAI API Key")
	fmt.Println()
	configureOpenAIKey(loadedCfg, km, cm, keychainAvailable, ask)
	fmt.Println()

	// Step 2: Model
	fmt.Println("Step 2/4: LLM Model")
	fmt.Println()
	fmt.Println("Available models:")
	fmt.Println("  1. gpt-4o-mini (recommended, fast)")
	fmt.Println("  2. gpt-4o (slower, higher quality)")
	fmt.Printf("Current: %s\n", loadedCfg.API.OpenAIModel)
	switch ask("Select model (1-2) or press Enter to keep current: ") {
	case "1":
		loadedCfg.API.OpenAIModel = "gpt-4o-mini"
		fmt.Println("✅ Using gpt-4o-mini")
	case "2":
		loadedCfg.API.OpenAIModel = "gpt-4o"
		fmt.Println("✅ Using gpt-4o")
	default:
		fmt.Printf("✅ Keeping %s\n", loadedCfg.API.OpenAIModel)
	}
	fmt.Println()

	// Step 3: Gemini
	fmt.Println("Step 3/4: Gemini (Optional)")
	fmt.Println()
	fmt.Println("Block generation can use Gemini instead of OpenAI.")
	if strings.ToLower(ask("Use Gemini for block generation? (y/N): ")) == "y" {
		key, err := cm.PromptForGeminiKey()
		switch {
		case err != nil:
			fmt.Printf("⚠️  Failed to save Gemini key: %v\n", err)
		case key != "":
			loadedCfg.API.Provider = "gemini"
			fmt.Println("✅ Gemini key saved, block generation will use Gemini")
		}
	} else {
		loadedCfg.API.Provider = "openai"
	}
	fmt.Println()

	// Step 4: CMS and storage
	fmt.Println("Step 4/4: CMS and Storage")
	fmt.Println()
	fmt.Printf("CMS URL: %s\n", loadedCfg.CMS.BaseURL)
	if url := ask("New CMS URL (Enter to keep): "); url != "" {
		loadedCfg.CMS.BaseURL = url
	}
	fmt.Printf("Storage: %s\n", loadedCfg.Storage.Type)
	if storageType := ask("Storage type, sqlite or postgres (Enter to keep): "); storageType != "" {
		loadedCfg.Storage.Type = storageType
		if storageType == "postgres" {
			loadedCfg.Storage.PostgresDSN = ask("PostgreSQL DSN: ")
		}
	}
	fmt.Println()

	if result := loadedCfg.Validate(config.ValidationContextAll); result.HasErrors() {
		fmt.Println("⚠️  Configuration has problems:")
		fmt.Print(result.Error())
		fmt.Println()
	}

	fmt.Printf("Save to: %s\n", configPath)
	response := ask("Confirm? (Y/n): ")
	if response != "" && strings.ToLower(response) != "y" {
		fmt.Println("⏭️  Configuration not saved")
		return nil
	}
	if err := loadedCfg.Save(configPath); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	fmt.Println("✅ Configuration saved!")
	fmt.Println()
	fmt.Println("🎯 Next Steps:")
	fmt.Println("   indy serve                     start the API")
	fmt.Println("   indy chat /edit/<site>/<entry>  edit a page")
	fmt.Println()

	if loadedCfg.API.UseKeychain {
		fmt.Println("🔒 Security: API key stored securely in OS keychain")
	}
	return nil
}

func configureOpenAIKey(loadedCfg *config.Config, km *config.KeyringManager, cm *config.CredentialManager, keychainAvailable bool, ask func(string) string) {
	sourceInfo := km.GetAPIKeySource(loadedCfg)
	hasKey := true
	switch {
	case sourceInfo.Source != "none":
		fmt.Printf("Current: %s\n", config.MaskAPIKey(loadedCfg.API.OpenAIKey))
		fmt.Printf("Source: %s\n", sourceInfo.Recommended)
	case cm.HasCredentials():
		fmt.Printf("Current: stored in %s\n", cm.GetConfigPath())
	default:
		hasKey = false
	}

	if hasKey {
		response := ask("Keep existing key? (Y/n): ")
		if response == "" || strings.ToLower(response) == "y" {
			return
		}
	} else {
		fmt.Println("Indy requires an OpenAI API key to call the assistant.")
		fmt.Printf("Get your key at: %s\n", apiKeysURL)
		if strings.ToLower(ask("Open it in your browser? (y/N): ")) == "y" {
			if err := browser.OpenURL(apiKeysURL); err != nil {
				fmt.Println("⚠️  Could not open browser automatically. Please visit the URL above.")
			}
		}
		fmt.Println()
	}

	apiKey := ask("Enter your OpenAI API key (starts with sk-...): ")
	if !strings.HasPrefix(apiKey, "sk-") {
		fmt.Println("⚠️  Invalid API key format (should start with sk-)")
		fmt.Println("You can set it later with: export OPENAI_API_KEY=sk-...")
		return
	}

	if keychainAvailable {
		err := km.SaveAPIKey(apiKey)
		if err == nil {
			loadedCfg.API.UseKeychain = true
			fmt.Println("✅ API key saved to OS keychain (secure)")
			fmt.Printf("   📍 %s\n", keychainLocation())
			return
		}
		fmt.Printf("⚠️  Failed to save to keychain: %v\n", err)
		fmt.Println("You can set it with: export OPENAI_API_KEY=sk-...")
		return
	}

	// Config.Save never writes keys, so fall back to the credentials file
	if err := cm.SaveCredentials(config.Credentials{OpenAIAPIKey: apiKey}); err != nil {
		fmt.Printf("⚠️  Failed to save API key: %v\n", err)
		return
	}
	loadedCfg.API.UseKeychain = false
	fmt.Println("✅ API key saved to the credentials file (plaintext)")
}

func keychainLocation() string {
	switch runtime.GOOS {
	case "darwin":
		return "macOS Keychain Access.app → 'Indy'"
	case "windows":
		return "Windows Credential Manager → 'Indy'"
	case "linux":
		return "Linux Secret Service (libsecret)"
	default:
		return "OS Keychain"
	}
}
