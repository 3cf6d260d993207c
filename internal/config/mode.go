package config

import (
	"os"
	"strings"
)

// DeploymentMode represents the deployment context
type DeploymentMode string

const (
	// ModeDevelopment is a source checkout: .env files and local
	// databases are acceptable.
	ModeDevelopment DeploymentMode = "development"

	// ModePackaged is an installed binary. Credentials come from env vars,
	// the keychain, the config file or an interactive prompt.
	ModePackaged DeploymentMode = "packaged"

	// ModeCI is a pipeline run: environment variables only, no prompts.
	ModeCI DeploymentMode = "ci"
)

// DetectMode determines the deployment context based on environment
func DetectMode() DeploymentMode {
	// Explicit mode override (highest priority)
	if mode := os.Getenv("INDY_MODE"); mode != "" {
		switch strings.ToLower(mode) {
		case "development", "dev":
			return ModeDevelopment
		case "packaged", "pkg", "production", "prod":
			return ModePackaged
		case "ci", "cicd":
			return ModeCI
		}
	}

	// CI environment detection
	if isCI() {
		return ModeCI
	}

	// Development mode indicators
	for _, marker := range []string{".env", "go.mod", "Makefile"} {
		if _, err := os.Stat(marker); err == nil {
			return ModeDevelopment
		}
	}

	return ModePackaged
}

// isCI reports whether a well-known CI variable is set
func isCI() bool {
	for _, envVar := range []string{"CI", "CONTINUOUS_INTEGRATION", "GITHUB_ACTIONS", "GITLAB_CI", "BUILDKITE", "TF_BUILD"} {
		if os.Getenv(envVar) != "" {
			return true
		}
	}
	return false
}

// String returns the string representation of the mode
func (m DeploymentMode) String() string {
	return string(m)
}

// AllowsDevelopmentDefaults returns true if mode allows .env defaults
func (m DeploymentMode) AllowsDevelopmentDefaults() bool {
	return m == ModeDevelopment
}

// RequiresSecureCredentials returns true if mode requires secure passwords
func (m DeploymentMode) RequiresSecureCredentials() bool {
	return m == ModePackaged || m == ModeCI
}

// AllowsInteractivePrompts returns true if interactive prompts are allowed
func (m DeploymentMode) AllowsInteractivePrompts() bool {
	return m == ModePackaged
}

// Description returns a human-readable description of the mode
func (m DeploymentMode) Description() string {
	switch m {
	case ModeDevelopment:
		return "Local development (source checkout)"
	case ModePackaged:
		return "Installed binary"
	case ModeCI:
		return "CI/CD pipeline"
	default:
		return "Unknown mode"
	}
}

// ConfigSource returns where credentials should come from
func (m DeploymentMode) ConfigSource() string {
	switch m {
	case ModeDevelopment:
		return ".env file"
	case ModePackaged:
		return "environment variables, keychain, or interactive config"
	case ModeCI:
		return "environment variables only"
	default:
		return "unknown"
	}
}
