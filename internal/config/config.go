package config

import (
	"fmt"
	"path/filepath"
)

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// DefaultPackExcludes are left out of every packed archive.
var DefaultPackExcludes = []string{".git", ".idea", ".vscode", "node_modules", "vendor", ".DS_Store", "*.log"}

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	return Config{
		Host: HostConfig{
			Root:     ".",
			WebDir:   "web",
			Composer: "composer",
			Yarn:     "yarn",
			AuthFile: "auth.json",
		},
		Marketplace: MarketplaceConfig{
			Timeout: 300,
			Retries: 3,
		},
		Plugins: PluginsConfig{
			InstallPath:  "plugins",
			TempDir:      "storage/app/plugin-temp",
			RegistryFile: "storage/app/plugins.json",
			DistDir:      "storage/app/plugin-dist",
			DevelopDir:   "plugins/develop",
			PackExcludes: append([]string(nil), DefaultPackExcludes...),
		},
		History: HistoryConfig{
			Enabled: true,
		},
		Logging: LoggingConfig{
			Level: "warn",
		},
	}
}

// HostPath resolves p against the host root. Absolute paths are returned
// unchanged.
func (c Config) HostPath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Host.Root, p)
}

// VendorDir is the backend package manager's install directory.
func (c Config) VendorDir() string {
	return c.HostPath("vendor")
}
