package config

import (
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} patterns in strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} patterns with environment variable values.
// Unset variables are left unchanged.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

// expandSensitiveFields processes environment variable references in
// credential fields so tokens can be stored as ${ENV_VAR}.
func expandSensitiveFields(cfg *Config) {
	cfg.Marketplace.Token = expandEnvVars(cfg.Marketplace.Token)
}

// Load reads the config file, applies environment overrides, and returns
// a merged Config. Missing files produce defaults only.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(&cfg)
			expandSensitiveFields(&cfg)
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	expandSensitiveFields(&cfg)
	return cfg, nil
}

// LoadRaw reads the config file into a generic map for path-based access.
func LoadRaw(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, err
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return raw, nil
}

// SaveRaw writes a generic map back to a YAML config file.
func SaveRaw(path string, raw map[string]any) error {
	data, err := yaml.Marshal(raw)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// applyDefaults fills zero-value fields with sensible defaults.
func applyDefaults(cfg *Config) {
	d := Defaults()
	if cfg.Host.Root == "" {
		cfg.Host.Root = d.Host.Root
	}
	if cfg.Host.WebDir == "" {
		cfg.Host.WebDir = d.Host.WebDir
	}
	if cfg.Host.Composer == "" {
		cfg.Host.Composer = d.Host.Composer
	}
	if cfg.Host.Yarn == "" {
		cfg.Host.Yarn = d.Host.Yarn
	}
	if cfg.Host.AuthFile == "" {
		cfg.Host.AuthFile = d.Host.AuthFile
	}
	if cfg.Marketplace.Timeout == 0 {
		cfg.Marketplace.Timeout = d.Marketplace.Timeout
	}
	if cfg.Plugins.InstallPath == "" {
		cfg.Plugins.InstallPath = d.Plugins.InstallPath
	}
	if cfg.Plugins.TempDir == "" {
		cfg.Plugins.TempDir = d.Plugins.TempDir
	}
	if cfg.Plugins.RegistryFile == "" {
		cfg.Plugins.RegistryFile = d.Plugins.RegistryFile
	}
	if cfg.Plugins.DistDir == "" {
		cfg.Plugins.DistDir = d.Plugins.DistDir
	}
	if cfg.Plugins.DevelopDir == "" {
		cfg.Plugins.DevelopDir = d.Plugins.DevelopDir
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = d.Logging.Level
	}
}

// applyEnvOverrides reads PLUGINCTL_* environment variables and overrides config values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PLUGINCTL_HOST_ROOT"); v != "" {
		cfg.Host.Root = v
	}
	if v := os.Getenv("PLUGINCTL_MARKETPLACE_URL"); v != "" {
		cfg.Marketplace.BaseURL = v
	}
	if v := os.Getenv("PLUGINCTL_MARKETPLACE_TOKEN"); v != "" {
		cfg.Marketplace.Token = v
	}
	if v := os.Getenv("PLUGINCTL_MARKETPLACE_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Marketplace.Retries = n
		}
	}
	if v := os.Getenv("PLUGINCTL_INSTALL_PATH"); v != "" {
		cfg.Plugins.InstallPath = v
	}
	if v := os.Getenv("PLUGINCTL_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
}
