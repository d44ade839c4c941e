package config

import (
	"fmt"
	"net/url"
	"slices"

	"github.com/gobwas/glob"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	// Host validation
	required := []struct {
		path, value string
	}{
		{"host.root", cfg.Host.Root},
		{"host.composer", cfg.Host.Composer},
		{"host.yarn", cfg.Host.Yarn},
		{"plugins.installPath", cfg.Plugins.InstallPath},
		{"plugins.tempDir", cfg.Plugins.TempDir},
		{"plugins.registryFile", cfg.Plugins.RegistryFile},
	}
	for _, r := range required {
		if r.value == "" {
			issues = append(issues, ValidationIssue{Path: r.path, Message: "must not be empty"})
		}
	}

	// Marketplace validation
	if cfg.Marketplace.BaseURL != "" {
		u, err := url.Parse(cfg.Marketplace.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			issues = append(issues, ValidationIssue{
				Path:    "marketplace.baseUrl",
				Message: fmt.Sprintf("must be an http(s) URL, got %q", cfg.Marketplace.BaseURL),
			})
		}
	}
	if cfg.Marketplace.Timeout < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "marketplace.timeout",
			Message: fmt.Sprintf("must not be negative, got %d", cfg.Marketplace.Timeout),
		})
	}
	if cfg.Marketplace.Retries < 0 || cfg.Marketplace.Retries > 10 {
		issues = append(issues, ValidationIssue{
			Path:    "marketplace.retries",
			Message: fmt.Sprintf("must be 0-10, got %d", cfg.Marketplace.Retries),
		})
	}

	// Pack exclusion patterns
	for i, pattern := range cfg.Plugins.PackExcludes {
		if pattern == "" {
			issues = append(issues, ValidationIssue{
				Path:    fmt.Sprintf("plugins.packExcludes[%d]", i),
				Message: "empty pattern",
			})
			continue
		}
		if _, err := glob.Compile(pattern, '/'); err != nil {
			issues = append(issues, ValidationIssue{
				Path:    fmt.Sprintf("plugins.packExcludes[%d]", i),
				Message: fmt.Sprintf("invalid pattern %q: %v", pattern, err),
			})
		}
	}

	// Logging validation
	validLogLevels := []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"}
	if cfg.Logging.Level != "" && !slices.Contains(validLogLevels, cfg.Logging.Level) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.level",
			Message: fmt.Sprintf("must be one of %v, got %q", validLogLevels, cfg.Logging.Level),
		})
	}

	return issues
}
