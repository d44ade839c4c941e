package config

// Config is the root configuration for pluginctl.
type Config struct {
	Host        HostConfig        `yaml:"host,omitempty"`
	Marketplace MarketplaceConfig `yaml:"marketplace,omitempty"`
	Plugins     PluginsConfig     `yaml:"plugins,omitempty"`
	History     HistoryConfig     `yaml:"history,omitempty"`
	Logging     LoggingConfig     `yaml:"logging,omitempty"`
}

// HostConfig describes the host application plugins are installed into.
type HostConfig struct {
	Root     string `yaml:"root,omitempty"`     // host project root; relative plugin paths resolve against it
	WebDir   string `yaml:"webDir,omitempty"`   // frontend project, where yarn runs
	Composer string `yaml:"composer,omitempty"` // composer binary
	Yarn     string `yaml:"yarn,omitempty"`     // yarn binary
	AuthFile string `yaml:"authFile,omitempty"` // composer auth.json
}

// MarketplaceConfig configures the plugin marketplace API.
type MarketplaceConfig struct {
	BaseURL string `yaml:"baseUrl,omitempty"`
	Token   string `yaml:"token,omitempty"`   // bearer token; ${VAR} is expanded
	Timeout int    `yaml:"timeout,omitempty"` // seconds
	Retries int    `yaml:"retries,omitempty"`
}

// PluginsConfig controls where plugins and their bookkeeping live.
type PluginsConfig struct {
	InstallPath  string   `yaml:"installPath,omitempty"`
	TempDir      string   `yaml:"tempDir,omitempty"`
	RegistryFile string   `yaml:"registryFile,omitempty"`
	DistDir      string   `yaml:"distDir,omitempty"`    // pack output
	DevelopDir   string   `yaml:"developDir,omitempty"` // plugins under development
	PackExcludes []string `yaml:"packExcludes,omitempty"`
}

// HistoryConfig controls the pipeline run log.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path,omitempty"` // defaults to <base>/data/history.db
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"` // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
	File  string `yaml:"file,omitempty"`  // JSON lines, in addition to the console
}
