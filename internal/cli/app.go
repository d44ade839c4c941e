package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/soyeahso/pluginctl/internal/config"
	"github.com/soyeahso/pluginctl/internal/deps"
	"github.com/soyeahso/pluginctl/internal/events"
	"github.com/soyeahso/pluginctl/internal/history"
	"github.com/soyeahso/pluginctl/internal/hook"
	"github.com/soyeahso/pluginctl/internal/installer"
	"github.com/soyeahso/pluginctl/internal/logging"
	"github.com/soyeahso/pluginctl/internal/marketplace"
	"github.com/soyeahso/pluginctl/internal/registry"
)

// app holds the components a command works with, built from the loaded
// config. Close releases the history database and log file.
type app struct {
	cfg  config.Config
	log  *logging.Logger
	reg  *registry.Registry
	bus  *events.Bus
	runs *history.Store // nil when history is disabled or unavailable

	closers []io.Closer
}

func loadApp() (*app, error) {
	cfg, err := config.Load(paths.Config)
	if err != nil {
		return nil, err
	}
	if issues := config.Validate(&cfg); len(issues) > 0 {
		msgs := make([]string, 0, len(issues))
		for _, issue := range issues {
			msgs = append(msgs, issue.String())
		}
		return nil, &config.ConfigError{Message: "invalid configuration: " + strings.Join(msgs, "; ")}
	}

	a := &app{cfg: cfg, log: log}
	if logLevel == "" {
		a.log = logging.New(nil, cfg.Logging.Level)
	}
	if cfg.Logging.File != "" {
		level := logLevel
		if level == "" {
			level = cfg.Logging.Level
		}
		l, closer, err := logging.NewWithFile(cfg.HostPath(cfg.Logging.File), level)
		if err != nil {
			return nil, err
		}
		a.log = l
		a.closers = append(a.closers, closer)
	}

	a.reg = registry.New(cfg.HostPath(cfg.Plugins.RegistryFile), a.log)
	a.bus = events.NewBus(a.log)

	if cfg.History.Enabled {
		path := cfg.History.Path
		if path == "" {
			path = paths.History
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			a.log.Warn().Err(err).Msg("history disabled")
		} else if db, err := history.Open(path, a.log); err != nil {
			a.log.Warn().Err(err).Str("path", path).Msg("history disabled")
		} else {
			a.runs = history.NewStore(db)
			a.runs.Subscribe(a.bus)
			a.closers = append(a.closers, db)
		}
	}

	return a, nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i].Close()
	}
}

func (a *app) marketplace() (*marketplace.Client, error) {
	if a.cfg.Marketplace.BaseURL == "" {
		return nil, &config.ConfigError{Message: "marketplace.baseUrl is not set"}
	}
	return marketplace.NewClient(marketplace.Options{
		BaseURL: a.cfg.Marketplace.BaseURL,
		Token:   a.cfg.Marketplace.Token,
		Timeout: time.Duration(a.cfg.Marketplace.Timeout) * time.Second,
		Retries: a.cfg.Marketplace.Retries,
	}, a.log), nil
}

func (a *app) composer() *deps.Composer {
	return deps.NewComposer(deps.ComposerOptions{
		Bin:      a.cfg.Host.Composer,
		Root:     a.cfg.Host.Root,
		AuthFile: a.cfg.HostPath(a.cfg.Host.AuthFile),
	}, deps.NewExecRunner(a.log), a.log)
}

func (a *app) yarn() *deps.Yarn {
	return deps.NewYarn(a.cfg.Host.Yarn, a.cfg.HostPath(a.cfg.Host.WebDir), deps.NewExecRunner(a.log), a.log)
}

// installer wires the orchestrator. The downloader is only required for
// self-contained plugins, so a missing marketplace URL is reported lazily.
func (a *app) installer(dl installer.Downloader) *installer.Service {
	if dl == nil {
		dl = missingDownloader{}
	}
	return installer.New(installer.Options{
		InstallPath: a.cfg.HostPath(a.cfg.Plugins.InstallPath),
		TempDir:     a.cfg.HostPath(a.cfg.Plugins.TempDir),
		VendorDir:   a.cfg.VendorDir(),
	}, installer.Deps{
		Registry:   a.reg,
		Backend:    a.composer(),
		Frontend:   a.yarn(),
		Downloader: dl,
		Hooks:      hook.NewExecutor(hook.Default, a.log),
		Events:     a.bus,
	}, a.log)
}

type missingDownloader struct{}

func (missingDownloader) Download(_ context.Context, pluginID, _, _ string) (int64, error) {
	return 0, fmt.Errorf("cannot download plugin %s: marketplace.baseUrl is not set", pluginID)
}
