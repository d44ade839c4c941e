// Package installer sequences plugin installs and uninstalls. Each request is
// classified once into one of two structurally different pipelines: plugins
// handed to the backend package manager, and self-contained plugins that are
// downloaded, extracted and hooked directly. The registry is written only
// after a pipeline has fully succeeded.
package installer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/soyeahso/pluginctl/internal/deps"
	"github.com/soyeahso/pluginctl/internal/domain"
	"github.com/soyeahso/pluginctl/internal/events"
	"github.com/soyeahso/pluginctl/internal/hook"
	"github.com/soyeahso/pluginctl/internal/logging"
	"github.com/soyeahso/pluginctl/internal/manifest"
	"github.com/soyeahso/pluginctl/internal/registry"
)

// Registry is the installed-plugin store.
type Registry interface {
	LookupByName(name string) (domain.PluginRecord, error)
	Upsert(rec domain.PluginRecord) (domain.PluginRecord, error)
	Remove(name string) error
}

// BackendInstaller installs packages through the backend package manager.
type BackendInstaller interface {
	Install(ctx context.Context, name, constraint string, dev bool, onLine deps.LineFunc) error
	Uninstall(ctx context.Context, name string, onLine deps.LineFunc) error
}

// FrontendInstaller installs the packages listed in a package.json.
type FrontendInstaller interface {
	InstallFromManifest(ctx context.Context, path string, onLine deps.LineFunc) error
}

// Downloader fetches a plugin archive to dest.
type Downloader interface {
	Download(ctx context.Context, pluginID, version, dest string) (int64, error)
}

// HookLoader reads a plugin's hook sources.
type HookLoader interface {
	Load(dir string, m *manifest.Manifest) (*hook.Set, error)
}

// Options holds the filesystem layout.
type Options struct {
	// InstallPath is where self-contained plugins are placed, under a
	// per-day directory.
	InstallPath string
	// TempDir receives downloads and extraction directories.
	TempDir string
	// VendorDir is the backend package manager's install directory, used to
	// find frontend manifests shipped by backend-managed plugins.
	VendorDir string
}

// Deps are the collaborators of a Service. Events may be nil.
type Deps struct {
	Registry   Registry
	Backend    BackendInstaller
	Frontend   FrontendInstaller
	Downloader Downloader
	Hooks      HookLoader
	Events     *events.Bus
}

// Service runs install and uninstall pipelines. It is safe for concurrent
// use by independent requests; each pipeline runs on the caller's goroutine.
type Service struct {
	opts Options
	deps Deps
	log  *logging.Logger
	now  func() time.Time
}

// New creates a Service.
func New(opts Options, d Deps, log *logging.Logger) *Service {
	return &Service{
		opts: opts,
		deps: d,
		log:  log.Sub("installer"),
		now:  time.Now,
	}
}

// Request describes a plugin to install.
type Request struct {
	Name     string // vendor/package
	Version  string
	PluginID string
	Type     string // marketplace type; unknown values are treated as library
}

// Kind returns the pipeline kind the request resolves to.
func (r Request) Kind() domain.Kind {
	return domain.ParsePluginType(r.Type).Kind()
}

func (r Request) validate() error {
	if r.Name == "" {
		return errors.New("package name is required")
	}
	if r.Kind() == domain.KindSelfContained && r.PluginID == "" {
		return errors.New("plugin id is required to download a plugin")
	}
	return nil
}

// Install runs the install pipeline for req. On success the registry holds
// the returned record; on failure the error is an *InstallFailedError.
func (s *Service) Install(ctx context.Context, req Request, rep Reporter) (domain.PluginRecord, error) {
	r := s.newRun("install", req.Name, rep)
	kind := req.Kind()
	r.emit(ctx, events.InstallStarted, req.PluginID, req.Version, kind, nil)

	rec, err := s.install(ctx, r, req)
	if err != nil {
		err = &InstallFailedError{Plugin: req.Name, Err: err}
		r.rep.fail(err.Error())
		r.emit(ctx, events.InstallFailed, req.PluginID, req.Version, kind, err)
		return domain.PluginRecord{}, err
	}

	r.rep.success(fmt.Sprintf("%s %s installed", rec.Name, rec.Version))
	r.emit(ctx, events.InstallCompleted, rec.PluginID, rec.Version, rec.Kind, nil)
	return rec, nil
}

func (s *Service) install(ctx context.Context, r *run, req Request) (domain.PluginRecord, error) {
	if err := req.validate(); err != nil {
		return domain.PluginRecord{}, err
	}
	p := selectInstall(req)
	s.log.Info().Str("package", req.Name).Str("version", req.Version).Str("kind", string(req.Kind())).Msg("install started")
	return p.run(ctx, r)
}

// Uninstall runs the uninstall pipeline for name. A name the registry does
// not know fails with ErrNotInstalled before anything is touched.
func (s *Service) Uninstall(ctx context.Context, name string, rep Reporter) error {
	r := s.newRun("uninstall", name, rep)

	rec, err := s.deps.Registry.LookupByName(name)
	if err != nil {
		cause := err
		if errors.Is(err, registry.ErrNotFound) {
			cause = ErrNotInstalled
		}
		err = &UninstallFailedError{Plugin: name, Err: cause}
		r.rep.fail(err.Error())
		r.emit(ctx, events.UninstallFailed, "", "", "", err)
		return err
	}

	r.emit(ctx, events.UninstallStarted, rec.PluginID, rec.Version, rec.Kind, nil)
	s.log.Info().Str("package", name).Str("kind", string(rec.Kind)).Msg("uninstall started")

	if err := selectUninstall(rec).run(ctx, r); err != nil {
		err = &UninstallFailedError{Plugin: name, Err: err}
		r.rep.fail(err.Error())
		r.emit(ctx, events.UninstallFailed, rec.PluginID, rec.Version, rec.Kind, err)
		return err
	}

	r.rep.success(name + " uninstalled")
	r.emit(ctx, events.UninstallCompleted, rec.PluginID, rec.Version, rec.Kind, nil)
	return nil
}

// run is the state of one pipeline execution.
type run struct {
	s         *Service
	id        string
	operation string
	plugin    string
	rep       *reporter
	started   time.Time
}

func (s *Service) newRun(operation, plugin string, rep Reporter) *run {
	return &run{
		s:         s,
		id:        uuid.NewString(),
		operation: operation,
		plugin:    plugin,
		rep:       newReporter(rep, s.log.With("run", operation), plugin),
		started:   s.now(),
	}
}

func (r *run) emit(ctx context.Context, event, pluginID, version string, kind domain.Kind, err error) {
	p := events.Payload{
		Event:     event,
		RunID:     r.id,
		Operation: r.operation,
		Plugin:    r.plugin,
		PluginID:  pluginID,
		Version:   version,
		Kind:      string(kind),
		At:        r.s.now().UTC(),
	}
	if err != nil {
		p.Error = err.Error()
	}
	r.s.deps.Events.Emit(ctx, p)
}

// installDirName turns vendor/package into vendor-package.
func installDirName(name string) string {
	return strings.NewReplacer("/", "-", "\\", "-").Replace(name)
}

// installDir is the final location of a self-contained plugin.
func (s *Service) installDir(name string) string {
	return filepath.Join(s.opts.InstallPath, s.now().Format("2006-01-02"), installDirName(name))
}
