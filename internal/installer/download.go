package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Masterminds/semver/v3"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/soyeahso/pluginctl/internal/archive"
	"github.com/soyeahso/pluginctl/internal/domain"
	"github.com/soyeahso/pluginctl/internal/hook"
	"github.com/soyeahso/pluginctl/internal/manifest"
)

// downloadInstall fetches, extracts and hooks a self-contained plugin.
// Individual dependency failures are tolerated as warnings; a refused
// before-install gate removes the installed directory again.
type downloadInstall struct {
	req Request
}

func (p downloadInstall) run(ctx context.Context, r *run) (rec domain.PluginRecord, err error) {
	s := r.s
	req := p.req

	if err := os.MkdirAll(s.opts.TempDir, 0o755); err != nil {
		return rec, fmt.Errorf("creating temp directory: %w", err)
	}
	stamp := s.now().Unix()
	archivePath := filepath.Join(s.opts.TempDir, fmt.Sprintf("%s_%d.zip", req.PluginID, stamp))
	extractDir := filepath.Join(s.opts.TempDir, fmt.Sprintf("extract_%d_%s", stamp, uuid.NewString()[:8]))

	defer func() {
		r.rep.progress(StepCleanup, 0, "removing temporary files")
		os.Remove(archivePath)
		os.RemoveAll(extractDir)
		r.rep.progress(StepCleanup, 100, "temporary files removed")
	}()

	// download
	r.rep.progress(StepDownload, 0, "preparing download")
	r.rep.progress(StepDownload, 20, fmt.Sprintf("downloading %s %s", req.Name, req.Version))
	size, err := s.deps.Downloader.Download(ctx, req.PluginID, req.Version, archivePath)
	if err != nil {
		return rec, fmt.Errorf("download failed: %w", err)
	}
	r.rep.progress(StepDownload, 100, "downloaded "+humanize.Bytes(uint64(size)))

	// extract
	r.rep.progress(StepExtract, 0, "extracting archive")
	files, err := archive.Extract(archivePath, extractDir)
	if err != nil {
		return rec, fmt.Errorf("extraction failed: %w", err)
	}
	r.rep.progress(StepExtract, 100, fmt.Sprintf("extracted %d files", files))

	// resolve
	r.rep.progress(StepResolve, 0, "locating plugin root")
	root := archive.FindPluginRoot(extractDir, manifest.FileName, hook.DeclarativeFile)
	m, err := manifest.Load(root)
	switch {
	case err == nil:
		r.rep.info(fmt.Sprintf("plugin: %s, version: %s", m.DisplayName(), m.Version))
	case errors.Is(err, manifest.ErrNotFound):
		r.rep.warn("manifest not found, continuing without dependency information")
		m = nil
	default:
		r.rep.warn(fmt.Sprintf("manifest unreadable, continuing without dependency information: %v", err))
		m = nil
	}
	p.warnVersionChange(r)

	target := s.installDir(req.Name)
	if err := archive.MoveDir(root, target); err != nil {
		return rec, fmt.Errorf("moving plugin into place: %w", err)
	}
	r.rep.progress(StepResolve, 100, "plugin placed at "+target)

	// past this point a failure must not leave the directory behind
	defer func() {
		if err != nil {
			os.RemoveAll(target)
		}
	}()

	hooks, err := s.deps.Hooks.Load(target, m)
	if err != nil {
		return rec, err
	}
	hc := p.context(target, m)

	// check
	r.rep.progress(StepCheck, 0, "running pre-install check")
	outcome, err := hooks.Run(ctx, hook.BeforeInstall, hc)
	if err != nil {
		return rec, err
	}
	if outcome == hook.Blocked {
		return rec, errPreInstall()
	}
	r.rep.progress(StepCheck, 100, "pre-install check passed")

	// composer
	if m != nil {
		p.installBackend(ctx, r, m)
	} else {
		r.rep.progress(StepComposer, 100, "no backend dependencies")
	}

	// npm
	pkgJSON := filepath.Join(target, manifest.FrontendFileName)
	if _, statErr := os.Stat(pkgJSON); statErr == nil {
		r.rep.progress(StepNpm, 0, "installing frontend dependencies")
		if ferr := s.deps.Frontend.InstallFromManifest(ctx, pkgJSON, r.rep.lines); ferr != nil {
			r.rep.warn("frontend dependencies failed: " + ferr.Error())
		}
		r.rep.progress(StepNpm, 100, "frontend dependencies done")
	}

	if _, err = hooks.Run(ctx, hook.AfterInstall, hc); err != nil {
		return rec, err
	}

	version := req.Version
	if version == "" && m != nil {
		version = m.Version
	}
	return s.deps.Registry.Upsert(domain.PluginRecord{
		Name:     req.Name,
		PluginID: req.PluginID,
		Version:  version,
		Kind:     domain.KindSelfContained,
		Type:     domain.ParsePluginType(req.Type),
		Path:     target,
	})
}

// installBackend installs the plugin's own requirements one at a time,
// require first and then require-dev. Platform requirements are environment
// facts and are never passed on.
func (p downloadInstall) installBackend(ctx context.Context, r *run, m *manifest.Manifest) {
	for _, d := range append(append([]manifest.Dependency(nil), m.Require...), m.RequireDev...) {
		if manifest.IsPlatformDependency(d.Name) {
			r.rep.info("skipping platform requirement " + d.String())
		}
	}

	prod := m.InstallableRequire()
	dev := m.InstallableRequireDev()
	total := len(prod) + len(dev)
	if total == 0 {
		r.rep.progress(StepComposer, 100, "no backend dependencies")
		return
	}

	r.rep.progress(StepComposer, 0, fmt.Sprintf("installing %d backend dependencies", total))
	done := 0
	for _, batch := range []struct {
		pkgs []manifest.Dependency
		dev  bool
	}{{prod, false}, {dev, true}} {
		for _, d := range batch.pkgs {
			if err := r.s.deps.Backend.Install(ctx, d.Name, d.Constraint, batch.dev, r.rep.lines); err != nil {
				r.rep.warn(fmt.Sprintf("dependency %s failed: %v", d.String(), err))
			} else if batch.dev {
				r.rep.info("installed " + d.String() + " (dev)")
			} else {
				r.rep.info("installed " + d.String())
			}
			done++
			r.rep.progress(StepComposer, done*100/total, fmt.Sprintf("%d/%d backend dependencies", done, total))
		}
	}
}

// warnVersionChange notes reinstalls and downgrades of a recorded plugin.
func (p downloadInstall) warnVersionChange(r *run) {
	prev, err := r.s.deps.Registry.LookupByName(p.req.Name)
	if err != nil || prev.Version == "" || p.req.Version == "" {
		return
	}
	from, err1 := semver.NewVersion(prev.Version)
	to, err2 := semver.NewVersion(p.req.Version)
	if err1 != nil || err2 != nil {
		return
	}
	switch {
	case to.LessThan(from):
		r.rep.warn(fmt.Sprintf("downgrading %s from %s to %s", p.req.Name, from, to))
	case to.Equal(from):
		r.rep.info(fmt.Sprintf("reinstalling %s %s", p.req.Name, to))
	default:
		r.rep.info(fmt.Sprintf("upgrading %s from %s to %s", p.req.Name, from, to))
	}
}

func (p downloadInstall) context(dir string, m *manifest.Manifest) domain.InstallContext {
	hc := domain.InstallContext{
		PluginPath: dir,
		Version:    p.req.Version,
		PluginID:   p.req.PluginID,
		Type:       domain.ParsePluginType(p.req.Type),
		Kind:       domain.KindSelfContained,
	}
	if m != nil {
		hc.Manifest = m.Raw
		hc.Module = m.Module
	}
	return hc
}
