package installer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/soyeahso/pluginctl/internal/domain"
	"github.com/soyeahso/pluginctl/internal/manifest"
)

// composerInstall hands the plugin to the backend package manager. Any
// failure, including the frontend batch, aborts the pipeline. Hooks are left
// to the package manager itself.
type composerInstall struct {
	req Request
}

func (p composerInstall) run(ctx context.Context, r *run) (domain.PluginRecord, error) {
	s := r.s
	req := p.req

	r.rep.progress(StepComposer, 0, "installing "+req.Name)
	if err := s.deps.Backend.Install(ctx, req.Name, req.Version, false, r.rep.lines); err != nil {
		return domain.PluginRecord{}, fmt.Errorf("installing %s: %w", req.Name, err)
	}
	r.rep.progress(StepComposer, 100, req.Name+" installed")

	if s.opts.VendorDir != "" {
		pkgJSON := filepath.Join(s.opts.VendorDir, filepath.FromSlash(req.Name), manifest.FrontendFileName)
		if _, err := os.Stat(pkgJSON); err == nil {
			r.rep.progress(StepNpm, 0, "installing frontend dependencies")
			if err := s.deps.Frontend.InstallFromManifest(ctx, pkgJSON, r.rep.lines); err != nil {
				return domain.PluginRecord{}, fmt.Errorf("installing frontend dependencies: %w", err)
			}
			r.rep.progress(StepNpm, 100, "frontend dependencies installed")
		}
	}

	return s.deps.Registry.Upsert(domain.PluginRecord{
		Name:     req.Name,
		PluginID: req.PluginID,
		Version:  req.Version,
		Kind:     domain.KindBackendManaged,
		Type:     domain.ParsePluginType(req.Type),
	})
}

// composerUninstall removes a backend-managed plugin through the package
// manager, then drops its record.
type composerUninstall struct {
	rec domain.PluginRecord
}

func (p composerUninstall) run(ctx context.Context, r *run) error {
	s := r.s

	r.rep.progress(StepComposer, 0, "removing "+p.rec.Name)
	if err := s.deps.Backend.Uninstall(ctx, p.rec.Name, r.rep.lines); err != nil {
		return fmt.Errorf("removing %s: %w", p.rec.Name, err)
	}
	r.rep.progress(StepComposer, 100, p.rec.Name+" removed")

	return s.deps.Registry.Remove(p.rec.Name)
}
