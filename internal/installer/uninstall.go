package installer

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/soyeahso/pluginctl/internal/domain"
	"github.com/soyeahso/pluginctl/internal/hook"
	"github.com/soyeahso/pluginctl/internal/manifest"
)

// deleteUninstall removes a self-contained plugin's directory. Hook sources
// are read before deletion so the after-uninstall hook still runs.
type deleteUninstall struct {
	rec domain.PluginRecord
}

func (p deleteUninstall) run(ctx context.Context, r *run) error {
	s := r.s
	rec := p.rec

	var m *manifest.Manifest
	if rec.Path != "" {
		loaded, err := manifest.Load(rec.Path)
		switch {
		case err == nil:
			m = loaded
		case errors.Is(err, manifest.ErrNotFound):
			r.rep.warn("manifest not found at " + rec.Path)
		default:
			r.rep.warn(fmt.Sprintf("manifest unreadable, continuing without it: %v", err))
		}
	}

	var hooks *hook.Set
	if rec.Path != "" {
		var err error
		if hooks, err = s.deps.Hooks.Load(rec.Path, m); err != nil {
			return err
		}
	}
	hc := domain.InstallContext{
		PluginPath: rec.Path,
		Version:    rec.Version,
		PluginID:   rec.PluginID,
		Type:       rec.Type,
		Kind:       rec.Kind,
	}
	if m != nil {
		hc.Manifest = m.Raw
		hc.Module = m.Module
	}

	r.rep.progress(StepCheck, 0, "running pre-uninstall check")
	outcome, err := hooks.Run(ctx, hook.BeforeUninstall, hc)
	if err != nil {
		return err
	}
	if outcome == hook.Blocked {
		return errPreUninstall()
	}
	r.rep.progress(StepCheck, 100, "pre-uninstall check passed")

	if rec.Path != "" {
		r.rep.progress(StepCleanup, 0, "deleting "+rec.Path)
		if err := os.RemoveAll(rec.Path); err != nil {
			return fmt.Errorf("deleting %s: %w", rec.Path, err)
		}
		r.rep.progress(StepCleanup, 100, "plugin files deleted")
	}

	if _, err := hooks.Run(ctx, hook.AfterUninstall, hc); err != nil {
		r.rep.warn("after-uninstall hook failed: " + err.Error())
	}

	return s.deps.Registry.Remove(rec.Name)
}
