package installer

import (
	"context"

	"github.com/soyeahso/pluginctl/internal/domain"
)

// installPipeline is one of the install variants, chosen once per request.
type installPipeline interface {
	run(ctx context.Context, r *run) (domain.PluginRecord, error)
}

// uninstallPipeline is one of the uninstall variants, chosen from the record.
type uninstallPipeline interface {
	run(ctx context.Context, r *run) error
}

func selectInstall(req Request) installPipeline {
	if req.Kind() == domain.KindBackendManaged {
		return composerInstall{req: req}
	}
	return downloadInstall{req: req}
}

func selectUninstall(rec domain.PluginRecord) uninstallPipeline {
	if rec.Kind == domain.KindBackendManaged {
		return composerUninstall{rec: rec}
	}
	return deleteUninstall{rec: rec}
}
