package cli

import (
	"fmt"

	"github.com/soyeahso/pluginctl/internal/config"
	"github.com/soyeahso/pluginctl/internal/deps"
	"github.com/soyeahso/pluginctl/internal/version"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show pluginctl status and configuration summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "pluginctl %s (commit %s)\n\n", version.Version, version.Commit)

			// Show paths
			fmt.Fprintf(out, "Config:      %s\n", paths.Config)
			fmt.Fprintf(out, "Data:        %s\n", paths.Data)
			fmt.Fprintln(out)

			// Load config
			cfg, err := config.Load(paths.Config)
			if err != nil {
				fmt.Fprintf(out, "Config:      error loading: %v\n", err)
				return nil
			}

			fmt.Fprintf(out, "Host:        %s\n", cfg.Host.Root)
			fmt.Fprintf(out, "Plugins:     %s\n", cfg.HostPath(cfg.Plugins.InstallPath))
			fmt.Fprintf(out, "Registry:    %s\n", cfg.HostPath(cfg.Plugins.RegistryFile))
			if cfg.Marketplace.BaseURL != "" {
				fmt.Fprintf(out, "Marketplace: %s (token set: %v)\n", cfg.Marketplace.BaseURL, cfg.Marketplace.Token != "")
			} else {
				fmt.Fprintln(out, "Marketplace: (not configured)")
			}

			// Package managers
			for _, bin := range []string{cfg.Host.Composer, cfg.Host.Yarn} {
				state := successStyle.Render("found")
				if !deps.Exists(bin) {
					state = warnStyle.Render("not in PATH")
				}
				fmt.Fprintf(out, "%-12s %s\n", bin+":", state)
			}

			// Validation
			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				fmt.Fprintf(out, "\nValidation issues (%d):\n", len(issues))
				for _, issue := range issues {
					fmt.Fprintf(out, "  - %s: %s\n", issue.Path, issue.Message)
				}
				return nil
			}

			// Installed plugins
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.Close()
			names, err := a.reg.Names()
			if err != nil {
				fmt.Fprintf(out, "Installed:   error reading registry: %v\n", err)
				return nil
			}
			fmt.Fprintf(out, "Installed:   %d plugins\n", len(names))
			return nil
		},
	}

	return cmd
}
