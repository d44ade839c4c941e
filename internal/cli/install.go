package cli

import (
	"errors"
	"fmt"

	"github.com/soyeahso/pluginctl/internal/domain"
	"github.com/soyeahso/pluginctl/internal/installer"
	"github.com/spf13/cobra"
)

// errNoPermission is returned when the marketplace refuses an install.
var errNoPermission = errors.New("no permission to install this plugin")

func newInstallCmd() *cobra.Command {
	var (
		version  string
		pluginID string
		typ      string
		quiet    bool
	)

	cmd := &cobra.Command{
		Use:   "install <vendor/package>",
		Short: "Install a plugin",
		Long: "Install a plugin. Library plugins (the default type) are required through the backend " +
			"package manager. Other types are downloaded from the marketplace by --id and installed " +
			"into the plugin directory.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.Close()

			req := installer.Request{Name: args[0], Version: version, PluginID: pluginID, Type: typ}
			out := cmd.OutOrStdout()

			var dl installer.Downloader
			if req.Kind() == domain.KindSelfContained {
				market, err := a.marketplace()
				if err != nil {
					return err
				}
				if pluginID != "" {
					ok, err := market.CheckPermission(cmd.Context(), pluginID, version)
					if err != nil {
						return fmt.Errorf("checking install permission: %w", err)
					}
					if !ok {
						return errNoPermission
					}
				}
				dl = market
			}

			fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("Installing %s", req.Name)))
			rec, err := a.installer(dl).Install(cmd.Context(), req, &consoleReporter{w: out, quiet: quiet})
			if err != nil {
				return err
			}

			if rec.Path != "" {
				field(out, "Path", rec.Path)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&version, "version", "", "version or constraint to install")
	cmd.Flags().StringVar(&pluginID, "id", "", "marketplace plugin id (required for non-library types)")
	cmd.Flags().StringVar(&typ, "type", string(domain.TypeLibrary), "plugin type (library, plugin, catchadmin-plugin, module, project)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "hide package manager output")

	return cmd
}

func newUninstallCmd() *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:     "uninstall <vendor/package>",
		Aliases: []string{"remove"},
		Short:   "Uninstall a plugin",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			err = a.installer(nil).Uninstall(cmd.Context(), args[0], &consoleReporter{w: out, quiet: quiet})
			if errors.Is(err, installer.ErrNotInstalled) {
				fmt.Fprintln(out, warnStyle.Render(args[0]+" is not installed"))
				return nil
			}
			return err
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "hide package manager output")
	return cmd
}
