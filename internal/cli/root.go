package cli

import (
	"github.com/soyeahso/pluginctl/internal/config"
	"github.com/soyeahso/pluginctl/internal/logging"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string

	// loaded at init time
	paths config.Paths
	log   *logging.Logger
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pluginctl",
		Short: "pluginctl installs and removes host application plugins",
		Long: "pluginctl installs, uninstalls and packs plugins for a host application. " +
			"Library plugins go through the backend package manager; self-contained plugins " +
			"are downloaded from the marketplace, extracted and run through their install hooks.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			paths, err = config.ResolvePaths()
			if err != nil {
				return err
			}
			if cfgFile != "" {
				paths.Config = cfgFile
			}
			level := logLevel
			if level == "" {
				level = config.Defaults().Logging.Level
			}
			log = logging.New(nil, level)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.pluginctl/config.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error, fatal, silent)")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newInstallCmd())
	cmd.AddCommand(newUninstallCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newShowCmd())
	cmd.AddCommand(newCheckCmd())
	cmd.AddCommand(newPackCmd())
	cmd.AddCommand(newOptimizeCmd())
	cmd.AddCommand(newClearCmd())
	cmd.AddCommand(newHistoryCmd())
	cmd.AddCommand(newAuthCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	cmd := newRootCmd()
	err := cmd.Execute()
	if err != nil {
		cmd.PrintErrln(errorStyle.Render("Error: " + err.Error()))
	}
	return err
}
