package cli

import (
	"fmt"

	"github.com/soyeahso/pluginctl/internal/deps"
	"github.com/spf13/cobra"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage package manager credentials",
	}
	cmd.AddCommand(newAuthSetTokenCmd())
	return cmd
}

func newAuthSetTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-token <domain> <token>",
		Short: "Store a bearer token for a package repository host",
		Long: "Store a bearer token for a package repository host in the host auth.json. " +
			"An existing token for the same host is kept.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.Close()

			auth := deps.NewAuth(a.cfg.HostPath(a.cfg.Host.AuthFile))
			if err := auth.SetToken(args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "token for %s stored in %s\n", args[0], auth.Path())
			return nil
		},
	}
}
