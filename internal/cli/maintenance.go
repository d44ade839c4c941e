package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/soyeahso/pluginctl/internal/archive"
	"github.com/soyeahso/pluginctl/internal/manifest"
	"github.com/spf13/cobra"
)

func newPackCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "pack [dir]",
		Short: "Pack a plugin directory into a distributable archive",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.Close()

			src := "."
			if len(args) == 1 {
				src = args[0]
			}
			src, err = filepath.Abs(src)
			if err != nil {
				return err
			}

			m, err := manifest.Load(src)
			if err != nil {
				return err
			}
			if m.Name == "" {
				return fmt.Errorf("%s has no package name", filepath.Join(src, manifest.FileName))
			}
			version := m.Version
			if version == "" {
				version = "dev"
			}

			dest := output
			if dest == "" {
				dest = filepath.Join(a.cfg.HostPath(a.cfg.Plugins.DistDir), packSlug(m.Name)+"-"+version+".zip")
			}
			dest, err = filepath.Abs(dest)
			if err != nil {
				return err
			}

			excludes := append([]string(nil), a.cfg.Plugins.PackExcludes...)
			if rel, err := filepath.Rel(src, filepath.Dir(dest)); err == nil && rel != "." && !strings.HasPrefix(rel, "..") {
				excludes = append(excludes, filepath.ToSlash(rel))
			}

			res, err := archive.Pack(src, dest, excludes)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, successStyle.Render("✔ packed "+m.DisplayName()))
			field(out, "Version", version)
			field(out, "Files", res.Files)
			field(out, "Size", humanize.Bytes(uint64(res.Size)))
			field(out, "Output", res.Path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "archive path (default <distDir>/<vendor>-<package>-<version>.zip)")
	return cmd
}

// packSlug turns vendor/package into a file-name-safe slug.
func packSlug(name string) string {
	return strings.NewReplacer("/", "-", "\\", "-", " ", "-").Replace(strings.ToLower(name))
}

func newOptimizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "optimize",
		Short: "Rebuild plugin records from the manifests on disk",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.Close()

			installPath := a.cfg.HostPath(a.cfg.Plugins.InstallPath)
			res, err := a.reg.Rescan(installPath)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, name := range res.Added {
				fmt.Fprintln(out, successStyle.Render("+ "+name))
			}
			for _, name := range res.Corrected {
				fmt.Fprintln(out, warnStyle.Render("~ "+name))
			}
			fmt.Fprintf(out, "%d plugin records refreshed (%d unchanged)\n", res.Touched(), len(res.Unchanged))
			return nil
		},
	}
}

func newClearCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete the installed-plugin registry",
		Long:  "Delete the installed-plugin registry file. Installed files are left in place; run optimize to rebuild records from them.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to clear the registry without --yes")
			}
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.reg.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("✔ plugin registry cleared"))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm")
	return cmd
}
