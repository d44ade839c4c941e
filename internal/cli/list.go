package cli

import (
	"errors"
	"fmt"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/soyeahso/pluginctl/internal/domain"
	"github.com/soyeahso/pluginctl/internal/registry"
	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List installed plugins",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.Close()

			records, err := a.reg.List()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, dimStyle.Render("no plugins installed"))
				return nil
			}

			names := make([]string, 0, len(records))
			for name := range records {
				names = append(names, name)
			}
			sort.Strings(names)

			rows := make([]table.Row, 0, len(names))
			for _, name := range names {
				rec := records[name]
				rows = append(rows, table.Row{rec.Name, rec.Version, rec.Kind, rec.Type, rec.PluginID, humanize.Time(rec.UpdatedAt)})
			}
			renderTable(out, table.Row{"Name", "Version", "Kind", "Type", "ID", "Updated"}, rows)
			return nil
		},
	}
}

// lookup finds a record by name, or by plugin id when byID is set.
func lookup(reg *registry.Registry, key string, byID bool) (domain.PluginRecord, error) {
	if byID {
		return reg.LookupByID(key)
	}
	return reg.LookupByName(key)
}

func newShowCmd() *cobra.Command {
	var byID bool

	cmd := &cobra.Command{
		Use:   "show <vendor/package | id>",
		Short: "Show an installed plugin's record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.Close()

			rec, err := lookup(a.reg, args[0], byID)
			if errors.Is(err, registry.ErrNotFound) {
				return fmt.Errorf("%s is not installed", args[0])
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, titleStyle.Render(rec.Name))
			field(out, "Version", rec.Version)
			field(out, "Kind", rec.Kind)
			field(out, "Type", rec.Type)
			if rec.PluginID != "" {
				field(out, "ID", rec.PluginID)
			}
			if rec.Path != "" {
				field(out, "Path", rec.Path)
			}
			field(out, "Installed", rec.InstalledAt.Local().Format("2006-01-02 15:04:05"))
			field(out, "Updated", rec.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
			return nil
		},
	}

	cmd.Flags().BoolVar(&byID, "id", false, "look the plugin up by marketplace id")
	return cmd
}

func newCheckCmd() *cobra.Command {
	var byID bool

	cmd := &cobra.Command{
		Use:   "check <vendor/package | id>",
		Short: "Report whether a plugin is installed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			rec, err := lookup(a.reg, args[0], byID)
			switch {
			case errors.Is(err, registry.ErrNotFound):
				fmt.Fprintln(out, warnStyle.Render(args[0]+" is not installed"))
				return nil
			case err != nil:
				return err
			}
			fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("%s %s is installed", rec.Name, rec.Version)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&byID, "id", false, "look the plugin up by marketplace id")
	return cmd
}
