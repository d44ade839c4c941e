package cli

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/soyeahso/pluginctl/internal/history"
	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	var (
		limit int
		prune time.Duration
	)

	cmd := &cobra.Command{
		Use:   "history [vendor/package]",
		Short: "Show recent install and uninstall runs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			if a.runs == nil {
				fmt.Fprintln(out, dimStyle.Render("history is disabled"))
				return nil
			}

			if prune > 0 {
				n, err := a.runs.Prune(time.Now().Add(-prune))
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "pruned %d runs\n", n)
				return nil
			}

			var plugin string
			if len(args) == 1 {
				plugin = args[0]
			}
			runs, err := a.runs.Recent(plugin, limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, dimStyle.Render("no runs recorded"))
				return nil
			}

			rows := make([]table.Row, 0, len(runs))
			for _, r := range runs {
				rows = append(rows, table.Row{
					humanize.Time(r.StartedAt),
					r.Operation,
					r.Plugin,
					r.Version,
					statusText(r.Status),
					durationText(r),
					r.Error,
				})
			}
			renderTable(out, table.Row{"Started", "Operation", "Plugin", "Version", "Status", "Took", "Error"}, rows)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show")
	cmd.Flags().DurationVar(&prune, "prune", 0, "delete finished runs older than this instead of listing")
	return cmd
}

func statusText(status string) string {
	switch status {
	case history.StatusSucceeded:
		return successStyle.Render(status)
	case history.StatusFailed:
		return errorStyle.Render(status)
	default:
		return warnStyle.Render(status)
	}
}

func durationText(r history.Run) string {
	if r.FinishedAt == nil {
		return "-"
	}
	return r.Duration().Round(time.Millisecond).String()
}
