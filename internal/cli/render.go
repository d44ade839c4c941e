package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/soyeahso/pluginctl/internal/installer"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// consoleReporter prints pipeline progress and log lines. Package-manager
// output arrives as info lines and is hidden when quiet is set.
type consoleReporter struct {
	w     io.Writer
	quiet bool
}

func (c *consoleReporter) OnProgress(step string, percent int, message string) {
	if message == "" {
		return
	}
	fmt.Fprintf(c.w, "%s %s\n", dimStyle.Render(fmt.Sprintf("[%-8s %3d%%]", step, percent)), message)
}

func (c *consoleReporter) OnLog(message string, level installer.Level) {
	switch level {
	case installer.LevelSuccess:
		fmt.Fprintln(c.w, successStyle.Render("✔ "+message))
	case installer.LevelWarning:
		fmt.Fprintln(c.w, warnStyle.Render("! "+message))
	case installer.LevelError:
		fmt.Fprintln(c.w, errorStyle.Render("✘ "+message))
	default:
		if !c.quiet {
			fmt.Fprintln(c.w, "  "+message)
		}
	}
}

// renderTable writes rows as a borderless light table.
func renderTable(w io.Writer, header table.Row, rows []table.Row) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(header)
	t.AppendRows(rows)
	style := table.StyleLight
	style.Options.DrawBorder = false
	t.SetStyle(style)
	t.Render()
}

// field prints an aligned "label: value" line.
func field(w io.Writer, label string, value any) {
	fmt.Fprintf(w, "%-12s %v\n", label+":", value)
}
