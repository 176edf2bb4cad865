package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	labelStyle = lipgloss.NewStyle().Faint(true).Width(14)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	badStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
)

// renderSummary produces the human-readable summary block. lipgloss degrades
// to plain text when stdout is not a terminal.
func renderSummary(s Summary) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("%s %s", s.Tool, s.Root)))
	b.WriteByte('\n')

	row := func(label, value string) {
		b.WriteString(labelStyle.Render(label))
		b.WriteString(value)
		b.WriteByte('\n')
	}

	row("scanned", fmt.Sprintf("%d dirs, %d files", s.Dirs, s.Files))
	if s.BytesHashed > 0 {
		row("hashed", humanize.IBytes(uint64(s.BytesHashed)))
	}
	if s.Copied > 0 {
		row("copied", fmt.Sprintf("%d entries", s.Copied))
	}
	row("elapsed", s.Elapsed.Round(time.Millisecond).String())

	switch {
	case !s.Complete:
		row("result", badStyle.Render("incomplete"))
	case s.Clean():
		row("result", okStyle.Render("clean"))
	default:
		row("result", badStyle.Render(fmt.Sprintf("%d new, %d missing, %d mismatched, %d missing dirs",
			s.NewFiles, s.Missing, s.Mismatched, s.MissingDirs)))
	}
	return b.String()
}
