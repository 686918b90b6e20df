package main

import (
	"fmt"
	"strings"

	"lvc-go/internal/lvc"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

var (
	colorAdded    = lipgloss.Color("#10B981") // Green
	colorModified = lipgloss.Color("#F59E0B") // Amber
	colorDeleted  = lipgloss.Color("#EF4444") // Red
	colorMuted    = lipgloss.Color("#6B7280") // Gray
	colorAccent   = lipgloss.Color("#7C3AED") // Purple

	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	idStyle       = lipgloss.NewStyle().Foreground(colorModified)
	addedStyle    = lipgloss.NewStyle().Foreground(colorAdded)
	modifiedStyle = lipgloss.NewStyle().Foreground(colorModified)
	deletedStyle  = lipgloss.NewStyle().Foreground(colorDeleted)
	mutedStyle    = lipgloss.NewStyle().Foreground(colorMuted)
	warnStyle     = lipgloss.NewStyle().Bold(true).Foreground(colorModified)
	errorStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorDeleted)
	tagStyle      = lipgloss.NewStyle().Bold(true).Foreground(colorAdded)
)

// counts renders "+a ~m -d" with each part colored.
func counts(added, modified, deleted int) string {
	return fmt.Sprintf("%s %s %s",
		addedStyle.Render(fmt.Sprintf("+%d", added)),
		modifiedStyle.Render(fmt.Sprintf("~%d", modified)),
		deletedStyle.Render(fmt.Sprintf("-%d", deleted)),
	)
}

// printChanges lists changed paths with a one-letter status.
func printChanges(c *lvc.Changes) {
	for _, p := range c.Added {
		fmt.Println(addedStyle.Render("  A " + p))
	}
	for _, p := range c.Modified {
		fmt.Println(modifiedStyle.Render("  M " + p))
	}
	for _, p := range c.Deleted {
		fmt.Println(deletedStyle.Render("  D " + p))
	}
}

// colorPatch colors the lines of a unified diff.
func colorPatch(patch string) string {
	lines := strings.SplitAfter(patch, "\n")
	var b strings.Builder
	for _, l := range lines {
		switch {
		case strings.HasPrefix(l, "+++"), strings.HasPrefix(l, "---"):
			b.WriteString(lipgloss.NewStyle().Bold(true).Render(strings.TrimSuffix(l, "\n")))
		case strings.HasPrefix(l, "@@"):
			b.WriteString(titleStyle.Render(strings.TrimSuffix(l, "\n")))
		case strings.HasPrefix(l, "+"):
			b.WriteString(addedStyle.Render(strings.TrimSuffix(l, "\n")))
		case strings.HasPrefix(l, "-"):
			b.WriteString(deletedStyle.Render(strings.TrimSuffix(l, "\n")))
		default:
			b.WriteString(strings.TrimSuffix(l, "\n"))
		}
		if strings.HasSuffix(l, "\n") {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func bytesOf(n int64) string {
	if n < 0 {
		return "-" + humanize.IBytes(uint64(-n))
	}
	return humanize.IBytes(uint64(n))
}
