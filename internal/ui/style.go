// Package ui holds the terminal styling shared by the CLI and the reporter.
package ui

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Sprint color functions for building styled strings.
var (
	Bold        = color.New(color.Bold).SprintFunc()
	Dim         = color.New(color.Faint).SprintFunc()
	Cyan        = color.New(color.FgCyan).SprintFunc()
	Green       = color.New(color.FgGreen).SprintFunc()
	Red         = color.New(color.FgRed).SprintFunc()
	Yellow      = color.New(color.FgYellow).SprintFunc()
	BoldCyan    = color.New(color.Bold, color.FgCyan).SprintFunc()
	BoldGreen   = color.New(color.Bold, color.FgGreen).SprintFunc()
	BoldRed     = color.New(color.Bold, color.FgRed).SprintFunc()
	BoldYellow  = color.New(color.Bold, color.FgYellow).SprintFunc()
	BoldMagenta = color.New(color.Bold, color.FgMagenta).SprintFunc()
	BoldWhite   = color.New(color.Bold, color.FgWhite).SprintFunc()
)

// PrintBanner writes the one-line siteplan header.
func PrintBanner(w io.Writer, subtitle string) {
	fmt.Fprintf(w, "%s %s\n", BoldCyan("▦ siteplan"), Dim(subtitle))
}

// resourceColors is a palette of distinct colors for telling crews apart.
var resourceColors = []func(a ...interface{}) string{
	color.New(color.FgMagenta).SprintFunc(),
	Cyan,
	Yellow,
	Green,
	color.New(color.FgHiBlue).SprintFunc(),
	color.New(color.FgHiRed).SprintFunc(),
}

// paletteIndex hashes a name to a palette index.
func paletteIndex(name string) int {
	var h uint32
	for _, c := range name {
		h = h*31 + uint32(c)
	}
	return int(h % uint32(len(resourceColors)))
}

// Resource returns the resource name in its stable palette color, or a dim
// dash when unassigned.
func Resource(name string) string {
	if name == "" {
		return Dim("-")
	}
	return resourceColors[paletteIndex(name)](name)
}

// ProgressIcon returns a colored icon for a percent-complete value.
func ProgressIcon(pct float64) string {
	switch {
	case pct >= 100:
		return Green("✓")
	case pct > 0:
		return Cyan("●")
	default:
		return Dim("◌")
	}
}

// CriticalMark flags zero-float tasks.
func CriticalMark(critical bool) string {
	if critical {
		return BoldYellow("⚡")
	}
	return " "
}

// Float renders total float in days, red when the task is critical.
func Float(days int) string {
	s := fmt.Sprintf("%dd", days)
	if days == 0 {
		return BoldRed(s)
	}
	return Green(s)
}
