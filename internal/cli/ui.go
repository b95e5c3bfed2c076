package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/kitchenboard/pkg/board"
	"github.com/matzehuels/kitchenboard/pkg/kitchen"
)

// defaultOut receives all command output. Tests point it at a buffer.
var defaultOut io.Writer = os.Stdout

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - available, success
	colorYellow = lipgloss.Color("220") // Amber - warnings, pending writes
	colorRed    = lipgloss.Color("167") // Soft red - errors, unavailable
	colorBlue   = lipgloss.Color("75")  // Light blue - commands
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Public Styles
// =============================================================================

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleHighlight for emphasized values.
	StyleHighlight = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleNumber for numeric values.
	StyleNumber = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleSuccess for success messages.
	StyleSuccess = lipgloss.NewStyle().Foreground(colorGreen)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)

	// StyleError for failures and unavailable items.
	StyleError = lipgloss.NewStyle().Foreground(colorRed)
)

// =============================================================================
// Internal Styles
// =============================================================================

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleCached   = lipgloss.NewStyle().Foreground(colorGreen)
	styleComputed = lipgloss.NewStyle().Foreground(colorGray)

	styleCommand = lipgloss.NewStyle().Foreground(colorBlue)

	styleTableHeader = lipgloss.NewStyle().Bold(true).Foreground(colorCyan).Padding(0, 1)
	styleTableCell   = lipgloss.NewStyle().Padding(0, 1)
)

// =============================================================================
// Icons
// =============================================================================

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
	iconCached  = "cached"
	iconFresh   = "fresh"
)

// =============================================================================
// Status Output
// =============================================================================

func printLine(s string) {
	fmt.Fprintln(defaultOut, s)
}

// printSuccess prints a success message.
func printSuccess(format string, args ...any) {
	printLine(styleIconSuccess.Render(iconSuccess) + " " + fmt.Sprintf(format, args...))
}

// printError prints an error message.
func printError(format string, args ...any) {
	printLine(styleIconError.Render(iconError) + " " + fmt.Sprintf(format, args...))
}

// printWarning prints a warning message.
func printWarning(format string, args ...any) {
	printLine(styleIconWarning.Render(iconWarning) + " " + StyleWarning.Render(fmt.Sprintf(format, args...)))
}

// printInfo prints an info/status message.
func printInfo(format string, args ...any) {
	printLine(styleIconInfo.Render(iconInfo) + " " + fmt.Sprintf(format, args...))
}

// printDetail prints a detail line (indented).
func printDetail(format string, args ...any) {
	printLine("  " + StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printFile prints a file output line.
func printFile(path string) {
	printLine("  " + StyleDim.Render(iconArrow) + " " + StyleValue.Render(path))
}

// printKeyValue prints a labeled value.
func printKeyValue(key, value string) {
	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(14)
	printLine(keyStyle.Render(key) + " " + StyleValue.Render(value))
}

// printNextStep prints a suggested next command.
func printNextStep(description, cmd string) {
	printLine(StyleDim.Render(description+":") + " " + styleCommand.Render(cmd))
}

// printNewline prints an empty line.
func printNewline() {
	fmt.Fprintln(defaultOut)
}

// =============================================================================
// Stats Display
// =============================================================================

// printStats prints graph statistics on a single line. cached reports
// whether the snapshot or render came from the cache.
func printStats(s kitchen.Stats, cached bool) {
	parts := []string{fmt.Sprintf("%d nodes", s.Nodes), fmt.Sprintf("%d edges", s.Edges)}
	if s.Categories > 0 {
		parts = append(parts, fmt.Sprintf("%d categories", s.Categories))
	}
	if s.Unavailable > 0 {
		parts = append(parts, fmt.Sprintf("%d unavailable", s.Unavailable))
	}
	if s.Deleted > 0 {
		parts = append(parts, fmt.Sprintf("%d deleted", s.Deleted))
	}
	if s.Dangling > 0 {
		parts = append(parts, fmt.Sprintf("%d dangling", s.Dangling))
	}

	line := "  "
	for i, part := range parts {
		if i > 0 {
			line += StyleDim.Render(" · ")
		}
		line += StyleDim.Render(part)
	}
	status, statusStyle := iconFresh, styleComputed
	if cached {
		status, statusStyle = iconCached, styleCached
	}
	printLine(line + StyleDim.Render(" · ") + statusStyle.Render(status))
}

// =============================================================================
// Tables
// =============================================================================

// renderTable draws rows with the shared rounded table style.
func renderTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(StyleDim).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleTableHeader
			}
			return styleTableCell
		}).
		String()
}

// nodeRows lists the active nodes of g in category display order.
func nodeRows(g *kitchen.Graph) [][]string {
	names := make(map[string]string, len(g.Categories))
	for _, c := range g.Categories {
		names[c.ID] = c.Name
	}
	var rows [][]string
	for _, n := range g.ActiveNodes() {
		avail := StyleSuccess.Render("yes")
		if !n.Available {
			avail = StyleError.Render("no")
		}
		rows = append(rows, []string{
			n.ID,
			n.Label(),
			string(n.EntityType),
			names[n.CategoryID],
			avail,
			formatPosition(&n),
		})
	}
	return rows
}

func formatPosition(n *kitchen.Node) string {
	switch {
	case n.HasDomain():
		return fmt.Sprintf("%.1f, %.1f", *n.X, *n.Y)
	case n.HasFraction():
		return fmt.Sprintf("%.2f, %.2f (frac)", *n.XPosition, *n.YPosition)
	}
	return StyleDim.Render("centre")
}

// =============================================================================
// Notices
// =============================================================================

// noticeLine formats a board notice for a status line.
func noticeLine(n board.Notice) string {
	msg := n.Message
	if len(n.Fields) > 0 {
		msg += " (" + strings.Join(n.Fields, ", ") + ")"
	}
	switch n.Level {
	case board.LevelError:
		return styleIconError.Render(iconError) + " " + msg
	case board.LevelWarn:
		return styleIconWarning.Render(iconWarning) + " " + StyleWarning.Render(msg)
	}
	return styleIconInfo.Render(iconInfo) + " " + msg
}
