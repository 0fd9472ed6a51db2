package tui

import (
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/lipgloss"
)

// writeClipboard is swapped out in tests.
var writeClipboard = clipboard.WriteAll

// spread renders left and right on one line, width cells apart.
func spread(left, right string, width int) string {
	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

func divider(width int) string {
	if width < 1 {
		width = 1
	}
	return subtleStyle.Render(strings.Repeat(dividerChar, width))
}
