package utils

import "github.com/charmbracelet/x/ansi"

// Truncate shortens s to at most maxLen terminal cells, ending it with "..."
// when anything was cut. Escape sequences and wide runes are measured by their
// rendered width.
func Truncate(s string, maxLen int) string {
	if ansi.StringWidth(s) <= maxLen {
		return s
	}
	return ansi.Truncate(s, maxLen, "...")
}
