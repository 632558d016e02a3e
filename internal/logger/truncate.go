package logger

import "strings"

// TruncateForLog turns a prompt or model reply into a one-line preview of at
// most limit runes. Runs of whitespace, newlines included, collapse to a
// single space and an ellipsis marks a cut.
func TruncateForLog(s string, limit int) string {
	if limit <= 0 {
		return ""
	}

	runes := []rune(strings.Join(strings.Fields(s), " "))
	if len(runes) <= limit {
		return string(runes)
	}
	return string(runes[:limit]) + "..."
}
