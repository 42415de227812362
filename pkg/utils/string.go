package utils

// Truncate shortens s to at most maxLen runes, appending "..." when it cuts.
// Conversation titles and previews are frequently CJK text, so the cut is
// made on rune boundaries rather than bytes.
func Truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
