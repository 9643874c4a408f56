package analysis

import (
	"strings"
)

// DefaultTitle is used when the text has no non-empty line.
const DefaultTitle = "Production Error Analysis"

const (
	maxTitleRunes  = 100
	keptTitleRunes = 97
	ellipsis       = "..."
)

// urutan penting: critical dicek dulu sebelum warning
var (
	criticalKeywords = []string{
		"fatal",
		"outofmemoryerror",
		"cannot connect",
		"connection refused",
		"segmentation fault",
		"core dumped",
	}
	warningKeywords = []string{
		"error",
		"exception",
		"failed",
		"timeout",
	}
	titleKeywords = []string{"error", "exception"}
)

// SeverityOf classifies raw log text by keyword containment.
func SeverityOf(text string) Severity {
	lower := strings.ToLower(text)
	if containsAny(lower, criticalKeywords) {
		return SeverityCritical
	}
	if containsAny(lower, warningKeywords) {
		return SeverityWarning
	}
	return SeverityInfo
}

// TitleOf picks the first line mentioning an error or exception, else the first
// non-empty line, truncated to 100 characters.
func TitleOf(text string) string {
	lines := strings.Split(text, "\n")

	for _, line := range lines {
		if containsAny(strings.ToLower(line), titleKeywords) {
			return truncateTitle(strings.TrimSpace(line))
		}
	}

	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return truncateTitle(trimmed)
		}
	}

	return DefaultTitle
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func truncateTitle(s string) string {
	return Truncate(s, maxTitleRunes, keptTitleRunes)
}

// Truncate returns s unchanged when it has at most limit runes, otherwise the
// first keep runes followed by "...".
func Truncate(s string, limit, keep int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:keep]) + ellipsis
}
