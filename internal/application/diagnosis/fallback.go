package diagnosis

import (
	"fmt"
	"html"
	"strings"

	"github.com/bryanwahyu/prodpulse/internal/domain/analysis"
)

const (
	fallbackInputLimit = 500
)

var commonSolutions = []string{
	"Check your environment variables are correctly set",
	"Verify database connection strings",
	"Ensure all dependencies are installed",
	"Check your deployment logs for more context",
	"Verify memory and CPU limits aren't exceeded",
}

// FallbackDocument renders the provider-independent diagnosis used when the
// backend is unavailable. The embedded log is HTML-escaped.
func FallbackDocument(logText string) string {
	excerpt := analysis.Truncate(logText, fallbackInputLimit, fallbackInputLimit)

	var b strings.Builder
	b.WriteString(`<div class="diagnosis">` + "\n")
	b.WriteString("    <h3>⚠️ AI Service Temporarily Unavailable</h3>\n")
	b.WriteString("    <p>We're unable to process your log with AI right now, but here's what we can tell you:</p>\n\n")
	b.WriteString("    <h3>🔍 Your Error Log:</h3>\n")
	fmt.Fprintf(&b, "    <pre>%s</pre>\n\n", html.EscapeString(excerpt))
	b.WriteString("    <h3>💡 Common Solutions:</h3>\n")
	b.WriteString("    <ul>\n")
	for _, s := range commonSolutions {
		fmt.Fprintf(&b, "        <li>%s</li>\n", html.EscapeString(s))
	}
	b.WriteString("    </ul>\n\n")
	b.WriteString("    <p>Please try again in a few moments. If the issue persists, contact support.</p>\n")
	b.WriteString("</div>\n")
	return b.String()
}
