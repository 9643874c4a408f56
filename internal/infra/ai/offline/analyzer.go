package offline

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"strings"
)

// maxFindings caps the rendered findings to keep the document compact.
const maxFindings = 5

type detector struct {
	re      *regexp.Regexp
	title   string
	cause   string
	fixes   []string
	prevent string
}

// Pola umum dari log production. Urutan menentukan urutan tampil.
var detectors = []detector{
	{
		re:      regexp.MustCompile(`(?i)(outofmemoryerror|out of memory|oomkilled|heap out of memory|cannot allocate memory)`),
		title:   "Process ran out of memory",
		cause:   "The process exceeded its memory limit and was killed or aborted.",
		fixes:   []string{"Raise the container or service memory limit", "Look for unbounded caches, large payloads or leaks", "Tune the runtime heap size (e.g. -Xmx, --max-old-space-size)"},
		prevent: "Alert on memory usage before the limit is reached.",
	},
	{
		re:      regexp.MustCompile(`(?i)(econnrefused|connection refused|cannot connect|could not connect|connection reset)`),
		title:   "Connection to a dependency failed",
		cause:   "A downstream service (often the database) did not accept the connection.",
		fixes:   []string{"Verify the host, port and credentials in the connection string", "Check that the dependency is running and reachable from this network", "Confirm firewall or private networking rules"},
		prevent: "Add readiness checks and connection retries with backoff at startup.",
	},
	{
		re:      regexp.MustCompile(`(?i)(eaddrinuse|address already in use|bind: address)`),
		title:   "Port already in use",
		cause:   "The server tried to bind a port that another process already holds.",
		fixes:   []string{"Bind to the port given by the PORT environment variable", "Stop the process holding the port or choose another one"},
		prevent: "Never hardcode listen ports in deployed services.",
	},
	{
		re:      regexp.MustCompile(`(?i)(environment variable|env var|is not defined|missing required|undefined variable)`),
		title:   "Missing configuration",
		cause:   "A required setting or environment variable is not present at runtime.",
		fixes:   []string{"List the service environment variables and compare against what the code reads", "Redeploy after setting the missing value"},
		prevent: "Validate configuration at startup and fail fast with a clear message.",
	},
	{
		re:      regexp.MustCompile(`(?i)(cannot find module|modulenotfounderror|no module named|classnotfoundexception|package .* is not in std)`),
		title:   "Dependency not found",
		cause:   "A module or class referenced by the code is not installed in the runtime image.",
		fixes:   []string{"Check the dependency is declared in the manifest (package.json, requirements.txt, go.mod, pom.xml)", "Rebuild the image without cache"},
		prevent: "Pin dependencies and build from a lockfile.",
	},
	{
		re:      regexp.MustCompile(`(?i)(nullpointerexception|cannot read propert(y|ies) of (undefined|null)|nil pointer dereference|nonetype)`),
		title:   "Null reference",
		cause:   "Code dereferenced a value that was null, nil or undefined.",
		fixes:   []string{"Find the line in the stack trace and check which value is unset", "Guard the access or make sure the value is initialised earlier"},
		prevent: "Validate inputs at boundaries and add tests for missing values.",
	},
	{
		re:      regexp.MustCompile(`(?i)(timeout|timed out|deadline exceeded|etimedout)`),
		title:   "Operation timed out",
		cause:   "An operation did not complete within its deadline.",
		fixes:   []string{"Check the latency of the dependency being called", "Increase the timeout only after confirming the work is expected to take that long"},
		prevent: "Set explicit timeouts on every outbound call and monitor latency.",
	},
	{
		re:      regexp.MustCompile(`(?i)(permission denied|eacces|access denied|forbidden)`),
		title:   "Permission denied",
		cause:   "The process lacks the rights needed for a file, port or remote resource.",
		fixes:   []string{"Check file ownership and the user the container runs as", "Verify credentials and role grants for the remote resource"},
		prevent: "Run with least privilege and document required grants.",
	},
	{
		re:      regexp.MustCompile(`(?i)(enotfound|no such host|getaddrinfo|name resolution)`),
		title:   "Host name could not be resolved",
		cause:   "DNS lookup for a configured host failed.",
		fixes:   []string{"Check the hostname for typos", "Use the internal hostname when services share a private network"},
		prevent: "Keep hostnames in configuration, not code.",
	},
}

// Backend diagnoses logs with fixed pattern detectors and never calls the network.
type Backend struct{}

func New() *Backend { return &Backend{} }

func (b *Backend) Name() string { return "offline" }

func (b *Backend) Diagnose(ctx context.Context, logText string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return Analyze(logText), nil
}

// Analyze renders an HTML diagnosis for logText. It is deterministic.
func Analyze(logText string) string {
	var hits []detector
	for _, d := range detectors {
		if d.re.MatchString(logText) {
			hits = append(hits, d)
		}
		if len(hits) == maxFindings {
			break
		}
	}

	var b strings.Builder
	b.WriteString(`<div class="diagnosis">` + "\n")

	if len(hits) == 0 {
		b.WriteString("    <h3>🔍 What Happened:</h3>\n")
		b.WriteString("    <p>No known failure pattern was recognised in this log.</p>\n")
		b.WriteString("    <h3>🔧 How to Fix:</h3>\n    <ul>\n")
		b.WriteString("        <li>Read the first error line and the stack frame closest to your code</li>\n")
		b.WriteString("        <li>Check recent deploys and configuration changes</li>\n")
		b.WriteString("    </ul>\n</div>")
		return b.String()
	}

	b.WriteString("    <h3>🔍 What Happened:</h3>\n")
	for _, d := range hits {
		fmt.Fprintf(&b, "    <p><strong>%s.</strong> %s</p>\n", html.EscapeString(d.title), html.EscapeString(d.cause))
		if m := d.re.FindString(logText); m != "" {
			fmt.Fprintf(&b, "    <p>Matched: <code>%s</code></p>\n", html.EscapeString(m))
		}
	}

	b.WriteString("\n    <h3>🔧 How to Fix:</h3>\n    <ul>\n")
	step := 1
	for _, d := range hits {
		for _, fix := range d.fixes {
			fmt.Fprintf(&b, "        <li>Step %d: %s</li>\n", step, html.EscapeString(fix))
			step++
		}
	}
	b.WriteString("    </ul>\n")

	b.WriteString("\n    <h3>💡 Prevention Tips:</h3>\n    <ul>\n")
	for _, d := range hits {
		fmt.Fprintf(&b, "        <li>%s</li>\n", html.EscapeString(d.prevent))
	}
	b.WriteString("    </ul>\n</div>")
	return b.String()
}
