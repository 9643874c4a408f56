package prompt

import (
	"fmt"
	"regexp"
	"strings"
)

// SystemPrompt instructs the model to answer with a single HTML diagnosis block.
func SystemPrompt() string {
	return `You are ProdPulse.AI, an expert production error diagnostic system.
You specialize in analyzing error logs from production environments,
particularly Railway, Docker, Node.js, MySQL, PostgreSQL, and common web frameworks.

Your role:
1. Analyze the error log provided
2. Identify the root cause
3. Provide clear, actionable solutions
4. Suggest prevention strategies

Format your response as HTML with these sections (no markdown, no code fences):

<div class="diagnosis">
    <h3>🔍 What Happened:</h3>
    <p>Brief explanation of the root cause in simple terms</p>

    <h3>🔧 How to Fix:</h3>
    <ul>
        <li>Step 1: Specific action</li>
        <li>Step 2: Another action</li>
        <li>Step 3: Final action</li>
    </ul>

    <h3>💡 Prevention Tips:</h3>
    <ul>
        <li>Best practice 1</li>
        <li>Best practice 2</li>
    </ul>
</div>

Focus on:
- Deployment platform issues
- Environment variable problems
- Database connection errors
- Memory/CPU issues (OOM)
- Port binding problems
- Docker container issues
- Common Node.js/Java/Python/Go errors

Keep explanations clear and actionable. Avoid jargon when possible.`
}

// UserPrompt wraps the submitted log.
func UserPrompt(logText string) string {
	return fmt.Sprintf(`Analyze this production error log and provide diagnosis:

%s

Remember to format your response as HTML as specified in the system instructions.`, logText)
}

var (
	fenceOpen   = regexp.MustCompile("^```[a-zA-Z0-9_-]*[ \t]*\n?")
	fenceClose  = regexp.MustCompile("\n?```[ \t]*$")
	scriptBlock = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script\s*>`)
	styleBlock  = regexp.MustCompile(`(?is)<style\b[^>]*>.*?</style\s*>`)
)

// CleanResponse strips a surrounding markdown code fence and removes script and
// style blocks. The result may be empty.
func CleanResponse(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = fenceOpen.ReplaceAllString(s, "")
		s = fenceClose.ReplaceAllString(s, "")
	}
	s = scriptBlock.ReplaceAllString(s, "")
	s = styleBlock.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
