package genai

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	fallbackMinLineLength = 40
	fallbackMaxLines      = 3
)

// localCoverLetter synthesizes a deterministic templated letter from the
// first few substantial lines of the job description and resume. No external
// calls; same input always yields the same letter.
func localCoverLetter(req Request) string {
	jobLines := longLines(req.JobDescription, fallbackMaxLines)
	resumeLines := longLines(req.Resume, fallbackMaxLines)

	tone := strings.TrimSpace(strings.ToLower(req.Tone))
	if tone == "" {
		tone = "professional"
	}
	c := cases.Title(language.English)

	sb := &strings.Builder{}
	sb.WriteString("Dear Hiring Manager,\n\n")
	fmt.Fprintf(sb, "I am writing to express my %s interest in this position.\n\n", tone)
	if len(jobLines) > 0 {
		sb.WriteString("From the role description, these points stood out to me:\n")
		for _, line := range jobLines {
			fmt.Fprintf(sb, "- %s\n", line)
		}
		sb.WriteString("\n")
	}
	if len(resumeLines) > 0 {
		sb.WriteString("My background speaks directly to them:\n")
		for _, line := range resumeLines {
			fmt.Fprintf(sb, "- %s\n", line)
		}
		sb.WriteString("\n")
	}
	sb.WriteString("I would welcome the chance to discuss how I can contribute.\n\n")
	fmt.Fprintf(sb, "%s regards,\n", c.String(tone))
	return sb.String()
}

// longLines returns up to max lines of at least fallbackMinLineLength
// characters, in document order.
func longLines(text string, max int) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "-"))
		if len(line) < fallbackMinLineLength {
			continue
		}
		out = append(out, line)
		if len(out) == max {
			break
		}
	}
	return out
}
