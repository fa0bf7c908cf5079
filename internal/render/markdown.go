package render

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/claimaudit/internal/audit"
	"github.com/ppiankov/claimaudit/internal/model"
)

// Markdown builds an audit report for one claim
func Markdown(c *model.Claim, s audit.State, generatedAt time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Claim audit: #%d\n\n", c.ID)
	fmt.Fprintf(&b, "_Generated %s_\n\n", generatedAt.UTC().Format(time.RFC3339))

	b.WriteString("## Claim\n\n")
	b.WriteString("| Field | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Patient | %s |\n", cell(c.PatientID))
	fmt.Fprintf(&b, "| CPT code | %s |\n", cell(c.CPTCode))
	fmt.Fprintf(&b, "| Status | %s |\n", cell(c.Status))
	for _, f := range c.DetailFields() {
		fmt.Fprintf(&b, "| %s | %s |\n", f.Label, cell(f.Value))
	}
	b.WriteString("\n")

	b.WriteString("## Audit\n\n")
	switch st := s.(type) {
	case audit.Idle:
		b.WriteString("No audit has run for this claim.\n")
	case audit.Running:
		b.WriteString("Audit still running.\n")
	case audit.TransportFailed:
		fmt.Fprintf(&b, "**Request failed:** %s\n", inline(st.Reason))
	case audit.PipelineFailure:
		fmt.Fprintf(&b, "> **Pipeline %s:** %s\n", inline(strings.ToUpper(string(st.Status))), inline(st.Message))
		markdownFlags(&b, st.Flags)
	case audit.RawFallback:
		f := fence(st.Output)
		b.WriteString("Unstructured pipeline output:\n\n" + f + "\n")
		b.WriteString(st.Output)
		if !strings.HasSuffix(st.Output, "\n") {
			b.WriteString("\n")
		}
		b.WriteString(f + "\n")
	case audit.Verdict:
		markdownVerdict(&b, st)
	default:
		panic(fmt.Sprintf("render: unhandled audit state %T", s))
	}
	return b.String()
}

func markdownVerdict(b *strings.Builder, v audit.Verdict) {
	if v.HasDecision() {
		fmt.Fprintf(b, "**Verdict:** %s\n\n", inline(string(v.Decision)))
	}
	if v.StepFailed != "" {
		fmt.Fprintf(b, "**Step failed:** %s\n\n", inline(v.StepFailed))
	}
	if v.HasConfidence() {
		fmt.Fprintf(b, "**Confidence:** %s\n\n", v.ConfidenceText())
	}
	if v.Reasoning != "" {
		fmt.Fprintf(b, "### Reasoning\n\n%s\n\n", block(v.Reasoning))
	}
	if v.PolicySource != "" {
		fmt.Fprintf(b, "**Policy source:** %s\n\n", inline(v.PolicySource))
	}
	markdownFlags(b, v.Flags)
	if v.HasMissingCriteria() {
		b.WriteString("### Missing criteria\n\n")
		for _, c := range v.MissingCriteria {
			fmt.Fprintf(b, "- %s\n", inline(c))
		}
		b.WriteString("\n")
	}
	if v.HasSuggestedFix() {
		fmt.Fprintf(b, "### Suggested fix\n\n%s\n", block(v.SuggestedFix))
	}
}

func markdownFlags(b *strings.Builder, flags []audit.Flag) {
	if len(flags) == 0 {
		return
	}
	b.WriteString("\n### Coding flags\n\n")
	for _, f := range flags {
		if f.Denied {
			fmt.Fprintf(b, "- ❌ **%s**\n", inline(f.Text))
		} else {
			fmt.Fprintf(b, "- ⚠️ %s\n", inline(f.Text))
		}
	}
	b.WriteString("\n")
}

func cell(s string) string {
	return inline(s)
}

var mdEscaper = strings.NewReplacer(
	`\`, `\\`, "`", "\\`", "*", `\*`, "_", `\_`, "[", `\[`, "]", `\]`,
	"<", `\<`, ">", `\>`, "#", `\#`, "|", `\|`, "~", `\~`,
)

// inline escapes text for a single line of Markdown
func inline(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return mdEscaper.Replace(s)
}

// block escapes multi-line prose, keeping its line breaks. Lines that
// would start a list, heading underline or indented code block are
// neutralized.
func block(s string) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	for i, line := range lines {
		line = mdEscaper.Replace(strings.TrimLeft(line, " \t"))
		switch {
		case strings.HasPrefix(line, "-"), strings.HasPrefix(line, "+"), strings.HasPrefix(line, "="):
			line = `\` + line
		default:
			if n := leadingDigits(line); n > 0 && n < len(line) && (line[n] == '.' || line[n] == ')') {
				line = line[:n] + `\` + line[n:]
			}
		}
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}

func leadingDigits(s string) int {
	n := 0
	for n < len(s) && s[n] >= '0' && s[n] <= '9' {
		n++
	}
	return n
}

// fence returns a code fence longer than any backtick run in s, so the
// text cannot close it
func fence(s string) string {
	longest, run := 0, 0
	for _, r := range s {
		if r != '`' {
			run = 0
			continue
		}
		run++
		if run > longest {
			longest = run
		}
	}
	if longest < 3 {
		return "```"
	}
	return strings.Repeat("`", longest+1)
}

// WriteMarkdownFile writes the report, creating parent directories
func WriteMarkdownFile(path string, c *model.Claim, s audit.State, generatedAt time.Time) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create report directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(Markdown(c, s, generatedAt)), 0644); err != nil {
		return fmt.Errorf("write markdown report: %w", err)
	}
	return nil
}
