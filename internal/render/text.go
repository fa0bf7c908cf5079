package render

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/ppiankov/claimaudit/internal/audit"
	"github.com/ppiankov/claimaudit/internal/model"
)

const rule = "═══════════════════════════════════════════════════════════"

// printer accumulates the first write error so renderers can write freely
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, a ...interface{}) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, a...)
}

// Worklist writes the worklist rows as an aligned table
func Worklist(w io.Writer, rows []model.WorklistEntry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	p := &printer{w: tw}

	p.printf("ID\tPATIENT\tPAYER\tDATE OF SERVICE\tAMOUNT\tSTATUS\n")
	for _, r := range rows {
		amount := "-"
		if r.ClaimAmount != nil {
			amount = model.FormatAmount(*r.ClaimAmount)
		}
		p.printf("%d\t%s\t%s\t%s\t%s\t%s\n",
			r.ID,
			r.PatientID,
			model.Deref(r.PayerName, "-"),
			model.Deref(r.DateOfService, "-"),
			amount,
			r.Status,
		)
	}
	if p.err != nil {
		return p.err
	}
	return tw.Flush()
}

// Claim writes the claim detail: header, present fields and clinical notes
func Claim(w io.Writer, c *model.Claim) error {
	p := &printer{w: w}

	p.printf("%s\n", rule)
	p.printf("  Claim #%d  %s\n", c.ID, c.Status)
	p.printf("%s\n\n", rule)
	p.printf("  %-20s %s\n", "Patient", c.PatientID)
	p.printf("  %-20s %s\n", "CPT code", c.CPTCode)
	for _, f := range c.DetailFields() {
		p.printf("  %-20s %s\n", f.Label, f.Value)
	}

	if c.Description != nil && *c.Description != "" {
		p.printf("\nDescription:\n%s\n", indent(*c.Description))
	}
	if c.Transcription != nil && *c.Transcription != "" {
		p.printf("\nTranscription:\n%s\n", indent(*c.Transcription))
	}
	p.printf("\n")
	return p.err
}

// State writes the verification panel for a state. Sections backed by
// absent fields are left out.
func State(w io.Writer, s audit.State) error {
	p := &printer{w: w}

	switch st := s.(type) {
	case audit.Idle:
		p.printf("No audit has run for this claim.\n")
	case audit.Running:
		p.printf("Audit running...\n")
	case audit.TransportFailed:
		p.printf("✗ Audit request failed: %s\n", st.Reason)
	case audit.PipelineFailure:
		p.printf("⚠ Pipeline %s: %s\n", strings.ToUpper(string(st.Status)), st.Message)
		writeFlags(p, st.Flags)
	case audit.RawFallback:
		p.printf("Unstructured pipeline output:\n\n")
		p.printf("%s\n", st.Output)
	case audit.Verdict:
		writeVerdict(p, st)
	default:
		panic(fmt.Sprintf("render: unhandled audit state %T", s))
	}
	return p.err
}

func writeVerdict(p *printer, v audit.Verdict) {
	if v.HasDecision() {
		p.printf("%s %s\n", decisionMark(v.Decision), v.Decision)
	}
	if v.StepFailed != "" {
		p.printf("Step failed:    %s\n", v.StepFailed)
	}
	if v.HasConfidence() {
		p.printf("Confidence:     %s\n", v.ConfidenceText())
	}
	if v.Reasoning != "" {
		p.printf("\nReasoning:\n%s\n", indent(v.Reasoning))
	}
	if v.PolicySource != "" {
		p.printf("\nPolicy source:  %s\n", v.PolicySource)
	}
	writeFlags(p, v.Flags)
	if v.HasMissingCriteria() {
		p.printf("\nMissing criteria:\n")
		for _, c := range v.MissingCriteria {
			p.printf("  - %s\n", c)
		}
	}
	if v.HasSuggestedFix() {
		p.printf("\nSuggested fix:\n%s\n", indent(v.SuggestedFix))
	}
}

func writeFlags(p *printer, flags []audit.Flag) {
	if len(flags) == 0 {
		return
	}
	p.printf("\nCoding flags:\n")
	for _, f := range flags {
		mark := "!"
		if f.Denied {
			mark = "✗"
		}
		p.printf("  %s %s\n", mark, f.Text)
	}
}

func decisionMark(d audit.Decision) string {
	switch d {
	case audit.DecisionApproved:
		return "✓"
	case audit.DecisionDenied:
		return "✗"
	}
	return "⚠"
}

func indent(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = "  " + l
	}
	return strings.Join(lines, "\n")
}
