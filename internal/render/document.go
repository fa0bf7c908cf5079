// Package render draws claims and audit states for terminals, Markdown
// reports and machine-readable output.
package render

import (
	"fmt"
	"strconv"

	"github.com/ppiankov/claimaudit/internal/audit"
)

// FlagDoc is a coding flag with its severity class
type FlagDoc struct {
	Text   string `json:"text" yaml:"text"`
	Denied bool   `json:"denied" yaml:"denied"`
}

// Document is the flat, serializable form of an audit state. Fields that
// do not apply to the state, or were absent in the response, are empty and
// omitted from JSON/YAML.
type Document struct {
	ClaimID int64      `json:"claim_id" yaml:"claim_id"`
	Kind    audit.Kind `json:"kind" yaml:"kind"`

	// TransportFailed
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`

	// PipelineFailure
	Status  string `json:"status,omitempty" yaml:"status,omitempty"`
	Message string `json:"message,omitempty" yaml:"message,omitempty"`

	// RawFallback
	RawOutput string `json:"raw_output,omitempty" yaml:"raw_output,omitempty"`

	// Verdict
	Verdict         string   `json:"verdict,omitempty" yaml:"verdict,omitempty"`
	StepFailed      string   `json:"step_failed,omitempty" yaml:"step_failed,omitempty"`
	Reasoning       string   `json:"reasoning,omitempty" yaml:"reasoning,omitempty"`
	PolicySource    string   `json:"policy_source,omitempty" yaml:"policy_source,omitempty"`
	Confidence      *float64 `json:"confidence_score,omitempty" yaml:"confidence_score,omitempty"`
	MissingCriteria []string `json:"missing_criteria,omitempty" yaml:"missing_criteria,omitempty"`
	SuggestedFix    string   `json:"suggested_fix,omitempty" yaml:"suggested_fix,omitempty"`

	// PipelineFailure and Verdict
	Flags []FlagDoc `json:"coding_flags,omitempty" yaml:"coding_flags,omitempty"`
}

// NewDocument flattens a state. Every state kind is handled; an unknown
// implementation is a programming error.
func NewDocument(claimID int64, s audit.State) Document {
	doc := Document{ClaimID: claimID, Kind: s.Kind()}

	switch st := s.(type) {
	case audit.Idle, audit.Running:
	case audit.TransportFailed:
		doc.Reason = st.Reason
	case audit.PipelineFailure:
		doc.Status = string(st.Status)
		doc.Message = st.Message
		doc.Flags = flagDocs(st.Flags)
	case audit.RawFallback:
		doc.RawOutput = st.Output
	case audit.Verdict:
		doc.Verdict = string(st.Decision)
		doc.StepFailed = st.StepFailed
		doc.Reasoning = st.Reasoning
		doc.PolicySource = st.PolicySource
		doc.Confidence = st.Confidence
		doc.Flags = flagDocs(st.Flags)
		if st.HasMissingCriteria() {
			doc.MissingCriteria = st.MissingCriteria
		}
		if st.HasSuggestedFix() {
			doc.SuggestedFix = st.SuggestedFix
		}
	default:
		panic(fmt.Sprintf("render: unhandled audit state %T", s))
	}
	return doc
}

func flagDocs(flags []audit.Flag) []FlagDoc {
	if len(flags) == 0 {
		return nil
	}
	docs := make([]FlagDoc, len(flags))
	for i, f := range flags {
		docs[i] = FlagDoc{Text: f.Text, Denied: f.Denied}
	}
	return docs
}

// ConfidenceText formats the confidence score without trailing zeros
func (d Document) ConfidenceText() string {
	if d.Confidence == nil {
		return ""
	}
	return strconv.FormatFloat(*d.Confidence, 'f', -1, 64)
}
