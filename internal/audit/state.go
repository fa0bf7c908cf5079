// Package audit turns verification service responses into presentation
// states and tracks the audit panel of the open claim.
package audit

import (
	"strconv"
	"strings"
	"time"
)

// Kind names a presentation state
type Kind string

const (
	KindIdle            Kind = "idle"
	KindRunning         Kind = "running"
	KindTransportFailed Kind = "transport_failed"
	KindPipelineFailure Kind = "pipeline_failure"
	KindRawFallback     Kind = "raw_fallback"
	KindVerdict         Kind = "verdict"
)

// State is one of the mutually exclusive presentation states of the
// verification panel. The set is closed: Idle, Running, TransportFailed,
// PipelineFailure, RawFallback and Verdict are the only implementations,
// so renderers can switch exhaustively on the concrete type.
type State interface {
	Kind() Kind
	sealed()
}

// Idle is the state before any audit ran for the open claim
type Idle struct{}

// Running is entered when an audit is triggered and lasts until the
// response (or failure) arrives.
type Running struct {
	StartedAt time.Time
}

// TransportFailed means the request never produced an interpretable body:
// non-2xx status, network failure, or undecodable JSON.
type TransportFailed struct {
	Reason string
}

// PipelineStatus is the status reported by a pipeline that could not finish
type PipelineStatus string

const (
	StatusWarning PipelineStatus = "warning"
	StatusError   PipelineStatus = "error"
)

// PipelineFailure is a successful request whose pipeline reported it could
// not complete verification.
type PipelineFailure struct {
	Status  PipelineStatus
	Message string
	Flags   []Flag
}

// RawFallback carries unstructured pipeline output, shown verbatim
type RawFallback struct {
	Output string
}

// Decision is the categorical verdict of the pipeline
type Decision string

const (
	DecisionApproved Decision = "APPROVED"
	DecisionDenied   Decision = "DENIED"
	DecisionWarning  Decision = "WARNING"
)

// Verdict is the structured result. Every field is optional; a response of
// unknown shape yields a Verdict with all fields empty.
type Verdict struct {
	Decision        Decision
	StepFailed      string
	Reasoning       string
	PolicySource    string
	Confidence      *float64
	Flags           []Flag
	MissingCriteria []string
	SuggestedFix    string
}

func (Idle) Kind() Kind            { return KindIdle }
func (Running) Kind() Kind         { return KindRunning }
func (TransportFailed) Kind() Kind { return KindTransportFailed }
func (PipelineFailure) Kind() Kind { return KindPipelineFailure }
func (RawFallback) Kind() Kind     { return KindRawFallback }
func (Verdict) Kind() Kind         { return KindVerdict }

func (Idle) sealed()            {}
func (Running) sealed()         {}
func (TransportFailed) sealed() {}
func (PipelineFailure) sealed() {}
func (RawFallback) sealed()     {}
func (Verdict) sealed()         {}

// HasDecision reports whether a verdict value was present
func (v Verdict) HasDecision() bool { return v.Decision != "" }

// HasConfidence reports whether a confidence score was present
func (v Verdict) HasConfidence() bool { return v.Confidence != nil }

// ConfidenceText formats the confidence score without trailing zeros
func (v Verdict) ConfidenceText() string {
	if v.Confidence == nil {
		return ""
	}
	return strconv.FormatFloat(*v.Confidence, 'f', -1, 64)
}

// HasMissingCriteria is false for an absent or empty list
func (v Verdict) HasMissingCriteria() bool { return len(v.MissingCriteria) > 0 }

// HasSuggestedFix is false for an absent or blank fix
func (v Verdict) HasSuggestedFix() bool { return strings.TrimSpace(v.SuggestedFix) != "" }

// Flag is one coding flag with its severity class
type Flag struct {
	Text   string
	Denied bool
}

// deniedPrefix is matched literally and case-sensitively
const deniedPrefix = "DENIED"

// NewFlag classifies a coding flag: it is denied-class only when the text
// starts with the exact prefix "DENIED".
func NewFlag(text string) Flag {
	return Flag{Text: text, Denied: strings.HasPrefix(text, deniedPrefix)}
}

// NewFlags classifies a flag list, preserving order
func NewFlags(texts []string) []Flag {
	if len(texts) == 0 {
		return nil
	}
	flags := make([]Flag, len(texts))
	for i, t := range texts {
		flags[i] = NewFlag(t)
	}
	return flags
}
