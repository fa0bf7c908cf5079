package audit

import (
	"encoding/json"
	"fmt"
)

// Payload is a decoded verification response. It carries no discriminant;
// Classify reconstructs the variant from field presence.
type Payload map[string]any

// DecodePayload decodes a response body. Invalid JSON is an error (the
// body cannot be interpreted); valid JSON that is not an object decodes to
// an empty payload, which classifies as an empty Verdict.
func DecodePayload(body []byte) (Payload, error) {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, fmt.Errorf("decode verification response: %w", err)
	}
	if obj, ok := v.(map[string]any); ok {
		return Payload(obj), nil
	}
	return Payload{}, nil
}

// Outcome maps the result of one verification request to its state.
// A request error always wins, before any body is looked at.
func Outcome(p Payload, err error) State {
	if err != nil {
		return TransportFailed{Reason: err.Error()}
	}
	return Classify(p)
}

// Classify maps a response body to exactly one state. The order is fixed:
// a "warning"/"error" status first, then non-empty raw_output, and the
// structured verdict otherwise. A body with both status and verdict is a
// PipelineFailure.
func Classify(p Payload) State {
	if status, ok := p.str("status"); ok {
		switch PipelineStatus(status) {
		case StatusWarning, StatusError:
			msg, _ := p.str("message")
			return PipelineFailure{
				Status:  PipelineStatus(status),
				Message: msg,
				Flags:   NewFlags(p.strings("coding_flags")),
			}
		}
	}

	if raw, ok := p.str("raw_output"); ok && raw != "" {
		return RawFallback{Output: raw}
	}

	return verdictOf(p)
}

func verdictOf(p Payload) Verdict {
	var v Verdict

	if d, ok := p.str("verdict"); ok {
		v.Decision = Decision(d)
	}
	v.StepFailed, _ = p.str("step_failed")
	v.Reasoning, _ = p.str("reasoning")
	v.PolicySource, _ = p.str("policy_source")
	v.SuggestedFix, _ = p.str("suggested_fix")
	if score, ok := p.number("confidence_score"); ok {
		v.Confidence = &score
	}
	v.Flags = NewFlags(p.strings("coding_flags"))
	v.MissingCriteria = p.strings("missing_criteria")

	return v
}

// str returns a string field; other JSON types count as absent
func (p Payload) str(key string) (string, bool) {
	s, ok := p[key].(string)
	return s, ok
}

// number returns a numeric field; other JSON types count as absent
func (p Payload) number(key string) (float64, bool) {
	switch n := p[key].(type) {
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case int:
		return float64(n), true
	}
	return 0, false
}

// strings returns the string elements of an array field in order.
// Non-string elements are skipped; a non-array value counts as absent.
func (p Payload) strings(key string) []string {
	switch arr := p[key].(type) {
	case []any:
		out := make([]string, 0, len(arr))
		for _, item := range arr {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	case []string:
		if len(arr) == 0 {
			return nil
		}
		return arr
	}
	return nil
}
