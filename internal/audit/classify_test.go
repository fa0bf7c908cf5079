package audit

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, body string) Payload {
	t.Helper()
	p, err := DecodePayload([]byte(body))
	require.NoError(t, err)
	return p
}

func TestClassify_StatusWinsOverVerdict(t *testing.T) {
	p := decode(t, `{"status":"error","message":"Claim not found","verdict":"APPROVED","confidence_score":99}`)

	state := Classify(p)

	failure, ok := state.(PipelineFailure)
	require.True(t, ok, "expected PipelineFailure, got %T", state)
	assert.Equal(t, StatusError, failure.Status)
	assert.Equal(t, "Claim not found", failure.Message)
	assert.Equal(t, KindPipelineFailure, state.Kind())
}

func TestClassify_WarningWithDeniedFlag(t *testing.T) {
	p := decode(t, `{"status":"warning","message":"timeout","coding_flags":["DENIED:99213 mismatch"]}`)

	failure, ok := Classify(p).(PipelineFailure)
	require.True(t, ok)
	assert.Equal(t, StatusWarning, failure.Status)
	assert.Equal(t, "timeout", failure.Message)
	require.Len(t, failure.Flags, 1)
	assert.True(t, failure.Flags[0].Denied)
	assert.Equal(t, "DENIED:99213 mismatch", failure.Flags[0].Text)
}

func TestClassify_StatusWinsOverRawOutput(t *testing.T) {
	p := decode(t, `{"status":"warning","message":"partial","raw_output":"garbage"}`)
	assert.IsType(t, PipelineFailure{}, Classify(p))
}

func TestClassify_OtherStatusIsIgnored(t *testing.T) {
	tests := []struct {
		name string
		body string
		want Kind
	}{
		{"ok status with raw", `{"status":"ok","raw_output":"text"}`, KindRawFallback},
		{"uppercase ERROR is not a failure", `{"status":"ERROR","verdict":"DENIED"}`, KindVerdict},
		{"numeric status", `{"status":500,"verdict":"DENIED"}`, KindVerdict},
		{"null status", `{"status":null,"raw_output":"x"}`, KindRawFallback},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(decode(t, tt.body)).Kind())
		})
	}
}

func TestClassify_RawFallback(t *testing.T) {
	p := decode(t, `{"raw_output":"LLM parse failed"}`)

	raw, ok := Classify(p).(RawFallback)
	require.True(t, ok)
	assert.Equal(t, "LLM parse failed", raw.Output)
}

func TestClassify_RawFallbackVerbatim(t *testing.T) {
	body := "```json\n{\"verdict\": \"APPROVED\"\n  <b>not html</b>"
	raw, ok := Classify(Payload{"raw_output": body}).(RawFallback)
	require.True(t, ok)
	assert.Equal(t, body, raw.Output)
}

func TestClassify_EmptyRawOutputFallsThrough(t *testing.T) {
	p := decode(t, `{"raw_output":"","verdict":"DENIED"}`)

	v, ok := Classify(p).(Verdict)
	require.True(t, ok)
	assert.Equal(t, DecisionDenied, v.Decision)
}

func TestClassify_StructuredVerdictOmitsEmptySections(t *testing.T) {
	p := decode(t, `{"verdict":"APPROVED","confidence_score":92,"reasoning":"Criteria met","missing_criteria":[],"suggested_fix":""}`)

	v, ok := Classify(p).(Verdict)
	require.True(t, ok)
	assert.Equal(t, DecisionApproved, v.Decision)
	assert.True(t, v.HasConfidence())
	assert.Equal(t, "92", v.ConfidenceText())
	assert.Equal(t, "Criteria met", v.Reasoning)
	assert.False(t, v.HasMissingCriteria())
	assert.False(t, v.HasSuggestedFix())
	assert.Empty(t, v.Flags)
	assert.Empty(t, v.StepFailed)
	assert.Empty(t, v.PolicySource)
}

func TestClassify_FullVerdict(t *testing.T) {
	p := decode(t, `{
		"verdict": "DENIED",
		"confidence_score": 100,
		"reasoning": "Member ID is missing from the claim.",
		"missing_criteria": ["Valid Member ID"],
		"suggested_fix": "Ensure the claim includes a valid member ID before submission.",
		"step_failed": "Eligibility Check",
		"coding_flags": ["WARNING: Age Mismatch", "DENIED: Gender Mismatch"],
		"policy_source": "Local policy index"
	}`)

	v, ok := Classify(p).(Verdict)
	require.True(t, ok)
	assert.Equal(t, DecisionDenied, v.Decision)
	assert.Equal(t, "Eligibility Check", v.StepFailed)
	assert.Equal(t, "Local policy index", v.PolicySource)
	assert.Equal(t, []string{"Valid Member ID"}, v.MissingCriteria)
	assert.True(t, v.HasSuggestedFix())
	require.Len(t, v.Flags, 2)
	assert.False(t, v.Flags[0].Denied)
	assert.True(t, v.Flags[1].Denied)
}

func TestClassify_UnknownShapes(t *testing.T) {
	bodies := []string{`{}`, `[]`, `"text"`, `42`, `null`, `{"foo":"bar"}`}

	for _, body := range bodies {
		t.Run(body, func(t *testing.T) {
			v, ok := Classify(decode(t, body)).(Verdict)
			require.True(t, ok)
			assert.False(t, v.HasDecision())
			assert.False(t, v.HasConfidence())
			assert.False(t, v.HasMissingCriteria())
			assert.False(t, v.HasSuggestedFix())
			assert.Empty(t, v.Reasoning)
			assert.Empty(t, v.Flags)
		})
	}
}

func TestClassify_IgnoresWrongTypes(t *testing.T) {
	p := decode(t, `{"verdict":7,"confidence_score":"high","coding_flags":"DENIED","missing_criteria":[1,"Signed order",null]}`)

	v, ok := Classify(p).(Verdict)
	require.True(t, ok)
	assert.False(t, v.HasDecision())
	assert.False(t, v.HasConfidence())
	assert.Empty(t, v.Flags)
	assert.Equal(t, []string{"Signed order"}, v.MissingCriteria)
}

func TestClassify_FractionalConfidence(t *testing.T) {
	v := Classify(Payload{"confidence_score": 87.5}).(Verdict)
	assert.Equal(t, "87.5", v.ConfidenceText())
}

func TestDecodePayload_InvalidJSON(t *testing.T) {
	_, err := DecodePayload([]byte("<html>502</html>"))
	assert.Error(t, err)
}

func TestOutcome_TransportErrorFirst(t *testing.T) {
	state := Outcome(Payload{"verdict": "APPROVED"}, errors.New("verification service returned 500"))

	failed, ok := state.(TransportFailed)
	require.True(t, ok)
	assert.Equal(t, "verification service returned 500", failed.Reason)
}

func TestNewFlag_LiteralPrefix(t *testing.T) {
	tests := []struct {
		text   string
		denied bool
	}{
		{"DENIED - mismatch", true},
		{"Denied - mismatch", false},
		{"denied - mismatch", false},
		{"DENIED", true},
		{" DENIED: leading space", false},
		{"WARNING: DENIED later", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.denied, NewFlag(tt.text).Denied)
		})
	}
}

func TestNewFlags_PreservesOrder(t *testing.T) {
	flags := NewFlags([]string{"b", "DENIED a", "c"})
	require.Len(t, flags, 3)
	assert.Equal(t, "b", flags[0].Text)
	assert.Equal(t, "DENIED a", flags[1].Text)
	assert.Equal(t, "c", flags[2].Text)
	assert.Nil(t, NewFlags(nil))
}
