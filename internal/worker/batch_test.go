package worker

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ppiankov/claimaudit/internal/audit"
)

// mockVerifier answers from a fixed table and counts calls per claim
type mockVerifier struct {
	mu       sync.Mutex
	calls    map[int64]int
	payloads map[int64]audit.Payload
	fail     map[int64]error
	delay    time.Duration
}

func (m *mockVerifier) Verify(ctx context.Context, id int64) (audit.Payload, error) {
	m.mu.Lock()
	if m.calls == nil {
		m.calls = make(map[int64]int)
	}
	m.calls[id]++
	m.mu.Unlock()

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := m.fail[id]; err != nil {
		return nil, err
	}
	return m.payloads[id], nil
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestBatchAuditor_AuditClaims(t *testing.T) {
	v := &mockVerifier{
		payloads: map[int64]audit.Payload{
			1: {"verdict": "APPROVED"},
			2: {"status": "error", "message": "Claim not found"},
			3: {"raw_output": "free text"},
			4: {"verdict": "DENIED", "coding_flags": []any{"DENIED: missing auth"}},
		},
		fail: map[int64]error{5: errors.New("verify claim 5: unexpected status: 500 Internal Server Error")},
	}
	ids := []int64{5, 4, 3, 2, 1}

	results := NewBatchAuditor(v, 2, quietLogger()).AuditClaims(context.Background(), ids)

	if len(results) != len(ids) {
		t.Fatalf("expected %d results, got %d", len(ids), len(results))
	}
	for i, r := range results {
		if r.ClaimID != ids[i] {
			t.Errorf("result %d: expected claim %d, got %d", i, ids[i], r.ClaimID)
		}
	}

	want := []audit.Kind{
		audit.KindTransportFailed,
		audit.KindVerdict,
		audit.KindRawFallback,
		audit.KindPipelineFailure,
		audit.KindVerdict,
	}
	for i, k := range want {
		if got := results[i].State.Kind(); got != k {
			t.Errorf("claim %d: expected %s, got %s", ids[i], k, got)
		}
	}
	if results[0].GetError() == nil {
		t.Error("expected transport error for claim 5")
	}

	for _, id := range ids {
		if v.calls[id] != 1 {
			t.Errorf("claim %d: expected exactly one request, got %d", id, v.calls[id])
		}
	}
}

func TestBatchAuditor_ManyClaims(t *testing.T) {
	v := &mockVerifier{}
	ids := make([]int64, 60)
	for i := range ids {
		ids[i] = int64(i + 1)
	}

	results := NewBatchAuditor(v, 3, quietLogger()).AuditClaims(context.Background(), ids)
	if len(results) != 60 {
		t.Fatalf("expected 60 results, got %d", len(results))
	}
	for i, r := range results {
		if r == nil || r.ClaimID != ids[i] {
			t.Fatalf("result %d out of order or missing", i)
		}
	}
}

func TestBatchAuditor_Empty(t *testing.T) {
	results := NewBatchAuditor(&mockVerifier{}, 2, quietLogger()).AuditClaims(context.Background(), nil)
	if len(results) != 0 {
		t.Errorf("expected 0 results, got %d", len(results))
	}
}

func TestBatchAuditor_Cancelled(t *testing.T) {
	v := &mockVerifier{delay: time.Second}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	results := NewBatchAuditor(v, 1, quietLogger()).AuditClaims(ctx, []int64{1, 2, 3})
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for _, r := range results {
		if r.State.Kind() != audit.KindTransportFailed {
			t.Errorf("claim %d: expected transport_failed, got %s", r.ClaimID, r.State.Kind())
		}
	}
}

func TestSummarize(t *testing.T) {
	results := []*AuditResult{
		{ClaimID: 1, State: audit.Verdict{Decision: audit.DecisionDenied}},
		{ClaimID: 2, State: audit.Verdict{Decision: audit.DecisionApproved}},
		{ClaimID: 3, State: audit.RawFallback{Output: "x"}},
	}
	s := Summarize(results)
	if s.Total != 3 || s.Counts[audit.KindVerdict] != 2 || s.Counts[audit.KindRawFallback] != 1 || s.Denied != 1 {
		t.Errorf("unexpected summary: %+v", s)
	}
}

func TestAuditResult_GetError(t *testing.T) {
	r1 := &AuditResult{ClaimID: 1}
	if r1.GetError() != nil {
		t.Errorf("expected nil error, got %v", r1.GetError())
	}

	expected := errors.New("verify failed")
	r2 := &AuditResult{ClaimID: 1, Error: expected}
	if r2.GetError() != expected {
		t.Errorf("expected %v, got %v", expected, r2.GetError())
	}
}

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ids.txt")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadClaimIDsFromFile(t *testing.T) {
	path := writeTemp(t, "12\n# comment\n  7  \n\n12\n3\n")

	ids, err := ReadClaimIDsFromFile(path)
	if err != nil {
		t.Fatalf("ReadClaimIDsFromFile failed: %v", err)
	}

	expected := []int64{12, 7, 3}
	if len(ids) != len(expected) {
		t.Fatalf("expected %d ids, got %d", len(expected), len(ids))
	}
	for i, id := range ids {
		if id != expected[i] {
			t.Errorf("expected id %d at index %d, got %d", expected[i], i, id)
		}
	}
}

func TestReadClaimIDsFromFile_Invalid(t *testing.T) {
	path := writeTemp(t, "1\nabc\n")
	if _, err := ReadClaimIDsFromFile(path); err == nil {
		t.Error("expected error for non-numeric id")
	}
}

func TestReadClaimIDsFromFile_NonExistent(t *testing.T) {
	if _, err := ReadClaimIDsFromFile("no_such_file.txt"); err == nil {
		t.Error("expected error for non-existent file, got nil")
	}
}
