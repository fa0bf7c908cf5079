package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ppiankov/claimaudit/internal/audit"
)

// Verifier runs the external audit of one claim
type Verifier interface {
	Verify(ctx context.Context, id int64) (audit.Payload, error)
}

// AuditJob audits one claim through its own panel, so the classification
// and ticket rules are the same as in the interactive views
type AuditJob struct {
	Index    int
	ClaimID  int64
	Verifier Verifier
}

// Execute sends exactly one verification request
func (j *AuditJob) Execute(ctx context.Context) Result {
	panel := audit.NewPanel()
	panel.Open(j.ClaimID)
	ticket, err := panel.Trigger()
	if err != nil {
		return &AuditResult{Index: j.Index, ClaimID: j.ClaimID, State: panel.State(), Error: err}
	}

	start := time.Now()
	payload, err := j.Verifier.Verify(ctx, j.ClaimID)
	panel.Resolve(ticket, payload, err)

	return &AuditResult{
		Index:   j.Index,
		ClaimID: j.ClaimID,
		State:   panel.State(),
		Error:   err,
		Elapsed: time.Since(start),
	}
}

// AuditResult is the final panel state of one claim
type AuditResult struct {
	Index   int
	ClaimID int64
	State   audit.State
	Error   error // transport error, if any
	Elapsed time.Duration
}

// GetError returns the transport error of the audit
func (r *AuditResult) GetError() error {
	return r.Error
}

// BatchAuditor audits many claims concurrently
type BatchAuditor struct {
	verifier    Verifier
	concurrency int
	logger      *logrus.Logger
}

// NewBatchAuditor creates a batch auditor
func NewBatchAuditor(verifier Verifier, concurrency int, logger *logrus.Logger) *BatchAuditor {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &BatchAuditor{
		verifier:    verifier,
		concurrency: concurrency,
		logger:      logger,
	}
}

// AuditClaims audits every claim once and returns the results in input
// order. Claims not reached before ctx ends come back as TransportFailed.
func (b *BatchAuditor) AuditClaims(ctx context.Context, ids []int64) []*AuditResult {
	if len(ids) == 0 {
		return []*AuditResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	go func() {
		for i, id := range ids {
			if !pool.Submit(&AuditJob{Index: i, ClaimID: id, Verifier: b.verifier}) {
				break
			}
		}
		pool.Close()
	}()

	ordered := make([]*AuditResult, len(ids))
	done := 0
	for r := range pool.Results() {
		res := r.(*AuditResult)
		ordered[res.Index] = res
		done++
		b.logger.WithFields(logrus.Fields{
			"claim_id": res.ClaimID,
			"state":    res.State.Kind(),
			"elapsed":  res.Elapsed,
			"progress": fmt.Sprintf("%d/%d", done, len(ids)),
		}).Info("Claim audited")
	}

	for i, res := range ordered {
		if res != nil {
			continue
		}
		err := ctx.Err()
		if err == nil {
			err = context.Canceled
		}
		ordered[i] = &AuditResult{
			Index:   i,
			ClaimID: ids[i],
			State:   audit.Outcome(nil, fmt.Errorf("verify claim %d: %w", ids[i], err)),
			Error:   err,
		}
	}
	return ordered
}

// Summary counts results per state kind
type Summary struct {
	Total  int
	Counts map[audit.Kind]int
	Denied int // verdicts with decision DENIED
}

// Summarize tallies a batch
func Summarize(results []*AuditResult) Summary {
	s := Summary{Total: len(results), Counts: make(map[audit.Kind]int)}
	for _, r := range results {
		s.Counts[r.State.Kind()]++
		if v, ok := r.State.(audit.Verdict); ok && v.Decision == audit.DecisionDenied {
			s.Denied++
		}
	}
	return s
}

// ReadClaimIDsFromFile reads claim ids, one per line. Blank lines and
// lines starting with # are skipped; duplicates are dropped.
func ReadClaimIDsFromFile(filePath string) ([]int64, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var ids []int64
	seen := make(map[int64]bool)

	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		id, err := strconv.ParseInt(line, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid claim id %q", lineNo, line)
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}
	return ids, nil
}
