package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/claimaudit/internal/audit"
	"github.com/ppiankov/claimaudit/internal/model"
	"github.com/ppiankov/claimaudit/internal/render"
	"github.com/ppiankov/claimaudit/internal/view"
	"github.com/ppiankov/claimaudit/internal/worker"
)

var (
	batchQuery   string
	batchFile    string
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Audit many claims in parallel",
	Long: `Batch audits a set of claims concurrently:
- Claims come from the worklist (optionally filtered with --query)
  or from a file with one claim id per line (--file)
- Audits run on a bounded worker pool
- A Markdown report per claim is written to --output-dir when set
- A summary of outcomes is printed at the end

Example:
  claimaudit batch --query aetna
  claimaudit batch --file ids.txt --concurrency 8 --output-dir ./audits
  claimaudit batch --timeout 30m`,
	Args: cobra.NoArgs,
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringVarP(&batchQuery, "query", "q", "", "audit worklist claims matching this filter")
	batchCmd.Flags().StringVar(&batchFile, "file", "", "read claim ids from this file instead of the worklist")
	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent workers (default: concurrency.workers)")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "", "write a Markdown report per claim to this directory")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 30*time.Minute, "total timeout for the batch")
}

func runBatch(cmd *cobra.Command, args []string) error {
	if batchFile != "" && batchQuery != "" {
		return fmt.Errorf("--file and --query cannot be combined")
	}
	cfg, logger, c, err := setup()
	if err != nil {
		return err
	}
	workers := concurrency
	if workers <= 0 {
		workers = cfg.Concurrency.Workers
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	claims := make(map[int64]*model.Claim)
	var ids []int64
	source := "worklist"
	if batchFile != "" {
		source = batchFile
		ids, err = worker.ReadClaimIDsFromFile(batchFile)
		if err != nil {
			return fmt.Errorf("read claim ids: %w", err)
		}
	} else {
		wl := view.NewWorklist()
		if err := wl.Load(ctx, c); err != nil {
			return fmt.Errorf("load claims: %w", err)
		}
		wl.SetQuery(batchQuery)
		visible := wl.Visible()
		for i := range visible {
			ids = append(ids, visible[i].ID)
			claims[visible[i].ID] = &visible[i]
		}
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  claimaudit Batch Audit\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Source:       %s\n", source)
	if batchQuery != "" {
		fmt.Fprintf(os.Stderr, "  Query:        %s\n", batchQuery)
	}
	fmt.Fprintf(os.Stderr, "  Claims:       %d\n", len(ids))
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", workers)
	if outputDir != "" {
		fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	}
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "\n")

	if len(ids) == 0 {
		fmt.Fprintf(os.Stderr, "Nothing to audit.\n")
		return nil
	}

	if outputDir != "" {
		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	auditor := worker.NewBatchAuditor(c, workers, logger)
	results := auditor.AuditClaims(ctx, ids)

	for _, res := range results {
		fmt.Fprintf(os.Stderr, "%s #%d: %s\n", resultMark(res.State), res.ClaimID, describeState(res.State))

		if outputDir == "" {
			continue
		}
		claim, err := claimFor(ctx, c, claims, res.ClaimID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  ✗ report skipped: %v\n", err)
			continue
		}
		mdPath := filepath.Join(outputDir, fmt.Sprintf("claim-%d.md", res.ClaimID))
		if err := render.WriteMarkdownFile(mdPath, claim, res.State, time.Now()); err != nil {
			fmt.Fprintf(os.Stderr, "  ✗ failed to write Markdown: %v\n", err)
		}
	}

	summary := worker.Summarize(results)

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d claims\n", summary.Total)
	kinds := make([]string, 0, len(summary.Counts))
	for k := range summary.Counts {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(os.Stderr, "  %-18s %d\n", k+":", summary.Counts[audit.Kind(k)])
	}
	fmt.Fprintf(os.Stderr, "  Denied:    %d\n", summary.Denied)
	if outputDir != "" {
		fmt.Fprintf(os.Stderr, "  Output:    %s\n", outputDir)
	}
	fmt.Fprintf(os.Stderr, "\n")

	if cfg.Output.Format == "json" || cfg.Output.Format == "yaml" {
		docs := make([]render.Document, 0, len(results))
		for _, res := range results {
			docs = append(docs, render.NewDocument(res.ClaimID, res.State))
		}
		return render.Encode(cmd.OutOrStdout(), cfg.Output.Format, docs)
	}
	return nil
}

// claimFor returns the worklist copy of a claim, fetching it when the ids
// came from a file
func claimFor(ctx context.Context, svc view.ClaimService, known map[int64]*model.Claim, id int64) (*model.Claim, error) {
	if claim, ok := known[id]; ok {
		return claim, nil
	}
	claim, err := svc.GetClaim(ctx, id)
	if err != nil {
		return nil, err
	}
	known[id] = claim
	return claim, nil
}

func resultMark(s audit.State) string {
	switch st := s.(type) {
	case audit.Verdict:
		if st.Decision == audit.DecisionDenied {
			return "✗"
		}
		return "✓"
	case audit.TransportFailed:
		return "✗"
	default:
		return "⚠"
	}
}

func describeState(s audit.State) string {
	switch st := s.(type) {
	case audit.Verdict:
		if !st.HasDecision() {
			return "verdict (no decision)"
		}
		return string(st.Decision)
	case audit.PipelineFailure:
		return fmt.Sprintf("pipeline %s: %s", st.Status, st.Message)
	case audit.RawFallback:
		return "unstructured output"
	case audit.TransportFailed:
		return "request failed: " + st.Reason
	default:
		return string(s.Kind())
	}
}
