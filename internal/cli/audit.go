package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/claimaudit/internal/audit"
	"github.com/ppiankov/claimaudit/internal/render"
	"github.com/ppiankov/claimaudit/internal/view"
)

var auditMD string

// auditCmd represents the audit command
var auditCmd = &cobra.Command{
	Use:   "audit <id>",
	Short: "Run the coding audit for one claim",
	Long: `Audit loads a claim, asks the service to verify it and prints the
outcome: a verdict, a pipeline warning or error, unstructured pipeline
output, or the reason the request failed.

The command exits non-zero only when the request itself failed.

Example:
  claimaudit audit 42
  claimaudit audit 42 -o json
  claimaudit audit 42 --md claim-42.md`,
	Args: cobra.ExactArgs(1),
	RunE: runAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.Flags().StringVar(&auditMD, "md", "", "also write a Markdown report to this path")
}

func runAudit(cmd *cobra.Command, args []string) error {
	id, err := parseClaimID(args[0])
	if err != nil {
		return err
	}
	cfg, logger, c, err := setup()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	detail := view.NewDetail(logger)
	defer detail.Close()

	if err := detail.Load(ctx, c, id); err != nil {
		return fmt.Errorf("load claim %d: %w", id, err)
	}
	claim := detail.Snapshot().Claim

	if cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, "⚙️  Auditing claim #%d...\n", id)
	}
	start := time.Now()
	state, err := detail.RunAudit(ctx, c)
	if err != nil {
		return err
	}
	if cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, "✓ Audit finished in %s\n\n", time.Since(start).Round(time.Millisecond))
	}

	if auditMD != "" {
		if err := render.WriteMarkdownFile(auditMD, claim, state, time.Now()); err != nil {
			return fmt.Errorf("write markdown: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ Markdown report: %s\n", auditMD)
	}

	out := cmd.OutOrStdout()
	switch cfg.Output.Format {
	case "", "text":
		err = writeAuditText(out, id, state)
	case "md":
		_, err = fmt.Fprint(out, render.Markdown(claim, state, time.Now()))
	default:
		err = render.Encode(out, cfg.Output.Format, render.NewDocument(id, state))
	}
	if err != nil {
		return err
	}

	if failed, ok := state.(audit.TransportFailed); ok {
		return fmt.Errorf("audit of claim %d failed: %s", id, failed.Reason)
	}
	return nil
}

func writeAuditText(w io.Writer, id int64, state audit.State) error {
	if _, err := fmt.Fprintf(w, "Claim #%d audit\n\n", id); err != nil {
		return err
	}
	return render.State(w, state)
}
