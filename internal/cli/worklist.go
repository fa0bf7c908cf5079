package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/claimaudit/internal/render"
	"github.com/ppiankov/claimaudit/internal/view"
)

var worklistQuery string

// worklistCmd represents the worklist command
var worklistCmd = &cobra.Command{
	Use:     "worklist",
	Aliases: []string{"ls"},
	Short:   "List claims, optionally filtered",
	Long: `Worklist fetches every claim from the service and prints one row per
claim. --query keeps claims whose patient id or payer name contains the
text, ignoring case.

Example:
  claimaudit worklist
  claimaudit worklist --query aetna
  claimaudit worklist -q P-1042 -o json`,
	Args: cobra.NoArgs,
	RunE: runWorklist,
}

func init() {
	rootCmd.AddCommand(worklistCmd)
	worklistCmd.Flags().StringVarP(&worklistQuery, "query", "q", "", "filter text")
}

func runWorklist(cmd *cobra.Command, args []string) error {
	cfg, _, c, err := setup()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Service.Timeout)
	defer cancel()

	wl := view.NewWorklist()
	if err := wl.Load(ctx, c); err != nil {
		return fmt.Errorf("load claims: %w", err)
	}
	rows := wl.SetQuery(worklistQuery)

	if err := writeOutput(cmd.OutOrStdout(), cfg.Output.Format, rows, func(w io.Writer) error {
		return render.Worklist(w, rows)
	}); err != nil {
		return err
	}

	if cfg.Output.Verbose {
		snap := wl.Snapshot()
		fmt.Fprintf(os.Stderr, "\n%d of %d claims\n", len(snap.Rows), snap.Total)
	}
	return nil
}
