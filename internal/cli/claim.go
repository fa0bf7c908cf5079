package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ppiankov/claimaudit/internal/render"
)

// claimCmd represents the claim command
var claimCmd = &cobra.Command{
	Use:   "claim <id>",
	Short: "Show one claim",
	Long: `Claim fetches a single claim and prints its header, financial fields,
description and transcription.

Example:
  claimaudit claim 42
  claimaudit claim 42 -o yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runClaim,
}

func init() {
	rootCmd.AddCommand(claimCmd)
}

func runClaim(cmd *cobra.Command, args []string) error {
	id, err := parseClaimID(args[0])
	if err != nil {
		return err
	}
	cfg, _, c, err := setup()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Service.Timeout)
	defer cancel()

	claim, err := c.GetClaim(ctx, id)
	if err != nil {
		return fmt.Errorf("load claim %d: %w", id, err)
	}

	return writeOutput(cmd.OutOrStdout(), cfg.Output.Format, claim, func(w io.Writer) error {
		return render.Claim(w, claim)
	})
}
