package cli

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/claimaudit/internal/server"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the browser worklist and claim viewer",
	Long: `Serve starts the web front: a filterable claim worklist, a detail page
per claim with its audit panel, and a small JSON API.

Each browser gets its own session. Leaving a claim discards its audit
result; a response arriving after that is dropped.

Example:
  claimaudit serve
  claimaudit serve --addr 0.0.0.0:8080 --base-url http://claims.internal:8000`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "listen address (default 127.0.0.1:8080)")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, c, err := setup()
	if err != nil {
		return err
	}

	if strings.EqualFold(cfg.Logging.Level, "debug") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	srv, err := server.New(cfg.Server, c, logger)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(os.Stderr, "✓ claimaudit %s serving on http://%s (claims service: %s)\n", Version, cfg.Server.Addr, c.BaseURL())
	return srv.Run(ctx)
}
