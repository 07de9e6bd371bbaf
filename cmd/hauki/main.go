package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	_ "time/tzdata"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:          "hauki",
		Short:        "Opening hours of public services",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Serve the API with the scheduled jobs from the environment
  hauki serve

  # Import a data source file and show the resulting week
  hauki import kirkanta.yaml
  hauki opening-hours kirkanta:84 --start today --end +1w
`),
	}

	cmd.AddCommand(
		newServeCmd(a),
		newMigrateCmd(a),
		newImportCmd(a),
		newOpeningHoursCmd(a),
		newIsOpenNowCmd(a),
		newRecomputeCmd(a),
		newUpdateAncestryCmd(a),
		newExportICSCmd(a),
	)
	return cmd
}
