package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gaokao-admissions/lib/telemetry"

	"github.com/spf13/cobra"
)

var verbose bool
var otel telemetry.Telemetry

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output.")
}

var rootCmd = &cobra.Command{
	Use:   "admissions",
	Short: "admissions collects gaokao admissions statistics from eol.cn into tabular files.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(verbose)

		t, err := telemetry.SetupFromEnv(cmd.Context(), "admissions")
		if err != nil {
			slog.Warn("telemetry setup failed, continuing without export", "err", err)
			return
		}
		otel = t
		if otel.Enabled() {
			telemetry.InstrumentPerfStats(cmd.Context())
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		err := otel.Shutdown(context.Background())
		if err != nil {
			slog.Warn("telemetry shutdown", "err", err)
		}
	},
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
