package commands

import (
	"log/slog"

	"gaokao-admissions/lib/util/serviceutil"
	"gaokao-admissions/services/admissions"
	"gaokao-admissions/services/admissions/merge"
	"gaokao-admissions/services/admissions/sink"

	"github.com/mazen160/go-random"
	"github.com/spf13/cobra"
)

var mergeCSV []string
var mergeXLSX []string
var mergeType string
var mergeOutputDir string
var mergeRemoveEmpty bool

func init() {
	flags := mergeCmd.Flags()
	flags.StringArrayVarP(&mergeCSV, "csv", "c", nil, "A csv file to read, can be repeated.")
	flags.StringArrayVarP(&mergeXLSX, "xlsx", "x", nil, "An xlsx file to read, can be repeated.")
	flags.StringVarP(&mergeType, "type", "t", "csv", "The output type, csv or xlsx.")
	flags.StringVarP(&mergeOutputDir, "output-dir", "o", ".", "The directory the output is written to.")
	flags.BoolVar(&mergeRemoveEmpty, "remove-empty-lines", true, "Drop rows whose fields are all empty.")

	rootCmd.AddCommand(mergeCmd)
}

var mergeCmd = &cobra.Command{
	Use:   "merge [--csv <file>...] [--xlsx <file>...] [--type csv|xlsx]",
	Short: "Merges csv and xlsx outputs of earlier runs, also converts between the two formats.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		collection, err := merge.Collect(ctx, merge.Options{
			CSV:       mergeCSV,
			XLSX:      mergeXLSX,
			KeepEmpty: !mergeRemoveEmpty,
		})
		if err != nil {
			serviceutil.Fatal("failed to read inputs", err)
		}

		runTag, err := random.String(8)
		if err != nil {
			serviceutil.Fatal("failed to generate run tag", err)
		}

		var out admissions.Sink
		switch mergeType {
		case "csv":
			out, err = sink.NewCSV(mergeOutputDir, runTag)
		case "xlsx":
			out, err = sink.NewXLSX(mergeOutputDir, runTag)
		default:
			serviceutil.Fatal("unknown output type", nil, "type", mergeType)
		}
		if err != nil {
			serviceutil.Fatal("failed to create output", err)
		}

		summary, err := merge.Write(ctx, collection, out)
		closeErr := out.Close()
		if err != nil {
			serviceutil.Fatal("failed to write output", err)
		}
		if closeErr != nil {
			serviceutil.Fatal("failed to close output", closeErr)
		}
		printSummary(runTag, summary)
		slog.InfoContext(ctx, "merge complete", "run_tag", runTag, "rows", summary.Rows())
	},
}
