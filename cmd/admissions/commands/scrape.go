package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gaokao-admissions/lib/lookup"
	"gaokao-admissions/lib/notify"
	"gaokao-admissions/lib/platforms/eol"
	"gaokao-admissions/lib/restyutil"
	"gaokao-admissions/lib/util/serviceutil"
	"gaokao-admissions/services/admissions"
	"gaokao-admissions/services/admissions/sink"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mazen160/go-random"
	"github.com/spf13/cobra"
)

var scrapeConfigPath string
var scrapeFlags Config

func init() {
	flags := scrapeCmd.Flags()
	flags.StringVarP(&scrapeConfigPath, "config", "c", "admissions.json5", "The config file, admissions.local.json5 next to it overrides it.")
	flags.StringVarP(&scrapeFlags.Province, "province", "p", "", "The province the universities are located in, e.g. 河南.")
	flags.IntVar(&scrapeFlags.YearSince, "year-since", 0, "Skip every year before this one.")
	flags.Float64Var(&scrapeFlags.QueryIntervalSeconds, "query-interval", 0, "Seconds to wait between paginated requests, below 10 risks a temporary ban.")
	flags.Float64Var(&scrapeFlags.RetryIntervalSeconds, "retry-interval", 0, "Seconds to back off after a rate limited response.")
	flags.IntSliceVar(&scrapeFlags.PageRange, "page-range", nil, "Only list institutions on pages <first>,<last> of the university list.")
	flags.IntVar(&scrapeFlags.ItemOffset, "item-offset", 0, "Skip this many institutions from the start of the list, used to resume a run.")
	flags.StringVar(&scrapeFlags.Keyword, "keyword", "", "Only list institutions whose name contains this keyword.")
	flags.StringSliceVarP(&scrapeFlags.Reports, "report", "r", nil, "Reports to produce: min_score, enroll_plan, major_score.")
	flags.StringVarP(&scrapeFlags.Output.Dir, "output-dir", "o", "", "The directory output files are written to.")
	flags.StringSliceVarP(&scrapeFlags.Output.Formats, "format", "f", nil, "Output formats: csv, xlsx, sqlite.")
	flags.StringVar(&scrapeFlags.Api.DumpHttp, "dump-http", "", "Write every http exchange to this directory.")

	rootCmd.AddCommand(scrapeCmd)
}

// applyFlags copies every flag the user actually set over cfg.
func applyFlags(cmd *cobra.Command, cfg *Config, flags Config) {
	changed := cmd.Flags().Changed
	if changed("province") {
		cfg.Province = flags.Province
	}
	if changed("year-since") {
		cfg.YearSince = flags.YearSince
	}
	if changed("query-interval") {
		cfg.QueryIntervalSeconds = flags.QueryIntervalSeconds
	}
	if changed("retry-interval") {
		cfg.RetryIntervalSeconds = flags.RetryIntervalSeconds
	}
	if changed("page-range") {
		cfg.PageRange = flags.PageRange
	}
	if changed("item-offset") {
		cfg.ItemOffset = flags.ItemOffset
	}
	if changed("keyword") {
		cfg.Keyword = flags.Keyword
	}
	if changed("report") {
		cfg.Reports = flags.Reports
	}
	if changed("output-dir") {
		cfg.Output.Dir = flags.Output.Dir
	}
	if changed("format") {
		cfg.Output.Formats = flags.Output.Formats
	}
	if changed("dump-http") {
		cfg.Api.DumpHttp = flags.Api.DumpHttp
	}
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [--province <name>] [--report <report>...] [--item-offset <n>]",
	Short: "Scrapes the admissions statistics of every university in a province.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		cfg, err := loadConfig(scrapeConfigPath)
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}
		applyFlags(cmd, &cfg, scrapeFlags)
		plan, err := cfg.plan()
		if err != nil {
			serviceutil.Fatal("invalid configuration", err)
		}

		runTag, err := random.String(8)
		if err != nil {
			serviceutil.Fatal("failed to generate run tag", err)
		}
		slog.InfoContext(ctx, "starting run", "run_tag", runTag, "province", cfg.Province, "reports", cfg.Reports)

		summary, err := scrape(ctx, cfg, plan, runTag)
		printSummary(runTag, summary)

		var runErr *admissions.RunError
		if errors.As(err, &runErr) {
			serviceutil.Fatal(
				"run aborted, rerun scrape with each resume line to finish",
				err,
				"report", runErr.Report.String(),
				"institution", runErr.Institution,
				"item_offset", runErr.Offset,
				"resume", strings.Join(runErr.ResumeArgs(), " ; "),
			)
		}
		if err != nil {
			serviceutil.Fatal("run failed", err)
		}
		slog.InfoContext(ctx, "all data collected", "run_tag", runTag, "rows", summary.Rows())
	},
}

func scrape(ctx context.Context, cfg Config, plan scrapePlan, runTag string) (admissions.Summary, error) {
	notifier := notify.New(cfg.Notify, runTag)

	var dump restyutil.InstrumentOutput
	if cfg.Api.DumpHttp != "" {
		output, err := restyutil.NewFilesystemOutput(cfg.Api.DumpHttp)
		if err != nil {
			return admissions.Summary{}, err
		}
		dump = output
	}

	transport := eol.NewTransport(eol.TransportOptions{
		QueryURL:          cfg.Api.QueryUrl,
		StaticURL:         cfg.Api.StaticUrl,
		Timeout:           time.Duration(cfg.Api.TimeoutSeconds) * time.Second,
		RequestsPerSecond: cfg.Api.RequestsPerSecond,
		Dump:              dump,
	})
	waiter := eol.SleepWaiter{}
	engine := eol.NewEngine(transport, eol.EngineOptions{
		RetryInterval: plan.retryInterval,
		QueryInterval: plan.queryInterval,
		Waiter:        waiter,
		OnRateLimited: notifier.RateLimitStall,
	})
	static := eol.NewStaticClient(transport)

	slog.InfoContext(ctx, "loading category dictionary")
	dict, err := lookup.LoadDictionary(ctx, static)
	if err != nil {
		return admissions.Summary{}, err
	}

	walker := admissions.NewWalker(engine, static, dict, waiter, admissions.Options{
		YearSince:     cfg.YearSince,
		QueryInterval: plan.queryInterval,
	})

	slog.InfoContext(ctx, "listing institutions", "province", cfg.Province)
	institutions, err := walker.ListInstitutions(ctx, plan.provinceID, plan.list)
	if err != nil {
		return admissions.Summary{}, err
	}
	slog.InfoContext(ctx, "institutions listed", "count", len(institutions))

	out, err := openSink(ctx, cfg, plan, runTag)
	if err != nil {
		return admissions.Summary{}, err
	}
	defer func() {
		closeErr := out.Close()
		if closeErr != nil {
			slog.WarnContext(ctx, "failed to close output", "err", closeErr)
		}
	}()

	summary, err := admissions.Run(ctx, walker, out, admissions.RunOptions{
		Reports:      plan.reports,
		Institutions: institutions,
		BaseOffset:   plan.list.ItemOffset,
	})
	var runErr *admissions.RunError
	if errors.As(err, &runErr) {
		notifier.RunAborted(ctx, runErr.Report.String(), runErr.Institution, runErr.ResumeArgs(), runErr.Err)
	}
	return summary, err
}

func openSink(ctx context.Context, cfg Config, plan scrapePlan, runTag string) (admissions.Sink, error) {
	var out sink.Multi
	for _, format := range plan.formats {
		switch format {
		case "csv":
			s, err := sink.NewCSV(cfg.Output.Dir, runTag)
			if err != nil {
				return nil, errors.Join(err, out.Close())
			}
			out = append(out, s)
		case "xlsx":
			s, err := sink.NewXLSX(cfg.Output.Dir, runTag)
			if err != nil {
				return nil, errors.Join(err, out.Close())
			}
			out = append(out, s)
		case "sqlite":
			database, err := cfg.Output.SQLite.OpenDB()
			if err != nil {
				return nil, errors.Join(err, out.Close())
			}
			s, err := sink.NewSQLite(ctx, database, runTag, cfg.Province)
			if err != nil {
				database.Close()
				return nil, errors.Join(err, out.Close())
			}
			out = append(out, s)
		default:
			return nil, errors.Join(fmt.Errorf("unknown output format %q", format), out.Close())
		}
	}
	return out, nil
}

func printSummary(runTag string, summary admissions.Summary) {
	if len(summary.Reports) == 0 {
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle(fmt.Sprintf("run %s", runTag))
	t.AppendHeader(table.Row{"Report", "Institutions", "Without data", "Rows"})
	for _, r := range summary.Reports {
		t.AppendRow(table.Row{r.Report.String(), r.Institutions, r.Empty, r.Rows})
	}
	t.AppendFooter(table.Row{"", "", "", summary.Rows()})
	t.SetStyle(table.StyleRounded)
	t.Render()
}
