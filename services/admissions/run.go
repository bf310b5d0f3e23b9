package admissions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gaokao-admissions/lib/telemetry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

var meter = telemetry.Meter("services/admissions")
var rowsWrittenCounter, _ = meter.Int64Counter("admissions.rows_written")

// Sink persists records, one Writer per report.
type Sink interface {
	Open(report Report) (Writer, error)
	Close() error
}

type Writer interface {
	Append(record Record) error
	// Flush makes everything appended so far durable.
	Flush() error
	Close() error
}

// Enumerator produces the records of one report for one institution,
// normally *Walker.
type Enumerator interface {
	Walk(ctx context.Context, report Report, inst Institution) ([]Record, error)
}

type RunOptions struct {
	Reports      []Report
	Institutions []Institution
	// BaseOffset is the position of Institutions[0] in the full listing, it
	// makes the offsets in errors directly usable as an item offset.
	BaseOffset int
}

type ReportSummary struct {
	Report       Report
	Institutions int
	// Empty counts institutions that contributed no rows.
	Empty int
	Rows  int
}

type Summary struct {
	Reports []ReportSummary
}

func (s Summary) Rows() int {
	total := 0
	for _, r := range s.Reports {
		total += r.Rows
	}
	return total
}

// RunError is a fatal error of one report run together with where to resume.
type RunError struct {
	Report      Report
	Institution string
	// Offset is the item offset that restarts the run at the failed institution.
	Offset int
	// Pending are the reports that never started, they restart at StartOffset.
	Pending     []Report
	StartOffset int
	Err         error
}

func (e *RunError) Error() string {
	return fmt.Sprintf(
		"%s run aborted at %s (item offset %d): %s",
		e.Report, e.Institution, e.Offset, e.Err.Error(),
	)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// ResumeArgs are the scrape flags of each run needed to finish the work:
// the failed report from its offset, then the pending reports from the start.
func (e *RunError) ResumeArgs() []string {
	args := []string{fmt.Sprintf("--report %s --item-offset %d", e.Report, e.Offset)}
	if len(e.Pending) > 0 {
		names := make([]string, len(e.Pending))
		for i, r := range e.Pending {
			names[i] = r.String()
		}
		args = append(args, fmt.Sprintf("--report %s --item-offset %d", strings.Join(names, ","), e.StartOffset))
	}
	return args
}

// Run walks every institution for every report and appends the records to
// sink, flushing after each institution. The first fatal error stops the run.
func Run(ctx context.Context, enumerator Enumerator, sink Sink, opts RunOptions) (Summary, error) {
	reports := opts.Reports
	if len(reports) == 0 {
		reports = AllReports
	}

	var summary Summary
	for i, report := range reports {
		result, err := runReport(ctx, enumerator, sink, report, opts)
		summary.Reports = append(summary.Reports, result)
		if err != nil {
			var runErr *RunError
			if errors.As(err, &runErr) {
				runErr.Pending = append([]Report(nil), reports[i+1:]...)
				runErr.StartOffset = opts.BaseOffset
			}
			return summary, err
		}
	}
	return summary, nil
}

func runReport(ctx context.Context, enumerator Enumerator, sink Sink, report Report, opts RunOptions) (result ReportSummary, err error) {
	ctx, span := tracer.Start(ctx, "run:"+report.String())
	defer span.End()

	result.Report = report
	slog.InfoContext(ctx, "starting report", "report", report.String(), "institutions", len(opts.Institutions))

	writer, err := sink.Open(report)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to open writer")
		return result, fmt.Errorf("open %s writer: %w", report, err)
	}
	defer func() {
		closeErr := writer.Close()
		if closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close %s writer: %w", report, closeErr))
		}
	}()

	fail := func(i int, inst Institution, cause error) error {
		span.RecordError(cause)
		span.SetStatus(codes.Error, "report run aborted")
		return &RunError{
			Report:      report,
			Institution: inst.Name,
			Offset:      opts.BaseOffset + i,
			Err:         cause,
		}
	}

	for i, inst := range opts.Institutions {
		slog.InfoContext(ctx, "fetching institution", "report", report.String(), "school", inst.Name, "index", opts.BaseOffset+i)

		records, err := enumerator.Walk(ctx, report, inst)
		if err != nil {
			return result, fail(i, inst, err)
		}
		for _, record := range records {
			err = writer.Append(record)
			if err != nil {
				return result, fail(i, inst, fmt.Errorf("append: %w", err))
			}
		}
		err = writer.Flush()
		if err != nil {
			return result, fail(i, inst, fmt.Errorf("flush: %w", err))
		}

		rowsWrittenCounter.Add(ctx, int64(len(records)), metricReport(report))
		result.Institutions++
		result.Rows += len(records)
		if len(records) == 0 {
			result.Empty++
		}
		slog.InfoContext(
			ctx, "institution done",
			"report", report.String(),
			"school", inst.Name,
			"rows", len(records),
			"progress", fmt.Sprintf("%d/%d", i+1, len(opts.Institutions)),
		)
	}

	span.SetAttributes(attribute.Int("rows", result.Rows))
	slog.InfoContext(ctx, "report finished", "report", report.String(), "rows", result.Rows)
	return result, nil
}

func metricReport(report Report) metric.AddOption {
	return metric.WithAttributes(attribute.String("report", report.String()))
}
