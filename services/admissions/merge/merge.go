// Package merge recombines the csv and xlsx outputs of earlier runs, it also
// converts between the two formats.
package merge

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gaokao-admissions/services/admissions"

	"github.com/xuri/excelize/v2"
)

type Options struct {
	CSV  []string
	XLSX []string
	// KeepEmpty keeps rows whose fields are all blank.
	KeepEmpty bool
}

// Collection holds the rows read so far per report, in input order.
type Collection map[admissions.Report][]admissions.Row

func (c Collection) add(row admissions.Row, keepEmpty bool) {
	if !keepEmpty && row.Empty() {
		return
	}
	c[row.Report()] = append(c[row.Report()], row)
}

// Collect reads every input. CSV files are matched to a report by their
// exact header, workbook sheets by name. Anything unrecognized is skipped.
func Collect(ctx context.Context, opts Options) (Collection, error) {
	if len(opts.CSV) == 0 && len(opts.XLSX) == 0 {
		return nil, fmt.Errorf("at least one csv or xlsx file is required")
	}

	out := Collection{}
	for _, path := range opts.CSV {
		err := collectCSV(ctx, out, path, opts.KeepEmpty)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}
	for _, path := range opts.XLSX {
		err := collectXLSX(ctx, out, path, opts.KeepEmpty)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}
	return out, nil
}

func collectCSV(ctx context.Context, out Collection, path string, keepEmpty bool) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		slog.WarnContext(ctx, "empty csv file, skipped", "path", path)
		return nil
	}
	if err != nil {
		return err
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	report, ok := admissions.ReportByColumns(header)
	if !ok {
		slog.WarnContext(ctx, "unrecognized csv header, skipped", "path", path, "header", strings.Join(header, ","))
		return nil
	}

	count := 0
	for {
		values, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		row, err := admissions.NewRow(report, values)
		if err != nil {
			return err
		}
		out.add(row, keepEmpty)
		count++
	}
	slog.InfoContext(ctx, "read csv", "path", path, "report", report.String(), "rows", count)
	return nil
}

func collectXLSX(ctx context.Context, out Collection, path string, keepEmpty bool) error {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return err
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		report, ok := admissions.ReportBySheet(sheet)
		if !ok {
			slog.WarnContext(ctx, "unrecognized sheet, skipped", "path", path, "sheet", sheet)
			continue
		}
		rows, err := f.GetRows(sheet)
		if err != nil {
			return err
		}
		heading := report.Headings()[0]
		count := 0
		for _, values := range rows {
			if len(values) > 0 && values[0] == heading {
				continue
			}
			row, err := admissions.NewRow(report, values)
			if err != nil {
				return err
			}
			out.add(row, keepEmpty)
			count++
		}
		slog.InfoContext(ctx, "read sheet", "path", path, "sheet", sheet, "rows", count)
	}
	return nil
}

// Write stores every non-empty report of the collection in sink.
func Write(ctx context.Context, c Collection, sink admissions.Sink) (admissions.Summary, error) {
	var summary admissions.Summary
	for _, report := range admissions.AllReports {
		rows := c[report]
		if len(rows) == 0 {
			continue
		}
		err := writeReport(sink, report, rows)
		if err != nil {
			return summary, fmt.Errorf("write %s: %w", report, err)
		}
		summary.Reports = append(summary.Reports, admissions.ReportSummary{
			Report: report,
			Rows:   len(rows),
		})
		slog.InfoContext(ctx, "wrote report", "report", report.String(), "rows", len(rows))
	}
	return summary, nil
}

func writeReport(sink admissions.Sink, report admissions.Report, rows []admissions.Row) (err error) {
	writer, err := sink.Open(report)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, writer.Close())
	}()
	for _, row := range rows {
		err = writer.Append(row)
		if err != nil {
			return err
		}
	}
	return writer.Flush()
}
