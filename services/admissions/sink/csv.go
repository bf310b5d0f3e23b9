// Package sink persists admissions records as csv files, xlsx workbooks or
// sqlite rows.
package sink

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"gaokao-admissions/services/admissions"
)

// CSVPath is where a report of a run is written inside dir.
func CSVPath(dir string, report admissions.Report, runTag string) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s.csv", report, runTag))
}

// CSV writes one file per report, headed by the machine readable column names.
type CSV struct {
	dir    string
	runTag string
}

func NewCSV(dir, runTag string) (CSV, error) {
	err := os.MkdirAll(dir, 0755)
	if err != nil {
		return CSV{}, err
	}
	return CSV{dir: dir, runTag: runTag}, nil
}

func (s CSV) Open(report admissions.Report) (admissions.Writer, error) {
	path := CSVPath(s.dir, report, s.runTag)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	w := &csvWriter{file: file, csv: csv.NewWriter(file)}
	w.pending = append(w.pending, report.Columns())
	err = w.Flush()
	if err != nil {
		file.Close()
		return nil, err
	}
	return w, nil
}

func (s CSV) Close() error {
	return nil
}

// csvWriter holds rows in memory until Flush, so rows of an institution
// that never finished never reach the file.
type csvWriter struct {
	file    *os.File
	csv     *csv.Writer
	pending [][]string
}

func (w *csvWriter) Append(record admissions.Record) error {
	w.pending = append(w.pending, record.Values())
	return nil
}

func (w *csvWriter) Flush() error {
	err := w.csv.WriteAll(w.pending)
	if err != nil {
		return err
	}
	w.pending = nil
	return w.file.Sync()
}

func (w *csvWriter) Close() error {
	w.pending = nil
	return w.file.Close()
}
