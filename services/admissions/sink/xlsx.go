package sink

import (
	"fmt"
	"os"
	"path/filepath"

	"gaokao-admissions/services/admissions"

	"github.com/xuri/excelize/v2"
)

const defaultSheet = "Sheet1"

// XLSXPath is the workbook of a run inside dir.
func XLSXPath(dir, runTag string) string {
	return filepath.Join(dir, fmt.Sprintf("data_%s.xlsx", runTag))
}

// XLSX keeps a single workbook with one sheet per report. Every flush saves
// the whole workbook.
type XLSX struct {
	path string
	file *excelize.File
}

func NewXLSX(dir, runTag string) (*XLSX, error) {
	err := os.MkdirAll(dir, 0755)
	if err != nil {
		return nil, err
	}
	return NewXLSXFile(XLSXPath(dir, runTag)), nil
}

// NewXLSXFile writes the workbook to an explicit path.
func NewXLSXFile(path string) *XLSX {
	return &XLSX{path: path, file: excelize.NewFile()}
}

func (s *XLSX) Path() string {
	return s.path
}

func (s *XLSX) Open(report admissions.Report) (admissions.Writer, error) {
	sheet := report.SheetName()
	_, err := s.file.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	if s.file.GetSheetName(0) == defaultSheet {
		err = s.file.DeleteSheet(defaultSheet)
		if err != nil {
			return nil, err
		}
		s.file.SetActiveSheet(0)
	}

	w := &xlsxWriter{sink: s, sheet: sheet, next: 1}
	w.pending = append(w.pending, report.Headings())
	err = w.Flush()
	if err != nil {
		return nil, err
	}
	return w, nil
}

func (s *XLSX) save() error {
	return s.file.SaveAs(s.path)
}

func (s *XLSX) Close() error {
	return s.file.Close()
}

type xlsxWriter struct {
	sink    *XLSX
	sheet   string
	next    int
	pending [][]string
}

func (w *xlsxWriter) Append(record admissions.Record) error {
	w.pending = append(w.pending, record.Values())
	return nil
}

func (w *xlsxWriter) Flush() error {
	for _, values := range w.pending {
		cell, err := excelize.CoordinatesToCellName(1, w.next)
		if err != nil {
			return err
		}
		row := make([]interface{}, len(values))
		for i, v := range values {
			row[i] = v
		}
		err = w.sink.file.SetSheetRow(w.sheet, cell, &row)
		if err != nil {
			return err
		}
		w.next++
	}
	w.pending = nil
	return w.sink.save()
}

func (w *xlsxWriter) Close() error {
	w.pending = nil
	return nil
}
