package sink

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"gaokao-admissions/lib/timezone"
	"gaokao-admissions/services/admissions"
	"gaokao-admissions/services/admissions/db"
)

var tables = map[admissions.Report]string{
	admissions.ProvinceScores: "province_scores",
	admissions.EnrollPlans:    "enroll_plans",
	admissions.MajorScores:    "major_scores",
}

// TableName is the table a report is stored in.
func TableName(report admissions.Report) string {
	return tables[report]
}

// SQLite stores rows tagged with the run tag, one transaction per flush.
type SQLite struct {
	ctx    context.Context
	db     *sql.DB
	qry    *db.Queries
	runTag string
}

// NewSQLite applies the schema and registers the run. ctx bounds every
// statement the sink issues later on.
func NewSQLite(ctx context.Context, database *sql.DB, runTag, province string) (SQLite, error) {
	_, err := database.ExecContext(ctx, db.Schema)
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		return SQLite{}, fmt.Errorf("apply schema: %w", err)
	}
	qry := db.New(database)
	err = qry.CreateRun(ctx, db.CreateRunParams{
		Tag:       runTag,
		Province:  province,
		StartedAt: timezone.Now().Unix(),
	})
	if err != nil {
		return SQLite{}, fmt.Errorf("register run: %w", err)
	}
	return SQLite{ctx: ctx, db: database, qry: qry, runTag: runTag}, nil
}

func (s SQLite) Open(report admissions.Report) (admissions.Writer, error) {
	table, ok := tables[report]
	if !ok {
		return nil, fmt.Errorf("no table for report %s", report)
	}
	seq, err := s.qry.NextSeq(s.ctx, table, s.runTag)
	if err != nil {
		return nil, err
	}
	return &sqliteWriter{
		sink:    s,
		table:   table,
		columns: report.Columns(),
		seq:     seq,
	}, nil
}

func (s SQLite) Close() error {
	return s.db.Close()
}

type sqliteWriter struct {
	sink    SQLite
	table   string
	columns []string
	seq     int64
	tx      *sql.Tx
}

func (w *sqliteWriter) Append(record admissions.Record) error {
	if w.tx == nil {
		tx, err := w.sink.db.BeginTx(w.sink.ctx, nil)
		if err != nil {
			return err
		}
		w.tx = tx
	}
	err := w.sink.qry.WithTx(w.tx).InsertRow(w.sink.ctx, db.InsertRowParams{
		Table:   w.table,
		Columns: w.columns,
		RunTag:  w.sink.runTag,
		Seq:     w.seq,
		Values:  record.Values(),
	})
	if err != nil {
		return err
	}
	w.seq++
	return nil
}

func (w *sqliteWriter) Flush() error {
	if w.tx == nil {
		return nil
	}
	err := w.tx.Commit()
	w.tx = nil
	return err
}

// Close drops rows that were never flushed.
func (w *sqliteWriter) Close() error {
	if w.tx == nil {
		return nil
	}
	err := w.tx.Rollback()
	w.tx = nil
	return err
}
