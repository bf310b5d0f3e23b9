package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

const createRun = `-- name: CreateRun :exec
insert into runs (tag, province, started_at) values (?, ?, ?)
on conflict (tag) do nothing
`

type CreateRunParams struct {
	Tag       string
	Province  string
	StartedAt int64
}

func (q *Queries) CreateRun(ctx context.Context, arg CreateRunParams) error {
	_, err := q.db.ExecContext(ctx, createRun, arg.Tag, arg.Province, arg.StartedAt)
	return err
}

const nextSeq = `-- name: NextSeq :one
select coalesce(max(seq), 0) + 1 from %s where run_tag = ?
`

// NextSeq is the sequence number the next row of a run gets in table.
func (q *Queries) NextSeq(ctx context.Context, table, runTag string) (int64, error) {
	row := q.db.QueryRowContext(ctx, fmt.Sprintf(nextSeq, table), runTag)
	var seq int64
	err := row.Scan(&seq)
	return seq, err
}

type InsertRowParams struct {
	Table   string
	Columns []string
	RunTag  string
	Seq     int64
	Values  []string
}

func (q *Queries) InsertRow(ctx context.Context, arg InsertRowParams) error {
	if len(arg.Columns) != len(arg.Values) {
		return fmt.Errorf("%d columns but %d values", len(arg.Columns), len(arg.Values))
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(arg.Columns)+2), ", ")
	query := fmt.Sprintf(
		"insert into %s (run_tag, seq, %s) values (%s)",
		arg.Table, strings.Join(arg.Columns, ", "), placeholders,
	)

	args := make([]interface{}, 0, len(arg.Values)+2)
	args = append(args, arg.RunTag, arg.Seq)
	for _, v := range arg.Values {
		args = append(args, v)
	}
	_, err := q.db.ExecContext(ctx, query, args...)
	return err
}

// SelectRows returns the rows of a run in insertion order, fields in
// columns order.
func (q *Queries) SelectRows(ctx context.Context, table string, columns []string, runTag string) ([][]string, error) {
	query := fmt.Sprintf(
		"select %s from %s where run_tag = ? order by seq",
		strings.Join(columns, ", "), table,
	)
	rows, err := q.db.QueryContext(ctx, query, runTag)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out [][]string
	for rows.Next() {
		values := make([]string, len(columns))
		dest := make([]interface{}, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}
		err = rows.Scan(dest...)
		if err != nil {
			return nil, err
		}
		out = append(out, values)
	}
	return out, rows.Err()
}
