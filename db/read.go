package db

import (
	"context"
	"fmt"
	"strconv"

	"github.com/swoiow/libsql-lighter/core"
)

// ReadOptions narrows a ReadTable call. The zero value selects all rows and
// columns.
type ReadOptions struct {
	Columns   []string
	Where     string // uses '?' placeholders
	WhereArgs []any
	OrderBy   string
	Limit     int // <= 0 means no limit

	// ParseDates names text columns decoded into time.Time after the scan.
	ParseDates []string
}

// ReadSQL executes a query and materializes the full result set into a
// frame. When a remote is configured, the latest remote state is pulled
// first.
func (engine *Engine) ReadSQL(ctx context.Context, query string, args ...any) (*core.Frame, error) {
	if engine.syncer != nil && engine.cfg.Path != ":memory:" {
		if err := engine.Pull(ctx); err != nil {
			return nil, err
		}
	}

	rows, err := engine.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read result columns: %w", err)
	}

	var data [][]any
	for rows.Next() {
		values := make([]any, len(names))
		pointers := make([]any, len(names))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		data = append(data, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	return core.FrameOf(names, data)
}

// ReadTable reads rows from a named table, a convenience specialization of
// ReadSQL.
func (engine *Engine) ReadTable(ctx context.Context, table string, opts ReadOptions) (*core.Frame, error) {
	if table == "" {
		return nil, ErrEmptyTableName
	}

	cols := "*"
	if len(opts.Columns) > 0 {
		cols = quoteIdents(opts.Columns)
	}

	query := "SELECT " + cols + " FROM " + quoteIdent(table)
	args := append([]any(nil), opts.WhereArgs...)

	if opts.Where != "" {
		query += " WHERE " + opts.Where
	}
	if opts.OrderBy != "" {
		query += " ORDER BY " + opts.OrderBy
	}
	if opts.Limit > 0 {
		query += " LIMIT " + strconv.Itoa(opts.Limit)
	}

	frame, err := engine.ReadSQL(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(opts.ParseDates) > 0 {
		if err := frame.ParseTimes(opts.ParseDates...); err != nil {
			return nil, err
		}
	}
	return frame, nil
}
