package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/swoiow/libsql-lighter/core"
)

// IfExists is the conflict policy applied when the target table already
// exists.
type IfExists int

const (
	// IfExistsAppend keeps the existing table and appends rows.
	IfExistsAppend IfExists = iota
	// IfExistsReplace drops and recreates the table first.
	IfExistsReplace
	// IfExistsFail aborts the write with ErrTableExists.
	IfExistsFail
)

var (
	ErrTableExists     = errors.New("table already exists")
	ErrInvalidPolicy   = errors.New("invalid if-exists policy")
	ErrEmptyTableName  = errors.New("table name must not be empty")
	ErrNoColumns       = errors.New("frame has no columns")
	ErrNilFrame        = errors.New("frame is nil")
	errUnknownIfExists = errors.New("unknown if-exists value")
)

func (p IfExists) String() string {
	switch p {
	case IfExistsAppend:
		return "append"
	case IfExistsReplace:
		return "replace"
	case IfExistsFail:
		return "fail"
	default:
		return fmt.Sprintf("IfExists(%d)", int(p))
	}
}

// ParseIfExists converts the policy names used on the original string-typed
// surface ("append", "replace", "fail").
func ParseIfExists(s string) (IfExists, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "append", "":
		return IfExistsAppend, nil
	case "replace":
		return IfExistsReplace, nil
	case "fail":
		return IfExistsFail, nil
	default:
		return 0, fmt.Errorf("%w: %q", errUnknownIfExists, s)
	}
}

// Index describes a secondary index created alongside the table.
type Index struct {
	Name    string
	Columns []string
	Unique  bool
}

// WriteOptions controls WriteFrame.
type WriteOptions struct {
	Table     string
	IfExists  IfExists
	ChunkSize int // rows per INSERT batch, default 1000

	// Constraints applied when the table is created.
	PrimaryKey     []string
	UniqueTogether [][]string
	Indexes        []Index

	// Upsert: on conflict over these columns, update instead of failing.
	// The conflict target needs a PK or UNIQUE constraint covering it.
	OnConflictColumns []string
	// UpdateColumns limits the SET list; empty means all non-conflict
	// columns.
	UpdateColumns []string
}

const defaultChunkSize = 1000

// SQLite's default bound-parameter ceiling; batches are clamped so a
// multi-row INSERT never exceeds it.
const maxBindVars = 32766

func (opts *WriteOptions) validate() error {
	if opts.Table == "" {
		return ErrEmptyTableName
	}
	if opts.IfExists < IfExistsAppend || opts.IfExists > IfExistsFail {
		return fmt.Errorf("%w: %d", ErrInvalidPolicy, int(opts.IfExists))
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = defaultChunkSize
	}
	return nil
}

// WriteResult reports a completed WriteFrame call.
type WriteResult struct {
	RecordsWritten   int
	TableCreated     bool
	TableReplaced    bool
	Generation       string // remote generation after the commit sync
	ExecutionTimeSec float64
}

// WriteFrame writes the frame into the named table according to the conflict
// policy, inside one transaction. Commit triggers exactly one remote sync
// when a remote is configured.
func (engine *Engine) WriteFrame(ctx context.Context, frame *core.Frame, opts WriteOptions) (WriteResult, error) {
	start := time.Now()

	var result WriteResult
	if frame == nil {
		return result, ErrNilFrame
	}
	if frame.NumColumns() == 0 {
		return result, ErrNoColumns
	}
	if err := opts.validate(); err != nil {
		return result, err
	}

	err := engine.WithTx(ctx, func(tx *sql.Tx) error {
		created, replaced, err := ensureTable(ctx, tx, frame, &opts)
		if err != nil {
			return err
		}
		result.TableCreated = created
		result.TableReplaced = replaced

		written, err := insertFrame(ctx, tx, frame, &opts)
		if err != nil {
			return err
		}
		result.RecordsWritten = written
		return nil
	})
	if err != nil {
		return WriteResult{}, err
	}

	result.Generation = engine.LastGeneration()
	result.ExecutionTimeSec = time.Since(start).Seconds()
	return result, nil
}

// ensureTable probes for the target table and applies the conflict policy,
// creating the table (with constraints and indexes) when needed.
func ensureTable(ctx context.Context, tx *sql.Tx, frame *core.Frame, opts *WriteOptions) (created, replaced bool, err error) {
	var name string
	err = tx.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
		opts.Table,
	).Scan(&name)
	exists := err == nil
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, false, fmt.Errorf("failed to probe for table %s: %w", opts.Table, err)
	}

	if exists {
		switch opts.IfExists {
		case IfExistsFail:
			return false, false, fmt.Errorf("%w: %s", ErrTableExists, opts.Table)
		case IfExistsReplace:
			if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteIdent(opts.Table)); err != nil {
				return false, false, fmt.Errorf("failed to drop table %s: %w", opts.Table, err)
			}
			replaced = true
		default:
			return false, false, nil
		}
	}

	if _, err := tx.ExecContext(ctx, buildCreateSQL(frame, opts)); err != nil {
		return false, replaced, fmt.Errorf("failed to create table %s: %w", opts.Table, err)
	}

	for _, index := range opts.Indexes {
		if _, err := tx.ExecContext(ctx, buildIndexSQL(opts.Table, index)); err != nil {
			return false, replaced, fmt.Errorf("failed to create index %s: %w", index.Name, err)
		}
	}
	return true, replaced, nil
}

func buildCreateSQL(frame *core.Frame, opts *WriteOptions) string {
	defs := make([]string, 0, frame.NumColumns()+2)
	for _, col := range frame.Columns {
		defs = append(defs, quoteIdent(col.Name)+" "+col.Type.SQLiteType())
	}

	primaryKey := opts.PrimaryKey
	if len(primaryKey) == 0 {
		for _, col := range frame.Columns {
			if col.PrimaryKey {
				primaryKey = append(primaryKey, col.Name)
			}
		}
	}
	if len(primaryKey) > 0 {
		defs = append(defs, "PRIMARY KEY ("+quoteIdents(primaryKey)+")")
	}
	for _, group := range opts.UniqueTogether {
		defs = append(defs, "UNIQUE ("+quoteIdents(group)+")")
	}

	return "CREATE TABLE IF NOT EXISTS " + quoteIdent(opts.Table) + " (\n  " +
		strings.Join(defs, ",\n  ") + "\n)"
}

func buildIndexSQL(table string, index Index) string {
	name := index.Name
	if name == "" {
		name = "idx_" + table + "_" + strings.Join(index.Columns, "_")
	}
	unique := ""
	if index.Unique {
		unique = "UNIQUE "
	}
	return fmt.Sprintf("CREATE %sINDEX IF NOT EXISTS %s ON %s (%s)",
		unique, quoteIdent(name), quoteIdent(table), quoteIdents(index.Columns))
}

// buildInsertSQL assembles a multi-row INSERT, optionally with an upsert
// clause.
func buildInsertSQL(table string, columns []string, batch int, conflictCols, updateCols []string) string {
	tuple := "(" + strings.TrimSuffix(strings.Repeat("?,", len(columns)), ",") + ")"
	tuples := strings.TrimSuffix(strings.Repeat(tuple+",", batch), ",")

	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(quoteIdent(table))
	sb.WriteString(" (")
	sb.WriteString(quoteIdents(columns))
	sb.WriteString(") VALUES ")
	sb.WriteString(tuples)

	if len(conflictCols) > 0 {
		targets := updateCols
		if len(targets) == 0 {
			conflict := make(map[string]bool, len(conflictCols))
			for _, col := range conflictCols {
				conflict[col] = true
			}
			for _, col := range columns {
				if !conflict[col] {
					targets = append(targets, col)
				}
			}
		}

		sb.WriteString(" ON CONFLICT (")
		sb.WriteString(quoteIdents(conflictCols))
		sb.WriteString(")")

		if len(targets) == 0 {
			sb.WriteString(" DO NOTHING")
		} else {
			sets := make([]string, len(targets))
			for i, col := range targets {
				sets[i] = quoteIdent(col) + " = excluded." + quoteIdent(col)
			}
			sb.WriteString(" DO UPDATE SET ")
			sb.WriteString(strings.Join(sets, ", "))
		}
	}
	return sb.String()
}

// chunkRows bounds a batch so one INSERT stays under the driver's bind
// variable limit. A frame wider than the limit degrades to one row per
// statement rather than a zero-row batch that would never advance.
func chunkRows(chunkSize, columns int) int {
	if chunkSize*columns > maxBindVars {
		chunkSize = maxBindVars / columns
	}
	if chunkSize < 1 {
		chunkSize = 1
	}
	return chunkSize
}

func insertFrame(ctx context.Context, tx *sql.Tx, frame *core.Frame, opts *WriteOptions) (int, error) {
	columns := frame.ColumnNames()
	chunk := chunkRows(opts.ChunkSize, len(columns))

	total := frame.NumRows()
	written := 0
	for start := 0; start < total; start += chunk {
		end := start + chunk
		if end > total {
			end = total
		}

		args := make([]any, 0, (end-start)*len(columns))
		for i := start; i < end; i++ {
			for _, value := range frame.Row(i) {
				args = append(args, core.Coerce(value))
			}
		}

		stmt := buildInsertSQL(opts.Table, columns, end-start, opts.OnConflictColumns, opts.UpdateColumns)
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			return written, fmt.Errorf("failed to insert into %s: %w", opts.Table, err)
		}
		written += end - start
	}
	return written, nil
}

// quoteIdent quotes an identifier, doubling embedded quotes.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteIdents(names []string) string {
	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = quoteIdent(name)
	}
	return strings.Join(quoted, ", ")
}
