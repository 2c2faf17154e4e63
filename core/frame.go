package core

import (
	"errors"
	"fmt"
	"time"
)

type ColumnType int

const (
	StringType ColumnType = iota
	IntType
	FloatType
	BoolType
	TextType
	DateType
	TimestampType
	JsonType
	BlobType
)

// SQLiteType returns the SQLite storage type used in generated DDL.
func (t ColumnType) SQLiteType() string {
	switch t {
	case IntType, BoolType:
		return "INTEGER"
	case FloatType:
		return "REAL"
	case BlobType:
		return "BLOB"
	default:
		return "TEXT"
	}
}

type Column struct {
	Name       string     `json:"name"`
	Type       ColumnType `json:"type"`
	PrimaryKey bool       `json:"primaryKey"`
}

// Frame is an in-memory tabular dataset: rows by named, typed columns.
// Frames are not safe for concurrent mutation.
type Frame struct {
	Columns []Column
	rows    [][]any
}

var (
	ErrColumnCount = errors.New("row length does not match column count")
	ErrNoColumn    = errors.New("no such column")
)

func NewFrame(columns []Column) *Frame {
	return &Frame{Columns: columns}
}

// FrameOf builds a frame from column names and rows, inferring each column
// type from the first non-nil value in that column.
func FrameOf(names []string, rows [][]any) (*Frame, error) {
	columns := make([]Column, len(names))
	for i, name := range names {
		columns[i] = Column{Name: name, Type: StringType}
		for _, row := range rows {
			if i < len(row) && row[i] != nil {
				columns[i].Type = InferType(row[i])
				break
			}
		}
	}

	frame := NewFrame(columns)
	for _, row := range rows {
		if err := frame.Append(row...); err != nil {
			return nil, err
		}
	}
	return frame, nil
}

// Append adds one row. Values are stored as given; coercion to SQLite
// representations happens on write.
func (frame *Frame) Append(values ...any) error {
	if len(values) != len(frame.Columns) {
		return fmt.Errorf("%w: got %d values for %d columns", ErrColumnCount, len(values), len(frame.Columns))
	}
	frame.rows = append(frame.rows, values)
	return nil
}

func (frame *Frame) NumRows() int {
	return len(frame.rows)
}

func (frame *Frame) NumColumns() int {
	return len(frame.Columns)
}

// Row returns the i-th row. The returned slice is the frame's backing
// storage; callers must not modify it.
func (frame *Frame) Row(i int) []any {
	return frame.rows[i]
}

func (frame *Frame) ColumnNames() []string {
	names := make([]string, len(frame.Columns))
	for i, col := range frame.Columns {
		names[i] = col.Name
	}
	return names
}

// Rows iterates all rows in insertion order.
func (frame *Frame) Rows(yield func(i int, row []any) bool) {
	for i, row := range frame.rows {
		if !yield(i, row) {
			return
		}
	}
}

// timeLayouts are tried in order when decoding stored text into time.Time.
// RFC 3339 comes first because Coerce writes timestamps that way.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimes decodes the named text columns into time.Time values in place
// and retypes them as Timestamp. NULLs pass through; a value that is neither
// text nor already a time.Time fails.
func (frame *Frame) ParseTimes(names ...string) error {
	for _, name := range names {
		idx := -1
		for i, col := range frame.Columns {
			if col.Name == name {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("%w: %s", ErrNoColumn, name)
		}

		for _, row := range frame.rows {
			switch v := row[idx].(type) {
			case nil, time.Time:
			case string:
				parsed, err := parseTime(v)
				if err != nil {
					return fmt.Errorf("failed to parse column %s: %w", name, err)
				}
				row[idx] = parsed
			default:
				return fmt.Errorf("cannot parse column %s value %v (%T) as time", name, v, v)
			}
		}
		frame.Columns[idx].Type = TimestampType
	}
	return nil
}

func parseTime(text string) (time.Time, error) {
	var firstErr error
	for _, layout := range timeLayouts {
		parsed, err := time.Parse(layout, text)
		if err == nil {
			return parsed, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

// RowEqual reports whether two frames hold the same rows in the same order,
// comparing values in their coerced SQLite representation. Column names must
// match; declared column types may differ as long as the stored values agree.
func (frame *Frame) RowEqual(other *Frame) bool {
	if other == nil || len(frame.Columns) != len(other.Columns) || len(frame.rows) != len(other.rows) {
		return false
	}
	for i, col := range frame.Columns {
		if col.Name != other.Columns[i].Name {
			return false
		}
	}
	for i, row := range frame.rows {
		for j, value := range row {
			if !valueEqual(Coerce(value), Coerce(other.rows[i][j])) {
				return false
			}
		}
	}
	return true
}
