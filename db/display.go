package db

import (
	"fmt"
	"io"
	"strings"

	"github.com/swoiow/libsql-lighter/core"
)

// FrameWriter renders frames as plain text tables.
type FrameWriter struct {
	writer io.Writer
}

func NewFrameWriter(w io.Writer) *FrameWriter {
	return &FrameWriter{writer: w}
}

// Render outputs the frame followed by a compact row-count line.
func (fw *FrameWriter) Render(frame *core.Frame) {
	headers := frame.ColumnNames()
	cells := make([][]string, 0, frame.NumRows())
	frame.Rows(func(_ int, row []any) bool {
		cells = append(cells, formatRowValues(row))
		return true
	})

	widths := columnWidths(headers, cells)
	separator := buildSeparator(widths)

	fmt.Fprintln(fw.writer, separator)
	fmt.Fprintln(fw.writer, formatCells(headers, widths))
	fmt.Fprintln(fw.writer, separator)
	for _, row := range cells {
		fmt.Fprintln(fw.writer, formatCells(row, widths))
	}
	fmt.Fprintln(fw.writer, separator)
	fmt.Fprintf(fw.writer, "%d rows\n", len(cells))
}

func formatRowValues(row []any) []string {
	cells := make([]string, len(row))
	for i, value := range row {
		coerced := core.Coerce(value)
		if coerced == nil {
			cells[i] = "NULL"
			continue
		}
		cells[i] = fmt.Sprintf("%v", coerced)
	}
	return cells
}

func columnWidths(headers []string, rows [][]string) []int {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}
	for i := range widths {
		if widths[i] < 1 {
			widths[i] = 1
		}
	}
	return widths
}

func buildSeparator(widths []int) string {
	parts := make([]string, len(widths))
	for i, w := range widths {
		parts[i] = strings.Repeat("-", w+2)
	}
	return "+" + strings.Join(parts, "+") + "+"
}

func formatCells(row []string, widths []int) string {
	parts := make([]string, len(widths))
	for i, w := range widths {
		cell := ""
		if i < len(row) {
			cell = row[i]
		}
		parts[i] = " " + cell + strings.Repeat(" ", w-len(cell)+1)
	}
	return "|" + strings.Join(parts, "|") + "|"
}
