package db

import (
	"fmt"
	"os"
	"strings"
)

// formatDuration formats a duration in human-readable form
func formatDuration(secs float64) string {
	if secs < 0.001 {
		return "<1ms"
	} else if secs < 0.01 {
		return fmt.Sprintf("%dms", int(secs*1000))
	} else if secs < 1 {
		ms := secs * 1000
		if ms < 10 {
			return fmt.Sprintf("%.1fms", ms)
		}
		return fmt.Sprintf("%dms", int(ms))
	} else if secs < 60 {
		if secs < 10 {
			return fmt.Sprintf("%.1fs", secs)
		}
		return fmt.Sprintf("%ds", int(secs))
	} else {
		mins := int(secs / 60)
		remainSecs := int(secs) % 60
		if remainSecs == 0 {
			return fmt.Sprintf("%dm", mins)
		}
		return fmt.Sprintf("%dm%ds", mins, remainSecs)
	}
}

func (result WriteResult) ExecutionTime() string {
	return formatDuration(result.ExecutionTimeSec)
}

// Summary renders the result as a one-line status message.
func (result WriteResult) Summary() string {
	var parts []string

	if result.TableReplaced {
		parts = append(parts, "table replaced")
	} else if result.TableCreated {
		parts = append(parts, "table created")
	}
	if result.RecordsWritten > 0 {
		parts = append(parts, fmt.Sprintf("%d record(s) written", result.RecordsWritten))
	}
	if result.Generation != "" {
		parts = append(parts, fmt.Sprintf("synced as %s", result.Generation))
	}

	if len(parts) == 0 {
		return fmt.Sprintf("OK (%s)", result.ExecutionTime())
	}
	return fmt.Sprintf("%s (%s)", strings.Join(parts, ", "), result.ExecutionTime())
}

func (result WriteResult) Display() {
	fmt.Fprintln(os.Stdout, result.Summary())
}
