package db

import (
	"strings"
	"testing"
)

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		secs float64
		want string
	}{
		{0.0004, "<1ms"},
		{0.005, "5ms"},
		{0.0082, "8ms"},
		{0.05, "50ms"},
		{0.25, "250ms"},
		{1.5, "1.5s"},
		{12, "12s"},
		{60, "1m"},
		{90, "1m30s"},
	}
	for _, tc := range cases {
		if got := formatDuration(tc.secs); got != tc.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tc.secs, got, tc.want)
		}
	}
}

func TestWriteResultSummary(t *testing.T) {
	t.Run("no-op", func(t *testing.T) {
		result := WriteResult{ExecutionTimeSec: 0.0001}
		if got := result.Summary(); got != "OK (<1ms)" {
			t.Errorf("Summary() = %q, want %q", got, "OK (<1ms)")
		}
	})

	t.Run("create and write", func(t *testing.T) {
		result := WriteResult{
			RecordsWritten:   3,
			TableCreated:     true,
			ExecutionTimeSec: 0.005,
		}
		want := "table created, 3 record(s) written (5ms)"
		if got := result.Summary(); got != want {
			t.Errorf("Summary() = %q, want %q", got, want)
		}
	})

	t.Run("replace wins over create", func(t *testing.T) {
		result := WriteResult{TableCreated: true, TableReplaced: true}
		if got := result.Summary(); !strings.HasPrefix(got, "table replaced") {
			t.Errorf("Summary() = %q, want 'table replaced' prefix", got)
		}
	})

	t.Run("synced generation", func(t *testing.T) {
		result := WriteResult{
			RecordsWritten:   1,
			Generation:       "gen-7",
			ExecutionTimeSec: 0.005,
		}
		want := "1 record(s) written, synced as gen-7 (5ms)"
		if got := result.Summary(); got != want {
			t.Errorf("Summary() = %q, want %q", got, want)
		}
	})
}
