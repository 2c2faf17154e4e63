package async

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/swoiow/libsql-lighter/core"
	"github.com/swoiow/libsql-lighter/db"
)

func setupAsyncEngine(t *testing.T) *Engine {
	t.Helper()
	t.Setenv(db.EnvSyncURL, "")
	t.Setenv(db.EnvAuthToken, "")

	inner, err := db.NewEngine(db.Config{Path: filepath.Join(t.TempDir(), "async.db")})
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	engine := New(inner)
	t.Cleanup(func() {
		engine.Close()
		inner.Close()
	})
	return engine
}

func testFrame(t *testing.T) *core.Frame {
	t.Helper()
	frame := core.NewFrame([]core.Column{
		{Name: "id", Type: core.IntType, PrimaryKey: true},
		{Name: "problem", Type: core.StringType},
	})
	if err := frame.Append(int64(1), "sync test"); err != nil {
		t.Fatalf("Failed to build frame: %v", err)
	}
	return frame
}

func TestAsyncWriteReadRoundTrip(t *testing.T) {
	engine := setupAsyncEngine(t)
	ctx := context.Background()

	frame := testFrame(t)
	result, err := engine.WriteFrame(ctx, frame, db.WriteOptions{Table: "food_safety"}).Await(ctx)
	if err != nil {
		t.Fatalf("Failed async write: %v", err)
	}
	if result.RecordsWritten != 1 {
		t.Errorf("Expected 1 record written, got %d", result.RecordsWritten)
	}

	got, err := engine.ReadTable(ctx, "food_safety", db.ReadOptions{}).Await(ctx)
	if err != nil {
		t.Fatalf("Failed async read: %v", err)
	}
	if !frame.RowEqual(got) {
		t.Error("Async round trip: read frame is not row-equal to the written frame")
	}
}

func TestAsyncOperationsAreOrdered(t *testing.T) {
	engine := setupAsyncEngine(t)
	ctx := context.Background()

	frame := testFrame(t)
	// Submit a write and a dependent read back to back; the worker executes
	// them in submission order, so the read must see the write.
	write := engine.WriteFrame(ctx, frame, db.WriteOptions{Table: "t"})
	read := engine.ReadTable(ctx, "t", db.ReadOptions{})

	if _, err := write.Await(ctx); err != nil {
		t.Fatalf("Failed async write: %v", err)
	}
	got, err := read.Await(ctx)
	if err != nil {
		t.Fatalf("Failed async read: %v", err)
	}
	if got.NumRows() != 1 {
		t.Errorf("Expected read submitted after write to see 1 row, got %d", got.NumRows())
	}
}

func TestAsyncSubmitAfterClose(t *testing.T) {
	engine := setupAsyncEngine(t)
	engine.Close()

	_, err := engine.ReadSQL(context.Background(), "SELECT 1").Await(context.Background())
	if !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
}

func TestAsyncAwaitHonorsContext(t *testing.T) {
	engine := setupAsyncEngine(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.ReadSQL(context.Background(), "SELECT 1").Await(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		// The job may already have resolved before cancellation was
		// observed; either outcome is fine.
		t.Errorf("Expected nil or context.Canceled, got %v", err)
	}
}
