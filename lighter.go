package lighter

import (
	"context"

	"github.com/swoiow/libsql-lighter/core"
	"github.com/swoiow/libsql-lighter/db"
)

// Open creates an engine from an explicit configuration.
func Open(cfg db.Config) (*db.Engine, error) {
	return db.NewEngine(cfg)
}

// OpenURL creates an engine from a connection URL.
func OpenURL(url string) (*db.Engine, error) {
	cfg, err := db.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return db.NewEngine(cfg)
}

// WriteFrameCommitSync writes the frame into the named table at the
// destination, committing the transaction and syncing the remote replica in
// one call. The engine lives only for the duration of the call.
func WriteFrameCommitSync(ctx context.Context, frame *core.Frame, url string, opts db.WriteOptions) (db.WriteResult, error) {
	engine, err := OpenURL(url)
	if err != nil {
		return db.WriteResult{}, err
	}
	defer engine.Close()

	return engine.WriteFrame(ctx, frame, opts)
}

// ReadSQLFrame executes a query at the destination and returns the result
// as a frame.
func ReadSQLFrame(ctx context.Context, query, url string, args ...any) (*core.Frame, error) {
	engine, err := OpenURL(url)
	if err != nil {
		return nil, err
	}
	defer engine.Close()

	return engine.ReadSQL(ctx, query, args...)
}

// ReadTableFrame reads all rows of a named table at the destination.
func ReadTableFrame(ctx context.Context, table, url string) (*core.Frame, error) {
	engine, err := OpenURL(url)
	if err != nil {
		return nil, err
	}
	defer engine.Close()

	return engine.ReadTable(ctx, table, db.ReadOptions{})
}
