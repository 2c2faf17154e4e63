package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
	_ "modernc.org/sqlite" // register pure-Go SQLite driver

	"github.com/swoiow/libsql-lighter/replica"
)

var (
	// ErrNoRemote is returned by Sync and Pull when the engine has no remote
	// replica configured.
	ErrNoRemote = errors.New("no remote replica configured")

	// ErrSyncFailed wraps remote errors raised after a successful local
	// commit. The local write stands; callers may retry Sync.
	ErrSyncFailed = errors.New("remote sync failed")
)

// Engine bridges frames with one local SQLite database file and its remote
// replica. An engine is meant to be driven by a single logical caller at a
// time; concurrent Sync calls are coalesced.
type Engine struct {
	cfg    Config
	db     *sql.DB
	syncer replica.Syncer
	logger *slog.Logger

	syncGroup singleflight.Group

	mu             sync.Mutex
	lastGeneration string
}

// NewEngine opens the local database named by cfg and builds a syncer when a
// remote is configured (directly or through the environment).
func NewEngine(cfg Config) (*Engine, error) {
	cfg = cfg.withEnv()
	if cfg.Path == "" {
		return nil, ErrEmptyPath
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	handle, err := openSQLite(cfg.Path)
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		cfg:    cfg,
		db:     handle,
		logger: logger,
	}

	if cfg.SyncURL != "" {
		syncer, err := replica.New(cfg.SyncURL, cfg.AuthToken, logger)
		if err != nil {
			handle.Close()
			return nil, err
		}
		engine.syncer = syncer
		logger.Debug("syncing with remote", "remote", cfg.SyncURL)
	}

	return engine, nil
}

func openSQLite(path string) (*sql.DB, error) {
	handle, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	// One connection keeps the write path free of SQLITE_BUSY and keeps
	// ":memory:" databases from splitting across connections.
	handle.SetMaxOpenConns(1)
	return handle, nil
}

// DB exposes the underlying handle for raw SQL.
func (engine *Engine) DB() *sql.DB {
	return engine.db
}

// Config returns the engine's connection configuration.
func (engine *Engine) Config() Config {
	return engine.cfg
}

// Close releases the local database handle.
func (engine *Engine) Close() error {
	return engine.db.Close()
}

// LastGeneration returns the generation ID of the most recent push or pull,
// or empty when the engine has not synced yet.
func (engine *Engine) LastGeneration() string {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	return engine.lastGeneration
}

// WithTx runs fn inside a transactional scope: begin, fn, then commit when
// fn returns nil or rollback otherwise. The connection is released on every
// exit path. A successful commit triggers exactly one remote sync when a
// remote is configured.
func (engine *Engine) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := engine.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	if engine.syncer != nil {
		if _, err := engine.Sync(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Sync snapshots the local database and pushes it to the remote, returning
// the new generation ID. Concurrent calls on one engine share a single push;
// a caller joining an in-flight push receives that push's generation, so a
// commit landing mid-sync is not replicated until the next Sync runs.
func (engine *Engine) Sync(ctx context.Context) (string, error) {
	if engine.syncer == nil {
		return "", ErrNoRemote
	}

	generation, err, _ := engine.syncGroup.Do("sync", func() (any, error) {
		snap, err := engine.snapshot(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSyncFailed, err)
		}
		if err := engine.syncer.Push(ctx, snap); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSyncFailed, err)
		}

		engine.mu.Lock()
		engine.lastGeneration = snap.Generation
		engine.mu.Unlock()

		engine.logger.Info("synced with remote",
			"remote", engine.cfg.SyncURL,
			"generation", snap.Generation,
			"bytes", len(snap.Data))
		return snap.Generation, nil
	})
	if err != nil {
		return "", err
	}
	return generation.(string), nil
}

// Pull fetches the remote's current snapshot and replaces the local file
// when the remote generation differs from the last one seen. A remote that
// has never been pushed to is not an error.
func (engine *Engine) Pull(ctx context.Context) error {
	if engine.syncer == nil {
		return ErrNoRemote
	}
	if engine.cfg.Path == ":memory:" {
		return fmt.Errorf("cannot pull into an in-memory database")
	}

	generation, err := engine.syncer.Generation(ctx)
	if err != nil {
		if errors.Is(err, replica.ErrNoSnapshot) {
			return nil
		}
		return err
	}
	if generation != "" && generation == engine.LastGeneration() {
		return nil
	}

	snap, err := engine.syncer.Pull(ctx)
	if err != nil {
		return err
	}

	if err := engine.replaceLocal(snap.Data); err != nil {
		return err
	}

	engine.mu.Lock()
	engine.lastGeneration = snap.Generation
	engine.mu.Unlock()

	engine.logger.Info("pulled from remote",
		"remote", engine.cfg.SyncURL,
		"generation", snap.Generation,
		"bytes", len(snap.Data))
	return nil
}

// snapshot produces a consistent copy of the database via VACUUM INTO.
func (engine *Engine) snapshot(ctx context.Context) (*replica.Snapshot, error) {
	tmp := filepath.Join(os.TempDir(), "lighter-"+uuid.NewString()+".db")
	defer os.Remove(tmp)

	if _, err := engine.db.ExecContext(ctx, "VACUUM INTO ?", tmp); err != nil {
		return nil, fmt.Errorf("failed to snapshot database: %w", err)
	}

	data, err := os.ReadFile(tmp)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	return &replica.Snapshot{
		Generation: uuid.NewString(),
		CreatedAt:  time.Now().UTC(),
		Data:       data,
	}, nil
}

// replaceLocal swaps the database file under a fresh handle.
func (engine *Engine) replaceLocal(data []byte) error {
	if err := engine.db.Close(); err != nil {
		return fmt.Errorf("failed to close database before pull: %w", err)
	}

	tmp := engine.cfg.Path + ".pull"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write pulled snapshot: %w", err)
	}
	if err := os.Rename(tmp, engine.cfg.Path); err != nil {
		return fmt.Errorf("failed to replace database file: %w", err)
	}

	handle, err := openSQLite(engine.cfg.Path)
	if err != nil {
		return err
	}
	engine.db = handle
	return nil
}
