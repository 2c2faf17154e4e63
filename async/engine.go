// Package async exposes the engine's operation set through a cooperative
// single-worker facade. One goroutine owns the underlying engine and
// executes submitted operations in order; callers receive futures and
// suspend on Await until the result arrives. Every operation delegates
// straight into package db; no business logic lives here.
package async

import (
	"context"
	"errors"
	"sync"

	"github.com/swoiow/libsql-lighter/core"
	"github.com/swoiow/libsql-lighter/db"
)

var ErrClosed = errors.New("async engine is closed")

// Future holds the yet-to-arrive result of a submitted operation.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

func (f *Future[T]) resolve(val T, err error) {
	f.val = val
	f.err = err
	close(f.done)
}

func failed[T any](err error) *Future[T] {
	f := newFuture[T]()
	var zero T
	f.resolve(zero, err)
	return f
}

// Await suspends the caller until the operation completes or ctx is
// cancelled.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Engine is the asynchronous facade over a db.Engine. Operations may be
// submitted from any goroutine; they execute one at a time on the worker.
type Engine struct {
	inner *db.Engine
	jobs  chan func()

	closeOnce sync.Once
	closed    chan struct{}
	drained   chan struct{}
}

// New wraps a db.Engine. The caller keeps ownership of the inner engine and
// closes it after Close.
func New(inner *db.Engine) *Engine {
	engine := &Engine{
		inner:   inner,
		jobs:    make(chan func()),
		closed:  make(chan struct{}),
		drained: make(chan struct{}),
	}
	go engine.loop()
	return engine
}

// Open parses a connection URL and wraps the resulting engine. Close then
// also closes the inner engine.
func Open(url string) (*Engine, error) {
	cfg, err := db.ParseURL(url)
	if err != nil {
		return nil, err
	}
	inner, err := db.NewEngine(cfg)
	if err != nil {
		return nil, err
	}
	return New(inner), nil
}

func (engine *Engine) loop() {
	defer close(engine.drained)
	for {
		select {
		case job := <-engine.jobs:
			job()
		case <-engine.closed:
			return
		}
	}
}

// Close stops the worker. Operations already executing finish; submissions
// after Close fail with ErrClosed.
func (engine *Engine) Close() {
	engine.closeOnce.Do(func() { close(engine.closed) })
	<-engine.drained
}

// Inner returns the wrapped engine.
func (engine *Engine) Inner() *db.Engine {
	return engine.inner
}

func submit[T any](engine *Engine, ctx context.Context, op func(ctx context.Context) (T, error)) *Future[T] {
	future := newFuture[T]()
	job := func() { future.resolve(op(ctx)) }

	select {
	case engine.jobs <- job:
		return future
	case <-engine.closed:
		return failed[T](ErrClosed)
	case <-ctx.Done():
		return failed[T](ctx.Err())
	}
}

// WriteFrame schedules a frame write; commit and sync semantics match
// db.Engine.WriteFrame.
func (engine *Engine) WriteFrame(ctx context.Context, frame *core.Frame, opts db.WriteOptions) *Future[db.WriteResult] {
	return submit(engine, ctx, func(ctx context.Context) (db.WriteResult, error) {
		return engine.inner.WriteFrame(ctx, frame, opts)
	})
}

// ReadSQL schedules a query.
func (engine *Engine) ReadSQL(ctx context.Context, query string, args ...any) *Future[*core.Frame] {
	return submit(engine, ctx, func(ctx context.Context) (*core.Frame, error) {
		return engine.inner.ReadSQL(ctx, query, args...)
	})
}

// ReadTable schedules a table read.
func (engine *Engine) ReadTable(ctx context.Context, table string, opts db.ReadOptions) *Future[*core.Frame] {
	return submit(engine, ctx, func(ctx context.Context) (*core.Frame, error) {
		return engine.inner.ReadTable(ctx, table, opts)
	})
}

// Sync schedules a push to the remote replica, returning the generation ID.
func (engine *Engine) Sync(ctx context.Context) *Future[string] {
	return submit(engine, ctx, func(ctx context.Context) (string, error) {
		return engine.inner.Sync(ctx)
	})
}
