package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	slogseq "github.com/sokkalf/slog-seq"
	"golang.org/x/sync/errgroup"
)

func main() {
	addr := flag.String("addr", ":7070", "Listen address")
	dataDir := flag.String("dataDir", "./replicad-data", "Directory for stored snapshots")
	jwtSecret := flag.String("jwtSecret", "", "HS256 secret for bearer-token auth (empty disables auth)")
	issuer := flag.String("issuer", "", "Expected JWT issuer claim")
	audience := flag.String("audience", "", "Expected JWT audience claim")
	seqURL := flag.String("seq", "", "Optional Seq ingestion URL for structured logs")
	flag.Parse()

	logger, closeLogger := setupLogger(*seqURL)
	defer closeLogger()

	store, err := NewSnapshotStore(*dataDir)
	if err != nil {
		logger.Error("failed to open snapshot store", "error", err)
		os.Exit(1)
	}

	authConfig := &AuthConfig{
		JWTSecret: *jwtSecret,
		Issuer:    *issuer,
		Audience:  *audience,
	}
	if !authConfig.Enabled() {
		logger.Warn("authentication disabled; all pushes will be accepted")
	}

	server := NewServer(store, authConfig, logger)
	if err := server.Start(*addr); err != nil {
		logger.Error("failed to start server", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Stop(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Error("shutdown failed", "error", err)
		os.Exit(1)
	}
	logger.Info("replicad stopped")
}

// setupLogger builds the process logger: text to stdout, optionally mirrored
// to a Seq server.
func setupLogger(seqURL string) (*slog.Logger, func()) {
	console := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})

	if seqURL == "" {
		logger := slog.New(console)
		slog.SetDefault(logger)
		return logger, func() {}
	}

	_, seqHandler := slogseq.NewLogger(
		seqURL,
		slogseq.WithBatchSize(1),
		slogseq.WithFlushInterval(500*time.Millisecond),
		slogseq.WithHandlerOptions(&slog.HandlerOptions{Level: slog.LevelDebug}),
	)
	if seqHandler == nil {
		logger := slog.New(console)
		slog.SetDefault(logger)
		return logger, func() {}
	}

	logger := slog.New(seqHandler)
	slog.SetDefault(logger)
	return logger, func() { seqHandler.Close() }
}
