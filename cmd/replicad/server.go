package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/swoiow/libsql-lighter/replica"
)

// Server serves the snapshot protocol over HTTP.
type Server struct {
	store      *SnapshotStore
	authConfig *AuthConfig
	logger     *slog.Logger

	listener net.Listener
	httpSrv  *http.Server
}

func NewServer(store *SnapshotStore, authConfig *AuthConfig, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	server := &Server{
		store:      store,
		authConfig: authConfig,
		logger:     logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/snapshot", server.withAuth(server.handleSnapshot))
	mux.HandleFunc("/v1/generation", server.withAuth(server.handleGeneration))
	server.httpSrv = &http.Server{Handler: mux}

	return server
}

// Start begins listening for connections on the specified address.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	s.listener = listener

	s.logger.Info("replica endpoint listening", "addr", listener.Addr().String(), "auth", s.authConfig.Enabled())

	go func() {
		if err := s.httpSrv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("serve failed", "error", err)
		}
	}()
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// Addr returns the server's listening address.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.authConfig.Enabled() {
			if err := s.authConfig.validateBearer(r); err != nil {
				s.logger.Warn("rejected request", "remote", r.RemoteAddr, "error", err)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handlePush(w, r)
	case http.MethodGet:
		s.handlePull(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handlePush(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	generation := r.Header.Get(replica.HeaderGeneration)
	if generation == "" {
		generation = uuid.NewString()
	}
	createdAt := time.Now()
	if at := r.Header.Get(replica.HeaderCreatedAt); at != "" {
		if parsed, err := time.Parse(time.RFC3339Nano, at); err == nil {
			createdAt = parsed
		}
	}

	if err := s.store.Put(generation, createdAt, data); err != nil {
		s.logger.Error("failed to store snapshot", "error", err)
		http.Error(w, "failed to store snapshot", http.StatusInternalServerError)
		return
	}

	s.logger.Info("snapshot received",
		"remote", r.RemoteAddr,
		"generation", generation,
		"bytes", len(data))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePull(w http.ResponseWriter, r *http.Request) {
	data, info, err := s.store.Get()
	if err != nil {
		if errors.Is(err, errNoSnapshot) {
			http.Error(w, "no snapshot", http.StatusNotFound)
			return
		}
		s.logger.Error("failed to load snapshot", "error", err)
		http.Error(w, "failed to load snapshot", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set(replica.HeaderGeneration, info.Generation)
	w.Header().Set(replica.HeaderCreatedAt, info.CreatedAt.UTC().Format(time.RFC3339Nano))
	w.Write(data)

	s.logger.Info("snapshot served",
		"remote", r.RemoteAddr,
		"generation", info.Generation,
		"bytes", len(data))
}

func (s *Server) handleGeneration(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	info, err := s.store.Info()
	if err != nil {
		if errors.Is(err, errNoSnapshot) {
			http.Error(w, "no snapshot", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load snapshot metadata", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(info)
}
