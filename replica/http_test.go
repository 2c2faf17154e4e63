package replica

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

// fakeReplica is an in-memory replica endpoint speaking the snapshot
// protocol, the same shape cmd/replicad implements.
type fakeReplica struct {
	mu         sync.Mutex
	data       []byte
	generation string
	createdAt  time.Time
	token      string
	pushes     int
}

func (f *fakeReplica) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/snapshot", func(w http.ResponseWriter, r *http.Request) {
		if f.token != "" && r.Header.Get("Authorization") != "Bearer "+f.token {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		f.mu.Lock()
		defer f.mu.Unlock()

		switch r.Method {
		case http.MethodPost:
			body, _ := io.ReadAll(r.Body)
			f.data = body
			f.generation = r.Header.Get(HeaderGeneration)
			f.createdAt = time.Now()
			f.pushes++
			w.WriteHeader(http.StatusNoContent)
		case http.MethodGet:
			if f.generation == "" {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Header().Set(HeaderGeneration, f.generation)
			w.Header().Set(HeaderCreatedAt, f.createdAt.UTC().Format(time.RFC3339Nano))
			w.Write(f.data)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/v1/generation", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.generation == "" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(GenerationInfo{
			Generation: f.generation,
			CreatedAt:  f.createdAt,
			Size:       int64(len(f.data)),
		})
	})
	return mux
}

func TestHTTPSyncerRoundTrip(t *testing.T) {
	remote := &fakeReplica{}
	server := httptest.NewServer(remote.handler())
	defer server.Close()

	syncer, err := NewHTTPSyncer(server.URL, "", nil)
	if err != nil {
		t.Fatalf("Failed to create syncer: %v", err)
	}

	ctx := context.Background()

	if _, err := syncer.Pull(ctx); !errors.Is(err, ErrNoSnapshot) {
		t.Errorf("Expected ErrNoSnapshot before first push, got %v", err)
	}

	snap := &Snapshot{Generation: "gen-1", CreatedAt: time.Now(), Data: []byte("sqlite bytes")}
	if err := syncer.Push(ctx, snap); err != nil {
		t.Fatalf("Failed to push snapshot: %v", err)
	}
	if remote.pushes != 1 {
		t.Errorf("Expected exactly 1 push, got %d", remote.pushes)
	}

	pulled, err := syncer.Pull(ctx)
	if err != nil {
		t.Fatalf("Failed to pull snapshot: %v", err)
	}
	if pulled.Generation != "gen-1" {
		t.Errorf("Expected generation 'gen-1', got '%s'", pulled.Generation)
	}
	if string(pulled.Data) != "sqlite bytes" {
		t.Errorf("Snapshot data mismatch: %q", pulled.Data)
	}

	gen, err := syncer.Generation(ctx)
	if err != nil {
		t.Fatalf("Failed to fetch generation: %v", err)
	}
	if gen != "gen-1" {
		t.Errorf("Expected generation 'gen-1', got '%s'", gen)
	}
}

func TestHTTPSyncerAuthFailure(t *testing.T) {
	remote := &fakeReplica{token: "secret"}
	server := httptest.NewServer(remote.handler())
	defer server.Close()

	syncer, err := NewHTTPSyncer(server.URL, "wrong", nil)
	if err != nil {
		t.Fatalf("Failed to create syncer: %v", err)
	}

	err = syncer.Push(context.Background(), &Snapshot{Generation: "g", Data: []byte("x")})
	if !errors.Is(err, ErrAuthFailed) {
		t.Errorf("Expected ErrAuthFailed, got %v", err)
	}
}

func TestHTTPSyncerExpiredTokenSkipsNetwork(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))
	defer server.Close()

	syncer, err := NewHTTPSyncer(server.URL, signedToken(t, time.Now().Add(-time.Minute)), nil)
	if err != nil {
		t.Fatalf("Failed to create syncer: %v", err)
	}

	err = syncer.Push(context.Background(), &Snapshot{Generation: "g", Data: []byte("x")})
	if !errors.Is(err, ErrTokenExpired) {
		t.Errorf("Expected ErrTokenExpired, got %v", err)
	}
	if requests != 0 {
		t.Errorf("Expected no requests for expired token, server saw %d", requests)
	}
}
