package lighter

import (
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/swoiow/libsql-lighter/core"
	"github.com/swoiow/libsql-lighter/db"
	"github.com/swoiow/libsql-lighter/replica"
)

// fakeRemote is an in-memory replica endpoint speaking the snapshot protocol.
type fakeRemote struct {
	mu         sync.Mutex
	generation string
	data       []byte
	pushes     int
}

func (f *fakeRemote) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/snapshot", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		switch r.Method {
		case http.MethodPost:
			data, _ := io.ReadAll(r.Body)
			f.data = data
			f.generation = r.Header.Get(replica.HeaderGeneration)
			f.pushes++
			w.WriteHeader(http.StatusNoContent)
		case http.MethodGet:
			if f.generation == "" {
				http.Error(w, "no snapshot", http.StatusNotFound)
				return
			}
			w.Header().Set(replica.HeaderGeneration, f.generation)
			_, _ = w.Write(f.data)
		}
	})
	mux.HandleFunc("/v1/generation", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.generation == "" {
			http.Error(w, "no snapshot", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"generation":` + strconv.Quote(f.generation) + `}`))
	})
	return mux
}

func localURL(t *testing.T, name string) string {
	t.Helper()
	t.Setenv(db.EnvSyncURL, "")
	t.Setenv(db.EnvAuthToken, "")
	return "sqlite:///" + filepath.Join(t.TempDir(), name)
}

func inspectionFrame(t *testing.T) *core.Frame {
	t.Helper()
	frame, err := core.FrameOf(
		[]string{"permit_id", "establishment", "score", "passed"},
		[][]any{
			{101, "Harbor Grill", 94, true},
			{102, "Corner Bakery", 78, false},
			{103, "Night Market", 88, true},
		},
	)
	if err != nil {
		t.Fatalf("Failed to build frame: %v", err)
	}
	return frame
}

func TestWriteReadRoundTrip(t *testing.T) {
	url := localURL(t, "inspections.db")
	frame := inspectionFrame(t)

	result, err := WriteFrameCommitSync(t.Context(), frame, url, db.WriteOptions{
		Table:      "inspections",
		PrimaryKey: []string{"permit_id"},
	})
	if err != nil {
		t.Fatalf("Failed to write frame: %v", err)
	}
	if result.RecordsWritten != 3 {
		t.Errorf("Expected 3 records written, got %d", result.RecordsWritten)
	}
	if !result.TableCreated {
		t.Error("Expected table to be created")
	}

	got, err := ReadTableFrame(t.Context(), "inspections", url)
	if err != nil {
		t.Fatalf("Failed to read table: %v", err)
	}
	if !frame.RowEqual(got) {
		t.Error("Read frame does not match written frame")
	}
}

func TestReadSQLFrameWithArgs(t *testing.T) {
	url := localURL(t, "inspections.db")

	_, err := WriteFrameCommitSync(t.Context(), inspectionFrame(t), url, db.WriteOptions{Table: "inspections"})
	if err != nil {
		t.Fatalf("Failed to write frame: %v", err)
	}

	got, err := ReadSQLFrame(t.Context(),
		"SELECT establishment FROM inspections WHERE score >= ? ORDER BY score DESC", url, 85)
	if err != nil {
		t.Fatalf("Failed to query: %v", err)
	}
	if got.NumRows() != 2 {
		t.Fatalf("Expected 2 rows, got %d", got.NumRows())
	}
	if got.Row(0)[0] != "Harbor Grill" {
		t.Errorf("Expected 'Harbor Grill' first, got %v", got.Row(0)[0])
	}
}

func TestAppendAcrossCalls(t *testing.T) {
	url := localURL(t, "inspections.db")
	ctx := t.Context()

	if _, err := WriteFrameCommitSync(ctx, inspectionFrame(t), url, db.WriteOptions{Table: "inspections"}); err != nil {
		t.Fatalf("Failed to write frame: %v", err)
	}

	more, err := core.FrameOf(
		[]string{"permit_id", "establishment", "score", "passed"},
		[][]any{{104, "Dockside Deli", 91, true}},
	)
	if err != nil {
		t.Fatalf("Failed to build frame: %v", err)
	}
	if _, err := WriteFrameCommitSync(ctx, more, url, db.WriteOptions{Table: "inspections", IfExists: db.IfExistsAppend}); err != nil {
		t.Fatalf("Failed to append frame: %v", err)
	}

	got, err := ReadTableFrame(ctx, "inspections", url)
	if err != nil {
		t.Fatalf("Failed to read table: %v", err)
	}
	if got.NumRows() != 4 {
		t.Errorf("Expected 4 rows after append, got %d", got.NumRows())
	}
}

func TestWriteSyncsRemoteAndSecondClientPulls(t *testing.T) {
	remote := &fakeRemote{}
	server := httptest.NewServer(remote.handler())
	defer server.Close()

	t.Setenv(db.EnvSyncURL, "")
	t.Setenv(db.EnvAuthToken, "")
	dir := t.TempDir()
	ctx := t.Context()

	writerURL := "sqlite:///" + filepath.Join(dir, "writer.db") + "?host=" + server.URL
	readerURL := "sqlite:///" + filepath.Join(dir, "reader.db") + "?host=" + server.URL

	if _, err := WriteFrameCommitSync(ctx, inspectionFrame(t), writerURL, db.WriteOptions{Table: "inspections"}); err != nil {
		t.Fatalf("Failed to write frame: %v", err)
	}
	if remote.pushes != 1 {
		t.Errorf("Expected exactly 1 push after commit, got %d", remote.pushes)
	}

	got, err := ReadTableFrame(ctx, "inspections", readerURL)
	if err != nil {
		t.Fatalf("Failed to read through second client: %v", err)
	}
	if got.NumRows() != 3 {
		t.Errorf("Expected 3 rows pulled from remote, got %d", got.NumRows())
	}
}

func TestOpenURLRejectsBadScheme(t *testing.T) {
	if _, err := OpenURL("postgres:///nope"); err == nil {
		t.Error("Expected error for unsupported scheme")
	}
}
