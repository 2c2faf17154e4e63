// Package main provides replicad, a minimal replica endpoint for
// libsql-lighter. It accepts snapshot pushes over HTTP and serves them back
// to pulling clients.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/swoiow/libsql-lighter/replica"
)

var errNoSnapshot = errors.New("no snapshot stored")

// SnapshotStore persists the current snapshot and its metadata under a data
// directory. Pushes replace the files atomically.
type SnapshotStore struct {
	mu  sync.RWMutex
	dir string
}

func NewSnapshotStore(dir string) (*SnapshotStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &SnapshotStore{dir: dir}, nil
}

func (s *SnapshotStore) dataPath() string {
	return filepath.Join(s.dir, "current.db")
}

func (s *SnapshotStore) metaPath() string {
	return filepath.Join(s.dir, "current.meta")
}

// Put stores a pushed snapshot, making it current.
func (s *SnapshotStore) Put(generation string, createdAt time.Time, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, err := json.Marshal(replica.GenerationInfo{
		Generation: generation,
		CreatedAt:  createdAt.UTC(),
		Size:       int64(len(data)),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot metadata: %w", err)
	}

	if err := writeAtomic(s.dataPath(), data); err != nil {
		return err
	}
	return writeAtomic(s.metaPath(), meta)
}

// Get returns the current snapshot bytes and metadata.
func (s *SnapshotStore) Get() ([]byte, *replica.GenerationInfo, error) {
	info, err := s.info()
	if err != nil {
		return nil, nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	data, err := os.ReadFile(s.dataPath())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return data, info, nil
}

// Info returns the current snapshot's metadata without its data.
func (s *SnapshotStore) Info() (*replica.GenerationInfo, error) {
	return s.info()
}

func (s *SnapshotStore) info() (*replica.GenerationInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	raw, err := os.ReadFile(s.metaPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errNoSnapshot
		}
		return nil, fmt.Errorf("failed to read snapshot metadata: %w", err)
	}

	var info replica.GenerationInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot metadata: %w", err)
	}
	return &info, nil
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
