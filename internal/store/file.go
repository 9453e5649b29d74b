package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// File is the default KV backend: one JSON document on disk, loaded at open
// and rewritten atomically on every mutation. The workload is a handful of
// keys mutated by explicit user toggles.
type File struct {
	path string

	mu   sync.Mutex
	data map[string]string
}

// OpenFile loads (or initializes) a file-backed store at path. A missing or
// malformed file starts empty rather than failing: stored state is never
// worth refusing to boot over.
func OpenFile(path string) (*File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("store dir: %w", err)
	}
	f := &File{path: path, data: make(map[string]string)}
	raw, err := os.ReadFile(path)
	if err == nil {
		// Malformed JSON starts the store empty.
		_ = json.Unmarshal(raw, &f.data)
		if f.data == nil {
			f.data = make(map[string]string)
		}
	}
	return f, nil
}

func (f *File) Get(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	return v, ok, nil
}

func (f *File) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value
	return f.flushLocked()
}

func (f *File) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.data[key]; !ok {
		return nil
	}
	delete(f.data, key)
	return f.flushLocked()
}

func (f *File) Close() error { return nil }

// flushLocked writes the document via a temp file and rename so a crash
// mid-write never leaves a truncated store behind.
func (f *File) flushLocked() error {
	raw, err := json.MarshalIndent(f.data, "", "  ")
	if err != nil {
		return fmt.Errorf("store marshal: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("store write: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("store rename: %w", err)
	}
	return nil
}
