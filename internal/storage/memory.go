package storage

import (
	"context"
	"os"
	"path/filepath"
	"sync"
)

// Memory is an in-memory BlobStorage used by tests and the one-shot CLI
// conversion. AbsolutePath spills the blob into a temp directory because
// external tools can only read real files.
type Memory struct {
	mu       sync.RWMutex
	blobs    map[string][]byte
	spillDir string
}

// NewMemory constructs an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{blobs: make(map[string][]byte)}
}

func (m *Memory) Write(_ context.Context, path string, data []byte, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	m.blobs[path] = buf
	return nil
}

func (m *Memory) Read(_ context.Context, path string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.blobs[path]
	if !ok {
		return nil, ErrNotFound
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	return buf, nil
}

func (m *Memory) Delete(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.blobs[path]; !ok {
		return ErrNotFound
	}
	delete(m.blobs, path)
	return nil
}

func (m *Memory) Exists(_ context.Context, path string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.blobs[path]
	return ok, nil
}

// AbsolutePath writes the blob to a temp file and returns its location. The
// temp tree lives until Close is called.
func (m *Memory) AbsolutePath(_ context.Context, path string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[path]
	if !ok {
		return "", ErrNotFound
	}
	if m.spillDir == "" {
		dir, err := os.MkdirTemp("", "mattibud-blobs-*")
		if err != nil {
			return "", err
		}
		m.spillDir = dir
	}
	full := filepath.Join(m.spillDir, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", err
	}
	return full, nil
}

// Paths returns every stored blob path; handy for assertions.
func (m *Memory) Paths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.blobs))
	for p := range m.blobs {
		out = append(out, p)
	}
	return out
}

// Close removes any temp files created by AbsolutePath.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.spillDir == "" {
		return nil
	}
	dir := m.spillDir
	m.spillDir = ""
	return os.RemoveAll(dir)
}
