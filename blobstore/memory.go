package blobstore

import (
	"context"
	"sync"
)

// MemoryBackend is an in-process BlobStore used by tests and by local
// dry-run ingestion, mirroring the role the teacher's DryRunBackend/
// LocalBackend play for cmd/wxingest.
type MemoryBackend struct {
	mu       sync.Mutex
	objects  map[string][]byte
	metadata map[string]map[string]string
	alive    bool
}

// NewMemoryBackend constructs a ready-to-use in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		objects:  make(map[string][]byte),
		metadata: make(map[string]map[string]string),
		alive:    true,
	}
}

func (m *MemoryBackend) Put(ctx context.Context, key string, data []byte, contentType string, metadata map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := append([]byte(nil), data...)
	m.objects[key] = cp
	m.metadata[key] = metadata
	return nil
}

func (m *MemoryBackend) HeadBucket(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.alive
}

func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alive = false
	return nil
}

// Get returns the stored bytes for key, for test assertions.
func (m *MemoryBackend) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.objects[key]
	return v, ok
}

// Metadata returns the object metadata stored with key.
func (m *MemoryBackend) Metadata(key string) map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.metadata[key]
}

// Len reports the number of objects stored.
func (m *MemoryBackend) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
