package staging

import (
	"context"
	"sync"

	"github.com/avolkhov/meteoflow/internal/pkg/errno"
)

// Memory is an in-process Store for tests and EnableMemoryStore runs.
type Memory struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory artifact store.
func NewMemory() *Memory {
	return &Memory{objects: make(map[string][]byte)}
}

func (m *Memory) Put(ctx context.Context, object string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	m.objects[object] = cp
	return nil
}

func (m *Memory) Get(ctx context.Context, object string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[object]
	if !ok {
		return nil, errno.ErrArtifactNotFound.WithMessage("artifact %s not found", object)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

func (m *Memory) Exists(ctx context.Context, object string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[object]
	return ok, nil
}

// Len reports the number of stored objects.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
