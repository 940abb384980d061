package docstore

import (
	"context"
	"maps"
	"sync"
)

// Memory keeps documents in process memory.
type Memory struct {
	mu   sync.RWMutex
	docs map[string]string
}

// NewMemory returns a Memory seeded with a copy of docs (which may be nil).
func NewMemory(docs map[string]string) *Memory {
	m := &Memory{docs: make(map[string]string, len(docs))}
	maps.Copy(m.docs, docs)
	return m
}

func (m *Memory) Read(ctx context.Context, id string) (string, error) {
	if err := ValidateID(id); err != nil {
		return "", err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	content, ok := m.docs[id]
	if !ok {
		return "", notFound(id)
	}
	return content, nil
}

func (m *Memory) Write(ctx context.Context, id string, content string) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.docs[id] = content
	return nil
}
