package remote

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-memory Store. It backs tests and local runs where no
// real object store is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

func (m *MemoryStore) key(bucket, key string) string {
	return bucket + "/" + key
}

func (m *MemoryStore) PutObject(_ context.Context, bucket, key string, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[m.key(bucket, key)] = append([]byte(nil), body...)
	return nil
}

func (m *MemoryStore) ObjectExists(_ context.Context, bucket, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[m.key(bucket, key)]
	return ok, nil
}

func (m *MemoryStore) ListObjects(_ context.Context, bucket, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var keys []string
	for k := range m.objects {
		if strings.HasPrefix(k, m.key(bucket, prefix)) {
			keys = append(keys, strings.TrimPrefix(k, bucket+"/"))
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *MemoryStore) GetObject(_ context.Context, bucket, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.objects[m.key(bucket, key)]
	if !ok {
		return nil, fmt.Errorf("object not found: %s", key)
	}
	return append([]byte(nil), data...), nil
}
