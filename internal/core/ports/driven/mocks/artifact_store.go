package mocks

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/lunavision/facesink/internal/core/domain"
)

// MockArtifactStore is an in-memory mock of ArtifactStore for testing.
type MockArtifactStore struct {
	mu      sync.RWMutex
	objects map[string][]byte

	// VisibleAfter delays visibility of a key: Exists returns false for the
	// first N calls per key, simulating object-store eventual consistency.
	VisibleAfter map[string]int
	existsCalls  map[string]int

	// Error injection
	ExistsErr error
	ReadErr   error
	WriteErr  error
	MoveErr   error
	DeleteErr error
	ListErr   error
}

// NewMockArtifactStore creates a new MockArtifactStore
func NewMockArtifactStore() *MockArtifactStore {
	return &MockArtifactStore{
		objects:      make(map[string][]byte),
		VisibleAfter: make(map[string]int),
		existsCalls:  make(map[string]int),
	}
}

// Put seeds an object without going through Write.
func (m *MockArtifactStore) Put(key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
}

// Has reports whether the key currently holds an object.
func (m *MockArtifactStore) Has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[key]
	return ok
}

// ExistsCalls returns how often Exists was called for a key.
func (m *MockArtifactStore) ExistsCalls(key string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.existsCalls[key]
}

func (m *MockArtifactStore) Exists(ctx context.Context, key string) (bool, error) {
	if m.ExistsErr != nil {
		return false, m.ExistsErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.existsCalls[key]++
	if after, ok := m.VisibleAfter[key]; ok && m.existsCalls[key] <= after {
		return false, nil
	}
	_, ok := m.objects[key]
	return ok, nil
}

func (m *MockArtifactStore) Read(ctx context.Context, key string) ([]byte, error) {
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return data, nil
}

func (m *MockArtifactStore) Write(ctx context.Context, key string, data []byte, contentType string) error {
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *MockArtifactStore) Move(ctx context.Context, key, destKey string) (string, error) {
	if m.MoveErr != nil {
		return "", m.MoveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return "", domain.ErrNotFound
	}
	m.objects[destKey] = data
	delete(m.objects, key)
	return destKey, nil
}

func (m *MockArtifactStore) Delete(ctx context.Context, key string) error {
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *MockArtifactStore) List(ctx context.Context, prefix string) ([]string, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var keys []string
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
