package mocks

import (
	"context"
	"sync"

	"github.com/lunavision/facesink/internal/core/domain"
)

// MockRunStore is an in-memory mock of RunStore for testing.
type MockRunStore struct {
	mu   sync.RWMutex
	runs map[string]*domain.Run
	// order preserves save order per artifact, newest last
	byArtifact map[string][]*domain.Run

	SaveErr error
}

// NewMockRunStore creates a new MockRunStore
func NewMockRunStore() *MockRunStore {
	return &MockRunStore{
		runs:       make(map[string]*domain.Run),
		byArtifact: make(map[string][]*domain.Run),
	}
}

func (m *MockRunStore) Save(ctx context.Context, run *domain.Run) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.runs[run.ID]; !ok {
		m.byArtifact[run.ArtifactName] = append(m.byArtifact[run.ArtifactName], run)
	}
	m.runs[run.ID] = run
	return nil
}

func (m *MockRunStore) Get(ctx context.Context, id string) (*domain.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	run, ok := m.runs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return run, nil
}

func (m *MockRunStore) GetLatestByArtifact(ctx context.Context, artifactName string) (*domain.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	runs := m.byArtifact[artifactName]
	if len(runs) == 0 {
		return nil, domain.ErrNotFound
	}
	return runs[len(runs)-1], nil
}

func (m *MockRunStore) ListByArtifact(ctx context.Context, artifactName string, limit int) ([]*domain.Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	runs := m.byArtifact[artifactName]
	out := make([]*domain.Run, 0, len(runs))
	for i := len(runs) - 1; i >= 0; i-- {
		out = append(out, runs[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
