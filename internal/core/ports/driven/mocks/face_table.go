package mocks

import (
	"context"
	"sync"

	"github.com/lunavision/facesink/internal/core/domain"
)

// MockFaceTable is an in-memory mock of FaceTable for testing.
// It enforces face-id uniqueness the way the real table's constraint does.
type MockFaceTable struct {
	mu   sync.RWMutex
	rows map[string]domain.Row // keyed by face id

	QueryCalls  int
	InsertCalls int

	// RejectIDs lists face ids InsertRows should report as row errors
	RejectIDs map[string]string

	ExistingErr error
	InsertErr   error
}

// NewMockFaceTable creates a new MockFaceTable
func NewMockFaceTable() *MockFaceTable {
	return &MockFaceTable{
		rows:      make(map[string]domain.Row),
		RejectIDs: make(map[string]string),
	}
}

// Seed marks face ids as already loaded.
func (m *MockFaceTable) Seed(ids ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		m.rows[id] = domain.Row{Faces: []domain.FaceRecord{{ID: id}}}
	}
}

// RowCount returns how many rows exist for a face id (0 or 1).
func (m *MockFaceTable) RowCount(id string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.rows[id]; ok {
		return 1
	}
	return 0
}

func (m *MockFaceTable) ExistingIDs(ctx context.Context, ids []string) (domain.ExistingIDSet, error) {
	if len(ids) == 0 {
		return domain.ExistingIDSet{}, nil
	}
	if m.ExistingErr != nil {
		return nil, m.ExistingErr
	}
	m.mu.Lock()
	m.QueryCalls++
	m.mu.Unlock()

	m.mu.RLock()
	defer m.mu.RUnlock()
	existing := domain.ExistingIDSet{}
	for _, id := range ids {
		if _, ok := m.rows[id]; ok {
			existing[id] = struct{}{}
		}
	}
	return existing, nil
}

func (m *MockFaceTable) InsertRows(ctx context.Context, rows []domain.Row) ([]domain.RowError, error) {
	if len(rows) == 0 {
		return nil, domain.ErrInvalidInput
	}
	if m.InsertErr != nil {
		return nil, m.InsertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InsertCalls++

	var rowErrs []domain.RowError
	for _, row := range rows {
		id := row.FaceID()
		if reason, ok := m.RejectIDs[id]; ok {
			rowErrs = append(rowErrs, domain.RowError{FaceID: id, Reason: reason})
			continue
		}
		if _, ok := m.rows[id]; ok {
			rowErrs = append(rowErrs, domain.RowError{FaceID: id, Reason: "duplicate face id"})
			continue
		}
		m.rows[id] = row
	}
	return rowErrs, nil
}

func (m *MockFaceTable) Ping(ctx context.Context) error {
	return nil
}

// MockPersonDirectory is an in-memory mock of PersonDirectory.
type MockPersonDirectory struct {
	mu      sync.RWMutex
	persons map[string]domain.Recipient

	QueryCalls int
	LookupErr  error
}

// NewMockPersonDirectory creates a new MockPersonDirectory
func NewMockPersonDirectory() *MockPersonDirectory {
	return &MockPersonDirectory{
		persons: make(map[string]domain.Recipient),
	}
}

// Add registers a known person.
func (m *MockPersonDirectory) Add(r domain.Recipient) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.persons[r.PersonID] = r
}

func (m *MockPersonDirectory) LookupPersons(ctx context.Context, personIDs []string) ([]domain.Recipient, error) {
	if len(personIDs) == 0 {
		return nil, nil
	}
	if m.LookupErr != nil {
		return nil, m.LookupErr
	}
	m.mu.Lock()
	m.QueryCalls++
	m.mu.Unlock()

	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Recipient
	for _, id := range personIDs {
		if r, ok := m.persons[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}
