package mocks

import (
	"context"
	"sync"

	"github.com/lunavision/facesink/internal/core/domain"
)

// MockNotifier records sent notifications for testing.
type MockNotifier struct {
	mu   sync.Mutex
	sent []domain.Recipient

	// FailFor lists email addresses Send should fail for.
	FailFor map[string]error
}

// NewMockNotifier creates a new MockNotifier
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{
		FailFor: make(map[string]error),
	}
}

// Sent returns the recipients successfully notified, in order.
func (m *MockNotifier) Sent() []domain.Recipient {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Recipient, len(m.sent))
	copy(out, m.sent)
	return out
}

func (m *MockNotifier) Send(ctx context.Context, recipient domain.Recipient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.FailFor[recipient.Email]; ok {
		return err
	}
	m.sent = append(m.sent, recipient)
	return nil
}
