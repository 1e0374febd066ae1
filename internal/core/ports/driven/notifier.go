package driven

import (
	"context"

	"github.com/lunavision/facesink/internal/core/domain"
)

// Notifier delivers one formatted message per recipient.
type Notifier interface {
	// Send delivers a match notification to a single recipient.
	Send(ctx context.Context, recipient domain.Recipient) error
}

// AuthAdapter issues and validates API tokens for the HTTP boundary.
type AuthAdapter interface {
	// GenerateToken creates a signed token from claims.
	GenerateToken(claims *domain.TokenClaims) (string, error)

	// ParseToken validates a token and extracts claims.
	// Returns domain.ErrTokenExpired or domain.ErrTokenInvalid on failure.
	ParseToken(token string) (*domain.TokenClaims, error)

	// VerifyAPIKey checks a plaintext API key against the configured hashes.
	VerifyAPIKey(key string) bool
}
