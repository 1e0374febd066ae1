package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/lunavision/facesink/internal/core/domain"
	"github.com/lunavision/facesink/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.AuthAdapter = (*Adapter)(nil)

// jwtClaims adapts domain.TokenClaims to the jwt library
type jwtClaims struct {
	jwt.RegisteredClaims
}

// Adapter handles authentication operations using bcrypt and JWT.
// API keys are configured as bcrypt hashes; plaintext keys never touch
// the configuration.
type Adapter struct {
	jwtSecret    []byte
	apiKeyHashes []string
	bcryptCost   int
}

// NewAdapter builds an adapter signing with jwtSecret and accepting
// any API key whose bcrypt hash appears in apiKeyHashes.
func NewAdapter(jwtSecret string, apiKeyHashes []string) *Adapter {
	return &Adapter{
		jwtSecret:    []byte(jwtSecret),
		apiKeyHashes: apiKeyHashes,
		bcryptCost:   bcrypt.DefaultCost,
	}
}

// HashAPIKey bcrypt-hashes a plaintext key. Operators run this once to
// produce the configured hash.
func (a *Adapter) HashAPIKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), a.bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyAPIKey checks a plaintext API key against the configured hashes.
func (a *Adapter) VerifyAPIKey(key string) bool {
	for _, hash := range a.apiKeyHashes {
		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) == nil {
			return true
		}
	}
	return false
}

// GenerateToken signs the claims with HS256
func (a *Adapter) GenerateToken(claims *domain.TokenClaims) (string, error) {
	jc := jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.Subject,
			IssuedAt:  jwt.NewNumericDate(time.Unix(claims.IssuedAt, 0)),
			ExpiresAt: jwt.NewNumericDate(time.Unix(claims.ExpiresAt, 0)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jc)
	return token.SignedString(a.jwtSecret)
}

// ParseToken verifies signature and expiry, returning the claims
func (a *Adapter) ParseToken(tokenString string) (*domain.TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwtClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.jwtSecret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrTokenInvalid, err)
	}

	if claims, ok := token.Claims.(*jwtClaims); ok && token.Valid {
		return &domain.TokenClaims{
			Subject:   claims.Subject,
			IssuedAt:  claims.IssuedAt.Unix(),
			ExpiresAt: claims.ExpiresAt.Unix(),
		}, nil
	}

	return nil, domain.ErrTokenInvalid
}
