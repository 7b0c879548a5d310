// Package session owns caller identity: issuing, resolving, and revoking
// session tokens. Two interchangeable managers exist — a store-backed one
// with opaque random tokens and a stateless signed-token one — behind the
// same interface, so deployments pick one without callers noticing.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/yourname/watchbuddy/internal/models"
)

// ErrUnauthenticated covers missing, expired, and revoked sessions as well
// as sessions whose owning account is disabled.
var ErrUnauthenticated = errors.New("unauthenticated")

// Manager is the single point of truth for "who is calling".
type Manager interface {
	// Issue creates a session for the user and returns its token and expiry.
	Issue(ctx context.Context, userID string) (token string, expiresAt time.Time, err error)
	// Resolve maps a token to its sanitized owning user, or
	// ErrUnauthenticated.
	Resolve(ctx context.Context, token string) (*models.User, error)
	// Revoke invalidates a token. Revoking an unknown token is not an error.
	Revoke(ctx context.Context, token string) error
}

// UserSource is the user lookup surface managers resolve through.
type UserSource interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
}

// NewToken returns 32 bytes of randomness, hex encoded. Collision
// probability at this entropy is treated as zero.
func NewToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
