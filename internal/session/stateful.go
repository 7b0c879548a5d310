package session

import (
	"context"
	"errors"
	"time"

	"github.com/yourname/watchbuddy/internal/models"
	"github.com/yourname/watchbuddy/internal/store"
)

// StoreManager keeps sessions in storage and hands out opaque tokens. The
// store is the sole authority: deleting a row revokes the token immediately,
// with no signature to outlive it.
type StoreManager struct {
	Sessions store.SessionStore
	Users    UserSource
	TTL      time.Duration

	now func() time.Time
}

func NewStoreManager(sessions store.SessionStore, users UserSource, ttl time.Duration) *StoreManager {
	return &StoreManager{Sessions: sessions, Users: users, TTL: ttl, now: time.Now}
}

func (m *StoreManager) Issue(ctx context.Context, userID string) (string, time.Time, error) {
	now := m.now()
	// Amortized cleanup: sweep rows that have already expired before adding
	// a new one. Nothing created after the sweep began can match.
	if err := m.Sessions.DeleteExpiredSessions(ctx, now); err != nil {
		return "", time.Time{}, err
	}
	token, err := NewToken()
	if err != nil {
		return "", time.Time{}, err
	}
	s := &models.Session{
		Token:     token,
		UserID:    userID,
		IssuedAt:  now,
		ExpiresAt: now.Add(m.TTL),
	}
	if err := m.Sessions.PutSession(ctx, s); err != nil {
		return "", time.Time{}, err
	}
	return token, s.ExpiresAt, nil
}

func (m *StoreManager) Resolve(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}
	s, err := m.Sessions.GetSession(ctx, token)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, err
	}
	if !m.now().Before(s.ExpiresAt) {
		// Lazy expiry: the read removes the dead row.
		_ = m.Sessions.DeleteSession(ctx, token)
		return nil, ErrUnauthenticated
	}
	u, err := m.Users.GetUser(ctx, s.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, err
	}
	if u.Status != models.StatusActive {
		// The session row stays; it expires naturally or gets revoked.
		return nil, ErrUnauthenticated
	}
	su := u.Sanitized()
	return &su, nil
}

func (m *StoreManager) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return m.Sessions.DeleteSession(ctx, token)
}
