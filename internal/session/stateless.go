package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yourname/watchbuddy/internal/models"
	"github.com/yourname/watchbuddy/internal/store"
)

// VersionSource extends user lookup with the session-version counter the
// stateless manager invalidates against.
type VersionSource interface {
	UserSource
	BumpSessionVersion(ctx context.Context, id string) error
}

// TokenManager issues self-contained HS256 tokens. There is no session
// table; instead each token embeds the user's session version, and bumping
// that counter invalidates every token issued before the bump. Revocation is
// therefore global per user, not per token.
type TokenManager struct {
	Secret []byte
	Users  VersionSource
	TTL    time.Duration

	now func() time.Time
}

func NewTokenManager(secret []byte, users VersionSource, ttl time.Duration) *TokenManager {
	return &TokenManager{Secret: secret, Users: users, TTL: ttl, now: time.Now}
}

func (m *TokenManager) Issue(ctx context.Context, userID string) (string, time.Time, error) {
	u, err := m.Users.GetUser(ctx, userID)
	if err != nil {
		return "", time.Time{}, err
	}
	now := m.now()
	exp := now.Add(m.TTL)
	claims := jwt.MapClaims{
		"sub": u.ID,
		"sv":  u.SessionVersion,
		"iat": now.Unix(),
		"exp": exp.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.Secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

func (m *TokenManager) keyFunc(t *jwt.Token) (interface{}, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected method: %v", t.Header["alg"])
	}
	return m.Secret, nil
}

func (m *TokenManager) parse(token string) (userID string, version int, err error) {
	parsed, err := jwt.Parse(token, m.keyFunc,
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return "", 0, ErrUnauthenticated
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", 0, ErrUnauthenticated
	}
	sub, _ := claims["sub"].(string)
	sv, okSV := claims["sv"].(float64)
	if sub == "" || !okSV {
		return "", 0, ErrUnauthenticated
	}
	return sub, int(sv), nil
}

func (m *TokenManager) Resolve(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}
	userID, version, err := m.parse(token)
	if err != nil {
		return nil, err
	}
	u, err := m.Users.GetUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, err
	}
	if u.SessionVersion != version || u.Status != models.StatusActive {
		return nil, ErrUnauthenticated
	}
	su := u.Sanitized()
	return &su, nil
}

// Revoke invalidates every outstanding token for the token's user by
// bumping their session version (forced global logout). A token that no
// longer verifies has nothing left to revoke.
func (m *TokenManager) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	userID, _, err := m.parse(token)
	if err != nil {
		return nil
	}
	err = m.Users.BumpSessionVersion(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}
