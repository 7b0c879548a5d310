package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourname/watchbuddy/internal/models"
	"github.com/yourname/watchbuddy/internal/store"
)

func newStoreManager(t *testing.T) (*StoreManager, *store.Memory, *models.User) {
	t.Helper()
	mem := store.NewMemory()
	u := &models.User{Username: "alice", PasswordHash: "x"}
	require.NoError(t, mem.CreateUser(context.Background(), u))
	return NewStoreManager(mem, mem, 2*time.Hour), mem, u
}

func TestStoreManagerIssueAndResolve(t *testing.T) {
	m, _, u := newStoreManager(t)

	token, expiresAt, err := m.Issue(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Len(t, token, 64) // 32 bytes hex
	assert.WithinDuration(t, time.Now().Add(2*time.Hour), expiresAt, time.Minute)

	got, err := m.Resolve(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Empty(t, got.PasswordHash, "resolved user must be sanitized")
}

func TestStoreManagerResolveUnknownToken(t *testing.T) {
	m, _, _ := newStoreManager(t)

	_, err := m.Resolve(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = m.Resolve(context.Background(), "")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestStoreManagerRevoke(t *testing.T) {
	m, _, u := newStoreManager(t)
	token, _, err := m.Issue(context.Background(), u.ID)
	require.NoError(t, err)

	require.NoError(t, m.Revoke(context.Background(), token))
	_, err = m.Resolve(context.Background(), token)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	// Revoking again, or revoking garbage, is not an error.
	assert.NoError(t, m.Revoke(context.Background(), token))
	assert.NoError(t, m.Revoke(context.Background(), "garbage"))
}

func TestStoreManagerLazyExpiry(t *testing.T) {
	m, mem, u := newStoreManager(t)
	token, _, err := m.Issue(context.Background(), u.ID)
	require.NoError(t, err)

	// Jump past expiry.
	m.now = func() time.Time { return time.Now().Add(3 * time.Hour) }

	_, err = m.Resolve(context.Background(), token)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	// The read deleted the row; storage no longer knows the token.
	_, err = mem.GetSession(context.Background(), token)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStoreManagerIssueSweepsExpired(t *testing.T) {
	m, mem, u := newStoreManager(t)
	require.NoError(t, mem.PutSession(context.Background(), &models.Session{
		Token: "stale", UserID: u.ID, ExpiresAt: time.Now().Add(-time.Minute),
	}))

	_, _, err := m.Issue(context.Background(), u.ID)
	require.NoError(t, err)

	_, err = mem.GetSession(context.Background(), "stale")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, 1, mem.SessionCount())
}

func TestStoreManagerDisabledUser(t *testing.T) {
	m, mem, u := newStoreManager(t)
	token, _, err := m.Issue(context.Background(), u.ID)
	require.NoError(t, err)

	require.NoError(t, mem.UpdateUserStatus(context.Background(), u.ID, models.StatusDisabled))
	_, err = m.Resolve(context.Background(), token)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	// The session row is kept so it can expire naturally or be revoked.
	_, err = mem.GetSession(context.Background(), token)
	assert.NoError(t, err)
}

func TestConcurrentIssueGetsDistinctTokens(t *testing.T) {
	m, _, u := newStoreManager(t)
	a, _, err := m.Issue(context.Background(), u.ID)
	require.NoError(t, err)
	b, _, err := m.Issue(context.Background(), u.ID)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	// Both stay valid independently.
	_, err = m.Resolve(context.Background(), a)
	assert.NoError(t, err)
	_, err = m.Resolve(context.Background(), b)
	assert.NoError(t, err)
}
