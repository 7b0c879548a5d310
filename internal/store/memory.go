package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yourname/watchbuddy/internal/models"
)

// Memory is the in-process engine. It backs tests and single-node
// deployments that don't want postgres. All access goes through one RWMutex;
// the multi-write operations are atomic by construction.
type Memory struct {
	mu         sync.RWMutex
	users      map[string]models.User
	sessions   map[string]models.Session
	watchlists map[string]models.Watchlist
	members    map[string]map[string]time.Time // watchlist id -> user id -> joined at
	items      map[string]models.WatchItem
	ratings    map[string]map[string]models.Rating // item id -> user id -> rating
}

func NewMemory() *Memory {
	return &Memory{
		users:      make(map[string]models.User),
		sessions:   make(map[string]models.Session),
		watchlists: make(map[string]models.Watchlist),
		members:    make(map[string]map[string]time.Time),
		items:      make(map[string]models.WatchItem),
		ratings:    make(map[string]map[string]models.Rating),
	}
}

// Users

func (m *Memory) CreateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if strings.EqualFold(existing.Username, u.Username) {
			return ErrConflict
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now()
	u.CreatedAt, u.UpdatedAt = now, now
	if u.Status == "" {
		u.Status = models.StatusActive
	}
	m.users[u.ID] = *u
	return nil
}

func (m *Memory) GetUser(_ context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m *Memory) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Username, username) {
			u := u
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) UpdateUserStatus(_ context.Context, id, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Status = status
	u.UpdatedAt = time.Now()
	m.users[id] = u
	return nil
}

func (m *Memory) BumpSessionVersion(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.SessionVersion++
	u.UpdatedAt = time.Now()
	m.users[id] = u
	return nil
}

// Sessions

func (m *Memory) PutSession(_ context.Context, s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.Token] = *s
	return nil
}

func (m *Memory) GetSession(_ context.Context, token string) (*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[token]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (m *Memory) DeleteSession(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
	return nil
}

func (m *Memory) DeleteExpiredSessions(_ context.Context, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for tok, s := range m.sessions {
		if !now.Before(s.ExpiresAt) {
			delete(m.sessions, tok)
		}
	}
	return nil
}

// SessionCount reports live session rows; test hook.
func (m *Memory) SessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Watchlists

func (m *Memory) CreateWatchlist(_ context.Context, wl *models.Watchlist) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.watchlists {
		if existing.InviteCode == wl.InviteCode {
			return ErrConflict
		}
	}
	if wl.ID == "" {
		wl.ID = uuid.NewString()
	}
	now := time.Now()
	wl.CreatedAt, wl.UpdatedAt = now, now
	if wl.Visibility == "" {
		wl.Visibility = models.VisibilityLink
	}
	m.watchlists[wl.ID] = *wl
	m.members[wl.ID] = make(map[string]time.Time)
	return nil
}

func (m *Memory) memberIDsLocked(watchlistID string) []string {
	set := m.members[watchlistID]
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return set[ids[i]].Before(set[ids[j]]) })
	return ids
}

func (m *Memory) GetWatchlist(_ context.Context, id string) (*models.Watchlist, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	wl, ok := m.watchlists[id]
	if !ok {
		return nil, ErrNotFound
	}
	wl.MemberIDs = m.memberIDsLocked(id)
	return &wl, nil
}

func (m *Memory) GetWatchlistByInviteCode(_ context.Context, code string) (*models.Watchlist, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for id, wl := range m.watchlists {
		if wl.InviteCode == code {
			wl.MemberIDs = m.memberIDsLocked(id)
			return &wl, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) ListWatchlistsForUser(_ context.Context, userID string) ([]models.Watchlist, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Watchlist
	for id, wl := range m.watchlists {
		_, joined := m.members[id][userID]
		if wl.OwnerID == userID || joined {
			wl.MemberIDs = m.memberIDsLocked(id)
			out = append(out, wl)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (m *Memory) SetInviteCode(_ context.Context, watchlistID, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	wl, ok := m.watchlists[watchlistID]
	if !ok {
		return ErrNotFound
	}
	for id, other := range m.watchlists {
		if id != watchlistID && other.InviteCode == code {
			return ErrConflict
		}
	}
	wl.InviteCode = code
	wl.UpdatedAt = time.Now()
	m.watchlists[watchlistID] = wl
	return nil
}

func (m *Memory) AddMember(_ context.Context, watchlistID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.members[watchlistID]
	if !ok {
		return ErrNotFound
	}
	if _, joined := set[userID]; !joined {
		set[userID] = time.Now()
	}
	return nil
}

func (m *Memory) RemoveMemberAndItems(_ context.Context, watchlistID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.members[watchlistID]
	if !ok {
		return ErrNotFound
	}
	delete(set, userID)
	for id, it := range m.items {
		if it.WatchlistID == watchlistID && it.AddedBy == userID {
			delete(m.items, id)
			delete(m.ratings, id)
		}
	}
	return nil
}

// Items

func (m *Memory) CreateItem(_ context.Context, it *models.WatchItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.items {
		if existing.WatchlistID == it.WatchlistID && existing.ExternalID == it.ExternalID {
			return ErrConflict
		}
	}
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	now := time.Now()
	it.CreatedAt, it.UpdatedAt = now, now
	if it.Status == "" {
		it.Status = models.ItemQueued
	}
	m.items[it.ID] = *it
	return nil
}

func (m *Memory) GetItem(_ context.Context, watchlistID, itemID string) (*models.WatchItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	it, ok := m.items[itemID]
	if !ok || it.WatchlistID != watchlistID {
		return nil, ErrNotFound
	}
	return &it, nil
}

func (m *Memory) ListItems(_ context.Context, watchlistID string) ([]models.WatchItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.WatchItem
	for _, it := range m.items {
		if it.WatchlistID == watchlistID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OrderIndex != out[j].OrderIndex {
			return out[i].OrderIndex < out[j].OrderIndex
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) UpdateItemStatus(_ context.Context, watchlistID, itemID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[itemID]
	if !ok || it.WatchlistID != watchlistID {
		return ErrNotFound
	}
	it.Status = status
	it.UpdatedAt = time.Now()
	m.items[itemID] = it
	return nil
}

func (m *Memory) DeleteItem(_ context.Context, watchlistID, itemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[itemID]
	if !ok || it.WatchlistID != watchlistID {
		return ErrNotFound
	}
	delete(m.items, itemID)
	delete(m.ratings, itemID)
	return nil
}

func (m *Memory) NextOrderIndex(_ context.Context, watchlistID string, step int) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	max := -step
	for _, it := range m.items {
		if it.WatchlistID == watchlistID && it.OrderIndex > max {
			max = it.OrderIndex
		}
	}
	return max + step, nil
}

func (m *Memory) ReorderItems(_ context.Context, watchlistID string, orderedIDs []string, step int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	// Validate before touching anything so a bad id leaves no partial effect.
	for _, id := range orderedIDs {
		it, ok := m.items[id]
		if !ok || it.WatchlistID != watchlistID {
			return ErrNotFound
		}
	}
	now := time.Now()
	for i, id := range orderedIDs {
		it := m.items[id]
		it.OrderIndex = i * step
		it.UpdatedAt = now
		m.items[id] = it
	}
	return nil
}

// Ratings

func (m *Memory) UpsertRating(_ context.Context, r *models.Rating) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.ratings[r.ItemID]
	if !ok {
		set = make(map[string]models.Rating)
		m.ratings[r.ItemID] = set
	}
	now := time.Now()
	if existing, ok := set[r.UserID]; ok {
		r.CreatedAt = existing.CreatedAt
	} else {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	set[r.UserID] = *r
	return nil
}

func (m *Memory) DeleteRating(_ context.Context, itemID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if set, ok := m.ratings[itemID]; ok {
		delete(set, userID)
	}
	return nil
}

func (m *Memory) GetRating(_ context.Context, itemID, userID string) (*models.Rating, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.ratings[itemID][userID]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (m *Memory) ListItemRatings(_ context.Context, itemID string) ([]models.RatingWithUser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []models.RatingWithUser{}
	for userID, r := range m.ratings[itemID] {
		name := ""
		if u, ok := m.users[userID]; ok {
			name = u.Username
		}
		out = append(out, models.RatingWithUser{UserID: userID, Username: name, Score: r.Score})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}
