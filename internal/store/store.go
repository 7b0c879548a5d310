// Package store defines the storage contract the core is written against,
// plus the sentinel errors higher layers use to distinguish failure modes.
// Two engines implement it: a postgres/gorm one and an in-memory one.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/yourname/watchbuddy/internal/models"
)

// ErrNotFound is returned when a record does not exist. Authorization
// failures are deliberately reported with the same error so callers cannot
// probe for resources they have no access to.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned on unique-key violations: a taken username, a
// duplicate invite code, or an external id already present in a watchlist.
var ErrConflict = errors.New("conflict")

type Store interface {
	// Users. CreateUser enforces case-insensitive username uniqueness.
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	UpdateUserStatus(ctx context.Context, id, status string) error
	BumpSessionVersion(ctx context.Context, id string) error

	SessionStore

	// Watchlists and membership. Loaded watchlists carry their MemberIDs.
	CreateWatchlist(ctx context.Context, wl *models.Watchlist) error
	GetWatchlist(ctx context.Context, id string) (*models.Watchlist, error)
	GetWatchlistByInviteCode(ctx context.Context, code string) (*models.Watchlist, error)
	ListWatchlistsForUser(ctx context.Context, userID string) ([]models.Watchlist, error)
	SetInviteCode(ctx context.Context, watchlistID, code string) error
	AddMember(ctx context.Context, watchlistID, userID string) error
	// RemoveMemberAndItems drops the membership row and every item the
	// member authored in that watchlist, atomically.
	RemoveMemberAndItems(ctx context.Context, watchlistID, userID string) error

	// Items. ListItems returns rows ordered by (order_index, id) ascending.
	CreateItem(ctx context.Context, it *models.WatchItem) error
	GetItem(ctx context.Context, watchlistID, itemID string) (*models.WatchItem, error)
	ListItems(ctx context.Context, watchlistID string) ([]models.WatchItem, error)
	UpdateItemStatus(ctx context.Context, watchlistID, itemID, status string) error
	DeleteItem(ctx context.Context, watchlistID, itemID string) error
	// NextOrderIndex returns the order index a freshly appended item should
	// take: max(existing) + step, or 0 for an empty list.
	NextOrderIndex(ctx context.Context, watchlistID string, step int) (int, error)
	// ReorderItems rewrites every listed item's order index to
	// position*step, all or nothing.
	ReorderItems(ctx context.Context, watchlistID string, orderedIDs []string, step int) error

	// Ratings.
	UpsertRating(ctx context.Context, r *models.Rating) error
	DeleteRating(ctx context.Context, itemID, userID string) error
	GetRating(ctx context.Context, itemID, userID string) (*models.Rating, error)
	ListItemRatings(ctx context.Context, itemID string) ([]models.RatingWithUser, error)
}

// SessionStore is the subset of the contract the session manager persists
// through. Split out so session rows can live in a different engine (redis)
// than the rest of the data.
type SessionStore interface {
	PutSession(ctx context.Context, s *models.Session) error
	GetSession(ctx context.Context, token string) (*models.Session, error)
	// DeleteSession is idempotent; deleting an unknown token is not an error.
	DeleteSession(ctx context.Context, token string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) error
}
