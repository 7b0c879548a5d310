package models

import (
	"time"

	"gorm.io/gorm"
)

// Account status values.
const (
	StatusActive   = "active"
	StatusDisabled = "disabled"
)

// Media types for watch items.
const (
	MediaMovie  = "movie"
	MediaSeries = "series"
)

// Watch item progress states.
const (
	ItemQueued   = "queued"
	ItemWatching = "watching"
	ItemWatched  = "watched"
)

// Watchlist visibility.
const (
	VisibilityPrivate = "private"
	VisibilityLink    = "link"
)

type User struct {
	ID        string    `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Username     string `gorm:"uniqueIndex" json:"username"`
	Email        string `json:"email,omitempty"`
	PasswordHash string `json:"-"`
	Status       string `gorm:"default:active" json:"status"`

	// SessionVersion is bumped to invalidate all outstanding signed tokens
	// when the stateless session backend is in use.
	SessionVersion int `gorm:"default:0" json:"-"`
}

// Sanitized returns a copy with credential material stripped.
func (u User) Sanitized() User {
	u.PasswordHash = ""
	return u
}

type Session struct {
	Token     string    `gorm:"primaryKey" json:"-"`
	UserID    string    `gorm:"type:uuid;index" json:"user_id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `gorm:"index" json:"expires_at"`
}

type Watchlist struct {
	ID        string         `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	OwnerID    string `gorm:"type:uuid;index" json:"owner_id"`
	Name       string `gorm:"not null" json:"name"`
	Visibility string `gorm:"default:link" json:"visibility"`
	InviteCode string `gorm:"uniqueIndex" json:"invite_code"`

	// MemberIDs excludes the owner, who is always implicitly a member.
	MemberIDs []string `gorm:"-" json:"member_ids"`
}

// IsMember reports whether userID is the owner or a joined member.
func (w *Watchlist) IsMember(userID string) bool {
	if userID == w.OwnerID {
		return true
	}
	for _, id := range w.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}

type WatchlistMember struct {
	WatchlistID string    `gorm:"type:uuid;primaryKey" json:"watchlist_id"`
	UserID      string    `gorm:"type:uuid;primaryKey" json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
}

type WatchItem struct {
	ID        string    `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	WatchlistID string   `gorm:"type:uuid;index;uniqueIndex:idx_items_list_external" json:"watchlist_id"`
	ExternalID  string   `gorm:"uniqueIndex:idx_items_list_external" json:"external_id"`
	Title       string   `gorm:"not null" json:"title"`
	MediaType   string   `json:"media_type"`
	Year        int      `json:"year,omitempty"`
	PosterURL   string   `json:"poster_url,omitempty"`
	Overview    string   `json:"overview,omitempty"`
	TrailerURL  string   `json:"trailer_url,omitempty"`
	Genres      []string `gorm:"serializer:json" json:"genres"`
	Status      string   `gorm:"default:queued" json:"status"`
	OrderIndex  int      `gorm:"index" json:"order_index"`
	AddedBy     string   `gorm:"type:uuid;index" json:"added_by"`
}

type Rating struct {
	ItemID    string    `gorm:"type:uuid;primaryKey" json:"item_id"`
	UserID    string    `gorm:"type:uuid;primaryKey" json:"user_id"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RatingWithUser is a rating row joined with the rater's display name, for
// the collaborative per-item view.
type RatingWithUser struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Score    int    `json:"score"`
}
