// Package membership owns watchlist entities, their invite codes, and their
// member sets. Every authorization miss is reported as store.ErrNotFound so
// callers cannot distinguish "no such list" from "not yours".
package membership

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"

	"github.com/yourname/watchbuddy/internal/models"
	"github.com/yourname/watchbuddy/internal/store"
)

// ErrOwnerImmutable is returned when a caller tries to remove the owner
// from their own list.
var ErrOwnerImmutable = errors.New("owner cannot be removed from a watchlist")

const inviteCodeBytes = 8

type Registry struct {
	Store store.Store
}

func NewRegistry(s store.Store) *Registry { return &Registry{Store: s} }

func newInviteCode() (string, error) {
	b := make([]byte, inviteCodeBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// CreateList makes a link-shareable watchlist with a fresh invite code and
// an empty member set.
func (r *Registry) CreateList(ctx context.Context, ownerID, name string) (*models.Watchlist, error) {
	code, err := newInviteCode()
	if err != nil {
		return nil, err
	}
	wl := &models.Watchlist{
		OwnerID:    ownerID,
		Name:       name,
		Visibility: models.VisibilityLink,
		InviteCode: code,
	}
	if err := r.Store.CreateWatchlist(ctx, wl); err != nil {
		return nil, err
	}
	wl.MemberIDs = []string{}
	return wl, nil
}

// Authorize returns the watchlist only if userID is its owner or a member.
// This guards every item-level operation.
func (r *Registry) Authorize(ctx context.Context, watchlistID, userID string) (*models.Watchlist, error) {
	wl, err := r.Store.GetWatchlist(ctx, watchlistID)
	if err != nil {
		return nil, err
	}
	if !wl.IsMember(userID) {
		return nil, store.ErrNotFound
	}
	return wl, nil
}

// ListForUser returns every watchlist the user owns or has joined.
func (r *Registry) ListForUser(ctx context.Context, userID string) ([]models.Watchlist, error) {
	return r.Store.ListWatchlistsForUser(ctx, userID)
}

// Join redeems an invite code. Joining a list the user already belongs to
// returns it unchanged.
func (r *Registry) Join(ctx context.Context, userID, code string) (*models.Watchlist, error) {
	wl, err := r.Store.GetWatchlistByInviteCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if wl.IsMember(userID) {
		return wl, nil
	}
	if err := r.Store.AddMember(ctx, wl.ID, userID); err != nil {
		return nil, err
	}
	return r.Store.GetWatchlist(ctx, wl.ID)
}

// RotateInviteCode replaces the list's code, invalidating the old one.
// Owner only; anyone else sees not-found.
func (r *Registry) RotateInviteCode(ctx context.Context, watchlistID, callerID string) (*models.Watchlist, error) {
	wl, err := r.Store.GetWatchlist(ctx, watchlistID)
	if err != nil {
		return nil, err
	}
	if wl.OwnerID != callerID {
		return nil, store.ErrNotFound
	}
	code, err := newInviteCode()
	if err != nil {
		return nil, err
	}
	if err := r.Store.SetInviteCode(ctx, wl.ID, code); err != nil {
		return nil, err
	}
	wl.InviteCode = code
	return wl, nil
}

// RemoveMember drops a member and cascades away the items they authored.
// The owner may remove anyone; a member may only remove themselves. The
// cascade is an explicit cleanup step here, not a database-level cascade,
// so the behavior holds under any storage engine.
func (r *Registry) RemoveMember(ctx context.Context, watchlistID, callerID, memberID string) error {
	wl, err := r.Store.GetWatchlist(ctx, watchlistID)
	if err != nil {
		return err
	}
	if !wl.IsMember(callerID) {
		return store.ErrNotFound
	}
	if callerID != wl.OwnerID && callerID != memberID {
		return store.ErrNotFound
	}
	if memberID == wl.OwnerID {
		return ErrOwnerImmutable
	}
	return r.Store.RemoveMemberAndItems(ctx, watchlistID, memberID)
}
