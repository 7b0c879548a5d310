// Package ordering maintains the total order over a watchlist's items.
// Order index values are opaque besides their relative order; appends use a
// fixed step so gaps stay available for future mid-sequence insertion.
package ordering

import (
	"context"
	"errors"

	"github.com/yourname/watchbuddy/internal/models"
	"github.com/yourname/watchbuddy/internal/store"
)

// Step is the gap between consecutive order indexes.
const Step = 10

// ErrBadPermutation rejects a reorder whose id set is not exactly the
// watchlist's current item set.
var ErrBadPermutation = errors.New("ids must be exactly the watchlist's current items")

type Engine struct {
	Store store.Store
}

func NewEngine(s store.Store) *Engine { return &Engine{Store: s} }

// Append positions the item after everything currently in the list and
// persists it. A duplicate external id surfaces as store.ErrConflict.
func (e *Engine) Append(ctx context.Context, item *models.WatchItem) error {
	next, err := e.Store.NextOrderIndex(ctx, item.WatchlistID, Step)
	if err != nil {
		return err
	}
	item.OrderIndex = next
	return e.Store.CreateItem(ctx, item)
}

// Items returns the list in canonical order: order index ascending, item id
// ascending as the tie-break, so display order is always deterministic.
func (e *Engine) Items(ctx context.Context, watchlistID string) ([]models.WatchItem, error) {
	return e.Store.ListItems(ctx, watchlistID)
}

// Reorder atomically rewrites every item's order index to position*Step in
// the supplied order. The id set must match the list's current items
// exactly; otherwise nothing is written. Concurrent reorders are not
// merged — last write wins for the whole permutation.
func (e *Engine) Reorder(ctx context.Context, watchlistID string, orderedIDs []string) error {
	items, err := e.Store.ListItems(ctx, watchlistID)
	if err != nil {
		return err
	}
	if len(orderedIDs) != len(items) {
		return ErrBadPermutation
	}
	known := make(map[string]bool, len(items))
	for _, it := range items {
		known[it.ID] = true
	}
	seen := make(map[string]bool, len(orderedIDs))
	for _, id := range orderedIDs {
		if !known[id] || seen[id] {
			return ErrBadPermutation
		}
		seen[id] = true
	}
	return e.Store.ReorderItems(ctx, watchlistID, orderedIDs, Step)
}
