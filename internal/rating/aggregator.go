// Package rating stores one score per (item, user) pair and derives the
// aggregates the shared view needs. Aggregation is computed fresh on every
// read; collaborator counts are small enough that a running average would
// buy nothing but staleness bugs.
package rating

import (
	"context"
	"errors"
	"math"

	"github.com/yourname/watchbuddy/internal/models"
	"github.com/yourname/watchbuddy/internal/store"
)

// ErrScoreRange rejects scores outside 1..5 before any write happens.
var ErrScoreRange = errors.New("score must be between 1 and 5")

type Aggregator struct {
	Store store.Store
}

func NewAggregator(s store.Store) *Aggregator { return &Aggregator{Store: s} }

// SetRating upserts the caller's score for an item. A nil score clears the
// caller's rating instead.
func (a *Aggregator) SetRating(ctx context.Context, itemID, userID string, score *int) error {
	if score == nil {
		return a.Store.DeleteRating(ctx, itemID, userID)
	}
	if *score < 1 || *score > 5 {
		return ErrScoreRange
	}
	return a.Store.UpsertRating(ctx, &models.Rating{ItemID: itemID, UserID: userID, Score: *score})
}

// ItemView is an item decorated with its aggregate rating, the viewer's own
// rating, and every rater's score with their display name.
type ItemView struct {
	models.WatchItem
	AverageRating float64                 `json:"average_rating"`
	MyRating      *int                    `json:"my_rating"`
	Ratings       []models.RatingWithUser `json:"ratings"`
}

// View decorates item for viewerID.
func (a *Aggregator) View(ctx context.Context, item *models.WatchItem, viewerID string) (*ItemView, error) {
	rows, err := a.Store.ListItemRatings(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	view := &ItemView{WatchItem: *item, AverageRating: Average(rows), Ratings: rows}
	for _, r := range rows {
		if r.UserID == viewerID {
			score := r.Score
			view.MyRating = &score
			break
		}
	}
	return view, nil
}

// Average is the arithmetic mean of the scores rounded to 2 decimal places,
// or 0 when nobody has rated.
func Average(rows []models.RatingWithUser) float64 {
	if len(rows) == 0 {
		return 0
	}
	sum := 0
	for _, r := range rows {
		sum += r.Score
	}
	mean := float64(sum) / float64(len(rows))
	return math.Round(mean*100) / 100
}
