// Package picker draws a uniform-random item from a watchlist after
// applying filter predicates. Randomness is not cryptographic; uniformity
// over the surviving candidates is the only requirement.
package picker

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/yourname/watchbuddy/internal/models"
	"github.com/yourname/watchbuddy/internal/rating"
	"github.com/yourname/watchbuddy/internal/store"
)

// ErrNoMatch signals an empty candidate set after filtering. It is an
// expected outcome, not a failure.
var ErrNoMatch = errors.New("no items match filters")

// Filters are AND-ed together; zero values mean "don't filter on this".
type Filters struct {
	MediaType string  // movie | series
	Genre     string  // case-insensitive membership in the item's genre set
	MinRating float64 // minimum aggregate rating
	MinOwn    int     // minimum rating by the caller themselves
	Status    string  // queued | watching | watched
}

// Picker is an explicit component rather than package-level state so tests
// can inject a seeded source and a fresh instance per run.
type Picker struct {
	Store store.Store

	mu  sync.Mutex
	rng *rand.Rand
}

func New(s store.Store) *Picker {
	return &Picker{Store: s, rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// NewSeeded builds a picker with a deterministic source.
func NewSeeded(s store.Store, seed int64) *Picker {
	return &Picker{Store: s, rng: rand.New(rand.NewSource(seed))}
}

// PickRandom returns one eligible item chosen uniformly at random, or
// ErrNoMatch when the filters eliminate everything.
func (p *Picker) PickRandom(ctx context.Context, watchlistID, callerID string, f Filters) (*models.WatchItem, error) {
	items, err := p.Store.ListItems(ctx, watchlistID)
	if err != nil {
		return nil, err
	}
	var candidates []models.WatchItem
	for _, it := range items {
		ok, err := p.eligible(ctx, &it, callerID, f)
		if err != nil {
			return nil, err
		}
		if ok {
			candidates = append(candidates, it)
		}
	}
	if len(candidates) == 0 {
		return nil, ErrNoMatch
	}
	p.mu.Lock()
	pick := candidates[p.rng.Intn(len(candidates))]
	p.mu.Unlock()
	return &pick, nil
}

func (p *Picker) eligible(ctx context.Context, it *models.WatchItem, callerID string, f Filters) (bool, error) {
	if f.MediaType != "" && it.MediaType != f.MediaType {
		return false, nil
	}
	if f.Status != "" && it.Status != f.Status {
		return false, nil
	}
	if f.Genre != "" && !hasGenre(it.Genres, f.Genre) {
		return false, nil
	}
	if f.MinRating > 0 {
		rows, err := p.Store.ListItemRatings(ctx, it.ID)
		if err != nil {
			return false, err
		}
		if rating.Average(rows) < f.MinRating {
			return false, nil
		}
	}
	if f.MinOwn > 0 {
		own, err := p.Store.GetRating(ctx, it.ID, callerID)
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		if own.Score < f.MinOwn {
			return false, nil
		}
	}
	return true, nil
}

func hasGenre(genres []string, want string) bool {
	for _, g := range genres {
		if strings.EqualFold(g, want) {
			return true
		}
	}
	return false
}
