package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/yourname/watchbuddy/internal/auth"
	"github.com/yourname/watchbuddy/internal/cache"
	"github.com/yourname/watchbuddy/internal/membership"
	"github.com/yourname/watchbuddy/internal/models"
	"github.com/yourname/watchbuddy/internal/ordering"
	"github.com/yourname/watchbuddy/internal/picker"
	"github.com/yourname/watchbuddy/internal/rating"
	"github.com/yourname/watchbuddy/internal/store"
	"github.com/yourname/watchbuddy/internal/tmdb"
	"github.com/yourname/watchbuddy/internal/validate"
)

// CatalogClient is the narrow contract to the external metadata service.
type CatalogClient interface {
	Search(ctx context.Context, query, mediaType string) ([]tmdb.SearchResult, error)
	Details(ctx context.Context, externalID, mediaType string) (*tmdb.Details, error)
	Recommendations(ctx context.Context, externalID, mediaType string, limit int) ([]tmdb.SearchResult, error)
}

// Recommendation tuning: seed with the list's best-rated titles, pull a
// relevance page per seed, keep at most eight overall.
const (
	recommendationSeeds    = 4
	recommendationsPerSeed = 12
	maxRecommendations     = 8
)

type WatchlistHandler struct {
	Store       store.Store
	Registry    *membership.Registry
	Ordering    *ordering.Engine
	Ratings     *rating.Aggregator
	Picker      *picker.Picker
	Catalog     CatalogClient
	SearchCache *cache.TTLCache[string, []byte]
	Log         *zap.Logger
}

func NewWatchlistHandler(s store.Store, catalog CatalogClient, log *zap.Logger) *WatchlistHandler {
	return &WatchlistHandler{
		Store:       s,
		Registry:    membership.NewRegistry(s),
		Ordering:    ordering.NewEngine(s),
		Ratings:     rating.NewAggregator(s),
		Picker:      picker.New(s),
		Catalog:     catalog,
		SearchCache: cache.NewTTL[string, []byte](60 * time.Second),
		Log:         log,
	}
}

// Routes is mounted under /watchlists.
func (h *WatchlistHandler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Post("/join", h.join)
	r.Get("/{id}", h.get)
	r.Post("/{id}/invite", h.rotateInvite)
	r.Delete("/{id}/members/{userId}", h.removeMember)
	// items
	r.Post("/{id}/items", h.addItem)
	r.Get("/{id}/items", h.listItems)
	r.Put("/{id}/items/reorder", h.reorder)
	r.Get("/{id}/items/{itemId}", h.getItem)
	r.Patch("/{id}/items/{itemId}", h.updateItem)
	r.Delete("/{id}/items/{itemId}", h.removeItem)
	r.Put("/{id}/items/{itemId}/rating", h.rate)
	r.Get("/{id}/random", h.pickRandom)
	r.Get("/{id}/recommendations", h.recommendations)
}

func (h *WatchlistHandler) create(w http.ResponseWriter, r *http.Request) {
	type bodyT struct {
		Name string `json:"name" validate:"required,min=1,max=200"`
	}
	var b bodyT
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if errs := validate.Map(b); errs != nil {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}
	wl, err := h.Registry.CreateList(r.Context(), auth.UserID(r.Context()), b.Name)
	if err != nil {
		writeDomainError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, wl)
}

func (h *WatchlistHandler) list(w http.ResponseWriter, r *http.Request) {
	lists, err := h.Registry.ListForUser(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeDomainError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, lists)
}

func (h *WatchlistHandler) get(w http.ResponseWriter, r *http.Request) {
	wl, err := h.Registry.Authorize(r.Context(), chi.URLParam(r, "id"), auth.UserID(r.Context()))
	if err != nil {
		writeDomainError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, wl)
}

func (h *WatchlistHandler) join(w http.ResponseWriter, r *http.Request) {
	type bodyT struct {
		Code string `json:"code" validate:"required,min=8,max=64"`
	}
	var b bodyT
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if errs := validate.Map(b); errs != nil {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}
	wl, err := h.Registry.Join(r.Context(), auth.UserID(r.Context()), b.Code)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "invalid or expired invite code")
		return
	}
	if err != nil {
		writeDomainError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, wl)
}

func (h *WatchlistHandler) rotateInvite(w http.ResponseWriter, r *http.Request) {
	wl, err := h.Registry.RotateInviteCode(r.Context(), chi.URLParam(r, "id"), auth.UserID(r.Context()))
	if err != nil {
		writeDomainError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, wl)
}

func (h *WatchlistHandler) removeMember(w http.ResponseWriter, r *http.Request) {
	err := h.Registry.RemoveMember(r.Context(),
		chi.URLParam(r, "id"), auth.UserID(r.Context()), chi.URLParam(r, "userId"))
	if err != nil {
		writeDomainError(w, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *WatchlistHandler) addItem(w http.ResponseWriter, r *http.Request) {
	uid := auth.UserID(r.Context())
	wlID := chi.URLParam(r, "id")
	type bodyT struct {
		ExternalID string `json:"external_id" validate:"required"`
		MediaType  string `json:"media_type" validate:"required,oneof=movie series"`
	}
	var b bodyT
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if errs := validate.Map(b); errs != nil {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}
	if _, err := h.Registry.Authorize(r.Context(), wlID, uid); err != nil {
		writeDomainError(w, h.Log, err)
		return
	}
	details, err := h.Catalog.Details(r.Context(), b.ExternalID, b.MediaType)
	if err != nil {
		// Catalog trouble is retryable and never touches list state.
		writeError(w, http.StatusBadGateway, "catalog lookup failed, try again")
		return
	}
	item := &models.WatchItem{
		WatchlistID: wlID,
		ExternalID:  b.ExternalID,
		Title:       details.Title,
		MediaType:   b.MediaType,
		Year:        details.Year,
		PosterURL:   details.PosterURL,
		Overview:    details.Overview,
		TrailerURL:  details.TrailerURL,
		Genres:      details.Genres,
		Status:      models.ItemQueued,
		AddedBy:     uid,
	}
	if err := h.Ordering.Append(r.Context(), item); err != nil {
		if errors.Is(err, store.ErrConflict) {
			writeError(w, http.StatusConflict, "already on your list")
			return
		}
		writeDomainError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (h *WatchlistHandler) listItems(w http.ResponseWriter, r *http.Request) {
	uid := auth.UserID(r.Context())
	wlID := chi.URLParam(r, "id")
	if _, err := h.Registry.Authorize(r.Context(), wlID, uid); err != nil {
		writeDomainError(w, h.Log, err)
		return
	}
	items, err := h.Ordering.Items(r.Context(), wlID)
	if err != nil {
		writeDomainError(w, h.Log, err)
		return
	}
	views := make([]rating.ItemView, 0, len(items))
	for i := range items {
		v, err := h.Ratings.View(r.Context(), &items[i], uid)
		if err != nil {
			writeDomainError(w, h.Log, err)
			return
		}
		views = append(views, *v)
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *WatchlistHandler) getItem(w http.ResponseWriter, r *http.Request) {
	uid := auth.UserID(r.Context())
	wlID := chi.URLParam(r, "id")
	if _, err := h.Registry.Authorize(r.Context(), wlID, uid); err != nil {
		writeDomainError(w, h.Log, err)
		return
	}
	item, err := h.Store.GetItem(r.Context(), wlID, chi.URLParam(r, "itemId"))
	if err != nil {
		writeDomainError(w, h.Log, err)
		return
	}
	view, err := h.Ratings.View(r.Context(), item, uid)
	if err != nil {
		writeDomainError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *WatchlistHandler) updateItem(w http.ResponseWriter, r *http.Request) {
	uid := auth.UserID(r.Context())
	wlID := chi.URLParam(r, "id")
	type bodyT struct {
		Status string `json:"status" validate:"required,oneof=queued watching watched"`
	}
	var b bodyT
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if errs := validate.Map(b); errs != nil {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}
	if _, err := h.Registry.Authorize(r.Context(), wlID, uid); err != nil {
		writeDomainError(w, h.Log, err)
		return
	}
	itemID := chi.URLParam(r, "itemId")
	if err := h.Store.UpdateItemStatus(r.Context(), wlID, itemID, b.Status); err != nil {
		writeDomainError(w, h.Log, err)
		return
	}
	item, err := h.Store.GetItem(r.Context(), wlID, itemID)
	if err != nil {
		writeDomainError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *WatchlistHandler) removeItem(w http.ResponseWriter, r *http.Request) {
	uid := auth.UserID(r.Context())
	wlID := chi.URLParam(r, "id")
	if _, err := h.Registry.Authorize(r.Context(), wlID, uid); err != nil {
		writeDomainError(w, h.Log, err)
		return
	}
	if err := h.Store.DeleteItem(r.Context(), wlID, chi.URLParam(r, "itemId")); err != nil {
		writeDomainError(w, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *WatchlistHandler) reorder(w http.ResponseWriter, r *http.Request) {
	uid := auth.UserID(r.Context())
	wlID := chi.URLParam(r, "id")
	type bodyT struct {
		ItemIDs []string `json:"item_ids" validate:"required,min=1"`
	}
	var b bodyT
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if errs := validate.Map(b); errs != nil {
		writeJSON(w, http.StatusBadRequest, errs)
		return
	}
	if _, err := h.Registry.Authorize(r.Context(), wlID, uid); err != nil {
		writeDomainError(w, h.Log, err)
		return
	}
	if err := h.Ordering.Reorder(r.Context(), wlID, b.ItemIDs); err != nil {
		writeDomainError(w, h.Log, err)
		return
	}
	items, err := h.Ordering.Items(r.Context(), wlID)
	if err != nil {
		writeDomainError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *WatchlistHandler) rate(w http.ResponseWriter, r *http.Request) {
	uid := auth.UserID(r.Context())
	wlID := chi.URLParam(r, "id")
	type bodyT struct {
		Score *int `json:"score"`
	}
	var b bodyT
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if _, err := h.Registry.Authorize(r.Context(), wlID, uid); err != nil {
		writeDomainError(w, h.Log, err)
		return
	}
	item, err := h.Store.GetItem(r.Context(), wlID, chi.URLParam(r, "itemId"))
	if err != nil {
		writeDomainError(w, h.Log, err)
		return
	}
	if err := h.Ratings.SetRating(r.Context(), item.ID, uid, b.Score); err != nil {
		writeDomainError(w, h.Log, err)
		return
	}
	view, err := h.Ratings.View(r.Context(), item, uid)
	if err != nil {
		writeDomainError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *WatchlistHandler) pickRandom(w http.ResponseWriter, r *http.Request) {
	uid := auth.UserID(r.Context())
	wlID := chi.URLParam(r, "id")
	if _, err := h.Registry.Authorize(r.Context(), wlID, uid); err != nil {
		writeDomainError(w, h.Log, err)
		return
	}
	q := r.URL.Query()
	f := picker.Filters{
		MediaType: q.Get("type"),
		Genre:     q.Get("genre"),
		Status:    q.Get("status"),
	}
	if v := q.Get("min_rating"); v != "" {
		n, err := strconv.ParseFloat(v, 64)
		if err != nil || n < 1 || n > 5 {
			writeError(w, http.StatusBadRequest, "min_rating must be a number between 1 and 5")
			return
		}
		f.MinRating = n
	}
	if v := q.Get("min_own"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 5 {
			writeError(w, http.StatusBadRequest, "min_own must be between 1 and 5")
			return
		}
		f.MinOwn = n
	}
	item, err := h.Picker.PickRandom(r.Context(), wlID, uid, f)
	if err != nil {
		writeDomainError(w, h.Log, err)
		return
	}
	view, err := h.Ratings.View(r.Context(), item, uid)
	if err != nil {
		writeDomainError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"item": view})
}

// seedItems picks the titles recommendations grow from: the list's
// best-rated items, position breaking ties; with nothing rated yet, the
// first unwatched items instead.
func (h *WatchlistHandler) seedItems(ctx context.Context, items []models.WatchItem) ([]models.WatchItem, error) {
	type ratedItem struct {
		item models.WatchItem
		avg  float64
	}
	var rated []ratedItem
	for i := range items {
		rows, err := h.Store.ListItemRatings(ctx, items[i].ID)
		if err != nil {
			return nil, err
		}
		if len(rows) > 0 {
			rated = append(rated, ratedItem{item: items[i], avg: rating.Average(rows)})
		}
	}
	if len(rated) > 0 {
		sort.SliceStable(rated, func(i, j int) bool { return rated[i].avg > rated[j].avg })
		seeds := make([]models.WatchItem, 0, recommendationSeeds)
		for _, r := range rated {
			seeds = append(seeds, r.item)
			if len(seeds) == recommendationSeeds {
				break
			}
		}
		return seeds, nil
	}
	var seeds []models.WatchItem
	for i := range items {
		if items[i].Status == models.ItemWatched {
			continue
		}
		seeds = append(seeds, items[i])
		if len(seeds) == recommendationSeeds {
			break
		}
	}
	return seeds, nil
}

// recommendations suggests catalog titles related to what the list already
// likes, skipping anything the list tracks and anything without a poster.
func (h *WatchlistHandler) recommendations(w http.ResponseWriter, r *http.Request) {
	uid := auth.UserID(r.Context())
	wlID := chi.URLParam(r, "id")
	if _, err := h.Registry.Authorize(r.Context(), wlID, uid); err != nil {
		writeDomainError(w, h.Log, err)
		return
	}
	items, err := h.Ordering.Items(r.Context(), wlID)
	if err != nil {
		writeDomainError(w, h.Log, err)
		return
	}
	seeds, err := h.seedItems(r.Context(), items)
	if err != nil {
		writeDomainError(w, h.Log, err)
		return
	}
	recs := make([]tmdb.SearchResult, 0, maxRecommendations)
	if len(seeds) == 0 {
		writeJSON(w, http.StatusOK, map[string]any{"recommendations": recs})
		return
	}
	existing := make(map[string]bool, len(items))
	for i := range items {
		existing[items[i].ExternalID] = true
	}
	seen := make(map[string]bool)
	for _, seed := range seeds {
		rows, err := h.Catalog.Recommendations(r.Context(), seed.ExternalID, seed.MediaType, recommendationsPerSeed)
		if err != nil {
			writeError(w, http.StatusBadGateway, "catalog lookup failed, try again")
			return
		}
		for _, rec := range rows {
			if rec.PosterURL == "" {
				continue
			}
			if existing[rec.ExternalID] || seen[rec.ExternalID] {
				continue
			}
			recs = append(recs, rec)
			seen[rec.ExternalID] = true
			if len(recs) == maxRecommendations {
				break
			}
		}
		if len(recs) == maxRecommendations {
			break
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"recommendations": recs})
}

// Search is public: it proxies the catalog with a short cache in front.
// GET /v1/search?q=...&type=movie|series
func (h *WatchlistHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	mediaType := r.URL.Query().Get("type")
	if mediaType != "" && mediaType != models.MediaMovie && mediaType != models.MediaSeries {
		writeError(w, http.StatusBadRequest, "type must be movie or series")
		return
	}
	key := mediaType + "|" + q
	if b, ok := h.SearchCache.Get(key); ok {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "public, max-age=60")
		_, _ = w.Write(b)
		return
	}
	results, err := h.Catalog.Search(r.Context(), q, mediaType)
	if err != nil {
		writeError(w, http.StatusBadGateway, "catalog search failed, try again")
		return
	}
	b, _ := json.Marshal(map[string]any{"results": results})
	h.SearchCache.Set(key, b)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=60")
	_, _ = w.Write(b)
}
