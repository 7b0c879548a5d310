package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yourname/watchbuddy/internal/auth"
	"github.com/yourname/watchbuddy/internal/ratelimit"
	"github.com/yourname/watchbuddy/internal/session"
	"github.com/yourname/watchbuddy/internal/store"
	"github.com/yourname/watchbuddy/internal/tmdb"
)

// stubCatalog serves canned metadata so handler tests never leave the
// process.
type stubCatalog struct {
	details map[string]*tmdb.Details
	recs    map[string][]tmdb.SearchResult
	fail    bool
}

func (s *stubCatalog) Search(ctx context.Context, query, mediaType string) ([]tmdb.SearchResult, error) {
	if s.fail {
		return nil, fmt.Errorf("catalog unavailable")
	}
	out := make([]tmdb.SearchResult, 0, len(s.details))
	for _, d := range s.details {
		out = append(out, tmdb.SearchResult{
			ExternalID: d.ExternalID,
			MediaType:  d.MediaType,
			Title:      d.Title,
			Year:       d.Year,
		})
	}
	return out, nil
}

func (s *stubCatalog) Details(ctx context.Context, externalID, mediaType string) (*tmdb.Details, error) {
	if s.fail {
		return nil, fmt.Errorf("catalog unavailable")
	}
	d, ok := s.details[externalID]
	if !ok {
		return nil, fmt.Errorf("catalog status 404")
	}
	return d, nil
}

func (s *stubCatalog) Recommendations(ctx context.Context, externalID, mediaType string, limit int) ([]tmdb.SearchResult, error) {
	if s.fail {
		return nil, fmt.Errorf("catalog unavailable")
	}
	rows := s.recs[externalID]
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func newStubCatalog() *stubCatalog {
	return &stubCatalog{recs: make(map[string][]tmdb.SearchResult), details: map[string]*tmdb.Details{
		"tt0111161": {ExternalID: "tt0111161", MediaType: "movie", Title: "The Shawshank Redemption", Year: 1994, Genres: []string{"Drama"}},
		"c1":        {ExternalID: "c1", MediaType: "movie", Title: "Comedy One", Genres: []string{"Comedy"}},
		"c2":        {ExternalID: "c2", MediaType: "movie", Title: "Comedy Two", Genres: []string{"Comedy"}},
		"c3":        {ExternalID: "c3", MediaType: "movie", Title: "Comedy Three", Genres: []string{"Comedy", "Romance"}},
		"h1":        {ExternalID: "h1", MediaType: "movie", Title: "Horror One", Genres: []string{"Horror"}},
		"h2":        {ExternalID: "h2", MediaType: "series", Title: "Horror Show", Genres: []string{"Horror"}},
	}}
}

type testApp struct {
	router  chi.Router
	catalog *stubCatalog
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	mem := store.NewMemory()
	mgr := session.NewStoreManager(mem, mem, time.Hour)
	catalog := newStubCatalog()
	log := zap.NewNop()

	authHandler := NewAuthHandler(mem, mgr, ratelimit.New(1000, time.Minute), log, false)
	userHandler := NewUserHandler()
	wlHandler := NewWatchlistHandler(mem, catalog, log)
	verifier := &auth.Verifier{Sessions: mgr}

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Post("/auth/signup", authHandler.Signup)
		r.Post("/auth/login", authHandler.Login)
		r.Get("/search", wlHandler.Search)
	})
	r.Group(func(r chi.Router) {
		r.Use(verifier.Middleware)
		r.Post("/auth/logout", authHandler.Logout)
		r.Get("/me", userHandler.Me)
		r.Route("/watchlists", wlHandler.Routes)
	})
	return &testApp{router: r, catalog: catalog}
}

// do issues a request with an optional bearer token and JSON body, returning
// the recorder and the decoded body.
func (a *testApp) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "192.0.2.1:12345"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &decoded)
	}
	return rec, decoded
}

// doList is do for endpoints that answer with a JSON array.
func (a *testApp) doList(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, []map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "192.0.2.1:12345"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	var decoded []map[string]any
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &decoded)
	}
	return rec, decoded
}

// sessionToken pulls the token off the Set-Cookie header, the only place
// the server puts it.
func sessionToken(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.SessionCookie && c.Value != "" {
			return c.Value
		}
	}
	t.Fatal("no session cookie set")
	return ""
}

func (a *testApp) signup(t *testing.T, username string) string {
	t.Helper()
	rec, body := a.do(t, http.MethodPost, "/auth/signup", "", map[string]string{
		"username": username,
		"password": "correct-horse-battery",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NotContains(t, body, "token")
	return sessionToken(t, rec)
}

func (a *testApp) createList(t *testing.T, token, name string) (id, inviteCode string) {
	t.Helper()
	rec, body := a.do(t, http.MethodPost, "/watchlists", token, map[string]string{"name": name})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return body["id"].(string), body["invite_code"].(string)
}

func (a *testApp) addItem(t *testing.T, token, listID, externalID, mediaType string) string {
	t.Helper()
	rec, body := a.do(t, http.MethodPost, "/watchlists/"+listID+"/items", token, map[string]string{
		"external_id": externalID,
		"media_type":  mediaType,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return body["id"].(string)
}

func TestSignupLoginLogoutFlow(t *testing.T) {
	app := newTestApp(t)

	token := app.signup(t, "alice")

	// A second signup on the same name collides, case-insensitively.
	rec, body := app.do(t, http.MethodPost, "/auth/signup", "", map[string]string{
		"username": "ALICE", "password": "another-password",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "username already taken", body["error"])

	// The signup token already works.
	rec, body = app.do(t, http.MethodGet, "/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", body["username"])

	// Wrong password and unknown user read identically.
	rec, body = app.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"username": "alice", "password": "wrong-password-here",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid credentials", body["error"])
	rec, body = app.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"username": "nobody", "password": "wrong-password-here",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid credentials", body["error"])

	rec, body = app.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"username": "alice", "password": "correct-horse-battery",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	// The token rides only in the cookie; the body names the user and
	// expiry and nothing secret.
	assert.NotContains(t, body, "token")
	loginToken := sessionToken(t, rec)

	// Logout kills that token but not the other one.
	rec, _ = app.do(t, http.MethodPost, "/auth/logout", loginToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = app.do(t, http.MethodGet, "/me", loginToken, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec, _ = app.do(t, http.MethodGet, "/me", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthedRoutesRejectAnonymous(t *testing.T) {
	app := newTestApp(t)

	rec, _ := app.do(t, http.MethodGet, "/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec, _ = app.do(t, http.MethodGet, "/watchlists", "bogus-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// TestMovieNightScenario walks the collaborative happy path: share by code,
// dedupe additions, and aggregate ratings per viewer.
func TestMovieNightScenario(t *testing.T) {
	app := newTestApp(t)

	alice := app.signup(t, "alice")
	bob := app.signup(t, "bob")

	listID, code := app.createList(t, alice, "Movie Night")

	// Bob cannot see the list before joining.
	rec, _ := app.do(t, http.MethodGet, "/watchlists/"+listID, bob, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, body := app.do(t, http.MethodPost, "/watchlists/join", bob, map[string]string{"code": code})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, listID, body["id"])

	// Bob adds a movie; metadata comes from the catalog.
	rec, body = app.do(t, http.MethodPost, "/watchlists/"+listID+"/items", bob, map[string]string{
		"external_id": "tt0111161", "media_type": "movie",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	itemID := body["id"].(string)
	assert.Equal(t, "The Shawshank Redemption", body["title"])
	assert.Equal(t, float64(1994), body["year"])
	assert.Equal(t, "queued", body["status"])

	// Alice adding the same title is a conflict, not a duplicate row.
	rec, body = app.do(t, http.MethodPost, "/watchlists/"+listID+"/items", alice, map[string]string{
		"external_id": "tt0111161", "media_type": "movie",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "already on your list", body["error"])

	// Alice rates 5, bob rates 3.
	rec, _ = app.do(t, http.MethodPut, "/watchlists/"+listID+"/items/"+itemID+"/rating", alice, map[string]int{"score": 5})
	require.Equal(t, http.StatusOK, rec.Code)
	rec, body = app.do(t, http.MethodPut, "/watchlists/"+listID+"/items/"+itemID+"/rating", bob, map[string]int{"score": 3})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 4.0, body["average_rating"])
	assert.Equal(t, 3.0, body["my_rating"])

	// Each member sees the shared average but their own my_rating.
	rec, items := app.doList(t, http.MethodGet, "/watchlists/"+listID+"/items", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, items, 1)
	assert.Equal(t, 4.0, items[0]["average_rating"])
	assert.Equal(t, 5.0, items[0]["my_rating"])

	_, items = app.doList(t, http.MethodGet, "/watchlists/"+listID+"/items", bob, nil)
	require.Len(t, items, 1)
	assert.Equal(t, 3.0, items[0]["my_rating"])
	ratings, ok := items[0]["ratings"].([]any)
	require.True(t, ok)
	assert.Len(t, ratings, 2)
}

func TestScoreOutOfRange(t *testing.T) {
	app := newTestApp(t)
	alice := app.signup(t, "alice")
	listID, _ := app.createList(t, alice, "solo")
	itemID := app.addItem(t, alice, listID, "tt0111161", "movie")

	rec, _ := app.do(t, http.MethodPut, "/watchlists/"+listID+"/items/"+itemID+"/rating", alice, map[string]int{"score": 6})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Clearing via null score works and empties my_rating.
	rec, body := app.do(t, http.MethodPut, "/watchlists/"+listID+"/items/"+itemID+"/rating", alice, map[string]any{"score": nil})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, body["my_rating"])
	assert.Equal(t, 0.0, body["average_rating"])
}

func TestReorderEndpoint(t *testing.T) {
	app := newTestApp(t)
	alice := app.signup(t, "alice")
	listID, _ := app.createList(t, alice, "queue")

	a := app.addItem(t, alice, listID, "c1", "movie")
	b := app.addItem(t, alice, listID, "c2", "movie")
	c := app.addItem(t, alice, listID, "c3", "movie")

	rec, items := app.doList(t, http.MethodPut, "/watchlists/"+listID+"/items/reorder", alice,
		map[string][]string{"item_ids": {c, a, b}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, items, 3)
	assert.Equal(t, c, items[0]["id"])
	assert.Equal(t, a, items[1]["id"])
	assert.Equal(t, b, items[2]["id"])

	// A partial id set is a bad request and leaves the order alone.
	rec, _ = app.doList(t, http.MethodPut, "/watchlists/"+listID+"/items/reorder", alice,
		map[string][]string{"item_ids": {a, b}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	_, items = app.doList(t, http.MethodGet, "/watchlists/"+listID+"/items", alice, nil)
	assert.Equal(t, c, items[0]["id"])
}

func TestItemStatusPatchAndDelete(t *testing.T) {
	app := newTestApp(t)
	alice := app.signup(t, "alice")
	listID, _ := app.createList(t, alice, "queue")
	itemID := app.addItem(t, alice, listID, "tt0111161", "movie")

	rec, body := app.do(t, http.MethodPatch, "/watchlists/"+listID+"/items/"+itemID, alice,
		map[string]string{"status": "watched"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "watched", body["status"])

	rec, _ = app.do(t, http.MethodPatch, "/watchlists/"+listID+"/items/"+itemID, alice,
		map[string]string{"status": "abandoned"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = app.do(t, http.MethodDelete, "/watchlists/"+listID+"/items/"+itemID, alice, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec, _ = app.do(t, http.MethodGet, "/watchlists/"+listID+"/items/"+itemID, alice, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRotateInviteInvalidatesOldCode(t *testing.T) {
	app := newTestApp(t)
	alice := app.signup(t, "alice")
	bob := app.signup(t, "bob")
	listID, oldCode := app.createList(t, alice, "Movie Night")

	rec, body := app.do(t, http.MethodPost, "/watchlists/"+listID+"/invite", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	newCode := body["invite_code"].(string)
	require.NotEqual(t, oldCode, newCode)

	rec, _ = app.do(t, http.MethodPost, "/watchlists/join", bob, map[string]string{"code": oldCode})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec, _ = app.do(t, http.MethodPost, "/watchlists/join", bob, map[string]string{"code": newCode})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRemoveMemberCascadesTheirItems(t *testing.T) {
	app := newTestApp(t)
	alice := app.signup(t, "alice")
	bob := app.signup(t, "bob")
	listID, code := app.createList(t, alice, "Movie Night")

	rec, meBody := app.do(t, http.MethodGet, "/me", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	bobID := meBody["id"].(string)

	rec, _ = app.do(t, http.MethodPost, "/watchlists/join", bob, map[string]string{"code": code})
	require.Equal(t, http.StatusOK, rec.Code)

	app.addItem(t, alice, listID, "c1", "movie")
	app.addItem(t, bob, listID, "c2", "movie")

	rec, _ = app.do(t, http.MethodDelete, "/watchlists/"+listID+"/members/"+bobID, alice, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	// Bob is out, and so is the item he added.
	rec, _ = app.do(t, http.MethodGet, "/watchlists/"+listID, bob, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	_, items := app.doList(t, http.MethodGet, "/watchlists/"+listID+"/items", alice, nil)
	require.Len(t, items, 1)
	assert.Equal(t, "c1", items[0]["external_id"])
}

// TestRandomPickGenreScenario seeds five items, three of them comedies, and
// checks the filtered pick never leaves the comedy set.
func TestRandomPickGenreScenario(t *testing.T) {
	app := newTestApp(t)
	alice := app.signup(t, "alice")
	listID, _ := app.createList(t, alice, "Friday")

	comedies := map[string]bool{}
	for _, ext := range []string{"c1", "c2", "c3"} {
		comedies[app.addItem(t, alice, listID, ext, "movie")] = true
	}
	app.addItem(t, alice, listID, "h1", "movie")
	app.addItem(t, alice, listID, "h2", "series")

	seen := map[string]bool{}
	for i := 0; i < 40; i++ {
		rec, body := app.do(t, http.MethodGet, "/watchlists/"+listID+"/random?genre=Comedy", alice, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		item := body["item"].(map[string]any)
		id := item["id"].(string)
		require.True(t, comedies[id], "picked non-comedy %v", item["title"])
		seen[id] = true
	}
	assert.Len(t, seen, 3)

	// A genre nobody added yields no match.
	rec, body := app.do(t, http.MethodGet, "/watchlists/"+listID+"/random?genre=Documentary", alice, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotEmpty(t, body["error"])

	// Filters compose: series + comedy is empty here too.
	rec, _ = app.do(t, http.MethodGet, "/watchlists/"+listID+"/random?genre=Comedy&type=series", alice, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = app.do(t, http.MethodGet, "/watchlists/"+listID+"/random?min_rating=9", alice, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// TestRecommendations seeds a rated list and checks suggestions skip
// anything already tracked, anything without a poster, and duplicates.
func TestRecommendations(t *testing.T) {
	app := newTestApp(t)
	alice := app.signup(t, "alice")
	listID, _ := app.createList(t, alice, "queue")

	// Empty list recommends nothing.
	rec, body := app.do(t, http.MethodGet, "/watchlists/"+listID+"/recommendations", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, body["recommendations"])

	shawID := app.addItem(t, alice, listID, "tt0111161", "movie")
	app.addItem(t, alice, listID, "c1", "movie")
	rec, _ = app.do(t, http.MethodPut, "/watchlists/"+listID+"/items/"+shawID+"/rating", alice, map[string]int{"score": 5})
	require.Equal(t, http.StatusOK, rec.Code)

	// Only the rated title seeds, so only its related rows surface.
	app.catalog.recs["tt0111161"] = []tmdb.SearchResult{
		{ExternalID: "r1", MediaType: "movie", Title: "Rec One", PosterURL: "https://img/r1.jpg"},
		{ExternalID: "r2", MediaType: "movie", Title: "No Poster"},
		{ExternalID: "c1", MediaType: "movie", Title: "Already Tracked", PosterURL: "https://img/c1.jpg"},
		{ExternalID: "r1", MediaType: "movie", Title: "Rec One Again", PosterURL: "https://img/r1.jpg"},
		{ExternalID: "r3", MediaType: "movie", Title: "Rec Three", PosterURL: "https://img/r3.jpg"},
	}
	app.catalog.recs["c1"] = []tmdb.SearchResult{
		{ExternalID: "hidden", MediaType: "movie", Title: "From Unrated Seed", PosterURL: "https://img/h.jpg"},
	}

	rec, body = app.do(t, http.MethodGet, "/watchlists/"+listID+"/recommendations", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rows, ok := body["recommendations"].([]any)
	require.True(t, ok)
	require.Len(t, rows, 2)
	assert.Equal(t, "r1", rows[0].(map[string]any)["external_id"])
	assert.Equal(t, "r3", rows[1].(map[string]any)["external_id"])

	// A catalog outage is a retryable 502, same as item adds.
	app.catalog.fail = true
	rec, _ = app.do(t, http.MethodGet, "/watchlists/"+listID+"/recommendations", alice, nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

// With no ratings anywhere, recommendations fall back to seeding from the
// front of the unwatched queue.
func TestRecommendationsFallbackSeeds(t *testing.T) {
	app := newTestApp(t)
	alice := app.signup(t, "alice")
	listID, _ := app.createList(t, alice, "queue")

	app.addItem(t, alice, listID, "c1", "movie")
	watchedID := app.addItem(t, alice, listID, "c2", "movie")
	rec, _ := app.do(t, http.MethodPatch, "/watchlists/"+listID+"/items/"+watchedID, alice, map[string]string{"status": "watched"})
	require.Equal(t, http.StatusOK, rec.Code)

	app.catalog.recs["c1"] = []tmdb.SearchResult{
		{ExternalID: "f1", MediaType: "movie", Title: "Fallback", PosterURL: "https://img/f1.jpg"},
	}
	app.catalog.recs["c2"] = []tmdb.SearchResult{
		{ExternalID: "w1", MediaType: "movie", Title: "From Watched", PosterURL: "https://img/w1.jpg"},
	}

	rec, body := app.do(t, http.MethodGet, "/watchlists/"+listID+"/recommendations", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rows, ok := body["recommendations"].([]any)
	require.True(t, ok)
	require.Len(t, rows, 1)
	assert.Equal(t, "f1", rows[0].(map[string]any)["external_id"])
}

func TestCatalogOutageDoesNotTouchListState(t *testing.T) {
	app := newTestApp(t)
	alice := app.signup(t, "alice")
	listID, _ := app.createList(t, alice, "queue")

	app.catalog.fail = true
	rec, body := app.do(t, http.MethodPost, "/watchlists/"+listID+"/items", alice, map[string]string{
		"external_id": "tt0111161", "media_type": "movie",
	})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "catalog lookup failed, try again", body["error"])

	app.catalog.fail = false
	_, items := app.doList(t, http.MethodGet, "/watchlists/"+listID+"/items", alice, nil)
	assert.Empty(t, items)
}

func TestSearchEndpointCaches(t *testing.T) {
	app := newTestApp(t)

	rec, body := app.do(t, http.MethodGet, "/search?q=shawshank", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	results, ok := body["results"].([]any)
	require.True(t, ok)
	assert.NotEmpty(t, results)

	// The cached copy survives a catalog outage within the TTL.
	app.catalog.fail = true
	rec, body = app.do(t, http.MethodGet, "/search?q=shawshank", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, body["results"])

	// A different query misses the cache and surfaces the outage.
	rec, _ = app.do(t, http.MethodGet, "/search?q=other", "", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec, _ = app.do(t, http.MethodGet, "/search", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
