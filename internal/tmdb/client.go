// Package tmdb is the external catalog collaborator. Failures here are
// retryable by the caller and never touch list state.
package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/yourname/watchbuddy/internal/models"
)

const posterBase = "https://image.tmdb.org/t/p/w500"

type Client struct {
	APIKey  string
	BaseURL string
	HTTP    *http.Client
}

func New(apiKey, base string) *Client {
	return &Client{
		APIKey:  apiKey,
		BaseURL: base,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

// SearchResult is one catalog hit, enough to add the title to a list.
type SearchResult struct {
	ExternalID string `json:"external_id"`
	MediaType  string `json:"media_type"`
	Title      string `json:"title"`
	Year       int    `json:"year,omitempty"`
	PosterURL  string `json:"poster_url,omitempty"`
}

// Details is the full catalog record for a title.
type Details struct {
	ExternalID string   `json:"external_id"`
	MediaType  string   `json:"media_type"`
	Title      string   `json:"title"`
	Year       int      `json:"year,omitempty"`
	Overview   string   `json:"overview,omitempty"`
	Genres     []string `json:"genres"`
	PosterURL  string   `json:"poster_url,omitempty"`
	TrailerURL string   `json:"trailer_url,omitempty"`
}

type searchRow struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	Name         string `json:"name"`
	ReleaseDate  string `json:"release_date"`
	FirstAirDate string `json:"first_air_date"`
	PosterPath   string `json:"poster_path"`
}

type searchResponse struct {
	Page    int         `json:"page"`
	Results []searchRow `json:"results"`
}

type detailsResponse struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	Name         string `json:"name"`
	Overview     string `json:"overview"`
	ReleaseDate  string `json:"release_date"`
	FirstAirDate string `json:"first_air_date"`
	PosterPath   string `json:"poster_path"`
	Genres       []struct {
		Name string `json:"name"`
	} `json:"genres"`
	Videos struct {
		Results []struct {
			Key  string `json:"key"`
			Site string `json:"site"`
			Type string `json:"type"`
		} `json:"results"`
	} `json:"videos"`
}

func yearOf(date string) int {
	if len(date) < 4 {
		return 0
	}
	y, _ := strconv.Atoi(date[:4])
	return y
}

func posterURL(path string) string {
	if path == "" {
		return ""
	}
	return posterBase + path
}

func (c *Client) get(ctx context.Context, u string, out any) error {
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	res, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("tmdb status %d", res.StatusCode)
	}
	return json.NewDecoder(res.Body).Decode(out)
}

// Search queries the catalog for titles of the given media type
// (movie | series); an empty mediaType searches movies.
func (c *Client) Search(ctx context.Context, query, mediaType string) ([]SearchResult, error) {
	path := "/search/movie"
	if mediaType == models.MediaSeries {
		path = "/search/tv"
	} else {
		mediaType = models.MediaMovie
	}
	u, _ := url.Parse(c.BaseURL + path)
	q := u.Query()
	q.Set("api_key", c.APIKey)
	q.Set("query", query)
	u.RawQuery = q.Encode()

	var resp searchResponse
	if err := c.get(ctx, u.String(), &resp); err != nil {
		return nil, err
	}
	out := make([]SearchResult, 0, len(resp.Results))
	for _, row := range resp.Results {
		title, date := row.Title, row.ReleaseDate
		if mediaType == models.MediaSeries {
			title, date = row.Name, row.FirstAirDate
		}
		out = append(out, SearchResult{
			ExternalID: strconv.FormatInt(row.ID, 10),
			MediaType:  mediaType,
			Title:      title,
			Year:       yearOf(date),
			PosterURL:  posterURL(row.PosterPath),
		})
	}
	return out, nil
}

// Recommendations returns up to limit catalog titles related to the given
// id, in the catalog's relevance order.
func (c *Client) Recommendations(ctx context.Context, externalID, mediaType string, limit int) ([]SearchResult, error) {
	path := "/movie/"
	if mediaType == models.MediaSeries {
		path = "/tv/"
	} else {
		mediaType = models.MediaMovie
	}
	u, _ := url.Parse(c.BaseURL + path + url.PathEscape(externalID) + "/recommendations")
	q := u.Query()
	q.Set("api_key", c.APIKey)
	q.Set("page", "1")
	u.RawQuery = q.Encode()

	var resp searchResponse
	if err := c.get(ctx, u.String(), &resp); err != nil {
		return nil, err
	}
	rows := resp.Results
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	out := make([]SearchResult, 0, len(rows))
	for _, row := range rows {
		title, date := row.Title, row.ReleaseDate
		if mediaType == models.MediaSeries {
			title, date = row.Name, row.FirstAirDate
		}
		out = append(out, SearchResult{
			ExternalID: strconv.FormatInt(row.ID, 10),
			MediaType:  mediaType,
			Title:      title,
			Year:       yearOf(date),
			PosterURL:  posterURL(row.PosterPath),
		})
	}
	return out, nil
}

// Details fetches the full record for a catalog id, including genres and a
// YouTube trailer when one exists.
func (c *Client) Details(ctx context.Context, externalID, mediaType string) (*Details, error) {
	path := "/movie/"
	if mediaType == models.MediaSeries {
		path = "/tv/"
	} else {
		mediaType = models.MediaMovie
	}
	u, _ := url.Parse(c.BaseURL + path + url.PathEscape(externalID))
	q := u.Query()
	q.Set("api_key", c.APIKey)
	q.Set("append_to_response", "videos")
	u.RawQuery = q.Encode()

	var resp detailsResponse
	if err := c.get(ctx, u.String(), &resp); err != nil {
		return nil, err
	}
	title, date := resp.Title, resp.ReleaseDate
	if mediaType == models.MediaSeries {
		title, date = resp.Name, resp.FirstAirDate
	}
	d := &Details{
		ExternalID: externalID,
		MediaType:  mediaType,
		Title:      title,
		Year:       yearOf(date),
		Overview:   resp.Overview,
		PosterURL:  posterURL(resp.PosterPath),
		Genres:     make([]string, 0, len(resp.Genres)),
	}
	for _, g := range resp.Genres {
		d.Genres = append(d.Genres, g.Name)
	}
	for _, v := range resp.Videos.Results {
		if v.Type == "Trailer" && v.Site == "YouTube" {
			d.TrailerURL = "https://www.youtube.com/watch?v=" + v.Key
			break
		}
	}
	return d, nil
}
