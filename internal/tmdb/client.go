// Package tmdb wraps the TMDB API for trending, discovery, search and
// movie details.
package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	apiBase = "https://api.themoviedb.org/3"

	// DefaultImageBase is the TMDB image CDN root; a size bucket and the
	// partial path from the API are appended to it.
	DefaultImageBase = "https://image.tmdb.org/t/p/"

	// PlaceholderImage is returned for items without a poster or profile.
	PlaceholderImage = "https://via.placeholder.com/500x750?text=No+Image"
)

type Client struct {
	apiKey    string
	readToken string
	base      string
	imageBase string
	http      *http.Client
}

// Item is one row of a TMDB list response, normalized across the movie
// and tv shapes.
type Item struct {
	ID          int64   `json:"id"`
	MediaType   string  `json:"media_type"`
	Title       string  `json:"title"`
	PosterPath  string  `json:"poster_path"`
	Overview    string  `json:"overview"`
	ReleaseDate string  `json:"release_date"`
	VoteAverage float64 `json:"vote_average"`
}

type Genre struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type CastMember struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Character   string `json:"character"`
	ProfilePath string `json:"profile_path"`
}

// Detail extends Item with the fields only the single-movie endpoint has.
type Detail struct {
	Item
	Runtime int64        `json:"runtime"`
	Genres  []Genre      `json:"genres"`
	Cast    []CastMember `json:"cast"`
}

type listResponse struct {
	Results []struct {
		ID           int64   `json:"id"`
		MediaType    string  `json:"media_type"`
		Title        string  `json:"title"`
		Name         string  `json:"name"`
		ReleaseDate  string  `json:"release_date"`
		FirstAirDate string  `json:"first_air_date"`
		PosterPath   string  `json:"poster_path"`
		Overview     string  `json:"overview"`
		VoteAverage  float64 `json:"vote_average"`
	} `json:"results"`
}

type detailResponse struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	ReleaseDate string  `json:"release_date"`
	PosterPath  string  `json:"poster_path"`
	Overview    string  `json:"overview"`
	VoteAverage float64 `json:"vote_average"`
	Runtime     int64   `json:"runtime"`
	Genres      []Genre `json:"genres"`
	Credits     struct {
		Cast []CastMember `json:"cast"`
	} `json:"credits"`
}

func New(apiKey, readToken string) *Client {
	if strings.TrimSpace(readToken) == "" && looksLikeJWT(apiKey) {
		readToken = apiKey
		apiKey = ""
	}
	return &Client{
		apiKey:    apiKey,
		readToken: readToken,
		imageBase: DefaultImageBase,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// WithBaseURL points the client at a different API root. Used by tests.
func (c *Client) WithBaseURL(base string) *Client {
	c.base = strings.TrimSuffix(base, "/")
	return c
}

func (c *Client) TrendingMovies(ctx context.Context) ([]Item, error) {
	return c.fetchList(ctx, c.endpoint("/trending/movie/day", nil), "movie")
}

func (c *Client) TrendingTV(ctx context.Context) ([]Item, error) {
	return c.fetchList(ctx, c.endpoint("/trending/tv/day", nil), "tv")
}

func (c *Client) TrendingAll(ctx context.Context) ([]Item, error) {
	return c.fetchList(ctx, c.endpoint("/trending/all/day", nil), "")
}

// DiscoverByGenres returns popular movies matching the given genre ids.
// The ids are comma-joined in the order given; an empty set degenerates to
// an unfiltered most-popular query, which TMDB accepts.
func (c *Client) DiscoverByGenres(ctx context.Context, genreIDs []int64) ([]Item, error) {
	values := url.Values{}
	values.Set("with_genres", joinIDs(genreIDs))
	values.Set("sort_by", "popularity.desc")
	return c.fetchList(ctx, c.endpoint("/discover/movie", values), "movie")
}

func (c *Client) SearchMovies(ctx context.Context, query string) ([]Item, error) {
	if strings.TrimSpace(query) == "" {
		return []Item{}, nil
	}
	values := url.Values{}
	values.Set("query", query)
	return c.fetchList(ctx, c.endpoint("/search/movie", values), "movie")
}

// MovieDetails fetches a single movie with its credits appended.
func (c *Client) MovieDetails(ctx context.Context, id int64) (*Detail, error) {
	values := url.Values{}
	values.Set("append_to_response", "credits")
	endpoint := c.endpoint(fmt.Sprintf("/movie/%d", id), values)

	var payload detailResponse
	if err := c.fetchJSON(ctx, endpoint, &payload); err != nil {
		return nil, err
	}

	detail := &Detail{
		Item: Item{
			ID:          payload.ID,
			MediaType:   "movie",
			Title:       payload.Title,
			PosterPath:  payload.PosterPath,
			Overview:    payload.Overview,
			ReleaseDate: payload.ReleaseDate,
			VoteAverage: payload.VoteAverage,
		},
		Runtime: payload.Runtime,
		Genres:  payload.Genres,
		Cast:    payload.Credits.Cast,
	}
	if detail.Genres == nil {
		detail.Genres = []Genre{}
	}
	if detail.Cast == nil {
		detail.Cast = []CastMember{}
	}
	return detail, nil
}

// ImageURL derives an absolute CDN URL from a partial poster/profile path.
// Pure and total: an empty path yields the placeholder regardless of size.
func (c *Client) ImageURL(path, size string) string {
	if strings.TrimSpace(path) == "" {
		return PlaceholderImage
	}
	return c.imageBase + size + path
}

// SetImageBase overrides the image CDN root, keeping the trailing slash.
func (c *Client) SetImageBase(base string) {
	if strings.TrimSpace(base) == "" {
		return
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	c.imageBase = base
}

func (c *Client) endpoint(path string, values url.Values) string {
	if values == nil {
		values = url.Values{}
	}
	if c.apiKey != "" {
		values.Set("api_key", c.apiKey)
	}
	base := c.base
	if base == "" {
		base = apiBase
	}
	return base + path + "?" + values.Encode()
}

func (c *Client) fetchList(ctx context.Context, endpoint, mediaTypeOverride string) ([]Item, error) {
	var payload listResponse
	if err := c.fetchJSON(ctx, endpoint, &payload); err != nil {
		return nil, err
	}

	// Never a nil result set: a missing or malformed "results" field
	// becomes an empty list.
	out := make([]Item, 0, len(payload.Results))
	for i := range payload.Results {
		r := payload.Results[i]
		mediaType := r.MediaType
		if mediaTypeOverride != "" {
			mediaType = mediaTypeOverride
		}
		if mediaType != "movie" && mediaType != "tv" {
			continue
		}
		item := Item{
			ID:          r.ID,
			MediaType:   mediaType,
			PosterPath:  r.PosterPath,
			Overview:    r.Overview,
			VoteAverage: r.VoteAverage,
		}
		if mediaType == "tv" {
			item.Title = r.Name
			item.ReleaseDate = r.FirstAirDate
		} else {
			item.Title = r.Title
			item.ReleaseDate = r.ReleaseDate
		}
		out = append(out, item)
	}
	return out, nil
}

func (c *Client) fetchJSON(ctx context.Context, endpoint string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return err
	}
	c.applyAuth(req)
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		statusErr := fmt.Errorf("tmdb request failed: %s", resp.Status)
		if cerr := resp.Body.Close(); cerr != nil {
			return errors.Join(statusErr, cerr)
		}
		return statusErr
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		if cerr := resp.Body.Close(); cerr != nil {
			return errors.Join(err, cerr)
		}
		return err
	}
	return resp.Body.Close()
}

func (c *Client) applyAuth(req *http.Request) {
	if strings.TrimSpace(c.readToken) == "" {
		return
	}
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(c.readToken))
}

func looksLikeJWT(token string) bool {
	parts := strings.Split(strings.TrimSpace(token), ".")
	return len(parts) == 3 && len(token) > 80
}

func joinIDs(ids []int64) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, strconv.FormatInt(id, 10))
	}
	return strings.Join(parts, ",")
}
