// Package tmdb is a minimal client for the authoritative movie-metadata API:
// find-by-external-id lookups and full movie details with credits and videos.
package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ldesmet/cinesync/internal/fetcher"
)

// Config locates the API and carries the bearer token.
type Config struct {
	BaseURL      string
	ImageBaseURL string
	AccessToken  string
	Language     string
	Timeout      time.Duration
}

// Client talks to the metadata API over plain HTTP with bearer auth.
type Client struct {
	cfg    Config
	client *http.Client
}

// New builds a Client.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.themoviedb.org/3"
	}
	if cfg.ImageBaseURL == "" {
		cfg.ImageBaseURL = "https://image.tmdb.org/t/p"
	}
	if cfg.Language == "" {
		cfg.Language = "fr-BE"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

// ImageBaseURL returns the artwork CDN root used to build image URLs.
func (c *Client) ImageBaseURL() string {
	return c.cfg.ImageBaseURL
}

type findResponse struct {
	MovieResults []struct {
		ID int `json:"id"`
	} `json:"movie_results"`
}

// MovieDetails is the subset of the details payload the pipeline consumes,
// with credits and videos appended.
type MovieDetails struct {
	BackdropPath string `json:"backdrop_path"`
	Genres       []struct {
		Name string `json:"name"`
	} `json:"genres"`
	OriginalLanguage string `json:"original_language"`
	Overview         string `json:"overview"`
	PosterPath       string `json:"poster_path"`
	ReleaseDate      string `json:"release_date"`
	Runtime          int    `json:"runtime"`
	Title            string `json:"title"`
	Credits          struct {
		Cast []struct {
			Name string `json:"name"`
		} `json:"cast"`
		Crew []struct {
			Name       string `json:"name"`
			Department string `json:"department"`
			Job        string `json:"job"`
		} `json:"crew"`
	} `json:"credits"`
	Videos struct {
		Results []struct {
			Name string `json:"name"`
			Site string `json:"site"`
			Key  string `json:"key"`
			Type string `json:"type"`
		} `json:"results"`
	} `json:"videos"`
}

// FindByIMDB resolves a cross-reference (IMDb) id to the API's own movie id.
// The second return value is false when the API knows no matching movie.
func (c *Client) FindByIMDB(ctx context.Context, imdbID string) (int, bool, error) {
	endpoint := fmt.Sprintf("%s/find/%s?external_source=imdb_id&language=%s",
		c.cfg.BaseURL, url.PathEscape(imdbID), url.QueryEscape(c.cfg.Language))

	var payload findResponse
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return 0, false, fmt.Errorf("find by imdb id %s: %w", imdbID, err)
	}
	if len(payload.MovieResults) == 0 {
		return 0, false, nil
	}
	return payload.MovieResults[0].ID, true, nil
}

// Details fetches full movie details with credits and videos appended.
func (c *Client) Details(ctx context.Context, movieID int) (MovieDetails, error) {
	endpoint := fmt.Sprintf("%s/movie/%d?append_to_response=credits%%2Cvideos&language=%s",
		c.cfg.BaseURL, movieID, url.QueryEscape(c.cfg.Language))

	var payload MovieDetails
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return MovieDetails{}, fmt.Errorf("movie details %d: %w", movieID, err)
	}
	return payload, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return &fetcher.StatusError{URL: endpoint, StatusCode: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
