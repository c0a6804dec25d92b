// Package listing implements the scraping clients for the cinema-listing
// website: the paginated now-playing index, title detail pages, and the
// showtimes-by-date endpoint.
package listing

import (
	"bytes"
	"context"
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/ldesmet/cinesync/internal/fetcher"
	"github.com/ldesmet/cinesync/internal/metrics"
)

// Config points the client at one listing site region.
type Config struct {
	BaseURL  string
	Region   string
	RegionID int
	Language string
	PageSize int
}

// Client scrapes the listing source through a fetcher.Getter.
type Client struct {
	fetcher fetcher.Getter
	cfg     Config
	logger  *zap.Logger
}

// NewClient builds a Client.
func NewClient(f fetcher.Getter, cfg Config, logger *zap.Logger) *Client {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 24
	}
	if cfg.Language == "" {
		cfg.Language = "fr"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{fetcher: f, cfg: cfg, logger: logger}
}

// BaseURL returns the configured site root.
func (c *Client) BaseURL() string {
	return c.cfg.BaseURL
}

// ListNowPlaying paginates the now-playing index until a page yields zero
// entries and returns the deduplicated detail page URLs in discovery order.
// Any non-success page status fails the whole listing crawl; pagination
// cannot safely continue past a hole.
func (c *Client) ListNowPlaying(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	var urls []string

	startRow := 1
	for {
		pageURL := fmt.Sprintf(
			"%s/%s/cinema/programme/region/%s?startrow=%d",
			c.cfg.BaseURL, c.cfg.Language, c.cfg.Region, startRow,
		)
		resp, err := c.fetcher.Get(ctx, pageURL)
		if err != nil {
			return nil, fmt.Errorf("listing page startrow=%d: %w", startRow, err)
		}
		metrics.ObserveListingPage()

		hrefs, err := parseListingPage(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("parse listing page startrow=%d: %w", startRow, err)
		}
		if len(hrefs) == 0 {
			break
		}

		for _, href := range hrefs {
			if _, dup := seen[href]; dup {
				continue
			}
			seen[href] = struct{}{}
			urls = append(urls, c.cfg.BaseURL+href)
		}
		startRow += c.cfg.PageSize
	}

	c.logger.Info("listing crawl finished",
		zap.Int("titles", len(urls)),
		zap.Int("last_startrow", startRow),
	)
	return urls, nil
}

func parseListingPage(body []byte) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var hrefs []string
	doc.Find(".movies-list article.movies-stk .stk-title a").Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok && href != "" {
			hrefs = append(hrefs, href)
		}
	})
	return hrefs, nil
}

// TitleIDs fetches a detail page and extracts the source-native id and the
// cross-reference (IMDb) id embedded in its markup. Either id may come back
// empty when the page does not carry it.
func (c *Client) TitleIDs(ctx context.Context, pageURL string) (nativeID, imdbID string, err error) {
	resp, err := c.fetcher.Get(ctx, pageURL)
	if err != nil {
		return "", "", fmt.Errorf("detail page %s: %w", pageURL, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return "", "", fmt.Errorf("parse detail page %s: %w", pageURL, err)
	}

	nativeID, _ = doc.Find("[data-tbl-id]").First().Attr("data-tbl-id")
	imdbID, _ = doc.Find("[data-vod-imdb]").First().Attr("data-vod-imdb")
	return nativeID, imdbID, nil
}
