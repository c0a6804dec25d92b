package listing

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/ldesmet/cinesync/internal/catalog"
)

// ParseError reports markup that lacks a field the fallback path requires.
// It is recovered at per-title granularity: the title is dropped, the run
// continues.
type ParseError struct {
	URL   string
	Field string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("detail page %s: missing %s", e.URL, e.Field)
}

// MovieDetail parses a title's detail page into a normalized movie record.
// This is the fallback enrichment path for titles the authoritative source
// cannot identify; videos stay empty because the listing site offers none.
func (c *Client) MovieDetail(ctx context.Context, pageURL, nativeID string) (catalog.Movie, error) {
	resp, err := c.fetcher.Get(ctx, pageURL)
	if err != nil {
		return catalog.Movie{}, fmt.Errorf("detail page %s: %w", pageURL, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return catalog.Movie{}, fmt.Errorf("parse detail page %s: %w", pageURL, err)
	}

	header := doc.Find(".detail-header")

	title := strings.TrimSpace(header.Find(".detail-header-title h1").Text())
	if title == "" {
		return catalog.Movie{}, &ParseError{URL: pageURL, Field: "title"}
	}

	actors := collectText(doc.Find("[data-on-tab='casting'] h4 [itemprop='url']"))
	if len(actors) > 5 {
		actors = actors[:5]
	}

	movie := catalog.Movie{
		Slug:           catalog.Slugify(title, nativeID),
		Title:          title,
		ReleaseDate:    parseReleaseDate(header),
		RuntimeMinutes: parseRuntime(header),
		Genres:         parseGenres(header),
		Directors:      collectText(header.Find(".detail-header-more [itemprop='director']")),
		Actors:         actors,
		Overview:       strings.TrimSpace(header.Find(".detail-header-description").Text()),
		Videos:         []catalog.Video{},
	}

	if frag := imageFragment(doc.Find("[data-on-tab='photos'] a[data-bg]"), "data-bg"); frag != "" {
		movie.Backdrop = catalog.Backdrop{
			Medium: c.cfg.BaseURL + "/image/x1386x780/q" + frag,
			Large:  c.cfg.BaseURL + "/image/x2275x1280/q" + frag,
		}
	}
	if frag := imageFragment(header.Find(".detail-header-poster img"), "data-src"); frag != "" {
		movie.Poster = catalog.Poster{
			Small:  c.cfg.BaseURL + "/image/s185/q" + frag,
			Medium: c.cfg.BaseURL + "/image/s342/q" + frag,
			Large:  c.cfg.BaseURL + "/image/s500/q" + frag,
		}
	}

	return movie, nil
}

func parseReleaseDate(header *goquery.Selection) *time.Time {
	raw := strings.TrimSpace(header.Find(".detail-header-more [itemprop='datePublished']").Text())
	t, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
	if err != nil {
		return nil
	}
	return &t
}

func parseRuntime(header *goquery.Selection) int {
	runtime := 0
	header.Find(".list-dot span").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		if !strings.Contains(text, "minutes") {
			return true
		}
		n, err := strconv.Atoi(strings.TrimSpace(strings.SplitN(text, "minutes", 2)[0]))
		if err == nil {
			runtime = n
		}
		return false
	})
	return runtime
}

func parseGenres(header *goquery.Selection) []string {
	var genres []string
	header.Find(".detail-header-more b").Each(func(_ int, b *goquery.Selection) {
		if !strings.Contains(b.Text(), "Genre") {
			return
		}
		genres = append(genres, collectText(b.NextAllFiltered("a.c"))...)
	})
	return genres
}

func collectText(sel *goquery.Selection) []string {
	var out []string
	sel.Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			out = append(out, text)
		}
	})
	return out
}

// imageFragment pulls the site's image path fragment out of a lazy-load
// attribute; everything after the first "/q" is the reusable part.
func imageFragment(sel *goquery.Selection, attr string) string {
	raw, ok := sel.First().Attr(attr)
	if !ok {
		return ""
	}
	parts := strings.SplitN(strings.TrimSpace(raw), "/q", 2)
	if len(parts) != 2 || parts[1] == "" {
		return ""
	}
	return parts[1]
}
