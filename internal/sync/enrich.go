package sync

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ldesmet/cinesync/internal/catalog"
	"github.com/ldesmet/cinesync/internal/metrics"
	"github.com/ldesmet/cinesync/internal/tmdb"
)

type enrichResult struct {
	index  int
	record *catalog.MovieRecord
	err    error
}

// enrichAll fans the per-title enrichment out concurrently, so one title's
// day-by-day walk never stalls the others. Each title's own walk stays
// sequential. Records come back in candidate order with dropped titles
// removed.
func (p *Pipeline) enrichAll(ctx context.Context, resolved []ResolvedTitle, unresolved []TitleIdentity) ([]catalog.MovieRecord, error) {
	total := len(resolved) + len(unresolved)
	results := make(chan enrichResult, total)
	for i, title := range resolved {
		go func(i int, title ResolvedTitle) {
			record, err := p.enrichResolved(ctx, title)
			results <- enrichResult{index: i, record: record, err: err}
		}(i, title)
	}
	for i, title := range unresolved {
		go func(i int, title TitleIdentity) {
			record, err := p.enrichUnresolved(ctx, title)
			results <- enrichResult{index: len(resolved) + i, record: record, err: err}
		}(i, title)
	}

	ordered := make([]*catalog.MovieRecord, total)
	var firstErr error
	for n := 0; n < total; n++ {
		res := <-results
		if res.err != nil && firstErr == nil {
			firstErr = res.err
		}
		ordered[res.index] = res.record
	}
	if firstErr != nil {
		return nil, firstErr
	}

	records := make([]catalog.MovieRecord, 0, total)
	for _, record := range ordered {
		if record != nil {
			records = append(records, *record)
		}
	}
	return records, nil
}

// enrichResolved builds the full record for a title known to the metadata
// API. The schedule is crawled first: a title with no upcoming showtimes is
// excluded without an API call. Returns (nil, nil) when the title should be
// dropped from the run.
func (p *Pipeline) enrichResolved(ctx context.Context, title ResolvedTitle) (*catalog.MovieRecord, error) {
	shows, err := p.crawlShowtimes(ctx, title.NativeID)
	if err != nil {
		if IsBlocked(err) {
			return nil, err
		}
		p.logger.Warn("showtime crawl failed, dropping title",
			zap.String("native_id", title.NativeID), zap.Error(err))
		return nil, nil
	}
	if len(shows) == 0 {
		return nil, nil
	}

	details, err := p.api.Details(ctx, title.TMDBID)
	if err != nil {
		if IsBlocked(err) {
			return nil, err
		}
		p.logger.Warn("metadata details failed, dropping title",
			zap.Int("tmdb_id", title.TMDBID), zap.Error(err))
		return nil, nil
	}

	metrics.ObserveTitleScraped("api")
	movie := p.movieFromDetails(details, title)
	return &catalog.MovieRecord{Movie: movie, Shows: shows}, nil
}

// enrichUnresolved builds the record for a title the metadata API does not
// know, scraping the listing site's own detail page instead. Returns
// (nil, nil) when the title should be dropped from the run.
func (p *Pipeline) enrichUnresolved(ctx context.Context, title TitleIdentity) (*catalog.MovieRecord, error) {
	if title.NativeID == "" {
		p.logger.Warn("no native id for title, dropping", zap.String("url", title.DetailURL))
		return nil, nil
	}

	shows, err := p.crawlShowtimes(ctx, title.NativeID)
	if err != nil {
		if IsBlocked(err) {
			return nil, err
		}
		p.logger.Warn("showtime crawl failed, dropping title",
			zap.String("native_id", title.NativeID), zap.Error(err))
		return nil, nil
	}
	if len(shows) == 0 {
		return nil, nil
	}

	movie, err := p.lister.MovieDetail(ctx, title.DetailURL, title.NativeID)
	if err != nil {
		if IsBlocked(err) {
			return nil, err
		}
		p.logger.Warn("detail scrape failed, dropping title",
			zap.String("url", title.DetailURL), zap.Error(err))
		return nil, nil
	}
	if title.IMDBID != "" {
		imdbID := title.IMDBID
		movie.IMDBID = &imdbID
	}

	metrics.ObserveTitleScraped("scrape")
	return &catalog.MovieRecord{Movie: movie, Shows: shows}, nil
}

// movieFromDetails converts an API details payload into the normalized movie
// shape shared with the scrape path.
func (p *Pipeline) movieFromDetails(d tmdb.MovieDetails, title ResolvedTitle) catalog.Movie {
	imageBase := p.api.ImageBaseURL()

	genres := make([]string, 0, len(d.Genres))
	for _, g := range d.Genres {
		genres = append(genres, g.Name)
	}

	var directors []string
	for _, crew := range d.Credits.Crew {
		if strings.EqualFold(crew.Department, "Directing") && strings.EqualFold(crew.Job, "Director") {
			directors = append(directors, crew.Name)
		}
	}

	actors := make([]string, 0, 5)
	for _, cast := range d.Credits.Cast {
		actors = append(actors, cast.Name)
		if len(actors) == 5 {
			break
		}
	}

	videos := make([]catalog.Video, 0, len(d.Videos.Results))
	for _, v := range d.Videos.Results {
		if strings.EqualFold(v.Site, "YouTube") && strings.EqualFold(v.Type, "Trailer") {
			videos = append(videos, catalog.Video{Name: v.Name, Key: v.Key})
		}
	}

	var releaseDate *time.Time
	if parsed, err := time.ParseInLocation("2006-01-02", d.ReleaseDate, time.UTC); err == nil {
		releaseDate = &parsed
	}

	var lang *string
	if d.OriginalLanguage != "" {
		lang = &d.OriginalLanguage
	}

	var backdrop catalog.Backdrop
	if d.BackdropPath != "" {
		backdrop = catalog.Backdrop{
			Medium: imageBase + "/w780" + d.BackdropPath,
			Large:  imageBase + "/w1280" + d.BackdropPath,
		}
	}
	var poster catalog.Poster
	if d.PosterPath != "" {
		poster = catalog.Poster{
			Small:  imageBase + "/w185" + d.PosterPath,
			Medium: imageBase + "/w342" + d.PosterPath,
			Large:  imageBase + "/w500" + d.PosterPath,
		}
	}

	tmdbID := title.TMDBID
	imdbID := title.IMDBID

	return catalog.Movie{
		TMDBID:           &tmdbID,
		IMDBID:           &imdbID,
		Slug:             catalog.Slugify(d.Title, title.NativeID),
		Title:            d.Title,
		ReleaseDate:      releaseDate,
		RuntimeMinutes:   d.Runtime,
		Genres:           genres,
		OriginalLanguage: lang,
		Directors:        directors,
		Actors:           actors,
		Overview:         d.Overview,
		Backdrop:         backdrop,
		Poster:           poster,
		Videos:           videos,
	}
}
