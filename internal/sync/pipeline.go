package sync

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ldesmet/cinesync/internal/catalog"
	"github.com/ldesmet/cinesync/internal/metrics"
	"github.com/ldesmet/cinesync/internal/tmdb"
)

// Lister covers the listing-site operations the pipeline drives.
type Lister interface {
	ListNowPlaying(ctx context.Context) ([]string, error)
	TitleIDs(ctx context.Context, pageURL string) (nativeID, imdbID string, err error)
	MovieDetail(ctx context.Context, pageURL, nativeID string) (catalog.Movie, error)
	Showtimes(ctx context.Context, nativeID string, date time.Time) ([]catalog.CinemaShowtimes, error)
}

// MetadataAPI covers the metadata service operations the pipeline drives.
type MetadataAPI interface {
	FindByIMDB(ctx context.Context, imdbID string) (int, bool, error)
	Details(ctx context.Context, movieID int) (tmdb.MovieDetails, error)
	ImageBaseURL() string
}

// Store persists the crawled catalog.
type Store interface {
	UpsertMovies(ctx context.Context, records []catalog.MovieRecord) (catalog.UpsertCounts, error)
	RemoveExpired(ctx context.Context, today time.Time) (catalog.CleanupCounts, error)
}

// Clock provides the current time; injected for deterministic tests.
type Clock interface {
	Now() time.Time
}

// Config tunes the run orchestration.
type Config struct {
	// GapDays is the number of consecutive empty days that ends a title's
	// showtime walk.
	GapDays int
	// MaxAttempts caps how often a run is restarted after the source
	// answers 403.
	MaxAttempts int
}

const (
	defaultGapDays     = 7
	defaultMaxAttempts = 3
)

// Summary reports what one successful run did.
type Summary struct {
	ElapsedMs         int64 `json:"elapsed_ms"`
	ScrapedMovies     int   `json:"scraped_movies"`
	InsertedMovies    int   `json:"inserted_movies"`
	InsertedShows     int   `json:"inserted_shows"`
	InsertedShowtimes int   `json:"inserted_showtimes"`
	RemovedShows      int   `json:"removed_shows"`
	RemovedMovies     int   `json:"removed_movies"`
}

// Pipeline sequences one synchronization run end to end.
type Pipeline struct {
	lister  Lister
	api     MetadataAPI
	store   Store
	clock   Clock
	sleeper Sleeper
	cfg     Config
	logger  *zap.Logger
}

// New wires a Pipeline. Zero config fields fall back to defaults.
func New(lister Lister, api MetadataAPI, store Store, clock Clock, sleeper Sleeper, cfg Config, logger *zap.Logger) *Pipeline {
	if cfg.GapDays <= 0 {
		cfg.GapDays = defaultGapDays
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		lister:  lister,
		api:     api,
		store:   store,
		clock:   clock,
		sleeper: sleeper,
		cfg:     cfg,
		logger:  logger,
	}
}

// Run executes the full synchronization. A 403 from any source restarts the
// whole run from the listing scrape, up to cfg.MaxAttempts total attempts;
// any other failure aborts immediately.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	started := p.clock.Now()

	var lastErr error
	for attempt := 1; attempt <= p.cfg.MaxAttempts; attempt++ {
		summary, err := p.runOnce(ctx, started)
		if err == nil {
			metrics.ObserveRun("success", p.clock.Now().Sub(started))
			p.logger.Info("synchronization run finished",
				zap.Int("attempt", attempt),
				zap.Int("movies", summary.ScrapedMovies),
				zap.Int64("elapsed_ms", summary.ElapsedMs),
			)
			return summary, nil
		}
		if !IsBlocked(err) {
			metrics.ObserveRun("failed", p.clock.Now().Sub(started))
			return Summary{}, err
		}
		lastErr = err
		p.logger.Warn("source answered forbidden, restarting run",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", p.cfg.MaxAttempts),
			zap.Error(err),
		)
	}

	metrics.ObserveRun("blocked", p.clock.Now().Sub(started))
	return Summary{}, fmt.Errorf("%w after %d attempts: %v", ErrBlocked, p.cfg.MaxAttempts, lastErr)
}

func (p *Pipeline) runOnce(ctx context.Context, started time.Time) (Summary, error) {
	pageURLs, err := p.lister.ListNowPlaying(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("list now playing: %w", err)
	}
	p.logger.Info("listing scraped", zap.Int("titles", len(pageURLs)))

	resolved, unresolved, err := p.resolveTitles(ctx, pageURLs)
	if err != nil {
		return Summary{}, fmt.Errorf("resolve titles: %w", err)
	}
	p.logger.Info("identities resolved",
		zap.Int("resolved", len(resolved)),
		zap.Int("unresolved", len(unresolved)),
	)

	records, err := p.enrichAll(ctx, resolved, unresolved)
	if err != nil {
		return Summary{}, fmt.Errorf("enrich titles: %w", err)
	}

	upserted, err := p.store.UpsertMovies(ctx, records)
	if err != nil {
		return Summary{}, fmt.Errorf("upsert catalog: %w", err)
	}

	removed, err := p.store.RemoveExpired(ctx, midnightUTC(p.clock.Now()))
	if err != nil {
		return Summary{}, fmt.Errorf("clean up catalog: %w", err)
	}

	return Summary{
		ElapsedMs:         p.clock.Now().Sub(started).Milliseconds(),
		ScrapedMovies:     len(records),
		InsertedMovies:    upserted.Movies,
		InsertedShows:     upserted.Shows,
		InsertedShowtimes: upserted.Showtimes,
		RemovedShows:      removed.Shows,
		RemovedMovies:     removed.Movies,
	}, nil
}
