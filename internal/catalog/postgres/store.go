// Package postgres provides the Postgres-backed catalog store used by the
// reconciler.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ldesmet/cinesync/internal/catalog"
	"github.com/ldesmet/cinesync/internal/metrics"
)

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// DB is the subset of pgxpool.Pool the store needs; pgxmock satisfies it in
// tests.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// Store reconciles crawled movie records into the catalog tables.
//
// It assumes the schema:
//
//	CREATE TABLE cinemas (
//		id INTEGER PRIMARY KEY,
//		name TEXT NOT NULL,
//		website TEXT NOT NULL
//	);
//	CREATE TABLE movies (
//		uuid UUID PRIMARY KEY DEFAULT gen_random_uuid(),
//		tmdb_id INTEGER UNIQUE,
//		imdb_id TEXT UNIQUE,
//		slug TEXT NOT NULL UNIQUE,
//		title TEXT NOT NULL,
//		release_date DATE,
//		runtime INTEGER,
//		genres TEXT[],
//		original_language TEXT,
//		directors TEXT[],
//		actors TEXT[],
//		overview TEXT,
//		backdrop JSONB,
//		poster JSONB,
//		videos JSONB
//	);
//	CREATE TABLE shows (
//		uuid UUID PRIMARY KEY DEFAULT gen_random_uuid(),
//		date DATE NOT NULL,
//		movie_uuid UUID NOT NULL REFERENCES movies(uuid) ON DELETE CASCADE ON UPDATE CASCADE,
//		UNIQUE (date, movie_uuid)
//	);
//	CREATE TABLE showtimes (
//		date_time TIMESTAMPTZ NOT NULL,
//		version TEXT NOT NULL,
//		version_long TEXT NOT NULL,
//		show_uuid UUID NOT NULL REFERENCES shows(uuid) ON DELETE CASCADE ON UPDATE CASCADE,
//		cinema_id INTEGER NOT NULL REFERENCES cinemas(id) ON DELETE CASCADE ON UPDATE CASCADE,
//		UNIQUE (cinema_id, show_uuid, version, date_time)
//	);
type Store struct {
	db     DB
	logger *zap.Logger
}

// NewStore creates a Postgres-backed Store using the provided config and
// pings the database to verify the connection.
func NewStore(ctx context.Context, cfg Config, logger *zap.Logger) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return NewStoreWithDB(pool, logger), nil
}

// NewStoreWithDB constructs a Store from an existing pool (primarily for
// testing).
func NewStoreWithDB(db DB, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, logger: logger}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.db == nil {
		return
	}
	s.db.Close()
}

const upsertMovieSQL = `
INSERT INTO movies (
	tmdb_id, imdb_id, slug, title, release_date, runtime, genres,
	original_language, directors, actors, overview, backdrop, poster, videos
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
ON CONFLICT (slug) DO UPDATE SET slug = EXCLUDED.slug
RETURNING uuid`

const upsertShowSQL = `
INSERT INTO shows (date, movie_uuid)
VALUES ($1, $2)
ON CONFLICT (date, movie_uuid) DO UPDATE SET date = EXCLUDED.date
RETURNING uuid`

const insertShowtimeSQL = `
INSERT INTO showtimes (date_time, version, version_long, show_uuid, cinema_id)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (cinema_id, show_uuid, version, date_time) DO NOTHING`

const deleteExpiredShowsSQL = `DELETE FROM shows WHERE date < $1`

const deleteOrphanMoviesSQL = `
DELETE FROM movies
WHERE NOT EXISTS (SELECT 1 FROM shows WHERE shows.movie_uuid = movies.uuid)`

// UpsertMovies writes the crawled records in one transaction: movies keyed on
// slug, shows keyed on (date, movie), showtimes keyed on the full screening
// tuple. Movie and show conflicts resolve to no-op updates so existing row
// ids come back; showtime conflicts are discarded and excluded from the
// returned insert count.
func (s *Store) UpsertMovies(ctx context.Context, records []catalog.MovieRecord) (catalog.UpsertCounts, error) {
	var counts catalog.UpsertCounts
	if len(records) == 0 {
		return counts, nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return counts, fmt.Errorf("begin upsert tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, record := range records {
		movieUUID, err := s.upsertMovie(ctx, tx, record.Movie)
		if err != nil {
			return catalog.UpsertCounts{}, err
		}
		counts.Movies++

		for _, show := range record.Shows {
			var showUUID string
			if err := tx.QueryRow(ctx, upsertShowSQL, show.Date, movieUUID).Scan(&showUUID); err != nil {
				return catalog.UpsertCounts{}, fmt.Errorf("upsert show %s/%s: %w",
					record.Movie.Slug, show.Date.Format("2006-01-02"), err)
			}
			counts.Shows++

			for _, cinema := range show.Cinemas {
				for _, st := range cinema.Times {
					tag, err := tx.Exec(ctx, insertShowtimeSQL,
						st.DateTime, st.Version, st.VersionLong, showUUID, cinema.Cinema.ID)
					if err != nil {
						return catalog.UpsertCounts{}, fmt.Errorf("insert showtime %s@%s: %w",
							record.Movie.Slug, st.DateTime.Format(time.RFC3339), err)
					}
					counts.Showtimes += int(tag.RowsAffected())
				}
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return catalog.UpsertCounts{}, fmt.Errorf("commit upsert tx: %w", err)
	}

	metrics.ObserveCatalogRows("movies", "upsert", counts.Movies)
	metrics.ObserveCatalogRows("shows", "upsert", counts.Shows)
	metrics.ObserveCatalogRows("showtimes", "insert", counts.Showtimes)

	s.logger.Info("catalog upsert committed",
		zap.Int("movies", counts.Movies),
		zap.Int("shows", counts.Shows),
		zap.Int("showtimes", counts.Showtimes),
	)
	return counts, nil
}

func (s *Store) upsertMovie(ctx context.Context, tx pgx.Tx, movie catalog.Movie) (string, error) {
	backdrop, err := json.Marshal(movie.Backdrop)
	if err != nil {
		return "", fmt.Errorf("marshal backdrop for %s: %w", movie.Slug, err)
	}
	poster, err := json.Marshal(movie.Poster)
	if err != nil {
		return "", fmt.Errorf("marshal poster for %s: %w", movie.Slug, err)
	}
	videos := movie.Videos
	if videos == nil {
		videos = []catalog.Video{}
	}
	videosJSON, err := json.Marshal(videos)
	if err != nil {
		return "", fmt.Errorf("marshal videos for %s: %w", movie.Slug, err)
	}

	var movieUUID string
	err = tx.QueryRow(ctx, upsertMovieSQL,
		movie.TMDBID,
		movie.IMDBID,
		movie.Slug,
		movie.Title,
		movie.ReleaseDate,
		movie.RuntimeMinutes,
		movie.Genres,
		movie.OriginalLanguage,
		movie.Directors,
		movie.Actors,
		movie.Overview,
		backdrop,
		poster,
		videosJSON,
	).Scan(&movieUUID)
	if err != nil {
		return "", fmt.Errorf("upsert movie %s: %w", movie.Slug, err)
	}
	return movieUUID, nil
}

// RemoveExpired deletes shows dated strictly before today and, when any were
// deleted, movies left without shows. Runs in its own transaction; cascades
// remove the showtimes of deleted shows.
func (s *Store) RemoveExpired(ctx context.Context, today time.Time) (catalog.CleanupCounts, error) {
	var counts catalog.CleanupCounts

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return counts, fmt.Errorf("begin cleanup tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	showsTag, err := tx.Exec(ctx, deleteExpiredShowsSQL, today)
	if err != nil {
		return catalog.CleanupCounts{}, fmt.Errorf("delete expired shows: %w", err)
	}
	counts.Shows = int(showsTag.RowsAffected())

	if counts.Shows > 0 {
		moviesTag, err := tx.Exec(ctx, deleteOrphanMoviesSQL)
		if err != nil {
			return catalog.CleanupCounts{}, fmt.Errorf("delete orphaned movies: %w", err)
		}
		counts.Movies = int(moviesTag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return catalog.CleanupCounts{}, fmt.Errorf("commit cleanup tx: %w", err)
	}

	metrics.ObserveCatalogRows("shows", "delete", counts.Shows)
	metrics.ObserveCatalogRows("movies", "delete", counts.Movies)

	s.logger.Info("catalog cleanup committed",
		zap.Int("shows_deleted", counts.Shows),
		zap.Int("movies_deleted", counts.Movies),
	)
	return counts, nil
}
