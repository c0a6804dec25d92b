package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/ldesmet/cinesync/internal/catalog"
)

func ptr[T any](v T) *T { return &v }

func sampleRecord(day time.Time) catalog.MovieRecord {
	release := time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC)
	return catalog.MovieRecord{
		Movie: catalog.Movie{
			TMDBID:           ptr(929590),
			IMDBID:           ptr("tt17279496"),
			Slug:             "le-comte-de-monte-cristo-12345",
			Title:            "Le Comte de Monte-Cristo",
			ReleaseDate:      &release,
			RuntimeMinutes:   178,
			Genres:           []string{"Aventure", "Drame"},
			OriginalLanguage: ptr("fr"),
			Directors:        []string{"Matthieu Delaporte"},
			Actors:           []string{"Pierre Niney"},
			Overview:         "Victime d'un complot, Edmond Dantes...",
			Backdrop: catalog.Backdrop{
				Medium: "https://image.example/w780/back.jpg",
				Large:  "https://image.example/w1280/back.jpg",
			},
			Poster: catalog.Poster{
				Small:  "https://image.example/w185/poster.jpg",
				Medium: "https://image.example/w342/poster.jpg",
				Large:  "https://image.example/w500/poster.jpg",
			},
			Videos: []catalog.Video{{Name: "Bande-annonce", Key: "dQw4w9WgXcQ"}},
		},
		Shows: []catalog.Show{
			{
				Date: day,
				Cinemas: []catalog.CinemaShowtimes{
					{
						Cinema: catalog.Cinema{ID: 7, Name: "UGC De Brouckere"},
						Times: []catalog.Showtime{
							{DateTime: day.Add(18 * time.Hour), Version: "VF", VersionLong: "Version francaise"},
							{DateTime: day.Add(21 * time.Hour), Version: "VF", VersionLong: "Version francaise"},
						},
					},
				},
			},
		},
	}
}

func expectMovieUpsert(mock pgxmock.PgxPoolIface, movie catalog.Movie, uuid string) {
	mock.ExpectQuery("INSERT INTO movies").
		WithArgs(
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
			pgxmock.AnyArg(),
			pgxmock.AnyArg(),
			pgxmock.AnyArg(),
		).
		WillReturnRows(pgxmock.NewRows([]string{"uuid"}).AddRow(uuid))
}

func TestUpsertMoviesCountsRows(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	day := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	rec := sampleRecord(day)

	mock.ExpectBegin()
	expectMovieUpsert(mock, rec.Movie, "movie-uuid-1")
	mock.ExpectQuery("INSERT INTO shows").
		WithArgs(day, "movie-uuid-1").
		WillReturnRows(pgxmock.NewRows([]string{"uuid"}).AddRow("show-uuid-1"))
	mock.ExpectExec("INSERT INTO showtimes").
		WithArgs(day.Add(18*time.Hour), "VF", "Version francaise", "show-uuid-1", 7).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO showtimes").
		WithArgs(day.Add(21*time.Hour), "VF", "Version francaise", "show-uuid-1", 7).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	store := NewStoreWithDB(mock, nil)

	counts, err := store.UpsertMovies(context.Background(), []catalog.MovieRecord{rec})
	require.NoError(t, err)
	require.Equal(t, catalog.UpsertCounts{Movies: 1, Shows: 1, Showtimes: 2}, counts)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertMoviesExcludesDuplicateShowtimes(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	day := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	rec := sampleRecord(day)

	// Re-crawl of an already stored day: showtime inserts hit the conflict
	// target and report zero rows.
	mock.ExpectBegin()
	expectMovieUpsert(mock, rec.Movie, "movie-uuid-1")
	mock.ExpectQuery("INSERT INTO shows").
		WithArgs(day, "movie-uuid-1").
		WillReturnRows(pgxmock.NewRows([]string{"uuid"}).AddRow("show-uuid-1"))
	mock.ExpectExec("INSERT INTO showtimes").
		WithArgs(day.Add(18*time.Hour), "VF", "Version francaise", "show-uuid-1", 7).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectExec("INSERT INTO showtimes").
		WithArgs(day.Add(21*time.Hour), "VF", "Version francaise", "show-uuid-1", 7).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	store := NewStoreWithDB(mock, nil)

	counts, err := store.UpsertMovies(context.Background(), []catalog.MovieRecord{rec})
	require.NoError(t, err)
	require.Equal(t, catalog.UpsertCounts{Movies: 1, Shows: 1, Showtimes: 1}, counts)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertMoviesEmptyInputSkipsTransaction(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewStoreWithDB(mock, nil)

	counts, err := store.UpsertMovies(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, catalog.UpsertCounts{}, counts)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertMoviesRollsBackOnError(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	day := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	rec := sampleRecord(day)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO movies").
		WithArgs(
			rec.Movie.TMDBID,
			rec.Movie.IMDBID,
			rec.Movie.Slug,
			rec.Movie.Title,
			rec.Movie.ReleaseDate,
			rec.Movie.RuntimeMinutes,
			rec.Movie.Genres,
			rec.Movie.OriginalLanguage,
			rec.Movie.Directors,
			rec.Movie.Actors,
			rec.Movie.Overview,
			pgxmock.AnyArg(),
			pgxmock.AnyArg(),
			pgxmock.AnyArg(),
		).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	store := NewStoreWithDB(mock, nil)

	_, err = store.UpsertMovies(context.Background(), []catalog.MovieRecord{rec})
	require.Error(t, err)
	require.Contains(t, err.Error(), rec.Movie.Slug)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRemoveExpiredDeletesShowsAndOrphans(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	today := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM shows").
		WithArgs(today).
		WillReturnResult(pgxmock.NewResult("DELETE", 4))
	mock.ExpectExec("DELETE FROM movies").
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectCommit()

	store := NewStoreWithDB(mock, nil)

	counts, err := store.RemoveExpired(context.Background(), today)
	require.NoError(t, err)
	require.Equal(t, catalog.CleanupCounts{Shows: 4, Movies: 2}, counts)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRemoveExpiredSkipsOrphanScanWhenNothingExpired(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	today := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM shows").
		WithArgs(today).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectCommit()

	store := NewStoreWithDB(mock, nil)

	counts, err := store.RemoveExpired(context.Background(), today)
	require.NoError(t, err)
	require.Equal(t, catalog.CleanupCounts{}, counts)
	require.NoError(t, mock.ExpectationsWereMet())
}
