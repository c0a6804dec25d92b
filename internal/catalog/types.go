// Package catalog defines the normalized movie/show/showtime records that the
// synchronization pipeline produces and the persistent store consumes.
package catalog

import "time"

// Backdrop holds the wide artwork URLs for a movie.
type Backdrop struct {
	Medium string `json:"medium"`
	Large  string `json:"large"`
}

// Poster holds the poster artwork URLs for a movie.
type Poster struct {
	Small  string `json:"small"`
	Medium string `json:"medium"`
	Large  string `json:"large"`
}

// Video is a trailer reference on the hosting site (name + video key).
type Video struct {
	Name string `json:"name"`
	Key  string `json:"key"`
}

// Movie is the converged enrichment output. Both the authoritative and the
// fallback path produce this shape; only Videos may legitimately stay empty
// on the fallback path.
type Movie struct {
	TMDBID           *int       `json:"tmdb_id,omitempty"`
	IMDBID           *string    `json:"imdb_id,omitempty"`
	Slug             string     `json:"slug"`
	Title            string     `json:"title"`
	ReleaseDate      *time.Time `json:"release_date,omitempty"`
	RuntimeMinutes   int        `json:"runtime"`
	Genres           []string   `json:"genres"`
	OriginalLanguage *string    `json:"original_language,omitempty"`
	Directors        []string   `json:"directors"`
	Actors           []string   `json:"actors"`
	Overview         string     `json:"overview"`
	Backdrop         Backdrop   `json:"backdrop"`
	Poster           Poster     `json:"poster"`
	Videos           []Video    `json:"videos"`
}

// Cinema is a static reference row; the pipeline looks cinemas up by id and
// never creates them.
type Cinema struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Showtime is one screening instant with its version labels.
type Showtime struct {
	DateTime    time.Time `json:"date_time"`
	Version     string    `json:"version"`
	VersionLong string    `json:"version_long"`
}

// CinemaShowtimes groups the screening times of one cinema on one day.
type CinemaShowtimes struct {
	Cinema Cinema     `json:"cinema"`
	Times  []Showtime `json:"times"`
}

// Show is one calendar date on which a movie plays. Date is always a UTC
// midnight instant.
type Show struct {
	Date    time.Time         `json:"date"`
	Cinemas []CinemaShowtimes `json:"cinemas"`
}

// MovieRecord pairs a normalized movie with its crawled shows; this is the
// unit the reconciler upserts.
type MovieRecord struct {
	Movie Movie  `json:"movie"`
	Shows []Show `json:"shows"`
}

// UpsertCounts reports how many rows the reconciler touched. Movies and Shows
// count every upserted row; Showtimes counts newly inserted rows only,
// conflict-discarded duplicates are excluded.
type UpsertCounts struct {
	Movies    int `json:"movies"`
	Shows     int `json:"shows"`
	Showtimes int `json:"showtimes"`
}

// CleanupCounts reports how many expired shows and orphaned movies the
// cleanup step deleted.
type CleanupCounts struct {
	Shows  int `json:"shows"`
	Movies int `json:"movies"`
}
