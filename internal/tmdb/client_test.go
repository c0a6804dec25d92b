package tmdb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ldesmet/cinesync/internal/fetcher"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL, AccessToken: "test-token"})
}

func TestFindByIMDB(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/find/tt1160419", r.URL.Path)
		require.Equal(t, "imdb_id", r.URL.Query().Get("external_source"))
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"movie_results":[{"id":693134}]}`))
	})

	id, found, err := c.FindByIMDB(context.Background(), "tt1160419")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, 693134, id)
}

func TestFindByIMDBNoMatch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"movie_results":[]}`))
	})

	_, found, err := c.FindByIMDB(context.Background(), "tt0000001")
	require.NoError(t, err)
	require.False(t, found)
}

func TestFindByIMDBStatusError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, _, err := c.FindByIMDB(context.Background(), "tt1160419")
	require.Error(t, err)

	var statusErr *fetcher.StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
}

func TestDetails(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/movie/693134", r.URL.Path)
		require.Equal(t, "credits,videos", r.URL.Query().Get("append_to_response"))
		_, _ = w.Write([]byte(`{
			"backdrop_path":"/bd.jpg",
			"genres":[{"name":"Science-Fiction"},{"name":"Aventure"}],
			"original_language":"en",
			"overview":"Paul Atreides...",
			"poster_path":"/ps.jpg",
			"release_date":"2024-02-28",
			"runtime":167,
			"title":"Dune : Deuxième partie",
			"credits":{
				"cast":[{"name":"Timothée Chalamet"},{"name":"Zendaya"}],
				"crew":[{"name":"Denis Villeneuve","department":"Directing","job":"Director"}]
			},
			"videos":{"results":[{"name":"Bande-annonce","site":"YouTube","key":"abc123","type":"Trailer"}]}
		}`))
	})

	details, err := c.Details(context.Background(), 693134)
	require.NoError(t, err)
	require.Equal(t, "Dune : Deuxième partie", details.Title)
	require.Equal(t, 167, details.Runtime)
	require.Len(t, details.Genres, 2)
	require.Len(t, details.Credits.Cast, 2)
	require.Equal(t, "Director", details.Credits.Crew[0].Job)
	require.Equal(t, "abc123", details.Videos.Results[0].Key)
}

func TestDetailsNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := c.Details(context.Background(), 1)
	require.Error(t, err)

	var statusErr *fetcher.StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}
