package sync

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ldesmet/cinesync/internal/fetcher"
)

func TestResolveTitlesClassifiesCandidates(t *testing.T) {
	t.Parallel()

	known := "https://films.example/film/known"
	noImdb := "https://films.example/film/no-imdb"
	noMatch := "https://films.example/film/no-match"
	broken := "https://films.example/film/broken"

	lister := &fakeLister{
		ids: map[string]titleIDs{
			known:   {native: "1", imdb: "tt0000001"},
			noImdb:  {native: "2"},
			noMatch: {native: "3", imdb: "tt0000003"},
		},
		idErrs: map[string]error{
			broken: errors.New("connection refused"),
		},
	}
	api := &fakeAPI{finds: map[string]int{"tt0000001": 100}}

	p, _ := newTestPipeline(lister, api, &fakeStore{})

	resolved, unresolved, err := p.resolveTitles(context.Background(),
		[]string{known, noImdb, noMatch, broken})
	require.NoError(t, err)

	require.Len(t, resolved, 1)
	require.Equal(t, 100, resolved[0].TMDBID)
	require.Equal(t, "1", resolved[0].NativeID)
	require.Equal(t, "tt0000001", resolved[0].IMDBID)

	require.Len(t, unresolved, 3)
	byURL := make(map[string]TitleIdentity, len(unresolved))
	for _, title := range unresolved {
		byURL[title.DetailURL] = title
	}
	require.Equal(t, "2", byURL[noImdb].NativeID)
	require.Equal(t, "3", byURL[noMatch].NativeID)
	require.Equal(t, "tt0000003", byURL[noMatch].IMDBID)
	require.Empty(t, byURL[broken].NativeID)
}

func TestResolveTitlesAbortsWhenBlocked(t *testing.T) {
	t.Parallel()

	blocked := "https://films.example/film/blocked"
	lister := &fakeLister{
		idErrs: map[string]error{
			blocked: &fetcher.StatusError{URL: blocked, StatusCode: http.StatusForbidden},
		},
	}

	p, _ := newTestPipeline(lister, &fakeAPI{}, &fakeStore{})

	_, _, err := p.resolveTitles(context.Background(), []string{blocked})
	require.Error(t, err)
	require.True(t, IsBlocked(err))
}

func TestResolveTitlesDemotesOnMetadataLookupFailure(t *testing.T) {
	t.Parallel()

	pageURL := "https://films.example/film/timeout"
	lister := &fakeLister{
		ids: map[string]titleIDs{pageURL: {native: "5", imdb: "tt0000005"}},
	}
	api := &fakeAPI{
		findErrs: map[string]error{"tt0000005": errors.New("gateway timeout")},
	}

	p, _ := newTestPipeline(lister, api, &fakeStore{})

	resolved, unresolved, err := p.resolveTitles(context.Background(), []string{pageURL})
	require.NoError(t, err)
	require.Empty(t, resolved)
	require.Len(t, unresolved, 1)
	require.Equal(t, "5", unresolved[0].NativeID)
	require.Equal(t, "tt0000005", unresolved[0].IMDBID)
}
