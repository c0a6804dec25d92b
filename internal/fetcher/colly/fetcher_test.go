package collyfetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ldesmet/cinesync/internal/fetcher"
)

func TestFetcherGetSuccess(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	f := New(Config{Timeout: 5 * time.Second})
	resp, err := f.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, []byte("<html>ok</html>"), resp.Body)
	require.Contains(t, gotUA, "Chrome/", "requests should carry a browser user agent")
}

func TestFetcherGetStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	f := New(Config{Timeout: 5 * time.Second})
	resp, err := f.Get(context.Background(), srv.URL)
	require.Error(t, err)

	var statusErr *fetcher.StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusForbidden, statusErr.StatusCode)
	require.True(t, statusErr.IsForbidden())
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestFetcherGetRepeatedURL(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		_, _ = w.Write([]byte("page"))
	}))
	defer srv.Close()

	f := New(Config{Timeout: 5 * time.Second})
	for i := 0; i < 2; i++ {
		_, err := f.Get(context.Background(), srv.URL)
		require.NoError(t, err)
	}
	require.Equal(t, 2, hits, "the same URL must be fetchable more than once")
}

func TestBrowserHeadersMatchUserAgent(t *testing.T) {
	h := browserHeaders()
	ua := h.Get("User-Agent")
	require.Contains(t, ua, "Chrome/")
	m := chromeMajorVersion.FindStringSubmatch(ua)
	require.NotNil(t, m)
	require.Contains(t, h.Get("Sec-CH-UA"), m[1])
}
